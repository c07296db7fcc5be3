package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmunix/trailgo/internal/config"
	"github.com/vmunix/trailgo/internal/fetch"
	"github.com/vmunix/trailgo/internal/media"
	"github.com/vmunix/trailgo/internal/place"
	"github.com/vmunix/trailgo/internal/search"
	"github.com/vmunix/trailgo/internal/transcode"
)

type resolverFunc func(ctx context.Context, item *media.Item, profile config.Profile, excluded *search.ExcludeSet) (search.Candidate, error)

func (f resolverFunc) Resolve(ctx context.Context, item *media.Item, profile config.Profile, excluded *search.ExcludeSet) (search.Candidate, error) {
	return f(ctx, item, profile, excluded)
}

type fetcherFunc func(ctx context.Context, candidateID string, profile config.Profile) (string, error)

func (f fetcherFunc) Fetch(ctx context.Context, candidateID string, profile config.Profile) (string, error) {
	return f(ctx, candidateID, profile)
}

type transcoderFunc func(ctx context.Context, profile config.Profile, title, input, output string) (string, error)

func (f transcoderFunc) Convert(ctx context.Context, profile config.Profile, title, input, output string) (string, error) {
	return f(ctx, profile, title, input, output)
}

type verifierFunc func(ctx context.Context, artifact string, profile config.Profile) (bool, string)

func (f verifierFunc) Verify(ctx context.Context, artifact string, profile config.Profile) (bool, string) {
	return f(ctx, artifact, profile)
}

type placerFunc func(artifact string, item *media.Item, profile config.Profile) (place.Result, error)

func (f placerFunc) Place(artifact string, item *media.Item, profile config.Profile) (place.Result, error) {
	return f(artifact, item, profile)
}

// statusLog records every status transition reported by the orchestrator.
type statusLog struct {
	mu          sync.Mutex
	transitions []media.Status
	youtubeIDs  []string
}

func (s *statusLog) SetStatus(id int64, status media.Status, trailerExists bool, downloadedAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transitions = append(s.transitions, status)
	return nil
}

func (s *statusLog) SetYouTubeID(id int64, youtubeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.youtubeIDs = append(s.youtubeIDs, youtubeID)
	return nil
}

func (s *statusLog) statuses() []media.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]media.Status(nil), s.transitions...)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Scratch.Dir = t.TempDir()
	cfg.Acquisition.MaxAttempts = 3
	return cfg
}

func testItem(folder string) *media.Item {
	return &media.Item{
		ID:         7,
		Type:       media.TypeMovie,
		Title:      "Heat",
		Year:       1995,
		FolderPath: folder,
		Status:     media.StatusMonitored,
	}
}

func testProfile() config.Profile {
	return config.Profile{Container: "mkv", Resolution: 1080}
}

// writeScratch creates a fake artifact so cleanup paths have something to
// delete.
func writeScratch(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	return path
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestAcquire_FirstAttemptSucceeds(t *testing.T) {
	cfg := testConfig(t)
	status := &statusLog{}
	item := testItem(t.TempDir())

	var placed string
	o := New(Deps{
		Resolver: resolverFunc(func(_ context.Context, _ *media.Item, _ config.Profile, _ *search.ExcludeSet) (search.Candidate, error) {
			return search.Candidate{ID: "abc123"}, nil
		}),
		Fetcher: fetcherFunc(func(_ context.Context, id string, _ config.Profile) (string, error) {
			return writeScratch(t, cfg.Scratch.Dir, "raw.webm"), nil
		}),
		Transcoder: transcoderFunc(func(_ context.Context, _ config.Profile, title, input, output string) (string, error) {
			assert.Contains(t, title, "Heat (1995)")
			return writeScratch(t, cfg.Scratch.Dir, filepath.Base(output)), nil
		}),
		Verifier: verifierFunc(func(_ context.Context, _ string, _ config.Profile) (bool, string) {
			return true, ""
		}),
		Placer: placerFunc(func(artifact string, it *media.Item, _ config.Profile) (place.Result, error) {
			placed = artifact
			return place.Result{FinalPath: filepath.Join(it.FolderPath, "Heat (1995)-trailer.mkv"), Placed: true}, nil
		}),
		Status:  status,
		Sources: status,
		Log:     discardLogger(),
	}, cfg)

	out, err := o.Acquire(context.Background(), item, testProfile(), 0, nil)
	require.NoError(t, err)
	assert.True(t, out.Placed)
	assert.Equal(t, 1, out.Attempts)
	assert.Equal(t, "abc123", out.CandidateID)
	assert.Contains(t, placed, "7-abc123.mkv")

	assert.Equal(t, []media.Status{media.StatusDownloading, media.StatusDownloaded}, status.statuses())
	assert.Equal(t, []string{"abc123"}, status.youtubeIDs)
	assert.Equal(t, 0, o.Sessions().Active())
}

func TestAcquire_VerificationFailureExcludesAndRetries(t *testing.T) {
	cfg := testConfig(t)
	status := &statusLog{}
	item := testItem(t.TempDir())

	candidates := []string{"bad1", "good2"}
	resolved := 0
	var converted []string

	o := New(Deps{
		Resolver: resolverFunc(func(_ context.Context, _ *media.Item, _ config.Profile, excluded *search.ExcludeSet) (search.Candidate, error) {
			for _, id := range candidates {
				if !excluded.Has(id) {
					resolved++
					return search.Candidate{ID: id}, nil
				}
			}
			return search.Candidate{}, search.ErrNoCandidate
		}),
		Fetcher: fetcherFunc(func(_ context.Context, id string, _ config.Profile) (string, error) {
			return writeScratch(t, cfg.Scratch.Dir, id+".webm"), nil
		}),
		Transcoder: transcoderFunc(func(_ context.Context, _ config.Profile, _, input, output string) (string, error) {
			path := writeScratch(t, cfg.Scratch.Dir, filepath.Base(output))
			converted = append(converted, path)
			return path, nil
		}),
		Verifier: verifierFunc(func(_ context.Context, artifact string, _ config.Profile) (bool, string) {
			if filepath.Base(artifact) == "7-bad1.mkv" {
				return false, "no audio stream"
			}
			return true, ""
		}),
		Placer: placerFunc(func(artifact string, it *media.Item, _ config.Profile) (place.Result, error) {
			return place.Result{FinalPath: filepath.Join(it.FolderPath, filepath.Base(artifact)), Placed: true}, nil
		}),
		Status: status,
		Log:    discardLogger(),
	}, cfg)

	excluded := search.NewExcludeSet()
	out, err := o.Acquire(context.Background(), item, testProfile(), 3, excluded)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Attempts)
	assert.Equal(t, "good2", out.CandidateID)
	assert.Equal(t, 2, resolved)

	assert.True(t, excluded.Has("bad1"))
	assert.Equal(t, "no audio stream", excluded.Reason("bad1"))
	assert.False(t, excluded.Has("good2"))

	// The rejected conversion was removed from scratch.
	require.Len(t, converted, 2)
	assert.NoFileExists(t, converted[0])
}

func TestAcquire_FolderNotFoundIsTerminal(t *testing.T) {
	cfg := testConfig(t)
	status := &statusLog{}
	item := testItem(filepath.Join(t.TempDir(), "gone"))

	attempts := 0
	o := New(Deps{
		Resolver: resolverFunc(func(_ context.Context, _ *media.Item, _ config.Profile, _ *search.ExcludeSet) (search.Candidate, error) {
			attempts++
			return search.Candidate{ID: fmt.Sprintf("cand%d", attempts)}, nil
		}),
		Fetcher: fetcherFunc(func(_ context.Context, id string, _ config.Profile) (string, error) {
			return writeScratch(t, cfg.Scratch.Dir, id+".webm"), nil
		}),
		Transcoder: transcoderFunc(func(_ context.Context, _ config.Profile, _, _, output string) (string, error) {
			return writeScratch(t, cfg.Scratch.Dir, filepath.Base(output)), nil
		}),
		Verifier: verifierFunc(func(_ context.Context, _ string, _ config.Profile) (bool, string) {
			return true, ""
		}),
		Placer: placerFunc(func(_ string, it *media.Item, _ config.Profile) (place.Result, error) {
			return place.Result{}, fmt.Errorf("%w: %s", place.ErrFolderNotFound, it.FolderPath)
		}),
		Status: status,
		Log:    discardLogger(),
	}, cfg)

	excluded := search.NewExcludeSet()
	out, err := o.Acquire(context.Background(), item, testProfile(), 3, excluded)
	require.ErrorIs(t, err, place.ErrFolderNotFound)
	assert.False(t, out.Placed)
	assert.Equal(t, 1, out.Attempts)
	assert.Equal(t, 1, attempts, "a missing folder must not burn further attempts")
	assert.Equal(t, 0, excluded.Len(), "the candidate was fine, the destination was not")

	assert.Equal(t, []media.Status{media.StatusDownloading, media.StatusMissing}, status.statuses())

	entries, readErr := os.ReadDir(cfg.Scratch.Dir)
	require.NoError(t, readErr)
	assert.Empty(t, entries, "scratch must be clean after a terminal failure")
}

func TestAcquire_RateLimitIsTerminal(t *testing.T) {
	cfg := testConfig(t)
	item := testItem(t.TempDir())

	o := New(Deps{
		Resolver: resolverFunc(func(_ context.Context, _ *media.Item, _ config.Profile, _ *search.ExcludeSet) (search.Candidate, error) {
			return search.Candidate{ID: "abc"}, nil
		}),
		Fetcher: fetcherFunc(func(_ context.Context, _ string, _ config.Profile) (string, error) {
			return "", fmt.Errorf("%w: HTTP 429", fetch.ErrTooManyRequests)
		}),
		Log: discardLogger(),
	}, cfg)

	excluded := search.NewExcludeSet()
	_, err := o.Acquire(context.Background(), item, testProfile(), 3, excluded)
	require.ErrorIs(t, err, fetch.ErrTooManyRequests)
	assert.Equal(t, 0, excluded.Len(), "rate limiting is not the candidate's fault")
}

func TestAcquire_ExhaustsAttempts(t *testing.T) {
	cfg := testConfig(t)
	item := testItem(t.TempDir())

	n := 0
	o := New(Deps{
		Resolver: resolverFunc(func(_ context.Context, _ *media.Item, _ config.Profile, excluded *search.ExcludeSet) (search.Candidate, error) {
			n++
			id := fmt.Sprintf("cand%d", n)
			require.False(t, excluded.Has(id), "resolver must never return an excluded candidate")
			return search.Candidate{ID: id}, nil
		}),
		Fetcher: fetcherFunc(func(_ context.Context, id string, _ config.Profile) (string, error) {
			return writeScratch(t, cfg.Scratch.Dir, id+".webm"), nil
		}),
		Transcoder: transcoderFunc(func(_ context.Context, _ config.Profile, _, _, _ string) (string, error) {
			return "", fmt.Errorf("%w: encoder crashed", transcode.ErrConversionFailed)
		}),
		Log: discardLogger(),
	}, cfg)

	excluded := search.NewExcludeSet()
	out, err := o.Acquire(context.Background(), item, testProfile(), 3, excluded)
	require.ErrorIs(t, err, ErrAttemptsExhausted)
	assert.ErrorIs(t, err, transcode.ErrConversionFailed)
	assert.Equal(t, 3, out.Attempts)
	assert.Equal(t, 3, excluded.Len())
	assert.ElementsMatch(t, []string{"cand1", "cand2", "cand3"}, excluded.IDs())

	// Raw downloads are removed even when conversion never produced output.
	entries, readErr := os.ReadDir(cfg.Scratch.Dir)
	require.NoError(t, readErr)
	assert.Empty(t, entries)
}

func TestAcquire_NoCandidateEndsSession(t *testing.T) {
	cfg := testConfig(t)
	item := testItem(t.TempDir())

	calls := 0
	o := New(Deps{
		Resolver: resolverFunc(func(_ context.Context, _ *media.Item, _ config.Profile, _ *search.ExcludeSet) (search.Candidate, error) {
			calls++
			return search.Candidate{}, search.ErrNoCandidate
		}),
		Log: discardLogger(),
	}, cfg)

	_, err := o.Acquire(context.Background(), item, testProfile(), 3, nil)
	require.ErrorIs(t, err, search.ErrNoCandidate)
	assert.Equal(t, 1, calls, "an empty search will not improve on retry")
}

func TestAcquire_StoredCandidateFallsBackToSearch(t *testing.T) {
	cfg := testConfig(t)
	item := testItem(t.TempDir())
	item.YouTubeID = "stored1"

	o := New(Deps{
		Resolver: resolverFunc(func(_ context.Context, it *media.Item, _ config.Profile, excluded *search.ExcludeSet) (search.Candidate, error) {
			if it.YouTubeID != "" && !excluded.Has(it.YouTubeID) {
				return search.Candidate{ID: it.YouTubeID, Stored: true}, nil
			}
			return search.Candidate{ID: "fresh2"}, nil
		}),
		Fetcher: fetcherFunc(func(_ context.Context, id string, _ config.Profile) (string, error) {
			if id == "stored1" {
				return "", fmt.Errorf("%w: video unavailable", fetch.ErrRestricted)
			}
			return writeScratch(t, cfg.Scratch.Dir, id+".webm"), nil
		}),
		Transcoder: transcoderFunc(func(_ context.Context, _ config.Profile, _, _, output string) (string, error) {
			return writeScratch(t, cfg.Scratch.Dir, filepath.Base(output)), nil
		}),
		Verifier: verifierFunc(func(_ context.Context, _ string, _ config.Profile) (bool, string) {
			return true, ""
		}),
		Placer: placerFunc(func(artifact string, it *media.Item, _ config.Profile) (place.Result, error) {
			return place.Result{FinalPath: filepath.Join(it.FolderPath, filepath.Base(artifact)), Placed: true}, nil
		}),
		Log: discardLogger(),
	}, cfg)

	excluded := search.NewExcludeSet()
	out, err := o.Acquire(context.Background(), item, testProfile(), 3, excluded)
	require.NoError(t, err)
	assert.Equal(t, "fresh2", out.CandidateID)
	assert.Equal(t, 2, out.Attempts)
	assert.True(t, excluded.Has("stored1"))
}

func TestAcquire_RejectsConcurrentSession(t *testing.T) {
	cfg := testConfig(t)
	item := testItem(t.TempDir())

	started := make(chan struct{})
	release := make(chan struct{})
	o := New(Deps{
		Resolver: resolverFunc(func(ctx context.Context, _ *media.Item, _ config.Profile, _ *search.ExcludeSet) (search.Candidate, error) {
			close(started)
			select {
			case <-release:
			case <-ctx.Done():
			}
			return search.Candidate{}, search.ErrNoCandidate
		}),
		Log: discardLogger(),
	}, cfg)

	done := make(chan error, 1)
	go func() {
		_, err := o.Acquire(context.Background(), item, testProfile(), 1, nil)
		done <- err
	}()

	<-started
	_, err := o.Acquire(context.Background(), item, testProfile(), 1, nil)
	require.ErrorIs(t, err, ErrSessionActive)

	close(release)
	require.ErrorIs(t, <-done, search.ErrNoCandidate)
	assert.Equal(t, 0, o.Sessions().Active())
}

func TestAcquire_ContextCancellationStopsRetries(t *testing.T) {
	cfg := testConfig(t)
	item := testItem(t.TempDir())

	ctx, cancel := context.WithCancel(context.Background())
	o := New(Deps{
		Resolver: resolverFunc(func(_ context.Context, _ *media.Item, _ config.Profile, _ *search.ExcludeSet) (search.Candidate, error) {
			return search.Candidate{ID: "abc"}, nil
		}),
		Fetcher: fetcherFunc(func(_ context.Context, _ string, _ config.Profile) (string, error) {
			cancel()
			return "", fmt.Errorf("%w: interrupted", fetch.ErrDownloadFailed)
		}),
		Log: discardLogger(),
	}, cfg)

	out, err := o.Acquire(ctx, item, testProfile(), 5, nil)
	require.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 1, out.Attempts)
}
