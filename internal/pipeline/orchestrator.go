package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/vmunix/trailgo/internal/config"
	"github.com/vmunix/trailgo/internal/events"
	"github.com/vmunix/trailgo/internal/fetch"
	"github.com/vmunix/trailgo/internal/media"
	"github.com/vmunix/trailgo/internal/place"
	"github.com/vmunix/trailgo/internal/search"
)

// Resolver picks the next viable candidate for an item.
type Resolver interface {
	Resolve(ctx context.Context, item *media.Item, profile config.Profile, excluded *search.ExcludeSet) (search.Candidate, error)
}

// Fetcher downloads a candidate into scratch space and returns the raw path.
type Fetcher interface {
	Fetch(ctx context.Context, candidateID string, profile config.Profile) (string, error)
}

// Transcoder converts a raw download into the profile's target format.
type Transcoder interface {
	Convert(ctx context.Context, profile config.Profile, title, input, output string) (string, error)
}

// Verifier inspects a converted artifact and reports whether it is usable.
// The reason string explains a false result.
type Verifier interface {
	Verify(ctx context.Context, artifact string, profile config.Profile) (bool, string)
}

// Placer moves a verified artifact into the item's media folder.
type Placer interface {
	Place(artifact string, item *media.Item, profile config.Profile) (place.Result, error)
}

// StatusReporter persists lifecycle status transitions for an item.
type StatusReporter interface {
	SetStatus(id int64, status media.Status, trailerExists bool, downloadedAt *time.Time) error
}

// SourceRecorder remembers which candidate produced the placed trailer so a
// later re-acquisition can reuse it.
type SourceRecorder interface {
	SetYouTubeID(id int64, youtubeID string) error
}

// Outcome summarizes a finished acquisition session.
type Outcome struct {
	Placed      bool
	FinalPath   string
	CandidateID string
	Attempts    int
}

// Deps bundles the pipeline stages and bookkeeping sinks the Orchestrator
// drives. Bus and Sources may be nil.
type Deps struct {
	Resolver   Resolver
	Fetcher    Fetcher
	Transcoder Transcoder
	Verifier   Verifier
	Placer     Placer
	Status     StatusReporter
	Sources    SourceRecorder
	Bus        *events.Bus
	Log        *slog.Logger
}

// Orchestrator runs one acquisition session per call to Acquire: a bounded
// retry loop over resolve, fetch, transcode, verify, place. Failed candidates
// are excluded for the remainder of the session so retries never revisit them.
type Orchestrator struct {
	deps     Deps
	sessions *Sessions

	scratchDir     string
	maxAttempts    int
	searchTimeout  time.Duration
	fetchTimeout   time.Duration
	convertTimeout time.Duration

	log *slog.Logger
}

func New(deps Deps, cfg *config.Config) *Orchestrator {
	log := deps.Log
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		deps:           deps,
		sessions:       NewSessions(),
		scratchDir:     cfg.Scratch.Dir,
		maxAttempts:    cfg.Acquisition.MaxAttempts,
		searchTimeout:  cfg.Workers.SearchTimeout,
		fetchTimeout:   cfg.Workers.FetchTimeout,
		convertTimeout: cfg.Workers.ConvertTimeout,
		log:            log.With("component", "pipeline"),
	}
}

// Sessions exposes the in-flight registry, mainly for status endpoints.
func (o *Orchestrator) Sessions() *Sessions {
	return o.sessions
}

// Acquire runs a full acquisition session for one item. maxAttempts <= 0
// falls back to the configured default. excluded may carry exclusions from a
// previous session; nil starts fresh. At most one session per item runs at a
// time; a second concurrent call returns ErrSessionActive.
func (o *Orchestrator) Acquire(ctx context.Context, item *media.Item, profile config.Profile, maxAttempts int, excluded *search.ExcludeSet) (Outcome, error) {
	if !o.sessions.TryAcquire(item.ID) {
		return Outcome{}, fmt.Errorf("%w: media %d", ErrSessionActive, item.ID)
	}
	defer o.sessions.Release(item.ID)

	if maxAttempts <= 0 {
		maxAttempts = o.maxAttempts
	}
	if excluded == nil {
		excluded = search.NewExcludeSet()
	}

	log := o.log.With("media_id", item.ID, "title", item.Title)
	log.Info("acquisition started", "profile", item.Profile, "max_attempts", maxAttempts)

	o.report(item, media.StatusDownloading, item.TrailerExists, nil)
	o.publish(ctx, &events.AcquisitionStarted{
		BaseEvent: events.NewBaseEvent(events.EventAcquisitionStarted, item.ID),
		Title:     item.Title,
		Profile:   item.Profile,
	})

	var lastErr error
	attempts := 0
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		attempts = attempt
		out, err := o.attempt(ctx, item, profile, excluded, attempt)
		if err == nil {
			out.Attempts = attempt
			o.succeed(ctx, item, out, log)
			return out, nil
		}
		lastErr = err
		if terminal(err) {
			log.Warn("acquisition aborted", "attempt", attempt, "error", err)
			break
		}
		if ctx.Err() != nil {
			lastErr = ctx.Err()
			break
		}
		log.Warn("attempt failed", "attempt", attempt, "error", err)
	}

	o.report(item, media.StatusMissing, item.TrailerExists, nil)
	o.publish(ctx, &events.AcquisitionFailed{
		BaseEvent: events.NewBaseEvent(events.EventAcquisitionFailed, item.ID),
		Reason:    lastErr.Error(),
		Attempts:  attempts,
	})
	log.Warn("acquisition failed", "attempts", attempts, "excluded", excluded.Len(), "error", lastErr)

	if terminal(lastErr) || errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, context.DeadlineExceeded) {
		return Outcome{Attempts: attempts}, lastErr
	}
	return Outcome{Attempts: attempts}, fmt.Errorf("%w after %d attempts: %w", ErrAttemptsExhausted, attempts, lastErr)
}

// attempt runs one pass through the stages. A nil error means the artifact
// was placed. Retryable candidate failures are recorded in excluded before
// returning; terminal errors are left for the caller to classify.
func (o *Orchestrator) attempt(ctx context.Context, item *media.Item, profile config.Profile, excluded *search.ExcludeSet, attempt int) (Outcome, error) {
	resolveCtx, cancel := o.stageContext(ctx, o.searchTimeout)
	cand, err := o.deps.Resolver.Resolve(resolveCtx, item, profile, excluded)
	cancel()
	if err != nil {
		// Nothing to exclude: no candidate was chosen.
		return Outcome{}, err
	}

	fetchCtx, cancel := o.stageContext(ctx, o.fetchTimeout)
	raw, err := o.deps.Fetcher.Fetch(fetchCtx, cand.ID, profile)
	cancel()
	if err != nil {
		if errors.Is(err, fetch.ErrTooManyRequests) {
			return Outcome{}, err
		}
		o.reject(ctx, item, excluded, cand.ID, attempt, err.Error())
		return Outcome{}, err
	}
	defer os.Remove(raw)

	output := filepath.Join(o.scratchDir, fmt.Sprintf("%d-%s.%s", item.ID, cand.ID, profile.Container))
	title := trailerTitle(item)
	convertCtx, cancel := o.stageContext(ctx, o.convertTimeout)
	converted, err := o.deps.Transcoder.Convert(convertCtx, profile, title, raw, output)
	cancel()
	if err != nil {
		o.reject(ctx, item, excluded, cand.ID, attempt, err.Error())
		return Outcome{}, err
	}

	ok, reason := o.deps.Verifier.Verify(ctx, converted, profile)
	if !ok {
		os.Remove(converted)
		o.reject(ctx, item, excluded, cand.ID, attempt, reason)
		return Outcome{}, fmt.Errorf("verification failed: %s", reason)
	}

	res, err := o.deps.Placer.Place(converted, item, profile)
	if err != nil {
		os.Remove(converted)
		if !errors.Is(err, place.ErrFolderNotFound) {
			o.reject(ctx, item, excluded, cand.ID, attempt, err.Error())
		}
		return Outcome{}, err
	}
	return Outcome{Placed: true, FinalPath: res.FinalPath, CandidateID: cand.ID}, nil
}

func (o *Orchestrator) succeed(ctx context.Context, item *media.Item, out Outcome, log *slog.Logger) {
	now := time.Now()
	o.report(item, media.StatusDownloaded, true, &now)
	if o.deps.Sources != nil {
		if err := o.deps.Sources.SetYouTubeID(item.ID, out.CandidateID); err != nil {
			log.Warn("failed to record trailer source", "error", err)
		}
	}
	o.publish(ctx, &events.TrailerDownloaded{
		BaseEvent:   events.NewBaseEvent(events.EventTrailerDownloaded, item.ID),
		CandidateID: out.CandidateID,
		FinalPath:   out.FinalPath,
		Attempts:    out.Attempts,
	})
	log.Info("trailer placed", "path", out.FinalPath, "candidate", out.CandidateID, "attempts", out.Attempts)
}

// reject excludes a candidate for the rest of the session and publishes the
// rejection so subscribers can surface it.
func (o *Orchestrator) reject(ctx context.Context, item *media.Item, excluded *search.ExcludeSet, candidateID string, attempt int, reason string) {
	excluded.Add(candidateID, reason)
	o.publish(ctx, &events.CandidateRejected{
		BaseEvent:   events.NewBaseEvent(events.EventCandidateRejected, item.ID),
		CandidateID: candidateID,
		Reason:      reason,
		Attempt:     attempt,
	})
}

func (o *Orchestrator) report(item *media.Item, status media.Status, trailerExists bool, downloadedAt *time.Time) {
	if o.deps.Status == nil {
		return
	}
	if err := o.deps.Status.SetStatus(item.ID, status, trailerExists, downloadedAt); err != nil {
		o.log.Warn("status update failed", "media_id", item.ID, "status", status, "error", err)
	}
}

func (o *Orchestrator) publish(ctx context.Context, e events.Event) {
	if o.deps.Bus == nil {
		return
	}
	if err := o.deps.Bus.Publish(ctx, e); err != nil {
		o.log.Warn("event publish failed", "type", e.EventType(), "error", err)
	}
}

func (o *Orchestrator) stageContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// terminal reports whether err ends the session regardless of remaining
// attempts: the library folder is gone, the source is rate limiting us, or
// a fresh search found nothing viable.
func terminal(err error) bool {
	return errors.Is(err, place.ErrFolderNotFound) ||
		errors.Is(err, fetch.ErrTooManyRequests) ||
		errors.Is(err, search.ErrNoCandidate)
}

func trailerTitle(item *media.Item) string {
	if item.Year > 0 {
		return fmt.Sprintf("%s (%d) Trailer", item.Title, item.Year)
	}
	return item.Title + " Trailer"
}
