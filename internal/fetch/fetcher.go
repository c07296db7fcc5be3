package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/vmunix/trailgo/internal/config"
	"github.com/vmunix/trailgo/internal/execx"
)

// Fetcher retrieves raw trailer video into the scratch directory.
type Fetcher struct {
	runner     execx.Runner
	ytdlp      string
	cookies    string
	scratchDir string
	log        *slog.Logger
}

// NewFetcher creates a fetcher from the tool and scratch configuration.
func NewFetcher(runner execx.Runner, cfg *config.Config, log *slog.Logger) *Fetcher {
	return &Fetcher{
		runner:     runner,
		ytdlp:      cfg.Tools.YtDlp,
		cookies:    cfg.Tools.Cookies,
		scratchDir: cfg.Scratch.Dir,
		log:        log,
	}
}

// restrictedPatterns are diagnostics that mark a source as permanently
// unusable for this candidate.
var restrictedPatterns = []string{
	"sign in to confirm your age",
	"age-restricted",
	"not available in your country",
	"geo restriction",
	"private video",
	"video unavailable",
	"this video has been removed",
}

// Fetch downloads the candidate and returns the scratch artifact path.
// The output filename carries an extension placeholder that yt-dlp resolves
// once the container is known; Fetch globs for the resolved file.
// Every failure path removes whatever partial files were written.
func (f *Fetcher) Fetch(ctx context.Context, candidateID string, profile config.Profile) (string, error) {
	if err := os.MkdirAll(f.scratchDir, 0755); err != nil {
		return "", fmt.Errorf("create scratch dir: %w", err)
	}

	scratchID := uuid.NewString()
	template := filepath.Join(f.scratchDir, scratchID+".%(ext)s")
	args := f.buildArgs(candidateID, profile, template)

	f.log.Info("download started", "candidate", candidateID, "resolution", profile.Resolution)
	res, err := f.runner.Run(ctx, f.ytdlp, args...)
	if err != nil {
		f.cleanup(scratchID)
		return "", fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	if !res.Success() {
		f.cleanup(scratchID)
		return "", classify(res)
	}

	artifact, err := f.resolveArtifact(scratchID, profile.Container)
	if err != nil {
		f.cleanup(scratchID)
		return "", err
	}

	f.log.Info("download finished", "candidate", candidateID, "artifact", artifact)
	return artifact, nil
}

// buildArgs assembles the yt-dlp invocation. The format ceiling comes from
// the profile resolution; actual quality may be lower if unavailable.
func (f *Fetcher) buildArgs(candidateID string, profile config.Profile, template string) []string {
	format := fmt.Sprintf("bestvideo[height<=%d]+bestaudio/best[height<=%d]",
		profile.Resolution, profile.Resolution)

	args := []string{
		"--format", format,
		"--output", template,
		"--remux-video", profile.Container,
		"--no-playlist",
		"--no-progress",
		"--no-warnings",
		"--retries", "3",
		"--sleep-requests", "1",
	}
	if f.cookies != "" {
		args = append(args, "--cookies", f.cookies)
	}
	if profile.EmbedSubs {
		args = append(args, "--write-subs", "--sub-format", "srt", "--embed-subs")
		if profile.SubLangs != "" {
			args = append(args, "--sub-langs", profile.SubLangs)
		}
	}
	args = append(args, "--", candidateID)
	return args
}

// resolveArtifact finds the single file yt-dlp produced for this attempt,
// preferring the profile container's extension.
func (f *Fetcher) resolveArtifact(scratchID, container string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(f.scratchDir, scratchID+".*"))
	if err != nil {
		return "", fmt.Errorf("glob scratch: %w", err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("%w: no output file produced", ErrDownloadFailed)
	}
	for _, m := range matches {
		if strings.TrimPrefix(filepath.Ext(m), ".") == container {
			return m, nil
		}
	}
	return matches[0], nil
}

func (f *Fetcher) cleanup(scratchID string) {
	matches, _ := filepath.Glob(filepath.Join(f.scratchDir, scratchID+".*"))
	for _, m := range matches {
		if err := os.Remove(m); err != nil {
			f.log.Warn("scratch cleanup failed", "path", m, "error", err)
		}
	}
}

// classify turns tool diagnostics into the retryable/fatal error taxonomy.
func classify(res execx.Result) error {
	out := strings.ToLower(res.Output())

	if strings.Contains(out, "http error 429") || strings.Contains(out, "too many requests") {
		return fmt.Errorf("%w: exit %d", ErrTooManyRequests, res.ExitCode)
	}
	for _, p := range restrictedPatterns {
		if strings.Contains(out, p) {
			return fmt.Errorf("%w: %s", ErrRestricted, p)
		}
	}
	return fmt.Errorf("%w: exit %d: %s", ErrDownloadFailed, res.ExitCode, firstLine(res.Output()))
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
