package probe

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/vmunix/trailgo/internal/config"
	"github.com/vmunix/trailgo/internal/execx"
)

// Verifier checks that a transcoded artifact is a usable trailer.
type Verifier struct {
	runner  execx.Runner
	ffprobe string
	epsilon time.Duration
	log     *slog.Logger
}

// NewVerifier creates a verifier. The duration epsilon widens the profile
// bounds on both ends; the default configuration keeps it at zero.
func NewVerifier(runner execx.Runner, cfg *config.Config, log *slog.Logger) *Verifier {
	return &Verifier{
		runner:  runner,
		ffprobe: cfg.Tools.FFprobe,
		epsilon: cfg.Search.DurationEpsilon,
		log:     log,
	}
}

// Verify fails closed: any inspection problem yields (false, reason), never
// an error. A false result is a normal retry trigger, not a system fault.
func (v *Verifier) Verify(ctx context.Context, artifact string, profile config.Profile) (bool, string) {
	if _, err := os.Stat(artifact); err != nil {
		return false, "artifact missing"
	}

	result, err := Inspect(ctx, v.runner, v.ffprobe, artifact)
	if err != nil {
		v.log.Warn("probe failed", "artifact", artifact, "error", err)
		return false, "probe failed"
	}

	if result.VideoStreamCount() == 0 {
		return false, "no video stream"
	}
	if result.AudioStreamCount() == 0 {
		return false, "no audio stream"
	}

	duration := result.Duration()
	min := profile.MinDuration - v.epsilon
	max := profile.MaxDuration + v.epsilon
	if duration < min || duration > max {
		return false, fmt.Sprintf("duration %s outside [%s, %s]", duration, min, max)
	}

	return true, ""
}
