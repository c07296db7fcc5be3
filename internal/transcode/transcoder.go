package transcode

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/vmunix/trailgo/internal/config"
	"github.com/vmunix/trailgo/internal/execx"
)

// Transcoder drives ffmpeg conversions with a hardware attempt and a
// guaranteed software fallback.
type Transcoder struct {
	runner execx.Runner
	ffmpeg string
	hw     config.HWAccelConfig
	log    *slog.Logger
}

// NewTranscoder creates a transcoder from the tool and hardware configuration.
func NewTranscoder(runner execx.Runner, cfg *config.Config, log *slog.Logger) *Transcoder {
	return &Transcoder{
		runner: runner,
		ffmpeg: cfg.Tools.FFmpeg,
		hw:     cfg.HWAccel,
		log:    log,
	}
}

// Convert transcodes input into output per the profile. When the host
// advertises a hardware encoder and the profile permits it, that path runs
// first; any first-attempt failure falls back to software, unconditionally.
// The losing attempt's output never survives.
func (t *Transcoder) Convert(ctx context.Context, profile config.Profile, title, input, output string) (string, error) {
	if t.hw.Enabled && profile.HWAllowed() {
		args := t.buildArgs(profile, title, input, output, true)
		res, err := t.runner.Run(ctx, t.ffmpeg, args...)
		if err != nil {
			return "", fmt.Errorf("hardware convert: %w", err)
		}
		if res.Success() {
			t.log.Info("conversion finished", "encoder", t.hw.Encoder, "output", output)
			return output, nil
		}

		t.log.Warn("hardware conversion failed, falling back to software",
			"encoder", t.hw.Encoder, "exit_code", res.ExitCode, "detail", firstLine(res.Output()))
		removeIfPresent(output, t.log)
	}

	args := t.buildArgs(profile, title, input, output, false)
	res, err := t.runner.Run(ctx, t.ffmpeg, args...)
	if err != nil {
		return "", fmt.Errorf("software convert: %w", err)
	}
	if !res.Success() {
		removeIfPresent(output, t.log)
		return "", fmt.Errorf("%w: exit %d: %s", ErrConversionFailed, res.ExitCode, firstLine(res.Output()))
	}

	t.log.Info("conversion finished", "encoder", profile.VideoCodec, "output", output)
	return output, nil
}

// buildArgs assembles the ffmpeg invocation for one attempt.
func (t *Transcoder) buildArgs(profile config.Profile, title, input, output string, hardware bool) []string {
	args := []string{"-y", "-hide_banner", "-loglevel", "error"}

	vaapi := hardware && strings.Contains(t.hw.Encoder, "vaapi")
	if hardware {
		if vaapi {
			args = append(args, "-vaapi_device", t.hw.Device,
				"-hwaccel", "vaapi", "-hwaccel_output_format", "vaapi")
		} else {
			args = append(args, "-hwaccel", "auto")
		}
	}

	args = append(args, "-i", input)

	if hardware {
		args = append(args, "-c:v", t.hw.Encoder)
	} else {
		args = append(args, "-c:v", profile.VideoCodec)
	}

	if profile.Resolution > 0 {
		if vaapi {
			args = append(args, "-vf", fmt.Sprintf("scale_vaapi=w=-2:h=%d", profile.Resolution))
		} else {
			// \, keeps the comma inside min() from splitting the filter chain
			args = append(args, "-vf", fmt.Sprintf("scale=-2:min(%d\\,ih)", profile.Resolution))
		}
	}

	args = append(args, "-c:a", profile.AudioCodec)
	if profile.NormalizeAudio {
		args = append(args, "-af", "loudnorm=I=-16:TP=-1.5:LRA=11")
	}

	if profile.EmbedSubs {
		args = append(args, "-c:s", "copy")
	} else {
		args = append(args, "-sn")
	}

	if title != "" {
		args = append(args, "-metadata", "title="+title)
	}

	args = append(args, output)
	return args
}

func removeIfPresent(path string, log *slog.Logger) {
	if _, err := os.Stat(path); err != nil {
		return
	}
	if err := os.Remove(path); err != nil {
		log.Warn("failed to remove conversion output", "path", path, "error", err)
	}
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
