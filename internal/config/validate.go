package config

import (
	"fmt"
	"strings"
)

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true, "": true,
}

var validEncoders = map[string]bool{
	"h264_nvenc": true, "hevc_nvenc": true,
	"h264_vaapi": true, "hevc_vaapi": true,
	"h264_qsv": true, "hevc_qsv": true,
	"h264_videotoolbox": true,
}

// Validate checks the configuration for errors.
// Returns a slice of error messages (empty if valid).
func (c *Config) Validate() []string {
	var errs []string

	if !validLogLevels[c.Server.LogLevel] {
		errs = append(errs, fmt.Sprintf("server.log_level: must be one of debug, info, warn, error; got %q", c.Server.LogLevel))
	}

	if c.HWAccel.Enabled {
		if c.HWAccel.Encoder == "" {
			errs = append(errs, "hwaccel.encoder: required when hwaccel is enabled")
		} else if !validEncoders[c.HWAccel.Encoder] {
			errs = append(errs, fmt.Sprintf("hwaccel.encoder: unknown encoder %q", c.HWAccel.Encoder))
		}
		if strings.Contains(c.HWAccel.Encoder, "vaapi") && c.HWAccel.Device == "" {
			errs = append(errs, "hwaccel.device: required for vaapi encoders")
		}
	}

	if c.Search.Limit < 1 || c.Search.Limit > 50 {
		errs = append(errs, fmt.Sprintf("search.limit: must be between 1 and 50, got %d", c.Search.Limit))
	}
	if c.Search.DurationEpsilon < 0 {
		errs = append(errs, "search.duration_epsilon: must not be negative")
	}
	if c.Search.MinSimilarity < 0 || c.Search.MinSimilarity > 1 {
		errs = append(errs, fmt.Sprintf("search.min_similarity: must be between 0 and 1, got %g", c.Search.MinSimilarity))
	}

	if c.Workers.Count < 1 {
		errs = append(errs, fmt.Sprintf("workers.count: must be at least 1, got %d", c.Workers.Count))
	}

	if c.Acquisition.MaxAttempts < 1 {
		errs = append(errs, fmt.Sprintf("acquisition.max_attempts: must be at least 1, got %d", c.Acquisition.MaxAttempts))
	}
	if _, ok := c.Profiles[c.Acquisition.DefaultProfile]; !ok {
		errs = append(errs, fmt.Sprintf("acquisition.default_profile: profile %q not defined", c.Acquisition.DefaultProfile))
	}

	for name, p := range c.Profiles {
		if p.MinDuration < 0 || p.MaxDuration < 0 {
			errs = append(errs, fmt.Sprintf("profiles.%s: durations must not be negative", name))
		}
		if p.MaxDuration > 0 && p.MinDuration > p.MaxDuration {
			errs = append(errs, fmt.Sprintf("profiles.%s: min_duration %s exceeds max_duration %s", name, p.MinDuration, p.MaxDuration))
		}
		if p.Resolution < 0 {
			errs = append(errs, fmt.Sprintf("profiles.%s.resolution: must not be negative", name))
		}
	}

	return errs
}
