// Package config handles TOML configuration loading with environment variable substitution.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the root configuration structure.
type Config struct {
	Server      ServerConfig             `toml:"server"`
	Database    DatabaseConfig           `toml:"database"`
	Scratch     ScratchConfig            `toml:"scratch"`
	Tools       ToolsConfig              `toml:"tools"`
	HWAccel     HWAccelConfig            `toml:"hwaccel"`
	Search      SearchConfig             `toml:"search"`
	Workers     WorkersConfig            `toml:"workers"`
	Acquisition AcquisitionConfig        `toml:"acquisition"`
	Profiles    map[string]Profile       `toml:"profiles"`
}

type ServerConfig struct {
	LogLevel string `toml:"log_level"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

// ScratchConfig locates the shared scratch space for in-flight artifacts.
type ScratchConfig struct {
	Dir string `toml:"dir"`
}

// ToolsConfig names the external binaries the pipeline shells out to.
type ToolsConfig struct {
	YtDlp   string `toml:"ytdlp"`
	FFmpeg  string `toml:"ffmpeg"`
	FFprobe string `toml:"ffprobe"`
	Cookies string `toml:"cookies"` // optional cookies file passed to yt-dlp
}

// HWAccelConfig describes the hardware encoder advertised by the host.
type HWAccelConfig struct {
	Enabled bool   `toml:"enabled"`
	Encoder string `toml:"encoder"` // e.g. h264_nvenc, h264_vaapi
	Device  string `toml:"device"`  // vaapi render device, empty for nvenc
}

type SearchConfig struct {
	QueryTemplate   string        `toml:"query_template"`
	Limit           int           `toml:"limit"`
	DurationEpsilon time.Duration `toml:"duration_epsilon"`
	MinSimilarity   float64       `toml:"min_similarity"`
}

type WorkersConfig struct {
	Count          int           `toml:"count"`
	PollInterval   time.Duration `toml:"poll_interval"`
	FetchTimeout   time.Duration `toml:"fetch_timeout"`
	ConvertTimeout time.Duration `toml:"convert_timeout"`
	SearchTimeout  time.Duration `toml:"search_timeout"`
}

type AcquisitionConfig struct {
	DefaultProfile string `toml:"default_profile"`
	MaxAttempts    int    `toml:"max_attempts"`
}

// Profile is one download profile: the quality, format, and naming
// preferences governing a single acquisition.
type Profile struct {
	Container      string        `toml:"container"`
	VideoCodec     string        `toml:"video_codec"`
	AudioCodec     string        `toml:"audio_codec"`
	Resolution     int           `toml:"resolution"` // height ceiling in pixels
	MinDuration    time.Duration `toml:"min_duration"`
	MaxDuration    time.Duration `toml:"max_duration"`
	ExcludeWords   []string      `toml:"exclude_words"`
	Naming         string        `toml:"naming"`
	Subfolder      string        `toml:"subfolder"` // empty disables the subfolder
	NormalizeAudio bool          `toml:"normalize_audio"`
	EmbedSubs      bool          `toml:"embed_subs"`
	SubLangs       string        `toml:"sub_langs"`
	AlwaysSearch   bool          `toml:"always_search"`
	AllowHWAccel   *bool         `toml:"allow_hwaccel"` // nil means allowed
}

// HWAllowed reports whether this profile permits the hardware encoder.
func (p Profile) HWAllowed() bool {
	return p.AllowHWAccel == nil || *p.AllowHWAccel
}

// DefaultNaming is the naming template applied when a profile has none.
const DefaultNaming = "{title} ({year})-trailer.{ext}"

// Load reads, substitutes, parses, and validates the configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	content, missing := substituteEnvVars(string(data))

	var cfg Config
	if _, err := toml.Decode(content, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.applyDefaults()

	cerr := &ConfigError{Path: path, Missing: missing, Errors: cfg.Validate()}
	if cerr.HasErrors() {
		return nil, cerr
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Database.Path == "" {
		c.Database.Path = "./data/trailgo.db"
	}
	if c.Scratch.Dir == "" {
		c.Scratch.Dir = os.TempDir() + "/trailgo"
	}
	if c.Tools.YtDlp == "" {
		c.Tools.YtDlp = "yt-dlp"
	}
	if c.Tools.FFmpeg == "" {
		c.Tools.FFmpeg = "ffmpeg"
	}
	if c.Tools.FFprobe == "" {
		c.Tools.FFprobe = "ffprobe"
	}
	if c.Search.QueryTemplate == "" {
		c.Search.QueryTemplate = "{title} {year} trailer"
	}
	if c.Search.Limit == 0 {
		c.Search.Limit = 10
	}
	if c.Search.MinSimilarity == 0 {
		c.Search.MinSimilarity = 0.5
	}
	if c.Workers.Count == 0 {
		c.Workers.Count = 2
	}
	if c.Workers.PollInterval == 0 {
		c.Workers.PollInterval = 15 * time.Minute
	}
	if c.Workers.FetchTimeout == 0 {
		c.Workers.FetchTimeout = 10 * time.Minute
	}
	if c.Workers.ConvertTimeout == 0 {
		c.Workers.ConvertTimeout = 15 * time.Minute
	}
	if c.Workers.SearchTimeout == 0 {
		c.Workers.SearchTimeout = 2 * time.Minute
	}
	if c.Acquisition.DefaultProfile == "" {
		c.Acquisition.DefaultProfile = "default"
	}
	if c.Acquisition.MaxAttempts == 0 {
		c.Acquisition.MaxAttempts = 3
	}
	if c.Profiles == nil {
		c.Profiles = map[string]Profile{}
	}
	if _, ok := c.Profiles["default"]; !ok {
		c.Profiles["default"] = DefaultProfile()
	}
	for name, p := range c.Profiles {
		if p.Naming == "" {
			p.Naming = DefaultNaming
		}
		if p.Container == "" {
			p.Container = "mkv"
		}
		if p.VideoCodec == "" {
			p.VideoCodec = "libx264"
		}
		if p.AudioCodec == "" {
			p.AudioCodec = "aac"
		}
		if p.Resolution == 0 {
			p.Resolution = 1080
		}
		if p.MinDuration == 0 {
			p.MinDuration = 30 * time.Second
		}
		if p.MaxDuration == 0 {
			p.MaxDuration = 5 * time.Minute
		}
		c.Profiles[name] = p
	}
}

// DefaultProfile returns the built-in trailer profile.
func DefaultProfile() Profile {
	return Profile{
		Container:      "mkv",
		VideoCodec:     "libx264",
		AudioCodec:     "aac",
		Resolution:     1080,
		MinDuration:    30 * time.Second,
		MaxDuration:    5 * time.Minute,
		ExcludeWords:   []string{"compilation", "reaction", "review"},
		Naming:         DefaultNaming,
		NormalizeAudio: true,
	}
}

// Profile resolves a profile by name, falling back to the default profile.
func (c *Config) Profile(name string) (Profile, error) {
	if name == "" {
		name = c.Acquisition.DefaultProfile
	}
	p, ok := c.Profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("profile %q not defined", name)
	}
	return p, nil
}

// substituteEnvVars replaces ${VAR_NAME} with environment variable values
// and reports the names that could not be resolved.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

func substituteEnvVars(content string) (string, []string) {
	var missing []string
	out := envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		varName := match[2 : len(match)-1] // Strip ${ and }
		if value, ok := os.LookupEnv(varName); ok {
			return value
		}
		missing = append(missing, varName)
		return match
	})
	return out, missing
}
