// File: internal/config/config.go
package config

import (
	"fmt"
	"path/filepath"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config holds the entire application configuration. Fields are populated by
// Viper from (in precedence order) CLI flags, DESKOPS_* environment
// variables, the config file, and the defaults in SetDefaults.
type Config struct {
	Provider        string  `mapstructure:"provider" yaml:"provider"`
	Model           string  `mapstructure:"model" yaml:"model"`
	Temperature     float64 `mapstructure:"temperature" yaml:"temperature"`
	MaxOutputTokens int     `mapstructure:"max_output_tokens" yaml:"max_output_tokens"`
	DryRun          bool    `mapstructure:"dry_run" yaml:"dry_run"`
	RunsDir         string  `mapstructure:"runs_dir" yaml:"runs_dir"`

	Loop       LoopConfig       `mapstructure:"loop" yaml:"loop"`
	Screenshot ScreenshotConfig `mapstructure:"screenshot" yaml:"screenshot"`
	Overlay    OverlayConfig    `mapstructure:"overlay" yaml:"overlay"`
	Features   FeatureGates     `mapstructure:"features" yaml:"features"`
	Verify     VerifyConfig     `mapstructure:"verify" yaml:"verify"`
	Backend    BackendConfig    `mapstructure:"backend" yaml:"backend"`
	Journal    JournalConfig    `mapstructure:"journal" yaml:"journal"`
	Logging    LoggingConfig    `mapstructure:"logging" yaml:"logging"`
}

// LoopConfig bounds the step loop.
type LoopConfig struct {
	MaxSteps      int `mapstructure:"max_steps" yaml:"max_steps"`
	MinIntervalMS int `mapstructure:"min_interval_ms" yaml:"min_interval_ms"`
	// RecentWindow is how many trailing step summaries are replayed to the
	// model each iteration to bound prompt growth.
	RecentWindow int `mapstructure:"recent_window" yaml:"recent_window"`
}

// ScreenshotConfig controls the frame encoding sent to the model.
type ScreenshotConfig struct {
	Width   int `mapstructure:"width" yaml:"width"`
	Quality int `mapstructure:"quality" yaml:"quality"`
}

// OverlayConfig controls the transient on-screen click marker.
type OverlayConfig struct {
	Enabled    bool `mapstructure:"enabled" yaml:"enabled"`
	DurationMS int  `mapstructure:"duration_ms" yaml:"duration_ms"`
}

// FeatureGates open the optionally-gated actions.
type FeatureGates struct {
	OCR bool `mapstructure:"ocr" yaml:"ocr"`
	UIA bool `mapstructure:"uia" yaml:"uia"`
	// UIASnapshot is the path to an accessibility-snapshot XML file consulted
	// by the UIA actions. Empty means no snapshot backend is available.
	UIASnapshot string `mapstructure:"uia_snapshot" yaml:"uia_snapshot"`
}

// VerifyConfig tunes visual verification.
type VerifyConfig struct {
	Enabled  bool         `mapstructure:"enabled" yaml:"enabled"`
	SettleMS int          `mapstructure:"settle_ms" yaml:"settle_ms"`
	Region   RegionConfig `mapstructure:"region" yaml:"region"`
	// Thresholds maps a lowercase action name to the minimum pixel delta that
	// counts as a visible change for that action.
	Thresholds map[string]float64 `mapstructure:"thresholds" yaml:"thresholds"`
}

// RegionConfig is the size of the rectangle sampled around an action point.
type RegionConfig struct {
	Width  int `mapstructure:"width" yaml:"width"`
	Height int `mapstructure:"height" yaml:"height"`
}

// BackendConfig selects how actions reach a screen.
type BackendConfig struct {
	// Kind is one of "dryrun", "cdp", or "imagedir".
	Kind       string           `mapstructure:"kind" yaml:"kind"`
	CDP        CDPConfig        `mapstructure:"cdp" yaml:"cdp"`
	ImageDir   string           `mapstructure:"image_dir" yaml:"image_dir"`
	Trajectory TrajectoryConfig `mapstructure:"trajectory" yaml:"trajectory"`
}

// CDPConfig points the CDP backend at a running browser target.
type CDPConfig struct {
	// URL is a DevTools websocket or http endpoint. Empty launches a local
	// headless browser.
	URL      string       `mapstructure:"url" yaml:"url"`
	Viewport RegionConfig `mapstructure:"viewport" yaml:"viewport"`
}

// TrajectoryConfig tunes humanized pointer paths for the CDP backend.
type TrajectoryConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// FittsAMS and FittsBMS are the a/b coefficients (milliseconds) of the
	// Fitts's-law movement-time model.
	FittsAMS float64 `mapstructure:"fitts_a_ms" yaml:"fitts_a_ms"`
	FittsBMS float64 `mapstructure:"fitts_b_ms" yaml:"fitts_b_ms"`
	JitterPx float64 `mapstructure:"jitter_px" yaml:"jitter_px"`
}

// JournalConfig controls run-journal sinks beyond the local JSONL file.
type JournalConfig struct {
	Archive ArchiveConfig `mapstructure:"archive" yaml:"archive"`
}

// ArchiveConfig mirrors completed runs into Postgres.
type ArchiveConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	DSN     string `mapstructure:"dsn" yaml:"dsn"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string        `mapstructure:"level" yaml:"level"`
	Format string        `mapstructure:"format" yaml:"format"`
	File   LogFileConfig `mapstructure:"file" yaml:"file"`
}

// LogFileConfig configures the rotating file sink.
type LogFileConfig struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
	Path       string `mapstructure:"path" yaml:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// knownProviders are the model providers the factory can construct.
var knownProviders = map[string]struct{}{
	"openai":    {},
	"anthropic": {},
	"gemini":    {},
	"zhipu":     {},
}

// knownBackends are the executor/capture backends.
var knownBackends = map[string]struct{}{
	"dryrun":   {},
	"cdp":      {},
	"imagedir": {},
}

// NewDefaultConfig creates a configuration populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Cannot happen with static defaults.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Model --
	v.SetDefault("provider", "openai")
	v.SetDefault("model", "gpt-5.1-thinking")
	v.SetDefault("temperature", 0.2)
	v.SetDefault("max_output_tokens", 800)

	// -- Execution --
	v.SetDefault("dry_run", true)
	v.SetDefault("runs_dir", "runs")
	v.SetDefault("loop.max_steps", 50)
	v.SetDefault("loop.min_interval_ms", 300)
	v.SetDefault("loop.recent_window", 6)

	// -- Screenshot --
	v.SetDefault("screenshot.width", 1280)
	v.SetDefault("screenshot.quality", 70)

	// -- Overlay --
	v.SetDefault("overlay.enabled", false)
	v.SetDefault("overlay.duration_ms", 250)

	// -- Feature gates --
	v.SetDefault("features.ocr", false)
	v.SetDefault("features.uia", false)
	v.SetDefault("features.uia_snapshot", "")

	// -- Visual verification --
	v.SetDefault("verify.enabled", true)
	v.SetDefault("verify.settle_ms", 180)
	v.SetDefault("verify.region.width", 220)
	v.SetDefault("verify.region.height", 160)
	v.SetDefault("verify.thresholds.click", 0.002)
	v.SetDefault("verify.thresholds.double_click", 0.0025)
	v.SetDefault("verify.thresholds.right_click", 0.002)
	v.SetDefault("verify.thresholds.type", 0.001)
	v.SetDefault("verify.thresholds.scroll", 0.006)
	v.SetDefault("verify.thresholds.drag", 0.004)

	// -- Backend --
	v.SetDefault("backend.kind", "dryrun")
	v.SetDefault("backend.cdp.url", "")
	v.SetDefault("backend.cdp.viewport.width", 1280)
	v.SetDefault("backend.cdp.viewport.height", 720)
	v.SetDefault("backend.image_dir", "")
	v.SetDefault("backend.trajectory.enabled", true)
	v.SetDefault("backend.trajectory.fitts_a_ms", 120.0)
	v.SetDefault("backend.trajectory.fitts_b_ms", 110.0)
	v.SetDefault("backend.trajectory.jitter_px", 1.2)

	// -- Journal --
	v.SetDefault("journal.archive.enabled", false)
	v.SetDefault("journal.archive.dsn", "")

	// -- Logging --
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.file.enabled", false)
	v.SetDefault("logging.file.path", "logs/deskops.log")
	v.SetDefault("logging.file.max_size_mb", 100)
	v.SetDefault("logging.file.max_backups", 3)
	v.SetDefault("logging.file.max_age_days", 28)
	v.SetDefault("logging.file.compress", true)
}

// NewConfigFromViper unmarshals and validates the configuration held by v.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Bind environment variables for sensitive values.
	v.BindEnv("journal.archive.dsn", "DESKOPS_ARCHIVE_DSN")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if _, ok := knownProviders[c.Provider]; !ok {
		return fmt.Errorf("provider %q is not one of openai, anthropic, gemini, zhipu", c.Provider)
	}
	if _, ok := knownBackends[c.Backend.Kind]; !ok {
		return fmt.Errorf("backend.kind %q is not one of dryrun, cdp, imagedir", c.Backend.Kind)
	}
	if c.Backend.Kind == "imagedir" && c.Backend.ImageDir == "" {
		return fmt.Errorf("backend.image_dir is required when backend.kind is imagedir")
	}
	if c.Loop.MaxSteps <= 0 {
		return fmt.Errorf("loop.max_steps must be a positive integer")
	}
	if c.Loop.MinIntervalMS < 0 {
		return fmt.Errorf("loop.min_interval_ms must not be negative")
	}
	if c.Loop.RecentWindow <= 0 {
		return fmt.Errorf("loop.recent_window must be a positive integer")
	}
	if c.Screenshot.Width <= 0 {
		return fmt.Errorf("screenshot.width must be a positive integer")
	}
	if c.Screenshot.Quality < 1 || c.Screenshot.Quality > 100 {
		return fmt.Errorf("screenshot.quality must be within [1, 100]")
	}
	for name, th := range c.Verify.Thresholds {
		if th < 0 || th > 1 {
			return fmt.Errorf("verify.thresholds.%s must be within [0, 1]", name)
		}
	}
	if c.Journal.Archive.Enabled && c.Journal.Archive.DSN == "" {
		return fmt.Errorf("journal.archive.dsn is required when the archive is enabled (set DESKOPS_ARCHIVE_DSN)")
	}
	return nil
}

// DefaultConfigDir returns the per-user configuration directory
// (~/.deskops), used as a fallback config-file search path.
func DefaultConfigDir() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".deskops"), nil
}
