package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/viper"

	"github.com/modfetch/modfetch/internal/domain"
)

// Config holds all application configuration
type Config struct {
	Target   TargetConfig   `mapstructure:"target"`
	Registry RegistryConfig `mapstructure:"registry"`
	Paths    PathsConfig    `mapstructure:"paths"`
	Fetch    FetchConfig    `mapstructure:"fetch"`
	Validate ValidateConfig `mapstructure:"validate"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// TargetConfig holds the platform target all resolution is filtered by
type TargetConfig struct {
	GameVersion   string `mapstructure:"game_version"`
	Loader        string `mapstructure:"loader"`
	LoaderVersion string `mapstructure:"loader_version"`
}

// RegistryConfig holds mod registry selection and credentials
type RegistryConfig struct {
	Source        string `mapstructure:"source"` // "modrinth" or "curseforge"
	ModrinthURL   string `mapstructure:"modrinth_url"`
	ModrinthToken string `mapstructure:"modrinth_token"`
	CurseforgeURL string `mapstructure:"curseforge_url"`
	CurseforgeKey string `mapstructure:"curseforge_key"`
}

// PathsConfig holds the directory layout
type PathsConfig struct {
	CacheDir  string `mapstructure:"cache_dir"`
	ServerDir string `mapstructure:"server_dir"`
	ClientDir string `mapstructure:"client_dir"`
}

// FetchConfig holds retry and concurrency settings
type FetchConfig struct {
	MaxAttempts    int           `mapstructure:"max_attempts"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	Timeout        time.Duration `mapstructure:"timeout"`
	Concurrency    int           `mapstructure:"concurrency"`
}

// ValidateConfig holds categorization validation settings
type ValidateConfig struct {
	// IncompatiblePatterns flags filenames containing any of these substrings.
	// Empty means use the built-in defaults.
	IncompatiblePatterns []string `mapstructure:"incompatible_patterns"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// DefaultIncompatiblePatterns are filename substrings known to break a server
// when a client-side mod ends up in its mods directory.
var DefaultIncompatiblePatterns = []string{
	"iris", "sodium", "sodium-extra", "reeses-sodium",
	"lambdynamiclights", "dynamic-lights", "Zoomify", "zoom",
	"BetterF3", "f3teverywhere", "morechathistory", "chat_heads", "chat-heads",
	"skinlayers", "notenoughanimations", "capes",
	"entity_model_features", "entity_texture_features",
	"xaerominimap", "Xaeros", "modelfix", "Gamma-Utils",
	"visible-entities", "flashside", "tweakermore", "Axiom", "axiom",
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Target: TargetConfig{
			GameVersion: "1.21.5",
			Loader:      "fabric",
		},
		Registry: RegistryConfig{
			Source:        "modrinth",
			ModrinthURL:   "https://api.modrinth.com/v2",
			CurseforgeURL: "https://api.curseforge.com",
		},
		Paths: PathsConfig{
			CacheDir:  defaultCachePath(),
			ServerDir: filepath.Join("server", "mods"),
			ClientDir: filepath.Join("client_pack", "mods"),
		},
		Fetch: FetchConfig{
			MaxAttempts:    3,
			InitialBackoff: 500 * time.Millisecond,
			Timeout:        30 * time.Second,
			Concurrency:    1,
		},
		Logging: LoggingConfig{
			File:  defaultLogPath(),
			Level: "INFO",
		},
	}
}

// PlatformTarget converts the config target to the domain type.
func (c *Config) PlatformTarget() domain.Target {
	return domain.Target{
		GameVersion:   c.Target.GameVersion,
		Loader:        c.Target.Loader,
		LoaderVersion: c.Target.LoaderVersion,
	}
}

// IncompatibilityPatterns returns the configured pattern list or the defaults.
func (c *Config) IncompatibilityPatterns() []string {
	if len(c.Validate.IncompatiblePatterns) > 0 {
		return c.Validate.IncompatiblePatterns
	}
	return DefaultIncompatiblePatterns
}

// defaultLogPath returns the default log file path for the current OS
func defaultLogPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "modfetch", "modfetch.log")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "modfetch", "modfetch.log")
	}
}

// defaultCachePath returns the default cache directory for the current OS
func defaultCachePath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "modfetch", "cache")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "modfetch", "cache")
	}
}

// defaultConfigPath returns the default config directory for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "modfetch")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "modfetch")
	}
}

// Load loads configuration from file and environment. An explicit path wins
// over the search path; a missing config file is fine, defaults apply.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(defaultConfigPath())
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("MODFETCH")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the default config file
func Save(cfg *Config) error {
	configPath := defaultConfigPath()
	if err := os.MkdirAll(configPath, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.Set("target.game_version", cfg.Target.GameVersion)
	v.Set("target.loader", cfg.Target.Loader)
	v.Set("target.loader_version", cfg.Target.LoaderVersion)
	v.Set("registry.source", cfg.Registry.Source)
	v.Set("registry.modrinth_url", cfg.Registry.ModrinthURL)
	v.Set("registry.modrinth_token", cfg.Registry.ModrinthToken)
	v.Set("registry.curseforge_url", cfg.Registry.CurseforgeURL)
	v.Set("registry.curseforge_key", cfg.Registry.CurseforgeKey)
	v.Set("paths.cache_dir", cfg.Paths.CacheDir)
	v.Set("paths.server_dir", cfg.Paths.ServerDir)
	v.Set("paths.client_dir", cfg.Paths.ClientDir)
	v.Set("fetch.max_attempts", cfg.Fetch.MaxAttempts)
	v.Set("fetch.initial_backoff", cfg.Fetch.InitialBackoff)
	v.Set("fetch.timeout", cfg.Fetch.Timeout)
	v.Set("fetch.concurrency", cfg.Fetch.Concurrency)
	v.Set("validate.incompatible_patterns", cfg.Validate.IncompatiblePatterns)
	v.Set("logging.file", cfg.Logging.File)
	v.Set("logging.level", cfg.Logging.Level)

	configFile := filepath.Join(configPath, "config.yaml")
	if err := v.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
