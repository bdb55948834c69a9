// Package main - config.go
//
// Viper-backed configuration. Settings come from, in ascending priority:
// built-in defaults, $HOME/.gihelper/config.yaml (or an explicit path),
// and GIHELPER_* environment variables. The struct is built once at the
// composition root and passed to whoever needs it.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every tunable the helper reads at startup.
type Config struct {
	// Vision collaborator (OpenAI-compatible chat endpoint).
	APIKey     string        `mapstructure:"api_key"`
	APIBaseURL string        `mapstructure:"api_base_url"`
	Model      string        `mapstructure:"model"`
	APITimeout time.Duration `mapstructure:"api_timeout"`

	// Input backend: "native" (desktop client) or "browser" (cloud play).
	Backend    string `mapstructure:"backend"`
	BrowserURL string `mapstructure:"browser_url"`

	// Display index for native capture.
	Display int `mapstructure:"display"`

	// Timing.
	ActionDelay     time.Duration `mapstructure:"action_delay"`
	CaptureInterval time.Duration `mapstructure:"capture_interval"`
	StepDelay       time.Duration `mapstructure:"step_delay"`

	// Template library directory.
	TemplateDir string `mapstructure:"template_dir"`

	// Logging.
	Debug   bool   `mapstructure:"debug"`
	LogFile string `mapstructure:"log_file"`

	// Actuation disabled; perception and planning still run.
	DryRun bool `mapstructure:"dry_run"`
}

// configDir returns the helper's directory under the user's home,
// creating it if missing.
func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	dir := filepath.Join(home, ".gihelper")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}
	return dir, nil
}

// LoadConfig reads configuration from the given file, or from the default
// location when path is empty. A missing config file is not an error; the
// defaults and environment carry the day.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("api_key", "")
	v.SetDefault("api_base_url", "https://api.openai.com/v1")
	v.SetDefault("model", "gpt-4o-mini")
	v.SetDefault("api_timeout", 60*time.Second)
	v.SetDefault("backend", "native")
	v.SetDefault("browser_url", "https://ys.mihoyo.com/cloud/")
	v.SetDefault("display", 0)
	v.SetDefault("action_delay", 100*time.Millisecond)
	v.SetDefault("capture_interval", 500*time.Millisecond)
	v.SetDefault("step_delay", 500*time.Millisecond)
	v.SetDefault("debug", false)
	v.SetDefault("dry_run", false)

	dir, err := configDir()
	if err != nil {
		return nil, err
	}
	v.SetDefault("template_dir", filepath.Join(dir, "templates"))
	v.SetDefault("log_file", filepath.Join(dir, "gihelper.log"))

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(dir)
	}

	v.SetEnvPrefix("GIHELPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Backend != "native" && cfg.Backend != "browser" {
		return nil, fmt.Errorf("unknown backend %q (want native or browser)", cfg.Backend)
	}
	return &cfg, nil
}
