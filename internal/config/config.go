// Package config loads hark settings from a TOML file and HARK_ environment
// variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/gregiteen/ai-devices/internal/settings"
)

// Config holds application configuration.
type Config struct {
	Remote   RemoteConfig  `mapstructure:"remote"`
	Features FeatureConfig `mapstructure:"features"`
	Audio    AudioConfig   `mapstructure:"audio"`
	Store    StoreConfig   `mapstructure:"store"`
	Log      LogConfig     `mapstructure:"log"`
	Metrics  MetricsConfig `mapstructure:"metrics"`
	UI       UIConfig      `mapstructure:"ui"`
}

// RemoteConfig selects the backend transport. An empty unix address means
// the default socket.
type RemoteConfig struct {
	Network  string        `mapstructure:"network"`
	Address  string        `mapstructure:"address"`
	Deadline time.Duration `mapstructure:"deadline"`
}

// FeatureConfig gates which toggles and displays are offered.
type FeatureConfig struct {
	TTSToggle        bool `mapstructure:"tts_toggle"`
	InternetToggle   bool `mapstructure:"internet_toggle"`
	PhotosToggle     bool `mapstructure:"photos_toggle"`
	LudicrousMode    bool `mapstructure:"ludicrous_mode"`
	ShowResponseTime bool `mapstructure:"show_response_time"`
}

// Available reports whether the named toggle is offered. Rabbit mode is
// always available.
func (f FeatureConfig) Available(name settings.Name) bool {
	switch name {
	case settings.TTS:
		return f.TTSToggle
	case settings.Internet:
		return f.InternetToggle
	case settings.Photos:
		return f.PhotosToggle
	case settings.Ludicrous:
		return f.LudicrousMode
	}
	return true
}

// AudioConfig names the external playback and speech commands.
type AudioConfig struct {
	Player  string `mapstructure:"player"`
	Speaker string `mapstructure:"speaker"`
}

// StoreConfig holds sqlite settings.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Path  string `mapstructure:"path"`
	Level string `mapstructure:"level"`
}

// MetricsConfig enables the Prometheus endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// UIConfig holds presentation settings.
type UIConfig struct {
	MinWidth int `mapstructure:"min_width"`
}

// StateDir returns the directory for the database and log file.
func StateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "hark")
	}
	return filepath.Join(os.Getenv("HOME"), ".local", "state", "hark")
}

// Path returns the config file location.
func Path() string {
	if p := os.Getenv("HARK_CONFIG"); p != "" {
		return p
	}
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		dir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(dir, "hark", "config.toml")
}

// Load reads configuration from file and env. Env var overrides use prefix HARK_.
func Load() (Config, error) {
	v := viper.New()

	// default values
	v.SetDefault("remote.network", "unix")
	v.SetDefault("remote.address", "")
	v.SetDefault("remote.deadline", "60s")
	v.SetDefault("features.tts_toggle", true)
	v.SetDefault("features.internet_toggle", true)
	v.SetDefault("features.photos_toggle", true)
	v.SetDefault("features.ludicrous_mode", true)
	v.SetDefault("features.show_response_time", true)
	v.SetDefault("audio.player", "ffplay -nodisp -autoexit -loglevel quiet")
	v.SetDefault("audio.speaker", "say")
	v.SetDefault("store.path", filepath.Join(StateDir(), "hark.sqlite"))
	v.SetDefault("log.path", filepath.Join(StateDir(), "hark.log"))
	v.SetDefault("log.level", "info")
	v.SetDefault("metrics.addr", "")
	v.SetDefault("ui.min_width", 40)

	v.SetConfigType("toml")
	v.SetConfigFile(Path())

	v.SetEnvPrefix("HARK")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// read config file if present
	if err := v.ReadInConfig(); err != nil {
		if _, statErr := os.Stat(Path()); statErr == nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

// Save writes the provided config to disk, creating the config directory if needed.
func Save(cfg Config) error {
	path := Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("remote.network", cfg.Remote.Network)
	v.Set("remote.address", cfg.Remote.Address)
	v.Set("remote.deadline", cfg.Remote.Deadline.String())
	v.Set("features.tts_toggle", cfg.Features.TTSToggle)
	v.Set("features.internet_toggle", cfg.Features.InternetToggle)
	v.Set("features.photos_toggle", cfg.Features.PhotosToggle)
	v.Set("features.ludicrous_mode", cfg.Features.LudicrousMode)
	v.Set("features.show_response_time", cfg.Features.ShowResponseTime)
	v.Set("audio.player", cfg.Audio.Player)
	v.Set("audio.speaker", cfg.Audio.Speaker)
	v.Set("store.path", cfg.Store.Path)
	v.Set("log.path", cfg.Log.Path)
	v.Set("log.level", cfg.Log.Level)
	v.Set("metrics.addr", cfg.Metrics.Addr)
	v.Set("ui.min_width", cfg.UI.MinWidth)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
