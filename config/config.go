package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"portfolio/model"
)

// FileName is the config file looked up inside the data directory.
const FileName = "portfolio.yaml"

type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

type Config struct {
	DataDir        string        `yaml:"data_dir"`
	ListenAddr     string        `yaml:"listen_addr"`
	SiteDir        string        `yaml:"site_dir,omitempty"`
	APIBase        string        `yaml:"api_base"`
	ProbeInterval  time.Duration `yaml:"probe_interval"`
	AllowedOrigins []string      `yaml:"allowed_origins,omitempty"`
	ContactLog     string        `yaml:"contact_log"`
	AnalyticsDB    string        `yaml:"analytics_db"`
	DefaultTheme   model.ThemeID `yaml:"default_theme"`
	Log            LogConfig     `yaml:"log"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DataDir:       ".",
		ListenAddr:    ":5000",
		APIBase:       "http://localhost:5000/api",
		ProbeInterval: 30 * time.Second,
		AllowedOrigins: []string{
			"http://localhost:3000",
			"http://127.0.0.1:5500",
			"http://localhost:5500",
		},
		ContactLog:   "contacts.log",
		AnalyticsDB:  "analytics.db",
		DefaultTheme: model.ThemeDark,
		Log:          LogConfig{Level: "info"},
	}
}

// Load reads FileName from dataDir, filling unset fields from Default.
// A missing file yields the defaults.
func Load(dataDir string) (Config, error) {
	cfgPath := filepath.Join(dataDir, FileName)

	data, err := os.ReadFile(cfgPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := Default()
			cfg.DataDir = dataDir
			return cfg, nil
		}
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", cfgPath, err)
	}

	def := Default()
	if cfg.DataDir == "" {
		cfg.DataDir = dataDir
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = def.ListenAddr
	}
	if cfg.APIBase == "" {
		cfg.APIBase = def.APIBase
	}
	if cfg.ProbeInterval <= 0 {
		cfg.ProbeInterval = def.ProbeInterval
	}
	if cfg.ContactLog == "" {
		cfg.ContactLog = def.ContactLog
	}
	if cfg.AnalyticsDB == "" {
		cfg.AnalyticsDB = def.AnalyticsDB
	}
	if cfg.DefaultTheme == "" {
		cfg.DefaultTheme = def.DefaultTheme
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Log.Level
	}

	return cfg, nil
}

// Save writes cfg to FileName in cfg.DataDir.
func Save(cfg Config) error {
	cfgPath := filepath.Join(cfg.DataDir, FileName)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp := cfgPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		os.Remove(tmp)
		return err
	}

	return os.Rename(tmp, cfgPath)
}

// Resolve returns p unchanged when absolute, otherwise joined onto the data dir.
func (c Config) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.DataDir, p)
}
