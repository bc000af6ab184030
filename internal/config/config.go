package config

import (
	"encoding/json"
	"errors"
	"os"
	"time"
)

type Config struct {
	Listen          string        `json:"listen"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	BaseDir         string        `json:"base_dir"`
	Log             LogConfig     `json:"log"`
	Cache           CacheConfig   `json:"cache"`
}

type LogConfig struct {
	Level string `json:"level"`
}

type CacheConfig struct {
	Size int           `json:"size"`
	TTL  time.Duration `json:"ttl"`
}

func Default() Config {
	return Config{
		Listen:          ":8080",
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		BaseDir:         "",
		Log: LogConfig{
			Level: "info",
		},
		Cache: CacheConfig{
			Size: 1024,
			TTL:  5 * time.Minute,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, errors.New("config path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	if cfg.Listen == "" {
		cfg.Listen = ":8080"
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 5 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 30 * time.Second
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Cache.Size == 0 {
		cfg.Cache.Size = 1024
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = 5 * time.Minute
	}
	return cfg, nil
}
