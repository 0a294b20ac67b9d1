package main

import (
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

// Config is the service configuration, loaded from an optional YAML file
// and OMNIBOT_* environment variables (env wins).
type Config struct {
	Listen   string `koanf:"listen"`
	LogLevel string `koanf:"log_level"`
	// Store is the sqlite DSN; empty keeps state in process memory.
	Store string `koanf:"store"`
	// Platform pins dispatch to one platform; empty means auto-detect.
	Platform string `koanf:"platform"`
	// Platforms holds per-platform credentials and options,
	// e.g. platforms.telegram.token.
	Platforms map[string]map[string]string `koanf:"platforms"`
}

func loadConfig(path string) (*Config, error) {

	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.WithMessage(err, "config: read file")
		}
	}

	// OMNIBOT_LOG_LEVEL=debug => log_level
	err := k.Load(env.Provider("OMNIBOT_", ".", func(s string) string {
		return strings.ToLower(
			strings.TrimPrefix(s, "OMNIBOT_"),
		)
	}), nil)
	if err != nil {
		return nil, errors.WithMessage(err, "config: read environment")
	}

	cfg := &Config{
		Listen:   ":8080",
		LogLevel: "info",
	}
	if err = k.Unmarshal("", cfg); err != nil {
		return nil, errors.WithMessage(err, "config: unmarshal")
	}
	return cfg, nil
}
