// Package config loads the agent configuration from a file with optional
// environment overrides.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/ylztf/LWI/core/lb"
	"github.com/ylztf/LWI/infra/mqtt"
	"github.com/ylztf/LWI/infra/sim"
)

type Config struct {
	Agent   lb.Config          `json:"agent"`
	MQTT    mqtt.Config        `json:"mqtt"`
	Devices []sim.DeviceConfig `json:"devices"`
	Metrics MetricsConfig      `json:"metrics"`
	Logging LoggingConfig      `json:"logging"`
	Sentry  SentryConfig       `json:"sentry"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("LWI_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "lwi_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.Agent.SetDefaults()
	cfg.Metrics.SetDefaults()
	cfg.Logging.SetDefaults()
	if err := cfg.Agent.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Logging.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
