// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config binds evidence-engine settings from viper and builds the
// process logger.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// EnvPrefix prefixes environment overrides, e.g. EVIDENCE_ENGINE_RETRIEVAL_TOP_K.
const EnvPrefix = "EVIDENCE_ENGINE"

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("retrieval.top_k", 8)
	v.SetDefault("retrieval.section_budget", 800)
	v.SetDefault("retrieval.study_budget", 700)
	v.SetDefault("retrieval.history_window", 10)

	v.SetDefault("providers.anthropic.model", "claude-sonnet-4-5")
	v.SetDefault("providers.anthropic.max_tokens", 4096)
	v.SetDefault("providers.anthropic.base_url", "")
	v.SetDefault("providers.openai.model", "gpt-4o")
	v.SetDefault("providers.openai.max_tokens", 1024)
	v.SetDefault("providers.openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("providers.timeout", 60*time.Second)

	v.SetDefault("corpus.dir", "")
	v.SetDefault("corpus.index_dir", "index")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
}

// Load applies defaults and environment overrides to v and decodes the
// result. v may already hold a config file; a missing file is not an error.
func Load(v *viper.Viper) (types.AssistantConfig, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg types.AssistantConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return types.AssistantConfig{}, eris.Wrap(err, "config: unmarshal")
	}
	if err := Validate(cfg); err != nil {
		return types.AssistantConfig{}, err
	}
	return cfg, nil
}

// Validate rejects settings the pipeline cannot run with.
func Validate(cfg types.AssistantConfig) error {
	r := cfg.Retrieval
	switch {
	case r.TopK < 0:
		return eris.Errorf("config: retrieval.top_k must not be negative, got %d", r.TopK)
	case r.SectionBudget < 0:
		return eris.Errorf("config: retrieval.section_budget must not be negative, got %d", r.SectionBudget)
	case r.StudyBudget < 0:
		return eris.Errorf("config: retrieval.study_budget must not be negative, got %d", r.StudyBudget)
	case r.HistoryWindow < 0:
		return eris.Errorf("config: retrieval.history_window must not be negative, got %d", r.HistoryWindow)
	case cfg.Providers.Timeout < 0:
		return eris.Errorf("config: providers.timeout must not be negative, got %s", cfg.Providers.Timeout)
	case cfg.Server.Port < 0 || cfg.Server.Port > 65535:
		return eris.Errorf("config: server.port out of range: %d", cfg.Server.Port)
	}
	return nil
}

// InitLogger builds a zap logger from cfg and installs it as the global
// logger. "console" selects the development encoder; anything else is JSON.
func InitLogger(cfg types.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)
	zapCfg.OutputPaths = []string{"stderr"}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return logger, nil
}
