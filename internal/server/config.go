// Package server provides configuration helpers that define runtime defaults,
// validation, and loading for the roomchat service.
package server

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the server configuration.
type Config struct {
	Port            string
	AllowedOrigins  []string
	MaxMessageSize  int64
	ShutdownTimeout time.Duration
	ReaperInterval  time.Duration
	StatsInterval   time.Duration
	LogLevel        string
	LogFormat       string
}

const (
	defaultPort            = ":8080"
	defaultMaxMessageSize  = 512
	defaultShutdownTimeout = 10 * time.Second
	defaultReaperInterval  = 30 * time.Second
	defaultStatsInterval   = 5 * time.Minute
	defaultLogLevel        = "info"
	defaultLogFormat       = "text"

	configName = "roomchat"
	envPrefix  = "ROOMCHAT"
)

func defaultConfig() Config {
	return Config{
		Port: defaultPort,
		AllowedOrigins: []string{
			"http://localhost:8080",
		},
		MaxMessageSize:  defaultMaxMessageSize,
		ShutdownTimeout: defaultShutdownTimeout,
		ReaperInterval:  defaultReaperInterval,
		StatsInterval:   defaultStatsInterval,
		LogLevel:        defaultLogLevel,
		LogFormat:       defaultLogFormat,
	}
}

// NewConfig creates a Config instance populated with default values for all settings.
func NewConfig() *Config {
	cfg := defaultConfig()
	return &cfg
}

// sanitizeConfig replaces unusable values with defaults and normalises the
// origin list.
func sanitizeConfig(cfg Config) Config {
	if cfg.Port == "" {
		cfg.Port = defaultPort
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = defaultMaxMessageSize
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	if cfg.ReaperInterval <= 0 {
		cfg.ReaperInterval = defaultReaperInterval
	}
	if cfg.StatsInterval <= 0 {
		cfg.StatsInterval = defaultStatsInterval
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaultLogLevel
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = defaultLogFormat
	}
	cfg.AllowedOrigins = append([]string(nil), cfg.AllowedOrigins...)
	return cfg
}

// LoadConfig reads configuration from defaults, an optional YAML file, and
// ROOMCHAT_* environment variables, in increasing order of precedence.
//
// With an empty path, ./roomchat.yaml is used if present. An explicit path
// that cannot be read is an error.
func LoadConfig(path string, logger *slog.Logger) (*Config, error) {
	v := viper.New()

	def := defaultConfig()
	v.SetDefault("server.port", def.Port)
	v.SetDefault("server.allowedOrigins", def.AllowedOrigins)
	v.SetDefault("server.maxMessageSize", def.MaxMessageSize)
	v.SetDefault("server.shutdownTimeout", def.ShutdownTimeout)
	v.SetDefault("reaper.interval", def.ReaperInterval)
	v.SetDefault("stats.interval", def.StatsInterval)
	v.SetDefault("log.level", def.LogLevel)
	v.SetDefault("log.format", def.LogFormat)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, err
		}
		logger.Debug("config file not found, using defaults and environment")
	} else {
		logger.Info("loaded config file", slog.String("path", v.ConfigFileUsed()))
	}

	cfg := Config{
		Port:            v.GetString("server.port"),
		AllowedOrigins:  parseOriginList(v.GetStringSlice("server.allowedOrigins")),
		MaxMessageSize:  v.GetInt64("server.maxMessageSize"),
		ShutdownTimeout: v.GetDuration("server.shutdownTimeout"),
		ReaperInterval:  v.GetDuration("reaper.interval"),
		StatsInterval:   v.GetDuration("stats.interval"),
		LogLevel:        v.GetString("log.level"),
		LogFormat:       v.GetString("log.format"),
	}
	cfg = sanitizeConfig(cfg)
	return &cfg, nil
}

// parseOriginList accepts both list values and comma-separated strings, as
// delivered by environment variables.
func parseOriginList(values []string) []string {
	var origins []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				origins = append(origins, part)
			}
		}
	}
	return origins
}
