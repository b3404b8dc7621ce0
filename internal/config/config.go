// Package config provides process configuration management using Viper.
// It supports loading from environment variables, config files, and defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all process configuration.
type Config struct {
	Server Server
	Flow   Flow
	Engine Engine
	HTTP   HTTP
	Log    Log
}

// Server holds the operational HTTP endpoint settings (health, metrics,
// admin).
type Server struct {
	Host        string
	Port        int
	Environment string
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Flow holds the paths of the JSON configuration documents.
type Flow struct {
	// ConfigPath is the flow definition (nodes, edges, general settings).
	ConfigPath string
	// CatalogPath is the HTTP API catalog.
	CatalogPath string
	// AgentsPath and RecordingsPath are optional.
	AgentsPath     string
	RecordingsPath string
}

// Engine holds flow-driver tunables.
type Engine struct {
	LoopLimit             int
	RecordingDir          string
	DigitAudioDir         string
	QueueName             string
	EvaluationDestination string
	StabilizationPause    time.Duration
	SilenceThreshold      int
	SilenceSeconds        int
}

// HTTP holds outbound HTTP invoker settings.
type HTTP struct {
	Timeout            time.Duration
	InsecureSkipVerify bool
	MaxResponseBytes   int64
}

// Log holds logging settings.
type Log struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables and config files.
// Environment variables (IVRFLOW_*) take precedence over file values.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/ivrflow")

	v.SetEnvPrefix("ivrflow")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{
		Server: Server{
			Host:        v.GetString("server.host"),
			Port:        v.GetInt("server.port"),
			Environment: v.GetString("server.env"),
		},
		Flow: Flow{
			ConfigPath:     v.GetString("flow.config_path"),
			CatalogPath:    v.GetString("flow.catalog_path"),
			AgentsPath:     v.GetString("flow.agents_path"),
			RecordingsPath: v.GetString("flow.recordings_path"),
		},
		Engine: Engine{
			LoopLimit:             v.GetInt("engine.loop_limit"),
			RecordingDir:          v.GetString("engine.recording_dir"),
			DigitAudioDir:         v.GetString("engine.digit_audio_dir"),
			QueueName:             v.GetString("engine.queue_name"),
			EvaluationDestination: v.GetString("engine.evaluation_destination"),
			StabilizationPause:    v.GetDuration("engine.stabilization_pause"),
			SilenceThreshold:      v.GetInt("engine.silence_threshold"),
			SilenceSeconds:        v.GetInt("engine.silence_seconds"),
		},
		HTTP: HTTP{
			Timeout:            v.GetDuration("http.timeout"),
			InsecureSkipVerify: v.GetBool("http.insecure_skip_verify"),
			MaxResponseBytes:   v.GetInt64("http.max_response_bytes"),
		},
		Log: Log{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults configures default values for all settings.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.env", "development")

	v.SetDefault("flow.config_path", "ivrconfig.json")
	v.SetDefault("flow.catalog_path", "automax_webAPIConfig.json")
	v.SetDefault("flow.agents_path", "")
	v.SetDefault("flow.recordings_path", "")

	v.SetDefault("engine.loop_limit", 500)
	v.SetDefault("engine.recording_dir", "/var/lib/ivrflow/recordings")
	v.SetDefault("engine.digit_audio_dir", "/usr/share/ivrflow/digits")
	v.SetDefault("engine.queue_name", "support")
	v.SetDefault("engine.evaluation_destination", "ivr_evaluation")
	v.SetDefault("engine.stabilization_pause", "2s")
	v.SetDefault("engine.silence_threshold", 200)
	v.SetDefault("engine.silence_seconds", 3)

	v.SetDefault("http.timeout", "30s")
	v.SetDefault("http.insecure_skip_verify", false)
	v.SetDefault("http.max_response_bytes", 4<<20)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks that all required configuration values are present.
func (c *Config) Validate() error {
	var missing []string

	if c.Flow.ConfigPath == "" {
		missing = append(missing, "FLOW_CONFIG_PATH")
	}
	if c.Flow.CatalogPath == "" {
		missing = append(missing, "FLOW_CATALOG_PATH")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	if c.Engine.LoopLimit <= 0 {
		return fmt.Errorf("engine.loop_limit must be positive, got %d", c.Engine.LoopLimit)
	}
	if c.HTTP.Timeout <= 0 {
		return fmt.Errorf("http.timeout must be positive, got %s", c.HTTP.Timeout)
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}
