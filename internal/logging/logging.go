// Package logging builds the process logger. The level is atomic and
// adjustable while calls are in flight, so a noisy flow can be debugged
// on a live system without a restart; the daemon mounts the Logger as
// the /admin/loglevel handler.
package logging

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a zap.Logger whose level can be changed at runtime.
type Logger struct {
	*zap.Logger
	level zap.AtomicLevel
}

// Config selects the initial level and output shape.
type Config struct {
	// Level is the initial level: debug, info, warn or error.
	Level string
	// Format is json or console.
	Format string
	// Environment selects encoder defaults; production gets the terse
	// zap production encoding.
	Environment string
}

// DefaultConfig is json at info, development encoding.
func DefaultConfig() *Config {
	return &Config{Level: "info", Format: "json", Environment: "development"}
}

// New builds a Logger writing to stderr.
func New(cfg *Config) (*Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	atomic := zap.NewAtomicLevelAt(level)

	encCfg := zap.NewDevelopmentEncoderConfig()
	if cfg.Environment == "production" {
		encCfg = zap.NewProductionEncoderConfig()
	}
	var enc zapcore.Encoder
	if cfg.Format == "console" {
		enc = zapcore.NewConsoleEncoder(encCfg)
	} else {
		enc = zapcore.NewJSONEncoder(encCfg)
	}

	core := zapcore.NewCore(enc, zapcore.Lock(os.Stderr), atomic)
	opts := []zap.Option{zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)}
	if cfg.Environment != "production" {
		opts = append(opts, zap.Development())
	}

	return &Logger{Logger: zap.New(core, opts...), level: atomic}, nil
}

// ParseLevel maps a level name onto a zap level.
func ParseLevel(s string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	}
	return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", s)
}

// SetLevel changes the level for this logger and all its children.
func (l *Logger) SetLevel(s string) error {
	parsed, err := ParseLevel(s)
	if err != nil {
		return err
	}
	prev := l.level.Level()
	l.level.SetLevel(parsed)
	l.Info("log level changed",
		zap.String("level", parsed.String()),
		zap.String("previous", prev.String()),
	)
	return nil
}

// GetLevel returns the current level name.
func (l *Logger) GetLevel() string {
	return l.level.Level().String()
}

type levelPayload struct {
	Level string `json:"level"`
	Error string `json:"error,omitempty"`
}

// ServeHTTP is the runtime level endpoint. GET reports the level;
// PUT or POST with a level parameter (query or form) changes it.
func (l *Logger) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	switch r.Method {
	case http.MethodGet:
		_ = json.NewEncoder(w).Encode(levelPayload{Level: l.GetLevel()})

	case http.MethodPut, http.MethodPost:
		level := r.URL.Query().Get("level")
		if level == "" {
			if err := r.ParseForm(); err == nil {
				level = r.FormValue("level")
			}
		}
		if level == "" {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(levelPayload{Error: "level parameter required"})
			return
		}
		if err := l.SetLevel(level); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(levelPayload{Error: err.Error()})
			return
		}
		_ = json.NewEncoder(w).Encode(levelPayload{Level: l.GetLevel()})

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
		_ = json.NewEncoder(w).Encode(levelPayload{Error: "method not allowed"})
	}
}

// Named returns a child logger sharing the same atomic level.
func (l *Logger) Named(name string) *Logger {
	return &Logger{Logger: l.Logger.Named(name), level: l.level}
}

// With returns a child logger with preset fields.
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{Logger: l.Logger.With(fields...), level: l.level}
}

// Zap unwraps the embedded zap.Logger for packages that take one.
func (l *Logger) Zap() *zap.Logger {
	return l.Logger
}
