// Package main is a flow dry-run tool. It loads a flow configuration,
// runs one simulated call through the engine with scripted digit input,
// and prints the transcript of provider actions. Flow authors use it to
// check a configuration change before deploying it to the telephony
// platform.
//
// Usage:
//
//	ivrsim -flow ivrconfig.json -catalog automax_webAPIConfig.json -digits 1,2345
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/automax/ivrflow/internal/clock"
	"github.com/automax/ivrflow/internal/config"
	"github.com/automax/ivrflow/internal/engine"
	"github.com/automax/ivrflow/internal/invoker"
	"github.com/automax/ivrflow/internal/logging"
	"github.com/automax/ivrflow/internal/metrics"
	"github.com/automax/ivrflow/internal/provider/sim"
	"github.com/automax/ivrflow/internal/registry"
	"github.com/automax/ivrflow/internal/schedule"
)

func main() {
	var (
		flowPath    = flag.String("flow", "", "flow configuration file (default from config)")
		catalogPath = flag.String("catalog", "", "web API catalog file (default from config)")
		agentsPath  = flag.String("agents", "", "agent roster file")
		digits      = flag.String("digits", "", "comma-separated digit entries, served in order")
		caller      = flag.String("caller", "15550001234", "caller ID number")
		domain      = flag.String("domain", "sim.local", "telephony domain")
		extensions  = flag.String("extensions", "", "comma-separated extensions known to the directory")
		verbose     = flag.Bool("v", false, "log engine activity alongside the transcript")
	)
	flag.Parse()

	if err := run(*flowPath, *catalogPath, *agentsPath, *digits, *caller, *domain, *extensions, *verbose); err != nil {
		fmt.Fprintf(os.Stderr, "ivrsim: %v\n", err)
		os.Exit(1)
	}
}

func run(flowPath, catalogPath, agentsPath, digits, caller, domain, extensions string, verbose bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if flowPath == "" {
		flowPath = cfg.Flow.ConfigPath
	}
	if catalogPath == "" {
		catalogPath = cfg.Flow.CatalogPath
	}
	if agentsPath == "" {
		agentsPath = cfg.Flow.AgentsPath
	}

	logger := zap.NewNop()
	if verbose {
		l, err := logging.New(&logging.Config{Level: "debug", Format: "console", Environment: "development"})
		if err != nil {
			return err
		}
		defer func() { _ = l.Sync() }()
		logger = l.Zap()
	}

	reg, err := registry.New(registry.Paths{
		Flow:       flowPath,
		Catalog:    catalogPath,
		Agents:     agentsPath,
		Recordings: cfg.Flow.RecordingsPath,
	}, logger)
	if err != nil {
		return err
	}

	clk := clock.New()
	m := metrics.NewMetrics()
	inv := invoker.New(&invoker.Config{
		Timeout:            cfg.HTTP.Timeout,
		InsecureSkipVerify: cfg.HTTP.InsecureSkipVerify,
		MaxResponseBytes:   cfg.HTTP.MaxResponseBytes,
	}, logger, m)
	gate := schedule.NewGate(clk, logger)

	prov := sim.NewProvider(os.Stdout, splitList(extensions), nil)
	eng := engine.New(prov, reg, inv, gate, m, clk, logger, &engine.Config{
		LoopLimit:             cfg.Engine.LoopLimit,
		RecordingDir:          cfg.Engine.RecordingDir,
		DigitAudioDir:         cfg.Engine.DigitAudioDir,
		QueueName:             cfg.Engine.QueueName,
		EvaluationDestination: cfg.Engine.EvaluationDestination,
		// Skip the pre-handoff pause so dry-runs finish immediately.
		StabilizationPause: 0,
		SilenceThreshold:   cfg.Engine.SilenceThreshold,
		SilenceSeconds:     cfg.Engine.SilenceSeconds,
	})

	call := sim.NewCall(os.Stdout, sim.CallOptions{
		CallerNumber: caller,
		Domain:       domain,
		Digits:       splitList(digits),
	})

	if err := eng.RunCall(context.Background(), call); err != nil {
		return fmt.Errorf("call %s failed: %w", call.ID(), err)
	}
	fmt.Printf("-- call %s completed\n", call.ID())
	return nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
