// Package shutdown sequences a graceful stop. Registered services are
// stopped phase by phase: first new call intake, then in-flight calls
// and HTTP requests drain, then background workers, then final cleanup.
// Services within one phase stop concurrently.
package shutdown

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Phase orders the stop sequence.
type Phase int

const (
	// PhasePreDrain stops intake of new calls and requests.
	PhasePreDrain Phase = iota
	// PhaseDrain waits out in-flight work.
	PhaseDrain
	// PhaseShutdown stops background workers.
	PhaseShutdown
	// PhaseCleanup flushes buffers and closes what is left.
	PhaseCleanup
)

var phaseNames = map[Phase]string{
	PhasePreDrain: "pre-drain",
	PhaseDrain:    "drain",
	PhaseShutdown: "shutdown",
	PhaseCleanup:  "cleanup",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return "unknown"
}

// Service is anything the coordinator can stop.
type Service interface {
	Name() string
	Shutdown(ctx context.Context) error
}

// ServiceFunc adapts a function to Service.
type ServiceFunc struct {
	ServiceName string
	ShutdownFn  func(ctx context.Context) error
}

func (s ServiceFunc) Name() string { return s.ServiceName }
func (s ServiceFunc) Shutdown(ctx context.Context) error { return s.ShutdownFn(ctx) }

// Config tunes the coordinator.
type Config struct {
	// Timeout bounds the whole stop sequence, all phases included.
	Timeout time.Duration
}

// DefaultConfig allows 30 seconds for the full sequence.
func DefaultConfig() *Config {
	return &Config{Timeout: 30 * time.Second}
}

type registration struct {
	phase Phase
	svc   Service
}

// Coordinator runs the phased stop sequence exactly once.
type Coordinator struct {
	timeout time.Duration
	logger  *zap.Logger

	mu       sync.Mutex
	services []registration

	once       sync.Once
	shutdownCh chan struct{}
	done       chan struct{}
	err        error
}

// NewCoordinator creates an idle coordinator. A nil cfg gets
// DefaultConfig.
func NewCoordinator(cfg *Config, logger *zap.Logger) *Coordinator {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		timeout:    cfg.Timeout,
		logger:     logger,
		shutdownCh: make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Register adds a service to the given phase.
func (c *Coordinator) Register(phase Phase, svc Service) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.services = append(c.services, registration{phase: phase, svc: svc})
}

// RegisterFunc registers a plain function under a name.
func (c *Coordinator) RegisterFunc(phase Phase, name string, fn func(ctx context.Context) error) {
	c.Register(phase, ServiceFunc{ServiceName: name, ShutdownFn: fn})
}

// ShutdownCh is closed the moment shutdown begins. Long-running
// goroutines select on it to stop picking up new work.
func (c *Coordinator) ShutdownCh() <-chan struct{} {
	return c.shutdownCh
}

// Shutdown runs the stop sequence and blocks until it finishes or ctx
// is cancelled. Repeated calls join the same sequence. The sequence
// itself always gets the configured timeout, independent of ctx.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.once.Do(func() {
		close(c.shutdownCh)
		go c.run()
	})

	select {
	case <-c.done:
		return c.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Coordinator) run() {
	defer close(c.done)

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	c.logger.Info("graceful shutdown started", zap.Duration("timeout", c.timeout))

	var errs []error
	for _, phase := range []Phase{PhasePreDrain, PhaseDrain, PhaseShutdown, PhaseCleanup} {
		svcs := c.inPhase(phase)
		if len(svcs) == 0 {
			continue
		}
		c.logger.Info("shutdown phase",
			zap.Stringer("phase", phase),
			zap.Int("services", len(svcs)),
		)
		errs = append(errs, c.stopAll(ctx, phase, svcs)...)

		if ctx.Err() != nil {
			c.logger.Error("shutdown timeout exceeded",
				zap.Stringer("phase", phase),
			)
			errs = append(errs, ctx.Err())
			break
		}
	}

	c.err = errors.Join(errs...)
	if c.err != nil {
		c.logger.Error("graceful shutdown finished with errors", zap.Error(c.err))
		return
	}
	c.logger.Info("graceful shutdown complete")
}

func (c *Coordinator) inPhase(phase Phase) []Service {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Service
	for _, r := range c.services {
		if r.phase == phase {
			out = append(out, r.svc)
		}
	}
	return out
}

func (c *Coordinator) stopAll(ctx context.Context, phase Phase, svcs []Service) []error {
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	var errs []error

	for _, svc := range svcs {
		wg.Add(1)
		go func(s Service) {
			defer wg.Done()
			start := time.Now()
			if err := s.Shutdown(ctx); err != nil {
				c.logger.Error("service shutdown failed",
					zap.String("service", s.Name()),
					zap.Stringer("phase", phase),
					zap.Error(err),
				)
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
				mu.Unlock()
				return
			}
			c.logger.Debug("service stopped",
				zap.String("service", s.Name()),
				zap.Stringer("phase", phase),
				zap.Duration("took", time.Since(start)),
			)
		}(svc)
	}
	wg.Wait()
	return errs
}

// ReadinessProbe reports not-ready as soon as shutdown begins, so the
// load balancer stops routing to a draining instance.
type ReadinessProbe struct {
	draining atomic.Bool
}

// NewReadinessProbe creates a probe tied to the coordinator's shutdown
// signal.
func NewReadinessProbe(c *Coordinator) *ReadinessProbe {
	rp := &ReadinessProbe{}
	go func() {
		<-c.ShutdownCh()
		rp.draining.Store(true)
	}()
	return rp
}

// IsReady reports whether the instance should receive traffic.
func (rp *ReadinessProbe) IsReady() bool {
	return !rp.draining.Load()
}
