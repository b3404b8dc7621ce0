// Package engine runs IVR calls: it walks the flow graph node by node,
// dispatches each node's operation to the provider or the HTTP invoker,
// and selects the next node from the result token.
package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/automax/ivrflow/internal/clock"
	"github.com/automax/ivrflow/internal/domain"
	"github.com/automax/ivrflow/internal/invoker"
	"github.com/automax/ivrflow/internal/metrics"
	"github.com/automax/ivrflow/internal/provider"
	"github.com/automax/ivrflow/internal/registry"
	"github.com/automax/ivrflow/internal/schedule"
	"github.com/automax/ivrflow/internal/session"
)

// Config holds engine tunables.
type Config struct {
	// LoopLimit caps node transitions per call before the call is
	// terminated as a runaway.
	LoopLimit int
	// RecordingDir is where op-40 recordings are written.
	RecordingDir string
	// DigitAudioDir holds per-language digit prompt files, laid out as
	// <dir>/<language-code>/<digit>.wav.
	DigitAudioDir string
	// QueueName is the fallback queue when the agents file names none.
	QueueName string
	// EvaluationDestination is the dialplan target for op-101 handoff.
	EvaluationDestination string
	// StabilizationPause is the wait between agent preparation and queue
	// handoff. Zero disables the pause.
	StabilizationPause time.Duration
	// SilenceThreshold and SilenceSeconds bound op-40 recordings.
	SilenceThreshold int
	SilenceSeconds   int
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() *Config {
	return &Config{
		LoopLimit:             500,
		RecordingDir:          "/tmp/recordings",
		DigitAudioDir:         "digits",
		QueueName:             "support",
		EvaluationDestination: "ivr_evaluation",
		StabilizationPause:    2 * time.Second,
		SilenceThreshold:      200,
		SilenceSeconds:        3,
	}
}

// handlerFunc executes one node and returns its result token.
type handlerFunc func(ctx context.Context, r *run, node *domain.Node) (string, error)

// Engine drives calls through the flow graph. Safe for concurrent use;
// each call gets its own run state.
type Engine struct {
	provider provider.Provider
	registry *registry.Registry
	invoker  *invoker.Invoker
	gate     *schedule.Gate
	metrics  *metrics.Metrics
	clk      clock.Clock
	logger   *zap.Logger
	cfg      *Config

	handlers map[domain.OpCode]handlerFunc
}

// New creates an engine.
func New(
	p provider.Provider,
	reg *registry.Registry,
	inv *invoker.Invoker,
	gate *schedule.Gate,
	m *metrics.Metrics,
	clk clock.Clock,
	logger *zap.Logger,
	cfg *Config,
) *Engine {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	e := &Engine{
		provider: p,
		registry: reg,
		invoker:  inv,
		gate:     gate,
		metrics:  m,
		clk:      clk,
		logger:   logger.Named("engine"),
		cfg:      cfg,
	}
	e.handlers = map[domain.OpCode]handlerFunc{
		domain.OpPlayAudio:         e.handlePlayAudio,
		domain.OpPlayCapturedFile:  e.handlePlayCapturedFile,
		domain.OpCollectDTMF:       e.handleCollectDigits,
		domain.OpPlayCollectDigit:  e.handlePromptDigit,
		domain.OpPlayCapturedDigit: e.handlePromptDigit,
		domain.OpRecord:            e.handleRecord,
		domain.OpPlayDigits:        e.handlePlayDigits,
		domain.OpQueueTransfer:     e.handleQueueTransfer,
		domain.OpQueueTransferEval: e.handleQueueTransferEval,
		domain.OpExtensionDial:     e.handleExtensionDial,
		domain.OpDirectExtension:   e.handleDirectExtension,
		domain.OpExternalDial:      e.handleExternalDial,
		domain.OpHTTPInvoke:        e.handleHTTPInvoke,
		domain.OpHTTPInvokeCurl:    e.handleHTTPInvokeCurl,
		domain.OpBranch:            e.handleBranch,
		domain.OpTerminate:         e.handleTerminate,
		domain.OpTTSBuiltIn:        e.handleSpeak,
		domain.OpTTSCloud:          e.handleSpeak,
		domain.OpSpeechToText:      e.handleSpeechToText,
	}
	return e
}

// run carries the per-call state threaded through the handlers. One run
// per call; never shared between goroutines.
type run struct {
	call   provider.Call
	store  *session.Store
	snap   *registry.Snapshot
	logger *zap.Logger

	terminated bool
	handedOff  bool
}

// linearOp reports whether the op takes its first edge unconditionally
// instead of going through token selection.
func linearOp(code domain.OpCode) bool {
	switch code {
	case domain.OpPlayAudio, domain.OpPlayCapturedFile, domain.OpPlayDigits,
		domain.OpTTSBuiltIn, domain.OpTTSCloud:
		return true
	}
	return false
}

// pause waits for the stabilization interval, or until ctx is done.
func (e *Engine) pause(ctx context.Context) {
	if e.cfg.StabilizationPause <= 0 {
		return
	}
	t := e.clk.NewTimer(e.cfg.StabilizationPause)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C():
	}
}
