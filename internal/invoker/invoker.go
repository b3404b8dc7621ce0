// Package invoker builds, executes and parses the HTTP calls described by
// the API catalog. Given an ApiSpec and the call's variable store, it
// assembles one request (templating the URL, headers and body from the
// store), runs it under a per-request deadline and a per-API circuit
// breaker, and maps the response fields back into the store.
package invoker

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/automax/ivrflow/internal/circuitbreaker"
	"github.com/automax/ivrflow/internal/domain"
	apperrors "github.com/automax/ivrflow/internal/errors"
	"github.com/automax/ivrflow/internal/metrics"
	"github.com/automax/ivrflow/internal/session"
)

// Config holds invoker settings.
type Config struct {
	// Timeout is the per-request deadline.
	Timeout time.Duration
	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool
	// MaxResponseBytes caps how much of a response body is read.
	MaxResponseBytes int64
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Timeout:          30 * time.Second,
		MaxResponseBytes: 4 << 20,
	}
}

// Result carries the outcome of one invocation.
type Result struct {
	// StatusCode is the HTTP status, or 0 on transport error.
	StatusCode int
	// Body is the raw response body.
	Body []byte
	// Success is true when the status was 2xx and every success validator
	// in the output mapping passed.
	Success bool
}

// Invoker executes catalog API calls.
type Invoker struct {
	client  *http.Client
	cfg     *Config
	logger  *zap.Logger
	metrics *metrics.Metrics

	mu       sync.Mutex
	breakers map[int]*circuitbreaker.CircuitBreaker
}

// New creates an invoker. A nil config uses defaults; metrics may be nil.
func New(cfg *Config, logger *zap.Logger, m *metrics.Metrics) *Invoker {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &Invoker{
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		cfg:      cfg,
		logger:   logger,
		metrics:  m,
		breakers: make(map[int]*circuitbreaker.CircuitBreaker),
	}
}

// Invoke runs the full API contract: request assembly, execution, and
// output extraction into the store. The returned Result's Success field is
// what the flow maps onto the "S"/"F" tokens. Errors are returned only for
// unusable specs; an unreachable or failing endpoint is a non-error Result
// with Success=false.
func (inv *Invoker) Invoke(ctx context.Context, api *domain.ApiSpec, store *session.Store) (*Result, error) {
	res, err := inv.Execute(ctx, api, store)
	if err != nil {
		return nil, err
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		// Failure: no outputs are written.
		res.Success = false
		return res, nil
	}
	res.Success = extractOutputs(api, res.Body, store, inv.logger)
	return res, nil
}

// Execute assembles and runs the request without touching the output
// mapping. Op 112 uses this path and publishes the status code and body
// itself. A transport error yields StatusCode 0 rather than an error.
func (inv *Invoker) Execute(ctx context.Context, api *domain.ApiSpec, store *session.Store) (*Result, error) {
	req, err := buildRequest(ctx, api, store)
	if err != nil {
		return nil, apperrors.WrapWithOp(err, "invoker.Execute")
	}

	start := time.Now()
	res := &Result{}

	cbErr := inv.breaker(api.APIID).Execute(ctx, func(ctx context.Context) error {
		resp, err := inv.client.Do(req.WithContext(ctx))
		if err != nil {
			inv.logger.Warn("api transport error",
				zap.Int("api_id", api.APIID),
				zap.String("url", req.URL.Redacted()),
				zap.Error(err),
			)
			return err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, inv.cfg.MaxResponseBytes))
		if err != nil {
			return err
		}
		res.StatusCode = resp.StatusCode
		res.Body = body

		// Server-side failures count against the breaker.
		if resp.StatusCode >= 500 {
			return apperrors.Newf(apperrors.CodeHTTPFailure, "api %d returned %d", api.APIID, resp.StatusCode)
		}
		return nil
	})

	if inv.metrics != nil {
		if apperrors.Is(cbErr, circuitbreaker.ErrCircuitOpen) || apperrors.Is(cbErr, circuitbreaker.ErrTooManyRequests) {
			inv.metrics.RecordCircuitOpen(api.APIID)
		} else {
			inv.metrics.RecordAPIInvocation(api.APIID, res.StatusCode >= 200 && res.StatusCode < 300, time.Since(start))
		}
		inv.metrics.SetCircuitBreakerState(api.APIID, int(inv.breaker(api.APIID).State()))
	}

	if cbErr != nil && res.StatusCode == 0 {
		inv.logger.Warn("api invocation failed",
			zap.Int("api_id", api.APIID),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(cbErr),
		)
	}
	return res, nil
}

// breaker returns the per-API circuit breaker, creating it on first use.
func (inv *Invoker) breaker(apiID int) *circuitbreaker.CircuitBreaker {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	cb, ok := inv.breakers[apiID]
	if !ok {
		cb = circuitbreaker.New("api-"+strconv.Itoa(apiID), nil, inv.logger)
		inv.breakers[apiID] = cb
	}
	return cb
}
