// Package sim is a console telephony adapter for flow dry-runs. Every
// provider operation is printed as a transcript line instead of touching
// real media, and digit input is served from a pre-scripted queue. Flow
// authors use it through the ivrsim tool to check a configuration before
// deploying it.
package sim

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"

	"github.com/automax/ivrflow/internal/provider"
)

// Call is one simulated call leg.
type Call struct {
	id     string
	number string
	name   string
	domain string
	out    io.Writer

	digits      []string
	sessionVars map[string]string
	hungUp      bool
	autoHangup  bool
}

// CallOptions configures a simulated call.
type CallOptions struct {
	CallerNumber string
	CallerName   string
	Domain       string
	// Digits are served in order to digit collections; when exhausted,
	// collections time out.
	Digits []string
	// SessionVars pre-seeds the provider session, e.g. to replay a queue
	// re-entry.
	SessionVars map[string]string
}

// NewCall creates a simulated call writing its transcript to out.
func NewCall(out io.Writer, opts CallOptions) *Call {
	if opts.CallerNumber == "" {
		opts.CallerNumber = "15550000000"
	}
	if opts.Domain == "" {
		opts.Domain = "sim.local"
	}
	vars := make(map[string]string, len(opts.SessionVars))
	for k, v := range opts.SessionVars {
		vars[k] = v
	}
	return &Call{
		id:          uuid.NewString(),
		number:      opts.CallerNumber,
		name:        opts.CallerName,
		domain:      opts.Domain,
		out:         out,
		digits:      opts.Digits,
		sessionVars: vars,
		autoHangup:  true,
	}
}

func (c *Call) emit(format string, args ...any) {
	fmt.Fprintf(c.out, format+"\n", args...)
}

func (c *Call) ID() string { return c.id }
func (c *Call) CallerIDNumber() string { return c.number }
func (c *Call) CallerIDName() string { return c.name }
func (c *Call) Domain() string { return c.domain }

func (c *Call) Answer() error {
	c.emit("ANSWER")
	return nil
}

func (c *Call) Hangup(cause string) error {
	c.emit("HANGUP %s", cause)
	c.hungUp = true
	return nil
}

func (c *Call) Hungup() bool { return c.hungUp }

func (c *Call) GetSessionVar(name string) string { return c.sessionVars[name] }

func (c *Call) ExportSessionVars() map[string]string {
	out := make(map[string]string, len(c.sessionVars))
	for k, v := range c.sessionVars {
		out[k] = v
	}
	return out
}

func (c *Call) SetSessionVar(name, value string) {
	c.sessionVars[name] = value
}

func (c *Call) SetAutoHangup(enabled bool) {
	c.emit("AUTO-HANGUP %v", enabled)
	c.autoHangup = enabled
}

func (c *Call) Play(_ context.Context, filePath string) error {
	c.emit("PLAY %s", filePath)
	return nil
}

func (c *Call) PlayAndGetDigits(_ context.Context, p provider.DigitsParams) (string, error) {
	d := c.nextDigits()
	c.emit("PROMPT %s -> %q", p.PromptFile, d)
	return d, nil
}

func (c *Call) ReadDigits(_ context.Context, p provider.DigitsParams) (string, error) {
	d := c.nextDigits()
	c.emit("READ max=%d -> %q", p.MaxLength, d)
	return d, nil
}

func (c *Call) nextDigits() string {
	if len(c.digits) == 0 {
		return ""
	}
	d := c.digits[0]
	c.digits = c.digits[1:]
	return d
}

func (c *Call) Record(_ context.Context, p provider.RecordParams) error {
	c.emit("RECORD %s max=%ds", p.Path, p.MaxDurationSec)
	return nil
}

func (c *Call) Speak(_ context.Context, engine, voice, text string) error {
	c.emit("SPEAK %s/%s %q", engine, voice, text)
	return nil
}

func (c *Call) Bridge(_ context.Context, dialString string) (string, error) {
	c.emit("BRIDGE %s", dialString)
	return "NORMAL_CLEARING", nil
}

func (c *Call) QueueDispatch(_ context.Context, queueName string) error {
	c.emit("QUEUE %s", queueName)
	return nil
}

func (c *Call) TransferForEvaluation(_ context.Context, destination string) error {
	c.emit("TRANSFER %s", destination)
	return nil
}

// Provider is the process-wide half of the simulated adapter. Extensions
// and globals are seeded up front; recordings always count as voiced so
// record-then-upload flows run end to end.
type Provider struct {
	mu sync.Mutex

	out        io.Writer
	extensions map[string]bool
	registered map[string]bool
	globals    map[string]string
}

// NewProvider creates a simulated provider writing agent pushes to out.
func NewProvider(out io.Writer, extensions []string, globals map[string]string) *Provider {
	ext := make(map[string]bool, len(extensions))
	reg := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		ext[e] = true
		reg[e] = true
	}
	g := make(map[string]string, len(globals))
	for k, v := range globals {
		g[k] = v
	}
	return &Provider{out: out, extensions: ext, registered: reg, globals: g}
}

func (p *Provider) emit(format string, args ...any) {
	fmt.Fprintf(p.out, format+"\n", args...)
}

func (p *Provider) DirectoryExists(_ context.Context, extension, domain string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_ = domain
	return p.extensions[extension], nil
}

func (p *Provider) AgentRegistered(_ context.Context, extension string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.registered[extension], nil
}

func (p *Provider) AgentSetStatus(_ context.Context, extension, status string) error {
	p.emit("AGENT %s status=%s", extension, status)
	return nil
}

func (p *Provider) AgentSetState(_ context.Context, extension, state string) error {
	p.emit("AGENT %s state=%s", extension, state)
	return nil
}

func (p *Provider) AgentSetContact(_ context.Context, extension, contact string) error {
	p.emit("AGENT %s contact=%s", extension, contact)
	return nil
}

func (p *Provider) AgentDoNotDisturb(_ context.Context, _ string) (string, error) {
	return "", nil
}

func (p *Provider) AgentQueueState(_ context.Context, _ string) (string, error) {
	return "", nil
}

func (p *Provider) FileHasVoice(_ string) (bool, error) { return true, nil }

func (p *Provider) GetGlobal(name string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.globals[name]
}
