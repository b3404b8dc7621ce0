// Package mock provides scripted provider doubles for engine tests.
package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/automax/ivrflow/internal/provider"
)

// Call is a scripted provider.Call. Responses are configured up front;
// every operation is appended to Invocations for assertions.
type Call struct {
	CallID     string
	Number     string
	NameField  string
	DomainName string

	// DigitResponses are returned in order by PlayAndGetDigits/ReadDigits.
	// When exhausted, empty string (timeout) is returned.
	DigitResponses []string
	// BridgeCause is returned by Bridge.
	BridgeCause string
	// BridgeErr, PlayErr, RecordErr force the corresponding op to fail.
	BridgeErr error
	PlayErr   error
	RecordErr error

	// HangupAfter simulates the caller going away after that many
	// suspension operations. Zero means never.
	HangupAfter int

	SessionVars map[string]string
	AutoHangup  bool
	HungUp      bool
	HangupCause string

	Invocations []string

	ops int
}

// NewCall creates a mock call with a random id and sensible identity.
func NewCall() *Call {
	return &Call{
		CallID:      uuid.NewString(),
		Number:      "15551234567",
		NameField:   "Test Caller",
		DomainName:  "pbx.example.com",
		SessionVars: make(map[string]string),
		AutoHangup:  true,
	}
}

func (c *Call) log(format string, args ...any) {
	c.Invocations = append(c.Invocations, fmt.Sprintf(format, args...))
}

// suspend counts a suspension point and applies HangupAfter.
func (c *Call) suspend() {
	c.ops++
	if c.HangupAfter > 0 && c.ops >= c.HangupAfter {
		c.HungUp = true
	}
}

func (c *Call) ID() string { return c.CallID }
func (c *Call) CallerIDNumber() string { return c.Number }
func (c *Call) CallerIDName() string { return c.NameField }
func (c *Call) Domain() string { return c.DomainName }

func (c *Call) Answer() error {
	c.log("answer")
	return nil
}

func (c *Call) Hangup(cause string) error {
	c.log("hangup %s", cause)
	c.HungUp = true
	c.HangupCause = cause
	return nil
}

func (c *Call) Hungup() bool { return c.HungUp }

func (c *Call) GetSessionVar(name string) string { return c.SessionVars[name] }

func (c *Call) ExportSessionVars() map[string]string {
	out := make(map[string]string, len(c.SessionVars))
	for k, v := range c.SessionVars {
		out[k] = v
	}
	return out
}

func (c *Call) SetSessionVar(name, value string) {
	c.SessionVars[name] = value
}

func (c *Call) SetAutoHangup(enabled bool) {
	c.log("auto_hangup %v", enabled)
	c.AutoHangup = enabled
}

func (c *Call) Play(_ context.Context, filePath string) error {
	c.log("play %s", filePath)
	c.suspend()
	return c.PlayErr
}

func (c *Call) PlayAndGetDigits(_ context.Context, p provider.DigitsParams) (string, error) {
	c.log("play_and_get_digits %s regex=%s timeout=%d", p.PromptFile, p.Regex, p.TimeoutMS)
	c.suspend()
	return c.nextDigits(), nil
}

func (c *Call) ReadDigits(_ context.Context, p provider.DigitsParams) (string, error) {
	c.log("read_digits max=%d timeout=%d", p.MaxLength, p.TimeoutMS)
	c.suspend()
	return c.nextDigits(), nil
}

func (c *Call) nextDigits() string {
	if len(c.DigitResponses) == 0 {
		return ""
	}
	d := c.DigitResponses[0]
	c.DigitResponses = c.DigitResponses[1:]
	return d
}

func (c *Call) Record(_ context.Context, p provider.RecordParams) error {
	c.log("record %s max=%d", p.Path, p.MaxDurationSec)
	c.suspend()
	return c.RecordErr
}

func (c *Call) Speak(_ context.Context, engine, voice, text string) error {
	c.log("speak %s/%s %q", engine, voice, text)
	c.suspend()
	return nil
}

func (c *Call) Bridge(_ context.Context, dialString string) (string, error) {
	c.log("bridge %s", dialString)
	c.suspend()
	if c.BridgeErr != nil {
		return "", c.BridgeErr
	}
	if c.BridgeCause == "" {
		return "NORMAL_CLEARING", nil
	}
	return c.BridgeCause, nil
}

func (c *Call) QueueDispatch(_ context.Context, queueName string) error {
	c.log("queue_dispatch %s", queueName)
	c.suspend()
	return nil
}

func (c *Call) TransferForEvaluation(_ context.Context, destination string) error {
	c.log("transfer_for_evaluation %s", destination)
	c.suspend()
	return nil
}

// Provider is a scripted provider.Provider.
type Provider struct {
	mu sync.Mutex

	// Directory maps "extension@domain" to existence.
	Directory map[string]bool
	// Registered maps extension to registration status.
	Registered map[string]bool
	// DND maps extension to the do-not-disturb flag value.
	DND map[string]string
	// QueueStates maps extension to the current queue state.
	QueueStates map[string]string
	// VoiceFiles maps a recording path to whether it contains voice.
	VoiceFiles map[string]bool
	// Globals holds process-wide provider settings.
	Globals map[string]string

	// Statuses, States, Contacts record the pushes per extension.
	Statuses map[string]string
	States   map[string]string
	Contacts map[string]string
}

// NewProvider creates an empty scripted provider.
func NewProvider() *Provider {
	return &Provider{
		Directory:   make(map[string]bool),
		Registered:  make(map[string]bool),
		DND:         make(map[string]string),
		QueueStates: make(map[string]string),
		VoiceFiles:  make(map[string]bool),
		Globals:     make(map[string]string),
		Statuses:    make(map[string]string),
		States:      make(map[string]string),
		Contacts:    make(map[string]string),
	}
}

func (p *Provider) DirectoryExists(_ context.Context, extension, domain string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Directory[extension+"@"+domain], nil
}

func (p *Provider) AgentRegistered(_ context.Context, extension string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Registered[extension], nil
}

func (p *Provider) AgentSetStatus(_ context.Context, extension, status string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Statuses[extension] = status
	return nil
}

func (p *Provider) AgentSetState(_ context.Context, extension, state string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.States[extension] = state
	return nil
}

func (p *Provider) AgentSetContact(_ context.Context, extension, contact string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Contacts[extension] = contact
	return nil
}

func (p *Provider) AgentDoNotDisturb(_ context.Context, extension string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.DND[extension], nil
}

func (p *Provider) AgentQueueState(_ context.Context, extension string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.QueueStates[extension], nil
}

func (p *Provider) FileHasVoice(path string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.VoiceFiles[path], nil
}

func (p *Provider) GetGlobal(name string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Globals[name]
}
