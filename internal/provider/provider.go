// Package provider defines the interface the call-flow engine consumes
// from the telephony adapter. The adapter owns audio I/O, DTMF capture,
// recording, TTS, bridging and the call-center control plane; the engine
// only issues commands and reads results back.
//
// All blocking operations take a context. The engine treats a context
// cancellation or a reported hangup identically: the call winds down
// without further edge selection.
package provider

import "context"

// Call is one provider-bound call leg. A Call is owned by exactly one flow
// driver goroutine; implementations need not be safe for concurrent use.
type Call interface {
	// ID returns the provider's opaque call identifier.
	ID() string
	// CallerIDNumber returns the caller's number.
	CallerIDNumber() string
	// CallerIDName returns the caller's display name.
	CallerIDName() string
	// Domain returns the telephony domain the call arrived on.
	Domain() string

	// Answer accepts the call.
	Answer() error
	// Hangup releases the call with the given cause.
	Hangup(cause string) error
	// Hungup reports whether the far end has already gone away. The driver
	// checks this after every suspension point.
	Hungup() bool

	// GetSessionVar reads a provider-side session variable.
	GetSessionVar(name string) string
	// ExportSessionVars returns all provider-side session variables. Used
	// on queue re-entry to rebuild the variable store the call had before
	// transfer (every store write is mirrored into the session).
	ExportSessionVars() map[string]string
	// SetSessionVar mirrors an engine variable into the provider session.
	SetSessionVar(name, value string)
	// SetAutoHangup toggles the provider's automatic hangup after transfer.
	SetAutoHangup(enabled bool)

	// Play plays an audio file to the caller. Blocks until finished or
	// caller barge-in.
	Play(ctx context.Context, filePath string) error
	// PlayAndGetDigits plays a prompt and collects digits with the
	// provider's own retry loop. Returns the collected digits, or empty on
	// timeout.
	PlayAndGetDigits(ctx context.Context, p DigitsParams) (string, error)
	// ReadDigits collects digits without a prompt.
	ReadDigits(ctx context.Context, p DigitsParams) (string, error)
	// Record captures caller audio to a file. Returns when the silence or
	// duration cap is reached.
	Record(ctx context.Context, p RecordParams) error
	// Speak synthesizes text with the named engine and voice.
	Speak(ctx context.Context, engine, voice, text string) error
	// Bridge originates the dial string and bridges the legs. Returns the
	// far leg's hangup cause.
	Bridge(ctx context.Context, dialString string) (cause string, err error)
	// QueueDispatch hands the call to the provider's queue subsystem. The
	// call does not come back to the engine.
	QueueDispatch(ctx context.Context, queueName string) error
	// TransferForEvaluation hands the call off so that it re-enters the
	// engine when the agent leg ends.
	TransferForEvaluation(ctx context.Context, destination string) error
}

// DigitsParams parameterizes a DTMF collection.
type DigitsParams struct {
	PromptFile        string // empty for ReadDigits
	InvalidPromptFile string
	MinLength         int
	MaxLength         int
	Attempts          int
	TimeoutMS         int
	Terminator        string
	Regex             string
}

// RecordParams parameterizes a recording.
type RecordParams struct {
	Path             string
	MaxDurationSec   int
	SilenceThreshold int
	SilenceSeconds   int
}

// Provider is the process-wide adapter surface shared by all calls.
type Provider interface {
	// DirectoryExists checks whether an extension is known in a domain.
	DirectoryExists(ctx context.Context, extension, domain string) (bool, error)

	// AgentRegistered reports whether the agent's endpoint is registered.
	AgentRegistered(ctx context.Context, extension string) (bool, error)
	// AgentSetStatus pushes a call-center status for the agent.
	AgentSetStatus(ctx context.Context, extension, status string) error
	// AgentSetState pushes a call-center state for the agent.
	AgentSetState(ctx context.Context, extension, state string) error
	// AgentSetContact binds the agent's dial contact.
	AgentSetContact(ctx context.Context, extension, contact string) error
	// AgentDoNotDisturb returns the agent's externally recorded DND flag.
	AgentDoNotDisturb(ctx context.Context, extension string) (string, error)
	// AgentQueueState returns the agent's current queue state.
	AgentQueueState(ctx context.Context, extension string) (string, error)

	// FileHasVoice reports whether a recorded file contains audio energy
	// above the provider's voice threshold.
	FileHasVoice(path string) (bool, error)

	// GetGlobal reads a named process-wide provider setting.
	GetGlobal(name string) string
}
