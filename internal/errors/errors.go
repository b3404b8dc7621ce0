// Package errors provides the error types used across the ivrflow engine.
// It classifies failures into the classes the flow driver cares about:
// load-time config errors, per-call config errors, recoverable user errors,
// external service errors, and internal faults.
package errors

import (
	"errors"
	"fmt"
)

// Code represents an application error code.
type Code string

// Error codes for different error categories.
const (
	// Load-time configuration errors. The process must refuse to start.
	CodeConfigParse      Code = "CONFIG_PARSE"
	CodeMissingStartNode Code = "MISSING_START_NODE"
	CodeUnresolvedEdge   Code = "UNRESOLVED_EDGE_TARGET"
	CodeDuplicateNode    Code = "DUPLICATE_NODE_ID"

	// Per-call configuration errors. The call is terminated.
	CodeUnknownOpCode Code = "UNKNOWN_OP_CODE"
	CodeUnknownAPI    Code = "UNKNOWN_API_ID"
	CodeDeadEnd       Code = "DEAD_END"
	CodeUnknownNode   Code = "UNKNOWN_NODE_ID"

	// Recoverable user errors. Handled by retry policy, mapped to tokens.
	CodeInvalidInput Code = "INVALID_INPUT"
	CodeInputTimeout Code = "INPUT_TIMEOUT"

	// External errors. Mapped to the "F" result token.
	CodeHTTPFailure      Code = "HTTP_FAILURE"
	CodeCircuitOpen      Code = "CIRCUIT_OPEN"
	CodeUnknownExtension Code = "UNKNOWN_EXTENSION"
	CodeBridgeFailure    Code = "BRIDGE_FAILURE"
	CodeMissingFile      Code = "MISSING_FILE"

	// Internal errors. Caught at the driver fault boundary.
	CodeInternal     Code = "INTERNAL_ERROR"
	CodeHandlerPanic Code = "HANDLER_PANIC"
	CodeLoopLimit    Code = "LOOP_LIMIT_EXCEEDED"
	CodeCallAborted  Code = "CALL_ABORTED"
)

// Kind classifies an error by how the driver must react to it.
type Kind int

const (
	// KindUnknown is an unclassified error.
	KindUnknown Kind = iota
	// KindLoadFatal means the configuration is unusable; refuse to start.
	KindLoadFatal
	// KindCallFatal means the current call must be terminated.
	KindCallFatal
	// KindUser means the caller misbehaved; the handler's retry policy applies.
	KindUser
	// KindExternal means a collaborator failed; maps to the "F" token.
	KindExternal
)

// Error is the base application error type.
type Error struct {
	// Code is the machine-readable error code.
	Code Code `json:"code"`
	// Message is the human-readable error message.
	Message string `json:"message"`
	// Kind classifies the error for driver handling decisions.
	Kind Kind `json:"-"`
	// Op is the operation being performed (e.g., "engine.RunCall").
	Op string `json:"-"`
	// Err is the underlying error, if any.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Op != "" {
		if e.Err != nil {
			return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
		}
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target matches this error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// IsCallFatal reports whether the call carrying this error must be hung up.
func (e *Error) IsCallFatal() bool {
	return e.Kind == KindCallFatal
}

// IsLoadFatal reports whether the process must refuse to start.
func (e *Error) IsLoadFatal() bool {
	return e.Kind == KindLoadFatal
}

// New creates a new Error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Kind:    kindForCode(code),
	}
}

// Newf creates a new Error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps an existing error with additional context.
func Wrap(err error, op string, code Code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Kind:    kindForCode(code),
		Op:      op,
		Err:     err,
	}
}

// WrapWithOp wraps an existing error preserving its code but adding operation context.
func WrapWithOp(err error, op string) *Error {
	var e *Error
	if errors.As(err, &e) {
		return &Error{
			Code:    e.Code,
			Message: e.Message,
			Kind:    e.Kind,
			Op:      op,
			Err:     e.Err,
		}
	}
	return &Error{
		Code:    CodeInternal,
		Message: err.Error(),
		Kind:    KindCallFatal,
		Op:      op,
		Err:     err,
	}
}

// kindForCode returns the default Kind for a given Code.
func kindForCode(code Code) Kind {
	switch code {
	case CodeConfigParse, CodeMissingStartNode, CodeUnresolvedEdge, CodeDuplicateNode:
		return KindLoadFatal
	case CodeUnknownOpCode, CodeUnknownAPI, CodeDeadEnd, CodeUnknownNode,
		CodeInternal, CodeHandlerPanic, CodeLoopLimit, CodeCallAborted:
		return KindCallFatal
	case CodeInvalidInput, CodeInputTimeout:
		return KindUser
	case CodeHTTPFailure, CodeCircuitOpen, CodeUnknownExtension, CodeBridgeFailure, CodeMissingFile:
		return KindExternal
	default:
		return KindUnknown
	}
}

// CodeOf extracts the Code from an error, or CodeInternal if it is not an *Error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// KindOf extracts the Kind from an error, or KindUnknown if it is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Sentinel errors for common cases.

var (
	// ErrCircuitOpen indicates the HTTP invoker's circuit breaker rejected the call.
	ErrCircuitOpen = New(CodeCircuitOpen, "api temporarily unavailable")

	// ErrDeadEnd indicates no edge matched the handler's result token.
	ErrDeadEnd = New(CodeDeadEnd, "no matching edge for result token")

	// ErrCallAborted indicates the caller hung up mid-flow.
	ErrCallAborted = New(CodeCallAborted, "call aborted by caller")
)

// Specialized error constructors.

// UnknownOpCode creates the per-call fatal error for an unrecognized op code.
func UnknownOpCode(nodeID, opCode int) *Error {
	return Newf(CodeUnknownOpCode, "node %d has unknown op code %d", nodeID, opCode)
}

// UnknownAPI creates the per-call fatal error for an unresolvable API id.
func UnknownAPI(apiID int) *Error {
	return Newf(CodeUnknownAPI, "api %d not found in catalog", apiID)
}

// DeadEnd creates the per-call fatal error for an unmatched result token.
func DeadEnd(nodeID int, token string) *Error {
	return Newf(CodeDeadEnd, "node %d has no edge matching token %q", nodeID, token)
}

// UnresolvedEdge creates the load-time error for an edge pointing nowhere.
func UnresolvedEdge(nodeID, targetID int) *Error {
	return Newf(CodeUnresolvedEdge, "node %d references undefined target node %d", nodeID, targetID)
}

// As is a convenience re-export so callers need not import both packages.
func As(err error, target any) bool { return errors.As(err, target) }

// Is is a convenience re-export so callers need not import both packages.
func Is(err, target error) bool { return errors.Is(err, target) }
