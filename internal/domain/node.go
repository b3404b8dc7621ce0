// Package domain defines the configuration data model of the call-flow
// engine: flow nodes and edges, the HTTP API catalog, agent roster entries,
// recording profiles, language rows and general settings.
//
// All types here are plain decoded JSON and are immutable after load; the
// registry package indexes and validates them.
package domain

// OpCode identifies the telephony primitive a node performs. The set is
// closed; the engine rejects calls that reach a node with an unknown code.
type OpCode int

// The operation codes understood by the engine.
const (
	OpPlayAudio         OpCode = 10
	OpPlayCapturedFile  OpCode = 11
	OpCollectDTMF       OpCode = 20
	OpPlayCollectDigit  OpCode = 30
	OpPlayCapturedDigit OpCode = 31
	OpRecord            OpCode = 40
	OpPlayDigits        OpCode = 50
	OpQueueTransfer     OpCode = 100
	OpQueueTransferEval OpCode = 101
	OpExtensionDial     OpCode = 105
	OpDirectExtension   OpCode = 107
	OpExternalDial      OpCode = 108
	OpHTTPInvoke        OpCode = 111
	OpHTTPInvokeCurl    OpCode = 112
	OpBranch            OpCode = 120
	OpTerminate         OpCode = 200
	OpTTSBuiltIn        OpCode = 330
	OpTTSCloud          OpCode = 331
	OpSpeechToText      OpCode = 341
)

// Known reports whether code belongs to the closed operation set.
func (c OpCode) Known() bool {
	switch c {
	case OpPlayAudio, OpPlayCapturedFile, OpCollectDTMF, OpPlayCollectDigit,
		OpPlayCapturedDigit, OpRecord, OpPlayDigits, OpQueueTransfer,
		OpQueueTransferEval, OpExtensionDial, OpDirectExtension, OpExternalDial,
		OpHTTPInvoke, OpHTTPInvokeCurl, OpBranch, OpTerminate, OpTTSBuiltIn,
		OpTTSCloud, OpSpeechToText:
		return true
	}
	return false
}

// TimeLimitResponse selects what an input node does when the caller lets
// the collection window elapse without pressing anything.
type TimeLimitResponse int

const (
	// TimeLimitRetry replays the prompt within the repeat budget.
	TimeLimitRetry TimeLimitResponse = 0
	// TimeLimitUseDefault stores the node's DefaultInput and continues.
	TimeLimitUseDefault TimeLimitResponse = 1
)

// Node is one step of the flow graph. Immutable after load.
type Node struct {
	ID      int    `json:"Id"`
	Name    string `json:"Name"`
	OpCode  OpCode `json:"OpCode"`
	IsStart bool   `json:"IsStart"`

	// Payload fields; which ones are meaningful depends on OpCode.
	VoiceFileID             string            `json:"VoiceFileId,omitempty"`
	InvalidInputVoiceFileID string            `json:"InvalidInputVoiceFileId,omitempty"`
	APIID                   int               `json:"APIId,omitempty"`
	ValidKeys               string            `json:"ValidKeys,omitempty"`
	InputLength             int               `json:"InputLength,omitempty"`
	InputTimeLimit          int               `json:"InputTimeLimit,omitempty"`
	TagName                 string            `json:"TagName,omitempty"`
	TagValuePrefix          string            `json:"TagValuePrefix,omitempty"`
	DefaultInput            string            `json:"DefaultInput,omitempty"`
	RecordingTypeID         int               `json:"RecordingTypeId,omitempty"`
	RepeatLimit             int               `json:"RepeatLimit,omitempty"`
	IsRepetitive            bool              `json:"IsRepetitive,omitempty"`
	TimeLimitResponseType   TimeLimitResponse `json:"TimeLimitResponseType,omitempty"`
	IsLanguageSelect        bool              `json:"IsLanguageSelect,omitempty"`

	Edges []EdgeSpec `json:"Edges"`
}

// EdgeSpec is an outgoing link from a node. Exactly one of the match rules
// applies: an InputKeys token match, a comparison, or neither (catch-all).
type EdgeSpec struct {
	TargetID int `json:"TargetId"`

	// Token match rule.
	InputKeys string `json:"InputKeys,omitempty"`

	// Comparison rule.
	ApplyComparison bool     `json:"ApplyComparison,omitempty"`
	OperandType     string   `json:"OperandType,omitempty"` // "tag" or "literal"
	CollectionTag   string   `json:"CollectionTag,omitempty"`
	Operator        Operator `json:"Operator,omitempty"`
	Value1          string   `json:"Value1,omitempty"`
	Value2          string   `json:"Value2,omitempty"`
}

// IsCatchAll reports whether the edge matches any result token.
func (e *EdgeSpec) IsCatchAll() bool {
	return e.InputKeys == "" && !e.ApplyComparison
}

// Operand types for comparison edges.
const (
	OperandTag     = "tag"
	OperandLiteral = "literal"
)

// Operator names a comparison used by branch nodes and comparison edges.
type Operator string

// The comparison operators.
const (
	OpEQ         Operator = "EQ"
	OpNE         Operator = "NE"
	OpGRT        Operator = "GRT"
	OpLST        Operator = "LST"
	OpGTE        Operator = "GTE"
	OpLTE        Operator = "LTE"
	OpIBW        Operator = "IBW"
	OpOBW        Operator = "OBW"
	OpContains   Operator = "CONTAINS"
	OpStartsWith Operator = "STARTS_WITH"
	OpEndsWith   Operator = "ENDS_WITH"
	OpIsEmpty    Operator = "IS_EMPTY"
	OpIsNotEmpty Operator = "IS_NOT_EMPTY"
)
