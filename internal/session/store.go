// Package session holds the per-call variable store and the template
// expander that threads values between flow nodes and API calls.
//
// A Store is created when a call arrives and discarded when it ends. It is
// never shared between calls, so it needs no locking; the flow driver runs
// one node at a time.
package session

import (
	"encoding/json"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Reserved variable names the engine reads and writes by convention.
const (
	VarUUID           = "uuid"
	VarCallerIDNumber = "caller_id_number"
	VarCallerIDName   = "caller_id_name"
	VarDomainName     = "domain_name"
	VarAccessToken    = "Access_token"

	// Written by a language-select node (op 30 with is_language_select).
	VarLanguageCode        = "LanguageCode"
	VarTTSLanguageCode     = "TTSLanguageCode"
	VarSTTLanguageCode     = "STTLanguageCode"
	VarTTSVoiceNameBuiltIn = "TTSVoiceNameBuiltIn"
	VarTTSVoiceNameCloud   = "TTSVoiceNameCloud"

	// Queue re-entry bookkeeping for op 101.
	VarLastNodeID   = "cc_last_nodeId"
	VarAgent        = "cc_agent"
	VarAgentBridged = "cc_agent_bridged"
	VarCancelReason = "cc_cancel_reason"

	// Populated by op 112 (provider-curl HTTP invoke).
	VarCurlResponseCode = "curl_response_code"
	VarCurlResponseData = "curl_response_data"
)

// MirrorFunc receives every write to the store. The driver installs the
// provider's session-variable setter here so provider-side features can
// observe engine state.
type MirrorFunc func(name, value string)

// Store is the per-call key/value scratchpad. Values are always strings on
// the wire; typed reads coerce at the read site.
type Store struct {
	values map[string]string
	mirror MirrorFunc
	logger *zap.Logger
}

// NewStore creates an empty store. A nil logger is replaced with a no-op.
func NewStore(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		values: make(map[string]string),
		logger: logger,
	}
}

// SetMirror installs a write observer. Pass nil to remove it.
func (s *Store) SetMirror(fn MirrorFunc) {
	s.mirror = fn
}

// Get returns the value for key and whether it is present.
func (s *Store) Get(key string) (string, bool) {
	v, ok := s.values[key]
	return v, ok
}

// GetDefault returns the value for key, or def when absent.
func (s *Store) GetDefault(key, def string) string {
	if v, ok := s.values[key]; ok {
		return v
	}
	return def
}

// Set stores value under key, overwriting any previous value.
func (s *Store) Set(key, value string) {
	s.values[key] = value
	if s.mirror != nil {
		s.mirror(key, value)
	}
}

// Delete removes key from the store.
func (s *Store) Delete(key string) {
	delete(s.values, key)
}

// Len returns the number of stored variables.
func (s *Store) Len() int {
	return len(s.values)
}

// GetInt reads key as an integer. A missing or malformed value yields def
// and logs the coercion failure.
func (s *Store) GetInt(key string, def int) int {
	v, ok := s.values[key]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(unquote(v)))
	if err != nil {
		s.logger.Warn("variable is not an integer",
			zap.String("name", key),
			zap.String("value", v),
		)
		return def
	}
	return n
}

// GetBool reads key as a boolean. Accepts the forms strconv does plus
// "yes"/"no". A missing or malformed value yields def.
func (s *Store) GetBool(key string, def bool) bool {
	v, ok := s.values[key]
	if !ok {
		return def
	}
	switch strings.ToLower(strings.TrimSpace(unquote(v))) {
	case "yes":
		return true
	case "no":
		return false
	}
	b, err := strconv.ParseBool(strings.TrimSpace(unquote(v)))
	if err != nil {
		s.logger.Warn("variable is not a boolean",
			zap.String("name", key),
			zap.String("value", v),
		)
		return def
	}
	return b
}

// GetJSON decodes the value stored under key into out. Used for values that
// hold a JSON subtree written by an API output mapping.
func (s *Store) GetJSON(key string, out any) bool {
	v, ok := s.values[key]
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(v), out); err != nil {
		s.logger.Warn("variable is not valid JSON",
			zap.String("name", key),
			zap.Error(err),
		)
		return false
	}
	return true
}

// Snapshot returns a copy of the current contents, for logging and tests.
func (s *Store) Snapshot() map[string]string {
	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// unquote strips one layer of JSON string quoting, if present. Values
// written by API output mappings may carry the JSON text of a string field.
func unquote(v string) string {
	if len(v) >= 2 && v[0] == '"' && v[len(v)-1] == '"' {
		var s string
		if err := json.Unmarshal([]byte(v), &s); err == nil {
			return s
		}
	}
	return v
}
