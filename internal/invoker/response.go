package invoker

import (
	"bytes"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/automax/ivrflow/internal/domain"
	"github.com/automax/ivrflow/internal/session"
)

// extractOutputs walks the API spec's output mapping over a successful response
// body and writes the extracted fields into the store. It returns false if
// any success validator failed.
//
// Parent lookups read the in-memory decoded response, not previously stored
// JSON text, so overlapping outputs compose.
func extractOutputs(api *domain.ApiSpec, body []byte, store *session.Store, logger *zap.Logger) bool {
	if len(api.Outputs) == 0 {
		return true
	}

	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(body, &decoded); err != nil {
		logger.Warn("api response is not a JSON object",
			zap.Int("api_id", api.APIID),
			zap.Error(err),
		)
		return false
	}

	ok := true
	for i := range api.Outputs {
		out := &api.Outputs[i]

		raw, found := lookupField(decoded, out)
		if !found {
			if out.DefaultValue != "" {
				store.Set(out.TagName, out.DefaultValue)
			}
			if out.IsSuccessValidator {
				ok = false
			}
			continue
		}

		value := stringifyField(raw)
		if out.TagName != "" {
			store.Set(out.TagName, value)
		}
		if out.IsSuccessValidator && value != out.SuccessValue {
			logger.Debug("success validator failed",
				zap.Int("api_id", api.APIID),
				zap.String("field", out.JSONField),
				zap.String("got", value),
				zap.String("want", out.SuccessValue),
			)
			ok = false
		}
	}
	return ok
}

// lookupField finds the output's field in the decoded response, descending
// through ParentField and list indexing as configured.
func lookupField(decoded map[string]json.RawMessage, out *domain.ApiOutput) (json.RawMessage, bool) {
	scope := decoded
	if out.ParentField != "" {
		parentRaw, ok := decoded[out.ParentField]
		if !ok {
			return nil, false
		}
		var parent map[string]json.RawMessage
		if err := json.Unmarshal(parentRaw, &parent); err != nil {
			return nil, false
		}
		scope = parent
	}

	raw, ok := scope[out.JSONField]
	if !ok {
		return nil, false
	}

	if out.IsList {
		var list []json.RawMessage
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, false
		}
		if out.ListIndex < 0 || out.ListIndex >= len(list) {
			return nil, false
		}
		raw = list[out.ListIndex]
	}
	return raw, true
}

// stringifyField renders a JSON subtree as the store's string value:
// strings are unquoted, every other value keeps its JSON text.
func stringifyField(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return s
		}
	}
	return string(trimmed)
}
