package engine

import (
	"context"
	"encoding/json"
	"strconv"

	"go.uber.org/zap"

	"github.com/automax/ivrflow/internal/domain"
	apperrors "github.com/automax/ivrflow/internal/errors"
	"github.com/automax/ivrflow/internal/session"
)

// handleHTTPInvoke executes the node's catalog API with full output
// mapping. "S" when the call and every success validator passed. Op 111.
func (e *Engine) handleHTTPInvoke(ctx context.Context, r *run, node *domain.Node) (string, error) {
	api, ok := r.snap.API(node.APIID)
	if !ok {
		return "", apperrors.UnknownAPI(node.APIID)
	}
	res, err := e.invoker.Invoke(ctx, api, r.store)
	if err != nil {
		return "", err
	}
	if res.Success {
		return TokenSuccess, nil
	}
	return TokenFailure, nil
}

// handleHTTPInvokeCurl executes the node's catalog API and exposes the
// raw status and body to subsequent nodes through the reserved
// curl_response_code and curl_response_data variables. Op 112.
func (e *Engine) handleHTTPInvokeCurl(ctx context.Context, r *run, node *domain.Node) (string, error) {
	api, ok := r.snap.API(node.APIID)
	if !ok {
		return "", apperrors.UnknownAPI(node.APIID)
	}
	res, err := e.invoker.Execute(ctx, api, r.store)
	if err != nil {
		return "", err
	}
	r.store.Set(session.VarCurlResponseCode, strconv.Itoa(res.StatusCode))
	r.store.Set(session.VarCurlResponseData, string(res.Body))
	if res.StatusCode >= 200 && res.StatusCode < 300 {
		return TokenSuccess, nil
	}
	return TokenFailure, nil
}

// handleSpeechToText uploads the captured recording to the node's STT API
// and stores the transcription field under the tag name. Op 341.
func (e *Engine) handleSpeechToText(ctx context.Context, r *run, node *domain.Node) (string, error) {
	api, ok := r.snap.API(node.APIID)
	if !ok {
		return "", apperrors.UnknownAPI(node.APIID)
	}
	res, err := e.invoker.Execute(ctx, api, r.store)
	if err != nil {
		return "", err
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return TokenFailure, nil
	}

	field := r.snap.STTResponseField()
	if field == "" {
		r.logger.Warn("no transcription field configured")
		return TokenFailure, nil
	}
	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(res.Body, &decoded); err != nil {
		r.logger.Warn("transcription response is not a JSON object", zap.Error(err))
		return TokenFailure, nil
	}
	raw, ok := decoded[field]
	if !ok {
		r.logger.Warn("transcription field absent", zap.String("field", field))
		return TokenFailure, nil
	}
	if node.TagName != "" {
		r.store.Set(node.TagName, jsonText(raw))
	}
	return TokenSuccess, nil
}

// jsonText renders a decoded JSON subtree as the stored string form:
// strings lose their quotes, everything else keeps its JSON text.
func jsonText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// handleBranch produces no token; the selector alone decides the edge
// from its comparison rules. Op 120.
func (e *Engine) handleBranch(_ context.Context, _ *run, _ *domain.Node) (string, error) {
	return "", nil
}

// handleTerminate marks the call finished. Op 200.
func (e *Engine) handleTerminate(_ context.Context, r *run, _ *domain.Node) (string, error) {
	r.terminated = true
	return "", nil
}
