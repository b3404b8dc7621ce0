package engine

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/automax/ivrflow/internal/domain"
	apperrors "github.com/automax/ivrflow/internal/errors"
	"github.com/automax/ivrflow/internal/provider"
)

// handleRecord captures caller audio under the node's recording profile.
// A recording with voice energy stores its path under the tag name and
// yields "S"; silence yields "D". Op 40.
func (e *Engine) handleRecord(ctx context.Context, r *run, node *domain.Node) (string, error) {
	profile, ok := r.snap.Recording(node.RecordingTypeID)
	if !ok {
		return "", apperrors.Newf(apperrors.CodeInternal, "recording profile %d not configured", node.RecordingTypeID)
	}

	path := filepath.Join(e.cfg.RecordingDir, fmt.Sprintf("%s_%s.wav", profile.FilenamePrefix, r.call.ID()))
	err := r.call.Record(ctx, provider.RecordParams{
		Path:             path,
		MaxDurationSec:   profile.MaxDuration,
		SilenceThreshold: e.cfg.SilenceThreshold,
		SilenceSeconds:   e.cfg.SilenceSeconds,
	})
	if err != nil {
		return "", apperrors.Wrap(err, "engine.record", apperrors.CodeMissingFile, "recording failed")
	}
	if r.call.Hungup() {
		return "", apperrors.New(apperrors.CodeCallAborted, "caller hung up during recording")
	}

	hasVoice, err := e.provider.FileHasVoice(path)
	if err != nil {
		return "", apperrors.Wrap(err, "engine.record", apperrors.CodeMissingFile, "voice detection failed")
	}
	if !hasVoice {
		return TokenDefault, nil
	}
	if node.TagName != "" {
		r.store.Set(node.TagName, path)
	}
	return TokenSuccess, nil
}
