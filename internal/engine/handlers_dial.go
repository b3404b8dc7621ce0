package engine

import (
	"context"

	"go.uber.org/zap"

	"github.com/automax/ivrflow/internal/domain"
	apperrors "github.com/automax/ivrflow/internal/errors"
	"github.com/automax/ivrflow/internal/provider"
)

// handleExtensionDial collects an extension, verifies it against the
// provider directory and bridges to it. Op 105.
func (e *Engine) handleExtensionDial(ctx context.Context, r *run, node *domain.Node) (string, error) {
	length := node.InputLength
	if length <= 0 {
		length = 4
	}
	ext, err := r.call.ReadDigits(ctx, provider.DigitsParams{
		MinLength:  length,
		MaxLength:  length,
		Attempts:   1,
		TimeoutMS:  node.InputTimeLimit * 1000,
		Terminator: "#",
	})
	if err != nil {
		return "", apperrors.Wrap(err, "engine.extensionDial", apperrors.CodeInternal, "extension collection failed")
	}
	if r.call.Hungup() {
		return "", apperrors.New(apperrors.CodeCallAborted, "caller hung up during input")
	}
	if ext == "" || !allValid(ext, keySet(node.ValidKeys)) {
		return TokenFailure, nil
	}
	exists, err := e.provider.DirectoryExists(ctx, ext, r.call.Domain())
	if err != nil {
		return "", apperrors.Wrap(err, "engine.extensionDial", apperrors.CodeUnknownExtension, "directory lookup failed")
	}
	if !exists {
		r.logger.Info("extension not in directory", zap.String("extension", ext))
		return TokenFailure, nil
	}
	return e.bridge(ctx, r, "user/"+ext+"@"+r.call.Domain())
}

// handleDirectExtension bridges to the extension named by ValidKeys. Op 107.
func (e *Engine) handleDirectExtension(ctx context.Context, r *run, node *domain.Node) (string, error) {
	return e.bridge(ctx, r, "user/"+node.ValidKeys+"@"+r.call.Domain())
}

// handleExternalDial bridges to the number in ValidKeys through the
// provider's default gateway. Op 108.
func (e *Engine) handleExternalDial(ctx context.Context, r *run, node *domain.Node) (string, error) {
	gateway := e.provider.GetGlobal("default_gateway")
	if gateway == "" {
		r.logger.Warn("no default gateway configured")
		return TokenFailure, nil
	}
	return e.bridge(ctx, r, "sofia/gateway/"+gateway+"/"+node.ValidKeys)
}

func (e *Engine) bridge(ctx context.Context, r *run, dialString string) (string, error) {
	cause, err := r.call.Bridge(ctx, dialString)
	if err != nil {
		r.logger.Warn("bridge failed",
			zap.String("dial_string", dialString),
			zap.Error(err),
		)
		return TokenFailure, nil
	}
	r.logger.Info("bridge ended",
		zap.String("dial_string", dialString),
		zap.String("cause", cause),
	)
	return TokenSuccess, nil
}
