package engine

import (
	"context"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/automax/ivrflow/internal/domain"
	apperrors "github.com/automax/ivrflow/internal/errors"
	"github.com/automax/ivrflow/internal/session"
)

// handlePlayAudio plays the node's voice file. Op 10.
func (e *Engine) handlePlayAudio(ctx context.Context, r *run, node *domain.Node) (string, error) {
	if err := r.call.Play(ctx, node.VoiceFileID); err != nil {
		return "", apperrors.Wrap(err, "engine.playAudio", apperrors.CodeMissingFile, "playback failed")
	}
	return TokenSuccess, nil
}

// handlePlayCapturedFile plays the file whose path a previous node stored
// under the tag name. A missing path ends the call. Op 11.
func (e *Engine) handlePlayCapturedFile(ctx context.Context, r *run, node *domain.Node) (string, error) {
	path := r.store.GetDefault(node.TagName, "")
	if path == "" {
		r.logger.Warn("no captured file to play",
			zap.Int("node", node.ID),
			zap.String("tag", node.TagName),
		)
		r.terminated = true
		return "", nil
	}
	if err := r.call.Play(ctx, path); err != nil {
		return "", apperrors.Wrap(err, "engine.playCapturedFile", apperrors.CodeMissingFile, "playback failed")
	}
	return TokenSuccess, nil
}

// handlePlayDigits speaks the first digit run of the variable named by
// DefaultInput, one per-language audio file per digit. Op 50.
func (e *Engine) handlePlayDigits(ctx context.Context, r *run, node *domain.Node) (string, error) {
	value := r.store.GetDefault(node.DefaultInput, "")
	digits := firstDigitRun(value)
	if digits == "" {
		r.logger.Debug("nothing to play", zap.String("variable", node.DefaultInput))
		return TokenSuccess, nil
	}
	lang := r.store.GetDefault(session.VarLanguageCode, "1")
	for i := 0; i < len(digits); i++ {
		file := filepath.Join(e.cfg.DigitAudioDir, lang, string(digits[i])+".wav")
		if err := r.call.Play(ctx, file); err != nil {
			return "", apperrors.Wrap(err, "engine.playDigits", apperrors.CodeMissingFile, "playback failed")
		}
		if r.call.Hungup() {
			break
		}
	}
	return TokenSuccess, nil
}

// handleSpeak synthesizes the expanded DefaultInput text. Ops 330 and 331
// share this handler; the op code selects the engine and voice variable.
func (e *Engine) handleSpeak(ctx context.Context, r *run, node *domain.Node) (string, error) {
	text := spaceFirstDigitRun(r.store.Expand(node.DefaultInput))
	engineName := "builtin"
	voice := r.store.GetDefault(session.VarTTSVoiceNameBuiltIn, "")
	if node.OpCode == domain.OpTTSCloud {
		engineName = "cloud"
		voice = r.store.GetDefault(session.VarTTSVoiceNameCloud, "")
	}
	if err := r.call.Speak(ctx, engineName, voice, text); err != nil {
		return "", apperrors.Wrap(err, "engine.speak", apperrors.CodeMissingFile, "synthesis failed")
	}
	return TokenSuccess, nil
}
