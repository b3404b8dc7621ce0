package engine

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/automax/ivrflow/internal/domain"
	apperrors "github.com/automax/ivrflow/internal/errors"
	"github.com/automax/ivrflow/internal/provider"
	"github.com/automax/ivrflow/internal/session"
)

// keySet parses a ValidKeys list such as "1,2,3" into a membership set.
// An empty list means every key is acceptable.
func keySet(validKeys string) map[string]bool {
	set := make(map[string]bool)
	for _, k := range strings.Split(validKeys, ",") {
		k = strings.TrimSpace(k)
		if k != "" {
			set[k] = true
		}
	}
	return set
}

// keyRegex renders a ValidKeys list as an alternation for the provider's
// digit matcher, e.g. "1,2,3" becomes "1|2|3".
func keyRegex(validKeys string) string {
	var parts []string
	for _, k := range strings.Split(validKeys, ",") {
		k = strings.TrimSpace(k)
		if k != "" {
			parts = append(parts, regexp.QuoteMeta(k))
		}
	}
	return strings.Join(parts, "|")
}

func allValid(digits string, valid map[string]bool) bool {
	if len(valid) == 0 {
		return true
	}
	for i := 0; i < len(digits); i++ {
		if !valid[string(digits[i])] {
			return false
		}
	}
	return true
}

// retryBudget returns how many times the node replays after the first
// attempt. A non-repetitive node never retries.
func retryBudget(node *domain.Node) int {
	if !node.IsRepetitive {
		return 0
	}
	if node.RepeatLimit < 0 {
		return 0
	}
	return node.RepeatLimit
}

// handleCollectDigits collects a fixed-length digit string. Op 20.
//
// Full valid input stores the digits under the tag name and yields "#".
// A timeout with the use-default policy stores DefaultInput and yields
// "D". Exhausting the retry budget yields "T" on silence, "X" otherwise.
func (e *Engine) handleCollectDigits(ctx context.Context, r *run, node *domain.Node) (string, error) {
	valid := keySet(node.ValidKeys)
	retries := retryBudget(node)

	if node.VoiceFileID != "" {
		if err := r.call.Play(ctx, node.VoiceFileID); err != nil {
			return "", apperrors.Wrap(err, "engine.collectDigits", apperrors.CodeMissingFile, "prompt playback failed")
		}
	}

	for attempt := 0; ; attempt++ {
		digits, err := r.call.ReadDigits(ctx, provider.DigitsParams{
			MinLength:  node.InputLength,
			MaxLength:  node.InputLength,
			Attempts:   1,
			TimeoutMS:  node.InputTimeLimit * 1000,
			Terminator: "#",
		})
		if err != nil {
			return "", apperrors.Wrap(err, "engine.collectDigits", apperrors.CodeInternal, "digit collection failed")
		}
		if r.call.Hungup() {
			return "", apperrors.New(apperrors.CodeCallAborted, "caller hung up during input")
		}

		switch {
		case digits == "":
			if node.TimeLimitResponseType == domain.TimeLimitUseDefault {
				if node.DefaultInput != "" && node.TagName != "" {
					r.store.Set(node.TagName, node.DefaultInput)
				}
				return TokenDefault, nil
			}
			if attempt >= retries {
				return TokenTimeout, nil
			}
		case len(digits) == node.InputLength && allValid(digits, valid):
			if node.TagName != "" {
				r.store.Set(node.TagName, digits)
			}
			return TokenComplete, nil
		default:
			if attempt >= retries {
				return TokenInvalid, nil
			}
		}

		if node.InvalidInputVoiceFileID != "" {
			if err := r.call.Play(ctx, node.InvalidInputVoiceFileID); err != nil {
				return "", apperrors.Wrap(err, "engine.collectDigits", apperrors.CodeMissingFile, "retry prompt failed")
			}
		}
	}
}

// handlePromptDigit plays a prompt and collects one digit. Ops 30 and 31
// share this handler; op 31 takes its prompt from the file a previous
// node stored under the tag name.
//
// The returned token is the digit itself, "D" when the use-default policy
// fires with no default configured, or "X" after exhaustion.
func (e *Engine) handlePromptDigit(ctx context.Context, r *run, node *domain.Node) (string, error) {
	prompt := node.VoiceFileID
	if node.OpCode == domain.OpPlayCapturedDigit {
		prompt = r.store.GetDefault(node.TagName, "")
		if prompt == "" {
			r.logger.Warn("no captured prompt file",
				zap.Int("node", node.ID),
				zap.String("tag", node.TagName),
			)
			r.terminated = true
			return "", nil
		}
	}

	valid := keySet(node.ValidKeys)
	regex := keyRegex(node.ValidKeys)
	retries := retryBudget(node)

	for attempt := 0; ; attempt++ {
		p := provider.DigitsParams{
			PromptFile:        prompt,
			InvalidPromptFile: node.InvalidInputVoiceFileID,
			MinLength:         1,
			MaxLength:         1,
			Attempts:          1,
			TimeoutMS:         node.InputTimeLimit * 1000,
			Regex:             regex,
		}
		if attempt > 0 && node.InvalidInputVoiceFileID != "" {
			p.PromptFile = node.InvalidInputVoiceFileID
		}
		digit, err := r.call.PlayAndGetDigits(ctx, p)
		if err != nil {
			return "", apperrors.Wrap(err, "engine.promptDigit", apperrors.CodeInternal, "digit collection failed")
		}
		if r.call.Hungup() {
			return "", apperrors.New(apperrors.CodeCallAborted, "caller hung up during input")
		}

		if digit == "" {
			if node.TimeLimitResponseType == domain.TimeLimitUseDefault {
				if node.DefaultInput == "" {
					return TokenDefault, nil
				}
				return e.acceptDigit(r, node, node.DefaultInput), nil
			}
			if attempt >= retries {
				return TokenInvalid, nil
			}
			continue
		}
		if len(valid) == 0 || valid[digit] {
			return e.acceptDigit(r, node, digit), nil
		}
		if attempt >= retries {
			return TokenInvalid, nil
		}
	}
}

// acceptDigit records a collected digit. A language-select node copies
// the matched language row into the store; any other node stores the
// digit under the tag name with the optional prefix. The digit is the
// result token either way.
func (e *Engine) acceptDigit(r *run, node *domain.Node, digit string) string {
	if node.IsLanguageSelect {
		code, err := strconv.Atoi(digit)
		if err == nil {
			if row, ok := r.snap.Language(code); ok {
				r.store.Set(session.VarLanguageCode, strconv.Itoa(row.LanguageCode))
				r.store.Set("LanguageName", row.LanguageName)
				r.store.Set(session.VarTTSLanguageCode, row.TTSLanguageCode)
				r.store.Set(session.VarSTTLanguageCode, row.STTLanguageCode)
				r.store.Set(session.VarTTSVoiceNameBuiltIn, row.TTSVoiceNameBuiltIn)
				r.store.Set(session.VarTTSVoiceNameCloud, row.TTSVoiceNameCloud)
			} else {
				r.logger.Warn("no language row for digit", zap.String("digit", digit))
			}
		}
		return digit
	}
	if node.TagName != "" {
		r.store.Set(node.TagName, node.TagValuePrefix+digit)
	}
	return digit
}
