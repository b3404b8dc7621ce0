package engine

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/automax/ivrflow/internal/domain"
	apperrors "github.com/automax/ivrflow/internal/errors"
	"github.com/automax/ivrflow/internal/provider"
	"github.com/automax/ivrflow/internal/session"
)

// Provider global naming the audio played when no agent could be bridged.
const noAgentAudioGlobal = "cc_no_agent_audio"

const noAgentText = "We are unable to connect you to an agent at this time. Please try again later."

// handleQueueTransfer readies the roster and hands the call to the
// provider's queue. The call does not come back. Op 100.
func (e *Engine) handleQueueTransfer(ctx context.Context, r *run, _ *domain.Node) (string, error) {
	if err := e.prepareAgents(ctx, r, false); err != nil {
		return "", err
	}
	e.pause(ctx)
	queue := r.snap.QueueName(e.cfg.QueueName)
	if err := r.call.QueueDispatch(ctx, queue); err != nil {
		return "", apperrors.Wrap(err, "engine.queueTransfer", apperrors.CodeBridgeFailure, "queue dispatch failed")
	}
	e.metrics.RecordQueueHandoff(false)
	r.handedOff = true
	return "", nil
}

// handleQueueTransferEval is queue transfer with a post-call evaluation
// leg: the node id is parked in the session so the call re-enters the
// flow at this node's first edge when the agent hangs up. Op 101.
func (e *Engine) handleQueueTransferEval(ctx context.Context, r *run, node *domain.Node) (string, error) {
	if err := e.prepareAgents(ctx, r, true); err != nil {
		return "", err
	}
	r.store.Set(session.VarLastNodeID, strconv.Itoa(node.ID))
	r.call.SetAutoHangup(false)
	e.pause(ctx)
	if err := r.call.TransferForEvaluation(ctx, e.cfg.EvaluationDestination); err != nil {
		return "", apperrors.Wrap(err, "engine.queueTransferEval", apperrors.CodeBridgeFailure, "evaluation transfer failed")
	}
	e.metrics.RecordQueueHandoff(true)
	r.handedOff = true
	return "", nil
}

// prepareAgents pushes the roster into the provider's call-center plane:
// supervisors go idle, registered agents become available and waiting,
// unregistered ones are logged out. The evaluation variant additionally
// skips agents flagged busy or already on a queue call.
func (e *Engine) prepareAgents(ctx context.Context, r *run, evaluation bool) error {
	available := 0
	for _, agent := range r.snap.Agents() {
		if !agent.IsAgent {
			if err := e.provider.AgentSetState(ctx, agent.Extension, string(domain.AgentIdle)); err != nil {
				r.logger.Warn("supervisor state push failed",
					zap.String("extension", agent.Extension),
					zap.Error(err),
				)
			}
			continue
		}

		if evaluation {
			if dnd, err := e.provider.AgentDoNotDisturb(ctx, agent.Extension); err == nil && dnd == domain.StatusBusy {
				continue
			}
			if state, err := e.provider.AgentQueueState(ctx, agent.Extension); err == nil && state == string(domain.AgentInCall) {
				continue
			}
		}

		registered, err := e.provider.AgentRegistered(ctx, agent.Extension)
		if err != nil {
			r.logger.Warn("registration lookup failed",
				zap.String("extension", agent.Extension),
				zap.Error(err),
			)
			continue
		}
		if !registered {
			if err := e.provider.AgentSetStatus(ctx, agent.Extension, domain.StatusLoggedOut); err != nil {
				r.logger.Warn("status push failed",
					zap.String("extension", agent.Extension),
					zap.Error(err),
				)
			}
			continue
		}

		if err := e.provider.AgentSetStatus(ctx, agent.Extension, domain.StatusAvailable); err != nil {
			r.logger.Warn("status push failed",
				zap.String("extension", agent.Extension),
				zap.Error(err),
			)
			continue
		}
		e.provider.AgentSetContact(ctx, agent.Extension, "user/"+agent.Extension)
		e.provider.AgentSetState(ctx, agent.Extension, string(domain.AgentWaiting))
		available++
	}
	e.metrics.SetAgentsAvailable(available)
	r.logger.Info("agents prepared",
		zap.Int("available", available),
		zap.Bool("evaluation", evaluation),
	)
	return nil
}

// playNoAgentMessage tells the caller the transfer failed, preferring the
// provider's canned audio over synthesis.
func (e *Engine) playNoAgentMessage(ctx context.Context, call provider.Call, store *session.Store) {
	if audio := e.provider.GetGlobal(noAgentAudioGlobal); audio != "" {
		if err := call.Play(ctx, audio); err == nil {
			return
		}
	}
	voice := store.GetDefault(session.VarTTSVoiceNameBuiltIn, "")
	call.Speak(ctx, "builtin", voice, noAgentText)
}
