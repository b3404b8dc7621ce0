package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/automax/ivrflow/internal/domain"
	apperrors "github.com/automax/ivrflow/internal/errors"
	"github.com/automax/ivrflow/internal/provider"
	"github.com/automax/ivrflow/internal/registry"
	"github.com/automax/ivrflow/internal/session"
)

// Hangup causes handed to the provider.
const (
	causeNormal   = "NORMAL_CLEARING"
	causeTempFail = "NORMAL_TEMPORARY_FAILURE"
)

// Call outcomes recorded per completed call.
const (
	outcomeCompleted  = "completed"
	outcomeQueued     = "queued"
	outcomeAborted    = "aborted"
	outcomeFailed     = "failed"
	outcomeGateClosed = "gate_closed"
	outcomeNoAgent    = "no_agent"
)

// RunCall drives one call from answer to release. It never panics; every
// handler fault is contained and ends only this call. The returned error
// reports why a call failed, for the caller's logging; a clean
// completion, queue handoff or caller hangup returns nil.
func (e *Engine) RunCall(ctx context.Context, call provider.Call) error {
	snap := e.registry.Current()
	logger := e.logger.With(zap.String("call_id", call.ID()))

	e.metrics.RecordCallStarted()
	start := e.clk.Now()
	outcome := outcomeCompleted
	var runErr error
	defer func() {
		e.metrics.RecordCallCompleted(outcome, e.clk.Since(start))
		logger.Info("call finished", zap.String("outcome", outcome))
	}()

	if err := call.Answer(); err != nil {
		outcome = outcomeFailed
		return apperrors.Wrap(err, "engine.RunCall", apperrors.CodeInternal, "answer failed")
	}

	if call.GetSessionVar(session.VarLastNodeID) != "" {
		outcome, runErr = e.reenter(ctx, call, snap, logger)
		return runErr
	}

	store := session.NewStore(logger)
	store.SetMirror(call.SetSessionVar)
	store.Set(session.VarUUID, call.ID())
	store.Set(session.VarCallerIDNumber, call.CallerIDNumber())
	store.Set(session.VarCallerIDName, call.CallerIDName())
	store.Set(session.VarDomainName, call.Domain())

	if !e.gate.Open(snap) {
		e.metrics.RecordGateClosed()
		if audio := snap.UnavailabilityAudio(); audio != "" {
			call.Play(ctx, audio)
		}
		call.Hangup(causeNormal)
		outcome = outcomeGateClosed
		return nil
	}

	r := &run{call: call, store: store, snap: snap, logger: logger}

	node := snap.StartNode()
	if node == nil {
		call.Hangup(causeTempFail)
		outcome = outcomeFailed
		return apperrors.New(apperrors.CodeMissingStartNode, "no start node in active configuration")
	}

	outcome, runErr = e.finish(ctx, r, e.runLoop(ctx, r, node))
	return runErr
}

// finish translates the loop's exit into hangup and outcome.
func (e *Engine) finish(ctx context.Context, r *run, err error) (string, error) {
	switch {
	case err == nil && r.handedOff:
		// The queue owns the call now.
		return outcomeQueued, nil
	case err == nil:
		r.call.Hangup(causeNormal)
		return outcomeCompleted, nil
	case apperrors.CodeOf(err) == apperrors.CodeCallAborted:
		// The caller is already gone; nothing to hang up.
		return outcomeAborted, nil
	default:
		r.logger.Error("call failed", zap.Error(err))
		r.call.Hangup(causeTempFail)
		return outcomeFailed, err
	}
}

// runLoop walks the graph from node until termination, handoff, hangup
// or a fatal error. External failures become the "F" token and stay
// inside the flow; everything else ends the call.
func (e *Engine) runLoop(ctx context.Context, r *run, node *domain.Node) error {
	for transitions := 0; ; transitions++ {
		if transitions > e.cfg.LoopLimit {
			e.metrics.RecordLoopLimit()
			return apperrors.Newf(apperrors.CodeLoopLimit, "exceeded %d node transitions", e.cfg.LoopLimit)
		}

		token, err := e.execute(ctx, r, node)
		if err != nil {
			if apperrors.KindOf(err) != apperrors.KindExternal {
				return err
			}
			r.logger.Warn("external failure", zap.Int("node", node.ID), zap.Error(err))
			token = TokenFailure
		}

		if r.handedOff {
			return nil
		}
		if r.call.Hungup() {
			return apperrors.New(apperrors.CodeCallAborted, "caller hung up")
		}
		if r.terminated || node.OpCode == domain.OpTerminate {
			return nil
		}

		var edge *domain.EdgeSpec
		if linearOp(node.OpCode) {
			if len(node.Edges) == 0 {
				return nil
			}
			edge = &node.Edges[0]
		} else {
			edge, err = selectEdge(node, token, r.store, r.logger)
			if err != nil {
				e.metrics.RecordDeadEnd()
				return err
			}
			if edge == nil {
				return nil
			}
		}

		next, ok := r.snap.Node(edge.TargetID)
		if !ok {
			return apperrors.Newf(apperrors.CodeUnknownNode, "edge from node %d targets unknown node %d", node.ID, edge.TargetID)
		}
		r.logger.Debug("transition",
			zap.Int("from", node.ID),
			zap.Int("to", next.ID),
			zap.String("token", token),
		)
		node = next
	}
}

// execute runs one node handler inside the fault boundary.
func (e *Engine) execute(ctx context.Context, r *run, node *domain.Node) (token string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			e.metrics.RecordPanic()
			r.logger.Error("handler panic",
				zap.Int("node", node.ID),
				zap.Int("op_code", int(node.OpCode)),
				zap.Any("panic", rec),
				zap.Stack("stack"),
			)
			token = ""
			err = apperrors.New(apperrors.CodeHandlerPanic, fmt.Sprintf("panic in node %d: %v", node.ID, rec))
		}
	}()

	h, ok := e.handlers[node.OpCode]
	if !ok {
		return "", apperrors.UnknownOpCode(node.ID, int(node.OpCode))
	}
	token, err = h(ctx, r, node)
	if err == nil {
		e.metrics.RecordNodeExecution(int(node.OpCode), token)
	}
	return token, err
}

// reenter resumes a call coming back from an op-101 evaluation transfer.
// The variable store is rebuilt from the provider session, into which
// every write was mirrored before handoff.
func (e *Engine) reenter(ctx context.Context, call provider.Call, snap *registry.Snapshot, logger *zap.Logger) (string, error) {
	store := session.NewStore(logger)
	for name, value := range call.ExportSessionVars() {
		store.Set(name, value)
	}
	store.SetMirror(call.SetSessionVar)

	nodeID := store.GetInt(session.VarLastNodeID, 0)
	node, ok := snap.Node(nodeID)
	if !ok {
		call.Hangup(causeTempFail)
		return outcomeFailed, apperrors.Newf(apperrors.CodeUnknownNode, "re-entry node %d not in active configuration", nodeID)
	}

	bridged := store.GetDefault(session.VarAgentBridged, "") == "true"
	e.metrics.RecordReentry(bridged)
	logger.Info("call re-entry",
		zap.Int("node", nodeID),
		zap.Bool("bridged", bridged),
		zap.String("cancel_reason", store.GetDefault(session.VarCancelReason, "")),
	)

	if !bridged {
		e.playNoAgentMessage(ctx, call, store)
		call.Hangup(causeNormal)
		return outcomeNoAgent, nil
	}

	// The evaluation follow-up starts at the transfer node's first edge.
	store.Delete(session.VarLastNodeID)
	call.SetSessionVar(session.VarLastNodeID, "")
	if len(node.Edges) == 0 {
		call.Hangup(causeNormal)
		return outcomeCompleted, nil
	}
	next, ok := snap.Node(node.Edges[0].TargetID)
	if !ok {
		call.Hangup(causeTempFail)
		return outcomeFailed, apperrors.Newf(apperrors.CodeUnknownNode, "re-entry edge targets unknown node %d", node.Edges[0].TargetID)
	}

	r := &run{call: call, store: store, snap: snap, logger: logger}
	return e.finish(ctx, r, e.runLoop(ctx, r, next))
}
