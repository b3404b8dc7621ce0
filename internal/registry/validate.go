package registry

import (
	"github.com/automax/ivrflow/internal/domain"
	apperrors "github.com/automax/ivrflow/internal/errors"
)

// validate enforces the load-time invariants: exactly one start node, every
// edge target resolves, every referenced API id exists, every op code is
// known. A violation refuses the whole snapshot.
func validate(snap *Snapshot) error {
	if len(snap.nodes) == 0 {
		return apperrors.New(apperrors.CodeConfigParse, "flow config defines no nodes")
	}
	if snap.start == nil {
		return apperrors.New(apperrors.CodeMissingStartNode, "no node flagged as start")
	}

	for _, node := range snap.nodes {
		if !node.OpCode.Known() {
			return apperrors.Newf(apperrors.CodeConfigParse,
				"node %d (%s) has unknown op code %d", node.ID, node.Name, node.OpCode)
		}
		for i := range node.Edges {
			edge := &node.Edges[i]
			if _, ok := snap.nodes[edge.TargetID]; !ok {
				return apperrors.UnresolvedEdge(node.ID, edge.TargetID)
			}
		}
		switch node.OpCode {
		case domain.OpHTTPInvoke, domain.OpHTTPInvokeCurl, domain.OpSpeechToText:
			if _, ok := snap.apis[node.APIID]; !ok {
				return apperrors.Newf(apperrors.CodeConfigParse,
					"node %d references undefined api %d", node.ID, node.APIID)
			}
		case domain.OpRecord:
			if _, ok := snap.recordings[node.RecordingTypeID]; !ok && len(snap.recordings) > 0 {
				return apperrors.Newf(apperrors.CodeConfigParse,
					"node %d references undefined recording profile %d", node.ID, node.RecordingTypeID)
			}
		}
	}
	return nil
}
