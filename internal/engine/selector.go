package engine

import (
	"go.uber.org/zap"

	"github.com/automax/ivrflow/internal/domain"
	apperrors "github.com/automax/ivrflow/internal/errors"
	"github.com/automax/ivrflow/internal/session"
)

// selectEdge picks the node to run next from the result token the handler
// produced. Edges are walked in declaration order and the first one whose
// own rule matches wins:
//
//   - a comparison edge matches when its predicate holds against the store
//   - a keyed edge matches when InputKeys equals the token exactly, so an
//     empty token never takes a keyed edge
//   - an edge with no keys and no comparison is a catch-all and always
//     matches
//
// A nil return with a nil error means the node has no edges at all and the
// call flow ends there.
func selectEdge(node *domain.Node, token string, store *session.Store, logger *zap.Logger) (*domain.EdgeSpec, error) {
	if len(node.Edges) == 0 {
		return nil, nil
	}

	for i := range node.Edges {
		edge := &node.Edges[i]
		switch {
		case edge.ApplyComparison:
			if evaluateComparison(edge, store, logger) {
				return edge, nil
			}
		case edge.InputKeys != "":
			if edge.InputKeys == token {
				return edge, nil
			}
		default:
			return edge, nil
		}
	}

	return nil, apperrors.DeadEnd(node.ID, token)
}
