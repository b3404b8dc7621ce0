package engine

import (
	"testing"

	"go.uber.org/zap"

	"github.com/automax/ivrflow/internal/domain"
	apperrors "github.com/automax/ivrflow/internal/errors"
	"github.com/automax/ivrflow/internal/session"
)

func TestSelectEdge(t *testing.T) {
	logger := zap.NewNop()

	node := &domain.Node{
		ID: 50,
		Edges: []domain.EdgeSpec{
			{TargetID: 100, InputKeys: "1"},
			{TargetID: 200, InputKeys: "2"},
			{TargetID: 300, ApplyComparison: true, OperandType: "tag", CollectionTag: "CustomerType", Operator: domain.OpEQ, Value1: "VIP"},
			{TargetID: 400},
		},
	}

	t.Run("key match wins", func(t *testing.T) {
		store := session.NewStore(logger)
		store.Set("CustomerType", "VIP")
		edge, err := selectEdge(node, "2", store, logger)
		if err != nil || edge == nil || edge.TargetID != 200 {
			t.Fatalf("selectEdge = %+v, %v; want target 200", edge, err)
		}
	})

	t.Run("comparison before catch-all", func(t *testing.T) {
		store := session.NewStore(logger)
		store.Set("CustomerType", "VIP")
		edge, err := selectEdge(node, "S", store, logger)
		if err != nil || edge == nil || edge.TargetID != 300 {
			t.Fatalf("selectEdge = %+v, %v; want target 300", edge, err)
		}
	})

	t.Run("catch-all when nothing matches", func(t *testing.T) {
		store := session.NewStore(logger)
		edge, err := selectEdge(node, "S", store, logger)
		if err != nil || edge == nil || edge.TargetID != 400 {
			t.Fatalf("selectEdge = %+v, %v; want target 400", edge, err)
		}
	})

	t.Run("empty token skips key edges", func(t *testing.T) {
		store := session.NewStore(logger)
		store.Set("CustomerType", "VIP")
		edge, err := selectEdge(node, "", store, logger)
		if err != nil || edge == nil || edge.TargetID != 300 {
			t.Fatalf("selectEdge = %+v, %v; want target 300", edge, err)
		}
	})

	t.Run("dead end", func(t *testing.T) {
		only := &domain.Node{
			ID: 51,
			Edges: []domain.EdgeSpec{
				{TargetID: 100, InputKeys: "1"},
				{TargetID: 200, InputKeys: "2"},
			},
		}
		store := session.NewStore(logger)
		edge, err := selectEdge(only, "X", store, logger)
		if edge != nil {
			t.Fatalf("edge = %+v, want nil", edge)
		}
		if apperrors.CodeOf(err) != apperrors.CodeDeadEnd {
			t.Fatalf("err = %v, want dead-end", err)
		}
	})

	t.Run("no edges ends the flow", func(t *testing.T) {
		leaf := &domain.Node{ID: 52}
		store := session.NewStore(logger)
		edge, err := selectEdge(leaf, "S", store, logger)
		if edge != nil || err != nil {
			t.Fatalf("selectEdge = %+v, %v; want nil, nil", edge, err)
		}
	})

	t.Run("earlier comparison outranks later key match", func(t *testing.T) {
		mixed := &domain.Node{
			ID: 54,
			Edges: []domain.EdgeSpec{
				{TargetID: 300, ApplyComparison: true, OperandType: "tag", CollectionTag: "CustomerType", Operator: domain.OpEQ, Value1: "VIP"},
				{TargetID: 200, InputKeys: "S"},
			},
		}
		store := session.NewStore(logger)
		store.Set("CustomerType", "VIP")
		edge, err := selectEdge(mixed, "S", store, logger)
		if err != nil || edge == nil || edge.TargetID != 300 {
			t.Fatalf("selectEdge = %+v, %v; want target 300", edge, err)
		}
	})

	t.Run("earlier catch-all outranks later key match", func(t *testing.T) {
		mixed := &domain.Node{
			ID: 55,
			Edges: []domain.EdgeSpec{
				{TargetID: 400},
				{TargetID: 100, InputKeys: "1"},
			},
		}
		store := session.NewStore(logger)
		edge, err := selectEdge(mixed, "1", store, logger)
		if err != nil || edge == nil || edge.TargetID != 400 {
			t.Fatalf("selectEdge = %+v, %v; want target 400", edge, err)
		}
	})

	t.Run("declaration order within key edges", func(t *testing.T) {
		dup := &domain.Node{
			ID: 53,
			Edges: []domain.EdgeSpec{
				{TargetID: 100, InputKeys: "1"},
				{TargetID: 200, InputKeys: "1"},
			},
		}
		store := session.NewStore(logger)
		edge, err := selectEdge(dup, "1", store, logger)
		if err != nil || edge == nil || edge.TargetID != 100 {
			t.Fatalf("selectEdge = %+v, %v; want target 100", edge, err)
		}
	})
}
