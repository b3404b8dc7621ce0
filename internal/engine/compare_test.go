package engine

import (
	"testing"

	"go.uber.org/zap"

	"github.com/automax/ivrflow/internal/domain"
	"github.com/automax/ivrflow/internal/session"
)

func TestEvaluateComparison(t *testing.T) {
	logger := zap.NewNop()
	store := session.NewStore(logger)
	store.Set("CustomerType", "VIP")
	store.Set("Age", "42")
	store.Set("Name", "  ")
	store.Set("Word", "hello world")

	tests := []struct {
		name string
		edge domain.EdgeSpec
		want bool
	}{
		{"eq match", domain.EdgeSpec{OperandType: "tag", CollectionTag: "CustomerType", Operator: domain.OpEQ, Value1: "VIP"}, true},
		{"eq mismatch", domain.EdgeSpec{OperandType: "tag", CollectionTag: "CustomerType", Operator: domain.OpEQ, Value1: "Basic"}, false},
		{"eq missing variable", domain.EdgeSpec{OperandType: "tag", CollectionTag: "Missing", Operator: domain.OpEQ, Value1: "VIP"}, false},
		{"ne", domain.EdgeSpec{OperandType: "tag", CollectionTag: "CustomerType", Operator: domain.OpNE, Value1: "Basic"}, true},
		{"literal operand", domain.EdgeSpec{OperandType: "literal", CollectionTag: "VIP", Operator: domain.OpEQ, Value1: "VIP"}, true},
		{"grt", domain.EdgeSpec{OperandType: "tag", CollectionTag: "Age", Operator: domain.OpGRT, Value1: "40"}, true},
		{"lst", domain.EdgeSpec{OperandType: "tag", CollectionTag: "Age", Operator: domain.OpLST, Value1: "40"}, false},
		{"gte boundary", domain.EdgeSpec{OperandType: "tag", CollectionTag: "Age", Operator: domain.OpGTE, Value1: "42"}, true},
		{"lte boundary", domain.EdgeSpec{OperandType: "tag", CollectionTag: "Age", Operator: domain.OpLTE, Value1: "42"}, true},
		{"numeric against non-numeric is false", domain.EdgeSpec{OperandType: "tag", CollectionTag: "CustomerType", Operator: domain.OpGRT, Value1: "1"}, false},
		{"numeric against non-numeric bound is false", domain.EdgeSpec{OperandType: "tag", CollectionTag: "Age", Operator: domain.OpGRT, Value1: "abc"}, false},
		{"ibw inside", domain.EdgeSpec{OperandType: "tag", CollectionTag: "Age", Operator: domain.OpIBW, Value1: "40", Value2: "45"}, true},
		{"ibw inclusive bounds", domain.EdgeSpec{OperandType: "tag", CollectionTag: "Age", Operator: domain.OpIBW, Value1: "42", Value2: "42"}, true},
		{"ibw missing value2 is false", domain.EdgeSpec{OperandType: "tag", CollectionTag: "Age", Operator: domain.OpIBW, Value1: "40"}, false},
		{"obw outside", domain.EdgeSpec{OperandType: "tag", CollectionTag: "Age", Operator: domain.OpOBW, Value1: "50", Value2: "60"}, true},
		{"obw inside", domain.EdgeSpec{OperandType: "tag", CollectionTag: "Age", Operator: domain.OpOBW, Value1: "40", Value2: "45"}, false},
		{"contains", domain.EdgeSpec{OperandType: "tag", CollectionTag: "Word", Operator: domain.OpContains, Value1: "lo wo"}, true},
		{"starts_with", domain.EdgeSpec{OperandType: "tag", CollectionTag: "Word", Operator: domain.OpStartsWith, Value1: "hello"}, true},
		{"ends_with", domain.EdgeSpec{OperandType: "tag", CollectionTag: "Word", Operator: domain.OpEndsWith, Value1: "world"}, true},
		{"is_empty on whitespace", domain.EdgeSpec{OperandType: "tag", CollectionTag: "Name", Operator: domain.OpIsEmpty}, true},
		{"is_empty on missing", domain.EdgeSpec{OperandType: "tag", CollectionTag: "Missing", Operator: domain.OpIsEmpty}, true},
		{"is_not_empty", domain.EdgeSpec{OperandType: "tag", CollectionTag: "Word", Operator: domain.OpIsNotEmpty}, true},
		{"unknown operator is false", domain.EdgeSpec{OperandType: "tag", CollectionTag: "Word", Operator: "LIKE", Value1: "x"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := evaluateComparison(&tt.edge, store, logger); got != tt.want {
				t.Errorf("evaluateComparison(%+v) = %v, want %v", tt.edge, got, tt.want)
			}
		})
	}
}
