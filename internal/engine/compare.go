package engine

import (
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/automax/ivrflow/internal/domain"
	"github.com/automax/ivrflow/internal/session"
)

// evaluateComparison decides a comparison edge. The left operand comes from
// the variable store when OperandType is "tag", or from CollectionTag
// verbatim when "literal". A non-numeric value against a numeric operator
// evaluates to false and logs; it never errors.
func evaluateComparison(edge *domain.EdgeSpec, store *session.Store, logger *zap.Logger) bool {
	var left string
	if edge.OperandType == domain.OperandLiteral {
		left = edge.CollectionTag
	} else {
		left = store.GetDefault(edge.CollectionTag, "")
	}

	switch edge.Operator {
	case domain.OpEQ:
		return left == edge.Value1
	case domain.OpNE:
		return left != edge.Value1
	case domain.OpContains:
		return strings.Contains(left, edge.Value1)
	case domain.OpStartsWith:
		return strings.HasPrefix(left, edge.Value1)
	case domain.OpEndsWith:
		return strings.HasSuffix(left, edge.Value1)
	case domain.OpIsEmpty:
		return strings.TrimSpace(left) == ""
	case domain.OpIsNotEmpty:
		return strings.TrimSpace(left) != ""
	case domain.OpGRT, domain.OpLST, domain.OpGTE, domain.OpLTE, domain.OpIBW, domain.OpOBW:
		return evaluateNumeric(edge, left, logger)
	default:
		logger.Warn("unknown comparison operator",
			zap.String("operator", string(edge.Operator)),
			zap.String("tag", edge.CollectionTag),
		)
		return false
	}
}

// evaluateNumeric handles the numeric operators. IBW requires both bounds;
// a missing Value2 evaluates to false.
func evaluateNumeric(edge *domain.EdgeSpec, left string, logger *zap.Logger) bool {
	x, ok := parseNumber(left, edge, logger)
	if !ok {
		return false
	}
	v1, ok := parseNumber(edge.Value1, edge, logger)
	if !ok {
		return false
	}

	switch edge.Operator {
	case domain.OpGRT:
		return x > v1
	case domain.OpLST:
		return x < v1
	case domain.OpGTE:
		return x >= v1
	case domain.OpLTE:
		return x <= v1
	case domain.OpIBW:
		v2, ok := parseNumber(edge.Value2, edge, logger)
		if !ok {
			return false
		}
		return x >= v1 && x <= v2
	case domain.OpOBW:
		v2, ok := parseNumber(edge.Value2, edge, logger)
		if !ok {
			return false
		}
		return x < v1 || x > v2
	}
	return false
}

func parseNumber(s string, edge *domain.EdgeSpec, logger *zap.Logger) (float64, bool) {
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		logger.Debug("non-numeric value in numeric comparison",
			zap.String("value", s),
			zap.String("operator", string(edge.Operator)),
			zap.String("tag", edge.CollectionTag),
		)
		return 0, false
	}
	return n, true
}
