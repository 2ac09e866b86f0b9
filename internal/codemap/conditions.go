package codemap

import (
	"fmt"

	"github.com/covlang/scriptcov/internal/langast"
	"github.com/covlang/scriptcov/internal/model"
)

// conditionBuilder accumulates the condition forest for one file, local to
// one extractConditions call for the same concurrency reason as blockBuilder.
type conditionBuilder struct {
	conditions []model.Condition
	file       *langast.File
	seq        int
}

// extractConditions performs a recursive descent over the expression
// subtree rooted at expr (a condition attached to an If/While/Repeat-until/
// ElseIf), per spec.md §4.C. Recursion here descends expression trees, not
// the statement/block trees the other two traversals walk non-recursively —
// expressions are bounded by the same node-count budget the caller enforces,
// and their depth is already capped by the parser's bracket-nesting pre-scan.
func extractConditions(expr *langast.Node, file *langast.File) []model.Condition {
	if expr == nil {
		return nil
	}

	cb := &conditionBuilder{file: file}
	cb.extract(expr)

	return cb.conditions
}

func (cb *conditionBuilder) extract(n *langast.Node) string {
	switch {
	case n.Kind == langast.KindBinaryExpr && (n.Operator == "and" || n.Operator == "or"):
		kind := model.CondAnd
		if n.Operator == "or" {
			kind = model.CondOr
		}

		leftID := cb.extract(n.Children[0])
		rightID := cb.extract(n.Children[1])

		return cb.emit(kind, n, []string{leftID, rightID})

	case n.Kind == langast.KindUnaryExpr && n.Operator == "not":
		operandID := cb.extract(n.Children[0])
		return cb.emit(model.CondNot, n, []string{operandID})

	case n.Kind == langast.KindParenExpr && len(n.Children) == 1:
		innerID := cb.extract(n.Children[0])
		return cb.emit(model.CondParen, n, []string{innerID})

	case n.Kind == langast.KindBinaryExpr:
		return cb.emit(model.CondCompare, n, nil)

	case n.Kind == langast.KindCall || n.Kind == langast.KindMethodCall:
		return cb.emit(model.CondCall, n, nil)

	case n.Kind == langast.KindLiteralTrue:
		return cb.emit(model.CondLiteralTrue, n, nil)

	case n.Kind == langast.KindLiteralFalse:
		return cb.emit(model.CondLiteralFalse, n, nil)

	case n.Kind == langast.KindLiteralNil:
		return cb.emit(model.CondLiteralNil, n, nil)

	default:
		return cb.emit(model.CondIdentifier, n, nil)
	}
}

func (cb *conditionBuilder) emit(kind model.ConditionKind, n *langast.Node, components []string) string {
	cb.seq++
	startLine := cb.file.LineOf(n.Pos)

	cond := model.Condition{
		ID:         fmt.Sprintf("cond_%d_%d", startLine, cb.seq),
		Kind:       kind,
		Operator:   n.Operator,
		StartLine:  startLine,
		EndLine:    cb.file.LineOf(n.EndPos),
		Components: components,
	}

	for _, c := range components {
		for i := range cb.conditions {
			if cb.conditions[i].ID == c {
				cb.conditions[i].ParentID = cond.ID
			}
		}
	}

	cb.conditions = append(cb.conditions, cond)

	return cond.ID
}
