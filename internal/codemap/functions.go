package codemap

import (
	"fmt"
	"sort"
	"strings"

	"github.com/covlang/scriptcov/internal/langast"
	"github.com/covlang/scriptcov/internal/model"
)

// collected is a function found by the traversal, before its name has been
// finalized: anonymous functions need a sequence number assigned in source
// order (§4.C), but the stack-based walk below visits children LIFO and so
// discovers them in reverse.
type collected struct {
	node      *langast.Node
	kind      model.FunctionKind
	name      string
	anonymous bool
}

// collectFunctions walks the tree with an explicit stack (spec.md §4.C:
// "collected by a non-recursive AST traversal") resolving each function's
// name and kind per the precedence order: local function NAME, NAME =
// function() (global or, if NAME is dotted, module_field), a colon target or
// a literal "self" first parameter (method), otherwise anonymous_<sequence>.
// The result is ordered by start_line (spec.md §3), with anonymous_<n>
// numbered in that same source order.
func collectFunctions(root *langast.Node, file *langast.File) []model.Function {
	var found []collected

	handled := make(map[*langast.Node]bool)

	stack := []*langast.Node{root}

	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if n == nil {
			continue
		}

		switch {
		case n.Kind == langast.KindAssign && len(n.Children) == 2 && n.Children[1].Kind == langast.KindFunctionExpr:
			fn := n.Children[1]
			if !handled[fn] {
				handled[fn] = true
				kind := resolveAssignedFunctionKind(n.Children[0], fn)
				found = append(found, collected{node: fn, kind: kind, name: n.Children[0].Name})
			}
		case n.Kind == langast.KindLocalFunctionDecl:
			handled[n] = true
			kind := model.FuncLocal

			if n.IsMethod {
				kind = model.FuncMethod
			}

			found = append(found, collected{node: n, kind: kind, name: n.Name})
		case n.Kind == langast.KindFunctionDecl:
			handled[n] = true

			kind := model.FuncGlobal
			switch {
			case n.IsMethod:
				kind = model.FuncMethod
			case strings.Contains(n.Name, "."):
				kind = model.FuncModuleField
			}

			found = append(found, collected{node: n, kind: kind, name: n.Name})
		case n.Kind == langast.KindFunctionExpr && !handled[n]:
			handled[n] = true
			found = append(found, collected{node: n, kind: model.FuncAnonymous, anonymous: true})
		}

		for _, c := range n.Children {
			stack = append(stack, c)
		}

		stack = append(stack, n.Condition, n.Then, n.Else, n.Body)
	}

	sort.SliceStable(found, func(i, j int) bool {
		return file.LineOf(found[i].node.Pos) < file.LineOf(found[j].node.Pos)
	})

	funcs := make([]model.Function, 0, len(found))
	anonSeq := 0

	for _, c := range found {
		name := c.name
		if c.anonymous {
			anonSeq++
			name = fmt.Sprintf("anonymous_%d", anonSeq)
		}

		funcs = append(funcs, buildFunction(name, c.kind, c.node, file))
	}

	return funcs
}

func resolveAssignedFunctionKind(target, fn *langast.Node) model.FunctionKind {
	if len(fn.Params) > 0 && fn.Params[0] == "self" {
		return model.FuncMethod
	}

	if strings.Contains(target.Name, ".") {
		return model.FuncModuleField
	}

	return model.FuncGlobal
}

func buildFunction(name string, kind model.FunctionKind, n *langast.Node, file *langast.File) model.Function {
	startLine := file.LineOf(n.Pos)
	endLine := file.LineOf(n.EndPos)

	return model.Function{
		ID:         fmt.Sprintf("func_%d_%s", startLine, name),
		Name:       name,
		Kind:       kind,
		Params:     n.Params,
		HasVarargs: n.HasVarargs,
		StartLine:  startLine,
		EndLine:    endLine,
	}
}
