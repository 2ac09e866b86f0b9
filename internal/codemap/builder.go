// Package codemap builds the static Code-Map (spec.md §4.C) from a parsed
// File (internal/langast) and the Comment/String Scanner's line map
// (internal/scanner): per-line classification, the function list, the block
// forest, and the condition forest.
package codemap

import (
	"strings"
	"time"

	"github.com/covlang/scriptcov/internal/langast"
	"github.com/covlang/scriptcov/internal/model"
	"github.com/covlang/scriptcov/internal/scanner"
)

// Options bounds the builder's resource usage, per spec.md §4.C.
type Options struct {
	MaxCodemapSeconds                 time.Duration
	MaxNodes                          int
	TreatBlockTerminatorsAsExecutable bool
}

// DefaultOptions returns the spec-mandated defaults: 120s, 100,000 nodes,
// terminators executable.
func DefaultOptions() Options {
	return Options{
		MaxCodemapSeconds:                 120 * time.Second, //nolint:mnd // spec-mandated constant
		MaxNodes:                          100_000,
		TreatBlockTerminatorsAsExecutable: true,
	}
}

var branchKeywords = []string{"if", "elseif", "while", "for", "repeat"}

var terminatorLines = map[string]bool{
	"end": true, "end,": true, "end)": true, "else": true,
	"]": true, "}": true, "then": true, "do": true, "repeat": true, "elseif": true,
}

// Build assembles the CodeMap for one file. It never panics: on exceeding
// either budget it returns the best-effort partial map built so far with
// Partial set, per spec.md §4.C.
func Build(file *langast.File, scannerLines []scanner.LineInfo, opts Options) *model.CodeMap {
	deadline := time.Time{}
	if opts.MaxCodemapSeconds > 0 {
		deadline = time.Now().Add(opts.MaxCodemapSeconds)
	}

	lineCount := len(file.LineStarts)
	if lineCount > 0 && file.LineStarts[lineCount-1] == len(file.Source) {
		lineCount-- // a trailing newline (or an empty source) starts no further line
	}

	cm := model.NewCodeMap(lineCount)

	execLines := collectExecutableStartLines(file.Root, file)
	budgetOK := true

	for line := 1; line <= cm.LineCount; line++ {
		if line%256 == 0 && !deadline.IsZero() && time.Now().After(deadline) { //nolint:mnd // amortizes time.Now() overhead
			budgetOK = false
			break
		}

		raw := ""
		if line < len(file.Source) {
			raw = lineText(file.Source, line, file.LineStarts)
		}

		kind := classifyLine(raw, scannerLines, line, execLines[line], opts)
		cm.Lines[line] = kind
		cm.ExecutableLookup[line] = isExecutableKind(kind, opts)
	}

	if !budgetOK {
		cm.Partial = true
		return cm
	}

	nodeBudget := opts.MaxNodes
	if nodeBudget <= 0 {
		nodeBudget = DefaultOptions().MaxNodes
	}

	if countNodes(file.Root) > nodeBudget {
		cm.Partial = true
		return cm
	}

	cm.Functions = collectFunctions(file.Root, file)
	cm.Blocks = collectBlocks(file.Root, file, cm.LineCount)
	cm.Conditions = collectConditionsForFile(file.Root, file)
	cm.Partial = file.Partial

	return cm
}

// collectConditionsForFile finds every If/While/Repeat node's condition
// expression (ElseIf chains are nested If nodes, already covered) and
// extracts its forest, concatenating all of them.
func collectConditionsForFile(root *langast.Node, file *langast.File) []model.Condition {
	var all []model.Condition

	stack := []*langast.Node{root}

	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if n == nil {
			continue
		}

		if (n.Kind == langast.KindIf || n.Kind == langast.KindWhile || n.Kind == langast.KindRepeat) && n.Condition != nil {
			all = append(all, extractConditions(n.Condition, file)...)
		}

		stack = append(stack, n.Children...)
		stack = append(stack, n.Condition, n.Then, n.Else, n.Body)
	}

	return all
}

func countNodes(n *langast.Node) int {
	if n == nil {
		return 0
	}

	count := 1
	for _, c := range n.Children {
		count += countNodes(c)
	}

	for _, c := range []*langast.Node{n.Condition, n.Then, n.Else, n.Body} {
		count += countNodes(c)
	}

	return count
}

// collectExecutableStartLines gathers the 1-indexed lines on which an
// "executable" AST tag (spec.md §4.C step 6) starts.
func collectExecutableStartLines(root *langast.Node, file *langast.File) map[int]bool {
	lines := make(map[int]bool)

	stack := []*langast.Node{root}

	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if n == nil {
			continue
		}

		switch n.Kind { //nolint:exhaustive // only the executable tag set matters here
		case langast.KindCall, langast.KindMethodCall, langast.KindAssign, langast.KindLocalDecl,
			langast.KindReturn, langast.KindBreak, langast.KindGoto, langast.KindNumericFor,
			langast.KindGenericFor, langast.KindWhile, langast.KindRepeat, langast.KindIf:
			lines[file.LineOf(n.Pos)] = true
		}

		stack = append(stack, n.Children...)
		stack = append(stack, n.Condition, n.Then, n.Else, n.Body)
	}

	return lines
}

func lineText(source string, line int, starts []int) string {
	if line < 1 || line > len(starts) {
		return ""
	}

	start := starts[line-1]

	end := len(source)
	if line < len(starts) {
		end = starts[line] - 1 // exclude the '\n' itself
		if end < start {
			end = start
		}
	}

	if start > len(source) {
		return ""
	}

	if end > len(source) {
		end = len(source)
	}

	return strings.TrimRight(source[start:end], "\r")
}

func classifyLine(
	raw string,
	scannerLines []scanner.LineInfo,
	line int,
	astNodeStartsHere bool,
	_ Options,
) model.LineKind {
	trimmed := strings.TrimSpace(raw)

	if line < len(scannerLines) {
		info := scannerLines[line]
		if info.InLongConstruct {
			return model.NonExecutable
		}
	}

	if trimmed == "" || strings.HasPrefix(trimmed, "--") {
		return model.NonExecutable
	}

	if terminatorLines[trimmed] || strings.HasPrefix(trimmed, "until") {
		return model.BlockEnd
	}

	if startsWithKeyword(trimmed, branchKeywords) {
		return model.Branch
	}

	if containsWordToken(trimmed, "function") {
		return model.FunctionHeader
	}

	if astNodeStartsHere || lineHasExecutableGlyph(trimmed) {
		return model.Executable
	}

	return model.NonExecutable
}

func startsWithKeyword(trimmed string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.HasPrefix(trimmed, kw) {
			rest := trimmed[len(kw):]
			if rest == "" || !isIdentByte(rest[0]) {
				return true
			}
		}
	}

	return false
}

func containsWordToken(s, word string) bool {
	idx := 0

	for {
		i := strings.Index(s[idx:], word)
		if i < 0 {
			return false
		}

		pos := idx + i
		before := pos == 0 || !isIdentByte(s[pos-1])
		afterIdx := pos + len(word)
		after := afterIdx >= len(s) || !isIdentByte(s[afterIdx])

		if before && after {
			return true
		}

		idx = pos + len(word)
	}
}

func isIdentByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// lineHasExecutableGlyph is the raw-text fallback heuristic (spec.md §4.C
// step 6): an assignment, a function/method call, or indexed-assignment
// glyph on the line.
func lineHasExecutableGlyph(trimmed string) bool {
	if hasBareAssignment(trimmed) {
		return true
	}

	if strings.Contains(trimmed, "(") {
		return true
	}

	if strings.Contains(trimmed, ":") && strings.Contains(trimmed, "(") {
		return true
	}

	return false
}

// hasBareAssignment reports whether trimmed contains a top-level "=" that is
// not part of "==", "~=", "<=", ">=".
func hasBareAssignment(trimmed string) bool {
	for i := 0; i < len(trimmed); i++ {
		if trimmed[i] != '=' {
			continue
		}

		prev := byte(0)
		if i > 0 {
			prev = trimmed[i-1]
		}

		next := byte(0)
		if i+1 < len(trimmed) {
			next = trimmed[i+1]
		}

		if next == '=' || prev == '=' || prev == '~' || prev == '<' || prev == '>' {
			continue
		}

		return true
	}

	return false
}

func isExecutableKind(kind model.LineKind, opts Options) bool {
	switch kind {
	case model.Executable, model.FunctionHeader, model.Branch:
		return true
	case model.BlockEnd:
		return opts.TreatBlockTerminatorsAsExecutable
	default:
		return false
	}
}
