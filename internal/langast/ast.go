// Package langast is a hand-written recursive-descent lexer and parser for
// the dynamic, block/keyword-delimited scripting language the engine
// analyzes. No reuse of go/parser is possible here — the grammar is not
// Go's — so only the shape of the teacher's AST tooling carries over:
// byte-offset positions resolved through a precomputed line-starts table, a
// small closed set of node tags rather than a large interface hierarchy, and
// the same "parse, don't panic" discipline: every failure mode is a typed
// sentinel error, never a panic.
package langast

// Kind tags every node in the tree with the syntactic construct it represents.
type Kind int

// Kind values. Statement kinds line up with spec.md §4.C's "executable" tag
// list; expression kinds exist only insofar as the Code-Map Builder needs
// them to build the condition forest (§4.C, and/or/not/compare/call nodes).
const (
	KindChunk Kind = iota
	KindLocalDecl
	KindAssign
	KindCall
	KindMethodCall
	KindReturn
	KindBreak
	KindGoto
	KindLabel
	KindDo
	KindIf
	KindWhile
	KindRepeat
	KindNumericFor
	KindGenericFor
	KindFunctionDecl
	KindLocalFunctionDecl

	// Expression-level kinds, used inside condition forests and call args.
	KindBinaryExpr
	KindUnaryExpr
	KindParenExpr
	KindIdentifier
	KindLiteralTrue
	KindLiteralFalse
	KindLiteralNil
	KindLiteralNumber
	KindLiteralString
	KindFunctionExpr
	KindTableExpr
	KindVarargExpr
)

// String returns a human-readable tag name, used in error messages and tests.
func (k Kind) String() string {
	names := [...]string{
		"Chunk", "LocalDecl", "Assign", "Call", "MethodCall", "Return", "Break",
		"Goto", "Label", "Do", "If", "While", "Repeat", "NumericFor", "GenericFor",
		"FunctionDecl", "LocalFunctionDecl", "BinaryExpr", "UnaryExpr", "ParenExpr",
		"Identifier", "LiteralTrue", "LiteralFalse", "LiteralNil", "LiteralNumber",
		"LiteralString", "FunctionExpr", "TableExpr", "VarargExpr",
	}
	if int(k) < 0 || int(k) >= len(names) {
		return "Unknown"
	}

	return names[k]
}

// Node is one element of the parse tree. Every node carries the byte range
// it spans in the source buffer; line numbers are derived on demand via a
// File's LineStarts table rather than stored redundantly on each node.
type Node struct {
	Kind     Kind
	Pos      int // byte offset, inclusive
	EndPos   int // byte offset, exclusive
	Name     string
	Operator string
	Children []*Node

	// Function-specific fields (set only when Kind is *FunctionDecl/Expr).
	Params     []string
	HasVarargs bool
	IsMethod   bool // target used colon syntax (T:name) or first param is "self"
	Receiver   string

	// If-specific: the condition, Then-body, Else-body (else may be nil).
	Condition *Node
	Then      *Node
	Else      *Node

	// For-specific bodies.
	Body *Node
}

// File is the parse product for one source buffer: the root Chunk node plus
// the line-starts table used to translate byte offsets to 1-indexed line
// numbers everywhere downstream.
type File struct {
	Path       string
	Source     string
	Root       *Node
	LineStarts []int // LineStarts[i] is the byte offset where line i+1 begins.
	Partial    bool  // true if parsing stopped early on a budget (still returns the best-effort tree).
}

// LineOf returns the 1-indexed line number containing byte offset pos.
func (f *File) LineOf(pos int) int {
	lo, hi := 0, len(f.LineStarts)-1

	for lo < hi {
		mid := (lo + hi + 1) / 2
		if f.LineStarts[mid] <= pos {
			lo = mid
		} else {
			hi = mid - 1
		}
	}

	return lo + 1
}

// computeLineStarts builds the offset table for src: LineStarts[0] == 0, and
// one more entry per '\n' found.
func computeLineStarts(src string) []int {
	starts := []int{0}

	for i := range len(src) {
		if src[i] == '\n' {
			starts = append(starts, i+1)
		}
	}

	return starts
}
