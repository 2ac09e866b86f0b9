package langast

import (
	"context"
	"fmt"
	"time"
)

// Options bounds the parser's resource usage, per spec.md §4.A.
type Options struct {
	MaxFileBytes    int
	MaxNestingDepth int
	MaxParseSeconds time.Duration
}

// DefaultOptions returns the spec-mandated defaults: 1 MiB, depth 100, 60s.
func DefaultOptions() Options {
	const mib = 1 << 20

	return Options{
		MaxFileBytes:    mib,
		MaxNestingDepth: 100, //nolint:mnd // spec-mandated constant
		MaxParseSeconds: 60 * time.Second,
	}
}

// Parse lexes and parses source into a File. It enforces, in order: the
// byte-size cap, a cheap bracket-nesting pre-scan, then a wall-clock budget
// around the recursive descent itself.
func Parse(ctx context.Context, path, source string, opts Options) (*File, error) {
	if opts.MaxFileBytes > 0 && len(source) > opts.MaxFileBytes {
		return nil, fmt.Errorf("%s: %w", path, ErrFileTooLarge)
	}

	if opts.MaxNestingDepth > 0 {
		if depth := maxBracketDepth(source); depth > opts.MaxNestingDepth {
			return nil, fmt.Errorf("%s: %w", path, ErrTooDeeplyNested)
		}
	}

	deadline := time.Time{}
	if opts.MaxParseSeconds > 0 {
		deadline = time.Now().Add(opts.MaxParseSeconds)
	}

	p := &parser{
		path:     path,
		lex:      newLexer(source),
		deadline: deadline,
		ctx:      ctx,
	}
	p.advance()

	file := &File{
		Path:       path,
		Source:     source,
		LineStarts: computeLineStarts(source),
	}

	root, err := p.parseChunk()
	if err != nil {
		if p.timedOut {
			file.Root = root
			file.Partial = true

			return file, fmt.Errorf("%s: %w", path, ErrTimeout)
		}

		return nil, fmt.Errorf("%s: %w", path, err)
	}

	file.Root = root

	return file, nil
}

// maxBracketDepth is the cheap pre-scan for (){}[ ] nesting, run before any
// tokenizing so a pathological input never reaches the lexer at all.
func maxBracketDepth(src string) int {
	depth, maxDepth := 0, 0

	for i := range len(src) {
		switch src[i] {
		case '(', '{', '[':
			depth++
			if depth > maxDepth {
				maxDepth = depth
			}
		case ')', '}', ']':
			if depth > 0 {
				depth--
			}
		}
	}

	return maxDepth
}

type parser struct {
	path     string
	lex      *lexer
	tok      token
	deadline time.Time
	timedOut bool
	ctx      context.Context //nolint:containedctx // the budget check needs the caller's cancellation, not just our own deadline
	steps    int
}

func (p *parser) advance() {
	p.tok = p.lex.next()
}

// checkBudget is called at every statement boundary; checking per-statement
// rather than per-token keeps the check cheap while still catching runaway
// inputs promptly (spec.md's "parse, don't panic" discipline extends to "parse,
// don't hang").
func (p *parser) checkBudget() bool {
	p.steps++
	if p.steps%64 != 0 { //nolint:mnd // amortizes time.Now()/ctx.Err() overhead across statements
		return true
	}

	if !p.deadline.IsZero() && time.Now().After(p.deadline) {
		p.timedOut = true
		return false
	}

	if p.ctx != nil && p.ctx.Err() != nil {
		p.timedOut = true
		return false
	}

	return true
}

func (p *parser) atKeyword(kw string) bool {
	return p.tok.kind == tokKeyword && p.tok.text == kw
}

func (p *parser) atEOF() bool {
	return p.tok.kind == tokEOF
}

// parseChunk parses the top-level block: statements until EOF.
func (p *parser) parseChunk() (*Node, error) {
	start := p.tok.pos

	block, err := p.parseBlockUntil(func() bool { return p.atEOF() })
	if err != nil {
		return block, err
	}

	block.Kind = KindChunk
	block.Pos = start
	block.EndPos = p.tok.end

	return block, nil
}

// parseBlockUntil parses statements until stop() reports true (typically on
// seeing a terminator keyword or EOF). The returned node's Kind defaults to
// KindDo; the chunk parser overwrites it with KindChunk, while an if's
// Then/Else bodies keep KindDo.
func (p *parser) parseBlockUntil(stop func() bool) (*Node, error) {
	start := p.tok.pos
	block := &Node{Kind: KindDo, Pos: start}

	for !stop() {
		if !p.checkBudget() {
			block.EndPos = p.tok.pos
			return block, ErrTimeout
		}

		stmt, err := p.parseStatement()
		if err != nil {
			return block, err
		}

		if stmt != nil {
			block.Children = append(block.Children, stmt)
		}
	}

	block.EndPos = p.tok.pos

	return block, nil
}

func (p *parser) parseStatement() (*Node, error) { //nolint:cyclop,gocognit // one dispatch per statement form, mirrors the grammar directly
	switch {
	case p.tok.text == ";" && p.tok.kind == tokPunct:
		p.advance()
		return nil, nil
	case p.atKeyword("local"):
		return p.parseLocal()
	case p.atKeyword("if"):
		return p.parseIf()
	case p.atKeyword("while"):
		return p.parseWhile()
	case p.atKeyword("repeat"):
		return p.parseRepeat()
	case p.atKeyword("for"):
		return p.parseFor()
	case p.atKeyword("function"):
		return p.parseFunctionDecl()
	case p.atKeyword("do"):
		return p.parseDo()
	case p.atKeyword("return"):
		return p.parseReturn()
	case p.atKeyword("break"):
		start := p.tok.pos
		p.advance()

		return &Node{Kind: KindBreak, Pos: start, EndPos: p.tok.pos}, nil
	case p.atKeyword("goto"):
		start := p.tok.pos
		p.advance()
		name := p.tok.text
		p.advance()

		return &Node{Kind: KindGoto, Name: name, Pos: start, EndPos: p.tok.pos}, nil
	case p.tok.kind == tokOp && p.tok.text == "::":
		start := p.tok.pos
		p.advance()
		name := p.tok.text
		p.advance()
		p.expectOp("::")

		return &Node{Kind: KindLabel, Name: name, Pos: start, EndPos: p.tok.pos}, nil
	default:
		return p.parseExprStatement()
	}
}

func (p *parser) parseLocal() (*Node, error) {
	start := p.tok.pos
	p.advance() // "local"

	if p.atKeyword("function") {
		p.advance()
		name := p.tok.text
		p.advance()

		fn, err := p.parseFunctionBody(start, FuncName(name))
		if err != nil {
			return fn, err
		}

		fn.Kind = KindLocalFunctionDecl

		return fn, nil
	}

	names := []string{p.tok.text}
	p.advance()

	for p.tok.kind == tokPunct && p.tok.text == "," {
		p.advance()
		names = append(names, p.tok.text)
		p.advance()
	}

	node := &Node{Kind: KindLocalDecl, Pos: start}
	node.Params = names

	if p.tok.kind == tokOp && p.tok.text == "=" {
		p.advance()

		exprs, err := p.parseExprList()
		if err != nil {
			return node, err
		}

		node.Children = exprs
	}

	node.EndPos = p.tok.pos

	return node, nil
}

// FuncName is a trivial adapter so parseFunctionBody's signature reads
// naturally at both call sites (named decl vs. anonymous expression).
func FuncName(name string) string { return name }

func (p *parser) parseIf() (*Node, error) {
	start := p.tok.pos
	p.advance() // "if"

	root := &Node{Kind: KindIf, Pos: start}
	cur := root

	for {
		condStart := p.tok.pos

		cond, err := p.parseExpr()
		if err != nil {
			return root, err
		}

		cur.Condition = cond
		cur.Condition.Pos = condStart

		p.expectKeyword("then")

		thenBody, err := p.parseBlockUntil(func() bool {
			return p.atKeyword("elseif") || p.atKeyword("else") || p.atKeyword("end")
		})
		if err != nil {
			return root, err
		}

		cur.Then = thenBody

		if p.atKeyword("elseif") {
			p.advance()

			next := &Node{Kind: KindIf, Pos: p.tok.pos}
			cur.Else = next
			cur = next

			continue
		}

		if p.atKeyword("else") {
			p.advance()

			elseBody, err := p.parseBlockUntil(func() bool { return p.atKeyword("end") })
			if err != nil {
				return root, err
			}

			cur.Else = elseBody
		}

		break
	}

	p.expectKeyword("end")
	root.EndPos = p.tok.pos

	for n := root.Else; n != nil && n.Kind == KindIf; n = n.Else {
		n.EndPos = root.EndPos // each elseif's If node ends with the whole chain
	}

	return root, nil
}

func (p *parser) parseWhile() (*Node, error) {
	start := p.tok.pos
	p.advance()

	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	p.expectKeyword("do")

	body, err := p.parseBlockUntil(func() bool { return p.atKeyword("end") })
	if err != nil {
		return nil, err
	}

	p.expectKeyword("end")

	return &Node{Kind: KindWhile, Pos: start, EndPos: p.tok.pos, Condition: cond, Body: body}, nil
}

func (p *parser) parseRepeat() (*Node, error) {
	start := p.tok.pos
	p.advance()

	body, err := p.parseBlockUntil(func() bool { return p.atKeyword("until") })
	if err != nil {
		return nil, err
	}

	p.expectKeyword("until")

	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	return &Node{Kind: KindRepeat, Pos: start, EndPos: p.tok.pos, Condition: cond, Body: body}, nil
}

func (p *parser) parseFor() (*Node, error) {
	start := p.tok.pos
	p.advance()

	firstName := p.tok.text
	p.advance()

	if p.tok.kind == tokOp && p.tok.text == "=" {
		p.advance()

		if _, err := p.parseExpr(); err != nil {
			return nil, err
		}

		p.expectPunct(",")

		if _, err := p.parseExpr(); err != nil {
			return nil, err
		}

		if p.tok.kind == tokPunct && p.tok.text == "," {
			p.advance()

			if _, err := p.parseExpr(); err != nil {
				return nil, err
			}
		}

		p.expectKeyword("do")

		body, err := p.parseBlockUntil(func() bool { return p.atKeyword("end") })
		if err != nil {
			return nil, err
		}

		p.expectKeyword("end")

		return &Node{
			Kind: KindNumericFor, Pos: start, EndPos: p.tok.pos,
			Name: firstName, Body: body,
		}, nil
	}

	names := []string{firstName}
	for p.tok.kind == tokPunct && p.tok.text == "," {
		p.advance()
		names = append(names, p.tok.text)
		p.advance()
	}

	p.expectKeyword("in")

	if _, err := p.parseExprList(); err != nil {
		return nil, err
	}

	p.expectKeyword("do")

	body, err := p.parseBlockUntil(func() bool { return p.atKeyword("end") })
	if err != nil {
		return nil, err
	}

	p.expectKeyword("end")

	return &Node{
		Kind: KindGenericFor, Pos: start, EndPos: p.tok.pos,
		Params: names, Body: body,
	}, nil
}

// parseFunctionDecl handles `function Name(...) ... end`, including dotted
// (`T.a.b`) and colon (`T:m`) targets, per spec.md §4.C's function-name
// resolution order.
func (p *parser) parseFunctionDecl() (*Node, error) {
	start := p.tok.pos
	p.advance() // "function"

	name := p.tok.text
	p.advance()

	isMethod := false

	for (p.tok.kind == tokPunct && p.tok.text == ".") || (p.tok.kind == tokOp && p.tok.text == ":") {
		sep := p.tok.text
		p.advance()
		name += sep + p.tok.text
		p.advance()

		if sep == ":" {
			isMethod = true
		}
	}

	node, err := p.parseFunctionBody(start, name)
	if err != nil {
		return node, err
	}

	node.IsMethod = node.IsMethod || isMethod

	return node, nil
}

func (p *parser) parseFunctionBody(start int, name string) (*Node, error) {
	p.expectPunct("(")

	var params []string

	varargs := false

	for !(p.tok.kind == tokPunct && p.tok.text == ")") {
		if p.tok.kind == tokOp && p.tok.text == "..." {
			varargs = true
			p.advance()

			break
		}

		params = append(params, p.tok.text)
		p.advance()

		if p.tok.kind == tokPunct && p.tok.text == "," {
			p.advance()
		}
	}

	p.expectPunct(")")

	body, err := p.parseBlockUntil(func() bool { return p.atKeyword("end") })
	if err != nil {
		return nil, err
	}

	p.expectKeyword("end")

	isMethod := len(params) > 0 && params[0] == "self"

	return &Node{
		Kind: KindFunctionDecl, Pos: start, EndPos: p.tok.pos,
		Name: name, Params: params, HasVarargs: varargs, IsMethod: isMethod, Body: body,
	}, nil
}

func (p *parser) parseDo() (*Node, error) {
	start := p.tok.pos
	p.advance()

	body, err := p.parseBlockUntil(func() bool { return p.atKeyword("end") })
	if err != nil {
		return nil, err
	}

	p.expectKeyword("end")
	body.Pos = start
	body.EndPos = p.tok.pos

	return body, nil
}

func (p *parser) parseReturn() (*Node, error) {
	start := p.tok.pos
	p.advance()

	node := &Node{Kind: KindReturn, Pos: start}

	if !p.atKeyword("end") && !p.atKeyword("else") && !p.atKeyword("elseif") &&
		!p.atKeyword("until") && !p.atEOF() && !(p.tok.kind == tokPunct && p.tok.text == ";") {
		exprs, err := p.parseExprList()
		if err != nil {
			return node, err
		}

		node.Children = exprs
	}

	node.EndPos = p.tok.pos

	return node, nil
}

// parseExprStatement covers both a bare call statement and an assignment
// (one or more targets, "=", one or more values).
func (p *parser) parseExprStatement() (*Node, error) {
	start := p.tok.pos

	first, err := p.parsePrefixExpr()
	if err != nil {
		return nil, err
	}

	if p.tok.kind == tokOp && p.tok.text == "=" {
		p.advance()

		values, err := p.parseExprList()
		if err != nil {
			return nil, err
		}

		node := &Node{Kind: KindAssign, Pos: start, EndPos: p.tok.pos}
		node.Children = append([]*Node{first}, values...)

		return node, nil
	}

	if p.tok.kind == tokPunct && p.tok.text == "," {
		targets := []*Node{first}
		for p.tok.kind == tokPunct && p.tok.text == "," {
			p.advance()

			next, err := p.parsePrefixExpr()
			if err != nil {
				return nil, err
			}

			targets = append(targets, next)
		}

		p.expectOp("=")

		values, err := p.parseExprList()
		if err != nil {
			return nil, err
		}

		node := &Node{Kind: KindAssign, Pos: start, EndPos: p.tok.pos}
		node.Children = append(targets, values...)

		return node, nil
	}

	first.EndPos = p.tok.pos

	return first, nil
}

func (p *parser) parseExprList() ([]*Node, error) {
	first, err := p.parseExpr()
	if err != nil {
		return nil, err
	}

	exprs := []*Node{first}

	for p.tok.kind == tokPunct && p.tok.text == "," {
		p.advance()

		next, err := p.parseExpr()
		if err != nil {
			return exprs, err
		}

		exprs = append(exprs, next)
	}

	return exprs, nil
}

// Binary operator precedence, lowest to highest, per Lua's grammar; only
// ordering matters here since the Code-Map Builder only inspects and/or/not
// structure, never evaluates expressions.
var binaryPrecedence = map[string]int{
	"or": 1, "and": 2,
	"<": 3, ">": 3, "<=": 3, ">=": 3, "~=": 3, "==": 3,
	"..": 4,
	"+":  5, "-": 5,
	"*": 6, "/": 6, "%": 6,
	"^": 8, //nolint:mnd // Lua operator-precedence table, not a magic count
}

func (p *parser) parseExpr() (*Node, error) {
	return p.parseBinaryExpr(0)
}

func (p *parser) parseBinaryExpr(minPrec int) (*Node, error) {
	left, err := p.parseUnaryExpr()
	if err != nil {
		return nil, err
	}

	for {
		op := p.tok.text
		prec, ok := binaryPrecedence[op]

		if !ok || prec < minPrec {
			return left, nil
		}

		opStart := p.tok.pos
		p.advance()

		right, err := p.parseBinaryExpr(prec + 1)
		if err != nil {
			return left, err
		}

		left = &Node{
			Kind: KindBinaryExpr, Operator: op, Pos: opStart, EndPos: right.EndPos,
			Children: []*Node{left, right},
		}
	}
}

func (p *parser) parseUnaryExpr() (*Node, error) {
	if p.atKeyword("not") || (p.tok.kind == tokOp && (p.tok.text == "-" || p.tok.text == "#")) {
		start := p.tok.pos
		op := p.tok.text
		p.advance()

		operand, err := p.parseUnaryExpr()
		if err != nil {
			return nil, err
		}

		return &Node{
			Kind: KindUnaryExpr, Operator: op, Pos: start, EndPos: operand.EndPos,
			Children: []*Node{operand},
		}, nil
	}

	return p.parsePrimaryExpr()
}

func (p *parser) parsePrimaryExpr() (*Node, error) { //nolint:cyclop // one branch per literal/expression form
	start := p.tok.pos

	switch {
	case p.atKeyword("true"):
		p.advance()
		return &Node{Kind: KindLiteralTrue, Pos: start, EndPos: p.tok.pos}, nil
	case p.atKeyword("false"):
		p.advance()
		return &Node{Kind: KindLiteralFalse, Pos: start, EndPos: p.tok.pos}, nil
	case p.atKeyword("nil"):
		p.advance()
		return &Node{Kind: KindLiteralNil, Pos: start, EndPos: p.tok.pos}, nil
	case p.tok.kind == tokOp && p.tok.text == "...":
		p.advance()
		return &Node{Kind: KindVarargExpr, Pos: start, EndPos: p.tok.pos}, nil
	case p.tok.kind == tokNumber:
		text := p.tok.text
		p.advance()

		return &Node{Kind: KindLiteralNumber, Name: text, Pos: start, EndPos: p.tok.pos}, nil
	case p.tok.kind == tokString:
		text := p.tok.text
		p.advance()

		return &Node{Kind: KindLiteralString, Name: text, Pos: start, EndPos: p.tok.pos}, nil
	case p.atKeyword("function"):
		p.advance()

		node, err := p.parseFunctionBody(start, "")
		if err != nil {
			return node, err
		}

		node.Kind = KindFunctionExpr

		return node, nil
	case p.tok.kind == tokPunct && p.tok.text == "{":
		return p.parseTableExpr()
	default:
		return p.parsePrefixExpr()
	}
}

// parsePrefixExpr parses an identifier or parenthesized expression followed
// by any chain of indexing/call suffixes: a.b, a[b], a(args), a:m(args).
func (p *parser) parsePrefixExpr() (*Node, error) { //nolint:cyclop // suffix-chain dispatch mirrors the grammar
	start := p.tok.pos

	var base *Node

	if p.tok.kind == tokPunct && p.tok.text == "(" {
		p.advance()

		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}

		p.expectPunct(")")
		base = &Node{Kind: KindParenExpr, Pos: start, EndPos: p.tok.pos, Children: []*Node{inner}}
	} else {
		name := p.tok.text
		p.advance()
		base = &Node{Kind: KindIdentifier, Name: name, Pos: start, EndPos: p.tok.pos}
	}

	for {
		switch {
		case p.tok.kind == tokPunct && p.tok.text == ".":
			p.advance()
			base.Name += "." + p.tok.text
			p.advance()
		case p.tok.kind == tokPunct && p.tok.text == "[":
			p.advance()

			if _, err := p.parseExpr(); err != nil {
				return base, err
			}

			p.expectPunct("]")
		case p.tok.kind == tokOp && p.tok.text == ":":
			p.advance()
			method := p.tok.text
			p.advance()

			args, err := p.parseCallArgs()
			if err != nil {
				return base, err
			}

			base = &Node{
				Kind: KindMethodCall, Name: method, Pos: base.Pos, EndPos: p.tok.pos,
				Children: append([]*Node{base}, args...),
			}
		case p.tok.kind == tokPunct && p.tok.text == "(" || p.tok.kind == tokString || (p.tok.kind == tokPunct && p.tok.text == "{"):
			args, err := p.parseCallArgs()
			if err != nil {
				return base, err
			}

			base = &Node{Kind: KindCall, Pos: base.Pos, EndPos: p.tok.pos, Children: append([]*Node{base}, args...)}
		default:
			return base, nil
		}
	}
}

func (p *parser) parseCallArgs() ([]*Node, error) {
	if p.tok.kind == tokString {
		arg := &Node{Kind: KindLiteralString, Name: p.tok.text, Pos: p.tok.pos, EndPos: p.tok.end}
		p.advance()

		return []*Node{arg}, nil
	}

	if p.tok.kind == tokPunct && p.tok.text == "{" {
		tbl, err := p.parseTableExpr()
		return []*Node{tbl}, err
	}

	p.expectPunct("(")

	var args []*Node

	for !(p.tok.kind == tokPunct && p.tok.text == ")") {
		arg, err := p.parseExpr()
		if err != nil {
			return args, err
		}

		args = append(args, arg)

		if p.tok.kind == tokPunct && p.tok.text == "," {
			p.advance()
		}
	}

	p.expectPunct(")")

	return args, nil
}

func (p *parser) parseTableExpr() (*Node, error) {
	start := p.tok.pos
	p.expectPunct("{")

	node := &Node{Kind: KindTableExpr, Pos: start}

	for !(p.tok.kind == tokPunct && p.tok.text == "}") {
		if p.tok.kind == tokPunct && p.tok.text == "[" {
			p.advance()

			if _, err := p.parseExpr(); err != nil {
				return node, err
			}

			p.expectPunct("]")
			p.expectOp("=")
		} else if p.tok.kind == tokIdent && p.lookaheadIsAssign() {
			p.advance()
			p.expectOp("=")
		}

		val, err := p.parseExpr()
		if err != nil {
			return node, err
		}

		node.Children = append(node.Children, val)

		if p.tok.kind == tokPunct && (p.tok.text == "," || p.tok.text == ";") {
			p.advance()
		}
	}

	p.expectPunct("}")
	node.EndPos = p.tok.pos

	return node, nil
}

// lookaheadIsAssign distinguishes `{ x = 1 }` field assignment from a bare
// `{ x }` positional entry by checking whether '=' immediately follows the
// identifier in the raw source (the lexer has no backtracking, so this peeks
// at source text directly rather than re-lexing).
func (p *parser) lookaheadIsAssign() bool {
	i := p.tok.end
	for i < len(p.lex.src) && isSpace(p.lex.src[i]) {
		i++
	}

	return i < len(p.lex.src) && p.lex.src[i] == '=' && (i+1 >= len(p.lex.src) || p.lex.src[i+1] != '=')
}

func (p *parser) expectKeyword(kw string) {
	if p.atKeyword(kw) {
		p.advance()
	}
}

func (p *parser) expectOp(op string) {
	if p.tok.kind == tokOp && p.tok.text == op {
		p.advance()
	}
}

func (p *parser) expectPunct(s string) {
	if p.tok.kind == tokPunct && p.tok.text == s {
		p.advance()
	}
}
