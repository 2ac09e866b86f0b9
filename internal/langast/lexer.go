package langast

import "strings"

// tokKind enumerates lexical token categories. Kept separate from Kind:
// tokens are a lexer-internal concern, Kind is the parser's output vocabulary.
type tokKind int

const (
	tokEOF tokKind = iota
	tokIdent
	tokKeyword
	tokNumber
	tokString
	tokOp
	tokPunct
)

type token struct {
	kind tokKind
	text string
	pos  int
	end  int
}

var keywords = map[string]bool{
	"and": true, "break": true, "do": true, "else": true, "elseif": true,
	"end": true, "false": true, "for": true, "function": true, "goto": true,
	"if": true, "in": true, "local": true, "nil": true, "not": true,
	"or": true, "repeat": true, "return": true, "then": true, "true": true,
	"until": true, "while": true,
}

// lexer is a hand-rolled scanner over the source buffer, producing tokens on
// demand. It shares no code with the Comment/String Scanner (internal/scanner):
// that module classifies whole lines for the heuristic fallback path, this
// one tokenizes for the real parser. Both independently implement the same
// long-bracket grammar because they serve different consumers with different
// failure tolerance (the scanner must never fail; the lexer may, via a typed
// error, when budgets are exceeded upstream).
type lexer struct {
	src string
	pos int
}

func newLexer(src string) *lexer {
	return &lexer{src: src}
}

func (l *lexer) peekByte() byte {
	if l.pos >= len(l.src) {
		return 0
	}

	return l.src[l.pos]
}

func (l *lexer) byteAt(offset int) byte {
	i := l.pos + offset
	if i >= len(l.src) {
		return 0
	}

	return l.src[i]
}

func isSpace(b byte) bool { return b == ' ' || b == '\t' || b == '\r' || b == '\n' }

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isAlpha(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isAlnum(b byte) bool { return isAlpha(b) || isDigit(b) }

// next returns the next token, skipping whitespace and comments.
func (l *lexer) next() token {
	for {
		l.skipSpace()

		if l.peekByte() == '-' && l.byteAt(1) == '-' {
			l.skipComment()
			continue
		}

		break
	}

	start := l.pos

	if l.pos >= len(l.src) {
		return token{kind: tokEOF, pos: start, end: start}
	}

	b := l.peekByte()

	switch {
	case isAlpha(b):
		return l.lexIdent()
	case isDigit(b):
		return l.lexNumber()
	case b == '"' || b == '\'':
		return l.lexQuotedString()
	case b == '[' && (l.byteAt(1) == '[' || l.byteAt(1) == '='):
		if ok, tok := l.tryLexLongString(); ok {
			return tok
		}

		return l.lexOpOrPunct()
	default:
		return l.lexOpOrPunct()
	}
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.src) && isSpace(l.src[l.pos]) {
		l.pos++
	}
}

func (l *lexer) skipComment() {
	l.pos += 2 // consume "--"

	if l.peekByte() == '[' {
		if level, ok := longBracketLevel(l.src, l.pos); ok {
			if end, closed := findLongBracketEnd(l.src, l.pos, level); closed {
				l.pos = end
				return
			}

			l.pos = len(l.src)

			return
		}
	}

	for l.pos < len(l.src) && l.src[l.pos] != '\n' {
		l.pos++
	}
}

func (l *lexer) lexIdent() token {
	start := l.pos
	for l.pos < len(l.src) && isAlnum(l.src[l.pos]) {
		l.pos++
	}

	text := l.src[start:l.pos]
	kind := tokIdent

	if keywords[text] {
		kind = tokKeyword
	}

	return token{kind: kind, text: text, pos: start, end: l.pos}
}

func (l *lexer) lexNumber() token {
	start := l.pos
	for l.pos < len(l.src) && (isAlnum(l.src[l.pos]) || l.src[l.pos] == '.') {
		l.pos++
	}

	return token{kind: tokNumber, text: l.src[start:l.pos], pos: start, end: l.pos}
}

func (l *lexer) lexQuotedString() token {
	quote := l.src[l.pos]
	start := l.pos
	l.pos++

	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == '\\' {
			l.pos += 2
			continue
		}

		if c == quote {
			l.pos++
			break
		}

		if c == '\n' {
			break // unterminated; stop so the parser can surface a syntax error.
		}

		l.pos++
	}

	return token{kind: tokString, text: l.src[start:l.pos], pos: start, end: l.pos}
}

// tryLexLongString attempts to lex a [[ ... ]] / [=[ ... ]=] long string
// starting at l.pos. Returns ok=false if what looked like a long bracket
// opener isn't one (so the caller falls back to treating '[' as punctuation).
func (l *lexer) tryLexLongString() (bool, token) {
	start := l.pos

	level, ok := longBracketLevel(l.src, l.pos)
	if !ok {
		return false, token{}
	}

	end, _ := findLongBracketEnd(l.src, l.pos, level)
	l.pos = end

	return true, token{kind: tokString, text: l.src[start:end], pos: start, end: end}
}

// longBracketLevel checks whether src[pos:] opens a long bracket ([[, [=[,
// [==[, ...) and returns its level (number of '=' signs).
func longBracketLevel(src string, pos int) (int, bool) {
	if pos >= len(src) || src[pos] != '[' {
		return 0, false
	}

	i := pos + 1
	level := 0

	for i < len(src) && src[i] == '=' {
		level++
		i++
	}

	if i < len(src) && src[i] == '[' {
		return level, true
	}

	return 0, false
}

// findLongBracketEnd scans from the opener at pos for the matching closer at
// the given level, returning the offset just past it (or len(src), false if
// unterminated).
func findLongBracketEnd(src string, pos, level int) (int, bool) {
	closer := "]" + strings.Repeat("=", level) + "]"
	openLen := level + 2 // "[" + "="*level + "["

	idx := strings.Index(src[pos+openLen:], closer)
	if idx < 0 {
		return len(src), false
	}

	return pos + openLen + idx + len(closer), true
}

var multiCharOps = []string{
	"...", "..", "==", "~=", "<=", ">=", "::",
}

func (l *lexer) lexOpOrPunct() token {
	start := l.pos

	for _, op := range multiCharOps {
		if strings.HasPrefix(l.src[l.pos:], op) {
			l.pos += len(op)
			return token{kind: tokOp, text: op, pos: start, end: l.pos}
		}
	}

	b := l.src[l.pos]
	l.pos++

	kind := tokPunct
	switch b {
	case '+', '-', '*', '/', '%', '^', '#', '<', '>', '=', '&', '~', '|':
		kind = tokOp
	}

	return token{kind: kind, text: string(b), pos: start, end: l.pos}
}
