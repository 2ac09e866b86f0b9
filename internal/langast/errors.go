package langast

// parseError is a sentinel error type, grounded on the teacher's
// buildtool/internal/parse validationError idiom: a string-backed error type
// so each failure mode is a distinct, errors.Is-comparable value without the
// boilerplate of a dedicated struct per error.
type parseError string

func (e parseError) Error() string { return string(e) }

// Sentinel errors for the three budget failure modes the parser must
// distinguish (spec.md §4.A), plus a catch-all for a malformed chunk.
const (
	ErrFileTooLarge    = parseError("source exceeds max_file_bytes")
	ErrTooDeeplyNested = parseError("nesting depth exceeds limit")
	ErrTimeout         = parseError("parse exceeded max_parse_seconds")
	ErrSyntax          = parseError("syntax error")
)
