// Package patch implements the Patcher (spec.md §4.I): an idempotent
// post-processor that re-scans a file's source with the Scanner and
// unconditionally clears `executed`/`covered` on any line the Scanner (not
// the AST) considers non-executable. It exists to decouple correctness from
// the Parser: even a wrongly-optimistic AST-based classification gets
// corrected here.
package patch

import (
	"strings"

	"github.com/covlang/scriptcov/internal/model"
	"github.com/covlang/scriptcov/internal/scanner"
)

// Patch clears Executed and Covered on every line of sf that the Scanner
// alone (not the AST) would call non-executable: inside a long comment or
// long-string interior, a single-line comment, or blank. It never sets a
// bit — only clears, per spec.md §4.I — and is safe to call more than
// once: a second call on already-patched state is a no-op.
func Patch(sf *model.SourceFile) {
	if sf == nil || sf.Tracking == nil {
		return
	}

	lines := scanner.Scan(sf.Text)

	for line := 1; line < len(lines); line++ {
		li := lines[line]
		if li.InLongConstruct || li.LineComment || strings.TrimSpace(sf.Line(line)) == "" {
			sf.Tracking.ClearLine(line)
		}
	}
}

// PatchAll runs Patch over every file in global.
func PatchAll(global *model.GlobalState) {
	for _, sf := range global.Files() {
		Patch(sf)
	}
}
