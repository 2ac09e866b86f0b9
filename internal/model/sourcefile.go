package model

import (
	"path"
	"strings"
)

// SourceFile is the engine's record for one observed program file, keyed by
// its normalized path. Per spec.md Design Notes §9, SourceFile records live
// in an arena owned by GlobalState rather than forming a pointer cycle back
// to their owner: a SourceFile never points back at the GlobalState that
// holds it.
type SourceFile struct {
	Path          string
	Text          string
	Lines         []string // 1-indexed: Lines[0] unused.
	LineCount     int
	Map           *CodeMap // nil until parsed; absent means heuristic-only.
	Tracking      *TrackingState
	AnalysisError string // set when parsing/IO degraded this file (spec.md §7).
}

// NewSourceFile splits text into a 1-indexed line array and allocates an
// empty TrackingState for it. The CodeMap is left nil: building it is the
// Code-Map Builder's job, invoked lazily by the Reconciler or eagerly by the
// Controller when pre_analyze_files is set.
func NewSourceFile(normalizedPath, text string) *SourceFile {
	rawLines := strings.Split(text, "\n")
	// A trailing newline produces one extra empty element; spec.md treats
	// line counts as "physical lines", so a file ending in \n has the same
	// line count as one that doesn't.
	if len(rawLines) > 0 && rawLines[len(rawLines)-1] == "" && strings.HasSuffix(text, "\n") {
		rawLines = rawLines[:len(rawLines)-1]
	}

	lines := make([]string, len(rawLines)+1)
	copy(lines[1:], rawLines)

	return &SourceFile{
		Path:      normalizedPath,
		Text:      text,
		Lines:     lines,
		LineCount: len(rawLines),
		Tracking:  NewTrackingState(len(rawLines)),
	}
}

// Line returns the 1-indexed physical line n, or "" if out of range.
func (f *SourceFile) Line(n int) string {
	if f == nil || n < 1 || n >= len(f.Lines) {
		return ""
	}

	return f.Lines[n]
}

// NormalizePath canonicalizes a path the way spec.md §3 requires: forward
// slashes, no "..", no doubled slashes.
func NormalizePath(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	clean := path.Clean(p)

	// path.Clean collapses ".." at the start of a relative path down to a
	// literal ".." segment rather than erroring; spec.md forbids ".." in a
	// normalized path outright, so any surviving leading ".." segments are
	// stripped.
	for strings.HasPrefix(clean, "../") {
		clean = strings.TrimPrefix(clean, "../")
	}

	if clean == ".." {
		clean = "."
	}

	return clean
}
