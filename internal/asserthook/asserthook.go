// Package asserthook implements the Assertion Hook (spec.md §4.F): it wraps
// the host's verification primitive, and on success walks the captured
// stack trace to mark the asserting line, and the first non-test,
// non-engine subject-file line, as covered.
package asserthook

import (
	"github.com/covlang/scriptcov/internal/classify"
	"github.com/covlang/scriptcov/internal/hostiface"
	"github.com/covlang/scriptcov/internal/model"
)

// FrameParser turns a host's raw stack trace string into an ordered list of
// frames, innermost first. Stack trace formats are host-specific, so this
// is pluggable rather than hard-coded, per spec.md §4.F's "pluggable frame
// format" requirement.
type FrameParser func(trace string) []Frame

// Frame is one (path, line) pair from a parsed stack trace.
type Frame struct {
	Path string
	Line int
}

// Hook wraps a Verifier, classifying and marking covered lines on
// successful verification.
type Hook struct {
	verifier    hostiface.Verifier
	global      *model.GlobalState
	classify    *classify.Classifier
	parseFrames FrameParser
	enginePkgs  []string
}

// New creates a Hook. parseFrames is the host-specific stack-trace parser;
// enginePkgs lists path prefixes belonging to the engine or assertion
// library itself, excluded when picking the subject file (spec.md §4.F:
// "outside the engine's own modules and outside the assertion library's
// modules").
func New(verifier hostiface.Verifier, global *model.GlobalState, classifier *classify.Classifier, parseFrames FrameParser, enginePkgs []string) *Hook {
	return &Hook{
		verifier:    verifier,
		global:      global,
		classify:    classifier,
		parseFrames: parseFrames,
		enginePkgs:  enginePkgs,
	}
}

// Verify calls through to the wrapped Verifier; on success it analyzes
// trace and marks the picked lines covered. It returns the Verifier's
// result unchanged — the hook never alters verification outcomes.
func (h *Hook) Verify(subject, expected any, trace string) bool {
	ok := h.verifier.Verify(subject, expected)
	if !ok {
		return false
	}

	h.markCovered(trace)

	return true
}

func (h *Hook) markCovered(trace string) {
	frames := h.parseFrames(trace)

	testFrame, hasTest := h.firstTestFrame(frames)
	if hasTest {
		h.markLine(testFrame)
	}

	subjectFrame, hasSubject := h.firstSubjectFrame(frames)
	if hasSubject {
		h.markLine(subjectFrame)
	}
}

func (h *Hook) firstTestFrame(frames []Frame) (Frame, bool) {
	for _, f := range frames {
		if h.classify.Classify(f.Path, "") == classify.Test {
			return f, true
		}
	}

	return Frame{}, false
}

func (h *Hook) firstSubjectFrame(frames []Frame) (Frame, bool) {
	for _, f := range frames {
		if h.classify.Classify(f.Path, "") == classify.Test {
			continue
		}

		if h.isEnginePath(f.Path) {
			continue
		}

		return f, true
	}

	return Frame{}, false
}

func (h *Hook) isEnginePath(path string) bool {
	for _, prefix := range h.enginePkgs {
		if len(path) >= len(prefix) && path[:len(prefix)] == prefix {
			return true
		}
	}

	return false
}

func (h *Hook) markLine(f Frame) {
	sf := h.global.Get(f.Path)
	if sf == nil {
		sf = model.NewSourceFile(f.Path, "")
		h.global.Put(sf)
		h.global.MarkActive(f.Path)
	}

	sf.Tracking.MarkCovered(f.Line)
}
