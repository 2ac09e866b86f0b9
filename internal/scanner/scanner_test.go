package scanner_test

import (
	"testing"

	. "github.com/onsi/gomega"
	"pgregory.net/rapid"

	"github.com/covlang/scriptcov/internal/scanner"
)

func TestScan(t *testing.T) {
	t.Parallel()

	t.Run("PlainCodeIsNeitherLongNorComment", func(t *testing.T) {
		t.Parallel()
		g := NewWithT(t)

		lines := scanner.Scan("x = 1\ny = 2\n")
		g.Expect(lines[1].InLongConstruct).To(BeFalse())
		g.Expect(lines[2].InLongConstruct).To(BeFalse())
	})

	t.Run("SingleLineCommentIsMarked", func(t *testing.T) {
		t.Parallel()
		g := NewWithT(t)

		lines := scanner.Scan("-- a comment\nx = 1\n")
		g.Expect(lines[1].LineComment).To(BeTrue())
		g.Expect(lines[2].LineComment).To(BeFalse())
	})

	t.Run("LongCommentSpansMultipleLines", func(t *testing.T) {
		t.Parallel()
		g := NewWithT(t)

		src := "--[[\nthis is all comment\nstill comment\n]]\nx = 1\n"
		lines := scanner.Scan(src)

		g.Expect(lines[1].InLongConstruct).To(BeTrue())
		g.Expect(lines[2].InLongConstruct).To(BeTrue())
		g.Expect(lines[3].InLongConstruct).To(BeTrue())
		g.Expect(lines[5].InLongConstruct).To(BeFalse())
	})

	t.Run("LongStringSpansMultipleLines", func(t *testing.T) {
		t.Parallel()
		g := NewWithT(t)

		src := "print([[\nfirst\nsecond\n]])\n"
		lines := scanner.Scan(src)

		g.Expect(lines[1].InLongConstruct).To(BeFalse()) // the opener line has non-boundary content
		g.Expect(lines[2].InLongConstruct).To(BeTrue())
		g.Expect(lines[3].InLongConstruct).To(BeTrue())
	})

	t.Run("QuotePrecedingBracketsPreventsLongStringOpen", func(t *testing.T) {
		t.Parallel()
		g := NewWithT(t)

		// The "[[" here directly follows an ordinary quoted string on the same
		// line, so the heuristic must not treat it as opening a long construct.
		src := `x = "prefix" [[ not a long string on its own ]]` + "\n"
		lines := scanner.Scan(src)

		g.Expect(lines[1].InLongConstruct).To(BeFalse())
	})

	t.Run("LineWithOnlyClosingBracketIsNonExecutable", func(t *testing.T) {
		t.Parallel()
		g := NewWithT(t)

		src := "--[[\ncomment\n]]\n"
		lines := scanner.Scan(src)

		g.Expect(lines[3].InLongConstruct).To(BeTrue())
	})

	t.Run("PropertyNeverPanics", func(t *testing.T) {
		t.Parallel()
		rapid.Check(t, func(t *rapid.T) {
			g := NewWithT(t)

			src := rapid.StringN(0, 300, -1).Draw(t, "src")

			g.Expect(func() { scanner.Scan(src) }).NotTo(Panic())
		})
	})
}
