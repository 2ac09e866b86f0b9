package model_test

import (
	"testing"

	. "github.com/onsi/gomega"

	"github.com/covlang/scriptcov/internal/model"
)

func TestNewSourceFile(t *testing.T) {
	t.Parallel()

	t.Run("TrailingNewlineDoesNotAddExtraLine", func(t *testing.T) {
		t.Parallel()
		g := NewWithT(t)

		f := model.NewSourceFile("a.lua", "x = 1\ny = 2\n")

		g.Expect(f.LineCount).To(Equal(2))
		g.Expect(f.Line(1)).To(Equal("x = 1"))
		g.Expect(f.Line(2)).To(Equal("y = 2"))
	})

	t.Run("NoTrailingNewlineCountsSameAsWithOne", func(t *testing.T) {
		t.Parallel()
		g := NewWithT(t)

		f := model.NewSourceFile("a.lua", "x = 1\ny = 2")

		g.Expect(f.LineCount).To(Equal(2))
	})

	t.Run("EmptyFileHasZeroLines", func(t *testing.T) {
		t.Parallel()
		g := NewWithT(t)

		f := model.NewSourceFile("empty.lua", "")

		g.Expect(f.LineCount).To(Equal(0))
	})

	t.Run("LineOutOfRangeReturnsEmptyString", func(t *testing.T) {
		t.Parallel()
		g := NewWithT(t)

		f := model.NewSourceFile("a.lua", "x = 1\n")

		g.Expect(f.Line(0)).To(Equal(""))
		g.Expect(f.Line(99)).To(Equal(""))

		var nilFile *model.SourceFile
		g.Expect(nilFile.Line(1)).To(Equal(""))
	})
}

func TestNormalizePath(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"BackslashesBecomeForwardSlashes", `a\b\c.lua`, "a/b/c.lua"},
		{"DoubledSlashesCollapse", "a//b.lua", "a/b.lua"},
		{"LeadingParentSegmentsAreStripped", "../../a.lua", "a.lua"},
		{"BareParentBecomesDot", "..", "."},
		{"AlreadyCleanPathIsUnchanged", "a/b/c.lua", "a/b/c.lua"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			g := NewWithT(t)

			g.Expect(model.NormalizePath(tc.in)).To(Equal(tc.want))
		})
	}
}
