package classify_test

import (
	"testing"

	. "github.com/onsi/gomega"

	"github.com/covlang/scriptcov/internal/classify"
)

func cfg() classify.Config {
	return classify.Config{
		Exclude:      []string{"vendor/**", "**/*.min.lua"},
		SourceExtens: []string{".lua"},
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	t.Run("PathMatchingTestPatternIsTest", func(t *testing.T) {
		t.Parallel()
		g := NewWithT(t)

		c := classify.New(cfg())
		g.Expect(c.Classify("widget_test.lua", "")).To(Equal(classify.Test))
		g.Expect(c.Classify("spec/widget_spec.lua", "")).To(Equal(classify.Test))
		g.Expect(c.Classify("tests/helpers.lua", "")).To(Equal(classify.Test))
	})

	t.Run("ContentFingerprintOverridesSourceExtension", func(t *testing.T) {
		t.Parallel()
		g := NewWithT(t)

		c := classify.New(cfg())
		got := c.Classify("widget.lua", `describe("widget", function() end)`)
		g.Expect(got).To(Equal(classify.Test))
	})

	t.Run("ContentFingerprintNeverOverridesToNonTest", func(t *testing.T) {
		t.Parallel()
		g := NewWithT(t)

		c := classify.New(cfg())
		// Path matches a test pattern; content has no fingerprint. Path alone
		// is sufficient, per spec.md §4.D's independent-OR wording.
		got := c.Classify("widget_test.lua", "local x = 1")
		g.Expect(got).To(Equal(classify.Test))
	})

	t.Run("ExcludePatternWins", func(t *testing.T) {
		t.Parallel()
		g := NewWithT(t)

		c := classify.New(cfg())
		g.Expect(c.Classify("vendor/lib.lua", "")).To(Equal(classify.FrameworkExcluded))
	})

	t.Run("SourceExtensionIsSource", func(t *testing.T) {
		t.Parallel()
		g := NewWithT(t)

		c := classify.New(cfg())
		g.Expect(c.Classify("widget.lua", "")).To(Equal(classify.Source))
	})

	t.Run("UnknownExtensionIsOther", func(t *testing.T) {
		t.Parallel()
		g := NewWithT(t)

		c := classify.New(cfg())
		g.Expect(c.Classify("README.md", "")).To(Equal(classify.Other))
	})

	t.Run("DecisionsAreMemoized", func(t *testing.T) {
		t.Parallel()
		g := NewWithT(t)

		c := classify.New(cfg())
		first := c.Classify("widget.lua", "")
		second := c.Classify("widget.lua", "")
		g.Expect(first).To(Equal(second))
	})
}
