package scriptcov_test

import (
	"errors"
	"testing"

	. "github.com/onsi/gomega"

	scriptcov "github.com/covlang/scriptcov"
)

func TestError(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	inner := errors.New("boom")
	err := &scriptcov.Error{Kind: scriptcov.FileTooLarge, Path: "a.lua", Err: inner}

	g.Expect(err.Error()).To(ContainSubstring("file_too_large"))
	g.Expect(err.Error()).To(ContainSubstring("a.lua"))
	g.Expect(errors.Unwrap(err)).To(Equal(inner))
}

func TestEngineValidationErrors(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	e := newEngine(t)
	g.Expect(e.Start(nil)).To(Succeed())

	err := e.TrackLine("", 1)
	g.Expect(err).To(HaveOccurred())
	var scErr *scriptcov.Error
	g.Expect(errors.As(err, &scErr)).To(BeTrue())
	g.Expect(scErr.Kind).To(Equal(scriptcov.Validation))

	g.Expect(e.TrackLine("a.lua", 0)).To(HaveOccurred())
}
