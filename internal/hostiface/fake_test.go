package hostiface_test

import (
	"testing"

	. "github.com/onsi/gomega"

	"github.com/covlang/scriptcov/internal/hostiface"
)

func TestFakeHost(t *testing.T) {
	t.Parallel()

	t.Run("FireDeliversToInstalledHook", func(t *testing.T) {
		t.Parallel()
		g := NewWithT(t)

		h := hostiface.NewFakeHost()

		var got hostiface.Event
		h.InstallHook(func(ev hostiface.Event) { got = ev })

		h.Fire(hostiface.Event{Kind: hostiface.LineEvent, Path: "a.lua", Line: 3})

		g.Expect(got.Path).To(Equal("a.lua"))
		g.Expect(got.Line).To(Equal(3))
	})

	t.Run("RemoveHookRestoresPrevious", func(t *testing.T) {
		t.Parallel()
		g := NewWithT(t)

		h := hostiface.NewFakeHost()

		var firstCalls, secondCalls int
		prev := h.InstallHook(func(hostiface.Event) { firstCalls++ })
		prev2 := h.InstallHook(func(hostiface.Event) { secondCalls++ })

		h.Fire(hostiface.Event{})
		g.Expect(secondCalls).To(Equal(1))
		g.Expect(firstCalls).To(Equal(0))

		h.RemoveHook(prev2)
		h.Fire(hostiface.Event{})
		g.Expect(firstCalls).To(Equal(1))

		h.RemoveHook(prev)
		h.Fire(hostiface.Event{})
		g.Expect(firstCalls).To(Equal(1)) // no hook installed, no further calls
	})

	t.Run("StackTraceRoundTrips", func(t *testing.T) {
		t.Parallel()
		g := NewWithT(t)

		h := hostiface.NewFakeHost()
		h.SetStackTrace("frame1\nframe2")
		g.Expect(h.CurrentStackTrace()).To(Equal("frame1\nframe2"))
	})
}

func TestFakeVerifier(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	v := &hostiface.FakeVerifier{Result: true}
	g.Expect(v.Verify(1, 1)).To(BeTrue())

	v.Result = false
	g.Expect(v.Verify(1, 2)).To(BeFalse())
}
