package logx

import (
	"strings"
	"testing"

	. "github.com/onsi/gomega"
)

func TestPrinter(t *testing.T) {
	t.Parallel()

	t.Run("SendAndClose", func(t *testing.T) {
		t.Parallel()
		g := NewWithT(t)

		var buf strings.Builder

		p := newPrinter(&buf, 10)
		p.send("[parse] done\n")
		p.close()

		g.Expect(buf.String()).To(Equal("[parse] done\n"))
	})

	t.Run("PreservesOrder", func(t *testing.T) {
		t.Parallel()
		g := NewWithT(t)

		var buf strings.Builder

		p := newPrinter(&buf, 1)
		for i := range 100 {
			p.send(strings.Repeat("x", i) + "\n")
		}
		p.close()

		lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
		g.Expect(lines).To(HaveLen(100))

		for i, line := range lines {
			g.Expect(line).To(Equal(strings.Repeat("x", i)))
		}
	})
}
