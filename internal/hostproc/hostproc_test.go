package hostproc_test

import (
	"context"
	"os/exec"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/covlang/scriptcov/internal/hostiface"
	"github.com/covlang/scriptcov/internal/hostproc"
)

func requireLua(t *testing.T) {
	t.Helper()

	if _, err := exec.LookPath(hostproc.LuaBin); err != nil {
		t.Skipf("skipping: %q not found on PATH", hostproc.LuaBin)
	}
}

func TestRewriteSourcePreservesLineNumbers(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	p := hostproc.New()

	src := "x = 1\nif x > 0 then\n  y = 2\nend\n"

	out, err := p.RewriteSource("t.lua", src)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(out).To(ContainSubstring("track_line"))
	g.Expect(out).To(ContainSubstring(`"t.lua", 1`))
}

func TestRunReplaysTrackedLinesThroughHook(t *testing.T) {
	requireLua(t)
	t.Parallel()
	g := NewWithT(t)

	p := hostproc.New()
	p.SetSource("t.lua", "x = 1\nprint(x)\n")

	var seen []int

	p.InstallHook(func(ev hostiface.Event) {
		if ev.Kind == hostiface.LineEvent {
			seen = append(seen, ev.Line)
		}
	})

	g.Expect(p.Run(context.Background(), "t.lua")).To(Succeed())
	g.Expect(seen).To(ContainElement(1))
	g.Expect(seen).To(ContainElement(2))
}
