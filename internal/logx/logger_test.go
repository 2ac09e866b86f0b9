package logx_test

import (
	"strconv"
	"strings"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/covlang/scriptcov/internal/logx"
)

func TestLogger(t *testing.T) {
	t.Parallel()

	t.Run("RespectsMinLevel", func(t *testing.T) {
		t.Parallel()
		g := NewWithT(t)

		var buf strings.Builder

		l := logx.New(&buf, logx.LevelWarn)
		l.Debugf("should not appear")
		l.Warnf("should appear")
		l.Close()

		g.Expect(buf.String()).NotTo(ContainSubstring("should not appear"))
		g.Expect(buf.String()).To(ContainSubstring("should appear"))
	})

	t.Run("PreservesOrderUnderConcurrency", func(t *testing.T) {
		t.Parallel()
		g := NewWithT(t)

		var buf strings.Builder

		l := logx.New(&buf, logx.LevelVerbose)
		for i := range 50 {
			l.Infof("line %d", i)
		}
		l.Close()

		lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
		g.Expect(lines).To(HaveLen(50))

		for i, line := range lines {
			g.Expect(line).To(ContainSubstring("line " + strconv.Itoa(i)))
		}
	})

	t.Run("LogIncludesSortedKeyValuePairs", func(t *testing.T) {
		t.Parallel()
		g := NewWithT(t)

		var buf strings.Builder

		l := logx.New(&buf, logx.LevelVerbose)
		l.Log(logx.LevelInfo, "parsed file", "path", "a.lua", "lines", 42)
		l.Close()

		g.Expect(buf.String()).To(ContainSubstring("parsed file"))
		g.Expect(buf.String()).To(ContainSubstring("lines=42"))
		g.Expect(buf.String()).To(ContainSubstring("path=a.lua"))
	})

	t.Run("DiscardDropsEverything", func(t *testing.T) {
		t.Parallel()
		g := NewWithT(t)

		d := logx.Discard{}
		d.Log(logx.LevelError, "ignored")
		g.Expect(true).To(BeTrue()) // Discard must not panic; nothing else to assert.
	})
}
