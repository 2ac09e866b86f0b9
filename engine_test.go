package scriptcov_test

import (
	"testing"

	. "github.com/onsi/gomega"

	scriptcov "github.com/covlang/scriptcov"
	"github.com/covlang/scriptcov/internal/hostiface"
)

func newEngine(t *testing.T) *scriptcov.Engine {
	t.Helper()

	e := scriptcov.New()
	cfg := scriptcov.DefaultConfig()
	cfg.Enabled = true
	cfg.Include = []string{"**/*.lua"}

	if err := e.Init(cfg); err != nil {
		t.Fatalf("init: %v", err)
	}

	return e
}

func TestEngineLifecycle(t *testing.T) {
	t.Parallel()

	t.Run("StartWithoutInitFails", func(t *testing.T) {
		t.Parallel()
		g := NewWithT(t)

		e := scriptcov.New()
		err := e.Start(hostiface.NewFakeHost())
		g.Expect(err).To(HaveOccurred())
	})

	t.Run("DoubleStartIsANoOp", func(t *testing.T) {
		t.Parallel()
		g := NewWithT(t)

		e := newEngine(t)
		host := hostiface.NewFakeHost()

		g.Expect(e.Start(host)).To(Succeed())
		g.Expect(e.Start(host)).To(Succeed())
	})

	t.Run("StopWhileIdleIsANoOp", func(t *testing.T) {
		t.Parallel()
		g := NewWithT(t)

		e := newEngine(t)
		g.Expect(e.Stop()).To(Succeed())
	})

	t.Run("StartStopStartStopIsEquivalentToOnce", func(t *testing.T) {
		t.Parallel()
		g := NewWithT(t)

		e := newEngine(t)
		host := hostiface.NewFakeHost()
		host.SetSource("a.lua", "x = 1\n")

		g.Expect(e.Start(host)).To(Succeed())
		host.Fire(hostiface.Event{Kind: hostiface.LineEvent, Path: "a.lua", Line: 1})
		g.Expect(e.Stop()).To(Succeed())
		g.Expect(e.Start(host)).To(Succeed())
		g.Expect(e.Stop()).To(Succeed())

		executed, err := e.WasLineExecuted("a.lua", 1)
		g.Expect(err).NotTo(HaveOccurred())
		g.Expect(executed).To(BeTrue())
	})
}

// TestSingleLineLiteral is spec.md §8 scenario 1.
func TestSingleLineLiteral(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	e := newEngine(t)
	host := hostiface.NewFakeHost()
	host.SetSource("a.lua", "return 1 + 2\n")

	g.Expect(e.Start(host)).To(Succeed())
	host.Fire(hostiface.Event{Kind: hostiface.LineEvent, Path: "a.lua", Line: 1})
	g.Expect(e.TrackLine("a.lua", 1)).To(Succeed()) // explicit executed mark; the covered mark is set below
	g.Expect(e.Stop()).To(Succeed())

	raw := e.GetRawData()
	sf := raw.Get("a.lua")
	sf.Tracking.MarkCovered(1)

	report, err := e.GetReportData()
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(report.Files).To(HaveLen(1))
	g.Expect(report.Files[0].TotalExecutableLines).To(Equal(1))
	g.Expect(report.Files[0].CoveredLines).To(Equal(1))
	g.Expect(report.Files[0].LinePercent).To(Equal(100.0))
}

// TestCommentOnlyFile is spec.md §8 scenario 2.
func TestCommentOnlyFile(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	e := newEngine(t)
	host := hostiface.NewFakeHost()

	src := ""
	for i := 0; i < 10; i++ {
		src += "-- comment\n"
	}

	host.SetSource("c.lua", src)

	g.Expect(e.Start(host)).To(Succeed())
	host.Fire(hostiface.Event{Kind: hostiface.LineEvent, Path: "c.lua", Line: 1})
	g.Expect(e.Stop()).To(Succeed())

	report, err := e.GetReportData()
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(report.Files).To(HaveLen(1))
	g.Expect(report.Files[0].TotalExecutableLines).To(Equal(0))
	g.Expect(report.Files[0].OverallPercent).To(Equal(0.0))
	g.Expect(report.Files[0].Discovered).To(BeTrue())
}

// TestMultiLineCommentWithActiveCode is spec.md §8 scenario 4.
func TestMultiLineCommentWithActiveCode(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	e := newEngine(t)
	host := hostiface.NewFakeHost()
	host.SetSource("m.lua", "--[[\nprint(\"noise\")\n]]\nprint(\"real\")\n")

	g.Expect(e.Start(host)).To(Succeed())
	host.Fire(hostiface.Event{Kind: hostiface.LineEvent, Path: "m.lua", Line: 4})
	g.Expect(e.Stop()).To(Succeed())

	report, err := e.GetReportData()
	g.Expect(err).NotTo(HaveOccurred())

	fr := report.Files[0]
	g.Expect(fr.Lines[0].Kind.String()).To(Equal("non_executable"))
	g.Expect(fr.Lines[1].Kind.String()).To(Equal("non_executable"))
	g.Expect(fr.Lines[2].Kind.String()).To(Equal("non_executable"))
	g.Expect(fr.Lines[3].Executed).To(BeTrue())
	g.Expect(fr.TotalExecutableLines).To(Equal(1))
}

// TestParseFailureFallback is spec.md §8 scenario 6.
func TestParseFailureFallback(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	e := newEngine(t)
	host := hostiface.NewFakeHost()

	src := ""
	for i := 0; i < 5000; i++ {
		src += "("
	}

	src += "1"

	for i := 0; i < 5000; i++ {
		src += ")"
	}

	src += "\nx = 1\n"
	host.SetSource("deep.lua", src)

	g.Expect(e.Start(host)).To(Succeed())
	host.Fire(hostiface.Event{Kind: hostiface.LineEvent, Path: "deep.lua", Line: 2})
	g.Expect(e.Stop()).To(Succeed())

	report, err := e.GetReportData()
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(report.Files).To(HaveLen(1))
	g.Expect(report.Files[0].AnalysisError).NotTo(BeEmpty())

	executed, werr := e.WasLineExecuted("deep.lua", 2)
	g.Expect(werr).NotTo(HaveOccurred())
	g.Expect(executed).To(BeTrue())
}

// TestIfElseBranchCoverageWithoutElse is spec.md §8 scenario 3.
func TestIfElseBranchCoverageWithoutElse(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	e := newEngine(t)
	host := hostiface.NewFakeHost()
	src := "local function f(x)\n" +
		"  if x > 0 then\n" +
		"    return x\n" +
		"  else\n" +
		"    return -x\n" +
		"  end\n" +
		"end\n" +
		"return f(5)\n"
	host.SetSource("branch.lua", src)

	g.Expect(e.Start(host)).To(Succeed())

	for _, line := range []int{1, 2, 3, 7} {
		host.Fire(hostiface.Event{Kind: hostiface.LineEvent, Path: "branch.lua", Line: line})
		g.Expect(e.TrackLine("branch.lua", line)).To(Succeed())
	}

	g.Expect(e.Stop()).To(Succeed())

	report, err := e.GetReportData()
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(report.Files).To(HaveLen(1))

	fr := report.Files[0]
	g.Expect(fr.Lines[2].Executed).To(BeTrue())  // line 3: "return x"
	g.Expect(fr.Lines[4].Executed).To(BeFalse()) // line 5: "return -x", else branch never taken

	var thenExecuted, elseExecuted bool
	var sawThen, sawElse bool

	for _, b := range fr.Blocks {
		switch string(b.Block.Kind) {
		case "Then":
			sawThen = true
			thenExecuted = b.Executed
		case "Else":
			sawElse = true
			elseExecuted = b.Executed
		}
	}

	g.Expect(sawThen).To(BeTrue())
	g.Expect(sawElse).To(BeTrue())
	g.Expect(thenExecuted).To(BeTrue())
	g.Expect(elseExecuted).To(BeFalse())

	var fExecuted bool
	for _, fn := range fr.Functions {
		if fn.Function.Name == "f" {
			fExecuted = fn.Executed
		}
	}

	g.Expect(fExecuted).To(BeTrue())
}

// TestAssertionAttributionAcrossTestAndSubjectFiles is spec.md §8 scenario 5.
func TestAssertionAttributionAcrossTestAndSubjectFiles(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	e := newEngine(t)
	host := hostiface.NewFakeHost()
	host.SetSource("lib.lua", "local function add(a, b)\n  return a + b\nend\n")
	host.SetSource("foo_test.lua", "local r = add(2, 2)\nassert(r == 4)\n")

	g.Expect(e.Start(host)).To(Succeed())

	verifier := &hostiface.FakeVerifier{Result: true}
	hook := e.AssertionVerifier(verifier, nil, []string{"engine/"})

	host.Fire(hostiface.Event{Kind: hostiface.LineEvent, Path: "foo_test.lua", Line: 1})
	host.Fire(hostiface.Event{Kind: hostiface.LineEvent, Path: "lib.lua", Line: 2})

	trace := "foo_test.lua:2:\nlib.lua:2:\n"
	g.Expect(hook.Verify(4, 4, trace)).To(BeTrue())

	g.Expect(e.Stop()).To(Succeed())

	report, err := e.GetReportData()
	g.Expect(err).NotTo(HaveOccurred())

	var libReport, testReport *scriptcov.FileReport
	for i := range report.Files {
		switch report.Files[i].Path {
		case "lib.lua":
			libReport = &report.Files[i]
		case "foo_test.lua":
			testReport = &report.Files[i]
		}
	}

	g.Expect(libReport).NotTo(BeNil())
	g.Expect(libReport.Lines[1].Executed).To(BeTrue())
	g.Expect(libReport.Lines[1].Covered).To(BeTrue())

	g.Expect(testReport).To(BeNil())
}

func TestResetClearsTrackingNotCodeMaps(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	e := newEngine(t)
	host := hostiface.NewFakeHost()
	host.SetSource("a.lua", "x = 1\n")

	g.Expect(e.Start(host)).To(Succeed())
	host.Fire(hostiface.Event{Kind: hostiface.LineEvent, Path: "a.lua", Line: 1})
	g.Expect(e.Stop()).To(Succeed())

	_, err := e.GetReportData() // forces parsing, populates CodeMap
	g.Expect(err).NotTo(HaveOccurred())

	mapBefore := e.GetRawData().Get("a.lua").Map
	g.Expect(mapBefore).NotTo(BeNil())

	g.Expect(e.Reset()).To(Succeed())

	sf := e.GetRawData().Get("a.lua")
	g.Expect(sf.Tracking.Executed[1]).To(BeFalse())
	g.Expect(sf.Map).To(BeIdenticalTo(mapBefore))
}

func TestFullResetWipesEverything(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	e := newEngine(t)
	host := hostiface.NewFakeHost()
	host.SetSource("a.lua", "x = 1\n")

	g.Expect(e.Start(host)).To(Succeed())
	host.Fire(hostiface.Event{Kind: hostiface.LineEvent, Path: "a.lua", Line: 1})
	g.Expect(e.Stop()).To(Succeed())

	g.Expect(e.FullReset()).To(Succeed())
	g.Expect(e.GetRawData().Len()).To(Equal(0))
}
