// Package reconcile implements the Reconciler (spec.md §4.G): the seven
// ordered phases that turn a GlobalState into an immutable ReportData —
// discovery, late parsing, invariant enforcement, function/block-execution
// derivation, statistics, and emission.
package reconcile

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/covlang/scriptcov/internal/codemap"
	"github.com/covlang/scriptcov/internal/langast"
	"github.com/covlang/scriptcov/internal/logx"
	"github.com/covlang/scriptcov/internal/model"
	"github.com/covlang/scriptcov/internal/patch"
	"github.com/covlang/scriptcov/internal/scanner"
)

// Weighting constants for phase 6's overall-percent formula (spec.md §4.G).
// Both sets sum to 1.0 — see weights_test.go's TestWeightConstantsSumToOne.
const (
	lineWeightNoBlocks     = 0.8
	functionWeightNoBlocks = 0.2

	lineWeightWithBlocks     = 0.35
	functionWeightWithBlocks = 0.15
	blockWeightWithBlocks    = 0.50
)

// Discoverer is the external discovery collaborator (spec.md §6):
// discover_files(roots, include, exclude) → path[].
type Discoverer func(roots, include, exclude []string) ([]string, error)

// SourceReader reads a discovered path's text, used by phase 1 to
// materialize SourceFiles for files the hook/instrumentation never touched.
type SourceReader func(path string) (string, error)

// Options configures the Reconciler, mirroring the subset of spec.md §6's
// engine config it consults.
type Options struct {
	DiscoverUncovered                 bool
	UseStaticAnalysis                 bool
	TrackBlocks                       bool
	TrackFunctions                    bool
	TreatBlockTerminatorsAsExecutable bool
	Threshold                         int
	SourceDirs                        []string
	Include                           []string
	Exclude                           []string
	MaxParseSeconds                   time.Duration
	MaxCodemapSeconds                 time.Duration
	MaxASTNodes                       int
	MaxNestingDepth                   int
	Cache                             *codemap.Cache // nil disables cache_parsed_files.

	// IsTestFile reports whether path is a test file (spec.md §4.F/§8
	// scenario 5: a test file's own SourceFile keeps TrackingState for
	// assertion attribution, but never appears in the emitted report).
	// nil means no file is excluded this way.
	IsTestFile func(path string) bool
}

// DefaultOptions returns the spec-mandated config defaults relevant to
// reconciliation (spec.md §6).
func DefaultOptions() Options {
	return Options{
		DiscoverUncovered:                 true,
		UseStaticAnalysis:                 true,
		TrackBlocks:                       true,
		TrackFunctions:                    true,
		TreatBlockTerminatorsAsExecutable: true,
		Threshold:                         90, //nolint:mnd // spec-mandated default
		SourceDirs:                        []string{"."},
		MaxParseSeconds:                   60 * time.Second,  //nolint:mnd // spec-mandated constant
		MaxCodemapSeconds:                 120 * time.Second, //nolint:mnd // spec-mandated constant
		MaxASTNodes:                       100_000,
		MaxNestingDepth:                   100, //nolint:mnd // spec-mandated constant
	}
}

// Reconcile runs all seven phases over global and returns the resulting
// ReportData. discover and read may be nil when DiscoverUncovered is false
// or no files need reading from disk; log may be nil.
func Reconcile(ctx context.Context, global *model.GlobalState, opts Options, discover Discoverer, read SourceReader, log logx.Sink) (*model.ReportData, error) {
	if log == nil {
		log = logx.Discard{}
	}

	if err := phaseDiscovery(global, opts, discover, read, log); err != nil {
		return nil, err
	}

	phaseLateParsing(ctx, global, opts, log)
	phaseInvariantEnforcement(global)
	phaseFunctionDerivation(global)
	phaseBlockDerivation(global)

	return phaseStatisticsAndEmission(global, opts), nil
}

// phaseDiscovery is spec.md §4.G phase 1.
func phaseDiscovery(global *model.GlobalState, opts Options, discover Discoverer, read SourceReader, log logx.Sink) error {
	if !opts.DiscoverUncovered || discover == nil {
		return nil
	}

	paths, err := discover(opts.SourceDirs, opts.Include, opts.Exclude)
	if err != nil {
		log.Log(logx.LevelWarn, "reconcile: discovery failed", "err", err.Error())
		return nil //nolint:nilerr // discovery failure degrades gracefully, per spec.md §4.G's failure semantics
	}

	for _, p := range paths {
		if global.Get(p) != nil {
			continue
		}

		text := ""

		if read != nil {
			if t, rerr := read(p); rerr == nil {
				text = t
			} else {
				log.Log(logx.LevelDebug, "reconcile: could not read discovered file", "path", p, "err", rerr.Error())
			}
		}

		sf := model.NewSourceFile(p, text)
		sf.Tracking.Discovered = true
		sf.Tracking.Active = false
		global.Put(sf)
	}

	return nil
}

// phaseLateParsing is spec.md §4.G phase 2: every file with no CodeMap gets
// one, fanned out across files concurrently via errgroup since CodeMap
// construction touches only call-local state (internal/codemap's
// blockBuilder/conditionBuilder refactor exists specifically so this is safe).
func phaseLateParsing(ctx context.Context, global *model.GlobalState, opts Options, log logx.Sink) {
	if !opts.UseStaticAnalysis {
		return
	}

	files := global.Files()

	g, gctx := errgroup.WithContext(ctx)

	for _, sf := range files {
		sf := sf
		if sf.Map != nil || sf.Text == "" {
			continue
		}

		g.Go(func() error {
			if opts.Cache != nil {
				if cm, ok := opts.Cache.Get(sf.Path, sf.Text); ok {
					sf.Map = cm
					return nil
				}
			}

			parseOpts := langast.DefaultOptions()
			parseOpts.MaxParseSeconds = opts.MaxParseSeconds
			parseOpts.MaxNestingDepth = opts.MaxNestingDepth

			astFile, err := langast.Parse(gctx, sf.Path, sf.Text, parseOpts)
			if err != nil {
				sf.AnalysisError = err.Error()
				log.Log(logx.LevelWarn, "reconcile: parse failed, falling back to scanner-only", "path", sf.Path, "err", err.Error())

				return nil
			}

			cmOpts := codemap.DefaultOptions()
			cmOpts.MaxCodemapSeconds = opts.MaxCodemapSeconds
			cmOpts.TreatBlockTerminatorsAsExecutable = opts.TreatBlockTerminatorsAsExecutable

			if opts.MaxASTNodes > 0 {
				cmOpts.MaxNodes = opts.MaxASTNodes
			}

			sf.Map = codemap.Build(astFile, scanner.Scan(sf.Text), cmOpts)

			if opts.Cache != nil {
				opts.Cache.Put(sf.Path, sf.Text, sf.Map)
			}

			return nil
		})
	}

	_ = g.Wait() // every goroutine above always returns nil; per-file failures degrade in place
}

// phaseInvariantEnforcement is spec.md §4.G phase 3: clear executed/covered
// on any line executable_lookup denies, then run the Patcher.
func phaseInvariantEnforcement(global *model.GlobalState) {
	for _, sf := range global.Files() {
		if sf.Map != nil {
			for line := 1; line <= sf.Map.LineCount; line++ {
				if !sf.Map.IsExecutable(line) {
					sf.Tracking.ClearLine(line)
				}
			}
		}

		patch.Patch(sf)
	}
}

// phaseFunctionDerivation is spec.md §4.G phase 4.
func phaseFunctionDerivation(global *model.GlobalState) {
	for _, sf := range global.Files() {
		if sf.Map == nil {
			continue
		}

		for _, fn := range sf.Map.Functions {
			st := sf.Tracking.FunctionEntry(fn.ID)
			if st.Executed {
				continue
			}

			for line := fn.StartLine; line <= fn.EndLine; line++ {
				if line < len(sf.Tracking.Executed) && sf.Tracking.Executed[line] {
					st.Executed = true
					break
				}
			}
		}
	}
}

// phaseBlockDerivation is spec.md §4.G phase 5, analogous to phase 4.
func phaseBlockDerivation(global *model.GlobalState) {
	for _, sf := range global.Files() {
		if sf.Map == nil {
			continue
		}

		for _, b := range sf.Map.Blocks {
			st := sf.Tracking.BlockEntry(b.ID)
			if st.Executed {
				continue
			}

			for line := b.StartLine; line <= b.EndLine; line++ {
				if line < len(sf.Tracking.Executed) && sf.Tracking.Executed[line] {
					st.Executed = true
					break
				}
			}
		}
	}
}
