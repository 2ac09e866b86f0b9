// Package scriptcov is the engine's public surface: a coverage engine for a
// Lua-like dynamic scripting language. It mirrors the teacher's own
// targ.go — a thin façade type over the internal packages that do the
// actual work — rather than exposing those packages directly.
package scriptcov

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/covlang/scriptcov/internal/asserthook"
	"github.com/covlang/scriptcov/internal/classify"
	"github.com/covlang/scriptcov/internal/codemap"
	"github.com/covlang/scriptcov/internal/discover"
	"github.com/covlang/scriptcov/internal/hostiface"
	"github.com/covlang/scriptcov/internal/langast"
	"github.com/covlang/scriptcov/internal/logx"
	"github.com/covlang/scriptcov/internal/model"
	"github.com/covlang/scriptcov/internal/reconcile"
	"github.com/covlang/scriptcov/internal/scanner"
	"github.com/covlang/scriptcov/internal/tracker"
)

type engineState int

const (
	stateNotInitialized engineState = iota
	stateIdle
	stateRunning
)

// ErrNotInitialized is returned by Start/Reset/FullReset/Was*/GetReportData
// called before Init, per spec.md §4.H's state machine. Track* called before
// Init are no-ops, as they are in any state other than Running.
var ErrNotInitialized = errors.New("scriptcov: engine not initialized")

// Engine is the Controller (spec.md §4.H): it owns the GlobalState and
// orchestrates the Tracker, Assertion Hook, and Reconciler behind the
// state machine NotInitialized -> Idle -> Running -> Idle. All methods are
// safe for concurrent use by the caller's own goroutine stopping a run
// while the hook path fires on the interpreter's goroutine (spec.md §5).
type Engine struct {
	mu    sync.Mutex
	state engineState
	cfg   Config

	global     *model.GlobalState
	classifier *classify.Classifier
	cache      *codemap.Cache
	log        logx.Sink

	trk  *tracker.Tracker
	hook *asserthook.Hook
	host hostiface.Host
}

// New creates an Engine in the NotInitialized state.
func New() *Engine {
	return &Engine{state: stateNotInitialized}
}

// Init transitions NotInitialized -> Idle, allocating GlobalState and the
// collaborators Config selects. Init may also be called again from Idle to
// re-apply configuration (the teacher's run_env.go allows re-Init the same
// way for a fresh CLI invocation).
func (e *Engine) Init(cfg Config) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == stateRunning {
		return &Error{Kind: Validation, Err: errors.New("cannot Init while Running")}
	}

	e.cfg = cfg
	e.global = model.NewGlobalState()
	e.classifier = classify.New(classify.Config{
		Include:      cfg.Include,
		Exclude:      cfg.Exclude,
		SourceExtens: []string{".lua"},
	})
	e.log = logx.New(os.Stderr, logx.LevelInfo)

	if cfg.CacheParsedFiles {
		e.cache = codemap.NewCache()
	}

	e.trk = tracker.New(e.global, e.classifier, e.log, tracker.Options{
		TrackBlocks:    cfg.TrackBlocks,
		TrackFunctions: cfg.TrackFunctions,
	})

	e.state = stateIdle

	if cfg.PreAnalyzeFiles {
		e.preAnalyze()
	}

	return nil
}

// preAnalyze implements pre_analyze_files: discover and parse every source
// file eagerly instead of waiting for the Reconciler's lazy phase 2.
func (e *Engine) preAnalyze() {
	paths, err := discover.Files(e.cfg.SourceDirs, e.cfg.Include, e.cfg.Exclude)
	if err != nil {
		e.log.Log(logx.LevelWarn, "scriptcov: pre_analyze_files discovery failed", "err", err.Error())
		return
	}

	for _, p := range paths {
		text, rerr := os.ReadFile(p) //nolint:gosec // discovery patterns are operator-configured, not request-controlled
		if rerr != nil {
			e.log.Log(logx.LevelDebug, "scriptcov: pre_analyze_files could not read file", "path", p, "err", rerr.Error())
			continue
		}

		class := e.classifier.Classify(p, string(text))
		if class != classify.Source {
			continue
		}

		sf := model.NewSourceFile(p, string(text))
		sf.Tracking.Discovered = true
		sf.Tracking.Active = true

		if cm, ok := e.cacheGet(p, sf.Text); ok {
			sf.Map = cm
		} else if astFile, perr := langast.Parse(context.Background(), p, sf.Text, langast.DefaultOptions()); perr == nil {
			sf.Map = codemap.Build(astFile, scanner.Scan(sf.Text), codemap.DefaultOptions())
			e.cachePut(p, sf.Text, sf.Map)
		} else {
			sf.AnalysisError = perr.Error()
		}

		e.global.Put(sf)
		e.global.MarkActive(p)
	}
}

func (e *Engine) cacheGet(path, text string) (*model.CodeMap, bool) {
	if e.cache == nil {
		return nil, false
	}

	return e.cache.Get(path, text)
}

func (e *Engine) cachePut(path, text string, cm *model.CodeMap) {
	if e.cache == nil {
		return
	}

	e.cache.Put(path, text, cm)
}

// Start transitions Idle -> Running, installing the Tracker's hook on host.
// host may be nil for an instrumentation-only deployment that calls
// TrackLine/TrackFunction/TrackBlock explicitly. Start while Running is a
// no-op (spec.md §4.H).
func (e *Engine) Start(host hostiface.Host) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == stateNotInitialized {
		return &Error{Kind: Validation, Err: ErrNotInitialized}
	}

	if e.state == stateRunning {
		return nil
	}

	e.host = host
	e.global.SetRunning(true)

	if host != nil {
		e.trk.Start(host)
	}

	e.state = stateRunning

	return nil
}

// Stop transitions Running -> Idle, removing the Tracker's hook. Stop
// while Idle is a no-op.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != stateRunning {
		return nil
	}

	if e.trk.Running() {
		e.trk.Stop()
	}

	e.global.SetRunning(false)
	e.state = stateIdle

	return nil
}

// Reset clears TrackingState but keeps parsed CodeMaps (spec.md §4.H).
func (e *Engine) Reset() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == stateNotInitialized {
		return &Error{Kind: Validation, Err: ErrNotInitialized}
	}

	e.global.Reset()

	return nil
}

// FullReset clears TrackingState and every cached CodeMap.
func (e *Engine) FullReset() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == stateNotInitialized {
		return &Error{Kind: Validation, Err: ErrNotInitialized}
	}

	e.global.FullReset()

	if e.cache != nil {
		e.cache.Clear()
	}

	return nil
}

// AssertionVerifier installs verifier as the Assertion Hook's wrapped
// primitive, wiring spec.md §4.F into this Engine's GlobalState and
// Classifier. enginePkgs lists path prefixes to exclude when picking the
// subject frame (the engine's own modules and the assertion library's).
func (e *Engine) AssertionVerifier(verifier hostiface.Verifier, parseFrames asserthook.FrameParser, enginePkgs []string) *asserthook.Hook {
	e.mu.Lock()
	defer e.mu.Unlock()

	if parseFrames == nil {
		parseFrames = asserthook.DefaultFrameParser
	}

	e.hook = asserthook.New(verifier, e.global, e.classifier, parseFrames, enginePkgs)

	return e.hook
}

// TrackFile registers path for reporting even if it is never executed,
// per spec.md §4.H's track_file.
func (e *Engine) TrackFile(path string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != stateRunning {
		return nil
	}

	if path == "" {
		return validationErr(path, errors.New("path must not be empty"))
	}

	sf := e.global.Get(path)
	if sf == nil {
		sf = model.NewSourceFile(path, "")
		e.global.Put(sf)
	}

	sf.Tracking.Discovered = true
	e.global.MarkActive(path)

	return nil
}

// TrackLine records that line executed in path, per spec.md §4.H. It is a
// no-op unless the Engine is Running, matching the Tracker hook's own
// behavior.
func (e *Engine) TrackLine(path string, line int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != stateRunning {
		return nil
	}

	if err := validateLineArgs(path, line); err != nil {
		return err
	}

	sf := e.getOrCreateLocked(path)
	sf.Tracking.MarkExecuted(line)

	if e.cfg.TrackBlocks && sf.Map != nil {
		for _, b := range sf.Map.BlocksContaining(line) {
			st := sf.Tracking.BlockEntry(b.ID)
			st.Executed = true
			st.Entries++
		}
	}

	return nil
}

// TrackFunction records a call to the function declared at line in path,
// named name, per spec.md §4.H. It is a no-op unless Running.
func (e *Engine) TrackFunction(path string, line int, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != stateRunning {
		return nil
	}

	if err := validateLineArgs(path, line); err != nil {
		return err
	}

	sf := e.getOrCreateLocked(path)
	sf.Tracking.MarkExecuted(line)

	id := fmt.Sprintf("func_%d_%s", line, name)
	st := sf.Tracking.FunctionEntry(id)
	st.Executed = true
	st.Calls++

	return nil
}

// TrackBlock records entry into blockID (a block_id produced by the
// Code-Map Builder) at line in path, per spec.md §4.H. kind is informative
// only. It is a no-op unless Running.
func (e *Engine) TrackBlock(path string, line int, blockID string, kind string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != stateRunning {
		return nil
	}

	if err := validateLineArgs(path, line); err != nil {
		return err
	}

	_ = kind

	sf := e.getOrCreateLocked(path)
	sf.Tracking.MarkExecuted(line)

	st := sf.Tracking.BlockEntry(blockID)
	st.Executed = true
	st.Entries++

	return nil
}

// WasLineExecuted reports whether path's line has ever executed.
func (e *Engine) WasLineExecuted(path string, line int) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == stateNotInitialized {
		return false, &Error{Kind: Validation, Err: ErrNotInitialized}
	}

	if err := validateLineArgs(path, line); err != nil {
		return false, err
	}

	sf := e.global.Get(path)
	if sf == nil {
		return false, nil
	}

	return line < len(sf.Tracking.Executed) && sf.Tracking.Executed[line], nil
}

// WasLineCovered reports whether an assertion has confirmed path's line.
func (e *Engine) WasLineCovered(path string, line int) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == stateNotInitialized {
		return false, &Error{Kind: Validation, Err: ErrNotInitialized}
	}

	if err := validateLineArgs(path, line); err != nil {
		return false, err
	}

	sf := e.global.Get(path)
	if sf == nil {
		return false, nil
	}

	return line < len(sf.Tracking.Covered) && sf.Tracking.Covered[line], nil
}

// GetReportData runs the Reconciler and returns the resulting ReportData.
// Valid in Idle or Running, per spec.md §4.H.
func (e *Engine) GetReportData() (*ReportData, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == stateNotInitialized {
		return nil, &Error{Kind: Validation, Err: ErrNotInitialized}
	}

	opts := reconcile.Options{
		DiscoverUncovered:                 e.cfg.DiscoverUncovered,
		UseStaticAnalysis:                 e.cfg.UseStaticAnalysis,
		TrackBlocks:                       e.cfg.TrackBlocks,
		TrackFunctions:                    e.cfg.TrackFunctions,
		TreatBlockTerminatorsAsExecutable: e.cfg.TreatBlockTerminatorsAsExecutable,
		Threshold:                         e.cfg.Threshold,
		SourceDirs:                        e.cfg.SourceDirs,
		Include:                           e.cfg.Include,
		Exclude:                           e.cfg.Exclude,
		MaxParseSeconds:                   e.cfg.MaxParseSeconds,
		MaxCodemapSeconds:                 e.cfg.MaxCodemapSeconds,
		MaxASTNodes:                       e.cfg.MaxASTNodes,
		MaxNestingDepth:                   e.cfg.MaxNestingDepth,
		Cache:                             e.cache,
		IsTestFile: func(path string) bool {
			return e.classifier.Classify(path, "") == classify.Test
		},
	}

	var discoverFn reconcile.Discoverer
	if opts.DiscoverUncovered {
		discoverFn = discover.Files
	}

	readFn := func(path string) (string, error) {
		b, err := os.ReadFile(path) //nolint:gosec // discovery patterns are operator-configured, not request-controlled
		return string(b), err
	}

	report, err := reconcile.Reconcile(context.Background(), e.global, opts, discoverFn, readFn, e.log)
	if err != nil {
		return nil, &Error{Kind: IO, Err: err}
	}

	return report, nil
}

// GetRawData returns the underlying GlobalState for debug/introspection
// only, per spec.md §6. Callers must not mutate it.
func (e *Engine) GetRawData() *model.GlobalState {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.global
}

func (e *Engine) getOrCreateLocked(path string) *model.SourceFile {
	sf := e.global.Get(path)
	if sf != nil {
		return sf
	}

	sf = model.NewSourceFile(path, "")
	sf.Tracking.Discovered = true
	sf.Tracking.Active = true
	e.global.Put(sf)
	e.global.MarkActive(path)

	return sf
}

func validateLineArgs(path string, line int) error {
	if path == "" {
		return validationErr(path, errors.New("path must not be empty"))
	}

	if line <= 0 {
		return validationErr(path, fmt.Errorf("line must be positive, got %d", line))
	}

	return nil
}
