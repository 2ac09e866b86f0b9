// Package tracker implements the Runtime Tracker (spec.md §4.E): the hook
// the engine installs in the host interpreter, the per-event O(1) state
// updates it performs, and the instrumentation-fallback source rewriter in
// instrument.go.
package tracker

import (
	"github.com/covlang/scriptcov/internal/classify"
	"github.com/covlang/scriptcov/internal/hostiface"
	"github.com/covlang/scriptcov/internal/logx"
	"github.com/covlang/scriptcov/internal/model"
)

// Options configures the Tracker's behavior, mirroring the subset of
// spec.md §6's engine config that the hot path consults.
type Options struct {
	TrackBlocks    bool
	TrackFunctions bool
}

// DefaultOptions returns block and function tracking both on, per spec.md §6.
func DefaultOptions() Options {
	return Options{TrackBlocks: true, TrackFunctions: true}
}

// Tracker installs and removes the host's execution hook and applies its
// two event kinds to GlobalState, per spec.md §4.E. It is not safe for
// concurrent use by more than one host thread (spec.md §5): callers needing
// multiple host threads run one Tracker per thread against a thread-local
// GlobalState and merge at stop (see ThreadLocal).
type Tracker struct {
	global   *model.GlobalState
	classify *classify.Classifier
	log      logx.Sink
	opts     Options

	host     hostiface.Host
	prevHook any
	running  bool

	// ignored memoizes paths classified Test or FrameworkExcluded, so
	// repeated events from them short-circuit before touching GlobalState
	// (spec.md §4.E step 3: "memoize and ignore subsequent events").
	ignored map[string]bool

	// inHook guards against the hook observing events emitted by code
	// running inside the hook itself (spec.md §4.E's re-entrancy
	// requirement). Single-threaded cooperative scheduling (spec.md §5)
	// makes a plain bool sufficient; no lock is needed.
	inHook bool
}

// New creates a Tracker over global, using classifier to resolve newly-seen
// paths and log for warn/debug diagnostics. log may be logx.Discard{}.
func New(global *model.GlobalState, classifier *classify.Classifier, log logx.Sink, opts Options) *Tracker {
	if log == nil {
		log = logx.Discard{}
	}

	return &Tracker{
		global:   global,
		classify: classifier,
		log:      log,
		opts:     opts,
		ignored:  make(map[string]bool),
	}
}

// Start installs the hook on host. Calling Start while already running is a
// no-op (spec.md §4.H's surrounding Controller state machine forbids
// double-start, but the Tracker itself stays defensive).
func (t *Tracker) Start(host hostiface.Host) {
	if t.running {
		return
	}

	t.host = host
	t.prevHook = host.InstallHook(t.onEvent)
	t.running = true
}

// Stop removes the hook and restores whatever hook preceded it.
func (t *Tracker) Stop() {
	if !t.running {
		return
	}

	t.host.RemoveHook(t.prevHook)
	t.host = nil
	t.prevHook = nil
	t.running = false
}

// Running reports whether the hook is currently installed.
func (t *Tracker) Running() bool {
	return t.running
}

func (t *Tracker) onEvent(ev hostiface.Event) {
	if t.inHook {
		return
	}

	t.inHook = true
	defer func() { t.inHook = false }()

	if t.ignored[ev.Path] {
		return
	}

	switch ev.Kind {
	case hostiface.LineEvent:
		t.onLine(ev)
	case hostiface.CallEvent:
		t.onCall(ev)
	}
}

func (t *Tracker) onLine(ev hostiface.Event) {
	sf := t.global.Get(ev.Path)
	if sf == nil {
		resolved, ok := t.resolvePath(ev.Path)
		if !ok {
			return
		}

		sf = resolved
	}

	sf.Tracking.MarkExecuted(ev.Line)

	if t.opts.TrackBlocks && sf.Map != nil {
		for _, b := range sf.Map.BlocksContaining(ev.Line) {
			st := sf.Tracking.BlockEntry(b.ID)
			st.Executed = true
			st.Entries++
		}
	}
}

// resolvePath implements spec.md §4.E steps 2-3: classify a path seen for
// the first time, either materializing a SourceFile (Source) or memoizing
// it as ignored (Test / FrameworkExcluded).
func (t *Tracker) resolvePath(path string) (*model.SourceFile, bool) {
	text := ""

	if t.host != nil {
		if src, err := t.host.ReadSource(path); err == nil {
			text = src
		} else {
			t.log.Log(logx.LevelDebug, "tracker: could not read source for classification", "path", path, "err", err.Error())
		}
	}

	class := t.classify.Classify(path, text)
	if class != classify.Source {
		t.ignored[path] = true
		return nil, false
	}

	sf := model.NewSourceFile(path, text)
	sf.Tracking.Active = true
	sf.Tracking.Discovered = true
	t.global.Put(sf)
	t.global.MarkActive(path)

	return sf, true
}

func (t *Tracker) onCall(ev hostiface.Event) {
	sf := t.global.Get(ev.Path)
	if sf == nil {
		resolved, ok := t.resolvePath(ev.Path)
		if !ok {
			return
		}

		sf = resolved
	}

	sf.Tracking.MarkExecuted(ev.Line)

	if !t.opts.TrackFunctions || sf.Map == nil {
		return
	}

	fn := functionStartingAt(sf.Map, ev.DefinedLine)
	if fn == nil {
		return
	}

	st := sf.Tracking.FunctionEntry(fn.ID)
	st.Executed = true
	st.Calls++
}

func functionStartingAt(cm *model.CodeMap, line int) *model.Function {
	for i := range cm.Functions {
		if cm.Functions[i].StartLine == line {
			return &cm.Functions[i]
		}
	}

	return nil
}
