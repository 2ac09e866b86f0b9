package model

import "sort"

// GlobalState is the process-wide arena the Controller owns: the
// path→SourceFile map, the set of files that passed the classifier, and the
// running flag. Grounded on the teacher's `internal/core/state.go`
// `RegistryState`: an explicit, constructible owning struct rather than a
// package-level singleton, per spec.md Design Notes' "avoid any hidden
// process-wide singletons".
type GlobalState struct {
	files   map[string]*SourceFile
	active  map[string]bool
	running bool
}

// NewGlobalState creates a new, empty GlobalState.
func NewGlobalState() *GlobalState {
	return &GlobalState{
		files:  make(map[string]*SourceFile),
		active: make(map[string]bool),
	}
}

// Get returns the SourceFile for path, or nil if unknown.
func (g *GlobalState) Get(path string) *SourceFile {
	return g.files[path]
}

// GetOrCreate returns the existing SourceFile for path, or creates and
// stores a new empty one via newFn if absent.
func (g *GlobalState) GetOrCreate(path string, newFn func() *SourceFile) (*SourceFile, bool) {
	if f, ok := g.files[path]; ok {
		return f, false
	}

	f := newFn()
	g.files[path] = f

	return f, true
}

// Put stores f under its own path, overwriting any existing entry.
func (g *GlobalState) Put(f *SourceFile) {
	g.files[f.Path] = f
}

// Delete removes path from the arena entirely (used by full_reset).
func (g *GlobalState) Delete(path string) {
	delete(g.files, path)
	delete(g.active, path)
}

// MarkActive records that path passed the File Classifier.
func (g *GlobalState) MarkActive(path string) {
	g.active[path] = true
}

// IsActive reports whether path was previously classified as active.
func (g *GlobalState) IsActive(path string) bool {
	return g.active[path]
}

// Paths returns every known path, sorted, for deterministic iteration
// (report generation and property tests both depend on stable ordering).
func (g *GlobalState) Paths() []string {
	paths := make([]string, 0, len(g.files))
	for p := range g.files {
		paths = append(paths, p)
	}

	sort.Strings(paths)

	return paths
}

// Files returns every SourceFile, in the same order as Paths.
func (g *GlobalState) Files() []*SourceFile {
	paths := g.Paths()
	out := make([]*SourceFile, len(paths))

	for i, p := range paths {
		out[i] = g.files[p]
	}

	return out
}

// Len returns the number of known files.
func (g *GlobalState) Len() int {
	return len(g.files)
}

// SetRunning sets the is_running flag.
func (g *GlobalState) SetRunning(running bool) {
	g.running = running
}

// Running reports the is_running flag.
func (g *GlobalState) Running() bool {
	return g.running
}

// Reset clears all per-file tracking state but keeps CodeMaps (used by
// Controller.Reset, spec.md §4.H: "reset() clears TrackingState").
func (g *GlobalState) Reset() {
	for _, f := range g.files {
		f.Tracking = NewTrackingState(f.LineCount)
		f.AnalysisError = ""
	}
}

// FullReset clears everything, including CodeMap caches (used by
// Controller.FullReset).
func (g *GlobalState) FullReset() {
	g.files = make(map[string]*SourceFile)
	g.active = make(map[string]bool)
	g.running = false
}
