// Package classify implements the File Classifier (spec.md §4.D):
// include/exclude glob matching plus a fixed test-fingerprint table,
// memoized per path.
package classify

import (
	"path"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
)

// Classification is the classifier's verdict for one file.
type Classification int

// Classification values, per spec.md §4.D.
const (
	Source Classification = iota
	Test
	FrameworkExcluded
	Other
)

// String returns a human-readable name.
func (c Classification) String() string {
	switch c {
	case Source:
		return "source"
	case Test:
		return "test"
	case FrameworkExcluded:
		return "framework_excluded"
	case Other:
		return "other"
	default:
		return "unknown"
	}
}

var testPathFingerprints = []string{"_test.", "_spec.", "test_"}

var testDirFingerprints = []string{"/test/", "/tests/", "/spec/", "/specs/"}

// fingerprints are content substrings that mark a file as a test file even
// when its path doesn't match a test naming convention (spec.md §4.D).
var contentFingerprints = []string{"describe(", "it(", "expect("}

// Config names the glob patterns and source extension the classifier uses.
type Config struct {
	Include      []string
	Exclude      []string
	SourceExtens []string // e.g. ".lua"
}

// Classifier memoizes classify() results per path; the memo table is
// append-only and idempotent (spec.md §5), so a plain mutex-guarded map is
// sufficient — no ecosystem cache library improves on that for this shape.
type Classifier struct {
	cfg  Config
	mu   sync.RWMutex
	memo map[string]Classification
}

// New creates a Classifier for cfg.
func New(cfg Config) *Classifier {
	return &Classifier{cfg: cfg, memo: make(map[string]Classification)}
}

// Classify implements classify(path, optional_content) → Classification.
// content may be empty; when non-empty its fingerprints are also consulted.
func (c *Classifier) Classify(p string, content string) Classification {
	key := p + "\x00" + boolKey(content != "")

	c.mu.RLock()
	if v, ok := c.memo[key]; ok {
		c.mu.RUnlock()
		return v
	}
	c.mu.RUnlock()

	v := c.classify(p, content)

	c.mu.Lock()
	c.memo[key] = v
	c.mu.Unlock()

	return v
}

func (c *Classifier) classify(p string, content string) Classification {
	if matchesTestPath(p) || (content != "" && matchesContentFingerprint(content)) {
		return Test
	}

	if matchesAny(c.cfg.Exclude, p) {
		return FrameworkExcluded
	}

	if len(c.cfg.Include) > 0 && !matchesAny(c.cfg.Include, p) {
		return Other
	}

	if hasSourceExtension(p, c.cfg.SourceExtens) {
		return Source
	}

	return Other
}

func matchesTestPath(p string) bool {
	lower := strings.ToLower(p)
	base := strings.ToLower(path.Base(p))

	for _, fp := range testPathFingerprints {
		if strings.Contains(base, fp) {
			return true
		}
	}

	for _, dir := range testDirFingerprints {
		if strings.Contains("/"+lower+"/", dir) {
			return true
		}
	}

	return false
}

func matchesContentFingerprint(content string) bool {
	for _, fp := range contentFingerprints {
		if strings.Contains(content, fp) {
			return true
		}
	}

	return false
}

// matchesAny reports whether p matches any of patterns using doublestar's
// pure string matcher (not file.Match's filesystem-walking Glob): the
// Runtime Tracker classifies paths reported live by the host interpreter,
// which need not exist as walkable files relative to the engine's cwd, so
// matching must work against the path string alone. file.Match's Glob is
// used instead by internal/discover, which does walk a real tree.
func matchesAny(patterns []string, p string) bool {
	for _, pat := range patterns {
		if ok, err := doublestar.Match(pat, p); err == nil && ok {
			return true
		}
	}

	return false
}

func hasSourceExtension(p string, exts []string) bool {
	for _, ext := range exts {
		if strings.HasSuffix(p, ext) {
			return true
		}
	}

	return false
}

func boolKey(b bool) string {
	if b {
		return "1"
	}

	return "0"
}
