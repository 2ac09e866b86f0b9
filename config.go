package scriptcov

import (
	"fmt"
	"time"
)

// Config holds the engine's configuration options, per spec.md §6. Zero
// value is not meaningful — use DefaultConfig and override fields.
type Config struct {
	Enabled                           bool
	SourceDirs                        []string
	Include                           []string
	Exclude                           []string
	DiscoverUncovered                 bool
	Threshold                         int
	UseStaticAnalysis                 bool
	TreatBlockTerminatorsAsExecutable bool
	TrackBlocks                       bool
	TrackFunctions                    bool
	PreAnalyzeFiles                   bool
	CacheParsedFiles                  bool
	MaxFileBytes                      int
	MaxParseSeconds                   time.Duration
	MaxCodemapSeconds                 time.Duration
	MaxASTNodes                       int
	MaxNestingDepth                   int
}

// DefaultConfig returns every default named in spec.md §6.
func DefaultConfig() Config {
	const mib = 1 << 20

	return Config{
		Enabled:                           false,
		SourceDirs:                        []string{"."},
		Include:                           nil, // language-appropriate default, resolved by internal/discover.
		Exclude:                           []string{"**/vendor/**", "**/deps/**", "**/node_modules/**"},
		DiscoverUncovered:                 true,
		Threshold:                         90, //nolint:mnd // spec-mandated default
		UseStaticAnalysis:                 true,
		TreatBlockTerminatorsAsExecutable: true,
		TrackBlocks:                       true,
		TrackFunctions:                    true,
		PreAnalyzeFiles:                   false,
		CacheParsedFiles:                  true,
		MaxFileBytes:                      mib,
		MaxParseSeconds:                   60 * time.Second,  //nolint:mnd // spec-mandated constant
		MaxCodemapSeconds:                 120 * time.Second, //nolint:mnd // spec-mandated constant
		MaxASTNodes:                       100_000,
		MaxNestingDepth:                   100, //nolint:mnd // spec-mandated constant
	}
}

// Describe renders cfg as a single diagnostic line, the way the teacher's
// Target.String() summarizes a configuration for log output.
func (c Config) Describe() string {
	return fmt.Sprintf(
		"enabled=%t source_dirs=%v threshold=%d static_analysis=%t track_blocks=%t track_functions=%t",
		c.Enabled, c.SourceDirs, c.Threshold, c.UseStaticAnalysis, c.TrackBlocks, c.TrackFunctions,
	)
}
