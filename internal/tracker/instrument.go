package tracker

import (
	"fmt"
	"strings"

	"github.com/covlang/scriptcov/internal/model"
)

// Instrument implements the instrumentation fallback (spec.md §4.E): it
// rewrites src by appending one `track_line(path, n)` call to every
// executable line and one `track_block(path, n, block_id, kind)` call to
// every line where a tracked block begins, without changing any line's
// number — each inserted call shares its physical line with the original
// statement, joined by `;`, the way the teacher's code generator appends
// synthesized statements in run_env.go rather than inserting new lines.
func Instrument(path, src string, cm *model.CodeMap, opts Options) string {
	lines := strings.Split(src, "\n")

	blocksAtLine := make(map[int][]model.Block)
	if opts.TrackBlocks {
		for _, b := range cm.Blocks {
			if b.Kind == model.BlockDo && b.StartLine == 1 && b.EndLine == cm.LineCount {
				continue // synthetic whole-file root, nothing to instrument
			}

			blocksAtLine[b.StartLine] = append(blocksAtLine[b.StartLine], b)
		}
	}

	for i, text := range lines {
		line := i + 1
		if line < 1 || line > cm.LineCount {
			continue
		}

		var inserts []string

		if cm.IsExecutable(line) {
			inserts = append(inserts, fmt.Sprintf("track_line(%q, %d)", path, line))
		}

		for _, b := range blocksAtLine[line] {
			inserts = append(inserts, fmt.Sprintf("track_block(%q, %d, %q, %q)", path, line, b.ID, string(b.Kind)))
		}

		if len(inserts) == 0 {
			continue
		}

		lines[i] = text + "; " + strings.Join(inserts, "; ")
	}

	return strings.Join(lines, "\n")
}
