package asserthook

import (
	"regexp"
	"strconv"
)

// frameLineRe matches one line of a standard Lua traceback, e.g.
//
//	stack traceback:
//	        widget_test.lua:12: in function <widget_test.lua:10>
//	        [C]: in function 'assert'
//
// grouping the path and the line number of the frame's own location.
var frameLineRe = regexp.MustCompile(`([^\s:]+\.lua):(\d+):`)

// DefaultFrameParser parses the standard `path.lua:line:` traceback idiom
// shared by Lua's own debug.traceback and most test frameworks built on it.
// Hosts with a different traceback format supply their own FrameParser.
func DefaultFrameParser(trace string) []Frame {
	matches := frameLineRe.FindAllStringSubmatch(trace, -1)

	frames := make([]Frame, 0, len(matches))

	for _, m := range matches {
		line, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}

		frames = append(frames, Frame{Path: m[1], Line: line})
	}

	return frames
}
