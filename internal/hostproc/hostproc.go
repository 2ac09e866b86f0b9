// Package hostproc is an optional hostiface.Host adapter that shells out to
// a real `lua` binary instead of an embedded interpreter binding, for
// integration tests that want to exercise the instrumentation fallback
// (spec.md §4.E) against an actual interpreter rather than FakeHost.
//
// A subprocess has no synchronous hook point the Tracker can attach to, so
// this adapter only implements the instrumentation front-end: RewriteSource
// inserts track_line/track_block calls (internal/tracker.Instrument), Run
// executes the rewritten source through `lua` via the sh package, and the
// process's stdout is parsed for the calls' printed trace and replayed
// through whatever HookFunc InstallHook last registered.
package hostproc

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/covlang/scriptcov/internal/codemap"
	"github.com/covlang/scriptcov/internal/hostiface"
	"github.com/covlang/scriptcov/internal/langast"
	"github.com/covlang/scriptcov/internal/scanner"
	"github.com/covlang/scriptcov/internal/tracker"
	sh "github.com/covlang/scriptcov/sh"
)

// preamble defines track_line/track_block as print statements the
// instrumented source calls; Process.Run parses their output back out of
// the subprocess's stdout (markers chosen to be improbable in ordinary
// program output).
const preamble = `` +
	`local function track_line(path, n) print("@@TL@@\t" .. path .. "\t" .. n) end` + "\n" +
	`local function track_block(path, n, id, kind) print("@@TB@@\t" .. path .. "\t" .. n .. "\t" .. id .. "\t" .. kind) end` + "\n"

// LuaBin is the interpreter binary name, overridable for hosts that vendor
// a differently-named build (e.g. "lua5.4").
var LuaBin = "lua"

// Process is a hostiface.Host backed by a real `lua` binary. Its
// InstallHook/RemoveHook pair just records the current hook for Run to
// replay into; there is no live, synchronous hook installed in the
// subprocess.
type Process struct {
	sources map[string]string
	hook    hostiface.HookFunc
	trace   string
}

// New creates a Process with no sources registered.
func New() *Process {
	return &Process{sources: make(map[string]string)}
}

// SetSource registers src as path's text, for ReadSource and Run.
func (p *Process) SetSource(path, src string) {
	p.sources[path] = src
}

// InstallHook records fn as the hook Run replays parsed events into.
func (p *Process) InstallHook(fn hostiface.HookFunc) any {
	prev := p.hook
	p.hook = fn

	return prev
}

// RemoveHook restores previous (nil or a hostiface.HookFunc).
func (p *Process) RemoveHook(previous any) {
	if previous == nil {
		p.hook = nil
		return
	}

	p.hook = previous.(hostiface.HookFunc) //nolint:forcetypeassert // contract: only a value InstallHook returned is ever passed back
}

// CurrentStackTrace returns the trace Run captured from the subprocess's
// stderr on its most recent failing run (Lua's own traceback format), or
// empty if the last run succeeded.
func (p *Process) CurrentStackTrace() string {
	return p.trace
}

// RewriteSource builds a CodeMap for src and instruments it via
// internal/tracker.Instrument, prefixed with the track_line/track_block
// preamble.
func (p *Process) RewriteSource(path, src string) (string, error) {
	astFile, err := langast.Parse(context.Background(), path, src, langast.DefaultOptions())
	if err != nil {
		return "", fmt.Errorf("hostproc: parse %s: %w", path, err)
	}

	cm := codemap.Build(astFile, scanner.Scan(src), codemap.DefaultOptions())
	instrumented := tracker.Instrument(path, src, cm, tracker.DefaultOptions())

	return preamble + instrumented, nil
}

// ReadSource returns the text registered for path via SetSource.
func (p *Process) ReadSource(path string) (string, error) {
	src, ok := p.sources[path]
	if !ok {
		return "", fmt.Errorf("hostproc: no source registered for %q", path)
	}

	return src, nil
}

// Run instruments and executes path's registered source under the real Lua
// binary, replaying every track_line/track_block call the run printed
// through the currently installed hook, in the order `lua` printed them.
// It returns an error if the binary is missing or the script exits
// non-zero; either is surfaced to the caller rather than swallowed, since
// this adapter is for deliberate integration tests, not the hot path.
func (p *Process) Run(ctx context.Context, path string) error {
	src, err := p.ReadSource(path)
	if err != nil {
		return err
	}

	rewritten, err := p.RewriteSource(path, src)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp("", "hostproc-*.lua")
	if err != nil {
		return fmt.Errorf("hostproc: creating temp script: %w", err)
	}

	defer os.Remove(tmp.Name()) //nolint:errcheck // best-effort cleanup of a scratch file

	if _, err := tmp.WriteString(rewritten); err != nil {
		tmp.Close() //nolint:errcheck,gosec // already failing; no new information from a Close error here

		return fmt.Errorf("hostproc: writing temp script: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("hostproc: closing temp script: %w", err)
	}

	output, runErr := sh.OutputContext(ctx, LuaBin, tmp.Name())
	p.trace = ""

	if runErr != nil {
		p.trace = output
		return fmt.Errorf("hostproc: running %s: %w", path, runErr)
	}

	p.replay(output)

	return nil
}

func (p *Process) replay(output string) {
	scannerLines := bufio.NewScanner(strings.NewReader(output))

	for scannerLines.Scan() {
		line := scannerLines.Text()

		fields := strings.Split(line, "\t")
		if len(fields) < 3 { //nolint:mnd // marker + path + line, minimum shape
			continue
		}

		switch fields[0] {
		case "@@TL@@":
			p.emitLine(fields)
		case "@@TB@@":
			p.emitCall(fields)
		}
	}
}

func (p *Process) emitLine(fields []string) {
	n, err := strconv.Atoi(fields[2])
	if err != nil || p.hook == nil {
		return
	}

	p.hook(hostiface.Event{Kind: hostiface.LineEvent, Path: fields[1], Line: n})
}

func (p *Process) emitCall(fields []string) {
	if len(fields) < 5 || p.hook == nil { //nolint:mnd // marker + path + line + block id + kind
		return
	}

	n, err := strconv.Atoi(fields[2])
	if err != nil {
		return
	}

	// Block entries are surfaced as line events too: the Tracker's onLine
	// derives block state from BlocksContaining(line), so a plain line
	// event at the block's start line is sufficient.
	p.hook(hostiface.Event{Kind: hostiface.LineEvent, Path: fields[1], Line: n})
}
