package model

// FunctionState is the runtime outcome for one function: whether it was
// entered and how many times.
type FunctionState struct {
	Executed bool
	Calls    int
}

// BlockState is the runtime outcome for one block: whether it was entered
// and how many times.
type BlockState struct {
	Executed bool
	Entries  int
}

// ConditionState is the runtime outcome for one condition node.
type ConditionState struct {
	Executed      bool
	ObservedTrue  bool
	ObservedFalse bool
	HitCount      int
}

// TrackingState is the per-file runtime product: executed/covered bitmaps
// and execution counts, per spec.md §3.
type TrackingState struct {
	Executed   []bool // 1-indexed, same shape as CodeMap.Lines.
	Covered    []bool
	Functions  map[string]*FunctionState
	Blocks     map[string]*BlockState
	Conditions map[string]*ConditionState
	Discovered bool
	Active     bool
}

// NewTrackingState allocates a TrackingState sized for lineCount physical lines.
func NewTrackingState(lineCount int) *TrackingState {
	return &TrackingState{
		Executed:   make([]bool, lineCount+1),
		Covered:    make([]bool, lineCount+1),
		Functions:  make(map[string]*FunctionState),
		Blocks:     make(map[string]*BlockState),
		Conditions: make(map[string]*ConditionState),
	}
}

// MarkExecuted sets Executed[line] = true, growing the bitmap if needed.
// Growing defensively keeps the tracker's hot path from ever panicking on a
// line number the code map didn't anticipate (e.g. a file that grew between
// parse and execution).
func (t *TrackingState) MarkExecuted(line int) {
	t.ensureLine(line)
	t.Executed[line] = true
}

// MarkCovered sets Covered[line] = true and, per spec.md §3's invariant
// `covered[i] ⇒ executed[i]`, also sets Executed[line].
func (t *TrackingState) MarkCovered(line int) {
	t.ensureLine(line)
	t.Covered[line] = true
	t.Executed[line] = true
}

// ClearLine clears both Executed and Covered for line, used by the Patcher
// and by invariant-enforcement in the Reconciler.
func (t *TrackingState) ClearLine(line int) {
	if line < 1 || line >= len(t.Executed) {
		return
	}

	t.Executed[line] = false
	t.Covered[line] = false
}

func (t *TrackingState) ensureLine(line int) {
	if line < 1 {
		return
	}

	for len(t.Executed) <= line {
		t.Executed = append(t.Executed, false)
		t.Covered = append(t.Covered, false)
	}
}

// FunctionEntry returns (creating if absent) the FunctionState for id.
func (t *TrackingState) FunctionEntry(id string) *FunctionState {
	st, ok := t.Functions[id]
	if !ok {
		st = &FunctionState{}
		t.Functions[id] = st
	}

	return st
}

// BlockEntry returns (creating if absent) the BlockState for id.
func (t *TrackingState) BlockEntry(id string) *BlockState {
	st, ok := t.Blocks[id]
	if !ok {
		st = &BlockState{}
		t.Blocks[id] = st
	}

	return st
}

// ConditionEntry returns (creating if absent) the ConditionState for id.
func (t *TrackingState) ConditionEntry(id string) *ConditionState {
	st, ok := t.Conditions[id]
	if !ok {
		st = &ConditionState{}
		t.Conditions[id] = st
	}

	return st
}

// Merge folds other's marks into t, used when merging per-thread deltas on
// stop() (spec.md §5's thread-local-then-merge concurrency model). Merge is
// a union: a bit set in either side ends up set in t.
func (t *TrackingState) Merge(other *TrackingState) {
	if other == nil {
		return
	}

	for line, v := range other.Executed {
		if v {
			t.MarkExecuted(line)
		}
	}

	for line, v := range other.Covered {
		if v {
			t.MarkCovered(line)
		}
	}

	for id, st := range other.Functions {
		dst := t.FunctionEntry(id)
		dst.Executed = dst.Executed || st.Executed
		dst.Calls += st.Calls
	}

	for id, st := range other.Blocks {
		dst := t.BlockEntry(id)
		dst.Executed = dst.Executed || st.Executed
		dst.Entries += st.Entries
	}

	for id, st := range other.Conditions {
		dst := t.ConditionEntry(id)
		dst.Executed = dst.Executed || st.Executed
		dst.ObservedTrue = dst.ObservedTrue || st.ObservedTrue
		dst.ObservedFalse = dst.ObservedFalse || st.ObservedFalse
		dst.HitCount += st.HitCount
	}

	t.Discovered = t.Discovered || other.Discovered
	t.Active = t.Active || other.Active
}
