// Package history provides undo/redo over the modeling state as an
// explicit snapshot stack. Every mutation pushes a complete immutable
// snapshot; undo and redo are pure stack-pointer moves and never partially
// mutate state.
package history

import (
	"github.com/eyadsibai/worth-it-sub001/internal/captable"
	"github.com/eyadsibai/worth-it-sub001/internal/instrument"
	"github.com/eyadsibai/worth-it-sub001/pkg/constants"
)

// Snapshot is one complete modeling state: the cap table, the funding
// instruments, and the preference tiers.
type Snapshot struct {
	CapTable    captable.CapTable
	Instruments []instrument.Instrument
	Tiers       []instrument.PreferenceTier
}

// History is a bounded undo/redo stack of snapshots. The zero value is not
// usable; construct with New.
type History struct {
	snapshots []Snapshot
	cursor    int
	maxDepth  int
}

// New creates a history seeded with the initial state. maxDepth bounds the
// stack; non-positive values fall back to the default depth.
func New(initial Snapshot, maxDepth int) *History {
	if maxDepth <= 0 {
		maxDepth = constants.DefaultHistoryDepth
	}
	return &History{
		snapshots: []Snapshot{initial},
		cursor:    0,
		maxDepth:  maxDepth,
	}
}

// Current returns the snapshot at the cursor.
func (h *History) Current() Snapshot {
	return h.snapshots[h.cursor]
}

// Push records a new state, truncating any redo branch. When the stack
// exceeds the bound the oldest snapshot is dropped.
func (h *History) Push(s Snapshot) {
	h.snapshots = append(h.snapshots[:h.cursor+1], s)
	if len(h.snapshots) > h.maxDepth {
		h.snapshots = h.snapshots[1:]
	}
	h.cursor = len(h.snapshots) - 1
}

// CanUndo reports whether an earlier snapshot exists.
func (h *History) CanUndo() bool {
	return h.cursor > 0
}

// CanRedo reports whether a later snapshot exists.
func (h *History) CanRedo() bool {
	return h.cursor < len(h.snapshots)-1
}

// Undo moves the cursor back one snapshot and returns it. The boolean is
// false when there is nothing to undo.
func (h *History) Undo() (Snapshot, bool) {
	if !h.CanUndo() {
		return h.Current(), false
	}
	h.cursor--
	return h.Current(), true
}

// Redo moves the cursor forward one snapshot and returns it. The boolean is
// false when there is nothing to redo.
func (h *History) Redo() (Snapshot, bool) {
	if !h.CanRedo() {
		return h.Current(), false
	}
	h.cursor++
	return h.Current(), true
}

// Depth returns the number of stored snapshots.
func (h *History) Depth() int {
	return len(h.snapshots)
}
