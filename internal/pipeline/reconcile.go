package pipeline

import (
	"sort"

	"checklist_dashboard/internal/drill"
	"checklist_dashboard/internal/records"
)

// Kind is the stack layer a segment belongs to.
type Kind string

const (
	KindCompleted Kind = "completed"
	KindExpected  Kind = "expected"
)

// Phase tells the renderer how a segment arrives. Entering segments start
// fully transparent and fade in; updated ones move in place.
type Phase string

const (
	PhaseEnter  Phase = "enter"
	PhaseUpdate Phase = "update"
)

// Segment is one rectangle ready to paint, in data units. Offset is the top
// edge, Base the bottom edge.
type Segment struct {
	Key      string `json:"key"`
	Category string `json:"category"`
	Kind     Kind   `json:"kind"`
	Offset   int    `json:"offset"`
	Base     int    `json:"base"`
	Height   int    `json:"height"`
	Phase    Phase  `json:"phase"`
}

// ID is unique per rendered rectangle.
func (s Segment) ID() string { return s.Key + "#" + string(s.Kind) }

// KeySet is the set of record keys present in a render.
type KeySet map[string]struct{}

func (k KeySet) Has(key string) bool {
	_, ok := k[key]
	return ok
}

// Reconciled is the keyed draw plan of one render.
type Reconciled struct {
	Segments []Segment `json:"segments"`
	Exit     []string  `json:"exit"`
	Keys     KeySet    `json:"-"`
}

// cursors maps a category to the running top edge of its stack layer.
type cursors map[string]int

// Reconcile stacks the filtered records into segments and diffs their keys
// against previous. The completed layer fills [0, Completed] of each bar and
// the expected layer sits on top of it up to Completed+Delta; within a layer
// records stack in input order. Cursors are rebuilt from agg on every call.
func Reconcile(filtered []records.Record, level drill.Level, agg Aggregate, previous KeySet) Reconciled {
	expectedTops := make(cursors, agg.Len())
	completedTops := make(cursors, agg.Len())
	for _, b := range agg.buckets {
		expectedTops[b.Category] = b.Total()
		completedTops[b.Category] = b.Completed
	}

	out := Reconciled{
		Segments: make([]Segment, 0, 2*len(filtered)),
		Exit:     []string{},
		Keys:     make(KeySet, len(filtered)),
	}
	for _, r := range filtered {
		key := r.Key()
		phase := PhaseUpdate
		if !previous.Has(key) {
			phase = PhaseEnter
		}
		out.Keys[key] = struct{}{}
		category := CategoryKey(level, r)

		var seg Segment
		seg, expectedTops = stackSegment(expectedTops, category, r.Delta())
		seg.Key, seg.Kind, seg.Phase = key, KindExpected, phase
		out.Segments = append(out.Segments, seg)

		seg, completedTops = stackSegment(completedTops, category, r.ChecklistsCompleted)
		seg.Key, seg.Kind, seg.Phase = key, KindCompleted, phase
		out.Segments = append(out.Segments, seg)
	}

	for _, key := range sortedKeys(previous) {
		if !out.Keys.Has(key) {
			out.Exit = append(out.Exit, key)
		}
	}
	return out
}

// stackSegment places a segment of height at the category's cursor and
// returns the cursors with that category moved down by height.
func stackSegment(c cursors, category string, height int) (Segment, cursors) {
	top := c[category]
	c[category] = top - height
	return Segment{Category: category, Offset: top, Base: top - height, Height: height}, c
}

func sortedKeys(k KeySet) []string {
	out := make([]string, 0, len(k))
	for key := range k {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}
