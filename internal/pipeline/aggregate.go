package pipeline

import (
	"strconv"

	"checklist_dashboard/internal/drill"
	"checklist_dashboard/internal/records"
)

// Bucket holds the stacked totals of one category.
type Bucket struct {
	Category  string `json:"category"`
	Completed int    `json:"completed"`
	Delta     int    `json:"delta"`
}

// Total is the full stacked bar height.
func (b Bucket) Total() int { return b.Completed + b.Delta }

// Aggregate maps category keys to buckets, ordered by first appearance in
// the filtered records.
type Aggregate struct {
	buckets []Bucket
	index   map[string]int
}

func (a Aggregate) Len() int { return len(a.buckets) }

// Buckets returns the buckets in insertion order.
func (a Aggregate) Buckets() []Bucket {
	return append([]Bucket(nil), a.buckets...)
}

// Keys returns the category keys in insertion order.
func (a Aggregate) Keys() []string {
	keys := make([]string, len(a.buckets))
	for i, b := range a.buckets {
		keys[i] = b.Category
	}
	return keys
}

func (a Aggregate) Get(category string) (Bucket, bool) {
	i, ok := a.index[category]
	if !ok {
		return Bucket{}, false
	}
	return a.buckets[i], true
}

// CategoryKey is the bar a record contributes to at the given level.
func CategoryKey(level drill.Level, rec records.Record) string {
	if level == drill.Company {
		return rec.Company
	}
	return strconv.Itoa(rec.District)
}

// Filter keeps the records visible for state. District level shows every
// record; Company level shows the records of the selected district.
func Filter(recs []records.Record, state drill.State) []records.Record {
	if state.Level != drill.Company {
		return append([]records.Record(nil), recs...)
	}
	out := make([]records.Record, 0, len(recs))
	for _, r := range recs {
		if r.District == state.SelectedUnit.District {
			out = append(out, r)
		}
	}
	return out
}

// AggregateRecords groups already filtered records by category at level.
func AggregateRecords(filtered []records.Record, level drill.Level) Aggregate {
	agg := Aggregate{index: make(map[string]int)}
	for _, r := range filtered {
		key := CategoryKey(level, r)
		i, ok := agg.index[key]
		if !ok {
			i = len(agg.buckets)
			agg.index[key] = i
			agg.buckets = append(agg.buckets, Bucket{Category: key})
		}
		agg.buckets[i].Completed += r.ChecklistsCompleted
		agg.buckets[i].Delta += r.Delta()
	}
	return agg
}

// AggregateState filters recs for state and aggregates the survivors.
func AggregateState(recs []records.Record, state drill.State) Aggregate {
	return AggregateRecords(Filter(recs, state), state.Level)
}
