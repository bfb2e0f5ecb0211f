package pipeline

import (
	"checklist_dashboard/internal/drill"
	"checklist_dashboard/internal/records"
)

// Result is the output of one full pipeline pass.
type Result struct {
	State      drill.State
	Filtered   []records.Record
	Aggregate  Aggregate
	Domains    Domains
	Reconciled Reconciled
}

// Run executes filter, aggregate, resolve and reconcile in order. It holds no
// state between calls: previous is the key set of the last render, used only
// for the enter/update/exit diff.
func Run(recs []records.Record, state drill.State, previous KeySet) Result {
	filtered := Filter(recs, state)
	agg := AggregateRecords(filtered, state.Level)
	return Result{
		State:      state,
		Filtered:   filtered,
		Aggregate:  agg,
		Domains:    ResolveDomains(agg),
		Reconciled: Reconcile(filtered, state.Level, agg, previous),
	}
}
