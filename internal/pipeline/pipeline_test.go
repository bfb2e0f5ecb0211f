package pipeline

import (
	"reflect"
	"testing"

	"checklist_dashboard/internal/drill"
	"checklist_dashboard/internal/records"
)

func scenarioRecords() []records.Record {
	return []records.Record{
		{District: 1, Company: "A", Structural: 3, Vehicle: 2, Other: 0, ChecklistsCompleted: 4},
		{District: 1, Company: "B", Structural: 1, Vehicle: 0, Other: 0, ChecklistsCompleted: 1},
	}
}

func mixedRecords() []records.Record {
	return []records.Record{
		{District: 3, Company: "E1", Structural: 4, Vehicle: 1, Other: 1, ChecklistsCompleted: 5},
		{District: 1, Company: "E2", Structural: 2, Vehicle: 2, Other: 2, ChecklistsCompleted: 1},
		{District: 3, Company: "L7", Structural: 0, Vehicle: 3, Other: 0, ChecklistsCompleted: 3},
		{District: 2, Company: "E9", Structural: 1, Vehicle: 0, Other: 4, ChecklistsCompleted: 0},
		{District: 1, Company: "L2", Structural: 5, Vehicle: 0, Other: 0, ChecklistsCompleted: 2},
		{District: 0, Company: "HQ", Structural: 0, Vehicle: 0, Other: 1, ChecklistsCompleted: 1},
	}
}

func TestScenarioADistrictAggregate(t *testing.T) {
	agg := AggregateState(scenarioRecords(), drill.Root())
	if agg.Len() != 1 {
		t.Fatalf("expected one category, got %v", agg.Keys())
	}
	b, ok := agg.Get("1")
	if !ok {
		t.Fatalf("missing category 1")
	}
	if b.Completed != 5 || b.Delta != 1 {
		t.Fatalf("unexpected bucket %+v", b)
	}
}

func TestScenarioBCompanyAggregate(t *testing.T) {
	state := drill.Root().Select(1)
	res := Run(scenarioRecords(), state, nil)
	if !reflect.DeepEqual(res.Domains.Categories, []string{"A", "B"}) {
		t.Fatalf("unexpected categories %v", res.Domains.Categories)
	}
	a, _ := res.Aggregate.Get("A")
	b, _ := res.Aggregate.Get("B")
	if a.Completed != 4 || a.Delta != 1 || b.Completed != 1 || b.Delta != 0 {
		t.Fatalf("unexpected buckets A=%+v B=%+v", a, b)
	}
	if res.Domains.Min != 0 || res.Domains.Max != 5 {
		t.Fatalf("unexpected numeric domain [%d,%d]", res.Domains.Min, res.Domains.Max)
	}
}

func TestScenarioCEmptyFilteredSet(t *testing.T) {
	state := drill.Root().Select(42)
	res := Run(scenarioRecords(), state, nil)
	if len(res.Domains.Categories) != 0 {
		t.Fatalf("expected no categories, got %v", res.Domains.Categories)
	}
	if res.Domains.Min != 0 || res.Domains.Max != 0 {
		t.Fatalf("expected [0,0], got [%d,%d]", res.Domains.Min, res.Domains.Max)
	}
	if len(res.Reconciled.Segments) != 0 {
		t.Fatalf("expected no segments, got %d", len(res.Reconciled.Segments))
	}
}

func TestScenarioDZeroFires(t *testing.T) {
	recs := []records.Record{{District: 4, Company: "Q", ChecklistsCompleted: 0}}
	s := Summarize(recs, drill.Root(), nil, "")
	if s.TotalFires != 0 {
		t.Fatalf("expected zero fires, got %d", s.TotalFires)
	}
	if s.CompletionRate != nil || s.CompletionRateText != "" {
		t.Fatalf("expected blank rate, got %v %q", s.CompletionRate, s.CompletionRateText)
	}
}

func TestAggregationConservesTotals(t *testing.T) {
	recs := mixedRecords()
	states := []drill.State{
		drill.Root(),
		drill.Root().Select(1),
		drill.Root().Select(3),
		drill.Root().Click(recs[0]).Click(recs[0]),
	}
	for _, state := range states {
		filtered := Filter(recs, state)
		var want int
		for _, r := range filtered {
			want += r.TotalFires()
		}
		var got int
		for _, b := range AggregateRecords(filtered, state.Level).Buckets() {
			got += b.Completed + b.Delta
		}
		if got != want {
			t.Fatalf("%s: aggregated %d, filtered fires %d", state, got, want)
		}
	}
}

func TestCategoryOrderFollowsFirstAppearance(t *testing.T) {
	res := Run(mixedRecords(), drill.Root(), nil)
	want := []string{"3", "1", "2", "0"}
	if !reflect.DeepEqual(res.Domains.Categories, want) {
		t.Fatalf("expected %v, got %v", want, res.Domains.Categories)
	}
	res = Run(mixedRecords(), drill.Root().Select(1), nil)
	if !reflect.DeepEqual(res.Domains.Categories, []string{"E2", "L2"}) {
		t.Fatalf("unexpected company order %v", res.Domains.Categories)
	}
}

func TestReconcileStacksLayers(t *testing.T) {
	recs := []records.Record{
		{District: 5, Company: "E1", Structural: 3, ChecklistsCompleted: 2},
		{District: 5, Company: "E2", Structural: 4, ChecklistsCompleted: 1},
		{District: 6, Company: "E3", Structural: 2, ChecklistsCompleted: 2},
	}
	res := Run(recs, drill.Root(), nil)
	byID := make(map[string]Segment)
	for _, s := range res.Reconciled.Segments {
		byID[s.ID()] = s
	}
	// district 5: completed 3, delta 4, total 7
	checks := []struct {
		id                   string
		offset, base, height int
	}{
		{"5/E1#completed", 3, 1, 2},
		{"5/E2#completed", 1, 0, 1},
		{"5/E1#expected", 7, 6, 1},
		{"5/E2#expected", 6, 3, 3},
		{"6/E3#completed", 2, 0, 2},
		{"6/E3#expected", 2, 2, 0},
	}
	for _, c := range checks {
		s, ok := byID[c.id]
		if !ok {
			t.Fatalf("missing segment %s", c.id)
		}
		if s.Offset != c.offset || s.Base != c.base || s.Height != c.height {
			t.Fatalf("%s: got offset=%d base=%d height=%d", c.id, s.Offset, s.Base, s.Height)
		}
		if s.Phase != PhaseEnter {
			t.Fatalf("%s: first render must enter, got %s", c.id, s.Phase)
		}
	}
}

func TestReconcileNeverNegative(t *testing.T) {
	recs := mixedRecords()
	for _, state := range []drill.State{drill.Root(), drill.Root().Select(1), drill.Root().Select(3)} {
		res := Run(recs, state, nil)
		for _, s := range res.Reconciled.Segments {
			if s.Offset < 0 || s.Base < 0 || s.Height < 0 {
				t.Fatalf("%s: negative segment %+v", state, s)
			}
		}
	}
}

func TestReconcileDiff(t *testing.T) {
	recs := mixedRecords()
	first := Run(recs, drill.Root(), nil)
	second := Run(recs, drill.Root().Select(1), first.Reconciled.Keys)
	for _, s := range second.Reconciled.Segments {
		if s.Phase != PhaseUpdate {
			t.Fatalf("segment %s should update in place, got %s", s.ID(), s.Phase)
		}
	}
	wantExit := []string{"0/HQ", "2/E9", "3/E1", "3/L7"}
	if !reflect.DeepEqual(second.Reconciled.Exit, wantExit) {
		t.Fatalf("expected exit %v, got %v", wantExit, second.Reconciled.Exit)
	}
	third := Run(recs, drill.Root(), second.Reconciled.Keys)
	entered := 0
	for _, s := range third.Reconciled.Segments {
		if s.Phase == PhaseEnter {
			entered++
		}
	}
	if entered != 8 {
		t.Fatalf("expected 4 records (8 segments) to enter, got %d", entered)
	}
	if len(third.Reconciled.Exit) != 0 {
		t.Fatalf("nothing should exit, got %v", third.Reconciled.Exit)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	recs := mixedRecords()
	state := drill.Root().Select(3)
	a := Run(recs, state, nil)
	b := Run(recs, state, nil)
	if !reflect.DeepEqual(a.Domains, b.Domains) || !reflect.DeepEqual(a.Reconciled.Segments, b.Reconciled.Segments) {
		t.Fatalf("pipeline output differs between identical runs")
	}
	if !reflect.DeepEqual(Summarize(recs, state, nil, ""), Summarize(recs, state, nil, "")) {
		t.Fatalf("summary differs between identical runs")
	}
}

func TestDrillRoundTripAggregate(t *testing.T) {
	recs := mixedRecords()
	before := AggregateState(recs, drill.Root().Select(3))
	state := drill.Root().Select(3)
	state = state.Click(recs[0])
	state = state.Click(recs[0])
	if state.Level != drill.Company || state.SelectedUnit.District != 3 {
		t.Fatalf("expected to be back in district 3, got %s", state)
	}
	after := AggregateState(recs, state)
	if !reflect.DeepEqual(before.Buckets(), after.Buckets()) {
		t.Fatalf("round trip changed aggregate: %+v vs %+v", before.Buckets(), after.Buckets())
	}
}

func TestDrillRoundTripFromRoot(t *testing.T) {
	recs := mixedRecords()
	root := drill.Root()
	before := Run(recs, root, nil)

	state := root.Click(recs[1])
	if state.Level != drill.Company || state.SelectedUnit.District != recs[1].District {
		t.Fatalf("expected company view of district %d, got %s", recs[1].District, state)
	}
	state = state.Click(recs[1])
	if state.Level != drill.District {
		t.Fatalf("expected district level after second click, got %s", state)
	}
	after := Run(recs, state, nil)
	if !reflect.DeepEqual(before.Aggregate.Buckets(), after.Aggregate.Buckets()) {
		t.Fatalf("round trip changed aggregate: %+v vs %+v", before.Aggregate.Buckets(), after.Aggregate.Buckets())
	}
	if !reflect.DeepEqual(before.Domains, after.Domains) {
		t.Fatalf("round trip changed domains: %+v vs %+v", before.Domains, after.Domains)
	}
}

func TestSummarizeScopes(t *testing.T) {
	recs := mixedRecords()
	all := Summarize(recs, drill.Root(), nil, "Org")
	if all.Label != "Org" || all.TotalFires != 26 || all.Completed != 12 {
		t.Fatalf("unexpected org summary %+v", all)
	}
	if all.CompletionRateText != "46%" {
		t.Fatalf("unexpected rate text %q", all.CompletionRateText)
	}

	snap, pseudo := drill.SelectSnapshot(1)
	district := Summarize(recs, snap, &pseudo, "Org")
	if district.Label != "District 1" || district.TotalFires != 11 || district.Completed != 3 {
		t.Fatalf("unexpected district summary %+v", district)
	}

	snap, pseudo = drill.SelectSnapshot(0)
	if s := Summarize(recs, snap, &pseudo, "Org"); s.Label != "Org" {
		t.Fatalf("select 0 should summarize the organisation, got %q", s.Label)
	}

	company := Summarize(recs, drill.Root().Select(3), &recs[2], "Org")
	if company.Label != "L7" || company.Vehicle != 3 || company.Completed != 3 || company.CompletionRateText != "100%" {
		t.Fatalf("unexpected company summary %+v", company)
	}

	hq := recs[5]
	if s := Summarize(recs, drill.Root(), &hq, "Org"); s.Label != "Org" {
		t.Fatalf("district 0 click should summarize the organisation, got %q", s.Label)
	}
}

func TestFormatRate(t *testing.T) {
	cases := map[float64]string{
		0:       "0%",
		0.8333:  "83%",
		0.006:   "1%",
		1:       "100%",
		12.3456: "1,235%",
	}
	for in, want := range cases {
		if got := FormatRate(in); got != want {
			t.Fatalf("FormatRate(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestBuildTooltip(t *testing.T) {
	tip := BuildTooltip(scenarioRecords()[0])
	if tip.Title != "A" || len(tip.Rows) != 4 {
		t.Fatalf("unexpected tooltip %+v", tip)
	}
	if tip.Rows[3].Label != "Checklists-Completed" || tip.Rows[3].Value != 4 {
		t.Fatalf("unexpected completed row %+v", tip.Rows[3])
	}
}
