package drill

import (
	"encoding/json"
	"testing"

	"checklist_dashboard/internal/records"
)

func TestSelectTransitions(t *testing.T) {
	s := Root().Select(3)
	if s.Level != Company || s.SelectedUnit != (Unit{District: 3}) {
		t.Fatalf("unexpected state after select 3: %s", s)
	}
	s = s.Select(0)
	if s != Root() {
		t.Fatalf("select 0 should return to root, got %s", s)
	}
}

func TestSelectSnapshotUsesDistrictLevel(t *testing.T) {
	snap, rec := SelectSnapshot(7)
	if snap.Level != District {
		t.Fatalf("snapshot level must be District, got %s", snap.Level)
	}
	if rec.District != 7 || snap.SelectedUnit.District != 7 {
		t.Fatalf("snapshot should carry the new unit: %s %+v", snap, rec)
	}
}

func TestClickCyclesLevels(t *testing.T) {
	rec := records.Record{District: 2, Company: "Engine 4"}
	s := Root().Click(rec)
	if s.Level != Company || s.SelectedUnit.District != 2 {
		t.Fatalf("district click should drill into district 2, got %s", s)
	}
	s = s.Click(rec)
	if s.Level != District || s.SelectedUnit.Company != "Engine 4" {
		t.Fatalf("company click should cycle back to District with company unit, got %s", s)
	}
	if s.SelectedUnit.IsAll() {
		t.Fatalf("company unit must not be the all sentinel")
	}
	s = s.Click(rec)
	if s.Level != Company {
		t.Fatalf("level must keep cycling, got %s", s)
	}
}

func TestLevelJSON(t *testing.T) {
	b, err := json.Marshal(State{Level: Company, SelectedUnit: Unit{District: 5}})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"level":"Company","selected_unit":{"district":5}}` {
		t.Fatalf("unexpected json %s", b)
	}
	var s State
	if err := json.Unmarshal(b, &s); err != nil {
		t.Fatal(err)
	}
	if s.Level != Company || s.SelectedUnit.District != 5 {
		t.Fatalf("round trip mismatch: %s", s)
	}
	if err := json.Unmarshal([]byte(`{"level":"Battalion"}`), &s); err == nil {
		t.Fatalf("expected unknown level error")
	}
}
