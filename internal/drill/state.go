package drill

import (
	"encoding/json"
	"fmt"
	"strconv"

	"checklist_dashboard/internal/records"
)

// Level is a hierarchy level of the chart.
type Level int

const (
	District Level = iota
	Company
)

var levelNames = [...]string{"District", "Company"}

// levelCount is the number of levels the click transition cycles through.
const levelCount = len(levelNames)

func (l Level) String() string {
	if l < 0 || int(l) >= levelCount {
		return "Level(" + strconv.Itoa(int(l)) + ")"
	}
	return levelNames[l]
}

// Next cycles to the following level, wrapping back to District.
func (l Level) Next() Level {
	return Level((int(l) + 1) % levelCount)
}

func (l Level) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

func (l *Level) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	for i, name := range levelNames {
		if name == s {
			*l = Level(i)
			return nil
		}
	}
	return fmt.Errorf("unknown level %q", s)
}

// Unit is the selected organisational unit. The zero value is the "all"
// sentinel. A company click at Company level selects by company name.
type Unit struct {
	District int    `json:"district"`
	Company  string `json:"company,omitempty"`
}

// All is the sentinel unit meaning every district.
var All = Unit{}

func (u Unit) IsAll() bool { return u == All }

func (u Unit) String() string {
	switch {
	case u.IsAll():
		return "all"
	case u.Company != "":
		return u.Company
	default:
		return strconv.Itoa(u.District)
	}
}

// State is the drill-down position. The zero value is the root view.
type State struct {
	Level        Level `json:"level"`
	SelectedUnit Unit  `json:"selected_unit"`
}

// Root returns the aggregate all-districts view.
func Root() State { return State{Level: District, SelectedUnit: All} }

// SelectSnapshot is the state the selector handler evaluates statistics
// against before it switches level: always District level, with the pseudo
// record carrying the newly selected district.
func SelectSnapshot(value int) (State, records.Record) {
	return State{Level: District, SelectedUnit: Unit{District: value}}, records.Record{District: value}
}

// Select applies a selector-menu change. 0 returns to the root view, any
// other value shows the companies of that district.
func (s State) Select(value int) State {
	if value == 0 {
		return Root()
	}
	return State{Level: Company, SelectedUnit: Unit{District: value}}
}

// Click applies a bar click on rec. From District level it drills into the
// record's district; from Company level it cycles back to District level
// carrying the clicked company as the selected unit.
func (s State) Click(rec records.Record) State {
	next := State{Level: s.Level.Next()}
	switch s.Level {
	case District:
		next.SelectedUnit = Unit{District: rec.District}
	default:
		next.SelectedUnit = Unit{Company: rec.Company}
	}
	return next
}

func (s State) String() string {
	return s.Level.String() + "(" + s.SelectedUnit.String() + ")"
}
