package pipeline

import (
	"math"
	"strconv"

	"checklist_dashboard/internal/drill"
	"checklist_dashboard/internal/records"
)

// DefaultOrgLabel labels the organisation-wide summary.
const DefaultOrgLabel = "Boston Fire Department Totals"

// Summary is the side-panel statistics record.
type Summary struct {
	Label              string   `json:"unit_name"`
	Structural         int      `json:"structural"`
	Vehicle            int      `json:"vehicle"`
	Other              int      `json:"other"`
	Completed          int      `json:"checklists_completed"`
	TotalFires         int      `json:"total_fires"`
	CompletionRate     *float64 `json:"completion_rate"`
	CompletionRateText string   `json:"completion_rate_text"`
}

// Summarize computes the statistics for the scope implicated by state and
// the clicked record, if any.
//
// At District level the implicated district is the clicked record's district
// (or the selected district when nothing was clicked); 0 means the whole
// organisation. At Company level the clicked record is reported verbatim.
func Summarize(recs []records.Record, state drill.State, clicked *records.Record, orgLabel string) Summary {
	if orgLabel == "" {
		orgLabel = DefaultOrgLabel
	}
	district := state.SelectedUnit.District
	if clicked != nil {
		district = clicked.District
	}

	if state.Level == drill.Company && clicked != nil {
		s := Summary{Label: clicked.Company}
		s.add(*clicked)
		return s.finish()
	}
	if state.Level == drill.District && district == 0 {
		s := Summary{Label: orgLabel}
		for _, r := range recs {
			s.add(r)
		}
		return s.finish()
	}
	s := Summary{Label: "District " + strconv.Itoa(district)}
	for _, r := range recs {
		if r.District == district {
			s.add(r)
		}
	}
	return s.finish()
}

func (s *Summary) add(r records.Record) {
	s.Structural += r.Structural
	s.Vehicle += r.Vehicle
	s.Other += r.Other
	s.Completed += r.ChecklistsCompleted
}

func (s Summary) finish() Summary {
	s.TotalFires = s.Structural + s.Vehicle + s.Other
	if s.TotalFires == 0 {
		s.CompletionRate = nil
		s.CompletionRateText = ""
		return s
	}
	rate := float64(s.Completed) / float64(s.TotalFires)
	s.CompletionRate = &rate
	s.CompletionRateText = FormatRate(rate)
	return s
}

// FormatRate renders a ratio as a whole percentage with thousands grouping,
// e.g. 0.8333 -> "83%". NaN and infinities render blank.
func FormatRate(rate float64) string {
	if math.IsNaN(rate) || math.IsInf(rate, 0) {
		return ""
	}
	pct := int64(math.Round(rate * 100))
	return groupThousands(pct) + "%"
}

func groupThousands(n int64) string {
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	digits := strconv.FormatInt(n, 10)
	if len(digits) <= 3 {
		return sign + digits
	}
	head := len(digits) % 3
	if head == 0 {
		head = 3
	}
	out := digits[:head]
	for i := head; i < len(digits); i += 3 {
		out += "," + digits[i:i+3]
	}
	return sign + out
}
