package pipeline

import "checklist_dashboard/internal/records"

// TooltipRow is one label/value line of a hover tooltip.
type TooltipRow struct {
	Label string `json:"label"`
	Value int    `json:"value"`
}

// Tooltip is the hover content for one record.
type Tooltip struct {
	Title string       `json:"title"`
	Rows  []TooltipRow `json:"rows"`
}

func BuildTooltip(r records.Record) Tooltip {
	return Tooltip{
		Title: r.Company,
		Rows: []TooltipRow{
			{Label: "Structural", Value: r.Structural},
			{Label: "Vehicle", Value: r.Vehicle},
			{Label: "Other", Value: r.Other},
			{Label: "Checklists-Completed", Value: r.ChecklistsCompleted},
		},
	}
}
