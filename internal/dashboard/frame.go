package dashboard

import (
	"time"

	"checklist_dashboard/internal/drill"
	"checklist_dashboard/internal/pipeline"
	"checklist_dashboard/internal/records"
)

const (
	ColorCompleted = "#B31B1A"
	ColorExpected  = "#225B80"
	yAxisLabel     = "Quantity"
)

// LegendEntry names one stack layer.
type LegendEntry struct {
	Kind  pipeline.Kind `json:"kind"`
	Label string        `json:"label"`
	Color string        `json:"color"`
}

// Legend is fixed: completed checklists on the bottom, the remainder on top.
var Legend = []LegendEntry{
	{Kind: pipeline.KindCompleted, Label: "Checklists Completed", Color: ColorCompleted},
	{Kind: pipeline.KindExpected, Label: "Expected", Color: ColorExpected},
}

// Frame is one finished render: what painters need and nothing else.
type Frame struct {
	ID           string             `json:"id"`
	Level        drill.Level        `json:"level"`
	Unit         drill.Unit         `json:"unit"`
	Domains      pipeline.Domains   `json:"domains"`
	Buckets      []pipeline.Bucket  `json:"buckets"`
	Segments     []pipeline.Segment `json:"segments"`
	Exit         []string           `json:"exit"`
	Stats        pipeline.Summary   `json:"stats"`
	XLabel       string             `json:"x_label"`
	YLabel       string             `json:"y_label"`
	RotateLabels bool               `json:"rotate_labels"`
	Legend       []LegendEntry      `json:"legend"`
	Source       string             `json:"source"`
	Records      int                `json:"records"`
	RenderedAt   time.Time          `json:"rendered_at"`
}

func newFrame(res pipeline.Result, stats pipeline.Summary, data *records.Store) Frame {
	segments := res.Reconciled.Segments
	if segments == nil {
		segments = []pipeline.Segment{}
	}
	buckets := res.Aggregate.Buckets()
	if buckets == nil {
		buckets = []pipeline.Bucket{}
	}
	exit := res.Reconciled.Exit
	if exit == nil {
		exit = []string{}
	}
	return Frame{
		ID:           newID(),
		Level:        res.State.Level,
		Unit:         res.State.SelectedUnit,
		Domains:      res.Domains,
		Buckets:      buckets,
		Segments:     segments,
		Exit:         exit,
		Stats:        stats,
		XLabel:       res.State.Level.String(),
		YLabel:       yAxisLabel,
		RotateLabels: res.State.Level == drill.Company,
		Legend:       Legend,
		Source:       data.Source(),
		Records:      data.Len(),
		RenderedAt:   time.Now().UTC(),
	}
}
