package metrics

import "sync/atomic"

// Metrics captures dashboard pipeline and dataset counters.
type Metrics struct {
	pipelineRuns   int64
	selects        int64
	clicks         int64
	reloads        int64
	loadFailures   int64
	records        int64
	lastCategories int64
	lastSegments   int64
}

// Snapshot provides a consistent view of the current metrics.
type Snapshot struct {
	PipelineRuns   int64 `json:"pipeline_runs"`
	Selects        int64 `json:"selects"`
	Clicks         int64 `json:"clicks"`
	Reloads        int64 `json:"reloads"`
	LoadFailures   int64 `json:"load_failures"`
	Records        int64 `json:"records"`
	LastCategories int64 `json:"last_categories"`
	LastSegments   int64 `json:"last_segments"`
}

func New() *Metrics {
	return &Metrics{}
}

// RecordRun stores the shape of the latest render.
func (m *Metrics) RecordRun(categories, segments int) {
	atomic.AddInt64(&m.pipelineRuns, 1)
	atomic.StoreInt64(&m.lastCategories, int64(categories))
	atomic.StoreInt64(&m.lastSegments, int64(segments))
}

func (m *Metrics) IncSelect() { atomic.AddInt64(&m.selects, 1) }
func (m *Metrics) IncClick()  { atomic.AddInt64(&m.clicks, 1) }

// RecordLoad counts a dataset (re)load outcome.
func (m *Metrics) RecordLoad(records int, err error) {
	atomic.AddInt64(&m.reloads, 1)
	if err != nil {
		atomic.AddInt64(&m.loadFailures, 1)
		return
	}
	atomic.StoreInt64(&m.records, int64(records))
}

func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		PipelineRuns:   atomic.LoadInt64(&m.pipelineRuns),
		Selects:        atomic.LoadInt64(&m.selects),
		Clicks:         atomic.LoadInt64(&m.clicks),
		Reloads:        atomic.LoadInt64(&m.reloads),
		LoadFailures:   atomic.LoadInt64(&m.loadFailures),
		Records:        atomic.LoadInt64(&m.records),
		LastCategories: atomic.LoadInt64(&m.lastCategories),
		LastSegments:   atomic.LoadInt64(&m.lastSegments),
	}
}
