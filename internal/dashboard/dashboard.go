package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"checklist_dashboard/internal/drill"
	"checklist_dashboard/internal/events"
	"checklist_dashboard/internal/metrics"
	"checklist_dashboard/internal/pipeline"
	"checklist_dashboard/internal/records"
	"checklist_dashboard/internal/store"
	"github.com/google/uuid"
)

var (
	ErrNotLoaded     = errors.New("dataset not loaded")
	ErrUnknownRecord = errors.New("unknown record")
)

// Loader reads the dataset at path.
type Loader func(ctx context.Context, path string) (*records.Store, error)

// LoadDataset picks the SQLite store for database files and the CSV loader
// for everything else.
func LoadDataset(ctx context.Context, path string) (*records.Store, error) {
	if store.IsDatabasePath(path) {
		return store.LoadStore(ctx, path)
	}
	return records.LoadFile(path)
}

// Options configures a Dashboard.
type Options struct {
	Path     string
	OrgLabel string
	Loader   Loader
	Metrics  *metrics.Metrics
	Bus      *events.Bus[Frame]
}

// scope is the state and clicked record the current statistics describe.
type scope struct {
	state   drill.State
	clicked *records.Record
}

// Dashboard owns the drill state and the last render. Every method except
// Current, LoadError and Path must run on the event loop goroutine.
type Dashboard struct {
	path     string
	orgLabel string
	loader   Loader
	metrics  *metrics.Metrics
	bus      *events.Bus[Frame]

	data     *records.Store
	state    drill.State
	previous pipeline.KeySet
	stats    pipeline.Summary
	scope    scope

	current atomic.Pointer[Frame]
	loadErr atomic.Pointer[error]
}

func New(opts Options) *Dashboard {
	d := &Dashboard{
		path:     opts.Path,
		orgLabel: opts.OrgLabel,
		loader:   opts.Loader,
		metrics:  opts.Metrics,
		bus:      opts.Bus,
		state:    drill.Root(),
		scope:    scope{state: drill.Root()},
	}
	if d.orgLabel == "" {
		d.orgLabel = pipeline.DefaultOrgLabel
	}
	if d.loader == nil {
		d.loader = LoadDataset
	}
	if d.metrics == nil {
		d.metrics = metrics.New()
	}
	return d
}

func (d *Dashboard) Path() string { return d.path }

// Load reads the dataset for the first time and renders the root view.
func (d *Dashboard) Load(ctx context.Context) (Frame, error) {
	return d.load(ctx, "load")
}

// Reload re-reads the dataset keeping the drill state. A failed reload keeps
// the previous dataset and render.
func (d *Dashboard) Reload(ctx context.Context) (Frame, error) {
	return d.load(ctx, "reload")
}

func (d *Dashboard) load(ctx context.Context, op string) (Frame, error) {
	start := time.Now()
	data, err := d.loader(ctx, d.path)
	if err != nil {
		d.metrics.RecordLoad(0, err)
		d.loadErr.Store(&err)
		log.Printf("dashboard: %s failed path=%s err=%v", op, d.path, err)
		return Frame{}, fmt.Errorf("%s dataset: %w", op, err)
	}
	d.metrics.RecordLoad(data.Len(), nil)
	d.loadErr.Store(nil)
	d.data = data

	sc := d.scope
	if sc.clicked != nil {
		if rec, ok := data.Find(sc.clicked.District, sc.clicked.Company); ok {
			sc.clicked = &rec
		} else if sc.clicked.Company != "" {
			sc.clicked = nil
		}
	}
	d.setStats(sc)
	frame := d.render()
	log.Printf("dashboard: %s path=%s records=%d duration_ms=%d", op, d.path, data.Len(), time.Since(start).Milliseconds())
	return frame, nil
}

// Select applies a selector-menu change. Statistics are computed against the
// District-level snapshot for value before the view switches.
func (d *Dashboard) Select(value int) (Frame, error) {
	if d.data == nil {
		return Frame{}, ErrNotLoaded
	}
	d.metrics.IncSelect()
	snap, pseudo := drill.SelectSnapshot(value)
	d.setStats(scope{state: snap, clicked: &pseudo})
	d.state = d.state.Select(value)
	return d.render(), nil
}

// Click applies a bar click on the record identified by district and
// company. Statistics describe the pre-click state and the clicked record.
func (d *Dashboard) Click(district int, company string) (Frame, error) {
	if d.data == nil {
		return Frame{}, ErrNotLoaded
	}
	rec, ok := d.data.Find(district, company)
	if !ok {
		return Frame{}, fmt.Errorf("click %d/%s: %w", district, company, ErrUnknownRecord)
	}
	d.metrics.IncClick()
	d.setStats(scope{state: d.state, clicked: &rec})
	d.state = d.state.Click(rec)
	return d.render(), nil
}

// Tooltip describes the record under the pointer.
func (d *Dashboard) Tooltip(district int, company string) (pipeline.Tooltip, error) {
	if d.data == nil {
		return pipeline.Tooltip{}, ErrNotLoaded
	}
	rec, ok := d.data.Find(district, company)
	if !ok {
		return pipeline.Tooltip{}, fmt.Errorf("tooltip %d/%s: %w", district, company, ErrUnknownRecord)
	}
	return pipeline.BuildTooltip(rec), nil
}

// Units lists the selector options: 0 for every district, then each district
// in dataset order.
func (d *Dashboard) Units() ([]int, error) {
	if d.data == nil {
		return nil, ErrNotLoaded
	}
	return append([]int{0}, d.data.Districts()...), nil
}

// State returns the current drill state.
func (d *Dashboard) State() drill.State { return d.state }

// Current returns the last rendered frame. It is safe to call from any
// goroutine.
func (d *Dashboard) Current() (Frame, error) {
	if errp := d.loadErr.Load(); errp != nil && d.current.Load() == nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrNotLoaded, *errp)
	}
	f := d.current.Load()
	if f == nil {
		return Frame{}, ErrNotLoaded
	}
	return *f, nil
}

// LoadError returns the error of the last failed load, or nil once a load
// succeeds.
func (d *Dashboard) LoadError() error {
	if errp := d.loadErr.Load(); errp != nil {
		return *errp
	}
	return nil
}

func (d *Dashboard) setStats(sc scope) {
	d.scope = sc
	d.stats = pipeline.Summarize(d.data.Records(), sc.state, sc.clicked, d.orgLabel)
}

func (d *Dashboard) render() Frame {
	res := pipeline.Run(d.data.Records(), d.state, d.previous)
	d.previous = res.Reconciled.Keys
	frame := newFrame(res, d.stats, d.data)
	d.current.Store(&frame)
	d.metrics.RecordRun(len(frame.Buckets), len(frame.Segments))
	if d.bus != nil {
		d.bus.Publish(frame)
	}
	return frame
}

func newID() string { return uuid.NewString() }
