package app

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"checklist_dashboard/internal/config"
	"checklist_dashboard/internal/dashboard"
	"checklist_dashboard/internal/eventloop"
	"checklist_dashboard/internal/events"
	"checklist_dashboard/internal/httpapi"
	"checklist_dashboard/internal/metrics"
	"checklist_dashboard/internal/records"
	"checklist_dashboard/internal/render"
	"checklist_dashboard/internal/store"
	"checklist_dashboard/internal/watch"
	"github.com/gorilla/handlers"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// App wires the dashboard components together.
type App struct {
	cfg     config.Config
	metrics *metrics.Metrics
	bus     *events.Bus[dashboard.Frame]
	dash    *dashboard.Dashboard
	loop    *eventloop.Loop
	watcher *watch.Watcher
	mux     *http.ServeMux
}

func New(cfg config.Config) (*App, error) {
	if cfg.DataPath == "" {
		return nil, errors.New("app: data path is required")
	}
	m := metrics.New()
	bus := events.NewBus[dashboard.Frame](16)
	dash := dashboard.New(dashboard.Options{
		Path:     cfg.DataPath,
		OrgLabel: cfg.OrgLabel,
		Loader:   SnapshotLoader(cfg.DBPath),
		Metrics:  m,
		Bus:      bus,
	})
	loop := eventloop.New(cfg.EventQueueSize, cfg.EventTimeout())
	painter := render.NewPainter(cfg.ChartWidth, cfg.ChartHeight)

	a := &App{cfg: cfg, metrics: m, bus: bus, dash: dash, loop: loop, mux: http.NewServeMux()}
	a.watcher = watch.New(cfg.DataPath, cfg.EnableWatcher, a.requestReload)
	httpapi.NewRouter(dash, loop, m, painter, bus).Register(a.mux)
	return a, nil
}

// Start launches the event loop, performs the initial load and starts the
// watcher. A failed initial load is logged; the HTTP surface reports it.
func (a *App) Start(ctx context.Context) error {
	a.loop.Start(ctx)
	err := a.loop.Submit(ctx, "load", func(ctx context.Context) error {
		_, err := a.dash.Load(ctx)
		return err
	})
	if err != nil {
		log.Printf("app: initial load failed: %v", err)
	}
	return a.watcher.Start(ctx)
}

// Run starts everything and serves HTTP until ctx is done.
func (a *App) Run(ctx context.Context) error {
	if err := a.Start(ctx); err != nil {
		return err
	}
	srv := &http.Server{Addr: a.cfg.HTTPPort, Handler: a.Handler()}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("http listening on %s", a.cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		a.loop.Stop(shutdownCtx)
		log.Printf("app: stopped stats=%+v", a.loop.Stats())
		return err
	})
	return g.Wait()
}

func (a *App) requestReload() {
	err := a.loop.Post("reload", func(ctx context.Context) error {
		_, err := a.dash.Reload(ctx)
		return err
	})
	if err != nil {
		log.Printf("app: reload not queued: %v", err)
	}
}

// Handler returns the mux wrapped with access logging.
func (a *App) Handler() http.Handler {
	return handlers.LoggingHandler(os.Stdout, a.mux)
}

func (a *App) Dashboard() *dashboard.Dashboard { return a.dash }
func (a *App) Loop() *eventloop.Loop           { return a.loop }

// SnapshotLoader loads the dataset and, when the source is CSV and dbPath is
// set, mirrors the loaded records into the SQLite store. Snapshot failures
// are logged and do not fail the load.
func SnapshotLoader(dbPath string) dashboard.Loader {
	return func(ctx context.Context, path string) (*records.Store, error) {
		data, err := dashboard.LoadDataset(ctx, path)
		if err != nil || dbPath == "" || store.IsDatabasePath(path) {
			return data, err
		}
		if err := snapshot(ctx, dbPath, data.Records()); err != nil {
			log.Printf("app: snapshot failed db=%s err=%v", dbPath, err)
		}
		return data, nil
	}
}

func snapshot(ctx context.Context, dbPath string, recs []records.Record) error {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()
	return st.ReplaceRecords(ctx, recs)
}
