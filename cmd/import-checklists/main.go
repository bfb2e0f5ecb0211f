package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"checklist_dashboard/internal/config"
	"checklist_dashboard/internal/records"
	"checklist_dashboard/internal/store"
)

const defaultDBPath = "runtime/checklists.db"

type importSummary struct {
	Records   int
	Districts int
	Fires     int
	Completed int
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	csvPath := flag.String("csv", cfg.DataPath, "CSV dataset to import")
	dbPath := flag.String("db", dbPathOrDefault(cfg.DBPath), "SQLite database to write")
	dryRun := flag.Bool("dry-run", false, "parse and summarize without writing")
	reloadURL := flag.String("reload-url", "", "dashboard base URL to ask for a reload after import")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	summary, err := run(ctx, *csvPath, *dbPath, *dryRun)
	if err != nil {
		log.Fatalf("import: %v", err)
	}
	log.Printf("import: records=%d districts=%d fires=%d completed=%d dry_run=%t", summary.Records, summary.Districts, summary.Fires, summary.Completed, *dryRun)

	if *reloadURL != "" && !*dryRun {
		if err := requestReload(ctx, &http.Client{Timeout: 10 * time.Second}, *reloadURL); err != nil {
			log.Printf("import: reload request failed: %v", err)
			os.Exit(1)
		}
		log.Printf("import: reload requested from %s", normalizeBaseURL(*reloadURL))
	}
}

func run(ctx context.Context, csvPath, dbPath string, dryRun bool) (importSummary, error) {
	data, err := records.LoadFile(csvPath)
	if err != nil {
		return importSummary{}, err
	}
	summary := summarize(data)
	if dryRun {
		return summary, nil
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return summary, fmt.Errorf("open %s: %w", dbPath, err)
	}
	defer st.Close()
	if err := st.ReplaceRecords(ctx, data.Records()); err != nil {
		return summary, fmt.Errorf("write %s: %w", dbPath, err)
	}
	return summary, nil
}

func summarize(data *records.Store) importSummary {
	s := importSummary{Records: data.Len(), Districts: len(data.Districts())}
	for _, r := range data.Records() {
		s.Fires += r.TotalFires()
		s.Completed += r.ChecklistsCompleted
	}
	return s
}

func dbPathOrDefault(configured string) string {
	if strings.TrimSpace(configured) == "" {
		return defaultDBPath
	}
	return configured
}

func normalizeBaseURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "http://" + raw
	}
	return strings.TrimRight(raw, "/")
}

func requestReload(ctx context.Context, client *http.Client, baseURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, normalizeBaseURL(baseURL)+"/ops/reload", nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("reload status %d", resp.StatusCode)
	}
	return nil
}
