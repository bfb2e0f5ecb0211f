package config

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"testing"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("CONFIG_PATH", filepath.Join(dir, "missing.yaml"))
	for _, key := range []string{"HTTP_PORT", "PORT", "DATA_PATH", "DB_PATH", "ORG_LABEL", "ENABLE_WATCHER", "EVENT_QUEUE_SIZE", "EVENT_TIMEOUT_SEC", "CHART_WIDTH", "CHART_HEIGHT", "STRICT_CONFIG"} {
		t.Setenv(key, "")
	}
	return dir
}

func TestDefaults(t *testing.T) {
	isolate(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.HTTPPort != defaultPort || cfg.DataPath != defaultDataPath || cfg.OrgLabel != defaultOrgLabel {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if !cfg.EnableWatcher {
		t.Fatalf("watcher should default on")
	}
	if cfg.DBPath != "" {
		t.Fatalf("database copy should be off by default, got %q", cfg.DBPath)
	}
	if cfg.EventQueueSize != defaultEventQueueSize {
		t.Fatalf("expected queue size %d, got %d", defaultEventQueueSize, cfg.EventQueueSize)
	}
}

func TestHTTPPortDefaultFormatting(t *testing.T) {
	isolate(t)
	t.Setenv("HTTP_PORT", "9000")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.HTTPPort != ":9000" {
		t.Fatalf("expected HTTP_PORT to include colon, got %s", cfg.HTTPPort)
	}
}

func TestQueueSizeClamp(t *testing.T) {
	isolate(t)
	t.Setenv("EVENT_QUEUE_SIZE", "5000")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.EventQueueSize != maxEventQueueSize {
		t.Fatalf("expected queue size %d, got %d", maxEventQueueSize, cfg.EventQueueSize)
	}
}

func TestInvalidTimeoutFails(t *testing.T) {
	isolate(t)
	t.Setenv("EVENT_TIMEOUT_SEC", "0")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for zero timeout")
	}
}

func TestStrictConfigRejectsBadQueueSize(t *testing.T) {
	isolate(t)
	t.Setenv("STRICT_CONFIG", "true")
	t.Setenv("EVENT_QUEUE_SIZE", "lots")
	if _, err := Load(); err == nil {
		t.Fatalf("expected strict config to fail")
	}
}

func TestFileConfigWithEnvOverride(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.yaml")
	body := "data_path: /srv/checklists.csv\norg_label: Test Dept\nenable_watcher: false\nchart:\n  width: 1200\n  height: 50\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("ORG_LABEL", "Env Dept")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.DataPath != "/srv/checklists.csv" {
		t.Fatalf("expected file data path, got %s", cfg.DataPath)
	}
	if cfg.OrgLabel != "Env Dept" {
		t.Fatalf("expected env to override org label, got %s", cfg.OrgLabel)
	}
	if cfg.EnableWatcher {
		t.Fatalf("expected watcher disabled by file")
	}
	if cfg.ChartWidth != 1200 || cfg.ChartHeight != minChartSize {
		t.Fatalf("unexpected chart size %dx%d", cfg.ChartWidth, cfg.ChartHeight)
	}
}

func TestStrictConfigRejectsMalformedFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("STRICT_CONFIG", "1")
	if _, err := Load(); err == nil {
		t.Fatalf("expected malformed config to fail in strict mode")
	}
}

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })
	return &buf
}

func TestMissingDefaultConfigFileIsSilent(t *testing.T) {
	isolate(t)
	t.Setenv("CONFIG_PATH", "")
	buf := captureLog(t)
	if _, err := Load(); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if bytes.Contains(buf.Bytes(), []byte("config: load failed")) {
		t.Fatalf("missing default config should not be reported: %s", buf.String())
	}
}

func TestMissingExplicitConfigFileIsLogged(t *testing.T) {
	isolate(t)
	buf := captureLog(t)
	if _, err := Load(); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if !bytes.Contains(buf.Bytes(), []byte("config: load failed")) {
		t.Fatalf("missing CONFIG_PATH file should be reported")
	}
}
