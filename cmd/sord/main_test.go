package main

import (
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"example.com/sorgate/internal/common"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sord.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, "")
	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	base := filepath.Dir(path)
	if cfg.Port != 8080 || cfg.MaxUploadMB != 64 || cfg.Concurrency != runtime.NumCPU() {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.StorageDir != filepath.Join(base, "data") {
		t.Fatalf("storageDir = %s", cfg.StorageDir)
	}
	if cfg.Logs.Directory != filepath.Join(base, "data", "logs") {
		t.Fatalf("logs dir = %s", cfg.Logs.Directory)
	}
	if cfg.Report.Lang != "en" || cfg.Logs.MaxSizeMB != 25 || cfg.Logs.MaxBackups != 5 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadConfigValues(t *testing.T) {
	path := writeConfig(t, `
port: 9090
storageDir: store
concurrency: 3
decode:
  strictStrings: true
  textEncoding: latin1
report:
  lang: zh
  fontPath: fonts/noto.ttf
logs:
  directory: /var/log/sord
  compress: true
`)
	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	base := filepath.Dir(path)
	if cfg.Port != 9090 || cfg.Concurrency != 3 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if !cfg.Decode.StrictStrings || cfg.Decode.TextEncoding != "latin1" {
		t.Fatalf("decode = %+v", cfg.Decode)
	}
	if cfg.StorageDir != filepath.Join(base, "store") {
		t.Fatalf("storageDir = %s", cfg.StorageDir)
	}
	if cfg.Report.Lang != "zh" || cfg.Report.FontPath != filepath.Join(base, "fonts", "noto.ttf") {
		t.Fatalf("report = %+v", cfg.Report)
	}
	if cfg.Logs.Directory != "/var/log/sord" || !cfg.Logs.Compress {
		t.Fatalf("logs = %+v", cfg.Logs)
	}
}

func TestLoadConfigRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, "profiles: []\n")
	_, err := loadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "profiles") {
		t.Fatalf("expected unknown field error, got %v", err)
	}
}

func TestSetupLoggingCreatesDir(t *testing.T) {
	cfg := config{Logs: logConfig{Directory: filepath.Join(t.TempDir(), "logs"), MaxSizeMB: 1}}
	closer, err := setupLogging(cfg)
	if err != nil {
		t.Fatalf("setupLogging: %v", err)
	}
	defer func() {
		log.SetOutput(os.Stderr)
		common.SetLogOutput(os.Stderr)
		closer.Close()
	}()
	if info, err := os.Stat(cfg.Logs.Directory); err != nil || !info.IsDir() {
		t.Fatalf("log dir missing: %v", err)
	}
}
