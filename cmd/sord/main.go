package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
	"gopkg.in/yaml.v3"

	"example.com/sorgate/internal/common"
	"example.com/sorgate/internal/server"
	"example.com/sorgate/internal/sor"
)

type logConfig struct {
	Directory  string `yaml:"directory"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
	MaxBackups int    `yaml:"maxBackups"`
	Compress   bool   `yaml:"compress"`
}

type decodeConfig struct {
	StrictStrings bool   `yaml:"strictStrings"`
	TextEncoding  string `yaml:"textEncoding"`
}

type reportConfig struct {
	Lang     string `yaml:"lang"`
	FontPath string `yaml:"fontPath"`
}

type config struct {
	Port        int          `yaml:"port"`
	StorageDir  string       `yaml:"storageDir"`
	Concurrency int          `yaml:"concurrency"`
	MaxUploadMB int          `yaml:"maxUploadMB"`
	Decode      decodeConfig `yaml:"decode"`
	Report      reportConfig `yaml:"report"`
	Logs        logConfig    `yaml:"logs"`
}

func loadConfig(path string) (config, error) {
	var cfg config
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	baseDir := filepath.Dir(path)
	resolvePath := func(p string) string {
		p = strings.TrimSpace(p)
		if p == "" || filepath.IsAbs(p) {
			return filepath.Clean(p)
		}
		return filepath.Clean(filepath.Join(baseDir, p))
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.StorageDir == "" {
		cfg.StorageDir = "data"
	}
	cfg.StorageDir = resolvePath(cfg.StorageDir)
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = runtime.NumCPU()
	}
	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = 64
	}
	if cfg.Report.Lang == "" {
		cfg.Report.Lang = "en"
	}
	if cfg.Report.FontPath != "" {
		cfg.Report.FontPath = resolvePath(cfg.Report.FontPath)
	}
	if cfg.Logs.Directory == "" {
		cfg.Logs.Directory = filepath.Join(cfg.StorageDir, "logs")
	} else {
		cfg.Logs.Directory = resolvePath(cfg.Logs.Directory)
	}
	if cfg.Logs.MaxSizeMB <= 0 {
		cfg.Logs.MaxSizeMB = 25
	}
	if cfg.Logs.MaxAgeDays <= 0 {
		cfg.Logs.MaxAgeDays = 7
	}
	if cfg.Logs.MaxBackups <= 0 {
		cfg.Logs.MaxBackups = 5
	}
	return cfg, nil
}

// setupLogging sends both the standard logger and the decoder log to stdout
// and a rotated file under the log directory.
func setupLogging(cfg config) (io.Closer, error) {
	if err := os.MkdirAll(cfg.Logs.Directory, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.Logs.Directory, "sord.log"),
		MaxSize:    cfg.Logs.MaxSizeMB,
		MaxAge:     cfg.Logs.MaxAgeDays,
		MaxBackups: cfg.Logs.MaxBackups,
		Compress:   cfg.Logs.Compress,
	}
	out := io.MultiWriter(os.Stdout, rotator)
	log.SetOutput(out)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	common.SetLogOutput(out)
	return rotator, nil
}

func main() {
	configPath := flag.String("config", "configs/sord.yaml", "path to configuration file")
	addr := flag.String("addr", "", "listen address (overrides config port)")
	readTimeout := flag.Duration("read-timeout", 60*time.Second, "HTTP read timeout")
	writeTimeout := flag.Duration("write-timeout", 60*time.Second, "HTTP write timeout")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := os.MkdirAll(cfg.StorageDir, 0o755); err != nil {
		log.Fatalf("storage dir: %v", err)
	}
	rotator, err := setupLogging(cfg)
	if err != nil {
		log.Fatalf("setup logging: %v", err)
	}
	defer rotator.Close()

	listenAddr := fmt.Sprintf(":%d", cfg.Port)
	if *addr != "" {
		listenAddr = *addr
	}
	metrics := common.NewMetrics()
	srv, err := server.NewServer(server.Options{
		StorageDir:  cfg.StorageDir,
		Concurrency: cfg.Concurrency,
		MaxUploadMB: cfg.MaxUploadMB,
		Decode: sor.Options{
			StrictStrings: cfg.Decode.StrictStrings,
			TextEncoding:  cfg.Decode.TextEncoding,
		},
		Lang:     cfg.Report.Lang,
		FontPath: cfg.Report.FontPath,
		Metrics:  metrics,
	})
	if err != nil {
		log.Fatalf("server init: %v", err)
	}
	defer srv.Close()

	httpServer := &http.Server{
		Addr:         listenAddr,
		Handler:      server.NewRouter(srv),
		ReadTimeout:  *readTimeout,
		WriteTimeout: *writeTimeout,
	}

	log.Printf("sord listening on %s", listenAddr)
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	log.Printf("sord stopped: %s", metrics.Snapshot().Summary())
}
