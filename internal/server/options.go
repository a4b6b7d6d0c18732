package server

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"example.com/sorgate/internal/common"
	"example.com/sorgate/internal/report"
	"example.com/sorgate/internal/sor"
)

const (
	defaultMaxUploadMB = 64
	multipartMemory    = 32 << 20
)

// Options configures server creation.
type Options struct {
	StorageDir string
	// Concurrency bounds the number of decodes running at once.
	Concurrency int
	MaxUploadMB int
	Decode      sor.Options
	Lang        string
	// FontPath is a UTF-8 TrueType font used for non-Latin PDF reports.
	FontPath string
	Metrics  *common.Metrics
}

type resolvedOptions struct {
	storageDir  string
	concurrency int
	maxUpload   int64
	decodeOpts  sor.Options
	decoder     *sor.Decoder
	lang        report.Language
	fontPath    string
	metrics     *common.Metrics
}

func resolveOptions(opts Options) (resolvedOptions, error) {
	var r resolvedOptions
	r.storageDir = strings.TrimSpace(opts.StorageDir)
	if r.storageDir == "" {
		r.storageDir = os.TempDir()
	}
	r.concurrency = opts.Concurrency
	if r.concurrency <= 0 {
		r.concurrency = runtime.NumCPU()
	}
	maxMB := opts.MaxUploadMB
	if maxMB <= 0 {
		maxMB = defaultMaxUploadMB
	}
	r.maxUpload = int64(maxMB) << 20

	dec, err := sor.NewDecoder(opts.Decode)
	if err != nil {
		return r, fmt.Errorf("decode options: %w", err)
	}
	lang, err := report.ParseLanguage(opts.Lang)
	if err != nil {
		return r, err
	}
	if opts.FontPath != "" {
		if _, err := os.Stat(opts.FontPath); err != nil {
			return r, fmt.Errorf("report font: %w", err)
		}
	}
	r.metrics = opts.Metrics
	if r.metrics != nil {
		dec.SetMetrics(r.metrics)
		r.metrics.Start()
	}
	r.decodeOpts = opts.Decode
	r.decoder = dec
	r.lang = lang
	r.fontPath = opts.FontPath
	return r, nil
}
