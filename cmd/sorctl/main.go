package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"example.com/sorgate/internal/common"
	"example.com/sorgate/internal/manifest"
	"example.com/sorgate/internal/report"
	"example.com/sorgate/internal/sor"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}
	cmd := os.Args[1]
	switch cmd {
	case "decode":
		decodeCmd(os.Args[2:])
	case "dump":
		dumpCmd(os.Args[2:])
	case "report":
		reportCmd(os.Args[2:])
	case "batch":
		batchCmd(os.Args[2:])
	case "version":
		fmt.Printf("sorctl %s (built %s)\n", version, buildDate)
	default:
		usage()
	}
}

func usage() {
	fmt.Printf(`sorctl %s (built %s) <command> [options]

Commands:
  decode  --in <file.sor> [--out <trace.json>] [--content] [--strict] [--encoding <codepage>]
  dump    --in <file.sor> [--lang en|zh] [--strict] [--encoding <codepage>]
  report  --in <file.sor> --pdf <report.pdf> [--json <trace.json>] [--lang en|zh] [--font <file.ttf>]
  batch   --in <dir> --out-dir <dir> [--concurrency N] [--pdf] [--sign-key <key.pem>] [--progress] [--metrics]
  version
`, version, buildDate)
}

// decodeFlags registers the string handling flags shared by every command.
func decodeFlags(fs *flag.FlagSet) func() sor.Options {
	strict := fs.Bool("strict", false, "reject strings without a NUL terminator")
	encoding := fs.String("encoding", "", "codepage of string fields (e.g. latin1, windows-1252)")
	return func() sor.Options {
		return sor.Options{StrictStrings: *strict, TextEncoding: *encoding}
	}
}

func decodeCmd(args []string) {
	fs := flag.NewFlagSet("decode", flag.ExitOnError)
	in := fs.String("in", "", "input .sor")
	out := fs.String("out", "", "trace JSON output (stdout when empty)")
	withContent := fs.Bool("content", false, "include raw block content")
	opts := decodeFlags(fs)
	fs.Parse(args)

	if *in == "" {
		fmt.Println("required: --in")
		os.Exit(1)
	}
	trace, decodeErr := sor.DecodeFile(*in, opts())
	if decodeErr != nil && len(trace.Blocks) == 0 {
		fmt.Println("decode:", decodeErr)
		os.Exit(1)
	}
	if *out == "" {
		b, err := report.MarshalTrace(trace, *withContent)
		if err != nil {
			fmt.Println("marshal:", err)
			os.Exit(1)
		}
		os.Stdout.Write(append(b, '\n'))
	} else {
		if err := report.SaveTraceJSON(trace, *out, *withContent); err != nil {
			fmt.Println("write trace:", err)
			os.Exit(1)
		}
	}
	printSummary(*in, trace)
	if decodeErr != nil {
		fmt.Fprintln(os.Stderr, "decode:", decodeErr)
		os.Exit(1)
	}
}

func dumpCmd(args []string) {
	fs := flag.NewFlagSet("dump", flag.ExitOnError)
	in := fs.String("in", "", "input .sor")
	langFlag := fs.String("lang", "en", "label language (en, zh)")
	opts := decodeFlags(fs)
	fs.Parse(args)

	if *in == "" {
		fmt.Println("required: --in")
		os.Exit(1)
	}
	lang, err := report.ParseLanguage(*langFlag)
	if err != nil {
		fmt.Println("lang:", err)
		os.Exit(1)
	}
	trace, decodeErr := sor.DecodeFile(*in, opts())
	if decodeErr != nil && len(trace.Blocks) == 0 {
		fmt.Println("decode:", decodeErr)
		os.Exit(1)
	}
	if err := report.WriteText(os.Stdout, trace, report.NewTranslator(lang)); err != nil {
		fmt.Println("dump:", err)
		os.Exit(1)
	}
	if decodeErr != nil {
		fmt.Println("decode:", decodeErr)
		os.Exit(1)
	}
}

func reportCmd(args []string) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	in := fs.String("in", "", "input .sor")
	pdfOut := fs.String("pdf", "", "PDF report output")
	jsonOut := fs.String("json", "", "optional trace JSON output")
	langFlag := fs.String("lang", "en", "report language (en, zh)")
	font := fs.String("font", "", "UTF-8 TrueType font for non-Latin labels")
	opts := decodeFlags(fs)
	fs.Parse(args)

	if *in == "" || *pdfOut == "" {
		fmt.Println("required: --in, --pdf")
		os.Exit(1)
	}
	lang, err := report.ParseLanguage(*langFlag)
	if err != nil {
		fmt.Println("lang:", err)
		os.Exit(1)
	}
	trace, err := sor.DecodeFile(*in, opts())
	if err != nil {
		fmt.Println("decode:", err)
		os.Exit(1)
	}
	hash, _, err := common.Sha256OfFile(*in)
	if err != nil {
		fmt.Println("hash:", err)
		os.Exit(1)
	}
	pdfOpts := report.PDFOptions{
		Lang:       lang,
		SourceName: filepath.Base(*in),
		SourceHash: hash,
		FontPath:   *font,
		Generated:  time.Now(),
	}
	if err := report.SaveTracePDF(trace, *pdfOut, pdfOpts); err != nil {
		fmt.Println("write report:", err)
		os.Exit(1)
	}
	if *jsonOut != "" {
		if err := report.SaveTraceJSON(trace, *jsonOut, false); err != nil {
			fmt.Println("write trace:", err)
			os.Exit(1)
		}
	}
	fmt.Printf("Report written to %s\n", *pdfOut)
}

func printSummary(name string, trace sor.Trace) {
	var failed, unknown int
	for _, b := range trace.Blocks {
		if b.Failed() {
			failed++
		}
		if b.Kind() == sor.KindUnknown {
			unknown++
		}
	}
	fmt.Fprintf(os.Stderr, "%s: blocks=%d failed=%d unknown=%d contentEnd=%d\n",
		name, len(trace.Blocks), failed, unknown, trace.ContentEnd)
}

type batchOptions struct {
	Inputs      []string
	OutDir      string
	Concurrency int
	PDF         bool
	SignKey     string
	Decode      sor.Options
	Metrics     *common.Metrics
}

// batchResult is one line of the batch summary.
type batchResult struct {
	Input        string `json:"input"`
	Output       string `json:"output"`
	SHA256       string `json:"sha256,omitempty"`
	Blocks       int    `json:"blocks"`
	FailedBlocks int    `json:"failedBlocks"`
	Error        string `json:"error,omitempty"`
}

func batchCmd(args []string) {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	inDir := fs.String("in", ".", "input directory")
	outDir := fs.String("out-dir", "out", "results directory")
	concurrency := fs.Int("concurrency", runtime.NumCPU(), "maximum concurrent decodes")
	pdf := fs.Bool("pdf", false, "also render a PDF report per file")
	signKey := fs.String("sign-key", "", "RSA private key (PEM) used to sign manifest.json")
	metricsFlag := fs.Bool("metrics", false, "print decode metrics")
	progressFlag := fs.Bool("progress", false, "display progress updates")
	opts := decodeFlags(fs)
	fs.Parse(args)

	inputs := append([]string{*inDir}, fs.Args()...)
	var metrics *common.Metrics
	if *metricsFlag || *progressFlag {
		metrics = common.NewMetrics()
	}
	var stopProgress func()
	if metrics != nil && *progressFlag {
		stopProgress = common.StartProgressPrinter(os.Stderr, metrics, 500*time.Millisecond)
	}
	results, err := runBatch(batchOptions{
		Inputs:      inputs,
		OutDir:      *outDir,
		Concurrency: *concurrency,
		PDF:         *pdf,
		SignKey:     *signKey,
		Decode:      opts(),
		Metrics:     metrics,
	})
	if stopProgress != nil {
		stopProgress()
	}
	if err != nil {
		fmt.Println("batch:", err)
		os.Exit(1)
	}
	failures := 0
	for _, r := range results {
		status := "OK"
		switch {
		case r.Error != "":
			status = "ERROR " + r.Error
			failures++
		case r.FailedBlocks > 0:
			status = fmt.Sprintf("PARTIAL (%d failed blocks)", r.FailedBlocks)
		}
		fmt.Printf("%s -> %s: %s\n", r.Input, r.Output, status)
	}
	if metrics != nil && *metricsFlag {
		fmt.Println("Metrics:", metrics.Snapshot().Summary())
	}
	if failures > 0 {
		os.Exit(1)
	}
}

// runBatch decodes every SOR file under the inputs with a bounded worker
// pool and writes one output directory per file plus summary.json.
func runBatch(opts batchOptions) ([]batchResult, error) {
	files, err := common.CollectSORFiles(opts.Inputs)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, errors.New("no .sor files found")
	}
	dec, err := sor.NewDecoder(opts.Decode)
	if err != nil {
		return nil, err
	}
	if opts.Metrics != nil {
		dec.SetMetrics(opts.Metrics)
		var total int64
		for _, f := range files {
			if info, err := os.Stat(f); err == nil {
				total += info.Size()
			}
		}
		opts.Metrics.SetTotalBytes(total)
		opts.Metrics.Start()
		defer opts.Metrics.Stop()
	}
	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return nil, err
	}

	outputs := outputNames(files)
	results := make([]batchResult, len(files))
	workers := opts.Concurrency
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(files) {
		workers = len(files)
	}
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				outPath := filepath.Join(opts.OutDir, outputs[i])
				results[i] = processFile(dec, files[i], outPath, opts)
			}
		}()
	}
	for i := range files {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	summaryPath := filepath.Join(opts.OutDir, "summary.json")
	b, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return results, err
	}
	if err := os.WriteFile(summaryPath, b, 0o644); err != nil {
		return results, err
	}
	return results, writeManifest(opts, files, results, summaryPath)
}

// writeManifest hashes the inputs and every produced file into
// manifest.json, signing it when a key is configured.
func writeManifest(opts batchOptions, files []string, results []batchResult, summaryPath string) error {
	paths := append([]string{}, files...)
	for _, r := range results {
		for _, name := range []string{"trace.json", "report.pdf"} {
			p := filepath.Join(r.Output, name)
			if _, err := os.Stat(p); err == nil {
				paths = append(paths, p)
			}
		}
	}
	paths = append(paths, summaryPath)
	m, err := manifest.Build(opts.OutDir, paths)
	if err != nil {
		return fmt.Errorf("build manifest: %w", err)
	}
	out := filepath.Join(opts.OutDir, "manifest.json")
	if opts.SignKey == "" {
		return manifest.Save(m, out)
	}
	keyBytes, err := os.ReadFile(opts.SignKey)
	if err != nil {
		return fmt.Errorf("read key: %w", err)
	}
	m.Signature = &manifest.Signature{Type: "JWS-RS256", SignatureFile: "manifest.jws"}
	payload, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	sig, err := manifest.SignJWS(payload, keyBytes)
	if err != nil {
		return fmt.Errorf("sign manifest: %w", err)
	}
	sigBytes, err := json.MarshalIndent(sig, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, payload, 0o644); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(opts.OutDir, "manifest.jws"), sigBytes, 0o644)
}

func processFile(dec *sor.Decoder, path, outPath string, opts batchOptions) batchResult {
	res := batchResult{Input: path, Output: outPath}
	fail := func(err error) batchResult {
		common.Logf("batch %s: %v", path, err)
		res.Error = err.Error()
		return res
	}
	buf, err := os.ReadFile(path)
	if err != nil {
		return fail(err)
	}
	if opts.Metrics != nil {
		opts.Metrics.AddFile()
	}
	res.SHA256 = common.Sha256OfBytes(buf)
	trace, decodeErr := dec.Decode(buf)
	res.Blocks = len(trace.Blocks)
	for _, b := range trace.Blocks {
		if b.Failed() {
			res.FailedBlocks++
		}
	}
	if err := os.MkdirAll(outPath, 0o755); err != nil {
		return fail(err)
	}
	if err := report.SaveTraceJSON(trace, filepath.Join(outPath, "trace.json"), false); err != nil {
		return fail(err)
	}
	if decodeErr != nil {
		return fail(decodeErr)
	}
	if opts.PDF {
		pdfOpts := report.PDFOptions{SourceName: filepath.Base(path), SourceHash: res.SHA256, Generated: time.Now()}
		if err := report.SaveTracePDF(trace, filepath.Join(outPath, "report.pdf"), pdfOpts); err != nil {
			return fail(err)
		}
	}
	return res
}

// outputNames derives a unique directory name per input from its base name.
func outputNames(files []string) []string {
	taken := make(map[string]bool, len(files))
	names := make([]string, len(files))
	for i, f := range files {
		base := strings.TrimSuffix(filepath.Base(f), filepath.Ext(f))
		name := base
		for n := 2; taken[name]; n++ {
			name = fmt.Sprintf("%s-%d", base, n)
		}
		taken[name] = true
		names[i] = name
	}
	return names
}
