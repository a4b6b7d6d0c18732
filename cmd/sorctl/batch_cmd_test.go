package main

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"example.com/sorgate/internal/common"
	"example.com/sorgate/internal/manifest"
	"example.com/sorgate/internal/sor"
	"example.com/sorgate/internal/sor/sortest"
)

func writeSample(t *testing.T, path string, opts sortest.SampleOptions) []byte {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	buf := sortest.Sample(opts)
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return buf
}

func TestBatchCmdGeneratesOutputs(t *testing.T) {
	root := t.TempDir()
	inputDir := filepath.Join(root, "inputs")
	outDir := filepath.Join(root, "out")

	writeSample(t, filepath.Join(inputDir, "alpha.sor"), sortest.DefaultSampleOptions())
	beta := sortest.DefaultSampleOptions()
	beta.FiberID = "F08"
	beta.Events = 0
	writeSample(t, filepath.Join(inputDir, "nested", "beta.sor"), beta)
	writeSample(t, filepath.Join(inputDir, "nested", "alpha.sor"), sortest.DefaultSampleOptions())
	if err := os.WriteFile(filepath.Join(inputDir, "notes.txt"), []byte("skip me"), 0o644); err != nil {
		t.Fatalf("WriteFile notes: %v", err)
	}

	batchCmd([]string{
		"--in", inputDir,
		"--out-dir", outDir,
		"--concurrency", "2",
		"--pdf",
	})

	check := func(name string) {
		out := filepath.Join(outDir, name)
		if info, err := os.Stat(out); err != nil || !info.IsDir() {
			t.Fatalf("Output dir missing for %s: %v", name, err)
		}
		data, err := os.ReadFile(filepath.Join(out, "trace.json"))
		if err != nil {
			t.Fatalf("ReadFile trace %s: %v", name, err)
		}
		var trace struct {
			Blocks []struct {
				ID    string `json:"id"`
				Error string `json:"error"`
			} `json:"blocks"`
		}
		if err := json.Unmarshal(data, &trace); err != nil {
			t.Fatalf("Unmarshal trace %s: %v", name, err)
		}
		if len(trace.Blocks) != 9 || trace.Blocks[0].ID != "Map" {
			t.Fatalf("unexpected trace for %s: %+v", name, trace.Blocks)
		}
		if _, err := os.Stat(filepath.Join(out, "report.pdf")); err != nil {
			t.Fatalf("report missing for %s: %v", name, err)
		}
	}

	check("alpha")
	check("alpha-2")
	check("beta")

	data, err := os.ReadFile(filepath.Join(outDir, "summary.json"))
	if err != nil {
		t.Fatalf("ReadFile summary: %v", err)
	}
	var results []batchResult
	if err := json.Unmarshal(data, &results); err != nil {
		t.Fatalf("Unmarshal summary: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("summary has %d entries", len(results))
	}
	for _, r := range results {
		if r.Error != "" || r.FailedBlocks != 0 || len(r.SHA256) != 64 {
			t.Fatalf("unexpected result %+v", r)
		}
	}

	data, err = os.ReadFile(filepath.Join(outDir, "manifest.json"))
	if err != nil {
		t.Fatalf("ReadFile manifest: %v", err)
	}
	var m manifest.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("Unmarshal manifest: %v", err)
	}
	counts := make(map[string]int)
	for _, it := range m.Items {
		counts[it.Type]++
	}
	if counts["sor"] != 3 || counts["trace"] != 3 || counts["report"] != 3 || counts["json"] != 1 {
		t.Fatalf("manifest item types = %v", counts)
	}
	if m.Signature != nil {
		t.Fatalf("unsigned run recorded a signature")
	}
}

func TestRunBatchSignsManifest(t *testing.T) {
	root := t.TempDir()
	writeSample(t, filepath.Join(root, "in", "a.sor"), sortest.DefaultSampleOptions())
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	keyPath := filepath.Join(root, "key.pem")
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	if err := os.WriteFile(keyPath, keyPEM, 0o600); err != nil {
		t.Fatalf("WriteFile key: %v", err)
	}
	outDir := filepath.Join(root, "out")
	if _, err := runBatch(batchOptions{Inputs: []string{filepath.Join(root, "in")}, OutDir: outDir, SignKey: keyPath}); err != nil {
		t.Fatalf("runBatch: %v", err)
	}
	payload, err := os.ReadFile(filepath.Join(outDir, "manifest.json"))
	if err != nil {
		t.Fatalf("ReadFile manifest: %v", err)
	}
	sigBytes, err := os.ReadFile(filepath.Join(outDir, "manifest.jws"))
	if err != nil {
		t.Fatalf("ReadFile jws: %v", err)
	}
	var sig manifest.JWS
	if err := json.Unmarshal(sigBytes, &sig); err != nil {
		t.Fatalf("Unmarshal jws: %v", err)
	}
	if err := manifest.VerifyJWS(payload, sig, &key.PublicKey); err != nil {
		t.Fatalf("VerifyJWS: %v", err)
	}
}

func TestRunBatchRecordsFailures(t *testing.T) {
	root := t.TempDir()
	inputDir := filepath.Join(root, "inputs")
	good := writeSample(t, filepath.Join(inputDir, "good.sor"), sortest.DefaultSampleOptions())
	truncated := good[:len(good)-4]
	if err := os.WriteFile(filepath.Join(inputDir, "short.sor"), truncated, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	metrics := common.NewMetrics()
	results, err := runBatch(batchOptions{
		Inputs:      []string{inputDir},
		OutDir:      filepath.Join(root, "out"),
		Concurrency: 4,
		Metrics:     metrics,
	})
	if err != nil {
		t.Fatalf("runBatch: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d", len(results))
	}
	if results[0].Error != "" {
		t.Fatalf("good.sor failed: %s", results[0].Error)
	}
	if results[1].Error == "" || results[1].Blocks != 8 {
		t.Fatalf("short.sor result = %+v", results[1])
	}
	// The partial trace is still written.
	if _, err := os.Stat(filepath.Join(root, "out", "short", "trace.json")); err != nil {
		t.Fatalf("partial trace missing: %v", err)
	}

	snap := metrics.Snapshot()
	if snap.Files != 2 {
		t.Fatalf("files = %d", snap.Files)
	}
	if snap.TotalBytes != int64(len(good)+len(truncated)) {
		t.Fatalf("total bytes = %d", snap.TotalBytes)
	}
}

func TestRunBatchRejectsBadInput(t *testing.T) {
	root := t.TempDir()
	if _, err := runBatch(batchOptions{Inputs: []string{root}, OutDir: filepath.Join(root, "out")}); err == nil {
		t.Fatalf("expected error for empty input dir")
	}
	writeSample(t, filepath.Join(root, "a.sor"), sortest.DefaultSampleOptions())
	_, err := runBatch(batchOptions{
		Inputs: []string{root},
		OutDir: filepath.Join(root, "out"),
		Decode: sor.Options{TextEncoding: "klingon"},
	})
	if err == nil {
		t.Fatalf("expected unknown encoding error")
	}
}

func TestOutputNames(t *testing.T) {
	tests := []struct {
		name  string
		files []string
		want  []string
	}{
		{name: "repeated base", files: []string{"a/x.sor", "b/x.SOR", "c/y.sor", "d/x.sor"}, want: []string{"x", "x-2", "y", "x-3"}},
		{name: "suffix matches another base", files: []string{"x/a.sor", "y/a.sor", "z/a-2.sor"}, want: []string{"a", "a-2", "a-2-2"}},
		{name: "suffixed base first", files: []string{"x/a-2.sor", "y/a.sor", "z/a.sor"}, want: []string{"a-2", "a", "a-3"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := outputNames(tc.files)
			seen := make(map[string]bool)
			for i := range tc.want {
				if got[i] != tc.want[i] {
					t.Fatalf("outputNames = %v, want %v", got, tc.want)
				}
				if seen[got[i]] {
					t.Fatalf("duplicate output name %q in %v", got[i], got)
				}
				seen[got[i]] = true
			}
		})
	}
}

func TestRunBatchDistinctOutputs(t *testing.T) {
	root := t.TempDir()
	inputDir := filepath.Join(root, "in")
	writeSample(t, filepath.Join(inputDir, "x", "a.sor"), sortest.DefaultSampleOptions())
	writeSample(t, filepath.Join(inputDir, "y", "a.sor"), sortest.DefaultSampleOptions())
	writeSample(t, filepath.Join(inputDir, "z", "a-2.sor"), sortest.DefaultSampleOptions())

	results, err := runBatch(batchOptions{Inputs: []string{inputDir}, OutDir: filepath.Join(root, "out"), Concurrency: 3})
	if err != nil {
		t.Fatalf("runBatch: %v", err)
	}
	outputs := make(map[string]string)
	for _, r := range results {
		if prev, ok := outputs[r.Output]; ok {
			t.Fatalf("%s and %s share output %s", prev, r.Input, r.Output)
		}
		outputs[r.Output] = r.Input
		if _, err := os.Stat(filepath.Join(r.Output, "trace.json")); err != nil {
			t.Fatalf("trace missing for %s: %v", r.Input, err)
		}
	}
	if len(outputs) != 3 {
		t.Fatalf("outputs = %v", outputs)
	}
}
