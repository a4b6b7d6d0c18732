package common

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestMetricsCounts(t *testing.T) {
	m := NewMetrics()
	m.Start()
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.AddFile()
			m.AddBlock(100)
			m.AddBlock(0)
			m.IncFailed()
			m.IncUnknown()
		}()
	}
	wg.Wait()
	m.Stop()

	snap := m.Snapshot()
	if snap.Files != 4 || snap.Blocks != 8 || snap.Failed != 4 || snap.Unknown != 4 {
		t.Fatalf("snapshot = %+v", snap)
	}
	if snap.Bytes != 400 {
		t.Fatalf("bytes = %d, want 400", snap.Bytes)
	}
	if !strings.Contains(snap.Summary(), "files=4 blocks=8 failed=4 unknown=4") {
		t.Fatalf("summary = %q", snap.Summary())
	}
}

func TestMetricsCompletion(t *testing.T) {
	m := NewMetrics()
	m.SetTotalBytes(200)
	m.AddBytes(50)
	m.AddBytes(-10)
	if got := m.Snapshot().Completion(); got != 0.25 {
		t.Fatalf("completion = %v, want 0.25", got)
	}
	m.AddBytes(500)
	if got := m.Snapshot().Completion(); got != 1 {
		t.Fatalf("completion = %v, want 1", got)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.00 KiB"},
		{5 * 1024 * 1024, "5.00 MiB"},
	}
	for _, tc := range tests {
		if got := FormatBytes(tc.in); got != tc.want {
			t.Fatalf("FormatBytes(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestProgressPrinterStops(t *testing.T) {
	var buf syncBuffer
	m := NewMetrics()
	m.Start()
	m.AddFile()
	stop := StartProgressPrinter(&buf, m, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	stop()
	if !strings.Contains(buf.String(), "Decoded:") {
		t.Fatalf("progress output = %q", buf.String())
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestCollectSORFiles(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "site-b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	files := []string{
		filepath.Join(dir, "a.sor"),
		filepath.Join(nested, "b.SOR"),
		filepath.Join(dir, "notes.txt"),
	}
	for _, f := range files {
		if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", f, err)
		}
	}
	got, err := CollectSORFiles([]string{dir, files[0]})
	if err != nil {
		t.Fatalf("CollectSORFiles: %v", err)
	}
	want := []string{files[0], files[1]}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("files = %v, want %v", got, want)
	}
	if _, err := CollectSORFiles([]string{filepath.Join(dir, "missing")}); err == nil {
		t.Fatalf("expected error for missing path")
	}
}

func TestSha256(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.bin")
	if err := os.WriteFile(path, []byte("abc"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	const want = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	sum, size, err := Sha256OfFile(path)
	if err != nil || sum != want || size != 3 {
		t.Fatalf("Sha256OfFile = %s %d %v", sum, size, err)
	}
	if got := Sha256OfBytes([]byte("abc")); got != want {
		t.Fatalf("Sha256OfBytes = %s", got)
	}
	h := NewHasher()
	h.Write([]byte("ab"))
	h.Write([]byte("c"))
	if h.Sum() != want {
		t.Fatalf("Hasher = %s", h.Sum())
	}
}
