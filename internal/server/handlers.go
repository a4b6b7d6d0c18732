package server

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"example.com/sorgate/internal/common"
	"example.com/sorgate/internal/report"
	"example.com/sorgate/internal/sor"
)

// Server decodes SOR files over HTTP and keeps the uploads and reports it
// produces as downloadable artifacts.
type Server struct {
	resolvedOptions
	artifacts  *ArtifactStore
	workDir    string
	uploadsDir string
	slots      chan struct{}
}

// Artifact is a file stored or generated by the daemon.
type Artifact struct {
	ID          string
	Path        string
	Name        string
	ContentType string
	Size        int64
	Kind        string
}

// ArtifactRef is the public representation returned in API responses.
type ArtifactRef struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ContentType string `json:"contentType,omitempty"`
	Size        int64  `json:"size,omitempty"`
	Kind        string `json:"kind,omitempty"`
}

type ArtifactStore struct {
	mu      sync.RWMutex
	entries map[string]Artifact
}

// NewServer creates a server with a private work directory under the
// storage directory.
func NewServer(opts Options) (*Server, error) {
	resolved, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(resolved.storageDir, 0o755); err != nil {
		return nil, err
	}
	workDir, err := os.MkdirTemp(resolved.storageDir, "sord-")
	if err != nil {
		return nil, err
	}
	uploadsDir := filepath.Join(workDir, "uploads")
	if err := os.MkdirAll(uploadsDir, 0o755); err != nil {
		os.RemoveAll(workDir)
		return nil, err
	}
	return &Server{
		resolvedOptions: resolved,
		artifacts:       &ArtifactStore{entries: make(map[string]Artifact)},
		workDir:         workDir,
		uploadsDir:      uploadsDir,
		slots:           make(chan struct{}, resolved.concurrency),
	}, nil
}

// Close removes the server's work directory.
func (s *Server) Close() error {
	if s == nil || s.workDir == "" {
		return nil
	}
	return os.RemoveAll(s.workDir)
}

func (s *Server) tempPath(pattern string) (string, error) {
	f, err := os.CreateTemp(s.workDir, pattern)
	if err != nil {
		return "", err
	}
	name := f.Name()
	f.Close()
	return name, nil
}

func (s *Server) addArtifact(path, displayName, contentType, kind string) (Artifact, error) {
	if path == "" {
		return Artifact{}, errors.New("empty path")
	}
	info, err := os.Stat(path)
	if err != nil {
		return Artifact{}, err
	}
	art := Artifact{
		ID:          randomID(),
		Path:        path,
		Name:        displayName,
		ContentType: contentType,
		Size:        info.Size(),
		Kind:        kind,
	}
	if art.Name == "" {
		art.Name = filepath.Base(path)
	}
	if art.ContentType == "" {
		art.ContentType = guessContentType(art.Name)
	}
	s.artifacts.mu.Lock()
	s.artifacts.entries[art.ID] = art
	s.artifacts.mu.Unlock()
	return art, nil
}

func (s *Server) getArtifact(id string) (Artifact, bool) {
	s.artifacts.mu.RLock()
	art, ok := s.artifacts.entries[id]
	s.artifacts.mu.RUnlock()
	return art, ok
}

func (s *Server) listArtifacts() []ArtifactRef {
	s.artifacts.mu.RLock()
	refs := make([]ArtifactRef, 0, len(s.artifacts.entries))
	for _, art := range s.artifacts.entries {
		refs = append(refs, toRef(art))
	}
	s.artifacts.mu.RUnlock()
	sort.Slice(refs, func(i, j int) bool { return refs[i].ID < refs[j].ID })
	return refs
}

// decodeRequest is the JSON form of POST /decode and POST /report.
type decodeRequest struct {
	Input    string `json:"input"`
	Strict   *bool  `json:"strict"`
	Encoding string `json:"encoding"`
	Content  bool   `json:"content"`
	Lang     string `json:"lang"`
}

// decoderFor returns the shared decoder unless the request overrides the
// string handling options.
func (s *Server) decoderFor(req decodeRequest) (*sor.Decoder, error) {
	if req.Strict == nil && req.Encoding == "" {
		return s.decoder, nil
	}
	opts := s.decodeOpts
	if req.Strict != nil {
		opts.StrictStrings = *req.Strict
	}
	if req.Encoding != "" {
		opts.TextEncoding = req.Encoding
	}
	dec, err := sor.NewDecoder(opts)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		dec.SetMetrics(s.metrics)
	}
	return dec, nil
}

// decode runs dec on buf while holding one of the concurrency slots.
func (s *Server) decode(r *http.Request, dec *sor.Decoder, buf []byte) (sor.Trace, error) {
	select {
	case s.slots <- struct{}{}:
	case <-r.Context().Done():
		return sor.Trace{}, r.Context().Err()
	}
	defer func() { <-s.slots }()
	if s.metrics != nil {
		s.metrics.AddFile()
	}
	return dec.Decode(buf)
}

// readInput loads the SOR bytes of a request: either the raw body or the
// artifact named by a JSON body.
func (s *Server) readInput(w http.ResponseWriter, r *http.Request) ([]byte, decodeRequest, string, error) {
	var req decodeRequest
	q := r.URL.Query()
	if v := q.Get("strict"); v != "" {
		strict := v == "true" || v == "1"
		req.Strict = &strict
	}
	req.Encoding = q.Get("encoding")
	req.Content = q.Get("content") == "true"
	req.Lang = q.Get("lang")

	body := http.MaxBytesReader(w, r.Body, s.maxUpload)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		buf, err := io.ReadAll(body)
		if err != nil {
			return nil, req, "", fmt.Errorf("read body: %w", err)
		}
		return buf, req, "request.sor", nil
	}

	var jr decodeRequest
	if err := json.NewDecoder(body).Decode(&jr); err != nil {
		return nil, req, "", fmt.Errorf("invalid json: %w", err)
	}
	if jr.Strict == nil {
		jr.Strict = req.Strict
	}
	if jr.Encoding == "" {
		jr.Encoding = req.Encoding
	}
	jr.Content = jr.Content || req.Content
	if jr.Lang == "" {
		jr.Lang = req.Lang
	}
	if strings.TrimSpace(jr.Input) == "" {
		return nil, jr, "", errors.New("input required")
	}
	art, ok := s.getArtifact(jr.Input)
	if !ok {
		return nil, jr, "", fmt.Errorf("unknown artifact %s", jr.Input)
	}
	buf, err := os.ReadFile(art.Path)
	if err != nil {
		return nil, jr, "", fmt.Errorf("read artifact: %w", err)
	}
	return buf, jr, art.Name, nil
}

type decodeSummary struct {
	Type         string `json:"type,omitempty"`
	Source       string `json:"source"`
	SHA256       string `json:"sha256"`
	Blocks       int    `json:"blocks"`
	FailedBlocks int    `json:"failedBlocks"`
	ContentEnd   int64  `json:"contentEnd"`
	Error        string `json:"error,omitempty"`
}

func summarize(source string, buf []byte, trace sor.Trace, err error) decodeSummary {
	sum := decodeSummary{
		Source:     source,
		SHA256:     common.Sha256OfBytes(buf),
		Blocks:     len(trace.Blocks),
		ContentEnd: trace.ContentEnd,
	}
	for _, b := range trace.Blocks {
		if b.Failed() {
			sum.FailedBlocks++
		}
	}
	if err != nil {
		sum.Error = err.Error()
	}
	return sum
}

func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	buf, req, source, err := s.readInput(w, r)
	if err != nil {
		http.Error(w, err.Error(), inputStatus(err))
		return
	}
	dec, err := s.decoderFor(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	trace, decodeErr := s.decode(r, dec, buf)
	if ctxErr := r.Context().Err(); ctxErr != nil && errors.Is(decodeErr, ctxErr) {
		return
	}
	if !req.Content {
		trace = report.WithoutContent(trace)
	}

	if r.URL.Query().Get("stream") == "true" {
		writer := NewNDJSONWriter(w)
		w.Header().Set("Content-Type", "application/x-ndjson")
		for i, b := range trace.Blocks {
			record := struct {
				Type  string    `json:"type"`
				Index int       `json:"index"`
				Block sor.Block `json:"block"`
			}{Type: "block", Index: i, Block: b}
			if err := writer.WriteObject(record); err != nil {
				common.Logf("decode stream: %v", err)
				return
			}
		}
		summary := summarize(source, buf, trace, decodeErr)
		summary.Type = "summary"
		if err := writer.WriteObject(summary); err != nil {
			common.Logf("decode stream: %v", err)
		}
		return
	}

	resp := struct {
		decodeSummary
		Trace sor.Trace `json:"trace"`
	}{
		decodeSummary: summarize(source, buf, trace, decodeErr),
		Trace:         trace,
	}
	status := http.StatusOK
	if decodeErr != nil {
		common.Logf("decode %s: %v", source, decodeErr)
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	buf, req, source, err := s.readInput(w, r)
	if err != nil {
		http.Error(w, err.Error(), inputStatus(err))
		return
	}
	lang := s.lang
	if req.Lang != "" {
		if lang, err = report.ParseLanguage(req.Lang); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	dec, err := s.decoderFor(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	trace, decodeErr := s.decode(r, dec, buf)
	if decodeErr != nil {
		common.Logf("report %s: %v", source, decodeErr)
		partial := trace
		if !req.Content {
			partial = report.WithoutContent(partial)
		}
		resp := struct {
			decodeSummary
			Trace sor.Trace `json:"trace"`
		}{
			decodeSummary: summarize(source, buf, trace, decodeErr),
			Trace:         partial,
		}
		writeJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}

	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	jsonPath, err := s.tempPath("trace-*.json")
	if err != nil {
		http.Error(w, fmt.Sprintf("trace temp: %v", err), http.StatusInternalServerError)
		return
	}
	if err := report.SaveTraceJSON(trace, jsonPath, req.Content); err != nil {
		http.Error(w, fmt.Sprintf("write trace: %v", err), http.StatusInternalServerError)
		return
	}
	pdfPath, err := s.tempPath("trace-*.pdf")
	if err != nil {
		http.Error(w, fmt.Sprintf("report temp: %v", err), http.StatusInternalServerError)
		return
	}
	pdfOpts := report.PDFOptions{
		Lang:       lang,
		SourceName: source,
		SourceHash: summary.SHA256,
		FontPath:   s.fontPath,
		Generated:  time.Now(),
	}
	if err := report.SaveTracePDF(trace, pdfPath, pdfOpts); err != nil {
		http.Error(w, fmt.Sprintf("write report: %v", err), http.StatusInternalServerError)
		return
	}
	jsonArt, err := s.addArtifact(jsonPath, base+".json", "application/json", "trace")
	if err != nil {
		http.Error(w, fmt.Sprintf("register trace: %v", err), http.StatusInternalServerError)
		return
	}
	pdfArt, err := s.addArtifact(pdfPath, base+".pdf", "application/pdf", "report")
	if err != nil {
		http.Error(w, fmt.Sprintf("register report: %v", err), http.StatusInternalServerError)
		return
	}
	resp := struct {
		decodeSummary
		Artifacts []ArtifactRef `json:"artifacts"`
	}{
		decodeSummary: summary,
		Artifacts:     []ArtifactRef{toRef(jsonArt), toRef(pdfArt)},
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleArtifactList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.listArtifacts())
}

func (s *Server) handleArtifactDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/artifacts/")
	if id == "" {
		http.NotFound(w, r)
		return
	}
	art, ok := s.getArtifact(id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	f, err := os.Open(art.Path)
	if err != nil {
		http.Error(w, fmt.Sprintf("open artifact: %v", err), http.StatusInternalServerError)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		http.Error(w, fmt.Sprintf("stat artifact: %v", err), http.StatusInternalServerError)
		return
	}
	if art.ContentType != "" {
		w.Header().Set("Content-Type", art.ContentType)
	}
	w.Header().Set("Content-Length", fmt.Sprintf("%d", info.Size()))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", art.Name))
	io.Copy(w, f)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	resp := map[string]any{
		"status":    "ok",
		"artifacts": len(s.listArtifacts()),
	}
	if s.metrics != nil {
		snap := s.metrics.Snapshot()
		resp["files"] = snap.Files
		resp["blocks"] = snap.Blocks
		resp["failedBlocks"] = snap.Failed
		resp["unknownBlocks"] = snap.Unknown
		resp["bytes"] = snap.Bytes
	}
	writeJSON(w, http.StatusOK, resp)
}

func toRef(art Artifact) ArtifactRef {
	return ArtifactRef{
		ID:          art.ID,
		Name:        art.Name,
		ContentType: art.ContentType,
		Size:        art.Size,
		Kind:        art.Kind,
	}
}

// inputStatus maps a request body error to its HTTP status.
func inputStatus(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func guessContentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return "application/json"
	case ".ndjson":
		return "application/x-ndjson"
	case ".pdf":
		return "application/pdf"
	case ".txt":
		return "text/plain"
	case ".sor":
		return "application/vnd.sor"
	default:
		return "application/octet-stream"
	}
}

func randomID() string {
	var b [12]byte
	if _, err := rand.Read(b[:]); err != nil {
		now := time.Now().UTC()
		return fmt.Sprintf("%d%06d", now.UnixNano(), os.Getpid())
	}
	return hex.EncodeToString(b[:])
}
