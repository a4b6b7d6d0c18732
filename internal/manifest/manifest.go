// Package manifest records the files a batch run read and produced with
// their SHA-256 digests.
package manifest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"example.com/sorgate/internal/common"
)

type Item struct {
	Path   string `json:"path"`
	Size   int64  `json:"size"`
	Sha256 string `json:"sha256"`
	Type   string `json:"type"`
}

type Manifest struct {
	CreatedAt time.Time  `json:"createdAt"`
	ShaAlgo   string     `json:"shaAlgo"`
	Items     []Item     `json:"items"`
	Signature *Signature `json:"signature,omitempty"`
}

type Signature struct {
	Type          string `json:"type"`
	SignatureFile string `json:"signatureFile,omitempty"`
}

// Build hashes every path. Paths under root are recorded relative to it.
func Build(root string, paths []string) (Manifest, error) {
	m := Manifest{CreatedAt: time.Now().UTC(), ShaAlgo: "sha256"}
	for _, p := range paths {
		hex, sz, err := common.Sha256OfFile(p)
		if err != nil {
			return m, err
		}
		m.Items = append(m.Items, Item{Path: relPath(root, p), Size: sz, Sha256: hex, Type: itemType(p)})
	}
	return m, nil
}

func itemType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".sor":
		return "sor"
	case ".json":
		if filepath.Base(path) == "trace.json" {
			return "trace"
		}
		return "json"
	case ".pdf":
		return "report"
	default:
		return "other"
	}
}

func relPath(root, path string) string {
	if root == "" {
		return filepath.ToSlash(path)
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func Save(m Manifest, out string) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(out, b, 0o644)
}
