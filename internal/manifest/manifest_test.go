package manifest

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestBuildClassifiesItems(t *testing.T) {
	root := t.TempDir()
	files := map[string]string{
		"in/a.sor":         "sor",
		"out/a/trace.json": "trace",
		"out/a/report.pdf": "report",
		"out/summary.json": "json",
		"out/notes.txt":    "other",
	}
	var paths []string
	for rel := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("MkdirAll: %v", err)
		}
		if err := os.WriteFile(p, []byte(rel), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
		paths = append(paths, p)
	}
	m, err := Build(root, paths)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(m.Items) != len(files) || m.ShaAlgo != "sha256" {
		t.Fatalf("manifest = %+v", m)
	}
	for _, it := range m.Items {
		if want := files[it.Path]; it.Type != want {
			t.Fatalf("%s type = %s, want %s", it.Path, it.Type, want)
		}
		if it.Size != int64(len(it.Path)) || len(it.Sha256) != 64 {
			t.Fatalf("item = %+v", it)
		}
	}
}

func TestBuildMissingFile(t *testing.T) {
	if _, err := Build("", []string{filepath.Join(t.TempDir(), "nope.sor")}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestSignAndVerify(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	pkcs8, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("MarshalPKCS8PrivateKey: %v", err)
	}
	keys := map[string][]byte{
		"pkcs1": pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}),
		"pkcs8": pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: pkcs8}),
	}
	payload, _ := json.Marshal(Manifest{ShaAlgo: "sha256"})
	for name, pemBytes := range keys {
		t.Run(name, func(t *testing.T) {
			sig, err := SignJWS(payload, pemBytes)
			if err != nil {
				t.Fatalf("SignJWS: %v", err)
			}
			if err := VerifyJWS(payload, sig, &key.PublicKey); err != nil {
				t.Fatalf("VerifyJWS: %v", err)
			}
			tampered := append([]byte{}, payload...)
			tampered[0] = ' '
			if err := VerifyJWS(tampered, sig, &key.PublicKey); !errors.Is(err, ErrBadSignature) {
				t.Fatalf("tampered payload verified: %v", err)
			}
		})
	}
}

func TestSignRejectsBadKey(t *testing.T) {
	if _, err := SignJWS([]byte("x"), []byte("not pem")); err == nil {
		t.Fatalf("expected error")
	}
	cert := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: []byte{1, 2, 3}})
	if _, err := SignJWS([]byte("x"), cert); err == nil {
		t.Fatalf("expected error for certificate block")
	}
}
