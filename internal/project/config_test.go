package project

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"arm64gen/internal/backend/arm64"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadWalksUpAndMergesDefaults(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "[target]\nsystem = \"darwin\"\ndebug = true\n[build]\njobs = 3\n")
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	m, ok, err := Load(nested)
	if err != nil || !ok {
		t.Fatalf("Load: ok=%v err=%v", ok, err)
	}
	if m.Root != root {
		t.Fatalf("root = %q, want %q", m.Root, root)
	}
	opts, err := m.Config.EmitOptions()
	if err != nil {
		t.Fatal(err)
	}
	want := arm64.Options{System: arm64.SystemDarwin, Debug: true, CFI: true}
	if opts != want {
		t.Fatalf("options = %+v, want %+v", opts, want)
	}
	if m.Config.Jobs() != 3 {
		t.Fatalf("jobs = %d", m.Config.Jobs())
	}
	if got := m.OutputDir(); got != filepath.Join(root, "build") {
		t.Fatalf("output dir = %q", got)
	}
}

func TestLoadWithoutFile(t *testing.T) {
	m, ok, err := Load(t.TempDir())
	if err != nil || ok {
		t.Fatalf("expected no file, got ok=%v err=%v", ok, err)
	}
	if m.Config != Default() || m.OutputDir() != "build" {
		t.Fatalf("unexpected defaults %+v", m.Config)
	}
}

func TestLoadFileRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "[target]\nsystem = \"linux\"\nsytem = \"x\"\n[extra]\nk = 1\n")
	_, err := LoadFile(path)
	var uk *UnknownKeysError
	if !errors.As(err, &uk) {
		t.Fatalf("expected UnknownKeysError, got %v", err)
	}
	joined := strings.Join(uk.Keys, ",")
	if !strings.Contains(joined, "target.sytem") || !strings.Contains(joined, "extra.k") {
		t.Fatalf("unexpected keys %v", uk.Keys)
	}
}

func TestLoadFileValidates(t *testing.T) {
	for _, body := range []string{
		"[target]\nsystem = \"windows\"\n",
		"[build]\njobs = -1\n",
		"[output]\ndir = \"\"\n",
		"[target\n",
	} {
		if _, err := LoadFile(writeConfig(t, t.TempDir(), body)); err == nil {
			t.Fatalf("expected an error for %q", body)
		}
	}
}

func TestDigest(t *testing.T) {
	a := HashBytes([]byte("a"))
	if a.IsZero() || len(a.String()) != 64 {
		t.Fatalf("bad digest %s", a)
	}
	if Combine(a) == Combine(a, a) {
		t.Fatalf("combine ignored a part")
	}
}
