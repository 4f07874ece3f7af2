package checkpoint

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileIsZero(t *testing.T) {
	dir := t.TempDir()
	store, err := New(filepath.Join(dir, "last_block.txt"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	height, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if height != 0 {
		t.Fatalf("expected 0 for missing file, got %d", height)
	}
	t.Logf("PASS: missing checkpoint file loads as 0")
}

func TestStoreLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "last_block.txt")
	store, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := store.Store(12345); err != nil {
		t.Fatalf("Store: %v", err)
	}

	height, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if height != 12345 {
		t.Fatalf("expected 12345, got %d", height)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(contents) != "12345" {
		t.Fatalf("expected plain decimal ASCII, got %q", contents)
	}
	t.Logf("PASS: round-tripped checkpoint as plain decimal ASCII")
}

func TestStoreMonotonicOverwrite(t *testing.T) {
	dir := t.TempDir()
	store, err := New(filepath.Join(dir, "last_block.txt"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for _, h := range []uint64{10, 20, 30} {
		if err := store.Store(h); err != nil {
			t.Fatalf("Store(%d): %v", h, err)
		}
		got, err := store.Load()
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if got != h {
			t.Fatalf("expected %d, got %d", h, got)
		}
	}

	// No leftover temp file after successful renames.
	if _, err := os.Stat(filepath.Join(dir, "last_block.txt.tmp")); !os.IsNotExist(err) {
		t.Fatalf("expected temp file to be gone after rename, stat err=%v", err)
	}
	t.Logf("PASS: repeated Store calls leave no temp file behind")
}

func TestLoadRejectsGarbageContents(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "last_block.txt")
	if err := os.WriteFile(path, []byte("not-a-number"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	store, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := store.Load(); err == nil {
		t.Fatalf("expected error loading non-numeric checkpoint")
	}
	t.Logf("PASS: non-numeric checkpoint contents rejected")
}
