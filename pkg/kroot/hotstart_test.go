package kroot

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestSaveAndLoadHotStartFile(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "kroot.hex")
	want := []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x01, 0x02}

	if err := SaveHotStartFile(path, want); err != nil {
		t.Fatalf("SaveHotStartFile: %v", err)
	}
	got, err := LoadHotStartFile(path)
	if err != nil {
		t.Fatalf("LoadHotStartFile: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("got %x, want %x", got, want)
	}
}

func TestLoadHotStartFileSkipsBlankLines(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "kroot.hex")
	content := []byte("\n\n  \ndeadbeef\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := LoadHotStartFile(path)
	if err != nil {
		t.Fatalf("LoadHotStartFile: %v", err)
	}
	if !bytes.Equal(got, []byte{0xDE, 0xAD, 0xBE, 0xEF}) {
		t.Errorf("got %x", got)
	}
}

func TestLoadHotStartFileMissing(t *testing.T) {
	if _, err := LoadHotStartFile("/nonexistent/kroot.hex"); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
