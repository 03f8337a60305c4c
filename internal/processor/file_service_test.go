package processor

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCreateMetadata(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.pdf")
	if err := os.WriteFile(path, make([]byte, 1536), 0o644); err != nil {
		t.Fatal(err)
	}

	fs := NewFileService()
	meta, err := fs.CreateMetadata(path)
	if err != nil {
		t.Fatal(err)
	}
	if meta.Name != "report.pdf" || meta.Size != 1536 || meta.Path != path {
		t.Errorf("unexpected metadata %+v", meta)
	}
	if meta.MimeType != "application/pdf" {
		t.Errorf("mime type = %q", meta.MimeType)
	}

	if _, err := fs.CreateMetadata(dir); !errors.Is(err, ErrNotRegularFile) {
		t.Errorf("directory: %v", err)
	}
	if _, err := fs.CreateMetadata(filepath.Join(dir, "missing")); err == nil {
		t.Error("missing file accepted")
	}
}

func TestDetectMimeType(t *testing.T) {
	if got := DetectMimeType("blob.unknownext"); got != DefaultMimeType {
		t.Errorf("unknown extension = %q", got)
	}
	if got := DetectMimeType("page.html"); !strings.HasPrefix(got, "text/html") {
		t.Errorf("html = %q", got)
	}
}

func TestReaderWriter(t *testing.T) {
	dir := t.TempDir()
	fs := NewFileService()

	dst := filepath.Join(dir, "out.bin")
	w, err := fs.CreateWriter(dst)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte("hello")); err != nil {
		t.Fatal(err)
	}
	if w.Written() != 5 || w.Path() != dst {
		t.Errorf("written=%d path=%q", w.Written(), w.Path())
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}

	r, size, err := fs.OpenReader(dst)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	if size != 5 {
		t.Errorf("size = %d", size)
	}

	// existing files are truncated
	w, err = fs.CreateWriter(dst)
	if err != nil {
		t.Fatal(err)
	}
	w.Close()
	if info, _ := os.Stat(dst); info.Size() != 0 {
		t.Errorf("file not truncated, size %d", info.Size())
	}
}
