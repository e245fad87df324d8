package upload

import (
	"bytes"
	"errors"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type testFile struct {
	name     string
	mimeType string
	content  []byte
}

func buildHeaders(t *testing.T, files ...testFile) []*multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename="%s"`, f.name))
		h.Set("Content-Type", f.mimeType)
		part, err := w.CreatePart(h)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		if _, err := part.Write(f.content); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(32 << 20)
	if err != nil {
		t.Fatalf("read form: %v", err)
	}
	return form.File["files"]
}

func countFiles(t *testing.T, dir string) int {
	t.Helper()
	n := 0
	err := filepath.Walk(dir, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			n++
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk: %v", err)
	}
	return n
}

func TestAllowed(t *testing.T) {
	cases := []struct {
		name     string
		mimeType string
		want     bool
	}{
		{"foto.jpg", "image/jpeg", true},
		{"Foto.JPG", "IMAGE/JPEG", true},
		{"scan.pdf", "application/pdf", true},
		{"doc.docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", true},
		{"notes.txt", "text/plain; charset=utf-8", true},
		{"archive.zip", "application/zip", false},
		{"script.exe", "application/x-msdownload", false},
		{"spoofed.pdf", "application/x-msdownload", false}, // MIME outside allow-list
		{"noext", "image/png", false},                      // extension outside allow-list
	}
	for _, c := range cases {
		if got := Allowed(c.name, c.mimeType); got != c.want {
			t.Fatalf("Allowed(%q, %q) = %v, want %v", c.name, c.mimeType, got, c.want)
		}
	}
}

func TestSaveAllWritesBlobs(t *testing.T) {
	dir := t.TempDir()
	s, err := NewSaver(dir)
	if err != nil {
		t.Fatalf("new saver: %v", err)
	}

	saved, err := s.SaveAll(buildHeaders(t,
		testFile{"a.txt", "text/plain", []byte("eins")},
		testFile{"b.png", "image/png", []byte{1, 2, 3}},
	), "chat")
	if err != nil {
		t.Fatalf("save all: %v", err)
	}
	if len(saved) != 2 {
		t.Fatalf("expected 2 saved files, got %d", len(saved))
	}

	for _, sf := range saved {
		if !strings.HasPrefix(sf.StoragePath, "chat/") {
			t.Fatalf("storage path must be below the subdir, got %q", sf.StoragePath)
		}
		if sf.StoragePath == sf.OriginalName {
			t.Fatalf("stored name must not reuse the client name")
		}
		info, err := os.Stat(s.AbsPath(sf.StoragePath))
		if err != nil {
			t.Fatalf("stat %q: %v", sf.StoragePath, err)
		}
		if info.Size() != sf.SizeBytes {
			t.Fatalf("size mismatch: disk=%d meta=%d", info.Size(), sf.SizeBytes)
		}
	}
	if saved[0].SizeBytes != 4 || saved[1].SizeBytes != 3 {
		t.Fatalf("unexpected sizes: %d, %d", saved[0].SizeBytes, saved[1].SizeBytes)
	}
}

func TestSaveAllRejectsBeforeWriting(t *testing.T) {
	dir := t.TempDir()
	s, _ := NewSaver(dir)

	_, err := s.SaveAll(buildHeaders(t,
		testFile{"ok.txt", "text/plain", []byte("fine")},
		testFile{"bad.exe", "application/x-msdownload", []byte("mz")},
	), "chat")
	if !errors.Is(err, ErrTypeNotAllowed) {
		t.Fatalf("expected type rejection, got %v", err)
	}
	if n := countFiles(t, dir); n != 0 {
		t.Fatalf("a rejected batch must write nothing, found %d files", n)
	}

	_, err = s.SaveAll(buildHeaders(t,
		testFile{"1.txt", "text/plain", []byte("1")},
		testFile{"2.txt", "text/plain", []byte("2")},
		testFile{"3.txt", "text/plain", []byte("3")},
		testFile{"4.txt", "text/plain", []byte("4")},
	), "chat")
	if !errors.Is(err, ErrTooManyFiles) {
		t.Fatalf("expected file-count rejection, got %v", err)
	}
	if n := countFiles(t, dir); n != 0 {
		t.Fatalf("expected no files after count rejection, found %d", n)
	}
}

func TestRemoveToleratesMissing(t *testing.T) {
	dir := t.TempDir()
	s, _ := NewSaver(dir)

	saved, err := s.SaveAll(buildHeaders(t, testFile{"a.txt", "text/plain", []byte("x")}), "chat")
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	s.Remove(saved[0].StoragePath)
	if n := countFiles(t, dir); n != 0 {
		t.Fatalf("expected file removed, found %d", n)
	}
	// second remove and unknown paths must not panic or error out
	s.Remove(saved[0].StoragePath, "chat/never-existed.txt", "")
}

func TestAbsPathStaysInsideBase(t *testing.T) {
	dir := t.TempDir()
	s, _ := NewSaver(dir)

	p := s.AbsPath("../../etc/passwd")
	if p != "" && !strings.HasPrefix(p, dir) {
		t.Fatalf("traversal escaped the base dir: %q", p)
	}
	if got := s.AbsPath("chat/x.txt"); !strings.HasPrefix(got, dir) {
		t.Fatalf("expected path below base, got %q", got)
	}
}
