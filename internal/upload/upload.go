package upload

import (
	"errors"
	"io"
	"log"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/headlineagentur/webportal/internal/common"
)

const (
	MaxFiles    = 3
	MaxFileSize = 10 << 20 // 10 MiB
)

var (
	ErrTooManyFiles   = errors.New("too many files")
	ErrFileTooLarge   = errors.New("file too large")
	ErrTypeNotAllowed = errors.New("file type not allowed")
)

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".pdf":  true,
	".doc":  true,
	".docx": true,
	".txt":  true,
}

var allowedMimeTypes = map[string]bool{
	"image/jpeg":         true,
	"image/png":          true,
	"image/webp":         true,
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"text/plain": true,
}

type SavedFile struct {
	OriginalName string
	MimeType     string
	SizeBytes    int64
	// StoragePath is relative to the saver's base dir, slash-separated.
	StoragePath string
}

// Saver writes validated multipart uploads under a base directory. Both the
// visitor chat, the admin chat and the account document paths share it so
// the allow-list lives in exactly one place.
type Saver struct {
	baseDir string
}

func NewSaver(baseDir string) (*Saver, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, err
	}
	return &Saver{baseDir: baseDir}, nil
}

// Allowed checks a file name and declared MIME type against the shared
// allow-list. Both must match.
func Allowed(name, mimeType string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	return allowedExtensions[ext] && allowedMimeTypes[mt]
}

// SaveAll validates and persists up to MaxFiles uploads into subdir. On any
// failure every file written so far is removed; no partial set survives.
func (s *Saver) SaveAll(files []*multipart.FileHeader, subdir string) ([]SavedFile, error) {
	if len(files) == 0 {
		return nil, nil
	}
	if len(files) > MaxFiles {
		return nil, ErrTooManyFiles
	}

	for _, fh := range files {
		if fh.Size > MaxFileSize {
			return nil, ErrFileTooLarge
		}
		if !Allowed(fh.Filename, fh.Header.Get("Content-Type")) {
			return nil, ErrTypeNotAllowed
		}
	}

	if err := os.MkdirAll(filepath.Join(s.baseDir, subdir), 0o755); err != nil {
		return nil, err
	}

	var saved []SavedFile
	for _, fh := range files {
		sf, err := s.saveOne(fh, subdir)
		if err != nil {
			s.Remove(paths(saved)...)
			return nil, err
		}
		saved = append(saved, sf)
	}
	return saved, nil
}

func (s *Saver) saveOne(fh *multipart.FileHeader, subdir string) (SavedFile, error) {
	id, err := common.NewULID()
	if err != nil {
		return SavedFile{}, err
	}
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !allowedExtensions[ext] {
		ext = ""
	}
	rel := path.Join(subdir, strings.ToLower(id)+ext)

	src, err := fh.Open()
	if err != nil {
		return SavedFile{}, err
	}
	defer src.Close()

	dst, err := os.Create(filepath.Join(s.baseDir, filepath.FromSlash(rel)))
	if err != nil {
		return SavedFile{}, err
	}
	defer dst.Close()

	n, err := io.Copy(dst, io.LimitReader(src, MaxFileSize+1))
	if err != nil {
		_ = os.Remove(dst.Name())
		return SavedFile{}, err
	}
	if n > MaxFileSize {
		_ = os.Remove(dst.Name())
		return SavedFile{}, ErrFileTooLarge
	}

	mt := strings.ToLower(fh.Header.Get("Content-Type"))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}

	return SavedFile{
		OriginalName: fh.Filename,
		MimeType:     mt,
		SizeBytes:    n,
		StoragePath:  rel,
	}, nil
}

// Remove deletes stored files best-effort; missing files are tolerated.
func (s *Saver) Remove(storagePaths ...string) {
	for _, p := range storagePaths {
		if p == "" {
			continue
		}
		if err := os.Remove(s.AbsPath(p)); err != nil && !os.IsNotExist(err) {
			log.Printf("[upload] remove failed path=%s err=%v", p, err)
		}
	}
}

// AbsPath resolves a stored relative path below the base dir. Paths that
// escape the base dir resolve to an empty string.
func (s *Saver) AbsPath(storagePath string) string {
	clean := path.Clean("/" + storagePath)[1:]
	if clean == "" || clean == "." {
		return ""
	}
	return filepath.Join(s.baseDir, filepath.FromSlash(clean))
}

func paths(saved []SavedFile) []string {
	out := make([]string, 0, len(saved))
	for _, sf := range saved {
		out = append(out, sf.StoragePath)
	}
	return out
}
