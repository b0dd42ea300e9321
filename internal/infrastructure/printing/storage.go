package printing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/OtmaneZ/btp-automation-system/internal/domain/quote"
	"go.uber.org/zap"
)

// Archive keeps copies of rendered quotes
type Archive interface {
	Store(ctx context.Context, req *StoreRequest) (*StoreResult, error)
	// Get opens a stored PDF by the path returned from Store
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	// Delete removes a stored PDF. Missing files are not an error.
	Delete(ctx context.Context, path string) error
	GetURL(path string) string
}

// StoreRequest is a rendered PDF and the number it was issued under
type StoreRequest struct {
	Number  quote.Number
	PDFData []byte
}

// StoreResult locates an archived PDF
type StoreResult struct {
	Path string // relative to the archive root, forward slashes
	URL  string
	Size int64
}

// ObjectPath is the archive path of a quote: {year}/devis_{number}.pdf.
// Re-archiving the same number overwrites the previous copy.
func ObjectPath(n quote.Number) string {
	return fmt.Sprintf("%d/devis_%s.pdf", n.Year(), n.String())
}

const (
	defaultArchiveDir = "./data/devis"
	defaultArchiveURL = "/archive"
)

// FileSystemArchiveConfig configures FileSystemArchive
type FileSystemArchiveConfig struct {
	BasePath string // defaults to ./data/devis
	BaseURL  string // defaults to /archive
	// RetentionDays of 0 keeps documents forever
	RetentionDays int
	Logger        *zap.Logger
}

// FileSystemArchive keeps PDFs in a directory tree on local disk
type FileSystemArchive struct {
	config *FileSystemArchiveConfig
	logger *zap.Logger
}

// NewFileSystemArchive creates the base directory if needed
func NewFileSystemArchive(config *FileSystemArchiveConfig) (*FileSystemArchive, error) {
	if config == nil {
		config = &FileSystemArchiveConfig{}
	}
	if config.BasePath == "" {
		config.BasePath = defaultArchiveDir
	}
	if config.BaseURL == "" {
		config.BaseURL = defaultArchiveURL
	}
	if err := os.MkdirAll(config.BasePath, 0o755); err != nil {
		return nil, storageError("cannot create archive directory "+config.BasePath, err)
	}

	log := config.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &FileSystemArchive{config: config, logger: log.Named("archive")}, nil
}

// RetentionDays returns the configured retention, 0 meaning forever
func (s *FileSystemArchive) RetentionDays() int {
	return s.config.RetentionDays
}

// Store writes the PDF through a temp file and a rename, so a reader never
// observes a partially written document.
func (s *FileSystemArchive) Store(ctx context.Context, req *StoreRequest) (*StoreResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, storageError("operation cancelled", err)
	}
	switch {
	case req == nil:
		return nil, storageError("store request is nil", nil)
	case req.Number.IsZero():
		return nil, storageError("quote number is required", nil)
	case len(req.PDFData) == 0:
		return nil, storageError("PDF data is empty", nil)
	}

	rel := ObjectPath(req.Number)
	target := filepath.Join(s.config.BasePath, filepath.FromSlash(rel))
	if err := writeFileAtomic(target, req.PDFData); err != nil {
		return nil, err
	}

	url := s.GetURL(rel)
	s.logger.Info("Quote PDF archived",
		zap.String("number", req.Number.String()),
		zap.String("path", rel),
		zap.Int("size", len(req.PDFData)),
	)
	return &StoreResult{Path: rel, URL: url, Size: int64(len(req.PDFData))}, nil
}

func writeFileAtomic(target string, data []byte) error {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return storageError("cannot create year directory", err)
	}
	tmp, err := os.CreateTemp(dir, ".devis-*.tmp")
	if err != nil {
		return storageError("cannot create temp file", err)
	}
	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if err := errors.Join(werr, cerr); err != nil {
		_ = os.Remove(tmp.Name())
		return storageError("cannot write PDF", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		_ = os.Remove(tmp.Name())
		return storageError("cannot move PDF into place", err)
	}
	return nil
}

// Get opens a stored PDF. The caller closes the reader.
func (s *FileSystemArchive) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, storageError("operation cancelled", err)
	}
	full, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, storageError("PDF not found", err)
	case err != nil:
		return nil, storageError("cannot open PDF", err)
	}
	return f, nil
}

// Delete removes a stored PDF
func (s *FileSystemArchive) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return storageError("operation cancelled", err)
	}
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return storageError("cannot delete PDF", err)
	}
	s.logger.Info("Quote PDF removed", zap.String("path", path))
	return nil
}

// resolve maps an archive-relative path to a file under BasePath, rejecting
// absolute paths and anything that climbs out of the root.
func (s *FileSystemArchive) resolve(path string) (string, error) {
	clean := filepath.Clean(path)
	if filepath.IsAbs(clean) || containsDotDot(path) {
		s.logger.Warn("Rejected archive path", zap.String("path", path))
		return "", storageError("invalid path", nil)
	}

	root, err := filepath.Abs(s.config.BasePath)
	if err != nil {
		return "", storageError("cannot resolve archive root", err)
	}
	full, err := filepath.Abs(filepath.Join(root, clean))
	if err != nil {
		return "", storageError("cannot resolve PDF path", err)
	}
	if full != root && !strings.HasPrefix(full, root+string(filepath.Separator)) {
		s.logger.Warn("Rejected archive path outside root",
			zap.String("path", path),
			zap.String("resolved", full),
		)
		return "", storageError("invalid path", nil)
	}
	return full, nil
}

// CleanupOlderThan deletes archived PDFs whose modification time is before
// now-age. Unreadable entries are skipped. Cancellation stops the walk and
// returns the count so far without error.
func (s *FileSystemArchive) CleanupOlderThan(ctx context.Context, age time.Duration) (int, error) {
	cutoff := time.Now().Add(-age)
	removed := 0

	err := filepath.WalkDir(s.config.BasePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || filepath.Ext(path) != ".pdf" {
			return nil
		}
		info, err := d.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			return nil
		}
		if os.Remove(path) == nil {
			removed++
			s.logger.Debug("Expired PDF removed", zap.String("path", path))
		}
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return removed, storageError("archive walk failed", err)
	}

	s.logger.Info("Archive cleanup finished",
		zap.Int("removed", removed),
		zap.Duration("max_age", age),
	)
	return removed, nil
}

// GetURL joins BaseURL and the cleaned relative path
func (s *FileSystemArchive) GetURL(path string) string {
	return s.config.BaseURL + "/" + filepath.ToSlash(filepath.Clean(path))
}

// containsDotDot reports a ".." segment in the raw path, before cleaning
// could fold it away.
func containsDotDot(path string) bool {
	segments := strings.FieldsFunc(path, func(r rune) bool {
		return r == '/' || r == '\\' || r == filepath.Separator
	})
	return slices.Contains(segments, "..")
}

func storageError(msg string, cause error) *RenderError {
	return NewRenderError(ErrCodeStorageFailed, msg, cause)
}

var _ Archive = (*FileSystemArchive)(nil)
