package service

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"geoassist-be/internal/pkg/logger"
	"geoassist-be/pkg/workflow"

	"github.com/google/uuid"
)

const (
	// caps the uncompressed size accepted from one uploaded archive
	maxExtractBytes = 200 << 20
	maxExtractFiles = 500
)

var errArchiveTooLarge = errors.New("archive exceeds extraction limits")

type IArchiveService interface {
	workflow.Compressor
	workflow.FileRemover
}

// archiveService builds and unpacks zip files inside a private work
// directory. Every call writes into a fresh subdirectory.
type archiveService struct {
	workDir string
	logger  logger.ILogger
}

func NewArchiveService(workDir string, log logger.ILogger) IArchiveService {
	return &archiveService{workDir: workDir, logger: log}
}

func (s *archiveService) newDir() (string, error) {
	dir := filepath.Join(s.workDir, uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

func (s *archiveService) Compress(ctx context.Context, name string, files []workflow.FileRef) (workflow.FileRef, error) {
	dir, err := s.newDir()
	if err != nil {
		return workflow.FileRef{}, err
	}
	path := filepath.Join(dir, filepath.Base(name))

	out, err := os.Create(path)
	if err != nil {
		return workflow.FileRef{}, err
	}

	zw := zip.NewWriter(out)
	used := make(map[string]int, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			zw.Close()
			out.Close()
			os.RemoveAll(dir)
			return workflow.FileRef{}, err
		}
		if err := addToZip(zw, f, entryName(f, used)); err != nil {
			zw.Close()
			out.Close()
			os.RemoveAll(dir)
			return workflow.FileRef{}, fmt.Errorf("add %s: %w", f.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		out.Close()
		os.RemoveAll(dir)
		return workflow.FileRef{}, err
	}
	if err := out.Close(); err != nil {
		os.RemoveAll(dir)
		return workflow.FileRef{}, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return workflow.FileRef{}, err
	}
	s.logger.Info("ARCHIVE", "Archive created", map[string]interface{}{
		"name":  name,
		"files": len(files),
		"size":  info.Size(),
	})
	return workflow.FileRef{
		ID:       uuid.NewString(),
		Name:     filepath.Base(name),
		Path:     path,
		MimeType: "application/zip",
		Size:     info.Size(),
	}, nil
}

// entryName keeps entry names unique: report.pdf, report (1).pdf, ...
func entryName(f workflow.FileRef, used map[string]int) string {
	name := filepath.Base(f.Name)
	if name == "." || name == string(filepath.Separator) || name == "" {
		name = filepath.Base(f.Path)
	}
	n := used[name]
	used[name] = n + 1
	if n == 0 {
		return name
	}
	ext := filepath.Ext(name)
	return fmt.Sprintf("%s (%d)%s", strings.TrimSuffix(name, ext), n, ext)
}

func addToZip(zw *zip.Writer, f workflow.FileRef, name string) error {
	src, err := os.Open(f.Path)
	if err != nil {
		return err
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return err
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = name
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, src)
	return err
}

func (s *archiveService) Extract(ctx context.Context, archive workflow.FileRef) ([]workflow.FileRef, error) {
	// non-local entry names are tolerated: entries are flattened below
	zr, err := zip.OpenReader(archive.Path)
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return nil, err
	}
	defer zr.Close()

	dir, err := s.newDir()
	if err != nil {
		return nil, err
	}

	var (
		files []workflow.FileRef
		total int64
		used  = make(map[string]int)
	)
	for _, zf := range zr.File {
		if err := ctx.Err(); err != nil {
			os.RemoveAll(dir)
			return nil, err
		}
		if zf.FileInfo().IsDir() {
			continue
		}
		if len(files) >= maxExtractFiles {
			os.RemoveAll(dir)
			return nil, errArchiveTooLarge
		}

		ref := workflow.FileRef{Name: zf.Name}
		name := entryName(ref, used)
		path := filepath.Join(dir, name)

		written, err := extractEntry(zf, path, maxExtractBytes-total)
		if err != nil {
			os.RemoveAll(dir)
			return nil, fmt.Errorf("extract %s: %w", zf.Name, err)
		}
		total += written

		files = append(files, workflow.FileRef{
			ID:       uuid.NewString(),
			Name:     name,
			Path:     path,
			MimeType: mime.TypeByExtension(filepath.Ext(name)),
			Size:     written,
		})
	}

	s.logger.Info("ARCHIVE", "Archive extracted", map[string]interface{}{
		"archive": archive.Name,
		"files":   len(files),
		"bytes":   total,
	})
	return files, nil
}

func extractEntry(zf *zip.File, path string, budget int64) (int64, error) {
	src, err := zf.Open()
	if err != nil {
		return 0, err
	}
	defer src.Close()

	dst, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer dst.Close()

	n, err := io.Copy(dst, io.LimitReader(src, budget+1))
	if err != nil {
		return n, err
	}
	if n > budget {
		return n, errArchiveTooLarge
	}
	return n, nil
}

// Remove deletes files and the per-call directories that become empty.
// Failures are logged and joined.
func (s *archiveService) Remove(files ...workflow.FileRef) error {
	var errs []error
	for _, f := range files {
		if f.Path == "" {
			continue
		}
		if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("ARCHIVE", "Failed to remove file", map[string]interface{}{
				"path":  f.Path,
				"error": err.Error(),
			})
			errs = append(errs, err)
			continue
		}
		s.removeEmptyDir(filepath.Dir(f.Path))
	}
	return errors.Join(errs...)
}

func (s *archiveService) removeEmptyDir(dir string) {
	root, err := filepath.Abs(s.workDir)
	if err != nil {
		return
	}
	abs, err := filepath.Abs(dir)
	if err != nil || filepath.Dir(abs) != root {
		return
	}
	// os.Remove refuses non-empty directories
	_ = os.Remove(abs)
}
