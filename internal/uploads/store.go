// Package uploads stores receipt files on local disk under one root
// directory, with names randomized so uploads never collide or collide with
// path tricks in the client filename.
package uploads

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/rico-rbls/smart-budget-tracker/constants"
	"github.com/rico-rbls/smart-budget-tracker/internal/common"
)

type Store struct {
	root   string
	logger *slog.Logger
}

// NewStore resolves dir to an absolute path and creates it when missing.
func NewStore(dir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve upload dir: %w", err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{root: root, logger: logger}, nil
}

// Root returns the absolute upload directory.
func (s *Store) Root() string { return s.root }

// Validate rejects a file before any bytes are written. Size zero is
// unknown and passes; the copy in Save still enforces the cap.
func (s *Store) Validate(filename, contentType string, size int64) error {
	ext := constants.NormalizeExt(filepath.Ext(filename))
	if _, ok := constants.AllowedExtensions[ext]; !ok {
		return common.NewAppError("UNSUPPORTED_FILE_TYPE",
			fmt.Sprintf("extension %q is not accepted", ext), common.ErrInvalidInput)
	}
	// Clients that send application/octet-stream are judged by extension
	// alone.
	mime := strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	if mime != "" && mime != "application/octet-stream" {
		if _, ok := constants.AllowedMIMETypes[mime]; !ok {
			return common.NewAppError("UNSUPPORTED_FILE_TYPE",
				fmt.Sprintf("content type %q is not accepted", mime), common.ErrInvalidInput)
		}
	}
	if size > constants.MaxUploadBytes {
		return common.NewAppError("FILE_TOO_LARGE",
			fmt.Sprintf("file exceeds %d bytes", constants.MaxUploadBytes), common.ErrInvalidInput)
	}
	return nil
}

// Save writes the upload under a fresh random name, keeping only the
// original extension. Returns the absolute path of the stored file.
func (s *Store) Save(userID uuid.UUID, filename string, r io.Reader) (string, error) {
	ext := constants.NormalizeExt(filepath.Ext(filename))
	if _, ok := constants.AllowedExtensions[ext]; !ok {
		return "", common.NewAppError("UNSUPPORTED_FILE_TYPE",
			fmt.Sprintf("extension %q is not accepted", ext), common.ErrInvalidInput)
	}

	name := fmt.Sprintf("%s_%s.%s", userID, uuid.New(), ext)
	path := filepath.Join(s.root, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}

	written, err := io.Copy(f, io.LimitReader(r, constants.MaxUploadBytes+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("write upload file: %w", err)
	}
	if written > constants.MaxUploadBytes {
		_ = os.Remove(path)
		return "", common.NewAppError("FILE_TOO_LARGE",
			fmt.Sprintf("file exceeds %d bytes", constants.MaxUploadBytes), common.ErrInvalidInput)
	}

	s.logger.Info("upload stored", "path", path, "bytes", written, "user_id", userID)
	return path, nil
}

// Remove deletes a stored file. Paths outside the upload root are refused;
// a file already gone is not an error.
func (s *Store) Remove(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, s.root+string(os.PathSeparator)) {
		return common.NewAppError("PATH_OUTSIDE_STORE",
			fmt.Sprintf("%s is not inside the upload directory", abs), common.ErrForbidden)
	}
	if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove upload file: %w", err)
	}
	return nil
}
