// Package archive copies worklist entries from the source root into dated
// buckets below the target root.
//
// Each entry lands at <target>/<temporal key>/<display name>. Existing files
// are never overwritten and every copy is re-read and checked against the
// cataloged size and the hash taken while copying. A failed entry leaves no
// file behind and is retried on the next run.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"archivist/internal/catalog"
	"archivist/internal/fileutil"
)

var (
	// ErrCollision marks a destination path that already exists.
	ErrCollision = errors.New("destination already exists")
	// ErrIntegrity marks a copy whose size or content did not verify.
	ErrIntegrity = errors.New("copy failed verification")
)

// CopyFunc copies src to a new file at dst.
type CopyFunc func(ctx context.Context, src, dst string) (fileutil.CopyResult, error)

// Executor archives single records.
type Executor struct {
	SourceRoot string
	TargetRoot string
	// Copy defaults to fileutil.CopyFileExclusive.
	Copy   CopyFunc
	Logger *slog.Logger
}

// Destination returns where record would be archived.
func (e *Executor) Destination(record catalog.Record) string {
	return filepath.Join(e.TargetRoot, record.TemporalKey, record.DisplayName())
}

// Archive copies record into its bucket and returns the archived path.
func (e *Executor) Archive(ctx context.Context, record catalog.Record) (string, error) {
	if record.TemporalKey == "" {
		return "", fmt.Errorf("archive %s: record has no temporal key", record.Identity)
	}
	dst := e.Destination(record)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create bucket: %w", err)
	}
	if _, err := os.Lstat(dst); err == nil {
		return "", fmt.Errorf("%w: %s", ErrCollision, dst)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("stat destination: %w", err)
	}

	src := filepath.Join(e.SourceRoot, filepath.FromSlash(record.Identity))
	copyFn := e.Copy
	if copyFn == nil {
		copyFn = fileutil.CopyFileExclusive
	}
	result, err := copyFn(ctx, src, dst)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("%w: %s", ErrCollision, dst)
		}
		return "", fmt.Errorf("copy %s: %w", record.Identity, err)
	}

	if err := verify(ctx, dst, record.Size, result); err != nil {
		if rmErr := os.Remove(dst); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			return "", fmt.Errorf("%w (and removing %s failed: %v)", err, dst, rmErr)
		}
		return "", err
	}
	return dst, nil
}

func verify(ctx context.Context, dst string, expected uint64, copied fileutil.CopyResult) error {
	size, digest, err := fileutil.HashFile(ctx, dst)
	if err != nil {
		return fmt.Errorf("%w: re-read %s: %v", ErrIntegrity, dst, err)
	}
	if uint64(size) != expected {
		return fmt.Errorf("%w: %s has %d bytes, expected %d", ErrIntegrity, dst, size, expected)
	}
	if copied.SHA256 != "" && digest != copied.SHA256 {
		return fmt.Errorf("%w: %s content differs from source stream", ErrIntegrity, dst)
	}
	return nil
}
