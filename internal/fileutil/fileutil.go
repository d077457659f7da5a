// Package fileutil holds the byte-level copy and hashing helpers used by the
// archival executor.
package fileutil

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// CopyResult reports what was written by a copy.
type CopyResult struct {
	Bytes int64
	// SHA256 is the hex digest of the bytes read from the source.
	SHA256 string
}

// CopyFileExclusive streams src to dst, refusing to touch an existing dst.
// The source stream is hashed on the way through, dst is synced before
// returning, and the source modification time is carried over. On any failure
// after dst was created, dst is removed.
func CopyFileExclusive(ctx context.Context, src, dst string) (CopyResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	in, err := os.Open(src)
	if err != nil {
		return CopyResult{}, err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return CopyResult{}, fmt.Errorf("stat source: %w", err)
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, info.Mode().Perm()|0o200)
	if err != nil {
		return CopyResult{}, err
	}

	result, err := copyAndSync(ctx, out, in)
	if err != nil {
		_ = os.Remove(dst)
		return CopyResult{}, err
	}
	if err := os.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
		_ = os.Remove(dst)
		return CopyResult{}, fmt.Errorf("preserve mtime: %w", err)
	}
	return result, nil
}

func copyAndSync(ctx context.Context, out *os.File, in io.Reader) (CopyResult, error) {
	hasher := sha256.New()
	written, err := io.Copy(out, io.TeeReader(contextReader{ctx: ctx, r: in}, hasher))
	if err != nil {
		_ = out.Close()
		return CopyResult{}, err
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		return CopyResult{}, fmt.Errorf("sync destination: %w", err)
	}
	if err := out.Close(); err != nil {
		return CopyResult{}, err
	}
	return CopyResult{Bytes: written, SHA256: hex.EncodeToString(hasher.Sum(nil))}, nil
}

// HashFile re-reads path and returns its size and hex SHA-256 digest.
func HashFile(ctx context.Context, path string) (int64, string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	f, err := os.Open(path)
	if err != nil {
		return 0, "", err
	}
	defer f.Close()

	hasher := sha256.New()
	n, err := io.Copy(hasher, contextReader{ctx: ctx, r: f})
	if err != nil {
		return 0, "", err
	}
	return n, hex.EncodeToString(hasher.Sum(nil)), nil
}

// contextReader stops a long copy once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
