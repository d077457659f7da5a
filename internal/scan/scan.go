// Package scan walks a root directory and produces the staging set for one
// reconciliation pass.
package scan

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"archivist/internal/catalog"
	"archivist/internal/logging"
)

// DefaultSkipExtensions lists sidecar files that never enter a catalog.
var DefaultSkipExtensions = []string{".xmp", ".pp3", ".pto"}

// ErrRootMissing reports a scan root that does not exist or is not a directory.
var ErrRootMissing = errors.New("scan root missing")

// Options tunes a walk.
type Options struct {
	// SkipExtensions are compared case-insensitively, with or without the dot.
	SkipExtensions []string
	// IgnorePatterns are doublestar globs matched against the slash-separated
	// path relative to the root. A matching directory is pruned.
	IgnorePatterns []string
	Logger         *slog.Logger
}

// Walk returns every regular file under root as a BasicEntry sorted by
// identity. Unreadable subtrees are logged and skipped; a missing root fails.
func Walk(ctx context.Context, root string, opts Options) ([]catalog.BasicEntry, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := logging.NewComponentLogger(opts.Logger, "scan")

	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrRootMissing, root)
		}
		return nil, fmt.Errorf("stat scan root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrRootMissing, root)
	}

	skip := normalizeExtensions(opts.SkipExtensions)
	patterns := normalizePatterns(opts.IgnorePatterns)

	var entries []catalog.BasicEntry
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			logging.WarnWithContext(logger, "skipping unreadable path", "scan_unreadable",
				logging.String(logging.FieldErrorHint, "check permissions on the scan root"),
				logging.String(logging.FieldImpact, "files below this path are not cataloged this run"),
				logging.Path(path),
				logging.Error(walkErr),
			)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if path == root {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if matchesAny(patterns, rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if _, ok := skip[strings.ToLower(filepath.Ext(rel))]; ok {
			return nil
		}
		if matchesAny(patterns, rel) {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			logger.Debug("file vanished during scan", logging.Path(rel), logging.Error(err))
			return nil
		}
		entries = append(entries, catalog.BasicEntry{Identity: rel, Size: uint64(fi.Size())})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Identity < entries[j].Identity })
	logger.Debug("scan complete", logging.String("root", root), logging.Int("files", len(entries)))
	return entries, nil
}

func normalizeExtensions(exts []string) map[string]struct{} {
	out := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out[ext] = struct{}{}
	}
	return out
}

func normalizePatterns(patterns []string) []string {
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, filepath.ToSlash(p))
	}
	return out
}

func matchesAny(patterns []string, rel string) bool {
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}
	return false
}
