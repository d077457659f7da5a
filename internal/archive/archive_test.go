package archive_test

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"archivist/internal/archive"
	"archivist/internal/catalog"
	"archivist/internal/fileutil"
	"archivist/internal/testsupport"
)

func newExecutor(t *testing.T) *archive.Executor {
	t.Helper()
	base := t.TempDir()
	return &archive.Executor{
		SourceRoot: filepath.Join(base, "card"),
		TargetRoot: filepath.Join(base, "archive"),
	}
}

func record(identity string, size uint64, day int) catalog.Record {
	return catalog.NewRecord(catalog.BasicEntry{Identity: identity, Size: size},
		time.Date(2023, 1, day, 10, 0, 0, 0, time.UTC))
}

func TestArchiveCopiesIntoDateBucket(t *testing.T) {
	exec := newExecutor(t)
	testsupport.WriteFile(t, filepath.Join(exec.SourceRoot, "DCIM", "b.jpg"), 50)

	dst, err := exec.Archive(context.Background(), record("DCIM/b.jpg", 50, 2))
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}
	want := filepath.Join(exec.TargetRoot, "2023-01-02", "b.jpg")
	if dst != want {
		t.Fatalf("dst = %q, want %q", dst, want)
	}
	info, err := os.Stat(dst)
	if err != nil {
		t.Fatalf("stat archived file: %v", err)
	}
	if info.Size() != 50 {
		t.Fatalf("archived size = %d", info.Size())
	}
	if _, err := os.Stat(filepath.Join(exec.SourceRoot, "DCIM", "b.jpg")); err != nil {
		t.Fatalf("source must be left in place: %v", err)
	}
}

func TestArchiveRefusesCollision(t *testing.T) {
	exec := newExecutor(t)
	testsupport.WriteFile(t, filepath.Join(exec.SourceRoot, "a.jpg"), 10)
	existing := filepath.Join(exec.TargetRoot, "2023-01-01", "a.jpg")
	if err := os.MkdirAll(filepath.Dir(existing), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(existing, []byte("keep me"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := exec.Archive(context.Background(), record("a.jpg", 10, 1))
	if !errors.Is(err, archive.ErrCollision) {
		t.Fatalf("expected ErrCollision, got %v", err)
	}
	got, err := os.ReadFile(existing)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "keep me" {
		t.Fatalf("existing file overwritten: %q", got)
	}
}

func TestArchiveRemovesTruncatedCopy(t *testing.T) {
	exec := newExecutor(t)
	testsupport.WriteFile(t, filepath.Join(exec.SourceRoot, "c.jpg"), 100)
	exec.Copy = func(ctx context.Context, src, dst string) (fileutil.CopyResult, error) {
		if err := os.WriteFile(dst, make([]byte, 40), 0o644); err != nil {
			return fileutil.CopyResult{}, err
		}
		return fileutil.CopyResult{Bytes: 40}, nil
	}

	_, err := exec.Archive(context.Background(), record("c.jpg", 100, 3))
	if !errors.Is(err, archive.ErrIntegrity) {
		t.Fatalf("expected ErrIntegrity, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(exec.TargetRoot, "2023-01-03", "c.jpg")); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected corrupt copy removed, got %v", err)
	}
}

func TestArchiveDetectsContentMismatch(t *testing.T) {
	exec := newExecutor(t)
	testsupport.WriteFile(t, filepath.Join(exec.SourceRoot, "d.jpg"), 8)
	exec.Copy = func(ctx context.Context, src, dst string) (fileutil.CopyResult, error) {
		result, err := fileutil.CopyFileExclusive(ctx, src, dst)
		if err != nil {
			return result, err
		}
		if err := os.WriteFile(dst, []byte("XXXXXXXX"), 0o644); err != nil {
			return result, err
		}
		return result, nil
	}

	_, err := exec.Archive(context.Background(), record("d.jpg", 8, 4))
	if !errors.Is(err, archive.ErrIntegrity) {
		t.Fatalf("expected ErrIntegrity, got %v", err)
	}
}

func TestArchiveSourceChangedSinceCatalog(t *testing.T) {
	exec := newExecutor(t)
	testsupport.WriteFile(t, filepath.Join(exec.SourceRoot, "e.jpg"), 12)

	_, err := exec.Archive(context.Background(), record("e.jpg", 99, 5))
	if !errors.Is(err, archive.ErrIntegrity) {
		t.Fatalf("expected ErrIntegrity for size drift, got %v", err)
	}
}

func TestRunIsolatesFailures(t *testing.T) {
	exec := newExecutor(t)
	testsupport.WriteFile(t, filepath.Join(exec.SourceRoot, "ok1.jpg"), 5)
	testsupport.WriteFile(t, filepath.Join(exec.SourceRoot, "ok2.jpg"), 6)
	worklist := []catalog.Record{
		record("missing.jpg", 3, 1),
		record("ok1.jpg", 5, 1),
		record("ok2.jpg", 6, 2),
	}

	ticks := 0
	batch, err := exec.Run(context.Background(), worklist, 1, func() { ticks++ })
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(batch.Archived) != 2 || batch.Archived[0].Identity != "ok1.jpg" || batch.Archived[1].Identity != "ok2.jpg" {
		t.Fatalf("unexpected archived: %+v", batch.Archived)
	}
	if len(batch.Paths) != 2 || batch.Paths[1] != filepath.Join(exec.TargetRoot, "2023-01-02", "ok2.jpg") {
		t.Fatalf("unexpected paths: %v", batch.Paths)
	}
	if len(batch.Failed) != 1 || batch.Failed[0].Record.Identity != "missing.jpg" {
		t.Fatalf("unexpected failures: %+v", batch.Failed)
	}
	if ticks != 3 {
		t.Fatalf("expected 3 ticks, got %d", ticks)
	}
}

func TestRunSameDestinationTwiceCollides(t *testing.T) {
	exec := newExecutor(t)
	testsupport.WriteFile(t, filepath.Join(exec.SourceRoot, "100", "IMG.jpg"), 5)
	testsupport.WriteFile(t, filepath.Join(exec.SourceRoot, "101", "IMG.jpg"), 7)
	worklist := []catalog.Record{record("100/IMG.jpg", 5, 1), record("101/IMG.jpg", 7, 1)}

	batch, err := exec.Run(context.Background(), worklist, 4, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(batch.Archived) != 1 || len(batch.Failed) != 1 {
		t.Fatalf("expected one success and one collision, got %+v", batch)
	}
	if !errors.Is(batch.Failed[0].Err, archive.ErrCollision) {
		t.Fatalf("expected collision, got %v", batch.Failed[0].Err)
	}
}
