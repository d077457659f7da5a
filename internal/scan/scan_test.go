package scan_test

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"archivist/internal/catalog"
	"archivist/internal/scan"
	"archivist/internal/testsupport"
)

func TestWalkSkipsSidecarsAndIgnoredPaths(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(root, "DCIM", "IMG_1.CR2"), 12)
	testsupport.WriteFile(t, filepath.Join(root, "DCIM", "IMG_1.CR2.XMP"), 3)
	testsupport.WriteFile(t, filepath.Join(root, "DCIM", "pano.pto"), 3)
	testsupport.WriteFile(t, filepath.Join(root, "DCIM", ".thumbnails", "t.jpg"), 4)
	testsupport.WriteFile(t, filepath.Join(root, "MISC", "clip.MOV"), 40)
	testsupport.WriteFile(t, filepath.Join(root, "a.jpg"), 1)

	entries, err := scan.Walk(context.Background(), root, scan.Options{
		SkipExtensions: scan.DefaultSkipExtensions,
		IgnorePatterns: []string{"**/.thumbnails"},
	})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}

	want := []catalog.BasicEntry{
		{Identity: "DCIM/IMG_1.CR2", Size: 12},
		{Identity: "MISC/clip.MOV", Size: 40},
		{Identity: "a.jpg", Size: 1},
	}
	if !reflect.DeepEqual(entries, want) {
		t.Fatalf("entries = %v, want %v", entries, want)
	}
}

func TestWalkExtensionsWithoutDot(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(root, "a.jpg"), 1)
	testsupport.WriteFile(t, filepath.Join(root, "a.txt"), 1)

	entries, err := scan.Walk(context.Background(), root, scan.Options{SkipExtensions: []string{"TXT"}})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if len(entries) != 1 || entries[0].Identity != "a.jpg" {
		t.Fatalf("unexpected entries: %v", entries)
	}
}

func TestWalkMissingRoot(t *testing.T) {
	_, err := scan.Walk(context.Background(), filepath.Join(t.TempDir(), "absent"), scan.Options{})
	if !errors.Is(err, scan.ErrRootMissing) {
		t.Fatalf("expected ErrRootMissing, got %v", err)
	}
}

func TestWalkEmptyRoot(t *testing.T) {
	entries, err := scan.Walk(context.Background(), t.TempDir(), scan.Options{})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no entries, got %v", entries)
	}
}
