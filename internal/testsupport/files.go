package testsupport

import (
	"hash/fnv"
	"os"
	"path/filepath"
	"testing"
)

// WriteFile writes a media stand-in of exactly size bytes whose content is
// seeded from the file name and its parent directory, so two same-size files
// at different paths never share bytes. It returns the written content.
func WriteFile(t testing.TB, path string, size int64) []byte {
	t.Helper()
	h := fnv.New32a()
	_, _ = h.Write([]byte(filepath.Join(filepath.Base(filepath.Dir(path)), filepath.Base(path))))
	return WriteSeeded(t, path, size, byte(h.Sum32()))
}

// WriteSeeded writes size bytes counting up from seed. A size <= 0 writes a
// single byte.
func WriteSeeded(t testing.TB, path string, size int64, seed byte) []byte {
	t.Helper()
	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("create bucket for %s: %v", path, err)
	}
	data := make([]byte, size)
	for i := range data {
		data[i] = seed + byte(i)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write media %s: %v", path, err)
	}
	return data
}
