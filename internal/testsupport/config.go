package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"archivist/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Source and target roots are created; the catalog lives beside them.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.SourceDir = filepath.Join(base, "card")
	cfgVal.Paths.TargetDir = filepath.Join(base, "archive")
	cfgVal.Paths.CatalogPath = filepath.Join(base, "catalog", "archivist.db")
	cfgVal.Workflow.Workers = 2

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	for _, dir := range []string{cfgVal.Paths.SourceDir, cfgVal.Paths.TargetDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
	return builder.cfg
}

// WithoutSource clears the source root so only the target catalog is synced.
func WithoutSource() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.SourceDir = ""
	}
}

// WithKeepStaging retains the staging tables after each pass.
func WithKeepStaging() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workflow.KeepStagingTables = true
	}
}

// WithStubbedFFprobe writes an ffprobe stand-in that prints payload and points
// the config at it.
func WithStubbedFFprobe(payload string) ConfigOption {
	return func(b *configBuilder) {
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		target := filepath.Join(binDir, "ffprobe")
		script := "#!/bin/sh\ncat <<'JSON'\n" + payload + "\nJSON\n"
		if err := os.WriteFile(target, []byte(script), 0o755); err != nil {
			b.t.Fatalf("write ffprobe stub: %v", err)
		}
		b.cfg.Workflow.FFprobeBinary = target
	}
}

