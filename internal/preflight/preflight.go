package preflight

import (
	"context"
	"fmt"
	"strings"

	"archivist/internal/config"
	"archivist/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	// Optional failures are reported but do not block a run.
	Optional bool
	Detail   string
}

// RequiredChecks returns the checks that must pass before a run: the target
// root, the source root when configured, and the catalog location.
func RequiredChecks(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	results := []Result{
		CheckDirectoryAccess("Target directory", cfg.Paths.TargetDir, ReadWrite),
	}
	if strings.TrimSpace(cfg.Paths.SourceDir) != "" {
		results = append(results, CheckDirectoryAccess("Source directory", cfg.Paths.SourceDir, ReadOnly))
	}
	results = append(results, CheckCatalog("Catalog", cfg.Paths.CatalogPath))
	return results
}

// RunAll executes the required checks followed by the optional binary checks.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	results := RequiredChecks(cfg)
	for _, status := range CheckSystemDeps(ctx, cfg) {
		results = append(results, fromStatus(status))
	}
	return results
}

// CheckSystemDeps evaluates the external binaries used during enrichment.
func CheckSystemDeps(ctx context.Context, cfg *config.Config) []deps.Status {
	return []deps.Status{deps.CheckFFprobe(ctx, cfg.FFprobeBinary())}
}

// FirstFailure returns an error describing the first failed non-optional
// result, or nil.
func FirstFailure(results []Result) error {
	for _, result := range results {
		if !result.Passed && !result.Optional {
			return fmt.Errorf("preflight %s failed: %s", strings.ToLower(result.Name), result.Detail)
		}
	}
	return nil
}

func fromStatus(status deps.Status) Result {
	detail := status.Detail
	if status.Available && status.Path != "" {
		if detail == "" {
			detail = status.Path
		} else {
			detail = fmt.Sprintf("%s (%s)", status.Path, detail)
		}
	}
	if !status.Available && status.Description != "" {
		detail = fmt.Sprintf("%s; %s", detail, strings.ToLower(status.Description[:1])+status.Description[1:])
	}
	return Result{
		Name:     status.Name,
		Passed:   status.Available,
		Optional: status.Optional,
		Detail:   detail,
	}
}
