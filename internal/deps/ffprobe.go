package deps

import (
	"bufio"
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"
)

const versionTimeout = 5 * time.Second

// CheckFFprobe resolves the configured ffprobe binary and, when found, records
// the first line of its -version banner in Detail. Without ffprobe only video
// files fail enrichment, so the requirement is optional.
func CheckFFprobe(ctx context.Context, binary string) Status {
	status := checkBinary(Requirement{
		Name:        "FFprobe",
		Command:     binary,
		Description: "Reads creation_time from video files",
		Optional:    true,
	})
	if !status.Available {
		return status
	}

	if ctx == nil {
		ctx = context.Background()
	}
	versionCtx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()
	out, err := exec.CommandContext(versionCtx, status.Path, "-version").Output()
	if err != nil {
		status.Available = false
		status.Detail = "binary found but -version failed: " + err.Error()
		return status
	}
	scanner := bufio.NewScanner(bytes.NewReader(out))
	if scanner.Scan() {
		status.Detail = strings.TrimSpace(scanner.Text())
	}
	return status
}
