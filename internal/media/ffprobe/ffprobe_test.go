package ffprobe

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCreationTimePrefersFormatTag(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "audio", Tags: map[string]string{"creation_time": "2020-01-01T00:00:00Z"}},
			{CodecType: "video", Tags: map[string]string{"creation_time": "2021-01-01T00:00:00Z"}},
		},
		Format: Format{Tags: map[string]string{"creation_time": "2023-01-02T10:11:12.000000Z"}},
	}
	got, ok := result.CreationTime()
	if !ok {
		t.Fatal("expected creation time")
	}
	if want := time.Date(2023, 1, 2, 10, 11, 12, 0, time.UTC); !got.Equal(want) {
		t.Fatalf("CreationTime = %v, want %v", got, want)
	}
}

func TestCreationTimeFallsBackToVideoStream(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "audio", Tags: map[string]string{"creation_time": "2020-01-01T00:00:00Z"}},
			{CodecType: "video", Tags: map[string]string{"CREATION_TIME": "2021-06-07T08:09:10Z"}},
		},
	}
	got, ok := result.CreationTime()
	if !ok {
		t.Fatal("expected creation time from video stream")
	}
	if got.Year() != 2021 || got.Month() != time.June || got.Day() != 7 {
		t.Fatalf("unexpected creation time: %v", got)
	}
}

func TestCreationTimeRejectsMissingAndEpoch(t *testing.T) {
	if _, ok := (Result{}).CreationTime(); ok {
		t.Fatal("expected no creation time on empty result")
	}
	epoch := Result{Format: Format{Tags: map[string]string{"creation_time": "1904-01-01T00:00:00Z"}}}
	if _, ok := epoch.CreationTime(); ok {
		t.Fatal("expected QuickTime epoch to be rejected")
	}
	garbage := Result{Format: Format{Tags: map[string]string{"creation_time": "yesterday"}}}
	if _, ok := garbage.CreationTime(); ok {
		t.Fatal("expected unparsable tag to be rejected")
	}
}

func TestInspectDecodesStubOutput(t *testing.T) {
	dir := t.TempDir()
	stub := filepath.Join(dir, "ffprobe")
	script := "#!/bin/sh\ncat <<'JSON'\n" +
		`{"streams":[{"index":0,"codec_type":"video","tags":{"creation_time":"2023-01-02T03:04:05Z"}}],"format":{"format_name":"mov"}}` +
		"\nJSON\n"
	if err := os.WriteFile(stub, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}

	result, err := Inspect(context.Background(), stub, filepath.Join(dir, "clip.mov"))
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if result.Format.FormatName != "mov" || len(result.Streams) != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if _, ok := result.CreationTime(); !ok {
		t.Fatal("expected creation time from stub output")
	}
}

func TestInspectReportsFailure(t *testing.T) {
	dir := t.TempDir()
	stub := filepath.Join(dir, "ffprobe")
	if err := os.WriteFile(stub, []byte("#!/bin/sh\necho 'bad input' >&2\nexit 1\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	if _, err := Inspect(context.Background(), stub, "clip.mov"); err == nil {
		t.Fatal("expected error from failing ffprobe")
	}
	if _, err := Inspect(context.Background(), stub, " "); err == nil {
		t.Fatal("expected error for empty path")
	}
}
