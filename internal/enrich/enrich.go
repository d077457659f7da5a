// Package enrich derives the capture time of new catalog entries.
//
// Photos are read with EXIF (DateTimeOriginal, then DateTime); video
// containers go through ffprobe's creation_time tag. The capture time becomes
// the record's temporal key, which together with the display name forms the
// cross-catalog match key.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"

	"archivist/internal/media/ffprobe"
)

var (
	// ErrUnsupported marks a file type no extractor handles.
	ErrUnsupported = errors.New("unsupported media type")
	// ErrNoTimestamp marks a supported file that carries no usable capture time.
	ErrNoTimestamp = errors.New("no capture timestamp")
)

// Enricher returns the capture time of the file at absPath.
type Enricher interface {
	Enrich(ctx context.Context, absPath string) (time.Time, error)
}

const exifTimeLayout = "2006:01:02 15:04:05"

var photoExtensions = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".cr2": {}, ".cr3": {}, ".nef": {}, ".arw": {},
	".dng": {}, ".tif": {}, ".tiff": {}, ".heic": {},
}

var videoExtensions = map[string]struct{}{
	".mov": {}, ".mp4": {}, ".m4v": {}, ".mts": {}, ".avi": {},
}

type probeFunc func(ctx context.Context, binary, path string) (ffprobe.Result, error)

// MediaEnricher dispatches on file extension.
type MediaEnricher struct {
	FFprobeBinary string
	probe         probeFunc
}

// NewMediaEnricher returns an enricher that shells out to ffprobeBinary for video.
func NewMediaEnricher(ffprobeBinary string) *MediaEnricher {
	return &MediaEnricher{FFprobeBinary: ffprobeBinary, probe: ffprobe.Inspect}
}

// Supported reports whether path has an extension MediaEnricher can read.
func Supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	_, photo := photoExtensions[ext]
	_, video := videoExtensions[ext]
	return photo || video
}

// Enrich implements Enricher.
func (m *MediaEnricher) Enrich(ctx context.Context, absPath string) (time.Time, error) {
	ext := strings.ToLower(filepath.Ext(absPath))
	if _, ok := photoExtensions[ext]; ok {
		return photoTime(absPath)
	}
	if _, ok := videoExtensions[ext]; ok {
		return m.videoTime(ctx, absPath)
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrUnsupported, ext)
}

func photoTime(path string) (time.Time, error) {
	f, err := os.Open(path)
	if err != nil {
		return time.Time{}, err
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil && x == nil {
		return time.Time{}, fmt.Errorf("%w: decode exif: %v", ErrNoTimestamp, err)
	}
	for _, field := range []exif.FieldName{exif.DateTimeOriginal, exif.DateTime} {
		tag, err := x.Get(field)
		if err != nil {
			continue
		}
		raw, err := tag.StringVal()
		if err != nil {
			continue
		}
		ts, err := time.Parse(exifTimeLayout, strings.TrimSpace(strings.TrimRight(raw, "\x00")))
		if err != nil || ts.Year() < 1900 {
			continue
		}
		return ts, nil
	}
	return time.Time{}, fmt.Errorf("%w: exif has no DateTimeOriginal or DateTime", ErrNoTimestamp)
}

func (m *MediaEnricher) videoTime(ctx context.Context, path string) (time.Time, error) {
	probe := m.probe
	if probe == nil {
		probe = ffprobe.Inspect
	}
	result, err := probe(ctx, m.FFprobeBinary, path)
	if err != nil {
		return time.Time{}, err
	}
	ts, ok := result.CreationTime()
	if !ok {
		return time.Time{}, fmt.Errorf("%w: no creation_time tag", ErrNoTimestamp)
	}
	return ts, nil
}
