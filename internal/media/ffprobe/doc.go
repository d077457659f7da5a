// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Only the fields archivist needs are decoded: stream types and the tag maps
// carrying creation_time. Inspect runs the binary; Result.CreationTime picks
// the container tag first and the first video stream's tag second.
package ffprobe
