package main

import (
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"archivist/internal/logging"
	"archivist/internal/workflow"
)

// newProgress draws a bar when out is a terminal and falls back to sampled
// log lines otherwise.
func newProgress(out io.Writer, logger *slog.Logger) workflow.Progress {
	if isTerminal(out) {
		return &barProgress{out: out}
	}
	return &logProgress{
		logger:  logging.NewComponentLogger(logger, "progress"),
		sampler: logging.NewProgressSampler(25),
	}
}

func isTerminal(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

type barProgress struct {
	out io.Writer
	bar *progressbar.ProgressBar
}

func (p *barProgress) Start(label string, total int) {
	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(p.out),
		progressbar.OptionSetDescription(label),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

func (p *barProgress) Increment() {
	if p.bar != nil {
		_ = p.bar.Add(1)
	}
}

func (p *barProgress) Finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
		p.bar = nil
	}
}

type logProgress struct {
	logger  *slog.Logger
	sampler *logging.ProgressSampler

	mu    sync.Mutex
	label string
	total int
	done  int
}

func (p *logProgress) Start(label string, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.label, p.total, p.done = label, total, 0
}

func (p *logProgress) Increment() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done++
	if p.sampler.ShouldLog(p.label, p.done, p.total) {
		p.logger.Info(p.label,
			logging.String(logging.FieldEventType, "progress"),
			logging.Int("done", p.done),
			logging.Int("total", p.total),
		)
	}
}

func (p *logProgress) Finish() {}
