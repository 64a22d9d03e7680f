package cmd

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/zhulik/pal"
)

const progressInterval = 10 * time.Second

// tally counts what a job has written so far.
type tally struct {
	pages   atomic.Int64
	threads atomic.Int64
}

// progress periodically logs the tally while a job runs.
type progress struct {
	Logger *slog.Logger
	Tally  *tally
}

func (p *progress) Init(_ context.Context) error {
	p.Logger = p.Logger.With("component", "cmd.progress")
	return nil
}

func (p *progress) RunConfig() pal.RunConfig {
	return pal.RunConfig{
		Wait: false,
	}
}

func (p *progress) Run(ctx context.Context) error {
	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	started := time.Now()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.Logger.Info("Progress",
				"pages", p.Tally.pages.Load(),
				"threads", p.Tally.threads.Load(),
				"elapsed", time.Since(started).Round(time.Second))
		}
	}
}
