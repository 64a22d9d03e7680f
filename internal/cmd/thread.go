package cmd

import (
	"context"
	"log/slog"

	"github.com/k0kubun/pp"
	"github.com/urfave/cli/v3"
	"github.com/zhulik/pal"

	"threadlytics/internal/archive"
	"threadlytics/internal/cmd/flags"
	"threadlytics/internal/config"
	"threadlytics/internal/thread"
)

var threadCmd = &cli.Command{
	Name:  "thread",
	Usage: "Fetch a single thread from the archive and print its comment tree",
	Flags: []cli.Flag{
		flags.ArchiveURL,
		flags.ThreadID,
		flags.RetryLimit,
		flags.RetryBackoff,
	},
	Action: func(ctx context.Context, c *cli.Command) error {
		cfg, err := parseConfig(c)
		if err != nil {
			return err
		}
		cfg.WithComments = true

		return run(ctx, cfg,
			pal.Provide(&archive.Service{}),
			pal.Provide(&threadPrinter{}),
		)
	},
}

type threadPrinter struct {
	Logger     *slog.Logger
	Config     *config.Config
	Archive    *archive.Service
	Normalizer *thread.Normalizer
}

func (p *threadPrinter) Run(ctx context.Context) error {
	submission, comments, err := p.Archive.Fetcher().FetchThread(ctx, p.Config.ThreadID)
	if err != nil {
		return err
	}

	th := p.Normalizer.Normalize(submission, comments)
	pp.Println(th.Post) //nolint:errcheck

	p.Logger.Info("Thread fetched", "id", th.Post.ID, "comments", th.Post.Size())

	return nil
}
