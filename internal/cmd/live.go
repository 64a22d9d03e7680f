package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/samber/lo"
	"github.com/urfave/cli/v3"
	"github.com/zhulik/pal"

	"threadlytics/internal/cmd/flags"
	"threadlytics/internal/config"
	"threadlytics/internal/core"
	"threadlytics/internal/export"
	"threadlytics/internal/live"
	"threadlytics/internal/thread"
)

var liveCmd = &cli.Command{
	Name:  "live",
	Usage: "Scrape the newest submissions of a subreddit from the live API",
	Flags: []cli.Flag{
		flags.Subreddit,
		flags.Credentials,
		flags.LimitCount,
		flags.LimitWindow,
		flags.WithComments,
		flags.Format,
		flags.OutputDir,
		flags.Annotations,
	},
	Action: func(ctx context.Context, c *cli.Command) error {
		cfg, err := parseConfig(c)
		if err != nil {
			return err
		}

		if _, err := live.Limit(cfg); err != nil {
			return err
		}

		return run(ctx, cfg,
			pal.Provide(&live.Forum{}),
			pal.Provide(&liveScraper{}),
		)
	},
}

type liveScraper struct {
	Logger     *slog.Logger
	Config     *config.Config
	Forum      *live.Forum
	Normalizer *thread.Normalizer
	Publisher  core.Publisher
	Repository core.Repository
	Tally      *tally
}

func (s *liveScraper) Init(_ context.Context) error {
	s.Logger = s.Logger.With("component", "cmd.liveScraper", "subreddit", s.Config.Subreddit)
	return nil
}

func (s *liveScraper) Run(ctx context.Context) error {
	err := s.run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *liveScraper) run(ctx context.Context) (err error) {
	submissions, err := s.Forum.Latest(ctx)
	if err != nil {
		return err
	}

	files, err := s.files(time.Now())
	if err != nil {
		return err
	}

	sink := export.NewFanout(files, s.Publisher, s.Repository)
	defer func() {
		err = errors.Join(err, sink.Close())
	}()

	s.Tally.pages.Add(1)

	for _, submission := range submissions {
		var comments []core.Comment

		if s.Config.WithComments {
			comments, err = s.Forum.Comments(ctx, submission.ID())
			if err != nil {
				return err
			}
			submission.CommentIDs = lo.Map(comments, func(c core.Comment, _ int) string { return c.ID() })
		}

		if err := sink.Write(ctx, s.Normalizer.Normalize(submission, comments)); err != nil {
			return err
		}
		s.Tally.threads.Add(1)
	}

	s.Logger.Info("Live scraping finished", "threads", len(submissions))

	return nil
}

func (s *liveScraper) files(now time.Time) (core.Sink, error) {
	prefix := fmt.Sprintf("%s-live-%d", s.Config.Subreddit, now.Unix())

	switch s.Config.Format {
	case config.FormatCSV:
		return export.CreateCSVFiles(s.Logger, s.Config.OutputDir, prefix, s.Config.Annotations)
	default:
		return export.CreateJSONFile(filepath.Join(s.Config.OutputDir, prefix+"-posts.json"))
	}
}
