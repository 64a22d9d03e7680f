package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v3"
	"github.com/zhulik/pal"

	"threadlytics/internal/archive"
	"threadlytics/internal/cmd/flags"
	"threadlytics/internal/config"
	"threadlytics/internal/core"
	"threadlytics/internal/export"
	"threadlytics/internal/thread"
)

var scrapeCmd = &cli.Command{
	Name:  "scrape",
	Usage: "Scrape a time range of a subreddit from the archive",
	Flags: []cli.Flag{
		flags.ArchiveURL,
		flags.Subreddit,
		flags.Query,
		flags.Author,
		flags.Score,
		flags.Fields,
		flags.Since,
		flags.After,
		flags.Before,
		flags.PageSize,
		flags.WithComments,
		flags.RetryLimit,
		flags.RetryBackoff,
		flags.EmptyRetryLimit,
		flags.EmptyRetryBackoff,
		flags.Resume,
		flags.Format,
		flags.OutputDir,
		flags.Annotations,
	},
	Action: func(ctx context.Context, c *cli.Command) error {
		cfg, err := parseConfig(c)
		if err != nil {
			return err
		}

		if err := cfg.Validate(); err != nil {
			return err
		}

		return run(ctx, cfg,
			pal.Provide(&archive.Service{}),
			pal.Provide(&scraper{}),
		)
	},
}

type scraper struct {
	Logger     *slog.Logger
	Config     *config.Config
	Archive    *archive.Service
	Normalizer *thread.Normalizer
	Cursors    core.CursorStore
	Publisher  core.Publisher
	Repository core.Repository
	Tally      *tally
}

func (s *scraper) Init(_ context.Context) error {
	s.Logger = s.Logger.With("component", "cmd.scraper", "subreddit", s.Config.Subreddit)
	return nil
}

func (s *scraper) Run(ctx context.Context) error {
	err := s.run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *scraper) run(ctx context.Context) (err error) {
	after, before, err := s.window(ctx)
	if err != nil {
		return err
	}

	files, err := s.files(after, before)
	if err != nil {
		return err
	}

	sink := export.NewFanout(files, s.Publisher, s.Repository)
	defer func() {
		err = errors.Join(err, sink.Close())
	}()

	s.Logger.Info("Scraping", "after", after, "before", before, "format", s.Config.Format)

	results := s.Archive.Fetcher().FetchRange(ctx, s.Archive.Filters(), after, before, s.Config.PageSize)
	for result := range results {
		page, err := result.Unpack()
		if err != nil {
			s.checkpointFailure(ctx, err)
			return err
		}

		for _, submission := range page.Submissions {
			th := s.Normalizer.Normalize(submission, page.Comments[submission.ID()])
			if err := sink.Write(ctx, th); err != nil {
				return err
			}
			s.Tally.threads.Add(1)
		}
		s.Tally.pages.Add(1)

		if err := s.Cursors.Save(ctx, s.cursorKey(), page.Cursor); err != nil {
			return err
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	s.Logger.Info("Scraping finished", "pages", s.Tally.pages.Load(), "threads", s.Tally.threads.Load())

	return nil
}

// window resolves the requested range; with --resume the second after a stored cursor inside the range replaces its
// start.
func (s *scraper) window(ctx context.Context) (time.Time, time.Time, error) {
	after, before := s.Config.Range(time.Now())

	if !s.Config.Resume {
		return after, before, nil
	}

	cursor, ok, err := s.Cursors.Load(ctx, s.cursorKey())
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	if !ok {
		s.Logger.Warn("No stored cursor, starting from the beginning of the range")
		return after, before, nil
	}

	if cursor > after.Unix() && cursor < before.Unix() {
		s.Logger.Info("Resuming", "cursor", cursor)
		after = time.Unix(cursor+1, 0)
	}

	return after, before, nil
}

// checkpointFailure stores the resumption point of a fetch that ran out of retries.
func (s *scraper) checkpointFailure(ctx context.Context, err error) {
	var fatal *archive.FatalError
	if !errors.As(err, &fatal) || !fatal.Resumable() {
		return
	}

	if err := s.Cursors.Save(ctx, s.cursorKey(), fatal.Resume); err != nil {
		s.Logger.Error("Failed to store the resume cursor", "cursor", fatal.Resume, "error", err)
		return
	}

	s.Logger.Info("Run can be resumed with --resume", "cursor", fatal.Resume)
}

func (s *scraper) files(after, before time.Time) (core.Sink, error) {
	prefix := filePrefix(s.Config.Subreddit, after, before)

	switch s.Config.Format {
	case config.FormatCSV:
		return export.CreateCSVFiles(s.Logger, s.Config.OutputDir, prefix, s.Config.Annotations)
	default:
		return export.CreateJSONFile(filepath.Join(s.Config.OutputDir, prefix+"-posts.json"))
	}
}

func (s *scraper) cursorKey() string {
	return core.CursorKey(s.Config.Subreddit)
}

func filePrefix(subreddit string, after, before time.Time) string {
	var from int64
	if !after.IsZero() {
		from = after.Unix()
	}
	return fmt.Sprintf("%s-%d-%d", subreddit, from, before.Unix())
}
