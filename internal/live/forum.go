package live

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/samber/lo"
	"resty.dev/v3"

	"threadlytics/internal/config"
	"threadlytics/internal/core"
	"threadlytics/internal/metrics"
	"threadlytics/pkg/reddit"
)

// Forum reads the newest submissions of a subreddit from the live API.
type Forum struct {
	Logger *slog.Logger
	Config *config.Config

	client *reddit.Client
	limit  reddit.Limit
}

func (f *Forum) Init(_ context.Context) error {
	f.Logger = f.Logger.With("component", "live.Forum")

	limit, err := Limit(f.Config)
	if err != nil {
		return err
	}
	f.limit = limit

	creds, err := config.LoadCredentials(f.Config.CredentialsFile)
	if err != nil {
		return err
	}
	f.Logger.Debug("Credentials loaded", "credentials", creds.String())

	f.client = reddit.NewClient(&reddit.ClientConfig{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		UserAgent:    creds.UserAgent,
		ResponseMiddlewares: []resty.ResponseMiddleware{
			metrics.ResponseMiddleware("reddit"),
		},
	})

	return nil
}

func (f *Forum) Shutdown(_ context.Context) error {
	return f.client.Close()
}

// Limit builds the listing limit from --limit-count or --limit-window; exactly one of them must be set.
func Limit(cfg *config.Config) (reddit.Limit, error) {
	switch {
	case cfg.LimitCount > 0 && cfg.LimitWindow > 0:
		return reddit.Limit{}, fmt.Errorf("%w: --limit-count and --limit-window are mutually exclusive",
			config.ErrInvalidConfig)
	case cfg.LimitCount > 0:
		return reddit.ByCount(cfg.LimitCount), nil
	case cfg.LimitWindow > 0:
		return reddit.ByDuration(cfg.LimitWindow), nil
	default:
		return reddit.Limit{}, fmt.Errorf("%w: one of --limit-count and --limit-window is required",
			config.ErrInvalidConfig)
	}
}

// Latest returns the newest submissions of the configured subreddit, newest first.
func (f *Forum) Latest(ctx context.Context) ([]core.Submission, error) {
	raw, err := f.client.New(ctx, f.Config.Subreddit, f.limit)
	if err != nil {
		return nil, err
	}

	records := f.parse(raw)
	f.Logger.Info("Listing fetched", "subreddit", f.Config.Subreddit, "limit", f.limit, "submissions", len(records))

	return lo.Map(records, func(r core.RawRecord, _ int) core.Submission {
		return core.Submission{RawRecord: r}
	}), nil
}

// Comments returns the comments of a submission flattened from the live tree.
func (f *Forum) Comments(ctx context.Context, submissionID string) ([]core.Comment, error) {
	raw, more, err := f.client.Comments(ctx, submissionID)
	if err != nil {
		return nil, err
	}

	if more > 0 {
		f.Logger.Debug("Skipped collapsed comments", "submission", submissionID, "more", more)
	}

	return lo.Map(f.parse(raw), func(r core.RawRecord, _ int) core.Comment {
		return core.Comment{RawRecord: r}
	}), nil
}

func (f *Forum) parse(raw []json.RawMessage) []core.RawRecord {
	records := make([]core.RawRecord, 0, len(raw))

	for _, data := range raw {
		r, err := core.ParseRawRecord(data)
		if err != nil {
			f.Logger.Warn("Skipping unparsable record", "error", err)
			continue
		}
		records = append(records, r)
	}

	return records
}
