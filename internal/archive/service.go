package archive

import (
	"context"
	"log/slog"

	"resty.dev/v3"

	"threadlytics/internal/config"
	"threadlytics/internal/metrics"
	"threadlytics/pkg/pushshift"
	"threadlytics/pkg/retry"
)

// Service owns the archive HTTP client and builds fetchers configured from the command line.
type Service struct {
	Logger *slog.Logger
	Config *config.Config

	client *pushshift.Client
	base   *slog.Logger
}

func (s *Service) Init(_ context.Context) error {
	s.base = s.Logger
	s.Logger = s.Logger.With("component", "archive.Service")

	s.client = pushshift.NewClient(&pushshift.ClientConfig{
		BaseURL:           s.Config.ArchiveURL,
		UserAgent:         pushshift.DefaultConfig.UserAgent,
		TransportSettings: pushshift.DefaultConfig.TransportSettings,
		ResponseMiddlewares: []resty.ResponseMiddleware{
			metrics.ResponseMiddleware("pushshift"),
		},
	})
	s.Logger.Debug("Archive client ready", "url", s.Config.ArchiveURL)

	return nil
}

func (s *Service) Shutdown(_ context.Context) error {
	return s.client.Close()
}

func (s *Service) Fetcher() *Fetcher {
	return NewFetcher(s.base, s.client, Options{
		Retry: retry.Policy{
			Limit:   s.Config.RetryLimit,
			Backoff: s.Config.RetryBackoff,
		},
		EmptyRetry: retry.Policy{
			Limit:   s.Config.EmptyRetryLimit,
			Backoff: s.Config.EmptyRetryBackoff,
		},
		WithComments: s.Config.WithComments,
	})
}

// Filters returns the filters requested on the command line.
func (s *Service) Filters() Filters {
	return Filters{
		Query:     s.Config.Query,
		Author:    s.Config.Author,
		Subreddit: s.Config.Subreddit,
		Score:     s.Config.Score,
		Fields:    s.Config.Fields,
	}
}
