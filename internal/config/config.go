package config

import (
	"errors"
	"fmt"
	"time"

	"threadlytics/pkg/pushshift"
)

const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config is filled from command line flags, see internal/cmd/flags.
type Config struct {
	LogLevel string `flag:"log-level"`

	ArchiveURL        string        `flag:"archive-url"`
	Subreddit         string        `flag:"subreddit"`
	Query             string        `flag:"query"`
	Author            string        `flag:"author"`
	Score             string        `flag:"score"`
	Fields            []string      `flag:"fields"`
	Since             time.Duration `flag:"since"`
	After             int64         `flag:"after"`
	Before            int64         `flag:"before"`
	PageSize          int           `flag:"page-size"`
	WithComments      bool          `flag:"with-comments"`
	RetryLimit        int           `flag:"retry-limit"`
	RetryBackoff      time.Duration `flag:"retry-backoff"`
	EmptyRetryLimit   int           `flag:"empty-retry-limit"`
	EmptyRetryBackoff time.Duration `flag:"empty-retry-backoff"`
	Resume            bool          `flag:"resume"`

	Format      string `flag:"format"`
	OutputDir   string `flag:"output-dir"`
	Annotations bool   `flag:"annotations"`

	NATSURL     string `flag:"nats-url"`
	NATSInit    bool   `flag:"nats-init"`
	DatabaseURL string `flag:"database-url"`
	MetricsAddr string `flag:"metrics-addr"`

	CredentialsFile string        `flag:"credentials"`
	LimitCount      int           `flag:"limit-count"`
	LimitWindow     time.Duration `flag:"limit-window"`

	ThreadID string `flag:"id"`
}

// Range resolves the requested time window. An explicit --after wins over --since; --before defaults to now.
func (c *Config) Range(now time.Time) (time.Time, time.Time) {
	var after, before time.Time

	switch {
	case c.After > 0:
		after = time.Unix(c.After, 0)
	case c.Since > 0:
		after = now.Add(-c.Since)
	}

	before = now
	if c.Before > 0 {
		before = time.Unix(c.Before, 0)
	}

	return after, before
}

func (c *Config) Validate() error {
	if c.PageSize <= 0 || c.PageSize > pushshift.MaxSize {
		return fmt.Errorf("%w: page size must be in [1, %d], got %d", ErrInvalidConfig, pushshift.MaxSize, c.PageSize)
	}
	if c.RetryLimit <= 0 || c.EmptyRetryLimit <= 0 {
		return fmt.Errorf("%w: retry limits must be positive", ErrInvalidConfig)
	}

	after, before := c.Range(time.Now())
	if !after.IsZero() && !before.After(after) {
		return fmt.Errorf("%w: before (%s) must be after after (%s)", ErrInvalidConfig, before, after)
	}

	switch c.Format {
	case FormatJSON, FormatCSV:
	default:
		return fmt.Errorf("%w: unknown format %q", ErrInvalidConfig, c.Format)
	}

	return nil
}
