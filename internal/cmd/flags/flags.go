package flags

import (
	"fmt"
	"slices"
	"time"

	libnats "github.com/nats-io/nats.go"
	"github.com/urfave/cli/v3"

	"threadlytics/internal/config"
	"threadlytics/pkg/pushshift"
)

var (
	validLogLevels = []string{"debug", "info", "warn", "error"}
	validFormats   = []string{config.FormatJSON, config.FormatCSV}
)

func oneOf(allowed []string, what string) func(string) error {
	return func(value string) error {
		if !slices.Contains(allowed, value) {
			return fmt.Errorf("invalid %s: %s, allowed values are: %s", what, value, allowed)
		}
		return nil
	}
}

func positive[T int | int64](what string) func(T) error {
	return func(value T) error {
		if value <= 0 {
			return fmt.Errorf("%s must be positive, got %d", what, value)
		}
		return nil
	}
}

var LogLevel = &cli.StringFlag{
	Name:      "log-level",
	Aliases:   []string{"l"},
	Usage:     "The level of the logs",
	Value:     "info",
	Validator: oneOf(validLogLevels, "log level"),
	Sources:   cli.EnvVars("LOG_LEVEL"),
}

var NATSURL = &cli.StringFlag{
	Name:    "nats-url",
	Aliases: []string{"n"},
	Usage:   "The URL of the NATS server, enables cursor checkpoints and thread publishing, e.g. " + libnats.DefaultURL,
	Sources: cli.EnvVars("NATS_URL"),
}

var InitNATS = &cli.BoolFlag{
	Name:        "nats-init",
	Aliases:     []string{"i"},
	Usage:       "Initialize the NATS server: create the stream and the key value bucket",
	DefaultText: "false",
	Value:       false,
	Sources:     cli.EnvVars("NATS_INIT"),
}

var DatabaseURL = &cli.StringFlag{
	Name:    "database-url",
	Usage:   "PostgreSQL connection string, enables storing threads",
	Sources: cli.EnvVars("DATABASE_URL"),
}

var MetricsAddr = &cli.StringFlag{
	Name:    "metrics-addr",
	Usage:   "Address to serve prometheus metrics on while running, e.g. :9090",
	Sources: cli.EnvVars("METRICS_ADDR"),
}

var ArchiveURL = &cli.StringFlag{
	Name:    "archive-url",
	Usage:   "Base URL of the archive search API",
	Value:   pushshift.DefaultBaseURL,
	Sources: cli.EnvVars("ARCHIVE_URL"),
}

var Subreddit = &cli.StringFlag{
	Name:     "subreddit",
	Aliases:  []string{"s"},
	Usage:    "The subreddit to scrape",
	Required: true,
	Sources:  cli.EnvVars("SUBREDDIT"),
}

var Query = &cli.StringFlag{
	Name:    "query",
	Aliases: []string{"q"},
	Usage:   "Full text search query",
}

var Author = &cli.StringFlag{
	Name:  "author",
	Usage: "Only submissions by this author",
}

var Score = &cli.StringFlag{
	Name:  "score",
	Usage: "Score threshold expression, e.g. >10",
}

var Fields = &cli.StringSliceFlag{
	Name:  "fields",
	Usage: "Only retrieve these fields, id and created_utc are always included",
}

var Since = &cli.DurationFlag{
	Name:  "since",
	Usage: "Scrape submissions created within this duration before now, ignored when --after is set",
}

var After = &cli.Int64Flag{
	Name:  "after",
	Usage: "Lower bound of the creation time, unix seconds",
}

var Before = &cli.Int64Flag{
	Name:  "before",
	Usage: "Upper bound of the creation time, unix seconds, defaults to now",
}

var PageSize = &cli.IntFlag{
	Name:      "page-size",
	Usage:     "Number of submissions per archive request, at most 100",
	Value:     100,
	Validator: positive[int]("page size"),
}

var WithComments = &cli.BoolFlag{
	Name:    "with-comments",
	Aliases: []string{"c"},
	Usage:   "Retrieve the comments of every submission",
	Value:   true,
}

var RetryLimit = &cli.IntFlag{
	Name:      "retry-limit",
	Usage:     "Consecutive failed requests that abort the run",
	Value:     15,
	Validator: positive[int]("retry limit"),
}

var RetryBackoff = &cli.DurationFlag{
	Name:  "retry-backoff",
	Usage: "Pause after a failed request",
	Value: 5 * time.Second,
}

var EmptyRetryLimit = &cli.IntFlag{
	Name:      "empty-retry-limit",
	Usage:     "Consecutive empty pages that abort the run",
	Value:     15,
	Validator: positive[int]("empty retry limit"),
}

var EmptyRetryBackoff = &cli.DurationFlag{
	Name:  "empty-retry-backoff",
	Usage: "Pause after an empty page",
	Value: time.Second,
}

var Resume = &cli.BoolFlag{
	Name:  "resume",
	Usage: "Continue from the cursor stored by a previous run",
}

var Format = &cli.StringFlag{
	Name:      "format",
	Aliases:   []string{"f"},
	Usage:     "Output format",
	Value:     config.FormatJSON,
	Validator: oneOf(validFormats, "format"),
}

var OutputDir = &cli.StringFlag{
	Name:    "output-dir",
	Aliases: []string{"o"},
	Usage:   "Directory for the exported files",
	Value:   "data",
}

var Annotations = &cli.BoolFlag{
	Name:  "annotations",
	Usage: "Also write an annotation sheet next to the CSV files",
}

var Credentials = &cli.StringFlag{
	Name:    "credentials",
	Usage:   "JSON file with client_id, client_secret and user_agent of the forum API",
	Value:   "credentials.json",
	Sources: cli.EnvVars("THREADLYTICS_CREDENTIALS"),
}

var LimitCount = &cli.IntFlag{
	Name:  "limit-count",
	Usage: "Stop after this many submissions",
}

var LimitWindow = &cli.DurationFlag{
	Name:  "limit-window",
	Usage: "Stop at the first submission older than this",
}

var ThreadID = &cli.StringFlag{
	Name:     "id",
	Usage:    "Id of the submission",
	Required: true,
}
