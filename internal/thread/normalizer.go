package thread

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"threadlytics/internal/core"
)

var (
	threadsNormalized = promauto.NewCounter(prometheus.CounterOpts{
		Name: "threadlytics_threads_normalized_total",
		Help: "The total number of normalized threads",
	})

	commentsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "threadlytics_comments_dropped_total",
		Help: "The total number of comments that could not be attached to their thread",
	})
)

type Normalizer struct {
	Logger *slog.Logger
}

func (n *Normalizer) Init(_ context.Context) error {
	n.Logger = n.Logger.With("component", "thread.Normalizer")
	return nil
}

// Normalize builds the comment forest of post and bundles it with the raw records.
func (n *Normalizer) Normalize(post core.Submission, related []core.Comment) core.Thread {
	normalized, dropped := Build(post, related)

	threadsNormalized.Inc()

	if dropped > 0 {
		commentsDropped.Add(float64(dropped))
		n.Logger.Warn("Dropped unreachable comments",
			"submission", post.ID(), "dropped", dropped, "comments", len(related))
	}

	return core.Thread{
		Submission: post,
		Comments:   related,
		Post:       normalized,
	}
}
