package nats

import (
	"context"
	"encoding/json"
	"log/slog"

	libnats "github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"threadlytics/internal/config"
	"threadlytics/internal/core"
)

var (
	threadsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "threadlytics_threads_published_total",
		Help: "The total number of threads published to NATS",
	}, []string{"subreddit"})
)

// Publisher sends every normalized post to JetStream. The message id is the submission id, so republishing a
// thread within the duplicates window is a no-op.
type Publisher struct {
	Logger *slog.Logger
	Config *config.Config
	NATS   *NATS
}

func (p *Publisher) Init(_ context.Context) error {
	p.Logger = p.Logger.With("component", "nats.Publisher")
	return nil
}

func (p *Publisher) Write(ctx context.Context, thread core.Thread) error {
	msg, err := ThreadMsg(thread, p.Config.Subreddit)
	if err != nil {
		return err
	}

	ack, err := p.NATS.JS.PublishMsg(ctx, msg)
	if err != nil {
		return err
	}

	threadsPublished.WithLabelValues(thread.Post.Subreddit).Inc()
	p.Logger.Debug("Published thread", "id", thread.Post.ID, "seq", ack.Sequence, "duplicate", ack.Duplicate)

	return nil
}

// Close is a no-op, the connection belongs to NATS.
func (p *Publisher) Close() error {
	return nil
}

// ThreadMsg builds the message of a thread. subreddit is used when the post does not name one.
func ThreadMsg(thread core.Thread, subreddit string) (*libnats.Msg, error) {
	data, err := json.Marshal(thread.Post)
	if err != nil {
		return nil, err
	}

	if thread.Post.Subreddit != "" {
		subreddit = thread.Post.Subreddit
	}
	if subreddit == "" {
		subreddit = "all"
	}

	return &libnats.Msg{
		Subject: appName + ".thread." + subreddit,
		Data:    data,
		Header: libnats.Header{
			libnats.MsgIdHdr: []string{thread.Post.ID},
		},
	}, nil
}
