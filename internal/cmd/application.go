package cmd

import (
	"context"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	"github.com/zhulik/pal"

	"threadlytics/internal/cmd/flags"
	"threadlytics/internal/config"
	"threadlytics/internal/core"
	"threadlytics/internal/cursors"
	"threadlytics/internal/export"
	"threadlytics/internal/metrics"
	"threadlytics/internal/nats"
	"threadlytics/internal/persistence"
	"threadlytics/internal/thread"
	"threadlytics/pkg/clicfg"
)

const (
	VERSION = "0.1.0"

	appName = "threadlytics"
)

var cmd = &cli.Command{
	Name:    appName,
	Usage:   "Threadlytics scrapes subreddit threads from the archive or the live API",
	Version: VERSION,
	Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
		if err := initLogger(c.String("log-level")); err != nil {
			return ctx, err
		}
		return ctx, nil
	},
	Flags: []cli.Flag{
		flags.LogLevel,
		flags.NATSURL,
		flags.InitNATS,
		flags.DatabaseURL,
		flags.MetricsAddr,
	},
	Commands: []*cli.Command{
		scrapeCmd,
		liveCmd,
		threadCmd,
	},
}

func Run() {
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func parseConfig(c *cli.Command) (*config.Config, error) {
	cfg := &config.Config{}
	if err := clicfg.ParseFlags(c, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(ctx context.Context, cfg *config.Config, services ...pal.ServiceDef) error {
	services = append(services,
		pal.Provide(cfg),
		pal.Provide(&thread.Normalizer{}),
		pal.Provide(&tally{}),
		pal.Provide(&progress{}),
	)
	services = append(services, outputs(cfg)...)

	return pal.New(services...).
		InjectSlog().
		InitTimeout(2*time.Second).
		HealthCheckTimeout(1*time.Second).
		ShutdownTimeout(10*time.Second).
		Run(ctx, syscall.SIGINT, syscall.SIGTERM)
}

// outputs provides the optional services: NATS or a cursor file in the output directory, the database and the
// metrics server.
func outputs(cfg *config.Config) []pal.ServiceDef {
	var services []pal.ServiceDef

	if cfg.NATSURL != "" {
		services = append(services, nats.Provide())
	} else {
		services = append(services,
			pal.Provide[core.CursorStore](&cursors.File{}),
			pal.Provide[core.Publisher](&export.Discard{}),
		)
	}

	if cfg.DatabaseURL != "" {
		services = append(services, persistence.Provide())
	} else {
		services = append(services, pal.Provide[core.Repository](&export.Discard{}))
	}

	if cfg.MetricsAddr != "" {
		services = append(services, pal.Provide(&metrics.HTTPServer{}))
	}

	return services
}
