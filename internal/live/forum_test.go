package live_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"threadlytics/internal/config"
	"threadlytics/internal/live"
	"threadlytics/pkg/reddit"
)

func TestLimit(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		cfg   config.Config
		want  reddit.Limit
		isErr bool
	}{
		{name: "count", cfg: config.Config{LimitCount: 10}, want: reddit.ByCount(10)},
		{name: "window", cfg: config.Config{LimitWindow: time.Hour}, want: reddit.ByDuration(time.Hour)},
		{name: "both", cfg: config.Config{LimitCount: 10, LimitWindow: time.Hour}, isErr: true},
		{name: "none", cfg: config.Config{}, isErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			limit, err := live.Limit(&tc.cfg)
			if tc.isErr {
				require.ErrorIs(t, err, config.ErrInvalidConfig)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.want, limit)
		})
	}
}
