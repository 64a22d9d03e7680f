package metrics

import (
	"fmt"
	"net/url"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"resty.dev/v3"
)

var (
	apiLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "threadlytics_api_request_latency",
			Help:    "Histogram of remote API request latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"api", "method", "path", "status_code"},
	)
)

// ResponseMiddleware records the latency of every response of a resty client, labelled with api.
func ResponseMiddleware(api string) resty.ResponseMiddleware {
	return func(_ *resty.Client, response *resty.Response) error {
		reqURL, err := url.Parse(response.Request.URL)
		if err != nil {
			return err
		}

		apiLatency.WithLabelValues(
			api,
			response.Request.Method,
			reqURL.Path,
			fmt.Sprintf("%d", response.StatusCode()),
		).Observe(response.Duration().Seconds())

		return nil
	}
}
