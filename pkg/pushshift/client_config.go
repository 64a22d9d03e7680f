package pushshift

import (
	"time"

	"resty.dev/v3"
)

type ClientConfig struct {
	BaseURL   string
	UserAgent string

	TransportSettings *resty.TransportSettings

	ResponseMiddlewares []resty.ResponseMiddleware
	RequestMiddlewares  []resty.RequestMiddleware
}

var DefaultConfig = &ClientConfig{
	BaseURL:   DefaultBaseURL,
	UserAgent: "threadlytics/0.1",
	TransportSettings: &resty.TransportSettings{
		DialerTimeout:         10 * time.Second,
		DialerKeepAlive:       30 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: 60 * time.Second,
	},
}
