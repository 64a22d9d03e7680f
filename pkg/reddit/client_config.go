package reddit

import (
	"time"

	"resty.dev/v3"
)

type ClientConfig struct {
	BaseURL  string
	TokenURL string

	ClientID     string
	ClientSecret string
	UserAgent    string

	TransportSettings *resty.TransportSettings

	ResponseMiddlewares []resty.ResponseMiddleware
	RequestMiddlewares  []resty.RequestMiddleware

	Now func() time.Time
}

var DefaultTransportSettings = &resty.TransportSettings{
	DialerTimeout:         10 * time.Second,
	DialerKeepAlive:       30 * time.Second,
	IdleConnTimeout:       90 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	ExpectContinueTimeout: 1 * time.Second,
	ResponseHeaderTimeout: 30 * time.Second,
}
