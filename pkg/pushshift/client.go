package pushshift

import (
	"context"
	"errors"
	"fmt"

	"resty.dev/v3"
)

const (
	DefaultBaseURL = "https://api.pushshift.io/reddit"
)

var ErrUnexpectedStatus = errors.New("unexpected status")

// StatusError is returned for every response with a status other than 200 OK.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: HTTP %d: %s", ErrUnexpectedStatus, e.StatusCode, e.URL)
}

func (e *StatusError) Unwrap() error {
	return ErrUnexpectedStatus
}

type Client struct {
	client *resty.Client
}

func NewClient(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig
	}

	client := resty.NewWithTransportSettings(config.TransportSettings)

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	client.SetBaseURL(baseURL)

	if config.UserAgent != "" {
		client.SetHeader("User-Agent", config.UserAgent)
	}

	for _, m := range config.RequestMiddlewares {
		client.AddRequestMiddleware(m)
	}
	for _, m := range config.ResponseMiddlewares {
		client.AddResponseMiddleware(m)
	}

	return &Client{
		client: client,
	}
}

func (c *Client) Close() error {
	return c.client.Close()
}

// HTTPClient exposes the underlying client, mostly for tests that intercept the transport.
func (c *Client) HTTPClient() *resty.Client {
	return c.client
}

func (c *Client) r(ctx context.Context) *resty.Request {
	return c.client.R().WithContext(ctx)
}

func checkStatus(res *resty.Response) error {
	if res.StatusCode() != 200 {
		return &StatusError{StatusCode: res.StatusCode(), URL: res.Request.URL}
	}
	return nil
}
