package reddit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"resty.dev/v3"
)

const (
	DefaultBaseURL  = "https://oauth.reddit.com"
	DefaultTokenURL = "https://www.reddit.com/api/v1/access_token"

	// tokenLeeway renews a token shortly before it actually expires.
	tokenLeeway = time.Minute
)

var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrUnexpectedStatus = errors.New("unexpected status")
)

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

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// Client is an application-only OAuth client of the forum API. It is safe for concurrent use.
type Client struct {
	client *resty.Client
	config ClientConfig

	mu      sync.Mutex
	token   string
	expires time.Time
}

func NewClient(config *ClientConfig) *Client {
	c := *config

	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.TokenURL == "" {
		c.TokenURL = DefaultTokenURL
	}
	if c.TransportSettings == nil {
		c.TransportSettings = DefaultTransportSettings
	}
	if c.Now == nil {
		c.Now = time.Now
	}

	client := resty.NewWithTransportSettings(c.TransportSettings).
		SetBaseURL(c.BaseURL).
		SetHeader("User-Agent", c.UserAgent)

	for _, m := range c.RequestMiddlewares {
		client.AddRequestMiddleware(m)
	}
	for _, m := range c.ResponseMiddlewares {
		client.AddResponseMiddleware(m)
	}

	return &Client{
		client: client,
		config: c,
	}
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) HTTPClient() *resty.Client {
	return c.client
}

// r returns an authorized request, fetching a new token when the current one is about to expire.
func (c *Client) r(ctx context.Context) (*resty.Request, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	return c.client.R().WithContext(ctx).SetAuthToken(token), nil
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.config.Now().Before(c.expires) {
		return c.token, nil
	}

	res, err := c.client.R().
		WithContext(ctx).
		SetBasicAuth(c.config.ClientID, c.config.ClientSecret).
		SetFormData(map[string]string{"grant_type": "client_credentials"}).
		SetResult(&tokenResponse{}).
		Post(c.config.TokenURL)
	if err != nil {
		return "", err
	}

	if err := checkStatus(res); err != nil {
		return "", err
	}

	token := res.Result().(*tokenResponse)
	if token.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", ErrUnauthorized)
	}

	c.token = token.AccessToken
	c.expires = c.config.Now().Add(time.Duration(token.ExpiresIn)*time.Second - tokenLeeway)

	return c.token, nil
}

func checkStatus(res *resty.Response) error {
	switch res.StatusCode() {
	case http.StatusOK:
		return nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: HTTP %d: %s", ErrUnauthorized, res.StatusCode(), res.Request.URL)
	default:
		return &StatusError{StatusCode: res.StatusCode(), URL: res.Request.URL}
	}
}
