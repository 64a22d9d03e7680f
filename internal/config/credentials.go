package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "threadlytics"

var ErrIncompleteCredentials = errors.New("incomplete forum credentials")

// Credentials of a registered forum API application.
type Credentials struct {
	ClientID     string `json:"client_id" envconfig:"CLIENT_ID"`
	ClientSecret string `json:"client_secret" envconfig:"CLIENT_SECRET"`
	UserAgent    string `json:"user_agent" envconfig:"USER_AGENT"`
}

// LoadCredentials reads the JSON credentials file at path, then applies THREADLYTICS_CLIENT_ID,
// THREADLYTICS_CLIENT_SECRET and THREADLYTICS_USER_AGENT on top of it. A missing file is fine as long as the
// environment provides every value.
func LoadCredentials(path string) (*Credentials, error) {
	creds := &Credentials{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, creds); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}

	if err := envconfig.Process(envPrefix, creds); err != nil {
		return nil, err
	}

	if creds.ClientID == "" || creds.ClientSecret == "" || creds.UserAgent == "" {
		return nil, fmt.Errorf("%w: client_id, client_secret and user_agent are required (%s)",
			ErrIncompleteCredentials, path)
	}

	return creds, nil
}

func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{ClientID: %q, ClientSecret: \"***\", UserAgent: %q}", c.ClientID, c.UserAgent)
}
