package graphclient

import (
	"net/http"
	"strings"

	"github.com/fivetwenty-io/graphtutorial/internal/auth"
	"github.com/fivetwenty-io/graphtutorial/internal/client"
	"github.com/fivetwenty-io/graphtutorial/internal/constants"
	"github.com/fivetwenty-io/graphtutorial/pkg/graph"
)

// NewCredentialManager creates an uninitialized device-code credential.
func NewCredentialManager(config *graph.Config) graph.CredentialManager {
	config = normalizeConfig(config)

	opts := []auth.Option{
		auth.WithAuthorityHost(config.AuthorityHost),
		auth.WithLogger(config.Logger),
	}

	switch {
	case config.HTTPClient != nil:
		opts = append(opts, auth.WithHTTPClient(config.HTTPClient))
	case config.HTTPTimeout > 0:
		opts = append(opts, auth.WithHTTPClient(&http.Client{Timeout: config.HTTPTimeout}))
	}

	return auth.NewDeviceCodeCredential(opts...)
}

// NewUserClient creates an uninitialized Graph user client.
func NewUserClient(config *graph.Config) graph.UserClient {
	return client.New(normalizeConfig(config))
}

// InitializeForUserAuth initializes a credential with settings and prompt and
// binds a new user client to it. No network I/O happens until the first
// operation on the returned client.
func InitializeForUserAuth(settings *graph.Settings, prompt graph.DeviceCodePrompt, config *graph.Config) (graph.UserClient, error) {
	credential := NewCredentialManager(config)

	err := credential.Initialize(settings, prompt)
	if err != nil {
		return nil, err
	}

	userClient := NewUserClient(config)

	err = userClient.InitializeForUser(settings, credential)
	if err != nil {
		return nil, err
	}

	return userClient, nil
}

// normalizeConfig returns a copy of config with endpoint defaults applied.
func normalizeConfig(config *graph.Config) *graph.Config {
	normalized := graph.Config{}
	if config != nil {
		normalized = *config
	}

	normalized.GraphEndpoint = normalizeEndpoint(normalized.GraphEndpoint, constants.GraphEndpoint)
	normalized.AuthorityHost = normalizeEndpoint(normalized.AuthorityHost, constants.AuthorityHost)

	return &normalized
}

func normalizeEndpoint(endpoint, fallback string) string {
	endpoint = strings.TrimSuffix(strings.TrimSpace(endpoint), "/")
	if endpoint == "" {
		return fallback
	}

	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}

	return endpoint
}
