package client

import (
	"context"
	"fmt"
	nethttp "net/http"
	"slices"
	"sync"

	"github.com/fivetwenty-io/graphtutorial/internal/constants"
	"github.com/fivetwenty-io/graphtutorial/internal/http"
	"github.com/fivetwenty-io/graphtutorial/pkg/graph"
)

// Client implements the graph.UserClient interface.
type Client struct {
	mu         sync.RWMutex
	state      graph.InitState
	credential graph.CredentialManager
	scopes     []string

	httpClient *http.Client
	logger     graph.Logger

	// Resource clients
	users    *UsersClient
	messages *MessagesClient
}

// scopedTokenManager supplies the user-scoped token to the HTTP layer.
type scopedTokenManager struct {
	client *Client
}

func (m *scopedTokenManager) GetToken(ctx context.Context) (string, error) {
	return m.client.GetUserToken(ctx)
}

// Invalidate drops the credential's cached token after Graph rejects it.
func (m *scopedTokenManager) Invalidate() {
	m.client.invalidateToken()
}

// New creates an uninitialized client. The Graph endpoint, transport and
// logging come from config; InitializeForUser binds the credential.
func New(config *graph.Config, opts ...http.Option) *Client {
	if config == nil {
		config = &graph.Config{}
	}

	client := &Client{
		state:  graph.StateUninitialized,
		logger: config.Logger,
	}

	if client.logger == nil {
		client.logger = graph.NopLogger{}
	}

	endpoint := config.GraphEndpoint
	if endpoint == "" {
		endpoint = constants.GraphEndpoint
	}

	httpOpts := append(createHTTPClientOptions(config), opts...)
	client.httpClient = http.NewClient(endpoint, &scopedTokenManager{client: client}, httpOpts...)
	client.users = NewUsersClient(client.httpClient)
	client.messages = NewMessagesClient(client.httpClient)

	return client
}

// InitializeForUser binds the client to credential and the user scopes in
// settings. credential must already be initialized.
func (c *Client) InitializeForUser(settings *graph.Settings, credential graph.CredentialManager) error {
	if settings == nil || credential == nil {
		return graph.ErrClientNotInitialized
	}

	if credential.State() != graph.StateInitialized {
		return graph.ErrCredentialNotReady
	}

	if len(settings.GraphUserScopes) == 0 {
		return graph.ErrScopesRequired
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.credential = credential
	c.scopes = slices.Clone(settings.GraphUserScopes)
	c.state = graph.StateInitialized

	c.logger.Debug("Client initialized for user", map[string]interface{}{
		"scopes": c.scopes,
	})

	return nil
}

// State implements graph.UserClient.State.
func (c *Client) State() graph.InitState {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.state
}

// GetUserToken returns a token for the user scopes bound by InitializeForUser.
func (c *Client) GetUserToken(ctx context.Context) (string, error) {
	c.mu.RLock()
	credential, scopes, state := c.credential, c.scopes, c.state
	c.mu.RUnlock()

	if state != graph.StateInitialized {
		return "", graph.ErrClientNotInitialized
	}

	token, err := credential.GetToken(ctx, scopes)
	if err != nil {
		return "", fmt.Errorf("getting user token: %w", err)
	}

	return token, nil
}

func (c *Client) invalidateToken() {
	c.mu.RLock()
	credential := c.credential
	c.mu.RUnlock()

	invalidator, ok := credential.(http.TokenInvalidator)
	if !ok {
		return
	}

	invalidator.Invalidate()

	c.logger.Warn("Graph rejected the access token, next request signs in again", nil)
}

// GetCurrentUser implements graph.UserClient.GetCurrentUser.
func (c *Client) GetCurrentUser(ctx context.Context) (*graph.UserProfile, error) {
	if c.State() != graph.StateInitialized {
		return nil, graph.ErrClientNotInitialized
	}

	params := graph.NewQueryParams().WithSelect("displayName", "mail", "userPrincipalName")

	return c.users.Me(ctx, params)
}

// GetInboxPage implements graph.UserClient.GetInboxPage. The returned page
// holds at most 25 messages, newest first.
func (c *Client) GetInboxPage(ctx context.Context) (*graph.MessageCollectionPage, error) {
	if c.State() != graph.StateInitialized {
		return nil, graph.ErrClientNotInitialized
	}

	params := graph.NewQueryParams().
		WithSelect("from", "isRead", "receivedDateTime", "subject").
		WithTop(constants.InboxPageSize).
		WithOrderBy("receivedDateTime", graph.SortDescending)

	page, err := c.messages.ListInFolder(ctx, constants.InboxFolder, params)
	if err != nil {
		return nil, err
	}

	page.SortNewestFirst(constants.InboxPageSize)

	return page, nil
}

// Users returns the users resource client.
func (c *Client) Users() *UsersClient {
	return c.users
}

// Messages returns the messages resource client.
func (c *Client) Messages() *MessagesClient {
	return c.messages
}

// createHTTPClientOptions builds HTTP client options from config.
func createHTTPClientOptions(config *graph.Config) []http.Option {
	var httpOpts []http.Option

	if config.Logger != nil {
		httpOpts = append(httpOpts, http.WithLogger(config.Logger))
	}

	if config.Debug {
		httpOpts = append(httpOpts, http.WithDebug(true))
	}

	if config.UserAgent != "" {
		httpOpts = append(httpOpts, http.WithUserAgent(config.UserAgent))
	}

	switch {
	case config.HTTPClient != nil:
		httpOpts = append(httpOpts, http.WithHTTPClient(config.HTTPClient))
	case config.HTTPTimeout > 0:
		httpOpts = append(httpOpts, http.WithHTTPClient(&nethttp.Client{Timeout: config.HTTPTimeout}))
	}

	if config.RetryMax != 0 || config.RetryWaitMin > 0 || config.RetryWaitMax > 0 {
		retryMax := config.RetryMax
		if retryMax == 0 {
			retryMax = constants.DefaultRetryMax
		}

		httpOpts = append(httpOpts, http.WithRetryConfig(retryMax, config.RetryWaitMin, config.RetryWaitMax))
	}

	if config.RequestsPerSecond >= 0 {
		limitConfig := graph.DefaultRateLimitConfig()
		if config.RequestsPerSecond > 0 {
			limitConfig.RequestsPerSecond = config.RequestsPerSecond
		}

		limiter := graph.NewRateLimiter(limitConfig)
		httpOpts = append(httpOpts,
			http.WithRequestInterceptor(graph.RateLimitInterceptor(limiter)),
			http.WithResponseInterceptor(graph.RateLimitResponseInterceptor(limiter)),
		)
	}

	if config.Logger != nil {
		if config.Debug {
			httpOpts = append(httpOpts, http.WithRequestInterceptor(graph.LoggingInterceptor(config.Logger)))
		}

		httpOpts = append(httpOpts, http.WithResponseInterceptor(graph.LoggingResponseInterceptor(config.Logger)))
	}

	return httpOpts
}
