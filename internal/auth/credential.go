package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fivetwenty-io/graphtutorial/internal/constants"
	"github.com/fivetwenty-io/graphtutorial/pkg/graph"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"
	"golang.org/x/sync/singleflight"
)

// Identity platform error codes surfaced while polling for a device code token.
const (
	errorCodeExpiredToken          = "expired_token"
	errorCodeCodeExpired           = "code_expired"
	errorCodeAccessDenied          = "access_denied"
	errorCodeAuthorizationDeclined = "authorization_declined"
)

// ErrUnexpectedTokenType is returned when the coalesced exchange yields
// something other than a *Token.
var ErrUnexpectedTokenType = errors.New("unexpected token type from device code exchange")

// Option configures a DeviceCodeCredential.
type Option func(*DeviceCodeCredential)

// WithHTTPClient sets the client used for identity platform requests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *DeviceCodeCredential) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger graph.Logger) Option {
	return func(c *DeviceCodeCredential) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithAuthorityHost points the credential at a different identity host.
func WithAuthorityHost(host string) Option {
	return func(c *DeviceCodeCredential) {
		if host != "" {
			c.authorityHost = strings.TrimSuffix(host, "/")
		}
	}
}

// DeviceCodeCredential acquires user tokens through the OAuth2 device
// authorization grant and caches the most recent one in memory.
type DeviceCodeCredential struct {
	mu            sync.RWMutex
	state         graph.InitState
	settings      graph.Settings
	prompt        graph.DeviceCodePrompt
	endpoint      oauth2.Endpoint
	authorityHost string
	httpClient    *http.Client
	logger        graph.Logger
	store         *TokenStore
	group         singleflight.Group
	exchangeMu    sync.Mutex
	flightsMu     sync.Mutex
	flights       map[string]*flight
}

// NewDeviceCodeCredential creates an uninitialized credential.
func NewDeviceCodeCredential(opts ...Option) *DeviceCodeCredential {
	credential := &DeviceCodeCredential{
		state:         graph.StateUninitialized,
		authorityHost: constants.AuthorityHost,
		httpClient:    &http.Client{Timeout: constants.DefaultHTTPTimeout},
		logger:        graph.NopLogger{},
		store:         NewTokenStore(),
		flights:       make(map[string]*flight),
	}

	for _, opt := range opts {
		opt(credential)
	}

	return credential
}

// Initialize records the application identity and the prompt callback. It
// performs no network I/O. Calling it again once initialized is a no-op.
func (c *DeviceCodeCredential) Initialize(settings *graph.Settings, prompt graph.DeviceCodePrompt) error {
	if settings == nil {
		return graph.ErrSettingsRequired
	}

	if strings.TrimSpace(settings.ClientID) == "" {
		return graph.ErrClientIDRequired
	}

	if prompt == nil {
		return graph.ErrPromptRequired
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == graph.StateInitialized {
		c.logger.Debug("Credential already initialized", map[string]interface{}{
			"client_id": c.settings.ClientID,
		})

		return nil
	}

	tenant := strings.TrimSpace(settings.TenantID)
	if tenant == "" {
		tenant = constants.DefaultTenant
	}

	c.settings = graph.Settings{
		ClientID:        strings.TrimSpace(settings.ClientID),
		TenantID:        tenant,
		GraphUserScopes: slices.Clone(settings.GraphUserScopes),
	}
	c.prompt = prompt
	c.endpoint = c.endpointFor(tenant)
	c.state = graph.StateInitialized

	c.logger.Debug("Credential initialized", map[string]interface{}{
		"client_id": c.settings.ClientID,
		"tenant":    tenant,
	})

	return nil
}

// State reports whether Initialize has succeeded.
func (c *DeviceCodeCredential) State() graph.InitState {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.state
}

// Settings returns a copy of the settings recorded by Initialize.
func (c *DeviceCodeCredential) Settings() graph.Settings {
	c.mu.RLock()
	defer c.mu.RUnlock()

	settings := c.settings
	settings.GraphUserScopes = slices.Clone(c.settings.GraphUserScopes)

	return settings
}

// Endpoint returns the identity endpoints in use.
func (c *DeviceCodeCredential) Endpoint() oauth2.Endpoint {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.endpoint
}

// GetToken returns an access token for scopes. A cached token for the same
// scope set is reused until it is within the expiry buffer; otherwise a
// device code exchange runs, shared by every concurrent caller asking for the
// same scopes. Exchanges for different scope sets run one at a time.
//
// A shared exchange outlives any single caller: it is cancelled only once
// every caller waiting on it has returned.
func (c *DeviceCodeCredential) GetToken(ctx context.Context, scopes []string) (string, error) {
	if c.State() != graph.StateInitialized {
		return "", graph.ErrCredentialNotReady
	}

	key := ScopeKey(scopes)
	if key == "" {
		return "", graph.ErrScopesRequired
	}

	if token := c.store.Get(); token.ValidFor(key) {
		return token.AccessToken, nil
	}

	shared := c.join(ctx, key)
	defer c.leave(key, shared)

	for attempt := 0; ; attempt++ {
		resultCh := c.group.DoChan(key, func() (interface{}, error) {
			return c.exchange(shared.ctx, scopes, key)
		})

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %w", graph.ErrCancelled, ctx.Err())
		case result := <-resultCh:
			// The call joined may have been started by callers that have all
			// gone; run it once more under this caller's flight.
			if attempt == 0 && errors.Is(result.Err, graph.ErrCancelled) && ctx.Err() == nil {
				continue
			}

			if result.Err != nil {
				return "", result.Err
			}

			token, ok := result.Val.(*Token)
			if !ok {
				return "", ErrUnexpectedTokenType
			}

			return token.AccessToken, nil
		}
	}
}

// Invalidate drops the cached token so the next GetToken starts a new exchange.
func (c *DeviceCodeCredential) Invalidate() {
	c.store.Clear()

	c.logger.Debug("Cached access token invalidated", nil)
}

// flight is the context shared by the callers waiting on one scope set.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

func (c *DeviceCodeCredential) join(ctx context.Context, key string) *flight {
	c.flightsMu.Lock()
	defer c.flightsMu.Unlock()

	f, ok := c.flights[key]
	if !ok {
		flightCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{ctx: flightCtx, cancel: cancel}
		c.flights[key] = f
	}

	f.waiters++

	return f
}

func (c *DeviceCodeCredential) leave(key string, f *flight) {
	c.flightsMu.Lock()
	defer c.flightsMu.Unlock()

	f.waiters--
	if f.waiters > 0 {
		return
	}

	f.cancel()

	if c.flights[key] == f {
		delete(c.flights, key)
	}
}

// exchange runs one device code exchange for key unless a token acquired
// while waiting for exchangeMu already covers it.
func (c *DeviceCodeCredential) exchange(ctx context.Context, scopes []string, key string) (*Token, error) {
	c.exchangeMu.Lock()
	defer c.exchangeMu.Unlock()

	if token := c.store.Get(); token.ValidFor(key) {
		return token, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", graph.ErrCancelled, err)
	}

	return c.acquire(ctx, scopes, key)
}

func (c *DeviceCodeCredential) acquire(ctx context.Context, scopes []string, key string) (*Token, error) {
	c.mu.RLock()
	config := &oauth2.Config{
		ClientID: c.settings.ClientID,
		Endpoint: c.endpoint,
		Scopes:   slices.Clone(scopes),
	}
	prompt := c.prompt
	c.mu.RUnlock()

	oauthCtx := context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	c.logger.Debug("Requesting device code", map[string]interface{}{
		"device_auth_url": config.Endpoint.DeviceAuthURL,
		"scopes":          key,
	})

	deviceAuth, err := config.DeviceAuth(oauthCtx)
	if err != nil {
		return nil, classifyError(ctx, "device authorization request failed", err)
	}

	if deviceAuth.DeviceCode == "" {
		return nil, graph.ErrNoDeviceCode
	}

	err = prompt(ctx, newDeviceCodeInfo(deviceAuth))
	if err != nil {
		return nil, classifyError(ctx, "device code prompt failed", err)
	}

	token, err := config.DeviceAccessToken(oauthCtx, deviceAuth)
	if err != nil {
		return nil, classifyError(ctx, "device code token request failed", err)
	}

	stored := &Token{
		AccessToken: token.AccessToken,
		TokenType:   token.Type(),
		ExpiresAt:   token.Expiry,
		Scope:       key,
	}
	c.store.Set(stored)

	c.logger.Info("Acquired access token", map[string]interface{}{
		"scopes":     key,
		"expires_at": stored.ExpiresAt.Format(time.RFC3339),
	})

	return stored, nil
}

func (c *DeviceCodeCredential) endpointFor(tenant string) oauth2.Endpoint {
	var endpoint oauth2.Endpoint

	if c.authorityHost == constants.AuthorityHost {
		endpoint = microsoft.AzureADEndpoint(tenant)
	} else {
		base := c.authorityHost + "/" + tenant + "/oauth2/v2.0"
		endpoint = oauth2.Endpoint{
			AuthURL:       base + "/authorize",
			DeviceAuthURL: base + "/devicecode",
			TokenURL:      base + "/token",
		}
	}

	// Public clients have no secret; send client_id in the form body.
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	return endpoint
}

func newDeviceCodeInfo(deviceAuth *oauth2.DeviceAuthResponse) graph.DeviceCodeInfo {
	return graph.DeviceCodeInfo{
		UserCode:        deviceAuth.UserCode,
		VerificationURL: deviceAuth.VerificationURI,
		ExpiresAt:       deviceAuth.Expiry,
		Message: fmt.Sprintf(
			"To sign in, use a web browser to open the page %s and enter the code %s to authenticate.",
			deviceAuth.VerificationURI, deviceAuth.UserCode,
		),
	}
}

// classifyError maps an identity platform failure onto the graph error
// taxonomy. ctx is the exchange context, not the one bounded by the device
// code expiry.
func classifyError(ctx context.Context, operation string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %s: %w", graph.ErrCancelled, operation, ctxErr)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %w", graph.ErrAuthTimeout, operation, err)
	}

	retrieveErr := &oauth2.RetrieveError{}
	if errors.As(err, &retrieveErr) {
		switch retrieveErr.ErrorCode {
		case errorCodeExpiredToken, errorCodeCodeExpired:
			return fmt.Errorf("%w: %s: %w", graph.ErrAuthTimeout, operation, err)
		case errorCodeAccessDenied, errorCodeAuthorizationDeclined:
			return fmt.Errorf("%w: %s: %w", graph.ErrAuthDenied, operation, err)
		}
	}

	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %s: %w", graph.ErrCancelled, operation, err)
	}

	return fmt.Errorf("%s: %w", operation, err)
}
