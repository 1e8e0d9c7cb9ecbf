package graph

import (
	"context"
	"net/http"
	"time"
)

// InitState tracks whether a component has been initialized.
type InitState int

const (
	// StateUninitialized is the zero value of every component.
	StateUninitialized InitState = iota
	// StateInitialized is entered once and never left.
	StateInitialized
)

// String makes InitState satisfy the fmt.Stringer interface.
func (s InitState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	default:
		return "unknown"
	}
}

// CredentialManager acquires and reuses bearer tokens through the OAuth2
// device-code grant.
type CredentialManager interface {
	// Initialize stores the settings and prompt. It performs no network I/O.
	Initialize(settings *Settings, prompt DeviceCodePrompt) error
	// GetToken returns a bearer token for scopes, running a device-code
	// exchange when no unexpired token is cached.
	GetToken(ctx context.Context, scopes []string) (string, error)
	// State reports the initialization state.
	State() InitState
}

// UserClient issues authenticated queries on behalf of the signed-in user.
type UserClient interface {
	InitializeForUser(settings *Settings, credential CredentialManager) error
	GetUserToken(ctx context.Context) (string, error)
	GetCurrentUser(ctx context.Context) (*UserProfile, error)
	GetInboxPage(ctx context.Context) (*MessageCollectionPage, error)
	State() InitState
}

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Config represents transport and endpoint configuration shared by the
// credential and the client.
//
// # Endpoints
//
// GraphEndpoint defaults to https://graph.microsoft.com/v1.0 and
// AuthorityHost to https://login.microsoftonline.com. Both exist so tests
// and sovereign clouds can point the components elsewhere.
//
// # Timeouts, retries, and transport
//
// Per-request deadlines should be controlled via the context passed to each
// operation. HTTPClient replaces the underlying transport for both identity
// and Graph requests. Graph requests are retried on 429 and 5xx responses
// according to RetryMax/RetryWaitMin/RetryWaitMax; identity requests are
// never retried.
type Config struct {
	// GraphEndpoint: base URL for Graph requests, without a trailing slash.
	GraphEndpoint string
	// AuthorityHost: identity platform host; the tenant is appended to it.
	AuthorityHost string

	// HTTPClient: optional client whose Transport is used for every request.
	HTTPClient *http.Client
	// HTTPTimeout: overall timeout per HTTP attempt when HTTPClient is nil.
	HTTPTimeout time.Duration
	// RetryMax: maximum number of retries for transient Graph failures. If 0,
	// a sensible default is used; a negative value disables retries.
	RetryMax int
	// RetryWaitMin: minimum backoff between retries.
	RetryWaitMin time.Duration
	// RetryWaitMax: maximum backoff between retries.
	RetryWaitMax time.Duration
	// RequestsPerSecond: client-side rate limit for Graph requests. Zero uses
	// the conservative default; a negative value disables limiting.
	RequestsPerSecond float64

	// Debug: enables request/response logging when a Logger is provided.
	Debug bool
	// Logger: optional structured logger.
	Logger Logger
	// UserAgent: overrides the default User-Agent header.
	UserAgent string
}
