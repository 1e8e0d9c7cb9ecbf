package graph

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Failure taxonomy shared by the credential and the client.
var (
	ErrNotInitialized  = errors.New("graph has not been initialized for user auth")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrAuthTimeout     = errors.New("device code expired before the user signed in")
	ErrAuthDenied      = errors.New("user declined the device code sign in")
	ErrCancelled       = errors.New("operation cancelled")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrInvalidResponse = errors.New("invalid response")
)

// Static errors for err113 compliance.
var (
	ErrClientIDRequired     = fmt.Errorf("%w: client id is required", ErrInvalidArgument)
	ErrSettingsRequired     = fmt.Errorf("%w: settings are required", ErrInvalidArgument)
	ErrPromptRequired       = fmt.Errorf("%w: device code prompt is required", ErrInvalidArgument)
	ErrScopesRequired       = fmt.Errorf("%w: argument 'scopes' cannot be empty", ErrInvalidArgument)
	ErrNegativePageSize     = fmt.Errorf("%w: page size cannot be negative", ErrInvalidArgument)
	ErrBlankSelectField     = fmt.Errorf("%w: select field cannot be blank", ErrInvalidArgument)
	ErrCredentialNotReady   = fmt.Errorf("%w: credential is not initialized", ErrNotInitialized)
	ErrClientNotInitialized = fmt.Errorf("%w: client is not initialized", ErrNotInitialized)
	ErrNoDeviceCode         = errors.New("identity provider did not return a device code")
)

// ODataError is the error object Graph places in non-2xx bodies.
type ODataError struct {
	Code    string `json:"code"    yaml:"code"`
	Message string `json:"message" yaml:"message"`
}

// RemoteError represents a non-2xx response from Graph other than 401.
type RemoteError struct {
	StatusCode int    `json:"status_code"       yaml:"status_code"`
	Body       string `json:"body"              yaml:"body"`
	Code       string `json:"code,omitempty"    yaml:"code,omitempty"`
	Message    string `json:"message,omitempty" yaml:"message,omitempty"`
}

// Error implements the error interface.
func (e *RemoteError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("graph request failed with status %d: %s: %s", e.StatusCode, e.Code, e.Message)
	}

	return fmt.Sprintf("graph request failed with status %d: %s", e.StatusCode, e.Body)
}

// NewRemoteError builds a RemoteError, extracting the OData error object when
// the body carries one.
func NewRemoteError(statusCode int, body []byte) *RemoteError {
	remoteErr := &RemoteError{
		StatusCode: statusCode,
		Body:       string(body),
	}

	parsed, err := ParseODataError(body)
	if err == nil && parsed != nil {
		remoteErr.Code = parsed.Code
		remoteErr.Message = parsed.Message
	}

	return remoteErr
}

// ParseODataError parses the {"error":{...}} envelope.
func ParseODataError(data []byte) (*ODataError, error) {
	var envelope struct {
		Error *ODataError `json:"error"`
	}

	err := json.Unmarshal(data, &envelope)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal odata error: %w", err)
	}

	return envelope.Error, nil
}

// IsRemoteError checks if the error carries a Graph error response.
func IsRemoteError(err error) bool {
	remoteErr := &RemoteError{}

	return errors.As(err, &remoteErr)
}

// IsNotFound checks if the error is a 404 from Graph.
func IsNotFound(err error) bool {
	return remoteStatus(err) == http.StatusNotFound
}

// IsForbidden checks if the error is a 403 from Graph.
func IsForbidden(err error) bool {
	return remoteStatus(err) == http.StatusForbidden
}

// IsThrottled checks if Graph throttled the request.
func IsThrottled(err error) bool {
	return remoteStatus(err) == http.StatusTooManyRequests
}

// IsUnauthenticated checks if the error is an authentication failure.
func IsUnauthenticated(err error) bool {
	return errors.Is(err, ErrUnauthenticated)
}

func remoteStatus(err error) int {
	remoteErr := &RemoteError{}
	if errors.As(err, &remoteErr) {
		return remoteErr.StatusCode
	}

	return 0
}
