package constants

import "errors"

// Configuration errors.
var (
	ErrNoClientID        = errors.New("no client id configured, set settings.clientId or use --client-id")
	ErrInvalidOutputType = errors.New("invalid output format, expected table, json or yaml")
)
