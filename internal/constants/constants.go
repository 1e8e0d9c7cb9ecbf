package constants

import "time"

// File and directory permissions.
const (
	// ConfigDirPerm is the permission for configuration directories.
	ConfigDirPerm = 0750

	// ConfigFilePerm is the permission for configuration files.
	ConfigFilePerm = 0600
)

// Endpoints.
const (
	// GraphEndpoint is the Microsoft Graph v1.0 base URL.
	GraphEndpoint = "https://graph.microsoft.com/v1.0"

	// AuthorityHost is the Microsoft identity platform host.
	AuthorityHost = "https://login.microsoftonline.com"

	// DefaultTenant accepts both work/school and personal accounts.
	DefaultTenant = "common"
)

// HTTP timeouts.
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second
)

// Retry limits.
const (
	// DefaultRetryMax is the default maximum number of retries.
	DefaultRetryMax = 3

	// DefaultRetryWaitMin is the minimum wait time between retries.
	DefaultRetryWaitMin = 1 * time.Second

	// DefaultRetryWaitMax is the maximum wait time between retries.
	DefaultRetryWaitMax = 30 * time.Second
)

// Token lifecycle.
const (
	// TokenExpirationBuffer is how long before expiry a cached token stops
	// being handed out.
	TokenExpirationBuffer = 60 * time.Second
)

// Queries.
const (
	// InboxPageSize is the number of messages fetched for an inbox page.
	InboxPageSize = 25

	// InboxFolder is the well-known name of the inbox mail folder.
	InboxFolder = "Inbox"
)

// Format constants.
const (
	// FormatTable for table output format.
	FormatTable = "table"

	// FormatJSON for JSON output format.
	FormatJSON = "json"

	// FormatYAML for YAML output format.
	FormatYAML = "yaml"

	// NotAvailable is used when information is not available.
	NotAvailable = "N/A"
)
