package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/fivetwenty-io/graphtutorial/internal/constants"
	"github.com/fivetwenty-io/graphtutorial/pkg/graph"
	"github.com/fivetwenty-io/graphtutorial/pkg/graphclient"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// Configuration keys.
const (
	KeyClientID = "settings.clientId"
	KeyTenantID = "settings.tenantId"
	KeyScopes   = "settings.graphUserScopes"

	// ConfigDirName is the directory under $HOME holding config.yml.
	ConfigDirName = ".graphtutorial"

	defaultJSONIndent = 2
	maxSubjectLength  = 60
)

// DefaultScopes are requested when no scopes are configured.
var DefaultScopes = []string{"user.read", "mail.read"}

// ErrUnknownConfigKey is returned by config set for unsupported keys.
var ErrUnknownConfigKey = errors.New("unknown configuration key, expected clientId, tenantId or graphUserScopes")

// loadSettings builds Settings from flags, environment and the config file.
func loadSettings() (*graph.Settings, error) {
	clientID := strings.TrimSpace(viper.GetString(KeyClientID))
	if clientID == "" {
		return nil, constants.ErrNoClientID
	}

	scopes := splitScopes(viper.GetStringSlice(KeyScopes)...)
	if len(scopes) == 0 {
		scopes = append(scopes, DefaultScopes...)
	}

	return &graph.Settings{
		ClientID:        clientID,
		TenantID:        strings.TrimSpace(viper.GetString(KeyTenantID)),
		GraphUserScopes: scopes,
	}, nil
}

// splitScopes flattens comma or space separated scope lists.
func splitScopes(values ...string) []string {
	var scopes []string

	for _, value := range values {
		scopes = append(scopes, strings.FieldsFunc(value, func(r rune) bool {
			return r == ',' || unicode.IsSpace(r)
		})...)
	}

	return scopes
}

// newLogger writes structured logs to stderr; debug level with --verbose.
func newLogger(w io.Writer) graph.Logger {
	level := slog.LevelWarn
	if viper.GetBool("verbose") {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})

	return graph.NewSlogLogger(slog.New(handler))
}

// newGraphConfig builds the library configuration from viper.
func newGraphConfig(cmd *cobra.Command) *graph.Config {
	return &graph.Config{
		GraphEndpoint: viper.GetString("graph_endpoint"),
		AuthorityHost: viper.GetString("authority_host"),
		Debug:         viper.GetBool("verbose"),
		Logger:        newLogger(cmd.ErrOrStderr()),
	}
}

// newDeviceCodePrompt prints the sign in instructions to w.
func newDeviceCodePrompt(w io.Writer) graph.DeviceCodePrompt {
	return func(ctx context.Context, info graph.DeviceCodeInfo) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		_, err := fmt.Fprintln(w, info.Message)

		return err
	}
}

// createUserClient loads settings and returns an initialized Graph client.
func createUserClient(cmd *cobra.Command) (graph.UserClient, error) {
	settings, err := loadSettings()
	if err != nil {
		return nil, err
	}

	client, err := graphclient.InitializeForUserAuth(settings, newDeviceCodePrompt(cmd.ErrOrStderr()), newGraphConfig(cmd))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Graph client: %w", err)
	}

	return client, nil
}

// outputFormat returns the --output value, defaulting to a table on a
// terminal and JSON otherwise.
func outputFormat(w io.Writer) (string, error) {
	format := strings.ToLower(strings.TrimSpace(viper.GetString("output")))

	switch format {
	case constants.FormatTable, constants.FormatJSON, constants.FormatYAML:
		return format, nil
	case "":
		if file, ok := w.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
			return constants.FormatTable, nil
		}

		return constants.FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %s", constants.ErrInvalidOutputType, format)
	}
}

// renderStructured writes value as JSON or YAML. It reports false for the
// table format so the caller can render its own table.
func renderStructured(w io.Writer, format string, value interface{}) (bool, error) {
	switch format {
	case constants.FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", strings.Repeat(" ", defaultJSONIndent))

		return true, encoder.Encode(value)
	case constants.FormatYAML:
		encoder := yaml.NewEncoder(w)
		defer func() { _ = encoder.Close() }()

		return true, encoder.Encode(value)
	default:
		return false, nil
	}
}

func valueOrNA(value string) string {
	if strings.TrimSpace(value) == "" {
		return constants.NotAvailable
	}

	return value
}

func truncate(value string, limit int) string {
	if utf8.RuneCountInString(value) <= limit {
		return value
	}

	runes := []rune(value)

	return string(runes[:limit-3]) + "..."
}
