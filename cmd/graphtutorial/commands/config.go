package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fivetwenty-io/graphtutorial/internal/constants"
	"github.com/fivetwenty-io/graphtutorial/pkg/graph"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// settingKeys maps the names accepted by config set to viper keys.
var settingKeys = map[string]string{
	"clientid":        KeyClientID,
	"tenantid":        KeyTenantID,
	"graphuserscopes": KeyScopes,
}

// NewConfigCommand creates the config command.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
		Long:  "Show or change the app registration settings used to sign in",
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigSetCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long:  "Display the settings resolved from flags, environment and config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := currentSettings()

			out := cmd.OutOrStdout()

			format, err := outputFormat(out)
			if err != nil {
				return err
			}

			return renderSettings(out, format, settings, viper.ConfigFileUsed())
		},
	}
}

func newConfigSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a configuration value",
		Long:  "Set clientId, tenantId or graphUserScopes (comma separated) in the config file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, ok := settingKeys[strings.ToLower(args[0])]
			if !ok {
				return fmt.Errorf("%w: %s", ErrUnknownConfigKey, args[0])
			}

			if key == KeyScopes {
				viper.Set(key, splitScopes(args[1]))
			} else {
				viper.Set(key, strings.TrimSpace(args[1]))
			}

			configFile, err := configFilePath()
			if err != nil {
				return err
			}

			err = saveSettings(configFile, currentSettings())
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Set %s in %s\n", args[0], configFile)

			return err
		},
	}
}

// fileConfig is the on-disk layout of config.yml.
type fileConfig struct {
	Settings graph.Settings `yaml:"settings"`
}

func currentSettings() *graph.Settings {
	return &graph.Settings{
		ClientID:        viper.GetString(KeyClientID),
		TenantID:        viper.GetString(KeyTenantID),
		GraphUserScopes: splitScopes(viper.GetStringSlice(KeyScopes)...),
	}
}

func saveSettings(configFile string, settings *graph.Settings) error {
	data, err := yaml.Marshal(fileConfig{Settings: *settings})
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	err = os.WriteFile(configFile, data, constants.ConfigFilePerm)
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// configFilePath returns the config file in use, creating the default
// directory when no file has been read yet.
func configFilePath() (string, error) {
	if configFile := viper.ConfigFileUsed(); configFile != "" {
		return configFile, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	configDir := filepath.Join(home, ConfigDirName)

	err = os.MkdirAll(configDir, constants.ConfigDirPerm)
	if err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return filepath.Join(configDir, "config.yml"), nil
}

func renderSettings(w io.Writer, format string, settings *graph.Settings, configFile string) error {
	if done, err := renderStructured(w, format, settings); done {
		return err
	}

	table := tablewriter.NewWriter(w)
	table.Header("Setting", "Value")
	_ = table.Append("Client ID", valueOrNA(settings.ClientID))
	_ = table.Append("Tenant ID", valueOrNA(settings.TenantID))
	_ = table.Append("Scopes", valueOrNA(strings.Join(settings.GraphUserScopes, ", ")))
	_ = table.Append("Config File", valueOrNA(configFile))

	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}
