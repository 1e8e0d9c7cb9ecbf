package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/fivetwenty-io/graphtutorial/cmd/graphtutorial/commands"
	"github.com/fivetwenty-io/graphtutorial/internal/constants"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "graphtutorial",
	Short: "Microsoft Graph mail CLI",
	Long: `A command-line interface for reading the signed-in user's profile and
inbox from Microsoft Graph.

Sign in happens through the OAuth2 device code flow: the first command that
needs a token prints a code to enter at the verification page.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.graphtutorial/config.yml)")
	rootCmd.PersistentFlags().String("client-id", "", "application (client) ID of the app registration")
	rootCmd.PersistentFlags().String("tenant-id", "", "directory (tenant) ID or domain (default \"common\")")
	rootCmd.PersistentFlags().StringSlice("scopes", nil, "delegated Graph scopes (default user.read,mail.read)")
	rootCmd.PersistentFlags().String("graph-endpoint", "", "Graph base URL (default "+constants.GraphEndpoint+")")
	rootCmd.PersistentFlags().String("authority-host", "", "identity platform host (default "+constants.AuthorityHost+")")
	rootCmd.PersistentFlags().StringP("output", "o", "", "output format (table, json, yaml); table on a terminal, json otherwise")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")

	// Bind flags to viper
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag(commands.KeyClientID, rootCmd.PersistentFlags().Lookup("client-id"))
	_ = viper.BindPFlag(commands.KeyTenantID, rootCmd.PersistentFlags().Lookup("tenant-id"))
	_ = viper.BindPFlag(commands.KeyScopes, rootCmd.PersistentFlags().Lookup("scopes"))
	_ = viper.BindPFlag("graph_endpoint", rootCmd.PersistentFlags().Lookup("graph-endpoint"))
	_ = viper.BindPFlag("authority_host", rootCmd.PersistentFlags().Lookup("authority-host"))
	_ = viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	viper.SetDefault(commands.KeyScopes, commands.DefaultScopes)

	// Add commands
	rootCmd.AddCommand(commands.NewVersionCommand(version, commit, date))
	rootCmd.AddCommand(commands.NewConfigCommand())
	rootCmd.AddCommand(commands.NewTokenCommand())
	rootCmd.AddCommand(commands.NewMeCommand())
	rootCmd.AddCommand(commands.NewInboxCommand())
}

func initConfig() {
	cfgFile := viper.GetString("config")

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		// Search config in ~/.graphtutorial/config.yml
		viper.AddConfigPath(filepath.Join(home, commands.ConfigDirName))
		viper.SetConfigType("yml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match, e.g. GRAPH_SETTINGS_CLIENTID
	viper.SetEnvPrefix("GRAPH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	err := rootCmd.ExecuteContext(ctx)

	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
