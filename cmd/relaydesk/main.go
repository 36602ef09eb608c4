// RelayDesk Core - handset relay and operator console
//
// RelayDesk brokers between a fleet of Android handset agents and a small
// group of operators. Agents check in, poll for queued commands and report
// inbound messages over HTTP; operators browse devices and queue commands
// from a Feishu chat.
//
// Usage:
//
//	relaydesk serve --config configs/config.yaml
//	relaydesk queue list <device-id>
//	relaydesk messages <device-id> --offset 0 --limit 20
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/relaydesk/relaydesk-core/internal/infrastructure/config"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// defaultConfigPath is used when neither --config nor RELAYDESK_CONFIG is set.
const defaultConfigPath = "configs/config.yaml"

var flagConfig string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "relaydesk",
		Short:         "Handset relay with a chat-driven operator console",
		SilenceUsage:  true,
		SilenceErrors: true,
		// Bare "relaydesk" runs the server.
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (overrides $RELAYDESK_CONFIG)")
	root.AddCommand(
		newServeCmd(),
		newQueueCmd(),
		newMessagesCmd(),
		newVersionCmd(),
	)
	return root
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "relaydesk %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}

// configPath returns the configuration file path and whether it was chosen
// explicitly. Order: --config, RELAYDESK_CONFIG, default.
func configPath() (string, bool) {
	if flagConfig != "" {
		return flagConfig, true
	}
	if path := os.Getenv("RELAYDESK_CONFIG"); path != "" {
		return path, true
	}
	return defaultConfigPath, false
}

// loadConfig loads .env, then the config file. A missing file at the
// default path falls back to built-in defaults; an explicit path must exist.
func loadConfig() (*config.Config, string, error) {
	if _, err := config.LoadDotEnv(); err != nil {
		return nil, "", fmt.Errorf("loading .env: %w", err)
	}

	path, explicit := configPath()
	if !explicit {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			path = ""
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, path, fmt.Errorf("loading config: %w", err)
	}
	return cfg, path, nil
}
