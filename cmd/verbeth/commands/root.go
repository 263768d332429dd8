package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"verbeth/internal/app"
)

var (
	// These flags are shared across all commands.
	homeDir    string
	passphrase string
	chainID    uint64
	rpID       string

	// appCtx holds the wired dependencies after PersistentPreRunE.
	appCtx *app.Wire
)

// Execute initialises the application context and runs the root cobra
// command.
func Execute() error {
	root := &cobra.Command{
		Use:   "verbeth",
		Short: "End-to-end encrypted messaging over a public event log",
		// Before any sub-command runs we need to build out our Wire (dependencies).
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Default home directory to $HOME/.verbeth if not provided.
			if homeDir == "" {
				if h, err := os.UserHomeDir(); err == nil {
					homeDir = filepath.Join(h, ".verbeth")
				}
			}
			// Ensure the config directory exists (0700).
			if err := os.MkdirAll(homeDir, 0o700); err != nil {
				return fmt.Errorf("creating config dir: %w", err)
			}

			cfg := app.LoadEnv(app.Config{
				HomeDir: homeDir,
				ChainID: chainID,
				RPID:    rpID,
			})
			var err error
			appCtx, err = app.NewWire(cfg)
			if err != nil {
				return fmt.Errorf("initialising application: %w", err)
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if appCtx != nil {
				return appCtx.Close()
			}
			return nil
		},
	}

	// Global flags.
	root.PersistentFlags().StringVar(
		&homeDir,
		"home",
		"",
		"config directory (default: $HOME/.verbeth)",
	)
	root.PersistentFlags().StringVarP(
		&passphrase,
		"passphrase",
		"p",
		"",
		"passphrase to unlock your keys",
	)
	root.PersistentFlags().Uint64Var(
		&chainID,
		"chain-id",
		0,
		"chain id stamped into binding messages",
	)
	root.PersistentFlags().StringVar(
		&rpID,
		"rp-id",
		"",
		"relying-party id stamped into binding messages",
	)

	// Register sub-commands.
	root.AddCommand(
		initCmd(),
		fingerprintCmd(),
		contactsCmd(),
		demoCmd(),
	)

	// Create a signal-aware context so Ctrl-C cancels in-flight work.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	root.SetContext(ctx)

	return root.Execute()
}
