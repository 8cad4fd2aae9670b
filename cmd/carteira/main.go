// Command carteira manages a personal income and expense ledger.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"carteira/internal/backend"
	"carteira/internal/cli"
	"carteira/internal/config"
	applog "carteira/internal/log"
	"carteira/internal/services"
)

var (
	cfg    *config.Config
	logger *applog.Logger
	ledger *backend.BackendResult
	svc    *services.LedgerService

	// now is the ledger clock.
	now = time.Now
)

var rootCmd = &cobra.Command{
	Use:           "carteira",
	Short:         "Personal income and expense ledger",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		cli.LoadEnvFile()
		cfg = config.Load()
		logger = cli.SetupLogger(cfg.LogLevel, cmd.ErrOrStderr(), applog.ComponentCLI)
		if err := cfg.Validate(); err != nil {
			return err
		}

		backendCfg, err := backend.FromAppConfig(cfg)
		if err != nil {
			return err
		}
		backendCfg.Now = now
		ledger, err = backend.NewFactory(logger).CreateBackend(cmd.Context(), backendCfg)
		if err != nil {
			return err
		}
		svc = ledger.Service
		return nil
	},
	PersistentPostRunE: func(*cobra.Command, []string) error {
		return closeLedger()
	},
}

func closeLedger() error {
	if ledger == nil {
		return nil
	}
	err := ledger.Close()
	ledger, svc = nil, nil
	return err
}

func execute(ctx context.Context, args []string) error {
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(ctx)
	// PostRun is skipped when the command fails.
	if cerr := closeLedger(); err == nil {
		err = cerr
	}
	return err
}

func main() {
	if err := execute(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
