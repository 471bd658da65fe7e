// Command lmsctl runs administrative tasks against the grades database.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-grades-api/internal/app"
	"github.com/noah-isme/lms-grades-api/pkg/config"
	"github.com/noah-isme/lms-grades-api/pkg/logger"
)

const version = "v1.0.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmdRoot := &cobra.Command{
		Use:           "lmsctl",
		Short:         "administrative commands for the LMS grades service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmdRoot.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "print the version number of lmsctl",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "lmsctl "+version)
		},
	})
	cmdRoot.AddCommand(newMigrateCommand())
	cmdRoot.AddCommand(newConfigureCommerceCommand())
	cmdRoot.AddCommand(newOfflineGradeCalcCommand())
	cmdRoot.AddCommand(newInvalidateCourseBlocksCommand())
	cmdRoot.AddCommand(newIssueTokenCommand())
	return cmdRoot
}

// openApp loads configuration and connects every backend.
func openApp() (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	a, err := app.New(cfg, logr.With(zap.String("component", "lmsctl")))
	if err != nil {
		return nil, err
	}
	return a, nil
}
