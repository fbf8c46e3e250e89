package main

import (
	"github.com/spf13/cobra"

	"github.com/mohammadpnp/member-import/internal/bootstrap"
	"github.com/mohammadpnp/member-import/internal/config"
	"github.com/mohammadpnp/member-import/internal/logger"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "importctl",
		Short:        "Operate member roster imports",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().String("owner", "", "Owner user id (defaults to $IMPORT_OWNER)")
	cmd.AddCommand(
		newStartCmd(),
		newStatusCmd(),
		newResultsCmd(),
		newControlCmd("pause", "Pause an import", func(a *bootstrap.App) controlExecutor { return a.PauseImport }),
		newControlCmd("resume", "Resume a paused import", func(a *bootstrap.App) controlExecutor { return a.ResumeImport }),
		newControlCmd("stop", "Stop an import for good", func(a *bootstrap.App) controlExecutor { return a.StopImport }),
	)
	return cmd
}

// withApp builds the application for one command and tears it down afterwards.
func withApp(cmd *cobra.Command, fn func(a *bootstrap.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger.Init(cfg.Logging.Level, "console")

	app, err := bootstrap.New(cmd.Context(), cfg, logger.Get())
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(app)
}
