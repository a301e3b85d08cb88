package main

import (
	"github.com/cursorhide/cursorhide/internal/config"
	"github.com/cursorhide/cursorhide/internal/logging"

	"github.com/spf13/cobra"
)

// globalOptions is shared by every subcommand
type globalOptions struct {
	cfg *config.Config
}

// NewRootCmd returns the cursorhide command tree. Without a subcommand it
// runs the controller in the foreground until interrupted.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   appName,
		Short: "Hide the mouse pointer while it is not moving",
		Long: `cursorhide hides the mouse pointer after a few seconds without movement
and shows it again as soon as the pointer moves.

Environment Variables:
  CURSORHIDE_TIMEOUT         Inactivity timeout (default 3s)
  CURSORHIDE_POLL_INTERVAL   Pointer sampling interval (default 100ms)
  CURSORHIDE_MODE            toggle or glyph (default toggle)
  CURSORHIDE_JOURNAL         Record transitions to the journal (default true)
  CURSORHIDE_DB_PATH         Journal database file path
  CURSORHIDE_PID_FILE        PID file path
  CURSORHIDE_LOG_FILE        Background daemon log file
  CURSORHIDE_LOG_LEVEL       Log level (default info)
  CURSORHIDE_WEB_HOST        Web API host for serve
  CURSORHIDE_WEB_PORT        Web API port for serve
  CURSORHIDE_ENV_FILE        Env file loaded before the variables above`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			opts.cfg = config.New()
			logging.Setup(opts.cfg.Log.Level)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.cfg.Validate(); err != nil {
				return err
			}
			return runController(opts.cfg, false)
		},
	}

	rootCmd.AddCommand(NewStartCmd(opts))
	rootCmd.AddCommand(NewServeCmd(opts))
	rootCmd.AddCommand(NewStopCmd(opts))
	rootCmd.AddCommand(NewStatusCmd(opts))
	rootCmd.AddCommand(NewHistoryCmd(opts))
	rootCmd.AddCommand(NewClearCmd(opts))
	rootCmd.AddCommand(NewVersionCmd())
	return rootCmd
}
