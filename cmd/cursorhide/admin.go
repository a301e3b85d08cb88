package main

import (
	"fmt"
	"time"

	"github.com/cursorhide/cursorhide/internal/daemon"
	"github.com/cursorhide/cursorhide/internal/database"
	"github.com/cursorhide/cursorhide/internal/reporter"
	"github.com/cursorhide/cursorhide/pkg/backend"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func NewStopCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the background controller",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dm := daemon.New(opts.cfg.Daemon.PIDFile)

			running, pid, err := dm.IsRunning()
			if err != nil {
				return errors.Wrap(err, "failed to check daemon status")
			}
			if !running {
				fmt.Println("Daemon is not running")
				return nil
			}

			fmt.Printf("Stopping daemon (PID: %d)...\n", pid)
			if err := dm.Stop(); err != nil {
				return errors.Wrap(err, "failed to stop daemon")
			}

			fmt.Println("Daemon stopped successfully")
			return nil
		},
	}
}

func NewStatusCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status and the last pointer transition",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			dm := daemon.New(cfg.Daemon.PIDFile)

			running, pid, err := dm.IsRunning()
			if err != nil {
				return errors.Wrap(err, "failed to check daemon status")
			}

			if running {
				fmt.Printf("Status: Running (PID: %d)\n", pid)
			} else {
				fmt.Println("Status: Not running")
			}
			fmt.Printf("Timeout: %v\n", cfg.Controller.Timeout)
			fmt.Printf("Poll Interval: %v\n", cfg.Controller.PollInterval)
			fmt.Printf("Mode: %s\n", cfg.Controller.Mode)

			// Still sample the pointer when the daemon is not running
			svc, err := backend.New()
			if err != nil {
				fmt.Printf("\nCould not reach the display: %v\n", err)
			} else {
				defer svc.Close()
				if pos, err := svc.Position(); err == nil {
					fmt.Printf("\nPointer:\n")
					fmt.Printf("  Position: %s\n", pos)
					fmt.Printf("  Display: %s\n", svc.DisplayServer())
				}
			}

			if !cfg.Database.Enabled {
				return nil
			}

			db, err := database.Connect(cfg.Database.Path)
			if err != nil {
				return nil
			}
			defer db.Close()
			if err := db.Initialize(); err != nil {
				return nil
			}
			repo := database.NewRepository(db)

			if latest, err := repo.GetLatest(); err == nil && latest != nil {
				fmt.Printf("\nLast Transition:\n")
				fmt.Printf("  Action: %s\n", latest.Action)
				fmt.Printf("  At: %s (%s ago)\n",
					latest.Timestamp.Format("2006-01-02 15:04:05"),
					time.Since(latest.Timestamp).Round(time.Second))
				fmt.Printf("  Position: (%d, %d)\n", latest.X, latest.Y)
			}

			if logs, err := repo.RecentErrors(3); err == nil && len(logs) > 0 {
				fmt.Printf("\nRecent Errors:\n")
				for _, l := range logs {
					fmt.Printf("  %s  %-8s %s\n", l.Timestamp.Format("15:04:05"), l.Operation, l.ErrorMsg)
				}
			}
			return nil
		},
	}
}

func NewHistoryCmd(opts *globalOptions) *cobra.Command {
	var jsonOutput bool

	historyCmd := &cobra.Command{
		Use:       "history [day|week|month]",
		Short:     "Summarise pointer activity from the journal",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"day", "today", "week", "month"},
		RunE: func(cmd *cobra.Command, args []string) error {
			periodType := "day"
			if len(args) > 0 {
				periodType = args[0]
			}

			db, err := database.Connect(opts.cfg.Database.Path)
			if err != nil {
				return errors.Wrap(err, "failed to connect to database")
			}
			defer db.Close()

			if err := db.Initialize(); err != nil {
				return err
			}

			rep := reporter.New(database.NewRepository(db))
			report, err := rep.GenerateReport(periodType)
			if err != nil {
				return errors.Wrap(err, "failed to generate report")
			}

			if jsonOutput {
				out, err := rep.FormatReportJSON(report)
				if err != nil {
					return err
				}
				fmt.Println(out)
				return nil
			}

			fmt.Print(rep.FormatReportText(report))
			return nil
		},
	}

	historyCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the report as JSON")
	return historyCmd
}

func NewClearCmd(opts *globalOptions) *cobra.Command {
	var (
		yes       bool
		olderThan time.Duration
	)

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete journal entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan < 0 {
				return errors.New("--older-than must be positive")
			}
			if !yes && olderThan == 0 {
				fmt.Print("This will delete the whole pointer journal. Are you sure? (yes/no): ")
				var response string
				_, _ = fmt.Scanln(&response)

				if response != "yes" && response != "y" {
					fmt.Println("Operation cancelled")
					return nil
				}
			}

			db, err := database.Connect(opts.cfg.Database.Path)
			if err != nil {
				return errors.Wrap(err, "failed to connect to database")
			}
			defer db.Close()

			if err := db.Initialize(); err != nil {
				return err
			}

			repo := database.NewRepository(db)

			if olderThan > 0 {
				deleted, err := repo.DeleteOldEvents(time.Now().Add(-olderThan))
				if err != nil {
					return errors.Wrap(err, "failed to delete old entries")
				}
				fmt.Printf("Deleted %d entries older than %v\n", deleted, olderThan)
				return nil
			}

			if err := repo.Clear(); err != nil {
				return errors.Wrap(err, "failed to clear database")
			}

			fmt.Println("Journal cleared successfully")
			return nil
		},
	}

	clearCmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	clearCmd.Flags().DurationVar(&olderThan, "older-than", 0, "Only delete entries older than this, e.g. 720h")
	return clearCmd
}

func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s\n", appName, version)
			fmt.Printf("  commit: %s\n", commit)
			fmt.Printf("  built:  %s\n", date)
		},
	}
}
