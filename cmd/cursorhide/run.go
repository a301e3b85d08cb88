package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cursorhide/cursorhide/internal/config"
	"github.com/cursorhide/cursorhide/internal/controller"
	"github.com/cursorhide/cursorhide/internal/daemon"
	"github.com/cursorhide/cursorhide/internal/database"
	"github.com/cursorhide/cursorhide/internal/logging"
	"github.com/cursorhide/cursorhide/internal/web"
	"github.com/cursorhide/cursorhide/pkg/backend"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// newBackend is swapped out in tests
var newBackend = backend.New

// NewStartCmd runs the controller in a detached background process
func NewStartCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the controller in the background",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			if err := cfg.Validate(); err != nil {
				return errors.Wrap(err, "invalid configuration")
			}

			if daemon.IsChild() {
				closer := logging.SetupFile(cfg.Log.File, cfg.Log.Level)
				defer closer.Close()
				return runController(cfg, false)
			}

			dm := daemon.New(cfg.Daemon.PIDFile)
			running, pid, err := dm.IsRunning()
			if err != nil {
				return errors.Wrap(err, "failed to check daemon status")
			}
			if running {
				return errors.Wrapf(daemon.ErrAlreadyRunning, "PID %d", pid)
			}

			pid, err = daemon.Daemonize()
			if err != nil {
				return err
			}
			fmt.Printf("Daemon started successfully (PID: %d)\n", pid)
			fmt.Printf("Logs: %s\n", cfg.Log.File)
			return nil
		},
	}
}

// NewServeCmd runs the controller in the foreground together with the web API
func NewServeCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the controller with the local web status API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.cfg.Validate(); err != nil {
				return errors.Wrap(err, "invalid configuration")
			}
			return runController(opts.cfg, true)
		},
	}
}

// runController owns the controller lifecycle until SIGINT or SIGTERM.
// Every exit path restores the pointer before the backend is closed.
func runController(cfg *config.Config, withWeb bool) error {
	dm := daemon.New(cfg.Daemon.PIDFile)
	if err := dm.Acquire(); err != nil {
		return err
	}
	defer func() {
		if err := dm.Release(); err != nil {
			logrus.Warnf("Failed to release instance lock: %v", err)
		}
	}()

	svc, err := newBackend()
	if err != nil {
		return errors.Wrap(err, "failed to initialize pointer backend")
	}
	defer svc.Close()
	logrus.Infof("Pointer backend initialized: %s", svc.DisplayServer())

	var journal controller.Journal
	db, repo := openJournal(cfg)
	if repo != nil {
		defer db.Close()
		journal = repo
	}

	ctrl := controller.New(cfg, svc, journal)
	defer ctrl.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	serveErr := make(chan error, 1)
	if withWeb {
		server := web.NewServer(cfg, ctrl, repo)
		go func() {
			if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
				cancel()
			}
		}()
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logrus.Errorf("Error shutting down web server: %v", err)
			}
		}()
		logrus.Infof("Web API available at: http://%s", server.GetAddress())
	}

	logrus.Infof("Configuration:\n%s", cfg.String())

	if err := ctrl.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	select {
	case err := <-serveErr:
		return errors.Wrap(err, "web server failed")
	default:
	}

	logrus.Info("Received shutdown signal")
	return nil
}

// openJournal opens the journal when enabled. Failures only disable it.
func openJournal(cfg *config.Config) (*database.DB, *database.Repository) {
	if !cfg.Database.Enabled {
		logrus.Info("Journal disabled")
		return nil, nil
	}

	db, err := database.Connect(cfg.Database.Path)
	if err != nil {
		logrus.Warnf("Journal unavailable: %v", err)
		return nil, nil
	}

	if err := db.Initialize(); err != nil {
		logrus.Warnf("Journal unavailable: %v", err)
		_ = db.Close()
		return nil, nil
	}

	return db, database.NewRepository(db)
}
