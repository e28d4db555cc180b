package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"orgaudit/internal/history"
	"orgaudit/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve audit history over HTTP",
	Long: `Starts a local web server exposing recorded audit runs and their
violations as JSON, plus rendered violation detail pages.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Int("port", 0, "port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if port, _ := cmd.Flags().GetInt("port"); port > 0 {
		cfg.Server.Port = port
	}

	database, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	srv := server.New(server.Config{
		Port:     cfg.Server.Port,
		Org:      cfg.Org,
		AllowAll: cfg.Server.AllowAllOrigins,
	}, history.NewStore(database))

	// Shut down cleanly on SIGINT/SIGTERM.
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-done:
		fmt.Fprintln(os.Stderr, "Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
	}
	return nil
}
