package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	serveHost  string
	servePort  int
	serveWatch bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dojo HTTP server",
	Long: `Start the dojo HTTP server in the foreground.
The server loads the catalog, connects every configured backend and serves
until it receives SIGINT or SIGTERM, then drains in-flight requests.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "listen host, overrides server.host")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port, overrides server.port")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "reload the catalog file when it changes")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveHost != "" {
		cfg.Server.Host = serveHost
	}
	if servePort != 0 {
		cfg.Server.Port = servePort
	}
	if serveWatch {
		if cfg.Catalog.Path == "" {
			return fmt.Errorf("--watch requires catalog.path in the config")
		}
		cfg.Catalog.Watch = true
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	l, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer l.Close()
	log := l.GetZerolog()

	a, err := newApp(cfg, log)
	if err != nil {
		return err
	}
	if err := a.start(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.Start()
	}()

	log.Info().
		Str("coordinator", a.coordinator.Name()).
		Int("workers", a.registry.Count()).
		Strs("backends", backendNames(cfg)).
		Msg("Dojo ready")

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("Shutdown signal received")
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Shutdown finished with errors")
		serveErr = errors.Join(serveErr, err)
	} else {
		log.Info().Msg("Dojo stopped")
	}
	return serveErr
}
