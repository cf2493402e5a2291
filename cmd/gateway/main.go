package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/zeventbooks/MVP-EVENT-TOOLKIT-sub004/internal/config"
	"github.com/zeventbooks/MVP-EVENT-TOOLKIT-sub004/internal/debug"
	"github.com/zeventbooks/MVP-EVENT-TOOLKIT-sub004/internal/routing"
	"github.com/zeventbooks/MVP-EVENT-TOOLKIT-sub004/internal/server"
	"github.com/zeventbooks/MVP-EVENT-TOOLKIT-sub004/internal/storage"
	"github.com/zeventbooks/MVP-EVENT-TOOLKIT-sub004/internal/storage/memory"
	"github.com/zeventbooks/MVP-EVENT-TOOLKIT-sub004/internal/storage/sqlite"
	"github.com/zeventbooks/MVP-EVENT-TOOLKIT-sub004/internal/telemetry"
	"github.com/zeventbooks/MVP-EVENT-TOOLKIT-sub004/internal/upstream"
)

var configFile string

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "gateway",
		Short: "Edge gateway between clients and the event toolkit backends",
		Long: `The edge gateway routes each request to the legacy script-hosted
service or the native handler service, invokes it under a bounded
deadline, and guarantees the client always receives well-formed,
typed JSON regardless of what the backend returns.`,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "config.yaml", "path to config file")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(routesCmd())
	rootCmd.AddCommand(validateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			// Initialize structured logger
			logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelInfo,
			}))
			slog.SetDefault(logger)

			// Initialize OpenTelemetry
			shutdown, err := telemetry.InitTracer(server.ServiceName, logger)
			if err != nil {
				log.Fatalf("Failed to initialize tracer: %v", err)
			}
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
				}
			}()

			router, err := routing.New(cfg)
			if err != nil {
				return fmt.Errorf("failed to build router: %w", err)
			}

			timeout, err := cfg.Upstream.TimeoutDuration()
			if err != nil {
				return err
			}
			invoker, err := upstream.New(cfg.Backend.LegacyURL, cfg.Backend.NativeURL, timeout)
			if err != nil {
				return fmt.Errorf("failed to build invoker: %w", err)
			}

			defects, err := newDefectStore(cfg)
			if err != nil {
				return fmt.Errorf("failed to open defect store: %w", err)
			}
			defer defects.Close()

			srv := server.New(cfg.Server.Port, logger)
			srv.Router.Use(server.LegacyURLCompat)

			if cfg.Debug.Enabled {
				templates, err := debug.LoadDir(cfg.Templates.Dir)
				if err != nil {
					return fmt.Errorf("failed to load templates: %w", err)
				}
				srv.Router.Mount("/debug", debug.NewHandler(templates, router, defects).Routes())
				logger.Info("debug endpoints enabled",
					slog.Int("templates", len(templates.Names())))
			}

			gw := server.NewGateway(router, invoker, defects, logger)
			srv.Router.Handle("/*", gw)

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			logger.Info("gateway started",
				slog.String("mode", cfg.Backend.Mode),
				slog.String("environment", cfg.Environment),
				slog.Duration("upstream_timeout", timeout),
			)

			// Wait for shutdown signal
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return err
			case <-sigChan:
			}

			logger.Info("shutdown signal received, stopping gateway")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("shutdown error", slog.String("error", err.Error()))
				return err
			}

			logger.Info("gateway shutdown complete")
			return nil
		},
	}
}

func routesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "Print the compiled route table",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			router, err := routing.New(cfg)
			if err != nil {
				return fmt.Errorf("failed to build router: %w", err)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "MODE\t%s\n", router.Mode())
			fmt.Fprintln(w, "PREFIX\tBACKEND")
			for _, r := range router.Table().Routes() {
				fmt.Fprintf(w, "%s\t%s\n", r.Prefix, r.Backend)
			}
			fmt.Fprintln(w, "(default)\tlegacy")
			return w.Flush()
		},
	}
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			if _, err := routing.New(cfg); err != nil {
				return err
			}
			fmt.Printf("%s: OK (mode=%s, environment=%s)\n", configFile, cfg.Backend.Mode, cfg.Environment)
			return nil
		},
	}
}

func newDefectStore(cfg *config.Config) (storage.DefectStore, error) {
	switch cfg.Storage.Type {
	case "sqlite":
		return sqlite.New(cfg.Storage.SQLite.Path)
	case "none":
		return &storage.NopStore{}, nil
	default:
		return memory.New(), nil
	}
}
