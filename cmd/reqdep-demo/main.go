// Command reqdep-demo serves a handful of endpoints showing request-scoped
// dependency injection: shared per-request values, scoped resources, input
// schemas chosen by union and background tasks.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gburgyan/go-reqdep/background"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "reqdep-demo",
		Short:         "Demo server for request-scoped dependency injection",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCommand(), newRoutesCommand())
	return root
}

type serveFlags struct {
	config  string
	addr    string
	workers int
	verbose bool
}

func newServeCommand() *cobra.Command {
	var flags serveFlags
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the demo HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.resolve(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	cmd.Flags().StringVarP(&flags.config, "config", "c", "", "path to a YAML config file")
	cmd.Flags().StringVar(&flags.addr, "addr", "", "listen address, overrides the config file")
	cmd.Flags().IntVar(&flags.workers, "workers", 0, "background workers, overrides the config file")
	cmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "log at debug level")
	return cmd
}

// resolve loads the config file and applies the flags that were set.
func (f serveFlags) resolve(cmd *cobra.Command) (Config, error) {
	cfg, err := loadConfig(f.config)
	if err != nil {
		return cfg, err
	}
	if cmd.Flags().Changed("addr") {
		cfg.Addr = f.addr
	}
	if cmd.Flags().Changed("workers") {
		cfg.Pool.Workers = f.workers
	}
	if f.verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, cfg.validate()
}

func newRoutesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "List the demo endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pool := background.New(background.Config{Workers: 1})
			defer pool.Shutdown(context.Background())

			r := newRouter(defaultConfig(), zap.NewNop(), pool, prometheus.NewRegistry())
			for _, rt := range r.Routes() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-8v %-12s %s\n", rt.Methods(), rt.Name(), rt.Path())
			}
			return nil
		},
	}
}

func serve(ctx context.Context, cfg Config) error {
	logger, err := cfg.Log.build()
	if err != nil {
		return err
	}
	defer logger.Sync()

	pool := background.New(cfg.Pool, background.WithLogger(logger.Named("background")))
	registry := prometheus.NewRegistry()
	r := newRouter(cfg, logger, pool, registry)
	r.Mux().Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Addr))
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown", zap.Error(err))
	}
	return pool.Shutdown(shutdownCtx)
}
