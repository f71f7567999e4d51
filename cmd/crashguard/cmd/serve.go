package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hugo-lorenzo-mato/crashguard/internal/app"
	"github.com/hugo-lorenzo-mato/crashguard/internal/config"
	"github.com/hugo-lorenzo-mato/crashguard/internal/logging"
	"github.com/hugo-lorenzo-mato/crashguard/internal/recovery"
)

var serveCmd = &cobra.Command{
	Use:   "serve [crashRecovery:<pid>]",
	Short: "Run the startup crash check and hold the running marker",
	Long: `Run the startup crash check, then write the running marker and keep it
until SIGINT or SIGTERM. The marker is removed on orderly shutdown; if the
process dies instead, the next start reports an unexpected shutdown.

Examples:
  # Normal start
  crashguard serve

  # Launcher restart after the process with pid 4242 crashed
  crashguard serve crashRecovery:4242

  # Also expose the HTTP status API and /metrics
  crashguard serve --http --port 9898`,
	Args: cobra.ArbitraryArgs,
	RunE: runServe,
}

var (
	serveHTTP bool
	serveHost string
	servePort int
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&serveHTTP, "http", false,
		"start the HTTP status server")
	serveCmd.Flags().StringVar(&serveHost, "host", "localhost",
		"host address to bind to")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 9898,
		"port to listen on")

	_ = viper.BindPFlag("server.enabled", serveCmd.Flags().Lookup("http"))
	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}

func runServe(cmd *cobra.Command, args []string) error {
	loader := newLoader()
	cfg, err := loadConfig(loader)
	if err != nil {
		return err
	}
	logger := newLogger(cfg, cmd.ErrOrStderr())

	a, err := app.New(cfg, buildInfo(), logger, appOptions())
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("closing stores", slog.String("error", closeErr.Error()))
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := a.StartupCheck(ctx, args)
	printOutcome(cmd.OutOrStdout(), out)

	handle := a.StartMarker()
	defer handle.Release()

	watchConfig(loader, logger)

	if cfg.Server.Enabled {
		server := a.Server()
		if err := server.Start(); err != nil {
			return fmt.Errorf("starting server: %w", err)
		}
		defer func() {
			if err := server.Shutdown(context.Background()); err != nil {
				logger.Warn("server shutdown", slog.String("error", err.Error()))
			}
		}()
	}

	if err := a.WriteMetrics(); err != nil {
		logger.Warn("writing metrics textfile", slog.String("error", err.Error()))
	}

	<-ctx.Done()
	logger.Info("shutting down")

	if err := a.WriteMetrics(); err != nil {
		logger.Warn("writing metrics textfile", slog.String("error", err.Error()))
	}
	return nil
}

// watchConfig applies log level changes from the config file without a restart.
func watchConfig(loader *config.Loader, logger *logging.Logger) {
	v := loader.Viper()
	if v.ConfigFileUsed() == "" {
		return
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := loader.Decode()
		if err != nil {
			logger.Warn("reloading config", slog.String("error", err.Error()))
			return
		}
		logger.SetLevel(cfg.Log.Level)
		logger.Info("config reloaded", slog.String("file", e.Name), slog.String("log_level", cfg.Log.Level))
	})
	v.WatchConfig()
}

func printOutcome(w io.Writer, out recovery.Outcome) {
	switch out.Mode {
	case recovery.ModeRecovery:
		fmt.Fprintf(w, "Recovered from crash of PID %s (crashes in window: %d)\n", out.PID, out.RecentCrashes)
		fmt.Fprintf(w, "  dump:     %s\n", out.DumpPath)
		if out.ArchivedPath != "" {
			fmt.Fprintf(w, "  archived: %s\n", out.ArchivedPath)
		}
	case recovery.ModeUnexpectedShutdown:
		fmt.Fprintf(w, "Previous run shut down unexpectedly (crashes in window: %d)\n", out.RecentCrashes)
	default:
		fmt.Fprintln(w, "Clean start")
	}
	if out.Escalated {
		fmt.Fprintln(w, "Frequent crashes detected; alert raised")
	}
}
