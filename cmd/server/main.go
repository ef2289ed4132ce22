package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/outguess/backend/internal/config"
	"github.com/outguess/backend/internal/httpapi"
	"github.com/outguess/backend/internal/registry"
	"github.com/outguess/backend/internal/room"
)

const releaseVersion = "0.1.0"

func main() {
	// .env is optional; when present its values are picked up through
	// viper's env binding below.
	_ = godotenv.Load()

	cfg := config.Default()
	cobra.CheckErr(newCmd(&cfg).Execute())
}

func newCmd(cfg *config.Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("OUTGUESS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "outguess-server",
		Short:         "Realtime server for the outguess party game.",
		Args:          cobra.ExactArgs(0),
		Version:       releaseVersion,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&cfg.Bind, "bind", "b", cfg.Bind, "address to bind to (env: OUTGUESS_BIND)")
	fs.IntVarP(&cfg.Port, "port", "p", cfg.Port, "port to listen on (env: OUTGUESS_PORT)")
	fs.IntVar(&cfg.CollectSeconds, "collect-seconds", cfg.CollectSeconds, "length of each pick collection window (env: OUTGUESS_COLLECT_SECONDS)")
	fs.DurationVar(&cfg.CleanupDelay, "cleanup-delay", cfg.CleanupDelay, "grace period before finished rooms are removed (env: OUTGUESS_CLEANUP_DELAY)")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", false, "enable debug logging (env: OUTGUESS_VERBOSE)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetVersionTemplate("outguess-server v{{.Version}}\n")

	return cmd
}

func run(parent context.Context, cfg *config.Config) error {
	log, err := newLogger(cfg.Verbose)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := room.DefaultOptions()
	opts.Game.CollectSeconds = cfg.CollectSeconds
	opts.CleanupDelay = cfg.CleanupDelay

	reg := registry.New()

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           httpapi.Routes(ctx, log, reg, opts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
