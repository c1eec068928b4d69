package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/upb/line-llm-relay/app"
	"github.com/upb/line-llm-relay/config"
	"github.com/upb/line-llm-relay/routes"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, out io.Writer) int {
	fs := flag.NewFlagSet("relay", flag.ContinueOnError)
	fs.SetOutput(out)

	issueToken := fs.String("issue-operator-token", "", "Print an operator token for the given subject and exit")
	tokenTTL := fs.Duration("token-ttl", 24*time.Hour, "Lifetime of a token printed by -issue-operator-token")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	logger, err := initLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.New(ctx)
	if err != nil {
		logger.Error("failed to load configuration", zap.Error(err))
		return 1
	}

	deps, err := app.NewDependencies(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize dependencies", zap.Error(err))
		return 1
	}
	defer func() { _ = deps.Close(context.Background()) }()

	if *issueToken != "" {
		return printOperatorToken(deps, *issueToken, *tokenTTL, out, logger)
	}

	if cfg.Relay.ListModelsOnStart {
		deps.LogAvailableModels(ctx)
	}

	if err := serve(ctx, cfg, routes.SetupRoutes(deps), logger); err != nil {
		logger.Error("server error", zap.Error(err))
		return 1
	}
	return 0
}

func printOperatorToken(deps *app.Dependencies, subject string, ttl time.Duration, out io.Writer, logger *zap.Logger) int {
	if deps.Operator == nil {
		logger.Error("OPERATOR_JWT_SECRET is not set, cannot issue tokens")
		return 1
	}
	token, err := deps.Operator.IssueToken(subject, ttl)
	if err != nil {
		logger.Error("failed to issue operator token", zap.Error(err))
		return 1
	}
	fmt.Fprintln(out, token) //nolint:errcheck
	return 0
}

// serve runs the HTTP server until ctx is cancelled, then drains it
func serve(ctx context.Context, cfg *config.Config, handler http.Handler, logger *zap.Logger) error {
	srv := &http.Server{
		Addr:              cfg.Server.Address(),
		Handler:           handler,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("relay listening",
			zap.String("address", srv.Addr),
			zap.String("environment", cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server", zap.Duration("timeout", cfg.Server.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// initLogger builds the process logger from LOG_LEVEL and LOG_FORMAT
func initLogger() (*zap.Logger, error) {
	levelName := os.Getenv("LOG_LEVEL")
	if levelName == "" {
		levelName = "info"
	}
	level, err := zapcore.ParseLevel(levelName)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", levelName, err)
	}

	var zapCfg zap.Config
	if os.Getenv("LOG_FORMAT") == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
		zapCfg.EncoderConfig.TimeKey = "timestamp"
		zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build(zap.Fields(zap.String("service", "line-llm-relay")))
}
