package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	fitAuth "github.com/fitgoal/fitAuth"
	"github.com/fitgoal/fitAuth/httpapi"
	"github.com/fitgoal/fitAuth/internal/logging"
	promexport "github.com/fitgoal/fitAuth/metrics/export/prometheus"
	"github.com/fitgoal/fitAuth/store/postgres"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the authentication HTTP API",
		Long: `Start the HTTP API serving /auth/*, /metrics and /healthz.

auth.jwt_secret (at least 32 bytes), database.url and redis.addr are
required; serve refuses to start without them.`,
		RunE: runServe,
	}
	addServeFlags(cmd.Flags())
	return cmd
}

func addServeFlags(fs *pflag.FlagSet) {
	d := defaultServerConfig()
	fs.String("http.addr", d.HTTP.Addr, "listen address")
	fs.Bool("http.trust_proxy", d.HTTP.TrustProxy, "take the client IP from X-Forwarded-For")
	fs.String("database.url", d.Database.URL, "PostgreSQL connection URL")
	fs.Bool("database.auto_migrate", d.Database.AutoMigrate, "apply pending migrations on startup")
	fs.String("redis.addr", d.Redis.Addr, "Redis address")
	fs.String("log.level", d.Log.Level, "log level: debug, info, warn, error")
	fs.String("log.format", d.Log.Format, "log format: json or text")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(configFile, cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.validateServe(); err != nil {
		return err
	}

	logger, err := logging.New(os.Stderr, cfg.Log.Format, cfg.Log.Level)
	if err != nil {
		return oops.Code("CONFIG_INVALID").With("operation", "configure logging").Wrap(err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg, logger)
}

func serve(ctx context.Context, cfg serverConfig, logger logging.Logger) error {
	rdb := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{cfg.Redis.Addr},
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() { _ = rdb.Close() }()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return oops.Code("REDIS_CONNECT_FAILED").With("addr", cfg.Redis.Addr).Wrap(err)
	}

	if cfg.Database.AutoMigrate {
		if err := postgres.Migrate(ctx, cfg.Database.URL, postgres.Up); err != nil {
			return err
		}
		logger.Info(ctx, "migrations applied")
	}

	pool, err := postgres.Connect(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	engine, err := fitAuth.New().
		WithConfig(cfg.engineConfig()).
		WithRedis(rdb).
		WithAccountStore(postgres.New(pool)).
		WithAuditSink(fitAuth.NewLoggerSink(logger.With("component", "audit"))).
		WithLogger(logger.With("component", "engine")).
		Build()
	if err != nil {
		return oops.Code("ENGINE_BUILD_FAILED").Wrap(err)
	}
	defer engine.Close()

	logger.Warn(ctx, "no password reset notifier configured; reset requests will not deliver tokens")

	var apiOpts []httpapi.Option
	apiOpts = append(apiOpts, httpapi.WithLogger(logger.With("component", "http")))
	if cfg.HTTP.TrustProxy {
		apiOpts = append(apiOpts, httpapi.WithTrustedProxy())
	}
	if cfg.Auth.UniformAuthFailures {
		apiOpts = append(apiOpts, httpapi.WithUniformAuthFailures())
	}

	api := httpapi.New(engine, apiOpts...)
	router := api.Router()
	if cfg.Metrics.Enabled {
		router.Handle("/metrics", promexport.Handler(engine)).Methods(http.MethodGet)
	}
	router.HandleFunc("/healthz", healthz).Methods(http.MethodGet)

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		logger.Info(ctx, "http server started", "addr", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return oops.Code("HTTP_SERVE_FAILED").With("addr", cfg.HTTP.Addr).Wrap(err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info(context.Background(), "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(cfg))
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return oops.Code("HTTP_SHUTDOWN_FAILED").Wrap(err)
	}
	return nil
}

func shutdownTimeout(cfg serverConfig) time.Duration {
	if cfg.HTTP.ShutdownTimeout > 0 {
		return cfg.HTTP.ShutdownTimeout
	}
	return 15 * time.Second
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}
