// Command accountd serves the account API backed by PostgreSQL and Redis.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/MrEthical07/goAccount/cookie"
	"github.com/MrEthical07/goAccount/httpapi"
	"github.com/MrEthical07/goAccount/metrics/export/prometheus"
	"github.com/MrEthical07/goAccount/notify"
	"github.com/MrEthical07/goAccount/store/postgres"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	cfg, err := loadConfig()
	if err != nil {
		log.Error("config error", "error", err)
		os.Exit(1)
	}

	if err := run(cfg, log); err != nil {
		log.Error("accountd stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	db, err := postgres.Open(ctx, cfg.DatabaseDSN, postgres.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.MigrateOnStart {
		if err := postgres.Migrate(ctx, db); err != nil {
			return err
		}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}

	logger := goAccount.NewSlogLogger(log)

	var notifier goAccount.Notifier = notify.NewLogSender(logger)
	if cfg.SMTPHost != "" {
		sender, err := notify.NewSMTPSender(cfg.smtpConfig())
		if err != nil {
			return err
		}
		notifier = sender
	}

	builder := goAccount.New().
		WithConfig(cfg.engineConfig()).
		WithRedis(rdb).
		WithIdentityStore(postgres.New(db)).
		WithNotifier(notifier).
		WithLogger(logger)
	if cfg.AuditLog {
		builder.WithAuditSink(goAccount.NewJSONWriterSink(os.Stdout))
	}
	engine, err := builder.Build()
	if err != nil {
		return fmt.Errorf("engine build: %w", err)
	}
	defer engine.Close()

	if cfg.OTelMetricsInterval > 0 {
		stopOTel, err := startOTel(os.Stdout, cfg.OTelMetricsInterval, engine)
		if err != nil {
			return fmt.Errorf("otel metrics: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			if err := stopOTel(shutdownCtx); err != nil {
				log.Warn("otel metrics shutdown", "error", err)
			}
		}()
	}

	signer, err := cookie.NewSigner(cookie.Config{
		Domain:        cfg.CookieDomain,
		Secure:        cfg.CookieSecure,
		TTL:           engine.SessionTTL(),
		SigningMethod: cookie.MethodHS256,
		PrivateKey:    []byte(cfg.CookieSigningKey),
		Issuer:        "accountd",
	})
	if err != nil {
		return err
	}

	router := httpapi.NewRouter(httpapi.NewHandler(engine, signer, logger), prometheus.New(engine).Handler())
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
