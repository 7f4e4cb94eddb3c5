// Command snapzyd runs the Snapzy auth service: Postgres-backed account
// store, SMTP notifier, optional Redis issuance guard, REST surface on chi.
//
// Configuration is environment-driven; a .env file in the working directory
// is loaded first when present.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/snapzy-app/snapzy"
	"github.com/snapzy-app/snapzy/httpapi"
	"github.com/snapzy-app/snapzy/mailer"
	"github.com/snapzy-app/snapzy/store/pgstore"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	addr := envOr("HTTP_ADDR", ":8080")
	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		return errors.New("DATABASE_DSN is required")
	}
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return errors.New("JWT_SECRET is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := pgstore.Open(ctx, dsn)
	if err != nil {
		return err
	}
	defer store.Close()
	log.Info("postgres connected")

	notifier := mailer.New(mailer.Config{
		Host:     envOr("SMTP_HOST", "localhost"),
		Port:     envIntOr("SMTP_PORT", 587),
		User:     os.Getenv("SMTP_USER"),
		Password: os.Getenv("SMTP_PASS"),
		From:     os.Getenv("SMTP_FROM"),
		AppName:  envOr("APP_NAME", "Snapzy"),
	})

	cfg := snapzy.DefaultConfig()
	cfg.Token.Secret = []byte(secret)
	if ttl := os.Getenv("OTP_TTL"); ttl != "" {
		d, err := time.ParseDuration(ttl)
		if err != nil {
			return errors.New("OTP_TTL must be a duration like 10m")
		}
		cfg.OTP.TTL = d
	}

	builder := snapzy.New().
		WithConfig(cfg).
		WithStore(store).
		WithNotifier(notifier).
		WithAuditSink(snapzy.NewJSONWriterSink(os.Stdout))

	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     redisAddr,
			Password: os.Getenv("REDIS_PASS"),
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("redis unreachable, issuance guard disabled", "err", err)
		} else {
			builder.WithRedis(rdb)
			log.Info("redis connected, issuance guard enabled")
		}
	}

	engine, err := builder.Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	origins := splitList(os.Getenv("CORS_ORIGINS"))
	handler := httpapi.New(engine, log)

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler.Router(origins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
