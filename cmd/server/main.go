package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/daoninhthai/crm/internal/config"
	"github.com/daoninhthai/crm/internal/core"
	"github.com/daoninhthai/crm/internal/database"
	"github.com/daoninhthai/crm/internal/kv"
	"github.com/daoninhthai/crm/internal/logging"
	"github.com/daoninhthai/crm/internal/mail"
	"github.com/daoninhthai/crm/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to open store", "driver", cfg.Database.Driver, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	templates, err := openTemplates(ctx, cfg)
	if err != nil {
		slog.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer templates.Close()

	var mailer core.EmailSender = mail.NewLogSender(nil)
	if cfg.SMTP.Host != "" {
		mailer = mail.NewSMTPSender(cfg.SMTP)
		slog.Info("smtp configured", "host", cfg.SMTP.Host, "port", cfg.SMTP.Port)
	} else {
		slog.Warn("SMTP_HOST not set, report emails will only be logged")
	}

	service := core.NewService(store, templates, mailer, cfg)
	server := web.NewServer(service, cfg)

	// Background report jobs stop with the process context.
	go service.StartReportScheduler(ctx)

	go func() {
		<-ctx.Done()
		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if status := service.ImportLimiterStatus(); status.Active > 0 {
			slog.Info("waiting for imports to complete", "active", status.Active)
			if err := service.WaitForImports(shutdownCtx); err != nil {
				slog.Warn("imports did not complete in time", "error", err)
			} else {
				slog.Info("all imports completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		return
	}
	slog.Info("server stopped")
}

// openStore connects the configured persistence driver.
func openStore(ctx context.Context, cfg *config.Config) (core.Store, error) {
	if strings.EqualFold(cfg.Database.Driver, "memory") {
		slog.Warn("using in-memory store, data is lost on restart")
		return core.NewMemoryStore(), nil
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, err
	}
	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	if u, err := url.Parse(cfg.Database.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	}

	if cfg.Database.Migrate {
		if err := database.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		slog.Info("database schema applied")
	}
	return core.NewPostgresStore(pool), nil
}

// openTemplates returns the email template store: Redis when REDIS_URL is
// set, otherwise process memory.
func openTemplates(ctx context.Context, cfg *config.Config) (kv.Store, error) {
	if cfg.Redis.URL == "" {
		slog.Info("REDIS_URL not set, email templates kept in memory")
		return kv.NewMemory(), nil
	}
	return kv.NewRedis(ctx, cfg.Redis.URL, cfg.Redis.Namespace)
}
