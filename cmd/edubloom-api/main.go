package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/edubloom/edubloom-api/internal/cache"
	"github.com/edubloom/edubloom-api/internal/config"
	"github.com/edubloom/edubloom-api/internal/http/handlers"
	"github.com/edubloom/edubloom-api/internal/metrics"
	"github.com/edubloom/edubloom-api/internal/security"
	"github.com/edubloom/edubloom-api/internal/service"
	"github.com/edubloom/edubloom-api/internal/storage"
	"github.com/edubloom/edubloom-api/internal/storage/postgres"
	"github.com/edubloom/edubloom-api/internal/tokens"

	edubloomhttp "github.com/edubloom/edubloom-api/internal/http"
)

// Константы для определения окружения.
const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

const (
	janitorPeriod   = 30 * time.Minute
	shutdownTimeout = 10 * time.Second
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting application", "env", cfg.Env)

	if err := run(cfg, log); err != nil {
		log.Error("service_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}

	log.Info("service_stopped")
}

func run(cfg *config.Config, log *slog.Logger) error {
	// Корневой контекст по сигналам.
	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	// Подключение к БД c таймаутом.
	dbCtx, dbCancel := context.WithTimeout(rootCtx, 10*time.Second)
	str, err := postgres.New(dbCtx, cfg.DB.DatabaseURL)
	dbCancel()
	if err != nil {
		log.Error("postgres_connect_failed", slog.String("err", err.Error()))
		return err
	}
	defer str.Close()
	log.Info("postgres_connected")

	issuer, err := tokens.NewIssuer(cfg.Auth)
	if err != nil {
		return err
	}

	hasher := security.NewArgon2Hasher(security.ParamsFromConfig(cfg.Argon2))

	srvc, err := service.New(str, hasher, issuer)
	if err != nil {
		return err
	}

	deps := []pinger{srvc}

	// Denylist access-токенов подключается, только если задан Redis.
	if cfg.Redis.RedisURL != "" {
		redisCtx, redisCancel := context.WithTimeout(rootCtx, 5*time.Second)
		deny, err := cache.NewDenylist(redisCtx, cfg.Redis.RedisURL, cfg.Redis.Prefix)
		redisCancel()
		if err != nil {
			log.Error("redis_connect_failed", slog.String("err", err.Error()))
			return err
		}
		defer deny.Close()

		srvc.SetDenylist(deny)
		deps = append(deps, deny)
		log.Info("redis_connected")
	} else {
		log.Warn("denylist_disabled")
	}
	log.Info("service_initialized")

	if email := cfg.Bootstrap.SuperAdminEmail; email != "" {
		created, err := srvc.BootstrapSuperAdmin(rootCtx, email, cfg.Bootstrap.SuperAdminPassword, cfg.Bootstrap.SuperAdminName)
		if err != nil {
			log.Error("super_admin_bootstrap_failed", slog.String("err", err.Error()))
			return err
		}
		if !created {
			log.Info("super_admin_exists")
		}
	}

	router, err := edubloomhttp.NewRouter(srvc, edubloomhttp.Options{
		Logger:        log,
		Timeout:       cfg.Timeouts.Service,
		BasePath:      "/api/v1",
		RateLimit:     cfg.RateLimit.Rate,
		CORSOrigins:   cfg.CORS.AllowedOrigins,
		IsDevelopment: cfg.Env != envProd,
		Cookie: handlers.CookieOptions{
			Name:   cfg.Auth.CookieName,
			Path:   cfg.Auth.CookiePath,
			Secure: cfg.Auth.CookieSecure || cfg.Env == envProd,
			TTL:    cfg.Auth.RefreshTokenTTL,
		},
	})
	if err != nil {
		return err
	}

	var ready atomic.Bool
	mountProbes(router, &ready, deps...)

	httpAddr := cfg.HTTP.Addr()
	httpSrv := &http.Server{
		Addr:              httpAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Фоновая очистка просроченных сессий.
	startSessionJanitor(rootCtx, str, log, janitorPeriod)

	serveErrCh := make(chan error, 1)
	go func() {
		log.Info("http_listen_start", slog.String("addr", httpAddr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
		}
		close(serveErrCh)
	}()

	ready.Store(true)

	// Ожидание сигнала завершения или фатальной ошибки сервера.
	var serveErr error
	select {
	case <-rootCtx.Done():
		log.Info("shutdown_requested")
	case serveErr = <-serveErrCh:
		if serveErr != nil {
			log.Error("http_serve_failed", slog.String("err", serveErr.Error()))
		}
	}

	ready.Store(false)

	// Graceful stop с таймаутом.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_force_stop", slog.String("err", err.Error()))
		_ = httpSrv.Close()
	} else {
		log.Info("http_stopped")
	}

	return serveErr
}

// pinger — проверка готовности зависимостей.
type pinger interface {
	Ping(ctx context.Context) error
}

// mountProbes вешает /livez, /healthz и /metrics на корневой роутер.
// /healthz отвечает 200, только когда сервис поднят и все зависимости доступны.
func mountProbes(r chi.Router, ready *atomic.Bool, deps ...pinger) {
	r.Get("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if !ready.Load() {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}

		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()
		for _, d := range deps {
			if err := d.Ping(ctx); err != nil {
				http.Error(w, "not ready", http.StatusServiceUnavailable)
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Handle("/metrics", promhttp.Handler())
}

// setupLogger настраивает slog по окружению.
func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	}

	return log
}

// startSessionJanitor запускает фоновую задачу, которая периодически удаляет
// просроченные сессии из хранилища.
func startSessionJanitor(ctx context.Context, st storage.SessionStorage, log *slog.Logger, period time.Duration) {
	if period <= 0 {
		return
	}

	go func() {
		t := time.NewTicker(period)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				sweepExpiredSessions(ctx, st, log, time.Now().UTC())
			}
		}
	}()
}

func sweepExpiredSessions(ctx context.Context, st storage.SessionStorage, log *slog.Logger, now time.Time) {
	n, err := st.DeleteExpiredSessions(ctx, now)
	if err != nil {
		log.Error("session_janitor_failed", slog.String("err", err.Error()))
		return
	}

	metrics.JanitorDeleted(n)
	if n > 0 {
		log.Info("session_janitor_swept", slog.Int64("deleted", n))
	}
}
