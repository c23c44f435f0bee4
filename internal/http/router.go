package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/edubloom/edubloom-api/internal/errors"
	"github.com/edubloom/edubloom-api/internal/http/handlers"
	"github.com/edubloom/edubloom-api/internal/http/middleware"
	"github.com/edubloom/edubloom-api/internal/models"
	"github.com/edubloom/edubloom-api/internal/service"
)

// Service — всё, что нужно роутеру от сервисного слоя.
type Service interface {
	handlers.Service
	middleware.Authenticator
}

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger        *slog.Logger
	Timeout       time.Duration
	BasePath      string // например, "/api/v1"; если пустой — роуты регистрируются на корне.
	RateLimit     string // формат ulule/limiter ("100-M"); пустой — без лимита.
	CORSOrigins   []string
	IsDevelopment bool
	Cookie        handlers.CookieOptions
}

// NewRouter собирает chi-роутер с подключёнными middleware и REST-роутами.
// Служебные эндпойнты (/livez, /healthz, /metrics) вешает вызывающий.
func NewRouter(svc Service, opts Options) (chi.Router, error) {
	const op = "http.NewRouter"

	limit, err := middleware.RateLimit(opts.RateLimit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(),            // безопасно ловим паники
		middleware.RequestID(),          // формируем/прокидываем X-Request-Id (до логирования!)
		middleware.Logging(opts.Logger), // кладём request-scoped логгер в контекст и логируем
		middleware.Metrics(),
		middleware.Secure(middleware.SecureOptions(opts.IsDevelopment)),
		middleware.CORS(opts.CORSOrigins),
	)

	root.NotFound(func(w http.ResponseWriter, r *http.Request) {
		apierrors.WriteError(w, r, service.ErrNotFound)
	})

	h := handlers.New(svc, opts.Cookie)

	api := chi.NewRouter()
	api.Use(limit)
	if opts.Timeout > 0 {
		api.Use(middleware.Timeout(opts.Timeout)) // общий дедлайн запроса
	}
	registerRoutes(api, h, svc)

	if opts.BasePath != "" {
		root.Mount(opts.BasePath, api)
	} else {
		root.Mount("/", api)
	}

	return root, nil
}

// registerRoutes — единая точка регистрации всех REST-эндпойнтов.
func registerRoutes(r chi.Router, h *handlers.Handlers, auth middleware.Authenticator) {
	guard := middleware.RequireAuth(auth)
	adminOnly := middleware.RequireRoles(models.RoleAdmin)

	// auth
	r.Post("/auth/login", h.Login)
	r.Post("/auth/refresh", h.Refresh)
	r.Post("/auth/logout", h.Logout)

	r.Group(func(r chi.Router) {
		r.Use(guard)

		r.Post("/auth/logout-all", h.LogoutAll)
		r.Get("/auth/me", h.Me)
		r.Get("/users/{id}", h.GetUser)

		r.Group(func(r chi.Router) {
			r.Use(adminOnly)

			r.Post("/auth/register", h.Register)
			r.Get("/users", h.ListUsers)
			r.Patch("/users/{id}", h.UpdateUser)
			r.Delete("/users/{id}", h.DeleteUser)
		})
	})
}
