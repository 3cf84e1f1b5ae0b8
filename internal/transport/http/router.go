package http

import (
	"context"
	"net/http"
	"time"

	"github.com/crm-web/internal/config"
	"github.com/crm-web/internal/domain"
	"github.com/crm-web/internal/transport/http/handler"
	appmiddleware "github.com/crm-web/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"
)

// SocketPath is where verification pages open their view socket.
const SocketPath = "/ws/verify-email"

// Socket is the view host mounted at SocketPath.
type Socket interface {
	http.Handler
	Close(ctx context.Context) error
}

// NewRouter builds and returns the application router. ctx bounds background
// work started for the router, such as limiter cleanup.
func NewRouter(ctx context.Context, cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(appmiddleware.RequestLogger(deps.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(appmiddleware.LowerPath)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Applied to the form posts and the view socket, the routes that reach the backend.
	var sensitiveRL func(http.Handler) http.Handler
	if deps.Counter != nil {
		window := time.Duration(float64(cfg.RateLimitBurst) / cfg.RateLimitRPS * float64(time.Second))
		sensitiveRL = appmiddleware.Limit(
			appmiddleware.NewSharedRateLimiter(deps.Counter, "crm-web:rl", cfg.RateLimitBurst, window),
			deps.Logger,
		)
	} else {
		sensitiveRL = appmiddleware.NewRateLimiter(ctx, rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst, deps.Logger).Limit
	}

	pages := handler.MustPages()
	homeH := handler.NewHomeHandler(pages)
	accountH := handler.NewAccountHandler(deps.Account, pages)
	verifyH := handler.NewVerifyHandler(pages, SocketPath)
	healthH := handler.NewHealthHandler(deps.Backend)

	r.Get(domain.RouteHome, homeH.Home)
	r.Get(domain.RouteRegister, accountH.RegisterForm)
	r.With(sensitiveRL).Post(domain.RouteRegister, accountH.Register)
	r.Get(domain.RouteLogin, accountH.LoginForm)
	r.With(sensitiveRL).Post(domain.RouteLogin, accountH.Login)
	r.Get(domain.RouteVerifyEmail, verifyH.Page)
	r.With(sensitiveRL).Get(SocketPath, deps.Views.ServeHTTP)
	r.Get("/health-check/{action}", healthH.Ping)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	return r
}
