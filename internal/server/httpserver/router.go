package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/yndnr/snapfold-go/internal/registry"
	"github.com/yndnr/snapfold-go/internal/telemetry/metric"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	// Handler serves the endpoints.
	Handler *Handler

	// Signer verifies identity cookies.
	Signer *CookieSigner

	// Registry resolves authenticated folders.
	Registry *registry.Registry

	// Metrics records HTTP instrumentation and serves /metrics.
	Metrics *metric.Metrics

	// Logger for request logging.
	Logger *slog.Logger

	// LoginRate is the sustained signup/login attempts per second per
	// client address; zero disables throttling.
	LoginRate float64

	// LoginBurst is the burst allowance on top of LoginRate.
	LoginBurst int
}

// NewRouter creates and configures the HTTP router with all routes and
// middleware.
func NewRouter(cfg *RouterConfig) http.Handler {
	h := cfg.Handler
	base := []Middleware{
		RequestID(cfg.Logger),
		Recover(cfg.Logger),
	}

	open := func(route string, fn http.HandlerFunc) http.Handler {
		mw := append([]Middleware{}, base...)
		mw = append(mw, Access(cfg.Logger, cfg.Metrics, route))
		return Chain(fn, mw...)
	}
	throttled := func(route string, fn http.HandlerFunc) http.Handler {
		mw := append([]Middleware{}, base...)
		mw = append(mw, Access(cfg.Logger, cfg.Metrics, route))
		if cfg.LoginRate > 0 {
			mw = append(mw, LoginRateLimit(cfg.LoginRate, cfg.LoginBurst))
		}
		return Chain(fn, mw...)
	}
	authed := func(route string, fn http.HandlerFunc) http.Handler {
		mw := append([]Middleware{}, base...)
		mw = append(mw, Access(cfg.Logger, cfg.Metrics, route))
		mw = append(mw, Auth(cfg.Signer, cfg.Registry))
		return Chain(fn, mw...)
	}

	mux := http.NewServeMux()

	// Account endpoints
	mux.Handle("POST /signup", throttled("signup", h.handleSignup))
	mux.Handle("POST /login", throttled("login", h.handleLogin))
	mux.Handle("POST /logout", open("logout", h.handleLogout))
	mux.Handle("GET /auth", authed("auth", h.handleAuth))

	// Message stream. No Access wrapper here: the status recorder would
	// hide http.Hijacker from the websocket upgrade.
	mux.Handle("GET /ws", Chain(http.HandlerFunc(h.handleWS),
		RequestID(cfg.Logger), Recover(cfg.Logger), Auth(cfg.Signer, cfg.Registry)))

	// File endpoints
	mux.Handle("POST /files", authed("upload", h.handleUpload))
	mux.Handle("GET /files", authed("download", h.handleDownload))

	// Operational endpoints
	mux.Handle("GET /healthz", open("healthz", h.handleHealth))
	mux.Handle("GET /metrics", Chain(cfg.Metrics.Handler(), base...))

	return mux
}
