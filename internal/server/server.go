package server

import (
	"log/slog"
	"net/http"
	"net/netip"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"sixtylens/internal/auth"
	"sixtylens/internal/config"
	"sixtylens/internal/logging"
)

type Server struct {
	Auth           *auth.Service
	Cookies        auth.CookieTransport
	Config         config.Config
	Logger         *slog.Logger
	trustedProxies []netip.Prefix
}

func NewServer(cfg config.Config, svc *auth.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	sessions := svc.Sessions()
	return &Server{
		Auth: svc,
		Cookies: auth.CookieTransport{
			Secure:     cfg.Token.CookieSecure,
			AccessTTL:  sessions.AccessTTL(),
			RefreshTTL: sessions.RefreshTTL(),
		},
		Config:         cfg,
		Logger:         logger,
		trustedProxies: parseProxyPrefixes(cfg.TrustedProxies),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	formatter := &middleware.DefaultLogFormatter{
		Logger:  logging.StdLogger(s.Logger),
		NoColor: true,
	}
	r.Use(middleware.RequestLogger(formatter))
	r.Use(middleware.Recoverer)
	r.Use(secureHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.Config.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(s.clientInfo)

	route := func(method, path string, h http.HandlerFunc) {
		r.With(s.authenticate(accessMode(method, path))).Method(method, path, h)
	}

	route(http.MethodGet, "/", s.handleRoot)
	route(http.MethodGet, "/health", s.handleHealth)

	route(http.MethodPost, "/api/auth/signup", s.handleSignup)
	route(http.MethodPost, "/api/auth/login", s.handleLogin)
	route(http.MethodPost, "/api/auth/logout", s.handleLogout)
	route(http.MethodPost, "/api/auth/refresh", s.handleRefresh)
	route(http.MethodGet, "/api/auth/me", s.handleMe)
	route(http.MethodGet, "/api/auth/status", s.handleStatus)
	route(http.MethodGet, "/api/auth/confirm-email/{token}", s.handleConfirmEmail)
	route(http.MethodPost, "/api/auth/resend-confirmation", s.handleResendConfirmation)

	return r
}
