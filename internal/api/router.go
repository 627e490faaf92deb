package api

import (
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/decksmith/deck-api/docs"
	"github.com/decksmith/deck-api/internal/api/handler"
	"github.com/decksmith/deck-api/internal/api/middleware"
	"github.com/decksmith/deck-api/internal/core/domain"
	"github.com/decksmith/deck-api/internal/core/ports"
)

// Dependencies are the services the HTTP layer is built on.
type Dependencies struct {
	Auth  ports.AuthService
	Decks ports.DeckService
	Codec ports.TokenCodec
	// Resolver re-reads principals on every request. Nil trusts the token claims.
	Resolver middleware.PrincipalResolver
	// Checks are run by the readiness probe, keyed by dependency name.
	Checks map[string]handler.Check
	// Registry receives the HTTP metrics. Nil uses the default registry.
	Registry *prometheus.Registry
	Log      zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	var (
		reg prometheus.Registerer = prometheus.DefaultRegisterer
		gat prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if deps.Registry != nil {
		reg, gat = deps.Registry, deps.Registry
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestIDWithConfig(echomiddleware.RequestIDConfig{
		Generator: func() string { return ulid.Make().String() },
	}))
	e.Use(requestLogger(deps.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "http",
		Registerer: reg,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}))
	e.Use(middleware.Authenticator(middleware.AuthenticatorConfig{
		Codec:    deps.Codec,
		Resolver: deps.Resolver,
		Log:      deps.Log,
	}))

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(deps.Auth)
	deckHandler := handler.NewDeckHandler(deps.Decks)
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(deps.Checks)

	// --- Auth routes ---
	e.POST("/auth/signup", authHandler.SignUp)
	e.POST("/auth/signin", authHandler.SignIn)
	e.GET("/auth/me", authHandler.Me, middleware.RequireAuth())

	// --- Deck routes ---
	v1 := e.Group("/v1", middleware.RequireAuth())
	v1.POST("/decks", deckHandler.Create)
	v1.GET("/decks/:id", deckHandler.Get)
	v1.DELETE("/decks/:id", deckHandler.Delete)
	v1.POST("/decks/:id/restore", deckHandler.Restore)
	v1.DELETE("/decks/:id/purge", deckHandler.Purge, middleware.RequireRole(domain.RoleAdmin))
	v1.POST("/decks/:id/cards", deckHandler.AddCard)
	v1.POST("/decks/:id/cards/import", deckHandler.ImportCards)
	v1.PUT("/cards/:id/deck", deckHandler.MoveCard)
	v1.DELETE("/cards/:id", deckHandler.DeleteCard)

	// --- Health probes (no auth required) ---
	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", readinessHandler.Readiness)

	// --- Operational ---
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gat}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			switch {
			case v.Status >= 500:
				ev = log.Error().Err(v.Error)
			case v.Error != nil:
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("request_id", v.RequestID).
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency.Round(time.Microsecond)).
				Msg("request")
			return nil
		},
	})
}
