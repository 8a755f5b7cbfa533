package sandbox

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ehr/auxcare/internal/platform/auth"
	"github.com/ehr/auxcare/internal/platform/db"
	"github.com/ehr/auxcare/internal/platform/middleware"
	"github.com/ehr/auxcare/internal/platform/telemetry"
)

const DefaultIssuer = "auxcare-sandbox"

// Options configures the sandbox server. Zero values fall back to
// development defaults.
type Options struct {
	SigningKey     []byte
	Issuer         string
	TokenTTL       time.Duration
	RequestTimeout time.Duration
	BodyLimit      string
	CORSOrigins    []string

	// DB, when set, is pinged by /health/db.
	DB      db.Pinger
	DBStats func() *db.PoolStats
}

func (o Options) withDefaults() Options {
	if len(o.SigningKey) == 0 {
		o.SigningKey = []byte("auxcare-development-signing-key-0000")
	}
	if o.Issuer == "" {
		o.Issuer = DefaultIssuer
	}
	if o.TokenTTL <= 0 {
		o.TokenTTL = 8 * time.Hour
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 30 * time.Second
	}
	if o.BodyLimit == "" {
		o.BodyLimit = "1M"
	}
	if len(o.CORSOrigins) == 0 {
		o.CORSOrigins = []string{"*"}
	}
	return o
}

// NewServer builds the echo instance serving the backend API from store.
func NewServer(store Store, opts Options, logger zerolog.Logger) *echo.Echo {
	opts = opts.withDefaults()
	logger = logger.With().Str("component", "sandbox").Logger()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	metrics := telemetry.NewHTTPMetrics(reg)

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(telemetry.Tracing())
	e.Use(metrics.Middleware())
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit(opts.BodyLimit))
	e.Use(middleware.RequestTimeout(opts.RequestTimeout))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: opts.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
	}))
	e.Use(auth.JWTMiddleware(auth.JWTConfig{
		Issuer:     opts.Issuer,
		SigningKey: opts.SigningKey,
		Skipper:    auth.AuthSkipper,
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	if opts.DB != nil {
		e.GET("/health/db", db.HealthHandler(opts.DB, opts.DBStats))
	}

	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	NewHandler(store, opts).RegisterRoutes(e.Group("/api/v1"))
	return e
}
