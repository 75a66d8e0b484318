package server

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	echoSwagger "github.com/swaggo/echo-swagger"

	"geoprompt/internal/core"
)

// Server wraps the Echo server
type Server struct {
	echo    *echo.Echo
	handler *Handler
}

// Config holds server configuration options
type Config struct {
	// BodySizeLimit uses echo's size syntax (default "1M").
	BodySizeLimit   string
	MetricsEnabled  bool
	MetricsEndpoint string // default /metrics
	SwaggerEnabled  bool

	StaticDir string // default "public"
	IndexFile string // default "index.html"
}

const (
	defaultBodySizeLimit = "1M"
	defaultStaticDir     = "public"
	defaultIndexFile     = "index.html"
)

// New creates the HTTP server around predictor.
func New(predictor Predictor, cfg *Config) *Server {
	if cfg == nil {
		cfg = &Config{}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	handler := NewHandler(predictor)

	e.Use(requestIDMiddleware())
	e.Use(requestLoggerMiddleware())
	e.Use(middleware.Recover())
	// Any origin, with credentials: the request origin is echoed back.
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"*"},
		AllowHeaders:     []string{"*"},
		AllowCredentials: true,

		UnsafeWildcardOriginWithAllowCredentials: true,
	}))

	bodySizeLimit := cfg.BodySizeLimit
	if bodySizeLimit == "" {
		bodySizeLimit = defaultBodySizeLimit
	}
	e.Use(middleware.BodyLimit(bodySizeLimit))

	e.GET("/health", handler.Health)

	if cfg.MetricsEnabled {
		metricsPath := "/metrics"
		if cfg.MetricsEndpoint != "" {
			metricsPath = path.Clean(cfg.MetricsEndpoint)
		}
		e.GET(metricsPath, echo.WrapHandler(promhttp.Handler()))
	}

	if cfg.SwaggerEnabled {
		e.GET("/swagger/*", echoSwagger.WrapHandler)
	}

	e.POST("/api/predict", handler.Predict)

	staticDir := cfg.StaticDir
	if staticDir == "" {
		staticDir = defaultStaticDir
	}
	indexFile := cfg.IndexFile
	if indexFile == "" {
		indexFile = defaultIndexFile
	}
	static := newStaticFiles(os.DirFS(staticDir), indexFile)
	if !static.hasIndex() {
		slog.Warn("index file not found", "dir", staticDir, "file", indexFile)
	}
	e.GET("/", static.Index)
	e.GET("/:filename", static.File)

	return &Server{
		echo:    e,
		handler: handler,
	}
}

// requestIDMiddleware echoes the client's X-Request-ID or assigns a UUID,
// and stores it in the request context for upstream forwarding and logs.
func requestIDMiddleware() echo.MiddlewareFunc {
	return middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
		RequestIDHandler: func(c echo.Context, id string) {
			req := c.Request()
			c.SetRequest(req.WithContext(core.WithRequestID(req.Context(), id)))
		},
	})
}

func requestLoggerMiddleware() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"request_id", v.RequestID,
				"remote_ip", v.RemoteIP,
			}
			if v.Error != nil {
				slog.Warn("request", append(attrs, "error", v.Error)...)
				return nil
			}
			slog.Info("request", attrs...)
			return nil
		},
	})
}

// Start starts the HTTP server on the given address
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// ListenerAddr returns the bound address, or nil before Start has listened.
func (s *Server) ListenerAddr() net.Addr {
	return s.echo.ListenerAddr()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// ServeHTTP implements the http.Handler interface, allowing Server to be used with httptest
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}
