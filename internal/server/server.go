package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/congo-pay/pdavault/internal/config"
	"github.com/congo-pay/pdavault/internal/infra"
	"github.com/congo-pay/pdavault/internal/routes"
)

// Server wraps the Fiber application and shared dependencies.
type Server struct {
	app      *fiber.App
	cfg      config.Config
	backends *infra.Backends
}

// New instantiates the HTTP server and delegates route wiring to routes.Setup.
func New(cfg config.Config, backends *infra.Backends, logger *slog.Logger) (*Server, error) {
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorHandler: ErrorHandler,
	})

	if err := routes.Setup(app, routes.Deps{
		Cfg:      cfg,
		DB:       backends.DB,
		Cache:    backends.Cache,
		Logger:   logger,
		Registry: prometheus.NewRegistry(),
	}); err != nil {
		return nil, err
	}

	return &Server{app: app, cfg: cfg, backends: backends}, nil
}

// ErrorHandler renders errors that escape handlers as {"error", "message"} JSON.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "internal server error"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	}
	kind := strings.ReplaceAll(strings.ToLower(http.StatusText(code)), " ", "_")
	return c.Status(code).JSON(fiber.Map{"error": kind, "message": message})
}

// App exposes the underlying Fiber application, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen starts the HTTP server.
func (s *Server) Listen() error {
	return s.app.Listen(s.cfg.Address())
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
