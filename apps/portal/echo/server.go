package echoportal

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/core/nav"
	"github.com/trezcool/masomo-portal/core/session"
	"github.com/trezcool/masomo-portal/services/backend"
)

type (
	ServerDeps struct {
		Conf       *core.Config
		Logger     core.Logger
		Backend    *backend.Client
		Sessions   session.Backend // nil keeps sessions in a signed cookie
		Validate   *validator.Validate
		Translator ut.Translator
		Now        func() time.Time // defaults to time.Now
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) (*Server, error) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	if err := s.setup(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Server) setup() error {
	conf := s.deps.Conf

	renderer, err := newRenderer()
	if err != nil {
		return err
	}
	s.app.Renderer = renderer
	s.app.HideBanner = true

	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	if !conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.Secure())

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.SignalShutdown)
	s.app.Debug = conf.Debug

	sessions, err := s.sessionStorage()
	if err != nil {
		return err
	}

	s.app.GET("/healthz", healthz)

	p := &portal{
		logger:     s.deps.Logger,
		client:     s.deps.Backend,
		validate:   s.deps.Validate,
		translator: s.deps.Translator,
		now:        s.deps.Now,
	}
	g := s.app.Group("", sessions)
	registerAuthRoutes(g, p)
	registerDashboardRoutes(g, p)
	registerDocumentRoutes(g, p)

	s.app.RouteNotFound("/*", func(ctx echo.Context) error {
		return ctx.Redirect(http.StatusSeeOther, nav.LoginRoute)
	})
	return nil
}

// sessionStorage binds each request to its visitor's session storage.
func (s *Server) sessionStorage() (echo.MiddlewareFunc, error) {
	conf := s.deps.Conf.Session
	if s.deps.Sessions == nil {
		return cookieSessions(conf, s.deps.Logger)
	}
	return visitorSessions(conf, s.deps.Sessions)
}

// Start listens until the server is shut down; failures are sent on Errors.
func (s *Server) Start() {
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	if err := s.app.Start(s.deps.Conf.Server.Addr); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

// SignalShutdown asks the process to shut down gracefully.
func (s *Server) SignalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already signaled
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func healthz(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "ok")
}
