package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/arjun7543/chatroom/internal/infrastructure/configs"
	"github.com/arjun7543/chatroom/internal/infrastructure/json"
	"github.com/arjun7543/chatroom/internal/infrastructure/logging"
	auditHandler "github.com/arjun7543/chatroom/internal/presentation/handler/audit"
	chatHandler "github.com/arjun7543/chatroom/internal/presentation/handler/chat"
	healthHandler "github.com/arjun7543/chatroom/internal/presentation/handler/health"
)

type Application struct {
	config        configs.Config
	chatHandler   chatHandler.Handler
	healthHandler healthHandler.Handler
	auditHandler  *auditHandler.Handler // nil when no durable backend is configured
	logger        logging.Logger
}

func NewApplication(
	config configs.Config,
	chatHandler chatHandler.Handler,
	healthHandler healthHandler.Handler,
	auditHandler *auditHandler.Handler,
	logger logging.Logger,
) *Application {
	return &Application{
		config:        config,
		chatHandler:   chatHandler,
		healthHandler: healthHandler,
		auditHandler:  auditHandler,
		logger:        logger,
	}
}

func (app *Application) Mount() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Use(app.loggerMiddleware)
	r.Use(app.enableCors)

	// No chi timeout middleware on this router: /ws connections are
	// long-lived by design.
	r.Get("/ws", app.chatHandler.ServeWS)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", app.healthHandler.GetHealth)
		r.Get("/healthz", app.healthHandler.GetHealth)
		r.Get("/ready", app.healthHandler.GetHealth)
		r.Get("/live", app.healthHandler.GetHealth)

		if app.auditHandler != nil {
			r.Get("/rooms/{code}/audit", app.auditHandler.GetRoomAudit)
		}
	})

	r.Handle("/metrics", promhttp.Handler())

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		json.WriteNotFoundError(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		json.WriteMethodNotAllowedError(w)
	})

	return otelhttp.NewHandler(r, "chatroom-api")
}

func (app *Application) Run(mux http.Handler) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", app.config.HTTP.Host, app.config.HTTP.Port),
		Handler:      mux,
		WriteTimeout: app.config.HTTP.WriteTimeout,
		ReadTimeout:  app.config.HTTP.ReadTimeout,
		IdleTimeout:  time.Minute,
	}

	shutdown := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)

		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		app.logger.Info(logging.General, logging.Shutdown, "signal caught", map[logging.ExtraKey]any{
			"signal": s.String(),
		})
		healthHandler.SetHealthy(false)

		shutdown <- srv.Shutdown(ctx)
	}()

	app.logger.Info(logging.General, logging.Startup, "server has started", map[logging.ExtraKey]any{
		"addr": srv.Addr,
	})

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdown
	if err != nil {
		return err
	}

	app.logger.Info(logging.General, logging.Shutdown, "server has stopped", map[logging.ExtraKey]any{
		"addr": srv.Addr,
	})

	return nil
}
