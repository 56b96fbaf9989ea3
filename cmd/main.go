package main

import (
	"context"
	"expvar"
	"log"
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/arjun7543/chatroom/internal/domain"
	"github.com/arjun7543/chatroom/internal/infrastructure/configs"
	"github.com/arjun7543/chatroom/internal/infrastructure/events"
	"github.com/arjun7543/chatroom/internal/infrastructure/logging"
	"github.com/arjun7543/chatroom/internal/infrastructure/messaging"
	"github.com/arjun7543/chatroom/internal/infrastructure/metrics"
	"github.com/arjun7543/chatroom/internal/infrastructure/tracing"
	"github.com/arjun7543/chatroom/internal/infrastructure/ws"
	"github.com/arjun7543/chatroom/internal/persistence/db"
	"github.com/arjun7543/chatroom/internal/persistence/repository"
	"github.com/arjun7543/chatroom/internal/presentation/api"
	"github.com/arjun7543/chatroom/internal/presentation/handler/audit"
	"github.com/arjun7543/chatroom/internal/presentation/handler/chat"
	"github.com/arjun7543/chatroom/internal/presentation/handler/health"
)

const (
	serviceName = "chatroom-api"
)

func main() {
	tracerCfg := tracing.NewDefaultConfig(serviceName)

	sh, err := tracing.InitTracer(tracerCfg)
	if err != nil {
		log.Fatalf("Failed to initialize the tracer: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer sh(ctx)

	configPath := configs.DetermineConfigPath()
	cfg, err := configs.Load(configPath)
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.NewLogger(cfg.Logging)
	logger.Init()

	var (
		roomStore domain.RoomStore
		database  *mongo.Database
	)

	switch cfg.Store.Driver {
	case "mongo":
		mongoCfg := db.NewMongoConfig(cfg.Store)

		client, err := db.NewMongoClient(ctx, mongoCfg)
		if err != nil {
			logger.Fatal(logging.Mongo, logging.Startup, "failed to connect to mongodb", map[logging.ExtraKey]any{
				logging.ErrorMessage: err.Error(),
			})
		}
		defer db.DisconnectMongo(context.Background(), client)

		database = db.GetDatabase(client, mongoCfg)
		roomStore = repository.NewMongoRoomStore(database)

		logger.Info(logging.Mongo, logging.Startup, "connected to mongodb", map[logging.ExtraKey]any{
			"database": mongoCfg.Database,
		})
	case "memory":
		roomStore = repository.NewMemoryRoomStore()
	default:
		logger.Fatal(logging.General, logging.Startup, "unknown store driver", map[logging.ExtraKey]any{
			"driver": cfg.Store.Driver,
		})
	}

	var (
		auditRepo    domain.RoomAuditRepository
		auditHandler *audit.Handler
	)
	if database != nil {
		auditRepo = repository.NewRoomAuditLogRepository(database)
		if err := auditRepo.EnsureIndexes(ctx); err != nil {
			logger.Error(logging.Mongo, logging.Startup, "failed to ensure audit log indexes", map[logging.ExtraKey]any{
				logging.ErrorMessage: err.Error(),
			})
		}
		auditHandler = audit.NewHandler(auditRepo, logger)
	}

	var publisher ws.LifecyclePublisher
	if cfg.Messaging.Enabled {
		rabbitmq, err := messaging.NewRabbitMQ(cfg.Messaging.URI)
		if err != nil {
			logger.Fatal(logging.RabbitMQ, logging.Startup, "failed to connect to rabbitmq", map[logging.ExtraKey]any{
				logging.ErrorMessage: err.Error(),
			})
		}
		defer rabbitmq.Close()

		publisher = events.NewRoomPublisher(rabbitmq)

		// The audit trail needs a durable backend; without Mongo we still
		// publish but skip the consumer.
		if auditRepo != nil {
			consumer := events.NewRoomConsumer(rabbitmq, auditRepo, logger)
			go func() {
				if err := consumer.Listen(); err != nil {
					logger.Error(logging.RabbitMQ, logging.Consume, "room consumer stopped", map[logging.ExtraKey]any{
						logging.ErrorMessage: err.Error(),
					})
				}
			}()
		}

		logger.Info(logging.RabbitMQ, logging.Startup, "connected to rabbitmq", nil)
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	registry := ws.NewRegistry(m)
	dispatcher := ws.NewDispatcher(registry, logger, m)
	manager := ws.NewManager(roomStore, registry, dispatcher, publisher, logger, m)

	chatHandler := chat.NewHandler(manager, logger, cfg.HTTP.AllowedOrigins)
	healthHandler := health.NewHandler()

	app := api.NewApplication(*cfg, *chatHandler, *healthHandler, auditHandler, logger)

	expvar.Publish("goroutines", expvar.Func(func() any {
		return runtime.NumGoroutine()
	}))

	mux := app.Mount()
	if err := app.Run(mux); err != nil {
		logger.Fatal(logging.General, logging.Shutdown, "server exited with error", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	}
}
