package bootstrap

import (
	"context"
	"log"

	"github.com/KayTeo/mimir-extension/internal/capture"
	"github.com/KayTeo/mimir-extension/internal/config"
	"github.com/KayTeo/mimir-extension/internal/controller"
	"github.com/KayTeo/mimir-extension/internal/dispatch"
	"github.com/KayTeo/mimir-extension/internal/handler"
	"github.com/KayTeo/mimir-extension/internal/model"
	"github.com/KayTeo/mimir-extension/internal/pkg/logger"
	"github.com/KayTeo/mimir-extension/internal/pkg/mailer"
	"github.com/KayTeo/mimir-extension/internal/repository/unitofwork"
	"github.com/KayTeo/mimir-extension/internal/service"
	"github.com/KayTeo/mimir-extension/internal/statestore"
	"github.com/KayTeo/mimir-extension/internal/websocket"
	"github.com/KayTeo/mimir-extension/pkg/identity"
	identityLocal "github.com/KayTeo/mimir-extension/pkg/identity/local"
	"github.com/KayTeo/mimir-extension/pkg/identity/supabase"
	"github.com/KayTeo/mimir-extension/pkg/llm/factory"

	pktNats "github.com/KayTeo/mimir-extension/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	MessageController controller.IMessageController

	// WebSockets
	EventsHandler *handler.EventsHandler
	WebSocketHub  *websocket.Hub

	// Core services (exposed for main.go lifecycle wiring)
	Dispatcher       dispatch.IDispatcher
	SessionService   service.ISessionService
	EventPumpService service.IEventPumpService
	StateStore       statestore.Store
	NatsPublisher    *pktNats.Publisher
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	emailService := mailer.NewEmailService(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Email,
		cfg.SMTP.Password,
		cfg.SMTP.SenderName,
	)

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 2.5 Infrastructure
	// NATS (optional; captures must not depend on the bus being up)
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}

	// Redis (optional; used for cross-instance event fan-out)
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
		rdb = nil
	}

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger("logs/events.log")
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run()

	publisherService := service.NewPublisherService(pubSub)

	var eventSink service.DomainEventSink
	if natsPub != nil {
		eventSink = natsPub
	}
	eventPumpService := service.NewEventPumpService(pubSub, wsHub, eventSink, sysLogger)

	// 3. State Store
	var stateStore statestore.Store
	if cfg.Database.StateBackend == "memory" {
		stateStore = statestore.NewMemoryStore()
		log.Printf("[INFO] Using State Backend: MEMORY")
	} else {
		stateStore = statestore.NewGormStore(db)
		log.Printf("[INFO] Using State Backend: POSTGRES")
	}

	// Relay state transitions to every surface.
	stateStore.OnChange(func(change statestore.Change) {
		if err := publisherService.PublishUIEvent(context.Background(), model.NewStateChangedEvent(change.Key)); err != nil {
			sysLogger.Warn("Bootstrap", "Failed to broadcast state change", map[string]interface{}{"error": err.Error()})
		}
	})

	// 4. Identity Provider
	var identityProvider identity.Provider
	if cfg.Identity.Provider == "local" {
		identityProvider = identityLocal.NewProvider(uowFactory, emailService, cfg.Identity.JWTSecret)
		log.Printf("[INFO] Using Identity Provider: LOCAL")
	} else {
		identityProvider = supabase.NewClient(cfg.Identity.SupabaseURL, cfg.Identity.SupabaseAnonKey)
		log.Printf("[INFO] Using Identity Provider: SUPABASE")
	}

	// 5. Generator Provider
	generator, err := factory.NewProvider(
		cfg.Generator.Provider,
		cfg.Generator.Model,
		cfg.Generator.OllamaBaseURL,
		cfg.Identity.SupabaseURL,
		cfg.Identity.SupabaseAnonKey,
		cfg.Generator.HuggingFaceAPIKey,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize Generator Provider: %v", err)
	}
	log.Printf("[INFO] Using Generator Provider: %s", cfg.Generator.Provider)

	// 6. Domain Services
	storeGateway := service.NewStoreGatewayService(uowFactory, generator)
	sessionService := service.NewSessionService(identityProvider, stateStore, publisherService, sysLogger)
	captureMachine := capture.NewMachine(stateStore, storeGateway, publisherService, sysLogger)

	dispatcher := dispatch.NewDispatcher(
		sessionService,
		storeGateway,
		captureMachine,
		stateStore,
		publisherService,
		dispatch.GoogleAuthConfig{
			ClientID:    cfg.Identity.GoogleClientID,
			RedirectURL: cfg.Identity.GoogleRedirectURL,
		},
		sysLogger,
	)

	// 7. Controllers
	return &Container{
		MessageController: controller.NewMessageController(dispatcher),
		EventsHandler:     handler.NewEventsHandler(wsHub, wsLogger),
		WebSocketHub:      wsHub,

		Dispatcher:       dispatcher,
		SessionService:   sessionService,
		EventPumpService: eventPumpService,
		StateStore:       stateStore,
		NatsPublisher:    natsPub,
	}
}
