package bootstrap

import (
	"context"
	"log"

	"athena-be/internal/config"
	"athena-be/internal/controller"
	"athena-be/internal/pkg/logger"
	"athena-be/internal/pkg/serverutils"
	"athena-be/internal/repository/memory"
	"athena-be/internal/repository/unitofwork"
	"athena-be/internal/service"
	"athena-be/pkg/athena/generation"
	"athena-be/pkg/athena/registry"
	"athena-be/pkg/events"
	"athena-be/pkg/llm/gemini"

	pktNats "athena-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"gorm.io/gorm"
)

const activityDurableName = "athena-activity-log"

type Container struct {
	// Controllers
	AthenaController controller.IAthenaController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	Logger    logger.ILogger
	Selection *registry.Selection

	pubSub    *gochannel.GoChannel
	natsPub   *pktNats.Publisher
	natsSub   *pktNats.Subscriber
	llmLogger logger.ILogger
}

// NewContainer wires every dependency. Model discovery happens here, once,
// before any request is served.
func NewContainer(ctx context.Context, db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	llmLogger := logger.NewIsolatedLogger(cfg.App.LLMLogFilePath)

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// NATS is optional; without it domain events are dropped.
	var eventPublisher events.Publisher
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	} else {
		eventPublisher = natsPub
	}

	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	}

	// 3. Generation endpoint and model selection
	provider := gemini.NewGeminiProvider(
		cfg.Gemini.BaseURL,
		cfg.Gemini.APIKey,
		"",
		cfg.Gemini.RequestTimeout,
	)
	selection := registry.NewSelection(cfg.Gemini.FallbackModel)
	registry.Initialize(ctx, registry.NewRegistry(provider, cfg.Gemini.DiscoveryTimeout, sysLogger), selection)

	generator := generation.NewClient(provider, llmLogger)

	// 4. Services
	publisherService := service.NewPublisherService(pubSub, cfg.Athena.EventTopic)
	sessionStore := service.NewSessionStoreService(uowFactory, publisherService, sysLogger)
	messageLog := service.NewMessageLogService(uowFactory, sysLogger)
	consumerService := service.NewConsumerService(pubSub, cfg.Athena.EventTopic, uowFactory, sysLogger)

	athenaService := service.NewAthenaService(
		memory.NewViewRepository(cfg.Athena.ViewTTL),
		sessionStore,
		messageLog,
		generator,
		selection,
		eventPublisher,
		sysLogger,
	)

	// 5. Controllers
	jwtMiddleware := serverutils.NewJwtMiddleware(cfg.App.JwtSecret)

	return &Container{
		AthenaController: controller.NewAthenaController(athenaService, jwtMiddleware),
		ConsumerService:  consumerService,
		Logger:           sysLogger,
		Selection:        selection,
		pubSub:           pubSub,
		natsPub:          natsPub,
		natsSub:          natsSub,
		llmLogger:        llmLogger,
	}
}

// StartActivityLog tails Athena events from NATS into the system log. It is
// a no-op when NATS was unavailable at startup.
func (c *Container) StartActivityLog(ctx context.Context) error {
	if c.natsSub == nil {
		return nil
	}
	return c.natsSub.Subscribe(ctx,
		pktNats.Subject(">"),
		activityDurableName,
		service.NewEventAuditHandler(c.Logger),
	)
}

// Close releases broker connections and flushes logs.
func (c *Container) Close() {
	if c.natsSub != nil {
		c.natsSub.Close()
	}
	if c.natsPub != nil {
		c.natsPub.Close()
	}
	if c.pubSub != nil {
		_ = c.pubSub.Close()
	}
	_ = c.llmLogger.Sync()
	_ = c.Logger.Sync()
}
