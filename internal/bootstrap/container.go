package bootstrap

import (
	"context"
	"log"

	"geoassist-be/internal/config"
	"geoassist-be/internal/controller"
	"geoassist-be/internal/handler"
	"geoassist-be/internal/pkg/logger"
	"geoassist-be/internal/repository/contract"
	"geoassist-be/internal/repository/implementation"
	"geoassist-be/internal/repository/memory"
	"geoassist-be/internal/service"
	"geoassist-be/internal/websocket"
	"geoassist-be/pkg/mode"
	pktNats "geoassist-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const statsConsumerName = "geoassist-activity-stats"

type Container struct {
	// Controllers
	BotController      controller.IBotController
	ReplyStreamHandler *handler.ReplyStreamHandler

	// Background work run by main.go
	ConsumerService service.IConsumerService
	ActivityService service.IActivityService
	Janitor         *mode.Janitor
	WebSocketHub    *websocket.Hub

	Manager *mode.Manager
	Logger  logger.ILogger

	natsPub *pktNats.Publisher
	natsSub *pktNats.Subscriber
	rdb     *redis.Client
	pubSub  *gochannel.GoChannel
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.IsProduction())
	auditLogger := logger.NewIsolatedLogger(cfg.App.AuditLogFilePath)

	// 2. Event Bus
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 256},
		watermill.NewStdLogger(false, false),
	)

	// 3. Infrastructure
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	}

	rdb := connectRedis(cfg.App.RedisURL)

	var statsRepo contract.ActivityStatsRepository
	if rdb != nil {
		statsRepo = implementation.NewActivityStatsRepository(rdb)
	} else {
		statsRepo = memory.NewActivityStatsRepository()
	}

	// 4. Services
	var eventPublisher service.EventPublisher
	if natsPub != nil {
		eventPublisher = natsPub
	}
	activityService := service.NewActivityService(eventPublisher, statsRepo, auditLogger, natsPub == nil || natsSub == nil)

	resultRepo := implementation.NewFeatureResultRepository(db)
	publisherService := service.NewPublisherService(cfg.Keys.ResultsTopic, pubSub, sysLogger)
	consumerService := service.NewConsumerService(pubSub, cfg.Keys.ResultsTopic, resultRepo, activityService, sysLogger)
	resultService := service.NewResultService(resultRepo)

	wsHub := websocket.NewHub(rdb, cfg.Keys.RepliesTopic, sysLogger)
	replyService := service.NewReplyService(wsHub)

	archiveService := service.NewArchiveService(cfg.Files.WorkDir, sysLogger)
	manager := NewModeManager(cfg, Collaborators{
		Geocoder:    service.NewGeocoderService(cfg.Geocoder, cfg.Keys.Geoapify, sysLogger),
		Persistence: publisherService,
		Compressor:  archiveService,
		Extractor:   service.NewExtractorService(sysLogger),
		Remover:     archiveService,
		Observers:   []mode.Observer{activityService},
	}, sysLogger)

	botService := service.NewBotService(manager, replyService, sysLogger)

	return &Container{
		BotController:      controller.NewBotController(botService, resultService, activityService),
		ReplyStreamHandler: handler.NewReplyStreamHandler(wsHub, sysLogger),

		ConsumerService: consumerService,
		ActivityService: activityService,
		Janitor:         mode.NewJanitor(manager, cfg.Session.SweepInterval, sysLogger),
		WebSocketHub:    wsHub,

		Manager: manager,
		Logger:  sysLogger,

		natsPub: natsPub,
		natsSub: natsSub,
		rdb:     rdb,
		pubSub:  pubSub,
	}
}

// connectRedis returns nil when redis is unreachable; replies are then
// delivered in process and counters kept in memory.
func connectRedis(url string) *redis.Client {
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{Addr: url}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
		rdb.Close()
		return nil
	}
	return rdb
}

// ConsumeActivity feeds the activity counters from the event stream.
func (c *Container) ConsumeActivity(ctx context.Context) error {
	if c.natsSub == nil || c.natsPub == nil {
		return nil
	}
	return c.natsSub.Subscribe(ctx, pktNats.SubjectPrefix+">", statsConsumerName, c.ActivityService.Record)
}

// Close releases the connections opened by NewContainer.
func (c *Container) Close() {
	if c.pubSub != nil {
		_ = c.pubSub.Close()
	}
	if c.natsSub != nil {
		c.natsSub.Close()
	}
	if c.natsPub != nil {
		c.natsPub.Close()
	}
	if c.rdb != nil {
		_ = c.rdb.Close()
	}
	_ = c.Logger.Sync()
}
