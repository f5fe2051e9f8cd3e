package bootstrap

import (
	"context"
	"log"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/gorm"

	"medintake-be/internal/config"
	"medintake-be/internal/constant"
	"medintake-be/internal/controller"
	"medintake-be/internal/pkg/logger"
	"medintake-be/internal/repository/contract"
	"medintake-be/internal/repository/memory"
	"medintake-be/internal/repository/redisstore"
	"medintake-be/internal/repository/unitofwork"
	"medintake-be/internal/service"
	"medintake-be/internal/websocket"
	"medintake-be/pkg/intake"
	"medintake-be/pkg/intake/summary"
	"medintake-be/pkg/llm/factory"
	"medintake-be/pkg/llm/retry"
	pktNats "medintake-be/pkg/nats"
	"medintake-be/pkg/oracle"
)

type Container struct {
	// Controllers
	InterviewController     controller.IInterviewController
	QuestionnaireController controller.IQuestionnaireController
	AuthController          controller.IAuthController

	// Background Services (Exposed for main.go to run)
	ArchiveService service.IArchiveService

	// WebSockets
	WebSocketHub *websocket.Hub

	// Exposed for the seeder
	AuthService service.IAuthService
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// The oracle traffic log is kept out of the main log; prompts carry
	// patient speech.
	oracleLog := log.New(&lumberjack.Logger{
		Filename:   cfg.App.OracleLogFilePath,
		MaxSize:    10,
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   true,
	}, "", log.LstdFlags)

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. LLM Provider + retry policy
	baseProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
		cfg.Ai.HuggingFaceToken,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	llmProvider := retry.New(
		baseProvider,
		cfg.Ai.MaxRetries,
		time.Duration(cfg.Ai.RetryBaseDelayMs)*time.Millisecond,
		oracleLog,
	)

	answerOracle := oracle.New(llmProvider, oracleLog)
	compiler := summary.NewCompiler(answerOracle, oracleLog)

	// 4. Infrastructure
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}

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

	// Live session store: in-process by default, Redis when running more
	// than one backend instance.
	sessionTTL := time.Duration(cfg.Engine.SessionTTLMinutes) * time.Minute
	var sessionStore contract.SessionStore
	if cfg.App.SessionStore == "redis" && rdb != nil {
		sessionStore = redisstore.NewSessionRepository(rdb, sessionTTL)
		log.Printf("[INFO] Using Session Store: REDIS")
	} else {
		sessionStore = memory.NewSessionRepository(sessionTTL)
		log.Printf("[INFO] Using Session Store: MEMORY")
	}

	// WebSocket Hub for live interview observers
	hubLogger := logger.NewIsolatedLogger("logs/live.log")
	wsHub := websocket.NewHub(rdb, hubLogger)
	go wsHub.Run()

	// 5. Services
	engineCfg := intake.Config{
		ContextTurns: cfg.Engine.ContextTurns,
		MaxTurnRunes: cfg.Engine.MaxTurnRunes,
	}

	archivePublisher := service.NewPublisherService(constant.ArchiveTopic, pubSub)
	interviewService := service.NewInterviewService(
		uowFactory,
		sessionStore,
		answerOracle,
		compiler,
		archivePublisher,
		natsPub,
		wsHub,
		sysLogger,
		oracleLog,
		engineCfg,
	)
	archiveService := service.NewArchiveService(
		pubSub,
		constant.ArchiveTopic,
		uowFactory,
		sessionStore,
		natsPub,
		sysLogger,
	)

	questionnaireService := service.NewQuestionnaireService(uowFactory, sysLogger)
	authService := service.NewAuthService(uowFactory, cfg.Auth, sysLogger)

	// 6. Controllers
	return &Container{
		InterviewController:     controller.NewInterviewController(interviewService),
		QuestionnaireController: controller.NewQuestionnaireController(questionnaireService),
		AuthController:          controller.NewAuthController(authService),

		ArchiveService: archiveService,
		WebSocketHub:   wsHub,
		AuthService:    authService,
	}
}
