package bootstrap

import (
	"context"
	"log"

	"sarathi-be/internal/config"
	"sarathi-be/internal/controller"
	"sarathi-be/internal/pkg/logger"
	"sarathi-be/internal/pkg/mailer"
	"sarathi-be/internal/repository/implementation"
	"sarathi-be/internal/service"
	"sarathi-be/pkg/embedding"
	embeddingJina "sarathi-be/pkg/embedding/jina"
	"sarathi-be/pkg/flow"
	"sarathi-be/pkg/llm/factory"
	pktNats "sarathi-be/pkg/nats"
	"sarathi-be/pkg/rag/query"
	"sarathi-be/pkg/rag/rerank"
	rerankJina "sarathi-be/pkg/rag/rerank/jina"
	"sarathi-be/pkg/rag/search"
	"sarathi-be/pkg/safety"
	"sarathi-be/pkg/session"
	"sarathi-be/pkg/signal"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	CompanionController controller.ICompanionController

	// Background Services (Exposed for main.go to run)
	AnalyticsService service.IAnalyticsService
	AlertService     service.IAlertService
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	var emailService mailer.IEmailService
	if cfg.Companion.SafetyAlertsEnabled && cfg.SMTP.Host != "" {
		emailService = mailer.NewEmailService(
			cfg.SMTP.Host,
			cfg.SMTP.Port,
			cfg.SMTP.Email,
			cfg.SMTP.Password,
			cfg.SMTP.SenderName,
			cfg.SMTP.AlertEmail,
		)
	}

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. External Providers
	var embeddingProvider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "ollama" {
		embeddingProvider = embedding.NewOllamaProvider(
			cfg.Ai.OllamaBaseURL,
			cfg.Ai.OllamaModel,
		)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.OllamaModel)
	} else if cfg.Ai.EmbeddingProvider == "jina" {
		embeddingProvider = embeddingJina.NewJinaProvider(cfg.Keys.Jina)
		log.Printf("[INFO] Using Embedding Provider: JINA AI")
	} else {
		embeddingProvider = embedding.NewGeminiProvider(cfg.Keys.GoogleGemini)
		log.Printf("[INFO] Using Embedding Provider: GEMINI")
	}

	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
		cfg.Keys.GoogleGemini,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	reranker := rerankJina.NewClient(cfg.Keys.Jina)

	// 3.5 Infrastructure
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		natsPub = nil
	}

	var alertService service.IAlertService
	if natsPub != nil {
		natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
		} else {
			alertService = service.NewAlertService(natsSub, emailService, sysLogger)
		}
	}

	// Redis-backed session store, in-memory fallback when unreachable
	var sessionStore session.Store
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v. Using in-memory session store", err)
		sessionStore = session.NewMemoryStore(cfg.Companion.SessionTTL)
	} else {
		sessionStore = session.NewRedisStore(rdb, cfg.Companion.SessionTTL)
	}

	// 4. Repositories
	passageRepo := implementation.NewPassageRepository(db)
	turnLogRepo := implementation.NewTurnLogRepository(db)

	// 5. Domain Components
	detector := safety.NewDetector(
		cfg.Companion.CrisisKeywords,
		cfg.Companion.AddictionKeywords,
		cfg.Companion.MentalHealthKeywords,
	)
	extractor := signal.NewExtractor(cfg.Companion.ReadinessStep, nil)
	machine := flow.NewMachine(flow.Config{
		SignalThreshold:       cfg.Companion.SignalThreshold,
		MaxClarificationTurns: cfg.Companion.MaxClarificationTurns,
		ReadinessThreshold:    cfg.Companion.ReadinessThreshold,
	})
	expander := query.NewExpander(llmProvider, cfg.Companion.MaxQueries)

	searchCfg := search.Config{
		SemanticWeight: cfg.Companion.SemanticWeight,
		KeywordWeight:  cfg.Companion.KeywordWeight,
		SemanticK:      cfg.Companion.SemanticK,
		KeywordK:       cfg.Companion.KeywordK,
		TopM:           cfg.Companion.TopM,
		CallTimeout:    cfg.Companion.SearchTimeout,
	}
	rerankCfg := rerank.Config{
		TopP:         cfg.Companion.TopP,
		MinRelevance: cfg.Companion.MinRelevance,
		CallTimeout:  cfg.Companion.SearchTimeout,
	}

	// 6. Services
	companionService := service.NewCompanionService(
		sessionStore,
		passageRepo,
		embeddingProvider,
		llmProvider,
		reranker,
		detector,
		extractor,
		machine,
		expander,
		searchCfg,
		rerankCfg,
		pubSub,
		cfg.Companion.TurnProcessedTopic,
		natsPub,
		emailService,
		sysLogger,
	)

	analyticsService := service.NewAnalyticsService(
		pubSub,
		cfg.Companion.TurnProcessedTopic,
		turnLogRepo,
	)

	// 7. Controllers
	return &Container{
		CompanionController: controller.NewCompanionController(companionService),
		AnalyticsService:    analyticsService,
		AlertService:        alertService,
	}
}
