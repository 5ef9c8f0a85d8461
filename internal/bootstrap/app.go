package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"portfolio-rag/internal/ai"
	appsvc "portfolio-rag/internal/app"
	"portfolio-rag/internal/cache"
	"portfolio-rag/internal/config"
	"portfolio-rag/internal/history"
	"portfolio-rag/internal/model"
	"portfolio-rag/internal/pkg/textsplit"
	mysqlClient "portfolio-rag/internal/platform/mysql"
	rabbitmqClient "portfolio-rag/internal/platform/rabbitmq"
	redisClient "portfolio-rag/internal/platform/redis"
	weaviateClient "portfolio-rag/internal/platform/weaviate"
	"portfolio-rag/internal/repository"
	"portfolio-rag/internal/vectorstore"
	"portfolio-rag/internal/worker"
)

type Options struct {
	// StartWorkers starts the message persistence consumer when rabbitmq is
	// enabled. The CLI leaves it off.
	StartWorkers bool
	// Logger replaces the JSON stdout logger built from app.log_level.
	Logger *slog.Logger
}

type App struct {
	Config *config.Config
	Logger *slog.Logger

	MySQL  *gorm.DB
	Redis  *redis.Client
	MQConn *amqp.Connection

	Ingest    *appsvc.IngestService
	Retrieval *appsvc.RetrievalService
	Chat      *appsvc.ChatService
	Auth      *appsvc.AuthService

	closers   []func() error
	StartedAt time.Time
}

func New(ctx context.Context, opts Options) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = NewLogger(cfg.App.LogLevel)
	}
	app := &App{Config: cfg, Logger: logger, StartedAt: time.Now()}

	if err := app.init(ctx, opts); err != nil {
		_ = app.Close()
		return nil, err
	}
	return app, nil
}

func (a *App) init(ctx context.Context, opts Options) error {
	cfg := a.Config

	db, err := mysqlClient.New(ctx, cfg.MySQLDSN(), mysqlClient.PoolConfig{Debug: cfg.MySQL.Debug})
	if err != nil {
		return err
	}
	a.MySQL = db
	a.onClose(func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})
	if err := db.AutoMigrate(&model.Document{}, &model.Chunk{}, &model.Conversation{}, &model.Message{}); err != nil {
		return fmt.Errorf("auto migrate tables failed: %w", err)
	}

	documentRepo := repository.NewDocumentRepository(db)
	conversationRepo := repository.NewConversationRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	var historyOpts []history.Option
	if cfg.Redis.Enabled {
		client, err := redisClient.New(ctx, redisClient.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			a.Logger.Warn("redis unavailable, history cache disabled", "error", err)
		} else {
			a.Redis = client
			a.onClose(client.Close)
			historyOpts = append(historyOpts, history.WithCache(cache.NewHistoryCache(
				client,
				"",
				time.Duration(cfg.Redis.HistoryTTLSeconds)*time.Second,
				time.Duration(cfg.Redis.HistoryDirtyTTLSeconds)*time.Second,
			)))
		}
	}

	if cfg.RabbitMQ.Enabled {
		conn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.MessagePersistQueue)
		if err != nil {
			a.Logger.Warn("rabbitmq unavailable, messages are written directly", "error", err)
		} else {
			a.MQConn = conn
			a.onClose(conn.Close)
			publisher := rabbitmqClient.NewMessagePublisher(conn, cfg.RabbitMQ.MessagePersistQueue)
			a.onClose(publisher.Close)
			historyOpts = append(historyOpts, history.WithPublisher(publisher))

			if opts.StartWorkers {
				w := worker.NewMessagePersistWorker(conn, messageRepo, conversationRepo, cfg.RabbitMQ.MessagePersistQueue, a.Logger)
				if err := w.Start(ctx); err != nil {
					return fmt.Errorf("start message worker failed: %w", err)
				}
				a.onClose(func() error { w.Close(); return nil })
			}
		}
	}

	vectors, err := a.vectorStore(ctx, documentRepo)
	if err != nil {
		return err
	}
	embedder, err := a.embedder(ctx)
	if err != nil {
		return err
	}

	llm := ai.NewOpenAICompatibleClient(ai.ClientConfig{
		BaseURL:        cfg.LLM.BaseURL,
		APIKey:         cfg.LLM.APIKey,
		ChatModel:      cfg.LLM.Model,
		EmbeddingModel: cfg.Embedding.Model,
		Timeout:        cfg.LLMTimeout(),
	})

	embeddings := appsvc.NewEmbeddingService(embedder, appsvc.EmbeddingOptions{
		BatchSize:         cfg.Embedding.BatchSize,
		Concurrency:       cfg.Embedding.Concurrency,
		Dimensions:        cfg.Embedding.Dimensions,
		RequestsPerSecond: cfg.Embedding.RequestsPerSecond,
		Timeout:           cfg.EmbeddingTimeout(),
	}, a.Logger)
	extractor := appsvc.NewEntityExtractor(llm, cfg.ExtractTimeout(), a.Logger)

	a.Ingest = appsvc.NewIngestService(
		textsplit.New(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap),
		embeddings,
		vectors,
		documentRepo,
		a.Logger,
	)
	a.Retrieval = appsvc.NewRetrievalService(embeddings, vectors, extractor, cfg.RAG.ThresholdScore, a.Logger)
	a.Chat = appsvc.NewChatService(
		llm,
		a.Retrieval,
		extractor,
		history.NewStore(conversationRepo, messageRepo, a.Logger, historyOpts...),
		appsvc.Persona{
			Name:     cfg.Chat.PersonaName,
			Headline: cfg.Chat.PersonaHeadline,
			Location: cfg.Chat.PersonaLocation,
		},
		cfg.ChatTimeout(),
		a.Logger,
	)
	a.Auth = appsvc.NewAuthService(cfg.Auth.AdminUsername, cfg.Auth.AdminPasswordHash, cfg.Auth.JWTSecret, cfg.JWTExpire())
	return nil
}

func (a *App) vectorStore(ctx context.Context, documents *repository.DocumentRepository) (appsvc.VectorStore, error) {
	switch a.Config.Vector.Backend {
	case "weaviate":
		client, err := weaviateClient.New(ctx, weaviateClient.Config{
			Host:   a.Config.Vector.WeaviateHost,
			Scheme: a.Config.Vector.WeaviateScheme,
			APIKey: a.Config.Vector.WeaviateAPIKey,
		})
		if err != nil {
			return nil, err
		}
		if err := vectorstore.EnsureSchema(ctx, vectorstore.NewSchemaAdapter(client)); err != nil {
			return nil, fmt.Errorf("ensure weaviate schema failed: %w", err)
		}
		return vectorstore.NewWeaviateStore(client, documents), nil
	default:
		return vectorstore.NewSQLStore(a.MySQL), nil
	}
}

func (a *App) embedder(ctx context.Context) (appsvc.Embedder, error) {
	cfg := a.Config
	if cfg.Embedding.Provider == "gemini" {
		gemini, err := ai.NewGeminiEmbedder(ctx, cfg.Embedding.GeminiAPIKey, cfg.Embedding.Model)
		if err != nil {
			return nil, err
		}
		a.onClose(gemini.Close)
		return gemini, nil
	}
	return ai.NewOpenAICompatibleClient(ai.ClientConfig{
		BaseURL:        cfg.LLM.BaseURL,
		APIKey:         cfg.LLM.APIKey,
		EmbeddingModel: cfg.Embedding.Model,
		Timeout:        cfg.EmbeddingTimeout(),
	}), nil
}

func (a *App) onClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func NewLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
	return logger
}
