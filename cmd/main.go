package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"livechat/backend/internal/api/handler"
	"livechat/backend/internal/auth"
	"livechat/backend/internal/chathub"
	"livechat/backend/internal/config"
	"livechat/backend/internal/knowledge"
	"livechat/backend/internal/localization"
	"livechat/backend/internal/notify"
	"livechat/backend/internal/presence"
	"livechat/backend/internal/responder"
	"livechat/backend/internal/storage"
	"livechat/backend/internal/storage/memory"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func setupStorage(cfg *config.Config) storage.Storage {
	if cfg.StorageDriver == "memory" {
		log.Println("WARNING: Using in-memory storage, nothing survives a restart")
		return memory.New()
	}

	db, err := storage.OpenDB(cfg.StorageDriver, cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if _, err := rdb.Ping(context.Background()).Result(); err != nil {
			log.Fatalf("Failed to connect Redis: %v", err)
		}
	}

	log.Println("Database connection established, migrations complete.")
	return storage.NewStorageService(db, rdb)
}

// setupResponders builds the optional automated responders. Either may be nil.
func setupResponders(cfg *config.Config, texts localization.Texts) (chathub.TextResponder, chathub.KnowledgeResponder) {
	var ai chathub.TextResponder
	if cfg.AIProvider != "" && cfg.AIProvider != "none" {
		backend, err := responder.NewBackend(cfg.AIProvider, responder.BackendOptions{
			Model:       cfg.AIModel,
			BaseURL:     cfg.AIBaseURL,
			APIKey:      cfg.AIAPIKey,
			Temperature: cfg.AITemperature,
			MaxTokens:   cfg.AIMaxTokens,
		})
		if err != nil {
			log.Fatalf("Failed to configure AI provider: %v", err)
		}
		ai = responder.NewAIResponder(backend)
		log.Printf("INFO: Automated replies via %s", backend.Name())
	}

	if !cfg.RAGEnabled {
		return ai, nil
	}
	embedder, err := knowledge.NewEmbedder(cfg.RAGEmbeddingProvider, knowledge.EmbedderOptions{
		Model:   cfg.RAGEmbeddingModel,
		BaseURL: cfg.RAGEmbeddingURL,
		APIKey:  cfg.RAGAPIKey,
	})
	if err != nil {
		log.Fatalf("Failed to configure embeddings: %v", err)
	}
	store, err := knowledge.OpenTinySQLStore(cfg.RAGStorePath)
	if err != nil {
		log.Fatalf("Failed to open knowledge index: %v", err)
	}
	if n, err := store.Count(context.Background()); err == nil {
		log.Printf("INFO: Knowledge base loaded with %d documents", n)
	}

	fallback := cfg.RAGFallbackMessage
	if fallback == "" {
		fallback = texts.Get("knowledge_fallback")
	}
	return ai, knowledge.NewResponder(embedder, store, cfg.RAGThreshold, cfg.RAGTopK, fallback)
}

func main() {
	log.Println("Starting LiveChat Backend...")

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Error loading .env file")
	}
	cfg := config.Load()
	texts := localization.Default().Lang(cfg.Locale)

	s := setupStorage(cfg)
	if err := s.ResetSessions(); err != nil {
		log.Printf("WARNING: Could not reset sessions: %v", err)
	}
	if _, err := auth.EnsureDefaultAdmin(s, cfg.AdminEmail, cfg.AdminName, cfg.AdminPassword); err != nil {
		log.Fatalf("Failed to provision default admin: %v", err)
	}

	ai, kb := setupResponders(cfg, texts)
	opts := chathub.Options{
		AI:               ai,
		Knowledge:        kb,
		Texts:            texts,
		HistoryLimit:     cfg.AIHistoryLimit,
		ResponderTimeout: cfg.ResponderTimeout,
	}
	if cfg.TelegramBotToken != "" {
		tg, err := notify.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID, texts)
		if err != nil {
			log.Printf("WARNING: Telegram notifications disabled: %v", err)
		} else {
			opts.Notifier = tg
		}
	}

	relay := chathub.NewRelay(s, presence.NewStore(), chathub.NewHub(), opts)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go relay.Run(ctx)

	h := handler.NewHandler(relay, s, auth.NewService(s, cfg.JWTSecret, cfg.SessionTTL), cfg)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler.NewRouter(h),
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		log.Printf("INFO: Listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("WARNING: HTTP shutdown: %v", err)
	}
	relay.Wait()
	log.Println("Bye.")
}
