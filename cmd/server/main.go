package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rato-kaz/vietnamese-business-rag-chatbot/internal/api"
	"github.com/rato-kaz/vietnamese-business-rag-chatbot/internal/config"
	"github.com/rato-kaz/vietnamese-business-rag-chatbot/internal/core"
	"github.com/rato-kaz/vietnamese-business-rag-chatbot/internal/llm"
	"github.com/rato-kaz/vietnamese-business-rag-chatbot/internal/store"
	"github.com/rato-kaz/vietnamese-business-rag-chatbot/internal/templates"
	"github.com/rato-kaz/vietnamese-business-rag-chatbot/internal/vectordb"
)

func main() {
	cfg := config.Load()

	logger := newLogger(cfg.LogLevel)
	defer logger.Sync()

	if cfg.GeminiAPIKey == "" {
		logger.Fatal("GEMINI_API_KEY environment variable is required")
	}

	ingestPath := flag.String("ingest", "", "Ingest pre-chunked law documents from a JSON file and exit")
	flag.Parse()

	dbStore, err := store.NewSQLiteStore(cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer dbStore.Close()

	ctx := context.Background()

	gemini, err := llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.ChatModel, cfg.EmbeddingModel, cfg.BackendTimeout, logger)
	if err != nil {
		logger.Fatal("failed to initialize Gemini client", zap.Error(err))
	}
	defer gemini.Close()

	if *ingestPath != "" {
		count, err := ingestChunks(ctx, *ingestPath, gemini, dbStore, logger)
		if err != nil {
			logger.Fatal("ingestion failed", zap.Error(err))
		}
		logger.Info("ingestion complete, exiting", zap.Int("chunks", count))
		return
	}

	vectorStore := vectordb.NewMemoryStore()
	chunks, err := dbStore.AllChunks(ctx)
	if err != nil {
		logger.Fatal("failed to load law chunks", zap.Error(err))
	}
	vectorStore.Add(chunks...)
	if vectorStore.Len() == 0 {
		logger.Warn("vector store is empty; run with -ingest to index law documents")
	} else {
		logger.Info("vector store ready", zap.Int("chunks", vectorStore.Len()))
	}

	templateRepo, err := templates.NewRepository(cfg.TemplatesDir, logger)
	if err != nil {
		logger.Fatal("failed to load form templates", zap.Error(err))
	}

	var reranker core.RerankService
	if cfg.RerankURL != "" {
		reranker = llm.NewHTTPReranker(cfg.RerankURL, cfg.BackendTimeout, logger)
	} else {
		logger.Warn("RERANK_URL not set; retrieval runs on similarity order only")
	}

	retriever := core.NewRetriever(gemini, vectorStore, reranker, core.RetrieverConfig{
		Oversample:          cfg.OversampleMultiplier,
		SimilarityThreshold: cfg.SimilarityThreshold,
	}, logger)
	classifier := core.NewIntentClassifier(gemini, cfg.ConfidenceThreshold, logger)
	generator := core.NewResponseGenerator(gemini, logger)
	formEngine := core.NewFormEngine(templateRepo, logger)

	commands := core.DefaultCommandSet()
	if len(cfg.CancelPhrases) > 0 {
		commands.CancelPhrases = cfg.CancelPhrases
	}
	if len(cfg.ConfirmPhrases) > 0 {
		commands.ConfirmPhrases = cfg.ConfirmPhrases
	}

	chatService := core.NewChatService(dbStore, templateRepo, classifier, retriever, generator, formEngine, core.ChatConfig{
		TopK:               cfg.RetrievalTopK,
		HistoryWindow:      cfg.HistoryWindow,
		MaxRetries:         uint64(cfg.MaxRetries),
		RetryInterval:      cfg.RetryInterval,
		DefaultTemplate:    cfg.DefaultTemplate,
		LegalDocumentTypes: []string{"Luật", "Nghị định", "Thông tư", "Quyết định"},
		Commands:           commands,
	}, logger)

	apiHandler := api.NewAPIHandler(chatService, templateRepo, logger)
	router := api.NewRouter(apiHandler, logger)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // LLM calls can take time
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}
	logger.Info("server exited gracefully")
}

// ingestChunks reads pre-chunked law documents (a JSON array of
// {content, metadata}) produced by the ingestion pipeline, embeds each
// chunk and persists the index.
func ingestChunks(ctx context.Context, path string, embedder core.EmbeddingService, dbStore *store.SQLiteStore, logger *zap.Logger) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read chunk file %s: %w", path, err)
	}

	var chunks []core.DocumentChunk
	if err := json.Unmarshal(data, &chunks); err != nil {
		return 0, fmt.Errorf("failed to parse chunk file %s: %w", path, err)
	}

	// Spacing requests keeps us under the embedding API rate limit.
	ticker := time.NewTicker(40 * time.Millisecond)
	defer ticker.Stop()

	out := make([]core.DocumentChunk, 0, len(chunks))
	for i, chunk := range chunks {
		if strings.TrimSpace(chunk.Content) == "" {
			continue
		}
		<-ticker.C

		embedding, err := embedder.Embed(ctx, chunk.Content)
		if err != nil {
			logger.Warn("failed to embed chunk, skipping",
				zap.Int("index", i), zap.Error(err))
			continue
		}
		if chunk.ID == "" {
			chunk.ID = uuid.NewString()
		}
		chunk.Embedding = embedding
		out = append(out, chunk)

		if len(out)%25 == 0 {
			logger.Info("embedding progress", zap.Int("done", len(out)), zap.Int("total", len(chunks)))
		}
	}

	if err := dbStore.SaveChunks(ctx, out); err != nil {
		return 0, err
	}
	return len(out), nil
}

func newLogger(level string) *zap.Logger {
	var logger *zap.Logger
	var err error
	if strings.EqualFold(level, "DEBUG") {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	return logger
}
