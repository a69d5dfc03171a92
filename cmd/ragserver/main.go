package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"DocuMind/internal/config"
	"DocuMind/internal/embedding"
	"DocuMind/internal/llm"
	"DocuMind/internal/ragengine/composer"
	"DocuMind/internal/ragengine/extractor"
	"DocuMind/internal/ragengine/indexer"
	"DocuMind/internal/ragengine/interfaces"
	"DocuMind/internal/ragengine/keyword"
	"DocuMind/internal/ragengine/ocr"
	"DocuMind/internal/ragengine/parsers"
	"DocuMind/internal/ragengine/retriever"
	"DocuMind/internal/ragengine/storages/rawstore"
	"DocuMind/internal/ragengine/storages/vectorstore"
	"DocuMind/internal/ragengine/summarizer"
	"DocuMind/internal/ragserver/api"
	"DocuMind/internal/ragserver/service"
	"DocuMind/pkg/logger"
)

func main() {
	// 1. Initialize Logger
	logger.Init(logrus.InfoLevel)
	appLogger := logger.New("ragserver", "")
	appLogger.Info("Starting ragserver...")

	// 2. Load Configuration
	configPath := os.Getenv("DOCUMIND_CONFIG")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	appLogger.Info("Configuration loaded successfully.")

	ctx := context.Background()

	// 3. Initialize stores
	rawStore, err := rawstore.NewMinIOStore(ctx, &cfg.MinIO, appLogger)
	if err != nil {
		log.Fatalf("Failed to connect to MinIO: %v", err)
	}
	vectorStore, err := vectorstore.NewMilvusStore(ctx, &cfg.Milvus, appLogger)
	if err != nil {
		log.Fatalf("Failed to connect to Milvus: %v", err)
	}
	defer vectorStore.Close()
	keywordIndex := keyword.NewIndex()

	// 4. Initialize capabilities
	embedder, err := newEmbedder(cfg)
	if err != nil {
		log.Fatalf("Failed to create embedding client: %v", err)
	}
	generator, err := newLLM(cfg)
	if err != nil {
		log.Fatalf("Failed to create LLM client: %v", err)
	}
	var ocrClient interfaces.OCR = ocr.NewNoop()
	if cfg.OCR.Enabled {
		ocrClient = ocr.NewTesseract(cfg.OCR.Languages)
	}

	// 5. Assemble pipelines
	parser := parsers.NewPDFParser(appLogger)
	ext, err := extractor.New(parser, ocrClient, cfg.Summarizer.ChunkSizeTokens, cfg.Summarizer.ChunkOverlap, appLogger)
	if err != nil {
		log.Fatalf("Failed to create extractor: %v", err)
	}
	sum, err := summarizer.New(generator, cfg.Summarizer.MaxSummaryTokens, appLogger)
	if err != nil {
		log.Fatalf("Failed to create summarizer: %v", err)
	}
	ix := indexer.New(embedder, rawStore, vectorStore, keywordIndex, appLogger)
	// The keyword index lives in process memory; repopulate it from the
	// persisted corpus so the lexical leg covers pre-restart documents.
	if err := ix.RebuildKeywordIndex(ctx); err != nil {
		log.Fatalf("Failed to rebuild keyword index: %v", err)
	}
	ret := retriever.New(embedder, vectorStore, keywordIndex, rawStore, cfg.Retriever, appLogger)
	comp := composer.New(generator, appLogger)

	svc := service.New(ext, sum, ix, ret, comp, appLogger, rawStore, vectorStore)

	// 6. Start Gin HTTP server
	gin.SetMode(gin.ReleaseMode)
	router := gin.Default()
	router.MaxMultipartMemory = int64(cfg.Server.MaxUploadSizeMB) << 20
	api.RegisterRoutes(router, api.NewAPI(svc, appLogger))

	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: router,
	}
	go func() {
		appLogger.Info(fmt.Sprintf("HTTP server listening at %s", cfg.Server.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to serve HTTP: %v", err)
		}
	}()

	// 7. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("Server forced to shutdown")
	}
	appLogger.Info("Server gracefully stopped")
}

func newEmbedder(cfg *config.AppConfig) (interfaces.EmbeddingModel, error) {
	switch cfg.Embedding.Provider {
	case "openai":
		return embedding.NewOpenAIModel(cfg.Embedding.APIKey, cfg.Embedding.Model, cfg.Embedding.BaseURL)
	case "ollama":
		return embedding.NewOllamaModel(cfg.Embedding.Model, cfg.Embedding.BaseURL)
	default:
		return nil, fmt.Errorf("unsupported embedding provider %q", cfg.Embedding.Provider)
	}
}

func newLLM(cfg *config.AppConfig) (interfaces.LLM, error) {
	switch cfg.LLM.Provider {
	case "openai":
		return llm.NewOpenAI(cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.BaseURL)
	case "ollama":
		return llm.NewOllama(cfg.LLM.Model, cfg.LLM.BaseURL)
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.LLM.Provider)
	}
}
