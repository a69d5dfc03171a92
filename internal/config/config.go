package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Address         string `yaml:"address"`         // listen address, e.g. ":8080"
	MaxUploadSizeMB int    `yaml:"maxUploadSizeMB"` // multipart upload cap
}

// MilvusConfig holds the connection and collection settings for the vector store.
type MilvusConfig struct {
	Address    string `yaml:"address"`    // Milvus endpoint
	Collection string `yaml:"collection"` // collection holding summary vectors
	Dim        int    `yaml:"dim"`        // embedding dimension
	MetricType string `yaml:"metricType"` // e.g. "COSINE", "L2"
}

// MinIOConfig holds the connection settings for the raw content store.
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	Secure    bool   `yaml:"secure"`
}

// EmbeddingConfig selects and configures the embedding model client.
// The same model must serve both index-time and query-time embedding.
type EmbeddingConfig struct {
	Provider string `yaml:"provider"` // "ollama" or "openai"
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"baseURL,omitempty"`
	APIKey   string `yaml:"apiKey,omitempty"`
}

// LLMConfig selects and configures the generation client used for both
// per-element summaries and final answers.
type LLMConfig struct {
	Provider string `yaml:"provider"` // "ollama" or "openai"
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"baseURL,omitempty"`
	APIKey   string `yaml:"apiKey,omitempty"`
}

// OCRConfig configures the OCR capability for image elements.
type OCRConfig struct {
	Enabled   bool     `yaml:"enabled"`
	Languages []string `yaml:"languages"` // tesseract language codes
}

// SummarizerConfig bounds summary length and text-block chunking.
type SummarizerConfig struct {
	MaxSummaryTokens int `yaml:"maxSummaryTokens"` // hard cap applied to summaries
	ChunkSizeTokens  int `yaml:"chunkSizeTokens"`  // text block split size
	ChunkOverlap     int `yaml:"chunkOverlap"`
}

// RetrieverConfig exposes the hybrid fusion tunables.
type RetrieverConfig struct {
	TopKSemantic   int     `yaml:"topKSemantic"`   // candidates from the vector leg
	TopKKeyword    int     `yaml:"topKKeyword"`    // candidates from the lexical leg
	SemanticWeight float64 `yaml:"semanticWeight"` // weight of normalized semantic score
	KeywordWeight  float64 `yaml:"keywordWeight"`  // weight of normalized keyword score
	DualBonus      float64 `yaml:"dualBonus"`      // bonus when a hit appears in both legs
	MinScore       float64 `yaml:"minScore"`       // hits below this fused score are dropped
}

// AppConfig is the root configuration for the ragserver process.
type AppConfig struct {
	Server     ServerConfig     `yaml:"server"`
	Milvus     MilvusConfig     `yaml:"milvus"`
	MinIO      MinIOConfig      `yaml:"minio"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	LLM        LLMConfig        `yaml:"llm"`
	OCR        OCRConfig        `yaml:"ocr"`
	Summarizer SummarizerConfig `yaml:"summarizer"`
	Retriever  RetrieverConfig  `yaml:"retriever"`
}

// LoadConfig reads and parses the yaml configuration file at the given path.
func LoadConfig(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// Default returns a configuration with all defaults applied, suitable for
// local development and tests.
func Default() *AppConfig {
	cfg := &AppConfig{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Server.MaxUploadSizeMB == 0 {
		cfg.Server.MaxUploadSizeMB = 64
	}
	if cfg.Milvus.Collection == "" {
		cfg.Milvus.Collection = "pdf_multimodal_summaries"
	}
	if cfg.Milvus.MetricType == "" {
		cfg.Milvus.MetricType = "COSINE"
	}
	if cfg.MinIO.Bucket == "" {
		cfg.MinIO.Bucket = "documind-raw"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "ollama"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "nomic-embed-text"
	}
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "ollama"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "llama3"
	}
	if len(cfg.OCR.Languages) == 0 {
		cfg.OCR.Languages = []string{"eng"}
	}
	if cfg.Summarizer.MaxSummaryTokens == 0 {
		cfg.Summarizer.MaxSummaryTokens = 120
	}
	if cfg.Summarizer.ChunkSizeTokens == 0 {
		cfg.Summarizer.ChunkSizeTokens = 800
	}
	if cfg.Summarizer.ChunkOverlap == 0 {
		cfg.Summarizer.ChunkOverlap = 100
	}
	if cfg.Retriever.TopKSemantic == 0 {
		cfg.Retriever.TopKSemantic = 10
	}
	if cfg.Retriever.TopKKeyword == 0 {
		cfg.Retriever.TopKKeyword = 10
	}
	if cfg.Retriever.SemanticWeight == 0 {
		cfg.Retriever.SemanticWeight = 0.6
	}
	if cfg.Retriever.KeywordWeight == 0 {
		cfg.Retriever.KeywordWeight = 0.4
	}
	if cfg.Retriever.DualBonus == 0 {
		cfg.Retriever.DualBonus = 0.1
	}
}
