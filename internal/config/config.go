package config

import (
	"github.com/partdeck/partdeck/pkg/config"
	"github.com/partdeck/partdeck/pkg/llm"
)

// Config stores environment configuration for the PartDeck service.
type Config struct {
	Port        string
	DatabaseURL string

	LLM                 llm.Config
	Embedding           llm.Config
	EmbeddingDimensions int

	PartsTopK   int
	RepairsTopK int
	SupportTopK int

	PartsTable   string
	RepairsTable string
	SupportTable string

	// ConversationBackend is "memory" or "redis".
	ConversationBackend string
	RedisURL            string
}

// LoadConfig loads the PartDeck configuration from environment variables.
// LLM and embedding settings come from the shared loaders in pkg/llm, with
// DeepSeek chat and OpenAI embedding defaults filled in where the
// environment is silent.
func LoadConfig() Config {
	llmCfg := llm.LoadConfig()
	if llmCfg.Model == "" {
		llmCfg.Model = "deepseek-chat"
	}
	if llmCfg.APIURL == "" {
		llmCfg.APIURL = "https://api.deepseek.com/v1"
	}
	if llmCfg.MaxTokens == 0 {
		llmCfg.MaxTokens = 4096
	}

	embCfg := llm.LoadEmbeddingConfig()
	if embCfg.Model == "" {
		embCfg.Model = "text-embedding-3-small"
	}

	return Config{
		Port:        config.GetEnv("PORT", "8000"),
		DatabaseURL: config.RequireEnv("DATABASE_URL"),

		LLM:                 llmCfg,
		Embedding:           embCfg,
		EmbeddingDimensions: config.GetEnvInt("EMBEDDING_DIMENSIONS", 0),

		PartsTopK:   config.GetEnvInt("PARTS_TOP_K", 3),
		RepairsTopK: config.GetEnvInt("REPAIRS_TOP_K", 3),
		SupportTopK: config.GetEnvInt("SUPPORT_TOP_K", 2),

		PartsTable:   config.GetEnv("PARTS_TABLE", "parts_vectors"),
		RepairsTable: config.GetEnv("REPAIRS_TABLE", "repairs_vectors"),
		SupportTable: config.GetEnv("SUPPORT_TABLE", "support_vectors"),

		ConversationBackend: config.GetEnv("CONVERSATION_BACKEND", "memory"),
		RedisURL:            config.GetEnv("REDIS_URL", ""),
	}
}
