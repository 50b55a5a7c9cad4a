package setup

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/povarna/generative-ai-agents/course-agent/internal/agent"
	"github.com/povarna/generative-ai-agents/course-agent/internal/bedrock"
	"github.com/povarna/generative-ai-agents/course-agent/internal/cache"
	"github.com/povarna/generative-ai-agents/course-agent/internal/config"
	"github.com/povarna/generative-ai-agents/course-agent/internal/conversation"
	"github.com/povarna/generative-ai-agents/course-agent/internal/database"
	"github.com/povarna/generative-ai-agents/course-agent/internal/embedding"
	"github.com/povarna/generative-ai-agents/course-agent/internal/ingestion"
	"github.com/povarna/generative-ai-agents/course-agent/internal/llm"
	"github.com/povarna/generative-ai-agents/course-agent/internal/llm/gpt"
	"github.com/povarna/generative-ai-agents/course-agent/internal/redis"
	"github.com/povarna/generative-ai-agents/course-agent/internal/search"
	"github.com/povarna/generative-ai-agents/course-agent/internal/tool"
	"github.com/povarna/generative-ai-agents/course-agent/internal/vectorstore"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type Config struct {
	AWSRegion       string
	ClaudeModelID   string
	OpenAIKey       string
	OpenAIModelID   string
	DefaultProvider string
	LLMMaxRetries   int
	LLMCallTimeout  time.Duration

	EmbeddingModelID    string
	EmbeddingDimensions int

	Database          database.Config
	DBMaxRetries      int
	CacheEnabled      bool
	Redis             redis.Config
	SearchCacheTTL    time.Duration
	SearchCachePrefix string
}

type Dependencies struct {
	Service    *agent.Service
	Store      *vectorstore.Store
	SearchTool *search.CourseSearchTool
	Registry   *tool.Registry
	Loader     *ingestion.Pipeline
	Cache      *cache.RedisSearchCache
	DB         *database.DB
	Prompts    *config.PromptsConfig
	Logger     *zerolog.Logger

	redisClient *goredis.Client
}

func LoadConfig() *Config {
	return &Config{
		AWSRegion:       getEnv("AWS_REGION", "us-east-1"),
		ClaudeModelID:   getEnv("CLAUDE_MODEL_ID", ""),
		OpenAIKey:       getEnv("OPEN_AI_KEY", ""),
		OpenAIModelID:   getEnv("OPEN_AI_MODEL_ID", ""),
		DefaultProvider: getEnv("DEFAULT_LLM_PROVIDER", "bedrock"),
		LLMMaxRetries:   getEnvInt("LLM_MAX_RETRIES", 3),
		LLMCallTimeout:  getEnvDuration("LLM_CALL_TIMEOUT", 60*time.Second),

		EmbeddingModelID:    getEnv("EMBEDDING_MODEL_ID", embedding.DefaultModelID),
		EmbeddingDimensions: getEnvInt("EMBEDDING_DIMENSIONS", 1024),

		Database: database.Config{
			Host:     getEnv("COURSE_AGENT_VECTOR_DB_HOST", "localhost"),
			Port:     getEnv("COURSE_AGENT_VECTOR_DB_PORT", "5432"),
			User:     getEnv("COURSE_AGENT_VECTOR_DB_USER", "postgres"),
			Password: getEnv("COURSE_AGENT_VECTOR_DB_PASSWORD", ""),
			Database: getEnv("COURSE_AGENT_VECTOR_DB_DATABASE", "courses"),
			SSLMode:  getEnv("COURSE_AGENT_VECTOR_DB_SSLMODE", "disable"),
		},
		DBMaxRetries: getEnvInt("DB_MAX_RETRIES", 5),
		CacheEnabled: getEnvBool("SEARCH_CACHE_ENABLED", false),
		Redis: redis.Config{
			Addr:       getEnv("REDIS_ADDR", "localhost:6379"),
			Password:   getEnv("REDIS_PASSWORD", ""),
			DB:         getEnvInt("REDIS_DB", 0),
			MaxRetries: getEnvInt("REDIS_MAX_RETRIES", 5),
		},
		SearchCacheTTL:    getEnvDuration("SEARCH_CACHE_TTL", 30*time.Minute),
		SearchCachePrefix: getEnv("SEARCH_CACHE_PREFIX", cache.DefaultPrefix),
	}
}

// WireIndex builds the retrieval side only: embedder, database, optional
// search cache, store and course loader. It needs no chat model.
func WireIndex(ctx context.Context, cfg *Config, prompts *config.PromptsConfig, logger *zerolog.Logger) (*Dependencies, error) {
	runtimeClient, err := bedrock.NewRuntimeClient(ctx, cfg.AWSRegion)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding client: %w", err)
	}
	embedder := embedding.NewBedrockEmbedder(runtimeClient, cfg.EmbeddingModelID, cfg.EmbeddingDimensions)

	db, err := database.NewWithBackoff(ctx, cfg.Database, cfg.DBMaxRetries)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	deps := &Dependencies{
		DB:      db,
		Prompts: prompts,
		Logger:  logger,
	}

	var resultCache vectorstore.ResultCache
	if cfg.CacheEnabled {
		redisClient, err := redis.ConnectRedis(ctx, cfg.Redis)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		deps.redisClient = redisClient
		deps.Cache = cache.NewRedisSearchCache(redisClient, cfg.SearchCachePrefix, cfg.SearchCacheTTL, logger)
		resultCache = deps.Cache
	}

	repository := database.NewCourseRepository(db, embedder)
	deps.Store = vectorstore.NewStore(repository, prompts.Retrieval.MaxResults, resultCache, logger)
	deps.Loader = ingestion.NewPipeline(deps.Store, logger)

	return deps, nil
}

// Wire builds every component from cfg. The caller owns the returned
// dependencies and must Close them.
func Wire(ctx context.Context, cfg *Config, logger *zerolog.Logger) (*Dependencies, error) {
	prompts, err := config.LoadPromptsConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load prompts config: %w", err)
	}

	llmClient, err := createLLMClient(ctx, cfg.DefaultProvider, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", cfg.DefaultProvider, err)
	}

	deps, err := WireIndex(ctx, cfg, prompts, logger)
	if err != nil {
		return nil, err
	}

	deps.SearchTool = search.NewCourseSearchTool(deps.Store)

	deps.Registry = tool.NewRegistry()
	if err := deps.Registry.Register(deps.SearchTool); err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to register search tool: %w", err)
	}

	generator := agent.NewGenerator(llmClient, agent.GeneratorConfig{
		SystemPrompt: prompts.Assistant.SystemPrompt,
		Temperature:  prompts.Generation.Temperature,
		MaxTokens:    prompts.Generation.MaxTokens,
		MaxRounds:    prompts.Generation.MaxRounds,
	}, logger)

	sessions := conversation.NewManager(prompts.Session.MaxHistory)

	deps.Service = agent.NewService(generator, deps.Registry, sessions, deps.Store, agent.ServiceConfig{
		QueryTemplate: prompts.Assistant.QueryTemplate,
		MaxRounds:     prompts.Generation.MaxRounds,
	}, logger)

	return deps, nil
}

func (d *Dependencies) Close() {
	if d.redisClient != nil {
		d.redisClient.Close()
	}
	if d.DB != nil {
		d.DB.Close()
	}
}

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		value = defaultValue
	}

	return value
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		value = defaultValue
	}

	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		value = defaultValue
	}

	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil || value <= 0 {
		value = defaultValue
	}

	return value
}

func createLLMClient(ctx context.Context, provider string, cfg *Config) (llm.Client, error) {
	switch provider {
	case "openai":
		return gpt.NewClient(cfg.OpenAIKey, cfg.OpenAIModelID, cfg.LLMMaxRetries, cfg.LLMCallTimeout)
	default:
		client, err := bedrock.NewClient(ctx, cfg.AWSRegion, cfg.ClaudeModelID)
		if err != nil {
			return nil, err
		}
		client.MaxRetries = cfg.LLMMaxRetries
		client.CallTimeout = cfg.LLMCallTimeout
		return client, nil
	}
}
