package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Postgres  PostgresConfig  `mapstructure:"postgres"`
	Store     StoreConfig     `mapstructure:"store"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Knowledge KnowledgeConfig `mapstructure:"knowledge"`
	Slack     SlackConfig     `mapstructure:"slack"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port             string   `mapstructure:"port" validate:"required"`
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	// 비어 있으면 API 인증을 사용하지 않음
	AuthJWTSecret string `mapstructure:"auth_jwt_secret"`
}

type PostgresConfig struct {
	DatabaseURL string `mapstructure:"database_url"`
	Host        string `mapstructure:"host"`
	Port        string `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	Database    string `mapstructure:"database"`
	SSLMode     string `mapstructure:"sslmode"`
	MaxConns    int32  `mapstructure:"max_conns" validate:"gte=0"`
}

type StoreConfig struct {
	Backend string `mapstructure:"backend" validate:"oneof=postgres memory"`
}

type PipelineConfig struct {
	StageTimeout       time.Duration `mapstructure:"stage_timeout" validate:"gt=0"`
	StageRetries       uint          `mapstructure:"stage_retries"`
	StageRetryInterval time.Duration `mapstructure:"stage_retry_interval"`
}

type LLMConfig struct {
	Provider       string `mapstructure:"provider" validate:"oneof=gemini openai agent"`
	APIKey         string `mapstructure:"api_key"`
	Model          string `mapstructure:"model"`
	EmbeddingModel string `mapstructure:"embedding_model"`
	OpenAIBaseURL  string `mapstructure:"openai_base_url"`
	AgentURL       string `mapstructure:"agent_url"`
}

type KnowledgeConfig struct {
	TopK          int           `mapstructure:"top_k" validate:"gt=0"`
	QueryCacheTTL time.Duration `mapstructure:"query_cache_ttl"`
	ChunkSize     int           `mapstructure:"chunk_size" validate:"gt=0"`
	ChunkOverlap  int           `mapstructure:"chunk_overlap" validate:"gte=0,ltfield=ChunkSize"`
}

type SlackConfig struct {
	BotToken      string `mapstructure:"bot_token"`
	ChannelID     string `mapstructure:"channel_id"`
	DashboardURL  string `mapstructure:"dashboard_url"`
	RatePerMinute int    `mapstructure:"rate_per_minute" validate:"gte=0"`
}

type NotifyConfig struct {
	Retries       uint          `mapstructure:"retries"`
	RetryInterval time.Duration `mapstructure:"retry_interval"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

// binding - 설정 키, 환경 변수 이름, 기본값
type binding struct {
	key      string
	env      string
	fallback any
}

// 기존 배포와 호환되도록 환경 변수 이름은 그대로 유지
var bindings = []binding{
	{"server.port", "PORT", "8080"},
	{"server.allowed_origins", "CORS_ALLOWED_ORIGINS", []string{}},
	{"server.allow_credentials", "CORS_ALLOW_CREDENTIALS", false},
	{"server.auth_jwt_secret", "JWT_SECRET", ""},

	{"postgres.database_url", "DATABASE_URL", ""},
	{"postgres.host", "PGHOST", "localhost"},
	{"postgres.port", "PGPORT", "5432"},
	{"postgres.user", "PGUSER", ""},
	{"postgres.password", "PGPASSWORD", ""},
	{"postgres.database", "PGDATABASE", ""},
	{"postgres.sslmode", "PGSSLMODE", "disable"},
	{"postgres.max_conns", "PG_MAX_CONNS", 0},

	{"store.backend", "STORE_BACKEND", "postgres"},

	{"pipeline.stage_timeout", "PIPELINE_STAGE_TIMEOUT", 3 * time.Minute},
	{"pipeline.stage_retries", "PIPELINE_STAGE_RETRIES", 2},
	{"pipeline.stage_retry_interval", "PIPELINE_STAGE_RETRY_INTERVAL", 2 * time.Second},

	{"llm.provider", "LLM_PROVIDER", "gemini"},
	{"llm.api_key", "AI_API_KEY", ""},
	{"llm.model", "LLM_MODEL", "gemini-2.5-flash"},
	{"llm.embedding_model", "EMBEDDING_MODEL", "text-embedding-004"},
	{"llm.openai_base_url", "OPENAI_BASE_URL", ""},
	{"llm.agent_url", "AGENT_URL", "http://kube-rca-agent.kube-rca.svc:8000"},

	{"knowledge.top_k", "KNOWLEDGE_TOP_K", 5},
	{"knowledge.query_cache_ttl", "KNOWLEDGE_QUERY_CACHE_TTL", 10 * time.Minute},
	{"knowledge.chunk_size", "KNOWLEDGE_CHUNK_SIZE", 1000},
	{"knowledge.chunk_overlap", "KNOWLEDGE_CHUNK_OVERLAP", 200},

	{"slack.bot_token", "SLACK_BOT_TOKEN", ""},
	{"slack.channel_id", "SLACK_CHANNEL_ID", ""},
	{"slack.dashboard_url", "SLACK_DASHBOARD_URL", ""},
	{"slack.rate_per_minute", "SLACK_RATE_PER_MINUTE", 30},

	{"notify.retries", "NOTIFY_RETRIES", 3},
	{"notify.retry_interval", "NOTIFY_RETRY_INTERVAL", time.Second},

	{"log.level", "LOG_LEVEL", "info"},
	{"log.format", "LOG_FORMAT", "json"},
}

// Load - 환경 변수에서 설정을 읽고 검증
func Load() (Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	for _, b := range bindings {
		v.SetDefault(b.key, b.fallback)
		if err := v.BindEnv(b.key, b.env); err != nil {
			return Config{}, fmt.Errorf("bind env %s error: %w", b.env, err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config error: %w", err)
	}
	if err := validator.New().Struct(c); err != nil {
		return Config{}, fmt.Errorf("validate config error: %w", err)
	}

	return c, nil
}
