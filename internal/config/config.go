package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Search   SearchConfig
	LLM      LLMConfig
	Pipeline PipelineConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port               string
	Environment        string
	RateLimitPerMinute int
	RequestTimeout     time.Duration
}

// DatabaseConfig is optional; an empty URL disables analytics.
type DatabaseConfig struct {
	URL string
}

// RedisConfig is optional; an empty URL keeps rate limiting in memory.
type RedisConfig struct {
	URL string
}

type SearchConfig struct {
	Provider      string
	Timeout       time.Duration
	UseLocal      bool
	LocalPath     string
	HitsPerPage   int
	RatePerSecond float64
	Algolia       AlgoliaConfig
	Elasticsearch ElasticsearchConfig
}

type AlgoliaConfig struct {
	AppID     string
	APIKey    string
	IndexName string
	BaseURL   string
}

type ElasticsearchConfig struct {
	Addresses []string
	Username  string
	Password  string
	Index     string
}

type LLMConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

type PipelineConfig struct {
	MaxHits    int
	RerankTopK int
	ReturnTopN int
}

type LogConfig struct {
	Level string
}

// envBindings maps config keys onto the environment names operators
// already use for this service.
var envBindings = map[string]string{
	"server.port":                    "PORT",
	"server.environment":             "APP_ENV",
	"server.rate_limit_per_minute":   "RATE_LIMIT_PER_MINUTE",
	"server.request_timeout":         "REQUEST_TIMEOUT",
	"database.url":                   "DATABASE_URL",
	"redis.url":                      "REDIS_URL",
	"search.provider":                "SEARCH_PROVIDER",
	"search.timeout":                 "ALGOLIA_TIMEOUT",
	"search.use_local":               "USE_LOCAL_JSON",
	"search.local_path":              "LOCAL_JSON_PATH",
	"search.hits_per_page":           "HITS_PER_PAGE",
	"search.rate_per_second":         "SEARCH_RATE_PER_SECOND",
	"search.algolia.app_id":          "ALGOLIA_APP_ID",
	"search.algolia.api_key":         "ALGOLIA_API_KEY",
	"search.algolia.index_name":      "ALGOLIA_INDEX_NAME",
	"search.algolia.base_url":        "ALGOLIA_BASE_URL",
	"search.elasticsearch.addresses": "ELASTICSEARCH_ADDRESSES",
	"search.elasticsearch.username":  "ELASTICSEARCH_USERNAME",
	"search.elasticsearch.password":  "ELASTICSEARCH_PASSWORD",
	"search.elasticsearch.index":     "ELASTICSEARCH_INDEX",
	"llm.api_key":                    "OPENAI_API_KEY",
	"llm.base_url":                   "OPENAI_BASE_URL",
	"llm.model":                      "OPENAI_MODEL",
	"llm.temperature":                "OPENAI_TEMPERATURE",
	"llm.max_tokens":                 "OPENAI_MAX_TOKENS",
	"llm.timeout":                    "OPENAI_TIMEOUT",
	"pipeline.max_hits":              "MAX_HITS",
	"pipeline.rerank_top_k":          "RERANK_TOP_K",
	"pipeline.return_top_n":          "RETURN_TOP_N",
	"log.level":                      "LOG_LEVEL",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.rate_limit_per_minute", 60)
	v.SetDefault("server.request_timeout", "45s")

	v.SetDefault("search.provider", "algolia")
	v.SetDefault("search.timeout", "6s")
	v.SetDefault("search.use_local", false)
	v.SetDefault("search.local_path", "data/bestbuy_seo.json")
	v.SetDefault("search.hits_per_page", 24)
	v.SetDefault("search.rate_per_second", 10.0)
	v.SetDefault("search.algolia.index_name", "electronics")
	v.SetDefault("search.elasticsearch.index", "electronics")

	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.max_tokens", 1000)
	v.SetDefault("llm.timeout", "30s")

	v.SetDefault("pipeline.max_hits", 24)
	v.SetDefault("pipeline.rerank_top_k", 10)
	v.SetDefault("pipeline.return_top_n", 5)

	v.SetDefault("log.level", "info")
}

// Load reads config.yaml (optional), defaults and the environment.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	var cfg Config

	cfg.Server.Port = v.GetString("server.port")
	cfg.Server.Environment = v.GetString("server.environment")
	cfg.Server.RateLimitPerMinute = v.GetInt("server.rate_limit_per_minute")
	cfg.Server.RequestTimeout = durationOrSeconds(v, "server.request_timeout")

	cfg.Database.URL = v.GetString("database.url")
	cfg.Redis.URL = v.GetString("redis.url")

	cfg.Search.Provider = strings.ToLower(v.GetString("search.provider"))
	cfg.Search.Timeout = durationOrSeconds(v, "search.timeout")
	cfg.Search.UseLocal = flagEnabled(v.GetString("search.use_local"))
	cfg.Search.LocalPath = v.GetString("search.local_path")
	cfg.Search.HitsPerPage = v.GetInt("search.hits_per_page")
	cfg.Search.RatePerSecond = v.GetFloat64("search.rate_per_second")
	cfg.Search.Algolia.AppID = v.GetString("search.algolia.app_id")
	cfg.Search.Algolia.APIKey = v.GetString("search.algolia.api_key")
	cfg.Search.Algolia.IndexName = v.GetString("search.algolia.index_name")
	cfg.Search.Algolia.BaseURL = v.GetString("search.algolia.base_url")
	cfg.Search.Elasticsearch.Addresses = splitList(v.GetStringSlice("search.elasticsearch.addresses"))
	cfg.Search.Elasticsearch.Username = v.GetString("search.elasticsearch.username")
	cfg.Search.Elasticsearch.Password = v.GetString("search.elasticsearch.password")
	cfg.Search.Elasticsearch.Index = v.GetString("search.elasticsearch.index")

	cfg.LLM.APIKey = v.GetString("llm.api_key")
	cfg.LLM.BaseURL = strings.TrimRight(v.GetString("llm.base_url"), "/")
	cfg.LLM.Model = v.GetString("llm.model")
	cfg.LLM.Temperature = v.GetFloat64("llm.temperature")
	cfg.LLM.MaxTokens = v.GetInt("llm.max_tokens")
	cfg.LLM.Timeout = durationOrSeconds(v, "llm.timeout")

	cfg.Pipeline.MaxHits = v.GetInt("pipeline.max_hits")
	cfg.Pipeline.RerankTopK = v.GetInt("pipeline.rerank_top_k")
	cfg.Pipeline.ReturnTopN = v.GetInt("pipeline.return_top_n")

	cfg.Log.Level = v.GetString("log.level")

	return &cfg
}

// durationOrSeconds accepts "6s" style durations as well as bare
// seconds ("6.0"), which is how ALGOLIA_TIMEOUT is usually set.
func durationOrSeconds(v *viper.Viper, key string) time.Duration {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return 0
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	secs := v.GetFloat64(key)
	return time.Duration(secs * float64(time.Second))
}

// flagEnabled accepts 1, true and yes in any case.
func flagEnabled(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// splitList flattens comma separated entries coming from a single env var.
func splitList(values []string) []string {
	var out []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// ValidateLLM reports a missing model credential. Generation cannot run
// without it, so the server refuses to start.
func (c *Config) ValidateLLM() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm model must not be empty")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}
