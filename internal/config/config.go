package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	Agent     AgentConfig
	PiAPI     PiAPIConfig
	Chain     ChainConfig
	R2        R2Config
}

type ServerConfig struct {
	Port      string
	Env       string
	LogLevel  string
	ApiDomain string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration int // hours
}

type RateLimitConfig struct {
	MessagesPerMin     int
	GenerationsPerHour int
	MintsPerHour       int
}

type AgentConfig struct {
	BaseURL        string
	DefaultAgentID string
}

type PiAPIConfig struct {
	APIKey       string
	BaseURL      string
	Model        string
	PollInterval int // seconds between status checks
	MaxAttempts  int // non-terminal observations before timing out
	RetryBudget  int // consecutive transport failures tolerated per poll
	WarmupDelay  int // seconds before the first check on the worker path
}

type ChainConfig struct {
	GatewayURL string
	ChainID    string
	Collection string
	Royalties  int // basis points, 0-10000
	GasLimit   uint64
	GasPrice   uint64
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicURL       string
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("PIAPI_API_KEY")
	readSecret("JWT_SECRET")
	readSecret("R2_ACCOUNT_ID")
	readSecret("R2_ACCESS_KEY_ID")
	readSecret("R2_SECRET_ACCESS_KEY")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Bind environment variables with underscores to nested config keys
	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("server.api_domain", "API_DOMAIN")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("jwt.secret", "JWT_SECRET")
	_ = viper.BindEnv("jwt.expiration", "JWT_EXPIRATION")
	_ = viper.BindEnv("agent.base_url", "AGENT_BASE_URL")
	_ = viper.BindEnv("agent.default_agent_id", "AGENT_DEFAULT_ID")
	_ = viper.BindEnv("piapi.api_key", "PIAPI_API_KEY")
	_ = viper.BindEnv("piapi.base_url", "PIAPI_BASE_URL")
	_ = viper.BindEnv("piapi.model", "PIAPI_MODEL")
	_ = viper.BindEnv("piapi.poll_interval", "PIAPI_POLL_INTERVAL")
	_ = viper.BindEnv("piapi.max_attempts", "PIAPI_MAX_ATTEMPTS")
	_ = viper.BindEnv("piapi.retry_budget", "PIAPI_RETRY_BUDGET")
	_ = viper.BindEnv("piapi.warmup_delay", "PIAPI_WARMUP_DELAY")
	_ = viper.BindEnv("chain.gateway_url", "CHAIN_GATEWAY_URL")
	_ = viper.BindEnv("chain.chain_id", "CHAIN_ID")
	_ = viper.BindEnv("chain.collection", "CHAIN_NFT_COLLECTION")
	_ = viper.BindEnv("chain.royalties", "CHAIN_NFT_ROYALTIES")
	_ = viper.BindEnv("chain.gas_limit", "CHAIN_GAS_LIMIT")
	_ = viper.BindEnv("chain.gas_price", "CHAIN_GAS_PRICE")
	_ = viper.BindEnv("r2.account_id", "R2_ACCOUNT_ID")
	_ = viper.BindEnv("r2.access_key_id", "R2_ACCESS_KEY_ID")
	_ = viper.BindEnv("r2.secret_access_key", "R2_SECRET_ACCESS_KEY")
	_ = viper.BindEnv("r2.bucket_name", "R2_BUCKET_NAME")
	_ = viper.BindEnv("r2.public_url", "R2_PUBLIC_URL")

	// Defaults
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("jwt.secret", "change-me-in-production")
	viper.SetDefault("jwt.expiration", 24)
	viper.SetDefault("ratelimit.messages_per_min", 30)
	viper.SetDefault("ratelimit.generations_per_hour", 10)
	viper.SetDefault("ratelimit.mints_per_hour", 20)

	// Agent defaults
	viper.SetDefault("agent.base_url", "http://localhost:3000")
	viper.SetDefault("agent.default_agent_id", "b850bc30-45f8-0041-a00a-83df46d8555d")

	// PiAPI defaults
	viper.SetDefault("piapi.base_url", "https://api.piapi.ai/api/v1")
	viper.SetDefault("piapi.model", "music-s")
	viper.SetDefault("piapi.poll_interval", 5)
	viper.SetDefault("piapi.max_attempts", 60)
	viper.SetDefault("piapi.retry_budget", 5)
	viper.SetDefault("piapi.warmup_delay", 2)

	// Chain defaults (testnet)
	viper.SetDefault("chain.gateway_url", "https://testnet-gateway.multiversx.com")
	viper.SetDefault("chain.chain_id", "T")
	viper.SetDefault("chain.collection", "MUSIC-abcdef")
	viper.SetDefault("chain.royalties", 500)
	viper.SetDefault("chain.gas_limit", 60000000)
	viper.SetDefault("chain.gas_price", 1000000000)

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:      viper.GetString("server.port"),
			Env:       viper.GetString("server.env"),
			LogLevel:  viper.GetString("server.log_level"),
			ApiDomain: viper.GetString("server.api_domain"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:     viper.GetString("jwt.secret"),
			Expiration: viper.GetInt("jwt.expiration"),
		},
		RateLimit: RateLimitConfig{
			MessagesPerMin:     viper.GetInt("ratelimit.messages_per_min"),
			GenerationsPerHour: viper.GetInt("ratelimit.generations_per_hour"),
			MintsPerHour:       viper.GetInt("ratelimit.mints_per_hour"),
		},
		Agent: AgentConfig{
			BaseURL:        viper.GetString("agent.base_url"),
			DefaultAgentID: viper.GetString("agent.default_agent_id"),
		},
		PiAPI: PiAPIConfig{
			APIKey:       viper.GetString("piapi.api_key"),
			BaseURL:      viper.GetString("piapi.base_url"),
			Model:        viper.GetString("piapi.model"),
			PollInterval: viper.GetInt("piapi.poll_interval"),
			MaxAttempts:  viper.GetInt("piapi.max_attempts"),
			RetryBudget:  viper.GetInt("piapi.retry_budget"),
			WarmupDelay:  viper.GetInt("piapi.warmup_delay"),
		},
		Chain: ChainConfig{
			GatewayURL: viper.GetString("chain.gateway_url"),
			ChainID:    viper.GetString("chain.chain_id"),
			Collection: viper.GetString("chain.collection"),
			Royalties:  viper.GetInt("chain.royalties"),
			GasLimit:   viper.GetUint64("chain.gas_limit"),
			GasPrice:   viper.GetUint64("chain.gas_price"),
		},
		R2: R2Config{
			AccountID:       viper.GetString("r2.account_id"),
			AccessKeyID:     viper.GetString("r2.access_key_id"),
			SecretAccessKey: viper.GetString("r2.secret_access_key"),
			BucketName:      viper.GetString("r2.bucket_name"),
			PublicURL:       viper.GetString("r2.public_url"),
		},
	}

	return cfg, nil
}
