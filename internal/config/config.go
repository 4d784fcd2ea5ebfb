package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server   ServerConfig
	DB       DBConfig
	Redis    RedisConfig
	NATS     NATSConfig
	OpenAI   OpenAIConfig
	Matching MatchingConfig
	CORS     CORSConfig
	Log      LogConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type NATSConfig struct {
	URL     string
	Enabled bool
}

type OpenAIConfig struct {
	APIKey         string
	ChatModel      string
	EmbeddingModel string
	EmbeddingDim   int
}

// MatchingConfig holds the tunable parameters of the matching pipeline.
// Boost values are additive score adjustments on the 0–100 scale.
type MatchingConfig struct {
	DefaultTopK       int
	ExtractAfterTurns int
	LocationBoost     float64
	EmploymentBoost   float64
	RemoteBoost       float64
	SalaryBoost       float64
	TurnLockTTLSec    int
	ChatRateLimit     int
	ChatRateWindowSec int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Load .env file if it exists (ignore error if missing)
	_ = k.Load(file.Provider(".env"), dotenv.Parser())

	// Load environment variables (override .env)
	err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ToLower(strings.ReplaceAll(s, "_", "."))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: k.String("server.host"),
			Port: k.Int("server.port"),
		},
		DB: DBConfig{
			Host:     k.String("db.host"),
			Port:     k.Int("db.port"),
			User:     k.String("db.user"),
			Password: k.String("db.password"),
			Name:     k.String("db.name"),
			SSLMode:  k.String("db.sslmode"),
			MaxConns: int32(k.Int("db.max.conns")),
		},
		Redis: RedisConfig{
			Host:     k.String("redis.host"),
			Port:     k.Int("redis.port"),
			Password: k.String("redis.password"),
			DB:       k.Int("redis.db"),
		},
		NATS: NATSConfig{
			URL:     k.String("nats.url"),
			Enabled: k.Bool("nats.enabled"),
		},
		OpenAI: OpenAIConfig{
			APIKey:         k.String("openai.api.key"),
			ChatModel:      k.String("openai.chat.model"),
			EmbeddingModel: k.String("openai.embedding.model"),
			EmbeddingDim:   k.Int("openai.embedding.dim"),
		},
		Matching: MatchingConfig{
			DefaultTopK:       k.Int("matching.default.top.k"),
			ExtractAfterTurns: k.Int("matching.extract.after.turns"),
			LocationBoost:     k.Float64("matching.boost.location"),
			EmploymentBoost:   k.Float64("matching.boost.employment"),
			RemoteBoost:       k.Float64("matching.boost.remote"),
			SalaryBoost:       k.Float64("matching.boost.salary"),
			TurnLockTTLSec:    k.Int("matching.turn.lock.ttl.sec"),
			ChatRateLimit:     k.Int("matching.chat.rate.limit"),
			ChatRateWindowSec: k.Int("matching.chat.rate.window.sec"),
		},
		CORS: CORSConfig{
			AllowedOrigins: k.Strings("cors.allowed.origins"),
		},
		Log: LogConfig{
			Level:  k.String("log.level"),
			Format: k.String("log.format"),
		},
	}

	// Apply defaults
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.DB.Host == "" {
		cfg.DB.Host = "localhost"
	}
	if cfg.DB.Port == 0 {
		cfg.DB.Port = 5432
	}
	if cfg.DB.User == "" {
		cfg.DB.User = "matchwise"
	}
	if cfg.DB.Name == "" {
		cfg.DB.Name = "matchwise"
	}
	if cfg.DB.SSLMode == "" {
		cfg.DB.SSLMode = "disable"
	}
	if cfg.DB.MaxConns == 0 {
		cfg.DB.MaxConns = 25
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.NATS.URL == "" {
		cfg.NATS.URL = "nats://localhost:4222"
	}
	if cfg.OpenAI.ChatModel == "" {
		cfg.OpenAI.ChatModel = "gpt-4o-mini"
	}
	if cfg.OpenAI.EmbeddingModel == "" {
		cfg.OpenAI.EmbeddingModel = "text-embedding-3-small"
	}
	if cfg.OpenAI.EmbeddingDim == 0 {
		cfg.OpenAI.EmbeddingDim = 1536
	}
	if cfg.Matching.DefaultTopK == 0 {
		cfg.Matching.DefaultTopK = 10
	}
	if cfg.Matching.ExtractAfterTurns == 0 {
		cfg.Matching.ExtractAfterTurns = 6
	}
	if cfg.Matching.LocationBoost == 0 {
		cfg.Matching.LocationBoost = 10
	}
	if cfg.Matching.EmploymentBoost == 0 {
		cfg.Matching.EmploymentBoost = 5
	}
	if cfg.Matching.RemoteBoost == 0 {
		cfg.Matching.RemoteBoost = 5
	}
	if cfg.Matching.SalaryBoost == 0 {
		cfg.Matching.SalaryBoost = 8
	}
	if cfg.Matching.TurnLockTTLSec == 0 {
		cfg.Matching.TurnLockTTLSec = 60
	}
	if cfg.Matching.ChatRateLimit == 0 {
		cfg.Matching.ChatRateLimit = 30
	}
	if cfg.Matching.ChatRateWindowSec == 0 {
		cfg.Matching.ChatRateWindowSec = 60
	}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		cfg.CORS.AllowedOrigins = []string{"http://localhost:5173"}
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}

	return cfg, nil
}
