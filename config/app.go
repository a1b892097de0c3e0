package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/jbabiesrock-netizen/enhanced-trading-bot/types"
)

// Config is the root of the YAML configuration file.
type Config struct {
	Environment string             `yaml:"environment" default:"development" validate:"required"`
	Instruments []types.Instrument `yaml:"instruments" validate:"dive"`
	Strategy    StrategyConfig     `yaml:"strategy"`
	Schedule    ScheduleConfig     `yaml:"schedule"`
	Feed        FeedConfig         `yaml:"feed"`
	Server      ServerConfig       `yaml:"server"`
	Log         LogConfig          `yaml:"log"`
	Sinks       SinksConfig        `yaml:"sinks"`
}

type ScheduleConfig struct {
	IngestInterval   time.Duration `yaml:"ingest_interval" default:"5s" validate:"gt=0"`
	EvaluateInterval time.Duration `yaml:"evaluate_interval" default:"3s" validate:"gt=0"`
	DailyReset       bool          `yaml:"daily_reset" default:"true"`
	AutoStart        bool          `yaml:"auto_start"`
}

type FeedConfig struct {
	Type      string          `yaml:"type" default:"coingecko" validate:"oneof=coingecko kafka"`
	CoinGecko CoinGeckoConfig `yaml:"coingecko"`
	Kafka     KafkaFeedConfig `yaml:"kafka"`
}

type CoinGeckoConfig struct {
	BaseURL    string        `yaml:"base_url" default:"https://api.coingecko.com"`
	VsCurrency string        `yaml:"vs_currency" default:"usd"`
	Timeout    time.Duration `yaml:"timeout" default:"10s"`
}

type KafkaFeedConfig struct {
	Brokers  []string `yaml:"brokers"`
	Topic    string   `yaml:"topic" default:"market.ticks"`
	GroupID  string   `yaml:"group_id" default:"tradebot"`
	MinBytes int      `yaml:"min_bytes" default:"1"`
	MaxBytes int      `yaml:"max_bytes" default:"1048576"`
}

type ServerConfig struct {
	Enabled         bool          `yaml:"enabled" default:"true"`
	Port            int           `yaml:"port" default:"8080" validate:"gt=0,lt=65536"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"5s"`
}

type LogConfig struct {
	Level  string `yaml:"level" default:"info"`
	Format string `yaml:"format" default:"json" validate:"oneof=json console"`
}

type SinksConfig struct {
	BufferSize int              `yaml:"buffer_size" default:"256" validate:"gt=0"`
	Log        bool             `yaml:"log" default:"true"`
	WebSocket  bool             `yaml:"websocket" default:"true"`
	Kafka      KafkaSinkConfig  `yaml:"kafka"`
	Redis      RedisSinkConfig  `yaml:"redis"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
}

type KafkaSinkConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Brokers      []string      `yaml:"brokers"`
	Topic        string        `yaml:"topic" default:"tradebot.events"`
	WriteTimeout time.Duration `yaml:"write_timeout" default:"5s"`
}

type RedisSinkConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Addr      string `yaml:"addr" default:"localhost:6379"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	PoolSize  int    `yaml:"pool_size" default:"10"`
	KeyPrefix string `yaml:"key_prefix" default:"tradebot"`
}

type ClickHouseConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host" default:"localhost"`
	Port     int    `yaml:"port" default:"9000"`
	Database string `yaml:"database" default:"default"`
	User     string `yaml:"user" default:"default"`
	Password string `yaml:"password"`
}

// DSN builds the clickhouse:// connection string.
func (c ClickHouseConfig) DSN() string {
	return fmt.Sprintf("clickhouse://%s:%s@%s:%d/%s", c.User, c.Password, c.Host, c.Port, c.Database)
}

// DefaultInstruments is the fixed trading universe used when the file
// lists none.
func DefaultInstruments() []types.Instrument {
	return []types.Instrument{
		{ID: "ethereum", Symbol: "ETH", Name: "Ethereum", FeedID: "ethereum"},
		{ID: "bitcoin", Symbol: "BTC", Name: "Bitcoin", FeedID: "bitcoin"},
		{ID: "solana", Symbol: "SOL", Name: "Solana", FeedID: "solana"},
		{ID: "matic", Symbol: "MATIC", Name: "Polygon", FeedID: "matic-network"},
		{ID: "avalanche", Symbol: "AVAX", Name: "Avalanche", FeedID: "avalanche-2"},
		{ID: "chainlink", Symbol: "LINK", Name: "Chainlink", FeedID: "chainlink"},
	}
}

// Default returns a fully defaulted configuration.
func Default() *Config {
	c := &Config{}
	if err := defaults.Set(c); err != nil {
		panic(fmt.Sprintf("config: bad default tag: %v", err))
	}
	c.Instruments = DefaultInstruments()
	return c
}

// Parse applies defaults, overlays the YAML document and validates.
func Parse(b []byte) (*Config, error) {
	c := &Config{}
	if err := defaults.Set(c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if len(c.Instruments) == 0 {
		c.Instruments = DefaultInstruments()
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Load reads and parses a YAML configuration file. An empty path yields the
// defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		c := Default()
		return c, c.Validate()
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// LoadWithEnv loads .env (if present), the YAML file, then applies
// environment overrides.
func LoadWithEnv(path, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load env file: %w", err)
		}
	}
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	return c, c.Validate()
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("TRADEBOT_PAPER_TRADING"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("TRADEBOT_PAPER_TRADING: %w", err)
		}
		c.Strategy.PaperTrading = b
	}
	if v := os.Getenv("TRADEBOT_FEED"); v != "" {
		c.Feed.Type = v
	}
	if v := os.Getenv("TRADEBOT_KAFKA_BROKERS"); v != "" {
		brokers := strings.Split(v, ",")
		c.Feed.Kafka.Brokers = brokers
		c.Sinks.Kafka.Brokers = brokers
	}
	if v := os.Getenv("TRADEBOT_REDIS_ADDR"); v != "" {
		c.Sinks.Redis.Addr = v
	}
	if v := os.Getenv("TRADEBOT_HTTP_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TRADEBOT_HTTP_PORT: %w", err)
		}
		c.Server.Port = p
	}
	if v := os.Getenv("TRADEBOT_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	return nil
}

// Validate checks the whole configuration tree.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if len(c.Instruments) == 0 {
		return errors.New("instruments cannot be empty")
	}
	seen := make(map[string]bool, len(c.Instruments))
	for _, in := range c.Instruments {
		if seen[in.ID] {
			return fmt.Errorf("duplicate instrument %q", in.ID)
		}
		seen[in.ID] = true
	}
	if c.Feed.Type == "kafka" && len(c.Feed.Kafka.Brokers) == 0 {
		return errors.New("feed.kafka.brokers is required for the kafka feed")
	}
	if c.Sinks.Kafka.Enabled && len(c.Sinks.Kafka.Brokers) == 0 {
		return errors.New("sinks.kafka.brokers is required when the kafka sink is enabled")
	}
	return c.Strategy.Validate()
}
