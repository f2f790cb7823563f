package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Signal combination policy constants
const (
	PolicyWeightedAverage = "weighted_average"
	PolicyMajorityVote    = "majority_vote"
	PolicyUnanimous       = "unanimous"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Trading  TradingConfig  `yaml:"trading"`
	Risk     RiskConfig     `yaml:"risk"`
	Combiner CombinerConfig `yaml:"combiner"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string `yaml:"port"`
	Host string `yaml:"host"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// KafkaConfig holds Kafka configuration
type KafkaConfig struct {
	Brokers    []string `yaml:"brokers"`
	TradeTopic string   `yaml:"trade_topic"`
	PriceTopic string   `yaml:"price_topic"`
	GroupID    string   `yaml:"group_id"`
}

// RedisConfig holds Redis quote cache configuration
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// TradingConfig holds the simulation's capital and fee parameters
type TradingConfig struct {
	InitialCapital float64  `yaml:"initial_capital"`
	CommissionRate float64  `yaml:"commission_rate"`
	StampTaxRate   float64  `yaml:"stamp_tax_rate"`
	MinTradeUnit   int64    `yaml:"min_trade_unit"`
	RiskFreeRate   float64  `yaml:"risk_free_rate"`
	StockPool      []string `yaml:"stock_pool"`
	PollInterval   int      `yaml:"poll_interval_seconds"`
}

// RiskConfig holds position-sizing and risk-control limits
type RiskConfig struct {
	MaxSinglePositionPct float64 `yaml:"max_single_position_pct"`
	MaxTotalPositionPct  float64 `yaml:"max_total_position_pct"`
	CashReservePct       float64 `yaml:"cash_reserve_pct"`
	StopLossPct          float64 `yaml:"stop_loss_pct"`
	TakeProfitPct        float64 `yaml:"take_profit_pct"`
}

// CombinerConfig holds multi-strategy signal combination settings
type CombinerConfig struct {
	Policy              string             `yaml:"policy"`
	SignalThreshold     float64            `yaml:"signal_threshold"`
	RebalanceFrequency  int                `yaml:"rebalance_frequency_days"`
	TechnicalConfirm    bool               `yaml:"technical_confirm"`
	StrategyWeights     map[string]float64 `yaml:"strategy_weights"`
	MinSignalConfidence float64            `yaml:"min_signal_confidence"`
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "quantsim"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Kafka: KafkaConfig{
			Brokers:    []string{getEnv("KAFKA_BROKERS", "localhost:9092")},
			TradeTopic: getEnv("KAFKA_TRADE_TOPIC", "trade-events"),
			PriceTopic: getEnv("KAFKA_PRICE_TOPIC", "price-ticks"),
			GroupID:    getEnv("KAFKA_GROUP_ID", "quant-sim"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Trading: TradingConfig{
			InitialCapital: getEnvFloat("INITIAL_CAPITAL", 100000),
			CommissionRate: getEnvFloat("COMMISSION_RATE", 0.0003),
			StampTaxRate:   getEnvFloat("STAMP_TAX_RATE", 0.001),
			MinTradeUnit:   int64(getEnvInt("MIN_TRADE_UNIT", 100)),
			RiskFreeRate:   getEnvFloat("RISK_FREE_RATE", 0.03),
			StockPool:      splitList(getEnv("STOCK_POOL", "")),
			PollInterval:   getEnvInt("POLL_INTERVAL_SECONDS", 60),
		},
		Risk: RiskConfig{
			MaxSinglePositionPct: getEnvFloat("MAX_SINGLE_POSITION_PCT", 0.25),
			MaxTotalPositionPct:  getEnvFloat("MAX_TOTAL_POSITION_PCT", 0.90),
			CashReservePct:       getEnvFloat("CASH_RESERVE_PCT", 0.10),
			StopLossPct:          getEnvFloat("STOP_LOSS_PCT", 0.08),
			TakeProfitPct:        getEnvFloat("TAKE_PROFIT_PCT", 0.15),
		},
		Combiner: CombinerConfig{
			Policy:              getEnv("COMBINATION_POLICY", PolicyWeightedAverage),
			SignalThreshold:     getEnvFloat("SIGNAL_THRESHOLD", 0.6),
			RebalanceFrequency:  getEnvInt("REBALANCE_FREQUENCY_DAYS", 5),
			TechnicalConfirm:    getEnv("TECHNICAL_CONFIRM", "true") == "true",
			MinSignalConfidence: getEnvFloat("MIN_SIGNAL_CONFIDENCE", 0.6),
			StrategyWeights:     map[string]float64{},
		},
	}
}

// Validate checks the configuration before any simulation runs.
// Malformed weights, thresholds outside [0,1], or non-positive capital
// fail fast here rather than mid-run.
func (c *Config) Validate() error {
	if c.Trading.InitialCapital <= 0 {
		return fmt.Errorf("initial_capital must be positive, got %v", c.Trading.InitialCapital)
	}
	if c.Trading.CommissionRate < 0 || c.Trading.CommissionRate >= 1 {
		return fmt.Errorf("commission_rate must be in [0,1), got %v", c.Trading.CommissionRate)
	}
	if c.Trading.StampTaxRate < 0 || c.Trading.StampTaxRate >= 1 {
		return fmt.Errorf("stamp_tax_rate must be in [0,1), got %v", c.Trading.StampTaxRate)
	}
	if c.Trading.MinTradeUnit <= 0 {
		return fmt.Errorf("min_trade_unit must be positive, got %d", c.Trading.MinTradeUnit)
	}
	for name, pct := range map[string]float64{
		"max_single_position_pct": c.Risk.MaxSinglePositionPct,
		"max_total_position_pct":  c.Risk.MaxTotalPositionPct,
		"cash_reserve_pct":        c.Risk.CashReservePct,
		"stop_loss_pct":           c.Risk.StopLossPct,
		"take_profit_pct":         c.Risk.TakeProfitPct,
	} {
		if pct < 0 || pct > 1 {
			return fmt.Errorf("%s must be in [0,1], got %v", name, pct)
		}
	}
	if c.Combiner.SignalThreshold < 0 || c.Combiner.SignalThreshold > 1 {
		return fmt.Errorf("signal_threshold must be in [0,1], got %v", c.Combiner.SignalThreshold)
	}
	if c.Combiner.RebalanceFrequency < 0 {
		return fmt.Errorf("rebalance_frequency_days must be non-negative, got %d", c.Combiner.RebalanceFrequency)
	}
	switch c.Combiner.Policy {
	case PolicyWeightedAverage, PolicyMajorityVote, PolicyUnanimous:
	default:
		return fmt.Errorf("unknown combination policy: %q", c.Combiner.Policy)
	}
	for name, w := range c.Combiner.StrategyWeights {
		if w < 0 {
			return fmt.Errorf("strategy weight for %s must be non-negative, got %v", name, w)
		}
	}
	return nil
}

// ConnectionString returns the PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.DBName + "?sslmode=" + d.SSLMode
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
