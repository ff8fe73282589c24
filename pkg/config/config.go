package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/tironinho/kronos-sub000/pkg/questdb"
	"github.com/tironinho/kronos-sub000/pkg/redis"
)

// Config represents the application configuration. It is loaded once at
// startup and treated as immutable afterwards.
type Config struct {
	App          AppConfig          `envPrefix:"APP_"`
	MarketData   MarketDataConfig   `envPrefix:"MARKET_DATA_"`
	Buffers      BufferConfig       `envPrefix:"BUFFER_"`
	Features     FeatureConfig      `envPrefix:"FEATURES_"`
	Signal       SignalConfig       `envPrefix:"SIGNAL_"`
	Selector     SelectorConfig     `envPrefix:"SELECTOR_"`
	Pipeline     PipelineConfig     `envPrefix:"PIPELINE_"`
	Orchestrator OrchestratorConfig `envPrefix:"ORCHESTRATOR_"`
	OrderManager OrderManagerConfig `envPrefix:"ORDER_MANAGER_"`
	LedgerKafka  KafkaConfig        `envPrefix:"LEDGER_KAFKA_"`
	AlertKafka   KafkaConfig        `envPrefix:"ALERT_KAFKA_"`
	Redis        redis.Config       `envPrefix:"REDIS_"`
	QuestDB      questdb.Config     `envPrefix:"QUESTDB_"`
}

// AppConfig represents the application-level configuration.
type AppConfig struct {
	Name        string `env:"NAME" envDefault:"kronos-engine"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
}

// MarketDataConfig represents the market data channel configuration.
type MarketDataConfig struct {
	URL                  string        `env:"URL" envDefault:"wss://stream.binance.com:9443/stream"`
	Symbols              []string      `env:"SYMBOLS" envSeparator:"," envDefault:"BTCUSDT,ETHUSDT"`
	ConnectTimeout       time.Duration `env:"CONNECT_TIMEOUT" envDefault:"10s"`
	PingInterval         time.Duration `env:"PING_INTERVAL" envDefault:"15s"`
	PongTimeout          time.Duration `env:"PONG_TIMEOUT" envDefault:"30s"`
	ReconnectInterval    time.Duration `env:"RECONNECT_INTERVAL" envDefault:"1s"`
	MaxReconnectInterval time.Duration `env:"MAX_RECONNECT_INTERVAL" envDefault:"30s"`
	MaxReconnectAttempts int           `env:"MAX_RECONNECT_ATTEMPTS" envDefault:"10"`
}

// BufferConfig represents the per-symbol ring buffer capacities.
type BufferConfig struct {
	TickCapacity  int `env:"TICK_CAPACITY" envDefault:"2000"`
	DepthCapacity int `env:"DEPTH_CAPACITY" envDefault:"100"`
}

// FeatureConfig represents the feature engine configuration.
type FeatureConfig struct {
	OFIWindows        []time.Duration `env:"OFI_WINDOWS" envSeparator:"," envDefault:"1s,5s,15s,60s"`
	MomentumWindow    time.Duration   `env:"MOMENTUM_WINDOW" envDefault:"5s"`
	MomentumMinVolume float64         `env:"MOMENTUM_MIN_VOLUME" envDefault:"1"`
	MeanRevWindow     time.Duration   `env:"MEAN_REV_WINDOW" envDefault:"60s"`
	VolatilityWindow  time.Duration   `env:"VOLATILITY_WINDOW" envDefault:"60s"`
	QueueDepthLevels  int             `env:"QUEUE_DEPTH_LEVELS" envDefault:"5"`
	VPINBuckets       int             `env:"VPIN_BUCKETS" envDefault:"10"`
	MinObservations   int             `env:"MIN_OBSERVATIONS" envDefault:"10"`
}

// SignalConfig represents the signal generator configuration.
type SignalConfig struct {
	ZScoreThreshold   float64       `env:"ZSCORE_THRESHOLD" envDefault:"2.0"`
	MinEdgeBps        float64       `env:"MIN_EDGE_BPS" envDefault:"3"`
	MeanRevTicks      float64       `env:"MEAN_REV_TICKS" envDefault:"2"`
	QueueImbThreshold float64       `env:"QUEUE_IMB_THRESHOLD" envDefault:"0.3"`
	MinStrength       float64       `env:"MIN_STRENGTH" envDefault:"0.5"`
	MinConfidence     float64       `env:"MIN_CONFIDENCE" envDefault:"0.4"`
	Cooldown          time.Duration `env:"COOLDOWN" envDefault:"30s"`
}

// SelectorConfig represents the symbol selector configuration.
type SelectorConfig struct {
	Enabled       bool    `env:"ENABLED" envDefault:"true"`
	TopN          int     `env:"TOP_N" envDefault:"5"`
	MinVolatility float64 `env:"MIN_VOLATILITY" envDefault:"0"`
	MinVolume24h  float64 `env:"MIN_VOLUME_24H" envDefault:"0"`
}

// PipelineConfig represents the signal evaluation loop configuration.
type PipelineConfig struct {
	EvalInterval  time.Duration `env:"EVAL_INTERVAL" envDefault:"1s"`
	TradeNotional float64       `env:"TRADE_NOTIONAL" envDefault:"1000"`
}

// OrchestratorConfig represents the trade orchestrator configuration.
type OrchestratorConfig struct {
	MaxConcurrentTrades int           `env:"MAX_CONCURRENT_TRADES" envDefault:"3"`
	MaxDailyTrades      int           `env:"MAX_DAILY_TRADES" envDefault:"50"`
	PriorityThreshold   int           `env:"PRIORITY_THRESHOLD" envDefault:"8"`
	RiskLimitPerSymbol  float64       `env:"RISK_LIMIT_PER_SYMBOL" envDefault:"10000"`
	DrainInterval       time.Duration `env:"DRAIN_INTERVAL" envDefault:"500ms"`
	ExecutionTimeout    time.Duration `env:"EXECUTION_TIMEOUT" envDefault:"10s"`
	HighPriorityBacklog int           `env:"HIGH_PRIORITY_BACKLOG" envDefault:"5"`
}

// OrderManagerConfig represents the order manager risk configuration.
type OrderManagerConfig struct {
	MaxOpenPositions    int           `env:"MAX_OPEN_POSITIONS" envDefault:"5"`
	MaxPositionNotional float64       `env:"MAX_POSITION_NOTIONAL" envDefault:"50000"`
	DailyLossCeiling    float64       `env:"DAILY_LOSS_CEILING" envDefault:"1000"`
	PlaceTimeout        time.Duration `env:"PLACE_TIMEOUT" envDefault:"10s"`
}

// KafkaConfig represents a Kafka producer configuration.
type KafkaConfig struct {
	Enabled bool     `env:"ENABLED" envDefault:"false"`
	Brokers []string `env:"BROKERS" envSeparator:"," envDefault:"localhost:9092"`
	Topic   string   `env:"TOPIC" envDefault:"trades"`
}

// Load loads the configuration from the environment.
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}
