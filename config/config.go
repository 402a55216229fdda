package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

type Config struct {
	Env       string          `mapstructure:"env"`
	Binance   BinanceConfig   `mapstructure:"binance"`
	Etherscan EtherscanConfig `mapstructure:"etherscan"`
	Uniswap   UniswapConfig   `mapstructure:"uniswap"`
	Window    WindowConfig    `mapstructure:"window"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Log       LogConfig       `mapstructure:"log"`
	Postgres  PostgresConfig  `mapstructure:"postgres"`
	Monitor   MonitorConfig   `mapstructure:"monitor"`
}

type RESTConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
	// RateLimit caps outgoing requests per minute; 0 disables the limiter.
	RateLimit int `mapstructure:"rate_limit"`
}

// BinanceConfig drives the time-windowed candle flow.
type BinanceConfig struct {
	REST      RESTConfig    `mapstructure:"rest"`
	Symbol    string        `mapstructure:"symbol"`
	Interval  string        `mapstructure:"interval"`
	Limit     int           `mapstructure:"limit"`
	PageDelay time.Duration `mapstructure:"page_delay"`
}

// EtherscanConfig drives block resolution and the block-chunked log flow.
type EtherscanConfig struct {
	REST            RESTConfig `mapstructure:"rest"`
	APIKey          string     `mapstructure:"api_key"`
	APIKeyParameter string     `mapstructure:"api_key_parameter"` // SSM parameter name, prod only
	ChainID         int64      `mapstructure:"chain_id"`
	PoolAddress     string     `mapstructure:"pool_address"`
	Topic0          string     `mapstructure:"topic0"` // empty means the Uniswap V3 Swap topic

	ChunkSize      uint64        `mapstructure:"chunk_size"`
	ChunkDelay     time.Duration `mapstructure:"chunk_delay"`
	SkipDelay      time.Duration `mapstructure:"skip_delay"`
	RateLimitDelay time.Duration `mapstructure:"rate_limit_delay"`
	Retry          RetryConfig   `mapstructure:"retry"`

	BlockLookupAttempts int           `mapstructure:"block_lookup_attempts"`
	BlockLookupDelay    time.Duration `mapstructure:"block_lookup_delay"`
}

// RetryConfig bounds the retry loop for a single block chunk.
type RetryConfig struct {
	MaxAttempts  int           `mapstructure:"max_attempts"` // 0 retries forever
	InitialDelay time.Duration `mapstructure:"initial_delay"`
	MaxDelay     time.Duration `mapstructure:"max_delay"`
	Multiplier   float64       `mapstructure:"multiplier"`
}

type UniswapConfig struct {
	Token0Decimals int32 `mapstructure:"token0_decimals"`
	Token1Decimals int32 `mapstructure:"token1_decimals"`
}

// WindowConfig is the historical interval to backfill, both ends inclusive.
type WindowConfig struct {
	Start time.Time `mapstructure:"start"`
	End   time.Time `mapstructure:"end"`
}

type StorageConfig struct {
	Driver         string `mapstructure:"driver"` // "postgres" or "memory"
	CreateDatabase bool   `mapstructure:"create_database"`
}

// Options defines the logger configuration options.
type LogConfig struct {
	Level       string `mapstructure:"level"`       // log level: "debug", "info", "warn", "error"
	Format      string `mapstructure:"format"`      // log format: "json" or "console"
	OutputFile  string `mapstructure:"output_file"` // file path to store logs (optional)
	Environment string `mapstructure:"environment"` // environment: "dev" or "prod"
	Service     string `mapstructure:"service"`
}

type MonitorConfig struct {
	PushgatewayURL string `mapstructure:"pushgateway_url"`
	Job            string `mapstructure:"job"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "dev")

	v.SetDefault("binance.rest.base_url", "https://api.binance.com")
	v.SetDefault("binance.rest.timeout", 30*time.Second)
	v.SetDefault("binance.rest.rate_limit", 0)
	v.SetDefault("binance.symbol", "ETHUSDT")
	v.SetDefault("binance.interval", "1m")
	v.SetDefault("binance.limit", 1000)
	v.SetDefault("binance.page_delay", 500*time.Millisecond)

	v.SetDefault("etherscan.rest.base_url", "https://api.etherscan.io/v2/api")
	v.SetDefault("etherscan.rest.timeout", 30*time.Second)
	v.SetDefault("etherscan.rest.rate_limit", 0)
	v.SetDefault("etherscan.api_key", "")
	v.SetDefault("etherscan.api_key_parameter", "")
	v.SetDefault("etherscan.chain_id", 1)
	v.SetDefault("etherscan.pool_address", "0x11b815efB8f581194ae79006d24E0d814B7697F6")
	v.SetDefault("etherscan.topic0", "")
	v.SetDefault("etherscan.chunk_size", 5000)
	v.SetDefault("etherscan.chunk_delay", 200*time.Millisecond)
	v.SetDefault("etherscan.skip_delay", time.Second)
	v.SetDefault("etherscan.rate_limit_delay", 5*time.Second)
	v.SetDefault("etherscan.retry.max_attempts", 10)
	v.SetDefault("etherscan.retry.initial_delay", 5*time.Second)
	v.SetDefault("etherscan.retry.max_delay", time.Minute)
	v.SetDefault("etherscan.retry.multiplier", 2.0)
	v.SetDefault("etherscan.block_lookup_attempts", 3)
	v.SetDefault("etherscan.block_lookup_delay", 2*time.Second)

	v.SetDefault("uniswap.token0_decimals", 6)
	v.SetDefault("uniswap.token1_decimals", 18)

	v.SetDefault("window.start", "2025-09-01T00:00:00Z")
	v.SetDefault("window.end", "2025-09-30T23:59:59Z")

	v.SetDefault("storage.driver", "postgres")
	v.SetDefault("storage.create_database", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output_file", "")
	v.SetDefault("log.environment", "dev")
	v.SetDefault("log.service", "pricebackfill")

	v.SetDefault("postgres.url", "")
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.password", "")
	v.SetDefault("postgres.dbname", "pricebackfill")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.timezone", "UTC")
	v.SetDefault("postgres.max_open_conns", 4)
	v.SetDefault("postgres.max_idle_conns", 2)
	v.SetDefault("postgres.conn_max_lifetime", time.Hour)

	v.SetDefault("monitor.pushgateway_url", "")
	v.SetDefault("monitor.job", "pricebackfill")
}

// Load loads application configuration using Viper.
// It reads config.yaml from dir (or the default search paths when dir is empty)
// and overrides with environment variables. A missing file is not an error.
func Load(dir string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config") // config.yaml
	v.SetConfigType("yaml")

	if dir != "" {
		v.AddConfigPath(dir)
	} else {
		v.AddConfigPath("./config")
		if ex, err := os.Executable(); err == nil {
			v.AddConfigPath(filepath.Join(filepath.Dir(ex), "../config"))
		}
	}

	// Support environment variables with dot notation (e.g., ETHERSCAN_API_KEY)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToTimeHookFunc(time.RFC3339),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Window.Start = cfg.Window.Start.UTC()
	cfg.Window.End = cfg.Window.End.UTC()

	return &cfg, nil
}

// Validate reports the first setting that would make the run meaningless.
func (c *Config) Validate() error {
	switch {
	case c.Window.Start.IsZero() || c.Window.End.IsZero():
		return errors.New("window.start and window.end are required")
	case !c.Window.End.After(c.Window.Start):
		return fmt.Errorf("window.end %s is not after window.start %s",
			c.Window.End.Format(time.RFC3339), c.Window.Start.Format(time.RFC3339))
	case c.Binance.Limit < 1 || c.Binance.Limit > 1000:
		return fmt.Errorf("binance.limit must be within 1..1000, got %d", c.Binance.Limit)
	case c.Binance.Symbol == "":
		return errors.New("binance.symbol is required")
	case c.Etherscan.ChunkSize == 0:
		return errors.New("etherscan.chunk_size must be positive")
	case c.Etherscan.APIKey == "" && c.Etherscan.APIKeyParameter == "":
		return errors.New("etherscan.api_key is required")
	case c.Etherscan.PoolAddress == "":
		return errors.New("etherscan.pool_address is required")
	case c.Etherscan.Retry.MaxAttempts < 0 || c.Etherscan.Retry.Multiplier < 0:
		return errors.New("etherscan.retry.max_attempts and multiplier must not be negative")
	case c.Etherscan.Retry.Multiplier > 1 && c.Etherscan.Retry.MaxDelay <= 0:
		return errors.New("etherscan.retry.max_delay must be positive when multiplier is above 1")
	case c.Etherscan.BlockLookupAttempts < 1:
		return errors.New("etherscan.block_lookup_attempts must be at least 1")
	case c.Uniswap.Token0Decimals < 0 || c.Uniswap.Token0Decimals > 77,
		c.Uniswap.Token1Decimals < 0 || c.Uniswap.Token1Decimals > 77:
		return errors.New("uniswap token decimals must be within 0..77")
	case c.Storage.Driver != "postgres" && c.Storage.Driver != "memory":
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}
	return nil
}
