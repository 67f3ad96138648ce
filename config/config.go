package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Log       Logger         `mapstructure:"logger"`
	DB        Database       `mapstructure:"database"`
	API       API            `mapstructure:"api"`
	Scheduler Scheduler      `mapstructure:"scheduler"`
	Yahoo     YahooFinance   `mapstructure:"yahoo_finance"`
	KIS       KIS            `mapstructure:"kis"`
	Cache     Cache          `mapstructure:"cache"`
	Telegram  TelegramConfig `mapstructure:"telegram"`
	Turtle    Turtle         `mapstructure:"turtle"`
	Risk      RiskLimits     `mapstructure:"risk"`
}

type Logger struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

type Database struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"name"`
	SSLMode         string `mapstructure:"ssl_mode"`
	TimeZone        string `mapstructure:"time_zone"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime string `mapstructure:"conn_max_lifetime"`
	LogLevel        string `mapstructure:"log_level"`
}

type API struct {
	Port int `mapstructure:"port"`
}

type Scheduler struct {
	SignalCheckCron string        `mapstructure:"signal_check_cron"`
	TimeoutDuration time.Duration `mapstructure:"timeout_duration"`
	MaxConcurrency  int           `mapstructure:"max_concurrency"`
}

type YahooFinance struct {
	BaseURL             string        `mapstructure:"base_url"`
	Timeout             time.Duration `mapstructure:"timeout"`
	MaxRequestPerMinute int           `mapstructure:"max_request_per_minute"`
	CacheDuration       time.Duration `mapstructure:"cache_duration"`
}

// KIS holds the Korea Investment & Securities broker API settings.
type KIS struct {
	BaseURL          string        `mapstructure:"base_url"`
	AppKey           string        `mapstructure:"app_key"`
	AppSecret        string        `mapstructure:"app_secret"`
	AccountNo        string        `mapstructure:"account_no"`
	Timeout          time.Duration `mapstructure:"timeout"`
	MaxRequestPerSec int           `mapstructure:"max_request_per_sec"`
	DryRun           bool          `mapstructure:"dry_run"`
	AutoTrade        bool          `mapstructure:"auto_trade"`
	MaxOrderAmount   float64       `mapstructure:"max_order_amount"`
	TokenCacheTTL    time.Duration `mapstructure:"token_cache_ttl"`
}

type Cache struct {
	DefaultExpiration time.Duration `mapstructure:"default_expiration"`
	CleanupInterval   time.Duration `mapstructure:"cleanup_interval"`
}

type TelegramConfig struct {
	BotToken                  string        `mapstructure:"bot_token"`
	ChatID                    int64         `mapstructure:"chat_id"`
	TimeoutDuration           time.Duration `mapstructure:"timeout_duration"`
	MaxGlobalRequestPerSecond int           `mapstructure:"max_global_request_per_second"`
}

// Turtle holds the strategy parameters shared by the backtester and the
// live signal checker.
type Turtle struct {
	InitialCapital   float64             `mapstructure:"initial_capital"`
	RiskPercent      float64             `mapstructure:"risk_percent"`
	System           int                 `mapstructure:"system"`
	MaxUnits         int                 `mapstructure:"max_units"`
	PyramidIntervalN float64             `mapstructure:"pyramid_interval_n"`
	StopDistanceN    float64             `mapstructure:"stop_distance_n"`
	UseFilter        bool                `mapstructure:"use_filter"`
	CommissionPct    float64             `mapstructure:"commission_pct"`
	Universe         []string            `mapstructure:"universe"`
	Groups           map[string][]string `mapstructure:"groups"`
}

type RiskLimits struct {
	MaxUnitsPerMarket  int     `mapstructure:"max_units_per_market"`
	MaxUnitsCorrelated int     `mapstructure:"max_units_correlated"`
	MaxUnitsDirection  int     `mapstructure:"max_units_direction"`
	MaxTotalNExposure  float64 `mapstructure:"max_total_n_exposure"`
}

func Load() (*Config, error) {
	// .env is optional, used for local development only.
	_ = godotenv.Load()

	viper.SetConfigType("yaml")
	viper.SetConfigName("config")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.encoding", "json")
	viper.SetDefault("api.port", 8080)

	viper.SetDefault("scheduler.signal_check_cron", "0 7 * * 1-5")
	viper.SetDefault("scheduler.timeout_duration", "10m")
	viper.SetDefault("scheduler.max_concurrency", 4)

	viper.SetDefault("yahoo_finance.base_url", "https://query1.finance.yahoo.com/v8/finance/chart")
	viper.SetDefault("yahoo_finance.timeout", "15s")
	viper.SetDefault("yahoo_finance.max_request_per_minute", 30)
	viper.SetDefault("yahoo_finance.cache_duration", "10m")

	viper.SetDefault("kis.timeout", "10s")
	viper.SetDefault("kis.max_request_per_sec", 2)
	viper.SetDefault("kis.dry_run", true)
	viper.SetDefault("kis.auto_trade", false)
	viper.SetDefault("kis.max_order_amount", 5000000.0)
	viper.SetDefault("kis.token_cache_ttl", "23h")

	viper.SetDefault("cache.default_expiration", "10m")
	viper.SetDefault("cache.cleanup_interval", "15m")

	viper.SetDefault("telegram.timeout_duration", "10s")
	viper.SetDefault("telegram.max_global_request_per_second", 30)

	viper.SetDefault("turtle.initial_capital", 100000.0)
	viper.SetDefault("turtle.risk_percent", 0.01)
	viper.SetDefault("turtle.system", 1)
	viper.SetDefault("turtle.max_units", 4)
	viper.SetDefault("turtle.pyramid_interval_n", 0.5)
	viper.SetDefault("turtle.stop_distance_n", 2.0)
	viper.SetDefault("turtle.use_filter", true)
	viper.SetDefault("turtle.commission_pct", 0.001)

	viper.SetDefault("risk.max_units_per_market", 4)
	viper.SetDefault("risk.max_units_correlated", 6)
	viper.SetDefault("risk.max_units_direction", 12)
	viper.SetDefault("risk.max_total_n_exposure", 10.0)
}
