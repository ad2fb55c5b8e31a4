package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"

	"breakout_bot/internal/models"
)

const (
	configFilePathENV = "CONFIG_FILE"
	apiKeyENV         = "BINANCE_API_KEY"
	apiSecretENV      = "BINANCE_API_SECRET"
	tokenTelegramENV  = "TELEGRAM_TOKEN"
	databaseDSN       = "DATABASE_DSN"
)

// Config ...
type Config struct {
	Telegram struct {
		Token  string `yaml:"token"`
		ChatID int64  `yaml:"chat_id"`
	} `yaml:"telegram"`
	DB string `yaml:"db_dsn"`

	Binance struct {
		APIKey    string `yaml:"api_key"`
		APISecret string `yaml:"api_secret"`
		RestURL   string `yaml:"rest_url"` // по умолчанию https://fapi.binance.com
		WSURL     string `yaml:"ws_url"`   // по умолчанию wss://fstream.binance.com
	} `yaml:"binance"`

	Service struct {
		AdminPort int `yaml:"admin_port"` // health endpoints
	} `yaml:"service"`

	Jaeger struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"jaeger"`

	Log struct {
		File string `yaml:"file"` // пусто => только stdout
	} `yaml:"log"`

	// Торгуемые символы, по одному инстансу стратегии на символ.
	Symbols []string `yaml:"symbols"`

	// Параметры стратегии пробоя. Коэффициент и окно приходят снаружи,
	// мы их не подбираем.
	Timeframe   string  `yaml:"timeframe"`   // напр. "1m"
	Lookback    int     `yaml:"lookback"`    // N свечей окна
	Coefficient float64 `yaml:"coefficient"` // K для range*K

	// Параметры исполнения
	OrderQty          float64       `yaml:"order_qty"` // размер ордера в монетах
	Leverage          int           `yaml:"leverage"`
	EntryHorizon      time.Duration // сколько ждём фила входа до отмены
	ReconcileInterval time.Duration // период фоновой сверки с биржей
	DailySummaryHour  int           // час UTC для дневной сводки

	// Гейтвей
	GatewayMaxAttempts int           // ретраи transient-ошибок
	GatewayBackoffBase time.Duration // база бэкоффа ретраев
	GatewayMaxParallel int           // общий лимит одновременных REST-вызовов
}

func NewConfig() (*Config, error) {
	configFileName := os.Getenv(configFilePathENV)
	if configFileName == "" {
		configFileName = "values_local.yaml"
	}
	file, err := os.Open("configs/" + configFileName)
	if err != nil {
		return nil, fmt.Errorf("open config file: %w", err)
	}

	defer func() {
		_ = file.Close()
	}()

	decoder := yaml.NewDecoder(file)
	config := Config{
		Timeframe:   getenvDefault("TIMEFRAME", "1m"),
		Lookback:    intFromEnv("LOOKBACK", 20),
		Coefficient: floatFromEnv("COEFFICIENT", 0.5),

		OrderQty: floatFromEnv("ORDER_QTY", 0),
		Leverage: intFromEnv("LEVERAGE", 5),

		EntryHorizon:      durationFromEnv("ENTRY_HORIZON", "3m"),
		ReconcileInterval: durationFromEnv("RECONCILE_INTERVAL", "5m"),
		DailySummaryHour:  intFromEnv("DAILY_SUMMARY_HOUR", 0),

		GatewayMaxAttempts: intFromEnv("GATEWAY_MAX_ATTEMPTS", 4),
		GatewayBackoffBase: durationFromEnv("GATEWAY_BACKOFF_BASE", "500ms"),
		GatewayMaxParallel: intFromEnv("GATEWAY_MAX_PARALLEL", 4),
	}
	err = decoder.Decode(&config)
	if err != nil {
		return nil, fmt.Errorf("decode config file: %w", err)
	}

	if v := os.Getenv(apiKeyENV); v != "" {
		config.Binance.APIKey = v
	}
	if v := os.Getenv(apiSecretENV); v != "" {
		config.Binance.APISecret = v
	}
	if v := os.Getenv(tokenTelegramENV); v != "" {
		config.Telegram.Token = v
	}
	if v := os.Getenv(databaseDSN); v != "" {
		config.DB = v
	}

	if config.Binance.RestURL == "" {
		config.Binance.RestURL = "https://fapi.binance.com"
	}
	if config.Binance.WSURL == "" {
		config.Binance.WSURL = "wss://fstream.binance.com"
	}
	if config.Service.AdminPort == 0 {
		config.Service.AdminPort = 8080
	}

	// без этого стартовать нельзя — категория fatal/config
	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) validate() error {
	if len(c.Symbols) == 0 {
		return fmt.Errorf("config: symbols is required")
	}
	if c.Binance.APIKey == "" || c.Binance.APISecret == "" {
		return fmt.Errorf("config: binance api credentials are required")
	}
	if c.DB == "" {
		return fmt.Errorf("config: db_dsn is required")
	}
	if c.OrderQty <= 0 {
		return fmt.Errorf("config: order_qty must be > 0")
	}
	if c.Lookback <= 0 {
		return fmt.Errorf("config: lookback must be > 0")
	}
	if models.TimeframeDuration(c.Timeframe) <= 0 {
		return fmt.Errorf("config: unknown timeframe %q", c.Timeframe)
	}
	if c.Coefficient <= 0 {
		return fmt.Errorf("config: coefficient must be > 0")
	}
	return nil
}

func intFromEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func floatFromEnv(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationFromEnv(key, def string) time.Duration {
	val := getenvDefault(key, def)
	d, err := time.ParseDuration(val)
	if err != nil {
		d, _ = time.ParseDuration(def)
	}
	return d
}
