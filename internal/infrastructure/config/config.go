package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config 儲存 HTTP API、資料庫與診斷預設參數的執行設定。
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	DB       DBConfig       `yaml:"db"`
	Auth     AuthConfig     `yaml:"auth"`
	Diagnose DiagnoseConfig `yaml:"diagnose"`
	Notifier NotifierConfig `yaml:"notifier"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

type DBConfig struct {
	DSN          string        `yaml:"dsn"`
	MaxOpenConns int           `yaml:"max_open_conns"`
	MaxIdleConns int           `yaml:"max_idle_conns"`
	MaxIdleTime  time.Duration `yaml:"max_idle_time"`
}

type AuthConfig struct {
	TokenTTL time.Duration `yaml:"token_ttl"`
	Secret   string        `yaml:"secret"`
}

// DiagnoseConfig 為各分析器閾值的系統預設，請求未帶參數時套用。
type DiagnoseConfig struct {
	CacheTTL                   time.Duration `yaml:"cache_ttl"`
	TopK                       int           `yaml:"top_k"`
	CriticalRevenueLoss        float64       `yaml:"critical_revenue_loss"`
	NegativeMarginCriticalLoss float64       `yaml:"negative_margin_critical_loss"`
	DeliveryFeeThreshold       float64       `yaml:"delivery_fee_threshold"`
	FluctuationThresholdPct    float64       `yaml:"fluctuation_threshold_pct"`
	TrafficShareMin            float64       `yaml:"traffic_share_min"`
	TrafficShareMax            float64       `yaml:"traffic_share_max"`
}

type NotifierConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig 控制 critical 發現的即時通報。
type TelegramConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
	ChatID  int64  `yaml:"chat_id"`
}

// LoadFromFile 從 YAML 組態檔載入設定。
func LoadFromFile(path string) (Config, error) {
	// 嘗試載入 .env 檔案（如果存在）
	_ = godotenv.Load()

	var cfg Config
	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config yaml: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg = applyDefaults(cfg)
	cfg = applyEnv(cfg)
	return cfg, nil
}

func applyDefaults(cfg Config) Config {
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.DB.MaxOpenConns == 0 {
		cfg.DB.MaxOpenConns = 5
	}
	if cfg.DB.MaxIdleConns == 0 {
		cfg.DB.MaxIdleConns = 2
	}
	if cfg.DB.MaxIdleTime == 0 {
		cfg.DB.MaxIdleTime = 15 * time.Minute
	}
	if cfg.Auth.TokenTTL == 0 {
		cfg.Auth.TokenTTL = 30 * time.Minute
	}
	if cfg.Auth.Secret == "" {
		cfg.Auth.Secret = "dev-secret-change-me"
	}
	if cfg.Diagnose.CacheTTL == 0 {
		cfg.Diagnose.CacheTTL = 5 * time.Minute
	}
	if cfg.Diagnose.TopK == 0 {
		cfg.Diagnose.TopK = 5
	}
	if cfg.Diagnose.CriticalRevenueLoss == 0 {
		cfg.Diagnose.CriticalRevenueLoss = 500
	}
	if cfg.Diagnose.NegativeMarginCriticalLoss == 0 {
		cfg.Diagnose.NegativeMarginCriticalLoss = 100
	}
	if cfg.Diagnose.DeliveryFeeThreshold == 0 {
		cfg.Diagnose.DeliveryFeeThreshold = 0.20
	}
	if cfg.Diagnose.FluctuationThresholdPct == 0 {
		cfg.Diagnose.FluctuationThresholdPct = 50
	}
	if cfg.Diagnose.TrafficShareMin == 0 {
		cfg.Diagnose.TrafficShareMin = 0.20
	}
	if cfg.Diagnose.TrafficShareMax == 0 {
		cfg.Diagnose.TrafficShareMax = 0.60
	}
	return cfg
}

func applyEnv(cfg Config) Config {
	if val := os.Getenv("HTTP_ADDR"); val != "" {
		cfg.HTTP.Addr = val
	}
	if val := os.Getenv("PORT"); val != "" {
		cfg.HTTP.Addr = ":" + val
	}
	if val := os.Getenv("DB_DSN"); val != "" {
		cfg.DB.DSN = val
	}
	if val := os.Getenv("AUTH_SECRET"); val != "" {
		cfg.Auth.Secret = val
	}
	if val := os.Getenv("DIAGNOSE_CACHE_TTL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Diagnose.CacheTTL = d
		}
	}
	if val := os.Getenv("DELIVERY_FEE_THRESHOLD"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Diagnose.DeliveryFeeThreshold = f
		}
	}
	if val := os.Getenv("TELEGRAM_TOKEN"); val != "" {
		cfg.Notifier.Telegram.Token = val
	}
	if val := os.Getenv("TELEGRAM_CHAT_ID"); val != "" {
		if id, err := strconv.ParseInt(val, 10, 64); err == nil {
			cfg.Notifier.Telegram.ChatID = id
		}
	}
	if val := os.Getenv("TELEGRAM_ENABLED"); val != "" {
		cfg.Notifier.Telegram.Enabled = (val == "true")
	}
	return cfg
}
