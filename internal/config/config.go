package config

import (
	"flag"
	"regexp"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	// Storage
	DatabaseDSN  string `env:"DATABASE_URI"`
	MediaRoot    string `env:"MEDIA_ROOT"`
	PhotoBackend string `env:"PHOTO_BACKEND"` // fs | db
	PhotoMaxMB   int    `env:"PHOTO_MAX_MB"`
	PhotoMaxPx   int    `env:"PHOTO_MAX_PX"`

	// HTTP
	BaseURL     string `env:"BASE_URL"`
	EnableHTTPS bool   `env:"ENABLE_HTTPS"`
	AuthSecret  string `env:"AUTH_SECRET"`
	ServerURL   string `env:"-"`

	// Status notifications; empty disables the sink
	RedisURL     string `env:"NOTIFY_REDIS_URL"`
	RedisChannel string `env:"NOTIFY_REDIS_CHANNEL"`
	KafkaBrokers string `env:"NOTIFY_KAFKA_BROKERS"`
	KafkaTopic   string `env:"NOTIFY_KAFKA_TOPIC"`

	LogFormat  string `env:"LOG_FORMAT"` // console | json
	RecentDays int    `env:"RECENT_DAYS"`
	Version    bool   `env:"-"` // show version and exit (flag only)
}

var hostPortRe = regexp.MustCompile(`^[A-Za-z0-9\.\-]+:\d{1,5}$`)

func NewConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{}
	_ = env.Parse(cfg)

	// флаги переопределяют значения из env
	flag.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "строка подключения к БД (postgres://, mysql://, путь к SQLite)")
	flag.StringVar(&cfg.MediaRoot, "media-root", cfg.MediaRoot, "каталог для фотографий")
	flag.StringVar(&cfg.PhotoBackend, "photo-backend", cfg.PhotoBackend, "хранилище фотографий: fs или db")
	flag.IntVar(&cfg.PhotoMaxMB, "photo-max-mb", cfg.PhotoMaxMB, "максимальный размер загружаемого фото, МБ")
	flag.IntVar(&cfg.PhotoMaxPx, "photo-max-px", cfg.PhotoMaxPx, "максимальная сторона фото после нормализации, px")
	flag.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "адрес сервера host:port")
	flag.BoolVar(&cfg.EnableHTTPS, "https", cfg.EnableHTTPS, "enable HTTPS")
	flag.StringVar(&cfg.AuthSecret, "auth-secret", cfg.AuthSecret, "секрет для подписи JWT")
	flag.StringVar(&cfg.RedisURL, "notify-redis", cfg.RedisURL, "redis URL для уведомлений о статусах")
	flag.StringVar(&cfg.KafkaBrokers, "notify-kafka", cfg.KafkaBrokers, "брокеры Kafka через запятую")
	flag.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "формат логов: console или json")
	flag.IntVar(&cfg.RecentDays, "recent-days", cfg.RecentDays, "окно \"недавних\" записей в днях")
	flag.BoolVar(&cfg.Version, "version", cfg.Version, "Show version and exit")

	flag.Parse()

	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.AuthSecret == "" {
		cfg.AuthSecret = "dev-secret-key"
	}
	if cfg.DatabaseDSN == "" {
		cfg.DatabaseDSN = "immigration.db"
	}
	if cfg.MediaRoot == "" {
		cfg.MediaRoot = "./media"
	}
	if cfg.PhotoBackend != "db" {
		cfg.PhotoBackend = "fs"
	}
	if cfg.PhotoMaxMB <= 0 {
		cfg.PhotoMaxMB = 5
	}
	if cfg.PhotoMaxPx <= 0 {
		cfg.PhotoMaxPx = 1024
	}
	if cfg.RedisChannel == "" {
		cfg.RedisChannel = "immigration.status"
	}
	if cfg.KafkaTopic == "" {
		cfg.KafkaTopic = "immigration.status"
	}
	if cfg.LogFormat != "json" {
		cfg.LogFormat = "console"
	}
	if cfg.RecentDays <= 0 {
		cfg.RecentDays = 30
	}
	// BaseURL: только "address:port" (без схемы и пути), иначе значение по умолчанию
	if !hostPortRe.MatchString(cfg.BaseURL) {
		cfg.BaseURL = "localhost:8081"
	}
	if cfg.EnableHTTPS {
		cfg.ServerURL = "https://" + cfg.BaseURL
	} else {
		cfg.ServerURL = "http://" + cfg.BaseURL
	}
}

// PhotoMaxBytes is PhotoMaxMB in bytes.
func (c *Config) PhotoMaxBytes() int64 {
	return int64(c.PhotoMaxMB) << 20
}
