package config

import (
	"flag"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	// Server-side settings
	DatabaseDSN   string `env:"DATABASE_URI"`
	AuthSecret    string `env:"AUTH_SECRET"`
	SessionSecret string `env:"SESSION_SECRET"`

	// Telegram backend
	APIID           int    `env:"TG_API_ID"`
	APIHash         string `env:"TG_API_HASH"`
	BotToken        string `env:"TG_BOT_TOKEN"`
	ChannelID       int64  `env:"STORAGE_CHANNEL_ID"`
	ChannelUsername string `env:"STORAGE_CHANNEL_USERNAME"`
	ChannelTitle    string `env:"STORAGE_CHANNEL_TITLE"`

	// Media probing (ffprobe/ffmpeg)
	ProbeTimeoutSec int `env:"PROBE_TIMEOUT_SEC"`

	// Shared settings
	BaseURL     string `env:"BASE_URL"`
	EnableHTTPS bool   `env:"ENABLE_HTTPS"`

	// Client-side settings
	ServerURL string `env:"-"`
	TokenFile string `env:"TOKEN_FILE"`
	Version   bool   `env:"-"` // show client version and exit (flag only)
}

func NewConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{}
	_ = env.Parse(cfg)

	// flags работают ТОЛЬКО если переменные из env не заданы
	// Server flags
	flag.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "строка подключения к БД")
	flag.StringVar(&cfg.AuthSecret, "auth-secret", cfg.AuthSecret, "секрет для подписи JWT")
	flag.StringVar(&cfg.SessionSecret, "session-secret", cfg.SessionSecret, "секрет шифрования сессий Telegram")
	flag.IntVar(&cfg.APIID, "tg-api-id", cfg.APIID, "Telegram API id")
	flag.StringVar(&cfg.APIHash, "tg-api-hash", cfg.APIHash, "Telegram API hash")
	flag.StringVar(&cfg.BotToken, "tg-bot-token", cfg.BotToken, "Telegram bot token")
	flag.Int64Var(&cfg.ChannelID, "channel-id", cfg.ChannelID, "численный id канала-хранилища")
	flag.StringVar(&cfg.ChannelUsername, "channel-username", cfg.ChannelUsername, "алиас канала-хранилища")
	flag.IntVar(&cfg.ProbeTimeoutSec, "probe-timeout", cfg.ProbeTimeoutSec, "таймаут ffprobe/ffmpeg, сек")
	// Shared/client flags
	flag.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "base URL of the TgDrive server (host:port)")
	flag.BoolVar(&cfg.EnableHTTPS, "https", cfg.EnableHTTPS, "enable HTTPS (client: prefer https scheme for BaseURL)")
	// Client flags
	flag.StringVar(&cfg.TokenFile, "token-file", cfg.TokenFile, "path to auth token file (client)")
	flag.BoolVar(&cfg.Version, "version", cfg.Version, "Show client version and exit")

	flag.Parse()

	// Defaults
	if cfg.DatabaseDSN == "" {
		cfg.DatabaseDSN = "tgdrive.db"
	}
	if cfg.AuthSecret == "" {
		cfg.AuthSecret = "dev-secret-key"
	}
	if cfg.SessionSecret == "" {
		cfg.SessionSecret = cfg.AuthSecret
	}
	if cfg.ProbeTimeoutSec <= 0 {
		cfg.ProbeTimeoutSec = 10
	}
	// validate BaseURL: must be in "address:port" (no scheme, no path). Otherwise use default.
	hostPortRe := regexp.MustCompile(`^[A-Za-z0-9\.\-]+:\d{1,5}$`)
	if !hostPortRe.MatchString(cfg.BaseURL) {
		cfg.BaseURL = "localhost:8081"
	}

	if cfg.EnableHTTPS {
		cfg.ServerURL = "https://" + cfg.BaseURL
	} else {
		cfg.ServerURL = "http://" + cfg.BaseURL
	}

	if cfg.TokenFile == "" {
		home, _ := os.UserHomeDir()
		cfg.TokenFile = filepath.Join(home, ".tgdrive_token")
	}

	return cfg
}

// ProbeTimeout возвращает таймаут медиа-проб как Duration.
func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.ProbeTimeoutSec) * time.Second
}
