package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Courier  CourierConfig  `mapstructure:"courier"`
	Database DatabaseConfig `mapstructure:"database"`
	Gmail    GmailConfig    `mapstructure:"gmail"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Renderer RendererConfig `mapstructure:"renderer"`
	Server   ServerConfig   `mapstructure:"server"`
}

// CourierConfig holds pipeline-level settings
type CourierConfig struct {
	MaxMessages         int64  `mapstructure:"max_messages"`
	LoopIntervalMinutes int    `mapstructure:"loop_interval_minutes"`
	LogLevel            string `mapstructure:"log_level"`
}

// DatabaseConfig holds the Postgres connection settings
type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

// GmailConfig holds mailbox credentials for the Gmail API, or for the
// IMAP fallback when use_imap is set
type GmailConfig struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	RefreshToken string `mapstructure:"refresh_token"`
	UserEmail    string `mapstructure:"user_email"`
	UseIMAP      bool   `mapstructure:"use_imap"`
	IMAPHost     string `mapstructure:"imap_host"`
	IMAPPort     int    `mapstructure:"imap_port"`
	IMAPUser     string `mapstructure:"imap_user"`
	IMAPPassword string `mapstructure:"imap_password"`
}

// TelegramConfig holds the bot token and the destination chat
type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   int64  `mapstructure:"chat_id"`
}

// RendererConfig holds the PDF renderer settings
type RendererConfig struct {
	StagingDir        string        `mapstructure:"staging_dir"`
	ListenAddr        string        `mapstructure:"listen_addr"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout"`
}

// ServerConfig holds the HTTP listener settings used in loop mode
type ServerConfig struct {
	Port string `mapstructure:"port"`
}

// Load loads configuration from an optional .env file, an optional
// config.yaml, and environment variables (highest precedence)
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("no .env file found, using process environment")
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	viper.AutomaticEnv()
	bindEnvVars()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("courier.max_messages", 30)
	viper.SetDefault("courier.loop_interval_minutes", 0)
	viper.SetDefault("courier.log_level", "info")

	viper.SetDefault("gmail.user_email", "me")
	viper.SetDefault("gmail.use_imap", false)
	viper.SetDefault("gmail.imap_host", "imap.gmail.com")
	viper.SetDefault("gmail.imap_port", 993)

	viper.SetDefault("renderer.staging_dir", "temp-mails")
	viper.SetDefault("renderer.listen_addr", "127.0.0.1:3030")
	viper.SetDefault("renderer.navigation_timeout", "30s")

	viper.SetDefault("server.port", "8080")
}

// bindEnvVars binds environment variables to configuration keys
func bindEnvVars() {
	viper.BindEnv("courier.max_messages", "COURIER_MAX_MESSAGES")
	viper.BindEnv("courier.loop_interval_minutes", "COURIER_LOOP_INTERVAL_MINUTES")
	viper.BindEnv("courier.log_level", "COURIER_LOG_LEVEL")

	viper.BindEnv("database.url", "DATABASE_URL")

	viper.BindEnv("gmail.client_id", "GMAIL_CLIENT_ID")
	viper.BindEnv("gmail.client_secret", "GMAIL_CLIENT_SECRET")
	viper.BindEnv("gmail.refresh_token", "GMAIL_REFRESH_TOKEN")
	viper.BindEnv("gmail.user_email", "GMAIL_USER_EMAIL")
	viper.BindEnv("gmail.use_imap", "GMAIL_USE_IMAP")
	viper.BindEnv("gmail.imap_host", "GMAIL_IMAP_HOST")
	viper.BindEnv("gmail.imap_port", "GMAIL_IMAP_PORT")
	viper.BindEnv("gmail.imap_user", "GMAIL_IMAP_USER")
	viper.BindEnv("gmail.imap_password", "GMAIL_IMAP_PASSWORD")

	viper.BindEnv("telegram.bot_token", "TELEGRAM_BOT_TOKEN")
	viper.BindEnv("telegram.chat_id", "TELEGRAM_CHAT_ID")

	viper.BindEnv("renderer.staging_dir", "RENDERER_STAGING_DIR")
	viper.BindEnv("renderer.listen_addr", "RENDERER_LISTEN_ADDR")
	viper.BindEnv("renderer.navigation_timeout", "RENDERER_NAVIGATION_TIMEOUT")

	viper.BindEnv("server.port", "SERVER_PORT")
}

// Validate validates the configuration before any I/O happens
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("database url is required")
	}

	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram bot token is required")
	}
	if c.Telegram.ChatID == 0 {
		return fmt.Errorf("telegram chat id is required")
	}

	if !c.Gmail.UseIMAP {
		if c.Gmail.ClientID == "" || c.Gmail.ClientSecret == "" || c.Gmail.RefreshToken == "" {
			return fmt.Errorf("Gmail OAuth2 credentials are required when not using IMAP")
		}
	} else {
		if c.Gmail.IMAPUser == "" || c.Gmail.IMAPPassword == "" {
			return fmt.Errorf("IMAP credentials are required when using IMAP")
		}
	}

	if c.Courier.MaxMessages <= 0 {
		return fmt.Errorf("max messages per run must be greater than 0")
	}

	if c.Renderer.StagingDir == "" {
		return fmt.Errorf("renderer staging dir is required")
	}
	if c.Renderer.NavigationTimeout <= 0 {
		return fmt.Errorf("renderer navigation timeout must be greater than 0")
	}

	if c.Courier.LoopIntervalMinutes > 0 && c.Server.Port == "" {
		return fmt.Errorf("server port is required in loop mode")
	}

	return nil
}
