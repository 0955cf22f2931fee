// /internal/config/config.go
package config

import (
	"fmt"
	"net"
	"strconv"

	"github.com/caarlos0/env/v11"
	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config is the process configuration, read from the environment (and .env when present).
type Config struct {
	DiscordToken          string   `env:"DISCORD_TOKEN,required,notEmpty"`
	DeveloperID           string   `env:"DEVELOPER_ID"`
	DiscordGuildBlacklist []string `env:"DISCORD_GUILD_BLACKLIST" envSeparator:","`
	InitSlashCommands     bool     `env:"INIT_SLASH_COMMANDS" envDefault:"true"`
	CommandCachePath      string   `env:"COMMAND_CACHE_PATH" envDefault:"data/commands.json"`

	LavalinkHost       string `env:"LAVALINK_HOST" envDefault:"localhost"`
	LavalinkPort       int    `env:"LAVALINK_PORT" envDefault:"2333"`
	LavalinkPassword   string `env:"LAVALINK_PASSWORD" envDefault:"youshallnotpass"`
	LavalinkIdentifier string `env:"LAVALINK_IDENTIFIER" envDefault:"MAIN"`
	LavalinkSecure     bool   `env:"LAVALINK_SECURE"`

	DBDriver       string `env:"DB_DRIVER" envDefault:"mysql"`
	MySQLHost      string `env:"MYSQL_HOST" envDefault:"localhost"`
	MySQLUser      string `env:"MYSQL_USER" envDefault:"root"`
	MySQLPassword  string `env:"MYSQL_PASSWORD"`
	MySQLDatabase  string `env:"MYSQL_DATABASE" envDefault:"main"`
	MySQLPort      int    `env:"MYSQL_PORT" envDefault:"3306"`
	SQLitePath     string `env:"SQLITE_PATH" envDefault:"data/bot2296.db"`
	DBMaxOpenConns int    `env:"DB_MAX_OPEN_CONNS" envDefault:"10"`

	MusicChannelName string `env:"MUSIC_CHANNEL_NAME" envDefault:"2296 Song-Requests"`
	EmbedColor       int    `env:"EMBED_COLOR" envDefault:"8323327"`
	IdleImageURL     string `env:"IDLE_IMAGE_URL" envDefault:"https://media.discordapp.net/attachments/885924272781000746/1157565953631068171/image.png"`
	AutoplayShuffle  bool   `env:"AUTOPLAY_SHUFFLE"`
	LyricsURL        string `env:"LYRICS_URL" envDefault:"https://lrclib.net"`

	WebhookAddr   string `env:"WEBHOOK_ADDR" envDefault:":8001"`
	WebhookAPIKey string `env:"API_KEY"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile  string `env:"LOG_FILE" envDefault:"logs/bot2296.log"`
}

// Load reads .env (if any) and parses the environment into a Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, falling back to system environment variables")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if cfg.DBDriver != "mysql" && cfg.DBDriver != "sqlite3" {
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
	return cfg, nil
}

// LavalinkAddress is the host:port of the audio node.
func (c *Config) LavalinkAddress() string {
	return net.JoinHostPort(c.LavalinkHost, strconv.Itoa(c.LavalinkPort))
}

// DSN returns the data source name for the configured driver.
func (c *Config) DSN() string {
	if c.DBDriver == "sqlite3" {
		return c.SQLitePath
	}

	mc := mysql.NewConfig()
	mc.User = c.MySQLUser
	mc.Passwd = c.MySQLPassword
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(c.MySQLHost, strconv.Itoa(c.MySQLPort))
	mc.DBName = c.MySQLDatabase
	mc.ParseTime = true
	return mc.FormatDSN()
}
