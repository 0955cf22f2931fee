package config

import (
	"strings"
	"testing"
)

func TestLoad(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		t.Setenv("DISCORD_TOKEN", "token")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.DBDriver != "mysql" {
			t.Errorf("expected mysql driver, got %q", cfg.DBDriver)
		}
		if cfg.LavalinkAddress() != "localhost:2333" {
			t.Errorf("unexpected lavalink address %q", cfg.LavalinkAddress())
		}
		if cfg.EmbedColor != 0x7F00FF {
			t.Errorf("expected embed color 0x7F00FF, got %#x", cfg.EmbedColor)
		}
		if !cfg.InitSlashCommands {
			t.Error("slash command registration should default to on")
		}
	})

	t.Run("MissingToken", func(t *testing.T) {
		t.Setenv("DISCORD_TOKEN", "")

		if _, err := Load(); err == nil {
			t.Fatal("expected error for missing DISCORD_TOKEN")
		}
	})

	t.Run("UnsupportedDriver", func(t *testing.T) {
		t.Setenv("DISCORD_TOKEN", "token")
		t.Setenv("DB_DRIVER", "postgres")

		if _, err := Load(); err == nil {
			t.Fatal("expected error for unsupported driver")
		}
	})

	t.Run("Blacklist", func(t *testing.T) {
		t.Setenv("DISCORD_TOKEN", "token")
		t.Setenv("DISCORD_GUILD_BLACKLIST", "1,2,3")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(cfg.DiscordGuildBlacklist) != 3 {
			t.Errorf("expected 3 blacklisted guilds, got %v", cfg.DiscordGuildBlacklist)
		}
	})
}

func TestDSN(t *testing.T) {
	cfg := &Config{
		DBDriver:      "mysql",
		MySQLHost:     "db",
		MySQLPort:     3307,
		MySQLUser:     "bot",
		MySQLPassword: "secret",
		MySQLDatabase: "music",
	}

	dsn := cfg.DSN()
	if !strings.HasPrefix(dsn, "bot:secret@tcp(db:3307)/music") {
		t.Errorf("unexpected mysql dsn %q", dsn)
	}

	cfg.DBDriver = "sqlite3"
	cfg.SQLitePath = "data/test.db"
	if cfg.DSN() != "data/test.db" {
		t.Errorf("unexpected sqlite dsn %q", cfg.DSN())
	}
}
