package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the process configuration, read from the environment. A .env
// file in the working directory is loaded first when present.
type Config struct {
	DiscordToken string `env:"DISCORD_TOKEN,required"`

	// GuildIDs lists guilds that commands registered without explicit guild
	// scope in cmd wiring should target. Empty means global-only.
	GuildIDs []string `env:"GUILD_IDS" envSeparator:","`

	// SyncOnStart runs a full synchronization pass when the session is ready.
	SyncOnStart bool `env:"SYNC_COMMANDS" envDefault:"true"`

	// DeleteUnknownCommands removes remotely-registered commands that no
	// longer exist in code instead of carrying them along.
	DeleteUnknownCommands bool `env:"DELETE_UNKNOWN_COMMANDS" envDefault:"false"`

	// DeleteOnReload drops commands from the registry when a reload does not
	// re-register them; the default soft-disables them instead.
	DeleteOnReload bool `env:"DELETE_ON_RELOAD" envDefault:"false"`

	// GuildSyncTimeout bounds each guild's synchronization pass.
	GuildSyncTimeout time.Duration `env:"GUILD_SYNC_TIMEOUT" envDefault:"30s"`

	StoragePath string `env:"STORAGE_PATH" envDefault:"data/bindings.json"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile     string `env:"LOG_FILE"`
}

// Load reads the configuration from .env and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}
