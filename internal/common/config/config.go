package config

import (
	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Debug bool `env:"DEBUG" envDefault:"false"`

	Server struct {
		Port   int    `env:"PORT" envDefault:"8080"`
		Origin string `env:"ORIGIN" envDefault:"http://localhost:3000"`
	}

	Redis struct {
		Host     string `env:"REDIS_HOST" envDefault:"localhost"`
		Port     int    `env:"REDIS_PORT" envDefault:"6379"`
		Password string `env:"REDIS_PASSWORD" envDefault:""`
		DB       int    `env:"REDIS_DB" envDefault:"0"`
	}

	Relay struct {
		// Default relay set; board records may carry additional hints.
		URLs []string `env:"RELAY_URLS" envSeparator:"," envDefault:"wss://relay.damus.io,wss://nos.lol,wss://relay.nostr.band"`

		ConnectTimeoutSec int `env:"RELAY_CONNECT_TIMEOUT_SEC" envDefault:"10"`
		PublishTimeoutSec int `env:"RELAY_PUBLISH_TIMEOUT_SEC" envDefault:"10"`
		FetchTimeoutSec   int `env:"RELAY_FETCH_TIMEOUT_SEC" envDefault:"8"`
	}

	Wallet struct {
		ValidateTimeoutSec int `env:"WALLET_VALIDATE_TIMEOUT_SEC" envDefault:"15"`
	}

	Invoice struct {
		ResolveTimeoutSec  int `env:"LNURL_RESOLVE_TIMEOUT_SEC" envDefault:"10"`
		CallbackTimeoutSec int `env:"LNURL_CALLBACK_TIMEOUT_SEC" envDefault:"15"`
	}
}

func Load() *Config {
	// Missing .env is fine; production sets variables directly.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		panic(err)
	}

	return cfg
}
