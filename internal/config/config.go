package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store backends
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	Env               string        `mapstructure:"ENV"`
	Port              string        `mapstructure:"PORT"`
	DatabaseURL       string        `mapstructure:"DATABASE_URL"`
	Store             string        `mapstructure:"STORE"`
	LogLevel          string        `mapstructure:"LOG_LEVEL"`
	CORSAllowed       string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
	SeedFile          string        `mapstructure:"SEED_FILE"`
	FirebaseCredsFile string        `mapstructure:"FIREBASE_CREDENTIALS_FILE"`
	FirebaseCredsB64  string        `mapstructure:"FIREBASE_CREDENTIALS_BASE64"`
	MaxPhotoMB        int64         `mapstructure:"MAX_PHOTO_MB"`
	APIURL            string        `mapstructure:"API_URL"`
	RequestTimeout    time.Duration `mapstructure:"REQUEST_TIMEOUT"`
}

// Load reads .env (if present) and the process environment.
func Load() (Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	_ = v.ReadInConfig()

	v.SetDefault("ENV", "dev")
	v.SetDefault("PORT", "8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("STORE", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("SEED_FILE", "")
	v.SetDefault("FIREBASE_CREDENTIALS_FILE", "")
	v.SetDefault("FIREBASE_CREDENTIALS_BASE64", "")
	v.SetDefault("MAX_PHOTO_MB", 5)
	v.SetDefault("API_URL", "http://localhost:8080")
	v.SetDefault("REQUEST_TIMEOUT", "10s")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.Store == "" {
		// no database configured means demo mode
		if cfg.DatabaseURL == "" {
			cfg.Store = StoreMemory
		} else {
			cfg.Store = StorePostgres
		}
	}
	return cfg, nil
}

// AllowedOrigins splits CORS_ALLOWED_ORIGINS on commas.
func (c Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSAllowed, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// MaxPhotoBytes converts MAX_PHOTO_MB to bytes.
func (c Config) MaxPhotoBytes() int64 {
	if c.MaxPhotoMB <= 0 {
		return 5 << 20
	}
	return c.MaxPhotoMB << 20
}

func (c Config) IsDev() bool {
	return c.Env == "" || c.Env == "dev"
}
