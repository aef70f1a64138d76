package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    Server    `mapstructure:"server"`
	Auth      Auth      `mapstructure:"auth"`
	Redis     Redis     `mapstructure:"redis"`
	Postgres  Postgres  `mapstructure:"postgres"`
	Jobs      Jobs      `mapstructure:"jobs"`
	RateLimit RateLimit `mapstructure:"rate_limit"`
	Log       Log       `mapstructure:"log"`
}

type Server struct {
	Addr string `mapstructure:"addr"`
	Mode string `mapstructure:"mode"` // gin mode: debug, release, test
}

type Auth struct {
	Domain         string        `mapstructure:"domain"`
	URI            string        `mapstructure:"uri"`
	Statement      string        `mapstructure:"statement"`
	Issuer         string        `mapstructure:"issuer"`
	SigningKeyFile string        `mapstructure:"signing_key_file"` // PEM EC P-256 key; generated when empty
	ChallengeTTL   time.Duration `mapstructure:"challenge_ttl"`
	LoginTTL       time.Duration `mapstructure:"login_ttl"`
	AccessTTL      time.Duration `mapstructure:"access_ttl"`
	RefreshTTL     time.Duration `mapstructure:"refresh_ttl"`
}

// Redis is optional. Without it, stores are in memory and events are dropped.
type Redis struct {
	URL string `mapstructure:"url"`
}

// Postgres is optional. When set it holds challenges, accounts and bindings.
type Postgres struct {
	DSN         string `mapstructure:"dsn"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

type Jobs struct {
	Enabled          bool   `mapstructure:"enabled"`
	PurgeSchedule    string `mapstructure:"purge_schedule"`
	RetentionMinutes int    `mapstructure:"retention_minutes"`
}

type RateLimit struct {
	NonceRPS    float64 `mapstructure:"nonce_rps"`
	NonceBurst  int     `mapstructure:"nonce_burst"`
	VerifyRPS   float64 `mapstructure:"verify_rps"`
	VerifyBurst int     `mapstructure:"verify_burst"`
}

type Log struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":9000")
	v.SetDefault("server.mode", "release")

	v.SetDefault("auth.domain", "localhost")
	v.SetDefault("auth.uri", "")
	v.SetDefault("auth.statement", "Sign in to prove you own this wallet.")
	v.SetDefault("auth.issuer", "walletgate")
	v.SetDefault("auth.signing_key_file", "")
	v.SetDefault("auth.challenge_ttl", 5*time.Minute)
	v.SetDefault("auth.login_ttl", 2*time.Minute)
	v.SetDefault("auth.access_ttl", 5*time.Minute)
	v.SetDefault("auth.refresh_ttl", 5*24*time.Hour)

	v.SetDefault("redis.url", "")
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.auto_migrate", true)

	v.SetDefault("jobs.enabled", true)
	v.SetDefault("jobs.purge_schedule", "*/15 * * * *")
	v.SetDefault("jobs.retention_minutes", 10)

	v.SetDefault("rate_limit.nonce_rps", 1.0)
	v.SetDefault("rate_limit.nonce_burst", 10)
	v.SetDefault("rate_limit.verify_rps", 2.0)
	v.SetDefault("rate_limit.verify_burst", 20)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
}

// LoadConfig reads an optional YAML file and WALLETGATE_* environment variables.
// An empty filename skips the file.
func LoadConfig(filename string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("WALLETGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if filename == "" {
		return v, nil
	}

	v.SetConfigFile(filename)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil, errors.New("config file not found")
		}
		return nil, err
	}
	return v, nil
}

func ParseConfig(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	if strings.TrimSpace(c.Auth.Domain) == "" {
		return nil, errors.New("auth.domain is required")
	}
	return &c, nil
}
