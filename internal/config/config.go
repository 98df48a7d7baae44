package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	APIPort   int    `yaml:"apiPort"`
	Env       string `yaml:"env"`
	ClientURL string `yaml:"clientURL"`

	Database struct {
		Driver string `yaml:"driver"` // "sqlite3" or "postgres"
		Path   string `yaml:"path"`   // sqlite file path
		DSN    string `yaml:"dsn"`    // postgres connection string
	} `yaml:"database"`

	MaxSessions int `yaml:"maxSessions"`

	Tokens struct {
		AccessSecret       string        `yaml:"accessSecret"`
		RefreshSecret      string        `yaml:"refreshSecret"`
		AccessTTL          time.Duration `yaml:"accessTTL"`
		RefreshTTL         time.Duration `yaml:"refreshTTL"`
		RefreshTTLExtended time.Duration `yaml:"refreshTTLExtended"`
		ActionTTL          time.Duration `yaml:"actionTTL"`
	} `yaml:"tokens"`

	SMTP struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		From     string `yaml:"from"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
	} `yaml:"smtp"`

	S3 struct {
		Endpoint        string `yaml:"endpoint"`
		Region          string `yaml:"region"`
		Bucket          string `yaml:"bucket"`
		AccessKeyID     string `yaml:"accessKeyId"`
		SecretAccessKey string `yaml:"secretAccessKey"`
	} `yaml:"s3"`

	Google struct {
		ClientID string `yaml:"clientId"`
	} `yaml:"google"`

	IPInfo struct {
		Token string `yaml:"token"`
	} `yaml:"ipinfo"`
}

// IsProd reports whether the service runs with production hardening
// (secure cookies, real SMTP).
func (c *Config) IsProd() bool {
	return c.Env == "prod"
}

// LoadConfig loads the configuration from file and environment variables.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if _, statErr := os.Stat(path); statErr == nil {
				return nil, err
			}
		}
		log.Printf("Warning: Could not read config file: %s. Using defaults or environment variables.", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg, v)

	return &cfg, nil
}

func applyDefaults(cfg *Config, v *viper.Viper) {
	if cfg.APIPort == 0 {
		cfg.APIPort = 8081
		log.Println("APIPort not specified, using default 8081")
	}
	if cfg.Env == "" {
		cfg.Env = os.Getenv("VOLTASHOP_ENV")
	}
	if cfg.Env == "" {
		cfg.Env = "dev"
	}
	if cfg.ClientURL == "" {
		cfg.ClientURL = "http://localhost:3000"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite3"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "/data/voltashop.db"
		log.Println("Database path not specified, using default /data/voltashop.db")
	}
	if cfg.MaxSessions == 0 {
		cfg.MaxSessions = 5
	}
	if cfg.Tokens.AccessTTL == 0 {
		cfg.Tokens.AccessTTL = 15 * time.Minute
	}
	if cfg.Tokens.RefreshTTL == 0 {
		cfg.Tokens.RefreshTTL = 7 * 24 * time.Hour
	}
	if cfg.Tokens.RefreshTTLExtended == 0 {
		cfg.Tokens.RefreshTTLExtended = 30 * 24 * time.Hour
	}
	if cfg.Tokens.ActionTTL == 0 {
		cfg.Tokens.ActionTTL = 30 * time.Minute
	}
	if cfg.Tokens.AccessSecret == "" {
		cfg.Tokens.AccessSecret = v.GetString("ACCESS_TOKEN_SECRET")
	}
	if cfg.Tokens.RefreshSecret == "" {
		cfg.Tokens.RefreshSecret = v.GetString("REFRESH_TOKEN_SECRET")
	}
	if cfg.SMTP.Port == 0 {
		cfg.SMTP.Port = 587
	}
}
