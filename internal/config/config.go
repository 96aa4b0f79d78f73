package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Ranking struct {
		Policy           string `yaml:"policy"`
		Schedule         string `yaml:"schedule"`
		Timeout          string `yaml:"timeout"`
		WriteConcurrency int    `yaml:"writeConcurrency"`
	} `yaml:"ranking"`
	Leaderboard struct {
		CacheTTL string `yaml:"cacheTTL"`
	} `yaml:"leaderboard"`
	Questions struct {
		CacheTTL string `yaml:"cacheTTL"`
	} `yaml:"questions"`
	Auth struct {
		JWTSecret   string   `yaml:"jwtSecret"`
		AdminEmails []string `yaml:"adminEmails"`
	} `yaml:"auth"`
	Identity struct {
		BaseURL string `yaml:"baseURL"`
		APIKey  string `yaml:"apiKey"`
		Timeout string `yaml:"timeout"`
	} `yaml:"identity"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// LoadDotEnv loads .env from the working directory when one exists.
func LoadDotEnv() error {
	if _, err := os.Stat(".env"); err != nil {
		return nil
	}
	return godotenv.Load()
}

// Load reads YAML config from path and applies environment overrides. A
// missing file is not an error; the service then runs on env and defaults.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	case !os.IsNotExist(err):
		return cfg, err
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Server.Port, "PORT")
	setString(&c.Postgres.URL, "DATABASE_URL")
	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.Redis.Password, "REDIS_PASSWORD")
	if v, ok := os.LookupEnv("REDIS_DB"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.Redis.DB = n
		}
	}
	setString(&c.Ranking.Policy, "RANKING_POLICY")
	setString(&c.Auth.JWTSecret, "JWT_SECRET")
	if v, ok := os.LookupEnv("ADMIN_EMAILS"); ok {
		c.Auth.AdminEmails = splitList(v)
	}
	setString(&c.Identity.BaseURL, "IDENTITY_BASE_URL")
	setString(&c.Identity.APIKey, "IDENTITY_API_KEY")
	setString(&c.Log.Level, "LOG_LEVEL")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
