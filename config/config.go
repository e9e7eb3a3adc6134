package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const defaultPath = "./config/config.yaml"

type HTTP struct {
	Addr           string `yaml:"addr"`           // :8000
	ReadTimeout    string `yaml:"readTimeout"`    // 15s
	WriteTimeout   string `yaml:"writeTimeout"`   // 0 keeps websockets open
	IdleTimeout    string `yaml:"idleTimeout"`    // 60s
	RequestTimeout string `yaml:"requestTimeout"` // 60s, per API request
}

type GRPC struct {
	Addr string `yaml:"addr"` // empty disables the health server
}

type Logging struct {
	Env       string `yaml:"env"`       // dev|stage|prod
	Service   string `yaml:"service"`   // codecollab
	Version   string `yaml:"version"`   // v0.1.0
	Backend   string `yaml:"backend"`   // std|zap
	AddSource bool   `yaml:"addSource"` // false|true
	Debug     bool   `yaml:"debug"`     // false|true
}

type Sandbox struct {
	URL     string `yaml:"url"`
	Host    string `yaml:"host"`
	APIKey  string `yaml:"apiKey"`
	Timeout string `yaml:"timeout"` // 20s
}

type Evaluator struct {
	URL     string `yaml:"url"`
	APIKey  string `yaml:"apiKey"`
	Model   string `yaml:"model"`
	Timeout string `yaml:"timeout"` // 30s
}

type Auth struct {
	GoogleClientID string `yaml:"googleClientId"`
	CertsURL       string `yaml:"certsUrl"`
}

type Rooms struct {
	IdleTTL       string `yaml:"idleTTL"`       // 0 keeps empty rooms forever
	SweepInterval string `yaml:"sweepInterval"` // 1m
}

type WS struct {
	MessagesPerSecond float64 `yaml:"messagesPerSecond"`
	Burst             int     `yaml:"burst"`
	MaxMessageBytes   int64   `yaml:"maxMessageBytes"`
	SendBuffer        int     `yaml:"sendBuffer"`
}

type CORS struct {
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

type Config struct {
	HTTP      HTTP      `yaml:"http"`
	GRPC      GRPC      `yaml:"grpc"`
	Logging   Logging   `yaml:"logging"`
	Sandbox   Sandbox   `yaml:"sandbox"`
	Evaluator Evaluator `yaml:"evaluator"`
	Auth      Auth      `yaml:"auth"`
	Rooms     Rooms     `yaml:"rooms"`
	WS        WS        `yaml:"ws"`
	CORS      CORS      `yaml:"cors"`
}

// LoadConfig reads .env (if present), the YAML file at CONFIG_PATH and then
// applies environment overrides for secrets and the port.
func LoadConfig() (*Config, error) {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	path := os.Getenv("CONFIG_PATH")
	explicit := path != ""
	if !explicit {
		path = defaultPath
	}
	return Load(path, explicit)
}

// Load reads the config at path. A missing file is an error only when
// required is set; otherwise defaults and the environment are used.
func Load(path string, required bool) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !required:
	default:
		return nil, err
	}

	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		c.HTTP.Addr = ":" + strings.TrimPrefix(v, ":")
	}
	if v := os.Getenv("RAPIDAPI_KEY"); v != "" {
		c.Sandbox.APIKey = v
	}
	if v := os.Getenv("JUDGE0_URL"); v != "" {
		c.Sandbox.URL = v
	}
	if v := os.Getenv("GROQ_KEY"); v != "" {
		c.Evaluator.APIKey = v
	}
	if v := os.Getenv("GOOGLE_CLIENT_ID"); v != "" {
		c.Auth.GoogleClientID = v
	}
	if v := os.Getenv("APP_ENV"); v != "" {
		c.Logging.Env = v
	}
}

func (c *Config) validate() error {
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8000"
	}
	if c.Sandbox.URL == "" {
		c.Sandbox.URL = "https://judge0-ce.p.rapidapi.com/submissions"
	}
	if c.WS.MaxMessageBytes < 0 || c.WS.SendBuffer < 0 || c.WS.Burst < 0 {
		return errors.New("ws limits must not be negative")
	}
	for name, v := range map[string]string{
		"http.readTimeout":    c.HTTP.ReadTimeout,
		"http.writeTimeout":   c.HTTP.WriteTimeout,
		"http.idleTimeout":    c.HTTP.IdleTimeout,
		"http.requestTimeout": c.HTTP.RequestTimeout,
		"sandbox.timeout":     c.Sandbox.Timeout,
		"evaluator.timeout":   c.Evaluator.Timeout,
		"rooms.idleTTL":       c.Rooms.IdleTTL,
		"rooms.sweepInterval": c.Rooms.SweepInterval,
	} {
		if v == "" {
			continue
		}
		if d, err := time.ParseDuration(v); err != nil || d < 0 {
			return fmt.Errorf("%s: invalid duration %q", name, v)
		}
	}

	if c.Logging.Service == "" {
		c.Logging.Service = "codecollab"
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "dev"
	}
	if c.Logging.Version == "" {
		c.Logging.Version = "v0.1.0"
	}
	if c.Logging.Backend == "" {
		c.Logging.Backend = "std"
	}
	return nil
}

func (h HTTP) ReadTimeoutOr() time.Duration    { return parseDurationOr(15*time.Second, h.ReadTimeout) }
func (h HTTP) WriteTimeoutOr() time.Duration   { return parseDurationOr(0, h.WriteTimeout) }
func (h HTTP) IdleTimeoutOr() time.Duration    { return parseDurationOr(60*time.Second, h.IdleTimeout) }
func (h HTTP) RequestTimeoutOr() time.Duration { return parseDurationOr(60*time.Second, h.RequestTimeout) }

func (s Sandbox) TimeoutOr() time.Duration   { return parseDurationOr(20*time.Second, s.Timeout) }
func (e Evaluator) TimeoutOr() time.Duration { return parseDurationOr(30*time.Second, e.Timeout) }

// IdleTTLOr returns the eviction TTL. An explicit "0" disables eviction.
func (r Rooms) IdleTTLOr() time.Duration {
	if strings.TrimSpace(r.IdleTTL) == "0" {
		return 0
	}
	return parseDurationOr(30*time.Minute, r.IdleTTL)
}

func (r Rooms) SweepIntervalOr() time.Duration { return parseDurationOr(time.Minute, r.SweepInterval) }

// parseDurationOr returns def unless s is a positive duration.
func parseDurationOr(def time.Duration, s string) time.Duration {
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return def
}
