// Package config loads rezzydesk settings: .env, then an optional YAML file, then the environment.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	SessionBackendFile  = "file"
	SessionBackendRedis = "redis"
)

type Config struct {
	APIURL     string
	ListenAddr string

	CookieHashKey  []byte
	CookieBlockKey []byte

	SessionBackend string
	SessionFile    string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int

	// optional; enables the mutation journal
	DatabaseURL string

	HTTPTimeout time.Duration
	NowTick     time.Duration
	Refetch     time.Duration
	LogLevel    string
}

// fileConfig is the YAML shape. Values may reference the environment as ${VAR}.
type fileConfig struct {
	APIURL     string `yaml:"api_url"`
	ListenAddr string `yaml:"listen_addr"`
	Cookie     struct {
		HashKey  string `yaml:"hash_key"`
		BlockKey string `yaml:"block_key"`
	} `yaml:"cookie"`
	Session struct {
		Backend string `yaml:"backend"`
		File    string `yaml:"file"`
	} `yaml:"session"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	DatabaseURL        string `yaml:"database_url"`
	HTTPTimeoutSeconds int    `yaml:"http_timeout_seconds"`
	NowTickSeconds     int    `yaml:"now_tick_seconds"`
	RefetchSeconds     int    `yaml:"refetch_seconds"`
	LogLevel           string `yaml:"log_level"`
}

// Load reads .env when present, then the YAML file named by REZZYDESK_CONFIG, then the
// process environment. Later sources win.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	var fc fileConfig
	if path := strings.TrimSpace(os.Getenv("REZZYDESK_CONFIG")); path != "" {
		var err error
		fc, err = readFile(path)
		if err != nil {
			return Config{}, err
		}
	}
	return fromEnv(fc)
}

func readFile(path string) (fileConfig, error) {
	var fc fileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(b))), &fc); err != nil {
		return fc, fmt.Errorf("parse config %s: %w", path, err)
	}
	return fc, nil
}

func fromEnv(fc fileConfig) (Config, error) {
	cfg := Config{
		APIURL:         strings.TrimRight(getenv("REZZY_API_URL", or(fc.APIURL, "http://localhost:8000")), "/"),
		ListenAddr:     getenv("LISTEN_ADDR", or(fc.ListenAddr, ":8080")),
		SessionBackend: strings.ToLower(getenv("SESSION_BACKEND", or(fc.Session.Backend, SessionBackendFile))),
		SessionFile:    getenv("SESSION_FILE", or(fc.Session.File, defaultSessionFile())),
		RedisAddr:      getenv("REDIS_ADDR", or(fc.Redis.Addr, "localhost:6379")),
		RedisPassword:  getenv("REDIS_PASSWORD", fc.Redis.Password),
		DatabaseURL:    getenv("DATABASE_URL", fc.DatabaseURL),
		LogLevel:       getenv("LOG_LEVEL", or(fc.LogLevel, "info")),
	}
	switch cfg.SessionBackend {
	case SessionBackendFile, SessionBackendRedis:
	default:
		return Config{}, fmt.Errorf("invalid SESSION_BACKEND %q (want file or redis)", cfg.SessionBackend)
	}

	var err error
	if cfg.RedisDB, err = intEnv("REDIS_DB", fc.Redis.DB, 0); err != nil {
		return Config{}, err
	}
	if cfg.HTTPTimeout, err = secondsEnv("HTTP_TIMEOUT_SECONDS", fc.HTTPTimeoutSeconds, 10); err != nil {
		return Config{}, err
	}
	if cfg.NowTick, err = secondsEnv("NOW_TICK_SECONDS", fc.NowTickSeconds, 30); err != nil {
		return Config{}, err
	}
	if cfg.Refetch, err = secondsEnv("REFETCH_SECONDS", fc.RefetchSeconds, 60); err != nil {
		return Config{}, err
	}

	if v := getenv("COOKIE_HASH_KEY", fc.Cookie.HashKey); v != "" {
		if cfg.CookieHashKey, err = decodeB64(v); err != nil {
			return Config{}, fmt.Errorf("COOKIE_HASH_KEY: %w", err)
		}
	}
	if v := getenv("COOKIE_BLOCK_KEY", fc.Cookie.BlockKey); v != "" {
		if cfg.CookieBlockKey, err = decodeB64(v); err != nil {
			return Config{}, fmt.Errorf("COOKIE_BLOCK_KEY: %w", err)
		}
	}
	return cfg, nil
}

// RequireKeys checks the cookie keys used by the web UI and the file session store.
func (c Config) RequireKeys() error {
	if len(c.CookieHashKey) == 0 || len(c.CookieBlockKey) == 0 {
		return fmt.Errorf("COOKIE_HASH_KEY and COOKIE_BLOCK_KEY are required (run `rezzydesk keys`)")
	}
	if n := len(c.CookieHashKey); n != 32 && n != 64 {
		return fmt.Errorf("COOKIE_HASH_KEY must decode to 32 or 64 bytes (got %d)", n)
	}
	switch len(c.CookieBlockKey) {
	case 16, 24, 32:
	default:
		return fmt.Errorf("COOKIE_BLOCK_KEY must decode to 16, 24 or 32 bytes (got %d)", len(c.CookieBlockKey))
	}
	return nil
}

func defaultSessionFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".rezzydesk-session"
	}
	return filepath.Join(home, ".rezzydesk", "session")
}

// decodeB64 accepts the key itself or a path to a file holding it (k8s secret mounts).
func decodeB64(s string) ([]byte, error) {
	if b, err := os.ReadFile(s); err == nil {
		s = string(b)
	}
	return base64.StdEncoding.DecodeString(strings.TrimSpace(s))
}

func secondsEnv(k string, fromFile, def int) (time.Duration, error) {
	n, err := intEnv(k, fromFile, def)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, fmt.Errorf("invalid %s", k)
	}
	return time.Duration(n) * time.Second, nil
}

func intEnv(k string, fromFile, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		if fromFile != 0 {
			return fromFile, nil
		}
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", k)
	}
	return n, nil
}

func getenv(k, def string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	return v
}

func or(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
