// Package config loads the service configuration from a YAML file, a .env
// file and the process environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"misskey-comments/internal/domain"
)

// MaxRepliesLimit is the largest page the Misskey API accepts.
const MaxRepliesLimit = 100

// Config holds the service configuration.
type Config struct {
	Server    Server    `yaml:"server"`
	Remote    Remote    `yaml:"remote"`
	Cache     Cache     `yaml:"cache"`
	Render    Render    `yaml:"render"`
	RateLimit RateLimit `yaml:"rate_limit"`
	Log       Log       `yaml:"log"`
	Browser   Browser   `yaml:"browser"`
}

type Server struct {
	Port string `yaml:"port"`
	// AllowedHosts restricts which instances may be fetched. Empty allows any.
	AllowedHosts []string `yaml:"allowed_hosts"`
	StaticDir    string   `yaml:"static_dir"`
}

type Remote struct {
	Scheme          string        `yaml:"scheme"`
	Timeout         time.Duration `yaml:"timeout"`
	RepliesEndpoint string        `yaml:"replies_endpoint"` // replies or children
	Limit           int           `yaml:"limit"`
	UserAgent       string        `yaml:"user_agent"`
	// AllowPrivateHosts lets the server fetch from loopback and internal
	// network addresses. Only for local development and tests.
	AllowPrivateHosts bool `yaml:"allow_private_hosts"`
}

type Cache struct {
	TTL         time.Duration `yaml:"ttl"`
	RedisURL    string        `yaml:"redis_url"`
	RedisPrefix string        `yaml:"redis_prefix"`
}

type Render struct {
	Timezone      string `yaml:"timezone"`
	Sanitize      bool   `yaml:"sanitize"`
	ContentFormat string `yaml:"content_format"` // plain or markdown
	Title         string `yaml:"title"`
}

type RateLimit struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type Log struct {
	Level string `yaml:"level"`
}

type Browser struct {
	ChromePath string `yaml:"chrome_path"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: Server{
			Port:      "3000",
			StaticDir: "./static",
		},
		Remote: Remote{
			Scheme:          "https",
			Timeout:         10 * time.Second,
			RepliesEndpoint: "replies",
			Limit:           MaxRepliesLimit,
			UserAgent:       "misskey-comments/1.0",
		},
		Cache: Cache{
			TTL:         5 * time.Minute,
			RedisPrefix: "mkc:",
		},
		Render: Render{
			Timezone:      "UTC",
			Sanitize:      true,
			ContentFormat: "plain",
			Title:         "Comments",
		},
		RateLimit: RateLimit{RPS: 2, Burst: 10},
		Log:       Log{Level: "info"},
	}
}

// Load reads the YAML file at path over the defaults, then applies a .env
// file from the working directory (if any) and environment overrides.
// A missing YAML file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	// .env only fills variables that are not already set
	_ = godotenv.Load()

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if port := os.Getenv("PORT"); port != "" {
		c.Server.Port = port
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if url := os.Getenv("REDIS_URL"); url != "" {
		c.Cache.RedisURL = url
	}
	if hosts := os.Getenv("MISSKEY_ALLOWED_HOSTS"); hosts != "" {
		c.Server.AllowedHosts = splitList(hosts)
	}
	if path := os.Getenv("CHROME_PATH"); path != "" {
		c.Browser.ChromePath = path
	}
	if ttl, ok := cacheTTLFromEnv(); ok {
		c.Cache.TTL = ttl
	}
}

// cacheTTLFromEnv reads CACHE_TTL_MINUTES. Invalid values are ignored.
func cacheTTLFromEnv() (time.Duration, bool) {
	raw := os.Getenv("CACHE_TTL_MINUTES")
	if raw == "" {
		return 0, false
	}
	minutes, err := strconv.Atoi(raw)
	if err != nil || minutes < 0 {
		return 0, false
	}
	return time.Duration(minutes) * time.Minute, true
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks value ranges and normalizes the remote limit.
func (c *Config) Validate() error {
	if c.Remote.Limit <= 0 || c.Remote.Limit > MaxRepliesLimit {
		c.Remote.Limit = MaxRepliesLimit
	}
	switch c.Remote.RepliesEndpoint {
	case "replies", "children":
	default:
		return fmt.Errorf("remote.replies_endpoint: unknown endpoint %q", c.Remote.RepliesEndpoint)
	}
	switch c.Remote.Scheme {
	case "http", "https":
	default:
		return fmt.Errorf("remote.scheme: unsupported scheme %q", c.Remote.Scheme)
	}
	switch c.Render.ContentFormat {
	case "plain", "markdown":
	default:
		return fmt.Errorf("render.content_format: unknown format %q", c.Render.ContentFormat)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("render.timezone: %w", err)
	}
	if c.Remote.Timeout <= 0 {
		c.Remote.Timeout = 10 * time.Second
	}
	return nil
}

// Location resolves the render time zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Render.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Render.Timezone)
}

// HostAllowed reports whether the instance host may be fetched. Hosts on
// this machine or an internal network are refused unless
// remote.allow_private_hosts is set.
func (c *Config) HostAllowed(host string) bool {
	if !c.Remote.AllowPrivateHosts && domain.CheckPublicHost(host) != nil {
		return false
	}
	if len(c.Server.AllowedHosts) == 0 {
		return true
	}
	for _, allowed := range c.Server.AllowedHosts {
		if strings.EqualFold(allowed, host) {
			return true
		}
	}
	return false
}
