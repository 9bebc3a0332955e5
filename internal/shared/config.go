package shared

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"steam_reviews/internal/adapters/steam"
	"steam_reviews/internal/domain"
)

type Config struct {
	AppEnv      string
	LogLevel    string
	LogFile     string
	HTTPAddr    string
	MetricsAddr string
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string
	SteamBase   string
	SteamRPS    int
	Workers     int
	MaxPages    int
	AppsFile    string
	AppIDs      []string
	CacheTTL    time.Duration
	SessionTTL  time.Duration
	Title       string
}

// IsDev reports whether APP_ENV selects the development environment.
func (c Config) IsDev() bool { return IsDevEnv(c.AppEnv) }

func IsDevEnv(env string) bool {
	e := strings.ToLower(strings.TrimSpace(env))
	return e == "dev" || e == "development"
}

// DefaultBase picks the local proxy path in development and the public
// storefront host otherwise.
func DefaultBase(env string) string {
	if IsDevEnv(env) {
		return steam.DevProxyBase
	}
	return steam.PublicBase
}

func Load() Config {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	appEnv := env("APP_ENV", "prod")
	c := Config{
		AppEnv:      appEnv,
		LogLevel:    env("LOG_LEVEL", "info"),
		LogFile:     env("LOG_FILE", ""),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ""),
		MySQLDSN:    env("MYSQL_DSN", "root:root@tcp(localhost:3306)/reviews?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:   env("REDIS_ADDR", "localhost:6379"),
		RedisDB:     atoi("REDIS_DB", 0),
		RedisPass:   env("REDIS_PASSWORD", ""),
		SteamBase:   env("STEAM_BASE_URL", DefaultBase(appEnv)),
		SteamRPS:    atoi("STEAM_RPS", 5),
		Workers:     atoi("ARCHIVE_WORKERS", 4),
		MaxPages:    atoi("ARCHIVE_MAX_PAGES", 50),
		AppsFile:    env("ARCHIVE_APPS_FILE", ""),
		AppIDs:      splitComma(env("ARCHIVE_APP_IDS", "")),
		CacheTTL:    time.Duration(atoi("CACHE_TTL_SECONDS", 300)) * time.Second,
		SessionTTL:  time.Duration(atoi("SESSION_TTL_SECONDS", 1800)) * time.Second,
		Title:       env("DASHBOARD_TITLE", "Player Reviews"),
	}
	if c.SteamRPS <= 0 {
		log.Warn().Int("rps", c.SteamRPS).Msg("STEAM_RPS must be positive; using 5")
		c.SteamRPS = 5
	}
	return c
}

// ArchiveTarget is one app the archiver walks, with its request options.
type ArchiveTarget struct {
	AppID string `yaml:"app_id"`

	domain.FetchOptions `yaml:",inline"`
}

type archiveFile struct {
	Apps []ArchiveTarget `yaml:"apps"`
}

// LoadArchiveTargets reads AppsFile (YAML, environment variables expanded)
// and appends AppIDs with default options.
func (c Config) LoadArchiveTargets() ([]ArchiveTarget, error) {
	var out []ArchiveTarget
	if c.AppsFile != "" {
		data, err := os.ReadFile(c.AppsFile)
		if err != nil {
			return nil, fmt.Errorf("read apps file: %w", err)
		}
		var f archiveFile
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &f); err != nil {
			return nil, fmt.Errorf("parse apps file: %w", err)
		}
		for i, t := range f.Apps {
			if strings.TrimSpace(t.AppID) == "" {
				return nil, fmt.Errorf("apps file entry %d: app_id is required", i)
			}
			if err := t.FetchOptions.Validate(); err != nil {
				return nil, fmt.Errorf("apps file entry %d (%s): %w", i, t.AppID, err)
			}
			out = append(out, t)
		}
	}
	for _, id := range c.AppIDs {
		out = append(out, ArchiveTarget{AppID: id})
	}
	return out, nil
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func splitComma(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
