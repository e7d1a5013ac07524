package session

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// EnvConfig is the environment-backed Config implementation. It reads a
// local .env file when present and falls back to process environment
// variables, so deployments configure the console the same way in dev and
// production.
type EnvConfig struct {
	baseURL          string
	httpTimeout      time.Duration
	storePath        string
	storeKey         []byte
	loginRoute       string
	forbiddenRoute   string
	rejectedRouteKey string
	rejectedDefault  string
}

var _ Config = (*EnvConfig)(nil)

// LoadConfig reads configuration from .env and the environment.
func LoadConfig(logger ...Logger) (*EnvConfig, error) {
	log := Logger(defLogger{})
	if len(logger) > 0 && logger[0] != nil {
		log = logger[0]
	}

	if err := godotenv.Load(); err != nil {
		log.Debug(".env file not found, using environment variables")
	}

	cfg := &EnvConfig{
		baseURL:          getEnv("CONSOLE_API_BASE_URL", "http://localhost:8080/api/v1"),
		storePath:        getEnv("CONSOLE_STORE_PATH", "console-session.db"),
		loginRoute:       getEnv("CONSOLE_LOGIN_ROUTE", "/login"),
		forbiddenRoute:   getEnv("CONSOLE_FORBIDDEN_ROUTE", "/403"),
		rejectedRouteKey: getEnv("CONSOLE_REJECTED_ROUTE_KEY", "rejected_route"),
		rejectedDefault:  getEnv("CONSOLE_REJECTED_ROUTE_DEFAULT", "/"),
	}

	timeout := getEnv("CONSOLE_HTTP_TIMEOUT", "15s")
	d, err := time.ParseDuration(timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid CONSOLE_HTTP_TIMEOUT %q: %w", timeout, err)
	}
	cfg.httpTimeout = d

	if raw := strings.TrimSpace(os.Getenv("CONSOLE_STORE_KEY")); raw != "" {
		key, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return nil, fmt.Errorf("CONSOLE_STORE_KEY is not valid base64: %w", err)
		}
		cfg.storeKey = key
	}

	return cfg, nil
}

func (c *EnvConfig) GetBaseURL() string              { return c.baseURL }
func (c *EnvConfig) GetHTTPTimeout() time.Duration   { return c.httpTimeout }
func (c *EnvConfig) GetStorePath() string            { return c.storePath }
func (c *EnvConfig) GetStoreKey() []byte             { return c.storeKey }
func (c *EnvConfig) GetLoginRoute() string           { return c.loginRoute }
func (c *EnvConfig) GetForbiddenRoute() string       { return c.forbiddenRoute }
func (c *EnvConfig) GetRejectedRouteKey() string     { return c.rejectedRouteKey }
func (c *EnvConfig) GetRejectedRouteDefault() string { return c.rejectedDefault }

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
