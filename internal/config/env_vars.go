package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// EnvVars holds all configuration read from the process environment.
type EnvVars struct {
	Port         string `env:"PORT" envDefault:"8080"`
	AppName      string `env:"APP_NAME" envDefault:"Identity Gateway"`
	Env          string `env:"ENV" envDefault:"DEV"`
	DashboardURL string `env:"DASHBOARD_URL" envDefault:"https://dashboard.example.com"`

	CookieSecret string `env:"COOKIE_SECRET"`
	CookieDomain string `env:"COOKIE_DOMAIN"`
	CookieMaxAge int    `env:"COOKIE_MAX_AGE" envDefault:"2592000"` // 30 days

	AccountAPIURL      string        `env:"ACCOUNT_API_URL" envDefault:"http://localhost:5100"`
	AccountAPIUsername string        `env:"ACCOUNT_API_USERNAME"`
	AccountAPIPassword string        `env:"ACCOUNT_API_PASSWORD"`
	OAuthClientID      string        `env:"ACCOUNT_OAUTH_CLIENT_ID"`
	UpstreamTimeout    time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"5s"`
}

var _ Config = mainConfig{}

// ParseEnvVars reads and validates the environment configuration.
func ParseEnvVars() (EnvVars, error) {
	var vars EnvVars
	if err := env.Parse(&vars); err != nil {
		return EnvVars{}, fmt.Errorf("[ParseEnvVars] failed to parse environment: %w", err)
	}
	if vars.CookieSecret == "" {
		return EnvVars{}, fmt.Errorf("[ParseEnvVars] COOKIE_SECRET is required")
	}
	return vars, nil
}

func (e EnvVars) GetPort() string {
	port := e.Port
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}
	return port
}

func (e EnvVars) GetAppName() string { return e.AppName }

func (e EnvVars) GetEnv() string { return e.Env }

func (e EnvVars) GetDashboardURL() string { return e.DashboardURL }

func (e EnvVars) GetCookieSecret() string { return e.CookieSecret }

func (e EnvVars) GetCookieDomain() string { return e.CookieDomain }

func (e EnvVars) GetCookieMaxAge() int { return e.CookieMaxAge }

func (e EnvVars) GetAccountAPIURL() string { return strings.TrimSuffix(e.AccountAPIURL, "/") }

func (e EnvVars) GetAccountAPIUsername() string { return e.AccountAPIUsername }

func (e EnvVars) GetAccountAPIPassword() string { return e.AccountAPIPassword }

func (e EnvVars) GetOAuthClientID() string { return e.OAuthClientID }

func (e EnvVars) GetUpstreamTimeout() time.Duration { return e.UpstreamTimeout }
