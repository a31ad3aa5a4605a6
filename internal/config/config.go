package config

import "time"

type Config interface {
	EnvConfig
	CookieConfig
	AccountConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetDashboardURL() string
}

type CookieConfig interface {
	GetCookieSecret() string
	GetCookieDomain() string
	GetCookieMaxAge() int
}

// AccountConfig describes how to reach the upstream account service.
type AccountConfig interface {
	GetAccountAPIURL() string
	GetAccountAPIUsername() string
	GetAccountAPIPassword() string
	GetOAuthClientID() string
	GetUpstreamTimeout() time.Duration
}

type mainConfig struct {
	EnvVars
}

func New() (Config, error) {
	vars, err := ParseEnvVars()
	if err != nil {
		return nil, err
	}
	return mainConfig{EnvVars: vars}, nil
}
