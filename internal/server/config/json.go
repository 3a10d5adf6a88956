package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/fruitful/internal/flagx"
	"github.com/dmitrijs2005/fruitful/internal/timex"
)

// JsonConfig is the on-disk shape of the JSON config file. Durations accept
// strings such as "5m" or integer nanoseconds.
type JsonConfig struct {
	HTTPAddr                     string         `json:"http_addr"`
	DatabaseDriver               string         `json:"database_driver"`
	DatabaseDSN                  string         `json:"database_dsn"`
	SecretKey                    string         `json:"secret_key"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	LogLevel                     string         `json:"log_level"`
	LogFormat                    string         `json:"log_format"`
	FirstSuperuserEmail          string         `json:"first_superuser_email"`
	FirstSuperuserPassword       string         `json:"first_superuser_password"`
	FirstSuperuserFullName       string         `json:"first_superuser_full_name"`
	SweepSchedule                string         `json:"sweep_schedule"`
	RedisAddr                    string         `json:"redis_addr"`
	LoginRateLimit               int            `json:"login_rate_limit"`
	LoginRateWindow              timex.Duration `json:"login_rate_window"`
	CORSAllowedOrigins           []string       `json:"cors_allowed_origins"`
}

// parseJson overlays values from the file named by -c/-config. Fields that
// are absent or zero in the file leave config untouched. An unreadable file
// or invalid JSON panics.
func parseJson(config *Config, args []string) {
	path := flagx.JsonConfigFlags(args)
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	overlay(&config.HTTPAddr, c.HTTPAddr)
	overlay(&config.DatabaseDriver, c.DatabaseDriver)
	overlay(&config.DatabaseDSN, c.DatabaseDSN)
	overlay(&config.SecretKey, c.SecretKey)
	overlay(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration.Duration)
	overlay(&config.RefreshTokenValidityDuration, c.RefreshTokenValidityDuration.Duration)
	overlay(&config.LogLevel, c.LogLevel)
	overlay(&config.LogFormat, c.LogFormat)
	overlay(&config.FirstSuperuserEmail, c.FirstSuperuserEmail)
	overlay(&config.FirstSuperuserPassword, c.FirstSuperuserPassword)
	overlay(&config.FirstSuperuserFullName, c.FirstSuperuserFullName)
	overlay(&config.SweepSchedule, c.SweepSchedule)
	overlay(&config.RedisAddr, c.RedisAddr)
	overlay(&config.LoginRateLimit, c.LoginRateLimit)
	overlay(&config.LoginRateWindow, c.LoginRateWindow.Duration)
	if len(c.CORSAllowedOrigins) > 0 {
		config.CORSAllowedOrigins = c.CORSAllowedOrigins
	}
}

func overlay[T comparable](dst *T, v T) {
	var zero T
	if v != zero {
		*dst = v
	}
}
