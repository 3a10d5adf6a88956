// Package config handles configuration for the server component: defaults,
// a dotenv/environment layer, a JSON overlay and command-line flags.
package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"time"
)

const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"
)

// Config holds runtime settings for the Fruitful server.
//
//   - DatabaseDriver selects "pgx" (PostgreSQL) or "sqlite" (local file).
//   - DatabaseDSN wins over the Postgres* parts when set.
//   - SecretKey signs HS256 access tokens. Do not use the default in prod.
//   - FirstSuperuser* bootstrap an admin account at startup when the email is set.
//   - SweepSchedule is a cron spec for the optional expired-fruit sweep; empty disables it.
//   - RedisAddr enables login rate limiting; empty disables it.
type Config struct {
	ProjectName                  string
	HTTPAddr                     string
	DatabaseDriver               string
	DatabaseDSN                  string
	PostgresServer               string
	PostgresPort                 string
	PostgresDB                   string
	PostgresUser                 string
	PostgresPassword             string
	SecretKey                    string
	AccessTokenValidityDuration  time.Duration
	RefreshTokenValidityDuration time.Duration
	LogLevel                     string
	LogFormat                    string
	FirstSuperuserEmail          string
	FirstSuperuserPassword       string
	FirstSuperuserFullName       string
	SweepSchedule                string
	RedisAddr                    string
	RedisPassword                string
	LoginRateLimit               int
	LoginRateWindow              time.Duration
	CORSAllowedOrigins           []string
}

// LoadDefaults populates Config with development defaults.
// NOTE: These values are insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.ProjectName = "Fruitful"
	c.HTTPAddr = ":8000"
	c.DatabaseDriver = DriverPostgres
	c.DatabaseDSN = ""
	c.PostgresServer = "postgres"
	c.PostgresPort = "5432"
	c.PostgresDB = "fruitful"
	c.PostgresUser = "postgres"
	c.PostgresPassword = ""
	c.SecretKey = "secretKey"
	c.AccessTokenValidityDuration = 30 * time.Minute
	c.RefreshTokenValidityDuration = 7 * 24 * time.Hour
	c.LogLevel = "WARN"
	c.LogFormat = "json"
	c.FirstSuperuserFullName = "Admin"
	c.LoginRateLimit = 10
	c.LoginRateWindow = time.Minute
}

// DSN returns the connection string for DatabaseDriver, assembling a
// PostgreSQL URL from its parts when DatabaseDSN is empty.
func (c *Config) DSN() string {
	if c.DatabaseDSN != "" || c.DatabaseDriver != DriverPostgres {
		return c.DatabaseDSN
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.PostgresUser, c.PostgresPassword),
		Host:     net.JoinHostPort(c.PostgresServer, c.PostgresPort),
		Path:     "/" + c.PostgresDB,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	switch c.DatabaseDriver {
	case DriverPostgres:
	case DriverSQLite:
		if c.DatabaseDSN == "" {
			return fmt.Errorf("sqlite driver requires a database DSN")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.DatabaseDriver)
	}
	if c.SecretKey == "" {
		return fmt.Errorf("secret key must not be empty")
	}
	return nil
}

// LoadConfig builds a Config by applying defaults, then the dotenv file and
// environment, then an optional JSON file and finally command-line flags.
func LoadConfig() *Config {
	return loadConfig(os.Args[1:])
}

func loadConfig(args []string) *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg, args)
	parseJson(cfg, args)
	parseFlags(cfg, args)
	return cfg
}
