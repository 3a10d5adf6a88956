package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/fruitful/internal/flagx"
	"github.com/joho/godotenv"
)

const defaultEnvFile = ".env"

// parseEnv loads the dotenv file named by -env-file (".env" by default) into
// the process environment and then copies recognised variables into config.
// Variables already present in the environment are not overwritten by the
// file. A missing default file is ignored; any other load error panics.
func parseEnv(config *Config, args []string) {
	envFile := flagx.EnvFileFlags(args)
	explicit := envFile != ""
	if !explicit {
		envFile = defaultEnvFile
	}

	if err := godotenv.Load(envFile); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			panic(err)
		}
	}

	setString(&config.LogLevel, "LOG_LEVEL")
	setString(&config.LogFormat, "LOG_FORMAT")
	setString(&config.SecretKey, "SECRET_KEY")
	setString(&config.ProjectName, "PROJECT_NAME")
	setString(&config.HTTPAddr, "HTTP_ADDR")
	setString(&config.DatabaseDriver, "DATABASE_DRIVER")
	setString(&config.DatabaseDSN, "DATABASE_DSN")
	setString(&config.PostgresServer, "POSTGRES_SERVER")
	setString(&config.PostgresPort, "POSTGRES_PORT")
	setString(&config.PostgresDB, "POSTGRES_DB")
	setString(&config.PostgresUser, "POSTGRES_USER")
	setString(&config.PostgresPassword, "POSTGRES_PASSWORD")
	setString(&config.FirstSuperuserEmail, "FIRST_SUPERUSER_EMAIL")
	setString(&config.FirstSuperuserPassword, "FIRST_SUPERUSER_PASSWORD")
	setString(&config.FirstSuperuserFullName, "FIRST_SUPERUSER_FULL_NAME")
	setString(&config.SweepSchedule, "SWEEP_SCHEDULE")
	setString(&config.RedisAddr, "REDIS_ADDR")
	setString(&config.RedisPassword, "REDIS_PASSWORD")
	setDuration(&config.AccessTokenValidityDuration, "ACCESS_TOKEN_VALIDITY")
	setDuration(&config.RefreshTokenValidityDuration, "REFRESH_TOKEN_VALIDITY")
	setDuration(&config.LoginRateWindow, "LOGIN_RATE_WINDOW")
	setInt(&config.LoginRateLimit, "LOGIN_RATE_LIMIT")

	if v, ok := os.LookupEnv("CORS_ALLOWED_ORIGINS"); ok {
		config.CORSAllowedOrigins = splitList(v)
	}
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		panic(err)
	}
	*dst = d
}

func setInt(dst *int, key string) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		panic(err)
	}
	*dst = n
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
