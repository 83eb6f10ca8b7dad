// Package config loads all runtime settings from the environment. A .env
// file in the working directory is honoured for local development; in
// production the variables come from the deployment environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// Config is the top-level application configuration.
type Config struct {
	Port       string
	DBDSN      string
	JWTSecret  string
	BcryptCost int
}

// Load reads the .env file (if present) and assembles the configuration.
// Missing required variables are fatal: the service cannot run without a
// database or a JWT secret.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("no .env file found, relying on process environment")
	}

	cost := envInt("BCRYPT_COST", bcrypt.DefaultCost)
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}

	return &Config{
		Port:       envStr("PORT", "8080"),
		DBDSN:      buildDSN(),
		JWTSecret:  mustEnv("JWT_SECRET"),
		BcryptCost: cost,
	}
}

// buildDSN assembles the MySQL DSN. DB_DSN wins when set; otherwise the
// individual DB_* variables are combined. parseTime and a UTC location are
// always forced so time columns scan into time.Time consistently.
func buildDSN() string {
	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		return dsn
	}
	user := mustEnv("DB_USER")
	pass := os.Getenv("DB_PASSWORD")
	host := envStr("DB_HOST", "localhost")
	port := envStr("DB_PORT", "3306")
	name := mustEnv("DB_NAME")
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&loc=UTC", user, pass, host, port, name)
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		logrus.Fatalf("required environment variable %s is not set", key)
	}
	return v
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envBool(key string, def bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return def
}

func envDur(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
