package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"strings"
	"time"
)

// DefaultJWTSecret is used when JWT_SECRET is unset outside production.
// Tokens signed with it are forgeable by anyone who reads this file.
const DefaultJWTSecret = "agro-operations-dev-secret"

// DefaultTokenTTL is the validity window of session tokens.
const DefaultTokenTTL = 30 * 24 * time.Hour

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Nothing mutates a Config after Load returns; it is
// passed by value into the token service, the database pool and the router.
type Config struct {
	Env           string        // application environment (development, test, production)
	Port          string        // HTTP port to listen on
	DBUser        string        // database username
	DBPass        string        // database password (optional)
	DBHost        string        // database host address
	DBPort        string        // database port number
	DBName        string        // database name
	DBMigrate     bool          // run embedded migrations on startup
	JWTSecret     string        // secret used to sign session tokens
	TokenTTL      time.Duration // session token validity window
	BcryptCost    int           // bcrypt cost for password hashing
	FrontendURL   string        // allowed cross-origin source
	BodyLimit     string        // maximum request body size (echo notation, e.g. 10M)
	LogLevel      string        // logrus level name
	AdminEmail    string        // bootstrap administrator email (optional)
	AdminPassword string        // bootstrap administrator password (optional)
	AdminIdentity string        // bootstrap administrator identity number
}

// Load reads configuration values from environment variables and returns a
// Config.  Database coordinates are required; everything else has a default.
func Load() Config {
	cfg := Config{
		Env:           envStr("APP_ENV", "development"),
		Port:          envStr("APP_PORT", "3000"),
		DBUser:        must("DB_USER"),
		DBPass:        os.Getenv("DB_PASS"),
		DBHost:        must("DB_HOST"),
		DBPort:        envStr("DB_PORT", "3306"),
		DBName:        must("DB_NAME"),
		DBMigrate:     envBool("DB_MIGRATE", true),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		TokenTTL:      envDur("TOKEN_TTL", DefaultTokenTTL),
		BcryptCost:    envInt("BCRYPT_COST", 10),
		FrontendURL:   envStr("FRONTEND_URL", "http://localhost:3001"),
		BodyLimit:     envStr("BODY_LIMIT", "10M"),
		LogLevel:      envStr("LOG_LEVEL", "info"),
		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		AdminIdentity: envStr("ADMIN_IDENTITY_NUMBER", "0000000000"),
	}
	secret, err := resolveSecret(cfg.Env, cfg.JWTSecret)
	if err != nil {
		log.Fatal(err)
	}
	cfg.JWTSecret = secret
	return cfg
}

// IsProduction reports whether the service runs with production settings.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// UsesDefaultSecret reports whether tokens are signed with DefaultJWTSecret.
func (c Config) UsesDefaultSecret() bool {
	return c.JWTSecret == DefaultJWTSecret
}

type configError string

func (e configError) Error() string { return string(e) }

// resolveSecret applies the development fallback for the signing secret.
// Production deployments must configure JWT_SECRET explicitly.
func resolveSecret(env, secret string) (string, error) {
	if secret != "" {
		return secret, nil
	}
	if strings.EqualFold(env, "production") {
		return "", configError("missing required env var: JWT_SECRET")
	}
	return DefaultJWTSecret, nil
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
