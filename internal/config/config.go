package config // package config loads application configuration from environment variables

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values. Each field corresponds
// to an environment variable. The types reflect how the values are used
// in the application: strings for identifiers and secrets, ints for
// durations and costs.
type Config struct {
	Env           string // application environment (e.g. "dev", "prod")
	Port          string // HTTP port to listen on
	DBPath        string // path of the SQLite database file
	JWTSecret     string // secret used to sign JWTs
	AccessTTLMin  int    // access token time-to-live in minutes
	BcryptCost    int    // bcrypt cost for password hashing
	AdminUsername string // bootstrap admin login
	AdminPassword string // bootstrap admin password (rotate after setup)
	AuditLogPath  string // file the audit consumer appends to
}

// Load reads configuration values from the environment (a local .env
// file is honoured when present) and returns a Config. Missing required
// variables cause the program to exit with a fatal log message.
func Load() Config {
	cfg := LoadTool()
	cfg.JWTSecret = must("JWT_SECRET")
	return cfg
}

// LoadTool is Load for the CLI utilities, which work on the database
// file directly and have no use for a token signing secret.
func LoadTool() Config {
	_ = godotenv.Load()

	return Config{
		Env:           getenv("APP_ENV", "dev"),
		Port:          getenv("APP_PORT", "8080"),
		DBPath:        getenv("DB_PATH", "datavue.db"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		AccessTTLMin:  getenvInt("ACCESS_TOKEN_TTL_MIN", 480),
		BcryptCost:    getenvInt("BCRYPT_COST", 10),
		AdminUsername: getenv("ADMIN_USERNAME", "admin"),
		AdminPassword: getenv("ADMIN_PASSWORD", "admin"),
		AuditLogPath:  getenv("AUDIT_LOG_PATH", "logs/audit.log"),
	}
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
