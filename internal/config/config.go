package config

import (
	"os"
	"strconv"
	"time"

	"github.com/BlocUnited-LLC/mozaiks-ai-sub000/pkg/domain"
	"github.com/joho/godotenv"
)

// Load reads the .env file specified by CTXVARS_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// Variables already set in the process environment win.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	_ = godotenv.Load(EnvFile())
	_ = godotenv.Load(EnvFile() + ".secret")
	return nil
}

// EnvFile returns the dotenv file consulted by Load.
func EnvFile() string {
	if f := os.Getenv("CTXVARS_ENV"); f != "" {
		return f
	}
	return ".env"
}

// Mode returns the deployment mode selected by ENVIRONMENT.
func Mode() domain.Mode {
	return domain.ParseMode(os.Getenv("ENVIRONMENT"))
}

// IncludeRecords reports whether record-sourced variables are resolved.
// Defaults to true if not set.
func IncludeRecords() bool {
	v, ok := os.LookupEnv("CONTEXT_INCLUDE_RECORDS")
	if !ok || v == "" {
		return true
	}
	return domain.ParseFlag(v)
}

// Verbose enables diff logging of every context change.
func Verbose() bool {
	return domain.ParseFlag(os.Getenv("CONTEXT_VERBOSE_DEBUG"))
}

// BootstrapTimeout bounds source resolution at session start.
// Defaults to 10s if not set or invalid.
func BootstrapTimeout() time.Duration {
	d, err := time.ParseDuration(os.Getenv("CONTEXT_BOOTSTRAP_TIMEOUT"))
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

// EventQueue returns the initial capacity of a session's event queue.
// Defaults to 64 if not set.
func EventQueue() int {
	n, err := strconv.Atoi(os.Getenv("CONTEXT_EVENT_QUEUE"))
	if err != nil || n <= 0 {
		return 64
	}
	return n
}

// RedisAddr selects the Redis record backend when set.
func RedisAddr() string {
	return os.Getenv("REDIS_ADDR")
}

func RedisPassword() string {
	return os.Getenv("REDIS_PASSWORD")
}

func RedisDB() int {
	db, err := strconv.Atoi(os.Getenv("REDIS_DB"))
	if err != nil {
		return 0
	}
	return db
}

// RecordsDir selects the Loam record backend when set (and REDIS_ADDR is not).
func RecordsDir() string {
	return os.Getenv("RECORDS_DIR")
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}

// LogFormat returns "text" or "json". Defaults to "text".
func LogFormat() string {
	if f := os.Getenv("LOG_FORMAT"); f != "" {
		return f
	}
	return "text"
}
