package configs

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	SessionStoreDB    = "db"
	SessionStoreRedis = "redis"
)

type Config struct {
	AppPort int

	DBDriver   string
	SQLitePath string
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBNameTest string

	RedisHost string
	RedisPort int

	SessionStore string
	JWTSecret    string
	TokenTTL     time.Duration

	LogDir string

	NotificationsEnabled  bool
	ReminderLead          time.Duration
	StatusRefreshInterval time.Duration
	ShutdownTimeout       time.Duration
}

func LoadConfig() Config {
	// Muat file .env
	if err := godotenv.Load(); err != nil {
		// Hanya log jika tidak dalam mode test
		if os.Getenv("GO_ENV") != "test" {
			log.Println("No .env file found, using default values")
		}
	}

	return Config{
		AppPort: getInt("APP_PORT", 3004),

		DBDriver:   getString("DB_DRIVER", DriverSQLite),
		SQLitePath: getString("SQLITE_PATH", "todo.db"),
		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     getInt("DB_PORT", 5432),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBNameTest: os.Getenv("DB_NAME_TEST"),

		RedisHost: getString("REDIS_HOST", "localhost"),
		RedisPort: getInt("REDIS_PORT", 6379),

		SessionStore: getString("SESSION_STORE", SessionStoreDB),
		JWTSecret:    os.Getenv("JWT_SECRET"),
		TokenTTL:     getDuration("TOKEN_TTL", 24*time.Hour),

		LogDir: os.Getenv("LOG_DIR"),

		NotificationsEnabled:  getBool("NOTIFICATIONS_ENABLED", true),
		ReminderLead:          getDuration("REMINDER_LEAD", time.Hour),
		StatusRefreshInterval: getDuration("STATUS_REFRESH_INTERVAL", time.Minute),
		ShutdownTimeout:       getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

// Validate reports combinations the application cannot start with.
func (c Config) Validate() error {
	var errs []error
	switch c.DBDriver {
	case DriverSQLite, DriverPostgres:
	default:
		errs = append(errs, fmt.Errorf("unknown DB_DRIVER %q", c.DBDriver))
	}
	switch c.SessionStore {
	case SessionStoreDB, SessionStoreRedis:
	default:
		errs = append(errs, fmt.Errorf("unknown SESSION_STORE %q", c.SessionStore))
	}
	if c.SessionStore == SessionStoreDB && c.DBDriver == DriverPostgres {
		errs = append(errs, errors.New("SESSION_STORE=db requires DB_DRIVER=sqlite, use redis with postgres"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.ReminderLead < 0 {
		errs = append(errs, errors.New("REMINDER_LEAD must not be negative"))
	}
	if c.StatusRefreshInterval <= 0 {
		errs = append(errs, errors.New("STATUS_REFRESH_INTERVAL must be positive"))
	}
	return errors.Join(errs...)
}

func getString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}
