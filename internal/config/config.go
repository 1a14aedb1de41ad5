package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"
)

var cfg *Config
var once sync.Once

// Config is the configuration for the application
type Config struct {
	Server
	PostgreSQL
	Redis
	Ledger
	Breaker
	Cache
	RateLimit
	Log
	Process
}

// Process is the configuration for the stale pending report
type Process struct {
	Interval          string `env:"PROCESS_INTERVAL" envDefault:"10"`
	StalePendingAfter string `env:"STALE_PENDING_AFTER" envDefault:"5"`
}

// Every returns the report interval.
func (p Process) Every() time.Duration {
	return time.Duration(atoi(p.Interval, 10)) * time.Minute
}

// StaleAfter returns the age after which a pending transaction is reported.
func (p Process) StaleAfter() time.Duration {
	return time.Duration(atoi(p.StalePendingAfter, 5)) * time.Minute
}

// Server is the configuration for the server
type Server struct {
	Port string `env:"PORT" envDefault:"8080"`
}

// Addr returns the address for the server
func (s Server) Addr() string {
	return fmt.Sprintf("%s:%s", "0.0.0.0", s.Port)
}

// PostgreSQL is the configuration for the database
type PostgreSQL struct {
	Driver          string `env:"DB_DRIVER" envDefault:"postgres"`
	Host            string `env:"DB_HOST" envDefault:"localhost"`
	Port            string `env:"DB_PORT" envDefault:"5432"`
	Database        string `env:"DB_DATABASE" envDefault:"transfers_service"`
	Username        string `env:"DB_USERNAME" envDefault:"transfers_service"`
	Password        string `env:"DB_PASSWORD" envDefault:"transfers_service"`
	SSLMode         string `env:"DB_SSLMODE" envDefault:"disable"`
	MaxConnAttempts string `env:"DB_MAX_CONN_ATTEMPTS" envDefault:"5"`
}

// DSN returns the DSN for the database
func (c PostgreSQL) DSN() string {
	return fmt.Sprintf("%s://%s:%s@%s:%s/%s?sslmode=%s",
		c.Driver,
		c.Username,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
		c.SSLMode,
	)
}

// Redis is the configuration for the cache and rate limiter counter store
type Redis struct {
	Addr            string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password        string `env:"REDIS_PASSWORD" envDefault:""`
	DB              string `env:"REDIS_DB" envDefault:"0"`
	MaxConnAttempts string `env:"REDIS_MAX_CONN_ATTEMPTS" envDefault:"5"`
}

// Index returns the redis logical database index.
func (r Redis) Index() int {
	return atoi(r.DB, 0)
}

// Attempts returns how many times connecting to redis is retried.
func (r Redis) Attempts() int {
	return atoi(r.MaxConnAttempts, 5)
}

// Ledger is the configuration for the accounts service and the time source
type Ledger struct {
	BaseURL            string `env:"ACCOUNTS_SERVICE_URL" envDefault:"http://localhost:8000"`
	TimeoutSeconds     string `env:"LEDGER_TIMEOUT_SECONDS" envDefault:"10"`
	TimeAPIURL         string `env:"TIME_API_URL" envDefault:"https://timeapi.io/api/Time/current/zone?timeZone=UTC"`
	TimeTimeoutSeconds string `env:"TIME_API_TIMEOUT_SECONDS" envDefault:"5"`
}

// URL returns the ledger base url without a trailing slash.
func (l Ledger) URL() string {
	return strings.TrimRight(l.BaseURL, "/")
}

func (l Ledger) Timeout() time.Duration {
	return time.Duration(atoi(l.TimeoutSeconds, 10)) * time.Second
}

func (l Ledger) TimeTimeout() time.Duration {
	return time.Duration(atoi(l.TimeTimeoutSeconds, 5)) * time.Second
}

// Breaker is the configuration for the circuit breakers guarding outbound calls
type Breaker struct {
	Fails          string `env:"BREAKER_FAILS" envDefault:"5"`
	TimeoutSeconds string `env:"BREAKER_TIMEOUT_SECONDS" envDefault:"60"`
}

// Threshold returns the number of consecutive failures that opens the breaker.
func (b Breaker) Threshold() uint32 {
	return uint32(atoi(b.Fails, 5))
}

// Cooldown returns how long an open breaker rejects calls.
func (b Breaker) Cooldown() time.Duration {
	return time.Duration(atoi(b.TimeoutSeconds, 60)) * time.Second
}

// Cache is the configuration for the transaction cache
type Cache struct {
	TTLSeconds string `env:"CACHE_TTL_SECONDS" envDefault:"3600"`
	Enabled    string `env:"CACHE_ENABLED" envDefault:"true"`
}

func (c Cache) TTL() time.Duration {
	return time.Duration(atoi(c.TTLSeconds, 3600)) * time.Second
}

func (c Cache) IsEnabled() bool {
	enabled, err := strconv.ParseBool(c.Enabled)
	if err != nil {
		return true
	}
	return enabled
}

// RateLimit is the configuration for the request admission gate
type RateLimit struct {
	Limit         string `env:"RATE_LIMIT" envDefault:"50"`
	WindowSeconds string `env:"RATE_LIMIT_WINDOW_SECONDS" envDefault:"60"`
}

// Requests returns the number of requests admitted per window.
func (r RateLimit) Requests() int64 {
	return int64(atoi(r.Limit, 50))
}

func (r RateLimit) Window() time.Duration {
	return time.Duration(atoi(r.WindowSeconds, 60)) * time.Second
}

// Log is the configuration for the logger
type Log struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"`
	File  string `env:"LOG_FILE" envDefault:""`
}

// Load loads the configuration from environment variables
func Load() *Config {
	once.Do(func() {
		cfg = &Config{}
		cfgType := reflect.TypeOf(*cfg)
		cfgValue := reflect.ValueOf(cfg).Elem()

		for i := 0; i < cfgType.NumField(); i++ {
			field := cfgType.Field(i)
			fieldValue := cfgValue.Field(i)
			for j := 0; j < field.Type.NumField(); j++ {
				subField := field.Type.Field(j)
				envVar := subField.Tag.Get("env")
				envDefault := subField.Tag.Get("envDefault")
				value := getEnv(envVar, envDefault)

				fieldValue.Field(j).SetString(value)
			}
		}
	})

	return cfg
}

// getEnv retrieves the value of the environment variable named by the key or returns the defaultValue if not set
func getEnv(key, defaultValue string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		value = defaultValue
	}
	return value
}

// atoi parses a positive integer setting, falling back to def on garbage.
func atoi(value string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n <= 0 {
		return def
	}
	return n
}
