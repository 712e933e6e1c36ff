package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	defaultHTTPPort    = "8080"
	defaultStorageType = "postgres"
	defaultDBHost      = "postgres"
	defaultDBPort      = "5432"
	defaultDBUser      = "reviewer"
	defaultDBPassword  = "reviewer"
	defaultDBName      = "reviewer"
	defaultDBSSLMode   = "disable"
	defaultDBMaxConns  = 4
	defaultRedisStream = "review-tasks"
	defaultLogLevel    = "INFO"
	defaultAppEnv      = "development"
	defaultNodeID      = 1

	defaultExpertisePriority = 5
)

type Config struct {
	App       AppConfig
	HTTP      HTTPConfig
	Storage   StorageConfig
	Events    EventsConfig
	Log       LogConfig
	Expertise ExpertiseConfig
}

type AppConfig struct {
	Env    string
	NodeID int64
}

func (a AppConfig) IsProduction() bool {
	return a.Env == "production"
}

type HTTPConfig struct {
	Addr string
}

type StorageConfig struct {
	Type     string
	Postgres PostgresConfig
}

type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int32
}

func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", p.User, p.Password, p.Host, p.Port, p.DBName, p.SSLMode)
}

// EventsConfig controls the task event stream. An empty RedisURL disables
// publishing.
type EventsConfig struct {
	RedisURL string
	Stream   string
}

type LogConfig struct {
	Level string
}

// ExpertiseConfig holds the priority given to preferences created without
// an explicit one, such as those attached on invitation.
type ExpertiseConfig struct {
	DefaultPriority int
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first; it never overrides variables already set.
func Load() Config {
	_ = godotenv.Load(".env")

	port := getenvDefault("HTTP_PORT", defaultHTTPPort)

	storageType := getenvDefault("STORAGE_TYPE", defaultStorageType)
	pg := PostgresConfig{
		Host:     getenvDefault("DB_HOST", defaultDBHost),
		Port:     getenvDefault("DB_PORT", defaultDBPort),
		User:     getenvDefault("DB_USER", defaultDBUser),
		Password: getenvDefault("DB_PASSWORD", defaultDBPassword),
		DBName:   getenvDefault("DB_NAME", defaultDBName),
		SSLMode:  getenvDefault("DB_SSL_MODE", defaultDBSSLMode),
		MaxConns: int32(getenvInt("DB_MAX_CONNS", defaultDBMaxConns)),
	}

	return Config{
		App: AppConfig{
			Env:    getenvDefault("APP_ENV", defaultAppEnv),
			NodeID: int64(getenvInt("NODE_ID", defaultNodeID)),
		},
		HTTP: HTTPConfig{
			Addr: fmt.Sprintf(":%s", port),
		},
		Storage: StorageConfig{
			Type:     storageType,
			Postgres: pg,
		},
		Events: EventsConfig{
			RedisURL: os.Getenv("REDIS_URL"),
			Stream:   getenvDefault("REDIS_STREAM", defaultRedisStream),
		},
		Log: LogConfig{
			Level: getenvDefault("LOG_LEVEL", defaultLogLevel),
		},
		Expertise: ExpertiseConfig{
			DefaultPriority: getenvInt("DEFAULT_EXPERTISE_PRIORITY", defaultExpertisePriority),
		},
	}
}

func getenvDefault(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getenvInt(key string, def int) int {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return def
	}
	return i
}
