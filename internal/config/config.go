package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full application configuration, loaded from the environment.
type Config struct {
	App        AppConfig
	Server     ServerConfig
	MongoDB    MongoConfig
	Matching   MatchingConfig
	Connection ConnectionConfig
}

type AppConfig struct {
	Name        string
	Version     string
	Environment string
	Port        string
	Debug       bool
}

type ServerConfig struct {
	HTTP      HTTPConfig
	WebSocket WebSocketConfig
	CORS      CORSConfig
}

type HTTPConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type WebSocketConfig struct {
	ReadBufferSize  int
	WriteBufferSize int
	PingPeriod      time.Duration
	PongWait        time.Duration
	WriteWait       time.Duration
	MaxMessageSize  int64
}

type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	AllowCredentials bool
}

type MongoConfig struct {
	URI                    string
	Database               string
	MaxPoolSize            uint64
	MinPoolSize            uint64
	ConnectTimeout         time.Duration
	ServerSelectionTimeout time.Duration
}

// MatchingConfig drives the waiting queue and the pairing engine.
type MatchingConfig struct {
	PairInterval    time.Duration
	CleanupInterval time.Duration
	TicketTTL       time.Duration
	BatchLimit      int64
}

// ConnectionConfig drives the connection monitor.
type ConnectionConfig struct {
	CheckInterval time.Duration
	RetryDelay    time.Duration
	MaxRetries    int
	ProbeTimeout  time.Duration
}

// Load reads configuration from the environment with sane defaults.
func Load() *Config {
	return &Config{
		App:        loadAppConfig(),
		Server:     loadServerConfig(),
		MongoDB:    loadMongoConfig(),
		Matching:   loadMatchingConfig(),
		Connection: loadConnectionConfig(),
	}
}

func loadAppConfig() AppConfig {
	return AppConfig{
		Name:        getEnv("APP_NAME", "strangerchat"),
		Version:     getEnv("APP_VERSION", "1.0.0"),
		Environment: getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		Debug:       getEnvAsBool("APP_DEBUG", false),
	}
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		HTTP: HTTPConfig{
			Host:         getEnv("HTTP_HOST", "0.0.0.0"),
			Port:         getEnv("HTTP_PORT", "8080"),
			ReadTimeout:  getEnvAsDuration("HTTP_READ_TIMEOUT", "15s"),
			WriteTimeout: getEnvAsDuration("HTTP_WRITE_TIMEOUT", "15s"),
			IdleTimeout:  getEnvAsDuration("HTTP_IDLE_TIMEOUT", "60s"),
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  getEnvAsInt("WS_READ_BUFFER_SIZE", 1024),
			WriteBufferSize: getEnvAsInt("WS_WRITE_BUFFER_SIZE", 1024),
			PingPeriod:      getEnvAsDuration("WS_PING_PERIOD", "54s"),
			PongWait:        getEnvAsDuration("WS_PONG_WAIT", "60s"),
			WriteWait:       getEnvAsDuration("WS_WRITE_WAIT", "10s"),
			MaxMessageSize:  getEnvAsInt64("WS_MAX_MESSAGE_SIZE", 4096),
		},
		CORS: CORSConfig{
			AllowedOrigins:   getEnvAsSlice("CORS_ALLOWED_ORIGINS", "*"),
			AllowedMethods:   getEnvAsSlice("CORS_ALLOWED_METHODS", "GET,POST,PUT,DELETE,OPTIONS"),
			AllowedHeaders:   getEnvAsSlice("CORS_ALLOWED_HEADERS", "Origin,Content-Type,Accept,Authorization"),
			AllowCredentials: getEnvAsBool("CORS_ALLOW_CREDENTIALS", true),
		},
	}
}

func loadMongoConfig() MongoConfig {
	return MongoConfig{
		URI:                    getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		Database:               getEnv("MONGODB_DATABASE", "strangerchat"),
		MaxPoolSize:            getEnvAsUint64("MONGODB_MAX_POOL_SIZE", 100),
		MinPoolSize:            getEnvAsUint64("MONGODB_MIN_POOL_SIZE", 5),
		ConnectTimeout:         getEnvAsDuration("MONGODB_CONNECT_TIMEOUT", "10s"),
		ServerSelectionTimeout: getEnvAsDuration("MONGODB_SERVER_SELECTION_TIMEOUT", "5s"),
	}
}

func loadMatchingConfig() MatchingConfig {
	return MatchingConfig{
		PairInterval:    getEnvAsDuration("MATCHING_PAIR_INTERVAL", "5s"),
		CleanupInterval: getEnvAsDuration("MATCHING_CLEANUP_INTERVAL", "1m"),
		TicketTTL:       getEnvAsDuration("MATCHING_TICKET_TTL", "10m"),
		BatchLimit:      getEnvAsInt64("MATCHING_BATCH_LIMIT", 50),
	}
}

func loadConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		CheckInterval: getEnvAsDuration("CONNECTION_CHECK_INTERVAL", "30s"),
		RetryDelay:    getEnvAsDuration("CONNECTION_RETRY_DELAY", "5s"),
		MaxRetries:    getEnvAsInt("CONNECTION_MAX_RETRIES", 5),
		ProbeTimeout:  getEnvAsDuration("CONNECTION_PROBE_TIMEOUT", "10s"),
	}
}

// Environment helpers

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsUint64(key string, defaultValue uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseUint(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}

func getEnvAsSlice(key string, defaultValue string) []string {
	value := getEnv(key, defaultValue)
	if value == "" {
		return []string{}
	}
	return strings.Split(value, ",")
}
