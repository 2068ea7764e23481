package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
)

type Config struct {
	Port                    string `env:"PORT" envDefault:"5003"`
	Env                     string `env:"ENV" envDefault:"development"`
	MongoURI                string `env:"MONGO_URI"`
	MongoDatabase           string `env:"MONGO_DATABASE" envDefault:"hexagon"`
	PostgresURL             string `env:"POSTGRES_URL"`
	JWTSecret               string `env:"JWT_SECRET" envDefault:"dev-secret-change"`
	FirebaseCredentialsPath string `env:"FIREBASE_CREDENTIALS_PATH"`

	Database     DatabaseConfig
	Logger       LoggerConfig
	WebSocket    WebSocketConfig
	Notification NotificationConfig
}

// DatabaseConfig sizes the connection pools of both stores.
type DatabaseConfig struct {
	ConnectTimeout          time.Duration `env:"DB_CONNECT_TIMEOUT" envDefault:"10s"`
	PostgresMaxOpenConns    int           `env:"POSTGRES_MAX_OPEN_CONNS" envDefault:"20"`
	PostgresMaxIdleConns    int           `env:"POSTGRES_MAX_IDLE_CONNS" envDefault:"5"`
	PostgresConnMaxLifetime time.Duration `env:"POSTGRES_CONN_MAX_LIFETIME" envDefault:"30m"`
	MongoMaxPoolSize        uint64        `env:"MONGO_MAX_POOL_SIZE" envDefault:"100"`
}

type LoggerConfig struct {
	Level    string `env:"LOGGER_LEVEL" envDefault:"info"`
	Mode     string `env:"LOGGER_MODE" envDefault:"development"`
	Encoding string `env:"LOGGER_ENCODING" envDefault:"console"`
}

// WebSocketConfig tunes the live notification channel.
type WebSocketConfig struct {
	PingInterval    time.Duration `env:"WS_PING_INTERVAL" envDefault:"30s"`
	PongWait        time.Duration `env:"WS_PONG_WAIT" envDefault:"60s"`
	WriteWait       time.Duration `env:"WS_WRITE_WAIT" envDefault:"10s"`
	MaxMessageSize  int64         `env:"WS_MAX_MESSAGE_SIZE" envDefault:"4096"`
	SendBuffer      int           `env:"WS_SEND_BUFFER" envDefault:"256"`
	ReadBufferSize  int           `env:"WS_READ_BUFFER_SIZE" envDefault:"1024"`
	WriteBufferSize int           `env:"WS_WRITE_BUFFER_SIZE" envDefault:"1024"`
}

// NotificationConfig bounds the fan-out pipeline.
type NotificationConfig struct {
	SnapshotLimit     int64         `env:"NOTIFY_SNAPSHOT_LIMIT" envDefault:"50"`
	PushTimeout       time.Duration `env:"NOTIFY_PUSH_TIMEOUT" envDefault:"5s"`
	FanoutConcurrency int           `env:"NOTIFY_FANOUT_CONCURRENCY" envDefault:"16"`
	TaskTimeout       time.Duration `env:"NOTIFY_TASK_TIMEOUT" envDefault:"30s"`
	StoreTimeout      time.Duration `env:"NOTIFY_STORE_TIMEOUT" envDefault:"5s"`
}

// Load reads a .env file when one is present and parses the environment into Config.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
