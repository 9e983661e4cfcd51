package config

import (
	"fmt"
	"os"
	"time"
)

// Config configuración principal de la aplicación
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Engine     EngineConfig
	Scheduling SchedulingConfig
	Catalog    CatalogConfig
	CRM        CRMConfig
	Channels   ChannelsConfig
	OpenAI     OpenAIConfig
}

// ServerConfig configuración del servidor HTTP
type ServerConfig struct {
	Port            string
	Environment     string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig configuración de PostgreSQL
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig configuración de Redis
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// EngineConfig configuración del intérprete de flujos
type EngineConfig struct {
	// HopBudget is the maximum node traversals allowed in a single turn.
	HopBudget int
	// ExecutorTimeout bounds every external call made from a node executor.
	ExecutorTimeout time.Duration
	// SessionTTL is how long a session stays resumable without activity.
	SessionTTL time.Duration
	// TurnLockTTL bounds how long one turn may hold the per-session lock.
	TurnLockTTL time.Duration
}

// SchedulingConfig configuración del servicio de agendamiento
type SchedulingConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// CatalogConfig configuración del servicio de catálogo
type CatalogConfig struct {
	BaseURL      string
	APIKey       string
	Timeout      time.Duration
	AssetsBucket string
	AssetsRegion string
	AssetsTTL    time.Duration
}

// CRMConfig configuración del CRM de leads
type CRMConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// ChannelsConfig configuración de la entrega saliente. Con WebhookURL vacía
// los mensajes salientes solo se loguean.
type ChannelsConfig struct {
	WebhookURL string
	APIKey     string
}

// OpenAIConfig configuración del proveedor de generación de texto
type OpenAIConfig struct {
	APIKey string
	Model  string
}

// Load carga la configuración desde variables de entorno
func Load() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			Environment:     getEnv("ENVIRONMENT", "development"),
			ReadTimeout:     getDurationEnv("READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getDurationEnv("WRITE_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getDurationEnv("SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", getEnv("POSTGRES_HOST", "localhost")),
			Port:            getEnv("DB_PORT", getEnv("POSTGRES_PORT", "5432")),
			User:            getEnv("DB_USER", getEnv("POSTGRES_USER", "postgres")),
			Password:        getEnv("DB_PASSWORD", getEnv("POSTGRES_PASSWORD", "postgres")),
			DBName:          getEnv("DB_NAME", getEnv("POSTGRES_DB", "dialogo")),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		Engine: EngineConfig{
			HopBudget:       getIntEnv("ENGINE_HOP_BUDGET", 25),
			ExecutorTimeout: getDurationEnv("ENGINE_EXECUTOR_TIMEOUT", 15*time.Second),
			SessionTTL:      getDurationEnv("ENGINE_SESSION_TTL", 24*time.Hour),
			TurnLockTTL:     getDurationEnv("ENGINE_TURN_LOCK_TTL", 60*time.Second),
		},
		Scheduling: SchedulingConfig{
			BaseURL: getEnv("SCHEDULING_API_URL", "http://localhost:9090"),
			APIKey:  getEnv("SCHEDULING_API_KEY", ""),
			Timeout: getDurationEnv("SCHEDULING_TIMEOUT", 10*time.Second),
		},
		Catalog: CatalogConfig{
			BaseURL:      getEnv("CATALOG_API_URL", "http://localhost:9091"),
			APIKey:       getEnv("CATALOG_API_KEY", ""),
			Timeout:      getDurationEnv("CATALOG_TIMEOUT", 10*time.Second),
			AssetsBucket: getEnv("CATALOG_ASSETS_BUCKET", ""),
			AssetsRegion: getEnv("CATALOG_ASSETS_REGION", "us-east-1"),
			AssetsTTL:    getDurationEnv("CATALOG_ASSETS_TTL", 1*time.Hour),
		},
		CRM: CRMConfig{
			BaseURL: getEnv("CRM_API_URL", "http://localhost:9092"),
			APIKey:  getEnv("CRM_API_KEY", ""),
			Timeout: getDurationEnv("CRM_TIMEOUT", 10*time.Second),
		},
		Channels: ChannelsConfig{
			WebhookURL: getEnv("CHANNEL_WEBHOOK_URL", ""),
			APIKey:     getEnv("CHANNEL_WEBHOOK_API_KEY", ""),
		},
		OpenAI: OpenAIConfig{
			APIKey: getEnv("OPENAI_API_KEY", ""),
			Model:  getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate valida la configuración
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("DB_USER is required")
	}
	if c.Database.DBName == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if c.Engine.HopBudget <= 0 {
		return fmt.Errorf("ENGINE_HOP_BUDGET must be positive")
	}
	if c.Engine.ExecutorTimeout <= 0 {
		return fmt.Errorf("ENGINE_EXECUTOR_TIMEOUT must be positive")
	}

	return nil
}

// GetDSN retorna el DSN de PostgreSQL
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// GetAddr retorna la dirección de Redis
func (c *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intValue int
		if _, err := fmt.Sscanf(value, "%d", &intValue); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
