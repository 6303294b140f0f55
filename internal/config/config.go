package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config representa la configuración del servidor
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Pricing  PricingConfig
	Ledger   LedgerConfig
	RabbitMQ RabbitMQConfig
	Inngest  InngestConfig
	Email    EmailConfig
	Storage  StorageConfig
	Logging  LoggingConfig
}

// ServerConfig representa la configuración del servidor HTTP
type ServerConfig struct {
	Port string
	Host string
	Env  string
}

// DatabaseConfig representa la configuración de la base de datos
type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

// RedisConfig representa la configuración de Redis
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

// AuthConfig representa la verificación de tokens emitidos por el proveedor de identidad
type AuthConfig struct {
	JWTSecret    string
	RoleCacheTTL time.Duration
}

// PricingConfig representa los precios unitarios vigentes
type PricingConfig struct {
	Bottle decimal.Decimal
	Jug    decimal.Decimal
}

// LedgerConfig representa el comportamiento del ledger y el almacenamiento
type LedgerConfig struct {
	ContainerTracking string
	StoreDriver       string
}

// RabbitMQConfig representa la publicación de eventos del ledger
type RabbitMQConfig struct {
	URL      string
	Exchange string
}

// InngestConfig representa la configuración de Inngest
type InngestConfig struct {
	EventKey   string
	SigningKey string
	AppID      string
	Dev        bool
}

// EmailConfig representa la configuración de email
type EmailConfig struct {
	ResendAPIKey string
	From         string
	NotifyEmail  string
}

// StorageConfig representa el storage S3 de Supabase para estados de cuenta
type StorageConfig struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
}

// LoggingConfig representa la configuración de logging
type LoggingConfig struct {
	Level  string
	Format string
}

// Load carga la configuración desde variables de entorno
func Load() (*Config, error) {
	// No es crítico si no existe el archivo .env
	_ = godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Env:  getEnv("SERVER_ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:         getEnv("PGHOST", "localhost"),
			Port:         getEnv("PGPORT", "5432"),
			User:         getEnv("PGUSER", "postgres"),
			Password:     getEnv("PGPASSWORD", "postgres"),
			Name:         getEnv("PGDATABASE", "aquatrack"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Auth: AuthConfig{
			JWTSecret:    getEnv("JWT_SECRET", ""),
			RoleCacheTTL: getEnvAsDuration("ROLE_CACHE_TTL", 5*time.Minute),
		},
		Pricing: PricingConfig{
			Bottle: getEnvAsDecimal("PRICE_BOTTLE", decimal.NewFromInt(10)),
			Jug:    getEnvAsDecimal("PRICE_JUG", decimal.NewFromInt(40)),
		},
		Ledger: LedgerConfig{
			ContainerTracking: getEnv("CONTAINER_TRACKING", "auto"),
			StoreDriver:       getEnv("STORE_DRIVER", "postgres"),
		},
		RabbitMQ: RabbitMQConfig{
			URL:      getEnv("RABBITMQ_URL", ""),
			Exchange: getEnv("RABBITMQ_EXCHANGE", "aquatrack.events"),
		},
		Inngest: InngestConfig{
			EventKey:   getEnv("INNGEST_EVENT_KEY", ""),
			SigningKey: getEnv("INNGEST_SIGNING_KEY", ""),
			AppID:      getEnv("INNGEST_APP_ID", "aquatrack-service"),
			Dev:        getEnvAsBool("INNGEST_DEV", true),
		},
		Email: EmailConfig{
			ResendAPIKey: getEnv("RESEND_API_KEY", ""),
			From:         getEnv("EMAIL_FROM", "AquaTrack <noreply@aquatrack.app>"),
			NotifyEmail:  getEnv("NOTIFY_EMAIL", ""),
		},
		Storage: StorageConfig{
			Endpoint:        getEnv("SUPABASE_STORAGE_ENDPOINT", ""),
			Region:          getEnv("SUPABASE_STORAGE_REGION", "us-east-1"),
			Bucket:          getEnv("STATEMENTS_BUCKET", "statements"),
			AccessKeyID:     getEnv("SUPABASE_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("SUPABASE_SECRET_ACCESS_KEY", ""),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	return config, nil
}

// getEnv obtiene una variable de entorno o retorna un valor por defecto
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt obtiene una variable de entorno como entero
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBool obtiene una variable de entorno como booleano
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDuration obtiene una variable de entorno como duración
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvAsDecimal obtiene una variable de entorno como decimal
func getEnvAsDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// IsDevelopment retorna true si el entorno es de desarrollo
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsProduction retorna true si el entorno es de producción
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// GetDSN retorna la cadena de conexión a la base de datos
func (c *Config) GetDSN() string {
	return "host=" + c.Database.Host +
		" port=" + c.Database.Port +
		" user=" + c.Database.User +
		" password=" + c.Database.Password +
		" dbname=" + c.Database.Name +
		" sslmode=" + c.Database.SSLMode
}

// GetRedisAddr retorna la dirección de Redis
func (c *Config) GetRedisAddr() string {
	return c.Redis.Host + ":" + c.Redis.Port
}
