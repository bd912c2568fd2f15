package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents the application configuration
type Config struct {
	Server     ServerConfig     `json:"server"`
	Database   DatabaseConfig   `json:"database"`
	Providers  ProvidersConfig  `json:"providers"`
	Escalation EscalationConfig `json:"escalation"`
	Security   SecurityConfig   `json:"security"`
	Logging    LoggingConfig    `json:"logging"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Host           string        `json:"host"`
	Port           int           `json:"port"`
	User           string        `json:"user"`
	Password       string        `json:"password"`
	DBName         string        `json:"db_name"`
	SSLMode        string        `json:"ssl_mode"`
	MaxConnections int           `json:"max_connections"`
	MaxIdleConns   int           `json:"max_idle_conns"`
	MaxLifetime    time.Duration `json:"max_lifetime"`
}

// ProvidersConfig holds the outbound notification provider settings.
type ProvidersConfig struct {
	AWSRegion      string        `json:"aws_region"`
	FromEmail      string        `json:"from_email"`
	FromName       string        `json:"from_name"`
	SMSSenderID    string        `json:"sms_sender_id"`
	SendTimeout    time.Duration `json:"send_timeout"`
	CallbackSecret string        `json:"callback_secret"`
}

// EscalationConfig holds the sweep defaults. MinDaysWaiting gates stage
// advancement; MaxFollowups caps assignments advanced per sweep run.
type EscalationConfig struct {
	MinDaysWaiting      int      `json:"min_days_waiting"`
	MaxFollowups        int      `json:"max_followups"`
	DispatchConcurrency int      `json:"dispatch_concurrency"`
	AdminEmails         []string `json:"admin_emails"`
	PortalBaseURL       string   `json:"portal_base_url"`
}

// SecurityConfig
type SecurityConfig struct {
	JWTSecret string `json:"jwt_secret"`
}

// LoggingConfig
type LoggingConfig struct {
	Level string `json:"level"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	// Default config
	config := &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			User:    os.Getenv("USER"),
			DBName:  "certshield_coi",
			SSLMode: "disable",
		},
		Providers: ProvidersConfig{
			AWSRegion:   "us-east-1",
			FromEmail:   "compliance@certshield.io",
			FromName:    "CertShield Compliance",
			SendTimeout: 15 * time.Second,
		},
		Escalation: EscalationConfig{
			MinDaysWaiting:      2,
			MaxFollowups:        10,
			DispatchConcurrency: 4,
		},
	}

	// Load from file if exists
	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			if err := json.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	// Override with environment variables
	overrideWithEnv(config)

	return config, nil
}

func overrideWithEnv(config *Config) {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if dbHost := os.Getenv("DATABASE_HOST"); dbHost != "" {
		config.Database.Host = dbHost
	}
	if dbPort := os.Getenv("DATABASE_PORT"); dbPort != "" {
		if p, err := strconv.Atoi(dbPort); err == nil {
			config.Database.Port = p
		}
	}
	if dbUser := os.Getenv("DATABASE_USER"); dbUser != "" {
		config.Database.User = dbUser
	}
	if dbPass := os.Getenv("DATABASE_PASSWORD"); dbPass != "" {
		config.Database.Password = dbPass
	}
	if dbName := os.Getenv("DATABASE_DBNAME"); dbName != "" {
		config.Database.DBName = dbName
	}
	if region := os.Getenv("AWS_REGION"); region != "" {
		config.Providers.AWSRegion = region
	}
	if from := os.Getenv("NOTIFICATIONS_FROM_EMAIL"); from != "" {
		config.Providers.FromEmail = from
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		config.Security.JWTSecret = secret
	}
	if secret := os.Getenv("DELIVERY_CALLBACK_SECRET"); secret != "" {
		config.Providers.CallbackSecret = secret
	}
}

// GetDatabaseURL returns the database connection string
func (c *DatabaseConfig) GetDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// GetServerAddr returns the server address
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
