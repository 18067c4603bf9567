package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	OpenAI   OpenAIConfig
	Azure    AzureConfig
	Triage   TriageConfig
	Logging  LoggingConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port            string
	Environment     string
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// OpenAIConfig holds OpenAI API configuration
type OpenAIConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// AzureConfig holds Azure service configuration
type AzureConfig struct {
	Storage StorageConfig
}

// StorageConfig holds Azure Blob Storage configuration
type StorageConfig struct {
	AccountName      string
	AccountKey       string
	ConnectionString string
	BlobEndpoint     string
	MediaContainer   string
}

// TriageConfig holds triage session tuning
type TriageConfig struct {
	SnapshotDir      string
	SnapshotKey      string // 32-byte AES key, empty disables at-rest encryption
	MaxImages        int
	MaxImageBytes    int64
	MaxVideoBytes    int64
	MinSymptomLength int
	SessionIdleTTL   time.Duration
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string // json or console
}

// Load reads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	// Read from environment variables
	v.AutomaticEnv()

	// Bind specific environment variables
	bindEnvVars(v)

	// Unmarshal into config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.shutdowntimeout", 30*time.Second)

	// Database defaults
	v.SetDefault("database.maxopenconns", 25)
	v.SetDefault("database.maxidleconns", 5)
	v.SetDefault("database.connmaxlifetime", 5*time.Minute)

	// OpenAI defaults
	v.SetDefault("openai.model", "gpt-4o")
	v.SetDefault("openai.timeout", 60*time.Second)

	// Azure Storage defaults
	v.SetDefault("azure.storage.mediacontainer", "symptom-media")

	// Triage defaults
	v.SetDefault("triage.snapshotdir", "./snapshots")
	v.SetDefault("triage.maximages", 3)
	v.SetDefault("triage.maximagebytes", int64(10*1024*1024))
	v.SetDefault("triage.maxvideobytes", int64(50*1024*1024))
	v.SetDefault("triage.minsymptomlength", 10)
	v.SetDefault("triage.sessionidlettl", time.Hour)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// bindEnvVars binds environment variables to config keys
func bindEnvVars(v *viper.Viper) {
	// Server
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.environment", "ENV", "ENVIRONMENT")

	// Database
	v.BindEnv("database.url", "DATABASE_URL")

	// OpenAI
	v.BindEnv("openai.apikey", "OPENAI_API_KEY")
	v.BindEnv("openai.model", "OPENAI_MODEL")

	// Azure Storage
	v.BindEnv("azure.storage.accountname", "AZURE_STORAGE_ACCOUNT_NAME")
	v.BindEnv("azure.storage.accountkey", "AZURE_STORAGE_ACCOUNT_KEY")
	v.BindEnv("azure.storage.connectionstring", "AZURE_STORAGE_CONNECTION_STRING")
	v.BindEnv("azure.storage.blobendpoint", "AZURE_STORAGE_BLOB_ENDPOINT")
	v.BindEnv("azure.storage.mediacontainer", "AZURE_STORAGE_MEDIA_CONTAINER")

	// Triage
	v.BindEnv("triage.snapshotdir", "TRIAGE_SNAPSHOT_DIR")
	v.BindEnv("triage.snapshotkey", "TRIAGE_SNAPSHOT_KEY")
	v.BindEnv("triage.sessionidlettl", "TRIAGE_SESSION_IDLE_TTL")

	// Logging
	v.BindEnv("logging.level", "LOG_LEVEL")
	v.BindEnv("logging.format", "LOG_FORMAT")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate required fields
	if c.Database.URL == "" {
		return fmt.Errorf("database.url is required")
	}

	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("openai.apikey is required")
	}

	if c.Azure.Storage.ConnectionString == "" && (c.Azure.Storage.AccountName == "" || c.Azure.Storage.AccountKey == "") {
		return fmt.Errorf("azure storage credentials are required (either connection string or account name + key)")
	}

	if c.Triage.SnapshotKey != "" && len(c.Triage.SnapshotKey) != 32 {
		return fmt.Errorf("triage.snapshotkey must be exactly 32 bytes")
	}

	if c.Triage.MaxImages <= 0 {
		return fmt.Errorf("triage.maximages must be positive")
	}

	if c.Triage.SessionIdleTTL <= 0 {
		return fmt.Errorf("triage.sessionidlettl must be positive")
	}

	return nil
}
