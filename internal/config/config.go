package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Config holds all process-level configuration for the application.
// Engine parameters (quarter, filters, ranking knobs) live in a separate
// YAML file loaded via Params; see params.go.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	CORS     CORSConfig
	Storage  StorageConfig
	SEC      SECConfig
	OpenFIGI OpenFIGIConfig
	Secrets  SecretsConfig
	Refresh  RefreshConfig
	Engine   EngineConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port string
	Host string
	Addr string // Combined host:port for convenience
}

// DatabaseConfig holds database-specific configuration
type DatabaseConfig struct {
	Path string
}

// CORSConfig holds CORS-specific configuration
type CORSConfig struct {
	AllowedOrigins []string
}

// StorageConfig holds the on-disk locations for raw filings and report
// artifacts.
type StorageConfig struct {
	DataDir    string
	ReportsDir string
}

// SECConfig identifies this client to EDGAR. SEC fair-access rules require
// a User-Agent naming a person and contact address; acquisition commands
// refuse to run without one.
type SECConfig struct {
	UserName  string
	UserEmail string
}

// UserAgent composes the EDGAR User-Agent header value, empty when either
// part is missing.
func (s SECConfig) UserAgent() string {
	if s.UserName == "" || s.UserEmail == "" {
		return ""
	}
	return fmt.Sprintf("%s %s", s.UserName, s.UserEmail)
}

// OpenFIGIConfig holds the optional lookup-service API key. A key raises
// the OpenFIGI rate limits but is not required. The key may instead be
// stored encrypted through the settings endpoint.
type OpenFIGIConfig struct {
	APIKey string
}

// SecretsConfig holds the fernet key used to encrypt stored secrets.
type SecretsConfig struct {
	FernetKey string
}

// RefreshConfig holds the cron spec for the in-server scheduled refresh.
// Empty disables scheduling.
type RefreshConfig struct {
	Schedule string
}

// EngineConfig points at the YAML engine-parameter file. Empty runs on
// defaults.
type EngineConfig struct {
	ParamsPath string
}

// Load reads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Host: getEnv("SERVER_HOST", "localhost"),
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "./data/thirteenf.db"),
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{
				"http://localhost:3000",
				"http://localhost",
			},
		},
		Storage: StorageConfig{
			DataDir:    getEnv("DATA_DIR", "./data/filings"),
			ReportsDir: getEnv("REPORTS_DIR", "./reports"),
		},
		SEC: SECConfig{
			UserName:  getEnv("SEC_USER_NAME", ""),
			UserEmail: getEnv("SEC_USER_EMAIL", ""),
		},
		OpenFIGI: OpenFIGIConfig{
			APIKey: getEnv("OPENFIGI_API_KEY", ""),
		},
		Secrets: SecretsConfig{
			FernetKey: getEnv("FERNET_KEY", ""),
		},
		Refresh: RefreshConfig{
			Schedule: getEnv("REFRESH_SCHEDULE", ""),
		},
		Engine: EngineConfig{
			ParamsPath: getEnv("ENGINE_CONFIG", ""),
		},
	}

	// Combine host and port
	config.Server.Addr = fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port)

	return config, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
