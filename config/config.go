// Package config loads runtime configuration from environment variables,
// with an optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	// Driver is "memory" or "postgres".
	Driver string
	// DSN is the PostgreSQL connection string, required for the postgres
	// driver.
	DSN string
	// MaxIdleConns and MaxOpenConns tune the postgres connection pool.
	MaxIdleConns int
	MaxOpenConns int
}

// EngineConfig tunes the automation engine.
type EngineConfig struct {
	// HistoryLimit caps execution history queries.
	HistoryLimit int
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Namespace string
}

// ComponentsConfig lists the compiled-in components to enable at boot.
// Empty lists enable everything registered in the loader catalogs.
type ComponentsConfig struct {
	Tools        []string
	Agents       []string
	Executors    []string
	Integrations []string
	Knowledge    []string
}

// Config holds all runtime configuration.
type Config struct {
	ServiceName string
	Store       StoreConfig
	Engine      EngineConfig
	Log         LogConfig
	Metrics     MetricsConfig
	Components  ComponentsConfig
	// IntegrationEndpoints maps integration names to their webhook URLs.
	IntegrationEndpoints map[string]string
}

// Load reads configuration from environment variables. A .env file in the
// working directory is loaded first when present.
func Load(serviceName string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// The .env file is optional.
		fmt.Printf("Warning: .env file not found, using environment variables\n")
	}

	config := &Config{
		ServiceName: serviceName,
		Store: StoreConfig{
			Driver:       getEnv("STORE_DRIVER", "memory"),
			DSN:          getEnv("STORE_DSN", ""),
			MaxIdleConns: getEnvAsInt("STORE_MAX_IDLE_CONNS", 10),
			MaxOpenConns: getEnvAsInt("STORE_MAX_OPEN_CONNS", 100),
		},
		Engine: EngineConfig{
			HistoryLimit: getEnvAsInt("ENGINE_HISTORY_LIMIT", 100),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Metrics: MetricsConfig{
			Namespace: getEnv("METRICS_NAMESPACE", serviceName),
		},
		Components: ComponentsConfig{
			Tools:        getEnvAsList("COMPONENTS_TOOLS"),
			Agents:       getEnvAsList("COMPONENTS_AGENTS"),
			Executors:    getEnvAsList("COMPONENTS_EXECUTORS"),
			Integrations: getEnvAsList("COMPONENTS_INTEGRATIONS"),
			Knowledge:    getEnvAsList("COMPONENTS_KNOWLEDGE"),
		},
		IntegrationEndpoints: getEnvAsMap("INTEGRATION_ENDPOINTS"),
	}

	return config, nil
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "memory":
	case "postgres":
		if c.Store.DSN == "" {
			return fmt.Errorf("config: postgres driver requires STORE_DSN")
		}
	default:
		return fmt.Errorf("config: unknown store driver %q", c.Store.Driver)
	}

	if c.Engine.HistoryLimit <= 0 {
		return fmt.Errorf("config: ENGINE_HISTORY_LIMIT must be positive")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList parses a comma-separated value, dropping empty entries.
func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	var items []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

// getEnvAsMap parses "name=value,name=value" pairs.
func getEnvAsMap(key string) map[string]string {
	raw := getEnv(key, "")
	result := make(map[string]string)
	if raw == "" {
		return result
	}
	for _, part := range strings.Split(raw, ",") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if ok && name != "" {
			result[name] = value
		}
	}
	return result
}
