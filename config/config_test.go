package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("automesh")
	require.NoError(t, err)

	assert.Equal(t, "automesh", cfg.ServiceName)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, 100, cfg.Engine.HistoryLimit)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "automesh", cfg.Metrics.Namespace)
	assert.Empty(t, cfg.Components.Agents)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("STORE_DSN", "host=localhost dbname=automesh")
	t.Setenv("ENGINE_HISTORY_LIMIT", "25")
	t.Setenv("COMPONENTS_AGENTS", "greeter, summarizer")
	t.Setenv("INTEGRATION_ENDPOINTS", "crm=https://crm.example.com/hook,billing=https://billing.example.com/hook")

	cfg, err := Load("automesh")
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, 25, cfg.Engine.HistoryLimit)
	assert.Equal(t, []string{"greeter", "summarizer"}, cfg.Components.Agents)
	assert.Equal(t, "https://crm.example.com/hook", cfg.IntegrationEndpoints["crm"])
	assert.Equal(t, "https://billing.example.com/hook", cfg.IntegrationEndpoints["billing"])
}

func TestConfig_Validate(t *testing.T) {
	valid := &Config{
		Store:  StoreConfig{Driver: "memory"},
		Engine: EngineConfig{HistoryLimit: 100},
	}
	assert.NoError(t, valid.Validate())

	missingDSN := &Config{
		Store:  StoreConfig{Driver: "postgres"},
		Engine: EngineConfig{HistoryLimit: 100},
	}
	assert.ErrorContains(t, missingDSN.Validate(), "STORE_DSN")

	unknownDriver := &Config{
		Store:  StoreConfig{Driver: "sqlite"},
		Engine: EngineConfig{HistoryLimit: 100},
	}
	assert.ErrorContains(t, unknownDriver.Validate(), "unknown store driver")

	badLimit := &Config{
		Store:  StoreConfig{Driver: "memory"},
		Engine: EngineConfig{HistoryLimit: 0},
	}
	assert.ErrorContains(t, badLimit.Validate(), "HISTORY_LIMIT")
}
