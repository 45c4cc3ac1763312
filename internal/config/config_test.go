package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestGet(t *testing.T) {

	// Set test environment variables
	os.Setenv("LOG_ZAP_MODE", "test_mode")
	os.Setenv("COLLECTION_CONTRACTS", "0xabc,0xdef")
	os.Setenv("PRINT_CONFIGURATION_TO_LOGS", "true")

	// Get config
	cfg := Get()

	// Assert values
	assert.Equal(t, "test_mode", cfg.LogZapMode)
	assert.Equal(t, "0xabc,0xdef", cfg.CollectionContracts)
	assert.Equal(t, "true", cfg.PrintConfigurationToLogs)

	// Test singleton behavior
	cfg2 := Get()
	assert.Equal(t, cfg, cfg2)
}

func TestLoadConfigWithEnvVars(t *testing.T) {
	// Reset viper
	viper.Reset()

	// Set test environment variables
	os.Setenv("LOG_ZAP_MODE", "debug")
	os.Setenv("MARKETPLACE_API_URL", "https://example.test/api")
	os.Setenv("TRANSFER_SETTLE_DELAY_SECONDS", "45")
	os.Setenv("PRINT_CONFIGURATION_TO_LOGS", "false")

	cfg := loadConfig()

	assert.Equal(t, "debug", cfg.LogZapMode)
	assert.Equal(t, "https://example.test/api", cfg.MarketplaceApiUrl)
	assert.Equal(t, uint64(45), cfg.TransferSettleDelaySeconds)
	assert.Equal(t, "false", cfg.PrintConfigurationToLogs)
}

func TestLoadConfigWithConfigFile(t *testing.T) {
	// Reset viper
	viper.Reset()
	os.Unsetenv("LOG_ZAP_MODE")
	os.Unsetenv("COLLECTION_SLUG")

	// Create temporary config file
	content := []byte(`
LOG_ZAP_MODE=prod
COLLECTION_SLUG=wrapped-cats
PRINT_CONFIGURATION_TO_LOGS=true
`)
	err := os.WriteFile("config.env", content, 0644)
	assert.NoError(t, err)
	defer os.Remove("config.env")

	cfg := loadConfig()

	assert.Equal(t, "prod", cfg.LogZapMode)
	assert.Equal(t, "wrapped-cats", cfg.CollectionSlug)
}
