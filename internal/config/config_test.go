package config

import (
	"os"
	"path/filepath"
	"testing"

	"velorent/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
app:
  name: velorent
  environment: test

database:
  path: /tmp/velorent-test.db

payment:
  stripe_key: sk_test_123
  currency: eur

rental:
  max_booking_days: 30
  helmet_fee_cents: 150

api:
  enabled: true
  http:
    port: 9999
  auth:
    api_keys:
      - key: test-key
        name: tests
        permissions: [read:rentals, write:rentals]

bikes:
  - id: bike-001
    name: Test Bike
    geometry: road
    hourly_price_cents: 356
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "velorent", cfg.App.Name)
	assert.Equal(t, "/tmp/velorent-test.db", cfg.Database.Path)
	assert.Equal(t, "sk_test_123", cfg.Payment.StripeKey)
	assert.Equal(t, "eur", cfg.Payment.Currency)
	assert.Equal(t, 30, cfg.Rental.MaxBookingDays)
	assert.Equal(t, int64(150), cfg.Rental.HelmetFeeCents)
	assert.Equal(t, 9999, cfg.API.HTTP.Port)
	require.Len(t, cfg.API.Auth.APIKeys, 1)
	assert.Equal(t, "test-key", cfg.API.Auth.APIKeys[0].Key)
	require.Len(t, cfg.Bikes, 1)
	assert.Equal(t, int64(356), cfg.Bikes[0].HourlyPriceCents)
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  path: /tmp/velorent-test.db
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.API.HTTP.Port)
	assert.Equal(t, "x-api-key", cfg.API.Auth.HeaderAPIKey)
	assert.Equal(t, "x-renter-id", cfg.API.Auth.HeaderRenterID)
	assert.Equal(t, models.DefaultCurrency, cfg.Payment.Currency)
	assert.Equal(t, models.DefaultMaxBookingDays, cfg.Rental.MaxBookingDays)
	assert.Equal(t, int64(models.DefaultHelmetFeeCents), cfg.Rental.HelmetFeeCents)
	assert.Equal(t, models.RateLimitAttempts, cfg.Rental.RateLimitAttempts)
	assert.Equal(t, 10, cfg.Rental.LeaderboardSize)
}

func TestLoadConfigEnvExpansion(t *testing.T) {
	t.Setenv("TEST_STRIPE_KEY", "sk_test_env")

	path := writeConfig(t, `
database:
  path: /tmp/velorent-test.db
payment:
  stripe_key: "${TEST_STRIPE_KEY}"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk_test_env", cfg.Payment.StripeKey)
}

func TestLoadConfigMissingDatabasePath(t *testing.T) {
	path := writeConfig(t, `
app:
  name: velorent
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database path")
}

func TestValidateBikes(t *testing.T) {
	t.Run("duplicate ids", func(t *testing.T) {
		err := ValidateBikes([]models.Bike{
			{ID: "b1", Name: "A", Geometry: models.GeometryRoad},
			{ID: "b1", Name: "B", Geometry: models.GeometryRoad},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate")
	})

	t.Run("unknown geometry", func(t *testing.T) {
		err := ValidateBikes([]models.Bike{{ID: "b1", Name: "A", Geometry: "bmx"}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "geometry")
	})

	t.Run("negative price", func(t *testing.T) {
		err := ValidateBikes([]models.Bike{{ID: "b1", Name: "A", Geometry: models.GeometryRoad, HourlyPriceCents: -1}})
		require.Error(t, err)
	})

	t.Run("empty id", func(t *testing.T) {
		err := ValidateBikes([]models.Bike{{Name: "A", Geometry: models.GeometryRoad}})
		require.Error(t, err)
	})

	t.Run("valid fleet", func(t *testing.T) {
		err := ValidateBikes([]models.Bike{
			{ID: "b1", Name: "A", Geometry: models.GeometryRoad, HourlyPriceCents: 100},
			{ID: "b2", Name: "B", Geometry: models.GeometryHybrid, HourlyPriceCents: 200},
		})
		assert.NoError(t, err)
	})
}
