package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORAGE", "")
	t.Setenv("DISCOUNT_RATE", "")
	t.Setenv("DELIVERY_FEE", "")
	t.Setenv("PAYMENT_PROVIDER", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StoragePostgres, cfg.Storage)
	assert.Equal(t, "0.02", cfg.DiscountRate.String())
	assert.Equal(t, "1200", cfg.DeliveryFee.String())
	assert.Equal(t, int32(0), cfg.MoneyPlaces)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, PaymentProviderStatic, cfg.PaymentProvider)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORAGE", "memory")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("NOTIFY_TIMEOUT", "750ms")
	t.Setenv("DISCOUNT_RATE", "0.1")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StorageMemory, cfg.Storage)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 750*time.Millisecond, cfg.NotifyTimeout)
	assert.Equal(t, "0.1", cfg.DiscountRate.String())
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"DISCOUNT_RATE":    "1.5",
		"DELIVERY_FEE":     "-1",
		"REQUEST_TIMEOUT":  "soon",
		"STORAGE":          "mongo",
		"MONEY_PLACES":     "9",
		"PAYMENT_PROVIDER": "stripe",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			t.Setenv("STRIPE_API_KEY", "")
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
