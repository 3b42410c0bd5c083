package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "mysql")
	t.Setenv("BOOKING_TIMEZONE", "UTC")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Booking.DailyLimit)
	assert.Equal(t, 10*time.Second, cfg.StorySaveTimeout)
	assert.Equal(t, int64(5*1024*1024), cfg.UploadMaxBytes)
	assert.Equal(t, time.UTC, cfg.Booking.Location)
	assert.Contains(t, cfg.Database.DSN, "@tcp(")
}

func TestLoadConfig_Postgres(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Contains(t, cfg.Database.DSN, "host=db.internal")
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	cases := map[string]string{
		"DB_DRIVER":           "oracle",
		"BOOKING_DAILY_LIMIT": "five",
		"REDIS_DB":            "x",
		"BOOKING_TIMEZONE":    "Mars/Olympus",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestMailerEnabled(t *testing.T) {
	assert.False(t, MailerConfig{}.Enabled())
	assert.True(t, MailerConfig{Host: "smtp.example.com", DefaultFrom: "noreply@example.com"}.Enabled())
}
