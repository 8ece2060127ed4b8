package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_QuotationDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0 * * * *", cfg.Quotation.ReminderSchedule)
	assert.Equal(t, 24*time.Hour, cfg.Quotation.ReminderAfter())
	assert.Equal(t, 30*time.Minute, cfg.Quotation.PreviewTTLDuration())
	assert.Equal(t, 30, cfg.Quotation.ValidityDays)
	assert.Equal(t, "COT", cfg.Quotation.NumberPrefix)
}

func TestLoad_EnvironmentOverridesReminderSchedule(t *testing.T) {
	t.Setenv("QUOTATION_REMINDERSCHEDULE", "*/15 * * * *")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "*/15 * * * *", cfg.Quotation.ReminderSchedule)
}
