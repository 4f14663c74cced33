package config

import (
	"testing"
	"time"

	"appointment-agent/pkg/apperr"

	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("SCENARIO_USERNAME", "user@example.com")
	t.Setenv("SCENARIO_PASSWORD", "secret")
	t.Setenv("SCENARIO_FACILITY_ID", "45")
	t.Setenv("SCENARIO_SCHEDULE_ID", "123")
	t.Setenv("SCENARIO_TARGET_DATE", "2025-06-01")
	t.Setenv("RETRY_DELAY", "90s")
}

func TestGetConfig(t *testing.T) {
	setRequiredEnv(t)

	conf, err := GetConfig()
	require.NoError(t, err)
	require.Equal(t, "ca", conf.ScenarioConfig.Region)
	require.Equal(t, 90*time.Second, conf.RetryConfig.Delay)
	require.Equal(t, 5000, conf.BrowserConfig.Timeout)
	require.Equal(t, "https://api.pushover.net/1/messages.json", conf.NotifyConfig.Endpoint)

	sc := conf.ScenarioContext()
	require.Equal(t, time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC), sc.TargetDate)
	require.Equal(t, "45", sc.FacilityID)
	require.Equal(t, 30*time.Millisecond, sc.CalendarTimeout)
	require.Equal(t, 5*time.Second, sc.DefaultTimeout)

	opts := conf.SessionOptions()
	require.Equal(t, 2078, opts.ViewportWidth)
	require.Equal(t, time.Minute, opts.NavigationTimeout)
}

func TestGetConfigMissingRequired(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SCENARIO_PASSWORD", "")

	_, err := GetConfig()
	require.Error(t, err)
	require.True(t, apperr.HasCode(err, apperr.CodeInvalidArgument))
}

func TestValidate(t *testing.T) {
	setRequiredEnv(t)

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad target date", func(c *Config) { c.ScenarioConfig.TargetDate = "06/01/2025" }},
		{"zero retry delay", func(c *Config) { c.RetryConfig.Delay = 0 }},
		{"blank facility", func(c *Config) { c.ScenarioConfig.FacilityID = "  " }},
		{"negative hold", func(c *Config) { c.ScenarioConfig.HoldOpen = -time.Second }},
		{"zero calendar timeout", func(c *Config) { c.ScenarioConfig.CalendarTimeout = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			conf, err := GetConfig()
			require.NoError(t, err)

			tc.mutate(conf)
			err = conf.Validate()
			require.Error(t, err)
			require.Equal(t, apperr.CodeInvalidArgument, apperr.CodeOf(err))
		})
	}
}
