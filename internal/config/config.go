package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"appointment-agent/internal/entity"
	"appointment-agent/pkg/apperr"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	AppConfig      *AppConfig
	BrowserConfig  *BrowserConfig
	ScenarioConfig *ScenarioConfig
	RetryConfig    *RetryConfig
	NotifyConfig   *NotifyConfig
}

type AppConfig struct {
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	Debug       bool   `envconfig:"DEBUG" default:"false"`
	TraceStdout bool   `envconfig:"TRACE_STDOUT" default:"false"`
}

type BrowserConfig struct {
	Headless          bool `envconfig:"BROWSER_HEADLESS" default:"true"`
	SlowMo            int  `envconfig:"BROWSER_SLOW_MO" default:"0"`
	Timeout           int  `envconfig:"BROWSER_TIMEOUT" default:"5000"`
	NavigationTimeout int  `envconfig:"BROWSER_NAVIGATION_TIMEOUT" default:"60000"`
	ViewportWidth     int  `envconfig:"BROWSER_VIEWPORT_WIDTH" default:"2078"`
	ViewportHeight    int  `envconfig:"BROWSER_VIEWPORT_HEIGHT" default:"1479"`
	SkipInstall       bool `envconfig:"BROWSER_SKIP_INSTALL" default:"false"`
}

type ScenarioConfig struct {
	Username        string        `envconfig:"SCENARIO_USERNAME" required:"true"`
	Password        string        `envconfig:"SCENARIO_PASSWORD" required:"true"`
	FacilityID      string        `envconfig:"SCENARIO_FACILITY_ID" required:"true"`
	ScheduleID      string        `envconfig:"SCENARIO_SCHEDULE_ID" required:"true"`
	TargetDate      string        `envconfig:"SCENARIO_TARGET_DATE" required:"true"`
	Region          string        `envconfig:"SCENARIO_REGION" default:"ca"`
	Group           bool          `envconfig:"SCENARIO_GROUP" default:"false"`
	CalendarTimeout int           `envconfig:"SCENARIO_CALENDAR_TIMEOUT" default:"30"`
	SettleDelay     time.Duration `envconfig:"SCENARIO_SETTLE_DELAY" default:"1s"`
	HoldOpen        time.Duration `envconfig:"SCENARIO_HOLD_OPEN" default:"60s"`
	DaysProbe       bool          `envconfig:"SCENARIO_DAYS_PROBE" default:"false"`
	ConfirmBooking  bool          `envconfig:"SCENARIO_CONFIRM_BOOKING" default:"false"`
}

type RetryConfig struct {
	Delay time.Duration `envconfig:"RETRY_DELAY" required:"true"`
}

type NotifyConfig struct {
	UserToken string        `envconfig:"NOTIFY_USER_TOKEN"`
	AppToken  string        `envconfig:"NOTIFY_APP_TOKEN" default:"a5o8qtigtvu3yyfaeehtnzfkm88zc9"`
	Endpoint  string        `envconfig:"NOTIFY_ENDPOINT" default:"https://api.pushover.net/1/messages.json"`
	Timeout   time.Duration `envconfig:"NOTIFY_TIMEOUT" default:"10s"`
}

func GetConfig() (*Config, error) {
	_ = godotenv.Load()

	var conf Config

	if err := envconfig.Process("", &conf); err != nil {
		return nil, apperr.Wrap("GetConfig", apperr.CodeInvalidArgument, fmt.Errorf("read config from env vars: %w", err), map[string]any{
			apperr.MetaStage: apperr.StageConfig,
		})
	}

	if err := conf.Validate(); err != nil {
		return nil, err
	}

	return &conf, nil
}

// Validate checks the settings the retry loop cannot recover from.
func (c *Config) Validate() error {
	const op = "Validate"

	if c.ScenarioConfig == nil || c.RetryConfig == nil || c.BrowserConfig == nil {
		return apperr.InvalidReqError(op, "config", errors.New("incomplete configuration"))
	}

	sc := c.ScenarioConfig

	required := map[string]string{
		"SCENARIO_USERNAME":    sc.Username,
		"SCENARIO_PASSWORD":    sc.Password,
		"SCENARIO_FACILITY_ID": sc.FacilityID,
		"SCENARIO_SCHEDULE_ID": sc.ScheduleID,
		"SCENARIO_REGION":      sc.Region,
	}
	for field, value := range required {
		if strings.TrimSpace(value) == "" {
			return apperr.InvalidReqError(op, field, fmt.Errorf("%s is required", field))
		}
	}

	if _, err := time.Parse(entity.DateLayout, sc.TargetDate); err != nil {
		return apperr.InvalidReqError(op, "SCENARIO_TARGET_DATE", fmt.Errorf("expected YYYY-MM-DD: %w", err))
	}

	if c.RetryConfig.Delay <= 0 {
		return apperr.InvalidReqError(op, "RETRY_DELAY", errors.New("must be positive"))
	}

	if c.BrowserConfig.Timeout <= 0 || c.BrowserConfig.NavigationTimeout <= 0 || sc.CalendarTimeout <= 0 {
		return apperr.InvalidReqError(op, "timeouts", errors.New("timeouts must be positive"))
	}

	if sc.SettleDelay < 0 || sc.HoldOpen < 0 {
		return apperr.InvalidReqError(op, "delays", errors.New("delays must not be negative"))
	}

	return nil
}

// ScenarioContext builds the read-only bundle shared by every attempt.
func (c *Config) ScenarioContext() entity.ScenarioContext {
	sc := c.ScenarioConfig
	threshold, _ := time.Parse(entity.DateLayout, sc.TargetDate)

	return entity.ScenarioContext{
		Credentials: entity.Credentials{
			Username: sc.Username,
			Password: sc.Password,
		},
		FacilityID:      sc.FacilityID,
		ScheduleID:      sc.ScheduleID,
		Region:          sc.Region,
		TargetDate:      threshold,
		GroupMode:       sc.Group,
		DefaultTimeout:  time.Duration(c.BrowserConfig.Timeout) * time.Millisecond,
		CalendarTimeout: time.Duration(sc.CalendarTimeout) * time.Millisecond,
		SettleDelay:     sc.SettleDelay,
		HoldOpen:        sc.HoldOpen,
		DaysProbe:       sc.DaysProbe,
		ConfirmBooking:  sc.ConfirmBooking,
	}
}

func (c *Config) SessionOptions() entity.SessionOptions {
	bc := c.BrowserConfig

	return entity.SessionOptions{
		ViewportWidth:     bc.ViewportWidth,
		ViewportHeight:    bc.ViewportHeight,
		DefaultTimeout:    time.Duration(bc.Timeout) * time.Millisecond,
		NavigationTimeout: time.Duration(bc.NavigationTimeout) * time.Millisecond,
	}
}
