package entity

import (
	"time"

	"github.com/google/uuid"
)

// DateLayout is the calendar date format used by the target threshold and the date field.
const DateLayout = "2006-01-02"

type Credentials struct {
	Username string
	Password string
}

// ScenarioContext is built once at startup and shared read-only by every attempt.
type ScenarioContext struct {
	Credentials     Credentials
	FacilityID      string
	ScheduleID      string
	Region          string
	TargetDate      time.Time
	GroupMode       bool
	DefaultTimeout  time.Duration
	CalendarTimeout time.Duration
	SettleDelay     time.Duration
	HoldOpen        time.Duration
	DaysProbe       bool
	ConfirmBooking  bool
}

type SessionOptions struct {
	ViewportWidth     int
	ViewportHeight    int
	DefaultTimeout    time.Duration
	NavigationTimeout time.Duration
}

type AttemptOutcome string

const (
	OutcomeClaimed        AttemptOutcome = "claimed"
	OutcomeNoEarlierSlot  AttemptOutcome = "no_earlier_slot"
	OutcomeTransientError AttemptOutcome = "transient_error"
)

// AttemptResult carries the single outcome of one attempt. Date and Time are set only
// when the attempt got far enough to read them.
type AttemptResult struct {
	ID        uuid.UUID
	Outcome   AttemptOutcome
	Date      time.Time
	Time      string
	Confirmed bool
	Err       error
	StartedAt time.Time
	EndedAt   time.Time
}

type RetryState struct {
	AttemptCount int
	LastError    error
	LastOutcome  AttemptOutcome
}

type WaitOptions struct {
	Timeout         time.Duration
	VisibleRequired bool
}

// ElementRef names an element by ordered candidate chains. Within a chain, every fragment
// but the last is followed by a descent into the matched element's shadow root, if it has one.
type ElementRef struct {
	Name   string
	Chains [][]string
}

func Ref(name string, chains ...[]string) ElementRef {
	return ElementRef{Name: name, Chains: chains}
}

// Chain is shorthand for a single selector chain.
func Chain(fragments ...string) []string {
	return fragments
}

// AvailableDay is one entry of the schedule's available-days listing.
type AvailableDay struct {
	Date        string `json:"date"`
	BusinessDay bool   `json:"business_day"`
}
