// Package site holds the declarative description of the booking site: where to navigate
// and how to find each control. The engine never hardcodes selectors.
package site

import (
	"strings"

	"appointment-agent/internal/entity"
)

// URL template placeholders.
const (
	PlaceholderRegion   = "{region}"
	PlaceholderSchedule = "{schedule}"
	PlaceholderFacility = "{facility}"
)

type Elements struct {
	Email         entity.ElementRef
	Password      entity.ElementRef
	Consent       entity.ElementRef
	Submit        entity.ElementRef
	GroupContinue entity.ElementRef
	Facility      entity.ElementRef
	DateInput     entity.ElementRef
	EarliestDay   entity.ElementRef
	NextMonth     entity.ElementRef
	TimeSelect    entity.ElementRef
	Reschedule    entity.ElementRef
	Confirm       entity.ElementRef
}

type Profile struct {
	SignInURL      string
	AppointmentURL string
	DaysURL        string
	DateLayout     string
	Elements       Elements
}

type URLs struct {
	SignIn      string
	Appointment string
	Days        string
}

// Expand fills the URL templates for one scenario.
func (p Profile) Expand(sc entity.ScenarioContext) URLs {
	r := strings.NewReplacer(
		PlaceholderRegion, sc.Region,
		PlaceholderSchedule, sc.ScheduleID,
		PlaceholderFacility, sc.FacilityID,
	)

	return URLs{
		SignIn:      r.Replace(p.SignInURL),
		Appointment: r.Replace(p.AppointmentURL),
		Days:        r.Replace(p.DaysURL),
	}
}

// USVisa describes the nonimmigrant visa scheduling site.
func USVisa() Profile {
	return Profile{
		SignInURL:      "https://ais.usvisa-info.com/en-{region}/niv/users/sign_in",
		AppointmentURL: "https://ais.usvisa-info.com/en-{region}/niv/schedule/{schedule}/appointment",
		DaysURL:        "https://ais.usvisa-info.com/en-{region}/niv/schedule/{schedule}/appointment/days/{facility}.json?appointments[expedite]=false",
		DateLayout:     entity.DateLayout,
		Elements: Elements{
			Email: entity.Ref("email",
				entity.Chain(`internal:label="Email *"i`),
				entity.Chain("#user_email")),
			Password: entity.Ref("password",
				entity.Chain(`internal:label="Password"i`),
				entity.Chain("#user_password")),
			Consent: entity.Ref("consent",
				entity.Chain("#sign_in_form > div.radio-checkbox-group.margin-top-30 > label > div")),
			Submit: entity.Ref("submit",
				entity.Chain(`internal:role=button[name="Sign In"i]`),
				entity.Chain("#new_user > p:nth-child(9) > input"),
				entity.Chain(`#sign_in_form input[type="submit"]`)),
			GroupContinue: entity.Ref("group_continue",
				entity.Chain(`internal:role=button[name="Continue"i]`),
				entity.Chain("#main > div.mainContent > form > div:nth-child(3) > div > input")),
			Facility: entity.Ref("facility",
				entity.Chain(`internal:label="Consular Section Appointment"i`),
				entity.Chain("#appointments_consulate_appointment_facility_id")),
			DateInput: entity.Ref("date",
				entity.Chain(`internal:label="Date of Appointment *"i`),
				entity.Chain("#appointments_consulate_appointment_date")),
			EarliestDay: entity.Ref("earliest_day",
				entity.Chain("#ui-datepicker-div > div.ui-datepicker-group.ui-datepicker-group > table > tbody > tr > td.undefined > a"),
				entity.Chain(`#ui-datepicker-div td[data-handler="selectDay"] > a`)),
			NextMonth: entity.Ref("next_month",
				entity.Chain("#ui-datepicker-div > div.ui-datepicker-group.ui-datepicker-group-last > div > a > span"),
				entity.Chain(`#ui-datepicker-div a.ui-datepicker-next`)),
			TimeSelect: entity.Ref("time",
				entity.Chain(`internal:label="Time of Appointment *"i`),
				entity.Chain("#appointments_consulate_appointment_time")),
			Reschedule: entity.Ref("reschedule",
				entity.Chain(`internal:role=button[name="Reschedule"i]`),
				entity.Chain("#appointments_submit")),
			Confirm: entity.Ref("confirm",
				entity.Chain("body > div.reveal-overlay > div > div > a.button.alert")),
		},
	}
}
