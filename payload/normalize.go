// Package payload maps the three recognized submission variants onto
// flat spreadsheet rows with fixed, canonical column sets.
package payload

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/webforms/sheetsink/httpx"
	"github.com/webforms/sheetsink/model"
)

// Canonical destination tabs, one per variant.
const (
	TabBulkAssessments = "Bulk Assessments"
	TabLiveEvents      = "Live Events"
	TabUserSignups     = "User Signups"
)

// Canonical column orders. These are also the header rows written when a
// tab is created fresh, so order changes here change the sheet layout.
var (
	BulkAssessmentHeaders = []string{
		"Name", "Email", "Phone Number", "Number of Assessments",
		"Submission Date",
	}

	LiveEventHeaders = []string{
		"Name", "Email", "Phone Number", "Estimated Attendees",
		"Organization", "Job Title",
		"Event Date", "Event Time", "Event Format",
		"Event Types", "Audience Types", "Topics",
		"Venue", "City", "State", "Country",
		"Referral Source", "Referral Details",
		"Special Event", "Special Event Description",
		"Budget Range", "Preferred Contact Method",
		"Interested in Bulk Assessments", "Additional Notes",
		"Submission Date",
	}

	UserSignupHeaders = []string{
		"Email", "First Name", "Last Name", "Created Date",
		"Signup Date",
	}
)

// HeadersFor returns the canonical header list for a destination tab,
// or nil for tabs this service did not define (legacy mode).
func HeadersFor(tab string) []string {
	switch tab {
	case TabBulkAssessments:
		return BulkAssessmentHeaders
	case TabLiveEvents:
		return LiveEventHeaders
	case TabUserSignups:
		return UserSignupHeaders
	}
	return nil
}

// Normalize dispatches on data.dataType and builds the row for the
// matching variant. All failures are validation errors (HTTP 400).
func Normalize(data json.RawMessage, now time.Time) (*model.Row, error) {
	var probe struct {
		DataType string `json:"dataType"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, httpx.Validation("invalid data payload", nil)
	}

	switch probe.DataType {
	case model.TypeBulkAssessment:
		return normalizeBulkAssessment(data, now)
	case model.TypeLiveEvent:
		return normalizeLiveEvent(data, now)
	case model.TypeUserSignup:
		return normalizeUserSignup(data, now)
	default:
		return nil, httpx.Validation("Unknown data type", probe.DataType)
	}
}

func normalizeBulkAssessment(data json.RawMessage, now time.Time) (*model.Row, error) {
	var p model.BulkAssessment
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, httpx.Validation("invalid data payload", nil)
	}

	missing := missingFields(
		field{"name", p.Name},
		field{"email", p.Email},
		field{"phoneNumber", p.PhoneNumber},
		field{"numberOfAssessments", p.NumberOfAssessments},
	)
	if len(missing) > 0 {
		return nil, missingFieldsError(missing)
	}

	return &model.Row{
		Tab:     TabBulkAssessments,
		Headers: BulkAssessmentHeaders,
		Cells: map[string]any{
			"Name":                  p.Name,
			"Email":                 p.Email,
			"Phone Number":          p.PhoneNumber,
			"Number of Assessments": scalar(p.NumberOfAssessments),
			"Submission Date":       stamp(now),
		},
	}, nil
}

func normalizeLiveEvent(data json.RawMessage, now time.Time) (*model.Row, error) {
	var p model.LiveEvent
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, httpx.Validation("invalid data payload", nil)
	}

	missing := missingFields(
		field{"name", p.Name},
		field{"email", p.Email},
		field{"phoneNumber", p.PhoneNumber},
		field{"estimatedAttendees", p.EstimatedAttendees},
	)
	if len(missing) > 0 {
		return nil, missingFieldsError(missing)
	}

	cells := map[string]any{
		"Name":                p.Name,
		"Email":               p.Email,
		"Phone Number":        p.PhoneNumber,
		"Estimated Attendees": scalar(p.EstimatedAttendees),

		"Organization": p.Organization,
		"Job Title":    p.JobTitle,

		"Event Date":   renderEventDate(p.EventDate),
		"Event Time":   p.EventTime,
		"Event Format": p.EventFormat,

		"Event Types":    strings.Join(p.EventTypes, ", "),
		"Audience Types": strings.Join(p.AudienceTypes, ", "),
		"Topics":         strings.Join(p.Topics, ", "),

		"Budget Range":             p.BudgetRange,
		"Preferred Contact Method": p.PreferredContactMethod,

		"Interested in Bulk Assessments": yesNo(p.InterestedInBulkAssessments),
		"Additional Notes":               p.AdditionalNotes,

		"Submission Date": stamp(now),
	}

	// Nested objects flatten to scalar columns; absent objects leave
	// their columns blank.
	var loc model.Location
	if p.Location != nil {
		loc = *p.Location
	}
	cells["Venue"] = loc.Venue
	cells["City"] = loc.City
	cells["State"] = loc.State
	cells["Country"] = loc.Country

	var ref model.Referral
	if p.Referral != nil {
		ref = *p.Referral
	}
	cells["Referral Source"] = ref.Source
	cells["Referral Details"] = ref.Details

	var spev model.SpecialEvent
	if p.SpecialEvent != nil {
		spev = *p.SpecialEvent
	}
	cells["Special Event"] = spev.Kind
	cells["Special Event Description"] = spev.Description

	return &model.Row{
		Tab:     TabLiveEvents,
		Headers: LiveEventHeaders,
		Cells:   cells,
	}, nil
}

func normalizeUserSignup(data json.RawMessage, now time.Time) (*model.Row, error) {
	var p model.UserSignup
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, httpx.Validation("invalid data payload", nil)
	}

	missing := missingFields(field{"email", p.Email})
	if len(missing) > 0 {
		return nil, missingFieldsError(missing)
	}

	return &model.Row{
		Tab:     TabUserSignups,
		Headers: UserSignupHeaders,
		Cells: map[string]any{
			"Email":        p.Email,
			"First Name":   p.FirstName,
			"Last Name":    p.LastName,
			"Created Date": p.CreatedDate,
			"Signup Date":  stamp(now),
		},
	}, nil
}

type field struct {
	name  string
	value any
}

func missingFields(fields ...field) (missing []string) {
	for _, f := range fields {
		switch v := f.value.(type) {
		case nil:
			missing = append(missing, f.name)
		case string:
			if v == "" {
				missing = append(missing, f.name)
			}
		}
	}
	return
}

func missingFieldsError(missing []string) error {
	msg := fmt.Sprintf("Missing required fields: %s", strings.Join(missing, ", "))
	return httpx.Validation(msg, missing)
}

// renderEventDate accepts the two shapes front-ends send: a plain string
// (passed through) or a {startDate,endDate} pair.
func renderEventDate(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var r model.DateRange
	if err := json.Unmarshal(raw, &r); err == nil && (r.StartDate != "" || r.EndDate != "") {
		return r.StartDate + " - " + r.EndDate
	}
	return ""
}

func yesNo(b *bool) string {
	if b == nil {
		return ""
	}
	if *b {
		return "Yes"
	}
	return "No"
}

// scalar keeps numbers as numbers but never emits a nil cell.
func scalar(v any) any {
	if v == nil {
		return ""
	}
	return v
}

func stamp(now time.Time) string {
	return now.UTC().Format(time.RFC3339)
}
