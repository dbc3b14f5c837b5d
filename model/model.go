package model

import "encoding/json"

// Data type discriminants recognized by the intake endpoint.
const (
	TypeBulkAssessment = "bulk-assessment"
	TypeLiveEvent      = "live-event"
	TypeUserSignup     = "user-signup"
)

// Envelope is the request body. Current-format submissions carry Data;
// legacy submissions carry TabName+Values and bypass normalization.
type Envelope struct {
	SheetID string          `json:"sheetId,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`

	TabName string          `json:"tabName,omitempty"`
	Values  json.RawMessage `json:"values,omitempty"`
	Append  *bool           `json:"append,omitempty"`
}

// IsLegacy reports whether the body uses the pre-normalizer shape.
func (e Envelope) IsLegacy() bool {
	return len(e.Data) == 0 && e.TabName != "" && len(e.Values) > 0
}

type BulkAssessment struct {
	Name                string `json:"name"`
	Email               string `json:"email"`
	PhoneNumber         string `json:"phoneNumber"`
	NumberOfAssessments any    `json:"numberOfAssessments"`
}

type LiveEvent struct {
	Name               string `json:"name"`
	Email              string `json:"email"`
	PhoneNumber        string `json:"phoneNumber"`
	EstimatedAttendees any    `json:"estimatedAttendees"`

	Organization string `json:"organization"`
	JobTitle     string `json:"jobTitle"`

	// Either a plain string or a {startDate,endDate} object.
	EventDate   json.RawMessage `json:"eventDate"`
	EventTime   string          `json:"eventTime"`
	EventFormat string          `json:"eventFormat"`

	EventTypes    []string `json:"eventTypes"`
	AudienceTypes []string `json:"audienceTypes"`
	Topics        []string `json:"topics"`

	Location     *Location     `json:"location"`
	Referral     *Referral     `json:"referral"`
	SpecialEvent *SpecialEvent `json:"specialEvent"`

	BudgetRange                 string `json:"budgetRange"`
	PreferredContactMethod      string `json:"preferredContactMethod"`
	InterestedInBulkAssessments *bool  `json:"interestedInBulkAssessments"`
	AdditionalNotes             string `json:"additionalNotes"`
}

type DateRange struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

type Location struct {
	Venue   string `json:"venue"`
	City    string `json:"city"`
	State   string `json:"state"`
	Country string `json:"country"`
}

type Referral struct {
	Source  string `json:"source"`
	Details string `json:"details"`
}

type SpecialEvent struct {
	Kind        string `json:"kind"`
	Description string `json:"description"`
}

type UserSignup struct {
	Email       string `json:"email"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	CreatedDate string `json:"createdDate"`
}

// Row is a normalized submission: a destination tab, the canonical
// column order for that tab, and one cell value per column.
type Row struct {
	Tab     string
	Headers []string
	Cells   map[string]any
}

// Values returns the cells aligned to the canonical header order.
func (r Row) Values() []any {
	out := make([]any, len(r.Headers))
	for i, h := range r.Headers {
		out[i] = r.Cells[h]
	}
	return out
}

// Credentials is the service-account pair the sheet sink authenticates
// with. Both fields must be non-empty before any sink call.
type Credentials struct {
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
}

func (c Credentials) Complete() bool {
	return c.ClientEmail != "" && c.PrivateKey != ""
}
