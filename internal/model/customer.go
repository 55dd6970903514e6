package model

import (
	"net/mail"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// CustomerStatus represents the lifecycle state of a customer audit.
type CustomerStatus string

const (
	CustomerStatusQueued     CustomerStatus = "queued"
	CustomerStatusProcessing CustomerStatus = "processing"
	CustomerStatusCompleted  CustomerStatus = "completed"
	CustomerStatusFailed     CustomerStatus = "failed"
	CustomerStatusError      CustomerStatus = "error"
)

// Customer is an audited website owner.
type Customer struct {
	ID             string         `json:"id"`
	Slug           string         `json:"slug"`
	CompanyName    string         `json:"company_name"`
	ContactName    string         `json:"contact_name,omitempty"`
	Email          string         `json:"email"`
	Phone          string         `json:"phone,omitempty"`
	Website        string         `json:"website"`
	Industry       string         `json:"industry,omitempty"`
	Location       string         `json:"location,omitempty"`
	Competitors    []string       `json:"competitors,omitempty"`
	TargetKeywords []string       `json:"target_keywords,omitempty"`
	Status         CustomerStatus `json:"status"`
	Progress       int            `json:"progress"`
	StatusMessage  string         `json:"status_message,omitempty"`
	ResultID       string         `json:"result_id,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	AuditStartedAt *time.Time     `json:"audit_started_at,omitempty"`
	AuditEndedAt   *time.Time     `json:"audit_ended_at,omitempty"`
}

// Domain returns the bare hostname of the customer's website.
func (c Customer) Domain() string {
	return DomainOf(c.Website)
}

// DomainOf extracts a bare hostname from a URL or host string.
func DomainOf(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil || u.Hostname() == "" {
		return strings.TrimSuffix(strings.TrimSpace(raw), "/")
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

var slugDashes = regexp.MustCompile(`-{2,}`)

// Slugify derives a URL-safe slug from a company name. Unicode letters are
// folded to ASCII where possible, everything else collapses to dashes.
func Slugify(name string) string {
	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
	)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	for _, r := range strings.ToLower(folded) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	return strings.Trim(slugDashes.ReplaceAllString(b.String(), "-"), "-")
}

// IntakeRequest is the inbound request that creates a customer.
type IntakeRequest struct {
	CompanyName    string   `json:"company_name"`
	ContactName    string   `json:"contact_name,omitempty"`
	Email          string   `json:"email"`
	Phone          string   `json:"phone,omitempty"`
	Website        string   `json:"website"`
	Industry       string   `json:"industry,omitempty"`
	Location       string   `json:"location,omitempty"`
	Competitors    []string `json:"competitors,omitempty"`
	TargetKeywords []string `json:"target_keywords,omitempty"`
}

// ValidationError reports a malformed or missing intake field. It is the only
// error surfaced synchronously to intake callers.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Field + ": " + e.Reason
}

// Validate checks required fields and URL/email shape. Competitor URLs are
// validated too so a bad competitor never reaches the job processor.
func (r IntakeRequest) Validate() error {
	if strings.TrimSpace(r.CompanyName) == "" {
		return &ValidationError{Field: "company_name", Reason: "required"}
	}
	if strings.TrimSpace(r.Email) == "" {
		return &ValidationError{Field: "email", Reason: "required"}
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(r.Email)); err != nil {
		return &ValidationError{Field: "email", Reason: "malformed address"}
	}
	if strings.TrimSpace(r.Website) == "" {
		return &ValidationError{Field: "website", Reason: "required"}
	}
	if !validURL(r.Website) {
		return &ValidationError{Field: "website", Reason: "not a parseable URL"}
	}
	for _, comp := range r.Competitors {
		if !validURL(comp) {
			return &ValidationError{Field: "competitors", Reason: "not a parseable URL: " + comp}
		}
	}
	return nil
}

func validURL(raw string) bool {
	s := strings.TrimSpace(raw)
	if s == "" {
		return false
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && strings.Contains(u.Hostname(), ".")
}

// Customer builds a new Customer from a validated intake request.
func (r IntakeRequest) Customer() Customer {
	now := time.Now().UTC()
	return Customer{
		Slug:           Slugify(r.CompanyName),
		CompanyName:    strings.TrimSpace(r.CompanyName),
		ContactName:    strings.TrimSpace(r.ContactName),
		Email:          strings.TrimSpace(r.Email),
		Phone:          strings.TrimSpace(r.Phone),
		Website:        strings.TrimSpace(r.Website),
		Industry:       strings.TrimSpace(r.Industry),
		Location:       strings.TrimSpace(r.Location),
		Competitors:    r.Competitors,
		TargetKeywords: r.TargetKeywords,
		Status:         CustomerStatusQueued,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}
