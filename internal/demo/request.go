package demo

import (
	"strings"
)

// Slot is one proposed meeting time as entered by the requester.
// Date is YYYY-MM-DD and Time is a 24-hour HH:MM wall-clock value.
type Slot struct {
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
	Time string `json:"time" validate:"required,datetime=15:04"`
}

// IsZero reports whether neither the date nor the time was provided.
func (s Slot) IsZero() bool {
	return strings.TrimSpace(s.Date) == "" && strings.TrimSpace(s.Time) == ""
}

// MeetingTool is the requester's preferred meeting channel.
type MeetingTool string

const (
	MeetingToolGoogleMeet     MeetingTool = "google_meet"
	MeetingToolMicrosoftTeams MeetingTool = "microsoft_teams"
	MeetingToolZoom           MeetingTool = "zoom"
	MeetingToolPhone          MeetingTool = "phone"
)

// Label returns the human-readable tool name in the given language.
func (m MeetingTool) Label(lang Language) string {
	switch m {
	case MeetingToolGoogleMeet:
		return "Google Meet"
	case MeetingToolMicrosoftTeams:
		return "Microsoft Teams"
	case MeetingToolZoom:
		return "Zoom"
	case MeetingToolPhone:
		if lang == LanguageEnglish {
			return "Phone call"
		}
		return "Appel téléphonique"
	default:
		return string(m)
	}
}

// Language selects the copy used for confirmations.
type Language string

const (
	LanguageFrench  Language = "fr"
	LanguageEnglish Language = "en"
)

// DeploymentMode is where the requester intends to run the product.
type DeploymentMode string

const (
	DeploymentCloud  DeploymentMode = "cloud"
	DeploymentOnPrem DeploymentMode = "on-prem"
)

// Standard values that open the free-text clarification field.
const (
	StandardOther       = "other"
	StandardOtherFrench = "autre"
)

// Request is a demo request after decoding and normalization.
type Request struct {
	// Identity
	FullName     string `json:"fullName" validate:"required,min=2,max=100"`
	Organization string `json:"organization" validate:"required,min=2,max=150"`
	Email        string `json:"email" validate:"required,email,max=254"`
	Phone        string `json:"phone,omitempty" validate:"omitempty,phone"`
	Role         string `json:"role,omitempty" validate:"omitempty,max=100"`

	// Qualification
	Sector          string         `json:"sector,omitempty" validate:"omitempty,oneof=banking insurance microfinance public_sector telecom energy industry healthcare services other"`
	Standards       []string       `json:"standards" validate:"required,min=1,dive,oneof=iso27001 iso22301 iso31000 iso27005 nist_csf soc2 pci_dss gdpr dora nis2 cobit coso bceao cobac autre other"`
	StandardsOther  string         `json:"standardsOther,omitempty" validate:"omitempty,max=200"`
	Goals           []string       `json:"goals,omitempty" validate:"omitempty,dive,oneof=centralize_risks compliance_audit continuity_planning incident_management reporting vendor_risk automation"`
	TeamSize        string         `json:"teamSize,omitempty" validate:"omitempty,oneof=1-10 11-50 51-200 201-1000 1000+"`
	Context         string         `json:"context,omitempty" validate:"omitempty,max=400"`
	DeploymentMode  DeploymentMode `json:"deploymentMode,omitempty" validate:"omitempty,oneof=cloud on-prem"`
	ImportSources   []string       `json:"importSources,omitempty" validate:"omitempty,dive,oneof=excel csv grc_tool erp none"`
	PriorityModules []string       `json:"priorityModules,omitempty" validate:"omitempty,dive,oneof=risk_register compliance audit incidents continuity dashboards vendors"`

	// Scheduling
	TimeZone    string      `json:"_timezone" validate:"required,timezone"`
	Slot1       Slot        `json:"slot1"`
	Slot2       *Slot       `json:"slot2,omitempty" validate:"omitempty"`
	Slot3       *Slot       `json:"slot3,omitempty" validate:"omitempty"`
	MeetingTool MeetingTool `json:"meetingTool" validate:"required,oneof=google_meet microsoft_teams zoom phone"`
	Language    Language    `json:"language,omitempty" validate:"omitempty,oneof=fr en"`

	// Consent
	GDPRConsent    bool `json:"gdprConsent" validate:"consent"`
	MarketingOptIn bool `json:"marketingOptIn"`

	// Honeypot is checked before validation and never persisted with content.
	Honeypot string `json:"honeypot" validate:"-"`
}

// WantsOtherStandard reports whether the escape-hatch standard was selected.
func (r *Request) WantsOtherStandard() bool {
	for _, s := range r.Standards {
		if s == StandardOther || s == StandardOtherFrench {
			return true
		}
	}
	return false
}

// Lang returns the request language, defaulting to French.
func (r *Request) Lang() Language {
	if r.Language == "" {
		return LanguageFrench
	}
	return r.Language
}

// PrimarySlot is the slot that drives invites and calendar links.
func (r *Request) PrimarySlot() Slot {
	return r.Slot1
}

func (r *Request) normalize() {
	r.FullName = strings.TrimSpace(r.FullName)
	r.Organization = strings.TrimSpace(r.Organization)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Phone = strings.TrimSpace(r.Phone)
	r.Role = strings.TrimSpace(r.Role)
	r.Sector = strings.TrimSpace(r.Sector)
	r.StandardsOther = strings.TrimSpace(r.StandardsOther)
	r.TeamSize = strings.TrimSpace(r.TeamSize)
	r.Context = strings.TrimSpace(r.Context)
	r.TimeZone = strings.TrimSpace(r.TimeZone)
	r.Standards = dedupe(r.Standards)
	r.Goals = dedupe(r.Goals)
	r.ImportSources = dedupe(r.ImportSources)
	r.PriorityModules = dedupe(r.PriorityModules)
	r.Slot1 = trimSlot(r.Slot1)
	if r.Slot2 != nil {
		if s := trimSlot(*r.Slot2); s.IsZero() {
			r.Slot2 = nil
		} else {
			r.Slot2 = &s
		}
	}
	if r.Slot3 != nil {
		if s := trimSlot(*r.Slot3); s.IsZero() {
			r.Slot3 = nil
		} else {
			r.Slot3 = &s
		}
	}
	if r.Language == "" {
		r.Language = LanguageFrench
	}
	r.Honeypot = ""
}

func trimSlot(s Slot) Slot {
	return Slot{Date: strings.TrimSpace(s.Date), Time: strings.TrimSpace(s.Time)}
}

// dedupe trims values and drops blanks and repeats, keeping first-seen order.
func dedupe(values []string) []string {
	if values == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
