package calendar

import (
	"encoding/base64"
	"fmt"
	"net/mail"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"
)

const (
	icsFloatingLayout = "20060102T150405"
	uidDomain         = "riskdesk.io"
)

const (
	propDtStart   = ics.ComponentProperty("DTSTART")
	propDuration  = ics.ComponentProperty("DURATION")
	propOrganizer = ics.ComponentProperty("ORGANIZER")
	propAttendee  = ics.ComponentProperty("ATTENDEE")
)

// uidNamespace scopes deterministic invite UIDs.
var uidNamespace = uuid.NewSHA1(uuid.NameSpaceDNS, []byte(uidDomain))

// Person identifies an organizer or attendee.
type Person struct {
	Name  string
	Email string
}

// Invite is a single-event calendar request.
type Invite struct {
	Event
	ProductID string
	Organizer Person
	Attendee  Person
	// Stamp feeds DTSTAMP. When zero the event start is used so identical
	// input always serializes identically.
	Stamp time.Time
}

// Generate serializes the invite as an RFC 5545 VCALENDAR with one VEVENT.
func Generate(inv Invite) (string, error) {
	if err := inv.validate(); err != nil {
		return "", err
	}
	start, _, err := inv.Window()
	if err != nil {
		return "", err
	}
	d, _ := inv.duration()

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodRequest)
	productID := inv.ProductID
	if productID == "" {
		productID = "-//RiskDesk//Demo Request//EN"
	}
	cal.SetProductId(productID)

	event := cal.AddEvent(inv.uid(start, d))
	stamp := inv.Stamp
	if stamp.IsZero() {
		stamp = start
	}
	event.SetDtStampTime(stamp.UTC())
	event.SetProperty(propDtStart, start.Format(icsFloatingLayout))
	event.SetProperty(propDuration, isoDuration(d))
	event.SetSummary(inv.Title)
	if inv.Description != "" {
		event.SetDescription(inv.Description)
	}
	if inv.Location != "" {
		event.SetLocation(inv.Location)
	}
	event.SetStatus(ics.ObjectStatusTentative)
	event.SetProperty(propOrganizer, "mailto:"+inv.Organizer.Email, cn(inv.Organizer.Name)...)
	event.AddProperty(propAttendee, "mailto:"+inv.Attendee.Email, append(cn(inv.Attendee.Name),
		&ics.KeyValues{Key: "CUTYPE", Value: []string{"INDIVIDUAL"}},
		&ics.KeyValues{Key: "ROLE", Value: []string{"REQ-PARTICIPANT"}},
		&ics.KeyValues{Key: "PARTSTAT", Value: []string{"NEEDS-ACTION"}},
		&ics.KeyValues{Key: "RSVP", Value: []string{"TRUE"}},
	)...)

	out := cal.Serialize()
	if !strings.Contains(out, "BEGIN:VEVENT") {
		return "", fmt.Errorf("%w: serializer produced no event", ErrInvalidInvite)
	}
	return out, nil
}

// DataURI encodes serialized calendar text for direct browser download.
func DataURI(text string) string {
	return "data:text/calendar;charset=utf-8;base64," + base64.StdEncoding.EncodeToString([]byte(text))
}

func (inv Invite) validate() error {
	if err := inv.Event.validate(); err != nil {
		return err
	}
	people := []struct {
		role string
		p    Person
	}{{"organizer", inv.Organizer}, {"attendee", inv.Attendee}}
	for _, entry := range people {
		email := entry.p.Email
		if _, err := mail.ParseAddress(email); err != nil || strings.ContainsAny(email, "<> ") {
			return fmt.Errorf("%w: %s email %q", ErrInvalidInvite, entry.role, email)
		}
	}
	return nil
}

// uid derives a stable identifier from the invite content.
func (inv Invite) uid(start time.Time, d time.Duration) string {
	key := strings.Join([]string{
		start.Format(icsFloatingLayout),
		d.String(),
		inv.TimeZone,
		inv.Title,
		strings.ToLower(inv.Organizer.Email),
		strings.ToLower(inv.Attendee.Email),
	}, "\x1f")
	return uuid.NewSHA1(uidNamespace, []byte(key)).String() + "@" + uidDomain
}

// cn builds the display-name parameter. The serializer backslash-escapes
// DQUOTE, ';', ':', ',' and '\' in parameter values, which parameter syntax
// does not allow, so those characters are dropped from the name.
func cn(name string) []ics.PropertyParameter {
	name = strings.Join(strings.Fields(paramUnsafe.Replace(name)), " ")
	if name == "" {
		return nil
	}
	return []ics.PropertyParameter{&ics.KeyValues{Key: "CN", Value: []string{name}}}
}

var paramUnsafe = strings.NewReplacer(`"`, "", ";", " ", ":", " ", ",", " ", `\`, " ")

// isoDuration renders whole minutes as an RFC 5545 duration, e.g. PT1H30M.
func isoDuration(d time.Duration) string {
	minutes := int(d / time.Minute)
	h, m := minutes/60, minutes%60
	var b strings.Builder
	b.WriteString("PT")
	if h > 0 {
		fmt.Fprintf(&b, "%dH", h)
	}
	if m > 0 || h == 0 {
		fmt.Fprintf(&b, "%dM", m)
	}
	return b.String()
}
