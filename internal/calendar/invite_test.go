package calendar

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleInvite() Invite {
	return Invite{
		Event: Event{
			Title:       "Démo RiskDesk – Banque X",
			Description: "Présentation de RiskDesk pour Banque X",
			Location:    "Zoom",
			Date:        "2025-06-10",
			Clock:       "14:00",
			TimeZone:    "Africa/Abidjan",
		},
		Organizer: Person{Name: "RiskDesk", Email: "demo@riskdesk.io"},
		Attendee:  Person{Name: "Marie Kouassi", Email: "marie@x.com"},
	}
}

func TestGenerate_Fields(t *testing.T) {
	out, err := Generate(sampleInvite())
	require.NoError(t, err)

	assert.Contains(t, out, "BEGIN:VCALENDAR")
	assert.Contains(t, out, "METHOD:REQUEST")
	assert.Contains(t, out, "DTSTART:20250610T140000\r\n")
	assert.Contains(t, out, "DURATION:PT45M")
	assert.Contains(t, out, "STATUS:TENTATIVE")
	assert.Contains(t, out, "LOCATION:Zoom")
	assert.Equal(t, 1, strings.Count(out, "BEGIN:VEVENT"))
	assert.Equal(t, 1, strings.Count(out, "ATTENDEE"))

	cal, err := ics.ParseCalendar(strings.NewReader(out))
	require.NoError(t, err)
	events := cal.Events()
	require.Len(t, events, 1)

	organizer := events[0].GetProperty(propOrganizer)
	require.NotNil(t, organizer)
	assert.Equal(t, "mailto:demo@riskdesk.io", organizer.Value)

	attendee := events[0].GetProperty(propAttendee)
	require.NotNil(t, attendee)
	assert.Equal(t, "mailto:marie@x.com", attendee.Value)
	assert.Equal(t, []string{"TRUE"}, attendee.ICalParameters["RSVP"])
	assert.Equal(t, []string{"Marie Kouassi"}, attendee.ICalParameters["CN"])
}

func TestGenerate_DisplayNamesStayUnescaped(t *testing.T) {
	inv := sampleInvite()
	inv.Attendee.Name = `Marie "Mimi"; Kouassi:`
	inv.Organizer.Name = `RiskDesk, Sales\Team`

	out, err := Generate(inv)
	require.NoError(t, err)

	unfolded := strings.ReplaceAll(out, "\r\n ", "")
	for _, line := range strings.Split(unfolded, "\r\n") {
		if strings.HasPrefix(line, string(propOrganizer)) || strings.HasPrefix(line, string(propAttendee)) {
			assert.NotContains(t, line, `\`, line)
		}
	}
	assert.Contains(t, unfolded, "CN=Marie Mimi Kouassi;")
	assert.Contains(t, unfolded, "CN=RiskDesk Sales Team:")
	assert.Empty(t, cn(`" ; "`))
}

func TestGenerate_Deterministic(t *testing.T) {
	first, err := Generate(sampleInvite())
	require.NoError(t, err)
	second, err := Generate(sampleInvite())
	require.NoError(t, err)
	assert.Equal(t, first, second)

	other := sampleInvite()
	other.Clock = "15:00"
	third, err := Generate(other)
	require.NoError(t, err)
	assert.NotEqual(t, first, third)
}

func TestGenerate_StampOverride(t *testing.T) {
	inv := sampleInvite()
	inv.Stamp = time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC)
	out, err := Generate(inv)
	require.NoError(t, err)
	assert.Contains(t, out, "DTSTAMP:20250601T083000Z")
}

func TestGenerate_CustomDuration(t *testing.T) {
	inv := sampleInvite()
	inv.Duration = 90 * time.Minute
	out, err := Generate(inv)
	require.NoError(t, err)
	assert.Contains(t, out, "DURATION:PT1H30M")
}

func TestGenerate_InvalidInput(t *testing.T) {
	cases := map[string]func(*Invite){
		"blank title":      func(i *Invite) { i.Title = "  " },
		"bad date":         func(i *Invite) { i.Date = "2025-13-01" },
		"bad clock":        func(i *Invite) { i.Clock = "24:30" },
		"tiny duration":    func(i *Invite) { i.Duration = time.Second },
		"no organizer":     func(i *Invite) { i.Organizer.Email = "" },
		"attendee garbage": func(i *Invite) { i.Attendee.Email = "not-an-email" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			inv := sampleInvite()
			mutate(&inv)
			out, err := Generate(inv)
			assert.Empty(t, out)
			assert.True(t, errors.Is(err, ErrInvalidInvite), "got %v", err)
		})
	}
}

func TestDataURI(t *testing.T) {
	uri := DataURI("BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n")
	require.True(t, strings.HasPrefix(uri, "data:text/calendar;charset=utf-8;base64,"))

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, "data:text/calendar;charset=utf-8;base64,"))
	require.NoError(t, err)
	assert.Equal(t, "BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n", string(decoded))
}

func TestIsoDuration(t *testing.T) {
	assert.Equal(t, "PT45M", isoDuration(45*time.Minute))
	assert.Equal(t, "PT1H", isoDuration(time.Hour))
	assert.Equal(t, "PT2H5M", isoDuration(125*time.Minute))
}
