package calendar

import (
	"net/url"
	"strings"
)

const (
	googleRenderURL   = "https://calendar.google.com/calendar/render"
	outlookComposeURL = "https://outlook.live.com/calendar/0/deeplink/compose"

	googleDateLayout  = "20060102T150405"
	outlookDateLayout = "2006-01-02T15:04:05"
)

// Links holds provider deep links that prefill an "add event" screen.
type Links struct {
	Google  string `json:"googleCalendar"`
	Outlook string `json:"outlook"`
}

// BuildLinks derives the Google and Outlook links for the event. Both links
// describe the same window: start plus the event duration.
func BuildLinks(e Event) (Links, error) {
	if err := e.validate(); err != nil {
		return Links{}, err
	}
	start, end, err := e.Window()
	if err != nil {
		return Links{}, err
	}

	google := query{}
	google.add("action", "TEMPLATE")
	google.add("text", e.Title)
	google.raw("dates", start.Format(googleDateLayout)+"/"+end.Format(googleDateLayout))
	google.add("details", e.Description)
	google.add("location", e.Location)
	google.add("ctz", e.TimeZone)

	outlook := query{}
	outlook.raw("path", "/calendar/action/compose")
	outlook.add("rru", "addevent")
	outlook.add("subject", e.Title)
	outlook.raw("startdt", start.Format(outlookDateLayout))
	outlook.raw("enddt", end.Format(outlookDateLayout))
	outlook.add("body", e.Description)
	outlook.add("location", e.Location)

	return Links{
		Google:  googleRenderURL + "?" + google.String(),
		Outlook: outlookComposeURL + "?" + outlook.String(),
	}, nil
}

// query keeps parameters in insertion order, unlike url.Values.
type query []string

// add appends a percent-encoded parameter, skipping empty values.
func (q *query) add(key, value string) {
	if value == "" {
		return
	}
	*q = append(*q, key+"="+escape(value))
}

// raw appends a value made only of characters that are legal in a query.
func (q *query) raw(key, value string) {
	*q = append(*q, key+"="+value)
}

func (q query) String() string {
	return strings.Join(q, "&")
}

// escape percent-encodes text, using %20 rather than + for spaces.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
