package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultDuration is the demo meeting length when none is configured.
const DefaultDuration = 45 * time.Minute

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

// ErrInvalidInvite is returned when event data cannot produce a calendar artifact.
var ErrInvalidInvite = errors.New("calendar: invalid invite")

// Event is the meeting window and copy shared by the invite and the deep links.
//
// Date and Clock are read as wall-clock values. TimeZone travels with the
// event as a label only; no conversion is applied to the clock values.
type Event struct {
	Title       string
	Description string
	Location    string
	Date        string
	Clock       string
	TimeZone    string
	Duration    time.Duration
}

// Window returns the naive start and end of the event. The returned times use
// the UTC location as a container for wall-clock values.
func (e Event) Window() (time.Time, time.Time, error) {
	start, err := time.ParseInLocation(dateLayout+" "+clockLayout,
		strings.TrimSpace(e.Date)+" "+strings.TrimSpace(e.Clock), time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: slot %q %q: %v", ErrInvalidInvite, e.Date, e.Clock, err)
	}
	d, err := e.duration()
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, start.Add(d), nil
}

func (e Event) duration() (time.Duration, error) {
	switch {
	case e.Duration == 0:
		return DefaultDuration, nil
	case e.Duration < time.Minute:
		return 0, fmt.Errorf("%w: duration %s", ErrInvalidInvite, e.Duration)
	default:
		return e.Duration.Truncate(time.Minute), nil
	}
}

func (e Event) validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return fmt.Errorf("%w: title required", ErrInvalidInvite)
	}
	_, _, err := e.Window()
	return err
}
