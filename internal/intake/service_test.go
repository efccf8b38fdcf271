package intake

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/riskdesk-demo/internal/calendar"
	"github.com/wolfman30/riskdesk-demo/internal/http/response"
	"github.com/wolfman30/riskdesk-demo/internal/notify"
	"github.com/wolfman30/riskdesk-demo/internal/observability/metrics"
	"github.com/wolfman30/riskdesk-demo/internal/submissions"
	"github.com/wolfman30/riskdesk-demo/pkg/logging"
)

const marieJSON = `{
	"fullName": "Marie Kouassi",
	"organization": "Banque X",
	"email": "marie@x.com",
	"slot1": {"date": "2025-06-10", "time": "14:00"},
	"_timezone": "Africa/Abidjan",
	"meetingTool": "zoom",
	"standards": ["iso27001"],
	"gdprConsent": true,
	"honeypot": ""
}`

type fakeDispatcher struct {
	mu     sync.Mutex
	calls  []notify.Confirmation
	result notify.DeliveryResult
}

func (f *fakeDispatcher) SendConfirmation(_ context.Context, c notify.Confirmation) notify.DeliveryResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	return f.result
}

type failingStore struct {
	appends int
}

func (f *failingStore) Append(context.Context, *submissions.Record) (string, error) {
	f.appends++
	return "", errors.New("disk full")
}

func (f *failingStore) List(context.Context) ([]submissions.Record, error) {
	return nil, nil
}

var fixedNow = time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)

type fixture struct {
	svc        *Service
	store      *submissions.FileStore
	dispatcher *fakeDispatcher
}

func newFixture(t *testing.T, sent bool) fixture {
	t.Helper()
	store := submissions.NewFileStore(filepath.Join(t.TempDir(), "demo-requests.json"), logging.New("error"))
	dispatcher := &fakeDispatcher{result: notify.DeliveryResult{Sent: sent}}
	if !sent {
		dispatcher.result.Error = "smtp unavailable"
	}
	svc := NewService(Config{StoreBackend: "file"}, dispatcher, store, logging.New("error"),
		WithClock(func() time.Time { return fixedNow }),
	)
	return fixture{svc: svc, store: store, dispatcher: dispatcher}
}

func withField(raw, old, replacement string) string {
	return strings.Replace(raw, old, replacement, 1)
}

func storedCount(t *testing.T, store submissions.Store) int {
	t.Helper()
	records, err := store.List(context.Background())
	require.NoError(t, err)
	return len(records)
}

func TestSubmit_ConcreteScenario(t *testing.T) {
	f := newFixture(t, true)

	res := f.svc.Submit(context.Background(), []byte(marieJSON))

	require.Equal(t, StateResponded, res.State)
	assert.Equal(t, http.StatusCreated, res.Status)
	require.True(t, res.Body.Success)
	data, ok := res.Body.Data.(Accepted)
	require.True(t, ok)

	assert.Equal(t, res.RecordID, data.ID)
	assert.Len(t, data.ID, 26)
	assert.Contains(t, data.Message, "24 à 48 heures")
	assert.Equal(t, "Africa/Abidjan", data.Summary.Slot1.Timezone)
	assert.Equal(t, "2025-06-10", data.Summary.Slot1.Date)
	assert.Equal(t, "14:00", data.Summary.Slot1.Time)
	assert.Equal(t, "Zoom", data.Summary.MeetingTool)
	assert.Equal(t, "Marie Kouassi", data.Summary.FullName)

	assert.Contains(t, data.CalendarLinks.Google, "20250610T140000")
	assert.Contains(t, data.CalendarLinks.Google, "20250610T140000/20250610T144500")
	assert.Contains(t, data.CalendarLinks.Outlook, "2025-06-10T14:00")
	assert.True(t, strings.HasPrefix(data.CalendarLinks.ICSDownload, "data:text/calendar;charset=utf-8;base64,"))

	records, err := f.store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, data.ID, records[0].ID)
	assert.True(t, records[0].ICSGenerated)
	assert.True(t, records[0].EmailSent)
	assert.Equal(t, submissions.StatusPending, records[0].Status)
	assert.Equal(t, fixedNow, records[0].CreatedAt)
	assert.Equal(t, StatePersisted, res.Reached)
	assert.Empty(t, records[0].Honeypot)
}

func TestSubmit_ConfirmationCarriesInvite(t *testing.T) {
	f := newFixture(t, true)

	res := f.svc.Submit(context.Background(), []byte(marieJSON))
	require.Equal(t, StateResponded, res.State)

	require.Len(t, f.dispatcher.calls, 1)
	c := f.dispatcher.calls[0]
	assert.Equal(t, "marie@x.com", c.To)
	assert.Equal(t, "Banque X", c.Organization)
	assert.Equal(t, "2025-06-10", c.Date)
	assert.Equal(t, "14:00", c.Clock)
	assert.Equal(t, "Africa/Abidjan", c.TimeZone)
	assert.Equal(t, "Zoom", c.MeetingTool)
	assert.Equal(t, "fr", c.Language)
	assert.Contains(t, c.ICS, "BEGIN:VCALENDAR")
	assert.Contains(t, c.ICS, "DTSTART:20250610T140000")
}

func TestSubmit_Spam(t *testing.T) {
	f := newFixture(t, true)

	res := f.svc.Submit(context.Background(), []byte(withField(marieJSON, `"honeypot": ""`, `"honeypot": "buy-viagra"`)))

	assert.Equal(t, StateRejectedSpam, res.State)
	assert.Equal(t, http.StatusBadRequest, res.Status)
	assert.False(t, res.Body.Success)
	require.NotNil(t, res.Body.Error)
	assert.Equal(t, response.CodeSpam, res.Body.Error.Code)
	assert.Empty(t, res.Body.Error.Fields)
	assert.Empty(t, f.dispatcher.calls)
	assert.Zero(t, storedCount(t, f.store))
}

func TestSubmit_SpamWithInvalidFieldsStillSpam(t *testing.T) {
	f := newFixture(t, true)

	res := f.svc.Submit(context.Background(), []byte(`{"honeypot":"x","email":"nope"}`))

	assert.Equal(t, StateRejectedSpam, res.State)
	assert.Zero(t, storedCount(t, f.store))
}

func TestSubmit_OtherStandardRequiresClarification(t *testing.T) {
	f := newFixture(t, true)

	res := f.svc.Submit(context.Background(), []byte(withField(marieJSON, `["iso27001"]`, `["autre"]`)))

	assert.Equal(t, StateRejectedValidation, res.State)
	assert.Equal(t, http.StatusBadRequest, res.Status)
	require.NotNil(t, res.Body.Error)
	assert.Equal(t, response.CodeValidation, res.Body.Error.Code)
	assert.Contains(t, res.Body.Error.Fields, "standardsOther")
	assert.Empty(t, f.dispatcher.calls)
	assert.Zero(t, storedCount(t, f.store))

	withClarification := withField(marieJSON, `["iso27001"]`, `["autre"], "standardsOther": "Loi 2013-450"`)
	res = f.svc.Submit(context.Background(), []byte(withClarification))
	assert.Equal(t, StateResponded, res.State)
}

func TestSubmit_ValidationNamesFields(t *testing.T) {
	f := newFixture(t, true)

	res := f.svc.Submit(context.Background(), []byte(withField(marieJSON, `"zoom"`, `"skype"`)))

	assert.Equal(t, StateRejectedValidation, res.State)
	require.NotNil(t, res.Body.Error)
	assert.Contains(t, res.Body.Error.Fields, "meetingTool")
}

func TestSubmit_ValidationMessageLocalized(t *testing.T) {
	f := newFixture(t, true)

	raw := withField(marieJSON, `"zoom"`, `"skype", "language": "en"`)
	res := f.svc.Submit(context.Background(), []byte(raw))

	require.NotNil(t, res.Body.Error)
	assert.Equal(t, copyFor("en").invalid, res.Body.Error.Message)
}

func TestSubmit_MalformedBody(t *testing.T) {
	f := newFixture(t, true)

	res := f.svc.Submit(context.Background(), []byte(`not json`))

	assert.Equal(t, StateRejectedValidation, res.State)
	require.NotNil(t, res.Body.Error)
	assert.Contains(t, res.Body.Error.Fields, "body")
}

func TestSubmit_EmailFailureStillPersists(t *testing.T) {
	f := newFixture(t, false)

	res := f.svc.Submit(context.Background(), []byte(marieJSON))

	require.Equal(t, StateResponded, res.State)
	assert.True(t, res.Body.Success)
	require.Len(t, f.dispatcher.calls, 1)

	records, err := f.store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.False(t, records[0].EmailSent)
	assert.True(t, records[0].ICSGenerated)
}

func TestSubmit_EmailOutcomeInvisibleToCaller(t *testing.T) {
	sent := newFixture(t, true).svc.Submit(context.Background(), []byte(marieJSON))
	failed := newFixture(t, false).svc.Submit(context.Background(), []byte(marieJSON))

	a := sent.Body.Data.(Accepted)
	b := failed.Body.Data.(Accepted)
	assert.Equal(t, a.Message, b.Message)
	assert.Equal(t, a.CalendarLinks, b.CalendarLinks)
	assert.Equal(t, a.Summary, b.Summary)
}

func TestSubmit_NilDispatcherRecordsNotSent(t *testing.T) {
	store := submissions.NewFileStore(filepath.Join(t.TempDir(), "demo-requests.json"), logging.New("error"))
	svc := NewService(Config{}, nil, store, logging.New("error"))

	res := svc.Submit(context.Background(), []byte(marieJSON))
	require.Equal(t, StateResponded, res.State)

	records, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.False(t, records[0].EmailSent)
}

func TestSubmit_StubSenderRecordsNotSent(t *testing.T) {
	store := submissions.NewFileStore(filepath.Join(t.TempDir(), "demo-requests.json"), logging.New("error"))
	dispatcher := notify.NewDispatcher(notify.NewStubEmailSender(logging.New("error")), notify.DispatcherConfig{}, logging.New("error"))
	svc := NewService(Config{}, dispatcher, store, logging.New("error"))

	res := svc.Submit(context.Background(), []byte(marieJSON))
	require.Equal(t, StateResponded, res.State)
	assert.True(t, res.Body.Success)

	records, err := store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.False(t, records[0].EmailSent)
}

func TestSubmit_StoreFailureIsServerError(t *testing.T) {
	store := &failingStore{}
	dispatcher := &fakeDispatcher{result: notify.DeliveryResult{Sent: true}}
	svc := NewService(Config{}, dispatcher, store, logging.New("error"))

	res := svc.Submit(context.Background(), []byte(marieJSON))

	assert.Equal(t, StateFailedServer, res.State)
	assert.Equal(t, http.StatusInternalServerError, res.Status)
	require.NotNil(t, res.Body.Error)
	assert.Equal(t, response.CodeServer, res.Body.Error.Code)
	assert.NotContains(t, res.Body.Error.Message, "disk full")
	assert.Nil(t, res.Body.Data)
	assert.Equal(t, 1, store.appends)
	assert.Len(t, dispatcher.calls, 1)
	assert.Equal(t, StateNotificationAttempted, res.Reached)
}

func TestSubmit_InviteFailureStopsBeforeSideEffects(t *testing.T) {
	f := newFixture(t, true)
	svc := NewService(Config{Duration: 30 * time.Second}, f.dispatcher, f.store, logging.New("error"))

	res := svc.Submit(context.Background(), []byte(marieJSON))

	assert.Equal(t, StateFailedServer, res.State)
	assert.Equal(t, StateValidated, res.Reached)
	assert.Equal(t, http.StatusInternalServerError, res.Status)
	assert.Empty(t, f.dispatcher.calls)
	assert.Zero(t, storedCount(t, f.store))
}

func TestSubmit_EnglishCopy(t *testing.T) {
	f := newFixture(t, true)

	raw := withField(marieJSON, `"meetingTool": "zoom"`, `"meetingTool": "phone", "language": "en"`)
	res := f.svc.Submit(context.Background(), []byte(raw))

	require.Equal(t, StateResponded, res.State)
	data := res.Body.Data.(Accepted)
	assert.Contains(t, data.Message, "24-48 hours")
	assert.Equal(t, "Phone call", data.Summary.MeetingTool)
	assert.Equal(t, "en", f.dispatcher.calls[0].Language)
}

func TestSubmit_CustomDurationAndOrganizer(t *testing.T) {
	store := submissions.NewFileStore(filepath.Join(t.TempDir(), "demo-requests.json"), logging.New("error"))
	dispatcher := &fakeDispatcher{result: notify.DeliveryResult{Sent: true}}
	svc := NewService(Config{
		ProductName: "RiskDesk",
		Organizer:   calendar.Person{Name: "Sales Team", Email: "sales@riskdesk.io"},
		Duration:    30 * time.Minute,
	}, dispatcher, store, logging.New("error"), WithIDFunc(func(time.Time) string { return "fixed-id" }))

	res := svc.Submit(context.Background(), []byte(marieJSON))

	require.Equal(t, StateResponded, res.State)
	assert.Equal(t, "fixed-id", res.RecordID)
	data := res.Body.Data.(Accepted)
	assert.Contains(t, data.CalendarLinks.Google, "20250610T140000/20250610T143000")
	assert.Contains(t, data.CalendarLinks.Outlook, "2025-06-10T14:30:00")
	assert.Contains(t, dispatcher.calls[0].ICS, "sales@riskdesk.io")
	assert.Contains(t, dispatcher.calls[0].ICS, "DURATION:PT30M")
}

func TestSubmit_DescriptionListsAlternateSlots(t *testing.T) {
	f := newFixture(t, true)

	raw := withField(marieJSON, `"_timezone"`, `"slot2": {"date": "2025-06-11", "time": "10:00"}, "_timezone"`)
	res := f.svc.Submit(context.Background(), []byte(raw))

	require.Equal(t, StateResponded, res.State)
	data := res.Body.Data.(Accepted)
	assert.Contains(t, data.CalendarLinks.Outlook, "2025-06-11%2010%3A00")
}

func TestSubmit_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewIntakeMetrics(reg)
	store := submissions.NewFileStore(filepath.Join(t.TempDir(), "demo-requests.json"), logging.New("error"))
	svc := NewService(Config{StoreBackend: "file"}, &fakeDispatcher{}, store, logging.New("error"), WithMetrics(m))

	svc.Submit(context.Background(), []byte(marieJSON))
	svc.Submit(context.Background(), []byte(`{"honeypot":"spam"}`))

	families, err := reg.Gather()
	require.NoError(t, err)
	outcomes := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != "riskdesk_intake_submissions_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			for _, lp := range metric.GetLabel() {
				if lp.GetName() == "outcome" {
					outcomes[lp.GetValue()] = metric.GetCounter().GetValue()
				}
			}
		}
	}
	assert.Equal(t, 1.0, outcomes["accepted"])
	assert.Equal(t, 1.0, outcomes["spam"])
}

func TestState_Terminal(t *testing.T) {
	assert.True(t, StateResponded.Terminal())
	assert.True(t, StateRejectedSpam.Terminal())
	assert.True(t, StateRejectedValidation.Terminal())
	assert.True(t, StateFailedServer.Terminal())
	assert.False(t, StateValidated.Terminal())
	assert.False(t, StatePersisted.Terminal())
}
