package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/riskdesk-demo/internal/calendar"
	"github.com/wolfman30/riskdesk-demo/internal/demo"
	"github.com/wolfman30/riskdesk-demo/internal/http/response"
	"github.com/wolfman30/riskdesk-demo/internal/notify"
	"github.com/wolfman30/riskdesk-demo/internal/observability/metrics"
	"github.com/wolfman30/riskdesk-demo/internal/submissions"
	"github.com/wolfman30/riskdesk-demo/pkg/logging"
)

var intakeTracer = otel.Tracer("riskdesk.internal.intake")

// ConfirmationSender delivers the requester's confirmation email. It reports
// failures in the result instead of returning them.
type ConfirmationSender interface {
	SendConfirmation(ctx context.Context, c notify.Confirmation) notify.DeliveryResult
}

// Config is the fixed business configuration of the pipeline.
type Config struct {
	ProductName string
	Organizer   calendar.Person
	Duration    time.Duration
	// FollowUpWindow is the promised response delay per language, e.g. "24 à 48 heures".
	FollowUpWindow map[demo.Language]string
	// StoreBackend labels store latency metrics.
	StoreBackend string
}

func (c Config) withDefaults() Config {
	if c.ProductName == "" {
		c.ProductName = "RiskDesk"
	}
	if c.Organizer.Name == "" {
		c.Organizer.Name = c.ProductName
	}
	if c.Organizer.Email == "" {
		c.Organizer.Email = "demo@riskdesk.io"
	}
	if c.Duration <= 0 {
		c.Duration = calendar.DefaultDuration
	}
	if c.FollowUpWindow == nil {
		c.FollowUpWindow = map[demo.Language]string{
			demo.LanguageFrench:  "24 à 48 heures",
			demo.LanguageEnglish: "24-48 hours",
		}
	}
	if c.StoreBackend == "" {
		c.StoreBackend = "unknown"
	}
	return c
}

// Service runs one demo request through validation, invite and link
// generation, confirmation email, and persistence.
type Service struct {
	cfg        Config
	validator  *demo.Validator
	dispatcher ConfirmationSender
	store      submissions.Store
	metrics    *metrics.IntakeMetrics
	logger     *logging.Logger
	now        func() time.Time
	newID      func(time.Time) string
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the clock used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDFunc overrides record id generation.
func WithIDFunc(fn func(time.Time) string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithMetrics attaches pipeline metrics.
func WithMetrics(m *metrics.IntakeMetrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService wires the pipeline. The store is required; a nil dispatcher
// means confirmations are never sent.
func NewService(cfg Config, dispatcher ConfirmationSender, store submissions.Store, logger *logging.Logger, opts ...Option) *Service {
	if store == nil {
		panic("intake: store cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	s := &Service{
		cfg:        cfg.withDefaults(),
		validator:  demo.NewValidator(),
		dispatcher: dispatcher,
		store:      store,
		logger:     logger,
		now:        time.Now,
		newID:      submissions.NewIDGenerator().New,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Result is the outcome of one submission.
type Result struct {
	Status int
	Body   response.Envelope
	State  State
	// Reached is the last non-terminal step completed before State.
	Reached  State
	RecordID string
}

// Accepted is the success payload.
type Accepted struct {
	ID            string        `json:"id"`
	Message       string        `json:"message"`
	CalendarLinks CalendarLinks `json:"calendarLinks"`
	Summary       Summary       `json:"summary"`
}

// CalendarLinks are the three ways to add the meeting to a calendar.
type CalendarLinks struct {
	ICSDownload string `json:"icsDownload"`
	Google      string `json:"googleCalendar"`
	Outlook     string `json:"outlook"`
}

// Summary echoes back what was understood from the request.
type Summary struct {
	FullName     string      `json:"fullName"`
	Organization string      `json:"organization"`
	Email        string      `json:"email"`
	Slot1        SlotSummary `json:"slot1"`
	MeetingTool  string      `json:"meetingTool"`
}

// SlotSummary is the primary slot with its time zone label.
type SlotSummary struct {
	Date     string `json:"date"`
	Time     string `json:"time"`
	Timezone string `json:"timezone"`
}

// Submit runs raw (a JSON body) through the pipeline. Validation and spam
// rejections happen before any side effect. Email failures are recorded on
// the stored record; only invite generation and persistence failures fail
// the request.
func (s *Service) Submit(ctx context.Context, raw []byte) Result {
	ctx, span := intakeTracer.Start(ctx, "intake.submit")
	defer span.End()

	res := s.submit(ctx, span, raw)
	span.SetAttributes(attribute.String("riskdesk.intake.state", string(res.State)))
	if res.State == StateFailedServer {
		span.SetStatus(codes.Error, "submission failed")
	}
	s.metrics.ObserveSubmission(res.State.outcome())
	return res
}

func (s *Service) submit(ctx context.Context, span trace.Span, raw []byte) Result {
	lang := requestedLanguage(raw)

	req, err := s.validator.Parse(raw)
	if err != nil {
		return s.rejected(span, lang, err)
	}
	reached := StateValidated
	lang = req.Lang()
	m := copyFor(lang)
	now := s.now()

	event := s.event(req, m)
	invite := calendar.Invite{
		Event:     event,
		Organizer: s.cfg.Organizer,
		Attendee:  calendar.Person{Name: req.FullName, Email: req.Email},
		Stamp:     now.UTC(),
	}

	_, inviteSpan := intakeTracer.Start(ctx, "intake.invite")
	icsText, err := calendar.Generate(invite)
	if err != nil {
		inviteSpan.RecordError(err)
		inviteSpan.End()
		s.logger.Error("intake: invite generation failed", "error", err, "reached", string(reached))
		return s.failed(span, lang, reached, err)
	}
	inviteSpan.End()
	reached = StateInviteBuilt

	links, err := calendar.BuildLinks(event)
	if err != nil {
		s.logger.Error("intake: calendar links failed", "error", err, "reached", string(reached))
		return s.failed(span, lang, reached, err)
	}
	reached = StateLinksBuilt

	delivery := s.notify(ctx, req, icsText)
	reached = StateNotificationAttempted

	rec := &submissions.Record{
		Request:      *req,
		ID:           s.newID(now),
		Status:       submissions.StatusPending,
		CreatedAt:    now.UTC(),
		ICSGenerated: icsText != "",
		EmailSent:    delivery.Sent,
	}

	storeCtx, storeSpan := intakeTracer.Start(ctx, "intake.persist")
	started := time.Now()
	id, err := s.store.Append(storeCtx, rec)
	s.metrics.ObserveStoreLatency(s.cfg.StoreBackend, time.Since(started).Seconds())
	if err != nil {
		storeSpan.RecordError(err)
		storeSpan.End()
		s.logger.Error("intake: persist demo request failed",
			"error", err,
			"record_id", rec.ID,
			"email_sent", rec.EmailSent,
			"store", s.cfg.StoreBackend,
			"reached", string(reached),
		)
		return s.failed(span, lang, reached, err)
	}
	storeSpan.End()
	reached = StatePersisted

	span.SetAttributes(attribute.String("riskdesk.intake.record_id", id))
	s.logger.Info("demo request accepted",
		"record_id", id,
		"organization", req.Organization,
		"meeting_tool", string(req.MeetingTool),
		"email_sent", delivery.Sent,
	)

	slot := req.PrimarySlot()
	body := Accepted{
		ID:      id,
		Message: fmt.Sprintf(m.accepted, s.cfg.FollowUpWindow[lang]),
		CalendarLinks: CalendarLinks{
			ICSDownload: calendar.DataURI(icsText),
			Google:      links.Google,
			Outlook:     links.Outlook,
		},
		Summary: Summary{
			FullName:     req.FullName,
			Organization: req.Organization,
			Email:        req.Email,
			Slot1:        SlotSummary{Date: slot.Date, Time: slot.Time, Timezone: req.TimeZone},
			MeetingTool:  req.MeetingTool.Label(lang),
		},
	}
	return Result{
		Status:   http.StatusCreated,
		Body:     response.Success(body),
		State:    StateResponded,
		Reached:  reached,
		RecordID: id,
	}
}

func (s *Service) event(req *demo.Request, m messages) calendar.Event {
	slot := req.PrimarySlot()
	return calendar.Event{
		Title:       fmt.Sprintf(m.eventTitle, s.cfg.ProductName, req.Organization),
		Description: eventDescription(m, s.cfg.ProductName, req),
		Location:    req.MeetingTool.Label(req.Lang()),
		Date:        slot.Date,
		Clock:       slot.Time,
		TimeZone:    req.TimeZone,
		Duration:    s.cfg.Duration,
	}
}

func (s *Service) notify(ctx context.Context, req *demo.Request, icsText string) notify.DeliveryResult {
	if s.dispatcher == nil {
		s.metrics.ObserveEmail(false)
		return notify.DeliveryResult{Error: "email sender not configured"}
	}
	ctx, span := intakeTracer.Start(ctx, "intake.notify")
	defer span.End()

	slot := req.PrimarySlot()
	result := s.dispatcher.SendConfirmation(ctx, notify.Confirmation{
		To:           req.Email,
		Name:         req.FullName,
		Organization: req.Organization,
		Date:         slot.Date,
		Clock:        slot.Time,
		TimeZone:     req.TimeZone,
		MeetingTool:  req.MeetingTool.Label(req.Lang()),
		Language:     string(req.Lang()),
		ICS:          icsText,
	})
	span.SetAttributes(attribute.Bool("riskdesk.intake.email_sent", result.Sent))
	if !result.Sent {
		span.RecordError(errors.New(result.Error))
	}
	s.metrics.ObserveEmail(result.Sent)
	return result
}

func (s *Service) rejected(span trace.Span, lang demo.Language, err error) Result {
	m := copyFor(lang)

	if errors.Is(err, demo.ErrSpam) {
		s.logger.Warn("intake: spam submission rejected")
		span.AddEvent("spam detected")
		return Result{
			Status:  http.StatusBadRequest,
			Body:    response.Failure(response.CodeSpam, m.spam),
			State:   StateRejectedSpam,
			Reached: StateReceived,
		}
	}

	var verr *demo.ValidationError
	if errors.As(err, &verr) {
		s.logger.Info("intake: invalid submission", "error", verr.Error())
		return Result{
			Status:  http.StatusBadRequest,
			Body:    response.FieldFailure(m.invalid, verr.Fields),
			State:   StateRejectedValidation,
			Reached: StateReceived,
		}
	}

	s.logger.Error("intake: unexpected validation failure", "error", err)
	return s.failed(span, lang, StateReceived, err)
}

func (s *Service) failed(span trace.Span, lang demo.Language, reached State, err error) Result {
	span.RecordError(err)
	span.SetAttributes(attribute.String("riskdesk.intake.reached", string(reached)))
	return Result{
		Status:  http.StatusInternalServerError,
		Body:    response.Failure(response.CodeServer, copyFor(lang).server),
		State:   StateFailedServer,
		Reached: reached,
	}
}

// requestedLanguage reads the requested language before validation so that
// rejections are localized when possible.
func requestedLanguage(raw []byte) demo.Language {
	var peek struct {
		Language string `json:"language"`
	}
	if err := json.Unmarshal(raw, &peek); err == nil && demo.Language(peek.Language) == demo.LanguageEnglish {
		return demo.LanguageEnglish
	}
	return demo.LanguageFrench
}
