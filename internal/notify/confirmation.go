package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/wolfman30/riskdesk-demo/pkg/logging"
)

const (
	defaultSendTimeout    = 10 * time.Second
	defaultFollowUpWindow = "24 à 48 heures"
	defaultAttachmentName = "riskdesk-demo.ics"
	icsContentType        = "text/calendar; charset=utf-8; method=REQUEST"
)

// Confirmation is everything the requester's confirmation email states.
type Confirmation struct {
	To           string
	Name         string
	Organization string
	Date         string
	Clock        string
	TimeZone     string
	MeetingTool  string // human-readable label
	Language     string // "fr" or "en"
	ICS          string
}

// DeliveryResult reports whether the confirmation left the building.
type DeliveryResult struct {
	Sent  bool
	Error string
}

// DispatcherConfig tunes the confirmation email.
type DispatcherConfig struct {
	ProductName string
	// Follow-up windows are business copy, e.g. "24 à 48 heures" / "24-48 hours".
	FollowUpWindowFR string
	FollowUpWindowEN string
	Timeout          time.Duration
	AttachmentName   string
}

// Dispatcher sends demo confirmations. It never fails the caller: delivery
// problems are reported in the DeliveryResult.
type Dispatcher struct {
	sender EmailSender
	cfg    DispatcherConfig
	logger *logging.Logger
}

// NewDispatcher wires a dispatcher around the given sender.
func NewDispatcher(sender EmailSender, cfg DispatcherConfig, logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.ProductName == "" {
		cfg.ProductName = "RiskDesk"
	}
	if cfg.FollowUpWindowFR == "" {
		cfg.FollowUpWindowFR = defaultFollowUpWindow
	}
	if cfg.FollowUpWindowEN == "" {
		cfg.FollowUpWindowEN = "24-48 hours"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultSendTimeout
	}
	if cfg.AttachmentName == "" {
		cfg.AttachmentName = defaultAttachmentName
	}
	return &Dispatcher{sender: sender, cfg: cfg, logger: logger}
}

// SendConfirmation composes and sends the confirmation email.
func (d *Dispatcher) SendConfirmation(ctx context.Context, c Confirmation) DeliveryResult {
	if d == nil || d.sender == nil {
		return DeliveryResult{Error: "email sender not configured"}
	}

	msg, err := d.compose(c)
	if err != nil {
		d.logger.Error("notify: compose confirmation failed", "error", err, "to", c.To)
		return DeliveryResult{Error: err.Error()}
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	if err := d.sender.Send(sendCtx, msg); err != nil {
		if errors.Is(err, ErrEmailDisabled) {
			d.logger.Info("notify: email disabled, confirmation not sent", "to", c.To)
			return DeliveryResult{Error: "email disabled"}
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(sendCtx.Err(), context.DeadlineExceeded) {
			d.logger.Warn("notify: confirmation timed out", "to", c.To, "timeout", d.cfg.Timeout)
			return DeliveryResult{Error: "email delivery timed out"}
		}
		d.logger.Warn("notify: confirmation not delivered", "error", err, "to", c.To)
		return DeliveryResult{Error: err.Error()}
	}
	return DeliveryResult{Sent: true}
}

type confirmationView struct {
	Product      string
	Name         string
	Organization string
	Slot         string
	MeetingTool  string
	FollowUp     string
	HasInvite    bool
}

func (d *Dispatcher) compose(c Confirmation) (EmailMessage, error) {
	tmpl := frenchCopy
	followUp := d.cfg.FollowUpWindowFR
	if c.Language == "en" {
		tmpl = englishCopy
		followUp = d.cfg.FollowUpWindowEN
	}

	view := confirmationView{
		Product:      d.cfg.ProductName,
		Name:         c.Name,
		Organization: c.Organization,
		Slot:         FormatSlot(c.Language, c.Date, c.Clock, c.TimeZone),
		MeetingTool:  c.MeetingTool,
		FollowUp:     followUp,
		HasInvite:    strings.TrimSpace(c.ICS) != "",
	}

	var text, html bytes.Buffer
	if err := tmpl.text.Execute(&text, view); err != nil {
		return EmailMessage{}, fmt.Errorf("notify: render text: %w", err)
	}
	if err := tmpl.html.Execute(&html, view); err != nil {
		return EmailMessage{}, fmt.Errorf("notify: render html: %w", err)
	}

	msg := EmailMessage{
		To:      c.To,
		ToName:  c.Name,
		Subject: fmt.Sprintf(tmpl.subject, d.cfg.ProductName),
		Body:    text.String(),
		HTML:    html.String(),
	}
	if view.HasInvite {
		msg.Attachments = []Attachment{{
			Filename:    d.cfg.AttachmentName,
			ContentType: icsContentType,
			Content:     []byte(c.ICS),
		}}
	}
	return msg, nil
}

// FormatSlot renders a slot as "date at time (timezone)" in the given language.
func FormatSlot(lang, date, clock, tz string) string {
	at := "à"
	if lang == "en" {
		at = "at"
	}
	return fmt.Sprintf("%s %s %s (%s)", date, at, clock, tz)
}

type emailCopy struct {
	subject string
	text    *texttemplate.Template
	html    *htmltemplate.Template
}

var frenchCopy = emailCopy{
	subject: "Votre demande de démo %s est bien reçue",
	text: texttemplate.Must(texttemplate.New("fr.txt").Parse(`Bonjour {{.Name}},

Merci pour votre intérêt pour {{.Product}}. Nous avons bien reçu la demande de démonstration pour {{.Organization}}.

Créneau proposé : {{.Slot}}
Outil de réunion : {{.MeetingTool}}

Un membre de notre équipe vous recontactera sous {{.FollowUp}} pour confirmer le rendez-vous.{{if .HasInvite}}
Une invitation calendrier (.ics) est jointe à cet e-mail.{{end}}

L'équipe {{.Product}}
`)),
	html: htmltemplate.Must(htmltemplate.New("fr.html").Parse(`<div style="font-family: sans-serif; max-width: 600px;">
<h2 style="color: #1e3a8a;">Demande de démo reçue</h2>
<p>Bonjour <strong>{{.Name}}</strong>,</p>
<p>Merci pour votre intérêt pour {{.Product}}. Nous avons bien reçu la demande de démonstration pour <strong>{{.Organization}}</strong>.</p>
<table style="border-collapse: collapse; margin: 20px 0;">
  <tr><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;"><strong>Créneau proposé :</strong></td><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;">{{.Slot}}</td></tr>
  <tr><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;"><strong>Outil de réunion :</strong></td><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;">{{.MeetingTool}}</td></tr>
</table>
<p>Un membre de notre équipe vous recontactera sous <strong>{{.FollowUp}}</strong> pour confirmer le rendez-vous.</p>
{{if .HasInvite}}<p>Une invitation calendrier (.ics) est jointe à cet e-mail.</p>{{end}}
<p style="color: #6b7280; font-size: 12px; margin-top: 20px;">L'équipe {{.Product}}</p>
</div>`)),
}

var englishCopy = emailCopy{
	subject: "Your %s demo request has been received",
	text: texttemplate.Must(texttemplate.New("en.txt").Parse(`Hello {{.Name}},

Thank you for your interest in {{.Product}}. We have received the demo request for {{.Organization}}.

Proposed slot: {{.Slot}}
Meeting tool: {{.MeetingTool}}

A member of our team will get back to you within {{.FollowUp}} to confirm the meeting.{{if .HasInvite}}
A calendar invite (.ics) is attached to this email.{{end}}

The {{.Product}} team
`)),
	html: htmltemplate.Must(htmltemplate.New("en.html").Parse(`<div style="font-family: sans-serif; max-width: 600px;">
<h2 style="color: #1e3a8a;">Demo request received</h2>
<p>Hello <strong>{{.Name}}</strong>,</p>
<p>Thank you for your interest in {{.Product}}. We have received the demo request for <strong>{{.Organization}}</strong>.</p>
<table style="border-collapse: collapse; margin: 20px 0;">
  <tr><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;"><strong>Proposed slot:</strong></td><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;">{{.Slot}}</td></tr>
  <tr><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;"><strong>Meeting tool:</strong></td><td style="padding: 8px; border-bottom: 1px solid #e5e7eb;">{{.MeetingTool}}</td></tr>
</table>
<p>A member of our team will get back to you within <strong>{{.FollowUp}}</strong> to confirm the meeting.</p>
{{if .HasInvite}}<p>A calendar invite (.ics) is attached to this email.</p>{{end}}
<p style="color: #6b7280; font-size: 12px; margin-top: 20px;">The {{.Product}} team</p>
</div>`)),
}
