package notify

import (
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSES struct {
	inputs []*sesv2.SendEmailInput
	err    error
}

func (m *mockSES) SendEmail(_ context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.inputs = append(m.inputs, in)
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestNewSESSender_NilClient(t *testing.T) {
	assert.Nil(t, NewSESSender(nil, SESConfig{FromEmail: "demo@riskdesk.io"}, nil))
}

func TestSESSender_SimpleMessage(t *testing.T) {
	client := &mockSES{}
	sender := NewSESSender(client, SESConfig{FromEmail: "demo@riskdesk.io"}, nil)

	err := sender.Send(context.Background(), EmailMessage{To: "marie@x.com", Subject: "Hi", Body: "text", HTML: "<p>html</p>"})
	require.NoError(t, err)
	require.Len(t, client.inputs, 1)

	in := client.inputs[0]
	assert.Equal(t, `"RiskDesk" <demo@riskdesk.io>`, aws.ToString(in.FromEmailAddress))
	require.NotNil(t, in.Content.Simple)
	assert.Nil(t, in.Content.Raw)
	assert.Equal(t, "text", aws.ToString(in.Content.Simple.Body.Text.Data))
	assert.Equal(t, "<p>html</p>", aws.ToString(in.Content.Simple.Body.Html.Data))
}

func TestSESSender_RawMessageWithAttachment(t *testing.T) {
	client := &mockSES{}
	sender := NewSESSender(client, SESConfig{FromEmail: "demo@riskdesk.io", FromName: "RiskDesk"}, nil)

	ics := "BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"
	err := sender.Send(context.Background(), EmailMessage{
		To:      "marie@x.com",
		ToName:  "Marie Kouassi",
		Subject: "Votre démo",
		Body:    "Bonjour Marie",
		HTML:    "<p>Bonjour Marie</p>",
		Attachments: []Attachment{{
			Filename:    "riskdesk-demo.ics",
			ContentType: icsContentType,
			Content:     []byte(ics),
		}},
	})
	require.NoError(t, err)
	require.Len(t, client.inputs, 1)
	require.NotNil(t, client.inputs[0].Content.Raw)

	parsed, err := mail.ReadMessage(strings.NewReader(string(client.inputs[0].Content.Raw.Data)))
	require.NoError(t, err)

	subject, err := new(mime.WordDecoder).DecodeHeader(parsed.Header.Get("Subject"))
	require.NoError(t, err)
	assert.Equal(t, "Votre démo", subject)

	mediaType, params, err := mime.ParseMediaType(parsed.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/mixed", mediaType)

	reader := multipart.NewReader(parsed.Body, params["boundary"])
	alt, err := reader.NextPart()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(alt.Header.Get("Content-Type"), "multipart/alternative"))

	attachment, err := reader.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "riskdesk-demo.ics", attachment.FileName())
	assert.Equal(t, "base64", attachment.Header.Get("Content-Transfer-Encoding"))

	_, err = reader.NextPart()
	assert.ErrorIs(t, err, io.EOF)
}

func TestSESSender_Error(t *testing.T) {
	sender := NewSESSender(&mockSES{err: errors.New("throttled")}, SESConfig{FromEmail: "demo@riskdesk.io"}, nil)
	err := sender.Send(context.Background(), EmailMessage{To: "a@b.co", Subject: "x", Body: "y"})
	assert.ErrorContains(t, err, "throttled")
}
