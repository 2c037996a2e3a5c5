package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"drivncook/config"
	"drivncook/database"
	"drivncook/utils"
)

// EmailAttachment is a file carried on an outbound email
type EmailAttachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// EmailSender sends a single email to one or more recipients.
// Implementations must be safe for concurrent use.
type EmailSender interface {
	Send(ctx context.Context, to []string, subject, body string, attachments ...EmailAttachment) error
}

// Mailer is the sender used by notification dispatch. Swapped in tests.
var Mailer EmailSender = noopSender{}

// SESSender delivers emails through AWS SES
type SESSender struct {
	client *ses.Client
	from   string
}

// NewSESSender builds an SES-backed sender from the default AWS config chain
func NewSESSender(ctx context.Context, region, from string) (*SESSender, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &SESSender{client: ses.NewFromConfig(cfg), from: from}, nil
}

func (s *SESSender) Send(ctx context.Context, to []string, subject, body string, attachments ...EmailAttachment) error {
	// The simple send API cannot carry attachments, so those go through
	// the raw MIME endpoint instead.
	if len(attachments) > 0 {
		raw, err := buildRawMessage(s.from, to, subject, body, attachments)
		if err != nil {
			return err
		}
		_, err = s.client.SendRawEmail(ctx, &ses.SendRawEmailInput{
			Source:       aws.String(s.from),
			Destinations: to,
			RawMessage:   &types.RawMessage{Data: raw},
		})
		return err
	}

	input := &ses.SendEmailInput{
		Source: aws.String(s.from),
		Destination: &types.Destination{
			ToAddresses: to,
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
	}
	_, err := s.client.SendEmail(ctx, input)
	return err
}

// InitMailer wires the global Mailer according to configuration.
// When email is disabled the noop sender stays in place.
func InitMailer(ctx context.Context) {
	if !config.AppConfig.EmailEnabled {
		utils.Log.Infow("Email delivery disabled, outbound emails will be dropped")
		return
	}
	sender, err := NewSESSender(ctx, config.AppConfig.AWSRegion, config.AppConfig.EmailFrom)
	if err != nil {
		utils.Log.Errorw("Failed to initialize SES client, email delivery disabled", "error", err)
		return
	}
	Mailer = sender
}

// buildRawMessage assembles a multipart/mixed MIME message with a plain
// text part followed by base64-encoded attachment parts
func buildRawMessage(from string, to []string, subject, body string, attachments []EmailAttachment) ([]byte, error) {
	var msg bytes.Buffer
	writer := multipart.NewWriter(&msg)

	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	fmt.Fprintf(&msg, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", writer.Boundary())

	textPart, err := writer.CreatePart(textproto.MIMEHeader{
		"Content-Type": {"text/plain; charset=UTF-8"},
	})
	if err != nil {
		return nil, err
	}
	if _, err := textPart.Write([]byte(body)); err != nil {
		return nil, err
	}

	for _, attachment := range attachments {
		contentType := attachment.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		part, err := writer.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {contentType},
			"Content-Transfer-Encoding": {"base64"},
			"Content-Disposition":       {fmt.Sprintf("attachment; filename=%q", attachment.Filename)},
		})
		if err != nil {
			return nil, err
		}
		encoded := base64.StdEncoding.EncodeToString(attachment.Data)
		// MIME lines must stay short, wrap the base64 payload
		for len(encoded) > 0 {
			n := 76
			if len(encoded) < n {
				n = len(encoded)
			}
			if _, err := part.Write([]byte(encoded[:n] + "\r\n")); err != nil {
				return nil, err
			}
			encoded = encoded[n:]
		}
	}

	if err := writer.Close(); err != nil {
		return nil, err
	}
	return msg.Bytes(), nil
}

type noopSender struct{}

func (noopSender) Send(ctx context.Context, to []string, subject, body string, attachments ...EmailAttachment) error {
	return nil
}

// recordDeadLetter persists a failed send so delivery failures stay observable
func recordDeadLetter(to []string, subject, body string, sendErr error) {
	letter := database.EmailDeadLetter{
		Recipients: strings.Join(to, ","),
		Subject:    subject,
		Body:       body,
		Error:      sendErr.Error(),
	}
	if err := database.DB.Create(&letter).Error; err != nil {
		utils.Log.Errorw("Failed to record email dead letter", "error", err)
	}
}
