package sink

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	"github.com/iop-apl-uw/glidermon/internal/errs"
	"github.com/iop-apl-uw/glidermon/internal/gpsfix"
	"github.com/iop-apl-uw/glidermon/internal/subscribe"
)

// EmailSink delivers notifications as MIME mail: plain text, or
// multipart/alternative plain+html when the endpoint requests "html"
// format.
type EmailSink struct {
	smtp   SMTPConfig
	logger *slog.Logger
}

// NewEmailSink builds an EmailSink using smtpCfg for outbound submission.
func NewEmailSink(smtpCfg SMTPConfig) *EmailSink {
	return &EmailSink{smtp: smtpCfg, logger: slog.Default()}
}

func (s *EmailSink) Kind() subscribe.SinkKind { return subscribe.SinkEmail }

func (s *EmailSink) Validate(ep subscribe.Endpoint) error {
	if ep.Address == "" {
		return fmt.Errorf("%w: email endpoint missing address", errs.ErrEndpointConfig)
	}
	if ep.Format != "" && ep.Format != "plain" && ep.Format != "html" {
		return fmt.Errorf("%w: email endpoint has unrecognized format %q", errs.ErrEndpointConfig, ep.Format)
	}
	return nil
}

func (s *EmailSink) Send(ctx context.Context, gliderID string, item subscribe.DispatchItem, subject, body string, fix *gpsfix.Fix) error {
	ep := item.Endpoint
	if err := s.Validate(ep); err != nil {
		s.logger.Error("email: invalid endpoint", slog.String("user", item.User), slog.Any("error", err))
		return err
	}

	msg := buildEmailMessage(ep.Address, subject, body, ep.Format)

	if err := s.submit(ctx, ep.Address, msg); err != nil {
		s.logger.Error("email: send failed", slog.String("user", item.User), slog.String("address", ep.Address), slog.Any("error", err))
		return err
	}
	return nil
}

// submit performs exactly one SMTP attempt: local unauthenticated
// submission on port 25 when no forwarder host is configured, or
// authenticated STARTTLS on s.smtp.Port (587 by convention) otherwise.
func (s *EmailSink) submit(ctx context.Context, to, msg string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if s.smtp.Host == "" {
		return smtp.SendMail("localhost:25", nil, "glidermon@localhost", []string{to}, []byte(msg))
	}

	auth := smtp.PlainAuth("", s.smtp.Username, s.smtp.Password, s.smtp.Host)
	addr := fmt.Sprintf("%s:%d", s.smtp.Host, s.smtp.Port)
	return smtp.SendMail(addr, auth, s.smtp.Username, []string{to}, []byte(msg))
}

// buildEmailMessage renders a minimal RFC 822 message: plain text, or
// multipart/alternative with an HTML part that wraps each source line in
// a <p> block, per §4.6 ("html form wraps each source line in a block
// element").
func buildEmailMessage(to, subject, body, format string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)

	if format != "html" {
		b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
		b.WriteString(body)
		return b.String()
	}

	boundary := "glidermon-boundary"
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", boundary)

	fmt.Fprintf(&b, "--%s\r\n", boundary)
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(body)
	b.WriteString("\r\n\r\n")

	fmt.Fprintf(&b, "--%s\r\n", boundary)
	b.WriteString("Content-Type: text/html; charset=utf-8\r\n\r\n")
	b.WriteString(htmlBody(body))
	b.WriteString("\r\n\r\n")

	fmt.Fprintf(&b, "--%s--\r\n", boundary)
	return b.String()
}

func htmlBody(body string) string {
	var b strings.Builder
	for _, line := range strings.Split(body, "\n") {
		fmt.Fprintf(&b, "<p>%s</p>\n", line)
	}
	return b.String()
}
