package sink

import (
	"strings"
	"testing"

	"github.com/iop-apl-uw/glidermon/internal/subscribe"
)

func TestEmailSinkValidate(t *testing.T) {
	s := NewEmailSink(SMTPConfig{})
	if err := s.Validate(subscribe.Endpoint{}); err == nil {
		t.Error("expected error for missing address")
	}
	if err := s.Validate(subscribe.Endpoint{Address: "a@example.org", Format: "bogus"}); err == nil {
		t.Error("expected error for unrecognized format")
	}
	if err := s.Validate(subscribe.Endpoint{Address: "a@example.org", Format: "html"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestBuildEmailMessagePlain(t *testing.T) {
	msg := buildEmailMessage("alice@example.org", "GPS SG42", "47.5021,-122.2595", "")
	if !strings.Contains(msg, "Subject: GPS SG42") {
		t.Error("missing subject header")
	}
	if !strings.Contains(msg, "text/plain") {
		t.Error("expected plain text content type")
	}
	if strings.Contains(msg, "multipart") {
		t.Error("plain message should not be multipart")
	}
}

func TestBuildEmailMessageHTML(t *testing.T) {
	msg := buildEmailMessage("alice@example.org", "GPS SG42", "line one\nline two", "html")
	if !strings.Contains(msg, "multipart/alternative") {
		t.Error("expected multipart/alternative for html format")
	}
	if !strings.Contains(msg, "<p>line one</p>") || !strings.Contains(msg, "<p>line two</p>") {
		t.Errorf("expected each line wrapped in <p>, got: %s", msg)
	}
}

func TestEmailSinkKind(t *testing.T) {
	if NewEmailSink(SMTPConfig{}).Kind() != subscribe.SinkEmail {
		t.Error("Kind() should be SinkEmail")
	}
}
