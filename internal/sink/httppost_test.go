package sink

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/iop-apl-uw/glidermon/internal/subscribe"
)

func TestHTTPPostSinkSendsRawSubjectBody(t *testing.T) {
	var gotBody string
	var gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotContentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewHTTPPostSink()
	item := subscribe.DispatchItem{Endpoint: subscribe.Endpoint{URL: srv.URL}}
	if err := s.Send(context.Background(), "42", item, "SG42 NETWORK EVENT", "connected", nil); err != nil {
		t.Fatal(err)
	}
	if gotBody != "SG42 NETWORK EVENT:connected" {
		t.Errorf("body = %q", gotBody)
	}
	if gotContentType != "application/json" {
		t.Errorf("content-type = %q, want application/json (historical, even though body isn't JSON)", gotContentType)
	}
}

func TestHTTPPostSinkValidate(t *testing.T) {
	s := NewHTTPPostSink()
	if err := s.Validate(subscribe.Endpoint{}); err == nil {
		t.Error("expected error for missing url")
	}
}
