package provider

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestHTTPTransport_SendsHeadersAndBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Custom"); got != "one" {
			t.Errorf("X-Custom = %q, want %q", got, "one")
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"a":1}` {
			t.Errorf("body = %q, want %q", body, `{"a":1}`)
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	tr := NewHTTPTransport()
	got, err := tr.PostJSON(context.Background(), server.URL, []Header{{Name: "X-Custom", Value: "one"}}, []byte(`{"a":1}`))
	if err != nil {
		t.Fatalf("PostJSON() error = %v", err)
	}
	if string(got) != `{"ok":true}` {
		t.Errorf("PostJSON() = %q, want %q", got, `{"ok":true}`)
	}
}

func TestHTTPTransport_NonSuccessUnparseableBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream unavailable\n"))
	}))
	defer server.Close()

	_, err := NewHTTPTransport().PostJSON(context.Background(), server.URL, nil, []byte(`{}`))
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("PostJSON() error = %v, want *StatusError", err)
	}
	if se.StatusCode != http.StatusBadGateway {
		t.Errorf("StatusCode = %d, want %d", se.StatusCode, http.StatusBadGateway)
	}
	if se.Message != "upstream unavailable" {
		t.Errorf("Message = %q, want %q", se.Message, "upstream unavailable")
	}
}

func TestHTTPTransport_ContextDeadline(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewHTTPTransport().PostJSON(ctx, server.URL, nil, []byte(`{}`))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("PostJSON() error = %v, want context.DeadlineExceeded", err)
	}
}

func TestTracingTransport_RecordsSpan(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))

	ft := &fakeTransport{resp: []byte(`{"choices":[]}`)}
	tr := NewTracingTransport(ft, tp)

	if _, err := tr.PostJSON(context.Background(), defaultOpenAIURL, nil, []byte(`{}`)); err != nil {
		t.Fatalf("PostJSON() error = %v", err)
	}

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("spans = %d, want 1", len(spans))
	}
	if spans[0].Name() != "llm.completion" {
		t.Errorf("span name = %q, want %q", spans[0].Name(), "llm.completion")
	}
	var host string
	for _, a := range spans[0].Attributes() {
		if a.Key == "server.address" {
			host = a.Value.AsString()
		}
	}
	if host != "api.openai.com" {
		t.Errorf("server.address = %q, want %q", host, "api.openai.com")
	}
}

func TestTracingTransport_RecordsError(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))

	ft := &fakeTransport{err: &StatusError{StatusCode: 500, Message: "boom"}}
	d := NewDispatcher(openaiConfig(), WithTransport(NewTracingTransport(ft, tp)))

	_, err := d.Complete(context.Background(), nil, "S")
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("Complete() error = %v, want ErrTransport", err)
	}

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("spans = %d, want 1", len(spans))
	}
	if spans[0].Status().Code != codes.Error {
		t.Errorf("span status = %v, want Error", spans[0].Status().Code)
	}
	var status int64
	for _, a := range spans[0].Attributes() {
		if a.Key == "http.status_code" {
			status = a.Value.AsInt64()
		}
	}
	if status != 500 {
		t.Errorf("http.status_code = %d, want 500", status)
	}
}
