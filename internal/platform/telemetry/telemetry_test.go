package telemetry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestSetup_NoEndpointIsNoop(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{ServiceName: "patientflow-test"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func newRecorder() (*tracetest.SpanRecorder, *sdktrace.TracerProvider) {
	rec := tracetest.NewSpanRecorder()
	return rec, sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
}

func TestMiddleware_RecordsServerSpan(t *testing.T) {
	rec, tp := newRecorder()
	e := echo.New()
	e.Use(Middleware(tp.Tracer("test")))
	e.GET("/patients/:id", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/patients/123", nil)
	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if got := spans[0].Name(); got != "GET /patients/:id" {
		t.Fatalf("expected span name with route template, got %q", got)
	}
	if spans[0].Status().Code == codes.Error {
		t.Fatal("successful request should not mark span as error")
	}
}

func TestMiddleware_RecordsHandlerError(t *testing.T) {
	rec, tp := newRecorder()
	e := echo.New()
	e.Use(Middleware(tp.Tracer("test")))
	e.GET("/boom", func(c echo.Context) error {
		return errors.New("boom")
	})

	w := httptest.NewRecorder()
	e.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	spans := rec.Ended()
	if len(spans) != 1 || spans[0].Status().Code != codes.Error {
		t.Fatalf("expected one errored span, got %+v", spans)
	}
}

func TestRecordError_NilIsIgnored(t *testing.T) {
	rec, tp := newRecorder()
	_, span := tp.Tracer("test").Start(context.Background(), "op")
	RecordError(span, nil)
	span.End()
	if rec.Ended()[0].Status().Code == codes.Error {
		t.Fatal("nil error should leave status unset")
	}
}
