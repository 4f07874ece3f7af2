package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type fakePinger struct {
	err error
}

func (f *fakePinger) CurrentHead(ctx context.Context) (uint64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return 100, nil
}

func TestHandlerReportsHealthyWhenBothChainsReachable(t *testing.T) {
	c := New(&fakePinger{}, &fakePinger{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	c.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var report Report
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Status != "healthy" {
		t.Fatalf("expected healthy, got %s", report.Status)
	}
}

func TestHandlerReportsUnhealthyWhenDestinationUnreachable(t *testing.T) {
	c := New(&fakePinger{}, &fakePinger{err: errors.New("dial tcp: connection refused")})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	c.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	var report Report
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Services["destination_chain"].Status != "unhealthy" {
		t.Fatalf("expected destination_chain unhealthy, got %+v", report.Services["destination_chain"])
	}
	t.Logf("PASS: unreachable destination chain marks the report unhealthy")
}

func TestRecordFatalMarksSupervisorUnhealthy(t *testing.T) {
	c := New(&fakePinger{}, &fakePinger{})
	c.RecordFatal("invalid signature on sequence 9")
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	c.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 after a fatal classification, got %d", rec.Code)
	}
}

func TestRecordTickUpdatesLastActivity(t *testing.T) {
	c := New(&fakePinger{}, &fakePinger{})
	now := time.Now()
	c.RecordTick(now)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, req)

	var report Report
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if !report.Services["supervisor"].LastActivity.Equal(now) {
		t.Fatalf("expected last activity %v, got %v", now, report.Services["supervisor"].LastActivity)
	}
}
