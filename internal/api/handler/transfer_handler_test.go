package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/kiwiprop/transfer-system/internal/api"
	"github.com/kiwiprop/transfer-system/internal/api/handler"
	"github.com/kiwiprop/transfer-system/internal/core/domain"
)

type stubQueryService struct {
	weekBody  []byte
	statsBody []byte
	err       error

	gotDate   string
	gotBounds string
}

func (s *stubQueryService) WeekFeatures(_ context.Context, date, bounds string) ([]byte, error) {
	s.gotDate = date
	s.gotBounds = bounds
	return s.weekBody, s.err
}

func (s *stubQueryService) WeeklyStats(_ context.Context, bounds string) ([]byte, error) {
	s.gotBounds = bounds
	return s.statsBody, s.err
}

func newTestServer(svc *stubQueryService) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = api.NewHTTPErrorHandler(zerolog.Nop())

	h := handler.NewTransferHandler(svc)
	e.GET("/week/:date", h.Week)
	e.GET("/week/:date/:bounds", h.Week)
	e.GET("/stats", h.Stats)
	e.GET("/stats/:bounds", h.Stats)
	return e
}

func doRequest(e *echo.Echo, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestWeek_ServesBodyVerbatim(t *testing.T) {
	body := `{"type":"FeatureCollection","features":[]}`
	svc := &stubQueryService{weekBody: []byte(body)}
	e := newTestServer(svc)

	rec := doRequest(e, "/week/2013-01-05")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != body {
		t.Errorf("expected body %q, got %q", body, got)
	}
	if svc.gotDate != "2013-01-05" || svc.gotBounds != "" {
		t.Errorf("unexpected params: date=%q bounds=%q", svc.gotDate, svc.gotBounds)
	}
	if ct := rec.Header().Get(echo.HeaderContentType); !strings.HasPrefix(ct, echo.MIMEApplicationJSON) {
		t.Errorf("expected JSON content type, got %q", ct)
	}
}

func TestWeek_PassesBoundsParam(t *testing.T) {
	svc := &stubQueryService{weekBody: []byte(`{}`)}
	e := newTestServer(svc)

	doRequest(e, "/week/2013-01-05/173.8,-37.4,176.0,-35.6")

	if svc.gotBounds != "173.8,-37.4,176.0,-35.6" {
		t.Errorf("expected bounds param, got %q", svc.gotBounds)
	}
}

func TestWeek_ValidationErrorIsBadRequest(t *testing.T) {
	msg := "Bounds should be longitudes/latitudes in west,south,east,north order"
	svc := &stubQueryService{err: domain.NewValidationError(msg)}
	e := newTestServer(svc)

	rec := doRequest(e, "/week/2013-01-05/bogus")

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var envelope map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("invalid error body: %v", err)
	}
	if envelope["error"] != msg {
		t.Errorf("expected error %q, got %q", msg, envelope["error"])
	}
}

func TestWeek_ServiceFaultIsOpaque500(t *testing.T) {
	svc := &stubQueryService{err: errors.New("mongo: no reachable servers")}
	e := newTestServer(svc)

	rec := doRequest(e, "/week/2013-01-05")

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var envelope map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("invalid error body: %v", err)
	}
	if envelope["error"] != "internal server error" {
		t.Errorf("internal cause must not leak, got %q", envelope["error"])
	}
}

func TestStats_ServesBodyVerbatim(t *testing.T) {
	body := `{"2013-01-05":3,"2013-01-12":1}`
	svc := &stubQueryService{statsBody: []byte(body)}
	e := newTestServer(svc)

	rec := doRequest(e, "/stats")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != body {
		t.Errorf("expected body %q, got %q", body, got)
	}
}

func TestStats_PassesBoundsParam(t *testing.T) {
	svc := &stubQueryService{statsBody: []byte(`{}`)}
	e := newTestServer(svc)

	doRequest(e, "/stats/173.8,-37.4,176.0,-35.6")

	if svc.gotBounds != "173.8,-37.4,176.0,-35.6" {
		t.Errorf("expected bounds param, got %q", svc.gotBounds)
	}
}

func TestUnknownRouteIsNotFound(t *testing.T) {
	e := newTestServer(&stubQueryService{})

	rec := doRequest(e, "/titles")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
