package http

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"notes-console/internal/domain"
	"notes-console/internal/service"
)

func TestAnalyticsHandler_Report(t *testing.T) {
	app := newTestApp(t, nil)
	auth := app.signUp(t, "user@example.com")
	owner := auth.Session.UserID()
	d1 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC)
	app.notes.notes = []domain.Note{
		{ID: "n1", UserID: owner, Content: strings.Repeat("x", 1000), CreatedAt: d1},
		{ID: "n2", UserID: owner, CreatedAt: d1},
		{ID: "n3", UserID: owner, CreatedAt: d2},
		{ID: "n4", UserID: "someone-else", CreatedAt: d2},
	}

	rec := performRequest(app.router, http.MethodGet, "/analytics", nil, auth.Tokens.AccessToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var report service.AnalyticsReport
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.NoteCount != 3 || len(report.Histogram) != 2 {
		t.Fatalf("unexpected report %s", rec.Body.String())
	}
	counts := map[string]int{}
	for _, c := range report.Histogram {
		counts[c.Date] = c.Count
	}
	if counts["2024-03-01"] != 2 || counts["2024-03-02"] != 1 {
		t.Fatalf("unexpected histogram %+v", report.Histogram)
	}
	if report.Storage.TotalMB != 1000 || report.Storage.UsedMB <= 0 {
		t.Fatalf("unexpected storage %+v", report.Storage)
	}
}
