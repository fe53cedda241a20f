package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	return rec.Body.String()
}

func TestRecordersUpdateCounters(t *testing.T) {
	m := New("test")

	m.RecordSlotResult("exact")
	m.RecordSlotResult("exact")
	m.RecordLookupError("product_name")
	m.RecordModelFailure("extract")
	m.RecordAssistantRequest("monitor", "", 10*time.Millisecond)

	body := scrape(t, m)
	for _, want := range []string{
		`pcstore_retrieval_slot_results_total{service="test",strategy="exact"} 2`,
		`pcstore_retrieval_lookup_errors_total{service="test",strategy="product_name"} 1`,
		`pcstore_llm_failures_total{service="test",stage="extract"} 1`,
		`pcstore_assistant_requests_total{context="none",intent="monitor",service="test"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordSlotResult("exact")
	m.RecordFeedback("click")
	m.HTTPStarted()("GET", "/", 200)
}

func TestHTTPStartedRecordsRequest(t *testing.T) {
	m := New("test")
	done := m.HTTPStarted()
	done(http.MethodPost, "/api/v1/assistant", http.StatusOK)

	body := scrape(t, m)
	want := `pcstore_http_requests_total{method="POST",path="/api/v1/assistant",service="test",status="200"} 1`
	if !strings.Contains(body, want) {
		t.Errorf("exposition missing %q", want)
	}
}
