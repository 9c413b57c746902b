package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

// TestNilSafe проверяет, что nil-метрики не паникуют.
func TestNilSafe(t *testing.T) {
	var m *Metrics
	m.KeyIssued()
	m.KeyRejected("x")
	m.Upload("ok")
	m.Review("approved")
	m.Comment()
	m.Edit("ok")
}

// TestCounters проверяет счетчики и экспорт.
func TestCounters(t *testing.T) {
	m := New()
	m.KeyIssued()
	m.KeyIssued()
	m.Review("approved")

	if got := testutil.ToFloat64(m.keysIssued); got != 2 {
		t.Errorf("keys_issued: ожидалось 2, получено %v", got)
	}
	if got := testutil.ToFloat64(m.reviews.WithLabelValues("approved")); got != 1 {
		t.Errorf("reviews{approved}: ожидалось 1, получено %v", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "picwall_keys_issued_total 2") {
		t.Errorf("экспорт не содержит счетчик ключей:\n%s", rec.Body.String())
	}
}
