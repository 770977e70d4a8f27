package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordPropagation(t *testing.T) {
	before := testutil.ToFloat64(propagationsTotal.WithLabelValues("sgp4"))
	RecordPropagation("sgp4")
	RecordPropagation("sgp4")
	after := testutil.ToFloat64(propagationsTotal.WithLabelValues("sgp4"))
	if after-before != 2 {
		t.Errorf("counter moved by %v, want 2", after-before)
	}
}

func TestRecordPropagationError(t *testing.T) {
	before := testutil.ToFloat64(propagationErrorsTotal.WithLabelValues("sdp4", "eccentricity"))
	RecordPropagationError("sdp4", "eccentricity")
	after := testutil.ToFloat64(propagationErrorsTotal.WithLabelValues("sdp4", "eccentricity"))
	if after-before != 1 {
		t.Errorf("counter moved by %v, want 1", after-before)
	}
}

func TestObservePassScan(t *testing.T) {
	before := testutil.ToFloat64(passesFound)
	ObservePassScan(5*time.Millisecond, 3)
	after := testutil.ToFloat64(passesFound)
	if after-before != 3 {
		t.Errorf("passes counter moved by %v, want 3", after-before)
	}
}

func TestHandlerServesMetrics(t *testing.T) {
	RecordPropagation("sgp4")
	SetDatasetBodies(42)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"orbtrack_propagations_total", "orbtrack_dataset_bodies 42"} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
