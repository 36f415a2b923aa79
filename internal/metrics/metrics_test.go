package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.IncDocumentCreated()
	m.IncDocumentCreated()
	m.IncFormCreated("degmada")
	m.IncTransition("filled", "approved")
	m.IncDeleted("travel_document")
	m.IncPhotoCleanupFailure()
	m.ObserveHTTP(http.MethodGet, http.StatusOK, time.Now())

	assert.Equal(t, 2.0, testutil.ToFloat64(m.DocumentsCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FormsCreated.WithLabelValues("degmada")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.FormsCreated.WithLabelValues("kafiilka")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Transitions.WithLabelValues("filled", "approved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RecordsDeleted.WithLabelValues("travel_document")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PhotoCleanupFailure))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "200")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncDocumentCreated()
		m.IncTransition("a", "b")
		m.ObserveHTTP("GET", 200, time.Now())
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.IncDocumentCreated()

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "immigration_documents_created_total 1")
}
