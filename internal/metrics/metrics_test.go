package metrics

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorsRecordRun(t *testing.T) {
	m := New()
	m.AddLoaded(3)
	m.SetOutcome(2, 1)
	m.IncViolation("duplicate_identifier")
	m.IncViolation("duplicate_identifier")
	m.IncBuild("csv")
	m.ObserveStage("load", 15*time.Millisecond)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.PapersLoaded))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.PapersValid))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PapersInvalid))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Violations.WithLabelValues("duplicate_identifier")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Builds.WithLabelValues("csv")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.StageDuration))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.AddLoaded(1)
	m.SetOutcome(1, 1)
	m.IncViolation("x")
	m.IncBuild("json")
	m.ObserveStage("load", time.Second)
	assert.Nil(t, m.Registry())
	require.NoError(t, m.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")))
}

func TestHandlerAndTextfile(t *testing.T) {
	m := New()
	m.AddLoaded(4)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "catalog_papers_loaded_total 4")

	path := filepath.Join(t.TempDir(), "catalog.prom")
	require.NoError(t, m.WriteTextfile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "# TYPE catalog_papers_loaded_total counter"))
}
