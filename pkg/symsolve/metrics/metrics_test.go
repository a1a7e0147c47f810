package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Observe("LP", "success", false, 20*time.Millisecond)
	m.Observe("LP", "parsing error", true, time.Millisecond)
	m.Observe("FOL", "execution error", true, 2*time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Programs.WithLabelValues("LP", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Backups.WithLabelValues("LP")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Backups.WithLabelValues("FOL")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.Duration))

	expected := `
# HELP symsolve_backup_answers_total Answers supplied by the backup strategy, by logic type.
# TYPE symsolve_backup_answers_total counter
symsolve_backup_answers_total{logic_type="FOL"} 1
symsolve_backup_answers_total{logic_type="LP"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "symsolve_backup_answers_total"))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() { m.Observe("SAT", "success", false, time.Second) })
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.Observe("CSP", "success", false, time.Millisecond)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `symsolve_programs_total{logic_type="CSP",status="success"} 1`)
}
