package metric

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zukunftch/zukunft.com/errors"
)

func TestNewRegistryRegistersCoreMetrics(t *testing.T) {
	r := NewRegistry()
	require.NotNil(t, r.CoreMetrics())

	// Recording through the helpers must not panic and must show up in a
	// gather pass.
	m := r.CoreMetrics()
	m.RecordSave("words", "updated", 5*time.Millisecond)
	m.RecordChangeEntry("words", "update")
	m.RecordTraversal("are", 3)
	m.RecordCeilingHit()
	m.RecordStoreQuery("words", "fetch")
	m.RecordCacheLookup(true)
	m.RecordCacheLookup(false)
	m.RecordFeedPublish(true)

	families, err := r.PrometheusRegistry().Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["zukunft_save_outcomes_total"])
	assert.True(t, names["zukunft_closure_traversals_total"])
	assert.True(t, names["zukunft_termcache_hits_total"])
}

func TestRegisterComponentMetric(t *testing.T) {
	r := NewRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "import_rows_total",
		Help: "Rows imported",
	})
	require.NoError(t, r.RegisterCounter("importer", "import_rows_total", counter))

	// Same key again is rejected.
	dup := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "import_rows_total_other",
		Help: "Rows imported",
	})
	err := r.RegisterCounter("importer", "import_rows_total", dup)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))

	// After unregistering the name is free again.
	assert.True(t, r.Unregister("importer", "import_rows_total"))
	assert.False(t, r.Unregister("importer", "import_rows_total"))
	require.NoError(t, r.RegisterCounter("importer", "import_rows_total", dup))
}

func TestRegisterCounterVec(t *testing.T) {
	r := NewRegistry()

	vec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "export_requests_total",
		Help: "Export requests",
	}, []string{"format"})
	require.NoError(t, r.RegisterCounterVec("exporter", "export_requests_total", vec))

	vec.WithLabelValues("json").Inc()
	vec.WithLabelValues("csv").Inc()

	families, err := r.PrometheusRegistry().Gather()
	require.NoError(t, err)
	found := false
	for _, f := range families {
		if f.GetName() == "export_requests_total" {
			found = true
			assert.Len(t, f.GetMetric(), 2)
		}
	}
	assert.True(t, found)
}
