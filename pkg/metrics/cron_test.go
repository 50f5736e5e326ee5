package metrics

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCronJobMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)

	m.Observe("payment-intent-expiry", 250*time.Millisecond, nil)
	m.Observe("payment-intent-expiry", time.Second, errors.New("db down"))
	m.Observe("outbox-retention", 10*time.Millisecond, nil)
	m.CycleSkipped()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("payment-intent-expiry", outcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("payment-intent-expiry", outcomeFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.skipped))
	assert.Positive(t, testutil.ToFloat64(m.lastSuccess.WithLabelValues("outbox-retention")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.duration))

	expected := `
# HELP droppoint_cron_cycles_skipped_total Cycles skipped because another instance held the lock.
# TYPE droppoint_cron_cycles_skipped_total counter
droppoint_cron_cycles_skipped_total 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "droppoint_cron_cycles_skipped_total"))
}

func TestCronJobMetricsNilSafe(t *testing.T) {
	var m *CronJobMetrics
	m.Observe("job", time.Second, nil)
	m.CycleSkipped()

	unregistered := NewCronJobMetrics(nil)
	unregistered.Observe("", time.Second, errors.New("boom"))
	unregistered.CycleSkipped()
}
