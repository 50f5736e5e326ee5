package metrics

import (
	"sort"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

// counters gathers one counter family keyed by its rendered label set,
// e.g. "reason=provider_error,source=haversine".
func counters(t *testing.T, reg prometheus.Gatherer, family string) map[string]float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	out := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != family {
			continue
		}
		require.Equal(t, dto.MetricType_COUNTER, mf.GetType())
		for _, m := range mf.GetMetric() {
			out[labelKey(m.GetLabel())] = m.GetCounter().GetValue()
		}
	}
	return out
}

func labelKey(pairs []*dto.LabelPair) string {
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, p.GetName()+"="+p.GetValue())
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}
