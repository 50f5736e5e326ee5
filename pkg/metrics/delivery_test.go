package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

func TestDeliveryMetricsCountsFallbacks(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewDeliveryMetrics(reg)
	m.IncDistance(DistanceSourceRouted, "")
	m.IncDistance(DistanceSourceHaversine, "provider_error")
	m.IncDistance(DistanceSourceHaversine, "provider_error")
	m.IncEvaluation(true)

	assert.Equal(t, map[string]float64{
		"reason=none,source=" + DistanceSourceRouted:              1,
		"reason=provider_error,source=" + DistanceSourceHaversine: 2,
	}, counters(t, reg, "droppoint_distance_resolutions_total"))
	assert.Equal(t, map[string]float64{"serviceable=true": 1},
		counters(t, reg, "droppoint_eligibility_evaluations_total"))
}

func TestDeliveryMetricsNilSafe(t *testing.T) {
	var m *DeliveryMetrics
	m.IncDistance(DistanceSourceRouted, "")
	m.IncEvaluation(false)
	NewDeliveryMetrics(nil).IncEvaluation(true)
}
