package metrics

import "github.com/prometheus/client_golang/prometheus"

// Distance sources reported by the resolver.
const (
	DistanceSourceRouted    = "routed"
	DistanceSourceHaversine = "haversine"
)

// DeliveryMetrics tracks distance resolution and eligibility outcomes.
type DeliveryMetrics struct {
	distance    *prometheus.CounterVec
	evaluations *prometheus.CounterVec
}

// NewDeliveryMetrics registers the delivery metrics on the provided registerer.
func NewDeliveryMetrics(reg prometheus.Registerer) *DeliveryMetrics {
	if reg == nil {
		return &DeliveryMetrics{}
	}
	distance := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "distance_resolutions_total",
		Help:      "Distance resolutions by source and fallback reason.",
	}, []string{"source", "reason"})
	evaluations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "eligibility_evaluations_total",
		Help:      "Eligibility evaluations by outcome.",
	}, []string{"serviceable"})
	reg.MustRegister(distance, evaluations)
	return &DeliveryMetrics{distance: distance, evaluations: evaluations}
}

// IncDistance counts one resolution; reason is empty for routed results.
func (d *DeliveryMetrics) IncDistance(source, reason string) {
	if d == nil || d.distance == nil {
		return
	}
	if reason == "" {
		reason = "none"
	}
	d.distance.WithLabelValues(source, reason).Inc()
}

// IncEvaluation counts one eligibility decision.
func (d *DeliveryMetrics) IncEvaluation(serviceable bool) {
	if d == nil || d.evaluations == nil {
		return
	}
	label := "false"
	if serviceable {
		label = "true"
	}
	d.evaluations.WithLabelValues(label).Inc()
}
