package geo

import (
	"context"
	"math"
	"time"

	"github.com/angelmondragon/droppoint-backend/pkg/logger"
	"github.com/angelmondragon/droppoint-backend/pkg/metrics"
	"github.com/angelmondragon/droppoint-backend/pkg/types"
)

const (
	defaultMaxPlausibleKm = 500
	defaultRouteTimeout   = 4 * time.Second

	reasonNoProvider    = "no_provider"
	reasonProviderError = "provider_error"
	reasonOutOfBand     = "out_of_band"
)

// Router is the external road-distance provider.
type Router interface {
	DrivingDistanceKm(ctx context.Context, origin, destination types.GeographyPoint) (float64, error)
}

// Distance is a resolved travel distance and where it came from.
type Distance struct {
	Km     float64
	Source string
}

// ResolverParams wires a Resolver.
type ResolverParams struct {
	Router         Router
	MaxPlausibleKm float64
	Timeout        time.Duration
	Metrics        *metrics.DeliveryMetrics
	Logger         *logger.Logger
}

// Resolver measures origin to destination travel distance. It prefers the
// routed road distance and degrades to the haversine estimate; it never fails.
type Resolver struct {
	router  Router
	maxKm   float64
	timeout time.Duration
	metrics *metrics.DeliveryMetrics
	logg    *logger.Logger
}

// NewResolver builds a resolver; a nil Router means haversine only.
func NewResolver(params ResolverParams) *Resolver {
	maxKm := params.MaxPlausibleKm
	if maxKm <= 0 {
		maxKm = defaultMaxPlausibleKm
	}
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = defaultRouteTimeout
	}
	return &Resolver{
		router:  params.Router,
		maxKm:   maxKm,
		timeout: timeout,
		metrics: params.Metrics,
		logg:    params.Logger,
	}
}

// ResolveKm returns the travel distance in kilometers.
func (r *Resolver) ResolveKm(ctx context.Context, origin, destination types.GeographyPoint) Distance {
	if r.router == nil {
		return r.fallback(ctx, origin, destination, reasonNoProvider, nil)
	}

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	km, err := r.router.DrivingDistanceKm(callCtx, origin, destination)
	cancel()
	if err != nil {
		return r.fallback(ctx, origin, destination, reasonProviderError, err)
	}
	if math.IsNaN(km) || km < 0 || km > r.maxKm {
		return r.fallback(ctx, origin, destination, reasonOutOfBand, nil)
	}

	r.metrics.IncDistance(metrics.DistanceSourceRouted, "")
	return Distance{Km: km, Source: metrics.DistanceSourceRouted}
}

func (r *Resolver) fallback(ctx context.Context, origin, destination types.GeographyPoint, reason string, cause error) Distance {
	r.metrics.IncDistance(metrics.DistanceSourceHaversine, reason)
	if r.logg != nil && reason != reasonNoProvider {
		logCtx := r.logg.WithField(ctx, "fallback_reason", reason)
		if cause != nil {
			logCtx = r.logg.WithField(logCtx, "error", cause.Error())
		}
		r.logg.Warn(logCtx, "routing provider unavailable, using haversine distance")
	}
	return Distance{
		Km:     HaversineKm(origin, destination),
		Source: metrics.DistanceSourceHaversine,
	}
}
