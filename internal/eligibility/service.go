package eligibility

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/droppoint-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/droppoint-backend/pkg/errors"
	"github.com/angelmondragon/droppoint-backend/pkg/geo"
	"github.com/angelmondragon/droppoint-backend/pkg/logger"
	"github.com/angelmondragon/droppoint-backend/pkg/metrics"
	"github.com/angelmondragon/droppoint-backend/pkg/types"
)

// Reasons a destination was rejected.
const (
	ReasonOutsideServiceArea = "outside_service_area"
	ReasonNoSlotCoverage     = "no_slot_coverage"
	ReasonPostalNotEligible  = "postal_not_eligible"
)

// DistanceResolver measures travel distance; it never fails.
type DistanceResolver interface {
	ResolveKm(ctx context.Context, origin, destination types.GeographyPoint) geo.Distance
}

// Request is one eligibility question.
type Request struct {
	Destination types.GeographyPoint
	PostalCode  string
}

// Result is the eligibility decision. Fee and minutes are zero unless serviceable.
type Result struct {
	Serviceable      bool            `json:"serviceable"`
	DeliveryFee      decimal.Decimal `json:"deliveryFee"`
	EstimatedMinutes int             `json:"estimatedMinutes"`
	DistanceKm       float64         `json:"distanceKm"`
	DistanceSource   string          `json:"distanceSource,omitempty"`
	Reasons          []string        `json:"reasons,omitempty"`
}

// SetOriginInput is the admin data entry for the dispatch origin.
type SetOriginInput struct {
	Label    string
	Location types.GeographyPoint
	Active   bool
	ActorID  uuid.UUID
}

// Service answers serviceability questions and maintains the origin singleton.
type Service interface {
	Evaluate(ctx context.Context, req Request) (Result, error)
	GetOrigin(ctx context.Context) (*models.OriginCenter, error)
	SetOrigin(ctx context.Context, input SetOriginInput) (*models.OriginCenter, error)
}

// ServiceParams wires the eligibility service.
type ServiceParams struct {
	Repo     Repository
	Resolver DistanceResolver
	Metrics  *metrics.DeliveryMetrics
	Logger   *logger.Logger
}

type service struct {
	repo     Repository
	resolver DistanceResolver
	metrics  *metrics.DeliveryMetrics
	logg     *logger.Logger
	now      func() time.Time
}

// NewService validates the dependencies and builds the engine.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("eligibility repository required")
	}
	if params.Resolver == nil {
		return nil, fmt.Errorf("distance resolver required")
	}
	return &service{
		repo:     params.Repo,
		resolver: params.Resolver,
		metrics:  params.Metrics,
		logg:     params.Logger,
		now:      time.Now,
	}, nil
}

func (s *service) Evaluate(ctx context.Context, req Request) (Result, error) {
	if err := req.Destination.Validate(); err != nil {
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid destination")
	}

	snap, err := s.repo.LoadSnapshot(ctx)
	if err != nil {
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load area configuration")
	}

	origin, ok := snap.ActiveOrigin()
	if !ok {
		// Without an origin nothing can be measured; stay open rather than block checkout.
		s.metrics.IncEvaluation(true)
		return Result{Serviceable: true, DeliveryFee: decimal.Zero}, nil
	}

	postalOK, err := s.repo.IsPostalEligible(ctx, req.PostalCode)
	if err != nil {
		return Result{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check postal eligibility")
	}

	distance := s.resolver.ResolveKm(ctx, origin.Location, req.Destination)
	result := decide(*snap, req.Destination, distance, postalOK)

	s.metrics.IncEvaluation(result.Serviceable)
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"distance_km":     result.DistanceKm,
			"distance_source": result.DistanceSource,
			"serviceable":     result.Serviceable,
			"reasons":         strings.Join(result.Reasons, ","),
		})
		s.logg.Debug(logCtx, "eligibility evaluated")
	}
	return result, nil
}

// decide applies the area, slot and postal checks to an already resolved distance.
func decide(snap Snapshot, destination types.GeographyPoint, distance geo.Distance, postalOK bool) Result {
	result := Result{
		DeliveryFee:    decimal.Zero,
		DistanceKm:     distance.Km,
		DistanceSource: distance.Source,
	}

	if !inServiceArea(snap.ActiveServicePoints(), destination) {
		result.Reasons = append(result.Reasons, ReasonOutsideServiceArea)
	}

	charge, chargeOK := LookupSlot(snap.ChargeSlots, distance.Km)
	eta, etaOK := LookupSlot(snap.TimeSlots, distance.Km)
	if snap.HasSlots() && !chargeOK && !etaOK {
		result.Reasons = append(result.Reasons, ReasonNoSlotCoverage)
	}

	if !postalOK {
		result.Reasons = append(result.Reasons, ReasonPostalNotEligible)
	}

	result.Serviceable = len(result.Reasons) == 0
	if !result.Serviceable {
		return result
	}
	if chargeOK {
		result.DeliveryFee = charge.Value
	}
	if etaOK {
		// partial minutes round up; an ETA is never quoted early
		result.EstimatedMinutes = int(eta.Value.Ceil().IntPart())
	}
	return result
}

// inServiceArea is open when no geofence is configured, otherwise the
// destination must fall inside at least one circle.
func inServiceArea(points []models.ServicePoint, destination types.GeographyPoint) bool {
	if len(points) == 0 {
		return true
	}
	for _, sp := range points {
		if geo.WithinRadius(sp.Center, sp.RadiusKm, destination) {
			return true
		}
	}
	return false
}

func (s *service) GetOrigin(ctx context.Context) (*models.OriginCenter, error) {
	origin, err := s.repo.FindOrigin(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load origin")
	}
	if origin == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "origin not configured")
	}
	return origin, nil
}

func (s *service) SetOrigin(ctx context.Context, input SetOriginInput) (*models.OriginCenter, error) {
	label := strings.TrimSpace(input.Label)
	if label == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "label is required")
	}
	if err := input.Location.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid origin location")
	}

	origin := &models.OriginCenter{
		ID:        models.OriginCenterID,
		Label:     label,
		Location:  input.Location,
		Active:    input.Active,
		UpdatedAt: s.now().UTC(),
	}
	if input.ActorID != uuid.Nil {
		actor := input.ActorID
		origin.UpdatedBy = &actor
	}
	if err := s.repo.UpsertOrigin(ctx, origin); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save origin")
	}
	return origin, nil
}
