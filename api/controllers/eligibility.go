package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/droppoint-backend/api/middleware"
	"github.com/angelmondragon/droppoint-backend/api/responses"
	"github.com/angelmondragon/droppoint-backend/api/validators"
	"github.com/angelmondragon/droppoint-backend/internal/eligibility"
	pkgerrors "github.com/angelmondragon/droppoint-backend/pkg/errors"
	"github.com/angelmondragon/droppoint-backend/pkg/logger"
	"github.com/angelmondragon/droppoint-backend/pkg/maps"
	"github.com/angelmondragon/droppoint-backend/pkg/types"
)

type quoteRequest struct {
	Lat        *float64 `json:"lat" validate:"required,latitude"`
	Lng        *float64 `json:"lng" validate:"required,longitude"`
	PostalCode string   `json:"postalCode" validate:"omitempty,postalcode"`
}

// EligibilityQuote answers whether a destination can be served and at what fee.
func EligibilityQuote(svc eligibility.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "eligibility service unavailable"))
			return
		}

		var payload quoteRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Evaluate(r.Context(), eligibility.Request{
			Destination: types.GeographyPoint{Lat: *payload.Lat, Lng: *payload.Lng},
			PostalCode:  validators.NormalizePostalCode(payload.PostalCode),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

type reverseGeocoder interface {
	ReverseGeocode(ctx context.Context, point types.GeographyPoint) (*maps.Address, error)
}

// ReverseGeocode resolves a point to a display address. It never feeds eligibility.
func ReverseGeocode(geocoder reverseGeocoder, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if geocoder == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "geocoding not configured"))
			return
		}
		lat, err := validators.ParseQueryFloat(r, "lat", -90, 90)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lng, err := validators.ParseQueryFloat(r, "lng", -180, 180)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		addr, err := geocoder.ReverseGeocode(r.Context(), types.GeographyPoint{Lat: lat, Lng: lng})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, addr)
	}
}

type originRequest struct {
	Label  string   `json:"label" validate:"required,max=120"`
	Lat    *float64 `json:"lat" validate:"required,latitude"`
	Lng    *float64 `json:"lng" validate:"required,longitude"`
	Active *bool    `json:"active"`
}

// AdminGetOrigin returns the dispatch origin singleton.
func AdminGetOrigin(svc eligibility.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "eligibility service unavailable"))
			return
		}
		origin, err := svc.GetOrigin(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, origin)
	}
}

// AdminSetOrigin replaces the dispatch origin singleton.
func AdminSetOrigin(svc eligibility.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "eligibility service unavailable"))
			return
		}
		userID, _, err := middleware.CallerFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload originRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		active := true
		if payload.Active != nil {
			active = *payload.Active
		}

		origin, err := svc.SetOrigin(r.Context(), eligibility.SetOriginInput{
			Label:    strings.TrimSpace(payload.Label),
			Location: types.GeographyPoint{Lat: *payload.Lat, Lng: *payload.Lng},
			Active:   active,
			ActorID:  userID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, origin)
	}
}
