package orders

import (
	"net/http"

	"github.com/angelmondragon/droppoint-backend/api/responses"
	"github.com/angelmondragon/droppoint-backend/api/validators"
	internalorders "github.com/angelmondragon/droppoint-backend/internal/orders"
	"github.com/angelmondragon/droppoint-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/droppoint-backend/pkg/errors"
	"github.com/angelmondragon/droppoint-backend/pkg/logger"
)

type fulfillmentRequest struct {
	Status string `json:"status" validate:"required,oneof=confirmed processing delivered cancelled"`
}

// AdvanceFulfillment moves an order one step along its lifecycle.
func AdvanceFulfillment(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload fulfillmentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.AdvanceFulfillment(r.Context(), internalorders.AdvanceFulfillmentInput{
			OrderID: orderID,
			Status:  enums.FulfillmentStatus(payload.Status),
			Actor:   actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeOrder(w, order)
	}
}

type paymentStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending paid"`
}

// SetPaymentStatus records cash collection for cash orders.
func SetPaymentStatus(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload paymentStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.SetPaymentStatus(r.Context(), internalorders.SetPaymentStatusInput{
			OrderID: orderID,
			Status:  enums.PaymentStatus(payload.Status),
			Actor:   actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeOrder(w, order)
	}
}
