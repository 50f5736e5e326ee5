package orders

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/droppoint-backend/api/responses"
	"github.com/angelmondragon/droppoint-backend/api/validators"
	internalorders "github.com/angelmondragon/droppoint-backend/internal/orders"
	"github.com/angelmondragon/droppoint-backend/internal/payments"
	pkgerrors "github.com/angelmondragon/droppoint-backend/pkg/errors"
	"github.com/angelmondragon/droppoint-backend/pkg/logger"
)

// InitiatePayment opens (or returns the existing) gateway intent for an order.
func InitiatePayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
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

		intent, err := svc.Initiate(r.Context(), internalorders.InitiatePaymentInput{
			OrderID:        orderID,
			Actor:          actor,
			IdempotencyKey: strings.TrimSpace(r.Header.Get("Idempotency-Key")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, intent)
	}
}

type verifyPaymentRequest struct {
	GatewayOrderID   string `json:"gatewayOrderId" validate:"required,max=255"`
	GatewayPaymentID string `json:"gatewayPaymentId" validate:"required,max=255"`
	Signature        string `json:"signature" validate:"required,hexadecimal,max=128"`
}

// VerifyPayment settles an order from the gateway callback relayed by the client.
func VerifyPayment(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
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

		var payload verifyPaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Verify(r.Context(), payments.VerifyInput{
			OrderID:          orderID,
			GatewayOrderID:   strings.TrimSpace(payload.GatewayOrderID),
			GatewayPaymentID: strings.TrimSpace(payload.GatewayPaymentID),
			Signature:        payload.Signature,
			Actor:            actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeOrder(w, order)
	}
}
