package orders

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/droppoint-backend/api/middleware"
	"github.com/angelmondragon/droppoint-backend/api/responses"
	"github.com/angelmondragon/droppoint-backend/api/validators"
	internalorders "github.com/angelmondragon/droppoint-backend/internal/orders"
	"github.com/angelmondragon/droppoint-backend/pkg/db/models"
	"github.com/angelmondragon/droppoint-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/droppoint-backend/pkg/errors"
	"github.com/angelmondragon/droppoint-backend/pkg/logger"
	"github.com/angelmondragon/droppoint-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/droppoint-backend/pkg/pagination"
	"github.com/angelmondragon/droppoint-backend/pkg/types"
)

type cartItemRequest struct {
	CatalogRef string `json:"catalogRef" validate:"required,uuid"`
	Quantity   int    `json:"quantity" validate:"required,gt=0,lte=999"`
}

type destinationRequest struct {
	AddressLine string   `json:"addressLine" validate:"required,max=255"`
	Building    *string  `json:"building" validate:"omitempty,max=120"`
	Unit        *string  `json:"unit" validate:"omitempty,max=60"`
	PostalCode  string   `json:"postalCode" validate:"required,postalcode"`
	Lat         *float64 `json:"lat" validate:"required,latitude"`
	Lng         *float64 `json:"lng" validate:"required,longitude"`
}

type placeOrderRequest struct {
	Items         []cartItemRequest  `json:"items" validate:"required,min=1,dive"`
	Destination   destinationRequest `json:"destination"`
	PaymentMethod string             `json:"paymentMethod" validate:"required,oneof=cash gateway"`
}

type placeOrderResponse struct {
	Order        payloads.OrderView            `json:"order"`
	Payment      *internalorders.PaymentIntent `json:"payment,omitempty"`
	PaymentError *types.APIError               `json:"paymentError,omitempty"`
}

// PlaceOrder runs checkout for the calling customer.
func PlaceOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
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

		var payload placeOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]internalorders.CartItem, 0, len(payload.Items))
		for _, item := range payload.Items {
			ref, err := uuid.Parse(item.CatalogRef)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid catalog ref"))
				return
			}
			items = append(items, internalorders.CartItem{CatalogRef: ref, Quantity: item.Quantity})
		}

		dest := payload.Destination
		input := internalorders.PlaceOrderInput{
			Actor: actor,
			Items: items,
			Destination: internalorders.DestinationInput{
				AddressLine: validators.SanitizeString(dest.AddressLine, 255),
				Building:    dest.Building,
				Unit:        dest.Unit,
				PostalCode:  validators.NormalizePostalCode(dest.PostalCode),
				Point:       &types.GeographyPoint{Lat: *dest.Lat, Lng: *dest.Lng},
			},
			PaymentMethod:  enums.PaymentMethod(payload.PaymentMethod),
			IdempotencyKey: strings.TrimSpace(r.Header.Get("Idempotency-Key")),
		}

		result, err := svc.PlaceOrder(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		// the order exists even when its intent failed, so this stays a 201
		// and the idempotency key replays it instead of placing a second order
		body := placeOrderResponse{
			Order:   payloads.NewOrderView(*result.Order),
			Payment: result.Payment,
		}
		if result.PaymentErr != nil {
			described := responses.Describe(result.PaymentErr)
			body.PaymentError = &described
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, body)
	}
}

type orderListResponse struct {
	Orders     []payloads.OrderView `json:"orders"`
	NextCursor string               `json:"nextCursor,omitempty"`
}

// List returns a cursor page of orders. Customers only see their own.
func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
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

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := internalorders.ListParams{
			Pagination: pagination.Params{
				Limit:  limit,
				Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
			},
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseFulfillmentStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			params.Status = &status
		}

		page, err := svc.List(r.Context(), actor, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := orderListResponse{
			Orders:     make([]payloads.OrderView, 0, len(page.Orders)),
			NextCursor: page.NextCursor,
		}
		for _, order := range page.Orders {
			resp.Orders = append(resp.Orders, payloads.NewOrderView(order))
		}
		responses.WriteSuccess(w, resp)
	}
}

// Detail returns one order in the same shape as the live stream.
func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
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

		order, err := svc.Get(r.Context(), actor, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeOrder(w, order)
	}
}

func actorFromRequest(r *http.Request) (internalorders.Actor, error) {
	userID, role, err := middleware.CallerFromContext(r.Context())
	if err != nil {
		return internalorders.Actor{}, err
	}
	return internalorders.Actor{UserID: userID, Role: role}, nil
}

func parseOrderID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "orderId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id")
	}
	return id, nil
}

func writeOrder(w http.ResponseWriter, order *models.Order) {
	responses.WriteSuccess(w, payloads.NewOrderView(*order))
}
