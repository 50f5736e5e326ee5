package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/droppoint-backend/internal/orders"
	"github.com/angelmondragon/droppoint-backend/pkg/db/models"
	"github.com/angelmondragon/droppoint-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/droppoint-backend/pkg/errors"
	"github.com/angelmondragon/droppoint-backend/pkg/logger"
	"github.com/angelmondragon/droppoint-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/droppoint-backend/pkg/square"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Gateway opens payable orders with the payment provider.
type Gateway interface {
	CreateOrderIntent(ctx context.Context, params square.OrderIntentParams) (string, error)
}

// VerifyInput is the client-relayed gateway confirmation.
type VerifyInput struct {
	OrderID          uuid.UUID
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
	Actor            orders.Actor
}

// Service opens gateway intents and settles verified payments.
type Service interface {
	Initiate(ctx context.Context, input orders.InitiatePaymentInput) (*orders.PaymentIntent, error)
	Verify(ctx context.Context, input VerifyInput) (*models.Order, error)
}

// ServiceParams wires the payments service.
type ServiceParams struct {
	Repo          orders.Repository
	Tx            txRunner
	Recorder      *orders.ChangeRecorder
	Gateway       Gateway
	SigningSecret string
	Logger        *logger.Logger
}

type service struct {
	repo     orders.Repository
	tx       txRunner
	recorder *orders.ChangeRecorder
	gateway  Gateway
	secret   string
	logg     *logger.Logger
	now      func() time.Time
}

// NewService validates dependencies and builds the payments service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Recorder == nil {
		return nil, fmt.Errorf("change recorder required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if strings.TrimSpace(params.SigningSecret) == "" {
		return nil, fmt.Errorf("signing secret required")
	}
	return &service{
		repo:     params.Repo,
		tx:       params.Tx,
		recorder: params.Recorder,
		gateway:  params.Gateway,
		secret:   params.SigningSecret,
		logg:     params.Logger,
		now:      time.Now,
	}, nil
}

func (s *service) Initiate(ctx context.Context, input orders.InitiatePaymentInput) (*orders.PaymentIntent, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, input.OrderID)
	if err != nil {
		return nil, mapLoadError(err)
	}
	if !orders.CanView(input.Actor, *order) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if err := ensurePayable(order); err != nil {
		return nil, err
	}

	amount := MinorUnits(order.TotalAmount(), order.Currency)
	if order.GatewayIntentID != nil {
		return intentFor(order, *order.GatewayIntentID, amount), nil
	}

	key := strings.TrimSpace(input.IdempotencyKey)
	if key == "" {
		key = "intent-" + order.ID.String()
	}
	gatewayID, err := s.gateway.CreateOrderIntent(ctx, square.OrderIntentParams{
		AmountMinor:    amount,
		Currency:       order.Currency,
		ReferenceID:    order.ID.String(),
		Description:    "Delivery order " + order.ID.String()[:8],
		IdempotencyKey: key,
	})
	if err != nil {
		return nil, err
	}

	var (
		result  *orders.PaymentIntent
		changed *payloads.OrderChangedEvent
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		locked, err := repo.FindForUpdate(ctx, order.ID)
		if err != nil {
			return mapLoadError(err)
		}
		if locked.GatewayIntentID != nil {
			result = intentFor(locked, *locked.GatewayIntentID, amount)
			return nil
		}
		if err := ensurePayable(locked); err != nil {
			return err
		}
		now := s.now().UTC()
		if err := repo.Update(ctx, locked.ID, map[string]any{
			"gateway_intent_id": gatewayID,
			"intent_created_at": now,
			"updated_at":        now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store payment intent")
		}
		locked.GatewayIntentID = &gatewayID
		locked.IntentCreatedAt = &now
		locked.UpdatedAt = now
		event, err := s.recorder.Record(ctx, tx, enums.EventOrderPaymentInitiated, *locked, input.Actor)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit payment initiated")
		}
		changed = &event
		result = intentFor(locked, gatewayID, amount)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if changed != nil {
		s.recorder.Broadcast(ctx, *changed)
		if s.logg != nil {
			s.logg.Info(s.logg.WithOrderID(ctx, order.ID.String()), "payment intent opened")
		}
	}
	return result, nil
}

func (s *service) Verify(ctx context.Context, input VerifyInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	gatewayOrderID := strings.TrimSpace(input.GatewayOrderID)
	gatewayPaymentID := strings.TrimSpace(input.GatewayPaymentID)
	if gatewayOrderID == "" || gatewayPaymentID == "" || strings.TrimSpace(input.Signature) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gateway order id, payment id and signature are required")
	}
	if !ValidSignature(s.secret, gatewayOrderID, gatewayPaymentID, input.Signature) {
		s.logMismatch(ctx, input.OrderID, "signature")
		return nil, pkgerrors.New(pkgerrors.CodeSignatureMismatch, "payment signature mismatch")
	}

	var (
		settled *models.Order
		changed *payloads.OrderChangedEvent
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindForUpdate(ctx, input.OrderID)
		if err != nil {
			return mapLoadError(err)
		}
		if !orders.CanView(input.Actor, *order) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if order.PaymentMethod != enums.PaymentMethodGateway {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not paid through the gateway")
		}
		if order.GatewayIntentID == nil || *order.GatewayIntentID != gatewayOrderID {
			s.logMismatch(ctx, order.ID, "intent")
			return pkgerrors.New(pkgerrors.CodeSignatureMismatch, "payment does not belong to this order")
		}
		if order.PaymentStatus == enums.PaymentStatusPaid {
			if order.GatewayPaymentID != nil && *order.GatewayPaymentID == gatewayPaymentID {
				settled = order
				return nil
			}
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order already settled by another payment")
		}
		if order.FulfillmentStatus == enums.FulfillmentCancelled {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is no longer payable")
		}

		now := s.now().UTC()
		signature := strings.ToLower(strings.TrimSpace(input.Signature))
		updates := map[string]any{
			"payment_status":     enums.PaymentStatusPaid,
			"gateway_payment_id": gatewayPaymentID,
			"gateway_signature":  signature,
			"updated_at":         now,
		}
		order.PaymentStatus = enums.PaymentStatusPaid
		order.GatewayPaymentID = &gatewayPaymentID
		order.GatewaySignature = &signature
		order.UpdatedAt = now
		if order.FulfillmentStatus == enums.FulfillmentPending {
			updates["fulfillment_status"] = enums.FulfillmentConfirmed
			order.FulfillmentStatus = enums.FulfillmentConfirmed
		}
		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "settle payment")
		}
		event, err := s.recorder.Record(ctx, tx, enums.EventOrderPaymentSettled, *order, input.Actor)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit payment settled")
		}
		changed = &event
		settled = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	if changed != nil {
		s.recorder.Broadcast(ctx, *changed)
	}
	return settled, nil
}

func ensurePayable(order *models.Order) error {
	if order.PaymentMethod != enums.PaymentMethodGateway {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not paid through the gateway")
	}
	if order.PaymentStatus == enums.PaymentStatusPaid {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order already paid")
	}
	if order.FulfillmentStatus.IsTerminal() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order is no longer payable")
	}
	return nil
}

func intentFor(order *models.Order, gatewayID string, amount int64) *orders.PaymentIntent {
	return &orders.PaymentIntent{
		OrderID:         order.ID,
		GatewayIntentID: gatewayID,
		AmountMinor:     amount,
		Currency:        order.Currency,
	}
}

func mapLoadError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
}

func (s *service) logMismatch(ctx context.Context, orderID uuid.UUID, kind string) {
	if s.logg == nil {
		return
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{"order_id": orderID.String(), "mismatch": kind})
	s.logg.Warn(logCtx, "payment verification rejected")
}
