package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/droppoint-backend/internal/catalog"
	"github.com/angelmondragon/droppoint-backend/internal/eligibility"
	"github.com/angelmondragon/droppoint-backend/pkg/db/models"
	"github.com/angelmondragon/droppoint-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/droppoint-backend/pkg/errors"
	"github.com/angelmondragon/droppoint-backend/pkg/logger"
	"github.com/angelmondragon/droppoint-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/droppoint-backend/pkg/pagination"
)

const maxLineQuantity = 999

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Eligibility is the subset of the eligibility engine checkout relies on.
type Eligibility interface {
	Evaluate(ctx context.Context, req eligibility.Request) (eligibility.Result, error)
}

// PaymentInitiator opens gateway intents once a gateway order is persisted.
type PaymentInitiator interface {
	Initiate(ctx context.Context, input InitiatePaymentInput) (*PaymentIntent, error)
}

// Service owns the order lifecycle.
type Service interface {
	PlaceOrder(ctx context.Context, input PlaceOrderInput) (*PlaceOrderResult, error)
	AdvanceFulfillment(ctx context.Context, input AdvanceFulfillmentInput) (*models.Order, error)
	SetPaymentStatus(ctx context.Context, input SetPaymentStatusInput) (*models.Order, error)
	Get(ctx context.Context, viewer Actor, orderID uuid.UUID) (*models.Order, error)
	List(ctx context.Context, viewer Actor, params ListParams) (*OrderList, error)
	ExpireStaleIntents(ctx context.Context, cutoff time.Time, limit int) (int, error)
}

// ServiceParams wires the orders service.
type ServiceParams struct {
	Repo        Repository
	Tx          txRunner
	Recorder    *ChangeRecorder
	Catalog     catalog.Lookup
	Eligibility Eligibility
	Payments    PaymentInitiator
	Currency    string
	Logger      *logger.Logger
}

type service struct {
	repo        Repository
	tx          txRunner
	recorder    *ChangeRecorder
	catalog     catalog.Lookup
	eligibility Eligibility
	payments    PaymentInitiator
	currency    string
	logg        *logger.Logger
}

// NewService builds the orders service with the required dependencies.
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
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog lookup required")
	}
	if params.Eligibility == nil {
		return nil, fmt.Errorf("eligibility engine required")
	}
	currency := strings.ToUpper(strings.TrimSpace(params.Currency))
	if currency == "" {
		return nil, fmt.Errorf("currency required")
	}
	return &service{
		repo:        params.Repo,
		tx:          params.Tx,
		recorder:    params.Recorder,
		catalog:     params.Catalog,
		eligibility: params.Eligibility,
		payments:    params.Payments,
		currency:    currency,
		logg:        params.Logger,
	}, nil
}

func (s *service) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*PlaceOrderResult, error) {
	if input.Actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	if input.PaymentMethod == enums.PaymentMethodGateway && s.payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment gateway not configured")
	}
	dest, err := normalizeDestination(input.Destination)
	if err != nil {
		return nil, err
	}
	quantities, refs, err := mergeItems(input.Items)
	if err != nil {
		return nil, err
	}

	lines := make([]models.OrderLineItem, 0, len(refs))
	for _, ref := range refs {
		item, err := s.catalog.ResolveItem(ctx, ref)
		if err != nil {
			return nil, err
		}
		qty := quantities[ref]
		lines = append(lines, models.OrderLineItem{
			ID:            uuid.New(),
			CatalogItemID: item.ID,
			Name:          item.Name,
			Quantity:      qty,
			UnitPrice:     item.UnitPrice,
			LineTotal:     item.UnitPrice.Mul(decimal.NewFromInt(int64(qty))),
		})
	}

	decision, err := s.eligibility.Evaluate(ctx, eligibility.Request{
		Destination: *dest.Point,
		PostalCode:  dest.PostalCode,
	})
	if err != nil {
		return nil, err
	}
	if !decision.Serviceable {
		return nil, pkgerrors.New(pkgerrors.CodeNotServiceable, "destination is not serviceable").
			WithDetails(map[string]any{"reasons": decision.Reasons})
	}

	order := &models.Order{
		ID:                uuid.New(),
		CustomerID:        input.Actor.UserID,
		AddressLine:       dest.AddressLine,
		Building:          dest.Building,
		Unit:              dest.Unit,
		PostalCode:        dest.PostalCode,
		Destination:       dest.Point,
		DistanceKm:        decision.DistanceKm,
		DeliveryFee:       decision.DeliveryFee,
		EstimatedMinutes:  decision.EstimatedMinutes,
		Currency:          s.currency,
		PaymentMethod:     input.PaymentMethod,
		PaymentStatus:     enums.PaymentStatusPending,
		FulfillmentStatus: enums.FulfillmentPending,
		LineItems:         lines,
	}

	var created payloads.OrderChangedEvent
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist order")
		}
		created, err = s.recorder.Record(ctx, tx, enums.EventOrderCreated, *order, input.Actor)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit order created")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.recorder.Broadcast(ctx, created)
	s.logInfo(ctx, order.ID, "order placed")

	result := &PlaceOrderResult{Order: order}
	if order.PaymentMethod != enums.PaymentMethodGateway {
		return result, nil
	}

	intent, err := s.payments.Initiate(ctx, InitiatePaymentInput{
		OrderID:        order.ID,
		Actor:          input.Actor,
		IdempotencyKey: input.IdempotencyKey,
	})
	if err != nil {
		code := pkgerrors.CodeDependency
		if typed := pkgerrors.As(err); typed != nil && typed.Code() != pkgerrors.CodeInternal {
			code = typed.Code()
		}
		result.PaymentErr = pkgerrors.Wrap(code, err, "payment initiation failed").
			WithDetails(map[string]any{"orderId": order.ID.String()})
		if s.logg != nil {
			s.logg.Error(s.logg.WithOrderID(ctx, order.ID.String()), "payment intent not opened for placed order", err)
		}
		return result, nil
	}
	intentID := intent.GatewayIntentID
	order.GatewayIntentID = &intentID
	result.Payment = intent
	return result, nil
}

func (s *service) AdvanceFulfillment(ctx context.Context, input AdvanceFulfillmentInput) (*models.Order, error) {
	if err := requireOperator(input.Actor); err != nil {
		return nil, err
	}
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid fulfillment status")
	}

	var (
		updated *models.Order
		changed payloads.OrderChangedEvent
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := loadForUpdate(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if !CanTransition(order.FulfillmentStatus, input.Status) {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition,
				fmt.Sprintf("cannot move order from %s to %s", order.FulfillmentStatus, input.Status)).
				WithDetails(map[string]any{"from": order.FulfillmentStatus, "to": input.Status})
		}
		if order.PaymentMethod == enums.PaymentMethodGateway &&
			order.FulfillmentStatus == enums.FulfillmentPending &&
			input.Status == enums.FulfillmentConfirmed &&
			order.PaymentStatus != enums.PaymentStatusPaid {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "gateway order cannot be confirmed before payment settles")
		}

		now := time.Now().UTC()
		updates := map[string]any{"fulfillment_status": input.Status, "updated_at": now}
		order.FulfillmentStatus = input.Status
		order.UpdatedAt = now
		claimHandler(order, input.Actor, updates)
		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update fulfillment status")
		}
		changed, err = s.recorder.Record(ctx, tx, enums.EventOrderFulfillmentChanged, *order, input.Actor)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit fulfillment change")
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.recorder.Broadcast(ctx, changed)
	return updated, nil
}

func (s *service) SetPaymentStatus(ctx context.Context, input SetPaymentStatusInput) (*models.Order, error) {
	if err := requireOperator(input.Actor); err != nil {
		return nil, err
	}
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment status")
	}

	var (
		updated *models.Order
		changed *payloads.OrderChangedEvent
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := loadForUpdate(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if order.PaymentMethod != enums.PaymentMethodCash {
			return pkgerrors.New(pkgerrors.CodeForbidden, "payment status of gateway orders is set by the gateway only")
		}
		updated = order
		if order.PaymentStatus == input.Status {
			return nil
		}

		now := time.Now().UTC()
		updates := map[string]any{"payment_status": input.Status, "updated_at": now}
		order.PaymentStatus = input.Status
		order.UpdatedAt = now
		claimHandler(order, input.Actor, updates)
		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update payment status")
		}
		event, err := s.recorder.Record(ctx, tx, enums.EventOrderPaymentChanged, *order, input.Actor)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit payment change")
		}
		changed = &event
		return nil
	})
	if err != nil {
		return nil, err
	}
	if changed != nil {
		s.recorder.Broadcast(ctx, *changed)
	}
	return updated, nil
}

func (s *service) Get(ctx context.Context, viewer Actor, orderID uuid.UUID) (*models.Order, error) {
	if viewer.UserID == uuid.Nil && viewer.Role != enums.ActorRoleSystem {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if isNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	if !CanView(viewer, *order) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) List(ctx context.Context, viewer Actor, params ListParams) (*OrderList, error) {
	if viewer.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	query := ListQuery{
		Status: params.Status,
		Limit:  params.Pagination.Limit,
		Cursor: params.Pagination.Cursor,
	}
	if !viewer.Role.IsOperator() {
		customerID := viewer.UserID
		query.CustomerID = &customerID
	}
	if _, err := pagination.ParseCursor(query.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	list, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	return list, nil
}

// ExpireStaleIntents cancels gateway orders whose payment never settled before cutoff.
func (s *service) ExpireStaleIntents(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	stale, err := s.repo.FindStaleIntents(ctx, cutoff, limit)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "find stale intents")
	}

	expired := 0
	for _, candidate := range stale {
		var event *payloads.OrderChangedEvent
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			order, err := loadForUpdate(ctx, repo, candidate.ID)
			if err != nil {
				return err
			}
			if order.PaymentStatus != enums.PaymentStatusPending || order.FulfillmentStatus != enums.FulfillmentPending {
				return nil
			}
			now := time.Now().UTC()
			if err := repo.Update(ctx, order.ID, map[string]any{
				"fulfillment_status": enums.FulfillmentCancelled,
				"updated_at":         now,
			}); err != nil {
				return err
			}
			order.FulfillmentStatus = enums.FulfillmentCancelled
			order.UpdatedAt = now
			recorded, err := s.recorder.RecordOnce(ctx, tx, enums.EventOrderPaymentExpired, *order, SystemActor)
			if err != nil {
				return err
			}
			event = &recorded
			return nil
		})
		if err != nil {
			if s.logg != nil {
				s.logg.Error(s.logg.WithOrderID(ctx, candidate.ID.String()), "expire payment intent failed", err)
			}
			continue
		}
		if event != nil {
			expired++
			s.recorder.Broadcast(ctx, *event)
		}
	}
	return expired, nil
}

// CanView reports whether viewer may read order.
func CanView(viewer Actor, order models.Order) bool {
	if viewer.Role.IsOperator() || viewer.Role == enums.ActorRoleSystem {
		return true
	}
	return viewer.UserID != uuid.Nil && viewer.UserID == order.CustomerID
}

func requireOperator(actor Actor) error {
	if actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !actor.Role.IsOperator() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "staff or admin role required")
	}
	return nil
}

// claimHandler records the first operator who touched the order.
func claimHandler(order *models.Order, actor Actor, updates map[string]any) {
	if order.HandledBy != nil || !actor.Role.IsOperator() || actor.UserID == uuid.Nil {
		return
	}
	handler := actor.UserID
	order.HandledBy = &handler
	updates["handled_by"] = handler
}

func loadForUpdate(ctx context.Context, repo Repository, id uuid.UUID) (*models.Order, error) {
	order, err := repo.FindForUpdate(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	return order, nil
}

func normalizeDestination(dest DestinationInput) (DestinationInput, error) {
	dest.AddressLine = strings.TrimSpace(dest.AddressLine)
	dest.PostalCode = strings.TrimSpace(dest.PostalCode)
	if dest.AddressLine == "" {
		return dest, pkgerrors.New(pkgerrors.CodeValidation, "address line required")
	}
	if dest.PostalCode == "" {
		return dest, pkgerrors.New(pkgerrors.CodeValidation, "postal code required")
	}
	if dest.Point == nil {
		return dest, pkgerrors.New(pkgerrors.CodeValidation, "destination point required")
	}
	if err := dest.Point.Validate(); err != nil {
		return dest, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid destination point")
	}
	dest.Building = trimOptional(dest.Building)
	dest.Unit = trimOptional(dest.Unit)
	return dest, nil
}

// mergeItems folds repeated refs into one line, preserving first-seen order.
func mergeItems(items []CartItem) (map[uuid.UUID]int, []uuid.UUID, error) {
	if len(items) == 0 {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item required")
	}
	quantities := make(map[uuid.UUID]int, len(items))
	refs := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		if item.CatalogRef == uuid.Nil {
			return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "catalog ref required")
		}
		if item.Quantity <= 0 {
			return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
				WithDetails(map[string]any{"catalogRef": item.CatalogRef.String()})
		}
		if _, seen := quantities[item.CatalogRef]; !seen {
			refs = append(refs, item.CatalogRef)
		}
		quantities[item.CatalogRef] += item.Quantity
		if quantities[item.CatalogRef] > maxLineQuantity {
			return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("quantity exceeds %d", maxLineQuantity))
		}
	}
	return quantities, refs, nil
}

func trimOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func (s *service) logInfo(ctx context.Context, orderID uuid.UUID, msg string) {
	if s.logg == nil {
		return
	}
	s.logg.Info(s.logg.WithOrderID(ctx, orderID.String()), msg)
}
