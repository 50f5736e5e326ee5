package payments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/droppoint-backend/internal/orders"
	dbpkg "github.com/angelmondragon/droppoint-backend/pkg/db"
	"github.com/angelmondragon/droppoint-backend/pkg/db/dbtest"
	"github.com/angelmondragon/droppoint-backend/pkg/db/models"
	"github.com/angelmondragon/droppoint-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/droppoint-backend/pkg/errors"
	"github.com/angelmondragon/droppoint-backend/pkg/outbox"
	"github.com/angelmondragon/droppoint-backend/pkg/square"
	"github.com/angelmondragon/droppoint-backend/pkg/types"
)

const testSecret = "whsec_test"

type fakeGateway struct {
	id    string
	err   error
	calls []square.OrderIntentParams
}

func (f *fakeGateway) CreateOrderIntent(_ context.Context, params square.OrderIntentParams) (string, error) {
	f.calls = append(f.calls, params)
	return f.id, f.err
}

type fixture struct {
	db       *gorm.DB
	repo     orders.Repository
	svc      Service
	gateway  *fakeGateway
	customer orders.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.Open(t, dbtest.Orders, dbtest.OrderLineItems, dbtest.OutboxEvents)
	repo := orders.NewRepository(db)
	recorder, err := orders.NewChangeRecorder(outbox.NewService(outbox.NewRepository(db), nil), nil, nil)
	require.NoError(t, err)
	gateway := &fakeGateway{id: "sq-order-1"}
	svc, err := NewService(ServiceParams{
		Repo:          repo,
		Tx:            dbpkg.NewFromConn(db),
		Recorder:      recorder,
		Gateway:       gateway,
		SigningSecret: testSecret,
	})
	require.NoError(t, err)
	return &fixture{
		db:       db,
		repo:     repo,
		svc:      svc,
		gateway:  gateway,
		customer: orders.Actor{UserID: uuid.New(), Role: enums.ActorRoleCustomer},
	}
}

func (f *fixture) seed(t *testing.T, method enums.PaymentMethod) *models.Order {
	t.Helper()
	point := types.GeographyPoint{Lat: 0, Lng: 0.03}
	order := &models.Order{
		CustomerID:        f.customer.UserID,
		AddressLine:       "12 Harbor Rd",
		PostalCode:        "100001",
		Destination:       &point,
		DistanceKm:        3.3,
		DeliveryFee:       decimal.NewFromInt(20),
		EstimatedMinutes:  30,
		Currency:          "USD",
		PaymentMethod:     method,
		PaymentStatus:     enums.PaymentStatusPending,
		FulfillmentStatus: enums.FulfillmentPending,
		LineItems: []models.OrderLineItem{{
			CatalogItemID: uuid.New(),
			Name:          "Water 20L",
			Quantity:      3,
			UnitPrice:     decimal.RequireFromString("12.50"),
			LineTotal:     decimal.RequireFromString("37.50"),
		}},
	}
	require.NoError(t, f.repo.Create(context.Background(), order))
	return order
}

func (f *fixture) eventTypes(t *testing.T, orderID uuid.UUID) []enums.OutboxEventType {
	t.Helper()
	var rows []models.OutboxEvent
	require.NoError(t, f.db.Where("aggregate_id = ?", orderID).Order("created_at ASC").Find(&rows).Error)
	out := make([]enums.OutboxEventType, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.EventType)
	}
	return out
}

func TestNewServiceRequiresSecret(t *testing.T) {
	db := dbtest.Open(t, dbtest.Orders)
	recorder, err := orders.NewChangeRecorder(outbox.NewService(outbox.NewRepository(db), nil), nil, nil)
	require.NoError(t, err)
	_, err = NewService(ServiceParams{
		Repo:     orders.NewRepository(db),
		Tx:       dbpkg.NewFromConn(db),
		Recorder: recorder,
		Gateway:  &fakeGateway{},
	})
	require.Error(t, err)
}

func TestInitiateStoresIntent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.seed(t, enums.PaymentMethodGateway)

	intent, err := f.svc.Initiate(ctx, orders.InitiatePaymentInput{OrderID: order.ID, Actor: f.customer, IdempotencyKey: "idem-42"})
	require.NoError(t, err)
	assert.Equal(t, "sq-order-1", intent.GatewayIntentID)
	assert.EqualValues(t, 5750, intent.AmountMinor)
	assert.Equal(t, "USD", intent.Currency)

	require.Len(t, f.gateway.calls, 1)
	assert.Equal(t, order.ID.String(), f.gateway.calls[0].ReferenceID)
	assert.Equal(t, "idem-42", f.gateway.calls[0].IdempotencyKey)

	stored, err := f.repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.GatewayIntentID)
	assert.Equal(t, "sq-order-1", *stored.GatewayIntentID)
	assert.NotNil(t, stored.IntentCreatedAt)

	again, err := f.svc.Initiate(ctx, orders.InitiatePaymentInput{OrderID: order.ID, Actor: f.customer})
	require.NoError(t, err)
	assert.Equal(t, "sq-order-1", again.GatewayIntentID)
	assert.Len(t, f.gateway.calls, 1, "existing intent is reused")
	assert.Equal(t, []enums.OutboxEventType{enums.EventOrderPaymentInitiated}, f.eventTypes(t, order.ID))
}

func TestInitiateRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cash := f.seed(t, enums.PaymentMethodCash)
	_, err := f.svc.Initiate(ctx, orders.InitiatePaymentInput{OrderID: cash.ID, Actor: f.customer})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	gateway := f.seed(t, enums.PaymentMethodGateway)
	stranger := orders.Actor{UserID: uuid.New(), Role: enums.ActorRoleCustomer}
	_, err = f.svc.Initiate(ctx, orders.InitiatePaymentInput{OrderID: gateway.ID, Actor: stranger})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	f.gateway.err = pkgerrors.New(pkgerrors.CodeDependency, "square unavailable")
	_, err = f.svc.Initiate(ctx, orders.InitiatePaymentInput{OrderID: gateway.ID, Actor: f.customer})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	stored, findErr := f.repo.FindByID(ctx, gateway.ID)
	require.NoError(t, findErr)
	assert.Nil(t, stored.GatewayIntentID)
	assert.Empty(t, f.eventTypes(t, gateway.ID))
}

func TestVerifySettlesGatewayOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.seed(t, enums.PaymentMethodGateway)
	_, err := f.svc.Initiate(ctx, orders.InitiatePaymentInput{OrderID: order.ID, Actor: f.customer})
	require.NoError(t, err)

	settled, err := f.svc.Verify(ctx, VerifyInput{
		OrderID:          order.ID,
		GatewayOrderID:   "sq-order-1",
		GatewayPaymentID: "pay-9",
		Signature:        Sign(testSecret, "sq-order-1", "pay-9"),
		Actor:            f.customer,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPaid, settled.PaymentStatus)
	assert.Equal(t, enums.FulfillmentConfirmed, settled.FulfillmentStatus)

	stored, err := f.repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPaid, stored.PaymentStatus)
	assert.Equal(t, enums.FulfillmentConfirmed, stored.FulfillmentStatus)
	require.NotNil(t, stored.GatewayPaymentID)
	assert.Equal(t, "pay-9", *stored.GatewayPaymentID)
	require.NotNil(t, stored.GatewaySignature)
	assert.Nil(t, stored.HandledBy)

	replay, err := f.svc.Verify(ctx, VerifyInput{
		OrderID:          order.ID,
		GatewayOrderID:   "sq-order-1",
		GatewayPaymentID: "pay-9",
		Signature:        Sign(testSecret, "sq-order-1", "pay-9"),
		Actor:            f.customer,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPaid, replay.PaymentStatus)
	assert.Equal(t, []enums.OutboxEventType{enums.EventOrderPaymentInitiated, enums.EventOrderPaymentSettled}, f.eventTypes(t, order.ID))
}

func TestVerifyMismatchLeavesOrderUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.seed(t, enums.PaymentMethodGateway)
	_, err := f.svc.Initiate(ctx, orders.InitiatePaymentInput{OrderID: order.ID, Actor: f.customer})
	require.NoError(t, err)

	cases := map[string]VerifyInput{
		"tampered payment": {GatewayOrderID: "sq-order-1", GatewayPaymentID: "pay-10", Signature: Sign(testSecret, "sq-order-1", "pay-9")},
		"wrong secret":     {GatewayOrderID: "sq-order-1", GatewayPaymentID: "pay-9", Signature: Sign("nope", "sq-order-1", "pay-9")},
		"other intent":     {GatewayOrderID: "sq-order-2", GatewayPaymentID: "pay-9", Signature: Sign(testSecret, "sq-order-2", "pay-9")},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			in.OrderID = order.ID
			in.Actor = f.customer
			_, err := f.svc.Verify(ctx, in)
			require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeSignatureMismatch), "got %v", err)
			assert.True(t, pkgerrors.MetadataFor(pkgerrors.CodeSignatureMismatch).Retryable)
		})
	}

	stored, err := f.repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPending, stored.PaymentStatus)
	assert.Equal(t, enums.FulfillmentPending, stored.FulfillmentStatus)
	assert.Nil(t, stored.GatewayPaymentID)

	_, err = f.svc.Verify(ctx, VerifyInput{OrderID: order.ID, Actor: f.customer})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestVerifyAfterExpiryIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.seed(t, enums.PaymentMethodGateway)
	_, err := f.svc.Initiate(ctx, orders.InitiatePaymentInput{OrderID: order.ID, Actor: f.customer})
	require.NoError(t, err)
	require.NoError(t, f.repo.Update(ctx, order.ID, map[string]any{
		"fulfillment_status": enums.FulfillmentCancelled,
		"updated_at":         time.Now().UTC(),
	}))

	_, err = f.svc.Verify(ctx, VerifyInput{
		OrderID:          order.ID,
		GatewayOrderID:   "sq-order-1",
		GatewayPaymentID: "pay-9",
		Signature:        Sign(testSecret, "sq-order-1", "pay-9"),
		Actor:            f.customer,
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	assert.False(t, errors.Is(err, gorm.ErrRecordNotFound))
}
