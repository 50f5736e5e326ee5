package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/droppoint-backend/pkg/db/dbtest"
	"github.com/angelmondragon/droppoint-backend/pkg/db/models"
	"github.com/angelmondragon/droppoint-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/droppoint-backend/pkg/errors"
)

func seedFeed(t *testing.T, repo Repository, customer uuid.UUID, n int) {
	t.Helper()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		orderID := uuid.New()
		recipient := customer
		require.NoError(t, repo.CreateBatch(context.Background(), []models.Notification{
			{Audience: enums.AudienceCustomer, RecipientID: &recipient, OrderID: orderID, Type: enums.NotificationTypeOrderCreated, Title: "Order received", Message: "m", CreatedAt: base.Add(time.Duration(i) * time.Minute)},
			{Audience: enums.AudienceStaff, OrderID: orderID, Type: enums.NotificationTypeOrderCreated, Title: "New order", Message: "m", CreatedAt: base.Add(time.Duration(i) * time.Minute)},
		}))
	}
}

func TestViewerFor(t *testing.T) {
	user := uuid.New()

	v, err := ViewerFor(user, enums.ActorRoleCustomer)
	require.NoError(t, err)
	assert.Equal(t, enums.AudienceCustomer, v.Audience)
	require.NotNil(t, v.RecipientID)
	assert.Equal(t, user, *v.RecipientID)

	v, err = ViewerFor(user, enums.ActorRoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, enums.AudienceStaff, v.Audience)
	assert.Nil(t, v.RecipientID)

	_, err = ViewerFor(uuid.Nil, enums.ActorRoleStaff)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	_, err = ViewerFor(user, enums.ActorRoleSystem)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestServiceListPaginatesPerAudience(t *testing.T) {
	db := dbtest.Open(t, dbtest.Notifications)
	repo := NewRepository(db)
	svc, err := NewService(repo)
	require.NoError(t, err)
	ctx := context.Background()

	customer := uuid.New()
	seedFeed(t, repo, customer, 3)
	seedFeed(t, repo, uuid.New(), 1)

	mine, err := ViewerFor(customer, enums.ActorRoleCustomer)
	require.NoError(t, err)
	page, err := svc.List(ctx, ListParams{Viewer: mine, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.True(t, page.Items[0].CreatedAt.After(page.Items[1].CreatedAt))
	require.NotEmpty(t, page.Cursor)

	next, err := svc.List(ctx, ListParams{Viewer: mine, Limit: 2, Cursor: page.Cursor})
	require.NoError(t, err)
	require.Len(t, next.Items, 1)
	assert.Empty(t, next.Cursor)
	assert.NotEqual(t, page.Items[1].ID, next.Items[0].ID)

	staff, err := ViewerFor(uuid.New(), enums.ActorRoleStaff)
	require.NoError(t, err)
	all, err := svc.List(ctx, ListParams{Viewer: staff, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, all.Items, 4)

	_, err = svc.List(ctx, ListParams{Viewer: staff, Cursor: "%%%"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.List(ctx, ListParams{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestServiceMarkRead(t *testing.T) {
	db := dbtest.Open(t, dbtest.Notifications)
	repo := NewRepository(db)
	svc, err := NewService(repo)
	require.NoError(t, err)
	ctx := context.Background()

	customer := uuid.New()
	seedFeed(t, repo, customer, 2)
	mine, _ := ViewerFor(customer, enums.ActorRoleCustomer)
	stranger, _ := ViewerFor(uuid.New(), enums.ActorRoleCustomer)
	staff, _ := ViewerFor(uuid.New(), enums.ActorRoleStaff)

	page, err := svc.List(ctx, ListParams{Viewer: mine})
	require.NoError(t, err)
	target := page.Items[0].ID

	err = svc.MarkRead(ctx, stranger, target)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	require.NoError(t, svc.MarkRead(ctx, mine, target))
	require.NoError(t, svc.MarkRead(ctx, mine, target), "marking twice is a no-op")

	unread, err := svc.List(ctx, ListParams{Viewer: mine, UnreadOnly: true})
	require.NoError(t, err)
	assert.Len(t, unread.Items, 1)

	count, err := svc.MarkAllRead(ctx, mine)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	count, err = svc.MarkAllRead(ctx, staff)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count, "staff rows are untouched by customer reads")

	err = svc.MarkRead(ctx, mine, uuid.Nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestNewServiceRequiresRepo(t *testing.T) {
	_, err := NewService(nil)
	require.Error(t, err)
}
