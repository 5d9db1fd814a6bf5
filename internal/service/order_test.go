package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/senseivictor/baza-de-date/internal/model"
	"github.com/senseivictor/baza-de-date/internal/repository"
)

func newOrderService(t *testing.T, s repository.Storage, events EventPublisher) *OrderService {
	t.Helper()
	svc := NewOrderService(s, events)
	svc.Now = clock
	return svc
}

func registerUser(t *testing.T, s repository.Storage, name string) int64 {
	t.Helper()
	svc := NewUserService(s, 4)
	svc.Now = clock
	id, _, err := svc.Register(context.Background(), RegisterInput{Name: name})
	require.NoError(t, err)
	return id
}

func TestPlaceOrder(t *testing.T) {
	s := newStore(t, true)
	uid := registerUser(t, s, "ana")
	svc := newOrderService(t, s, nil)

	o, err := svc.Place(context.Background(), PlaceOrderInput{UserID: &uid, Products: []int64{1, 3}})
	require.NoError(t, err)
	_, err = uuid.Parse(o.OrderPublicID)
	assert.NoError(t, err, "public id must be a UUID")
	assert.Equal(t, model.StatusCompleted, o.OrderStatus)
	assert.Equal(t, fixedNow.Unix(), o.CreatedAt)

	stored, err := repository.NewOrderRepo(s).GetByID(context.Background(), o.OrderID)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, stored.Products)
	assert.Equal(t, o.OrderPublicID, stored.OrderPublicID)
	assert.Equal(t, uid, *stored.UserID)

	other, err := svc.Place(context.Background(), PlaceOrderInput{Products: []int64{2}, Status: "pending"})
	require.NoError(t, err)
	assert.NotEqual(t, o.OrderPublicID, other.OrderPublicID)
	assert.Nil(t, other.UserID)
	assert.Equal(t, model.StatusPending, other.OrderStatus)
}

func TestPlaceOrderRejectsBadInput(t *testing.T) {
	s := newStore(t, true)
	svc := newOrderService(t, s, nil)
	missing := int64(42)

	for name, in := range map[string]PlaceOrderInput{
		"no products":     {},
		"zero product id": {Products: []int64{0}},
		"unknown product": {Products: []int64{1, 99}},
		"unknown user":    {UserID: &missing, Products: []int64{1}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Place(context.Background(), in)
			var bad *repository.BadRequestError
			assert.ErrorAs(t, err, &bad)
		})
	}
	assert.Zero(t, count(t, s, "SELECT order_id FROM orders"))
}

func TestPlaceOrderPublishesEvent(t *testing.T) {
	s := newStore(t, true)
	uid := registerUser(t, s, "ana")
	pub := &recordingPublisher{}
	svc := newOrderService(t, s, pub)
	meta := `{"channel":"web"}`

	o, err := svc.Place(context.Background(), PlaceOrderInput{
		UserID: &uid, Products: []int64{3, 1, 3}, Region: "Chisinau", Metadata: &meta,
	})
	require.NoError(t, err)
	require.Len(t, pub.events, 1)
	ev := pub.events[0]
	assert.Equal(t, o.OrderID, ev.OrderID)
	assert.Equal(t, "ana", ev.UserName)
	assert.Equal(t, "Chisinau", ev.Region)
	assert.Equal(t, meta, *ev.Metadata)
	require.Len(t, ev.Lines, 3)
	assert.Equal(t, "Song", ev.Lines[0].Name)
	assert.Equal(t, "79.99", ev.Lines[0].Price.StringFixed(2))
	assert.Equal(t, "Caricature", ev.Lines[1].Name)

	// a broker failure does not fail the order
	pub.err = errBroker
	_, err = svc.Place(context.Background(), PlaceOrderInput{Products: []int64{2}})
	require.NoError(t, err)
	assert.Equal(t, DefaultRegion, pub.events[1].Region)
	assert.Equal(t, 2, count(t, s, "SELECT order_id FROM orders"))
}

func TestListForUserResolvesNames(t *testing.T) {
	s := newStore(t, true)
	uid := registerUser(t, s, "ana")
	svc := newOrderService(t, s, nil)
	ctx := context.Background()

	first, err := svc.Place(ctx, PlaceOrderInput{UserID: &uid, Products: []int64{1, 3}})
	require.NoError(t, err)
	svc.Now = func() time.Time { return fixedNow.Add(time.Hour) }
	second, err := svc.Place(ctx, PlaceOrderInput{UserID: &uid, Products: []int64{2}, Status: "pending"})
	require.NoError(t, err)

	list, err := svc.ListForUser(ctx, uid)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.OrderPublicID, list[0].OrderPublicID)
	assert.Equal(t, "Voiceover", list[0].Products)
	assert.Equal(t, first.OrderPublicID, list[1].OrderPublicID)
	assert.Equal(t, "Caricature, Song", list[1].Products)

	empty, err := svc.ListForUser(ctx, 999)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	pending, err := svc.ListByStatus(ctx, "pending")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, second.OrderID, pending[0].OrderID)

	latest, err := svc.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.OrderID, latest.OrderID)
}

func TestLatestWithoutOrders(t *testing.T) {
	svc := newOrderService(t, newStore(t, true), nil)
	_, err := svc.Latest(context.Background())
	var nf *repository.NotFoundError
	assert.ErrorAs(t, err, &nf)
}
