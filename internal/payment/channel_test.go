package payment_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeMC777/tienda-commerce/internal/actor"
	"github.com/MikeMC777/tienda-commerce/internal/apperr"
	"github.com/MikeMC777/tienda-commerce/internal/memstore"
	"github.com/MikeMC777/tienda-commerce/internal/order"
	"github.com/MikeMC777/tienda-commerce/internal/payment"
	"github.com/MikeMC777/tienda-commerce/internal/product"
	"github.com/MikeMC777/tienda-commerce/internal/tenant"
)

type countingGateway struct {
	calls atomic.Int32
	err   error
}

func (g *countingGateway) Issue(_ context.Context, req payment.IssueRequest) (payment.Reference, error) {
	g.calls.Add(1)
	if g.err != nil {
		return payment.Reference{}, g.err
	}
	return payment.Reference{Code: "PAY-" + req.OrderNumber, Provider: "test"}, nil
}

type setup struct {
	store   *memstore.Store
	orders  *order.Service
	channel *payment.Channel
	gateway *countingGateway
}

func newSetup(t *testing.T) *setup {
	t.Helper()
	store := memstore.New()
	store.PutProduct(product.Product{ID: 10, OwnerID: 2, Price: decimal.NewFromInt(1000)})
	orders := order.NewService(store.Orders(), tenant.New(store.Products()), nil, nil, nil)
	gw := &countingGateway{}
	return &setup{
		store:   store,
		orders:  orders,
		channel: payment.NewChannel(store.Orders(), orders, gw, "JPY", nil),
		gateway: gw,
	}
}

func (s *setup) place(t *testing.T, number string, c order.Customer) *order.Order {
	t.Helper()
	o := &order.Order{
		Number:        number,
		Customer:      c,
		PaymentMethod: order.PaymentBankTransfer,
		Lines:         []order.Line{{ProductID: 10, Quantity: 1, UnitPrice: decimal.NewFromInt(1000)}},
		Total:         decimal.NewFromInt(2180),
	}
	require.NoError(t, s.store.Orders().Create(context.Background(), o, nil))
	return o
}

func TestIssueCode_OnlyOwningAccount(t *testing.T) {
	s := newSetup(t)
	ctx := context.Background()
	o := s.place(t, "N-1", order.AccountCustomer(4))

	for _, by := range []actor.Actor{actor.Account(5), actor.Guest(), actor.Admin(1), actor.Seller(2, actor.StatusActive)} {
		_, err := s.channel.IssueCode(ctx, by, o.ID)
		assert.True(t, errors.Is(err, payment.ErrNotCustomer), "actor %s", by)
		assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	}
	assert.Zero(t, s.gateway.calls.Load())

	got, err := s.channel.IssueCode(ctx, actor.Account(4), o.ID)
	require.NoError(t, err)
	assert.Equal(t, "PAY-N-1", got.Code)
	assert.Equal(t, "test", got.Provider)
	assert.False(t, got.IssuedAt.IsZero())
}

func TestIssueCode_GuestOrderAnyCaller(t *testing.T) {
	s := newSetup(t)
	o := s.place(t, "N-2", order.GuestCustomer("Taro", "taro@example.com"))

	got, err := s.channel.IssueCode(context.Background(), actor.Guest(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, "PAY-N-2", got.Code)
}

func TestIssueCode_ReturnsStoredCode(t *testing.T) {
	s := newSetup(t)
	ctx := context.Background()
	o := s.place(t, "N-3", order.AccountCustomer(4))

	first, err := s.channel.IssueCode(ctx, actor.Account(4), o.ID)
	require.NoError(t, err)
	second, err := s.channel.IssueCode(ctx, actor.Account(4), o.ID)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), s.gateway.calls.Load())
}

func TestIssueCode_GatewayFailure(t *testing.T) {
	s := newSetup(t)
	s.gateway.err = errors.New("connection refused")
	o := s.place(t, "N-4", order.AccountCustomer(4))

	_, err := s.channel.IssueCode(context.Background(), actor.Account(4), o.ID)
	assert.True(t, errors.Is(err, payment.ErrGateway))
	assert.Equal(t, apperr.KindUpstream, apperr.KindOf(err))

	stored, err := s.store.Orders().Get(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.PaymentCode)
}

func TestIssueCode_CancelledOrder(t *testing.T) {
	s := newSetup(t)
	ctx := context.Background()
	o := s.place(t, "N-5", order.AccountCustomer(4))
	_, _, err := s.orders.Transition(ctx, o.ID, actor.Admin(1), nil, order.Fixed(order.Cancel))
	require.NoError(t, err)

	_, err = s.channel.IssueCode(ctx, actor.Account(4), o.ID)
	assert.True(t, errors.Is(err, order.ErrInvalidState))
}

func TestConfirmByCustomer_RequiresCode(t *testing.T) {
	s := newSetup(t)
	ctx := context.Background()
	o := s.place(t, "N-6", order.AccountCustomer(4))

	_, err := s.channel.ConfirmByCustomer(ctx, actor.Account(4), o.ID)
	assert.True(t, errors.Is(err, payment.ErrNoPaymentCode))
	assert.Equal(t, apperr.KindPreconditionFailed, apperr.KindOf(err))

	_, err = s.channel.IssueCode(ctx, actor.Account(4), o.ID)
	require.NoError(t, err)

	_, err = s.channel.ConfirmByCustomer(ctx, actor.Account(5), o.ID)
	assert.True(t, errors.Is(err, payment.ErrNotCustomer))

	got, err := s.channel.ConfirmByCustomer(ctx, actor.Account(4), o.ID)
	require.NoError(t, err)
	assert.True(t, got.Status.Paid)
	assert.Equal(t, order.PaidViaCustomer, got.Status.PaidVia)
	assert.False(t, got.Status.ConfirmedByAdmin)

	again, err := s.channel.ConfirmByCustomer(ctx, actor.Account(4), o.ID)
	require.NoError(t, err)
	assert.False(t, again.Status.ConfirmedByAdmin)
	assert.Equal(t, got.Version, again.Version)
}

func TestConfirmByCustomer_CancelledOrder(t *testing.T) {
	s := newSetup(t)
	ctx := context.Background()
	o := s.place(t, "N-7", order.GuestCustomer("Taro", "taro@example.com"))
	_, err := s.channel.IssueCode(ctx, actor.Guest(), o.ID)
	require.NoError(t, err)
	_, _, err = s.orders.Transition(ctx, o.ID, actor.Admin(1), nil, order.Fixed(order.Cancel))
	require.NoError(t, err)

	_, err = s.channel.ConfirmByCustomer(ctx, actor.Guest(), o.ID)
	assert.True(t, errors.Is(err, order.ErrInvalidState))
}
