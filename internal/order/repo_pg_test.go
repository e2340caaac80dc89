package order_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeMC777/tienda-commerce/internal/cart"
	"github.com/MikeMC777/tienda-commerce/internal/db/dbtest"
	"github.com/MikeMC777/tienda-commerce/internal/order"
)

type pgWorld struct {
	pool               *pgxpool.Pool
	repo               *order.PGRepo
	carts              *cart.PGRepo
	sellerA, sellerB   int64
	customer           int64
	productA, productB int64
	seq                int
}

func newPGWorld(t *testing.T) *pgWorld {
	t.Helper()
	pool := dbtest.Open(t)
	w := &pgWorld{pool: pool, repo: order.NewPGRepo(pool), carts: cart.NewPGRepo(pool)}
	w.sellerA = dbtest.Account(t, pool, "a@example.com", "seller", "active")
	w.sellerB = dbtest.Account(t, pool, "b@example.com", "seller", "active")
	w.customer = dbtest.Account(t, pool, "c@example.com", "customer", "active")
	w.productA = dbtest.Product(t, pool, w.sellerA, "Tea bowl", "1000")
	w.productB = dbtest.Product(t, pool, w.sellerB, "Chopsticks", "500")
	return w
}

func (w *pgWorld) draft(c order.Customer, productIDs ...int64) *order.Order {
	w.seq++
	o := &order.Order{
		Number:          fmt.Sprintf("PG-%04d", w.seq),
		Customer:        c,
		ShippingAddress: tokyo,
		PaymentMethod:   order.PaymentCard,
		CreatedBy:       "test",
	}
	for _, id := range productIDs {
		o.Lines = append(o.Lines, order.Line{ProductID: id, Quantity: 1, UnitPrice: decimal.NewFromInt(100)})
	}
	o.Subtotal = decimal.NewFromInt(int64(100 * len(productIDs)))
	o.Total = o.Subtotal
	return o
}

func (w *pgWorld) place(t *testing.T, c order.Customer, productIDs ...int64) *order.Order {
	t.Helper()
	o := w.draft(c, productIDs...)
	require.NoError(t, w.repo.Create(context.Background(), o, nil))
	return o
}

func TestPGRepo_CreateConsumesOnlyOrderedQuantities(t *testing.T) {
	w := newPGWorld(t)
	ctx := context.Background()

	c, err := w.carts.CreateForAccount(ctx, w.customer)
	require.NoError(t, err)
	_, err = w.carts.IncrementLine(ctx, c.ID, w.productA, 5)
	require.NoError(t, err)
	_, err = w.carts.IncrementLine(ctx, c.ID, w.productB, 1)
	require.NoError(t, err)

	o := w.draft(order.AccountCustomer(w.customer), w.productA, w.productB)
	o.Lines[0].Quantity = 2
	require.NoError(t, w.repo.Create(ctx, o, &order.Consumed{
		CartID: c.ID,
		Lines:  []order.LineInput{{ProductID: w.productA, Quantity: 2}, {ProductID: w.productB, Quantity: 1}},
	}))

	lines, err := w.carts.Lines(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, w.productA, lines[0].ProductID)
	assert.Equal(t, 3, lines[0].Quantity)

	got, err := w.repo.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.Number, got.Number)
	assert.Equal(t, tokyo, got.ShippingAddress)
	require.Len(t, got.Lines, 2)
	assert.True(t, got.Lines[0].UnitPrice.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, 1, got.Version)
}

func TestPGRepo_DuplicateNumber(t *testing.T) {
	w := newPGWorld(t)
	first := w.place(t, order.AccountCustomer(w.customer), w.productA)

	dup := w.draft(order.AccountCustomer(w.customer), w.productA)
	dup.Number = first.Number
	err := w.repo.Create(context.Background(), dup, nil)
	assert.True(t, errors.Is(err, order.ErrDuplicateNumber), "%v", err)
}

func TestPGRepo_UpdateStatusIsVersioned(t *testing.T) {
	w := newPGWorld(t)
	ctx := context.Background()
	o := w.place(t, order.AccountCustomer(w.customer), w.productA)

	now := time.Now().UTC().Truncate(time.Microsecond)
	st := o.Status
	st.Delivered, st.DeliveredAt = true, &now
	next, err := w.repo.UpdateStatus(ctx, o.ID, o.Version, st)
	require.NoError(t, err)
	assert.Equal(t, o.Version+1, next)

	_, err = w.repo.UpdateStatus(ctx, o.ID, o.Version, st)
	assert.True(t, errors.Is(err, order.ErrVersionConflict))
	_, err = w.repo.UpdateStatus(ctx, 999999, 1, st)
	assert.True(t, errors.Is(err, order.ErrNotFound))

	got, err := w.repo.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, got.Status.Delivered)
	require.NotNil(t, got.Status.DeliveredAt)
	assert.True(t, now.Equal(*got.Status.DeliveredAt))
}

func TestPGRepo_SetPaymentCodeWritesOnce(t *testing.T) {
	w := newPGWorld(t)
	ctx := context.Background()
	o := w.place(t, order.GuestCustomer("Taro", "taro@example.com"), w.productB)

	stored, err := w.repo.SetPaymentCode(ctx, o.ID, "PAY-1", "test", time.Now())
	require.NoError(t, err)
	assert.True(t, stored)
	stored, err = w.repo.SetPaymentCode(ctx, o.ID, "PAY-2", "test", time.Now())
	require.NoError(t, err)
	assert.False(t, stored)

	got, err := w.repo.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "PAY-1", got.PaymentCode)
	assert.Nil(t, got.Customer.AccountID)
}

func TestPGRepo_ListFilters(t *testing.T) {
	w := newPGWorld(t)
	ctx := context.Background()
	mixed := w.place(t, order.AccountCustomer(w.customer), w.productA, w.productB)
	onlyB := w.place(t, order.AccountCustomer(w.customer), w.productB)
	boughtByA := w.place(t, order.AccountCustomer(w.sellerA), w.productB)
	guest := w.place(t, order.GuestCustomer("Taro", "taro@example.com"), w.productA)

	ids := func(q order.ListQuery) []int64 {
		q.Limit = 100
		list, err := w.repo.List(ctx, q)
		require.NoError(t, err)
		out := []int64{}
		for _, o := range list {
			out = append(out, o.ID)
		}
		return out
	}

	assert.ElementsMatch(t, []int64{mixed.ID, guest.ID}, ids(order.ListQuery{SellerID: w.sellerA}))
	assert.ElementsMatch(t, []int64{mixed.ID, guest.ID, boughtByA.ID}, ids(order.ListQuery{SellerID: w.sellerA, AccountID: w.sellerA}))
	assert.ElementsMatch(t, []int64{mixed.ID, onlyB.ID, boughtByA.ID}, ids(order.ListQuery{SellerID: w.sellerB}))
	assert.ElementsMatch(t, []int64{mixed.ID, onlyB.ID}, ids(order.ListQuery{AccountID: w.customer}))
	assert.Len(t, ids(order.ListQuery{}), 4)

	page, err := w.repo.List(ctx, order.ListQuery{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, guest.ID, page[0].ID)
	assert.Len(t, page[0].Lines, 1)
}
