package cart_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeMC777/tienda-commerce/internal/apperr"
	"github.com/MikeMC777/tienda-commerce/internal/cart"
	"github.com/MikeMC777/tienda-commerce/internal/memstore"
	"github.com/MikeMC777/tienda-commerce/internal/product"
)

func newService(t *testing.T) *cart.Service {
	t.Helper()
	store := memstore.New()
	store.PutProduct(product.Product{ID: 10, OwnerID: 2, Price: decimal.NewFromInt(1000)})
	store.PutProduct(product.Product{ID: 11, OwnerID: 3, Price: decimal.NewFromInt(500)})
	return cart.NewService(store.Carts(), store.Products(), nil)
}

func TestAddLine_SumsQuantities(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	id := cart.AccountIdentity(4)

	_, issued, err := svc.AddLine(ctx, id, 10, 2)
	require.NoError(t, err)
	assert.Empty(t, issued)

	c, _, err := svc.AddLine(ctx, id, 10, 3)
	require.NoError(t, err)
	require.Len(t, c.Lines, 1)
	assert.Equal(t, 5, c.Quantity(10))
	require.NotNil(t, c.AccountID)
	assert.Equal(t, int64(4), *c.AccountID)
}

func TestAddLine_Validation(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, _, err := svc.AddLine(ctx, cart.AccountIdentity(4), 10, 0)
	assert.True(t, errors.Is(err, cart.ErrInvalidQuantity))

	_, _, err = svc.AddLine(ctx, cart.AccountIdentity(4), 999, 1)
	assert.True(t, errors.Is(err, product.ErrNotFound))

	c, err := svc.View(ctx, cart.AccountIdentity(4))
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
}

func TestAnonymousCart_TokenFlow(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, token, err := svc.AddLine(ctx, cart.AnonymousIdentity(""), 10, 1)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.True(t, strings.HasPrefix(string(token), "ct_"))

	c, again, err := svc.AddLine(ctx, cart.AnonymousIdentity(token), 11, 2)
	require.NoError(t, err)
	assert.Empty(t, again, "an existing token is not reissued")
	assert.Equal(t, 1, c.Quantity(10))
	assert.Equal(t, 2, c.Quantity(11))

	_, err = svc.View(ctx, cart.AnonymousIdentity("ct_00000000000000000000000000000000"))
	assert.True(t, errors.Is(err, cart.ErrNotFound))

	_, err = svc.View(ctx, cart.AnonymousIdentity("garbage"))
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestView_DoesNotPersist(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	c, err := svc.View(ctx, cart.AnonymousIdentity(""))
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
	assert.Zero(t, c.ID)

	c, err = svc.View(ctx, cart.AccountIdentity(8))
	require.NoError(t, err)
	assert.Zero(t, c.ID)

	_, err = svc.Resolve(ctx, cart.AccountIdentity(8))
	assert.True(t, errors.Is(err, cart.ErrNotFound))
}

func TestDecrementAndRemove(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	id := cart.AccountIdentity(4)
	_, _, err := svc.AddLine(ctx, id, 10, 3)
	require.NoError(t, err)
	_, _, err = svc.AddLine(ctx, id, 11, 1)
	require.NoError(t, err)

	c, err := svc.DecrementLine(ctx, id, 10, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Quantity(10))

	c, err = svc.DecrementLine(ctx, id, 10, 5)
	require.NoError(t, err)
	assert.Zero(t, c.Quantity(10))
	assert.Len(t, c.Lines, 1)

	_, err = svc.DecrementLine(ctx, id, 10, 1)
	assert.True(t, errors.Is(err, cart.ErrLineNotFound))

	c, err = svc.RemoveLine(ctx, id, 11)
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())

	_, err = svc.RemoveLine(ctx, id, 11)
	assert.True(t, errors.Is(err, cart.ErrLineNotFound))

	_, err = svc.RemoveLine(ctx, cart.AnonymousIdentity(""), 11)
	assert.True(t, errors.Is(err, cart.ErrNoIdentity))
}

func TestMerge_SumsAndDropsAnonymousCart(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, token, err := svc.AddLine(ctx, cart.AnonymousIdentity(""), 10, 2)
	require.NoError(t, err)
	_, _, err = svc.AddLine(ctx, cart.AnonymousIdentity(token), 11, 1)
	require.NoError(t, err)
	_, _, err = svc.AddLine(ctx, cart.AccountIdentity(4), 10, 1)
	require.NoError(t, err)

	c, err := svc.Merge(ctx, 4, token)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Quantity(10))
	assert.Equal(t, 1, c.Quantity(11))

	_, err = svc.View(ctx, cart.AnonymousIdentity(token))
	assert.True(t, errors.Is(err, cart.ErrNotFound))

	_, err = svc.Merge(ctx, 0, token)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	_, err = svc.Merge(ctx, 4, "")
	assert.True(t, errors.Is(err, cart.ErrNoIdentity))
}

func TestMerge_IntoNewAccountCart(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	_, token, err := svc.AddLine(ctx, cart.AnonymousIdentity(""), 11, 4)
	require.NoError(t, err)

	c, err := svc.Merge(ctx, 7, token)
	require.NoError(t, err)
	assert.Equal(t, 4, c.Quantity(11))
	require.NotNil(t, c.AccountID)
	assert.Equal(t, int64(7), *c.AccountID)
}

func TestClearForAccount(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	require.NoError(t, svc.ClearForAccount(ctx, 4), "no cart is not an error")

	_, _, err := svc.AddLine(ctx, cart.AccountIdentity(4), 10, 1)
	require.NoError(t, err)
	require.NoError(t, svc.ClearForAccount(ctx, 4))

	c, err := svc.Resolve(ctx, cart.AccountIdentity(4))
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
}

func TestHashToken(t *testing.T) {
	a := cart.NewToken()
	b := cart.NewToken()
	assert.NotEqual(t, a, b)
	assert.Len(t, string(a), 35)
	assert.Equal(t, cart.HashToken(a), cart.HashToken(a))
	assert.NotEqual(t, cart.HashToken(a), cart.HashToken(b))
	assert.NotContains(t, cart.HashToken(a), string(a))
}
