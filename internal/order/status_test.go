package order

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeMC777/tienda-commerce/internal/actor"
	"github.com/MikeMC777/tienda-commerce/internal/apperr"
)

var (
	t0    = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	admin = actor.Admin(1)
)

func TestApply_AdminConfirmIsIdempotent(t *testing.T) {
	s1, changed, err := Apply(Status{}, AdminConfirm, t0, admin)
	require.NoError(t, err)
	require.True(t, changed)
	assert.True(t, s1.Paid)
	assert.True(t, s1.ConfirmedByAdmin)
	assert.Equal(t, PaidViaAdmin, s1.PaidVia)
	assert.Equal(t, t0, *s1.PaidAt)
	assert.Equal(t, t0, *s1.ConfirmedAt)

	s2, changed, err := Apply(s1, AdminConfirm, t0.Add(time.Hour), admin)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, s1, s2)
}

func TestApply_CancelledIsTerminal(t *testing.T) {
	cancelled, changed, err := Apply(Status{}, Cancel, t0, admin)
	require.NoError(t, err)
	require.True(t, changed)
	assert.Equal(t, "admin:1", cancelled.CancelledBy)

	for _, tr := range []Transition{MarkPaid, MarkDelivered, AdminConfirm, CustomerConfirm} {
		next, changed, err := Apply(cancelled, tr, t0.Add(time.Minute), admin)
		assert.True(t, errors.Is(err, ErrInvalidState), "transition %s", tr)
		assert.Equal(t, apperr.KindPreconditionFailed, apperr.KindOf(err))
		assert.False(t, changed)
		assert.Equal(t, cancelled, next)
	}

	again, changed, err := Apply(cancelled, Cancel, t0.Add(time.Minute), actor.Seller(2, actor.StatusActive))
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, "admin:1", again.CancelledBy)
}

func TestApply_CancelKeepsOtherFlags(t *testing.T) {
	paid, _, err := Apply(Status{}, MarkPaid, t0, admin)
	require.NoError(t, err)
	out, _, err := Apply(paid, Cancel, t0.Add(time.Minute), admin)
	require.NoError(t, err)
	assert.True(t, out.Paid)
	assert.True(t, out.Cancelled)
	assert.Equal(t, PaidViaOperator, out.PaidVia)
}

func TestApply_CustomerConfirmNeverSetsAdminFlag(t *testing.T) {
	out, changed, err := Apply(Status{}, CustomerConfirm, t0, actor.Account(9))
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, out.Paid)
	assert.False(t, out.ConfirmedByAdmin)
	assert.Nil(t, out.ConfirmedAt)
	assert.Equal(t, PaidViaCustomer, out.PaidVia)
}

func TestApply_UnknownTransition(t *testing.T) {
	_, _, err := Apply(Status{}, Transition("refund"), t0, admin)
	assert.Equal(t, apperr.KindInvalidArgument, apperr.KindOf(err))
}

func TestStatusPatch_Transitions(t *testing.T) {
	yes, no := true, false

	ts, err := StatusPatch{Cancelled: &yes, Paid: &yes, Delivered: &yes}.Transitions(Status{})
	require.NoError(t, err)
	assert.Equal(t, []Transition{MarkPaid, MarkDelivered, Cancel}, ts)

	ts, err = StatusPatch{Paid: &no}.Transitions(Status{})
	require.NoError(t, err)
	assert.Empty(t, ts)

	_, err = StatusPatch{Paid: &no}.Transitions(Status{Paid: true})
	assert.Equal(t, apperr.KindInvalidArgument, apperr.KindOf(err))

	_, err = StatusPatch{}.Transitions(Status{})
	assert.Equal(t, apperr.KindInvalidArgument, apperr.KindOf(err))
}

func TestPricing_PayOnDeliveryScenario(t *testing.T) {
	p := Pricing{DiscountRate: decimal.RequireFromString("0.02"), DeliveryFee: decimal.NewFromInt(1200)}
	lines := []Line{
		{ProductID: 10, Quantity: 2, UnitPrice: decimal.NewFromInt(1000)},
		{ProductID: 11, Quantity: 1, UnitPrice: decimal.NewFromInt(500)},
	}

	q := p.Quote(lines, PaymentOnDelivery)
	assert.Equal(t, "2500", q.Subtotal.String())
	assert.Equal(t, "50", q.Discount.String())
	assert.Equal(t, "0", q.DeliveryFee.String())
	assert.Equal(t, "2450", q.Total.String())

	q = p.Quote(lines, PaymentBankTransfer)
	assert.Equal(t, "1200", q.DeliveryFee.String())
	assert.Equal(t, "3650", q.Total.String())
}

func TestPricing_DiscountRounding(t *testing.T) {
	p := Pricing{DiscountRate: decimal.RequireFromString("0.02"), DeliveryFee: decimal.Zero}
	// 1275 * 0.02 = 25.5, rounded half away from zero.
	q := p.Quote([]Line{{ProductID: 1, Quantity: 1, UnitPrice: decimal.NewFromInt(1275)}}, PaymentCard)
	assert.Equal(t, "26", q.Discount.String())
	assert.True(t, q.Total.Equal(q.Subtotal.Sub(q.Discount).Add(q.DeliveryFee)))

	p.Places = 2
	q = p.Quote([]Line{{ProductID: 1, Quantity: 3, UnitPrice: decimal.RequireFromString("10.99")}}, PaymentCard)
	assert.Equal(t, "0.66", q.Discount.String())
}

func TestNewNumber_Format(t *testing.T) {
	n := NewNumber(time.Date(2024, 5, 1, 1, 2, 3, 0, time.FixedZone("JST", 9*3600)))
	assert.Regexp(t, regexp.MustCompile(`^20240430-160203-[0-9A-Z]{6}$`), n)
	assert.NotEqual(t, n, NewNumber(t0))
}

func TestCustomer_Validate(t *testing.T) {
	assert.NoError(t, AccountCustomer(4).Validate())
	assert.NoError(t, GuestCustomer("Hanako", "hanako@example.com").Validate())

	err := GuestCustomer("Hanako", "").Validate()
	assert.True(t, errors.Is(err, ErrMissingGuestEmail))
	assert.Equal(t, apperr.KindInvalidArgument, apperr.KindOf(err))

	assert.Error(t, GuestCustomer("Hanako", "not-an-email").Validate())
	assert.Error(t, GuestCustomer("", "hanako@example.com").Validate())

	both := AccountCustomer(4)
	both.GuestEmail = "x@example.com"
	assert.True(t, errors.Is(both.Validate(), ErrInvalidCustomer))
}

func TestCustomer_KeyFoldsEmailCase(t *testing.T) {
	assert.Equal(t, GuestCustomer("a", "Hanako@Example.com").Key(), GuestCustomer("b", "hanako@example.com").Key())
	assert.Equal(t, "account:4", AccountCustomer(4).Key())
}
