package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v78"
)

type fakeIntents struct {
	got *stripe.PaymentIntentParams
	err error
}

func (f *fakeIntents) New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	f.got = params
	if f.err != nil {
		return nil, f.err
	}
	return &stripe.PaymentIntent{ID: "pi_123"}, nil
}

func TestStripeGateway_Issue(t *testing.T) {
	fake := &fakeIntents{}
	g := &StripeGateway{intents: fake}

	ref, err := g.Issue(context.Background(), IssueRequest{
		OrderID:     7,
		OrderNumber: "20240501-101010-ABC123",
		Amount:      decimal.NewFromInt(2450),
		Currency:    "JPY",
		Email:       "taro@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, Reference{Code: "pi_123", Provider: "stripe"}, ref)

	require.NotNil(t, fake.got)
	assert.Equal(t, int64(2450), *fake.got.Amount)
	assert.Equal(t, "jpy", *fake.got.Currency)
	assert.Equal(t, "7", fake.got.Metadata["order_id"])
	assert.Equal(t, "taro@example.com", *fake.got.ReceiptEmail)
	assert.Equal(t, "order-20240501-101010-ABC123", *fake.got.IdempotencyKey)
}

func TestStripeGateway_Error(t *testing.T) {
	g := &StripeGateway{intents: &fakeIntents{err: errors.New("card_declined")}}
	_, err := g.Issue(context.Background(), IssueRequest{Amount: decimal.NewFromInt(1), Currency: "usd"})
	assert.Error(t, err)
}

func TestNewStripeGateway_RequiresKey(t *testing.T) {
	_, err := NewStripeGateway("  ", nil)
	assert.Error(t, err)
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(2450), minorUnits(decimal.NewFromInt(2450), "jpy"))
	assert.Equal(t, int64(1099), minorUnits(decimal.RequireFromString("10.99"), "usd"))
	assert.Equal(t, int64(1000), minorUnits(decimal.RequireFromString("9.995"), "eur"))
}

func TestStaticGateway(t *testing.T) {
	ref, err := StaticGateway{Code: "PAY-0000"}.Issue(context.Background(), IssueRequest{})
	require.NoError(t, err)
	assert.Equal(t, Reference{Code: "PAY-0000", Provider: "static"}, ref)
}
