// Package payment issues payment references for orders and records the
// customer's own settlement confirmation.
package payment

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
)

type IssueRequest struct {
	OrderID     int64
	OrderNumber string
	Amount      decimal.Decimal
	Currency    string
	Email       string
}

// Reference is what the customer quotes when paying.
type Reference struct {
	Code     string
	Provider string
}

type Gateway interface {
	Issue(ctx context.Context, req IssueRequest) (Reference, error)
}

// StaticGateway hands out one fixed code for every order.
type StaticGateway struct{ Code string }

func (g StaticGateway) Issue(context.Context, IssueRequest) (Reference, error) {
	return Reference{Code: g.Code, Provider: "static"}, nil
}

type stripeIntentAPI interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

// StripeGateway creates a PaymentIntent per order and returns its id as the
// payment code.
type StripeGateway struct {
	intents stripeIntentAPI
}

func NewStripeGateway(apiKey string, backends *stripe.Backends) (*StripeGateway, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("stripe: api key is required")
	}
	sc := client.New(apiKey, backends)
	return &StripeGateway{intents: sc.PaymentIntents}, nil
}

func (g *StripeGateway) Issue(ctx context.Context, req IssueRequest) (Reference, error) {
	currency := strings.ToLower(strings.TrimSpace(req.Currency))
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(minorUnits(req.Amount, currency)),
		Currency: stripe.String(currency),
		Metadata: map[string]string{
			"order_id":     strconv.FormatInt(req.OrderID, 10),
			"order_number": req.OrderNumber,
		},
	}
	if req.Email != "" {
		params.ReceiptEmail = stripe.String(req.Email)
	}
	params.Context = ctx
	params.SetIdempotencyKey("order-" + req.OrderNumber)

	pi, err := g.intents.New(params)
	if err != nil {
		return Reference{}, err
	}
	return Reference{Code: pi.ID, Provider: "stripe"}, nil
}

var zeroDecimalCurrencies = map[string]bool{
	"bif": true, "clp": true, "djf": true, "gnf": true, "jpy": true, "kmf": true, "krw": true,
	"mga": true, "pyg": true, "rwf": true, "ugx": true, "vnd": true, "vuv": true, "xaf": true,
	"xof": true, "xpf": true,
}

func minorUnits(amount decimal.Decimal, currency string) int64 {
	if zeroDecimalCurrencies[currency] {
		return amount.Round(0).IntPart()
	}
	return amount.Shift(2).Round(0).IntPart()
}
