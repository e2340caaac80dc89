package order

import (
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
)

// Pricing turns frozen lines into totals. Discount is rounded to Places
// decimal places, half away from zero.
type Pricing struct {
	DiscountRate decimal.Decimal
	DeliveryFee  decimal.Decimal
	Places       int32
}

type Quote struct {
	Subtotal    decimal.Decimal
	Discount    decimal.Decimal
	DeliveryFee decimal.Decimal
	Total       decimal.Decimal
}

func (p Pricing) Quote(lines []Line, method PaymentMethod) Quote {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.Amount())
	}
	discount := subtotal.Mul(p.DiscountRate).Round(p.Places)
	fee := p.DeliveryFee
	if method == PaymentOnDelivery {
		fee = decimal.Zero
	}
	return Quote{
		Subtotal:    subtotal,
		Discount:    discount,
		DeliveryFee: fee,
		Total:       subtotal.Sub(discount).Add(fee),
	}
}

func (q Quote) apply(o *Order) {
	o.Subtotal, o.Discount, o.DeliveryFee, o.Total = q.Subtotal, q.Discount, q.DeliveryFee, q.Total
}

// NewNumber builds a human readable order number: the UTC creation second
// followed by the random tail of a ULID. Uniqueness is enforced by storage.
func NewNumber(at time.Time) string {
	id := ulid.Make().String()
	return at.UTC().Format("20060102-150405") + "-" + id[len(id)-6:]
}
