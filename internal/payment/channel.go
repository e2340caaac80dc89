package payment

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/MikeMC777/tienda-commerce/internal/actor"
	"github.com/MikeMC777/tienda-commerce/internal/apperr"
	"github.com/MikeMC777/tienda-commerce/internal/order"
)

var (
	ErrNoPaymentCode = apperr.New(apperr.KindPreconditionFailed, "no_payment_code", "no payment code was issued for this order")
	ErrNotCustomer   = apperr.New(apperr.KindForbidden, "not_customer", "only the ordering customer can do this")
	ErrGateway       = apperr.Upstream("payment gateway unavailable")
)

type orderStore interface {
	Get(ctx context.Context, id int64) (*order.Order, error)
	SetPaymentCode(ctx context.Context, id int64, code, provider string, at time.Time) (bool, error)
}

type transitioner interface {
	Transition(ctx context.Context, id int64, by actor.Actor, guard order.Guard, ts func() []order.Transition) (*order.Order, []order.Transition, error)
}

type Issued struct {
	OrderID     int64     `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	Code        string    `json:"payment_code"`
	Provider    string    `json:"provider"`
	IssuedAt    time.Time `json:"issued_at"`
}

type Channel struct {
	orders   orderStore
	statuses transitioner
	gateway  Gateway
	currency string
	now      func() time.Time
	logger   *zap.Logger
}

func NewChannel(orders orderStore, statuses transitioner, gateway Gateway, currency string, logger *zap.Logger) *Channel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Channel{orders: orders, statuses: statuses, gateway: gateway, currency: currency, now: time.Now, logger: logger}
}

// authorize allows the owning account, or anyone for a guest order.
func authorize(by actor.Actor, o *order.Order) error {
	if o.Customer.AccountID == nil {
		return nil
	}
	if id, ok := by.AccountID(); ok && id == *o.Customer.AccountID {
		return nil
	}
	return ErrNotCustomer
}

// IssueCode returns the order's payment code, asking the gateway for one the
// first time. Later calls return the stored code.
func (c *Channel) IssueCode(ctx context.Context, by actor.Actor, orderID int64) (Issued, error) {
	o, err := c.orders.Get(ctx, orderID)
	if err != nil {
		return Issued{}, err
	}
	if err := authorize(by, o); err != nil {
		return Issued{}, err
	}
	if o.Status.Cancelled {
		return Issued{}, fmt.Errorf("%w: cannot issue a payment code", order.ErrInvalidState)
	}
	if o.PaymentCode != "" {
		return issued(o), nil
	}

	ref, err := c.gateway.Issue(ctx, IssueRequest{
		OrderID:     o.ID,
		OrderNumber: o.Number,
		Amount:      o.Total,
		Currency:    c.currency,
		Email:       o.Customer.GuestEmail,
	})
	if err != nil {
		c.logger.Error("payment gateway issue failed", zap.Int64("order_id", o.ID), zap.Error(err))
		return Issued{}, fmt.Errorf("%w: %v", ErrGateway, err)
	}

	at := c.now().UTC()
	stored, err := c.orders.SetPaymentCode(ctx, o.ID, ref.Code, ref.Provider, at)
	if err != nil {
		return Issued{}, fmt.Errorf("store payment code for order %d: %w", o.ID, err)
	}
	if !stored {
		// A concurrent call stored its code first.
		if o, err = c.orders.Get(ctx, orderID); err != nil {
			return Issued{}, err
		}
		return issued(o), nil
	}
	o.PaymentCode, o.PaymentProvider, o.PaymentCodeIssuedAt = ref.Code, ref.Provider, &at
	c.logger.Info("payment code issued", zap.Int64("order_id", o.ID), zap.String("provider", ref.Provider))
	return issued(o), nil
}

// ConfirmByCustomer records the customer's own statement that they paid. It
// never marks the order as admin confirmed.
func (c *Channel) ConfirmByCustomer(ctx context.Context, by actor.Actor, orderID int64) (*order.Order, error) {
	o, _, err := c.statuses.Transition(ctx, orderID, by, func(o *order.Order) error {
		if err := authorize(by, o); err != nil {
			return err
		}
		if o.PaymentCode == "" {
			return ErrNoPaymentCode
		}
		return nil
	}, order.Fixed(order.CustomerConfirm))
	return o, err
}

func issued(o *order.Order) Issued {
	out := Issued{OrderID: o.ID, OrderNumber: o.Number, Code: o.PaymentCode, Provider: o.PaymentProvider}
	if o.PaymentCodeIssuedAt != nil {
		out.IssuedAt = *o.PaymentCodeIssuedAt
	}
	return out
}
