package order

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/MikeMC777/tienda-commerce/internal/account"
	"github.com/MikeMC777/tienda-commerce/internal/actor"
	"github.com/MikeMC777/tienda-commerce/internal/apperr"
	"github.com/MikeMC777/tienda-commerce/internal/cart"
	"github.com/MikeMC777/tienda-commerce/internal/notify"
	"github.com/MikeMC777/tienda-commerce/internal/product"
)

const maxNumberAttempts = 3

var ErrNoLines = apperr.InvalidArgument("order needs at least one line")

type cartSource interface {
	Resolve(ctx context.Context, id cart.Identity) (cart.Cart, error)
}

type productSource interface {
	GetMany(ctx context.Context, ids []int64) (map[int64]product.Product, error)
}

type accountSource interface {
	GetByID(ctx context.Context, id int64) (*account.Account, error)
}

type notifier interface {
	Notify(ctx context.Context, ev notify.Event)
	NotifyAdmins(ctx context.Context, ev notify.Event)
}

type CheckoutRequest struct {
	Cart            cart.Identity
	Customer        Customer
	ShippingAddress Address
	PaymentMethod   PaymentMethod
}

type LineInput struct {
	ProductID int64 `json:"product_id" example:"10"`
	Quantity  int   `json:"quantity" example:"2"`
}

type OperatorRequest struct {
	Customer        Customer
	Lines           []LineInput
	ShippingAddress Address
	PaymentMethod   PaymentMethod
}

// Factory turns carts, or explicit line lists from operators, into priced
// order snapshots.
type Factory struct {
	repo      Repository
	carts     cartSource
	products  productSource
	accounts  accountSource
	authz     Authorizer
	pricing   Pricing
	notifier  notifier
	newNumber func(time.Time) string
	now       func() time.Time
	logger    *zap.Logger
}

type FactoryDeps struct {
	Repo     Repository
	Carts    cartSource
	Products productSource
	Accounts accountSource
	Authz    Authorizer
	Notifier notifier
	Logger   *zap.Logger
}

func NewFactory(d FactoryDeps, pricing Pricing) *Factory {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Factory{
		repo:      d.Repo,
		carts:     d.Carts,
		products:  d.Products,
		accounts:  d.Accounts,
		authz:     d.Authz,
		pricing:   pricing,
		notifier:  d.Notifier,
		newNumber: NewNumber,
		now:       time.Now,
		logger:    logger,
	}
}

// WithNumbers replaces the order number source.
func (f *Factory) WithNumbers(next func(time.Time) string) *Factory {
	f.newNumber = next
	return f
}

// Checkout converts the cart into an order and takes the ordered lines out
// of the cart in the same write. Current product prices are read here and frozen on the lines.
func (f *Factory) Checkout(ctx context.Context, by actor.Actor, req CheckoutRequest) (*Order, error) {
	if err := validateOrderInput(req.Customer, req.ShippingAddress, req.PaymentMethod); err != nil {
		return nil, err
	}
	if !req.Customer.IsGuest() && (!req.Cart.IsAccount() || req.Cart.AccountID != *req.Customer.AccountID) {
		return nil, apperr.Forbidden("an account can only check out its own cart")
	}

	c, err := f.carts.Resolve(ctx, req.Cart)
	if req.Cart.IsAccount() && errors.Is(err, cart.ErrNotFound) {
		return nil, ErrEmptyCart
	}
	if err != nil {
		return nil, err
	}
	if c.IsEmpty() {
		return nil, ErrEmptyCart
	}

	inputs := make([]LineInput, 0, len(c.Lines))
	for _, l := range c.Lines {
		inputs = append(inputs, LineInput{ProductID: l.ProductID, Quantity: l.Quantity})
	}
	lines, _, err := f.freezeLines(ctx, inputs)
	if err != nil {
		return nil, err
	}

	o := f.draft(by, req.Customer, req.ShippingAddress, req.PaymentMethod, lines)
	if err := f.persist(ctx, o, &Consumed{CartID: c.ID, Lines: inputs}); err != nil {
		return nil, err
	}
	f.logger.Info("order placed",
		zap.Int64("order_id", o.ID), zap.String("order_number", o.Number),
		zap.Int64("cart_id", c.ID), zap.String("total", o.Total.String()))
	f.announce(ctx, o)
	return o, nil
}

// CreateAsOperator places an order on a customer's behalf. Sellers may only
// sell products they own.
func (f *Factory) CreateAsOperator(ctx context.Context, by actor.Actor, req OperatorRequest) (*Order, error) {
	if !by.IsOperator() {
		return nil, apperr.Forbidden("only admins and sellers can create orders for customers")
	}
	if err := validateOrderInput(req.Customer, req.ShippingAddress, req.PaymentMethod); err != nil {
		return nil, err
	}
	inputs, err := mergeInputs(req.Lines)
	if err != nil {
		return nil, err
	}
	if !req.Customer.IsGuest() {
		if _, err := f.accounts.GetByID(ctx, *req.Customer.AccountID); err != nil {
			return nil, fmt.Errorf("customer account %d: %w", *req.Customer.AccountID, err)
		}
	}

	lines, products, err := f.freezeLines(ctx, inputs)
	if err != nil {
		return nil, err
	}
	if err := f.authz.CanSellProducts(ctx, by, products); err != nil {
		return nil, err
	}

	o := f.draft(by, req.Customer, req.ShippingAddress, req.PaymentMethod, lines)
	if err := f.persist(ctx, o, nil); err != nil {
		return nil, err
	}
	f.logger.Info("order created by operator",
		zap.Int64("order_id", o.ID), zap.String("order_number", o.Number), zap.Stringer("actor", by))
	f.announce(ctx, o)
	return o, nil
}

func validateOrderInput(c Customer, addr Address, method PaymentMethod) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := addr.Validate(); err != nil {
		return err
	}
	if !method.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidMethod, method)
	}
	return nil
}

// mergeInputs folds repeated products into one line, keeping first-seen order.
func mergeInputs(in []LineInput) ([]LineInput, error) {
	if len(in) == 0 {
		return nil, ErrNoLines
	}
	idx := make(map[int64]int, len(in))
	out := make([]LineInput, 0, len(in))
	for _, l := range in {
		if l.Quantity <= 0 {
			return nil, fmt.Errorf("%w: product %d", cart.ErrInvalidQuantity, l.ProductID)
		}
		if i, ok := idx[l.ProductID]; ok {
			out[i].Quantity += l.Quantity
			continue
		}
		idx[l.ProductID] = len(out)
		out = append(out, l)
	}
	return out, nil
}

func (f *Factory) freezeLines(ctx context.Context, in []LineInput) ([]Line, []product.Product, error) {
	ids := make([]int64, 0, len(in))
	for _, l := range in {
		ids = append(ids, l.ProductID)
	}
	found, err := f.products.GetMany(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("load products: %w", err)
	}
	lines := make([]Line, 0, len(in))
	products := make([]product.Product, 0, len(in))
	for _, l := range in {
		p, ok := found[l.ProductID]
		if !ok {
			return nil, nil, fmt.Errorf("%w: %d", product.ErrNotFound, l.ProductID)
		}
		lines = append(lines, Line{ProductID: p.ID, Quantity: l.Quantity, UnitPrice: p.Price})
		products = append(products, p)
	}
	sort.SliceStable(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return lines, products, nil
}

func (f *Factory) draft(by actor.Actor, c Customer, addr Address, method PaymentMethod, lines []Line) *Order {
	o := &Order{
		Customer:        c,
		ShippingAddress: addr,
		PaymentMethod:   method,
		Lines:           lines,
		CreatedBy:       by.String(),
	}
	f.pricing.Quote(lines, method).apply(o)
	return o
}

func (f *Factory) persist(ctx context.Context, o *Order, consumed *Consumed) error {
	var err error
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		o.Number = f.newNumber(f.now())
		err = f.repo.Create(ctx, o, consumed)
		if !errors.Is(err, ErrDuplicateNumber) {
			return err
		}
		f.logger.Warn("order number collision", zap.String("order_number", o.Number), zap.Int("attempt", attempt+1))
	}
	return err
}

func (f *Factory) announce(ctx context.Context, o *Order) {
	if f.notifier == nil {
		return
	}
	f.notifier.Notify(ctx, notify.Event{
		Kind:        "order.placed",
		Recipient:   o.Customer.Recipient(),
		Message:     fmt.Sprintf("Your order %s was received. Total %s.", o.Number, o.Total.String()),
		Severity:    notify.SeveritySuccess,
		OrderID:     o.ID,
		OrderNumber: o.Number,
	})
	f.notifier.NotifyAdmins(ctx, notify.Event{
		Kind:        "order.new",
		Message:     fmt.Sprintf("New order %s placed by %s.", o.Number, o.CreatedBy),
		Severity:    notify.SeverityInfo,
		OrderID:     o.ID,
		OrderNumber: o.Number,
	})
}
