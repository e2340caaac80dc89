package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/MikeMC777/tienda-commerce/internal/actor"
	"github.com/MikeMC777/tienda-commerce/internal/apperr"
	"github.com/MikeMC777/tienda-commerce/internal/notify"
	"github.com/MikeMC777/tienda-commerce/internal/product"
)

const maxVersionAttempts = 3

var ErrNotCancellable = apperr.New(apperr.KindPreconditionFailed, "not_cancellable", "order is already paid or delivered")

// Authorizer decides which orders an actor may see or change.
type Authorizer interface {
	CanView(ctx context.Context, by actor.Actor, o *Order) error
	CanMutate(ctx context.Context, by actor.Actor, o *Order) error
	// CanSellProducts gates operator-created orders on product ownership.
	CanSellProducts(ctx context.Context, by actor.Actor, products []product.Product) error
	// Scope narrows a listing to what the actor may see.
	Scope(by actor.Actor) (ListQuery, error)
}

type cartClearer interface {
	ClearForAccount(ctx context.Context, accountID int64) error
}

// Guard inspects the freshly loaded order before a transition is applied.
type Guard func(o *Order) error

type Service struct {
	repo     Repository
	authz    Authorizer
	carts    cartClearer
	notifier notifier
	now      func() time.Time
	logger   *zap.Logger
}

func NewService(repo Repository, authz Authorizer, carts cartClearer, n notifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, authz: authz, carts: carts, notifier: n, now: time.Now, logger: logger}
}

func (s *Service) Get(ctx context.Context, by actor.Actor, id int64) (*Order, error) {
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authz.CanView(ctx, by, o); err != nil {
		return nil, err
	}
	return o, nil
}

// Lookup loads an order without authorization; callers apply their own rules.
func (s *Service) Lookup(ctx context.Context, id int64) (*Order, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, by actor.Actor, limit, offset int) ([]Order, error) {
	q, err := s.authz.Scope(by)
	if err != nil {
		return nil, err
	}
	q.Limit, q.Offset = limit, offset
	return s.repo.List(ctx, q)
}

// UpdateStatus applies an operator's patch. Sellers must be active and have a
// product on the order.
func (s *Service) UpdateStatus(ctx context.Context, by actor.Actor, id int64, patch StatusPatch) (*Order, error) {
	var ts []Transition
	o, _, err := s.Transition(ctx, id, by, func(o *Order) error {
		if err := s.authz.CanMutate(ctx, by, o); err != nil {
			return err
		}
		var err error
		ts, err = patch.Transitions(o.Status)
		return err
	}, func() []Transition { return ts })
	return o, err
}

// AdminConfirm settles the order with admin trust and empties the buyer's
// cart. Confirming twice changes nothing.
func (s *Service) AdminConfirm(ctx context.Context, by actor.Actor, id int64) (*Order, error) {
	if !by.IsAdmin() {
		return nil, apperr.Forbidden("only an admin can confirm payments")
	}
	o, applied, err := s.Transition(ctx, id, by, nil, Fixed(AdminConfirm))
	if err != nil {
		return nil, err
	}
	if len(applied) > 0 && o.Customer.AccountID != nil && s.carts != nil {
		if err := s.carts.ClearForAccount(ctx, *o.Customer.AccountID); err != nil {
			s.logger.Warn("clearing buyer cart after confirmation failed",
				zap.Int64("order_id", o.ID), zap.Int64("account_id", *o.Customer.AccountID), zap.Error(err))
		}
	}
	return o, nil
}

// CancelByCustomer lets the buyer withdraw an order nobody has acted on yet.
func (s *Service) CancelByCustomer(ctx context.Context, by actor.Actor, id int64) (*Order, error) {
	accountID, ok := by.AccountID()
	if !ok {
		return nil, apperr.Forbidden("sign in to cancel an order")
	}
	o, _, err := s.Transition(ctx, id, by, func(o *Order) error {
		if !o.PlacedBy(accountID) {
			return apperr.Forbidden("order belongs to another customer")
		}
		if o.Status.Cancelled {
			return nil
		}
		if o.Status.Paid || o.Status.Delivered {
			return ErrNotCancellable
		}
		return nil
	}, Fixed(Cancel))
	return o, err
}

// Fixed returns a transition list that does not depend on the loaded order.
func Fixed(ts ...Transition) func() []Transition {
	return func() []Transition { return ts }
}

// Transition loads the order, runs guard, applies the transitions in order and
// writes the result under optimistic versioning, retrying on concurrent
// writers. It returns the transitions that changed state; each of those emits
// one notification to the customer.
func (s *Service) Transition(ctx context.Context, id int64, by actor.Actor, guard Guard, transitions func() []Transition) (*Order, []Transition, error) {
	for attempt := 0; attempt < maxVersionAttempts; attempt++ {
		o, err := s.repo.Get(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		if guard != nil {
			if err := guard(o); err != nil {
				return nil, nil, err
			}
		}

		at := s.now().UTC()
		next := o.Status
		var applied []Transition
		for _, t := range transitions() {
			st, changed, err := Apply(next, t, at, by)
			if err != nil {
				return nil, nil, err
			}
			if changed {
				next = st
				applied = append(applied, t)
			}
		}
		if len(applied) == 0 {
			return o, nil, nil
		}

		version, err := s.repo.UpdateStatus(ctx, o.ID, o.Version, next)
		if errors.Is(err, ErrVersionConflict) {
			s.logger.Debug("order version conflict, retrying", zap.Int64("order_id", id), zap.Int("attempt", attempt+1))
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("update order %d status: %w", id, err)
		}
		o.Status, o.Version, o.UpdatedAt = next, version, at

		s.logger.Info("order status changed",
			zap.Int64("order_id", o.ID), zap.Stringer("actor", by), zap.Any("transitions", applied))
		for _, t := range applied {
			s.announce(ctx, o, t)
		}
		return o, applied, nil
	}
	return nil, nil, fmt.Errorf("%w: order %d", ErrVersionConflict, id)
}

var transitionMessages = map[Transition]struct {
	kind     string
	format   string
	severity notify.Severity
}{
	MarkPaid:        {"order.paid", "Payment for order %s was recorded.", notify.SeveritySuccess},
	CustomerConfirm: {"order.payment_received", "We received your payment notice for order %s. It will be verified shortly.", notify.SeverityInfo},
	AdminConfirm:    {"order.confirmed", "Payment for order %s was confirmed.", notify.SeveritySuccess},
	MarkDelivered:   {"order.delivered", "Order %s was delivered.", notify.SeveritySuccess},
	Cancel:          {"order.cancelled", "Order %s was cancelled.", notify.SeverityWarning},
}

func (s *Service) announce(ctx context.Context, o *Order, t Transition) {
	if s.notifier == nil {
		return
	}
	m, ok := transitionMessages[t]
	if !ok {
		return
	}
	ev := notify.Event{
		Kind:        m.kind,
		Recipient:   o.Customer.Recipient(),
		Message:     fmt.Sprintf(m.format, o.Number),
		Severity:    m.severity,
		OrderID:     o.ID,
		OrderNumber: o.Number,
	}
	s.notifier.Notify(ctx, ev)
	if t == CustomerConfirm {
		ev.Kind = "order.awaiting_confirmation"
		ev.Message = fmt.Sprintf("Customer reported payment for order %s.", o.Number)
		s.notifier.NotifyAdmins(ctx, ev)
	}
}
