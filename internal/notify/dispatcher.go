package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/MikeMC777/tienda-commerce/internal/account"
)

const defaultTimeout = 5 * time.Second

type adminDirectory interface {
	ListByRole(ctx context.Context, role account.Role) ([]account.Account, error)
}

// Dispatcher hands events to a Sink off the caller's path. Each delivery gets
// its own deadline and survives cancellation of the triggering request; a
// failure is logged and dropped.
type Dispatcher struct {
	sink    Sink
	admins  adminDirectory
	timeout time.Duration
	logger  *zap.Logger
	clock   func() time.Time
	wg      sync.WaitGroup
}

func NewDispatcher(sink Sink, admins adminDirectory, timeout time.Duration, logger *zap.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{sink: sink, admins: admins, timeout: timeout, logger: logger, clock: time.Now}
}

// Notify schedules delivery of ev to its recipient and returns immediately.
func (d *Dispatcher) Notify(ctx context.Context, ev Event) {
	if d == nil || d.sink == nil {
		return
	}
	if ev.Recipient.IsZero() {
		d.logger.Warn("notification without recipient dropped", zap.String("kind", ev.Kind), zap.Int64("order_id", ev.OrderID))
		return
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = d.clock().UTC()
	}
	base := context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.deliver(base, ev)
	}()
}

// NotifyAdmins fans ev out to every admin account.
func (d *Dispatcher) NotifyAdmins(ctx context.Context, ev Event) {
	if d == nil || d.sink == nil || d.admins == nil {
		return
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = d.clock().UTC()
	}
	base := context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		lookupCtx, cancel := context.WithTimeout(base, d.timeout)
		admins, err := d.admins.ListByRole(lookupCtx, account.RoleAdmin)
		cancel()
		if err != nil {
			d.logger.Warn("admin notification skipped", zap.String("kind", ev.Kind), zap.Error(err))
			return
		}
		for _, a := range admins {
			out := ev
			out.Recipient = Recipient{AccountID: a.ID, Email: a.Email}
			d.deliver(base, out)
		}
	}()
}

func (d *Dispatcher) deliver(base context.Context, ev Event) {
	ctx, cancel := context.WithTimeout(base, d.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("notification sink panicked", zap.String("kind", ev.Kind), zap.Any("panic", r))
		}
	}()
	if err := d.sink.Deliver(ctx, ev); err != nil {
		d.logger.Warn("notification delivery failed",
			zap.String("kind", ev.Kind),
			zap.Int64("order_id", ev.OrderID),
			zap.Int64("recipient_account_id", ev.Recipient.AccountID),
			zap.Error(err))
	}
}

// Wait blocks until every scheduled delivery has finished. Used on shutdown.
func (d *Dispatcher) Wait() {
	if d != nil {
		d.wg.Wait()
	}
}
