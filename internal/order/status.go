package order

import (
	"fmt"
	"time"

	"github.com/MikeMC777/tienda-commerce/internal/actor"
	"github.com/MikeMC777/tienda-commerce/internal/apperr"
)

var ErrInvalidState = apperr.New(apperr.KindPreconditionFailed, "invalid_state", "order is cancelled")

type Transition string

const (
	MarkPaid        Transition = "mark_paid"
	MarkDelivered   Transition = "mark_delivered"
	AdminConfirm    Transition = "admin_confirm"
	CustomerConfirm Transition = "customer_confirm"
	Cancel          Transition = "cancel"
)

// Apply is the order state machine. It returns the next status and whether
// anything changed; repeating a transition that already took effect is a no-op.
// Cancellation is terminal: every transition but Cancel fails afterwards.
func Apply(s Status, t Transition, at time.Time, by actor.Actor) (Status, bool, error) {
	if t != Cancel && s.Cancelled {
		return s, false, fmt.Errorf("%w: cannot %s", ErrInvalidState, t)
	}
	switch t {
	case MarkPaid:
		if s.Paid {
			return s, false, nil
		}
		s.Paid, s.PaidAt, s.PaidVia = true, &at, PaidViaOperator
	case CustomerConfirm:
		if s.Paid {
			return s, false, nil
		}
		s.Paid, s.PaidAt, s.PaidVia = true, &at, PaidViaCustomer
	case AdminConfirm:
		if s.ConfirmedByAdmin {
			return s, false, nil
		}
		s.Paid, s.PaidAt, s.PaidVia = true, &at, PaidViaAdmin
		s.ConfirmedByAdmin, s.ConfirmedAt = true, &at
	case MarkDelivered:
		if s.Delivered {
			return s, false, nil
		}
		s.Delivered, s.DeliveredAt = true, &at
	case Cancel:
		if s.Cancelled {
			return s, false, nil
		}
		s.Cancelled, s.CancelledAt, s.CancelledBy = true, &at, by.String()
	default:
		return s, false, apperr.InvalidArgument(fmt.Sprintf("unknown transition %q", t))
	}
	return s, true, nil
}

// StatusPatch is an operator's partial status update. Flags can only be set;
// clearing a flag that is already true is rejected.
type StatusPatch struct {
	Paid      *bool `json:"is_paid,omitempty"`
	Delivered *bool `json:"is_delivered,omitempty"`
	Cancelled *bool `json:"is_cancelled,omitempty"`
}

// Transitions resolves the patch against the current status, in the fixed
// order paid, delivered, cancelled.
func (p StatusPatch) Transitions(current Status) ([]Transition, error) {
	if p.Paid == nil && p.Delivered == nil && p.Cancelled == nil {
		return nil, apperr.InvalidArgument("status update has no fields")
	}
	var ts []Transition
	steps := []struct {
		want *bool
		have bool
		name string
		t    Transition
	}{
		{p.Paid, current.Paid, "is_paid", MarkPaid},
		{p.Delivered, current.Delivered, "is_delivered", MarkDelivered},
		{p.Cancelled, current.Cancelled, "is_cancelled", Cancel},
	}
	for _, st := range steps {
		if st.want == nil {
			continue
		}
		if !*st.want {
			if st.have {
				return nil, apperr.InvalidArgument(st.name + " cannot be cleared once set")
			}
			continue
		}
		ts = append(ts, st.t)
	}
	return ts, nil
}
