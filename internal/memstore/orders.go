package memstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/MikeMC777/tienda-commerce/internal/order"
)

type Orders struct{ s *Store }

func (r *Orders) Create(_ context.Context, o *order.Order, consumed *order.Consumed) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, taken := r.s.numbers[o.Number]; taken {
		return fmt.Errorf("%w: %s", order.ErrDuplicateNumber, o.Number)
	}
	r.s.nextOrderID++
	now := r.s.now()
	o.ID = r.s.nextOrderID
	o.Version = 1
	o.CreatedAt, o.UpdatedAt = now, now
	for i := range o.Lines {
		r.s.nextLineID++
		o.Lines[i].ID = r.s.nextLineID
	}
	r.s.orders[o.ID] = cloneOrder(o)
	r.s.numbers[o.Number] = o.ID
	if consumed != nil {
		carts := &Carts{r.s}
		for _, l := range consumed.Lines {
			carts.decrement(consumed.CartID, l.ProductID, l.Quantity)
		}
	}
	return nil
}

func (r *Orders) Get(_ context.Context, id int64) (*order.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	return cloneOrder(o), nil
}

func (r *Orders) List(_ context.Context, q order.ListQuery) ([]order.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	all := []order.Order{}
	for _, o := range r.s.orders {
		if q.Matches(o, r.owner) {
			all = append(all, *cloneOrder(o))
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})
	return page(all, q.Limit, q.Offset), nil
}

// owner must be called with the store lock held.
func (r *Orders) owner(productID int64) int64 {
	return r.s.products[productID].OwnerID
}

func (r *Orders) UpdateStatus(_ context.Context, id int64, version int, st order.Status) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok {
		return 0, order.ErrNotFound
	}
	if o.Version != version {
		return 0, order.ErrVersionConflict
	}
	o.Status = st
	o.Version++
	o.UpdatedAt = r.s.now()
	return o.Version, nil
}

func (r *Orders) SetPaymentCode(_ context.Context, id int64, code, provider string, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok {
		return false, order.ErrNotFound
	}
	if o.PaymentCode != "" {
		return false, nil
	}
	o.PaymentCode, o.PaymentProvider, o.PaymentCodeIssuedAt = code, provider, &at
	o.Version++
	o.UpdatedAt = r.s.now()
	return true, nil
}

func cloneOrder(o *order.Order) *order.Order {
	c := *o
	c.Lines = append([]order.Line{}, o.Lines...)
	if o.Customer.AccountID != nil {
		id := *o.Customer.AccountID
		c.Customer.AccountID = &id
	}
	return &c
}
