package memstore

import (
	"context"

	"github.com/MikeMC777/tienda-commerce/internal/cart"
)

type Carts struct{ s *Store }

func (r *Carts) FindByAccount(_ context.Context, accountID int64) (*cart.Cart, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if row := r.byAccount(accountID); row != nil {
		c := row.cart
		return &c, nil
	}
	return nil, cart.ErrNotFound
}

func (r *Carts) FindByTokenHash(_ context.Context, hash string) (*cart.Cart, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, row := range r.s.carts {
		if row.tokenHash != "" && row.tokenHash == hash {
			c := row.cart
			return &c, nil
		}
	}
	return nil, cart.ErrNotFound
}

func (r *Carts) CreateForAccount(_ context.Context, accountID int64) (*cart.Cart, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if row := r.byAccount(accountID); row != nil {
		c := row.cart
		return &c, nil
	}
	acc := accountID
	row := r.insert(&acc, "")
	c := row.cart
	return &c, nil
}

func (r *Carts) CreateAnonymous(_ context.Context, tokenHash string) (*cart.Cart, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row := r.insert(nil, tokenHash)
	c := row.cart
	return &c, nil
}

func (r *Carts) Lines(_ context.Context, cartID int64) ([]cart.Line, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.carts[cartID]
	if !ok {
		return []cart.Line{}, nil
	}
	return append([]cart.Line{}, row.lines...), nil
}

func (r *Carts) IncrementLine(_ context.Context, cartID, productID int64, qty int) (cart.Line, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.carts[cartID]
	if !ok {
		return cart.Line{}, cart.ErrNotFound
	}
	now := r.s.now()
	row.cart.UpdatedAt = now
	for i := range row.lines {
		if row.lines[i].ProductID == productID {
			row.lines[i].Quantity += qty
			row.lines[i].UpdatedAt = now
			return row.lines[i], nil
		}
	}
	l := cart.Line{ProductID: productID, Quantity: qty, AddedAt: now, UpdatedAt: now}
	row.lines = append(row.lines, l)
	return l, nil
}

func (r *Carts) DecrementLine(_ context.Context, cartID, productID int64, qty int) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.decrement(cartID, productID, qty), nil
}

func (r *Carts) RemoveLine(_ context.Context, cartID, productID int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.carts[cartID]
	if !ok {
		return false, nil
	}
	for i := range row.lines {
		if row.lines[i].ProductID == productID {
			row.lines = append(row.lines[:i], row.lines[i+1:]...)
			row.cart.UpdatedAt = r.s.now()
			return true, nil
		}
	}
	return false, nil
}

func (r *Carts) ClearLines(_ context.Context, cartID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.clear(cartID)
	return nil
}

func (r *Carts) MergeInto(_ context.Context, fromID, toID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	from, ok := r.s.carts[fromID]
	if !ok {
		return cart.ErrNotFound
	}
	to, ok := r.s.carts[toID]
	if !ok {
		return cart.ErrNotFound
	}
	now := r.s.now()
	for _, fl := range from.lines {
		merged := false
		for i := range to.lines {
			if to.lines[i].ProductID == fl.ProductID {
				to.lines[i].Quantity += fl.Quantity
				to.lines[i].UpdatedAt = now
				merged = true
				break
			}
		}
		if !merged {
			fl.UpdatedAt = now
			to.lines = append(to.lines, fl)
		}
	}
	to.cart.UpdatedAt = now
	delete(r.s.carts, fromID)
	return nil
}

// decrement must be called with the store lock held.
func (r *Carts) decrement(cartID, productID int64, qty int) bool {
	row, ok := r.s.carts[cartID]
	if !ok {
		return false
	}
	for i := range row.lines {
		if row.lines[i].ProductID != productID {
			continue
		}
		now := r.s.now()
		row.cart.UpdatedAt = now
		row.lines[i].Quantity -= qty
		row.lines[i].UpdatedAt = now
		if row.lines[i].Quantity <= 0 {
			row.lines = append(row.lines[:i], row.lines[i+1:]...)
		}
		return true
	}
	return false
}

// clear must be called with the store lock held.
func (r *Carts) clear(cartID int64) {
	if row, ok := r.s.carts[cartID]; ok {
		row.lines = nil
		row.cart.UpdatedAt = r.s.now()
	}
}

func (r *Carts) byAccount(accountID int64) *cartRow {
	for _, row := range r.s.carts {
		if row.cart.AccountID != nil && *row.cart.AccountID == accountID {
			return row
		}
	}
	return nil
}

func (r *Carts) insert(accountID *int64, tokenHash string) *cartRow {
	r.s.nextCartID++
	now := r.s.now()
	row := &cartRow{
		cart:      cart.Cart{ID: r.s.nextCartID, AccountID: accountID, CreatedAt: now, UpdatedAt: now},
		tokenHash: tokenHash,
	}
	r.s.carts[row.cart.ID] = row
	return row
}
