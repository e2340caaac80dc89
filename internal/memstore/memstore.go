// Package memstore keeps every repository in process memory. It backs unit
// tests and the STORAGE=memory local mode; a single mutex serialises writes so
// the same atomicity the Postgres repositories get from single statements and
// transactions holds here too.
package memstore

import (
	"sync"
	"time"

	"github.com/MikeMC777/tienda-commerce/internal/account"
	"github.com/MikeMC777/tienda-commerce/internal/cart"
	"github.com/MikeMC777/tienda-commerce/internal/order"
	"github.com/MikeMC777/tienda-commerce/internal/product"
)

type cartRow struct {
	cart      cart.Cart
	tokenHash string
	lines     []cart.Line
}

type Store struct {
	mu sync.Mutex

	accounts map[int64]account.Account
	products map[int64]product.Product
	carts    map[int64]*cartRow
	orders   map[int64]*order.Order
	numbers  map[string]int64

	nextCartID  int64
	nextOrderID int64
	nextLineID  int64

	now func() time.Time
}

func New() *Store {
	return &Store{
		accounts: map[int64]account.Account{},
		products: map[int64]product.Product{},
		carts:    map[int64]*cartRow{},
		orders:   map[int64]*order.Order{},
		numbers:  map[string]int64{},
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// PutAccount inserts or replaces an account.
func (s *Store) PutAccount(a account.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now()
	}
	a.UpdatedAt = s.now()
	s.accounts[a.ID] = a
}

// PutProduct inserts or replaces a product.
func (s *Store) PutProduct(p product.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	p.UpdatedAt = s.now()
	s.products[p.ID] = p
}

func (s *Store) Accounts() *Accounts { return &Accounts{s} }
func (s *Store) Products() *Products { return &Products{s} }
func (s *Store) Carts() *Carts       { return &Carts{s} }
func (s *Store) Orders() *Orders     { return &Orders{s} }

var (
	_ account.Repository = (*Accounts)(nil)
	_ product.Repository = (*Products)(nil)
	_ cart.Repository    = (*Carts)(nil)
	_ order.Repository   = (*Orders)(nil)
)
