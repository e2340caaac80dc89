// Package tenant partitions orders and products between the platform admin and
// independent sellers. An order has no owner column; its sellers are the
// owners of the products on its lines.
package tenant

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/MikeMC777/tienda-commerce/internal/actor"
	"github.com/MikeMC777/tienda-commerce/internal/apperr"
	"github.com/MikeMC777/tienda-commerce/internal/order"
	"github.com/MikeMC777/tienda-commerce/internal/product"
)

const customerScanPage = 100

var (
	ErrInactiveSeller = apperr.New(apperr.KindForbidden, "seller_inactive", "seller account is not active")
	ErrNotYourOrder   = apperr.New(apperr.KindForbidden, "foreign_order", "order has none of your products")
	ErrNotYourProduct = apperr.New(apperr.KindForbidden, "foreign_product", "product belongs to another seller")
	ErrOperatorOnly   = apperr.Forbidden("only admins and sellers can do this")
)

type productCatalog interface {
	GetMany(ctx context.Context, ids []int64) (map[int64]product.Product, error)
	List(ctx context.Context, q product.Query) ([]product.Product, error)
}

type orderLister interface {
	List(ctx context.Context, q order.ListQuery) ([]order.Order, error)
}

// Filter implements order.Authorizer plus the seller-facing product and
// customer views.
type Filter struct {
	products productCatalog
	orders   orderLister
}

func New(products productCatalog) *Filter { return &Filter{products: products} }

// WithOrders enables MyCustomers. The order repository is injected after
// construction since the order service itself depends on the filter.
func (f *Filter) WithOrders(orders orderLister) *Filter {
	f.orders = orders
	return f
}

// RequireActiveSeller rejects sellers whose account is not active. Admins pass.
func RequireActiveSeller(by actor.Actor) error {
	switch {
	case by.IsAdmin():
		return nil
	case by.IsSeller():
		if by.Status != actor.StatusActive {
			return fmt.Errorf("%w: status %s", ErrInactiveSeller, by.Status)
		}
		return nil
	default:
		return ErrOperatorOnly
	}
}

// CanView lets admins see everything, sellers see orders containing at least
// one of their products and customers see their own orders.
func (f *Filter) CanView(ctx context.Context, by actor.Actor, o *order.Order) error {
	switch {
	case by.IsAdmin():
		return nil
	case by.IsSeller():
		if by.ID > 0 && o.PlacedBy(by.ID) {
			return nil
		}
		return f.requireContainment(ctx, by.ID, o)
	default:
		if id, ok := by.AccountID(); ok && o.PlacedBy(id) {
			return nil
		}
		return ErrNotYourOrder
	}
}

// CanMutate is the operator write check: the seller must be active, then the
// order must contain one of the seller's products. Any seller represented on
// a mixed order may change it.
func (f *Filter) CanMutate(ctx context.Context, by actor.Actor, o *order.Order) error {
	if err := RequireActiveSeller(by); err != nil {
		return err
	}
	if by.IsAdmin() {
		return nil
	}
	return f.requireContainment(ctx, by.ID, o)
}

func (f *Filter) CanSellProducts(_ context.Context, by actor.Actor, products []product.Product) error {
	if err := RequireActiveSeller(by); err != nil {
		return err
	}
	if by.IsAdmin() {
		return nil
	}
	for _, p := range products {
		if p.OwnerID != by.ID {
			return fmt.Errorf("%w: product %d", ErrNotYourProduct, p.ID)
		}
	}
	return nil
}

// Scope is the listing form of CanView: a seller lists orders containing its
// products plus the orders it placed itself.
func (f *Filter) Scope(by actor.Actor) (order.ListQuery, error) {
	switch {
	case by.IsAdmin():
		return order.ListQuery{}, nil
	case by.IsSeller():
		return order.ListQuery{SellerID: by.ID, AccountID: by.ID}, nil
	default:
		if id, ok := by.AccountID(); ok {
			return order.ListQuery{AccountID: id}, nil
		}
		return order.ListQuery{}, apperr.New(apperr.KindUnauthenticated, "", "sign in to list orders")
	}
}

// ContainsSellerProduct reports whether any line of o references a product
// owned by sellerID.
func (f *Filter) ContainsSellerProduct(ctx context.Context, sellerID int64, o *order.Order) (bool, error) {
	owned, err := f.products.GetMany(ctx, o.ProductIDs())
	if err != nil {
		return false, fmt.Errorf("load order %d products: %w", o.ID, err)
	}
	for _, p := range owned {
		if p.OwnerID == sellerID {
			return true, nil
		}
	}
	return false, nil
}

func (f *Filter) requireContainment(ctx context.Context, sellerID int64, o *order.Order) error {
	ok, err := f.ContainsSellerProduct(ctx, sellerID, o)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotYourOrder
	}
	return nil
}

// CanViewProduct is strict ownership for sellers.
func CanViewProduct(by actor.Actor, p product.Product) error {
	switch {
	case by.IsAdmin():
		return nil
	case by.IsSeller() && p.OwnerID == by.ID:
		return nil
	case by.IsSeller():
		return fmt.Errorf("%w: product %d", ErrNotYourProduct, p.ID)
	default:
		return ErrOperatorOnly
	}
}

// SellerProducts lists the products the actor may manage.
func (f *Filter) SellerProducts(ctx context.Context, by actor.Actor, limit, offset int) ([]product.Product, error) {
	q := product.Query{Limit: limit, Offset: offset}
	switch {
	case by.IsAdmin():
	case by.IsSeller():
		q.OwnerID = by.ID
	default:
		return nil, ErrOperatorOnly
	}
	return f.products.List(ctx, q)
}

// Customer is one distinct buyer across the seller's visible orders.
type Customer struct {
	AccountID   *int64    `json:"account_id,omitempty"`
	Name        string    `json:"name,omitempty"`
	Email       string    `json:"email,omitempty"`
	OrderCount  int       `json:"order_count"`
	LastOrderAt time.Time `json:"last_order_at"`
}

// MyCustomers scans every order holding the actor's products and de-duplicates buyers
// by account id or, for guests, by email. Cost is linear in the order count.
func (f *Filter) MyCustomers(ctx context.Context, by actor.Actor) ([]Customer, error) {
	if !by.IsOperator() {
		return nil, ErrOperatorOnly
	}
	if f.orders == nil {
		return nil, apperr.New(apperr.KindInternal, "", "order listing is not configured")
	}
	q, err := f.Scope(by)
	if err != nil {
		return nil, err
	}
	// A seller's own purchases do not make it its own customer.
	q.AccountID = 0

	byKey := map[string]*Customer{}
	for offset := 0; ; offset += customerScanPage {
		q.Limit, q.Offset = customerScanPage, offset
		page, err := f.orders.List(ctx, q)
		if err != nil {
			return nil, err
		}
		for _, o := range page {
			key := o.Customer.Key()
			c, ok := byKey[key]
			if !ok {
				c = &Customer{
					AccountID: o.Customer.AccountID,
					Name:      o.Customer.GuestName,
					Email:     strings.ToLower(o.Customer.GuestEmail),
				}
				byKey[key] = c
			}
			c.OrderCount++
			if o.CreatedAt.After(c.LastOrderAt) {
				c.LastOrderAt = o.CreatedAt
			}
		}
		if len(page) < customerScanPage {
			break
		}
	}

	out := make([]Customer, 0, len(byKey))
	for _, c := range byKey {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OrderCount != out[j].OrderCount {
			return out[i].OrderCount > out[j].OrderCount
		}
		return out[i].LastOrderAt.After(out[j].LastOrderAt)
	})
	return out, nil
}
