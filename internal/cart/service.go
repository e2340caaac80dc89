package cart

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/MikeMC777/tienda-commerce/internal/apperr"
	"github.com/MikeMC777/tienda-commerce/internal/product"
)

var (
	ErrInvalidQuantity = apperr.InvalidArgument("quantity must be positive")
	ErrLineNotFound    = apperr.NotFound("product is not in the cart")
	ErrNoIdentity      = apperr.InvalidArgument("cart token is required")
)

type productFinder interface {
	GetByID(ctx context.Context, id int64) (*product.Product, error)
}

type Service struct {
	repo     Repository
	products productFinder
	newToken func() Token
	logger   *zap.Logger
}

func NewService(repo Repository, products productFinder, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, products: products, newToken: NewToken, logger: logger}
}

// GetOrCreate returns the cart for the identity. An account cart is created on
// first use. An anonymous identity without a token gets a fresh cart and the
// newly issued token; with a token, the cart must already exist.
// The returned token is empty unless one was issued by this call.
func (s *Service) GetOrCreate(ctx context.Context, id Identity) (Cart, Token, error) {
	c, issued, err := s.getOrCreate(ctx, id)
	if err != nil {
		return Cart{}, "", err
	}
	if err := s.loadLines(ctx, c); err != nil {
		return Cart{}, "", err
	}
	return *c, issued, nil
}

func (s *Service) getOrCreate(ctx context.Context, id Identity) (*Cart, Token, error) {
	if id.IsAccount() {
		c, err := s.repo.FindByAccount(ctx, id.AccountID)
		if errors.Is(err, ErrNotFound) {
			c, err = s.repo.CreateForAccount(ctx, id.AccountID)
		}
		if err != nil {
			return nil, "", fmt.Errorf("account cart %d: %w", id.AccountID, err)
		}
		return c, "", nil
	}
	if id.Token == "" {
		token := s.newToken()
		c, err := s.repo.CreateAnonymous(ctx, HashToken(token))
		if err != nil {
			return nil, "", fmt.Errorf("create anonymous cart: %w", err)
		}
		s.logger.Debug("anonymous cart issued", zap.Int64("cart_id", c.ID))
		return c, token, nil
	}
	c, err := s.findByToken(ctx, id.Token)
	return c, "", err
}

// Resolve loads an existing cart without creating one.
func (s *Service) Resolve(ctx context.Context, id Identity) (Cart, error) {
	var (
		c   *Cart
		err error
	)
	switch {
	case id.IsAccount():
		c, err = s.repo.FindByAccount(ctx, id.AccountID)
	case id.Token != "":
		c, err = s.findByToken(ctx, id.Token)
	default:
		return Cart{}, ErrNoIdentity
	}
	if err != nil {
		return Cart{}, err
	}
	if err := s.loadLines(ctx, c); err != nil {
		return Cart{}, err
	}
	return *c, nil
}

// View is the read path: a caller that has never added anything sees an empty
// cart and no cart is persisted for them.
func (s *Service) View(ctx context.Context, id Identity) (Cart, error) {
	if !id.IsAccount() && id.Token == "" {
		return Cart{Lines: []Line{}}, nil
	}
	c, err := s.Resolve(ctx, id)
	if id.IsAccount() && errors.Is(err, ErrNotFound) {
		acc := id.AccountID
		return Cart{AccountID: &acc, Lines: []Line{}}, nil
	}
	return c, err
}

// AddLine adds qty of productID, creating the cart lazily. Adding a product
// already in the cart increments its line.
func (s *Service) AddLine(ctx context.Context, id Identity, productID int64, qty int) (Cart, Token, error) {
	if qty <= 0 {
		return Cart{}, "", ErrInvalidQuantity
	}
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return Cart{}, "", err
	}
	c, issued, err := s.getOrCreate(ctx, id)
	if err != nil {
		return Cart{}, "", err
	}
	if _, err := s.repo.IncrementLine(ctx, c.ID, productID, qty); err != nil {
		return Cart{}, "", fmt.Errorf("add line: %w", err)
	}
	if err := s.loadLines(ctx, c); err != nil {
		return Cart{}, "", err
	}
	return *c, issued, nil
}

// RemoveLine deletes the product's line whatever its quantity.
func (s *Service) RemoveLine(ctx context.Context, id Identity, productID int64) (Cart, error) {
	c, err := s.existing(ctx, id)
	if err != nil {
		return Cart{}, err
	}
	removed, err := s.repo.RemoveLine(ctx, c.ID, productID)
	if err != nil {
		return Cart{}, fmt.Errorf("remove line: %w", err)
	}
	if !removed {
		return Cart{}, ErrLineNotFound
	}
	if err := s.loadLines(ctx, c); err != nil {
		return Cart{}, err
	}
	return *c, nil
}

// DecrementLine lowers the product's quantity by qty in one statement; the line
// disappears once it reaches zero.
func (s *Service) DecrementLine(ctx context.Context, id Identity, productID int64, qty int) (Cart, error) {
	if qty <= 0 {
		return Cart{}, ErrInvalidQuantity
	}
	c, err := s.existing(ctx, id)
	if err != nil {
		return Cart{}, err
	}
	found, err := s.repo.DecrementLine(ctx, c.ID, productID, qty)
	if err != nil {
		return Cart{}, fmt.Errorf("decrement line: %w", err)
	}
	if !found {
		return Cart{}, ErrLineNotFound
	}
	if err := s.loadLines(ctx, c); err != nil {
		return Cart{}, err
	}
	return *c, nil
}

// Merge moves the anonymous cart behind token into the account's cart,
// summing quantities per product. The anonymous cart is deleted.
func (s *Service) Merge(ctx context.Context, accountID int64, token Token) (Cart, error) {
	if accountID <= 0 {
		return Cart{}, apperr.Forbidden("merging requires an authenticated account")
	}
	if token == "" {
		return Cart{}, ErrNoIdentity
	}
	from, err := s.findByToken(ctx, token)
	if err != nil {
		return Cart{}, err
	}
	to, _, err := s.getOrCreate(ctx, AccountIdentity(accountID))
	if err != nil {
		return Cart{}, err
	}
	if from.ID != to.ID {
		if err := s.repo.MergeInto(ctx, from.ID, to.ID); err != nil {
			return Cart{}, fmt.Errorf("merge cart %d into %d: %w", from.ID, to.ID, err)
		}
		s.logger.Info("anonymous cart merged",
			zap.Int64("from_cart_id", from.ID), zap.Int64("to_cart_id", to.ID), zap.Int64("account_id", accountID))
	}
	if err := s.loadLines(ctx, to); err != nil {
		return Cart{}, err
	}
	return *to, nil
}

// Clear empties a cart after it was converted into an order.
func (s *Service) Clear(ctx context.Context, cartID int64) error {
	return s.repo.ClearLines(ctx, cartID)
}

// ClearForAccount empties the account's cart if it has one.
func (s *Service) ClearForAccount(ctx context.Context, accountID int64) error {
	c, err := s.repo.FindByAccount(ctx, accountID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.repo.ClearLines(ctx, c.ID)
}

func (s *Service) existing(ctx context.Context, id Identity) (*Cart, error) {
	switch {
	case id.IsAccount():
		return s.repo.FindByAccount(ctx, id.AccountID)
	case id.Token != "":
		return s.findByToken(ctx, id.Token)
	default:
		return nil, ErrNoIdentity
	}
}

func (s *Service) findByToken(ctx context.Context, t Token) (*Cart, error) {
	if !wellFormed(t) {
		return nil, fmt.Errorf("%w: unknown cart token", ErrNotFound)
	}
	return s.repo.FindByTokenHash(ctx, HashToken(t))
}

func (s *Service) loadLines(ctx context.Context, c *Cart) error {
	lines, err := s.repo.Lines(ctx, c.ID)
	if err != nil {
		return fmt.Errorf("cart %d lines: %w", c.ID, err)
	}
	c.Lines = lines
	return nil
}
