package cart

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MikeMC777/tienda-commerce/internal/apperr"
)

var ErrNotFound = apperr.NotFound("cart not found")

// Repository persists carts and their lines. Quantity changes are single
// statements so concurrent adds to the same line never lose updates.
type Repository interface {
	FindByAccount(ctx context.Context, accountID int64) (*Cart, error)
	FindByTokenHash(ctx context.Context, hash string) (*Cart, error)
	// CreateForAccount returns the existing cart when one was created concurrently.
	CreateForAccount(ctx context.Context, accountID int64) (*Cart, error)
	CreateAnonymous(ctx context.Context, tokenHash string) (*Cart, error)
	Lines(ctx context.Context, cartID int64) ([]Line, error)
	IncrementLine(ctx context.Context, cartID, productID int64, qty int) (Line, error)
	// DecrementLine lowers a line and deletes it when it reaches zero. It
	// reports false when the line does not exist.
	DecrementLine(ctx context.Context, cartID, productID int64, qty int) (bool, error)
	RemoveLine(ctx context.Context, cartID, productID int64) (bool, error)
	ClearLines(ctx context.Context, cartID int64) error
	// MergeInto adds every line of from into to and deletes from.
	MergeInto(ctx context.Context, fromID, toID int64) error
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

func (r *PGRepo) FindByAccount(ctx context.Context, accountID int64) (*Cart, error) {
	return r.findOne(ctx, `SELECT id, account_id, created_at, updated_at FROM carts WHERE account_id=$1`, accountID)
}

func (r *PGRepo) FindByTokenHash(ctx context.Context, hash string) (*Cart, error) {
	return r.findOne(ctx, `SELECT id, account_id, created_at, updated_at FROM carts WHERE token_hash=$1`, hash)
}

func (r *PGRepo) findOne(ctx context.Context, query string, arg any) (*Cart, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var c Cart
	if err := r.db.QueryRow(ctx, query, arg).Scan(&c.ID, &c.AccountID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *PGRepo) CreateForAccount(ctx context.Context, accountID int64) (*Cart, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := r.db.Exec(ctx, `
		INSERT INTO carts (account_id, created_at, updated_at)
		VALUES ($1, NOW(), NOW())
		ON CONFLICT (account_id) DO NOTHING
	`, accountID); err != nil {
		return nil, err
	}
	return r.FindByAccount(ctx, accountID)
}

func (r *PGRepo) CreateAnonymous(ctx context.Context, tokenHash string) (*Cart, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var c Cart
	if err := r.db.QueryRow(ctx, `
		INSERT INTO carts (token_hash, created_at, updated_at)
		VALUES ($1, NOW(), NOW())
		RETURNING id, account_id, created_at, updated_at
	`, tokenHash).Scan(&c.ID, &c.AccountID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *PGRepo) Lines(ctx context.Context, cartID int64) ([]Line, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT product_id, quantity, added_at, updated_at
		FROM cart_lines WHERE cart_id=$1
		ORDER BY added_at, product_id
	`, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := []Line{}
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ProductID, &l.Quantity, &l.AddedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (r *PGRepo) IncrementLine(ctx context.Context, cartID, productID int64, qty int) (Line, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var l Line
	err := r.db.QueryRow(ctx, `
		INSERT INTO cart_lines (cart_id, product_id, quantity, added_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (cart_id, product_id)
		DO UPDATE SET quantity = cart_lines.quantity + EXCLUDED.quantity, updated_at = NOW()
		RETURNING product_id, quantity, added_at, updated_at
	`, cartID, productID, qty).Scan(&l.ProductID, &l.Quantity, &l.AddedAt, &l.UpdatedAt)
	if err != nil {
		return Line{}, err
	}
	r.touch(ctx, cartID)
	return l, nil
}

func (r *PGRepo) DecrementLine(ctx context.Context, cartID, productID int64, qty int) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	// quantity has a CHECK (quantity > 0), so a line that would reach zero is
	// deleted instead of updated.
	tag, err := r.db.Exec(ctx, `
		UPDATE cart_lines SET quantity = quantity - $3, updated_at = NOW()
		WHERE cart_id=$1 AND product_id=$2 AND quantity > $3
	`, cartID, productID, qty)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		tag, err = r.db.Exec(ctx, `DELETE FROM cart_lines WHERE cart_id=$1 AND product_id=$2`, cartID, productID)
		if err != nil {
			return false, err
		}
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}
	r.touch(ctx, cartID)
	return true, nil
}

func (r *PGRepo) RemoveLine(ctx context.Context, cartID, productID int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := r.db.Exec(ctx, `DELETE FROM cart_lines WHERE cart_id=$1 AND product_id=$2`, cartID, productID)
	if err != nil {
		return false, err
	}
	r.touch(ctx, cartID)
	return tag.RowsAffected() > 0, nil
}

func (r *PGRepo) ClearLines(ctx context.Context, cartID int64) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := r.db.Exec(ctx, `DELETE FROM cart_lines WHERE cart_id=$1`, cartID); err != nil {
		return err
	}
	r.touch(ctx, cartID)
	return nil
}

func (r *PGRepo) MergeInto(ctx context.Context, fromID, toID int64) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
		INSERT INTO cart_lines (cart_id, product_id, quantity, added_at, updated_at)
		SELECT $2, product_id, quantity, added_at, NOW() FROM cart_lines WHERE cart_id=$1
		ON CONFLICT (cart_id, product_id)
		DO UPDATE SET quantity = cart_lines.quantity + EXCLUDED.quantity, updated_at = NOW()
	`, fromID, toID); err != nil {
		return err
	}
	// cart_lines cascade with the cart row.
	if _, err := tx.Exec(ctx, `DELETE FROM carts WHERE id=$1`, fromID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `UPDATE carts SET updated_at = NOW() WHERE id=$1`, toID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// touch bumps the cart timestamp; a failure here never fails the line change.
func (r *PGRepo) touch(ctx context.Context, cartID int64) {
	_, _ = r.db.Exec(ctx, `UPDATE carts SET updated_at = NOW() WHERE id=$1`, cartID)
}
