package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/MikeMC777/tienda-commerce/internal/apperr"
)

var (
	ErrNotFound        = apperr.NotFound("order not found")
	ErrDuplicateNumber = apperr.New(apperr.KindConflict, "duplicate_order_number", "order number already exists")
	ErrVersionConflict = apperr.New(apperr.KindConflict, "version_conflict", "order was modified concurrently")
	ErrEmptyCart       = apperr.New(apperr.KindPreconditionFailed, "empty_cart", "cart has no lines")
)

// ListQuery selects orders. SellerID and AccountID are alternatives: an order
// matches when it has a line owned by the seller or was placed by the account.
// With neither set every order matches.
type ListQuery struct {
	SellerID  int64
	AccountID int64
	Limit     int
	Offset    int
}

// Matches applies the query filters to o; owner maps a product id to its seller.
func (q ListQuery) Matches(o *Order, owner func(productID int64) int64) bool {
	if q.SellerID == 0 && q.AccountID == 0 {
		return true
	}
	if q.AccountID != 0 && o.PlacedBy(q.AccountID) {
		return true
	}
	if q.SellerID != 0 {
		for _, l := range o.Lines {
			if owner(l.ProductID) == q.SellerID {
				return true
			}
		}
	}
	return false
}

func (q ListQuery) normalized() ListQuery {
	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 20
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return q
}

// Consumed names the cart lines an order was built from. Only these
// quantities leave the cart; lines added after the cart was read stay.
type Consumed struct {
	CartID int64
	Lines  []LineInput
}

type Repository interface {
	// Create persists o with its lines and fills ID, Version and timestamps.
	// When consumed is set, those quantities are taken out of the cart in the
	// same transaction.
	Create(ctx context.Context, o *Order, consumed *Consumed) error
	Get(ctx context.Context, id int64) (*Order, error)
	List(ctx context.Context, q ListQuery) ([]Order, error)
	// UpdateStatus writes st if the stored version still equals version and
	// returns the new version.
	UpdateStatus(ctx context.Context, id int64, version int, st Status) (int, error)
	// SetPaymentCode records the code unless one is already set; it reports
	// whether this call stored it.
	SetPaymentCode(ctx context.Context, id int64, code, provider string, at time.Time) (bool, error)
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(db *pgxpool.Pool) *PGRepo { return &PGRepo{db: db} }

const selectOrder = `
	SELECT id, number, account_id, guest_name, guest_email, shipping_address, payment_method,
	       subtotal::text, discount::text, delivery_fee::text, total::text,
	       is_paid, paid_at, paid_via, is_delivered, delivered_at,
	       is_confirmed_by_admin, confirmed_at, is_cancelled, cancelled_at, cancelled_by,
	       payment_code, payment_provider, payment_code_issued_at,
	       created_by, version, created_at, updated_at
	FROM orders`

func (r *PGRepo) Create(ctx context.Context, o *Order, consumed *Consumed) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	addr, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO orders (number, account_id, guest_name, guest_email, shipping_address, payment_method,
		                    subtotal, discount, delivery_fee, total, created_by, version, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,1,NOW(),NOW())
		RETURNING id, version, created_at, updated_at
	`, o.Number, o.Customer.AccountID, o.Customer.GuestName, o.Customer.GuestEmail, addr, string(o.PaymentMethod),
		o.Subtotal.String(), o.Discount.String(), o.DeliveryFee.String(), o.Total.String(), o.CreatedBy,
	).Scan(&o.ID, &o.Version, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "orders_number_key" {
			return fmt.Errorf("%w: %s", ErrDuplicateNumber, o.Number)
		}
		return err
	}

	for i := range o.Lines {
		l := &o.Lines[i]
		if err := tx.QueryRow(ctx, `
			INSERT INTO order_lines (order_id, product_id, quantity, unit_price)
			VALUES ($1,$2,$3,$4)
			RETURNING id
		`, o.ID, l.ProductID, l.Quantity, l.UnitPrice.String()).Scan(&l.ID); err != nil {
			return err
		}
	}

	if consumed != nil {
		if err := consumeLines(ctx, tx, consumed); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// consumeLines subtracts the ordered quantities from the cart. A line left
// with nothing is deleted; cart_lines rejects non-positive quantities.
func consumeLines(ctx context.Context, tx pgx.Tx, c *Consumed) error {
	for _, l := range c.Lines {
		tag, err := tx.Exec(ctx, `
			UPDATE cart_lines SET quantity = quantity - $3, updated_at = NOW()
			WHERE cart_id=$1 AND product_id=$2 AND quantity > $3
		`, c.CartID, l.ProductID, l.Quantity)
		if err != nil {
			return err
		}
		if tag.RowsAffected() > 0 {
			continue
		}
		if _, err := tx.Exec(ctx, `DELETE FROM cart_lines WHERE cart_id=$1 AND product_id=$2`, c.CartID, l.ProductID); err != nil {
			return err
		}
	}
	_, err := tx.Exec(ctx, `UPDATE carts SET updated_at = NOW() WHERE id=$1`, c.CartID)
	return err
}

func (r *PGRepo) Get(ctx context.Context, id int64) (*Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	o, err := scanOrder(r.db.QueryRow(ctx, selectOrder+` WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	lines, err := r.lines(ctx, []int64{o.ID})
	if err != nil {
		return nil, err
	}
	o.Lines = lines[o.ID]
	if o.Lines == nil {
		o.Lines = []Line{}
	}
	return &o, nil
}

func (r *PGRepo) List(ctx context.Context, q ListQuery) ([]Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	q = q.normalized()
	rows, err := r.db.Query(ctx, selectOrder+`
		WHERE ($1 = 0 AND $2 = 0)
		   OR ($1 <> 0 AND account_id = $1)
		   OR ($2 <> 0 AND EXISTS (
		        SELECT 1 FROM order_lines ol JOIN products p ON p.id = ol.product_id
		        WHERE ol.order_id = orders.id AND p.owner_id = $2))
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4
	`, q.AccountID, q.SellerID, q.Limit, q.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Order{}
	ids := []int64{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	lines, err := r.lines(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Lines = lines[out[i].ID]
		if out[i].Lines == nil {
			out[i].Lines = []Line{}
		}
	}
	return out, nil
}

func (r *PGRepo) lines(ctx context.Context, orderIDs []int64) (map[int64][]Line, error) {
	out := make(map[int64][]Line, len(orderIDs))
	if len(orderIDs) == 0 {
		return out, nil
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, order_id, product_id, quantity, unit_price::text
		FROM order_lines WHERE order_id = ANY($1)
		ORDER BY order_id, id
	`, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			l       Line
			orderID int64
			price   string
		)
		if err := rows.Scan(&l.ID, &orderID, &l.ProductID, &l.Quantity, &price); err != nil {
			return nil, err
		}
		if l.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("order line %d price: %w", l.ID, err)
		}
		out[orderID] = append(out[orderID], l)
	}
	return out, rows.Err()
}

func (r *PGRepo) UpdateStatus(ctx context.Context, id int64, version int, st Status) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var next int
	err := r.db.QueryRow(ctx, `
		UPDATE orders
		SET is_paid=$3, paid_at=$4, paid_via=$5, is_delivered=$6, delivered_at=$7,
		    is_confirmed_by_admin=$8, confirmed_at=$9, is_cancelled=$10, cancelled_at=$11, cancelled_by=$12,
		    version = version + 1, updated_at = NOW()
		WHERE id=$1 AND version=$2
		RETURNING version
	`, id, version, st.Paid, st.PaidAt, string(st.PaidVia), st.Delivered, st.DeliveredAt,
		st.ConfirmedByAdmin, st.ConfirmedAt, st.Cancelled, st.CancelledAt, st.CancelledBy,
	).Scan(&next)
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id=$1)`, id).Scan(&exists); err != nil {
			return 0, err
		}
		if !exists {
			return 0, ErrNotFound
		}
		return 0, ErrVersionConflict
	}
	if err != nil {
		return 0, err
	}
	return next, nil
}

func (r *PGRepo) SetPaymentCode(ctx context.Context, id int64, code, provider string, at time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
		UPDATE orders
		SET payment_code=$2, payment_provider=$3, payment_code_issued_at=$4, version = version + 1, updated_at = NOW()
		WHERE id=$1 AND payment_code = ''
	`, id, code, provider, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func scanOrder(row pgx.Row) (Order, error) {
	var (
		o                              Order
		addr                           []byte
		method, paidVia                string
		subtotal, discount, fee, total string
	)
	err := row.Scan(&o.ID, &o.Number, &o.Customer.AccountID, &o.Customer.GuestName, &o.Customer.GuestEmail,
		&addr, &method, &subtotal, &discount, &fee, &total,
		&o.Status.Paid, &o.Status.PaidAt, &paidVia, &o.Status.Delivered, &o.Status.DeliveredAt,
		&o.Status.ConfirmedByAdmin, &o.Status.ConfirmedAt, &o.Status.Cancelled, &o.Status.CancelledAt, &o.Status.CancelledBy,
		&o.PaymentCode, &o.PaymentProvider, &o.PaymentCodeIssuedAt,
		&o.CreatedBy, &o.Version, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return Order{}, err
	}
	o.PaymentMethod = PaymentMethod(method)
	o.Status.PaidVia = PaidVia(paidVia)
	if err := json.Unmarshal(addr, &o.ShippingAddress); err != nil {
		return Order{}, fmt.Errorf("order %d address: %w", o.ID, err)
	}
	for _, m := range []struct {
		dst *decimal.Decimal
		src string
	}{{&o.Subtotal, subtotal}, {&o.Discount, discount}, {&o.DeliveryFee, fee}, {&o.Total, total}} {
		d, err := decimal.NewFromString(m.src)
		if err != nil {
			return Order{}, fmt.Errorf("order %d amount: %w", o.ID, err)
		}
		*m.dst = d
	}
	return o, nil
}
