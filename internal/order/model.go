package order

import (
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MikeMC777/tienda-commerce/internal/apperr"
	"github.com/MikeMC777/tienda-commerce/internal/notify"
)

var (
	ErrInvalidCustomer   = apperr.InvalidArgument("order needs exactly one of a customer account or a guest name and email")
	ErrMissingGuestEmail = apperr.InvalidArgument("guest orders require a customer email")
	ErrInvalidAddress    = apperr.InvalidArgument("malformed shipping address")
	ErrInvalidMethod     = apperr.InvalidArgument("unknown payment method")
)

type PaymentMethod string

const (
	PaymentOnDelivery   PaymentMethod = "pay_on_delivery"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
	PaymentCard         PaymentMethod = "card"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentOnDelivery, PaymentBankTransfer, PaymentCard:
		return true
	}
	return false
}

type Address struct {
	Recipient  string `json:"recipient" example:"Hanako Yamada"`
	Line1      string `json:"line1" example:"1-2-3 Shibuya"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city" example:"Tokyo"`
	PostalCode string `json:"postal_code" example:"150-0002"`
	Phone      string `json:"phone,omitempty"`
}

func (a Address) Validate() error {
	switch {
	case strings.TrimSpace(a.Recipient) == "":
		return fmt.Errorf("%w: recipient is required", ErrInvalidAddress)
	case strings.TrimSpace(a.Line1) == "":
		return fmt.Errorf("%w: line1 is required", ErrInvalidAddress)
	case strings.TrimSpace(a.City) == "":
		return fmt.Errorf("%w: city is required", ErrInvalidAddress)
	case strings.TrimSpace(a.PostalCode) == "":
		return fmt.Errorf("%w: postal_code is required", ErrInvalidAddress)
	}
	return nil
}

// Customer is either a registered account or a guest identified by name and email.
type Customer struct {
	AccountID  *int64 `json:"account_id,omitempty"`
	GuestName  string `json:"guest_name,omitempty"`
	GuestEmail string `json:"guest_email,omitempty"`
}

func AccountCustomer(id int64) Customer { return Customer{AccountID: &id} }

func GuestCustomer(name, email string) Customer {
	return Customer{GuestName: strings.TrimSpace(name), GuestEmail: strings.TrimSpace(email)}
}

func (c Customer) IsGuest() bool { return c.AccountID == nil }

func (c Customer) Validate() error {
	if c.AccountID != nil {
		if *c.AccountID <= 0 || c.GuestName != "" || c.GuestEmail != "" {
			return ErrInvalidCustomer
		}
		return nil
	}
	if c.GuestEmail == "" {
		return ErrMissingGuestEmail
	}
	if _, err := mail.ParseAddress(c.GuestEmail); err != nil {
		return fmt.Errorf("%w: %q is not an email address", ErrMissingGuestEmail, c.GuestEmail)
	}
	if c.GuestName == "" {
		return fmt.Errorf("%w: guest name is required", ErrInvalidCustomer)
	}
	return nil
}

// Key identifies the customer across orders: account id for registered
// customers, the lower-cased email for guests.
func (c Customer) Key() string {
	if c.AccountID != nil {
		return "account:" + strconv.FormatInt(*c.AccountID, 10)
	}
	return "email:" + strings.ToLower(c.GuestEmail)
}

func (c Customer) Recipient() notify.Recipient {
	if c.AccountID != nil {
		return notify.Recipient{AccountID: *c.AccountID}
	}
	return notify.Recipient{Email: c.GuestEmail}
}

// Line is frozen at checkout; UnitPrice is never re-derived from the product.
type Line struct {
	ID        int64           `json:"id"`
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price_at_purchase"`
}

func (l Line) Amount() decimal.Decimal { return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))) }

// PaidVia records which trust level settled the order.
type PaidVia string

const (
	PaidViaCustomer PaidVia = "customer"
	PaidViaAdmin    PaidVia = "admin"
	PaidViaOperator PaidVia = "operator"
)

// Status holds the four independent settlement facts. Once Cancelled is set
// nothing else may change.
type Status struct {
	Paid             bool       `json:"is_paid"`
	PaidAt           *time.Time `json:"paid_at,omitempty"`
	PaidVia          PaidVia    `json:"paid_via,omitempty"`
	Delivered        bool       `json:"is_delivered"`
	DeliveredAt      *time.Time `json:"delivered_at,omitempty"`
	ConfirmedByAdmin bool       `json:"is_confirmed_by_admin"`
	ConfirmedAt      *time.Time `json:"confirmed_at,omitempty"`
	Cancelled        bool       `json:"is_cancelled"`
	CancelledAt      *time.Time `json:"cancelled_at,omitempty"`
	CancelledBy      string     `json:"cancelled_by,omitempty"`
}

type Order struct {
	ID                  int64           `json:"id"`
	Number              string          `json:"order_number"`
	Customer            Customer        `json:"customer"`
	ShippingAddress     Address         `json:"shipping_address"`
	PaymentMethod       PaymentMethod   `json:"payment_method"`
	Subtotal            decimal.Decimal `json:"subtotal"`
	Discount            decimal.Decimal `json:"discount"`
	DeliveryFee         decimal.Decimal `json:"delivery_fee"`
	Total               decimal.Decimal `json:"total_price"`
	Lines               []Line          `json:"lines"`
	Status              Status          `json:"status"`
	PaymentCode         string          `json:"-"`
	PaymentProvider     string          `json:"payment_provider,omitempty"`
	PaymentCodeIssuedAt *time.Time      `json:"payment_code_issued_at,omitempty"`
	CreatedBy           string          `json:"created_by"`
	Version             int             `json:"version"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// ProductIDs lists the distinct products referenced by the order's lines.
func (o *Order) ProductIDs() []int64 {
	seen := make(map[int64]struct{}, len(o.Lines))
	ids := make([]int64, 0, len(o.Lines))
	for _, l := range o.Lines {
		if _, ok := seen[l.ProductID]; ok {
			continue
		}
		seen[l.ProductID] = struct{}{}
		ids = append(ids, l.ProductID)
	}
	return ids
}

// PlacedBy reports whether the order belongs to the given account.
func (o *Order) PlacedBy(accountID int64) bool {
	return o.Customer.AccountID != nil && *o.Customer.AccountID == accountID
}

// ListResponse is the paged order listing.
type ListResponse struct {
	Items  []Order `json:"items"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
}
