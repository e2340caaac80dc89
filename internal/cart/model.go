package cart

import "time"

// Token is the opaque anonymous cart identity. The client must echo it on
// every call; an anonymous cart cannot be recovered without it.
type Token string

// Identity names a cart by exactly one of an account id or an anonymous token.
// An anonymous identity with an empty token asks for a fresh cart.
type Identity struct {
	AccountID int64
	Token     Token
}

func AccountIdentity(id int64) Identity { return Identity{AccountID: id} }

func AnonymousIdentity(t Token) Identity { return Identity{Token: t} }

func (i Identity) IsAccount() bool { return i.AccountID > 0 }

type Line struct {
	ProductID int64     `json:"product_id"`
	Quantity  int       `json:"quantity"`
	AddedAt   time.Time `json:"added_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Cart struct {
	ID        int64     `json:"id"`
	AccountID *int64    `json:"account_id,omitempty"`
	Lines     []Line    `json:"lines"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Quantity returns the quantity held for productID, zero when absent.
func (c Cart) Quantity(productID int64) int {
	for _, l := range c.Lines {
		if l.ProductID == productID {
			return l.Quantity
		}
	}
	return 0
}

func (c Cart) IsEmpty() bool { return len(c.Lines) == 0 }
