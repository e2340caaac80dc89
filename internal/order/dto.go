package order

// CheckoutBody is the authenticated checkout payload.
// swagger:model CheckoutBody
type CheckoutBody struct {
	ShippingAddress Address       `json:"shipping_address"`
	PaymentMethod   PaymentMethod `json:"payment_method" example:"pay_on_delivery"`
}

// GuestCheckoutBody is the anonymous checkout payload.
// swagger:model GuestCheckoutBody
type GuestCheckoutBody struct {
	CustomerName    string        `json:"customer_name" example:"Hanako Yamada"`
	CustomerEmail   string        `json:"customer_email" example:"hanako@example.com"`
	ShippingAddress Address       `json:"shipping_address"`
	PaymentMethod   PaymentMethod `json:"payment_method" example:"bank_transfer"`
	CartToken       string        `json:"cart_token" example:"ct_4e7d4e5c5cb94a3f9f217e1a4f9f2b2a"`
}

// CreateBody is the operator order payload. Set either customer_account_id or
// the guest pair.
// swagger:model CreateBody
type CreateBody struct {
	CustomerAccountID *int64        `json:"customer_account_id,omitempty" example:"42"`
	GuestName         string        `json:"guest_name,omitempty"`
	GuestEmail        string        `json:"guest_email,omitempty"`
	Lines             []LineInput   `json:"lines"`
	ShippingAddress   Address       `json:"shipping_address"`
	PaymentMethod     PaymentMethod `json:"payment_method" example:"card"`
}

func (b CreateBody) Customer() Customer {
	if b.CustomerAccountID != nil {
		id := *b.CustomerAccountID
		c := AccountCustomer(id)
		c.GuestName, c.GuestEmail = b.GuestName, b.GuestEmail
		return c
	}
	return GuestCustomer(b.GuestName, b.GuestEmail)
}
