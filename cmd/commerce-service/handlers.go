package main

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/MikeMC777/tienda-commerce/internal/apperr"
	"github.com/MikeMC777/tienda-commerce/internal/cart"
	"github.com/MikeMC777/tienda-commerce/internal/httpx"
	"github.com/MikeMC777/tienda-commerce/internal/order"
	"github.com/MikeMC777/tienda-commerce/internal/payment"
	"github.com/MikeMC777/tienda-commerce/internal/product"
	"github.com/MikeMC777/tienda-commerce/internal/tenant"
)

const cartTokenHeader = "X-Cart-Token"

type cartLineBody struct {
	ProductID int64 `json:"product_id" example:"10"`
	Quantity  int   `json:"quantity" example:"2"`
}

type cartMergeBody struct {
	CartToken string `json:"cart_token"`
}

type cartView struct {
	cart.Cart
	CartToken string `json:"cart_token,omitempty"`
}

// cartIdentity prefers the signed-in account; anonymous callers are
// identified by the token they echo back.
func cartIdentity(c *gin.Context) cart.Identity {
	if id, ok := httpx.ActorFrom(c).AccountID(); ok {
		return cart.AccountIdentity(id)
	}
	return cart.AnonymousIdentity(cart.Token(c.GetHeader(cartTokenHeader)))
}

// idempotencyScope keys replays by account, or for anonymous callers by the
// cart they hold. Anonymous requests without a cart token get no replay.
func idempotencyScope(c *gin.Context, body []byte) string {
	if a := httpx.ActorFrom(c); !a.IsGuest() {
		return a.String()
	}
	var peek struct {
		CartToken string `json:"cart_token"`
	}
	_ = json.Unmarshal(body, &peek)
	token := peek.CartToken
	if token == "" {
		token = c.GetHeader(cartTokenHeader)
	}
	if token == "" {
		return ""
	}
	return "cart:" + cart.HashToken(cart.Token(token))
}

func renderCart(c *gin.Context, ct cart.Cart, issued cart.Token) {
	if issued != "" {
		c.Header(cartTokenHeader, string(issued))
	}
	c.JSON(http.StatusOK, cartView{Cart: ct, CartToken: string(issued)})
}

// GET /cart
func getCartHandler(carts *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		ct, err := carts.View(c.Request.Context(), cartIdentity(c))
		if err != nil {
			httpx.Abort(c, err)
			return
		}
		renderCart(c, ct, "")
	}
}

// POST /cart/add
func addToCartHandler(carts *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body cartLineBody
		if !httpx.BindJSON(c, &body) {
			return
		}
		ct, issued, err := carts.AddLine(c.Request.Context(), cartIdentity(c), body.ProductID, body.Quantity)
		if err != nil {
			httpx.Abort(c, err)
			return
		}
		renderCart(c, ct, issued)
	}
}

// POST /cart/decrement
func decrementCartHandler(carts *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body cartLineBody
		if !httpx.BindJSON(c, &body) {
			return
		}
		if body.Quantity == 0 {
			body.Quantity = 1
		}
		ct, err := carts.DecrementLine(c.Request.Context(), cartIdentity(c), body.ProductID, body.Quantity)
		if err != nil {
			httpx.Abort(c, err)
			return
		}
		renderCart(c, ct, "")
	}
}

// DELETE /cart/remove
func removeFromCartHandler(carts *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body cartLineBody
		if q := c.Query("product_id"); q != "" {
			id, err := strconv.ParseInt(q, 10, 64)
			if err != nil {
				httpx.Abort(c, apperr.InvalidArgument("invalid product_id"))
				return
			}
			body.ProductID = id
		} else if !httpx.BindJSON(c, &body) {
			return
		}
		ct, err := carts.RemoveLine(c.Request.Context(), cartIdentity(c), body.ProductID)
		if err != nil {
			httpx.Abort(c, err)
			return
		}
		renderCart(c, ct, "")
	}
}

// POST /cart/merge
func mergeCartHandler(carts *cart.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body cartMergeBody
		if !httpx.BindJSON(c, &body) {
			return
		}
		accountID, _ := httpx.ActorFrom(c).AccountID()
		ct, err := carts.Merge(c.Request.Context(), accountID, cart.Token(body.CartToken))
		if err != nil {
			httpx.Abort(c, err)
			return
		}
		renderCart(c, ct, "")
	}
}

// POST /order/checkout
func checkoutHandler(factory *order.Factory) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body order.CheckoutBody
		if !httpx.BindJSON(c, &body) {
			return
		}
		by := httpx.ActorFrom(c)
		accountID, _ := by.AccountID()
		o, err := factory.Checkout(c.Request.Context(), by, order.CheckoutRequest{
			Cart:            cart.AccountIdentity(accountID),
			Customer:        order.AccountCustomer(accountID),
			ShippingAddress: body.ShippingAddress,
			PaymentMethod:   body.PaymentMethod,
		})
		if err != nil {
			httpx.Abort(c, err)
			return
		}
		c.JSON(http.StatusCreated, o)
	}
}

// POST /order/checkout-guest
func guestCheckoutHandler(factory *order.Factory) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body order.GuestCheckoutBody
		if !httpx.BindJSON(c, &body) {
			return
		}
		token := body.CartToken
		if token == "" {
			token = c.GetHeader(cartTokenHeader)
		}
		o, err := factory.Checkout(c.Request.Context(), httpx.ActorFrom(c), order.CheckoutRequest{
			Cart:            cart.AnonymousIdentity(cart.Token(token)),
			Customer:        order.GuestCustomer(body.CustomerName, body.CustomerEmail),
			ShippingAddress: body.ShippingAddress,
			PaymentMethod:   body.PaymentMethod,
		})
		if err != nil {
			httpx.Abort(c, err)
			return
		}
		c.JSON(http.StatusCreated, o)
	}
}

// POST /order/create
func createOrderHandler(factory *order.Factory) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body order.CreateBody
		if !httpx.BindJSON(c, &body) {
			return
		}
		o, err := factory.CreateAsOperator(c.Request.Context(), httpx.ActorFrom(c), order.OperatorRequest{
			Customer:        body.Customer(),
			Lines:           body.Lines,
			ShippingAddress: body.ShippingAddress,
			PaymentMethod:   body.PaymentMethod,
		})
		if err != nil {
			httpx.Abort(c, err)
			return
		}
		c.JSON(http.StatusCreated, o)
	}
}

// GET /order/:id
func getOrderHandler(orders *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := httpx.PathID(c, "id")
		if !ok {
			return
		}
		o, err := orders.Get(c.Request.Context(), httpx.ActorFrom(c), id)
		if err != nil {
			httpx.Abort(c, err)
			return
		}
		c.JSON(http.StatusOK, o)
	}
}

// GET /order/all?limit=&offset=
func listOrdersHandler(orders *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, offset := httpx.Page(c)
		items, err := orders.List(c.Request.Context(), httpx.ActorFrom(c), limit, offset)
		if err != nil {
			httpx.Abort(c, err)
			return
		}
		c.JSON(http.StatusOK, order.ListResponse{Items: items, Limit: limit, Offset: offset})
	}
}

// PUT /order/:id/status
func updateOrderStatusHandler(orders *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := httpx.PathID(c, "id")
		if !ok {
			return
		}
		var patch order.StatusPatch
		if !httpx.BindJSON(c, &patch) {
			return
		}
		o, err := orders.UpdateStatus(c.Request.Context(), httpx.ActorFrom(c), id, patch)
		if err != nil {
			httpx.Abort(c, err)
			return
		}
		c.JSON(http.StatusOK, o)
	}
}

// PUT /order/:id/confirm-payment
func confirmPaymentHandler(orders *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := httpx.PathID(c, "id")
		if !ok {
			return
		}
		o, err := orders.AdminConfirm(c.Request.Context(), httpx.ActorFrom(c), id)
		if err != nil {
			httpx.Abort(c, err)
			return
		}
		c.JSON(http.StatusOK, o)
	}
}

// POST /order/:id/cancel
func cancelOrderHandler(orders *order.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := httpx.PathID(c, "id")
		if !ok {
			return
		}
		o, err := orders.CancelByCustomer(c.Request.Context(), httpx.ActorFrom(c), id)
		if err != nil {
			httpx.Abort(c, err)
			return
		}
		c.JSON(http.StatusOK, o)
	}
}

// POST /payment/:orderId/issue-code
func issuePaymentCodeHandler(channel *payment.Channel) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := httpx.PathID(c, "orderId")
		if !ok {
			return
		}
		out, err := channel.IssueCode(c.Request.Context(), httpx.ActorFrom(c), id)
		if err != nil {
			httpx.Abort(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// POST /payment/:orderId/confirm
func customerConfirmHandler(channel *payment.Channel) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := httpx.PathID(c, "orderId")
		if !ok {
			return
		}
		o, err := channel.ConfirmByCustomer(c.Request.Context(), httpx.ActorFrom(c), id)
		if err != nil {
			httpx.Abort(c, err)
			return
		}
		c.JSON(http.StatusOK, o)
	}
}

// GET /seller/my-customers
func myCustomersHandler(filter *tenant.Filter) gin.HandlerFunc {
	return func(c *gin.Context) {
		customers, err := filter.MyCustomers(c.Request.Context(), httpx.ActorFrom(c))
		if err != nil {
			httpx.Abort(c, err)
			return
		}
		c.JSON(http.StatusOK, customers)
	}
}

// GET /seller/products?limit=&offset=
func sellerProductsHandler(filter *tenant.Filter) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, offset := httpx.Page(c)
		items, err := filter.SellerProducts(c.Request.Context(), httpx.ActorFrom(c), limit, offset)
		if err != nil {
			httpx.Abort(c, err)
			return
		}
		if items == nil {
			items = []product.Product{}
		}
		c.JSON(http.StatusOK, product.ListResponse{Limit: limit, Offset: offset, Items: items})
	}
}
