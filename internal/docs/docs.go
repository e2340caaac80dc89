// Package docs registers the OpenAPI document of the commerce service with swag.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "paths": {
        "/cart": {
            "get": {
                "tags": ["cart"],
                "summary": "Current cart",
                "parameters": [{"$ref": "#/parameters/CartToken"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/cart.View"}},
                    "404": {"description": "Unknown cart token", "schema": {"$ref": "#/definitions/httpx.ErrorBody"}}
                }
            }
        },
        "/cart/add": {
            "post": {
                "tags": ["cart"],
                "summary": "Add quantity of a product, creating the cart on first use",
                "parameters": [
                    {"$ref": "#/parameters/CartToken"},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/cart.LineBody"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/cart.View"}},
                    "400": {"description": "Invalid quantity", "schema": {"$ref": "#/definitions/httpx.ErrorBody"}},
                    "404": {"description": "Unknown product or cart", "schema": {"$ref": "#/definitions/httpx.ErrorBody"}}
                }
            }
        },
        "/cart/decrement": {
            "post": {
                "tags": ["cart"],
                "summary": "Lower a line's quantity; the line is removed at zero",
                "parameters": [
                    {"$ref": "#/parameters/CartToken"},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/cart.LineBody"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/cart.View"}}}
            }
        },
        "/cart/remove": {
            "delete": {
                "tags": ["cart"],
                "summary": "Remove a product's line entirely",
                "parameters": [
                    {"$ref": "#/parameters/CartToken"},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/cart.LineBody"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/cart.View"}}}
            }
        },
        "/cart/merge": {
            "post": {
                "tags": ["cart"],
                "summary": "Merge an anonymous cart into the signed-in account's cart",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/cart.MergeBody"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/cart.View"}}}
            }
        },
        "/order/checkout": {
            "post": {
                "tags": ["order"],
                "summary": "Check out the signed-in account's cart",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"$ref": "#/parameters/IdempotencyKey"},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/order.CheckoutBody"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/order.Order"}},
                    "422": {"description": "Empty cart", "schema": {"$ref": "#/definitions/httpx.ErrorBody"}}
                }
            }
        },
        "/order/checkout-guest": {
            "post": {
                "tags": ["order"],
                "summary": "Check out an anonymous cart",
                "parameters": [
                    {"$ref": "#/parameters/IdempotencyKey"},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/order.GuestCheckoutBody"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/order.Order"}},
                    "400": {"description": "Missing email or malformed address", "schema": {"$ref": "#/definitions/httpx.ErrorBody"}},
                    "422": {"description": "Empty cart", "schema": {"$ref": "#/definitions/httpx.ErrorBody"}}
                }
            }
        },
        "/order/create": {
            "post": {
                "tags": ["order"],
                "summary": "Create an order on a customer's behalf (admin or seller)",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"$ref": "#/parameters/IdempotencyKey"},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/order.CreateBody"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/order.Order"}},
                    "403": {"description": "Product owned by another seller", "schema": {"$ref": "#/definitions/httpx.ErrorBody"}}
                }
            }
        },
        "/order/all": {
            "get": {
                "tags": ["order"],
                "summary": "Orders visible to the caller",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "query", "name": "limit", "type": "integer"},
                    {"in": "query", "name": "offset", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/order.ListResponse"}}}
            }
        },
        "/order/{id}": {
            "get": {
                "tags": ["order"],
                "summary": "Order detail",
                "security": [{"BearerAuth": []}],
                "parameters": [{"$ref": "#/parameters/OrderID"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/order.Order"}},
                    "403": {"description": "Not visible to caller", "schema": {"$ref": "#/definitions/httpx.ErrorBody"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/httpx.ErrorBody"}}
                }
            }
        },
        "/order/{id}/status": {
            "put": {
                "tags": ["order"],
                "summary": "Set paid, delivered or cancelled flags",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"$ref": "#/parameters/OrderID"},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/order.StatusPatch"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/order.Order"}},
                    "409": {"description": "Order is cancelled", "schema": {"$ref": "#/definitions/httpx.ErrorBody"}}
                }
            }
        },
        "/order/{id}/confirm-payment": {
            "put": {
                "tags": ["order"],
                "summary": "Admin payment confirmation",
                "security": [{"BearerAuth": []}],
                "parameters": [{"$ref": "#/parameters/OrderID"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/order.Order"}}}
            }
        },
        "/order/{id}/cancel": {
            "post": {
                "tags": ["order"],
                "summary": "Customer cancels an unpaid, undelivered order",
                "security": [{"BearerAuth": []}],
                "parameters": [{"$ref": "#/parameters/OrderID"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/order.Order"}},
                    "412": {"description": "Already paid or delivered", "schema": {"$ref": "#/definitions/httpx.ErrorBody"}}
                }
            }
        },
        "/payment/{orderId}/issue-code": {
            "post": {
                "tags": ["payment"],
                "summary": "Issue or return the order's payment code",
                "parameters": [{"in": "path", "name": "orderId", "required": true, "type": "integer"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/payment.Issued"}},
                    "403": {"description": "Not the ordering customer", "schema": {"$ref": "#/definitions/httpx.ErrorBody"}},
                    "503": {"description": "Gateway unavailable", "schema": {"$ref": "#/definitions/httpx.ErrorBody"}}
                }
            }
        },
        "/payment/{orderId}/confirm": {
            "post": {
                "tags": ["payment"],
                "summary": "Customer reports payment",
                "parameters": [{"in": "path", "name": "orderId", "required": true, "type": "integer"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/order.Order"}},
                    "412": {"description": "No payment code issued", "schema": {"$ref": "#/definitions/httpx.ErrorBody"}}
                }
            }
        },
        "/seller/my-customers": {
            "get": {
                "tags": ["seller"],
                "summary": "Distinct customers across the caller's visible orders",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/tenant.Customer"}}}}
            }
        },
        "/seller/products": {
            "get": {
                "tags": ["seller"],
                "summary": "Products owned by the calling seller",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/product.ListResponse"}}}
            }
        }
    },
    "parameters": {
        "CartToken": {"in": "header", "name": "X-Cart-Token", "type": "string", "description": "Anonymous cart token issued on first add"},
        "IdempotencyKey": {"in": "header", "name": "Idempotency-Key", "type": "string"},
        "OrderID": {"in": "path", "name": "id", "required": true, "type": "integer"}
    },
    "definitions": {
        "httpx.ErrorBody": {
            "type": "object",
            "properties": {
                "error": {"type": "string", "example": "not_found"},
                "message": {"type": "string"},
                "request_id": {"type": "string"}
            }
        },
        "cart.Line": {
            "type": "object",
            "properties": {
                "product_id": {"type": "integer"},
                "quantity": {"type": "integer"},
                "added_at": {"type": "string", "format": "date-time"},
                "updated_at": {"type": "string", "format": "date-time"}
            }
        },
        "cart.View": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "account_id": {"type": "integer"},
                "lines": {"type": "array", "items": {"$ref": "#/definitions/cart.Line"}},
                "cart_token": {"type": "string"}
            }
        },
        "cart.LineBody": {
            "type": "object",
            "properties": {"product_id": {"type": "integer"}, "quantity": {"type": "integer"}}
        },
        "cart.MergeBody": {
            "type": "object",
            "properties": {"cart_token": {"type": "string"}}
        },
        "order.Address": {
            "type": "object",
            "properties": {
                "recipient": {"type": "string"},
                "line1": {"type": "string"},
                "line2": {"type": "string"},
                "city": {"type": "string"},
                "postal_code": {"type": "string"},
                "phone": {"type": "string"}
            }
        },
        "order.CheckoutBody": {
            "type": "object",
            "properties": {
                "shipping_address": {"$ref": "#/definitions/order.Address"},
                "payment_method": {"type": "string", "enum": ["pay_on_delivery", "bank_transfer", "card"]}
            }
        },
        "order.GuestCheckoutBody": {
            "type": "object",
            "properties": {
                "customer_name": {"type": "string"},
                "customer_email": {"type": "string"},
                "shipping_address": {"$ref": "#/definitions/order.Address"},
                "payment_method": {"type": "string", "enum": ["pay_on_delivery", "bank_transfer", "card"]},
                "cart_token": {"type": "string"}
            }
        },
        "order.LineInput": {
            "type": "object",
            "properties": {"product_id": {"type": "integer"}, "quantity": {"type": "integer"}}
        },
        "order.CreateBody": {
            "type": "object",
            "properties": {
                "customer_account_id": {"type": "integer"},
                "guest_name": {"type": "string"},
                "guest_email": {"type": "string"},
                "lines": {"type": "array", "items": {"$ref": "#/definitions/order.LineInput"}},
                "shipping_address": {"$ref": "#/definitions/order.Address"},
                "payment_method": {"type": "string", "enum": ["pay_on_delivery", "bank_transfer", "card"]}
            }
        },
        "order.StatusPatch": {
            "type": "object",
            "properties": {
                "is_paid": {"type": "boolean"},
                "is_delivered": {"type": "boolean"},
                "is_cancelled": {"type": "boolean"}
            }
        },
        "order.Line": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "product_id": {"type": "integer"},
                "quantity": {"type": "integer"},
                "unit_price_at_purchase": {"type": "string"}
            }
        },
        "order.Status": {
            "type": "object",
            "properties": {
                "is_paid": {"type": "boolean"},
                "paid_at": {"type": "string", "format": "date-time"},
                "paid_via": {"type": "string", "enum": ["customer", "admin", "operator"]},
                "is_delivered": {"type": "boolean"},
                "delivered_at": {"type": "string", "format": "date-time"},
                "is_confirmed_by_admin": {"type": "boolean"},
                "confirmed_at": {"type": "string", "format": "date-time"},
                "is_cancelled": {"type": "boolean"},
                "cancelled_at": {"type": "string", "format": "date-time"},
                "cancelled_by": {"type": "string"}
            }
        },
        "order.Order": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "order_number": {"type": "string"},
                "customer": {
                    "type": "object",
                    "properties": {
                        "account_id": {"type": "integer"},
                        "guest_name": {"type": "string"},
                        "guest_email": {"type": "string"}
                    }
                },
                "shipping_address": {"$ref": "#/definitions/order.Address"},
                "payment_method": {"type": "string"},
                "subtotal": {"type": "string"},
                "discount": {"type": "string"},
                "delivery_fee": {"type": "string"},
                "total_price": {"type": "string"},
                "lines": {"type": "array", "items": {"$ref": "#/definitions/order.Line"}},
                "status": {"$ref": "#/definitions/order.Status"},
                "payment_provider": {"type": "string"},
                "created_by": {"type": "string"},
                "version": {"type": "integer"},
                "created_at": {"type": "string", "format": "date-time"},
                "updated_at": {"type": "string", "format": "date-time"}
            }
        },
        "order.ListResponse": {
            "type": "object",
            "properties": {
                "items": {"type": "array", "items": {"$ref": "#/definitions/order.Order"}},
                "limit": {"type": "integer"},
                "offset": {"type": "integer"}
            }
        },
        "payment.Issued": {
            "type": "object",
            "properties": {
                "order_id": {"type": "integer"},
                "order_number": {"type": "string"},
                "payment_code": {"type": "string"},
                "provider": {"type": "string"},
                "issued_at": {"type": "string", "format": "date-time"}
            }
        },
        "tenant.Customer": {
            "type": "object",
            "properties": {
                "account_id": {"type": "integer"},
                "name": {"type": "string"},
                "email": {"type": "string"},
                "order_count": {"type": "integer"},
                "last_order_at": {"type": "string", "format": "date-time"}
            }
        },
        "product.Product": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "owner_id": {"type": "integer"},
                "name": {"type": "string"},
                "description": {"type": "string"},
                "price": {"type": "string"},
                "stock": {"type": "integer"}
            }
        },
        "product.ListResponse": {
            "type": "object",
            "properties": {
                "items": {"type": "array", "items": {"$ref": "#/definitions/product.Product"}},
                "limit": {"type": "integer"},
                "offset": {"type": "integer"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Tienda Commerce API",
	Description:      "Carts, checkout, order status and payment codes with seller-scoped visibility.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
