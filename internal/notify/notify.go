// Package notify is the best-effort side channel for customer and admin
// notifications. Delivery never blocks or fails the operation that triggered it.
package notify

import (
	"context"
	"time"
)

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Recipient is either an account or a raw email address (guest orders).
type Recipient struct {
	AccountID int64  `json:"account_id,omitempty"`
	Email     string `json:"email,omitempty"`
}

func (r Recipient) IsZero() bool { return r.AccountID == 0 && r.Email == "" }

type Event struct {
	Kind        string    `json:"kind"`
	Recipient   Recipient `json:"recipient"`
	Message     string    `json:"message"`
	Severity    Severity  `json:"severity"`
	OrderID     int64     `json:"order_id,omitempty"`
	OrderNumber string    `json:"order_number,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Sink delivers a single event to its transport.
type Sink interface {
	Deliver(ctx context.Context, ev Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, ev Event) error

func (f SinkFunc) Deliver(ctx context.Context, ev Event) error { return f(ctx, ev) }
