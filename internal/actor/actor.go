// Package actor describes who is performing a request.
package actor

import "fmt"

type Kind string

const (
	KindAdmin   Kind = "admin"
	KindSeller  Kind = "seller"
	KindAccount Kind = "account"
	KindGuest   Kind = "guest"
)

// Status is the lifecycle status of an account. Only sellers are gated on it.
type Status string

const (
	StatusActive    Status = "active"
	StatusPending   Status = "pending"
	StatusSuspended Status = "suspended"
)

// Actor is passed explicitly into every operation. The zero value is a guest.
type Actor struct {
	Kind   Kind   `json:"kind"`
	ID     int64  `json:"id,omitempty"`
	Status Status `json:"status,omitempty"`
}

func Admin(id int64) Actor { return Actor{Kind: KindAdmin, ID: id, Status: StatusActive} }

func Seller(id int64, status Status) Actor { return Actor{Kind: KindSeller, ID: id, Status: status} }

func Account(id int64) Actor { return Actor{Kind: KindAccount, ID: id, Status: StatusActive} }

func Guest() Actor { return Actor{Kind: KindGuest} }

func (a Actor) IsAdmin() bool  { return a.Kind == KindAdmin }
func (a Actor) IsSeller() bool { return a.Kind == KindSeller }
func (a Actor) IsGuest() bool  { return a.Kind == KindGuest || a.Kind == "" }

// IsOperator reports whether the actor may act on orders it did not place.
func (a Actor) IsOperator() bool { return a.IsAdmin() || a.IsSeller() }

// AccountID returns the authenticated account behind the actor, if any.
// Admins and sellers are accounts too and may shop with their own cart.
func (a Actor) AccountID() (int64, bool) {
	if a.IsGuest() || a.ID <= 0 {
		return 0, false
	}
	return a.ID, true
}

func (a Actor) String() string {
	if a.IsGuest() {
		return string(KindGuest)
	}
	return fmt.Sprintf("%s:%d", a.Kind, a.ID)
}
