package account

import (
	"time"

	"github.com/MikeMC777/tienda-commerce/internal/actor"
)

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleSeller   Role = "seller"
	RoleCustomer Role = "customer"
)

type Account struct {
	ID        int64        `json:"id"`
	Email     string       `json:"email"`
	Name      string       `json:"name"`
	Role      Role         `json:"role"`
	Status    actor.Status `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Actor converts the account into the request actor it authenticates as.
func (a Account) Actor() actor.Actor {
	switch a.Role {
	case RoleAdmin:
		return actor.Admin(a.ID)
	case RoleSeller:
		return actor.Seller(a.ID, a.Status)
	default:
		return actor.Account(a.ID)
	}
}
