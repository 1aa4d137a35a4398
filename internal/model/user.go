package model

// Role tiers. Entitlement activation only ever upgrades.
const (
	RoleFree     = 0
	RoleMember   = 1
	RolePremium  = 2
	RoleSupplier = 3
)

type User struct {
	ID                int64  `json:"id"`
	Name              string `json:"name"`
	Email             string `json:"email"`
	Role              int    `json:"role"`
	WithdrawalPINHash string `json:"-"`
}
