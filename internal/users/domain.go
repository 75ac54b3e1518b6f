package users

import (
	"github.com/google/uuid"

	"github.com/fasm-labs/fasm/internal/permission"
	"github.com/fasm-labs/fasm/internal/roles"
)

// AdminUserName is the superuser account seeded at bootstrap.
const AdminUserName = "admin"

// User represents an account. Roles is populated only on lookups that
// precede a permission check.
type User struct {
	ID           uuid.UUID      `json:"id"`
	Name         string         `json:"name"`
	PasswordHash string         `json:"-"`
	IsActive     bool           `json:"is_active"`
	IsAdmin      bool           `json:"is_admin"`
	Profile      map[string]any `json:"profile"`
	CreatedAt    int64          `json:"created_at"`
	UpdatedAt    int64          `json:"updated_at"`
	DeletedAt    *int64         `json:"deleted_at,omitempty"`
	Roles        []roles.Role   `json:"roles,omitempty"`
}

// EffectivePermissions aggregates the user's permission set: the OR of all
// role masks, or the full set for admins regardless of membership.
func (u *User) EffectivePermissions() permission.Set {
	if u.IsAdmin {
		return permission.All
	}
	effective := permission.None
	for _, role := range u.Roles {
		effective = permission.Combine(effective, role.Permissions)
	}
	return effective
}

// UserUpdate carries a partial update. Nil fields are left untouched.
type UserUpdate struct {
	Name     *string
	Profile  map[string]any
	IsActive *bool
}
