package roles

import (
	"github.com/google/uuid"

	"github.com/fasm-labs/fasm/internal/permission"
)

// DefaultRoleName is the role seeded at bootstrap with an empty mask.
const DefaultRoleName = "Default"

// Role groups a permission mask under a unique name.
type Role struct {
	ID          uuid.UUID      `json:"id"`
	Name        string         `json:"name"`
	Desc        string         `json:"desc"`
	Permissions permission.Set `json:"permissions"`
	CreatedAt   int64          `json:"created_at"`
	UpdatedAt   int64          `json:"updated_at"`
	DeletedAt   *int64         `json:"deleted_at,omitempty"`
}

// RoleUpdate carries a partial update. Nil fields are left untouched.
type RoleUpdate struct {
	Name        *string
	Desc        *string
	Permissions *permission.Set
}
