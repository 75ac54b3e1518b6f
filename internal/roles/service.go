package roles

import (
	"context"

	"github.com/google/uuid"

	"github.com/fasm-labs/fasm/internal/permission"
	"github.com/fasm-labs/fasm/internal/shared"
)

// RepositoryPort defines data access methods for roles.
type RepositoryPort interface {
	Create(ctx context.Context, name, desc string, perms permission.Set) (Role, error)
	Update(ctx context.Context, id uuid.UUID, patch RoleUpdate) (Role, error)
	FindByID(ctx context.Context, id uuid.UUID) (Role, error)
	List(ctx context.Context, req shared.PageRequest) ([]Role, int, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

// Service handles role business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Create inserts a new role.
func (s *Service) Create(ctx context.Context, name, desc string, perms permission.Set) (Role, error) {
	return s.repo.Create(ctx, name, desc, perms)
}

// Update applies a partial update to an existing role.
func (s *Service) Update(ctx context.Context, id uuid.UUID, patch RoleUpdate) (Role, error) {
	return s.repo.Update(ctx, id, patch)
}

// List returns a page of roles.
func (s *Service) List(ctx context.Context, req shared.PageRequest) (shared.Page[Role], error) {
	items, total, err := s.repo.List(ctx, req)
	if err != nil {
		return shared.Page[Role]{}, err
	}
	return shared.NewPage(items, req, total), nil
}

// Delete soft-deletes a role.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.SoftDelete(ctx, id)
}
