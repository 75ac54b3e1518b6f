package users

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/fasm-labs/fasm/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	Create(ctx context.Context, name, passwordHash string) (*User, error)
	Update(ctx context.Context, id uuid.UUID, patch UserUpdate) (*User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByName(ctx context.Context, name string) (*User, error)
	List(ctx context.Context, req shared.PageRequest) ([]User, int, error)
	SetRoles(ctx context.Context, userID uuid.UUID, roleIDs []uuid.UUID) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

// Service handles user business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Create hashes the password and inserts a new user.
func (s *Service) Create(ctx context.Context, name, password string) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("users: hash password: %w", err)
	}
	return s.repo.Create(ctx, name, string(hash))
}

// Update applies a partial update to an existing user.
func (s *Service) Update(ctx context.Context, id uuid.UUID, patch UserUpdate) (*User, error) {
	return s.repo.Update(ctx, id, patch)
}

// Get fetches a user with resolved role memberships.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.FindByID(ctx, id)
}

// List returns a page of users.
func (s *Service) List(ctx context.Context, req shared.PageRequest) (shared.Page[User], error) {
	items, total, err := s.repo.List(ctx, req)
	if err != nil {
		return shared.Page[User]{}, err
	}
	return shared.NewPage(items, req, total), nil
}

// SetRoles replaces the user's role memberships.
func (s *Service) SetRoles(ctx context.Context, userID uuid.UUID, roleIDs []uuid.UUID) error {
	return s.repo.SetRoles(ctx, userID, roleIDs)
}

// Delete soft-deletes a user.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.SoftDelete(ctx, id)
}
