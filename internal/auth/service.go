package auth

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/fasm-labs/fasm/internal/shared"
	"github.com/fasm-labs/fasm/internal/token"
	"github.com/fasm-labs/fasm/internal/users"
)

// UserSource resolves accounts for authentication and authorization.
type UserSource interface {
	FindByID(ctx context.Context, id uuid.UUID) (*users.User, error)
	FindByName(ctx context.Context, name string) (*users.User, error)
}

// TokenPair is the result of a successful authentication. The refresh
// token is omitted on refresh responses.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// Service wraps credential authentication and token issuance.
type Service struct {
	users  UserSource
	tokens *token.Service
}

// NewService constructs a Service.
func NewService(users UserSource, tokens *token.Service) *Service {
	return &Service{users: users, tokens: tokens}
}

// Authenticate validates account/password credentials. Unknown accounts
// fail with CodeUserNotFound, wrong passwords with CodeNotAuthenticated,
// deactivated accounts with CodeUserBlocked.
func (s *Service) Authenticate(ctx context.Context, account, password string) (*users.User, error) {
	user, err := s.users.FindByName(ctx, account)
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.NewError(shared.CodeNotAuthenticated)
	}
	if !user.IsActive {
		return nil, shared.NewError(shared.CodeUserBlocked)
	}
	return user, nil
}

// IssuePair issues a fresh access and refresh token for the user.
func (s *Service) IssuePair(user *users.User) (TokenPair, error) {
	access, err := s.tokens.Issue(user.ID, token.KindAccess)
	if err != nil {
		return TokenPair{}, fmt.Errorf("auth: issue access token: %w", err)
	}
	refresh, err := s.tokens.Issue(user.ID, token.KindRefresh)
	if err != nil {
		return TokenPair{}, fmt.Errorf("auth: issue refresh token: %w", err)
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// IssueAccess issues a fresh access token only, used by the refresh flow.
func (s *Service) IssueAccess(userID uuid.UUID) (TokenPair, error) {
	access, err := s.tokens.Issue(userID, token.KindAccess)
	if err != nil {
		return TokenPair{}, fmt.Errorf("auth: issue access token: %w", err)
	}
	return TokenPair{AccessToken: access}, nil
}
