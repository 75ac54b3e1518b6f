// Package token issues and verifies the signed, time-bounded tokens that
// carry user identity between requests. Tokens are self-contained: validity
// is determined entirely by signature and expiry, no server-side state is
// consulted. There is consequently no revocation list; a blocked user is
// rejected by the authorization gate through the live is_active check, and
// revocation latency for everything else equals the token TTL.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Kind tags a token as usable for API access or for refreshing access.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

var (
	// ErrExpired indicates a well-formed token past its expiry.
	ErrExpired = errors.New("token: expired")
	// ErrInvalid indicates a bad signature, malformed payload, wrong
	// algorithm, or unknown kind tag.
	ErrInvalid = errors.New("token: invalid")
)

// Claims is the decoded content of a verified token.
type Claims struct {
	Subject   uuid.UUID
	Kind      Kind
	ExpiresAt time.Time
}

type wireClaims struct {
	Kind string `json:"typ"`
	jwt.RegisteredClaims
}

// Service signs and verifies tokens with a process-wide symmetric secret.
type Service struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewService constructs a Service. The signing algorithm is fixed to HS256.
func NewService(secret string, accessTTL, refreshTTL time.Duration) *Service {
	return &Service{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// Issue produces a signed token for the subject. Expiry is now plus the
// TTL configured for the kind.
func (s *Service) Issue(subject uuid.UUID, kind Kind) (string, error) {
	ttl := s.accessTTL
	if kind == KindRefresh {
		ttl = s.refreshTTL
	}
	now := s.now()
	claims := wireClaims{
		Kind: string(kind),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify decodes raw and validates signature and expiry. It never mutates
// state and is safe for concurrent use.
func (s *Service) Verify(raw string) (Claims, error) {
	var claims wireClaims
	_, err := jwt.ParseWithClaims(raw, &claims,
		func(t *jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrExpired
		}
		return Claims{}, ErrInvalid
	}
	subject, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Claims{}, ErrInvalid
	}
	kind := Kind(claims.Kind)
	if kind != KindAccess && kind != KindRefresh {
		return Claims{}, ErrInvalid
	}
	return Claims{
		Subject:   subject,
		Kind:      kind,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
