// Package captcha keeps one-time challenge codes in redis, keyed by the
// issuing request's trace id. Codes are single-use: verification consumes
// the stored value whether or not it matches.
package captcha

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fasm-labs/fasm/internal/shared"
)

// CodeLength is the number of digits in a challenge code.
const CodeLength = 5

// Store issues and verifies one-time codes.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore constructs a Store. ttl bounds how long an issued code stays
// verifiable.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Store{client: client, ttl: ttl}
}

// Issue generates a fresh code and caches it under the trace id.
func (s *Store) Issue(ctx context.Context, traceID string) (string, error) {
	code, err := randomDigits(CodeLength)
	if err != nil {
		return "", fmt.Errorf("captcha: generate code: %w", err)
	}
	if err := s.client.Set(ctx, key(traceID), code, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("captcha: cache code: %w", err)
	}
	return code, nil
}

// Verify consumes the code stored for the trace id and compares it against
// the submitted value. Missing, expired, or mismatched codes fail with
// CodeInvalidCaptcha.
func (s *Store) Verify(ctx context.Context, traceID, submitted string) error {
	stored, err := s.client.GetDel(ctx, key(traceID)).Result()
	if errors.Is(err, redis.Nil) {
		return shared.NewError(shared.CodeInvalidCaptcha)
	}
	if err != nil {
		return fmt.Errorf("captcha: load code: %w", err)
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(submitted)) != 1 {
		return shared.NewError(shared.CodeInvalidCaptcha)
	}
	return nil
}

func key(traceID string) string {
	return "captcha:" + traceID
}

func randomDigits(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	digits := make([]byte, n)
	for i, b := range buf {
		digits[i] = '0' + b%10
	}
	return string(digits), nil
}
