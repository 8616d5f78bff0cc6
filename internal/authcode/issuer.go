// Package authcode issues and verifies the short-lived one-time codes used
// by login prechecks, registration and password resets. Codes live in redis
// under per-(subject, purpose) keys so expiry is enforced by the store.
package authcode

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/taotie8304/lu-gang-connect-project/internal/config"
)

type Purpose string

const (
	PurposeLogin    Purpose = "login"
	PurposeRegister Purpose = "register"
	PurposeReset    Purpose = "findPassword"
)

var ErrTooFrequent = errors.New("auth code requested too frequently")

type Issuer struct {
	cache *redis.Client
	cfg   config.AuthCodeConfig
	log   zerolog.Logger
}

func NewIssuer(cache *redis.Client, cfg config.AuthCodeConfig, log zerolog.Logger) *Issuer {
	return &Issuer{
		cache: cache,
		cfg:   cfg,
		log:   log,
	}
}

func (i *Issuer) ttlFor(purpose Purpose) time.Duration {
	switch purpose {
	case PurposeLogin:
		return i.cfg.LoginTTL
	case PurposeRegister:
		return i.cfg.RegisterTTL
	case PurposeReset:
		return i.cfg.ResetTTL
	default:
		return i.cfg.RegisterTTL
	}
}

func codeKey(subject string, purpose Purpose) string {
	return fmt.Sprintf("authcode:%s:%s", purpose, subject)
}

// Issue stores a fresh 6-digit code for the (subject, purpose) pair,
// invalidating any prior live code. A live code younger than the guard
// window blocks reissue with ErrTooFrequent.
func (i *Issuer) Issue(ctx context.Context, subject string, purpose Purpose) (string, error) {
	ttl := i.ttlFor(purpose)
	key := codeKey(subject, purpose)

	remaining, err := i.cache.TTL(ctx, key).Result()
	if err != nil {
		return "", fmt.Errorf("check code ttl: %w", err)
	}
	if remaining > 0 && remaining > ttl-i.cfg.GuardWindow {
		return "", ErrTooFrequent
	}

	code, err := numericCode(6)
	if err != nil {
		return "", err
	}

	// Delete-then-set rather than overwrite, so a stale expiry can never
	// linger on the new code.
	if err := i.cache.Del(ctx, key).Err(); err != nil {
		return "", fmt.Errorf("invalidate prior code: %w", err)
	}
	if err := i.cache.Set(ctx, key, code, ttl).Err(); err != nil {
		return "", fmt.Errorf("store code: %w", err)
	}

	return code, nil
}

// Verify consumes the stored code on success; a second call with the same
// code fails. A mismatch leaves the code in place for further attempts
// until it expires.
func (i *Issuer) Verify(ctx context.Context, subject string, purpose Purpose, code string) bool {
	if code == "" {
		return false
	}
	key := codeKey(subject, purpose)

	stored, err := i.cache.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			i.log.Error().Err(err).Str("subject", subject).Msg("auth code lookup failed")
		}
		return false
	}
	if stored != code {
		return false
	}

	if err := i.cache.Del(ctx, key).Err(); err != nil {
		i.log.Error().Err(err).Str("subject", subject).Msg("auth code consume failed")
		return false
	}
	return true
}

func numericCode(length int) (string, error) {
	digits := make([]byte, length)
	for idx := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("generate code: %w", err)
		}
		digits[idx] = byte('0' + n.Int64())
	}
	return string(digits), nil
}
