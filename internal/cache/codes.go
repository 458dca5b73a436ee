package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// loginCodeTTL bounds the window in which an SMS code can be redeemed.
	loginCodeTTL = 5 * time.Minute

	// oauthStateTTL bounds how long an OAuth authorization round-trip may
	// take before the state nonce is discarded.
	oauthStateTTL = 10 * time.Minute
)

var _ CodeStore = (*RedisCodeStore)(nil)

// RedisCodeStore keeps short-lived login artifacts in Redis: SMS login codes
// and OAuth state nonces. Both rely on Redis key expiry for their lifetime,
// so nothing here ever needs a cleanup job.
//
// Unlike the post cache, these are NOT best-effort: a failure here must
// surface to the caller, because losing a login code means the user cannot
// log in and should be told so.
type RedisCodeStore struct {
	rdb *redis.Client
}

// NewRedisCodeStore creates the code store.
func NewRedisCodeStore(rdb *redis.Client) *RedisCodeStore {
	return &RedisCodeStore{rdb: rdb}
}

// SaveLoginCode stores the code under login_code:<phone> for five minutes.
// A second send for the same phone overwrites the first code and restarts
// the clock; only the latest code is ever valid.
func (s *RedisCodeStore) SaveLoginCode(ctx context.Context, phone, code string) error {
	return s.rdb.Set(ctx, codeKey(phone), code, loginCodeTTL).Err()
}

// GetLoginCode returns the stored code for the phone, or ("", nil) when no
// code exists — absent and expired are indistinguishable here, and callers
// treat both the same way.
func (s *RedisCodeStore) GetLoginCode(ctx context.Context, phone string) (string, error) {
	code, err := s.rdb.Get(ctx, codeKey(phone)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return code, nil
}

// DeleteLoginCode removes the code after a successful login, making codes
// single-use.
func (s *RedisCodeStore) DeleteLoginCode(ctx context.Context, phone string) error {
	return s.rdb.Del(ctx, codeKey(phone)).Err()
}

// SaveOAuthState records a state nonce we handed to the OAuth provider.
func (s *RedisCodeStore) SaveOAuthState(ctx context.Context, state string) error {
	return s.rdb.Set(ctx, stateKey(state), "1", oauthStateTTL).Err()
}

// ConsumeOAuthState atomically checks and deletes the nonce. GETDEL makes the
// check-and-burn a single Redis command, so a replayed callback with the same
// state can never win a race against the first one.
func (s *RedisCodeStore) ConsumeOAuthState(ctx context.Context, state string) (bool, error) {
	_, err := s.rdb.GetDel(ctx, stateKey(state)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
