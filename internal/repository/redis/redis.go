// Package redis is the ephemeral ports adapter: AuthSession and
// BrokerAuthSession are interactive-flow state with a short TTL (spec §3,
// §4.E, §4.F) and never need to survive longer than that TTL, so they are
// backed by go-redis instead of postgres (see internal/repository/postgres
// for the durable entities).
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ferriskey/ferriskey/internal/domain"
	"github.com/ferriskey/ferriskey/internal/ports"
)

// Store wraps a go-redis client. Both Engine adapters below share one Store
// over one key prefix.
type Store struct {
	rdb    *redis.Client
	prefix string
	clock  ports.Clock
}

// New builds a Store. keyPrefix namespaces keys so a single Redis instance
// can be shared by multiple services (e.g. "ferriskey:").
func New(rdb *redis.Client, keyPrefix string, clock ports.Clock) *Store {
	return &Store{rdb: rdb, prefix: keyPrefix, clock: clock}
}

// Views bundles the two ports adapters this package provides.
type Views struct {
	AuthSessions       *AuthSessionView
	BrokerAuthSessions *BrokerAuthSessionView
}

// NewViews builds both adapters over the same Store.
func NewViews(rdb *redis.Client, keyPrefix string, clock ports.Clock) *Views {
	s := New(rdb, keyPrefix, clock)
	return &Views{
		AuthSessions:       &AuthSessionView{s},
		BrokerAuthSessions: &BrokerAuthSessionView{s},
	}
}

func (s *Store) sessionKey(id string) string     { return fmt.Sprintf("%sauthsession:%s", s.prefix, id) }
func (s *Store) sessionCodeKey(code string) string { return fmt.Sprintf("%sauthsession:code:%s", s.prefix, code) }
func (s *Store) brokerKey(id string) string       { return fmt.Sprintf("%sbrokersession:%s", s.prefix, id) }
func (s *Store) brokerStateKey(state string) string {
	return fmt.Sprintf("%sbrokersession:state:%s", s.prefix, state)
}

// AuthSessionView backs ports.AuthSessionRepository.
type AuthSessionView struct{ *Store }

func (v *AuthSessionView) Create(ctx context.Context, session domain.AuthSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("redis: marshal auth session: %w", err)
	}
	ttl := ttlUntil(v.clock.Now(), session.ExpiresAt)
	if err := v.rdb.Set(ctx, v.sessionKey(session.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis: create auth session: %w", err)
	}
	return nil
}

func (v *AuthSessionView) GetBySessionCode(ctx context.Context, sessionCode string) (domain.AuthSession, error) {
	return v.getByKey(ctx, v.sessionKey(sessionCode))
}

func (v *AuthSessionView) GetByCode(ctx context.Context, code string) (domain.AuthSession, error) {
	sessionID, err := v.rdb.Get(ctx, v.sessionCodeKey(code)).Result()
	if err != nil {
		return domain.AuthSession{}, mapErr(err)
	}
	return v.getByKey(ctx, v.sessionKey(sessionID))
}

func (v *AuthSessionView) UpdateCodeAndUserID(ctx context.Context, sessionCode, code, userID string) (domain.AuthSession, error) {
	session, err := v.getByKey(ctx, v.sessionKey(sessionCode))
	if err != nil {
		return domain.AuthSession{}, err
	}
	session.Code = &code
	session.UserID = &userID
	session.Authenticated = true

	data, err := json.Marshal(session)
	if err != nil {
		return domain.AuthSession{}, fmt.Errorf("redis: marshal auth session: %w", err)
	}
	ttl := ttlUntil(v.clock.Now(), session.ExpiresAt)
	if err := v.rdb.Set(ctx, v.sessionKey(session.ID), data, ttl).Err(); err != nil {
		return domain.AuthSession{}, fmt.Errorf("redis: finalize auth session: %w", err)
	}
	if err := v.rdb.Set(ctx, v.sessionCodeKey(code), session.ID, ttl).Err(); err != nil {
		return domain.AuthSession{}, fmt.Errorf("redis: index auth session code: %w", err)
	}
	return session, nil
}

func (v *AuthSessionView) Delete(ctx context.Context, sessionCode string) error {
	session, err := v.getByKey(ctx, v.sessionKey(sessionCode))
	if err != nil {
		if err == ports.ErrNotFound {
			return nil
		}
		return err
	}
	pipe := v.rdb.Pipeline()
	pipe.Del(ctx, v.sessionKey(sessionCode))
	if session.Code != nil {
		pipe.Del(ctx, v.sessionCodeKey(*session.Code))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: delete auth session: %w", err)
	}
	return nil
}

func (v *AuthSessionView) getByKey(ctx context.Context, key string) (domain.AuthSession, error) {
	data, err := v.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return domain.AuthSession{}, mapErr(err)
	}
	var session domain.AuthSession
	if err := json.Unmarshal(data, &session); err != nil {
		return domain.AuthSession{}, fmt.Errorf("redis: unmarshal auth session: %w", err)
	}
	return session, nil
}

// BrokerAuthSessionView backs ports.BrokerAuthSessionRepository.
type BrokerAuthSessionView struct{ *Store }

func (v *BrokerAuthSessionView) Create(ctx context.Context, session domain.BrokerAuthSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("redis: marshal broker session: %w", err)
	}
	ttl := ttlUntil(v.clock.Now(), session.ExpiresAt)
	pipe := v.rdb.Pipeline()
	pipe.Set(ctx, v.brokerKey(session.ID), data, ttl)
	pipe.Set(ctx, v.brokerStateKey(session.BrokerState), session.ID, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: create broker session: %w", err)
	}
	return nil
}

func (v *BrokerAuthSessionView) GetByBrokerState(ctx context.Context, brokerState string) (domain.BrokerAuthSession, error) {
	sessionID, err := v.rdb.Get(ctx, v.brokerStateKey(brokerState)).Result()
	if err != nil {
		return domain.BrokerAuthSession{}, mapErr(err)
	}
	data, err := v.rdb.Get(ctx, v.brokerKey(sessionID)).Bytes()
	if err != nil {
		return domain.BrokerAuthSession{}, mapErr(err)
	}
	var session domain.BrokerAuthSession
	if err := json.Unmarshal(data, &session); err != nil {
		return domain.BrokerAuthSession{}, fmt.Errorf("redis: unmarshal broker session: %w", err)
	}
	return session, nil
}

func (v *BrokerAuthSessionView) Delete(ctx context.Context, id string) error {
	data, err := v.rdb.Get(ctx, v.brokerKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil
		}
		return fmt.Errorf("redis: load broker session for delete: %w", err)
	}
	var session domain.BrokerAuthSession
	if err := json.Unmarshal(data, &session); err != nil {
		return fmt.Errorf("redis: unmarshal broker session: %w", err)
	}

	pipe := v.rdb.Pipeline()
	pipe.Del(ctx, v.brokerKey(id))
	pipe.Del(ctx, v.brokerStateKey(session.BrokerState))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: delete broker session: %w", err)
	}
	return nil
}

// ttlUntil never returns a negative or zero duration to Set, since that
// would mean "no expiry" in go-redis; a session already past its ExpiresAt
// is instead stored with a 1-second TTL so a racing reader still observes
// it as (about to be) gone rather than immutable.
func ttlUntil(now, expiresAt time.Time) time.Duration {
	d := expiresAt.Sub(now)
	if d <= 0 {
		return time.Second
	}
	return d
}

func mapErr(err error) error {
	if err == redis.Nil {
		return ports.ErrNotFound
	}
	return fmt.Errorf("redis: %w", err)
}
