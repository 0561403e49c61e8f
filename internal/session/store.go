// internal/session/store.go
package session

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/clivon254/TEO-KICKS-sub002/internal/apiclient"
	"github.com/clivon254/TEO-KICKS-sub002/internal/domain"
)

const (
	keyCurrent = "admin_gateway:session:current"
	sessionTTL = 7 * 24 * time.Hour
)

// AuthAPI is the slice of the backend client the store needs.
type AuthAPI interface {
	Login(ctx context.Context, email, password string) (*apiclient.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*apiclient.TokenPair, error)
}

// Store owns the operator session: hydrated from redis on start, updated on
// login, cleared on logout. It is the only writer of session state and
// doubles as the API client's token source.
type Store struct {
	mu      sync.Mutex
	rdb     *redis.Client
	auth    AuthAPI
	current *domain.Session
	logger  *zap.Logger
}

func NewStore(rdb *redis.Client, logger *zap.Logger) *Store {
	return &Store{rdb: rdb, logger: logger}
}

// BindAuth attaches the backend auth API. Separate from the constructor
// because the API client itself needs the store as its token source.
func (s *Store) BindAuth(auth AuthAPI) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auth = auth
}

// Hydrate restores a persisted session, if any. Missing session is not an
// error; the dashboard simply requires a fresh login.
func (s *Store) Hydrate(ctx context.Context) error {
	raw, err := s.rdb.Get(ctx, keyCurrent).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("hydrate session: %w", err)
	}

	var sess domain.Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return fmt.Errorf("hydrate session: %w", err)
	}

	s.mu.Lock()
	s.current = &sess
	s.mu.Unlock()

	s.logger.Info("session hydrated",
		zap.String("session_id", sess.ID),
		zap.String("user_id", sess.User.ID))
	return nil
}

// Login authenticates against the backend and replaces the current session.
func (s *Store) Login(ctx context.Context, email, password string) (*domain.Session, error) {
	s.mu.Lock()
	auth := s.auth
	s.mu.Unlock()
	if auth == nil {
		return nil, fmt.Errorf("session store: auth api not bound")
	}

	pair, err := auth.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}

	sess := &domain.Session{
		ID:           ulid.MustNew(ulid.Now(), rand.Reader).String(),
		User:         pair.User,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    tokenExpiry(pair.AccessToken),
		CreatedAt:    time.Now(),
	}

	if err := s.persist(ctx, sess); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.current = sess
	s.mu.Unlock()

	s.logger.Info("operator logged in",
		zap.String("session_id", sess.ID),
		zap.String("user_id", sess.User.ID))

	snapshot := *sess
	return &snapshot, nil
}

// Logout clears the session in memory and in redis.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()

	if err := s.rdb.Del(ctx, keyCurrent).Err(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	s.logger.Info("operator logged out")
	return nil
}

// Current returns a copy of the active session, or nil.
func (s *Store) Current() *domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	snapshot := *s.current
	return &snapshot
}

// AccessToken implements apiclient.TokenSource. A token already past its exp
// claim is refreshed here rather than burning a 401 round trip first.
func (s *Store) AccessToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return "", domain.ErrSessionNotFound
	}
	if s.current.Expired(time.Now()) {
		return s.refreshLocked(ctx)
	}
	return s.current.AccessToken, nil
}

// Refresh swaps both tokens atomically, implementing apiclient.TokenSource.
// Serialized under the store lock so concurrent 401s trigger one refresh.
func (s *Store) Refresh(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return "", domain.ErrSessionNotFound
	}
	return s.refreshLocked(ctx)
}

func (s *Store) refreshLocked(ctx context.Context) (string, error) {
	if s.auth == nil {
		return "", fmt.Errorf("session store: auth api not bound")
	}

	pair, err := s.auth.RefreshToken(ctx, s.current.RefreshToken)
	if err != nil {
		return "", fmt.Errorf("refresh session: %w", err)
	}

	s.current.AccessToken = pair.AccessToken
	if pair.RefreshToken != "" {
		s.current.RefreshToken = pair.RefreshToken
	}
	s.current.ExpiresAt = tokenExpiry(pair.AccessToken)

	if err := s.persist(ctx, s.current); err != nil {
		s.logger.Error("failed to persist refreshed session", zap.Error(err))
	}

	return s.current.AccessToken, nil
}

func (s *Store) persist(ctx context.Context, sess *domain.Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	if err := s.rdb.Set(ctx, keyCurrent, raw, sessionTTL).Err(); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	return nil
}

// tokenExpiry reads the exp claim without verifying the signature; the
// backend is the token's authority, the gateway only schedules refreshes.
func tokenExpiry(accessToken string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
