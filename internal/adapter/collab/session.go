package collab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"

	"github.com/dumall/reconcile/internal/core/domain"
	"github.com/dumall/reconcile/internal/port"
)

// SessionStore is a demo auth collaborator persisting the current user under
// the auth-session key. Any non-empty credentials log in; the "admin"
// username gets the admin flag. Real authentication lives outside the engine.
type SessionStore struct {
	store port.Store
	log   *slog.Logger
}

var _ port.AuthSession = (*SessionStore)(nil)

func NewSessionStore(store port.Store, log *slog.Logger) *SessionStore {
	if log == nil {
		log = slog.Default()
	}
	return &SessionStore{store: store, log: log}
}

func (s *SessionStore) CurrentUser(ctx context.Context) (domain.User, error) {
	rec, err := s.store.Get(ctx, port.KeyAuthSession)
	if errors.Is(err, port.ErrKeyNotFound) {
		return domain.User{}, port.ErrNotAuthenticated
	}
	if err != nil {
		return domain.User{}, err
	}
	var user domain.User
	if err := json.Unmarshal(rec.Value, &user); err != nil || user.ID == 0 {
		// Corrupt session data is treated as logged out.
		return domain.User{}, port.ErrNotAuthenticated
	}
	return user, nil
}

func (s *SessionStore) Login(ctx context.Context, username, password string) (domain.User, error) {
	if username == "" || password == "" {
		return domain.User{}, port.ErrNotAuthenticated
	}
	user := domain.User{
		ID:       userIDFor(username),
		Username: username,
		Email:    fmt.Sprintf("%s@dumall.example", username),
		IsAdmin:  username == "admin",
	}
	data, err := json.Marshal(user)
	if err != nil {
		return domain.User{}, err
	}
	if err := s.store.Set(ctx, port.KeyAuthSession, data); err != nil {
		return domain.User{}, err
	}
	s.log.Info("user logged in", "user_id", user.ID, "username", username, "admin", user.IsAdmin)
	return user, nil
}

func (s *SessionStore) Logout(ctx context.Context) error {
	return s.store.Remove(ctx, port.KeyAuthSession)
}

func (s *SessionStore) HasCapability(ctx context.Context, name string) bool {
	user, err := s.CurrentUser(ctx)
	if err != nil {
		return false
	}
	if name == port.CapWarehouse {
		return user.IsAdmin
	}
	return true
}

// userIDFor derives a stable id from the username so sessions survive
// restarts without a user database.
func userIDFor(username string) int64 {
	h := fnv.New32a()
	h.Write([]byte(username))
	return int64(h.Sum32()&0x7fffff) + 1
}
