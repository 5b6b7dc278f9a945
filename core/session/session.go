// Package session persists the signed-in visitor's tokens and user record in a key-value storage.
package session

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-portal/core/user"
)

// The whole persisted state of a visitor.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyCurrentUser  = "current_user"
)

var keys = [...]string{KeyAccessToken, KeyRefreshToken, KeyCurrentUser}

type (
	// Storage is a string key-value storage scoped to one visitor.
	Storage interface {
		Get(key string) (string, bool)
		Set(key, value string) error
		Remove(key string) error
	}

	// Backend hands out the Storage of a visitor.
	Backend interface {
		For(ctx context.Context, visitorID string) Storage
	}
)

type Session struct {
	user.Tokens
	User user.User
}

// AccessExpired reports whether the access token carries an `exp` claim that is before `now`.
// The signature is not verified: the backend does that on every call.
// A token that is not a JWT never expires here; a 401 from the backend ends its session.
func (s Session) AccessExpired(now time.Time) bool {
	claims := jwt.StandardClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(s.Access, &claims); err != nil {
		return false
	}
	return claims.ExpiresAt != 0 && now.Unix() > claims.ExpiresAt
}

// Store reads and writes a Session. A Store over a nil Storage reads as absent and ignores writes.
type Store struct {
	storage Storage
}

func NewStore(storage Storage) *Store {
	return &Store{storage: storage}
}

func (s *Store) available() bool {
	return s != nil && s.storage != nil
}

// Save writes the three session keys.
func (s *Store) Save(tokens user.Tokens, usr user.User) error {
	if !s.available() {
		return nil
	}
	data, err := json.Marshal(usr)
	if err != nil {
		return errors.Wrap(err, "encoding current user")
	}
	if err = s.storage.Set(KeyAccessToken, tokens.Access); err != nil {
		return errors.Wrap(err, "saving access token")
	}
	if err = s.storage.Set(KeyRefreshToken, tokens.Refresh); err != nil {
		return errors.Wrap(err, "saving refresh token")
	}
	if err = s.storage.Set(KeyCurrentUser, string(data)); err != nil {
		return errors.Wrap(err, "saving current user")
	}
	return nil
}

// Load returns the current Session, or false when any key is missing or the user does not decode.
func (s *Store) Load() (Session, bool) {
	if !s.available() {
		return Session{}, false
	}
	access, ok := s.storage.Get(KeyAccessToken)
	if !ok || access == "" {
		return Session{}, false
	}
	refresh, ok := s.storage.Get(KeyRefreshToken)
	if !ok {
		return Session{}, false
	}
	raw, ok := s.storage.Get(KeyCurrentUser)
	if !ok {
		return Session{}, false
	}
	var usr user.User
	if err := json.Unmarshal([]byte(raw), &usr); err != nil || usr.Email == "" {
		return Session{}, false
	}
	return Session{Tokens: user.Tokens{Access: access, Refresh: refresh}, User: usr}, true
}

// SetAccess replaces the access token of an existing session.
func (s *Store) SetAccess(access string) error {
	if !s.available() {
		return nil
	}
	return errors.Wrap(s.storage.Set(KeyAccessToken, access), "saving access token")
}

// Clear removes the three session keys. Every key is attempted; the failures are joined.
func (s *Store) Clear() error {
	if !s.available() {
		return nil
	}
	var errs []error
	for _, key := range keys {
		if err := s.storage.Remove(key); err != nil {
			errs = append(errs, errors.Wrapf(err, "removing %s", key))
		}
	}
	return stderrors.Join(errs...)
}

// AccessToken returns the stored access token ("" when absent).
func (s *Store) AccessToken() string {
	if !s.available() {
		return ""
	}
	token, _ := s.storage.Get(KeyAccessToken)
	return token
}
