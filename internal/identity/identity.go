// Package identity manages the current-identity signal: who the shopper is,
// or none. Sign-in state is remembered in the local scope so an interactive
// session restores it at construction. Everything else in the core only
// observes transitions between none and a concrete user.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/example/storefront/internal/localstore"
	"github.com/example/storefront/internal/recordstore"
	"github.com/example/storefront/internal/signal"
)

const (
	collection = "users"
	storageKey = "ecommerce-user"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailExists        = errors.New("email already registered")
	ErrNotSignedIn        = errors.New("not signed in")
)

type User struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
	// Password carries the bcrypt hash as stored; it is stripped before the
	// user is exposed or remembered locally.
	Password string `json:"password,omitempty"`
}

type Manager struct {
	records *recordstore.Client
	local   localstore.KV
	current *signal.Cell[*User]
}

func NewManager(records *recordstore.Client, local localstore.KV) *Manager {
	m := &Manager{
		records: records,
		local:   local,
		current: signal.NewCell[*User](nil),
	}
	m.restore()
	return m
}

// restore loads a remembered sign-in from the local scope. A value that no
// longer parses is discarded rather than surfaced.
func (m *Manager) restore() {
	raw, ok := m.local.Get(storageKey)
	if !ok {
		return
	}
	var u User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		log.Warn().Err(err).Msg("identity: discarding unparsable remembered user")
		_ = m.local.Remove(storageKey)
		return
	}
	m.current.Set(&u)
}

// Current returns the signed-in user, or nil when anonymous.
func (m *Manager) Current() *User {
	return m.current.Get()
}

// Subscribe registers fn for identity transitions and returns a cancel
// function. fn receives nil on sign-out.
func (m *Manager) Subscribe(fn func(*User)) func() {
	return m.current.Subscribe(fn)
}

// Login resolves the account by email and verifies the password against its
// stored bcrypt hash. On success the user (with the hash stripped) becomes
// the current identity and is remembered locally.
func (m *Manager) Login(ctx context.Context, email, password string) (*User, error) {
	var users []User
	if err := m.records.List(ctx, collection, map[string]string{"email": email}, &users); err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}
	if len(users) == 0 {
		return nil, ErrInvalidCredentials
	}

	u := users[0]
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	u.Password = ""
	m.remember(&u)
	m.current.Set(&u)
	log.Info().Str("user_id", u.ID).Msg("identity: user signed in")
	return &u, nil
}

// Register creates a new account with a bcrypt-hashed password and signs it
// in. The email must not already be taken.
func (m *Manager) Register(ctx context.Context, u User, password string) (*User, error) {
	var existing []User
	if err := m.records.List(ctx, collection, map[string]string{"email": u.Email}, &existing); err != nil {
		return nil, fmt.Errorf("registration failed: %w", err)
	}
	if len(existing) > 0 {
		return nil, ErrEmailExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	u.ID = ""
	u.Password = string(hash)

	var created User
	if err := m.records.Create(ctx, collection, u, &created); err != nil {
		return nil, fmt.Errorf("registration failed: %w", err)
	}

	created.Password = ""
	m.remember(&created)
	m.current.Set(&created)
	log.Info().Str("user_id", created.ID).Msg("identity: user registered")
	return &created, nil
}

// UpdateProfile merges the given fields into the current account.
func (m *Manager) UpdateProfile(ctx context.Context, fields map[string]any) (*User, error) {
	u := m.Current()
	if u == nil {
		return nil, ErrNotSignedIn
	}

	var updated User
	if err := m.records.Patch(ctx, collection, u.ID, fields, &updated); err != nil {
		return nil, fmt.Errorf("profile update failed: %w", err)
	}

	updated.Password = ""
	m.remember(&updated)
	m.current.Set(&updated)
	return &updated, nil
}

// Logout clears the identity; the signal transitions to none.
func (m *Manager) Logout() {
	if err := m.local.Remove(storageKey); err != nil {
		log.Warn().Err(err).Msg("identity: failed to clear remembered user")
	}
	m.current.Set(nil)
	log.Info().Msg("identity: user signed out")
}

func (m *Manager) remember(u *User) {
	raw, err := json.Marshal(u)
	if err != nil {
		log.Warn().Err(err).Msg("identity: failed to encode user for local scope")
		return
	}
	if err := m.local.Set(storageKey, string(raw)); err != nil {
		log.Warn().Err(err).Msg("identity: failed to remember user")
	}
}
