// Copyright 2026 The CareForms Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package identity

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/careforms/careforms/internal/audit"
	"github.com/careforms/careforms/internal/session"
)

// In-memory store double, keyed the way the SQL layer is.
type memStore struct {
	identities  map[string]*Identity
	credentials map[string]*Credentials
}

func newMemStore() *memStore {
	return &memStore{
		identities:  make(map[string]*Identity),
		credentials: make(map[string]*Credentials),
	}
}

func (s *memStore) Create(ctx context.Context, ident *Identity) error {
	s.identities[ident.ID] = ident
	return nil
}

func (s *memStore) GetByEmail(ctx context.Context, email string) (*Identity, error) {
	for _, ident := range s.identities {
		if strings.EqualFold(ident.Email, email) {
			return ident, nil
		}
	}
	return nil, ErrIdentityNotFound
}

func (s *memStore) GetByID(ctx context.Context, id string) (*Identity, error) {
	ident, ok := s.identities[id]
	if !ok {
		return nil, ErrIdentityNotFound
	}
	return ident, nil
}

func (s *memStore) AddCredentials(ctx context.Context, creds *Credentials) error {
	s.credentials[creds.IdentityID] = creds
	return nil
}

func (s *memStore) GetCredentials(ctx context.Context, identityID string) (*Credentials, error) {
	creds, ok := s.credentials[identityID]
	if !ok {
		return nil, ErrIdentityNotFound
	}
	return creds, nil
}

type memSessionRepo struct {
	sessions map[string]*session.Session
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{sessions: make(map[string]*session.Session)}
}

func (r *memSessionRepo) Create(ctx context.Context, s *session.Session) error {
	r.sessions[s.ID] = s
	return nil
}

func (r *memSessionRepo) Get(ctx context.Context, sessionID string) (*session.Session, error) {
	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, session.ErrSessionNotFound
	}
	return s, nil
}

func (r *memSessionRepo) Touch(ctx context.Context, sessionID string, lastSeenAt time.Time) error {
	s, ok := r.sessions[sessionID]
	if !ok {
		return session.ErrSessionNotFound
	}
	s.LastSeenAt = lastSeenAt
	return nil
}

func (r *memSessionRepo) Delete(ctx context.Context, sessionID string) error {
	delete(r.sessions, sessionID)
	return nil
}

func (r *memSessionRepo) DeleteExpired(ctx context.Context) error {
	for id, s := range r.sessions {
		if s.IsExpired() {
			delete(r.sessions, id)
		}
	}
	return nil
}

func newTestService() *Service {
	sessions := session.NewService(newMemSessionRepo(), 24*time.Hour, 30*time.Minute)
	return NewService(newMemStore(), NewPasswordHasher(65536, 3, 4, 16, 32), sessions, audit.NewSlogLogger())
}

// TestPurpose: Validates account creation rules: email shape, minimum password length, duplicate rejection.
// Scope: Unit Test
// Expected: Each invalid input maps to an AuthError with the matching reason; valid input yields an identity id.
// Test Case ID: IDN-01
func TestIdentity_Service_SignUp(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	id1, err := s.SignUp(ctx, SignUpParams{Email: "Dana@Example.com", Password: "SecurePassword123"})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if id1 == "" {
		t.Fatal("empty identity id")
	}

	cases := []struct {
		name   string
		params SignUpParams
		reason string
	}{
		{"duplicate email", SignUpParams{Email: "dana@example.com", Password: "SecurePassword123"}, ReasonEmailRegistered},
		{"duplicate different case", SignUpParams{Email: "DANA@EXAMPLE.COM", Password: "SecurePassword123"}, ReasonEmailRegistered},
		{"weak password", SignUpParams{Email: "new@example.com", Password: "short"}, ReasonWeakPassword},
		{"no at sign", SignUpParams{Email: "not-an-email", Password: "SecurePassword123"}, ReasonInvalidEmail},
		{"empty email", SignUpParams{Email: "", Password: "SecurePassword123"}, ReasonInvalidEmail},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.SignUp(ctx, tc.params)
			var authErr *AuthError
			if !errors.As(err, &authErr) {
				t.Fatalf("expected AuthError, got %v", err)
			}
			if authErr.Reason != tc.reason {
				t.Errorf("expected reason %s, got %s", tc.reason, authErr.Reason)
			}
		})
	}
}

// TestPurpose: Validates sign-in, session issuance, and sign-out.
// Scope: Unit Test
// Security: Authentication and session lifecycle
// Expected: Correct credentials open a session resolvable to the caller; wrong credentials and closed sessions are rejected.
// Test Case ID: IDN-02
func TestIdentity_Service_SignInFlow(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	id, err := s.SignUp(ctx, SignUpParams{Email: "dana@example.com", Password: "SecurePassword123"})
	if err != nil {
		t.Fatalf("signup failed: %v", err)
	}

	sess, err := s.SignIn(ctx, "dana@example.com", "SecurePassword123", "10.0.0.1", "test-agent")
	if err != nil {
		t.Fatalf("signin failed: %v", err)
	}
	if sess.IdentityID != id {
		t.Errorf("session bound to %s, want %s", sess.IdentityID, id)
	}

	caller, err := s.CurrentCaller(ctx, sess.ID)
	if err != nil {
		t.Fatalf("current caller failed: %v", err)
	}
	if caller.IdentityID != id || caller.Email != "dana@example.com" {
		t.Errorf("unexpected caller %+v", caller)
	}

	_, err = s.SignIn(ctx, "dana@example.com", "WrongPassword", "10.0.0.1", "test-agent")
	var authErr *AuthError
	if !errors.As(err, &authErr) || authErr.Reason != ReasonInvalidCredentials {
		t.Errorf("expected invalid credentials, got %v", err)
	}

	_, err = s.SignIn(ctx, "nobody@example.com", "SecurePassword123", "10.0.0.1", "test-agent")
	if !errors.As(err, &authErr) || authErr.Reason != ReasonInvalidCredentials {
		t.Errorf("expected invalid credentials for unknown email, got %v", err)
	}

	if err := s.SignOut(ctx, sess.ID); err != nil {
		t.Fatalf("signout failed: %v", err)
	}
	if _, err := s.CurrentCaller(ctx, sess.ID); err == nil {
		t.Error("expected closed session to be rejected")
	}
}

// Test Case ID: IDN-03
func TestIdentity_Service_Lookup(t *testing.T) {
	s := newTestService()
	ctx := context.Background()

	id, err := s.SignUp(ctx, SignUpParams{Email: "dana@example.com", Password: "SecurePassword123"})
	if err != nil {
		t.Fatalf("signup failed: %v", err)
	}

	got, err := s.Lookup(ctx, "  DANA@example.com ")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if got != id {
		t.Errorf("lookup = %s, want %s", got, id)
	}

	if _, err := s.Lookup(ctx, "missing@example.com"); !errors.Is(err, ErrIdentityNotFound) {
		t.Errorf("expected ErrIdentityNotFound, got %v", err)
	}
}

// raceStore rejects every insert the way the storage layer does when a
// concurrent sign-up already claimed the email's unique index.
type raceStore struct {
	*memStore
}

func (s *raceStore) Create(ctx context.Context, ident *Identity) error {
	return ErrEmailRegistered
}

// TestPurpose: Validates that the insert-time duplicate signal maps to the duplicate-email reason.
// Scope: Unit Test
// Security: A concurrent same-email sign-up must look like a duplicate, not an outage
// Expected: When the store's unique constraint fires after the existence check passed, SignUp reports ReasonEmailRegistered.
// Test Case ID: IDN-04
func TestIdentity_Service_SignUp_InsertRace(t *testing.T) {
	sessions := session.NewService(newMemSessionRepo(), 24*time.Hour, 30*time.Minute)
	s := NewService(&raceStore{newMemStore()}, NewPasswordHasher(65536, 3, 4, 16, 32), sessions, audit.NewSlogLogger())
	ctx := context.Background()

	_, err := s.SignUp(ctx, SignUpParams{Email: "dana@example.com", Password: "SecurePassword123"})
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if authErr.Reason != ReasonEmailRegistered {
		t.Errorf("expected reason %s, got %s", ReasonEmailRegistered, authErr.Reason)
	}
}

// Test Case ID: IDN-05
func TestIdentity_Service_SignUp_StoresNames(t *testing.T) {
	store := newMemStore()
	sessions := session.NewService(newMemSessionRepo(), 24*time.Hour, 30*time.Minute)
	s := NewService(store, NewPasswordHasher(65536, 3, 4, 16, 32), sessions, audit.NewSlogLogger())
	ctx := context.Background()

	id, err := s.SignUp(ctx, SignUpParams{
		Email:     "dana@example.com",
		Password:  "SecurePassword123",
		FirstName: "  Dana ",
		LastName:  "Reyes",
	})
	if err != nil {
		t.Fatalf("signup failed: %v", err)
	}

	ident, err := store.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if ident.FirstName != "Dana" || ident.LastName != "Reyes" {
		t.Errorf("names not persisted on identity: %+v", ident)
	}
}
