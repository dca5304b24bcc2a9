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
	"fmt"
	"strings"

	"github.com/careforms/careforms/internal/audit"
	"github.com/careforms/careforms/internal/id"
	"github.com/careforms/careforms/internal/session"
)

// Service is the default identity provider implementation backed by the
// relational store. It satisfies Provider for the access provisioner and
// additionally serves sign-in and current-caller resolution for the
// transport layer.
type Service struct {
	store       Store
	hasher      *PasswordHasher
	sessions    *session.Service
	auditLogger audit.Logger
}

// NewService creates a new identity service.
func NewService(store Store, hasher *PasswordHasher, sessions *session.Service, auditLogger audit.Logger) *Service {
	return &Service{
		store:       store,
		hasher:      hasher,
		sessions:    sessions,
		auditLogger: auditLogger,
	}
}

// SignUp creates a new identity with credentials. Duplicate email, weak
// password, and malformed email are reported as *AuthError with the
// reason preserved.
func (s *Service) SignUp(ctx context.Context, p SignUpParams) (string, error) {
	email := strings.ToLower(strings.TrimSpace(p.Email))
	if !isPlausibleEmail(email) {
		return "", &AuthError{Reason: ReasonInvalidEmail}
	}
	if len(p.Password) < 8 {
		return "", &AuthError{Reason: ReasonWeakPassword}
	}

	if _, err := s.store.GetByEmail(ctx, email); err == nil {
		return "", &AuthError{Reason: ReasonEmailRegistered}
	} else if !errors.Is(err, ErrIdentityNotFound) {
		return "", fmt.Errorf("failed to check existing identity: %w", err)
	}

	ident := &Identity{
		ID:        id.NewUUIDv7(),
		Email:     email,
		FirstName: strings.TrimSpace(p.FirstName),
		LastName:  strings.TrimSpace(p.LastName),
	}
	if err := s.store.Create(ctx, ident); err != nil {
		// The existence check above is read then write; the store's
		// unique constraint decides a concurrent same-email sign-up.
		if errors.Is(err, ErrEmailRegistered) {
			return "", &AuthError{Reason: ReasonEmailRegistered, Err: err}
		}
		return "", fmt.Errorf("failed to create identity: %w", err)
	}

	hash, err := s.hasher.Hash(p.Password)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.store.AddCredentials(ctx, &Credentials{
		IdentityID:   ident.ID,
		PasswordHash: hash,
	}); err != nil {
		return "", fmt.Errorf("failed to store credentials: %w", err)
	}

	return ident.ID, nil
}

// Lookup returns the identity id registered for an email.
func (s *Service) Lookup(ctx context.Context, email string) (string, error) {
	ident, err := s.store.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return "", err
	}
	return ident.ID, nil
}

// SignIn authenticates an identity and opens a session.
func (s *Service) SignIn(ctx context.Context, email, password, ipAddress, userAgent string) (*session.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	ident, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		s.auditLogger.Log(ctx, audit.Event{
			Type:      audit.TypeLoginFailed,
			Resource:  email,
			IPAddress: ipAddress,
			Metadata:  map[string]any{audit.AttrReason: "identity_not_found"},
		})
		return nil, &AuthError{Reason: ReasonInvalidCredentials}
	}

	creds, err := s.store.GetCredentials(ctx, ident.ID)
	if err != nil {
		return nil, &AuthError{Reason: ReasonInvalidCredentials}
	}

	ok, err := s.hasher.Verify(password, creds.PasswordHash)
	if err != nil || !ok {
		s.auditLogger.Log(ctx, audit.Event{
			Type:      audit.TypeLoginFailed,
			ActorID:   ident.ID,
			Resource:  "login",
			IPAddress: ipAddress,
			Metadata:  map[string]any{audit.AttrReason: "invalid_password"},
		})
		return nil, &AuthError{Reason: ReasonInvalidCredentials}
	}

	sess, err := s.sessions.Create(ctx, ident.ID, ipAddress, userAgent)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:      audit.TypeLoginSuccess,
		ActorID:   ident.ID,
		Resource:  "login",
		IPAddress: ipAddress,
	})

	return sess, nil
}

// SignOut closes a session.
func (s *Service) SignOut(ctx context.Context, sessionID string) error {
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return err
	}
	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeLogout,
		Resource: "logout",
	})
	return nil
}

// CurrentCaller resolves a session id to the authenticated identity.
func (s *Service) CurrentCaller(ctx context.Context, sessionID string) (*Caller, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	ident, err := s.store.GetByID(ctx, sess.IdentityID)
	if err != nil {
		return nil, err
	}
	return &Caller{IdentityID: ident.ID, Email: ident.Email}, nil
}

// isPlausibleEmail applies the same minimal shape check the sign-up
// forms enforce; real verification happens by delivering mail.
func isPlausibleEmail(email string) bool {
	at := strings.IndexByte(email, '@')
	return at > 0 && at < len(email)-1 && len(email) < 255
}
