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
	"time"
)

// Domain errors
var (
	ErrIdentityNotFound = errors.New("identity not found")

	// ErrEmailRegistered is returned by Store.Create when the email's
	// unique index fires. The pre-insert existence check is read then
	// write; this constraint is what actually settles a concurrent
	// same-email sign-up.
	ErrEmailRegistered = errors.New("email already registered")
)

// AuthError reason codes
const (
	ReasonEmailRegistered    = "email_already_registered"
	ReasonWeakPassword       = "weak_password"
	ReasonInvalidEmail       = "invalid_email"
	ReasonInvalidCredentials = "invalid_credentials"
)

// AuthError is an identity-provider failure surfaced with its reason
// intact so callers can display or branch on it.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth error (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("auth error (%s)", e.Reason)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Identity is an account at the identity provider, keyed by email.
// Business membership lives elsewhere; an identity may exist with no
// membership (the recognized partial-provisioning state).
type Identity struct {
	ID        string
	Email     string
	FirstName string
	LastName  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Credentials holds an identity's password hash.
type Credentials struct {
	IdentityID   string
	PasswordHash string
	UpdatedAt    time.Time
}

// SignUpParams carries the recipient details for account creation.
type SignUpParams struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Caller is the currently authenticated identity.
type Caller struct {
	IdentityID string
	Email      string
}

// Provider is the identity-provider boundary consumed by the access
// provisioner. Implementations are treated as opaque remote services;
// failures surface as *AuthError.
type Provider interface {
	// SignUp creates a new identity with credentials and returns its id.
	SignUp(ctx context.Context, p SignUpParams) (string, error)

	// Lookup returns the id of an existing identity by email, or
	// ErrIdentityNotFound. Used to repair partially provisioned
	// redemptions without creating a duplicate identity.
	Lookup(ctx context.Context, email string) (string, error)
}

// Store defines the interface for identity persistence.
type Store interface {
	// Create creates a new identity
	Create(ctx context.Context, ident *Identity) error

	// GetByEmail retrieves an identity by email, case-insensitively
	GetByEmail(ctx context.Context, email string) (*Identity, error)

	// GetByID retrieves an identity by id
	GetByID(ctx context.Context, id string) (*Identity, error)

	// AddCredentials adds credentials for an identity
	AddCredentials(ctx context.Context, creds *Credentials) error

	// GetCredentials retrieves an identity's credentials
	GetCredentials(ctx context.Context, identityID string) (*Credentials, error)
}
