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

package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/careforms/careforms/internal/identity"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// IdentityRepository implements identity.Store
type IdentityRepository struct {
	db *DB
}

// NewIdentityRepository creates a new identity repository
func NewIdentityRepository(db *DB) *IdentityRepository {
	return &IdentityRepository{db: db}
}

// Create creates a new identity. The unique index on LOWER(email) is
// what settles a concurrent same-email sign-up; a violation surfaces as
// ErrEmailRegistered so the caller can treat the loser as a duplicate
// rather than an infrastructure failure.
func (r *IdentityRepository) Create(ctx context.Context, ident *identity.Identity) error {
	now := time.Now()
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO identities (id, email, first_name, last_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
	`, ident.ID, ident.Email, ident.FirstName, ident.LastName, now)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return identity.ErrEmailRegistered
		}
		return fmt.Errorf("failed to insert identity: %w", err)
	}
	ident.CreatedAt = now
	ident.UpdatedAt = now
	return nil
}

// GetByEmail retrieves an identity by email, case-insensitively
func (r *IdentityRepository) GetByEmail(ctx context.Context, email string) (*identity.Identity, error) {
	var ident identity.Identity
	err := r.db.pool.QueryRow(ctx, `
		SELECT id, email, first_name, last_name, created_at, updated_at
		FROM identities
		WHERE LOWER(email) = LOWER($1)
	`, email).Scan(&ident.ID, &ident.Email, &ident.FirstName, &ident.LastName, &ident.CreatedAt, &ident.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, identity.ErrIdentityNotFound
		}
		return nil, fmt.Errorf("failed to get identity: %w", err)
	}
	return &ident, nil
}

// GetByID retrieves an identity by id
func (r *IdentityRepository) GetByID(ctx context.Context, id string) (*identity.Identity, error) {
	var ident identity.Identity
	err := r.db.pool.QueryRow(ctx, `
		SELECT id, email, first_name, last_name, created_at, updated_at
		FROM identities
		WHERE id = $1
	`, id).Scan(&ident.ID, &ident.Email, &ident.FirstName, &ident.LastName, &ident.CreatedAt, &ident.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, identity.ErrIdentityNotFound
		}
		return nil, fmt.Errorf("failed to get identity: %w", err)
	}
	return &ident, nil
}

// AddCredentials adds credentials for an identity
func (r *IdentityRepository) AddCredentials(ctx context.Context, creds *identity.Credentials) error {
	now := time.Now()
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO credentials (identity_id, password_hash, updated_at)
		VALUES ($1, $2, $3)
	`, creds.IdentityID, creds.PasswordHash, now)
	if err != nil {
		return fmt.Errorf("failed to insert credentials: %w", err)
	}
	creds.UpdatedAt = now
	return nil
}

// GetCredentials retrieves an identity's credentials
func (r *IdentityRepository) GetCredentials(ctx context.Context, identityID string) (*identity.Credentials, error) {
	var creds identity.Credentials
	err := r.db.pool.QueryRow(ctx, `
		SELECT identity_id, password_hash, updated_at
		FROM credentials
		WHERE identity_id = $1
	`, identityID).Scan(&creds.IdentityID, &creds.PasswordHash, &creds.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, identity.ErrIdentityNotFound
		}
		return nil, fmt.Errorf("failed to get credentials: %w", err)
	}
	return &creds, nil
}
