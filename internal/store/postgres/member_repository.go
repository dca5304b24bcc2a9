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

	"github.com/careforms/careforms/internal/member"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolation is the PostgreSQL error code for unique constraint
// violations.
const uniqueViolation = "23505"

// MemberRepository implements member.Repository
type MemberRepository struct {
	db *DB
}

// NewMemberRepository creates a new member repository
func NewMemberRepository(db *DB) *MemberRepository {
	return &MemberRepository{db: db}
}

// Upsert inserts the member or updates the row with the same id. The
// conflict target is the primary key, which makes redemption retries
// idempotent: a second attempt with the same identity id lands on the
// same row.
func (r *MemberRepository) Upsert(ctx context.Context, m *member.Member) error {
	now := time.Now()
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO users (id, email, business_id, role, first_name, last_name, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			business_id = EXCLUDED.business_id,
			role = EXCLUDED.role,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at
	`, m.ID, m.Email, m.BusinessID, string(m.Role), m.FirstName, m.LastName, m.Active, now)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			// users_email_key: same email under a different id.
			return member.ErrEmailTaken
		}
		return fmt.Errorf("failed to upsert member: %w", err)
	}

	m.UpdatedAt = now
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	return nil
}

// GetByID retrieves a member by id
func (r *MemberRepository) GetByID(ctx context.Context, id string) (*member.Member, error) {
	return r.scanOne(ctx, `
		SELECT id, email, business_id, role, first_name, last_name, is_active, created_at, updated_at
		FROM users
		WHERE id = $1
	`, id)
}

// GetByEmail retrieves a member by email across all businesses,
// case-insensitively.
func (r *MemberRepository) GetByEmail(ctx context.Context, email string) (*member.Member, error) {
	return r.scanOne(ctx, `
		SELECT id, email, business_id, role, first_name, last_name, is_active, created_at, updated_at
		FROM users
		WHERE LOWER(email) = LOWER($1)
	`, email)
}

// ListByBusiness retrieves all members of a business, newest first
func (r *MemberRepository) ListByBusiness(ctx context.Context, businessID string) ([]*member.Member, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT id, email, business_id, role, first_name, last_name, is_active, created_at, updated_at
		FROM users
		WHERE business_id = $1
		ORDER BY created_at DESC
	`, businessID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var list []*member.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// SetActive toggles a member's active flag. The business id is part of
// the predicate so one business cannot touch another's members.
func (r *MemberRepository) SetActive(ctx context.Context, businessID, memberID string, active bool) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE users SET is_active = $3, updated_at = $4
		WHERE id = $1 AND business_id = $2
	`, memberID, businessID, active, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update member status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return member.ErrMemberNotFound
	}
	return nil
}

func (r *MemberRepository) scanOne(ctx context.Context, query string, arg any) (*member.Member, error) {
	row := r.db.pool.QueryRow(ctx, query, arg)
	m, err := scanMember(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, member.ErrMemberNotFound
		}
		return nil, err
	}
	return m, nil
}

func scanMember(row pgx.Row) (*member.Member, error) {
	var m member.Member
	var role string
	if err := row.Scan(&m.ID, &m.Email, &m.BusinessID, &role, &m.FirstName, &m.LastName, &m.Active, &m.CreatedAt, &m.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan member: %w", err)
	}
	m.Role = member.Role(role)
	return &m, nil
}
