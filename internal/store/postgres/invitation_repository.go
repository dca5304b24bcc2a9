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
	"database/sql"
	"errors"
	"time"

	"github.com/careforms/careforms/internal/invite"
	"github.com/careforms/careforms/internal/member"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// InvitationRepository implements invite.Repository. Every query carries
// its business scoping in the predicate itself, and infrastructure
// failures are wrapped as transient so callers can distinguish them from
// terminal validation errors.
type InvitationRepository struct {
	db *DB
}

// NewInvitationRepository creates a new invitation repository
func NewInvitationRepository(db *DB) *InvitationRepository {
	return &InvitationRepository{db: db}
}

// Create persists a new pending invitation. The unique index on the
// credential column settles concurrent creates; a violation surfaces as
// ErrCredentialTaken for the generator's retry loop.
func (r *InvitationRepository) Create(ctx context.Context, inv *invite.Invitation) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO user_invitations (
			id, business_id, kind, credential, role, bound_email,
			created_by, expires_at, consumed_at, consumed_by, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULL, NULL, $9)
	`,
		inv.ID, inv.BusinessID, string(inv.Kind), inv.Credential, string(inv.Role),
		inv.BoundEmail, inv.CreatedBy, inv.ExpiresAt, inv.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return invite.ErrCredentialTaken
		}
		return invite.Transient("insert invitation", err)
	}
	return nil
}

// GetByCredential retrieves an invitation by exact credential match
func (r *InvitationRepository) GetByCredential(ctx context.Context, credential string) (*invite.Invitation, error) {
	row := r.db.pool.QueryRow(ctx, `
		SELECT id, business_id, kind, credential, role, bound_email,
			created_by, expires_at, consumed_at, consumed_by, created_at
		FROM user_invitations
		WHERE credential = $1
	`, credential)

	inv, err := scanInvitation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, invite.ErrNotFound
		}
		return nil, invite.Transient("get invitation", err)
	}
	return inv, nil
}

// ListByBusiness retrieves a business's invitations, newest first
func (r *InvitationRepository) ListByBusiness(ctx context.Context, businessID string) ([]*invite.Invitation, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT id, business_id, kind, credential, role, bound_email,
			created_by, expires_at, consumed_at, consumed_by, created_at
		FROM user_invitations
		WHERE business_id = $1
		ORDER BY created_at DESC
	`, businessID)
	if err != nil {
		return nil, invite.Transient("list invitations", err)
	}
	defer rows.Close()

	var list []*invite.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, invite.Transient("scan invitation", err)
		}
		list = append(list, inv)
	}
	return list, rows.Err()
}

// MarkConsumed records consumption with a conditional update: the write
// succeeds only while consumed_at is still null, which makes it the
// arbiter of concurrent redemptions. A read-then-write here would race.
func (r *InvitationRepository) MarkConsumed(ctx context.Context, invitationID, consumerID string) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE user_invitations SET consumed_at = $2, consumed_by = $3
		WHERE id = $1 AND consumed_at IS NULL
	`, invitationID, time.Now(), consumerID)
	if err != nil {
		return invite.Transient("mark invitation consumed", err)
	}

	if result.RowsAffected() == 0 {
		// Distinguish "consumed first" from "no such invitation".
		var exists bool
		if err := r.db.pool.QueryRow(ctx, `
			SELECT EXISTS (SELECT 1 FROM user_invitations WHERE id = $1)
		`, invitationID).Scan(&exists); err != nil {
			return invite.Transient("check invitation", err)
		}
		if exists {
			return invite.ErrAlreadyUsed
		}
		return invite.ErrNotFound
	}
	return nil
}

// Delete removes an invitation iff it belongs to the given business.
// Guessed ids from other businesses get the same ErrNotFound as
// nonexistent ones.
func (r *InvitationRepository) Delete(ctx context.Context, invitationID, businessID string) error {
	result, err := r.db.pool.Exec(ctx, `
		DELETE FROM user_invitations
		WHERE id = $1 AND business_id = $2
	`, invitationID, businessID)
	if err != nil {
		return invite.Transient("delete invitation", err)
	}
	if result.RowsAffected() == 0 {
		return invite.ErrNotFound
	}
	return nil
}

// DeleteExpiredBefore removes expired, unconsumed invitations older than
// the cutoff. Used by the maintenance sweep, not the request path.
func (r *InvitationRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.pool.Exec(ctx, `
		DELETE FROM user_invitations
		WHERE consumed_at IS NULL AND expires_at < $1
	`, cutoff)
	if err != nil {
		return 0, invite.Transient("delete expired invitations", err)
	}
	return result.RowsAffected(), nil
}

func scanInvitation(row pgx.Row) (*invite.Invitation, error) {
	var inv invite.Invitation
	var kind, role string
	var consumedAt sql.NullTime
	var consumedBy *string

	if err := row.Scan(
		&inv.ID, &inv.BusinessID, &kind, &inv.Credential, &role, &inv.BoundEmail,
		&inv.CreatedBy, &inv.ExpiresAt, &consumedAt, &consumedBy, &inv.CreatedAt,
	); err != nil {
		return nil, err
	}

	inv.Kind = invite.Kind(kind)
	inv.Role = member.Role(role)
	if consumedAt.Valid {
		inv.ConsumedAt = &consumedAt.Time
	}
	if consumedBy != nil {
		inv.ConsumedBy = *consumedBy
	}
	return &inv, nil
}
