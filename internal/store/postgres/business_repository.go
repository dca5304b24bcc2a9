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

	"github.com/careforms/careforms/internal/business"
	"github.com/jackc/pgx/v5"
)

// BusinessRepository implements business.Repository
type BusinessRepository struct {
	db *DB
}

// NewBusinessRepository creates a new business repository
func NewBusinessRepository(db *DB) *BusinessRepository {
	return &BusinessRepository{db: db}
}

// Create creates a new business
func (r *BusinessRepository) Create(ctx context.Context, b *business.Business) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO businesses (id, name, contact_email, contact_phone, subscription_tier, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, b.ID, b.Name, b.ContactEmail, b.ContactPhone, b.Tier, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert business: %w", err)
	}
	return nil
}

// GetByID retrieves a business by id
func (r *BusinessRepository) GetByID(ctx context.Context, id string) (*business.Business, error) {
	var b business.Business
	err := r.db.pool.QueryRow(ctx, `
		SELECT id, name, contact_email, contact_phone, subscription_tier, created_at, updated_at
		FROM businesses
		WHERE id = $1
	`, id).Scan(&b.ID, &b.Name, &b.ContactEmail, &b.ContactPhone, &b.Tier, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, business.ErrBusinessNotFound
		}
		return nil, fmt.Errorf("failed to get business: %w", err)
	}
	return &b, nil
}

// Update updates mutable business details
func (r *BusinessRepository) Update(ctx context.Context, b *business.Business) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE businesses SET
			name = $2,
			contact_email = $3,
			contact_phone = $4,
			subscription_tier = $5,
			updated_at = $6
		WHERE id = $1
	`, b.ID, b.Name, b.ContactEmail, b.ContactPhone, b.Tier, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update business: %w", err)
	}
	if result.RowsAffected() == 0 {
		return business.ErrBusinessNotFound
	}
	return nil
}

// List lists businesses with pagination
func (r *BusinessRepository) List(ctx context.Context, limit, offset int) ([]*business.Business, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT id, name, contact_email, contact_phone, subscription_tier, created_at, updated_at
		FROM businesses
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list businesses: %w", err)
	}
	defer rows.Close()

	var list []*business.Business
	for rows.Next() {
		var b business.Business
		if err := rows.Scan(&b.ID, &b.Name, &b.ContactEmail, &b.ContactPhone, &b.Tier, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan business: %w", err)
		}
		list = append(list, &b)
	}
	return list, rows.Err()
}
