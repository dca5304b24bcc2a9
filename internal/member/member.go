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

package member

import (
	"context"
	"errors"
	"time"
)

// Domain errors
var (
	ErrMemberNotFound = errors.New("member not found")
	ErrEmailTaken     = errors.New("email already belongs to a member")
	ErrUnauthorized   = errors.New("member is not authorized for this operation")
)

// Member is a user account bound to exactly one business with a role.
// The ID is shared with the identity-provider subject id. BusinessID is
// nil until the account has been onboarded into a business; once set it
// never changes through the invitation path.
type Member struct {
	ID         string
	Email      string
	BusinessID *string
	Role       Role
	FirstName  string
	LastName   string
	Active     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// BelongsTo reports whether the member is an active member of the given
// business.
func (m *Member) BelongsTo(businessID string) bool {
	return m != nil && m.Active && m.BusinessID != nil && *m.BusinessID == businessID
}

// Repository defines the interface for member persistence. Email is a
// cross-business identity key: lookups by email are global and
// case-insensitive, backed by a uniqueness constraint.
type Repository interface {
	// Upsert inserts the member or, if a row with the same id exists,
	// updates it in place. Redemption retries rely on this being
	// idempotent.
	Upsert(ctx context.Context, m *Member) error

	// GetByID retrieves a member by id.
	GetByID(ctx context.Context, id string) (*Member, error)

	// GetByEmail retrieves a member by email across all businesses.
	GetByEmail(ctx context.Context, email string) (*Member, error)

	// ListByBusiness retrieves all members of a business, newest first.
	ListByBusiness(ctx context.Context, businessID string) ([]*Member, error)

	// SetActive toggles a member's active flag. The business id is part
	// of the predicate so one business cannot touch another's members.
	SetActive(ctx context.Context, businessID, memberID string, active bool) error
}
