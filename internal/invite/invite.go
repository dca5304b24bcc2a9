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

package invite

import (
	"context"
	"time"

	"github.com/careforms/careforms/internal/member"
)

// Kind discriminates the two credential realizations of an invitation.
type Kind string

const (
	// KindCode is the primary path: an 8-character human-shareable code,
	// optionally bound to an email.
	KindCode Kind = "code"

	// KindToken is the email-delivery path: an opaque high-entropy
	// credential bound to exactly one recipient, sent as a signed link.
	KindToken Kind = "token"
)

// Invitation is a pending, time-boxed grant of business membership at a
// specific role, redeemable once. Once consumed it is immutable.
type Invitation struct {
	ID         string
	BusinessID string
	Kind       Kind
	Credential string
	Role       member.Role
	BoundEmail string // empty = redeemable by anyone presenting the credential
	CreatedBy  string
	ExpiresAt  time.Time
	ConsumedAt *time.Time
	ConsumedBy string
	CreatedAt  time.Time
}

// Pending reports whether the invitation has not been consumed.
func (i *Invitation) Pending() bool {
	return i.ConsumedAt == nil
}

// ExpiredAt reports whether the invitation is expired at the given time.
// The boundary instant itself counts as expired.
func (i *Invitation) ExpiredAt(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}

// Usable reports whether the invitation can still be redeemed at the
// given time.
func (i *Invitation) Usable(now time.Time) bool {
	return i.Pending() && !i.ExpiredAt(now)
}

// Repository defines the interface for invitation persistence. Every
// operation carries its business scoping inside the query predicate, so
// no interleaving of requests can observe another business's rows.
type Repository interface {
	// Create persists a new pending invitation. The storage layer holds
	// a uniqueness constraint on the credential column and returns
	// ErrCredentialTaken when it fires.
	Create(ctx context.Context, inv *Invitation) error

	// GetByCredential retrieves an invitation by exact credential match.
	// Returns ErrNotFound when no row matches.
	GetByCredential(ctx context.Context, credential string) (*Invitation, error)

	// ListByBusiness retrieves a business's invitations, newest first.
	ListByBusiness(ctx context.Context, businessID string) ([]*Invitation, error)

	// MarkConsumed records consumption with a conditional update that
	// succeeds only while consumed_at is still null. Returns
	// ErrAlreadyUsed when the row exists but was consumed first, and
	// ErrNotFound when no row exists. This is the double-redemption
	// arbiter; callers must not pre-read and then write.
	MarkConsumed(ctx context.Context, invitationID, consumerID string) error

	// Delete removes an invitation iff it belongs to the given business.
	// Returns ErrNotFound otherwise, including when the id exists under
	// a different business.
	Delete(ctx context.Context, invitationID, businessID string) error
}
