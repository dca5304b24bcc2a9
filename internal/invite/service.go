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
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/careforms/careforms/internal/audit"
	"github.com/careforms/careforms/internal/id"
	"github.com/careforms/careforms/internal/member"
)

const (
	// DefaultExpiryDays applies when the caller does not choose a window.
	DefaultExpiryDays = 7

	// Expiry is configurable within these bounds for every kind; an
	// invitation is never created already expired.
	MinExpiryDays = 1
	MaxExpiryDays = 30

	// maxGenerationAttempts bounds the collision retry loop. The storage
	// uniqueness constraint remains the actual guarantee; the pre-check
	// is an optimization.
	maxGenerationAttempts = 10
)

// Service issues, lists, and revokes invitations. Every mutating
// operation runs the capability check first; the repository's own
// business-id predicates act as a second independent check.
type Service struct {
	repo        Repository
	auditLogger audit.Logger
	now         func() time.Time
}

// NewService creates a new invitation service.
func NewService(repo Repository, auditLogger audit.Logger) *Service {
	return &Service{
		repo:        repo,
		auditLogger: auditLogger,
		now:         time.Now,
	}
}

// CreateParams describes a new invitation.
type CreateParams struct {
	BusinessID string
	Kind       Kind
	Role       member.Role
	BoundEmail string
	ExpiryDays int // 0 = default window
}

// Create issues a new pending invitation on behalf of actor. The target
// role is restricted to manager and staff regardless of the actor's own
// role; an invitation can never grant ownership.
func (s *Service) Create(ctx context.Context, actor *member.Member, p CreateParams) (*Invitation, error) {
	if err := member.RequireInviter(actor, p.BusinessID); err != nil {
		return nil, err
	}

	if p.Role != member.RoleManager && p.Role != member.RoleStaff {
		return nil, ErrRoleNotInvitable
	}
	if !actor.Role.CanIssueRole(p.Role) {
		return nil, member.ErrUnauthorized
	}

	switch p.Kind {
	case KindCode:
	case KindToken:
		if p.BoundEmail == "" {
			return nil, fmt.Errorf("token invitations require a recipient email")
		}
	default:
		return nil, fmt.Errorf("unknown invitation kind %q", p.Kind)
	}

	expiryDays := p.ExpiryDays
	if expiryDays == 0 {
		expiryDays = DefaultExpiryDays
	}
	if expiryDays < MinExpiryDays || expiryDays > MaxExpiryDays {
		return nil, ErrInvalidExpiry
	}

	now := s.now()
	inv := &Invitation{
		ID:         id.NewUUIDv7(),
		BusinessID: p.BusinessID,
		Kind:       p.Kind,
		Role:       p.Role,
		BoundEmail: strings.ToLower(strings.TrimSpace(p.BoundEmail)),
		CreatedBy:  actor.ID,
		ExpiresAt:  now.Add(time.Duration(expiryDays) * 24 * time.Hour),
		CreatedAt:  now,
	}

	if err := s.persistWithFreshCredential(ctx, inv); err != nil {
		return nil, err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:       audit.TypeInviteCreated,
		BusinessID: inv.BusinessID,
		ActorID:    actor.ID,
		Resource:   inv.ID,
		Metadata: map[string]any{
			audit.AttrKind: string(inv.Kind),
			audit.AttrRole: string(inv.Role),
		},
	})

	return inv, nil
}

// persistWithFreshCredential generates a credential and stores the
// invitation, retrying on collision up to the attempt bound. An existing
// row is probed first as an optimization; the unique constraint settles
// concurrent creates.
func (s *Service) persistWithFreshCredential(ctx context.Context, inv *Invitation) error {
	for attempt := 0; attempt < maxGenerationAttempts; attempt++ {
		var err error
		switch inv.Kind {
		case KindCode:
			inv.Credential, err = GenerateShortCode()
		default:
			inv.Credential, err = GenerateToken()
		}
		if err != nil {
			return err
		}

		if _, err := s.repo.GetByCredential(ctx, inv.Credential); err == nil {
			continue
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}

		err = s.repo.Create(ctx, inv)
		if errors.Is(err, ErrCredentialTaken) {
			continue
		}
		return err
	}
	return ErrGenerationExhausted
}

// ListByBusiness retrieves a business's invitations for administrative
// display, newest first.
func (s *Service) ListByBusiness(ctx context.Context, actor *member.Member, businessID string) ([]*Invitation, error) {
	if err := member.RequireTeamManager(actor, businessID); err != nil {
		return nil, err
	}
	return s.repo.ListByBusiness(ctx, businessID)
}

// Revoke deletes a pending invitation. The delete is scoped by business
// id, so guessing an invitation id from another business yields the same
// ErrNotFound as a nonexistent one.
func (s *Service) Revoke(ctx context.Context, actor *member.Member, businessID, invitationID string) error {
	if err := member.RequireInviter(actor, businessID); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, invitationID, businessID); err != nil {
		return err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:       audit.TypeInviteRevoked,
		BusinessID: businessID,
		ActorID:    actor.ID,
		Resource:   invitationID,
	})

	return nil
}
