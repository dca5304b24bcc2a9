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
	"fmt"

	"github.com/careforms/careforms/internal/audit"
)

// Service provides team administration business logic.
type Service struct {
	repo        Repository
	auditLogger audit.Logger
}

// NewService creates a new member service.
func NewService(repo Repository, auditLogger audit.Logger) *Service {
	return &Service{
		repo:        repo,
		auditLogger: auditLogger,
	}
}

// Get retrieves a member by id.
func (s *Service) Get(ctx context.Context, memberID string) (*Member, error) {
	return s.repo.GetByID(ctx, memberID)
}

// ListTeam retrieves all members of a business for administrative display.
func (s *Service) ListTeam(ctx context.Context, actor *Member, businessID string) ([]*Member, error) {
	if err := RequireTeamManager(actor, businessID); err != nil {
		return nil, err
	}
	return s.repo.ListByBusiness(ctx, businessID)
}

// SetMemberActive activates or deactivates a member of the actor's
// business. Owners cannot be deactivated through this path.
func (s *Service) SetMemberActive(ctx context.Context, actor *Member, businessID, memberID string, active bool) error {
	if err := RequireTeamManager(actor, businessID); err != nil {
		return err
	}
	if actor.ID == memberID {
		return ErrUnauthorized
	}

	target, err := s.repo.GetByID(ctx, memberID)
	if err != nil {
		return err
	}
	if target.BusinessID == nil || *target.BusinessID != businessID {
		// Same answer as a missing member so ids cannot be probed
		// across businesses.
		return ErrMemberNotFound
	}
	if target.Role == RoleOwner {
		return ErrUnauthorized
	}

	if err := s.repo.SetActive(ctx, businessID, memberID, active); err != nil {
		return fmt.Errorf("failed to update member status: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:       audit.TypeMemberStatusChanged,
		BusinessID: businessID,
		ActorID:    actor.ID,
		Resource:   memberID,
		Metadata:   map[string]any{"active": active},
	})

	return nil
}
