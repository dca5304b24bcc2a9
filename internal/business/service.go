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

package business

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/careforms/careforms/internal/audit"
	"github.com/careforms/careforms/internal/id"
	"github.com/careforms/careforms/internal/member"
)

// Service provides business onboarding and management logic.
type Service struct {
	repo        Repository
	members     member.Repository
	auditLogger audit.Logger
}

// NewService creates a new business service
func NewService(repo Repository, members member.Repository, auditLogger audit.Logger) *Service {
	return &Service{
		repo:        repo,
		members:     members,
		auditLogger: auditLogger,
	}
}

// OwnerSeed identifies the already-created identity that becomes the
// first owner of a new business.
type OwnerSeed struct {
	IdentityID string
	Email      string
	FirstName  string
	LastName   string
}

// Create provisions a new business with its first owner member. This is
// the only path that grants the owner role.
func (s *Service) Create(ctx context.Context, name, contactEmail, tier string, owner OwnerSeed) (*Business, *member.Member, error) {
	if strings.TrimSpace(name) == "" {
		return nil, nil, fmt.Errorf("business name is required")
	}
	if owner.IdentityID == "" || owner.Email == "" {
		return nil, nil, fmt.Errorf("business owner is required")
	}
	if tier == "" {
		tier = TierStandard
	}

	now := time.Now()
	b := &Business{
		ID:           id.NewUUIDv7(),
		Name:         name,
		ContactEmail: contactEmail,
		Tier:         tier,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, b); err != nil {
		return nil, nil, fmt.Errorf("failed to create business: %w", err)
	}

	m := &member.Member{
		ID:         owner.IdentityID,
		Email:      strings.ToLower(owner.Email),
		BusinessID: &b.ID,
		Role:       member.RoleOwner,
		FirstName:  owner.FirstName,
		LastName:   owner.LastName,
		Active:     true,
	}
	if err := s.members.Upsert(ctx, m); err != nil {
		return nil, nil, fmt.Errorf("failed to provision owner: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:       audit.TypeBusinessCreated,
		BusinessID: b.ID,
		ActorID:    owner.IdentityID,
		Resource:   b.Name,
	})

	return b, m, nil
}

// Get retrieves a business by id
func (s *Service) Get(ctx context.Context, businessID string) (*Business, error) {
	return s.repo.GetByID(ctx, businessID)
}

// List pages through businesses, newest first. Operator tooling only;
// nothing member-facing exposes it.
func (s *Service) List(ctx context.Context, limit, offset int) ([]*Business, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, limit, offset)
}

// UpdateDetails updates a business's mutable fields. Only team managers
// of the business may do so.
func (s *Service) UpdateDetails(ctx context.Context, actor *member.Member, b *Business) error {
	if err := member.RequireTeamManager(actor, b.ID); err != nil {
		return err
	}
	b.UpdatedAt = time.Now()
	return s.repo.Update(ctx, b)
}
