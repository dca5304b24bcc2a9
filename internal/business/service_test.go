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
	"testing"

	"github.com/careforms/careforms/internal/audit"
	"github.com/careforms/careforms/internal/member"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockBusinessRepo struct {
	mock.Mock
}

func (m *mockBusinessRepo) Create(ctx context.Context, b *Business) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *mockBusinessRepo) GetByID(ctx context.Context, id string) (*Business, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Business), args.Error(1)
}

func (m *mockBusinessRepo) Update(ctx context.Context, b *Business) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *mockBusinessRepo) List(ctx context.Context, limit, offset int) ([]*Business, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Business), args.Error(1)
}

type mockMemberRepo struct {
	mock.Mock
}

func (m *mockMemberRepo) Upsert(ctx context.Context, mem *member.Member) error {
	args := m.Called(ctx, mem)
	return args.Error(0)
}

func (m *mockMemberRepo) GetByID(ctx context.Context, id string) (*member.Member, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*member.Member), args.Error(1)
}

func (m *mockMemberRepo) GetByEmail(ctx context.Context, email string) (*member.Member, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*member.Member), args.Error(1)
}

func (m *mockMemberRepo) ListByBusiness(ctx context.Context, businessID string) ([]*member.Member, error) {
	args := m.Called(ctx, businessID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*member.Member), args.Error(1)
}

func (m *mockMemberRepo) SetActive(ctx context.Context, businessID, memberID string, active bool) error {
	args := m.Called(ctx, businessID, memberID, active)
	return args.Error(0)
}

type mockAudit struct {
	mock.Mock
}

func (m *mockAudit) Log(ctx context.Context, event audit.Event) {
	m.Called(ctx, event)
}

// TestPurpose: Validates business onboarding: UUIDv7 id, default tier, and owner-role seeding for the first member.
// Scope: Unit Test
// Security: The owner role is granted only here, never via invitation
// Expected: Business persisted with a v7 id and the seed identity written as an active owner.
// Test Case ID: BIZ-01
func TestBusiness_Service_Create_SeedsOwner(t *testing.T) {
	repo := new(mockBusinessRepo)
	members := new(mockMemberRepo)
	auditLogger := new(mockAudit)
	s := NewService(repo, members, auditLogger)
	ctx := context.Background()

	repo.On("Create", ctx, mock.MatchedBy(func(b *Business) bool {
		uid, err := uuid.Parse(b.ID)
		return err == nil && uid.Version() == 7 && b.Name == "Sunrise Clinic" && b.Tier == TierStandard
	})).Return(nil)
	members.On("Upsert", ctx, mock.MatchedBy(func(m *member.Member) bool {
		return m.ID == "id-1" &&
			m.Role == member.RoleOwner &&
			m.Active &&
			m.Email == "owner@example.com" &&
			m.BusinessID != nil
	})).Return(nil)
	auditLogger.On("Log", ctx, mock.MatchedBy(func(e audit.Event) bool {
		return e.Type == audit.TypeBusinessCreated
	})).Return()

	biz, owner, err := s.Create(ctx, "Sunrise Clinic", "owner@example.com", "", OwnerSeed{
		IdentityID: "id-1",
		Email:      "Owner@Example.com",
		FirstName:  "Sam",
		LastName:   "Field",
	})
	require.NoError(t, err)
	assert.Equal(t, biz.ID, *owner.BusinessID)

	repo.AssertExpectations(t)
	members.AssertExpectations(t)
	auditLogger.AssertExpectations(t)
}

// Test Case ID: BIZ-02
func TestBusiness_Service_Create_Validation(t *testing.T) {
	s := NewService(new(mockBusinessRepo), new(mockMemberRepo), new(mockAudit))
	ctx := context.Background()

	_, _, err := s.Create(ctx, "  ", "x@example.com", "", OwnerSeed{IdentityID: "id-1", Email: "x@example.com"})
	assert.Error(t, err)

	_, _, err = s.Create(ctx, "Clinic", "x@example.com", "", OwnerSeed{})
	assert.Error(t, err)
}

// Test Case ID: BIZ-03
func TestBusiness_Service_UpdateDetails_Guarded(t *testing.T) {
	repo := new(mockBusinessRepo)
	s := NewService(repo, new(mockMemberRepo), new(mockAudit))
	ctx := context.Background()

	biz := "biz-1"
	b := &Business{ID: biz, Name: "Clinic"}

	staff := &member.Member{ID: "s", BusinessID: &biz, Role: member.RoleStaff, Active: true}
	err := s.UpdateDetails(ctx, staff, b)
	assert.ErrorIs(t, err, member.ErrUnauthorized)

	owner := &member.Member{ID: "o", BusinessID: &biz, Role: member.RoleOwner, Active: true}
	repo.On("Update", ctx, b).Return(nil)
	err = s.UpdateDetails(ctx, owner, b)
	assert.NoError(t, err)
}

// Test Case ID: BIZ-04
func TestBusiness_Service_List_ClampsPaging(t *testing.T) {
	repo := new(mockBusinessRepo)
	s := NewService(repo, new(mockMemberRepo), new(mockAudit))
	ctx := context.Background()

	repo.On("List", ctx, 50, 0).Return([]*Business{}, nil).Twice()
	repo.On("List", ctx, 10, 5).Return([]*Business{{ID: "biz-1"}}, nil).Once()

	_, err := s.List(ctx, 0, -3)
	assert.NoError(t, err)
	_, err = s.List(ctx, 500, 0)
	assert.NoError(t, err)

	out, err := s.List(ctx, 10, 5)
	require.NoError(t, err)
	assert.Len(t, out, 1)

	repo.AssertExpectations(t)
}
