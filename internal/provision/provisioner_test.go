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

package provision

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/careforms/careforms/internal/audit"
	"github.com/careforms/careforms/internal/identity"
	"github.com/careforms/careforms/internal/invite"
	"github.com/careforms/careforms/internal/member"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockInviteRepo struct {
	mock.Mock
}

func (m *mockInviteRepo) Create(ctx context.Context, inv *invite.Invitation) error {
	args := m.Called(ctx, inv)
	return args.Error(0)
}

func (m *mockInviteRepo) GetByCredential(ctx context.Context, credential string) (*invite.Invitation, error) {
	args := m.Called(ctx, credential)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invite.Invitation), args.Error(1)
}

func (m *mockInviteRepo) ListByBusiness(ctx context.Context, businessID string) ([]*invite.Invitation, error) {
	args := m.Called(ctx, businessID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*invite.Invitation), args.Error(1)
}

func (m *mockInviteRepo) MarkConsumed(ctx context.Context, invitationID, consumerID string) error {
	args := m.Called(ctx, invitationID, consumerID)
	return args.Error(0)
}

func (m *mockInviteRepo) Delete(ctx context.Context, invitationID, businessID string) error {
	args := m.Called(ctx, invitationID, businessID)
	return args.Error(0)
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

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) SignUp(ctx context.Context, p identity.SignUpParams) (string, error) {
	args := m.Called(ctx, p)
	return args.String(0), args.Error(1)
}

func (m *mockProvider) Lookup(ctx context.Context, email string) (string, error) {
	args := m.Called(ctx, email)
	return args.String(0), args.Error(1)
}

type mockAudit struct {
	mock.Mock
}

func (m *mockAudit) Log(ctx context.Context, event audit.Event) {
	m.Called(ctx, event)
}

type fixture struct {
	invites     *mockInviteRepo
	members     *mockMemberRepo
	idp         *mockProvider
	auditLogger *mockAudit
	p           *Provisioner
}

func newFixture() *fixture {
	invites := new(mockInviteRepo)
	members := new(mockMemberRepo)
	idp := new(mockProvider)
	auditLogger := new(mockAudit)
	validator := invite.NewValidator(invites, nil)
	return &fixture{
		invites:     invites,
		members:     members,
		idp:         idp,
		auditLogger: auditLogger,
		p:           NewProvisioner(validator, invites, members, idp, auditLogger),
	}
}

func staffCodeInvitation(credential, boundEmail string) *invite.Invitation {
	return &invite.Invitation{
		ID:         "inv-1",
		BusinessID: "biz-1",
		Kind:       invite.KindCode,
		Credential: credential,
		Role:       member.RoleStaff,
		BoundEmail: boundEmail,
		CreatedBy:  "owner-1",
		CreatedAt:  time.Now().Add(-time.Hour),
		ExpiresAt:  time.Now().Add(24 * time.Hour),
	}
}

func testRecipient(email string) Recipient {
	return Recipient{
		Email:     email,
		Password:  "a-long-enough-password",
		FirstName: "Dana",
		LastName:  "Reyes",
	}
}

// TestPurpose: Validates the full redemption sequence for an open short code.
// Scope: Unit Test
// Expected: Identity created, active membership written with the invitation's role and business, invitation marked consumed, audit trail emitted.
// Test Case ID: PRV-01
func TestProvision_Redeem_HappyPath(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	inv := staffCodeInvitation("ABCD1234", "")
	f.invites.On("GetByCredential", ctx, "ABCD1234").Return(inv, nil)
	f.members.On("GetByEmail", ctx, "dana@example.com").Return(nil, member.ErrMemberNotFound)
	f.idp.On("SignUp", ctx, mock.MatchedBy(func(p identity.SignUpParams) bool {
		return p.Email == "dana@example.com" && p.FirstName == "Dana"
	})).Return("id-42", nil)
	f.members.On("Upsert", ctx, mock.MatchedBy(func(m *member.Member) bool {
		return m.ID == "id-42" &&
			m.Email == "dana@example.com" &&
			m.BusinessID != nil && *m.BusinessID == "biz-1" &&
			m.Role == member.RoleStaff &&
			m.Active
	})).Return(nil)
	f.invites.On("MarkConsumed", ctx, "inv-1", "id-42").Return(nil)
	f.auditLogger.On("Log", ctx, mock.Anything).Return()

	grant, err := f.p.Redeem(ctx, "abcd-1234", testRecipient("Dana@Example.com"))
	require.NoError(t, err)
	assert.Equal(t, "id-42", grant.MemberID)
	assert.Equal(t, "biz-1", grant.BusinessID)

	f.invites.AssertExpectations(t)
	f.members.AssertExpectations(t)
	f.idp.AssertExpectations(t)
	f.auditLogger.AssertNumberOfCalls(t, "Log", 2)
}

// TestPurpose: Validates the email binding: case differences are tolerated, different addresses are not.
// Scope: Unit Test
// Security: A bound invitation must only admit its intended recipient
// Expected: Case-insensitive match redeems; a mismatch returns ErrEmailMismatch before any account is created.
// Test Case ID: PRV-02
func TestProvision_Redeem_EmailBinding(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	inv := staffCodeInvitation("ABCD1234", "nurse@example.com")
	f.invites.On("GetByCredential", ctx, "ABCD1234").Return(inv, nil)

	_, err := f.p.Redeem(ctx, "ABCD1234", testRecipient("intruder@example.com"))
	assert.ErrorIs(t, err, invite.ErrEmailMismatch)
	f.idp.AssertNotCalled(t, "SignUp", mock.Anything, mock.Anything)
	f.members.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)

	// Same address in different case is the same recipient.
	f.members.On("GetByEmail", ctx, "nurse@example.com").Return(nil, member.ErrMemberNotFound)
	f.idp.On("SignUp", ctx, mock.Anything).Return("id-7", nil)
	f.members.On("Upsert", ctx, mock.Anything).Return(nil)
	f.invites.On("MarkConsumed", ctx, "inv-1", "id-7").Return(nil)
	f.auditLogger.On("Log", ctx, mock.Anything).Return()

	grant, err := f.p.Redeem(ctx, "ABCD1234", testRecipient("NURSE@example.COM"))
	require.NoError(t, err)
	assert.Equal(t, "id-7", grant.MemberID)
}

// TestPurpose: Validates that an email already holding a membership anywhere cannot redeem.
// Scope: Unit Test
// Expected: ErrAlreadyRegistered without touching the identity provider.
// Test Case ID: PRV-03
func TestProvision_Redeem_AlreadyRegistered(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	inv := staffCodeInvitation("ABCD1234", "")
	f.invites.On("GetByCredential", ctx, "ABCD1234").Return(inv, nil)
	biz := "biz-9"
	f.members.On("GetByEmail", ctx, "dana@example.com").Return(&member.Member{ID: "m-1", BusinessID: &biz, Active: true}, nil)

	_, err := f.p.Redeem(ctx, "ABCD1234", testRecipient("dana@example.com"))
	assert.ErrorIs(t, err, ErrAlreadyRegistered)
	f.idp.AssertNotCalled(t, "SignUp", mock.Anything, mock.Anything)
}

// TestPurpose: Validates the double-redemption arbiter: the loser of the conditional update keeps no access.
// Scope: Unit Test
// Security: One credential grants exactly one membership
// Expected: When a different member won, the losing redemption reports ErrAlreadyUsed and its freshly written membership is deactivated.
// Test Case ID: PRV-04
func TestProvision_Redeem_LosesConsumptionRace(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	inv := staffCodeInvitation("ABCD1234", "")
	consumed := staffCodeInvitation("ABCD1234", "")
	now := time.Now()
	consumed.ConsumedAt = &now
	consumed.ConsumedBy = "id-99"

	f.invites.On("GetByCredential", ctx, "ABCD1234").Return(inv, nil).Once()
	f.members.On("GetByEmail", ctx, "dana@example.com").Return(nil, member.ErrMemberNotFound)
	f.idp.On("SignUp", ctx, mock.Anything).Return("id-42", nil)
	f.members.On("Upsert", ctx, mock.Anything).Return(nil)
	f.invites.On("MarkConsumed", ctx, "inv-1", "id-42").Return(invite.ErrAlreadyUsed)
	f.invites.On("GetByCredential", ctx, "ABCD1234").Return(consumed, nil).Once()
	f.members.On("SetActive", ctx, "biz-1", "id-42", false).Return(nil)

	_, err := f.p.Redeem(ctx, "ABCD1234", testRecipient("dana@example.com"))
	assert.ErrorIs(t, err, invite.ErrAlreadyUsed)
	f.members.AssertCalled(t, "SetActive", ctx, "biz-1", "id-42", false)
	f.auditLogger.AssertNotCalled(t, "Log", mock.Anything, mock.Anything)
}

// TestPurpose: Validates that a duplicate submit racing itself keeps its access.
// Scope: Unit Test
// Security: Compensation must never revoke the grant the winner just made
// Expected: When the consumption re-read shows the caller's own identity won, Redeem returns the grant and nothing is deactivated.
// Test Case ID: PRV-09
func TestProvision_Redeem_DuplicateSubmitKeepsAccess(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	// Both clicks resolve to the same identity: the second sign-up hits
	// the registered email and reuses the first one's identity.
	inv := staffCodeInvitation("ABCD1234", "")
	consumed := staffCodeInvitation("ABCD1234", "")
	now := time.Now()
	consumed.ConsumedAt = &now
	consumed.ConsumedBy = "id-42"

	f.invites.On("GetByCredential", ctx, "ABCD1234").Return(inv, nil).Once()
	f.members.On("GetByEmail", ctx, "dana@example.com").Return(nil, member.ErrMemberNotFound)
	f.idp.On("SignUp", ctx, mock.Anything).Return("", &identity.AuthError{Reason: identity.ReasonEmailRegistered})
	f.idp.On("Lookup", ctx, "dana@example.com").Return("id-42", nil)
	f.members.On("Upsert", ctx, mock.Anything).Return(nil)
	f.invites.On("MarkConsumed", ctx, "inv-1", "id-42").Return(invite.ErrAlreadyUsed)
	f.invites.On("GetByCredential", ctx, "ABCD1234").Return(consumed, nil).Once()

	grant, err := f.p.Redeem(ctx, "ABCD1234", testRecipient("dana@example.com"))
	require.NoError(t, err)
	assert.Equal(t, "id-42", grant.MemberID)
	assert.Equal(t, "biz-1", grant.BusinessID)
	f.members.AssertNotCalled(t, "SetActive", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// TestPurpose: Validates that a transient failure while marking consumption does not revoke the granted access.
// Scope: Unit Test
// Expected: Redeem succeeds; the invitation may linger pending, which operators tolerate.
// Test Case ID: PRV-05
func TestProvision_Redeem_MarkConsumedTransientFailure(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	inv := staffCodeInvitation("ABCD1234", "")
	f.invites.On("GetByCredential", ctx, "ABCD1234").Return(inv, nil)
	f.members.On("GetByEmail", ctx, "dana@example.com").Return(nil, member.ErrMemberNotFound)
	f.idp.On("SignUp", ctx, mock.Anything).Return("id-42", nil)
	f.members.On("Upsert", ctx, mock.Anything).Return(nil)
	f.invites.On("MarkConsumed", ctx, "inv-1", "id-42").Return(invite.Transient("mark consumed", errors.New("connection reset")))
	f.auditLogger.On("Log", ctx, mock.Anything).Return()

	grant, err := f.p.Redeem(ctx, "ABCD1234", testRecipient("dana@example.com"))
	require.NoError(t, err)
	assert.Equal(t, "id-42", grant.MemberID)
	f.members.AssertNotCalled(t, "SetActive", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// TestPurpose: Validates the repair path for an identity left over from an interrupted redemption.
// Scope: Unit Test
// Expected: When sign-up reports the email as registered but no membership exists, the existing identity is looked up and granted.
// Test Case ID: PRV-06
func TestProvision_Redeem_ReusesOrphanedIdentity(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	inv := staffCodeInvitation("ABCD1234", "")
	f.invites.On("GetByCredential", ctx, "ABCD1234").Return(inv, nil)
	f.members.On("GetByEmail", ctx, "dana@example.com").Return(nil, member.ErrMemberNotFound)
	f.idp.On("SignUp", ctx, mock.Anything).Return("", &identity.AuthError{Reason: identity.ReasonEmailRegistered})
	f.idp.On("Lookup", ctx, "dana@example.com").Return("id-orphan", nil)
	f.members.On("Upsert", ctx, mock.MatchedBy(func(m *member.Member) bool {
		return m.ID == "id-orphan"
	})).Return(nil)
	f.invites.On("MarkConsumed", ctx, "inv-1", "id-orphan").Return(nil)
	f.auditLogger.On("Log", ctx, mock.Anything).Return()

	grant, err := f.p.Redeem(ctx, "ABCD1234", testRecipient("dana@example.com"))
	require.NoError(t, err)
	assert.Equal(t, "id-orphan", grant.MemberID)
}

// TestPurpose: Validates that a failed membership write surfaces the retryable partial-provisioning state.
// Scope: Unit Test
// Expected: ErrProfileProvisioningFailed; the invitation is not consumed, so the same credential retries.
// Test Case ID: PRV-07
func TestProvision_Redeem_ProfileWriteFails(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	inv := staffCodeInvitation("ABCD1234", "")
	f.invites.On("GetByCredential", ctx, "ABCD1234").Return(inv, nil)
	f.members.On("GetByEmail", ctx, "dana@example.com").Return(nil, member.ErrMemberNotFound)
	f.idp.On("SignUp", ctx, mock.Anything).Return("id-42", nil)
	f.members.On("Upsert", ctx, mock.Anything).Return(errors.New("write failed"))

	_, err := f.p.Redeem(ctx, "ABCD1234", testRecipient("dana@example.com"))
	assert.ErrorIs(t, err, ErrProfileProvisioningFailed)
	f.invites.AssertNotCalled(t, "MarkConsumed", mock.Anything, mock.Anything, mock.Anything)
}

// TestPurpose: Validates that validation failures propagate unchanged through redemption.
// Scope: Unit Test
// Expected: An expired invitation returns ErrExpired with no side effects.
// Test Case ID: PRV-08
func TestProvision_Redeem_Expired(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	inv := staffCodeInvitation("ABCD1234", "")
	inv.ExpiresAt = time.Now().Add(-time.Minute)
	f.invites.On("GetByCredential", ctx, "ABCD1234").Return(inv, nil)

	_, err := f.p.Redeem(ctx, "ABCD1234", testRecipient("dana@example.com"))
	assert.ErrorIs(t, err, invite.ErrExpired)
	f.idp.AssertNotCalled(t, "SignUp", mock.Anything, mock.Anything)
	f.members.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}
