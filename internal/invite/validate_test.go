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
	"testing"
	"time"

	"github.com/careforms/careforms/internal/member"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) Create(ctx context.Context, inv *Invitation) error {
	args := m.Called(ctx, inv)
	return args.Error(0)
}

func (m *mockRepo) GetByCredential(ctx context.Context, credential string) (*Invitation, error) {
	args := m.Called(ctx, credential)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Invitation), args.Error(1)
}

func (m *mockRepo) ListByBusiness(ctx context.Context, businessID string) ([]*Invitation, error) {
	args := m.Called(ctx, businessID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Invitation), args.Error(1)
}

func (m *mockRepo) MarkConsumed(ctx context.Context, invitationID, consumerID string) error {
	args := m.Called(ctx, invitationID, consumerID)
	return args.Error(0)
}

func (m *mockRepo) Delete(ctx context.Context, invitationID, businessID string) error {
	args := m.Called(ctx, invitationID, businessID)
	return args.Error(0)
}

func pendingCode(credential string, expiresAt time.Time) *Invitation {
	return &Invitation{
		ID:         "inv-" + credential,
		BusinessID: "biz-1",
		Kind:       KindCode,
		Credential: credential,
		Role:       member.RoleStaff,
		CreatedBy:  "owner-1",
		CreatedAt:  time.Now().Add(-time.Hour),
		ExpiresAt:  expiresAt,
	}
}

// TestPurpose: Validates the ordered validation checks: format, existence, consumption, expiry.
// Scope: Unit Test
// Security: A consumed or expired credential must never validate
// Expected: Each state maps to its dedicated error; a live credential returns the invitation.
// Test Case ID: VAL-01
func TestInvite_Validator_States(t *testing.T) {
	repo := new(mockRepo)
	v := NewValidator(repo, nil)
	ctx := context.Background()

	live := pendingCode("ABCD1234", time.Now().Add(time.Hour))
	repo.On("GetByCredential", ctx, "ABCD1234").Return(live, nil)

	got, err := v.Validate(ctx, "ABCD1234")
	require.NoError(t, err)
	assert.Equal(t, live.ID, got.ID)

	// Unknown credential
	repo.On("GetByCredential", ctx, "ZZZZ9999").Return(nil, ErrNotFound)
	_, err = v.Validate(ctx, "ZZZZ9999")
	assert.ErrorIs(t, err, ErrNotFound)

	// Consumed wins over expired when both hold
	consumedAt := time.Now().Add(-2 * time.Hour)
	used := pendingCode("USED0001", time.Now().Add(-time.Hour))
	used.ConsumedAt = &consumedAt
	used.ConsumedBy = "member-9"
	repo.On("GetByCredential", ctx, "USED0001").Return(used, nil)
	_, err = v.Validate(ctx, "USED0001")
	assert.ErrorIs(t, err, ErrAlreadyUsed)

	// Expired
	repo.On("GetByCredential", ctx, "GONE0001").Return(pendingCode("GONE0001", time.Now().Add(-time.Minute)), nil)
	_, err = v.Validate(ctx, "GONE0001")
	assert.ErrorIs(t, err, ErrExpired)

	repo.AssertExpectations(t)
}

// TestPurpose: Validates that the expiry boundary instant itself counts as expired.
// Scope: Unit Test
// Expected: now == ExpiresAt rejects; one nanosecond earlier accepts.
// Test Case ID: VAL-02
func TestInvite_Validator_ExpiryBoundary(t *testing.T) {
	repo := new(mockRepo)
	v := NewValidator(repo, nil)
	ctx := context.Background()

	boundary := time.Now().Add(time.Hour)
	inv := pendingCode("ABCD1234", boundary)
	repo.On("GetByCredential", ctx, "ABCD1234").Return(inv, nil)

	v.now = func() time.Time { return boundary }
	_, err := v.Validate(ctx, "ABCD1234")
	assert.ErrorIs(t, err, ErrExpired)

	v.now = func() time.Time { return boundary.Add(-time.Nanosecond) }
	_, err = v.Validate(ctx, "ABCD1234")
	assert.NoError(t, err)
}

// TestPurpose: Validates that user-mangled code forms (lowercase, hyphenated, padded) resolve to the stored credential.
// Scope: Unit Test
// Expected: All display variants hit the repository with the canonical uppercase code.
// Test Case ID: VAL-03
func TestInvite_Validator_NormalizesCodes(t *testing.T) {
	repo := new(mockRepo)
	v := NewValidator(repo, nil)
	ctx := context.Background()

	inv := pendingCode("ABCD1234", time.Now().Add(time.Hour))
	repo.On("GetByCredential", ctx, "ABCD1234").Return(inv, nil)

	for _, form := range []string{"ABCD1234", "abcd1234", "ABCD-1234", "abcd-1234", "  abcd 1234  "} {
		got, err := v.Validate(ctx, form)
		require.NoError(t, err, "form %q", form)
		assert.Equal(t, inv.ID, got.ID)
	}
}

// TestPurpose: Validates that signed link tokens and raw opaque tokens both resolve, and garbage is rejected before any storage access.
// Scope: Unit Test
// Expected: Signed token unwraps to its credential; malformed input returns ErrMalformedCredential with zero repository calls.
// Test Case ID: VAL-04
func TestInvite_Validator_TokenForms(t *testing.T) {
	repo := new(mockRepo)
	signer := NewTokenSigner([]byte("test-secret-at-least-32-bytes-long"), "careforms")
	v := NewValidator(repo, signer)
	ctx := context.Background()

	cred, err := GenerateToken()
	require.NoError(t, err)
	inv := pendingCode(cred, time.Now().Add(time.Hour))
	inv.Kind = KindToken
	inv.BoundEmail = "nurse@example.com"
	repo.On("GetByCredential", ctx, cred).Return(inv, nil)

	signed, err := signer.Mint(inv)
	require.NoError(t, err)

	got, err := v.Validate(ctx, signed)
	require.NoError(t, err)
	assert.Equal(t, inv.ID, got.ID)

	// Raw opaque form also accepted
	got, err = v.Validate(ctx, cred)
	require.NoError(t, err)
	assert.Equal(t, inv.ID, got.ID)

	for _, bad := range []string{"", "   ", "short", "ABCD12", "has spaces in it definitely", "läng-enough-but-not-base64url!!"} {
		_, err := v.Validate(ctx, bad)
		assert.ErrorIs(t, err, ErrMalformedCredential, "input %q", bad)
	}
	repo.AssertNumberOfCalls(t, "GetByCredential", 2)
}
