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
	"fmt"
	"log/slog"
	"strings"

	"github.com/careforms/careforms/internal/audit"
	"github.com/careforms/careforms/internal/identity"
	"github.com/careforms/careforms/internal/invite"
	"github.com/careforms/careforms/internal/member"
)

// Domain errors
var (
	// ErrAlreadyRegistered means the recipient email already belongs to
	// a member of some business. Email is a cross-business identity key.
	ErrAlreadyRegistered = errors.New("email already belongs to a member")

	// ErrProfileProvisioningFailed means the identity was created but
	// the membership write failed. The state is recoverable: retrying
	// Redeem with the same credential and email repairs it through the
	// idempotent upsert instead of creating a duplicate identity.
	ErrProfileProvisioningFailed = errors.New("identity created but membership provisioning failed")
)

// Recipient carries the details the invitee supplies at redemption.
type Recipient struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Grant is the result of a successful redemption.
type Grant struct {
	MemberID   string
	BusinessID string
}

// Provisioner orchestrates account creation, business membership, role
// assignment, and credential consumption as a single logical
// transaction with defined partial-failure behavior.
type Provisioner struct {
	validator   *invite.Validator
	invites     invite.Repository
	members     member.Repository
	idp         identity.Provider
	auditLogger audit.Logger
}

// NewProvisioner creates a new access provisioner.
func NewProvisioner(
	validator *invite.Validator,
	invites invite.Repository,
	members member.Repository,
	idp identity.Provider,
	auditLogger audit.Logger,
) *Provisioner {
	return &Provisioner{
		validator:   validator,
		invites:     invites,
		members:     members,
		idp:         idp,
		auditLogger: auditLogger,
	}
}

// Redeem exchanges a valid invitation credential plus recipient details
// for a membership. The steps, in order:
//
//  1. validate the credential (read-only)
//  2. enforce the email binding, case-insensitively
//  3. reject recipients who are already members anywhere
//  4. create the identity at the provider; nothing is persisted on failure
//  5. upsert the member record keyed by the identity id
//  6. mark the invitation consumed, best-effort
//
// Step 6 uses a conditional update: a concurrent redemption that loses
// the race to a different member is reported AlreadyUsed and its
// membership is withdrawn, while a loss to its own identity (a
// duplicate submit) returns the grant as a success. A
// plain storage failure at step 6 does not roll back the grant; the
// invitation may then linger as pending in operator lists, which is the
// accepted tradeoff (access, once granted, is never clawed back by
// bookkeeping).
func (p *Provisioner) Redeem(ctx context.Context, credential string, r Recipient) (*Grant, error) {
	inv, err := p.validator.Validate(ctx, credential)
	if err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(r.Email))
	if inv.BoundEmail != "" && !strings.EqualFold(inv.BoundEmail, email) {
		return nil, invite.ErrEmailMismatch
	}

	if _, err := p.members.GetByEmail(ctx, email); err == nil {
		return nil, ErrAlreadyRegistered
	} else if !errors.Is(err, member.ErrMemberNotFound) {
		return nil, invite.Transient("check existing member", err)
	}

	identityID, err := p.ensureIdentity(ctx, email, r)
	if err != nil {
		return nil, err
	}

	m := &member.Member{
		ID:         identityID,
		Email:      email,
		BusinessID: &inv.BusinessID,
		Role:       inv.Role,
		FirstName:  r.FirstName,
		LastName:   r.LastName,
		Active:     true,
	}
	if err := p.members.Upsert(ctx, m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProfileProvisioningFailed, err)
	}

	if err := p.invites.MarkConsumed(ctx, inv.ID, identityID); err != nil {
		if errors.Is(err, invite.ErrAlreadyUsed) {
			// Lost the redemption race. Re-read to learn who won: a
			// duplicate submit of the same redemption resolves both
			// racers to the same identity, and withdrawing then would
			// revoke the access the winner just granted. Only a grant
			// held by a different member gets withdrawn.
			latest, gerr := p.invites.GetByCredential(ctx, inv.Credential)
			if gerr == nil && latest.ConsumedBy == identityID {
				return &Grant{MemberID: identityID, BusinessID: inv.BusinessID}, nil
			}
			if gerr != nil {
				slog.WarnContext(ctx, "could not resolve redemption race winner",
					"invitation_id", inv.ID, "member_id", identityID, "error", gerr)
			}
			if derr := p.members.SetActive(ctx, inv.BusinessID, identityID, false); derr != nil {
				slog.WarnContext(ctx, "failed to withdraw membership after lost redemption race",
					"invitation_id", inv.ID, "member_id", identityID, "error", derr)
			}
			return nil, invite.ErrAlreadyUsed
		}
		// Best-effort: the grant stands even if consumption bookkeeping
		// failed. The code will show as still pending to operators.
		slog.WarnContext(ctx, "failed to mark invitation consumed after granting membership",
			"invitation_id", inv.ID, "member_id", identityID, "error", err)
	}

	p.auditLogger.Log(ctx, audit.Event{
		Type:       audit.TypeInviteRedeemed,
		BusinessID: inv.BusinessID,
		ActorID:    identityID,
		Resource:   inv.ID,
		Metadata: map[string]any{
			audit.AttrKind: string(inv.Kind),
			audit.AttrRole: string(inv.Role),
		},
	})
	p.auditLogger.Log(ctx, audit.Event{
		Type:       audit.TypeMemberProvisioned,
		BusinessID: inv.BusinessID,
		ActorID:    identityID,
		Resource:   identityID,
		Metadata:   map[string]any{audit.AttrRole: string(inv.Role)},
	})

	return &Grant{MemberID: identityID, BusinessID: inv.BusinessID}, nil
}

// ensureIdentity creates the identity at the provider, or, when the
// email is already registered there but holds no membership, reuses the
// existing identity. That second branch is the repair path for a
// previous redemption that failed between identity creation and the
// membership write.
func (p *Provisioner) ensureIdentity(ctx context.Context, email string, r Recipient) (string, error) {
	identityID, err := p.idp.SignUp(ctx, identity.SignUpParams{
		Email:     email,
		Password:  r.Password,
		FirstName: r.FirstName,
		LastName:  r.LastName,
	})
	if err == nil {
		return identityID, nil
	}

	var authErr *identity.AuthError
	if errors.As(err, &authErr) && authErr.Reason == identity.ReasonEmailRegistered {
		existingID, lerr := p.idp.Lookup(ctx, email)
		if lerr != nil {
			return "", invite.Transient("lookup existing identity", lerr)
		}
		slog.InfoContext(ctx, "reusing orphaned identity for redemption retry",
			"identity_id", existingID)
		return existingID, nil
	}

	return "", err
}
