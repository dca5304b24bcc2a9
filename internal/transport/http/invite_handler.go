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

package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/careforms/careforms/internal/identity"
	"github.com/careforms/careforms/internal/invite"
	"github.com/careforms/careforms/internal/mail"
	"github.com/careforms/careforms/internal/member"
	"github.com/careforms/careforms/internal/observability/logger"
	"github.com/careforms/careforms/internal/provision"
	"github.com/go-chi/chi/v5"
)

// CreateInvitationRequest represents invitation creation data
type CreateInvitationRequest struct {
	Kind        string `json:"kind"`
	Role        string `json:"role"`
	Email       string `json:"email"`
	ExpiryDays  int    `json:"expiry_days"`
	SendByEmail bool   `json:"send_by_email"`
}

// CreateInvitation issues a new invitation for the caller's business.
// Token invitations are minted into a signed link and, when requested,
// mailed to the bound address.
func (h *Handler) CreateInvitation(w http.ResponseWriter, r *http.Request) {
	actor := GetMember(r.Context())

	var req CreateInvitationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	kind := invite.Kind(req.Kind)
	if kind == "" {
		kind = invite.KindCode
	}
	if kind != invite.KindCode && kind != invite.KindToken {
		respondError(w, http.StatusBadRequest, "kind must be code or token")
		return
	}

	role, err := member.ParseRole(req.Role)
	if err != nil {
		respondError(w, http.StatusBadRequest, "unknown role")
		return
	}

	inv, err := h.inviteService.Create(r.Context(), actor, invite.CreateParams{
		BusinessID: *actor.BusinessID,
		Kind:       kind,
		Role:       role,
		BoundEmail: req.Email,
		ExpiryDays: req.ExpiryDays,
	})
	if err != nil {
		respondInviteError(w, r, err)
		return
	}

	resp := invitationResponse(inv)

	if inv.Kind == invite.KindCode {
		resp["display_code"] = invite.DisplayCode(inv.Credential)
	} else {
		signed, err := h.signer.Mint(inv)
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to mint invitation token", logger.Error(err))
			respondError(w, http.StatusInternalServerError, "failed to create invitation")
			return
		}
		link := invite.BuildLink(h.baseURL, signed)
		resp["link"] = link

		if req.SendByEmail {
			h.sendInvitationEmail(r, inv, link)
		}
	}

	respondJSON(w, http.StatusCreated, resp)
}

// sendInvitationEmail delivers the invitation link. Delivery is best
// effort; the invitation stands either way and the link is in the
// response for manual sharing.
func (h *Handler) sendInvitationEmail(r *http.Request, inv *invite.Invitation, link string) {
	biz, err := h.businessService.Get(r.Context(), inv.BusinessID)
	businessName := ""
	if err == nil {
		businessName = biz.Name
	}

	if err := h.mailer.SendInvitation(r.Context(), mail.Invitation{
		ToEmail:      inv.BoundEmail,
		BusinessName: businessName,
		Role:         string(inv.Role),
		Link:         link,
		ExpiresAt:    inv.ExpiresAt,
	}); err != nil {
		slog.ErrorContext(r.Context(), "failed to send invitation email",
			logger.Error(err),
			logger.InvitationID(inv.ID),
		)
	}
}

// ListInvitations lists the caller's business invitations
func (h *Handler) ListInvitations(w http.ResponseWriter, r *http.Request) {
	actor := GetMember(r.Context())

	invitations, err := h.inviteService.ListByBusiness(r.Context(), actor, *actor.BusinessID)
	if err != nil {
		respondInviteError(w, r, err)
		return
	}

	items := make([]map[string]any, 0, len(invitations))
	for _, inv := range invitations {
		items = append(items, invitationResponse(inv))
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"invitations": items,
	})
}

// RevokeInvitation deletes a pending invitation
func (h *Handler) RevokeInvitation(w http.ResponseWriter, r *http.Request) {
	actor := GetMember(r.Context())
	invitationID := chi.URLParam(r, "invitationID")

	if err := h.inviteService.Revoke(r.Context(), actor, *actor.BusinessID, invitationID); err != nil {
		respondInviteError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "invitation revoked",
	})
}

// ValidateInvitationRequest carries a credential to pre-check
type ValidateInvitationRequest struct {
	Credential string `json:"credential"`
}

// ValidateInvitation checks a credential without consuming it, so the
// signup form can show the business and role before asking for details.
func (h *Handler) ValidateInvitation(w http.ResponseWriter, r *http.Request) {
	var req ValidateInvitationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.respondInvitationSummary(w, r, req.Credential)
}

// InviteLanding resolves an emailed invitation link
func (h *Handler) InviteLanding(w http.ResponseWriter, r *http.Request) {
	credential := r.URL.Query().Get(invite.LinkParam)
	h.respondInvitationSummary(w, r, credential)
}

func (h *Handler) respondInvitationSummary(w http.ResponseWriter, r *http.Request, credential string) {
	inv, err := h.validator.Validate(r.Context(), credential)
	if err != nil {
		respondInviteError(w, r, err)
		return
	}

	summary := map[string]any{
		"business_id": inv.BusinessID,
		"role":        string(inv.Role),
		"kind":        string(inv.Kind),
		"expires_at":  inv.ExpiresAt.Format(time.RFC3339),
	}
	if inv.BoundEmail != "" {
		summary["email"] = inv.BoundEmail
	}
	if biz, err := h.businessService.Get(r.Context(), inv.BusinessID); err == nil {
		summary["business_name"] = biz.Name
	}

	respondJSON(w, http.StatusOK, summary)
}

// RedeemInvitationRequest represents redemption data
type RedeemInvitationRequest struct {
	Credential string `json:"credential"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
}

// RedeemInvitation exchanges a credential for a business membership and
// signs the new member in.
func (h *Handler) RedeemInvitation(w http.ResponseWriter, r *http.Request) {
	var req RedeemInvitationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	grant, err := h.provisioner.Redeem(r.Context(), req.Credential, provision.Recipient{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		respondInviteError(w, r, err)
		return
	}

	resp := map[string]any{
		"member_id":   grant.MemberID,
		"business_id": grant.BusinessID,
	}

	sess, err := h.identityService.SignIn(r.Context(), req.Email, req.Password, getIPAddress(r), r.UserAgent())
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to start session after redemption", logger.Error(err))
	} else {
		h.setSessionCookie(w, sess.ID)
	}

	respondJSON(w, http.StatusCreated, resp)
}

func invitationResponse(inv *invite.Invitation) map[string]any {
	resp := map[string]any{
		"invitation_id": inv.ID,
		"business_id":   inv.BusinessID,
		"kind":          string(inv.Kind),
		"credential":    inv.Credential,
		"role":          string(inv.Role),
		"created_by":    inv.CreatedBy,
		"created_at":    inv.CreatedAt.Format(time.RFC3339),
		"expires_at":    inv.ExpiresAt.Format(time.RFC3339),
		"pending":       inv.Pending(),
	}
	if inv.BoundEmail != "" {
		resp["email"] = inv.BoundEmail
	}
	if inv.ConsumedAt != nil {
		resp["consumed_at"] = inv.ConsumedAt.Format(time.RFC3339)
		resp["consumed_by"] = inv.ConsumedBy
	}
	return resp
}

// respondInviteError maps invitation and provisioning errors to HTTP
// statuses. Transient infrastructure failures report 503 so clients
// know a retry is safe.
func respondInviteError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, invite.ErrMalformedCredential):
		respondError(w, http.StatusBadRequest, "malformed invitation credential")
	case errors.Is(err, invite.ErrNotFound):
		respondError(w, http.StatusNotFound, "invitation not found")
	case errors.Is(err, invite.ErrAlreadyUsed):
		respondError(w, http.StatusGone, "invitation has already been used")
	case errors.Is(err, invite.ErrExpired):
		respondError(w, http.StatusGone, "invitation has expired")
	case errors.Is(err, invite.ErrEmailMismatch):
		respondError(w, http.StatusForbidden, "invitation is bound to a different email address")
	case errors.Is(err, invite.ErrRoleNotInvitable):
		respondError(w, http.StatusBadRequest, "role cannot be granted by invitation")
	case errors.Is(err, invite.ErrInvalidExpiry):
		respondError(w, http.StatusBadRequest, "expiry window is out of range")
	case errors.Is(err, invite.ErrGenerationExhausted):
		respondError(w, http.StatusServiceUnavailable, "could not allocate a credential, try again")
	case errors.Is(err, provision.ErrAlreadyRegistered):
		respondError(w, http.StatusConflict, "account already belongs to a business")
	case errors.Is(err, provision.ErrProfileProvisioningFailed):
		respondError(w, http.StatusInternalServerError, "account created but setup is incomplete, retry with the same credential")
	case errors.Is(err, member.ErrUnauthorized):
		respondError(w, http.StatusForbidden, "not allowed")
	case invite.IsTransient(err):
		slog.ErrorContext(r.Context(), "invitation store unavailable", logger.Error(err))
		respondError(w, http.StatusServiceUnavailable, "temporarily unavailable, try again")
	default:
		var authErr *identity.AuthError
		if errors.As(err, &authErr) {
			respondAuthError(w, err)
			return
		}
		slog.ErrorContext(r.Context(), "invitation operation failed", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}
