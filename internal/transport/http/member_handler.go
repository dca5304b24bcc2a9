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
	"net/http"
	"time"

	"github.com/careforms/careforms/internal/business"
	"github.com/careforms/careforms/internal/member"
	"github.com/go-chi/chi/v5"
)

// GetBusiness returns the caller's business
func (h *Handler) GetBusiness(w http.ResponseWriter, r *http.Request) {
	actor := GetMember(r.Context())

	biz, err := h.businessService.Get(r.Context(), *actor.BusinessID)
	if err != nil {
		respondError(w, http.StatusNotFound, "business not found")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"business_id":   biz.ID,
		"name":          biz.Name,
		"contact_email": biz.ContactEmail,
		"tier":          biz.Tier,
		"created_at":    biz.CreatedAt.Format(time.RFC3339),
	})
}

// UpdateBusinessRequest represents business detail changes
type UpdateBusinessRequest struct {
	Name         string `json:"name"`
	ContactEmail string `json:"contact_email"`
}

// UpdateBusiness updates the caller's business details
func (h *Handler) UpdateBusiness(w http.ResponseWriter, r *http.Request) {
	actor := GetMember(r.Context())

	var req UpdateBusinessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	biz, err := h.businessService.Get(r.Context(), *actor.BusinessID)
	if err != nil {
		respondError(w, http.StatusNotFound, "business not found")
		return
	}
	if req.Name != "" {
		biz.Name = req.Name
	}
	if req.ContactEmail != "" {
		biz.ContactEmail = req.ContactEmail
	}

	if err := h.businessService.UpdateDetails(r.Context(), actor, biz); err != nil {
		respondMemberError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "business updated",
	})
}

// ListTeam lists the members of the caller's business
func (h *Handler) ListTeam(w http.ResponseWriter, r *http.Request) {
	actor := GetMember(r.Context())

	members, err := h.memberService.ListTeam(r.Context(), actor, *actor.BusinessID)
	if err != nil {
		respondMemberError(w, err)
		return
	}

	items := make([]map[string]any, 0, len(members))
	for _, m := range members {
		items = append(items, memberResponse(m))
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"members": items,
	})
}

// SetMemberActiveRequest toggles a membership
type SetMemberActiveRequest struct {
	Active bool `json:"active"`
}

// SetMemberActive deactivates or reactivates a team member
func (h *Handler) SetMemberActive(w http.ResponseWriter, r *http.Request) {
	actor := GetMember(r.Context())
	memberID := chi.URLParam(r, "memberID")

	var req SetMemberActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.memberService.SetMemberActive(r.Context(), actor, *actor.BusinessID, memberID, req.Active); err != nil {
		respondMemberError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "membership updated",
	})
}

func memberResponse(m *member.Member) map[string]any {
	resp := map[string]any{
		"member_id":  m.ID,
		"email":      m.Email,
		"role":       string(m.Role),
		"first_name": m.FirstName,
		"last_name":  m.LastName,
		"active":     m.Active,
		"created_at": m.CreatedAt.Format(time.RFC3339),
	}
	if m.BusinessID != nil {
		resp["business_id"] = *m.BusinessID
	}
	return resp
}

func respondMemberError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, member.ErrUnauthorized):
		respondError(w, http.StatusForbidden, "not allowed")
	case errors.Is(err, member.ErrMemberNotFound):
		respondError(w, http.StatusNotFound, "member not found")
	case errors.Is(err, business.ErrBusinessNotFound):
		respondError(w, http.StatusNotFound, "business not found")
	default:
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}
