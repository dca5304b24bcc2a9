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

	"github.com/careforms/careforms/internal/audit"
	"github.com/careforms/careforms/internal/business"
	"github.com/careforms/careforms/internal/identity"
	"github.com/careforms/careforms/internal/invite"
	"github.com/careforms/careforms/internal/mail"
	"github.com/careforms/careforms/internal/member"
	"github.com/careforms/careforms/internal/observability/logger"
	"github.com/careforms/careforms/internal/provision"
	"github.com/careforms/careforms/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Handler holds HTTP handlers and dependencies
type Handler struct {
	identityService *identity.Service
	sessionService  *session.Service
	businessService *business.Service
	inviteService   *invite.Service
	memberService   *member.Service
	validator       *invite.Validator
	provisioner     *provision.Provisioner
	signer          *invite.TokenSigner
	mailer          mail.Mailer
	auditLogger     audit.Logger
	sessionConfig   SessionConfig
	baseURL         string
}

// SessionConfig holds session cookie configuration
type SessionConfig struct {
	CookieName     string
	CookieDomain   string
	CookiePath     string
	CookieSecure   bool
	CookieHTTPOnly bool
	CookieSameSite http.SameSite
}

// NewHandler creates a new HTTP handler
func NewHandler(
	identityService *identity.Service,
	sessionService *session.Service,
	businessService *business.Service,
	inviteService *invite.Service,
	memberService *member.Service,
	validator *invite.Validator,
	provisioner *provision.Provisioner,
	signer *invite.TokenSigner,
	mailer mail.Mailer,
	auditLogger audit.Logger,
	sessionConfig SessionConfig,
	baseURL string,
) *Handler {
	return &Handler{
		identityService: identityService,
		sessionService:  sessionService,
		businessService: businessService,
		inviteService:   inviteService,
		memberService:   memberService,
		validator:       validator,
		provisioner:     provisioner,
		signer:          signer,
		mailer:          mailer,
		auditLogger:     auditLogger,
		sessionConfig:   sessionConfig,
		baseURL:         baseURL,
	}
}

// NewRouter creates a new HTTP router
func NewRouter(h *Handler, rateLimiter *RateLimiter) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(RateLimitMiddleware(rateLimiter))
	r.Use(func(handler http.Handler) http.Handler {
		return otelhttp.NewHandler(handler, "http_request",
			otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	})
	r.Use(LoggingMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check
	r.Get("/health", h.HealthCheck)

	// Invitation link landing. BuildLink targets the site root, so the
	// emailed link resolves here; /invite is kept as an alias for
	// hand-typed URLs.
	r.Get("/", h.InviteLanding)
	r.Get("/invite", h.InviteLanding)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints
		r.Post("/auth/signup", h.SignUp)
		r.Post("/auth/login", h.Login)
		r.Post("/auth/logout", h.Logout)

		r.Post("/invitations/validate", h.ValidateInvitation)
		r.Post("/invitations/redeem", h.RedeemInvitation)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(h.AuthMiddleware)

			r.Get("/auth/me", h.GetCurrentUser)

			// Business-scoped routes require an active membership
			r.Group(func(r chi.Router) {
				r.Use(h.RequireMember)

				r.Get("/business", h.GetBusiness)
				r.Put("/business", h.UpdateBusiness)

				r.Post("/invitations", h.CreateInvitation)
				r.Get("/invitations", h.ListInvitations)
				r.Delete("/invitations/{invitationID}", h.RevokeInvitation)

				r.Get("/team", h.ListTeam)
				r.Put("/team/{memberID}/active", h.SetMemberActive)
			})
		})
	})

	return r
}

// HealthCheck returns the health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "careforms",
	})
}

// SignUpRequest represents business onboarding data. The caller becomes
// the business owner.
type SignUpRequest struct {
	BusinessName string `json:"business_name"`
	Tier         string `json:"tier"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
}

// SignUp registers a new business with its owning member
func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req SignUpRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.BusinessName == "" {
		respondError(w, http.StatusBadRequest, "business_name is required")
		return
	}

	identityID, err := h.identityService.SignUp(r.Context(), identity.SignUpParams{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to sign up",
			logger.Error(err),
			logger.Email(req.Email),
		)
		respondAuthError(w, err)
		return
	}

	biz, owner, err := h.businessService.Create(r.Context(), req.BusinessName, req.Email, req.Tier, business.OwnerSeed{
		IdentityID: identityID,
		Email:      req.Email,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
	})
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to create business",
			logger.Error(err),
			logger.Email(req.Email),
		)
		respondError(w, http.StatusInternalServerError, "failed to create business")
		return
	}

	sess, err := h.identityService.SignIn(r.Context(), req.Email, req.Password, getIPAddress(r), r.UserAgent())
	if err != nil {
		// The account exists; the caller can log in manually.
		slog.ErrorContext(r.Context(), "failed to start session after signup", logger.Error(err))
		respondJSON(w, http.StatusCreated, map[string]any{
			"business_id": biz.ID,
			"member_id":   owner.ID,
		})
		return
	}
	h.setSessionCookie(w, sess.ID)

	respondJSON(w, http.StatusCreated, map[string]any{
		"business_id": biz.ID,
		"member_id":   owner.ID,
		"email":       owner.Email,
		"role":        string(owner.Role),
	})
}

// LoginRequest represents login credentials
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles user login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess, err := h.identityService.SignIn(r.Context(), req.Email, req.Password, getIPAddress(r), r.UserAgent())
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	h.setSessionCookie(w, sess.ID)

	respondJSON(w, http.StatusOK, map[string]any{
		"identity_id": sess.IdentityID,
	})
}

// Logout handles user logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	sessionID := h.getSessionFromCookie(r)
	if sessionID == "" {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	if err := h.identityService.SignOut(r.Context(), sessionID); err != nil {
		slog.ErrorContext(r.Context(), "failed to sign out", logger.Error(err))
	}

	h.clearSessionCookie(w)

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "logged out successfully",
	})
}

// GetCurrentUser returns the current authenticated caller and, when one
// exists, their business membership.
func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	sessionID := GetSessionID(r.Context())

	caller, err := h.identityService.CurrentCaller(r.Context(), sessionID)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	resp := map[string]any{
		"identity_id": caller.IdentityID,
		"email":       caller.Email,
	}

	if m, err := h.memberService.Get(r.Context(), caller.IdentityID); err == nil {
		resp["member"] = memberResponse(m)
	}

	respondJSON(w, http.StatusOK, resp)
}

// Helper functions
func (h *Handler) setSessionCookie(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.sessionConfig.CookieName,
		Value:    sessionID,
		Path:     h.sessionConfig.CookiePath,
		Domain:   h.sessionConfig.CookieDomain,
		Secure:   h.sessionConfig.CookieSecure,
		HttpOnly: h.sessionConfig.CookieHTTPOnly,
		SameSite: h.sessionConfig.CookieSameSite,
		MaxAge:   86400, // 24 hours
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:   h.sessionConfig.CookieName,
		Value:  "",
		Path:   h.sessionConfig.CookiePath,
		Domain: h.sessionConfig.CookieDomain,
		MaxAge: -1,
	})
}

func (h *Handler) getSessionFromCookie(r *http.Request) string {
	cookie, err := r.Cookie(h.sessionConfig.CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func respondAuthError(w http.ResponseWriter, err error) {
	var authErr *identity.AuthError
	if errors.As(err, &authErr) {
		switch authErr.Reason {
		case identity.ReasonEmailRegistered:
			respondError(w, http.StatusConflict, "email is already registered")
		case identity.ReasonWeakPassword:
			respondError(w, http.StatusBadRequest, "password does not meet security requirements")
		case identity.ReasonInvalidEmail:
			respondError(w, http.StatusBadRequest, "invalid email address")
		default:
			respondError(w, http.StatusBadRequest, authErr.Reason)
		}
		return
	}
	respondError(w, http.StatusInternalServerError, "failed to create account")
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

func getIPAddress(r *http.Request) string {
	// Check X-Forwarded-For header first
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	// Check X-Real-IP header
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
