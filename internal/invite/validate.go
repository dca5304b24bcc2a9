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
	"strings"
	"time"
)

// minTokenLength rejects obviously truncated opaque tokens before a
// storage round trip.
const minTokenLength = 20

// Validator decides whether a presented credential is acceptable. It is
// read-only and side-effect-free; it may be called repeatedly without
// consuming the invitation. Email binding is checked at redemption time,
// not here, since the redeemer's email is unknown during validation.
type Validator struct {
	repo   Repository
	signer *TokenSigner
	now    func() time.Time
}

// NewValidator creates an invitation validator.
func NewValidator(repo Repository, signer *TokenSigner) *Validator {
	return &Validator{
		repo:   repo,
		signer: signer,
		now:    time.Now,
	}
}

// Validate runs the ordered short-circuit checks: format, existence,
// prior consumption, expiry.
func (v *Validator) Validate(ctx context.Context, credential string) (*Invitation, error) {
	lookup, err := v.normalize(credential)
	if err != nil {
		return nil, err
	}

	inv, err := v.repo.GetByCredential(ctx, lookup)
	if err != nil {
		return nil, err
	}

	if !inv.Pending() {
		return nil, ErrAlreadyUsed
	}
	if inv.ExpiredAt(v.now()) {
		return nil, ErrExpired
	}

	return inv, nil
}

// normalize maps the three accepted wire forms onto the stored
// credential: a short code (possibly lowercased or hyphenated for
// display), a signed invite-link token, or a raw opaque token.
func (v *Validator) normalize(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrMalformedCredential
	}

	if code := NormalizeCode(raw); IsValidShortCodeFormat(code) {
		return code, nil
	}

	// Signed tokens have the three-part JWT shape.
	if v.signer != nil && strings.Count(raw, ".") == 2 {
		return v.signer.Verify(raw)
	}

	if len(raw) >= minTokenLength && isOpaqueToken(raw) {
		return raw, nil
	}

	return "", ErrMalformedCredential
}

// isOpaqueToken reports whether s is plausible base64url token material.
func isOpaqueToken(s string) bool {
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_':
		default:
			return false
		}
	}
	return true
}
