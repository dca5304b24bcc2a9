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
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// TokenSigner wraps a token-kind credential in a signed JWT for
// out-of-band delivery. The signature proves the link came from us; the
// persisted row stays the source of truth for expiry and consumption,
// so claims are carried for transparency only.
type TokenSigner struct {
	secret []byte
	issuer string
}

// NewTokenSigner creates a signer with the given HMAC secret.
func NewTokenSigner(secret []byte, issuer string) *TokenSigner {
	return &TokenSigner{secret: secret, issuer: issuer}
}

type tokenClaims struct {
	BusinessID string `json:"biz"`
	Email      string `json:"email,omitempty"`
	Role       string `json:"role"`
	jwt.RegisteredClaims
}

// Mint produces the signed wire form of a token-kind invitation. The
// opaque credential travels as the JWT ID.
func (s *TokenSigner) Mint(inv *Invitation) (string, error) {
	claims := tokenClaims{
		BusinessID: inv.BusinessID,
		Email:      inv.BoundEmail,
		Role:       string(inv.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        inv.Credential,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(inv.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(inv.ExpiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign invite token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature of a signed invite token and returns the
// embedded opaque credential. Claim expiry is deliberately not enforced
// here: the validator reports Expired from the stored row so a stale
// link yields the right error, not a parse failure.
func (s *TokenSigner) Verify(raw string) (string, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	var claims tokenClaims
	_, err := parser.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		return "", ErrMalformedCredential
	}
	if claims.ID == "" {
		return "", ErrMalformedCredential
	}
	return claims.ID, nil
}
