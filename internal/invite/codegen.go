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
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"regexp"
)

const (
	// ShortCodeLength is 4 uppercase letters followed by 4 digits.
	ShortCodeLength = 8

	shortCodeLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	shortCodeDigits  = "0123456789"

	// tokenEntropyBytes yields a 43-character base64url credential.
	tokenEntropyBytes = 32
)

var shortCodePattern = regexp.MustCompile(`^[A-Za-z]{4}[0-9]{4}$`)

// GenerateShortCode produces an 8-character code: 4 uppercase letters
// drawn uniformly from A-Z followed by 4 digits drawn uniformly from
// 0-9, from a cryptographic random source. Uniqueness is not guaranteed
// by construction; callers must verify non-collision before persisting.
func GenerateShortCode() (string, error) {
	buf := make([]byte, ShortCodeLength)
	for i := 0; i < 4; i++ {
		c, err := randomIndex(len(shortCodeLetters))
		if err != nil {
			return "", fmt.Errorf("failed to generate short code: %w", err)
		}
		buf[i] = shortCodeLetters[c]
	}
	for i := 4; i < 8; i++ {
		c, err := randomIndex(len(shortCodeDigits))
		if err != nil {
			return "", fmt.Errorf("failed to generate short code: %w", err)
		}
		buf[i] = shortCodeDigits[c]
	}
	return string(buf), nil
}

// GenerateToken produces a long unguessable opaque credential.
func GenerateToken() (string, error) {
	buf := make([]byte, tokenEntropyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// IsValidShortCodeFormat checks the exact 4-letter+4-digit pattern,
// case-insensitively.
func IsValidShortCodeFormat(s string) bool {
	return shortCodePattern.MatchString(s)
}

// randomIndex returns a uniform value in [0, n) using rejection sampling
// so the modulo does not bias small alphabets.
func randomIndex(n int) (int, error) {
	max := 256 - (256 % n)
	var b [1]byte
	for {
		if _, err := rand.Read(b[:]); err != nil {
			return 0, err
		}
		if int(b[0]) < max {
			return int(b[0]) % n, nil
		}
	}
}
