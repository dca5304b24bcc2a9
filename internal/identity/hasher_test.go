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

package identity

import (
	"strings"
	"testing"
)

// TestPurpose: Validates Argon2id hashing and verification round trip.
// Scope: Unit Test
// Security: Password storage (no plaintext, salted hashes, deterministic verify)
// Expected: Correct password verifies, wrong password fails, two hashes of the same password differ.
// Test Case ID: HSH-01
func TestIdentity_PasswordHasher_RoundTrip(t *testing.T) {
	hasher := NewPasswordHasher(65536, 3, 4, 16, 32)

	hash, err := hasher.Hash("SecurePassword123")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$") {
		t.Errorf("unexpected hash format: %s", hash)
	}
	if strings.Contains(hash, "SecurePassword123") {
		t.Error("hash contains the plaintext password")
	}

	ok, err := hasher.Verify("SecurePassword123", hash)
	if err != nil || !ok {
		t.Errorf("expected verify success, got ok=%v err=%v", ok, err)
	}

	ok, err = hasher.Verify("WrongPassword", hash)
	if err != nil {
		t.Fatalf("verify errored: %v", err)
	}
	if ok {
		t.Error("wrong password verified")
	}

	// Salts must make repeated hashes distinct.
	other, err := hasher.Hash("SecurePassword123")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if other == hash {
		t.Error("two hashes of the same password are identical")
	}
}

// Test Case ID: HSH-02
func TestIdentity_PasswordHasher_MalformedHash(t *testing.T) {
	hasher := NewPasswordHasher(65536, 3, 4, 16, 32)

	for _, bad := range []string{"", "plaintext", "$argon2id$v=19$broken"} {
		if _, err := hasher.Verify("anything", bad); err == nil {
			t.Errorf("expected error for malformed hash %q", bad)
		}
	}
}
