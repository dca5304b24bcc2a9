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
	"errors"
	"fmt"
)

// Terminal validation errors. These are surfaced verbatim to the caller
// and are never retried.
var (
	ErrMalformedCredential = errors.New("credential is not a recognized invitation format")
	ErrNotFound            = errors.New("invitation not found")
	ErrAlreadyUsed         = errors.New("invitation has already been used")
	ErrExpired             = errors.New("invitation has expired")
	ErrEmailMismatch       = errors.New("invitation is bound to a different email")
	ErrRoleNotInvitable    = errors.New("role cannot be granted by invitation")
	ErrInvalidExpiry       = errors.New("expiry window is out of range")
	ErrGenerationExhausted = errors.New("could not generate a unique credential")

	// ErrCredentialTaken is returned by repositories when the storage
	// uniqueness constraint on the credential column rejects an insert.
	ErrCredentialTaken = errors.New("credential already exists")
)

// TransientError marks a retryable infrastructure failure (network,
// timeout, storage outage), as opposed to the terminal validation errors
// above. Callers may retry with backoff at their discretion.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// Transient wraps err as a TransientError. Returns nil when err is nil.
func Transient(op string, err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Op: op, Err: err}
}

// IsTransient reports whether err is (or wraps) a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
