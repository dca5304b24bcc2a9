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
	"context"

	"github.com/careforms/careforms/internal/member"
)

type contextKey string

const (
	identityIDKey contextKey = "identity_id"
	sessionIDKey  contextKey = "session_id"
	memberKey     contextKey = "member"
)

// GetIdentityID retrieves the authenticated identity id from context.
func GetIdentityID(ctx context.Context) string {
	if val, ok := ctx.Value(identityIDKey).(string); ok {
		return val
	}
	return ""
}

// GetSessionID retrieves the session id from context.
func GetSessionID(ctx context.Context) string {
	if val, ok := ctx.Value(sessionIDKey).(string); ok {
		return val
	}
	return ""
}

// GetMember retrieves the authenticated business member from context.
// Returns nil when the caller has no membership resolved.
func GetMember(ctx context.Context) *member.Member {
	if val, ok := ctx.Value(memberKey).(*member.Member); ok {
		return val
	}
	return nil
}
