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

package member

// Capability checks applied before any mutating team operation. They
// deliberately return the same ErrUnauthorized for "wrong business" and
// "insufficient role" so callers cannot probe another business's state.

// RequireInviter passes iff the actor is an active member of the given
// business whose role may issue invitations.
func RequireInviter(actor *Member, businessID string) error {
	if !actor.BelongsTo(businessID) {
		return ErrUnauthorized
	}
	if !actor.Role.CanInvite() {
		return ErrUnauthorized
	}
	return nil
}

// RequireTeamManager passes iff the actor is an active member of the
// given business whose role may administer the team.
func RequireTeamManager(actor *Member, businessID string) error {
	if !actor.BelongsTo(businessID) {
		return ErrUnauthorized
	}
	if !actor.Role.CanManageTeam() {
		return ErrUnauthorized
	}
	return nil
}
