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

import "fmt"

// Role is the closed set of roles a member can hold within a business.
// Authorization decisions consult the capability table below; call sites
// must never re-derive role logic from string comparisons.
type Role string

const (
	RoleOwner   Role = "owner"
	RoleManager Role = "manager"
	RoleStaff   Role = "staff"
)

// capabilities describes what a role is allowed to do.
type capabilities struct {
	invite     bool
	manageTeam bool
	issuable   []Role
}

// capabilityTable is the single source of truth for role permissions.
// No role may issue an owner invitation; ownership is granted only at
// business creation.
var capabilityTable = map[Role]capabilities{
	RoleOwner: {
		invite:     true,
		manageTeam: true,
		issuable:   []Role{RoleManager, RoleStaff},
	},
	RoleManager: {
		invite:     true,
		manageTeam: true,
		issuable:   []Role{RoleManager, RoleStaff},
	},
	RoleStaff: {},
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := capabilityTable[r]
	return ok
}

// CanInvite reports whether the role may issue invitations.
func (r Role) CanInvite() bool {
	return capabilityTable[r].invite
}

// CanManageTeam reports whether the role may view and administer the
// business's members and pending invitations.
func (r Role) CanManageTeam() bool {
	return capabilityTable[r].manageTeam
}

// CanIssueRole reports whether the role may issue an invitation granting
// the target role.
func (r Role) CanIssueRole(target Role) bool {
	for _, t := range capabilityTable[r].issuable {
		if t == target {
			return true
		}
	}
	return false
}

// ParseRole converts a stored or user-supplied role string into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}
