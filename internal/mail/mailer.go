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

package mail

import (
	"context"
	"log/slog"
	"time"
)

// Invitation is the content of an invitation email.
type Invitation struct {
	ToEmail      string
	BusinessName string
	Role         string
	Link         string
	ExpiresAt    time.Time
}

// Mailer delivers invitation emails. Delivery is out of band; a failed
// send never invalidates the invitation itself.
type Mailer interface {
	SendInvitation(ctx context.Context, inv Invitation) error
}

// Disabled is a Mailer that logs instead of sending, used when no
// delivery backend is configured.
type Disabled struct{}

// SendInvitation logs the would-be delivery and succeeds.
func (Disabled) SendInvitation(ctx context.Context, inv Invitation) error {
	slog.InfoContext(ctx, "mail delivery disabled, skipping invitation email",
		slog.String("to", inv.ToEmail),
		slog.String("business", inv.BusinessName),
	)
	return nil
}
