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

package business

import (
	"context"
	"errors"
	"time"
)

// Domain errors
var (
	ErrBusinessNotFound = errors.New("business not found")
	ErrBusinessExists   = errors.New("business already exists")
)

// Subscription tiers
const (
	TierStandard = "standard"
	TierPro      = "pro"
)

// Business is an isolated customer organization owning its own members,
// forms data, and invitations. Its identity is immutable once created;
// name and contact details may change.
type Business struct {
	ID           string
	Name         string
	ContactEmail string
	ContactPhone string
	Tier         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Repository defines the interface for business persistence
type Repository interface {
	// Create creates a new business
	Create(ctx context.Context, b *Business) error

	// GetByID retrieves a business by id
	GetByID(ctx context.Context, id string) (*Business, error)

	// Update updates mutable business details (name, contact info, tier)
	Update(ctx context.Context, b *Business) error

	// List lists businesses with pagination
	List(ctx context.Context, limit, offset int) ([]*Business, error)
}
