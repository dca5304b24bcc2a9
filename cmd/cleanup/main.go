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

// One-shot maintenance sweep for cron use. Removes expired sessions and
// expired invitations past the retention window. The server runs the
// same sweep hourly; this binary exists for deployments that prefer an
// external scheduler.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/careforms/careforms/internal/config"
	"github.com/careforms/careforms/internal/store/postgres"
	"github.com/joho/godotenv"
)

func main() {
	retentionDays := flag.Int("retention-days", 90, "keep expired invitations this many days before deleting")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()
	db, err := postgres.New(ctx, postgres.Config{
		Host:         cfg.Database.Host,
		Port:         cfg.Database.Port,
		User:         cfg.Database.User,
		Password:     cfg.Database.Password,
		Database:     cfg.Database.Database,
		SSLMode:      cfg.Database.SSLMode,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer db.Close()

	sessionRepo := postgres.NewSessionRepository(db)
	if err := sessionRepo.DeleteExpired(ctx); err != nil {
		log.Fatalf("Failed to delete expired sessions: %v", err)
	}
	fmt.Println("Expired sessions removed.")

	invitationRepo := postgres.NewInvitationRepository(db)
	cutoff := time.Now().AddDate(0, 0, -*retentionDays)
	n, err := invitationRepo.DeleteExpiredBefore(ctx, cutoff)
	if err != nil {
		log.Fatalf("Failed to sweep invitations: %v", err)
	}
	fmt.Printf("Removed %d stale invitations.\n", n)
}
