// Package seeder fills the in-memory stores with demo data for local runs
// against a partner sandbox.
package seeder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	identitystore "youthsessions/internal/identity/store"
	"youthsessions/internal/sessions/models"
)

// IdentityStore defines methods for seeding counsellors and youths
type IdentityStore interface {
	SaveCounsellor(ctx context.Context, c identitystore.Counsellor) error
	SaveYouth(ctx context.Context, y identitystore.Youth) error
}

// OverlayStore defines methods for seeding session overlays
type OverlayStore interface {
	Upsert(ctx context.Context, overlay models.Overlay) error
}

// Seeder populates in-memory stores with demo data
type Seeder struct {
	identities IdentityStore
	overlays   OverlayStore
	logger     *slog.Logger
}

func New(identities IdentityStore, overlays OverlayStore, logger *slog.Logger) *Seeder {
	return &Seeder{
		identities: identities,
		overlays:   overlays,
		logger:     logger,
	}
}

// DemoCounsellors are the counsellor ids the seeded data is reachable with.
var DemoCounsellors = []identitystore.Counsellor{
	{ID: "demo-counsellor-paris", StructureID: "75001", Timezone: "Europe/Paris"},
	{ID: "demo-counsellor-lyon", StructureID: "69001", Timezone: "Europe/Paris"},
	{ID: "demo-counsellor-reunion", StructureID: "97401", Timezone: "Indian/Reunion"},
}

// SeedAll populates all stores with demo data
func (s *Seeder) SeedAll(ctx context.Context) error {
	s.logger.InfoContext(ctx, "seeding demo data")

	for _, c := range DemoCounsellors {
		if err := s.identities.SaveCounsellor(ctx, c); err != nil {
			return fmt.Errorf("failed to seed counsellor %s: %w", c.ID, err)
		}
	}

	youths := 0
	for i := 1; i <= 12; i++ {
		y := identitystore.Youth{
			ID:        fmt.Sprintf("demo-youth-%02d", i),
			PartnerID: fmt.Sprintf("D%06d", 100000+i),
		}
		if err := s.identities.SaveYouth(ctx, y); err != nil {
			return fmt.Errorf("failed to seed youth %s: %w", y.ID, err)
		}
		youths++
	}

	overlays, err := s.seedOverlays(ctx)
	if err != nil {
		return fmt.Errorf("failed to seed overlays: %w", err)
	}

	s.logger.InfoContext(ctx, "demo data seeded",
		"counsellors", len(DemoCounsellors),
		"youths", youths,
		"overlays", overlays,
	)
	return nil
}

func (s *Seeder) seedOverlays(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	closed := now.Add(-24 * time.Hour)

	demo := []models.Overlay{
		{SessionID: "demo-session-visible", StructureID: "75001", Visible: true},
		{SessionID: "demo-session-closed", StructureID: "75001", Visible: true, ClosedAt: &closed},
		{SessionID: "demo-session-hidden", StructureID: "69001"},
	}
	for _, o := range demo {
		o.ModifiedAt = now
		if err := s.overlays.Upsert(ctx, o); err != nil {
			return 0, err
		}
	}
	return len(demo), nil
}
