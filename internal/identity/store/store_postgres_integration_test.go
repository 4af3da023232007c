//go:build integration

package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"youthsessions/internal/identity/store"
	"youthsessions/internal/sentinel"
	"youthsessions/pkg/testutil/containers"
)

type PostgresIdentitySuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresIdentitySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresIdentitySuite))
}

func (s *PostgresIdentitySuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresIdentitySuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "youth_partner_ids", "counsellor_structures"))
}

func (s *PostgresIdentitySuite) TestResolvesBothDirections() {
	ctx := context.Background()
	s.Require().NoError(s.store.SaveYouth(ctx, store.Youth{ID: "y1", PartnerID: "1001"}))
	s.Require().NoError(s.store.SaveYouth(ctx, store.Youth{ID: "y2", PartnerID: "1002"}))

	local, err := s.store.LocalIDsByPartnerID(ctx, []string{"1001", "1002", "9999"})
	s.Require().NoError(err)
	s.Equal(map[string]string{"1001": "y1", "1002": "y2"}, local)

	partner, err := s.store.PartnerIDsByLocalID(ctx, []string{"y1", "ghost"})
	s.Require().NoError(err)
	s.Equal(map[string]string{"y1": "1001"}, partner)

	empty, err := s.store.LocalIDsByPartnerID(ctx, nil)
	s.Require().NoError(err)
	s.Empty(empty)
}

func (s *PostgresIdentitySuite) TestStructureForCounsellor() {
	ctx := context.Background()
	s.Require().NoError(s.store.SaveCounsellor(ctx, store.Counsellor{ID: "c1", StructureID: "S1", Timezone: "America/Cayenne"}))
	s.Require().NoError(s.store.SaveCounsellor(ctx, store.Counsellor{ID: "c1", StructureID: "S2", Timezone: "Europe/Paris"}))

	st, err := s.store.StructureForCounsellor(ctx, "c1")
	s.Require().NoError(err)
	s.Equal("S2", st.ID)
	s.Equal("Europe/Paris", st.Timezone)

	_, err = s.store.StructureForCounsellor(ctx, "nobody")
	s.ErrorIs(err, sentinel.ErrNotFound)
}
