package store_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"

	"youthsessions/internal/sessions/models"
	"youthsessions/internal/sessions/store"
)

// OverlayStoreSuite holds the behaviour every backend must share. reset, when
// set, empties shared backends before each test.
type OverlayStoreSuite struct {
	suite.Suite
	newStore func() store.Store
	reset    func(ctx context.Context) error
	store    store.Store
	now      time.Time
}

func (s *OverlayStoreSuite) SetupTest() {
	if s.reset != nil {
		s.Require().NoError(s.reset(context.Background()))
	}
	s.store = s.newStore()
	s.now = time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)
}

func (s *OverlayStoreSuite) overlay(sessionID, structureID string) models.Overlay {
	return models.Overlay{SessionID: sessionID, StructureID: structureID, ModifiedAt: s.now}
}

func (s *OverlayStoreSuite) TestGetAbsentOverlay() {
	got, err := s.store.Get(context.Background(), "missing")
	s.Require().NoError(err)
	s.False(got.Present())
}

func (s *OverlayStoreSuite) TestUpsertThenGet() {
	ctx := context.Background()
	o := s.overlay("42", "S1")
	o.Visible = true
	o.AutoRegistration = true
	s.Require().NoError(s.store.Upsert(ctx, o))

	got, err := s.store.Get(ctx, "42")
	s.Require().NoError(err)
	stored, ok := got.Get()
	s.Require().True(ok)
	s.Equal("S1", stored.StructureID)
	s.True(stored.Visible)
	s.True(stored.AutoRegistration)
	s.Nil(stored.ClosedAt)
	s.True(s.now.Equal(stored.ModifiedAt))
}

func (s *OverlayStoreSuite) TestUpsertIsLastWriteWins() {
	ctx := context.Background()
	first := s.overlay("42", "S1")
	first.Visible = true
	s.Require().NoError(s.store.Upsert(ctx, first))

	second := s.overlay("42", "S1")
	second.Visible = false
	second.ModifiedAt = s.now.Add(time.Minute)
	s.Require().NoError(s.store.Upsert(ctx, second))

	got, err := s.store.Get(ctx, "42")
	s.Require().NoError(err)
	stored, _ := got.Get()
	s.False(stored.Visible)
	s.True(second.ModifiedAt.Equal(stored.ModifiedAt))
}

func (s *OverlayStoreSuite) TestUpsertNeverClearsClosure() {
	ctx := context.Background()
	closed := s.now.Add(-time.Hour)
	o := s.overlay("42", "S1")
	o.ClosedAt = &closed
	s.Require().NoError(s.store.Upsert(ctx, o))

	toggled := s.overlay("42", "S1")
	toggled.Visible = true
	s.Require().NoError(s.store.Upsert(ctx, toggled))

	got, err := s.store.Get(ctx, "42")
	s.Require().NoError(err)
	stored, _ := got.Get()
	s.True(stored.Visible)
	s.Require().NotNil(stored.ClosedAt)
	s.True(closed.Equal(*stored.ClosedAt))

	s.Run("a later closure overwrites the earlier one", func() {
		later := s.now
		reclosed := s.overlay("42", "S1")
		reclosed.ClosedAt = &later
		s.Require().NoError(s.store.Upsert(ctx, reclosed))

		got, err := s.store.Get(ctx, "42")
		s.Require().NoError(err)
		stored, _ := got.Get()
		s.Require().NotNil(stored.ClosedAt)
		s.True(later.Equal(*stored.ClosedAt))
	})
}

func (s *OverlayStoreSuite) TestGetAllForStructure() {
	ctx := context.Background()
	s.Require().NoError(s.store.Upsert(ctx, s.overlay("2", "S1")))
	s.Require().NoError(s.store.Upsert(ctx, s.overlay("1", "S1")))
	s.Require().NoError(s.store.Upsert(ctx, s.overlay("3", "S2")))

	got, err := s.store.GetAllForStructure(ctx, "S1")
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal("1", got[0].SessionID)
	s.Equal("2", got[1].SessionID)

	none, err := s.store.GetAllForStructure(ctx, "S9")
	s.Require().NoError(err)
	s.Empty(none)
}

func (s *OverlayStoreSuite) TestGetManyReturnsOnlyStored() {
	ctx := context.Background()
	s.Require().NoError(s.store.Upsert(ctx, s.overlay("1", "S1")))
	s.Require().NoError(s.store.Upsert(ctx, s.overlay("3", "S1")))

	got, err := s.store.GetMany(ctx, []string{"1", "2", "3", "1"})
	s.Require().NoError(err)
	s.Len(got, 2)
	s.Contains(got, "1")
	s.Contains(got, "3")
	s.NotContains(got, "2")

	empty, err := s.store.GetMany(ctx, nil)
	s.Require().NoError(err)
	s.Empty(empty)
}

func (s *OverlayStoreSuite) TestCloseMany() {
	ctx := context.Background()
	earlier := s.now.Add(-24 * time.Hour)
	already := s.overlay("1", "S1")
	already.ClosedAt = &earlier
	s.Require().NoError(s.store.Upsert(ctx, already))

	open := s.overlay("2", "S1")
	open.Visible = true
	open.AutoRegistration = true
	s.Require().NoError(s.store.Upsert(ctx, open))

	// The reminder was seen two hours before the closure job ran.
	observed := s.now.Add(-2 * time.Hour)
	n, err := s.store.CloseMany(ctx, "S1", []string{"1", "2", "3", "3"}, observed, s.now)
	s.Require().NoError(err)
	s.Equal(2, n)

	got, err := s.store.GetMany(ctx, []string{"1", "2", "3"})
	s.Require().NoError(err)
	s.Require().Len(got, 3)

	s.True(earlier.Equal(*got["1"].ClosedAt))
	s.True(observed.Equal(*got["2"].ClosedAt))
	s.True(s.now.Equal(got["2"].ModifiedAt))
	s.True(got["2"].Visible)
	s.True(got["2"].AutoRegistration)
	s.True(observed.Equal(*got["3"].ClosedAt))
	s.True(s.now.Equal(got["3"].ModifiedAt))
	s.False(got["3"].Visible)
	s.False(got["3"].AutoRegistration)
	s.Equal("S1", got["3"].StructureID)

	listed, err := s.store.GetAllForStructure(ctx, "S1")
	s.Require().NoError(err)
	s.Len(listed, 3)

	s.Run("closing again changes nothing", func() {
		n, err := s.store.CloseMany(ctx, "S1", []string{"1", "2", "3"}, s.now, s.now.Add(time.Hour))
		s.Require().NoError(err)
		s.Zero(n)
	})
}
