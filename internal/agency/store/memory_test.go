package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"trafficreg/internal/agency/models"
	id "trafficreg/pkg/domain"
	"trafficreg/pkg/platform/sentinel"
)

type AgencyStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *AgencyStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestAgencyStoreSuite(t *testing.T) {
	suite.Run(t, new(AgencyStoreSuite))
}

func (s *AgencyStoreSuite) newAgency(agencyID string) *models.Agency {
	a, err := models.NewAgency(models.IssueAgencyInput{
		Address:  id.DeriveAddress(agencyID),
		AgencyID: agencyID,
		Name:     "Agency " + agencyID,
		Location: "Hanoi",
	}, time.Now())
	s.Require().NoError(err)
	return a
}

func (s *AgencyStoreSuite) TestCreateAndFind() {
	s.Run("creates and finds by id", func() {
		a := s.newAgency("AG-1")
		s.Require().NoError(s.store.Create(s.ctx, a))
		found, err := s.store.FindByID(s.ctx, "AG-1")
		s.Require().NoError(err)
		s.Equal(a, found)
	})

	s.Run("rejects duplicate id", func() {
		err := s.store.Create(s.ctx, s.newAgency("AG-1"))
		s.ErrorIs(err, sentinel.ErrAlreadyUsed)
	})

	s.Run("returns ErrNotFound for unknown id", func() {
		_, err := s.store.FindByID(s.ctx, "AG-404")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("returned records are copies", func() {
		found, err := s.store.FindByID(s.ctx, "AG-1")
		s.Require().NoError(err)
		found.Name = "mutated"
		again, err := s.store.FindByID(s.ctx, "AG-1")
		s.Require().NoError(err)
		s.Equal("Agency AG-1", again.Name)
	})
}

func (s *AgencyStoreSuite) TestListOrderedWithCursor() {
	for _, agencyID := range []string{"AG-3", "AG-1", "AG-2"} {
		s.Require().NoError(s.store.Create(s.ctx, s.newAgency(agencyID)))
	}
	page, err := s.store.List(s.ctx, "", 2)
	s.Require().NoError(err)
	s.Require().Len(page, 2)
	s.Equal("AG-1", page[0].AgencyID)
	s.Equal("AG-2", page[1].AgencyID)

	page, err = s.store.List(s.ctx, "AG-2", 2)
	s.Require().NoError(err)
	s.Require().Len(page, 1)
	s.Equal("AG-3", page[0].AgencyID)
}

func (s *AgencyStoreSuite) TestFindByAddress() {
	shared := id.DeriveAddress("shared")
	for _, agencyID := range []string{"AG-2", "AG-1"} {
		a := s.newAgency(agencyID)
		a.Address = shared
		s.Require().NoError(s.store.Create(s.ctx, a))
	}
	s.Require().NoError(s.store.Create(s.ctx, s.newAgency("AG-3")))

	found, err := s.store.FindByAddress(s.ctx, shared)
	s.Require().NoError(err)
	s.Require().Len(found, 2)
	s.Equal("AG-1", found[0].AgencyID)
	s.Equal("AG-2", found[1].AgencyID)

	found, err = s.store.FindByAddress(s.ctx, id.DeriveAddress("nobody"))
	s.Require().NoError(err)
	s.Empty(found)
}

func (s *AgencyStoreSuite) TestExecute() {
	s.Require().NoError(s.store.Create(s.ctx, s.newAgency("AG-1")))
	now := time.Now()

	updated, err := s.store.Execute(s.ctx, "AG-1", (*models.Agency).CanRevoke, func(a *models.Agency) {
		a.ApplyRevocation(now)
	})
	s.Require().NoError(err)
	s.Equal(id.StatusRevoked, updated.Status)

	_, err = s.store.Execute(s.ctx, "AG-1", (*models.Agency).CanRevoke, func(a *models.Agency) {
		s.Fail("mutate must not run when validation fails")
	})
	s.Error(err)

	_, err = s.store.Execute(s.ctx, "AG-404", (*models.Agency).CanRevoke, func(*models.Agency) {})
	s.ErrorIs(err, sentinel.ErrNotFound)
}
