package store

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"

	"trafficreg/internal/offence/models"
	id "trafficreg/pkg/domain"
	"trafficreg/pkg/platform/sentinel"
)

type ruleStore interface {
	Create(ctx context.Context, r *models.RenewRule) (int64, error)
	FindActive(ctx context.Context, licenseType string) (*models.RenewRule, error)
	FindLatest(ctx context.Context, licenseType string) (*models.RenewRule, error)
	List(ctx context.Context) ([]*models.RenewRule, error)
	RevokeActive(ctx context.Context, licenseType string, at time.Time) (*models.RenewRule, error)
}

// RuleStoreSuite runs against every store implementation.
type RuleStoreSuite struct {
	suite.Suite
	newStore func() ruleStore
	store    ruleStore
	ctx      context.Context
}

var createdAt = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

func (s *RuleStoreSuite) SetupTest() {
	s.store = s.newStore()
	s.ctx = context.Background()
}

func (s *RuleStoreSuite) add(licenseType string, bonus int) (int64, error) {
	r, err := models.NewRenewRule(models.AddRenewRuleInput{LicenseType: licenseType, BonusTime: bonus, Description: "rule"}, createdAt)
	s.Require().NoError(err)
	return s.store.Create(s.ctx, r)
}

func (s *RuleStoreSuite) TestOneActiveRulePerType() {
	first, err := s.add("A1", 2)
	s.Require().NoError(err)
	s.Equal(int64(1), first)

	_, err = s.add("A1", 3)
	s.ErrorIs(err, sentinel.ErrAlreadyUsed)

	other, err := s.add("B2", 5)
	s.Require().NoError(err)
	s.Equal(int64(2), other)

	revoked, err := s.store.RevokeActive(s.ctx, "A1", createdAt.Add(time.Hour))
	s.Require().NoError(err)
	s.Equal(id.StatusRevoked, revoked.Status)
	s.Require().NotNil(revoked.RevokedAt)
	s.True(revoked.RevokedAt.Equal(createdAt.Add(time.Hour)))

	_, err = s.store.FindActive(s.ctx, "A1")
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.store.RevokeActive(s.ctx, "A1", createdAt)
	s.ErrorIs(err, sentinel.ErrNotFound)

	third, err := s.add("A1", 4)
	s.Require().NoError(err)
	s.Equal(int64(3), third)
}

func (s *RuleStoreSuite) TestLatestAndHistory() {
	_, err := s.store.FindLatest(s.ctx, "A1")
	s.ErrorIs(err, sentinel.ErrNotFound)

	_, err = s.add("A1", 2)
	s.Require().NoError(err)
	_, err = s.store.RevokeActive(s.ctx, "A1", createdAt)
	s.Require().NoError(err)
	_, err = s.add("A1", 7)
	s.Require().NoError(err)

	latest, err := s.store.FindLatest(s.ctx, "A1")
	s.Require().NoError(err)
	s.Equal(7, latest.BonusTime)
	s.True(latest.IsActive())

	all, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 2)
	s.Equal(id.StatusRevoked, all[0].Status)
	s.Equal(id.StatusActive, all[1].Status)
}
