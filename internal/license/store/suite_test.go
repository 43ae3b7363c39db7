package store

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"

	"trafficreg/internal/credential/token"
	"trafficreg/internal/license/models"
	id "trafficreg/pkg/domain"
	"trafficreg/pkg/platform/sentinel"
)

type licenseStore interface {
	Create(ctx context.Context, l *models.DriverLicense) (id.TokenID, error)
	FindByLicenseNo(ctx context.Context, licenseNo string) (*models.DriverLicense, error)
	FindByTokenID(ctx context.Context, tokenID id.TokenID) (*models.DriverLicense, error)
	ListByHolder(ctx context.Context, holder id.Address) ([]*models.DriverLicense, error)
	List(ctx context.Context, after id.TokenID, limit int) ([]*models.DriverLicense, error)
	Execute(ctx context.Context, licenseNo string, validate func(*models.DriverLicense) error, mutate func(*models.DriverLicense)) (*models.DriverLicense, error)
	Stats(ctx context.Context) (token.Stats, error)
	BalanceOf(ctx context.Context, holder id.Address) (uint64, error)
}

// LicenseStoreSuite runs against every store implementation.
type LicenseStoreSuite struct {
	suite.Suite
	newStore func() licenseStore
	store    licenseStore
	ctx      context.Context
}

var (
	alice     = id.DeriveAddress("alice")
	bob       = id.DeriveAddress("bob")
	issueDate = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
)

func (s *LicenseStoreSuite) SetupTest() {
	s.store = s.newStore()
	s.ctx = context.Background()
}

func (s *LicenseStoreSuite) newLicense(licenseNo string, holder id.Address) *models.DriverLicense {
	l, err := modelsFixture(licenseNo, holder)
	s.Require().NoError(err)
	return l
}

func modelsFixture(licenseNo string, holder id.Address) (*models.DriverLicense, error) {
	return models.NewDriverLicense(models.IssueLicenseInput{
		LicenseNo:     licenseNo,
		HolderAddress: holder,
		HolderID:      "ID-" + licenseNo,
		Name:          "Holder " + licenseNo,
		LicenseType:   "A1",
		IssueDate:     issueDate,
		ExpiryDate:    issueDate.AddDate(10, 0, 0),
		AuthorityID:   "AG-01",
	})
}

func (s *LicenseStoreSuite) create(licenseNo string, holder id.Address) id.TokenID {
	tokenID, err := s.store.Create(s.ctx, s.newLicense(licenseNo, holder))
	s.Require().NoError(err)
	return tokenID
}

func (s *LicenseStoreSuite) TestCreateAssignsSequentialTokens() {
	s.Equal(id.TokenID(1), s.create("DL-1", alice))
	s.Equal(id.TokenID(2), s.create("DL-2", bob))

	_, err := s.store.Create(s.ctx, s.newLicense("DL-1", bob))
	s.ErrorIs(err, sentinel.ErrAlreadyUsed)

	s.Equal(id.TokenID(3), s.create("DL-3", alice), "a rejected duplicate consumes no token")
}

func (s *LicenseStoreSuite) TestFind() {
	tokenID := s.create("DL-1", alice)

	byNo, err := s.store.FindByLicenseNo(s.ctx, "DL-1")
	s.Require().NoError(err)
	s.Equal(tokenID, byNo.TokenID)
	s.Equal(alice, byNo.HolderAddress)

	byToken, err := s.store.FindByTokenID(s.ctx, tokenID)
	s.Require().NoError(err)
	s.Equal(byNo, byToken)

	_, err = s.store.FindByLicenseNo(s.ctx, "DL-404")
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.store.FindByTokenID(s.ctx, 404)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *LicenseStoreSuite) TestListAndHolderIndex() {
	s.create("DL-1", alice)
	s.create("DL-2", bob)
	s.create("DL-3", alice)

	mine, err := s.store.ListByHolder(s.ctx, alice)
	s.Require().NoError(err)
	s.Require().Len(mine, 2)
	s.Equal("DL-1", mine[0].LicenseNo)
	s.Equal("DL-3", mine[1].LicenseNo)

	none, err := s.store.ListByHolder(s.ctx, id.DeriveAddress("nobody"))
	s.Require().NoError(err)
	s.Empty(none)

	page, err := s.store.List(s.ctx, 1, 1)
	s.Require().NoError(err)
	s.Require().Len(page, 1)
	s.Equal("DL-2", page[0].LicenseNo)

	all, err := s.store.List(s.ctx, 0, 0)
	s.Require().NoError(err)
	s.Len(all, 3)
}

func (s *LicenseStoreSuite) TestExecuteKeepsIndicesConsistent() {
	tokenID := s.create("DL-1", alice)
	s.create("DL-2", alice)

	updated, err := s.store.Execute(s.ctx, "DL-1",
		func(*models.DriverLicense) error { return nil },
		func(l *models.DriverLicense) {
			l.HolderAddress = bob
			l.Point = 3
		})
	s.Require().NoError(err)
	s.Equal(tokenID, updated.TokenID)
	s.Equal(3, updated.Point)

	aliceBalance, err := s.store.BalanceOf(s.ctx, alice)
	s.Require().NoError(err)
	s.Equal(uint64(1), aliceBalance)
	bobBalance, err := s.store.BalanceOf(s.ctx, bob)
	s.Require().NoError(err)
	s.Equal(uint64(1), bobBalance)

	bobs, err := s.store.ListByHolder(s.ctx, bob)
	s.Require().NoError(err)
	s.Require().Len(bobs, 1)
	s.Equal("DL-1", bobs[0].LicenseNo)

	stats, err := s.store.Stats(s.ctx)
	s.Require().NoError(err)
	s.Equal(token.Stats{EmittedCount: 2, HoldersCount: 2}, stats)
}

func (s *LicenseStoreSuite) TestExecuteValidationFailureWritesNothing() {
	s.create("DL-1", alice)

	_, err := s.store.Execute(s.ctx, "DL-1",
		func(*models.DriverLicense) error { return sentinel.ErrInvalidState },
		func(l *models.DriverLicense) { l.Point = 0 })
	s.ErrorIs(err, sentinel.ErrInvalidState)

	l, err := s.store.FindByLicenseNo(s.ctx, "DL-1")
	s.Require().NoError(err)
	s.Equal(models.MaxPoint, l.Point)

	_, err = s.store.Execute(s.ctx, "DL-404",
		func(*models.DriverLicense) error { return nil },
		func(*models.DriverLicense) {})
	s.ErrorIs(err, sentinel.ErrNotFound)
}
