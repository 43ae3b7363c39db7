package store

import (
	"context"

	"github.com/stretchr/testify/suite"

	"trafficreg/internal/credential/token"
	"trafficreg/internal/vehicle/models"
	id "trafficreg/pkg/domain"
	"trafficreg/pkg/platform/sentinel"
)

type vehicleStore interface {
	Create(ctx context.Context, v *models.VehicleRegistration) (id.TokenID, error)
	FindByPlateNo(ctx context.Context, plateNo string) (*models.VehicleRegistration, error)
	FindByTokenID(ctx context.Context, tokenID id.TokenID) (*models.VehicleRegistration, error)
	ListByHolder(ctx context.Context, holder id.Address) ([]*models.VehicleRegistration, error)
	List(ctx context.Context, after id.TokenID, limit int) ([]*models.VehicleRegistration, error)
	Execute(ctx context.Context, plateNo string, validate func(*models.VehicleRegistration) error, mutate func(*models.VehicleRegistration)) (*models.VehicleRegistration, error)
	Stats(ctx context.Context) (token.Stats, error)
	BalanceOf(ctx context.Context, holder id.Address) (uint64, error)
}

// VehicleStoreSuite runs against every store implementation.
type VehicleStoreSuite struct {
	suite.Suite
	newStore func() vehicleStore
	store    vehicleStore
	ctx      context.Context
}

var (
	alice = id.DeriveAddress("alice")
	bob   = id.DeriveAddress("bob")
)

func (s *VehicleStoreSuite) SetupTest() {
	s.store = s.newStore()
	s.ctx = context.Background()
}

func (s *VehicleStoreSuite) register(plateNo string, holder id.Address) id.TokenID {
	v, err := models.NewVehicleRegistration(models.RegisterVehicleInput{
		VehiclePlateNo: plateNo,
		AddressUser:    holder,
		IdentityNo:     "ID-" + plateNo,
		VehicleModel:   "Honda Vision",
		ChassisNo:      "CH-" + plateNo,
		ColorPlate:     models.ColorPlateWhite,
	})
	s.Require().NoError(err)
	tokenID, err := s.store.Create(s.ctx, v)
	s.Require().NoError(err)
	return tokenID
}

func (s *VehicleStoreSuite) TestCreateAndFind() {
	s.Equal(id.TokenID(1), s.register("29A-1", alice))
	s.Equal(id.TokenID(2), s.register("29A-2", bob))

	dup, err := models.NewVehicleRegistration(models.RegisterVehicleInput{
		VehiclePlateNo: "29A-1", AddressUser: bob, IdentityNo: "x", VehicleModel: "x", ChassisNo: "x",
		ColorPlate: models.ColorPlateBlue,
	})
	s.Require().NoError(err)
	_, err = s.store.Create(s.ctx, dup)
	s.ErrorIs(err, sentinel.ErrAlreadyUsed)

	byToken, err := s.store.FindByTokenID(s.ctx, 2)
	s.Require().NoError(err)
	s.Equal("29A-2", byToken.VehiclePlateNo)

	_, err = s.store.FindByPlateNo(s.ctx, "30B-404")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *VehicleStoreSuite) TestExecuteMovesToken() {
	s.register("29A-1", alice)
	s.register("29A-2", alice)

	updated, err := s.store.Execute(s.ctx, "29A-1",
		func(v *models.VehicleRegistration) error { return v.CanMutate() },
		func(v *models.VehicleRegistration) { v.AddressUser = bob })
	s.Require().NoError(err)
	s.Equal(bob, updated.AddressUser)

	bobs, err := s.store.ListByHolder(s.ctx, bob)
	s.Require().NoError(err)
	s.Len(bobs, 1)

	stats, err := s.store.Stats(s.ctx)
	s.Require().NoError(err)
	s.Equal(token.Stats{EmittedCount: 2, HoldersCount: 2}, stats)

	page, err := s.store.List(s.ctx, 1, 10)
	s.Require().NoError(err)
	s.Require().Len(page, 1)
	s.Equal("29A-2", page[0].VehiclePlateNo)
}

func (s *VehicleStoreSuite) TestRevokedRecordsStayListed() {
	s.register("29A-1", alice)
	_, err := s.store.Execute(s.ctx, "29A-1",
		func(v *models.VehicleRegistration) error { return v.CanMutate() },
		func(v *models.VehicleRegistration) { v.ApplyRevocation() })
	s.Require().NoError(err)

	_, err = s.store.Execute(s.ctx, "29A-1",
		func(v *models.VehicleRegistration) error { return v.CanMutate() },
		func(v *models.VehicleRegistration) { v.AddressUser = bob })
	s.Error(err)

	got, err := s.store.FindByPlateNo(s.ctx, "29A-1")
	s.Require().NoError(err)
	s.Equal(id.StatusRevoked, got.Status)
	s.Equal(alice, got.AddressUser, "failed validation writes nothing")

	balance, err := s.store.BalanceOf(s.ctx, alice)
	s.Require().NoError(err)
	s.Equal(uint64(1), balance)
}
