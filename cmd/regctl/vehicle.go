package main

import (
	"context"
	"net/http"

	"github.com/spf13/cobra"
)

func newVehicleCmd(newClient clientFactory) *cobra.Command {
	cmd := &cobra.Command{Use: "vehicle", Short: "Vehicle registrations"}

	var in struct {
		VehiclePlateNo string `json:"vehicle_plate_no"`
		AddressUser    string `json:"address_user"`
		IdentityNo     string `json:"identity_no"`
		VehicleModel   string `json:"vehicle_model"`
		ChassisNo      string `json:"chassis_no"`
		ColorPlate     string `json:"color_plate"`
	}
	register := &cobra.Command{
		Use:   "register",
		Short: "Register a vehicle",
		Args:  cobra.NoArgs,
		RunE: call(newClient, func(ctx context.Context, c *client, _ []string) error {
			return c.do(ctx, http.MethodPost, "/v1/vehicles", nil, in)
		}),
	}
	f := register.Flags()
	f.StringVar(&in.VehiclePlateNo, "plate", "", "plate number")
	f.StringVar(&in.AddressUser, "holder", "", "holder address")
	f.StringVar(&in.IdentityNo, "identity", "", "holder identity number")
	f.StringVar(&in.VehicleModel, "model", "", "vehicle model")
	f.StringVar(&in.ChassisNo, "chassis", "", "chassis number")
	f.StringVar(&in.ColorPlate, "color", "WHITE", "plate colour: WHITE, YELLOW, BLUE or RED")
	for _, name := range []string{"plate", "holder", "identity", "model", "chassis"} {
		_ = register.MarkFlagRequired(name)
	}

	update := &cobra.Command{
		Use:   "update PLATE_NO",
		Short: "Change the holder identity or address",
		Args:  cobra.ExactArgs(1),
	}
	update.Flags().String("identity", "", "holder identity number")
	update.Flags().String("holder", "", "holder address")
	update.RunE = func(cmd *cobra.Command, args []string) error {
		body, err := changedFields(cmd, map[string]string{
			"identity": "identity_no",
			"holder":   "address_user",
		})
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		return c.do(cmd.Context(), http.MethodPatch, "/v1/vehicles"+pathEscape(args[0]), nil, body)
	}

	cmd.AddCommand(register, update)
	cmd.AddCommand(credentialCmds(newClient, "vehicles", "PLATE_NO")...)
	return cmd
}
