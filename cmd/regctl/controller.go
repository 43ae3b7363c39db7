package main

import (
	"context"
	"net/http"

	"github.com/spf13/cobra"
)

// call adapts a request function to a cobra RunE.
func call(newClient clientFactory, fn func(ctx context.Context, c *client, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		return fn(cmd.Context(), c, args)
	}
}

func newControllerCmd(newClient clientFactory) *cobra.Command {
	cmd := &cobra.Command{Use: "controller", Short: "Peer bindings and the pause switch"}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show bound peers and pause state",
			Args:  cobra.NoArgs,
			RunE: call(newClient, func(ctx context.Context, c *client, _ []string) error {
				return c.do(ctx, http.MethodGet, "/v1/controller", nil, nil)
			}),
		},
		&cobra.Command{
			Use:   "set-peer KIND ADDRESS",
			Short: "Bind a registry address (gov-agency, vehicle-registration, offence-and-renewal, driver-license)",
			Args:  cobra.ExactArgs(2),
			RunE: call(newClient, func(ctx context.Context, c *client, args []string) error {
				return c.do(ctx, http.MethodPut, "/v1/controller/peers"+pathEscape(args[0]), nil, map[string]string{"address": args[1]})
			}),
		},
		&cobra.Command{
			Use:   "is-peer KIND ADDRESS",
			Short: "Check whether ADDRESS is the bound peer of KIND",
			Args:  cobra.ExactArgs(2),
			RunE: call(newClient, func(ctx context.Context, c *client, args []string) error {
				return c.do(ctx, http.MethodGet, "/v1/controller/peers"+pathEscape(args[0], args[1]), nil, nil)
			}),
		},
		&cobra.Command{
			Use:   "pause",
			Short: "Halt every mutating operation",
			Args:  cobra.NoArgs,
			RunE: call(newClient, func(ctx context.Context, c *client, _ []string) error {
				return c.do(ctx, http.MethodPost, "/v1/controller/pause", nil, nil)
			}),
		},
		&cobra.Command{
			Use:   "unpause",
			Short: "Resume mutating operations",
			Args:  cobra.NoArgs,
			RunE: call(newClient, func(ctx context.Context, c *client, _ []string) error {
				return c.do(ctx, http.MethodPost, "/v1/controller/unpause", nil, nil)
			}),
		},
	)
	return cmd
}

func newRolesCmd(newClient clientFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roles",
		Short: "Grant, revoke and check roles (scopes: controller, gov-agency, driver-license, vehicle, offence)",
	}
	for _, sub := range []struct {
		use, short, method string
	}{
		{"grant", "Grant ROLE to PRINCIPAL in SCOPE", http.MethodPost},
		{"revoke", "Revoke ROLE from PRINCIPAL in SCOPE", http.MethodDelete},
		{"check", "Check whether PRINCIPAL holds ROLE in SCOPE", http.MethodGet},
	} {
		method := sub.method
		cmd.AddCommand(&cobra.Command{
			Use:   sub.use + " SCOPE ROLE PRINCIPAL",
			Short: sub.short,
			Args:  cobra.ExactArgs(3),
			RunE: call(newClient, func(ctx context.Context, c *client, args []string) error {
				return c.do(ctx, method, "/v1/roles"+pathEscape(args...), nil, nil)
			}),
		})
	}
	return cmd
}
