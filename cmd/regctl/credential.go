package main

import (
	"context"
	"net/http"
	"strconv"

	"github.com/spf13/cobra"
)

// credentialCmds are the reads and revocation shared by both credential
// registries. resource is the route prefix, e.g. "licenses".
func credentialCmds(newClient clientFactory, resource, keyName string) []*cobra.Command {
	base := "/v1/" + resource
	list := &cobra.Command{Use: "list", Short: "List " + resource, Args: cobra.NoArgs}
	query := pageFlags(list)
	list.RunE = call(newClient, func(ctx context.Context, c *client, _ []string) error {
		return c.do(ctx, http.MethodGet, base, query(), nil)
	})

	return []*cobra.Command{
		list,
		{
			Use:   "get " + keyName,
			Short: "Show one record",
			Args:  cobra.ExactArgs(1),
			RunE: call(newClient, func(ctx context.Context, c *client, args []string) error {
				return c.do(ctx, http.MethodGet, base+pathEscape(args[0]), nil, nil)
			}),
		},
		{
			Use:   "revoke " + keyName,
			Short: "Revoke a record; revocation is terminal",
			Args:  cobra.ExactArgs(1),
			RunE: call(newClient, func(ctx context.Context, c *client, args []string) error {
				return c.do(ctx, http.MethodPost, base+pathEscape(args[0], "revoke"), nil, nil)
			}),
		},
		{
			Use:   "holder ADDRESS",
			Short: "List the records and balance of a holder",
			Args:  cobra.ExactArgs(1),
			RunE: call(newClient, func(ctx context.Context, c *client, args []string) error {
				return c.do(ctx, http.MethodGet, "/v1/holders"+pathEscape(args[0], resource), nil, nil)
			}),
		},
		{
			Use:   "stats",
			Short: "Show emitted and holder counts",
			Args:  cobra.NoArgs,
			RunE: call(newClient, func(ctx context.Context, c *client, _ []string) error {
				return c.do(ctx, http.MethodGet, base+"/tokens/stats", nil, nil)
			}),
		},
		{
			Use:   "valid TOKEN_ID",
			Short: "Show the owner and validity of a token",
			Args:  cobra.ExactArgs(1),
			RunE: call(newClient, func(ctx context.Context, c *client, args []string) error {
				if _, err := strconv.ParseUint(args[0], 10, 64); err != nil {
					return err
				}
				return c.do(ctx, http.MethodGet, base+"/tokens"+pathEscape(args[0], "valid"), nil, nil)
			}),
		},
	}
}

// changedFields collects the flags the user actually set, keyed by their
// JSON field name.
func changedFields(cmd *cobra.Command, fields map[string]string) (map[string]any, error) {
	body := map[string]any{}
	for flag, field := range fields {
		if !cmd.Flags().Changed(flag) {
			continue
		}
		if flag == "point" {
			n, err := cmd.Flags().GetInt(flag)
			if err != nil {
				return nil, err
			}
			body[field] = n
			continue
		}
		s, err := cmd.Flags().GetString(flag)
		if err != nil {
			return nil, err
		}
		body[field] = s
	}
	return body, nil
}
