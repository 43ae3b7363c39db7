package main

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

func pageFlags(cmd *cobra.Command) func() url.Values {
	size := cmd.Flags().Int("size", 0, "page size")
	after := cmd.Flags().String("after", "", "cursor returned as next_after")
	return func() url.Values {
		q := url.Values{}
		if *size > 0 {
			q.Set("size", strconv.Itoa(*size))
		}
		if *after != "" {
			q.Set("after", *after)
		}
		return q
	}
}

func newAgencyCmd(newClient clientFactory) *cobra.Command {
	cmd := &cobra.Command{Use: "agency", Short: "Issuing authorities"}

	var in struct {
		Address  string `json:"address"`
		AgencyID string `json:"agency_id"`
		Name     string `json:"name"`
		Location string `json:"location"`
	}
	issue := &cobra.Command{
		Use:   "issue",
		Short: "Register an agency and grant it GOV_AGENCY_ROLE",
		Args:  cobra.NoArgs,
		RunE: call(newClient, func(ctx context.Context, c *client, _ []string) error {
			return c.do(ctx, http.MethodPost, "/v1/agencies", nil, in)
		}),
	}
	issue.Flags().StringVar(&in.Address, "address", "", "agency address")
	issue.Flags().StringVar(&in.AgencyID, "id", "", "agency id")
	issue.Flags().StringVar(&in.Name, "name", "", "agency name")
	issue.Flags().StringVar(&in.Location, "location", "", "agency location")
	for _, f := range []string{"address", "id", "name"} {
		_ = issue.MarkFlagRequired(f)
	}

	list := &cobra.Command{Use: "list", Short: "List agencies", Args: cobra.NoArgs}
	query := pageFlags(list)
	list.RunE = call(newClient, func(ctx context.Context, c *client, _ []string) error {
		return c.do(ctx, http.MethodGet, "/v1/agencies", query(), nil)
	})

	cmd.AddCommand(
		issue,
		list,
		&cobra.Command{
			Use:   "get AGENCY_ID",
			Short: "Show one agency",
			Args:  cobra.ExactArgs(1),
			RunE: call(newClient, func(ctx context.Context, c *client, args []string) error {
				return c.do(ctx, http.MethodGet, "/v1/agencies"+pathEscape(args[0]), nil, nil)
			}),
		},
		&cobra.Command{
			Use:   "revoke AGENCY_ID",
			Short: "Revoke an agency",
			Args:  cobra.ExactArgs(1),
			RunE: call(newClient, func(ctx context.Context, c *client, args []string) error {
				return c.do(ctx, http.MethodPost, "/v1/agencies"+pathEscape(args[0], "revoke"), nil, nil)
			}),
		},
	)
	return cmd
}
