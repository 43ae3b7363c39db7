package main

import (
	"context"
	"net/http"

	"github.com/spf13/cobra"
)

func newLicenseCmd(newClient clientFactory) *cobra.Command {
	cmd := &cobra.Command{Use: "license", Short: "Driver licenses"}

	var in struct {
		LicenseNo     string `json:"license_no"`
		HolderAddress string `json:"holder_address"`
		HolderID      string `json:"holder_id"`
		Name          string `json:"name"`
		LicenseType   string `json:"license_type"`
		IssueDate     string `json:"issue_date"`
		ExpiryDate    string `json:"expiry_date"`
		AuthorityID   string `json:"authority_id"`
		Point         int    `json:"point,omitempty"`
	}
	issue := &cobra.Command{
		Use:   "issue",
		Short: "Issue a driver license",
		Args:  cobra.NoArgs,
		RunE: call(newClient, func(ctx context.Context, c *client, _ []string) error {
			return c.do(ctx, http.MethodPost, "/v1/licenses", nil, in)
		}),
	}
	f := issue.Flags()
	f.StringVar(&in.LicenseNo, "no", "", "license number")
	f.StringVar(&in.HolderAddress, "holder", "", "holder address")
	f.StringVar(&in.HolderID, "holder-id", "", "holder identity number")
	f.StringVar(&in.Name, "name", "", "holder name")
	f.StringVar(&in.LicenseType, "type", "", "license type, e.g. A1")
	f.StringVar(&in.IssueDate, "issue-date", "", "RFC 3339 issue date")
	f.StringVar(&in.ExpiryDate, "expiry-date", "", "RFC 3339 expiry date")
	f.StringVar(&in.AuthorityID, "authority", "", "issuing agency id")
	f.IntVar(&in.Point, "point", 0, "initial points (default 12)")
	for _, name := range []string{"no", "holder", "holder-id", "name", "type", "issue-date", "expiry-date", "authority"} {
		_ = issue.MarkFlagRequired(name)
	}

	update := &cobra.Command{
		Use:   "update LICENSE_NO",
		Short: "Overwrite the fields that are set",
		Args:  cobra.ExactArgs(1),
	}
	uf := update.Flags()
	uf.String("holder", "", "holder address")
	uf.String("holder-id", "", "holder identity number")
	uf.String("name", "", "holder name")
	uf.String("type", "", "license type")
	uf.String("expiry-date", "", "RFC 3339 expiry date")
	uf.String("status", "", "ACTIVE, SUSPENDED or EXPIRED")
	uf.Int("point", 0, "points")
	update.RunE = func(cmd *cobra.Command, args []string) error {
		body, err := changedFields(cmd, map[string]string{
			"holder":      "holder_address",
			"holder-id":   "holder_id",
			"name":        "name",
			"type":        "license_type",
			"expiry-date": "expiry_date",
			"status":      "status",
			"point":       "point",
		})
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		return c.do(cmd.Context(), http.MethodPatch, "/v1/licenses"+pathEscape(args[0]), nil, body)
	}

	cmd.AddCommand(issue, update)
	cmd.AddCommand(credentialCmds(newClient, "licenses", "LICENSE_NO")...)
	return cmd
}
