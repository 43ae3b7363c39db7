package main

import (
	"context"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

func newOffenceCmd(newClient clientFactory) *cobra.Command {
	cmd := &cobra.Command{Use: "offence", Short: "Demerit points, renew rules and the status sweep"}

	var rule struct {
		LicenseType string `json:"license_type"`
		BonusTime   int    `json:"bonus_time"`
		Description string `json:"description"`
	}
	addRule := &cobra.Command{
		Use:   "add-rule",
		Short: "Add the ACTIVE renew rule of a license type",
		Args:  cobra.NoArgs,
		RunE: call(newClient, func(ctx context.Context, c *client, _ []string) error {
			return c.do(ctx, http.MethodPost, "/v1/renew-rules", nil, rule)
		}),
	}
	addRule.Flags().StringVar(&rule.LicenseType, "type", "", "license type")
	addRule.Flags().IntVar(&rule.BonusTime, "bonus", 0, "years added on renewal")
	addRule.Flags().StringVar(&rule.Description, "description", "", "rule description")
	_ = addRule.MarkFlagRequired("type")
	_ = addRule.MarkFlagRequired("bonus")

	var offence struct {
		ErrorID     string    `json:"error_id"`
		Point       int       `json:"point"`
		Description string    `json:"description,omitempty"`
		Location    string    `json:"location,omitempty"`
		Timestamp   time.Time `json:"timestamp"`
	}
	deduct := &cobra.Command{
		Use:   "deduct LICENSE_NO",
		Short: "Record an offence and deduct its points",
		Args:  cobra.ExactArgs(1),
		RunE: call(newClient, func(ctx context.Context, c *client, args []string) error {
			offence.Timestamp = time.Now().UTC()
			return c.do(ctx, http.MethodPost, "/v1/licenses"+pathEscape(args[0], "offences"), nil, offence)
		}),
	}
	deduct.Flags().StringVar(&offence.ErrorID, "error-id", "", "offence code")
	deduct.Flags().IntVar(&offence.Point, "point", 0, "points to deduct")
	deduct.Flags().StringVar(&offence.Description, "description", "", "offence description")
	deduct.Flags().StringVar(&offence.Location, "location", "", "where it happened")
	_ = deduct.MarkFlagRequired("error-id")
	_ = deduct.MarkFlagRequired("point")

	cmd.AddCommand(
		addRule,
		deduct,
		&cobra.Command{
			Use:   "revoke-rule LICENSE_TYPE",
			Short: "Revoke the ACTIVE renew rule of a license type",
			Args:  cobra.ExactArgs(1),
			RunE: call(newClient, func(ctx context.Context, c *client, args []string) error {
				return c.do(ctx, http.MethodPost, "/v1/renew-rules"+pathEscape(args[0], "revoke"), nil, nil)
			}),
		},
		&cobra.Command{
			Use:   "rules [LICENSE_TYPE]",
			Short: "Show the rule history, or the latest rule of one type",
			Args:  cobra.MaximumNArgs(1),
			RunE: call(newClient, func(ctx context.Context, c *client, args []string) error {
				if len(args) == 1 {
					return c.do(ctx, http.MethodGet, "/v1/renew-rules"+pathEscape(args[0]), nil, nil)
				}
				return c.do(ctx, http.MethodGet, "/v1/renew-rules", nil, nil)
			}),
		},
		&cobra.Command{
			Use:   "renew LICENSE_NO",
			Short: "Extend a license by its type's bonus time",
			Args:  cobra.ExactArgs(1),
			RunE: call(newClient, func(ctx context.Context, c *client, args []string) error {
				return c.do(ctx, http.MethodPost, "/v1/licenses"+pathEscape(args[0], "renew"), nil, nil)
			}),
		},
		&cobra.Command{
			Use:   "reset [LICENSE_NO]",
			Short: "Restore full points on one license, or on all of them",
			Args:  cobra.MaximumNArgs(1),
			RunE: call(newClient, func(ctx context.Context, c *client, args []string) error {
				if len(args) == 1 {
					return c.do(ctx, http.MethodPost, "/v1/licenses"+pathEscape(args[0], "reset-points"), nil, nil)
				}
				return c.do(ctx, http.MethodPost, "/v1/licenses/reset-points", nil, nil)
			}),
		},
		&cobra.Command{
			Use:   "sweep",
			Short: "Recompute the status of every license",
			Args:  cobra.NoArgs,
			RunE: call(newClient, func(ctx context.Context, c *client, _ []string) error {
				return c.do(ctx, http.MethodPost, "/v1/licenses/statuses/sweep", nil, nil)
			}),
		},
	)
	return cmd
}
