package main

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	jwttoken "trafficreg/internal/jwt_token"
	id "trafficreg/pkg/domain"
)

// newRootCmd builds the command tree. Settings resolve from flags, then
// REGCTL_* environment variables, then the optional config file.
func newRootCmd(out io.Writer) *cobra.Command {
	v := viper.New()
	var cfgFile string

	root := &cobra.Command{
		Use:           "regctl",
		Short:         "Administer the traffic credential registries",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			v.SetEnvPrefix("REGCTL")
			v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
			v.AutomaticEnv()
			if cfgFile != "" {
				v.SetConfigFile(cfgFile)
				if err := v.ReadInConfig(); err != nil {
					return fmt.Errorf("reading config: %w", err)
				}
			}
			return v.BindPFlags(cmd.Flags())
		},
	}
	root.SetOut(out)

	pf := root.PersistentFlags()
	pf.StringVarP(&cfgFile, "config", "c", "", "config file (yaml, json or toml)")
	pf.String("server", "http://localhost:8080", "trafficreg API base URL")
	pf.String("token", "", "bearer token; minted from --signing-key and --caller when empty")
	pf.String("caller", "", "caller address used to mint a token")
	pf.String("signing-key", "", "HS256 key shared with the server")
	pf.String("issuer", "trafficreg", "token issuer")
	pf.Duration("timeout", 30*time.Second, "request timeout")

	newClient := func() (*client, error) {
		token := v.GetString("token")
		if token == "" {
			minted, err := mintToken(v.GetString("signing-key"), v.GetString("issuer"), v.GetString("caller"), time.Hour)
			if err != nil {
				return nil, err
			}
			token = minted
		}
		return &client{
			base:  strings.TrimRight(v.GetString("server"), "/"),
			token: token,
			http:  &http.Client{Timeout: v.GetDuration("timeout")},
			out:   out,
		}, nil
	}

	root.AddCommand(
		newTokenCmd(v, out),
		newControllerCmd(newClient),
		newRolesCmd(newClient),
		newAgencyCmd(newClient),
		newLicenseCmd(newClient),
		newVehicleCmd(newClient),
		newOffenceCmd(newClient),
	)
	return root
}

func mintToken(signingKey, issuer, caller string, ttl time.Duration) (string, error) {
	if signingKey == "" || caller == "" {
		return "", fmt.Errorf("either --token or both --signing-key and --caller are required")
	}
	addr, err := id.ParseAddress(caller)
	if err != nil {
		return "", fmt.Errorf("--caller: %w", err)
	}
	return jwttoken.NewJWTService(signingKey, issuer).IssueToken(addr, ttl)
}

func newTokenCmd(v *viper.Viper, out io.Writer) *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for --caller",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			token, err := mintToken(v.GetString("signing-key"), v.GetString("issuer"), v.GetString("caller"), ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(out, token)
			return err
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
