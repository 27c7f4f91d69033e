package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nhle/vibratodo/internal/credential"
	"github.com/nhle/vibratodo/internal/session"
)

func newLoginCmd(_ *options) *cobra.Command {
	var token, publicKey string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store a session token for the remote store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			creds, err := openCredentials()
			if err != nil {
				return err
			}
			if publicKey != "" {
				if err := creds.Set(credential.KeyPublicKey, publicKey); err != nil {
					return err
				}
			}
			if err := session.NewManager(creds).Login(token); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed in.")
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "Session token issued by the record service")
	cmd.Flags().StringVar(&publicKey, "public-key", "", "Project public key (stored once)")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}

func newLogoutCmd(_ *options) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			creds, err := openCredentials()
			if err != nil {
				return err
			}
			if err := session.NewManager(creds).Logout(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
}
