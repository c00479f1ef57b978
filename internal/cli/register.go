package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	gameclient "github.com/mcoot/tictactoe-server/internal/client"
	"github.com/mcoot/tictactoe-server/internal/protocol"
)

func newRegisterCmd() *cobra.Command {
	var secret string
	var viaAPI bool

	cmd := &cobra.Command{
		Use:   "register <username>",
		Short: "Register a new account",
		Long: `Register a new account. The secret is taken from --secret or TTT_SECRET.

By default the account is created over the game protocol; --api uses the
HTTP API instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username := args[0]
			secret = secretFrom(secret)
			if secret == "" {
				return fmt.Errorf("--secret or TTT_SECRET is required")
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout(), cmd.ErrOrStderr())

			if viaAPI {
				req := map[string]string{"username": username, "secret": secret}
				var result map[string]any
				if err := client.Post(cmd.Context(), "/api/v1/users", req, &result); err != nil {
					return err
				}
				out.Print(protocol.RegisterResponse{Username: username, Message: "Registration successful"})
				return nil
			}

			c, err := dial(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			result, err := c.Register(cmd.Context(), username, secret)
			if err != nil {
				return err
			}
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&secret, "secret", "", "Account secret (env: TTT_SECRET)")
	cmd.Flags().BoolVar(&viaAPI, "api", false, "Register through the HTTP API")

	return cmd
}

func dial(cmd *cobra.Command) (*gameclient.Client, error) {
	return gameclient.Dial(cmd.Context(), cfg.ServerAddr, logger(cmd.ErrOrStderr()))
}
