package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wondertwin-ai/shopkit/internal/client"
	"github.com/wondertwin-ai/shopkit/internal/config"
)

func (a *app) newTwinCommand() *cobra.Command {
	var twinURL string

	adminClient := func() (*client.AdminClient, error) {
		if twinURL != "" {
			return client.New(twinURL), nil
		}
		cfg, err := a.loadConfig()
		if err != nil {
			return nil, err
		}
		if cfg.TwinURL == "" {
			return client.New(config.DefaultTwinURL), nil
		}
		return client.New(cfg.TwinURL), nil
	}

	cmd := &cobra.Command{
		Use:   "twin",
		Short: "Drive a local twin through its control plane",
	}
	cmd.PersistentFlags().StringVar(&twinURL, "twin-url", "", "twin base URL (default from config)")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "health",
			Short: "Check that the twin is up",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := adminClient()
				if err != nil {
					return err
				}
				ok, body := c.Health(cmd.Context())
				if !ok {
					return fmt.Errorf("twin unhealthy: %s", body)
				}
				_, err = fmt.Fprintln(a.out, body)
				return err
			},
		},
		&cobra.Command{
			Use:   "reset",
			Short: "Restore the twin's default fixtures",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := adminClient()
				if err != nil {
					return err
				}
				body, err := c.Reset(cmd.Context())
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(a.out, body)
				return err
			},
		},
		&cobra.Command{
			Use:   "seed <file>",
			Short: "Add the fixtures of a YAML or JSON file",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := adminClient()
				if err != nil {
					return err
				}
				body, err := c.Seed(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(a.out, body)
				return err
			},
		},
	)
	return cmd
}
