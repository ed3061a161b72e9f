package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var aliasFlags struct {
	name    string
	network string
}

var aliasCmd = &cobra.Command{
	Use:     "alias <template> [id] --network <network>",
	Short:   "Print the first network alias of a container",
	Example: `  conman alias worker 3 --network lab`,
	Args:    instanceArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openSession(ctx, args, aliasFlags.name)
		if err != nil {
			return err
		}
		defer s.Close()

		alias, ok, err := s.instance.NetworkAlias(ctx, aliasFlags.network)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%s has no alias on network %s", s.instance.Name(), aliasFlags.network)
		}

		_, _ = fmt.Fprintln(cmd.OutOrStdout(), alias)
		return nil
	},
}

// nolint:gochecknoinits // Standard Cobra pattern for command registration
func init() {
	rootCmd.AddCommand(aliasCmd)

	aliasCmd.Flags().StringVar(&aliasFlags.name, "name", "", "explicit container name")
	aliasCmd.Flags().StringVar(&aliasFlags.network, "network", "", "network name")
	_ = aliasCmd.MarkFlagRequired("network")
}
