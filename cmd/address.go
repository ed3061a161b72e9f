package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var addressFlags struct {
	name     string
	port     int
	protocol string
}

var addressCmd = &cobra.Command{
	Use:   "address <template> [id] --port <port>",
	Short: "Print where a container port is reachable",
	Long: `Address prints host:port for a container port.

A published binding on a wildcard address is reported as 127.0.0.1. A
container on a user network without a published binding is reported at its
network address and the original port.`,
	Example: `  conman address jupyter 1 --port 8888

  conman address dns --port 53 --protocol udp`,
	Args: instanceArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		s, err := openSession(ctx, args, addressFlags.name)
		if err != nil {
			return err
		}
		defer s.Close()

		addr, ok, err := s.instance.HostAddress(ctx, addressFlags.port, addressFlags.protocol)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("port %d/%s of %s is not published", addressFlags.port, addressFlags.protocol, s.instance.Name())
		}

		_, _ = fmt.Fprintln(cmd.OutOrStdout(), addr.String())
		return nil
	},
}

// nolint:gochecknoinits // Standard Cobra pattern for command registration
func init() {
	rootCmd.AddCommand(addressCmd)

	flags := addressCmd.Flags()
	flags.StringVar(&addressFlags.name, "name", "", "explicit container name")
	flags.IntVar(&addressFlags.port, "port", 0, "container port")
	flags.StringVar(&addressFlags.protocol, "protocol", "tcp", "port protocol (tcp, udp, sctp)")
	_ = addressCmd.MarkFlagRequired("port")
}
