package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var execFlags struct {
	name   string
	detach bool
}

var execCmd = &cobra.Command{
	Use:   "exec <template> [id] -- <command...>",
	Short: "Run a shell command in a running container",
	Long: `Exec runs the command through "sh -c" inside the container and prints its
combined output. A non-zero exit status becomes conman's exit status.

With --detach the command is started in the background and exec returns
immediately. There is no timeout otherwise; interrupt with Ctrl-C.`,
	Example: `  # List files
  conman exec jupyter 1 -- ls -la /home/jovyan

  # Fire and forget
  conman exec jupyter 1 --detach -- touch /tmp/ready`,
	Args: func(cmd *cobra.Command, args []string) error {
		dash := cmd.ArgsLenAtDash()
		if dash < 0 || dash == len(args) {
			return errors.New("a command is required after --")
		}
		return instanceArgs(cmd, args[:dash])
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		dash := cmd.ArgsLenAtDash()
		command := strings.Join(args[dash:], " ")

		ctx := cmd.Context()
		s, err := openSession(ctx, args[:dash], execFlags.name)
		if err != nil {
			return err
		}
		defer s.Close()

		res, err := s.instance.Exec(ctx, command, !execFlags.detach)
		if err != nil {
			return err
		}
		if res == nil {
			logger.Info("command started in background", "container", s.instance.Name())
			return nil
		}

		for _, line := range res.Output {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), line)
		}
		if res.ExitCode != 0 {
			return &exitCodeError{code: res.ExitCode}
		}
		return nil
	},
}

// nolint:gochecknoinits // Standard Cobra pattern for command registration
func init() {
	rootCmd.AddCommand(execCmd)
	execCmd.Flags().StringVar(&execFlags.name, "name", "", "explicit container name")
	execCmd.Flags().BoolVarP(&execFlags.detach, "detach", "d", false, "run the command in the background")
}
