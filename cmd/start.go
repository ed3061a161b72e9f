package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zorak1103/conman/internal/docker"
	"github.com/zorak1103/conman/internal/notification"
	"github.com/zorak1103/conman/internal/template"
)

var startFlags struct {
	name    string
	image   string
	publish []string
	network string
	aliases []string
	volumes []string
	command string
}

var startCmd = &cobra.Command{
	Use:   "start <template> [id]",
	Short: "Start a container from a template",
	Long: `Start creates and starts a container from a configured template.

The container name is --name if given, otherwise derived from the template and
id (e.g. "jupyter-1"), otherwise the template's default name.

If a container with that name is already running nothing happens. An exited
container with that name is removed first. Flags override the template's
defaults field by field; ports and volumes are merged per key.

Without explicit ports, templates with auto_assign_ports publish each local
port p on host port p+id.`,
	Example: `  # Start instance 1 of the jupyter template (8888 -> 8889)
  conman start jupyter 1

  # Override image and publish an extra port
  conman start jupyter 2 --image jupyter/scipy-notebook -p 9000:9000

  # Join a network with an alias
  conman start worker 3 --network lab --alias worker-3`,
	Args: instanceArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		override, err := startOverride()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		s, err := openSession(ctx, args, startFlags.name)
		if err != nil {
			return err
		}
		defer s.Close()

		started, err := s.instance.Start(ctx, override)
		if err != nil {
			return fmt.Errorf("failed to start %s: %w", s.instance.Name(), err)
		}

		if !started {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "ℹ️  %s is already running\n", s.instance.Name())
			return nil
		}

		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✅ Started %s\n", s.instance.Name())

		image := override.Image
		if image == "" {
			image = s.template.Defaults.Image
		}
		s.notify(notification.Event{Action: notification.ActionStarted, Container: s.instance.Name(), Image: image})
		return nil
	},
}

// startOverride builds the call-site configuration from flags.
func startOverride() (template.Config, error) {
	override := template.Config{
		Image:   startFlags.image,
		Network: startFlags.network,
		Command: startFlags.command,
	}

	if len(startFlags.publish) > 0 {
		ports, err := docker.ParsePortSpecs(startFlags.publish)
		if err != nil {
			return template.Config{}, err
		}
		override.Ports = ports
	}

	volumes, err := template.ParseVolumes(startFlags.volumes)
	if err != nil {
		return template.Config{}, err
	}
	override.Volumes = volumes

	if len(startFlags.aliases) > 0 {
		override.NetworkAliases = append([]string(nil), startFlags.aliases...)
	}
	return override, nil
}

// nolint:gochecknoinits // Standard Cobra pattern for command registration
func init() {
	rootCmd.AddCommand(startCmd)

	flags := startCmd.Flags()
	flags.StringVar(&startFlags.name, "name", "", "explicit container name")
	flags.StringVar(&startFlags.image, "image", "", "override the template image")
	flags.StringArrayVarP(&startFlags.publish, "publish", "p", nil, "publish a port, hostPort:containerPort[/protocol] (repeatable)")
	flags.StringVar(&startFlags.network, "network", "", "user network to join, created if absent")
	flags.StringArrayVar(&startFlags.aliases, "alias", nil, "network alias (repeatable)")
	flags.StringArrayVar(&startFlags.volumes, "volume", nil, "bind mount, hostPath:containerPath[:mode] (repeatable)")
	flags.StringVar(&startFlags.command, "command", "", "command to run once the container is up")
}
