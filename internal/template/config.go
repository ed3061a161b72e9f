package template

import (
	"context"
	"fmt"
	"os"

	"github.com/zorak1103/conman/internal/config"
	"github.com/zorak1103/conman/internal/docker"
	apperrors "github.com/zorak1103/conman/internal/errors"
)

// FromConfig converts a declared template into a Template. Credentials named
// by password_env are read from the environment when the container starts.
func FromConfig(name string, tc config.TemplateConfig) (*Template, error) {
	ports, err := docker.ParsePortSpecs(tc.Ports)
	if err != nil {
		return nil, templateError(name, "ports", err)
	}
	if len(ports) == 0 {
		ports = nil
	}

	volumes, err := ParseVolumes(tc.Volumes)
	if err != nil {
		return nil, templateError(name, "volumes", err)
	}

	return &Template{
		Name:            name,
		ContainerName:   tc.ContainerName,
		NameTemplate:    tc.NameTemplate,
		DefaultName:     tc.DefaultName,
		LocalPorts:      append([]int(nil), tc.LocalPorts...),
		AutoAssignPorts: tc.AutoAssignPorts,
		Defaults: Config{
			Image:          tc.Image,
			Ports:          ports,
			Command:        tc.Command,
			Volumes:        volumes,
			Network:        tc.Network,
			NetworkAliases: append([]string(nil), tc.NetworkAliases...),
			Auth:           authSource(tc.Auth),
		},
	}, nil
}

// ParseVolumes parses "host:container[:mode]" specs.
func ParseVolumes(specs []string) (docker.Volumes, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	volumes := make(docker.Volumes, len(specs))
	for _, spec := range specs {
		host, mount, err := docker.ParseVolumeSpec(spec)
		if err != nil {
			return nil, err
		}
		volumes[host] = mount
	}
	return volumes, nil
}

func authSource(ac *config.AuthConfig) docker.AuthSource {
	if ac == nil {
		return nil
	}
	if ac.PasswordEnv == "" {
		return docker.StaticAuth{
			Username:      ac.Username,
			Password:      ac.Password,
			ServerAddress: ac.ServerAddress,
		}
	}

	username, server, env := ac.Username, ac.ServerAddress, ac.PasswordEnv
	return docker.AuthFunc(func(context.Context) (docker.Credentials, error) {
		password, ok := os.LookupEnv(env)
		if !ok || password == "" {
			return docker.Credentials{}, fmt.Errorf("registry password variable %s is not set", env)
		}
		return docker.Credentials{Username: username, Password: password, ServerAddress: server}, nil
	})
}

func templateError(name, key string, err error) error {
	return &apperrors.ConfigurationError{Key: "templates." + name + "." + key, Err: err}
}
