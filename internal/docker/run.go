package docker

import (
	"context"
	"errors"
	"fmt"
	"io"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/api/types/registry"
	"github.com/docker/docker/pkg/jsonmessage"
)

const (
	// LabelManagedBy marks containers and networks created by conman.
	LabelManagedBy = "conman.managed-by"
	managedByValue = "conman"
	networkDriver  = "bridge"
)

func (e *dockerEngine) Run(ctx context.Context, opts RunOptions) (*Handle, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	if opts.Name == "" || opts.Image == "" {
		return nil, errors.New("run requires a container name and an image")
	}

	exposed, bindings, err := opts.Ports.toNat()
	if err != nil {
		return nil, fmt.Errorf("invalid ports for container %s: %w", opts.Name, err)
	}

	// Networks created here are left in place if a later step fails.
	var networkID string
	if opts.Network != "" {
		networkID, err = e.ensureNetwork(ctx, opts.Network)
		if err != nil {
			return nil, err
		}
	}

	var registryAuth string
	if opts.Auth != nil {
		registryAuth, err = e.login(ctx, opts.Auth)
		if err != nil {
			return nil, err
		}
	}

	if err := e.ensureImage(ctx, opts.Image, registryAuth); err != nil {
		return nil, err
	}

	e.logger.Info("starting container", "container", opts.Name, "image", opts.Image)

	containerCfg := &container.Config{
		Image:        opts.Image,
		ExposedPorts: exposed,
		Tty:          true,
		OpenStdin:    true,
		Labels: map[string]string{
			LabelManagedBy: managedByValue,
		},
	}
	hostCfg := &container.HostConfig{
		PortBindings: bindings,
		Binds:        opts.Volumes.binds(),
	}

	created, err := e.api.ContainerCreate(ctx, containerCfg, hostCfg, nil, nil, opts.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to create container %s: %w", opts.Name, err)
	}
	for _, warning := range created.Warnings {
		e.logger.Warn("engine warning", "container", opts.Name, "warning", warning)
	}

	if err := e.api.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		return nil, fmt.Errorf("failed to start container %s: %w", opts.Name, err)
	}

	if networkID != "" {
		endpoint := &network.EndpointSettings{Aliases: opts.NetworkAliases}
		if err := e.api.NetworkConnect(ctx, networkID, created.ID, endpoint); err != nil {
			return nil, fmt.Errorf("failed to connect container %s to network %s: %w", opts.Name, opts.Network, err)
		}
	}

	info, err := e.api.ContainerInspect(ctx, created.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect container %s after start: %w", opts.Name, err)
	}
	h := handleFromInspect(info)
	if h == nil {
		h = &Handle{ID: created.ID, Name: opts.Name}
	}

	if opts.Command != "" {
		if info.State == nil || !info.State.Running {
			return nil, fmt.Errorf("container %s is %q, not running; post-start command not executed", opts.Name, h.Status)
		}
		if _, err := e.Exec(ctx, h, opts.Command, false); err != nil {
			return nil, fmt.Errorf("failed to run post-start command in %s: %w", opts.Name, err)
		}
	}

	e.logger.Info("container started", "container", opts.Name, "id", shortID(h.ID))
	return h, nil
}

// ensureNetwork returns the ID of the named network, creating a bridge network
// when none exists. Concurrent callers for the same name share one lookup.
func (e *dockerEngine) ensureNetwork(ctx context.Context, name string) (string, error) {
	v, err, _ := e.networks.Do(name, func() (any, error) {
		existing, err := e.api.NetworkInspect(ctx, name, network.InspectOptions{})
		if err == nil {
			return existing.ID, nil
		}
		if !cerrdefs.IsNotFound(err) {
			return "", fmt.Errorf("failed to inspect network %s: %w", name, err)
		}

		e.logger.Info("creating network", "network", name)
		created, err := e.api.NetworkCreate(ctx, name, network.CreateOptions{
			Driver: networkDriver,
			Labels: map[string]string{
				LabelManagedBy: managedByValue,
			},
		})
		if err != nil {
			// Another process created it between inspect and create.
			if cerrdefs.IsConflict(err) {
				return name, nil
			}
			return "", fmt.Errorf("failed to create network %s: %w", name, err)
		}
		return created.ID, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// login resolves credentials, authenticates against the registry and returns
// the encoded auth header for image pulls.
func (e *dockerEngine) login(ctx context.Context, src AuthSource) (string, error) {
	creds, err := src.Credentials(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to resolve registry credentials: %w", err)
	}

	authConfig := registry.AuthConfig{
		Username:      creds.Username,
		Password:      creds.Password,
		ServerAddress: creds.ServerAddress,
	}
	if _, err := e.api.RegistryLogin(ctx, authConfig); err != nil {
		return "", fmt.Errorf("registry login failed for %s@%s: %w", creds.Username, creds.ServerAddress, err)
	}

	encoded, err := registry.EncodeAuthConfig(authConfig)
	if err != nil {
		return "", fmt.Errorf("failed to encode registry credentials: %w", err)
	}
	return encoded, nil
}

// ensureImage pulls the image if it is not present locally. Errors reported in
// the pull progress stream are returned, not just transport errors.
func (e *dockerEngine) ensureImage(ctx context.Context, ref, registryAuth string) error {
	_, err := e.api.ImageInspect(ctx, ref)
	if err == nil {
		return nil
	}
	if !cerrdefs.IsNotFound(err) {
		return fmt.Errorf("failed to inspect image %s: %w", ref, err)
	}

	e.logger.Warn("pulling image, this may take a while", "image", ref)

	reader, err := e.api.ImagePull(ctx, ref, image.PullOptions{RegistryAuth: registryAuth})
	if err != nil {
		return fmt.Errorf("failed to pull image %s: %w", ref, err)
	}
	// Close reader after draining; error not actionable once the stream is consumed
	defer func() { _ = reader.Close() }()

	if err := jsonmessage.DisplayJSONMessagesStream(reader, io.Discard, 0, false, nil); err != nil {
		return fmt.Errorf("failed to pull image %s: %w", ref, err)
	}

	e.logger.Info("image pulled", "image", ref)
	return nil
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
