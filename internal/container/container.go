// Package container implements a named container whose lifecycle is driven
// through an engine. The engine holds the canonical state; a Container only
// carries the logical name and re-resolves it on every call.
package container

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	dockercontainer "github.com/docker/docker/api/types/container"

	"github.com/zorak1103/conman/internal/docker"
	apperrors "github.com/zorak1103/conman/internal/errors"
	"github.com/zorak1103/conman/internal/keylock"
	"github.com/zorak1103/conman/internal/logging"
)

// State is the observable lifecycle state of a logical container.
type State string

const (
	// StateAbsent means no runtime resource exists under the name.
	StateAbsent State = "absent"
	// StateRunning means a live resource exists under the name.
	StateRunning State = "running"
)

// StopPolicy controls what Stop does when nothing is running.
type StopPolicy string

const (
	// StopStrict fails with a ContainerNotRunningError.
	StopStrict StopPolicy = "strict"
	// StopLenient logs and returns nil.
	StopLenient StopPolicy = "lenient"
)

// ParseStopPolicy converts a configuration value to a StopPolicy.
func ParseStopPolicy(s string) (StopPolicy, error) {
	switch StopPolicy(s) {
	case "", StopStrict:
		return StopStrict, nil
	case StopLenient:
		return StopLenient, nil
	}
	return "", fmt.Errorf("invalid stop policy %q: must be %s or %s", s, StopStrict, StopLenient)
}

// RunConfig is everything about a run except name and image.
type RunConfig struct {
	Ports          docker.PortMap
	Command        string
	Volumes        docker.Volumes
	Network        string
	NetworkAliases []string
	Auth           docker.AuthSource
}

// defaultLocks is shared by every Container that is not given its own map, so
// two Containers for the same name in one process never race each other.
var defaultLocks keylock.Map

// Container is a logical container identified by name.
type Container struct {
	engine docker.Engine
	name   string
	logger *log.Logger
	policy StopPolicy
	locks  *keylock.Map
}

// Option configures a Container.
type Option func(*Container)

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) Option {
	return func(c *Container) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithStopPolicy sets the behavior of Stop on an absent container.
func WithStopPolicy(p StopPolicy) Option {
	return func(c *Container) {
		if p != "" {
			c.policy = p
		}
	}
}

// WithLocks replaces the process-wide lock map.
func WithLocks(locks *keylock.Map) Option {
	return func(c *Container) {
		if locks != nil {
			c.locks = locks
		}
	}
}

// New returns a descriptor for name. It performs no I/O.
func New(engine docker.Engine, name string, opts ...Option) *Container {
	c := &Container{
		engine: engine,
		name:   name,
		logger: logging.Discard(),
		policy: StopStrict,
		locks:  &defaultLocks,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the logical name.
func (c *Container) Name() string {
	return c.name
}

// lookup resolves the name, mapping ErrNotFound to a nil handle.
func (c *Container) lookup(ctx context.Context) (*docker.Handle, error) {
	h, err := c.engine.Get(ctx, c.name)
	if errors.Is(err, docker.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return h, nil
}

// Current returns the handle of the running resource, or a
// ContainerNotRunningError when there is none.
func (c *Container) Current(ctx context.Context) (*docker.Handle, error) {
	return c.current(ctx, "")
}

func (c *Container) current(ctx context.Context, operation string) (*docker.Handle, error) {
	h, err := c.lookup(ctx)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, &apperrors.ContainerNotRunningError{Name: c.name, Operation: operation}
	}
	return h, nil
}

// Status reports whether a resource exists under the name. An exited
// resource is reaped by the lookup and reported as absent.
func (c *Container) Status(ctx context.Context) (State, error) {
	unlock := c.locks.Lock(c.name)
	defer unlock()

	h, err := c.lookup(ctx)
	if err != nil {
		return "", err
	}
	if h == nil {
		return StateAbsent, nil
	}
	return StateRunning, nil
}

// Start runs image under the name unless something already occupies it, in
// which case it logs and returns false without touching the existing resource.
// The boolean reports whether a new container was created.
func (c *Container) Start(ctx context.Context, image string, cfg RunConfig) (bool, error) {
	unlock := c.locks.Lock(c.name)
	defer unlock()

	h, err := c.lookup(ctx)
	if err != nil {
		return false, err
	}
	if h != nil {
		c.logger.Info("container already running", "container", c.name, "id", h.ID)
		return false, nil
	}

	_, err = c.engine.Run(ctx, docker.RunOptions{
		Name:           c.name,
		Image:          image,
		Ports:          cfg.Ports,
		Command:        cfg.Command,
		Volumes:        cfg.Volumes,
		Network:        cfg.Network,
		NetworkAliases: cfg.NetworkAliases,
		Auth:           cfg.Auth,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// Stop stops and removes the running resource. When nothing is running the
// stop policy decides between an error and a no-op. The boolean reports
// whether a running container was stopped.
func (c *Container) Stop(ctx context.Context) (bool, error) {
	unlock := c.locks.Lock(c.name)
	defer unlock()

	h, err := c.lookup(ctx)
	if err != nil {
		return false, err
	}
	if h == nil {
		if c.policy == StopLenient {
			c.logger.Info("container not running, nothing to stop", "container", c.name)
			return false, nil
		}
		return false, &apperrors.ContainerNotRunningError{Name: c.name, Operation: "stop"}
	}
	if err := c.engine.Stop(ctx, h); err != nil {
		return false, err
	}
	return true, nil
}

// Exec runs command in the running container. With output false the command
// is detached and the result is nil.
func (c *Container) Exec(ctx context.Context, command string, output bool) (*docker.ExecResult, error) {
	h, err := c.current(ctx, "exec in")
	if err != nil {
		return nil, err
	}
	return c.engine.Exec(ctx, h, command, output)
}

// Inspect returns the engine's inspection data.
func (c *Container) Inspect(ctx context.Context) (dockercontainer.InspectResponse, error) {
	h, err := c.current(ctx, "inspect")
	if err != nil {
		return dockercontainer.InspectResponse{}, err
	}
	return c.engine.Inspect(ctx, h)
}

// HostAddress resolves where port is reachable; protocol defaults to tcp.
func (c *Container) HostAddress(ctx context.Context, port int, protocol string) (docker.HostAddress, bool, error) {
	h, err := c.current(ctx, "resolve address of")
	if err != nil {
		return docker.HostAddress{}, false, err
	}
	return c.engine.HostAddress(ctx, h, port, protocol)
}

// NetworkAlias returns the first alias on networkName.
func (c *Container) NetworkAlias(ctx context.Context, networkName string) (string, bool, error) {
	h, err := c.current(ctx, "resolve alias of")
	if err != nil {
		return "", false, err
	}
	return c.engine.NetworkAlias(ctx, h, networkName)
}
