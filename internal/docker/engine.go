// Package docker provides the container engine adapter backed by the Docker API.
package docker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	cerrdefs "github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"golang.org/x/sync/singleflight"

	apperrors "github.com/zorak1103/conman/internal/errors"
	"github.com/zorak1103/conman/internal/logging"
)

// Common errors
var (
	ErrNotFound     = errors.New("container not found")
	ErrEngineClosed = errors.New("engine is closed")
)

// Engine is the set of container runtime capabilities conman builds on.
// Every method accepts a context for cancellation; none of them retries.
type Engine interface {
	// Ping verifies the daemon is reachable.
	Ping(ctx context.Context) error
	// Close releases the daemon connection. Further calls return ErrEngineClosed.
	// Closing twice is a no-op.
	Close() error

	// Run ensures the network and image exist, then creates, starts and
	// attaches the container and fires the post-start command if one is set.
	Run(ctx context.Context, opts RunOptions) (*Handle, error)
	// Exec runs command through "sh -c" inside the container. With output
	// false it detaches immediately and returns a nil result. With output true
	// it blocks until the command finishes; no timeout is applied beyond ctx.
	Exec(ctx context.Context, h *Handle, command string, output bool) (*ExecResult, error)
	// Get looks a container up by name. An exited container is removed and
	// reported as ErrNotFound, so callers never observe one.
	Get(ctx context.Context, name string) (*Handle, error)
	// Stop stops and removes the container.
	Stop(ctx context.Context, h *Handle) error
	// Inspect returns the engine's native inspection data.
	Inspect(ctx context.Context, h *Handle) (container.InspectResponse, error)
	// HostAddress resolves where a container port is reachable. The boolean is
	// false when the port/protocol pair is not reachable from outside.
	HostAddress(ctx context.Context, h *Handle, port int, protocol string) (HostAddress, bool, error)
	// NetworkAlias returns the first alias of the container on networkName.
	NetworkAlias(ctx context.Context, h *Handle, networkName string) (string, bool, error)
}

// Option configures the Docker engine.
type Option func(*dockerEngine)

// WithLogger sets the logger used for lifecycle messages.
func WithLogger(logger *log.Logger) Option {
	return func(e *dockerEngine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithStopTimeout sets how many seconds the daemon waits before killing a
// container on stop. Zero or negative keeps the daemon default.
func WithStopTimeout(seconds int) Option {
	return func(e *dockerEngine) {
		if seconds > 0 {
			e.stopTimeout = &seconds
		}
	}
}

// dockerEngine implements Engine on top of the Docker SDK client.
type dockerEngine struct {
	api         client.APIClient
	socketPath  string
	logger      *log.Logger
	stopTimeout *int

	networks  singleflight.Group
	closeOnce sync.Once
	closed    atomic.Bool
}

// Compile-time verification that dockerEngine implements Engine
var _ Engine = (*dockerEngine)(nil)

// NewEngine connects to the Docker daemon at socketPath (or the environment
// default if empty). The connection is held until Close.
func NewEngine(socketPath string, opts ...Option) (Engine, error) {
	clientOpts := []client.Opt{
		client.FromEnv,
		client.WithAPIVersionNegotiation(),
	}

	// Add host option if socket path is specified
	if socketPath != "" {
		clientOpts = append(clientOpts, client.WithHost(socketPath))
	}

	cli, err := client.NewClientWithOpts(clientOpts...)
	if err != nil {
		return nil, &apperrors.DockerConnectionError{SocketPath: socketPath, Operation: "NewClient", Err: err}
	}

	return newEngine(cli, socketPath, opts...), nil
}

// NewEngineWithClient wraps an existing API client; used with test doubles.
func NewEngineWithClient(api client.APIClient, opts ...Option) Engine {
	return newEngine(api, "", opts...)
}

func newEngine(api client.APIClient, socketPath string, opts ...Option) *dockerEngine {
	e := &dockerEngine{
		api:        api,
		socketPath: socketPath,
		logger:     logging.Discard(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *dockerEngine) checkOpen() error {
	if e.closed.Load() {
		return ErrEngineClosed
	}
	return nil
}

func (e *dockerEngine) Ping(ctx context.Context) error {
	if err := e.checkOpen(); err != nil {
		return err
	}
	if _, err := e.api.Ping(ctx); err != nil {
		return &apperrors.DockerConnectionError{SocketPath: e.socketPath, Operation: "Ping", Err: err}
	}
	return nil
}

func (e *dockerEngine) Close() error {
	var err error
	e.closeOnce.Do(func() {
		e.closed.Store(true)
		err = e.api.Close()
	})
	return err
}

func (e *dockerEngine) Get(ctx context.Context, name string) (*Handle, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}

	info, err := e.api.ContainerInspect(ctx, name)
	if err != nil {
		if cerrdefs.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to look up container %s: %w", name, err)
	}

	h := handleFromInspect(info)
	// The daemon also resolves ID prefixes; only an exact name match counts.
	if h == nil || h.Name != name {
		return nil, ErrNotFound
	}

	if h.Status == StatusExited {
		e.logger.Info("removing exited container", "container", name)
		if err := e.api.ContainerRemove(ctx, h.ID, container.RemoveOptions{}); err != nil && !cerrdefs.IsNotFound(err) {
			return nil, fmt.Errorf("failed to remove exited container %s: %w", name, err)
		}
		return nil, ErrNotFound
	}

	return h, nil
}

func (e *dockerEngine) Stop(ctx context.Context, h *Handle) error {
	if err := e.checkOpen(); err != nil {
		return err
	}
	if h == nil {
		return fmt.Errorf("stop: %w", ErrNotFound)
	}

	if err := e.api.ContainerStop(ctx, h.ID, container.StopOptions{Timeout: e.stopTimeout}); err != nil {
		return fmt.Errorf("failed to stop container %s: %w", h.Name, err)
	}
	if err := e.api.ContainerRemove(ctx, h.ID, container.RemoveOptions{}); err != nil {
		return fmt.Errorf("failed to remove container %s: %w", h.Name, err)
	}

	e.logger.Info("container stopped", "container", h.Name)
	return nil
}

func (e *dockerEngine) Inspect(ctx context.Context, h *Handle) (container.InspectResponse, error) {
	if err := e.checkOpen(); err != nil {
		return container.InspectResponse{}, err
	}
	if h == nil {
		return container.InspectResponse{}, fmt.Errorf("inspect: %w", ErrNotFound)
	}

	info, err := e.api.ContainerInspect(ctx, h.ID)
	if err != nil {
		return container.InspectResponse{}, fmt.Errorf("failed to inspect container %s: %w", h.Name, err)
	}
	return info, nil
}

// handleFromInspect extracts a handle; it returns nil when the response carries
// no base information.
func handleFromInspect(info container.InspectResponse) *Handle {
	if info.ContainerJSONBase == nil {
		return nil
	}
	h := &Handle{
		ID:   info.ID,
		Name: strings.TrimPrefix(info.Name, "/"),
	}
	if info.State != nil {
		h.Status = info.State.Status
	}
	return h
}
