package docker

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/api/types/registry"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-connections/nat"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// fakeContainer is the daemon-side record of a container.
type fakeContainer struct {
	id       string
	name     string
	status   string
	config   *container.Config
	host     *container.HostConfig
	networks map[string]*network.EndpointSettings
}

// fakeAPI is an in-memory stand-in for the Docker daemon. Only the methods the
// engine calls are implemented; anything else panics through the nil embedded
// interface.
type fakeAPI struct {
	client.APIClient

	mu         sync.Mutex
	containers map[string]*fakeContainer // keyed by name
	networks   map[string]string         // name -> id
	images     map[string]bool
	execs      map[string]container.ExecOptions
	calls      map[string]int
	nextID     int

	pingErr      error
	pullStream   string
	pullErr      error
	loginErr     error
	lastLogin    registry.AuthConfig
	lastPullAuth string
	createErr    error
	startStatus  string // status assigned on start; defaults to running
	networkRace  bool   // NetworkCreate reports a conflict
	execOutput   string
	execStderr   string
	execExitCode int
	lastExecCmd  []string
	lastExecOpts container.ExecOptions
	detachedRuns int
	pipes        []net.Conn
}

var _ client.APIClient = (*fakeAPI)(nil)

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		containers: make(map[string]*fakeContainer),
		networks:   make(map[string]string),
		images:     make(map[string]bool),
		execs:      make(map[string]container.ExecOptions),
		calls:      make(map[string]int),
		pullStream: `{"status":"Pulling from library/alpine"}` + "\n" + `{"status":"Download complete"}` + "\n",
	}
}

func (f *fakeAPI) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeAPI) record(name string) {
	f.calls[name]++
}

func (f *fakeAPI) newID(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s%064d", prefix, f.nextID)[:64]
}

// lookup resolves by name or ID, mirroring the daemon.
func (f *fakeAPI) lookup(ref string) *fakeContainer {
	if c, ok := f.containers[ref]; ok {
		return c
	}
	for _, c := range f.containers {
		if c.id == ref {
			return c
		}
	}
	return nil
}

// addContainer seeds a container directly, bypassing Run.
func (f *fakeAPI) addContainer(name, status string) *fakeContainer {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := &fakeContainer{
		id:       f.newID("c"),
		name:     name,
		status:   status,
		config:   &container.Config{},
		host:     &container.HostConfig{},
		networks: map[string]*network.EndpointSettings{},
	}
	f.containers[name] = c
	return c
}

func (f *fakeAPI) Ping(_ context.Context) (types.Ping, error) {
	return types.Ping{APIVersion: "1.47"}, f.pingErr
}

func (f *fakeAPI) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Close")
	for _, p := range f.pipes {
		_ = p.Close()
	}
	return nil
}

func (f *fakeAPI) ContainerInspect(_ context.Context, containerID string) (container.InspectResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ContainerInspect")

	c := f.lookup(containerID)
	if c == nil {
		return container.InspectResponse{}, fmt.Errorf("No such container: %s: %w", containerID, cerrdefs.ErrNotFound)
	}

	ports := nat.PortMap{}
	for port := range c.config.ExposedPorts {
		ports[port] = nil
	}
	for port, bindings := range c.host.PortBindings {
		ports[port] = bindings
	}

	networks := make(map[string]*network.EndpointSettings, len(c.networks))
	for name, ep := range c.networks {
		copied := *ep
		networks[name] = &copied
	}

	return container.InspectResponse{
		ContainerJSONBase: &container.ContainerJSONBase{
			ID:    c.id,
			Name:  "/" + c.name,
			State: &container.State{Status: c.status, Running: c.status == StatusRunning},
		},
		Config: c.config,
		NetworkSettings: &container.NetworkSettings{
			NetworkSettingsBase: container.NetworkSettingsBase{Ports: ports},
			Networks:            networks,
		},
	}, nil
}

func (f *fakeAPI) ContainerRemove(_ context.Context, containerID string, _ container.RemoveOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ContainerRemove")

	c := f.lookup(containerID)
	if c == nil {
		return fmt.Errorf("No such container: %s: %w", containerID, cerrdefs.ErrNotFound)
	}
	if c.status == StatusRunning {
		return fmt.Errorf("cannot remove running container %s: %w", c.name, cerrdefs.ErrConflict)
	}
	delete(f.containers, c.name)
	return nil
}

func (f *fakeAPI) ContainerStop(_ context.Context, containerID string, _ container.StopOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ContainerStop")

	c := f.lookup(containerID)
	if c == nil {
		return fmt.Errorf("No such container: %s: %w", containerID, cerrdefs.ErrNotFound)
	}
	c.status = StatusExited
	return nil
}

func (f *fakeAPI) ContainerCreate(_ context.Context, config *container.Config, hostConfig *container.HostConfig, _ *network.NetworkingConfig, _ *ocispec.Platform, containerName string) (container.CreateResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ContainerCreate")

	if f.createErr != nil {
		return container.CreateResponse{}, f.createErr
	}
	if !f.images[config.Image] {
		return container.CreateResponse{}, fmt.Errorf("No such image: %s: %w", config.Image, cerrdefs.ErrNotFound)
	}
	if _, exists := f.containers[containerName]; exists {
		return container.CreateResponse{}, fmt.Errorf("name %s already in use: %w", containerName, cerrdefs.ErrConflict)
	}

	c := &fakeContainer{
		id:       f.newID("c"),
		name:     containerName,
		status:   "created",
		config:   config,
		host:     hostConfig,
		networks: map[string]*network.EndpointSettings{"bridge": {IPAddress: "172.17.0.2"}},
	}
	f.containers[containerName] = c
	return container.CreateResponse{ID: c.id}, nil
}

func (f *fakeAPI) ContainerStart(_ context.Context, containerID string, _ container.StartOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ContainerStart")

	c := f.lookup(containerID)
	if c == nil {
		return fmt.Errorf("No such container: %s: %w", containerID, cerrdefs.ErrNotFound)
	}
	c.status = StatusRunning
	if f.startStatus != "" {
		c.status = f.startStatus
	}
	return nil
}

func (f *fakeAPI) ContainerExecCreate(_ context.Context, containerID string, options container.ExecOptions) (container.ExecCreateResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ContainerExecCreate")

	c := f.lookup(containerID)
	if c == nil {
		return container.ExecCreateResponse{}, fmt.Errorf("No such container: %s: %w", containerID, cerrdefs.ErrNotFound)
	}
	if c.status != StatusRunning {
		return container.ExecCreateResponse{}, fmt.Errorf("container %s is not running: %w", c.name, cerrdefs.ErrConflict)
	}

	id := f.newID("e")
	f.execs[id] = options
	f.lastExecCmd = options.Cmd
	f.lastExecOpts = options
	return container.ExecCreateResponse{ID: id}, nil
}

func (f *fakeAPI) ContainerExecStart(_ context.Context, execID string, config container.ExecStartOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ContainerExecStart")

	if _, ok := f.execs[execID]; !ok {
		return fmt.Errorf("No such exec instance: %s: %w", execID, cerrdefs.ErrNotFound)
	}
	if config.Detach {
		f.detachedRuns++
	}
	return nil
}

func (f *fakeAPI) ContainerExecAttach(_ context.Context, execID string, _ container.ExecAttachOptions) (types.HijackedResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ContainerExecAttach")

	if _, ok := f.execs[execID]; !ok {
		return types.HijackedResponse{}, fmt.Errorf("No such exec instance: %s: %w", execID, cerrdefs.ErrNotFound)
	}

	var stream bytes.Buffer
	if f.execOutput != "" {
		_, _ = stdcopy.NewStdWriter(&stream, stdcopy.Stdout).Write([]byte(f.execOutput))
	}
	if f.execStderr != "" {
		_, _ = stdcopy.NewStdWriter(&stream, stdcopy.Stderr).Write([]byte(f.execStderr))
	}

	local, remote := net.Pipe()
	f.pipes = append(f.pipes, remote)
	return types.HijackedResponse{Conn: local, Reader: bufio.NewReader(&stream)}, nil
}

func (f *fakeAPI) ContainerExecInspect(_ context.Context, execID string) (container.ExecInspect, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ContainerExecInspect")

	if _, ok := f.execs[execID]; !ok {
		return container.ExecInspect{}, fmt.Errorf("No such exec instance: %s: %w", execID, cerrdefs.ErrNotFound)
	}
	return container.ExecInspect{ExecID: execID, ExitCode: f.execExitCode}, nil
}

func (f *fakeAPI) ImageInspect(_ context.Context, imageID string, _ ...client.ImageInspectOption) (image.InspectResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ImageInspect")

	if !f.images[imageID] {
		return image.InspectResponse{}, fmt.Errorf("No such image: %s: %w", imageID, cerrdefs.ErrNotFound)
	}
	return image.InspectResponse{ID: "sha256:" + imageID}, nil
}

func (f *fakeAPI) ImagePull(_ context.Context, refStr string, options image.PullOptions) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ImagePull")

	f.lastPullAuth = options.RegistryAuth
	if f.pullErr != nil {
		return nil, f.pullErr
	}
	if !strings.Contains(f.pullStream, `"error"`) {
		f.images[refStr] = true
	}
	return io.NopCloser(strings.NewReader(f.pullStream)), nil
}

func (f *fakeAPI) RegistryLogin(_ context.Context, auth registry.AuthConfig) (registry.AuthenticateOKBody, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("RegistryLogin")

	f.lastLogin = auth
	if f.loginErr != nil {
		return registry.AuthenticateOKBody{}, f.loginErr
	}
	return registry.AuthenticateOKBody{Status: "Login Succeeded"}, nil
}

func (f *fakeAPI) NetworkInspect(_ context.Context, networkID string, _ network.InspectOptions) (network.Inspect, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("NetworkInspect")

	if id, ok := f.networks[networkID]; ok {
		return network.Inspect{ID: id, Name: networkID, Driver: networkDriver}, nil
	}
	return network.Inspect{}, fmt.Errorf("network %s not found: %w", networkID, cerrdefs.ErrNotFound)
}

func (f *fakeAPI) NetworkCreate(_ context.Context, name string, options network.CreateOptions) (network.CreateResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("NetworkCreate")

	if options.Driver != networkDriver {
		return network.CreateResponse{}, fmt.Errorf("unexpected driver %q", options.Driver)
	}
	if f.networkRace {
		f.networks[name] = f.newID("n")
		return network.CreateResponse{}, fmt.Errorf("network with name %s already exists: %w", name, cerrdefs.ErrConflict)
	}
	id := f.newID("n")
	f.networks[name] = id
	return network.CreateResponse{ID: id}, nil
}

func (f *fakeAPI) NetworkConnect(_ context.Context, networkID, containerID string, config *network.EndpointSettings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("NetworkConnect")

	var networkName string
	for name, id := range f.networks {
		if id == networkID || name == networkID {
			networkName = name
		}
	}
	if networkName == "" {
		return fmt.Errorf("network %s not found: %w", networkID, cerrdefs.ErrNotFound)
	}

	c := f.lookup(containerID)
	if c == nil {
		return fmt.Errorf("No such container: %s: %w", containerID, cerrdefs.ErrNotFound)
	}

	ep := &network.EndpointSettings{IPAddress: fmt.Sprintf("10.10.0.%d", len(f.containers)+1)}
	if config != nil {
		ep.Aliases = append([]string(nil), config.Aliases...)
	}
	c.networks[networkName] = ep
	return nil
}
