package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
	dockercontainer "github.com/docker/docker/api/types/container"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/zorak1103/conman/internal/config"
	"github.com/zorak1103/conman/internal/docker"
)

const testConfigYAML = `docker:
  socket_path: unix:///tmp/conman-test.sock
log:
  level: error
lifecycle:
  stop_policy: %s
templates:
  jupyter:
    image: jupyter/base-notebook
    container_name: jupyter
    default_name: notebook
    local_ports: [8888]
    auto_assign_ports: true
    network: lab
    network_aliases: [nb]
  db:
    image: postgres:16
    default_name: db
    ports: ["15432:5432"]
    auth:
      username: deploy
      password: hunter2hunter2
      server_address: registry.example.com
`

// writeTestConfig writes a config file and returns its path.
func writeTestConfig(t *testing.T, stopPolicy string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(fmt.Sprintf(testConfigYAML, stopPolicy)), 0o600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

// resetFlags restores every flag of c and its children to its default so
// consecutive Execute calls do not leak state.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, child := range c.Commands() {
		resetFlags(child)
	}
}

// executeCommand runs the root command with args and returns stdout.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	cfg, errConfigLoad = nil, nil

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

// fakeEngine is an in-memory docker.Engine.
type fakeEngine struct {
	mu         sync.Mutex
	containers map[string]*fakeContainer
	pingErr    error
	closed     int
	execOutput []string
	execCode   int
	lastExec   string
}

type fakeContainer struct {
	handle docker.Handle
	opts   docker.RunOptions
}

var _ docker.Engine = (*fakeEngine)(nil)

func newFakeEngine() *fakeEngine {
	return &fakeEngine{containers: make(map[string]*fakeContainer)}
}

// useEngine routes the CLI to engine for the duration of the test.
func useEngine(t *testing.T, engine *fakeEngine) {
	t.Helper()
	orig := newEngine
	newEngine = func(*config.Config, *log.Logger) (docker.Engine, error) {
		return engine, nil
	}
	t.Cleanup(func() { newEngine = orig })
}

func (f *fakeEngine) Ping(context.Context) error { return f.pingErr }

func (f *fakeEngine) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

func (f *fakeEngine) Run(_ context.Context, opts docker.RunOptions) (*docker.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h := docker.Handle{ID: "id-" + opts.Name, Name: opts.Name, Status: docker.StatusRunning}
	f.containers[opts.Name] = &fakeContainer{handle: h, opts: opts}
	return &h, nil
}

func (f *fakeEngine) Exec(_ context.Context, _ *docker.Handle, command string, output bool) (*docker.ExecResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastExec = command
	if !output {
		return nil, nil
	}
	return &docker.ExecResult{ExitCode: f.execCode, Output: f.execOutput}, nil
}

func (f *fakeEngine) Get(_ context.Context, name string) (*docker.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.containers[name]
	if !ok {
		return nil, docker.ErrNotFound
	}
	h := c.handle
	return &h, nil
}

func (f *fakeEngine) Stop(_ context.Context, h *docker.Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.containers, h.Name)
	return nil
}

func (f *fakeEngine) Inspect(_ context.Context, h *docker.Handle) (dockercontainer.InspectResponse, error) {
	return dockercontainer.InspectResponse{
		ContainerJSONBase: &dockercontainer.ContainerJSONBase{
			ID:    h.ID,
			Name:  "/" + h.Name,
			State: &dockercontainer.State{Status: docker.StatusRunning, Running: true},
		},
	}, nil
}

func (f *fakeEngine) HostAddress(_ context.Context, h *docker.Handle, port int, protocol string) (docker.HostAddress, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	spec := strconv.Itoa(port)
	if protocol != "" && protocol != "tcp" {
		spec += "/" + protocol
	}
	host, ok := f.containers[h.Name].opts.Ports[spec]
	if !ok {
		return docker.HostAddress{}, false, nil
	}
	return docker.HostAddress{IP: "127.0.0.1", Port: host}, true, nil
}

func (f *fakeEngine) NetworkAlias(_ context.Context, h *docker.Handle, networkName string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.containers[h.Name]
	if c.opts.Network != networkName || len(c.opts.NetworkAliases) == 0 {
		return "", false, nil
	}
	return c.opts.NetworkAliases[0], true, nil
}

func (f *fakeEngine) run(name string) (docker.RunOptions, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.containers[name]
	if !ok {
		return docker.RunOptions{}, false
	}
	return c.opts, true
}

func containsString(s, substr string) bool {
	return strings.Contains(s, substr)
}
