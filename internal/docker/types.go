package docker

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strings"
)

// Container states reported by the engine that conman cares about.
const (
	StatusRunning = "running"
	StatusExited  = "exited"
)

// Handle references a container resource that existed when it was looked up.
// It is only meaningful for the duration of a single logical operation; callers
// re-resolve by name instead of keeping handles around.
type Handle struct {
	ID     string
	Name   string
	Status string // running, exited, created, etc.
}

// PortMap maps a container port spec ("8080" or "8080/udp") to the host port
// it is published on.
type PortMap map[string]string

// VolumeMount describes where a host path is mounted inside the container.
type VolumeMount struct {
	Bind string `mapstructure:"bind"` // Path inside the container
	Mode string `mapstructure:"mode"` // "rw" (default) or "ro"
}

// Volumes maps a host path to its mount inside the container.
type Volumes map[string]VolumeMount

// binds renders the volumes in "host:container[:mode]" form, sorted by host
// path so the create request is deterministic.
func (v Volumes) binds() []string {
	if len(v) == 0 {
		return nil
	}
	hosts := make([]string, 0, len(v))
	for host := range v {
		hosts = append(hosts, host)
	}
	sort.Strings(hosts)

	binds := make([]string, 0, len(v))
	for _, host := range hosts {
		m := v[host]
		bind := host + ":" + m.Bind
		if m.Mode != "" {
			bind += ":" + m.Mode
		}
		binds = append(binds, bind)
	}
	return binds
}

// RunOptions describes a container to create and start.
type RunOptions struct {
	Name           string     // Container name; the logical identity
	Image          string     // Image reference, pulled when missing locally
	Ports          PortMap    // Published ports
	Command        string     // Optional command executed after the container is running
	Volumes        Volumes    // Host path mounts
	Network        string     // Optional user network, created if absent
	NetworkAliases []string   // Aliases on Network
	Auth           AuthSource // Optional registry credentials
}

// ExecResult is the outcome of a synchronous exec.
type ExecResult struct {
	ExitCode int
	Output   []string // Combined stdout/stderr, one entry per line
}

// HostAddress is an endpoint reachable from outside the container.
type HostAddress struct {
	IP   string
	Port string
}

// String returns the address in host:port form.
func (a HostAddress) String() string {
	return net.JoinHostPort(a.IP, a.Port)
}

// Credentials authenticate against an image registry.
type Credentials struct {
	Username      string
	Password      string
	ServerAddress string
}

// AuthSource yields registry credentials. It is consulted lazily, only when a
// container is actually run, so secrets never need to live in configuration.
type AuthSource interface {
	Credentials(ctx context.Context) (Credentials, error)
}

// StaticAuth is a fixed set of credentials.
type StaticAuth Credentials

// Credentials implements AuthSource.
func (s StaticAuth) Credentials(_ context.Context) (Credentials, error) {
	return Credentials(s), nil
}

// AuthFunc adapts a zero-argument credential provider to AuthSource.
type AuthFunc func(ctx context.Context) (Credentials, error)

// Credentials implements AuthSource.
func (f AuthFunc) Credentials(ctx context.Context) (Credentials, error) {
	return f(ctx)
}

// ParseVolumeSpec parses "host:container[:mode]".
func ParseVolumeSpec(spec string) (string, VolumeMount, error) {
	parts := strings.Split(spec, ":")
	if len(parts) < 2 || len(parts) > 3 || parts[0] == "" || parts[1] == "" {
		return "", VolumeMount{}, fmt.Errorf("invalid volume specification: %s. Format should be hostPath:containerPath[:mode]", spec)
	}
	m := VolumeMount{Bind: parts[1]}
	if len(parts) == 3 {
		if parts[2] != "rw" && parts[2] != "ro" {
			return "", VolumeMount{}, fmt.Errorf("invalid volume mode %q in %s: must be rw or ro", parts[2], spec)
		}
		m.Mode = parts[2]
	}
	return parts[0], m, nil
}
