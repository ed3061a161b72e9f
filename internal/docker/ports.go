package docker

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/docker/go-connections/nat"
)

const (
	defaultProtocol = "tcp"
	anyIPv4         = "0.0.0.0"
	loopback        = "127.0.0.1"
)

// ParsePortSpecs parses strings in the format "hostPort:containerPort[/protocol]".
func ParsePortSpecs(specs []string) (PortMap, error) {
	ports := make(PortMap, len(specs))
	for _, spec := range specs {
		parts := strings.Split(spec, ":")
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid port specification: %s. Format should be hostPort:containerPort[/protocol]", spec)
		}
		if _, err := strconv.Atoi(parts[0]); err != nil {
			return nil, fmt.Errorf("invalid host port: %s. Must be a number", parts[0])
		}
		key, err := CanonicalPort(parts[1])
		if err != nil {
			return nil, err
		}
		if _, dup := ports[key]; dup {
			return nil, fmt.Errorf("duplicate container port: %s", parts[1])
		}
		ports[key] = parts[0]
	}
	return ports, nil
}

// CanonicalPort returns the key a container port is stored under: the bare
// number for tcp, "port/protocol" otherwise. "80" and "80/tcp" are the same
// port and share a key.
func CanonicalPort(spec string) (string, error) {
	port, err := containerPort(spec)
	if err != nil {
		return "", err
	}
	if port.Proto() == defaultProtocol {
		return port.Port(), nil
	}
	return string(port), nil
}

// Canonical returns a copy of p keyed by CanonicalPort. Two entries naming
// the same container port are an error.
func (p PortMap) Canonical() (PortMap, error) {
	if p == nil {
		return nil, nil
	}
	out := make(PortMap, len(p))
	for spec, host := range p {
		key, err := CanonicalPort(spec)
		if err != nil {
			return nil, err
		}
		if _, dup := out[key]; dup {
			return nil, fmt.Errorf("duplicate container port: %s", spec)
		}
		out[key] = host
	}
	return out, nil
}

// Validate checks every entry of the map.
func (p PortMap) Validate() error {
	for spec, host := range p {
		if _, err := containerPort(spec); err != nil {
			return err
		}
		if _, err := strconv.Atoi(host); err != nil {
			return fmt.Errorf("invalid host port %q for %s: must be a number", host, spec)
		}
	}
	return nil
}

// toNat converts the map into the exposed port set and bindings the engine
// expects. Bindings are pinned to 0.0.0.0 so a single IPv4 binding is published.
func (p PortMap) toNat() (nat.PortSet, nat.PortMap, error) {
	if len(p) == 0 {
		return nil, nil, nil
	}
	exposed := make(nat.PortSet, len(p))
	bindings := make(nat.PortMap, len(p))
	for spec, host := range p {
		port, err := containerPort(spec)
		if err != nil {
			return nil, nil, err
		}
		if _, dup := exposed[port]; dup {
			return nil, nil, fmt.Errorf("duplicate container port: %s", spec)
		}
		exposed[port] = struct{}{}
		bindings[port] = []nat.PortBinding{{HostIP: anyIPv4, HostPort: host}}
	}
	return exposed, bindings, nil
}

// containerPort parses "8080" or "8080/udp" into a nat.Port.
func containerPort(spec string) (nat.Port, error) {
	proto, port := nat.SplitProtoPort(spec)
	if proto == "" {
		proto = defaultProtocol
	}
	if _, err := nat.ParsePort(port); err != nil || port == "" {
		return "", fmt.Errorf("invalid container port: %s. Must be a number", spec)
	}
	return nat.NewPort(proto, port)
}

// normalizeHostIP maps wildcard bind addresses to the loopback address a local
// client would dial.
func normalizeHostIP(ip string) string {
	switch ip {
	case "", anyIPv4, "::":
		return loopback
	}
	return ip
}
