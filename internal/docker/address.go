package docker

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/docker/docker/api/types/network"
	"github.com/docker/go-connections/nat"
)

// builtinNetworks are the daemon's predefined networks; anything else is a
// user network.
var builtinNetworks = map[string]bool{
	"bridge": true,
	"host":   true,
	"none":   true,
}

func (e *dockerEngine) HostAddress(ctx context.Context, h *Handle, port int, protocol string) (HostAddress, bool, error) {
	if protocol == "" {
		protocol = defaultProtocol
	}
	key, err := nat.NewPort(protocol, strconv.Itoa(port))
	if err != nil {
		return HostAddress{}, false, fmt.Errorf("invalid port %d/%s: %w", port, protocol, err)
	}

	info, err := e.Inspect(ctx, h)
	if err != nil {
		return HostAddress{}, false, err
	}
	if info.NetworkSettings == nil {
		return HostAddress{}, false, nil
	}

	for _, binding := range info.NetworkSettings.Ports[key] {
		if binding.HostPort == "" {
			continue
		}
		return HostAddress{IP: normalizeHostIP(binding.HostIP), Port: binding.HostPort}, true, nil
	}

	// Without a published binding, siblings on a user network reach the
	// container on its network address and the original port.
	if ip := userNetworkIP(info.NetworkSettings.Networks); ip != "" {
		return HostAddress{IP: ip, Port: strconv.Itoa(port)}, true, nil
	}

	return HostAddress{}, false, nil
}

func (e *dockerEngine) NetworkAlias(ctx context.Context, h *Handle, networkName string) (string, bool, error) {
	info, err := e.Inspect(ctx, h)
	if err != nil {
		return "", false, err
	}
	if info.NetworkSettings == nil {
		return "", false, nil
	}

	endpoint, ok := info.NetworkSettings.Networks[networkName]
	if !ok || endpoint == nil || len(endpoint.Aliases) == 0 {
		return "", false, nil
	}
	return endpoint.Aliases[0], true, nil
}

// userNetworkIP returns the address on the first user network, by name order.
func userNetworkIP(networks map[string]*network.EndpointSettings) string {
	names := make([]string, 0, len(networks))
	for name := range networks {
		if !builtinNetworks[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	for _, name := range names {
		if endpoint := networks[name]; endpoint != nil && endpoint.IPAddress != "" {
			return endpoint.IPAddress
		}
	}
	return ""
}
