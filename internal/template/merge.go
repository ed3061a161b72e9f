package template

import (
	"maps"
	"slices"

	"github.com/zorak1103/conman/internal/docker"
)

// Config is a run configuration. Zero-valued fields are unset and fall back
// to the layer below when merged.
type Config struct {
	Image          string
	Ports          docker.PortMap
	Command        string
	Volumes        docker.Volumes
	Network        string
	NetworkAliases []string
	Auth           docker.AuthSource
}

// Merge returns base overlaid with override. Scalars and the alias list are
// replaced when set in override; ports and volumes are merged key by key with
// override winning, so "80" and "80/tcp" name the same port. Neither input is
// modified and the result shares no maps or slices with them.
func Merge(base, override Config) Config {
	out := Config{
		Image:          base.Image,
		Ports:          mergeMap(canonicalPorts(base.Ports), canonicalPorts(override.Ports)),
		Command:        base.Command,
		Volumes:        mergeMap(base.Volumes, override.Volumes),
		Network:        base.Network,
		NetworkAliases: slices.Clone(base.NetworkAliases),
		Auth:           base.Auth,
	}
	if override.Image != "" {
		out.Image = override.Image
	}
	if override.Command != "" {
		out.Command = override.Command
	}
	if override.Network != "" {
		out.Network = override.Network
	}
	if override.NetworkAliases != nil {
		out.NetworkAliases = slices.Clone(override.NetworkAliases)
	}
	if override.Auth != nil {
		out.Auth = override.Auth
	}
	return out
}

func mergeMap[M ~map[K]V, K comparable, V any](base, override M) M {
	if len(base) == 0 && len(override) == 0 {
		return nil
	}
	out := make(M, len(base)+len(override))
	maps.Copy(out, base)
	maps.Copy(out, override)
	return out
}

// canonicalPorts rekeys p so "80" and "80/tcp" merge as one port. A map that
// cannot be canonicalized is returned as is and rejected when the container
// is created.
func canonicalPorts(p docker.PortMap) docker.PortMap {
	out, err := p.Canonical()
	if err != nil {
		return p
	}
	return out
}
