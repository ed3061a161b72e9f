package template

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zorak1103/conman/internal/docker"
)

func TestMerge(t *testing.T) {
	base := Config{
		Image:          "jupyter/base-notebook",
		Ports:          docker.PortMap{"8888": "8888", "9000": "9000"},
		Command:        "start.sh",
		Volumes:        docker.Volumes{"/srv": {Bind: "/data"}},
		Network:        "lab",
		NetworkAliases: []string{"nb"},
		Auth:           docker.StaticAuth{Username: "base"},
	}

	t.Run("empty override keeps base", func(t *testing.T) {
		got := Merge(base, Config{})
		assert.Equal(t, base, got)
	})

	t.Run("override wins field by field", func(t *testing.T) {
		got := Merge(base, Config{
			Image:          "jupyter/scipy-notebook",
			Ports:          docker.PortMap{"8888": "18888"},
			Volumes:        docker.Volumes{"/tmp": {Bind: "/scratch", Mode: "ro"}},
			NetworkAliases: []string{"nb2", "scipy"},
			Auth:           docker.StaticAuth{Username: "override"},
		})

		assert.Equal(t, "jupyter/scipy-notebook", got.Image)
		assert.Equal(t, docker.PortMap{"8888": "18888", "9000": "9000"}, got.Ports)
		assert.Equal(t, "start.sh", got.Command)
		assert.Equal(t, docker.Volumes{
			"/srv": {Bind: "/data"},
			"/tmp": {Bind: "/scratch", Mode: "ro"},
		}, got.Volumes)
		assert.Equal(t, "lab", got.Network)
		assert.Equal(t, []string{"nb2", "scipy"}, got.NetworkAliases)
		assert.Equal(t, docker.StaticAuth{Username: "override"}, got.Auth)
	})

	t.Run("port spellings merge as one port", func(t *testing.T) {
		got := Merge(
			Config{Ports: docker.PortMap{"80": "8080", "53/udp": "53"}},
			Config{Ports: docker.PortMap{"80/tcp": "9000", "53/UDP": "5353"}},
		)
		assert.Equal(t, docker.PortMap{"80": "9000", "53/udp": "5353"}, got.Ports)
	})

	t.Run("empty alias list clears aliases", func(t *testing.T) {
		got := Merge(base, Config{NetworkAliases: []string{}})
		assert.Empty(t, got.NetworkAliases)
	})

	t.Run("result does not alias inputs", func(t *testing.T) {
		got := Merge(base, Config{})
		got.Ports["8888"] = "1"
		got.Volumes["/other"] = docker.VolumeMount{Bind: "/x"}
		got.NetworkAliases[0] = "changed"

		assert.Equal(t, "8888", base.Ports["8888"])
		assert.NotContains(t, base.Volumes, "/other")
		assert.Equal(t, "nb", base.NetworkAliases[0])
	})

	t.Run("both empty maps stay nil", func(t *testing.T) {
		got := Merge(Config{}, Config{})
		assert.Nil(t, got.Ports)
		assert.Nil(t, got.Volumes)
	})
}
