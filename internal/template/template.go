// Package template builds managed containers from declarative defaults.
//
// A Template describes one kind of container: its image, how instance names
// are derived, and the run configuration every instance starts from. An
// Instance binds a Template to a resolved name; starting it merges the
// template defaults with call-site overrides and hands the result to
// container.Container.
package template

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	texttemplate "text/template"

	"github.com/zorak1103/conman/internal/container"
	"github.com/zorak1103/conman/internal/docker"
	apperrors "github.com/zorak1103/conman/internal/errors"
)

// maxPort is the highest host port an auto-assigned offset may reach.
const maxPort = 65535

// Template holds the type-level defaults of a container kind.
type Template struct {
	Name string // Template key, used in error messages

	// Name derivation, tried in order after an explicit name: NameTemplate
	// (with .Base and .ID), "<ContainerName>-<id>", then DefaultName.
	ContainerName string
	NameTemplate  string
	DefaultName   string

	// LocalPorts are published on p+id when AutoAssignPorts is set and on p
	// otherwise, unless an explicit port map is configured.
	LocalPorts      []int
	AutoAssignPorts bool

	Defaults Config
}

// nameData is the data passed to NameTemplate.
type nameData struct {
	Base string
	ID   string
}

// ResolveName picks the instance name: explicit wins, then the template
// forms that need an ID, then DefaultName.
func (t *Template) ResolveName(id ID, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}

	if id.IsSet() {
		if t.NameTemplate != "" {
			return t.renderName(id)
		}
		if t.ContainerName != "" {
			return t.ContainerName + "-" + id.String(), nil
		}
	}

	if t.DefaultName != "" {
		return t.DefaultName, nil
	}

	reason := "no name, name template or default name"
	if !id.IsSet() && (t.NameTemplate != "" || t.ContainerName != "") {
		reason = "an identifier is required to derive the name"
	}
	return "", &apperrors.ConfigurationError{
		Key: "name",
		Err: fmt.Errorf("template %q: %s", t.Name, reason),
	}
}

func (t *Template) renderName(id ID) (string, error) {
	tmpl, err := texttemplate.New(t.Name).Option("missingkey=error").Parse(t.NameTemplate)
	if err != nil {
		return "", &apperrors.ConfigurationError{Key: "name_template", Err: fmt.Errorf("template %q: %w", t.Name, err)}
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, nameData{Base: t.ContainerName, ID: id.String()}); err != nil {
		return "", &apperrors.ConfigurationError{Key: "name_template", Err: fmt.Errorf("template %q: %w", t.Name, err)}
	}

	name := strings.TrimSpace(sb.String())
	if name == "" {
		return "", &apperrors.ConfigurationError{Key: "name_template", Err: fmt.Errorf("template %q rendered an empty name", t.Name)}
	}
	return name, nil
}

// RunConfig merges the defaults with override. When neither layer sets
// ports, they are derived from LocalPorts.
func (t *Template) RunConfig(id ID, override Config) (Config, error) {
	cfg := Merge(t.Defaults, override)
	if len(cfg.Ports) > 0 {
		return cfg, nil
	}

	ports, err := t.localPorts(id)
	if err != nil {
		return Config{}, err
	}
	cfg.Ports = ports
	return cfg, nil
}

func (t *Template) localPorts(id ID) (docker.PortMap, error) {
	offset := 0
	if t.AutoAssignPorts {
		n, ok := id.Int()
		if !ok {
			return nil, &apperrors.PortAutoAssignError{ID: id.String()}
		}
		offset = n
	}

	if len(t.LocalPorts) == 0 {
		return nil, nil
	}
	ports := make(docker.PortMap, len(t.LocalPorts))
	for _, p := range t.LocalPorts {
		if offset > maxPort-p {
			return nil, &apperrors.PortAutoAssignError{ID: id.String(), LocalPort: p}
		}
		ports[strconv.Itoa(p)] = strconv.Itoa(p + offset)
	}
	return ports, nil
}

// Instance is a Template bound to one resolved container name.
type Instance struct {
	*container.Container
	template *Template
	id       ID
}

// New resolves the instance name and returns its descriptor. No I/O happens
// until a lifecycle method is called.
func (t *Template) New(engine docker.Engine, id ID, explicitName string, opts ...container.Option) (*Instance, error) {
	if engine == nil {
		return nil, errors.New("template: engine is required")
	}
	name, err := t.ResolveName(id, explicitName)
	if err != nil {
		return nil, err
	}
	return &Instance{
		Container: container.New(engine, name, opts...),
		template:  t,
		id:        id,
	}, nil
}

// ID returns the identifier the instance was created with.
func (i *Instance) ID() ID {
	return i.id
}

// Start merges the template defaults with override and starts the container.
// The boolean reports whether a new container was created.
func (i *Instance) Start(ctx context.Context, override Config) (bool, error) {
	cfg, err := i.template.RunConfig(i.id, override)
	if err != nil {
		return false, err
	}
	if cfg.Image == "" {
		return false, &apperrors.ConfigurationError{Key: "image", Err: fmt.Errorf("template %q has no image", i.template.Name)}
	}

	return i.Container.Start(ctx, cfg.Image, container.RunConfig{
		Ports:          cfg.Ports,
		Command:        cfg.Command,
		Volumes:        cfg.Volumes,
		Network:        cfg.Network,
		NetworkAliases: cfg.NetworkAliases,
		Auth:           cfg.Auth,
	})
}
