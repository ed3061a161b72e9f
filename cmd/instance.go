package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/zorak1103/conman/internal/config"
	"github.com/zorak1103/conman/internal/container"
	"github.com/zorak1103/conman/internal/docker"
	"github.com/zorak1103/conman/internal/notification"
	"github.com/zorak1103/conman/internal/template"
)

// newEngine connects to the daemon; replaced in tests.
var newEngine = func(cfg *config.Config, logger *log.Logger) (docker.Engine, error) {
	return docker.NewEngine(cfg.Docker.SocketPath,
		docker.WithLogger(logger),
		docker.WithStopTimeout(cfg.Docker.StopTimeout),
	)
}

// instanceArgs validates "<template> [id]".
var instanceArgs = cobra.RangeArgs(1, 2)

// requireConfig returns the loaded configuration or a user-friendly error.
func requireConfig() (*config.Config, error) {
	cfg := GetConfig()
	if cfg != nil {
		return cfg, nil
	}
	if err := GetConfigLoadError(); err != nil {
		return nil, fmt.Errorf("configuration not loaded: %w\n\nRun 'conman init' to create config.yaml", err)
	}
	return nil, fmt.Errorf("configuration not loaded\n\nRun 'conman init' to create config.yaml")
}

// openEngine connects to Docker and verifies the daemon answers.
func openEngine(ctx context.Context, cfg *config.Config) (docker.Engine, error) {
	engine, err := newEngine(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}

	// Ping Docker to verify connection
	if err := engine.Ping(ctx); err != nil {
		_ = engine.Close() // Close client; ping error is the one worth reporting
		return nil, fmt.Errorf("failed to connect to Docker: %w", err)
	}
	return engine, nil
}

// session is one resolved instance plus the engine behind it.
type session struct {
	cfg      *config.Config
	template *template.Template
	instance *template.Instance
	engine   docker.Engine
}

// Close releases the engine connection.
func (s *session) Close() {
	_ = s.engine.Close() // Close client; error not actionable in defer context
}

// openSession resolves "<template> [id]" and an optional explicit name into a
// running-capable instance. The name is resolved before connecting so that
// configuration errors never need a daemon.
func openSession(ctx context.Context, args []string, explicitName string) (*session, error) {
	cfg, err := requireConfig()
	if err != nil {
		return nil, err
	}

	templateName := strings.ToLower(args[0])
	tc, err := cfg.Template(templateName)
	if err != nil {
		return nil, err
	}
	tmpl, err := template.FromConfig(templateName, tc)
	if err != nil {
		return nil, err
	}

	id := template.NoID
	if len(args) > 1 {
		id = template.ParseID(args[1])
	}
	name, err := tmpl.ResolveName(id, explicitName)
	if err != nil {
		return nil, err
	}

	policy, err := container.ParseStopPolicy(cfg.Lifecycle.StopPolicy)
	if err != nil {
		return nil, err
	}

	engine, err := openEngine(ctx, cfg)
	if err != nil {
		return nil, err
	}

	inst, err := tmpl.New(engine, id, name,
		container.WithLogger(logger),
		container.WithStopPolicy(policy),
	)
	if err != nil {
		_ = engine.Close()
		return nil, err
	}

	return &session{cfg: cfg, template: tmpl, instance: inst, engine: engine}, nil
}

// notify sends a lifecycle event. Failures are logged, never returned: the
// container operation already succeeded.
func (s *session) notify(ev notification.Event) {
	notifier, err := notification.NewNotifier(s.cfg)
	if err != nil {
		logger.Warn("notifications misconfigured", "err", err)
		return
	}
	ev.Template = s.template.Name
	if err := notifier.SendLifecycleEvent(ev); err != nil {
		logger.Warn("failed to send notification", "container", ev.Container, "err", err)
	}
}
