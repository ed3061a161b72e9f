package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zorak1103/conman/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Display the effective configuration",
	Long: `Display the effective configuration that conman will use at runtime.

This shows the merged configuration from:
  1. Default values
  2. Configuration file (config.yaml)
  3. Environment variables (highest priority)

Sensitive values like registry passwords are masked for security.`,
	Example: `  # Show current configuration
  conman config

  # Show with custom config file
  conman config --config /etc/conman/config.yaml`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := requireConfig()
		if err != nil {
			return err
		}

		printConfig(cmd.OutOrStdout(), cfg)
		return nil
	},
}

// nolint:gochecknoinits // Standard Cobra pattern for command registration
func init() {
	rootCmd.AddCommand(configCmd)
}

func printConfig(w io.Writer, cfg *config.Config) {
	source := cfg.ConfigFilePath
	if source == "" {
		source = "(defaults/environment)"
	}

	_, _ = fmt.Fprintln(w, "=== conman Effective Configuration ===")
	_, _ = fmt.Fprintf(w, "Source: %s\n\n", source)

	_, _ = fmt.Fprintln(w, "🐳 Docker Configuration:")
	_, _ = fmt.Fprintf(w, "   Socket Path:    %s\n", cfg.Docker.SocketPath)
	_, _ = fmt.Fprintf(w, "   Stop Timeout:   %s\n", stopTimeoutLabel(cfg.Docker.StopTimeout))
	_, _ = fmt.Fprintln(w)

	_, _ = fmt.Fprintln(w, "⚙️  Lifecycle:")
	_, _ = fmt.Fprintf(w, "   Stop Policy:    %s\n", cfg.Lifecycle.StopPolicy)
	_, _ = fmt.Fprintf(w, "   Log Level:      %s\n", cfg.Log.Level)
	_, _ = fmt.Fprintln(w)

	_, _ = fmt.Fprintln(w, "🔔 Notification Configuration:")
	_, _ = fmt.Fprintf(w, "   Enabled:        %v\n", cfg.Notification.Enabled)
	_, _ = fmt.Fprintf(w, "   Shoutrrr URL:   %s\n", maskShoutrrrURL(cfg.Notification.ShoutrrURL))
	_, _ = fmt.Fprintln(w)

	_, _ = fmt.Fprintln(w, "🧩 Templates:")
	names := cfg.TemplateNames()
	if len(names) == 0 {
		_, _ = fmt.Fprintln(w, "   (none configured)")
		return
	}
	for _, name := range names {
		printTemplate(w, name, cfg.Templates[name])
	}
}

func printTemplate(w io.Writer, name string, t config.TemplateConfig) {
	_, _ = fmt.Fprintf(w, "   %s:\n", name)
	_, _ = fmt.Fprintf(w, "      Image:          %s\n", t.Image)

	switch {
	case t.NameTemplate != "":
		_, _ = fmt.Fprintf(w, "      Name Template:  %s\n", t.NameTemplate)
	case t.ContainerName != "":
		_, _ = fmt.Fprintf(w, "      Name:           %s-<id>\n", t.ContainerName)
	}
	if t.DefaultName != "" {
		_, _ = fmt.Fprintf(w, "      Default Name:   %s\n", t.DefaultName)
	}

	if len(t.Ports) > 0 {
		_, _ = fmt.Fprintf(w, "      Ports:          %s\n", strings.Join(t.Ports, ", "))
	} else if len(t.LocalPorts) > 0 {
		mode := "p -> p"
		if t.AutoAssignPorts {
			mode = "p -> p+id"
		}
		_, _ = fmt.Fprintf(w, "      Local Ports:    %v (%s)\n", t.LocalPorts, mode)
	}
	if t.Command != "" {
		_, _ = fmt.Fprintf(w, "      Command:        %s\n", t.Command)
	}
	if len(t.Volumes) > 0 {
		_, _ = fmt.Fprintf(w, "      Volumes:        %s\n", strings.Join(t.Volumes, ", "))
	}
	if t.Network != "" {
		_, _ = fmt.Fprintf(w, "      Network:        %s %v\n", t.Network, t.NetworkAliases)
	}
	if t.Auth != nil {
		_, _ = fmt.Fprintf(w, "      Registry Auth:  %s@%s (%s)\n", t.Auth.Username, t.Auth.ServerAddress, passwordSource(t.Auth))
	}
}

func stopTimeoutLabel(seconds int) string {
	if seconds <= 0 {
		return "daemon default"
	}
	return fmt.Sprintf("%ds", seconds)
}

func passwordSource(a *config.AuthConfig) string {
	if a.PasswordEnv != "" {
		return "password from $" + a.PasswordEnv
	}
	return "password " + maskSecret(a.Password)
}

// maskSecret obscures secrets for display in config output.
// Shows first 4 and last 4 characters (e.g., "sk-1***abc2").
func maskSecret(key string) string {
	if key == "" {
		return "❌ Not set"
	}
	if len(key) <= 8 {
		return "***"
	}
	// Show first 4 and last 4 characters
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}

// maskShoutrrrURL masks sensitive parts of Shoutrrr URL
func maskShoutrrrURL(url string) string {
	if url == "" {
		return "❌ Not configured"
	}

	// Extract service type (e.g., discord://, slack://, smtp://)
	parts := strings.SplitN(url, "://", 2)
	if len(parts) != 2 {
		return "✅ Configured (invalid format)"
	}

	service := parts[0]
	// Mask the credentials/tokens
	return fmt.Sprintf("✅ Configured (%s://***)", service)
}
