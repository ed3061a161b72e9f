package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/zorak1103/conman/internal/templates"
)

var (
	force bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a starter configuration",
	Long: `Init writes the starter configuration files to the current directory:
  - config.yaml (settings and container templates)
  - .env (environment variable overrides)

Existing files are left alone unless --force is given.`,
	Example: `  # Initialize in current directory
  conman init

  # Force overwrite existing files
  conman init --force`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintln(out, "🔧 Initializing conman...")

		files := []struct {
			name    string
			content []byte
		}{
			{"config.yaml", templates.ConfigYAML},
			{".env", templates.EnvFile},
		}

		for _, f := range files {
			if _, err := os.Stat(f.name); err == nil && !force {
				_, _ = fmt.Fprintf(out, "⚠️  Skipping %s (already exists, use --force to overwrite)\n", f.name)
				continue
			}

			if err := os.WriteFile(f.name, f.content, 0o600); err != nil {
				return fmt.Errorf("failed to write %s: %w", f.name, err)
			}

			_, _ = fmt.Fprintf(out, "✅ Created %s\n", f.name)
		}

		_, _ = fmt.Fprintln(out, "\n🎉 Initialization complete!")
		_, _ = fmt.Fprintln(out, "\n📝 Next steps:")
		_, _ = fmt.Fprintln(out, "   1. Edit config.yaml to declare your container templates")
		_, _ = fmt.Fprintln(out, "   2. Run 'conman config' to check the effective configuration")
		_, _ = fmt.Fprintln(out, "   3. Run 'conman start <template> [id]' to start a container")

		return nil
	},
}

// nolint:gochecknoinits // Standard Cobra pattern for command registration
func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().BoolVar(&force, "force", false, "overwrite existing configuration files")
}
