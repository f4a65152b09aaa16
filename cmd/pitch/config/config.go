// Package configcmder provides the config command for managing persistent
// pitch configuration stored in the .pitch/ directory.
package configcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/pitch/pkg/cliui"
	"github.com/papercomputeco/pitch/pkg/config"
)

const configLongDesc string = `Manage persistent pitch configuration.

Configuration is stored as config.toml in the .pitch/ directory and provides
default values for command flags. CLI flags and PITCH_* environment
variables take precedence over config file values.

Keys use dotted notation matching the TOML section structure, for example:
  llm.provider, llm.model, embedding.model, embedding.dimensions,
  vector_store.provider, rag.top_k, rag.memory_window, ingest.watch_dir

Use subcommands to get, set, or list configuration values:
  pitch config set <key> <value>    Set a configuration value
  pitch config get <key>            Get a configuration value
  pitch config list                 List all configuration values

Examples:
  pitch config set llm.provider anthropic
  pitch config set rag.top_k 8
  pitch config get embedding.model
  pitch config list`

const configShortDesc string = "Manage persistent pitch configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func checkKey(key string) error {
	if !config.IsValidConfigKey(key) {
		return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
			key, strings.Join(config.ValidConfigKeys(), ", "))
	}
	return nil
}

func printTarget(w io.Writer, cfger *config.Configer) {
	if target := cfger.GetTarget(); target != "" {
		fmt.Fprintf(w, "\n  %s %s\n\n",
			cliui.KeyStyle.Render("Config file:"),
			cliui.DimStyle.Render(target),
		)
		return
	}
	fmt.Fprintf(w, "\n  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
}
