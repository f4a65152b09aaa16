// Package initcmder provides the init command for creating a local .pitch
// directory with a starter config.toml.
package initcmder

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/pitch/pkg/cliui"
	"github.com/papercomputeco/pitch/pkg/config"
)

const (
	dirName      = ".pitch"
	fetchTimeout = 30 * time.Second
)

const initLongDesc string = `Initialize a new .pitch/ directory in the current working directory.

Creates a local .pitch/ directory that takes precedence over ~/.pitch/ for
configuration, credentials, the embedded knowledge base and transcripts,
and writes a config.toml.

--preset selects a provider preset (ollama, openai, groq, anthropic) or
fetches a config.toml from an http(s) URL.

Examples:
  pitch init
  pitch init --preset openai
  pitch init --preset https://example.com/pitch/config.toml`

const initShortDesc string = "Initialize a local .pitch/ directory"

type initCommander struct {
	preset string
	out    io.Writer
}

func NewInitCmd() *cobra.Command {
	cmder := &initCommander{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.out = cmd.OutOrStdout()
			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&cmder.preset, "preset", "", "Provider preset name or URL of a config.toml")

	return cmd
}

func (c *initCommander) run(ctx context.Context) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, dirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating .pitch directory: %w", err)
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return err
	}

	_, statErr := os.Stat(cfger.GetTarget())
	exists := statErr == nil
	if exists && c.preset == "" {
		fmt.Fprintf(c.out, "\n  %s Already initialized: %s\n\n", cliui.DimStyle.Render("●"), dir)
		return nil
	}

	cfg, err := c.resolveConfig(ctx)
	if err != nil {
		return err
	}

	if err := cfger.SaveConfig(cfg); err != nil {
		return err
	}

	cfg, err = cfger.LoadConfig()
	if err != nil {
		return err
	}

	fmt.Fprintf(c.out, "\n  %s Initialized %s\n", cliui.SuccessMark, cliui.ValueStyle.Render(dir))
	fmt.Fprintf(c.out, "  %s %s / %s\n\n",
		cliui.KeyStyle.Render("Providers:"),
		cliui.NameStyle.Render(cfg.Embedding.Provider),
		cliui.NameStyle.Render(cfg.LLM.Provider),
	)
	return nil
}

func (c *initCommander) resolveConfig(ctx context.Context) (*config.Config, error) {
	switch {
	case c.preset == "":
		return config.NewDefaultConfig(), nil
	case strings.HasPrefix(c.preset, "http://"), strings.HasPrefix(c.preset, "https://"):
		return fetchConfig(ctx, c.preset)
	default:
		return config.PresetConfig(c.preset)
	}
}

func fetchConfig(ctx context.Context, url string) (*config.Config, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching preset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching preset: %s returned %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading preset: %w", err)
	}

	cfg, err := config.ParseConfigTOML(data)
	if err != nil {
		return nil, err
	}
	cfg.Version = config.CurrentV
	return cfg, nil
}
