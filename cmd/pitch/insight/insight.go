// Package insightcmder provides the insight command, which runs the canned
// sales questions against the knowledge base.
package insightcmder

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/pitch/cmd/pitch/clientcmd"
	"github.com/papercomputeco/pitch/pkg/cliui"
	"github.com/papercomputeco/pitch/pkg/insights"
)

type insightCommander struct {
	customer  string
	session   bool
	apiTarget string
}

const insightShortDesc string = "Run a canned sales insight"

func insightLongDesc() string {
	return `Run a canned sales insight.

Kinds: ` + strings.Join(kindNames(), ", ") + `

Each insight is an ordinary question answered from the knowledge base.
By default it runs in a throwaway session; --session runs it in the active
chat session so follow-up questions can build on it.

Examples:
  pitch insight summary
  pitch insight leads --session
  pitch insight recommendations --customer "Acme Corp"`
}

func NewInsightCmd() *cobra.Command {
	cmder := &insightCommander{}

	cmd := &cobra.Command{
		Use:       "insight <kind>",
		Short:     insightShortDesc,
		Long:      insightLongDesc(),
		Args:      cobra.ExactArgs(1),
		ValidArgs: kindNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, args[0])
		},
	}

	cmd.Flags().StringVar(&cmder.customer, "customer", "", "Customer name (recommendations only)")
	cmd.Flags().BoolVar(&cmder.session, "session", false, "Run inside the active chat session")
	clientcmd.AddTargetFlag(cmd, &cmder.apiTarget)

	return cmd
}

func (c *insightCommander) run(cmd *cobra.Command, name string) error {
	kind, err := insights.ParseKind(name)
	if err != nil {
		return err
	}
	// Validate locally before any network call.
	if _, err := insights.Query(kind, c.customer); err != nil {
		return err
	}

	env, err := clientcmd.Load(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	var sessionID string
	if c.session {
		if sessionID, _, err = env.Session(ctx, false); err != nil {
			return err
		}
	}

	resp, err := env.Client.Insight(ctx, kind, c.customer, sessionID)
	if err != nil {
		return err
	}

	out := clientcmd.OutputFor(cmd)
	rendered, err := cliui.RenderMarkdown(resp.Text, out.Width, out.Plain)
	if err != nil {
		rendered = resp.Text + "\n"
	}

	fmt.Fprintf(out.W, "%s %s\n", cliui.HeaderStyle.Render("Insight:"), cliui.DimStyle.Render(resp.Query))
	if resp.Degraded {
		fmt.Fprintf(out.W, "%s\n", cliui.WarnStyle.Render("knowledge base unavailable; answered without context"))
	}
	fmt.Fprint(out.W, rendered)
	return nil
}

func kindNames() []string {
	kinds := insights.Kinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return names
}
