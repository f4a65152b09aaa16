// Package searchcmder provides the search command for semantic search over
// the knowledge base.
package searchcmder

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/spf13/cobra"

	apisearch "github.com/papercomputeco/pitch/api/search"
	"github.com/papercomputeco/pitch/cmd/pitch/clientcmd"
	"github.com/papercomputeco/pitch/pkg/cliui"
)

type searchCommander struct {
	topK      int
	quiet     bool
	apiTarget string
}

const searchLongDesc string = `Search the knowledge base via the pitch API.

Embeds the query and returns the closest ingested rows and notes, best
first. Requires a running pitch server.

Use --quiet to print only record IDs, one per line.

Examples:
  pitch search "health and beauty sales in Yangon"
  pitch search "Q3 promotion" --top-k 10
  pitch search "members paying by ewallet" --quiet`

const searchShortDesc string = "Search the knowledge base"

func NewSearchCmd() *cobra.Command {
	cmder := &searchCommander{}

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: searchShortDesc,
		Long:  searchLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, args[0])
		},
	}

	cmd.Flags().IntVarP(&cmder.topK, "top-k", "k", apisearch.DefaultTopK, "Number of results to return")
	cmd.Flags().BoolVarP(&cmder.quiet, "quiet", "q", false, "Print only record IDs")
	clientcmd.AddTargetFlag(cmd, &cmder.apiTarget)

	return cmd
}

func (c *searchCommander) run(cmd *cobra.Command, query string) error {
	env, err := clientcmd.Load(cmd)
	if err != nil {
		return err
	}

	output, err := env.Client.Search(cmd.Context(), query, c.topK)
	if err != nil {
		return err
	}

	out := clientcmd.OutputFor(cmd)

	if output.Count == 0 {
		if !c.quiet {
			fmt.Fprintln(out.W, "No results found.")
		}
		return nil
	}

	if c.quiet {
		for _, r := range output.Results {
			fmt.Fprintln(out.W, r.ID)
		}
		return nil
	}

	fmt.Fprintf(out.W, "\n%s %s\n\n",
		cliui.HeaderStyle.Render("Search results for:"),
		cliui.KeyStyle.Render(fmt.Sprintf("%q", output.Query)),
	)
	for i, r := range output.Results {
		printResult(out, i+1, r)
	}

	return nil
}

func printResult(out clientcmd.Output, rank int, r apisearch.SearchResult) {
	fmt.Fprintf(out.W, "  %s  %s  %s %s\n",
		cliui.NameStyle.Render(fmt.Sprintf("#%d", rank)),
		cliui.DimStyle.Render(fmt.Sprintf("score: %.4f", r.Score)),
		cliui.KeyStyle.Render(r.ID),
		cliui.DimStyle.Render("["+r.Kind+"]"),
	)

	preview := strings.ReplaceAll(r.Text, "\n", " ")
	fmt.Fprintf(out.W, "  %s\n\n", cliui.ValueStyle.Render(ansi.Truncate(preview, out.Width-4, "…")))
}
