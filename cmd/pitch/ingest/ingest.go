// Package ingestcmder provides the ingest command, which uploads CSV and XLSX
// spreadsheets to the knowledge base.
package ingestcmder

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/pitch/api"
	"github.com/papercomputeco/pitch/cmd/pitch/clientcmd"
	"github.com/papercomputeco/pitch/pkg/cliui"
	"github.com/papercomputeco/pitch/pkg/tabular"
)

// maxFailuresShown caps the per-row failures printed for one file.
const maxFailuresShown = 10

type ingestCommander struct {
	apiTarget string
	verbose   bool
}

const ingestLongDesc string = `Ingest spreadsheets into the knowledge base.

Each file is parsed by the server against the configured schema, embedded
and written to the vector store. Rows that do not match the schema are
reported and skipped; the rest of the file is still ingested. Re-ingesting
a row replaces it.

Examples:
  pitch ingest supermarket_sales.csv
  pitch ingest q1.xlsx q2.xlsx --verbose`

const ingestShortDesc string = "Ingest CSV or XLSX files"

func NewIngestCmd() *cobra.Command {
	cmder := &ingestCommander{}

	cmd := &cobra.Command{
		Use:   "ingest <file>...",
		Short: ingestShortDesc,
		Long:  ingestLongDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, args)
		},
	}

	cmd.Flags().BoolVarP(&cmder.verbose, "verbose", "v", false, "List every failed row")
	clientcmd.AddTargetFlag(cmd, &cmder.apiTarget)

	return cmd
}

func (c *ingestCommander) run(cmd *cobra.Command, paths []string) error {
	for _, p := range paths {
		if !tabular.Supported(p) {
			return fmt.Errorf("%s: %w", p, tabular.ErrUnsupportedFormat)
		}
	}

	env, err := clientcmd.Load(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	sessionID, _, err := env.Session(ctx, false)
	if err != nil {
		return err
	}

	out := clientcmd.OutputFor(cmd)

	var failed []error
	for _, p := range paths {
		var resp *api.IngestResponse
		err := cliui.Step(out.W, "Ingesting "+p, func() error {
			var err error
			resp, err = env.Client.Upload(ctx, sessionID, p)
			return err
		})
		if resp != nil && resp.IngestOutcome != nil {
			c.report(out, resp)
		}
		if err != nil {
			failed = append(failed, fmt.Errorf("%s: %w", p, err))
		}
	}

	return errors.Join(failed...)
}

func (c *ingestCommander) report(out clientcmd.Output, resp *api.IngestResponse) {
	fmt.Fprintf(out.W, "    %s %d  %s %d  %s %d\n",
		cliui.KeyStyle.Render("chunks"), resp.ChunksCreated,
		cliui.KeyStyle.Render("stored"), resp.RecordsUpserted,
		cliui.KeyStyle.Render("failed"), len(resp.Failures),
	)

	for i, f := range resp.Failures {
		if !c.verbose && i == maxFailuresShown {
			fmt.Fprintf(out.W, "    %s\n", cliui.DimStyle.Render(
				fmt.Sprintf("... %d more (use --verbose)", len(resp.Failures)-maxFailuresShown)))
			break
		}
		fmt.Fprintf(out.W, "    %s row %d: %s\n", cliui.WarnStyle.Render("!"), f.RecordIndex+1, f.Reason)
	}
}
