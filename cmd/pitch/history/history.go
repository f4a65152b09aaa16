// Package historycmder provides the history command for inspecting and
// resetting the active chat session.
package historycmder

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/pitch/cmd/pitch/clientcmd"
	"github.com/papercomputeco/pitch/pkg/cliui"
	"github.com/papercomputeco/pitch/pkg/memory"
)

type historyCommander struct {
	reset      bool
	transcript bool
	limit      int
	apiTarget  string
}

const historyLongDesc string = `Show the active chat session's conversation memory.

The server keeps the most recent turns of each session (rag.memory_window).
--reset clears them. --transcript lists the exchanges recorded in the
transcript store instead, which survive resets.

Examples:
  pitch history
  pitch history --reset
  pitch history --transcript --limit 20`

const historyShortDesc string = "Show or reset the active session"

func NewHistoryCmd() *cobra.Command {
	cmder := &historyCommander{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: historyShortDesc,
		Long:  historyLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	cmd.Flags().BoolVar(&cmder.reset, "reset", false, "Clear the session's memory")
	cmd.Flags().BoolVar(&cmder.transcript, "transcript", false, "List recorded exchanges")
	cmd.Flags().IntVar(&cmder.limit, "limit", 0, "Maximum exchanges to list (0 for all)")
	clientcmd.AddTargetFlag(cmd, &cmder.apiTarget)

	return cmd
}

func (c *historyCommander) run(cmd *cobra.Command) error {
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

	switch {
	case c.reset:
		resp, err := env.Client.ResetSession(ctx, sessionID)
		if err != nil {
			return err
		}
		fmt.Fprintf(out.W, "%s Session %s reset\n", cliui.SuccessMark, cliui.KeyStyle.Render(sessionID))
		fmt.Fprintf(out.W, "%s %s\n", cliui.AssistantStyle.Render("assistant:"), resp.Greeting)
		return nil

	case c.transcript:
		resp, err := env.Client.Exchanges(ctx, sessionID, c.limit)
		if err != nil {
			return err
		}
		if resp.Count == 0 {
			fmt.Fprintln(out.W, "No recorded exchanges.")
			return nil
		}
		for _, ex := range resp.Exchanges {
			fmt.Fprintf(out.W, "%s %s\n  %s %s\n  %s %s\n",
				cliui.DimStyle.Render(ex.CompletedAt.Local().Format(time.DateTime)),
				cliui.DimStyle.Render(cliui.FormatDuration(ex.CompletedAt.Sub(ex.StartedAt))),
				cliui.UserStyle.Render("user:"), ex.Query,
				cliui.AssistantStyle.Render("assistant:"), ex.Answer,
			)
		}
		return nil
	}

	resp, err := env.Client.History(ctx, sessionID)
	if err != nil {
		return err
	}

	fmt.Fprintf(out.W, "%s %s %s\n",
		cliui.HeaderStyle.Render("Session"),
		cliui.KeyStyle.Render(sessionID),
		cliui.DimStyle.Render(fmt.Sprintf("(%d turns)", resp.Count)),
	)
	for _, t := range resp.Turns {
		label := cliui.UserStyle.Render("user:")
		if t.Role == memory.RoleAssistant {
			label = cliui.AssistantStyle.Render("assistant:")
		}
		fmt.Fprintf(out.W, "%s %s\n", label, t.Text)
	}
	return nil
}
