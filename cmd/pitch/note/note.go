// Package notecmder provides the note command, which adds free text to the
// knowledge base.
package notecmder

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/pitch/cmd/pitch/clientcmd"
	"github.com/papercomputeco/pitch/pkg/cliui"
)

type noteCommander struct {
	apiTarget string
}

const noteLongDesc string = `Add a knowledge note.

The note is embedded and stored alongside ingested rows so later answers
can draw on it. The same text always maps to the same note ID, so adding it
twice is harmless. Use "-" to read the note from stdin.

Examples:
  pitch note "Q3 promotion: 10% off health and beauty for members"
  cat meeting-notes.txt | pitch note -`

const noteShortDesc string = "Add a knowledge note"

func NewNoteCmd() *cobra.Command {
	cmder := &noteCommander{}

	cmd := &cobra.Command{
		Use:   "note <text|->",
		Short: noteShortDesc,
		Long:  noteLongDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, args)
		},
	}

	clientcmd.AddTargetFlag(cmd, &cmder.apiTarget)

	return cmd
}

func (c *noteCommander) run(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")
	if text == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
		text = string(data)
	}
	if strings.TrimSpace(text) == "" {
		return errors.New("note text cannot be empty")
	}

	env, err := clientcmd.Load(cmd)
	if err != nil {
		return err
	}

	note, err := env.Client.AddNote(cmd.Context(), text)
	if err != nil {
		return err
	}

	out := clientcmd.OutputFor(cmd)
	fmt.Fprintf(out.W, "%s Stored note %s\n", cliui.SuccessMark, cliui.KeyStyle.Render(note.ID))
	return nil
}
