// Package chatcmder provides the chat command for talking to the sales
// assistant through a running pitch server.
package chatcmder

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/pitch/api"
	"github.com/papercomputeco/pitch/cmd/pitch/clientcmd"
	"github.com/papercomputeco/pitch/pkg/cliui"
)

const (
	cmdExit  = "/exit"
	cmdReset = "/reset"
	cmdNew   = "/new"
)

type chatCommander struct {
	fresh     bool
	plain     bool
	apiTarget string
}

const chatLongDesc string = `Start an interactive conversation with the sales assistant.

Each question is answered from the records and notes in the knowledge base,
with the last turns of the session as context. The session is kept between
runs; --new starts a fresh one.

On a terminal chat opens a full screen view. When input or output is
redirected, or with --plain, it reads one question per line instead.

Commands:
  /reset  clear the session's memory
  /new    start a new session
  /exit   quit (Ctrl+D also works)

Examples:
  pitch chat
  pitch chat --new
  echo "Which branch sells the most?" | pitch chat`

const chatShortDesc string = "Chat with the sales assistant"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	cmd.Flags().BoolVar(&cmder.fresh, "new", false, "Start a new session")
	cmd.Flags().BoolVar(&cmder.plain, "plain", false, "Line mode even on a terminal")
	clientcmd.AddTargetFlag(cmd, &cmder.apiTarget)

	return cmd
}

// sessionClient is the part of the API client a conversation needs.
type sessionClient interface {
	Ask(ctx context.Context, sessionID, query string) (*api.AnswerResponse, error)
	ResetSession(ctx context.Context, sessionID string) (*api.SessionResponse, error)
}

// conversation tracks the session a chat is talking to.
type conversation struct {
	ctx    context.Context
	client sessionClient
	id     string
	open   func(ctx context.Context) (id, greeting string, err error)
}

func (c *conversation) ask(query string) (*api.AnswerResponse, error) {
	return c.client.Ask(c.ctx, c.id, query)
}

func (c *conversation) reset() (string, error) {
	resp, err := c.client.ResetSession(c.ctx, c.id)
	if err != nil {
		return "", err
	}
	return resp.Greeting, nil
}

func (c *conversation) renew() (string, error) {
	id, greeting, err := c.open(c.ctx)
	if err != nil {
		return "", err
	}
	c.id = id
	return greeting, nil
}

func (c *chatCommander) run(cmd *cobra.Command) error {
	env, err := clientcmd.Load(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if err := env.Client.Ping(ctx); err != nil {
		return fmt.Errorf("pitch server at %s: %w", env.Target, err)
	}

	id, greeting, err := env.Session(ctx, c.fresh)
	if err != nil {
		return err
	}

	conv := &conversation{
		ctx:    ctx,
		client: env.Client,
		id:     id,
		open: func(ctx context.Context) (string, string, error) {
			return env.Session(ctx, true)
		},
	}

	in, inTTY := cmd.InOrStdin().(*os.File)
	out, outTTY := cmd.OutOrStdout().(*os.File)
	if !c.plain && inTTY && outTTY && cliui.IsTerminal(in) && cliui.IsTerminal(out) {
		return runTUI(ctx, conv, greeting, in, out)
	}

	return repl(conv, greeting, cmd.InOrStdin(), clientcmd.OutputFor(cmd), cmd.ErrOrStderr())
}

// repl reads one question per line until EOF or /exit.
func repl(conv *conversation, greeting string, in io.Reader, out clientcmd.Output, errw io.Writer) error {
	userPrompt := cliui.UserStyle.Render("you> ")

	fmt.Fprintf(out.W, "  %s %s\n", cliui.KeyStyle.Render("Session:"), cliui.NameStyle.Render(conv.id))
	fmt.Fprintf(out.W, "  %s\n\n", cliui.DimStyle.Render("Ask a question and press Enter. /reset, /new, /exit or Ctrl+D to quit."))
	if greeting != "" {
		printAssistant(out, greeting)
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out.W, userPrompt)
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		switch input {
		case "":
			continue
		case cmdExit:
			fmt.Fprintln(out.W)
			return nil
		case cmdReset:
			greeting, err := conv.reset()
			if err != nil {
				fmt.Fprintf(errw, "  %s %v\n", cliui.FailMark, err)
				continue
			}
			fmt.Fprintf(out.W, "  %s Session reset\n", cliui.SuccessMark)
			printAssistant(out, greeting)
			continue
		case cmdNew:
			greeting, err := conv.renew()
			if err != nil {
				fmt.Fprintf(errw, "  %s %v\n", cliui.FailMark, err)
				continue
			}
			fmt.Fprintf(out.W, "  %s New session %s\n", cliui.SuccessMark, cliui.KeyStyle.Render(conv.id))
			printAssistant(out, greeting)
			continue
		}

		resp, err := conv.ask(input)
		if err != nil {
			fmt.Fprintf(errw, "  %s %v\n", cliui.FailMark, err)
			continue
		}
		if resp.Degraded {
			fmt.Fprintf(out.W, "  %s\n", cliui.WarnStyle.Render("knowledge base unavailable; answered without context"))
		}
		printAssistant(out, resp.Text)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Fprintln(out.W)
	return nil
}

func printAssistant(out clientcmd.Output, text string) {
	rendered, err := cliui.RenderMarkdown(text, out.Width, out.Plain)
	if err != nil {
		rendered = text + "\n"
	}
	fmt.Fprintf(out.W, "%s\n%s\n", cliui.AssistantStyle.Render("assistant>"), rendered)
}
