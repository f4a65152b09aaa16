package chatcmder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"charm.land/bubbles/v2/textinput"
	"charm.land/bubbles/v2/viewport"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/papercomputeco/pitch/api"
	"github.com/papercomputeco/pitch/pkg/cliui"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	inputStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type answerMsg struct {
	resp *api.AnswerResponse
	err  error
}

type sessionMsg struct {
	greeting string
	renewed  bool
	err      error
}

// model is the full screen chat: a scrolling transcript above an input box.
type model struct {
	conv     *conversation
	style    string
	input    textinput.Model
	viewport viewport.Model
	entries  []string
	status   string
	pending  bool
	ready    bool
	width    int
}

func newModel(conv *conversation, greeting, style string) model {
	ti := textinput.New()
	ti.Prompt = "you> "
	ti.Placeholder = "Ask about sales, leads or a customer"
	ti.Focus()

	m := model{
		conv:     conv,
		style:    style,
		input:    ti,
		viewport: viewport.New(),
		status:   "Enter to send · /reset · /new · Ctrl+D to quit",
		width:    80,
	}
	if greeting != "" {
		m.entries = append(m.entries, m.assistant(greeting))
	}
	return m
}

func (m model) Init() tea.Cmd { return textinput.Blink }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = max(20, msg.Width)
		_, frame := inputStyle.GetFrameSize()
		m.viewport.SetWidth(m.width)
		m.viewport.SetHeight(max(3, msg.Height-frame-3))
		m.input.SetWidth(m.width - 8)
		m.refresh()
		return m, nil

	case answerMsg:
		m.pending = false
		switch {
		case msg.err != nil:
			m.entries = append(m.entries, fmt.Sprintf("%s %v\n", cliui.FailMark, msg.err))
		case msg.resp.Degraded:
			m.entries = append(m.entries,
				cliui.WarnStyle.Render("knowledge base unavailable; answered without context")+"\n"+m.assistant(msg.resp.Text))
		default:
			m.entries = append(m.entries, m.assistant(msg.resp.Text))
		}
		m.refresh()
		return m, nil

	case sessionMsg:
		m.pending = false
		switch {
		case msg.err != nil:
			m.entries = append(m.entries, fmt.Sprintf("%s %v\n", cliui.FailMark, msg.err))
		case msg.renewed:
			m.entries = []string{fmt.Sprintf("%s New session %s\n", cliui.SuccessMark, m.conv.id), m.assistant(msg.greeting)}
		default:
			m.entries = []string{fmt.Sprintf("%s Session reset\n", cliui.SuccessMark), m.assistant(msg.greeting)}
		}
		m.refresh()
		return m, nil

	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "ctrl+d":
			return m, tea.Quit
		case "pgup", "pgdown", "up", "down":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		case "enter":
			if m.pending {
				return m, nil
			}
			return m.submit()
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	m.input.Reset()

	conv := m.conv
	switch text {
	case "":
		return m, nil
	case cmdExit:
		return m, tea.Quit
	case cmdReset:
		m.pending = true
		return m, func() tea.Msg {
			greeting, err := conv.reset()
			return sessionMsg{greeting: greeting, err: err}
		}
	case cmdNew:
		m.pending = true
		return m, func() tea.Msg {
			greeting, err := conv.renew()
			return sessionMsg{greeting: greeting, renewed: true, err: err}
		}
	}

	m.pending = true
	m.entries = append(m.entries, cliui.UserStyle.Render("you>")+" "+text+"\n")
	m.refresh()
	return m, func() tea.Msg {
		resp, err := conv.ask(text)
		return answerMsg{resp: resp, err: err}
	}
}

func (m *model) assistant(text string) string {
	rendered, err := cliui.RenderMarkdownStyle(text, m.width-4, m.style)
	if err != nil {
		rendered = text + "\n"
	}
	return cliui.AssistantStyle.Render("assistant>") + "\n" + rendered
}

func (m *model) refresh() {
	m.viewport.SetContent(strings.Join(m.entries, "\n"))
	m.viewport.GotoBottom()
}

func (m model) View() tea.View {
	if !m.ready {
		return tea.NewView("Loading...")
	}

	status := m.status
	if m.pending {
		status = "thinking..."
	}

	content := titleStyle.Render("pitch") + " " + statusStyle.Render(m.conv.id) + "\n" +
		m.viewport.View() + "\n" +
		inputStyle.Width(m.width).Render(m.input.View()) + "\n" +
		statusStyle.Render(status)

	v := tea.NewView(content)
	v.AltScreen = true
	return v
}

func runTUI(ctx context.Context, conv *conversation, greeting string, in, out *os.File) error {
	m := newModel(conv, greeting, cliui.MarkdownStyle(out))

	p := tea.NewProgram(m, tea.WithContext(ctx), tea.WithInput(in), tea.WithOutput(out))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrInterrupted) {
		return fmt.Errorf("running chat: %w", err)
	}
	return nil
}
