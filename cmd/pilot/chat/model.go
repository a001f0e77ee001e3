// Package chat is the interactive terminal UI: a scrollback viewport over
// the conversation, a textarea for input, and per-action status glyphs that
// update as the executor works.
package chat

import (
	"context"
	"fmt"
	"strings"

	"contentpilot/internal/action"
	"contentpilot/internal/executor"
	"contentpilot/internal/history"
	"contentpilot/internal/session"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

var (
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	actionStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	helpStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// statusGlyphs render an action's lifecycle state inline.
var statusGlyphs = map[action.Status]string{
	action.StatusPending:   "·",
	action.StatusExecuting: "▸",
	action.StatusCompleted: "✓",
	action.StatusFailed:    "✗",
	action.StatusCancelled: "⊘",
}

type turnResult struct {
	turn     *session.Turn
	outcomes []executor.Outcome
}

// streamEvent is either one text delta or the finished turn.
type streamEvent struct {
	delta string
	done  *turnResult
}

type streamEventMsg streamEvent
type streamClosedMsg struct{}

// Model is the bubbletea chat model.
type Model struct {
	sess *session.Session
	exec *executor.Executor
	hist *history.Store

	viewport viewport.Model
	input    textarea.Model
	spin     spinner.Model
	renderer *glamour.TermRenderer

	transcript []string
	partial    string
	streaming  bool
	events     chan streamEvent
	cancelTurn context.CancelFunc

	width  int
	height int
	ready  bool
	err    error
}

// New creates the chat model. hist may be nil.
func New(sess *session.Session, exec *executor.Executor, hist *history.Store) *Model {
	ta := textarea.New()
	ta.Placeholder = "Ask for a content change..."
	ta.Focus()
	ta.SetHeight(3)
	ta.ShowLineNumbers = false

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	renderer, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)

	return &Model{
		sess:     sess,
		exec:     exec,
		hist:     hist,
		input:    ta,
		spin:     sp,
		renderer: renderer,
	}
}

// Init loads recent history into the scrollback.
func (m *Model) Init() tea.Cmd {
	if m.hist != nil {
		turns, err := m.hist.RecentTurns(context.Background(), 5)
		if err == nil {
			for _, t := range turns {
				m.transcript = append(m.transcript,
					userStyle.Render("You: ")+t.UserMessage,
					assistantStyle.Render("Pilot: ")+t.AssistantText)
			}
		}
	}
	return textarea.Blink
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		inputHeight := m.input.Height() + 2
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-inputHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - inputHeight
		}
		m.input.SetWidth(msg.Width - 2)
		m.refreshViewport()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			if m.cancelTurn != nil {
				m.cancelTurn()
			}
			return m, tea.Quit
		case "esc":
			if m.streaming && m.cancelTurn != nil {
				m.cancelTurn()
			}
		case "enter":
			if !m.streaming {
				text := strings.TrimSpace(m.input.Value())
				if text != "" {
					m.input.Reset()
					return m, m.startTurn(text)
				}
			}
		}

	case streamEventMsg:
		if msg.delta != "" {
			m.partial += msg.delta
			m.refreshViewport()
			m.viewport.GotoBottom()
			return m, m.awaitEvent()
		}
		if msg.done != nil {
			m.finishTurn(msg.done)
			return m, m.awaitEvent()
		}
		return m, m.awaitEvent()

	case streamClosedMsg:
		m.streaming = false
		m.events = nil
		m.cancelTurn = nil
		m.refreshViewport()
		m.viewport.GotoBottom()

	case spinner.TickMsg:
		if m.streaming {
			var cmd tea.Cmd
			m.spin, cmd = m.spin.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// startTurn kicks off one exchange: the session streams on a goroutine
// while awaitEvent pumps its deltas back into Update.
func (m *Model) startTurn(text string) tea.Cmd {
	m.transcript = append(m.transcript, userStyle.Render("You: ")+text)
	m.partial = ""
	m.streaming = true
	m.refreshViewport()
	m.viewport.GotoBottom()

	ctx, cancel := context.WithCancel(context.Background())
	m.cancelTurn = cancel
	events := make(chan streamEvent, 64)
	m.events = events

	sess, exec := m.sess, m.exec
	go func() {
		defer close(events)
		turn := sess.Run(ctx, text, func(delta string) {
			events <- streamEvent{delta: delta}
		})
		var outcomes []executor.Outcome
		if !turn.Cancelled {
			outcomes = exec.Execute(ctx, turn.Record)
		}
		events <- streamEvent{done: &turnResult{turn: turn, outcomes: outcomes}}
	}()

	return tea.Batch(m.awaitEvent(), m.spin.Tick)
}

func (m *Model) awaitEvent() tea.Cmd {
	events := m.events
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return streamClosedMsg{}
		}
		return streamEventMsg(ev)
	}
}

// finishTurn replaces the streaming partial with the rendered answer and
// the action report.
func (m *Model) finishTurn(res *turnResult) {
	m.partial = ""

	var sb strings.Builder
	sb.WriteString(assistantStyle.Render("Pilot: "))
	sb.WriteString(m.renderMarkdown(res.turn.DisplayText))

	if res.turn.Cancelled {
		sb.WriteString("\n" + errorStyle.Render("(cancelled)"))
	} else if res.turn.Partial {
		sb.WriteString("\n" + errorStyle.Render("(response incomplete: "+res.turn.Err.Error()+")"))
	}

	byID := make(map[string]executor.Outcome, len(res.outcomes))
	for _, o := range res.outcomes {
		byID[o.ActionID] = o
	}
	for _, a := range res.turn.Record.List() {
		line := fmt.Sprintf("  %s %s", statusGlyphs[a.Status], a.Description)
		if a.Status == action.StatusFailed && a.FailureReason != "" {
			line += errorStyle.Render(" — " + a.FailureReason)
		} else if o, ok := byID[a.ID]; ok && o.Message != "" {
			line += actionStyle.Render(" — " + o.Message)
		}
		sb.WriteString("\n" + line)
	}

	m.transcript = append(m.transcript, sb.String())
}

func (m *Model) renderMarkdown(text string) string {
	if m.renderer == nil || text == "" {
		return text
	}
	out, err := m.renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}

func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	content := strings.Join(m.transcript, "\n\n")
	if m.partial != "" {
		content += "\n\n" + assistantStyle.Render("Pilot: ") + m.partial
	}
	m.viewport.SetContent(content)
}

func (m *Model) View() string {
	if !m.ready {
		return "loading..."
	}

	status := helpStyle.Render("enter: send · esc: cancel turn · ctrl+c: quit")
	if m.streaming {
		status = m.spin.View() + " thinking... " + helpStyle.Render("(esc to cancel)")
	}
	if m.err != nil {
		status = errorStyle.Render(m.err.Error())
	}

	return fmt.Sprintf("%s\n%s\n%s", m.viewport.View(), m.input.View(), status)
}
