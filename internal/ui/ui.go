package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/inboxsync/internal/models"
)

const historyLimit = 20

// Controller is the orchestration surface the view drives.
type Controller interface {
	Snapshot() models.SyncContext
	CheckAndSync(ctx context.Context, trigger models.TriggerReason) (models.SyncDecision, error)
	TriggerSync(ctx context.Context, forceFull bool) error
	CancelSync()
}

// Watcher streams status changes.
type Watcher interface {
	Watch(buffer int) (<-chan models.SyncContext, func())
}

// HistorySource lists recent terminal runs, newest first.
type HistorySource interface {
	History(ctx context.Context, limit int) ([]models.SyncRun, error)
}

// Model represents the TUI application state.
type Model struct {
	ctx     context.Context
	ctrl    Controller
	history HistorySource
	updates <-chan models.SyncContext
	stop    func()
	status  models.SyncContext
	notice  string
	err     error
	bar     progress.Model
	runs    list.Model
	help    help.Model
	keys    keyMap
	width   int
	height  int
}

// NewModel creates a new TUI model. history may be nil.
//
// The model subscribes to watcher immediately; call [Model.Close] once the program exits.
func NewModel(ctx context.Context, ctrl Controller, watcher Watcher, history HistorySource) *Model {
	updates, stop := watcher.Watch(32)

	runs := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	runs.Title = "Recent runs"
	runs.SetShowHelp(false)

	return &Model{
		ctx:     ctx,
		ctrl:    ctrl,
		history: history,
		updates: updates,
		stop:    stop,
		status:  ctrl.Snapshot(),
		bar:     progress.New(progress.WithDefaultGradient()),
		runs:    runs,
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Close releases the status subscription.
func (m *Model) Close() {
	if m.stop != nil {
		m.stop()
		m.stop = nil
	}
}

// Init starts waiting for status updates and loads run history.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.waitForStatus(), m.fetchHistory())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = max(msg.Width-4, 10)
		m.runs.SetSize(msg.Width-4, max(msg.Height-12, 4))
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case statusMsg:
		prev := m.status.Phase
		m.status = models.SyncContext(msg)
		cmds := []tea.Cmd{m.waitForStatus()}
		if prev != m.status.Phase && m.status.Phase.Terminal() {
			cmds = append(cmds, m.fetchHistory())
		}
		return m, tea.Batch(cmds...)

	case watchClosedMsg:
		m.updates = nil
		return m, nil

	case decisionMsg:
		m.err = msg.err
		switch {
		case msg.err != nil:
			m.notice = ""
		case msg.decision.NeedsSync:
			m.notice = fmt.Sprintf("sync started (%s)", msg.decision.Reason)
		default:
			m.notice = "no sync needed"
		}
		return m, nil

	case actionMsg:
		m.err = msg.err
		m.notice = msg.label
		return m, nil

	case historyMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		return m, m.runs.SetItems(runItems(msg.runs))
	}

	var cmd tea.Cmd
	m.runs, cmd = m.runs.Update(msg)
	return m, cmd
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.check):
		return m, m.check()
	case key.Matches(msg, m.keys.trigger):
		return m, m.trigger(false)
	case key.Matches(msg, m.keys.full):
		return m, m.trigger(true)
	case key.Matches(msg, m.keys.cancel):
		m.ctrl.CancelSync()
		m.notice = "sync cancelled locally"
		m.err = nil
		return m, nil
	case key.Matches(msg, m.keys.refresh):
		return m, m.fetchHistory()
	}

	var cmd tea.Cmd
	m.runs, cmd = m.runs.Update(msg)
	return m, cmd
}

// View renders the status block, the run history and the key help.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(styles.title.Render("inboxsync"))
	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(styles.err.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n\n")
	} else if m.notice != "" {
		b.WriteString(styles.help.Render(m.notice))
		b.WriteString("\n\n")
	}

	if m.history != nil {
		b.WriteString(m.runs.View())
		b.WriteString("\n\n")
	}

	b.WriteString(m.help.ShortHelpView(m.keys.ShortHelp()))
	return b.String()
}

func (m *Model) renderStatus() string {
	c := m.status
	lines := []string{
		fmt.Sprintf("Phase: %s", styles.Phase(c.Phase)),
		fmt.Sprintf("Stats: %s", c.Stats),
		m.bar.ViewAs(float64(c.ProgressPercent) / 100),
	}
	if !c.ActiveHandle.Empty() {
		lines = append(lines, styles.help.Render(fmt.Sprintf("Job %s • poll %d", c.ActiveHandle, c.Attempts)))
	}
	if c.LastPollError != "" {
		lines = append(lines, styles.warn.Render("Last poll: "+c.LastPollError))
	}
	if c.ErrorMessage != "" {
		lines = append(lines, styles.err.Render(c.ErrorMessage))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) waitForStatus() tea.Cmd {
	updates := m.updates
	if updates == nil {
		return nil
	}
	return func() tea.Msg {
		c, ok := <-updates
		if !ok {
			return watchClosedMsg{}
		}
		return statusMsg(c)
	}
}

func (m *Model) check() tea.Cmd {
	return func() tea.Msg {
		decision, err := m.ctrl.CheckAndSync(m.ctx, models.TriggerManual)
		return decisionMsg{decision: decision, err: err}
	}
}

func (m *Model) trigger(full bool) tea.Cmd {
	label := "sync started"
	if full {
		label = "full sync started"
	}
	return func() tea.Msg {
		return actionMsg{label: label, err: m.ctrl.TriggerSync(m.ctx, full)}
	}
}

func (m *Model) fetchHistory() tea.Cmd {
	if m.history == nil {
		return nil
	}
	return func() tea.Msg {
		runs, err := m.history.History(m.ctx, historyLimit)
		return historyMsg{runs: runs, err: err}
	}
}
