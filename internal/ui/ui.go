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
	"github.com/desertthunder/yubal/internal/models"
	"github.com/desertthunder/yubal/internal/shared"
)

const logTail = 6

// JobSource is the job queue the monitor reads from and acts on.
type JobSource interface {
	List() ([]models.Job, []models.LogEntry)
	Cancel(id string) error
	ClearFinished() int
}

// Opts configures a [Model].
type Opts struct {
	Jobs    JobSource
	Changes <-chan struct{} // fires after every store mutation
	// ExitWhenIdle quits once every job has finished.
	ExitWhenIdle bool
	Open         func(url string) error
}

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	jobs         JobSource
	changes      <-chan struct{}
	exitWhenIdle bool
	open         func(string) error
	width        int
	height       int
	list         list.Model
	bar          progress.Model
	snapshot     []models.Job
	logs         []models.LogEntry
	status       string
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates a new job monitor.
func NewModel(ctx context.Context, opts Opts) *Model {
	open := opts.Open
	if open == nil {
		open = shared.OpenURL
	}
	if ctx == nil {
		ctx = context.Background()
	}

	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Jobs"
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)

	return &Model{
		ctx:          ctx,
		jobs:         opts.Jobs,
		changes:      opts.Changes,
		exitWhenIdle: opts.ExitWhenIdle,
		open:         open,
		list:         l,
		bar:          progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		help:         help.New(),
		keys:         newKeyMap(),
	}
}

// Init loads the current job list and starts listening for changes.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.load(), m.waitForChange())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width-4, max(msg.Height-14-logTail, 4))
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case Msg:
		return m.handleMsg(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgJobsLoaded:
		snap := msg.data.(snapshot)
		m.snapshot = snap.jobs
		m.logs = snap.logs
		cmd := m.list.SetItems(jobItems(snap.jobs))
		if m.exitWhenIdle && m.idle() {
			return m, tea.Quit
		}
		return m, cmd

	case MsgJobsChanged:
		return m, tea.Batch(m.load(), m.waitForChange())

	case MsgActionDone:
		data := msg.data.(struct {
			status string
			err    error
		})
		m.status, m.err = data.status, data.err
		return m, m.load()

	case MsgStreamClosed:
		m.changes = nil
		m.status = "Job stream closed"
		return m, nil
	}
	return m, nil
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.cancel):
		job, ok := m.selected()
		if !ok {
			return m, nil
		}
		return m, m.cancel(job.ID)
	case key.Matches(msg, m.keys.clear):
		return m, m.clearFinished()
	case key.Matches(msg, m.keys.open):
		job, ok := m.selected()
		if !ok {
			return m, nil
		}
		return m, m.openURL(job.URL)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// idle reports whether at least one job exists and none are still pending or running.
func (m *Model) idle() bool {
	if len(m.snapshot) == 0 {
		return false
	}
	for _, j := range m.snapshot {
		if !j.Status.IsFinished() {
			return false
		}
	}
	return true
}

func (m *Model) selected() (models.Job, bool) {
	item, ok := m.list.SelectedItem().(jobItem)
	if !ok {
		return models.Job{}, false
	}
	return item.job, true
}

func (m *Model) load() tea.Cmd {
	return func() tea.Msg {
		return jobsLoadedMsg(m.jobs.List())
	}
}

func (m *Model) waitForChange() tea.Cmd {
	changes := m.changes
	if changes == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case _, ok := <-changes:
			if !ok {
				return streamClosedMsg()
			}
			return jobsChangedMsg()
		case <-m.ctx.Done():
			return streamClosedMsg()
		}
	}
}

func (m *Model) cancel(id string) tea.Cmd {
	return func() tea.Msg {
		if err := m.jobs.Cancel(id); err != nil {
			return actionDoneMsg("", err)
		}
		return actionDoneMsg("Cancelled job "+id, nil)
	}
}

func (m *Model) clearFinished() tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg(fmt.Sprintf("Cleared %d finished jobs", m.jobs.ClearFinished()), nil)
	}
}

func (m *Model) openURL(url string) tea.Cmd {
	return func() tea.Msg {
		if err := m.open(url); err != nil {
			return actionDoneMsg("", err)
		}
		return actionDoneMsg("Opened "+url, nil)
	}
}

// View renders the job list, the selected job and the log tail.
func (m *Model) View() string {
	var b strings.Builder

	if len(m.snapshot) == 0 {
		b.WriteString(styles.title.Render("Jobs"))
		b.WriteString("\n")
		b.WriteString(styles.help.Render("No jobs yet"))
		b.WriteString("\n\n")
	} else {
		b.WriteString(m.list.View())
		b.WriteString("\n\n")
		b.WriteString(m.renderSelected())
	}

	b.WriteString(m.renderLogs())

	switch {
	case m.err != nil:
		b.WriteString(styles.err.Render("Error: " + m.err.Error()))
		b.WriteString("\n")
	case m.status != "":
		b.WriteString(styles.ok.Render(m.status))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Model) renderSelected() string {
	job, ok := m.selected()
	if !ok {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n", styles.Status(job.Status), job.URL)
	fmt.Fprintf(&b, "%s\n", m.bar.ViewAs(job.Progress/100))
	if job.Message != "" {
		fmt.Fprintf(&b, "%s\n", job.Message)
	}
	if job.Error != "" && job.Error != job.Message {
		fmt.Fprintf(&b, "%s\n", styles.err.Render(job.Error))
	}
	if job.CancelRequested && !job.Status.IsFinished() {
		fmt.Fprintf(&b, "%s\n", styles.warn.Render("Cancellation requested"))
	}
	b.WriteString("\n")
	return b.String()
}

func (m *Model) renderLogs() string {
	if len(m.logs) == 0 {
		return ""
	}
	start := max(len(m.logs)-logTail, 0)

	var b strings.Builder
	for _, entry := range m.logs[start:] {
		line := fmt.Sprintf("%s %-13s %s", entry.Timestamp.Format("15:04:05"), entry.Status, entry.Message)
		b.WriteString(styles.log.Render(line))
		b.WriteString("\n")
	}
	return b.String()
}
