package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/yubal/internal/models"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgJobsLoaded MsgKind = iota
	MsgJobsChanged
	MsgActionDone
	MsgStreamClosed
)

type snapshot struct {
	jobs []models.Job
	logs []models.LogEntry
}

// jobsLoadedMsg is the constructor for [MsgJobsLoaded]
func jobsLoadedMsg(jobs []models.Job, logs []models.LogEntry) Msg {
	return Msg{kind: MsgJobsLoaded, data: snapshot{jobs: jobs, logs: logs}}
}

// jobsChangedMsg is the constructor for [MsgJobsChanged]
func jobsChangedMsg() Msg {
	return Msg{kind: MsgJobsChanged}
}

// actionDoneMsg is the constructor for [MsgActionDone]
func actionDoneMsg(status string, err error) Msg {
	return Msg{
		kind: MsgActionDone,
		data: struct {
			status string
			err    error
		}{status, err},
	}
}

// streamClosedMsg is the constructor for [MsgStreamClosed]
func streamClosedMsg() Msg {
	return Msg{kind: MsgStreamClosed}
}
