// Package ui implements a terminal job monitor using bubbletea's Elm architecture.
//
// The (view) [Model] lists every job newest first with its status, progress and last message, renders a
// progress bar for the selected job and tails the activity log. It reloads the job list from a [JobSource]
// whenever the change stream fires, so the view never holds state the store does not.
//
// Keyboard bindings (j/k, c, x, o, ?, q) are displayed via charmbracelet/bubbles/help.
package ui
