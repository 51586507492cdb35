// Package ui implements a terminal watch view for the sync orchestrator using bubbletea's Elm architecture.
//
// The [Model] renders one screen:
//  1. the current sync phase, stats and a progress bar fed by [Watcher] updates
//  2. the outcome of the last check or trigger command
//  3. recent runs from a [HistorySource], browsable with a bubbles list
//
// Status changes flow through a buffered channel from the status store; each
// received snapshot re-arms the wait command, so the view never polls.
//
// Keyboard bindings (c, t, f, x, r, q) are shown with charmbracelet/bubbles/help.
package ui
