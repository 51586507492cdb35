package ui

import (
	"github.com/desertthunder/inboxsync/internal/models"
)

// statusMsg carries one status store snapshot.
type statusMsg models.SyncContext

// watchClosedMsg reports that the status channel was closed.
type watchClosedMsg struct{}

type decisionMsg struct {
	decision models.SyncDecision
	err      error
}

type actionMsg struct {
	label string
	err   error
}

type historyMsg struct {
	runs []models.SyncRun
	err  error
}
