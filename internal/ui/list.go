package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/inboxsync/internal/models"
)

var _ list.Item = runItem{}

// runItem wraps [models.SyncRun] to implement [list.Item].
type runItem struct {
	run models.SyncRun
}

func (i runItem) FilterValue() string { return string(i.run.Phase) }

func (i runItem) Title() string {
	mode := "incremental"
	if i.run.FullSync {
		mode = "full"
	}
	return fmt.Sprintf("#%d %s %s", i.run.Sequence, styles.Phase(i.run.Phase), mode)
}

func (i runItem) Description() string {
	desc := fmt.Sprintf("%s • %s • %s",
		i.run.FinishedAt.Local().Format(time.DateTime),
		i.run.Duration().Round(time.Second),
		i.run.Stats,
	)
	if i.run.ErrorMessage != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.run.ErrorMessage)
	}
	return desc
}

func runItems(runs []models.SyncRun) []list.Item {
	items := make([]list.Item, len(runs))
	for i, run := range runs {
		items[i] = runItem{run: run}
	}
	return items
}
