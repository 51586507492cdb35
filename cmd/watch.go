package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/inboxsync/internal/models"
	"github.com/desertthunder/inboxsync/internal/shared"
	"github.com/desertthunder/inboxsync/internal/ui"
)

// Watch launches the interactive terminal view backed by an in-process orchestrator.
func (r *Runner) Watch(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(cmd.String("log-file"))
	if err != nil {
		return err
	}
	r.SetLogger(fileLogger)

	s, err := r.openSession(nil)
	if err != nil {
		return err
	}
	defer s.Close()

	model := ui.NewModel(ctx, s.orch, s.orch.Store(), s.history)
	defer model.Close()

	if cmd.Bool("check") {
		go func() {
			if _, err := s.orch.CheckAndSync(ctx, models.TriggerPageVisit); err != nil {
				r.logger.Error("startup check failed", "error", err)
			}
		}()
	}

	p := tea.NewProgram(model, tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
