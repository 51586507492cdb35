package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/desertthunder/inboxsync/internal/models"
)

var styles = NewPalette("#7D56F4", "#04B575", "#FF0000", "#FFA500", "#626262")

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
}

func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title: NewBold(t).MarginBottom(1),
		ok:    NewBold(s),
		err:   NewBold(e),
		warn:  NewStyle(w),
		help:  NewEm(h),
	}
}

// Phase renders a sync phase in its status color.
func (p *Palette) Phase(phase models.SyncPhase) string {
	switch phase {
	case models.PhaseCompleted:
		return p.ok.Render(phase.String())
	case models.PhaseFailed:
		return p.err.Render(phase.String())
	case models.PhaseSyncing:
		return p.warn.Render(phase.String())
	default:
		return p.help.Render(phase.String())
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}
