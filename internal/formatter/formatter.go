// package formatter renders sync run history as CSV, Markdown, plain text or JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/inboxsync/internal/models"
	"github.com/desertthunder/inboxsync/internal/shared"
)

// Format names an export format accepted by [Export].
type Format string

const (
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
	FormatJSON     Format = "json"
)

// ParseFormat maps user input onto a [Format]. "md" and "txt" are accepted aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "text", "txt", "":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, s)
	}
}

// Export renders runs in the given format.
func Export(runs []models.SyncRun, format Format) ([]byte, error) {
	switch format {
	case FormatCSV:
		return ExportToCSV(runs)
	case FormatMarkdown:
		return ExportToMarkdown(runs)
	case FormatJSON:
		return ExportToJSON(runs)
	case FormatText:
		return ExportToText(runs)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}
}

// ExportToCSV converts runs to CSV with columns: Sequence, ID, Phase, Mode, Processed, Added, Updated, Started, Finished, Duration, Error
func ExportToCSV(runs []models.SyncRun) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Sequence", "ID", "Phase", "Mode", "Processed", "Added", "Updated", "Started", "Finished", "Duration", "Error"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, run := range runs {
		record := []string{
			strconv.Itoa(run.Sequence),
			run.ID,
			run.Phase.String(),
			mode(run),
			strconv.Itoa(run.Stats.Processed),
			strconv.Itoa(run.Stats.Added),
			strconv.Itoa(run.Stats.Updated),
			run.StartedAt.UTC().Format(time.RFC3339),
			run.FinishedAt.UTC().Format(time.RFC3339),
			run.Duration().Round(time.Millisecond).String(),
			run.ErrorMessage,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts runs to a Markdown table with a completed/failed summary.
func ExportToMarkdown(runs []models.SyncRun) ([]byte, error) {
	var buf bytes.Buffer

	completed, failed := tally(runs)
	buf.WriteString("# Sync History\n\n")
	buf.WriteString(fmt.Sprintf("**Runs**: %d (%d completed, %d failed)\n\n", len(runs), completed, failed))

	buf.WriteString("| # | Phase | Mode | Stats | Finished | Duration | Error |\n")
	buf.WriteString("|---|---|---|---|---|---|---|\n")
	for _, run := range runs {
		buf.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s | %s | %s |\n",
			run.Sequence,
			run.Phase,
			mode(run),
			run.Stats,
			run.FinishedAt.UTC().Format(time.DateTime),
			run.Duration().Round(time.Second),
			strings.ReplaceAll(run.ErrorMessage, "|", `\|`),
		))
	}

	return buf.Bytes(), nil
}

// ExportToText converts runs to plain text, one line per run
func ExportToText(runs []models.SyncRun) ([]byte, error) {
	var buf bytes.Buffer

	if len(runs) == 0 {
		buf.WriteString("No sync runs recorded\n")
		return buf.Bytes(), nil
	}

	for _, run := range runs {
		buf.WriteString(fmt.Sprintf("#%d %s %s %s (%s, %s)",
			run.Sequence,
			run.FinishedAt.Local().Format(time.DateTime),
			run.Phase,
			mode(run),
			run.Stats,
			run.Duration().Round(time.Second),
		))
		if run.ErrorMessage != "" {
			buf.WriteString(": " + run.ErrorMessage)
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// ExportToJSON converts runs to indented JSON
func ExportToJSON(runs []models.SyncRun) ([]byte, error) {
	if runs == nil {
		runs = []models.SyncRun{}
	}
	data, err := json.MarshalIndent(runs, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal runs: %w", err)
	}
	return append(data, '\n'), nil
}

// WriteExport renders runs and writes them to path.
func WriteExport(runs []models.SyncRun, format Format, path string) error {
	if path == "" {
		return fmt.Errorf("%w: output path", shared.ErrMissingArgument)
	}

	data, err := Export(runs, format)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}
	return nil
}

func mode(run models.SyncRun) string {
	switch {
	case run.FullSync:
		return "full"
	case run.Background:
		return "background"
	default:
		return "incremental"
	}
}

func tally(runs []models.SyncRun) (completed, failed int) {
	for _, run := range runs {
		switch run.Phase {
		case models.PhaseCompleted:
			completed++
		case models.PhaseFailed:
			failed++
		}
	}
	return completed, failed
}
