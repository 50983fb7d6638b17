package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"snapvault/internal/format"
	"snapvault/internal/models"
)

var outputFormatter format.Formatter = format.JSONFormatter{}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	numberStyle = cellStyle.Align(lipgloss.Right)
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)

func writeStructured(payload any) error {
	return outputFormatter.Write(os.Stdout, payload)
}

func writePlain(format string, args ...any) error {
	_, err := fmt.Fprintf(os.Stdout, format, args...)
	return err
}

func writeWarning(format string, args ...any) {
	fmt.Fprintln(os.Stderr, warnStyle.Render("warning: "+fmt.Sprintf(format, args...)))
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func humanBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}

// renderSnapshotTable writes one row per snapshot with numeric columns right-aligned.
func renderSnapshotTable(w io.Writer, snapshots []models.SnapshotSummary) error {
	rows := make([][]string, 0, len(snapshots))
	for _, s := range snapshots {
		rows = append(rows, []string{
			strconv.FormatInt(s.ID, 10),
			formatTime(s.Timestamp),
			s.RootPath,
			humanize.Comma(s.Files),
			humanBytes(s.ApproxSize),
			humanBytes(s.ContentBytes),
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "TIMESTAMP", "ROOT", "FILES", "APPROX SIZE", "CONTENT").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 0 || col >= 3:
				return numberStyle
			default:
				return cellStyle
			}
		})

	_, err := fmt.Fprintln(w, t.Render())
	return err
}
