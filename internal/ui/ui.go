// Package ui renders resolved videos for the terminal and wraps fzf for
// picking from lists. Items are piped to fzf via stdin as plain text; no
// shell-interpreted preview strings are used.
package ui

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"
	"golang.org/x/term"

	"odkdl/internal/media"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12)
	valueStyle  = lipgloss.NewStyle()
	formatStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	bestStyle   = formatStyle.Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63")).Padding(0, 1)
)

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// RenderInfo writes a summary of info. With styled set the summary is
// boxed and colored; otherwise it is plain "key: value" lines.
func RenderInfo(w io.Writer, info *media.Info, styled bool) error {
	rows := summaryRows(info)

	if !styled {
		var b strings.Builder
		fmt.Fprintf(&b, "%s\n", info.Title)
		for _, r := range rows {
			fmt.Fprintf(&b, "%s: %s\n", r[0], r[1])
		}
		_, err := io.WriteString(w, b.String())
		return err
	}

	lines := []string{titleStyle.Render(info.Title)}
	for _, r := range rows {
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top,
			labelStyle.Render(r[0]), valueStyle.Render(r[1])))
	}
	if len(info.Formats) > 0 {
		best := info.BestFormat()
		ids := lo.Map(info.Formats, func(f media.Format, _ int) string {
			if f.FormatID == best.FormatID {
				return bestStyle.Render(f.FormatID + "*")
			}
			return formatStyle.Render(f.FormatID)
		})
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top,
			labelStyle.Render("formats"), strings.Join(ids, " ")))
	}

	_, err := fmt.Fprintln(w, boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...)))
	return err
}

// RenderError writes a user-facing error message.
func RenderError(w io.Writer, msg string, styled bool) {
	if styled {
		msg = errorStyle.Render(msg)
	}
	fmt.Fprintln(w, msg)
}

func summaryRows(info *media.Info) [][2]string {
	var rows [][2]string
	add := func(label, value string) {
		if value != "" {
			rows = append(rows, [2]string{label, value})
		}
	}

	add("id", info.ID)
	add("series", info.Series)
	if info.EpisodeNumber > 0 {
		add("episode", fmt.Sprintf("%d", info.EpisodeNumber))
	}
	if info.ReleaseTimestamp != nil {
		add("released", time.Unix(*info.ReleaseTimestamp, 0).UTC().Format("2006-01-02"))
	}
	if info.Duration > 0 {
		add("duration", formatDuration(info.Duration))
	}
	add("uploader", info.Uploader)
	add("categories", strings.Join(info.Categories, ", "))
	if best := info.BestFormat(); best != nil {
		add("best", describeFormat(*best))
	}
	if len(info.Subtitles) > 0 {
		langs := lo.Keys(info.Subtitles)
		slices.Sort(langs)
		add("subtitles", strings.Join(langs, ", "))
	}
	add("url", info.WebpageURL)
	return rows
}

func describeFormat(f media.Format) string {
	parts := []string{f.FormatID}
	if f.Height > 0 {
		parts = append(parts, fmt.Sprintf("%dp", f.Height))
	}
	if f.TBR > 0 {
		parts = append(parts, fmt.Sprintf("%.0fk", f.TBR))
	}
	if f.Ext != "" {
		parts = append(parts, f.Ext)
	}
	return strings.Join(parts, " ")
}

// formatDuration formats seconds as H:MM:SS or M:SS.
func formatDuration(seconds float64) string {
	s := int(seconds)
	h := s / 3600
	m := (s % 3600) / 60
	sec := s % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, sec)
	}
	return fmt.Sprintf("%d:%02d", m, sec)
}

// ErrCancelled is returned when the user aborts an fzf selection.
var ErrCancelled = errors.New("selection cancelled")

// Select presents items to the user via fzf and returns the selected item's index.
func Select(prompt string, items []string) (int, error) {
	if len(items) == 0 {
		return -1, fmt.Errorf("no items to select from")
	}

	fzfPath, err := exec.LookPath("fzf")
	if err != nil {
		return -1, fmt.Errorf("fzf not found in PATH: %w", err)
	}

	cmd := exec.Command(fzfPath,
		"--prompt", prompt+" > ",
		"--height", "40%",
		"--reverse",
		"--with-nth", "2..", // Display from second field onward (hide index)
		"--delimiter", "\t",
		"--no-multi",
		"--cycle",
	)

	cmd.Stdin = strings.NewReader(numbered(items))
	cmd.Stderr = os.Stderr

	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 130 {
			return -1, ErrCancelled
		}
		return -1, fmt.Errorf("fzf failed: %w", err)
	}

	return parseSelection(stdout.String(), len(items))
}

// numbered prefixes each item with its index and a tab.
func numbered(items []string) string {
	var input strings.Builder
	for i, item := range items {
		fmt.Fprintf(&input, "%d\t%s\n", i, item)
	}
	return input.String()
}

func parseSelection(out string, n int) (int, error) {
	selected := strings.TrimSpace(out)
	if selected == "" {
		return -1, fmt.Errorf("no selection made")
	}

	index, _, _ := strings.Cut(selected, "\t")
	var idx int
	if _, err := fmt.Sscanf(index, "%d", &idx); err != nil {
		return -1, fmt.Errorf("parsing selection index: %w", err)
	}

	if idx < 0 || idx >= n {
		return -1, fmt.Errorf("selection index %d out of range", idx)
	}

	return idx, nil
}
