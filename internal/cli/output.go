package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

func writeJSON(out io.Writer, v any) error {
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return Exitf(ExitCodeFailure, "encode output: %v", err)
	}
	_, err = fmt.Fprintln(out, string(payload))
	return err
}

// palette holds the styles used for human output. Styles are plain when
// the writer is not a terminal.
type palette struct {
	title    lipgloss.Style
	ok       lipgloss.Style
	critical lipgloss.Style
	warning  lipgloss.Style
	muted    lipgloss.Style
}

func newPalette(out io.Writer) palette {
	if !colorEnabled(out) {
		plain := lipgloss.NewStyle()
		return palette{title: plain, ok: plain, critical: plain, warning: plain, muted: plain}
	}
	return palette{
		title:    lipgloss.NewStyle().Bold(true),
		ok:       lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true),
		critical: lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		warning:  lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		muted:    lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

func colorEnabled(out io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := out.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// formatSeconds renders a timeline position with at most three decimals.
func formatSeconds(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strconv.FormatFloat(math.Round(v*1000)/1000, 'f', -1, 64)
}

func formatLength(length *float64) string {
	if length == nil || *length <= 0 {
		return "unknown"
	}
	return formatSeconds(*length) + "s"
}
