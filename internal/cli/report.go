package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tOgg1/loopline/internal/health"
)

func newCheckCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [FILE]",
		Short: "Report the health of a collection",
		Long: `Report critical issues, warnings and suggestions for a collection.

Exits with status 2 when critical issues are found.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCheck(cmd, args)
		},
	}
	addLengthFlag(cmd)
	return cmd
}

func (a *app) runCheck(cmd *cobra.Command, args []string) error {
	src, err := a.loadSource(cmd, args)
	if err != nil {
		return err
	}

	report := health.NewReporter(a.cfg.Validation).ValidateCollection(src.doc.Loops, src.doc.TimelineLength)
	out := cmd.OutOrStdout()
	if a.jsonOutput {
		if err := writeJSON(out, report); err != nil {
			return err
		}
	} else {
		writeHealthReport(out, newPalette(out), src.label(), report)
	}

	if !report.IsValid {
		return &ExitError{Code: ExitCodeCritical, Err: errors.New("collection has critical issues"), Printed: true}
	}
	return nil
}

func writeHealthReport(out io.Writer, p palette, label string, report health.CollectionReport) {
	status := p.ok.Render("healthy")
	if !report.IsValid {
		status = p.critical.Render("critical issues")
	}
	fmt.Fprintf(out, "%s: %s\n", label, status)

	for _, issue := range report.CriticalIssues {
		fmt.Fprintf(out, "  %s %s\n", p.critical.Render("✗"), issue)
	}
	for _, warning := range report.Warnings {
		fmt.Fprintf(out, "  %s %s\n", p.warning.Render("!"), warning)
	}
	for _, suggestion := range report.Suggestions {
		fmt.Fprintf(out, "  %s %s\n", p.muted.Render("→"), suggestion)
	}
}

func newDebugCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "debug [FILE]",
		Short: "Show extents, gaps, overlap regions and coverage",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDebug(cmd, args)
		},
	}
	addLengthFlag(cmd)
	return cmd
}

func (a *app) runDebug(cmd *cobra.Command, args []string) error {
	src, err := a.loadSource(cmd, args)
	if err != nil {
		return err
	}

	analysis := health.AnalyzeForDebug(src.doc.Loops, src.doc.TimelineLength)
	out := cmd.OutOrStdout()
	if a.jsonOutput {
		return writeJSON(out, analysis)
	}

	p := newPalette(out)
	fmt.Fprintln(out, p.title.Render(src.label()))
	summary := [][]string{
		{"media length", formatLength(src.doc.TimelineLength)},
		{"loops", strconv.Itoa(analysis.TotalLoops)},
		{"valid", strconv.Itoa(analysis.ValidLoops)},
		{"active", strconv.Itoa(analysis.ActiveLoops)},
		{"total duration", formatSeconds(analysis.TotalDuration) + "s"},
		{"practice time", formatSeconds(analysis.PracticeTime) + "s"},
		{"earliest start", optionalSeconds(analysis.EarliestStart)},
		{"latest end", optionalSeconds(analysis.LatestEnd)},
		{"coverage", optionalPercent(analysis.CoveragePercent)},
		{"conflicts", strconv.Itoa(analysis.Conflicts.Count())},
	}
	if err := writeTable(out, nil, summary); err != nil {
		return err
	}

	if len(analysis.Gaps) > 0 {
		fmt.Fprintln(out, p.title.Render("Gaps"))
		rows := make([][]string, 0, len(analysis.Gaps))
		for _, gap := range analysis.Gaps {
			rows = append(rows, []string{formatSeconds(gap.Start), formatSeconds(gap.End), formatSeconds(gap.End-gap.Start) + "s"})
		}
		if err := writeTable(out, []string{"START", "END", "LENGTH"}, rows); err != nil {
			return err
		}
	}

	if len(analysis.OverlapRegions) > 0 {
		fmt.Fprintln(out, p.title.Render("Overlap regions"))
		rows := make([][]string, 0, len(analysis.OverlapRegions))
		for _, region := range analysis.OverlapRegions {
			rows = append(rows, []string{formatSeconds(region.Start), formatSeconds(region.End), strconv.Itoa(region.LoopCount())})
		}
		if err := writeTable(out, []string{"START", "END", "LOOPS"}, rows); err != nil {
			return err
		}
	}
	return nil
}

func optionalSeconds(v *float64) string {
	if v == nil {
		return "-"
	}
	return formatSeconds(*v)
}

func optionalPercent(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', 1, 64) + "%"
}
