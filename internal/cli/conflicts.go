package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tOgg1/loopline/internal/conflict"
	"github.com/tOgg1/loopline/internal/db"
	"github.com/tOgg1/loopline/internal/logging"
	"github.com/tOgg1/loopline/internal/loopfile"
	"github.com/tOgg1/loopline/internal/models"
)

func newDetectCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detect [FILE]",
		Short: "List overlapping, out-of-bounds, invalid and duplicate loops",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDetect(cmd, args)
		},
	}
	cmd.Flags().Bool("strict", false, "exit non-zero when conflicts are found")
	addLengthFlag(cmd)
	return cmd
}

func (a *app) runDetect(cmd *cobra.Command, args []string) error {
	src, err := a.loadSource(cmd, args)
	if err != nil {
		return err
	}

	report := conflict.Detect(src.doc.Loops, src.doc.TimelineLength)
	out := cmd.OutOrStdout()
	if a.jsonOutput {
		if err := writeJSON(out, report); err != nil {
			return err
		}
	} else {
		writeDetectReport(out, newPalette(out), report)
	}

	if strict, _ := cmd.Flags().GetBool("strict"); strict && report.HasConflicts() {
		return &ExitError{Code: ExitCodeFailure, Err: fmt.Errorf("%d conflicts found", report.Count()), Printed: true}
	}
	return nil
}

func writeDetectReport(out io.Writer, p palette, report conflict.Report) {
	if !report.HasConflicts() {
		fmt.Fprintln(out, p.ok.Render("No conflicts found"))
		return
	}

	if len(report.Overlapping) > 0 {
		fmt.Fprintln(out, p.title.Render(fmt.Sprintf("Overlapping loops (%d)", len(report.Overlapping))))
		rows := make([][]string, 0, len(report.Overlapping))
		for _, pair := range report.Overlapping {
			rows = append(rows, []string{
				pair.First.Name,
				pair.Second.Name,
				formatSeconds(pair.OverlapStart) + "-" + formatSeconds(pair.OverlapEnd),
				formatSeconds(pair.OverlapDuration) + "s",
			})
		}
		_ = writeTable(out, []string{"FIRST", "SECOND", "REGION", "OVERLAP"}, rows)
	}
	writeLoopSection(out, p, "Exceeding media duration", report.ExceedingDuration)
	writeLoopSection(out, p, "Invalid time ranges", report.InvalidTimes)
	writeLoopSection(out, p, "Duplicate names", report.DuplicateNames)
}

func writeLoopSection(out io.Writer, p palette, title string, loops []models.Loop) {
	if len(loops) == 0 {
		return
	}
	fmt.Fprintln(out, p.title.Render(fmt.Sprintf("%s (%d)", title, len(loops))))
	_ = writeLoopTable(out, loops)
}

func newSuggestCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suggest [FILE]",
		Short: "Suggest a free slot for a new loop",
		Long: `Suggest a slot of the given duration that overlaps no existing loop.

The desired start is used when it fits. Otherwise the earliest gap, the
space after the last loop, and the space before the first loop are tried
in that order.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSuggest(cmd, args)
		},
	}
	cmd.Flags().Float64("start", 0, "desired start in seconds")
	cmd.Flags().Float64("duration", 0, "loop duration in seconds (required)")
	_ = cmd.MarkFlagRequired("duration")
	addLengthFlag(cmd)
	return cmd
}

type suggestResult struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

func (a *app) runSuggest(cmd *cobra.Command, args []string) error {
	start, _ := cmd.Flags().GetFloat64("start")
	duration, _ := cmd.Flags().GetFloat64("duration")
	if duration <= 0 {
		return Exitf(ExitCodeFailure, "--duration must be positive")
	}

	src, err := a.loadSource(cmd, args)
	if err != nil {
		return err
	}

	slot := conflict.Suggest(start, duration, src.doc.Loops, src.doc.TimelineLength)
	out := cmd.OutOrStdout()
	if slot == nil {
		if a.jsonOutput {
			_ = writeJSON(out, nil)
		} else {
			fmt.Fprintln(out, "No free slot")
		}
		return &ExitError{Code: ExitCodeFailure, Err: fmt.Errorf("no free slot for %ss", formatSeconds(duration)), Printed: true}
	}

	if a.jsonOutput {
		return writeJSON(out, suggestResult{Start: slot.Start, End: slot.End})
	}
	fmt.Fprintf(out, "%s %s\n", formatSeconds(slot.Start), formatSeconds(slot.End))
	return nil
}

func newResolveCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve [FILE]",
		Short: "Repair a collection and report every modification",
		Long: `Repair a collection in four phases: remove invalid loops, trim loops to
the media duration, rename duplicate names, and move overlapping loops.

Phases default to the resolver section of the config file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runResolve(cmd, args)
		},
	}
	cmd.Flags().String("out", "", "write the resolved collection to this file")
	cmd.Flags().Bool("save", false, "store the resolved collection and its audit trail in the database")
	cmd.Flags().Bool("no-remove-invalid", false, "keep loops with invalid bounds")
	cmd.Flags().Bool("no-trim", false, "do not trim loops to the media duration")
	cmd.Flags().Bool("no-rename", false, "do not rename duplicate names")
	cmd.Flags().Bool("no-adjust", false, "do not move overlapping loops")
	addLengthFlag(cmd)
	return cmd
}

type resolveResult struct {
	conflict.Resolution
	ResolutionID string `json:"resolution_id,omitempty"`
	File         string `json:"file,omitempty"`
}

func (a *app) resolveOptions(cmd *cobra.Command) conflict.ResolveOptions {
	opts := conflict.ResolveOptions{
		RemoveInvalid:       a.cfg.Resolver.RemoveInvalid,
		TrimToVideoDuration: a.cfg.Resolver.TrimToVideoDuration,
		RenameDuplicates:    a.cfg.Resolver.RenameDuplicates,
		AdjustOverlaps:      a.cfg.Resolver.AdjustOverlaps,
	}
	disable := func(flag string, phase *bool) {
		if off, _ := cmd.Flags().GetBool(flag); off {
			*phase = false
		}
	}
	disable("no-remove-invalid", &opts.RemoveInvalid)
	disable("no-trim", &opts.TrimToVideoDuration)
	disable("no-rename", &opts.RenameDuplicates)
	disable("no-adjust", &opts.AdjustOverlaps)
	return opts
}

func (a *app) runResolve(cmd *cobra.Command, args []string) error {
	src, err := a.loadSource(cmd, args)
	if err != nil {
		return err
	}

	opts := a.resolveOptions(cmd)
	res := conflict.Resolve(src.doc.Loops, src.doc.TimelineLength, opts)
	result := resolveResult{Resolution: res}

	log := logging.WithMedia(src.doc.MediaID)
	log.Debug().
		Int("loops", len(src.doc.Loops)).
		Int("resolved", len(res.ResolvedLoops)).
		Int("removed", len(res.RemovedLoops)).
		Int("modifications", len(res.Modifications)).
		Msg("collection resolved")

	if path, _ := cmd.Flags().GetString("out"); path != "" {
		doc := *src.doc
		doc.Loops = res.ResolvedLoops
		if err := loopfile.Write(path, &doc); err != nil {
			return Exitf(ExitCodeFailure, "%v", err)
		}
		result.File = path
	}

	if save, _ := cmd.Flags().GetBool("save"); save {
		collection, err := collectionFromDocument(src.doc, a.mediaID)
		if err != nil {
			return Exitf(ExitCodeFailure, "%v", err)
		}
		database, err := a.openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer database.Close()

		record, err := db.NewResolutionRepository(database).Apply(cmd.Context(), collection, res)
		if err != nil {
			return Exitf(ExitCodeFailure, "save resolution: %v", err)
		}
		result.ResolutionID = record.ID
		saved := logging.WithMedia(record.MediaID)
		saved.Info().Str("resolution", record.ID).Msg("resolution saved")
	}

	out := cmd.OutOrStdout()
	if a.jsonOutput {
		return writeJSON(out, result)
	}
	return writeResolution(out, newPalette(out), result)
}

func writeResolution(out io.Writer, p palette, result resolveResult) error {
	if !result.Changed() {
		fmt.Fprintln(out, p.ok.Render("Nothing to resolve"))
	} else {
		fmt.Fprintln(out, p.title.Render("Modifications"))
		rows := make([][]string, 0, len(result.Modifications))
		for i, mod := range result.Modifications {
			rows = append(rows, []string{
				strconv.Itoa(i + 1),
				string(mod.Type),
				mod.Before.Name,
				describeSpan(mod.Before),
				describeAfter(mod.After),
				mod.Reason,
			})
		}
		if err := writeTable(out, []string{"#", "TYPE", "LOOP", "BEFORE", "AFTER", "REASON"}, rows); err != nil {
			return err
		}
	}

	if len(result.ResolvedLoops) > 0 {
		fmt.Fprintln(out, p.title.Render("Resolved loops"))
		if err := writeLoopTable(out, result.ResolvedLoops); err != nil {
			return err
		}
	}

	counts := result.Counts()
	fmt.Fprintf(out, "%d kept, %d removed (%d trimmed, %d renamed, %d adjustments)\n",
		len(result.ResolvedLoops), len(result.RemovedLoops),
		counts[models.ModificationTrimmed], counts[models.ModificationRenamed], counts[models.ModificationAdjusted])
	if result.File != "" {
		fmt.Fprintf(out, "Wrote %s\n", result.File)
	}
	if result.ResolutionID != "" {
		fmt.Fprintf(out, "Saved resolution %s\n", p.muted.Render(result.ResolutionID))
	}
	return nil
}

func describeSpan(l models.Loop) string {
	return formatSeconds(l.StartTime) + "-" + formatSeconds(l.EndTime)
}

func describeAfter(l *models.Loop) string {
	if l == nil {
		return "-"
	}
	return describeSpan(*l)
}
