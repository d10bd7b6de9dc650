package cli

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tOgg1/loopline/internal/logging"
	"github.com/tOgg1/loopline/internal/loopfile"
	"github.com/tOgg1/loopline/internal/loops"
	"github.com/tOgg1/loopline/internal/models"
)

func (a *app) validator() *loops.Validator {
	return loops.NewValidator(loops.NewLimitValidator(a.cfg.Fields)).
		WithLongLoopRatio(a.cfg.Validation.LongLoopRatio)
}

func newNewCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "new NAME START END",
		Short: "Create a loop and validate it",
		Long: `Create a loop with a fresh id and default fields, then validate it.

With --file the loop is validated against the loops already in the file
and appended to it when valid. The file is created if it does not exist.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runNew(cmd, args)
		},
	}
	cmd.Flags().String("file", "", "loop file to validate against and append to")
	cmd.Flags().String("color", loops.DefaultColor, "display color")
	cmd.Flags().Float64("speed", loops.DefaultPlaybackSpeed, "playback speed")
	cmd.Flags().Int("repeat", loops.DefaultRepeatCount, "repeat count")
	cmd.Flags().Bool("active", false, "mark the loop active")
	addLengthFlag(cmd)
	return cmd
}

type newResult struct {
	Loop       models.Loop  `json:"loop"`
	Validation loops.Result `json:"validation"`
	File       string       `json:"file,omitempty"`
}

func (a *app) runNew(cmd *cobra.Command, args []string) error {
	start, err := parseSeconds("START", args[1])
	if err != nil {
		return err
	}
	end, err := parseSeconds("END", args[2])
	if err != nil {
		return err
	}

	color, _ := cmd.Flags().GetString("color")
	speed, _ := cmd.Flags().GetFloat64("speed")
	repeat, _ := cmd.Flags().GetInt("repeat")
	active, _ := cmd.Flags().GetBool("active")
	loop := loops.Create(args[0], start, end,
		loops.WithColor(color),
		loops.WithPlaybackSpeed(speed),
		loops.WithRepeatCount(repeat),
		loops.WithActive(active),
	)

	path, _ := cmd.Flags().GetString("file")
	doc := &loopfile.Document{}
	if path != "" {
		existing, err := loopfile.Read(path)
		switch {
		case err == nil:
			doc = existing
		case errors.Is(err, os.ErrNotExist):
		default:
			return Exitf(ExitCodeFailure, "%v", err)
		}
	}
	if length, _ := cmd.Flags().GetFloat64("length"); length > 0 && !math.IsInf(length, 1) {
		doc.TimelineLength = &length
	}

	result := a.validator().Validate(loop, doc.TimelineLength, doc.Loops)
	out := cmd.OutOrStdout()
	res := newResult{Loop: loop, Validation: result}

	if result.IsValid && path != "" {
		doc.Loops = append(doc.Loops, loop)
		if err := loopfile.Write(path, doc); err != nil {
			return Exitf(ExitCodeFailure, "%v", err)
		}
		res.File = path
		log := logging.WithLoop(loop.ID)
		log.Info().Str("file", path).Msg("loop added")
	}

	if a.jsonOutput {
		if err := writeJSON(out, res); err != nil {
			return err
		}
	} else {
		if err := writeLoopTable(out, []models.Loop{loop}); err != nil {
			return err
		}
		writeValidation(out, newPalette(out), result)
		if res.File != "" {
			fmt.Fprintf(out, "Added to %s\n", res.File)
		}
	}

	if !result.IsValid {
		err := result.Err()
		var validation *models.ValidationErrors
		if errors.As(err, &validation) {
			log := logging.FromContext(cmd.Context())
			log.Warn().Str("name", loop.Name).Interface("codes", validation.Codes()).Msg("loop rejected")
			if validation.HasCode(models.ErrorCodeOverlappingLoops) && !a.jsonOutput {
				fmt.Fprintf(out, "Try: %s\n", suggestHint(path, loop))
			}
		}
		return &ExitError{Code: ExitCodeFailure, Err: err, Printed: true}
	}
	return nil
}

// suggestHint is the suggest invocation that finds a free slot for loop.
func suggestHint(path string, loop models.Loop) string {
	parts := []string{"loopline suggest"}
	if path != "" {
		parts = append(parts, path)
	}
	parts = append(parts,
		"--start "+formatSeconds(loop.StartTime),
		"--duration "+formatSeconds(loop.Duration()))
	return strings.Join(parts, " ")
}

func writeValidation(out io.Writer, p palette, result loops.Result) {
	for _, code := range result.Errors {
		fmt.Fprintf(out, "%s %s: %s\n", p.critical.Render("error"), code, code.Message())
	}
	for _, warning := range result.Warnings {
		fmt.Fprintf(out, "%s %s\n", p.warning.Render("warning"), warning)
	}
}

func newValidateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [FILE]",
		Short: "Validate every loop in a collection",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runValidate(cmd, args)
		},
	}
	addLengthFlag(cmd)
	return cmd
}

type loopValidation struct {
	LoopID string       `json:"loop_id"`
	Name   string       `json:"name"`
	Result loops.Result `json:"result"`
}

func (a *app) runValidate(cmd *cobra.Command, args []string) error {
	src, err := a.loadSource(cmd, args)
	if err != nil {
		return err
	}

	validator := a.validator()
	results := make([]loopValidation, 0, len(src.doc.Loops))
	invalid := 0
	for _, loop := range src.doc.Loops {
		result := validator.Validate(loop, src.doc.TimelineLength, src.doc.Loops)
		if !result.IsValid {
			invalid++
		}
		results = append(results, loopValidation{LoopID: loop.ID, Name: loop.Name, Result: result})
	}

	out := cmd.OutOrStdout()
	if a.jsonOutput {
		if err := writeJSON(out, results); err != nil {
			return err
		}
	} else {
		p := newPalette(out)
		rows := make([][]string, 0, len(results))
		for _, r := range results {
			status := p.ok.Render("ok")
			if !r.Result.IsValid {
				status = p.critical.Render("invalid")
			}
			codes := make([]string, 0, len(r.Result.Errors))
			for _, code := range r.Result.Errors {
				codes = append(codes, code.String())
			}
			rows = append(rows, []string{r.LoopID, r.Name, status, strings.Join(codes, ","), strings.Join(r.Result.Warnings, "; ")})
		}
		if err := writeTable(out, []string{"ID", "NAME", "STATUS", "ERRORS", "WARNINGS"}, rows); err != nil {
			return err
		}
		fmt.Fprintf(out, "%d of %d loops valid (%s)\n", len(results)-invalid, len(results), src.label())
	}

	if invalid > 0 {
		return &ExitError{Code: ExitCodeFailure, Err: fmt.Errorf("%d invalid loops", invalid), Printed: true}
	}
	return nil
}

func parseSeconds(name, value string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, Exitf(ExitCodeFailure, "invalid %s %q: expected seconds", name, value)
	}
	return v, nil
}
