package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tOgg1/loopline/internal/conflict"
	"github.com/tOgg1/loopline/internal/db"
	"github.com/tOgg1/loopline/internal/health"
	"github.com/tOgg1/loopline/internal/loopfile"
	"github.com/tOgg1/loopline/internal/models"
)

const overlappingYAML = `media_id: song
title: Song
timeline_length: 60
loops:
  - id: a
    name: Intro
    start_time: 0
    end_time: 10
  - id: b
    name: Verse
    start_time: 5
    end_time: 15
`

// testEnv isolates config, context and database under a temp home.
func testEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("LOOPLINE_DATABASE_PATH", filepath.Join(home, "loopline.db"))
	t.Setenv("NO_COLOR", "1")
	return home
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	a := &app{}
	defer a.close()
	cmd := a.rootCmd("test")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func requireExitCode(t *testing.T, err error, code int) {
	t.Helper()
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	require.Equal(t, code, exitErr.Code)
}

func TestNewAppendsValidLoops(t *testing.T) {
	home := testEnv(t)
	path := filepath.Join(home, "loops.yaml")

	out, err := runCLI(t, "new", "Intro", "0", "10", "--file", path, "--length", "60")
	require.NoError(t, err)
	require.Contains(t, out, "Added to "+path)

	doc, err := loopfile.Read(path)
	require.NoError(t, err)
	require.Len(t, doc.Loops, 1)
	require.Equal(t, "Intro", doc.Loops[0].Name)
	require.Equal(t, 60.0, *doc.TimelineLength)

	out, err = runCLI(t, "new", "Verse", "5", "15", "--file", path)
	requireExitCode(t, err, ExitCodeFailure)
	var validation *models.ValidationErrors
	require.ErrorAs(t, err, &validation)
	require.True(t, validation.HasCode(models.ErrorCodeOverlappingLoops))
	require.Contains(t, out, "OVERLAPPING_LOOPS")
	require.Contains(t, out, "Overlaps with: Intro")
	require.Contains(t, out, "Try: loopline suggest "+path+" --start 5 --duration 10")

	doc, err = loopfile.Read(path)
	require.NoError(t, err)
	require.Len(t, doc.Loops, 1, "invalid loops are not appended")
}

func TestNewLogsRejectedCodes(t *testing.T) {
	home := testEnv(t)
	logPath := filepath.Join(home, "logs", "loopline.log")
	t.Setenv("LOOPLINE_LOGGING_FILE", logPath)

	_, err := runCLI(t, "new", "Backwards", "10", "5")
	requireExitCode(t, err, ExitCodeFailure)

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	require.Contains(t, string(data), `"message":"loop rejected"`)
	require.Contains(t, string(data), `"command":"new"`)
	require.Contains(t, string(data), string(models.ErrorCodeInvalidTimeRange))
}

func TestLogFileClosedWhenCommandFails(t *testing.T) {
	home := testEnv(t)
	logPath := filepath.Join(home, "logs", "loopline.log")
	t.Setenv("LOOPLINE_LOGGING_FILE", logPath)
	t.Setenv("LOOPLINE_LOGGING_LEVEL", "debug")

	a := &app{}
	cmd := a.rootCmd("test")
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"detect", filepath.Join(home, "missing.yaml")})
	requireExitCode(t, cmd.Execute(), ExitCodeFailure)

	f := a.logFile
	require.NotNil(t, f, "setup opened the log file before the command failed")
	a.close()
	require.Nil(t, a.logFile)
	require.ErrorIs(t, f.Close(), os.ErrClosed)

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	require.Contains(t, string(data), "configuration loaded")
}

func TestNewRejectsBadSeconds(t *testing.T) {
	testEnv(t)

	_, err := runCLI(t, "new", "Intro", "zero", "10")
	requireExitCode(t, err, ExitCodeFailure)
	require.Contains(t, err.Error(), `invalid START "zero"`)
}

func TestValidateJSON(t *testing.T) {
	home := testEnv(t)
	path := writeFile(t, home, "loops.yaml", overlappingYAML)

	out, err := runCLI(t, "validate", path, "--json")
	requireExitCode(t, err, ExitCodeFailure)

	var results []loopValidation
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 2)
	require.False(t, results[0].Result.IsValid)
	require.Equal(t, []models.ErrorCode{models.ErrorCodeOverlappingLoops}, results[0].Result.Errors)
}

func TestDetect(t *testing.T) {
	home := testEnv(t)
	path := writeFile(t, home, "loops.yaml", overlappingYAML)

	out, err := runCLI(t, "detect", path, "--json")
	require.NoError(t, err)

	var report conflict.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.Overlapping, 1)
	require.Equal(t, 5.0, report.Overlapping[0].OverlapDuration)

	out, err = runCLI(t, "detect", path, "--strict")
	requireExitCode(t, err, ExitCodeFailure)
	require.Contains(t, out, "Overlapping loops (1)")
	require.Contains(t, out, "5-10")
}

func TestSuggest(t *testing.T) {
	home := testEnv(t)
	path := writeFile(t, home, "loops.yaml", overlappingYAML)

	out, err := runCLI(t, "suggest", path, "--start", "2", "--duration", "5")
	require.NoError(t, err)
	require.Equal(t, "15 20\n", out)

	out, err = runCLI(t, "suggest", path, "--duration", "100")
	requireExitCode(t, err, ExitCodeFailure)
	require.Contains(t, out, "No free slot")

	_, err = runCLI(t, "suggest", path, "--duration", "-1")
	requireExitCode(t, err, ExitCodeFailure)
}

func TestResolveWritesAndSaves(t *testing.T) {
	home := testEnv(t)
	path := writeFile(t, home, "loops.yaml", overlappingYAML)
	outPath := filepath.Join(home, "resolved.json")

	out, err := runCLI(t, "resolve", path, "--out", outPath, "--save", "--json")
	require.NoError(t, err)

	var result resolveResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.Len(t, result.ResolvedLoops, 2)
	require.Len(t, result.Modifications, 1)
	require.Equal(t, models.ModificationAdjusted, result.Modifications[0].Type)
	require.NotEmpty(t, result.ResolutionID)

	doc, err := loopfile.Read(outPath)
	require.NoError(t, err)
	require.Equal(t, 10.0, doc.Loops[1].StartTime)
	require.Equal(t, 20.0, doc.Loops[1].EndTime)

	out, err = runCLI(t, "history", "song", "--json")
	require.NoError(t, err)
	var records []db.ResolutionRecord
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 1)
	require.Equal(t, result.ResolutionID, records[0].ID)

	out, err = runCLI(t, "export", "song", "--format", "json")
	require.NoError(t, err)
	var exported loopfile.Document
	require.NoError(t, json.Unmarshal([]byte(out), &exported))
	require.Equal(t, "song", exported.MediaID)
	require.Equal(t, 10.0, exported.Loops[1].StartTime)
}

func TestResolvePhaseFlags(t *testing.T) {
	home := testEnv(t)
	path := writeFile(t, home, "loops.yaml", overlappingYAML)

	out, err := runCLI(t, "resolve", path, "--no-adjust")
	require.NoError(t, err)
	require.Contains(t, out, "Nothing to resolve")
	require.Contains(t, out, "2 kept, 0 removed")
}

func TestCheckExitsOnCriticalIssues(t *testing.T) {
	home := testEnv(t)
	path := writeFile(t, home, "loops.yaml", overlappingYAML)

	out, err := runCLI(t, "check", path)
	require.NoError(t, err)
	require.Contains(t, out, "healthy")
	require.Contains(t, out, "1 overlapping loop pair detected")

	out, err = runCLI(t, "check", path, "--length", "12", "--json")
	requireExitCode(t, err, ExitCodeCritical)

	var report health.CollectionReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.False(t, report.IsValid)
	require.Equal(t, []string{"1 loop extends beyond the media duration"}, report.CriticalIssues)
}

func TestDebug(t *testing.T) {
	home := testEnv(t)
	path := writeFile(t, home, "loops.yaml", overlappingYAML)

	out, err := runCLI(t, "debug", path, "--json")
	require.NoError(t, err)

	var analysis health.DebugAnalysis
	require.NoError(t, json.Unmarshal([]byte(out), &analysis))
	require.Equal(t, 2, analysis.TotalLoops)
	require.Len(t, analysis.OverlapRegions, 1)
	require.NotNil(t, analysis.CoveragePercent)
	require.InDelta(t, 100.0/3, *analysis.CoveragePercent, 1e-9)
	require.Equal(t, 20.0, analysis.PracticeTime)

	out, err = runCLI(t, "debug", path)
	require.NoError(t, err)
	require.Contains(t, out, "Overlap regions")
	require.Contains(t, out, "practice time")
	require.Contains(t, out, "60s")
}

func TestContextSelectsStoredMedia(t *testing.T) {
	home := testEnv(t)
	path := writeFile(t, home, "loops.yaml", overlappingYAML)

	_, err := runCLI(t, "detect")
	requireExitCode(t, err, ExitCodeFailure)
	require.Contains(t, err.Error(), "no media selected")

	out, err := runCLI(t, "import", path, "--media", "track-7")
	require.NoError(t, err)
	require.Contains(t, out, "Imported 2 loops for track-7")

	_, err = runCLI(t, "use", "missing")
	requireExitCode(t, err, ExitCodeFailure)

	out, err = runCLI(t, "use", "track-7")
	require.NoError(t, err)
	require.Contains(t, out, "media:Song (60s)")

	out, err = runCLI(t, "list")
	require.NoError(t, err)
	require.Contains(t, out, "track-7")
	require.Contains(t, out, "*")

	out, err = runCLI(t, "detect", "--json")
	require.NoError(t, err)
	var report conflict.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.Overlapping, 1)

	out, err = runCLI(t, "use", "--clear")
	require.NoError(t, err)
	require.Contains(t, out, "Context cleared")

	out, err = runCLI(t, "use")
	require.NoError(t, err)
	require.Contains(t, out, "(no context set)")
}

func TestImportRequiresMediaID(t *testing.T) {
	home := testEnv(t)
	path := writeFile(t, home, "loops.json", `[{"id": "a", "name": "Intro", "start_time": 0, "end_time": 5}]`)

	_, err := runCLI(t, "import", path)
	requireExitCode(t, err, ExitCodeFailure)
	require.Contains(t, err.Error(), "no media_id")
}

const corruptYAML = `media_id: broken
timeline_length: 60
loops:
  - id: a
    name: Intro
    start_time: 0
    end_time: 10
  - id: n
    name: Glitch
    start_time: .nan
    end_time: 20
`

func TestJSONOutputWithNaNBounds(t *testing.T) {
	home := testEnv(t)
	path := writeFile(t, home, "corrupt.yaml", corruptYAML)

	out, err := runCLI(t, "detect", path, "--json")
	require.NoError(t, err)
	require.Contains(t, out, `"start_time": null`)
	var report conflict.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.InvalidTimes, 1)
	require.True(t, math.IsNaN(report.InvalidTimes[0].StartTime))

	out, err = runCLI(t, "resolve", path, "--json")
	require.NoError(t, err)
	var result resolveResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.Equal(t, []string{"Intro"}, models.Names(result.ResolvedLoops))
	require.Len(t, result.RemovedLoops, 1)
	require.True(t, math.IsNaN(result.RemovedLoops[0].StartTime))

	out, err = runCLI(t, "debug", path, "--json")
	require.NoError(t, err)
	var analysis health.DebugAnalysis
	require.NoError(t, json.Unmarshal([]byte(out), &analysis))
	require.Equal(t, 2, analysis.TotalLoops)
	require.Equal(t, 1, analysis.ValidLoops)

	kept := filepath.Join(home, "kept.json")
	_, err = runCLI(t, "resolve", path, "--no-remove-invalid", "--out", kept)
	require.NoError(t, err)
	doc, err := loopfile.Read(kept)
	require.NoError(t, err)
	require.Len(t, doc.Loops, 2)
	require.True(t, math.IsNaN(doc.Loops[1].StartTime))
}

func TestExportJSONWithStoredNaNBounds(t *testing.T) {
	home := testEnv(t)
	path := writeFile(t, home, "corrupt.yaml", corruptYAML)

	_, err := runCLI(t, "import", path)
	require.NoError(t, err)

	out, err := runCLI(t, "export", "broken", "--json")
	require.NoError(t, err)
	var doc loopfile.Document
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	require.Len(t, doc.Loops, 2)
	require.True(t, math.IsNaN(doc.Loops[1].StartTime))
	require.Equal(t, 20.0, doc.Loops[1].EndTime)
}
