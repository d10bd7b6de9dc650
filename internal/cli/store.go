package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/tOgg1/loopline/internal/db"
	"github.com/tOgg1/loopline/internal/logging"
	"github.com/tOgg1/loopline/internal/loopfile"
)

func newImportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Store a loop file in the database",
		Long: `Store the loops of FILE as the collection of a media item, replacing any
loops already stored for it. The media id comes from --media or the
file's media_id field.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runImport(cmd, args)
		},
	}
	cmd.Flags().String("title", "", "media title (overrides the file's title)")
	addLengthFlag(cmd)
	return cmd
}

func (a *app) runImport(cmd *cobra.Command, args []string) error {
	src, err := a.loadSource(cmd, args)
	if err != nil {
		return err
	}
	if title, _ := cmd.Flags().GetString("title"); title != "" {
		src.doc.Title = title
	}

	collection, err := collectionFromDocument(src.doc, a.mediaID)
	if err != nil {
		return Exitf(ExitCodeFailure, "%v", err)
	}

	database, err := a.openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer database.Close()

	if err := db.NewCollectionRepository(database).Save(cmd.Context(), collection); err != nil {
		return Exitf(ExitCodeFailure, "import %s: %v", src.path, err)
	}
	log := logging.WithMedia(collection.MediaID)
	log.Info().Int("loops", len(collection.Loops)).Msg("collection imported")

	out := cmd.OutOrStdout()
	if a.jsonOutput {
		return writeJSON(out, map[string]any{"media_id": collection.MediaID, "loops": len(collection.Loops)})
	}
	fmt.Fprintf(out, "Imported %d loops for %s\n", len(collection.Loops), collection.MediaID)
	return nil
}

func newExportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export [MEDIA_ID]",
		Short: "Write a stored collection to a loop file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runExport(cmd, args)
		},
	}
	cmd.Flags().String("out", "", "output file (.json, .yaml or .yml); stdout when empty")
	cmd.Flags().String("format", string(loopfile.FormatYAML), "stdout format (json or yaml)")
	return cmd
}

func (a *app) runExport(cmd *cobra.Command, args []string) error {
	explicit := ""
	if len(args) > 0 {
		explicit = args[0]
	}
	doc, err := a.loadStoredDocument(cmd.Context(), explicit)
	if err != nil {
		return err
	}

	if path, _ := cmd.Flags().GetString("out"); path != "" {
		if err := loopfile.Write(path, doc); err != nil {
			return Exitf(ExitCodeFailure, "%v", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d loops to %s\n", len(doc.Loops), path)
		return nil
	}

	format, _ := cmd.Flags().GetString("format")
	if a.jsonOutput {
		format = string(loopfile.FormatJSON)
	}
	if err := loopfile.Encode(cmd.OutOrStdout(), doc, loopfile.Format(format)); err != nil {
		return Exitf(ExitCodeFailure, "%v", err)
	}
	return nil
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List stored media collections",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runList(cmd)
		},
	}
}

func (a *app) runList(cmd *cobra.Command) error {
	database, err := a.openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer database.Close()

	media, err := db.NewCollectionRepository(database).ListMedia(cmd.Context())
	if err != nil {
		return Exitf(ExitCodeFailure, "list media: %v", err)
	}

	out := cmd.OutOrStdout()
	if a.jsonOutput {
		return writeJSON(out, media)
	}
	if len(media) == 0 {
		fmt.Fprintln(out, "No media stored")
		return nil
	}

	current, err := a.contexts.Load()
	if err != nil {
		logging.Warn().Err(err).Msg("current media unknown, list is unmarked")
	}
	rows := make([][]string, 0, len(media))
	for _, m := range media {
		marker := ""
		if current != nil && current.MediaID == m.MediaID {
			marker = "*"
		}
		rows = append(rows, []string{
			marker,
			m.MediaID,
			m.Title,
			formatLength(m.TimelineLength),
			strconv.Itoa(m.LoopCount),
			m.UpdatedAt.Local().Format(time.DateTime),
		})
	}
	return writeTable(out, []string{"", "MEDIA", "TITLE", "LENGTH", "LOOPS", "UPDATED"}, rows)
}

func newHistoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [MEDIA_ID]",
		Short: "Show saved resolver runs for a media item",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runHistory(cmd, args)
		},
	}
	cmd.Flags().IntP("limit", "n", 0, "show at most this many runs (0 for all)")
	cmd.Flags().BoolP("verbose", "v", false, "include every modification")
	return cmd
}

func (a *app) runHistory(cmd *cobra.Command, args []string) error {
	explicit := ""
	if len(args) > 0 {
		explicit = args[0]
	}
	mediaID, err := a.resolveMediaID(explicit)
	if err != nil {
		return err
	}

	database, err := a.openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer database.Close()

	records, err := db.NewResolutionRepository(database).ListByMedia(cmd.Context(), mediaID)
	if err != nil {
		return Exitf(ExitCodeFailure, "load history: %v", err)
	}
	if limit, _ := cmd.Flags().GetInt("limit"); limit > 0 && len(records) > limit {
		records = records[:limit]
	}

	out := cmd.OutOrStdout()
	if a.jsonOutput {
		return writeJSON(out, records)
	}
	if len(records) == 0 {
		fmt.Fprintf(out, "No resolutions recorded for %s\n", mediaID)
		return nil
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	p := newPalette(out)
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.ID,
			r.CreatedAt.Local().Format(time.DateTime),
			strconv.Itoa(r.ResolvedCount),
			strconv.Itoa(r.RemovedCount),
			strconv.Itoa(len(r.Modifications)),
		})
	}
	if err := writeTable(out, []string{"ID", "CREATED", "KEPT", "REMOVED", "CHANGES"}, rows); err != nil {
		return err
	}
	if !verbose {
		return nil
	}
	for _, r := range records {
		if len(r.Modifications) == 0 {
			continue
		}
		fmt.Fprintln(out, p.title.Render(r.ID))
		mods := make([][]string, 0, len(r.Modifications))
		for _, mod := range r.Modifications {
			mods = append(mods, []string{string(mod.Type), mod.Before.Name, describeSpan(mod.Before), describeAfter(mod.After), mod.Reason})
		}
		if err := writeTable(out, []string{"TYPE", "LOOP", "BEFORE", "AFTER", "REASON"}, mods); err != nil {
			return err
		}
	}
	return nil
}
