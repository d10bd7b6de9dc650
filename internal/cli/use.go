package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tOgg1/loopline/internal/db"
)

func newUseCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "use [MEDIA_ID]",
		Short: "Select the media item used when no loop file is given",
		Long: `Select the media item that commands read from the database when they are
run without a FILE argument. Without arguments the current selection is
shown.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runUse(cmd, args)
		},
	}
	cmd.Flags().Bool("clear", false, "clear the current selection")
	return cmd
}

func (a *app) runUse(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if reset, _ := cmd.Flags().GetBool("clear"); reset {
		if err := a.contexts.Clear(); err != nil {
			return Exitf(ExitCodeFailure, "%v", err)
		}
		fmt.Fprintln(out, "Context cleared")
		return nil
	}

	if len(args) == 0 {
		current, err := a.contexts.Load()
		if err != nil {
			return Exitf(ExitCodeFailure, "%v", err)
		}
		if a.jsonOutput {
			return writeJSON(out, current)
		}
		fmt.Fprintln(out, current.String())
		return nil
	}

	database, err := a.openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer database.Close()

	collection, err := db.NewCollectionRepository(database).Get(cmd.Context(), args[0])
	if err != nil {
		if isNotFound(err) {
			return Exitf(ExitCodeFailure, "media not found: %s", args[0])
		}
		return Exitf(ExitCodeFailure, "load media: %v", err)
	}

	current, err := a.contexts.Load()
	if err != nil {
		return Exitf(ExitCodeFailure, "%v", err)
	}
	current.SetMedia(collection.MediaID, collection.Title, collection.TimelineLength)
	if err := a.contexts.Save(current); err != nil {
		return Exitf(ExitCodeFailure, "%v", err)
	}

	if a.jsonOutput {
		return writeJSON(out, current)
	}
	fmt.Fprintf(out, "Using %s\n", current.String())
	return nil
}
