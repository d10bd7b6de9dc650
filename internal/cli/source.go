package cli

import (
	"context"
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"github.com/tOgg1/loopline/internal/db"
	"github.com/tOgg1/loopline/internal/loopfile"
)

// source is a loop collection loaded for a command.
type source struct {
	doc *loopfile.Document
	// path is empty when the collection came from the database.
	path string
}

func (s *source) label() string {
	if s.path != "" {
		return s.path
	}
	return "media " + s.doc.MediaID
}

func addLengthFlag(cmd *cobra.Command) {
	cmd.Flags().Float64("length", 0, "media duration in seconds (overrides the collection's value)")
}

// loadSource reads loops from the FILE argument when given, otherwise from
// the database for the selected media.
func (a *app) loadSource(cmd *cobra.Command, args []string) (*source, error) {
	var src *source
	if len(args) > 0 {
		doc, err := loopfile.Read(args[0])
		if err != nil {
			return nil, Exitf(ExitCodeFailure, "%v", err)
		}
		src = &source{doc: doc, path: args[0]}
	} else {
		doc, err := a.loadStoredDocument(cmd.Context(), "")
		if err != nil {
			return nil, err
		}
		src = &source{doc: doc}
	}

	if cmd.Flags().Lookup("length") != nil {
		if length, _ := cmd.Flags().GetFloat64("length"); length > 0 && !math.IsInf(length, 1) {
			src.doc.TimelineLength = &length
		}
	}
	return src, nil
}

func (a *app) loadStoredDocument(ctx context.Context, explicit string) (*loopfile.Document, error) {
	mediaID, err := a.resolveMediaID(explicit)
	if err != nil {
		return nil, err
	}
	database, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	defer database.Close()

	collection, err := db.NewCollectionRepository(database).Get(ctx, mediaID)
	if err != nil {
		if isNotFound(err) {
			return nil, Exitf(ExitCodeFailure, "media not found: %s", mediaID)
		}
		return nil, Exitf(ExitCodeFailure, "load media %s: %v", mediaID, err)
	}
	return documentFromCollection(collection), nil
}

func documentFromCollection(c *db.Collection) *loopfile.Document {
	return &loopfile.Document{
		MediaID:        c.MediaID,
		Title:          c.Title,
		TimelineLength: c.TimelineLength,
		Loops:          c.Loops,
	}
}

func collectionFromDocument(doc *loopfile.Document, mediaID string) (*db.Collection, error) {
	if mediaID == "" {
		mediaID = doc.MediaID
	}
	if mediaID == "" {
		return nil, fmt.Errorf("collection has no media_id; pass --media")
	}
	return &db.Collection{
		MediaID:        mediaID,
		Title:          doc.Title,
		TimelineLength: doc.TimelineLength,
		Loops:          doc.Loops,
	}, nil
}
