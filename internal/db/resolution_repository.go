package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tOgg1/loopline/internal/conflict"
	"github.com/tOgg1/loopline/internal/models"
)

// ResolutionRecord is a stored resolver run and its audit trail.
type ResolutionRecord struct {
	ID            string                `json:"id"`
	MediaID       string                `json:"media_id"`
	CreatedAt     time.Time             `json:"created_at"`
	ResolvedCount int                   `json:"resolved_count"`
	RemovedCount  int                   `json:"removed_count"`
	Modifications []models.Modification `json:"modifications"`
}

// ResolutionRepository stores resolver audit trails.
type ResolutionRepository struct {
	db          *DB
	collections *CollectionRepository
}

// NewResolutionRepository creates a new ResolutionRepository.
func NewResolutionRepository(db *DB) *ResolutionRepository {
	return &ResolutionRepository{db: db, collections: NewCollectionRepository(db)}
}

// Apply stores res.ResolvedLoops as the collection for c.MediaID and records
// the audit trail, atomically. c.Loops is replaced by the resolved loops.
func (r *ResolutionRepository) Apply(ctx context.Context, c *Collection, res conflict.Resolution) (*ResolutionRecord, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: collection is nil", ErrInvalidCollection)
	}
	c.Loops = models.Clone(res.ResolvedLoops)

	var record *ResolutionRecord
	err := r.db.TransactionWithRetry(ctx, 0, 0, func(tx *sql.Tx) error {
		if err := r.collections.SaveWithTx(ctx, tx, c); err != nil {
			return err
		}
		var err error
		record, err = r.recordWithExecutor(ctx, tx, c.MediaID, res)
		return err
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// Record stores the audit trail of res for an already stored media item.
func (r *ResolutionRepository) Record(ctx context.Context, mediaID string, res conflict.Resolution) (*ResolutionRecord, error) {
	var record *ResolutionRecord
	err := r.db.Transaction(ctx, func(tx *sql.Tx) error {
		var err error
		record, err = r.recordWithExecutor(ctx, tx, mediaID, res)
		return err
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (r *ResolutionRepository) recordWithExecutor(ctx context.Context, tx execer, mediaID string, res conflict.Resolution) (*ResolutionRecord, error) {
	mediaID = strings.TrimSpace(mediaID)
	if mediaID == "" {
		return nil, fmt.Errorf("media id is required")
	}

	record := &ResolutionRecord{
		ID:            uuid.New().String(),
		MediaID:       mediaID,
		CreatedAt:     time.Now().UTC(),
		ResolvedCount: len(res.ResolvedLoops),
		RemovedCount:  len(res.RemovedLoops),
		Modifications: res.Modifications,
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO resolutions (id, media_id, created_at, resolved_count, removed_count)
		VALUES (?, ?, ?, ?, ?)
	`, record.ID, record.MediaID, formatTime(record.CreatedAt), record.ResolvedCount, record.RemovedCount)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "foreign key") {
			return nil, ErrMediaNotFound
		}
		return nil, fmt.Errorf("failed to insert resolution: %w", err)
	}

	for seq, mod := range res.Modifications {
		before, err := json.Marshal(mod.Before)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal modification: %w", err)
		}
		var after *string
		if mod.After != nil {
			data, err := json.Marshal(mod.After)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal modification: %w", err)
			}
			s := string(data)
			after = &s
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO resolution_modifications (resolution_id, seq, type, loop_id, reason, before_json, after_json)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, record.ID, seq, string(mod.Type), mod.LoopID, mod.Reason, string(before), after)
		if err != nil {
			return nil, fmt.Errorf("failed to insert modification: %w", err)
		}
	}

	return record, nil
}

// ListByMedia returns the resolution history of mediaID, newest first.
func (r *ResolutionRepository) ListByMedia(ctx context.Context, mediaID string) ([]*ResolutionRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, media_id, created_at, resolved_count, removed_count
		FROM resolutions WHERE media_id = ?
		ORDER BY created_at DESC, rowid DESC
	`, strings.TrimSpace(mediaID))
	if err != nil {
		return nil, fmt.Errorf("failed to query resolutions: %w", err)
	}

	records := make([]*ResolutionRecord, 0)
	for rows.Next() {
		var (
			record    ResolutionRecord
			createdAt string
		)
		if err := rows.Scan(&record.ID, &record.MediaID, &createdAt, &record.ResolvedCount, &record.RemovedCount); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan resolution: %w", err)
		}
		record.CreatedAt = parseTime(createdAt)
		records = append(records, &record)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("error iterating resolutions: %w", err)
	}
	rows.Close()

	for _, record := range records {
		mods, err := r.modifications(ctx, record.ID)
		if err != nil {
			return nil, err
		}
		record.Modifications = mods
	}
	return records, nil
}

func (r *ResolutionRepository) modifications(ctx context.Context, resolutionID string) ([]models.Modification, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT type, loop_id, reason, before_json, after_json
		FROM resolution_modifications WHERE resolution_id = ?
		ORDER BY seq
	`, resolutionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query modifications: %w", err)
	}
	defer rows.Close()

	mods := make([]models.Modification, 0)
	for rows.Next() {
		var (
			mod        models.Modification
			kind       string
			beforeJSON string
			afterJSON  sql.NullString
		)
		if err := rows.Scan(&kind, &mod.LoopID, &mod.Reason, &beforeJSON, &afterJSON); err != nil {
			return nil, fmt.Errorf("failed to scan modification: %w", err)
		}
		mod.Type = models.ModificationType(kind)

		if err := json.Unmarshal([]byte(beforeJSON), &mod.Before); err != nil {
			return nil, fmt.Errorf("failed to unmarshal modification: %w", err)
		}
		if afterJSON.Valid {
			var after models.Loop
			if err := json.Unmarshal([]byte(afterJSON.String), &after); err != nil {
				return nil, fmt.Errorf("failed to unmarshal modification: %w", err)
			}
			mod.After = &after
		}
		mods = append(mods, mod)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating modifications: %w", err)
	}
	return mods, nil
}
