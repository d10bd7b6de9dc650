package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/tOgg1/loopline/internal/models"
)

// Collection repository errors.
var (
	ErrMediaNotFound     = errors.New("media not found")
	ErrInvalidCollection = errors.New("invalid collection")
	ErrDuplicateLoopID   = errors.New("duplicate loop id in collection")
)

// Collection is the stored loop list of one media item.
type Collection struct {
	MediaID        string
	Title          string
	TimelineLength *float64
	Loops          []models.Loop
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// MediaSummary is a row of ListMedia.
type MediaSummary struct {
	MediaID        string    `json:"media_id"`
	Title          string    `json:"title"`
	TimelineLength *float64  `json:"timeline_length,omitempty"`
	LoopCount      int       `json:"loop_count"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type execer interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
}

// CollectionRepository persists loop collections keyed by media ID.
type CollectionRepository struct {
	db *DB
}

// NewCollectionRepository creates a new CollectionRepository.
func NewCollectionRepository(db *DB) *CollectionRepository {
	return &CollectionRepository{db: db}
}

// Save replaces the stored collection for c.MediaID, preserving loop order.
func (r *CollectionRepository) Save(ctx context.Context, c *Collection) error {
	return r.db.TransactionWithRetry(ctx, 0, 0, func(tx *sql.Tx) error {
		return r.SaveWithTx(ctx, tx, c)
	})
}

// SaveWithTx replaces the stored collection using an existing transaction.
func (r *CollectionRepository) SaveWithTx(ctx context.Context, tx *sql.Tx, c *Collection) error {
	if tx == nil {
		return fmt.Errorf("transaction is required")
	}
	if err := validateCollection(c); err != nil {
		return err
	}
	return r.save(ctx, tx, c)
}

func validateCollection(c *Collection) error {
	if c == nil {
		return fmt.Errorf("%w: collection is nil", ErrInvalidCollection)
	}
	validation := &models.ValidationErrors{}
	if strings.TrimSpace(c.MediaID) == "" {
		validation.AddMessage("media_id", "media_id is required")
	}
	seen := make(map[string]struct{}, len(c.Loops))
	for i, l := range c.Loops {
		validation.Add(fmt.Sprintf("loops[%d]", i), l.Validate())
		if _, dup := seen[l.ID]; dup && l.ID != "" {
			validation.Add(fmt.Sprintf("loops[%d].id", i), ErrDuplicateLoopID)
		}
		seen[l.ID] = struct{}{}
	}
	if err := validation.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidCollection, err)
	}
	return nil
}

func (r *CollectionRepository) save(ctx context.Context, tx execer, c *Collection) error {
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	// Prefer UPDATE then INSERT to avoid relying on newer SQLite upsert syntax.
	result, err := tx.ExecContext(ctx, `
		UPDATE media SET title = ?, timeline_length = ?, updated_at = ?
		WHERE id = ?
	`, c.Title, nullableFloat(c.TimelineLength), formatTime(c.UpdatedAt), c.MediaID)
	if err != nil {
		return fmt.Errorf("failed to update media: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO media (id, title, timeline_length, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
		`, c.MediaID, c.Title, nullableFloat(c.TimelineLength), formatTime(c.CreatedAt), formatTime(c.UpdatedAt))
		if err != nil {
			return fmt.Errorf("failed to insert media: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM loops WHERE media_id = ?`, c.MediaID); err != nil {
		return fmt.Errorf("failed to clear loops: %w", err)
	}

	for i, l := range c.Loops {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO loops (
				media_id, id, position, name, start_time, end_time,
				color, playback_speed, repeat_count, play_count, is_active
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			c.MediaID, l.ID, i, l.Name,
			finiteOrNull(l.StartTime), finiteOrNull(l.EndTime),
			l.Color, speedOrUnset(l.PlaybackSpeed), l.RepeatCount, l.PlayCount, boolToInt(l.IsActive),
		)
		if err != nil {
			if isUniqueConstraintError(err) {
				return fmt.Errorf("%w: %s", ErrDuplicateLoopID, l.ID)
			}
			return fmt.Errorf("failed to insert loop %s: %w", l.ID, err)
		}
	}

	return nil
}

// Get loads the collection stored for mediaID.
func (r *CollectionRepository) Get(ctx context.Context, mediaID string) (*Collection, error) {
	mediaID = strings.TrimSpace(mediaID)

	var (
		title     string
		length    sql.NullFloat64
		createdAt string
		updatedAt string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT title, timeline_length, created_at, updated_at
		FROM media WHERE id = ?
	`, mediaID).Scan(&title, &length, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMediaNotFound
		}
		return nil, fmt.Errorf("failed to query media: %w", err)
	}

	c := &Collection{
		MediaID:        mediaID,
		Title:          title,
		TimelineLength: floatPtr(length),
		CreatedAt:      parseTime(createdAt),
		UpdatedAt:      parseTime(updatedAt),
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, start_time, end_time, color, playback_speed, repeat_count, play_count, is_active
		FROM loops WHERE media_id = ?
		ORDER BY position
	`, mediaID)
	if err != nil {
		return nil, fmt.Errorf("failed to query loops: %w", err)
	}
	defer rows.Close()

	c.Loops = make([]models.Loop, 0)
	for rows.Next() {
		l, err := scanLoop(rows)
		if err != nil {
			return nil, err
		}
		c.Loops = append(c.Loops, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating loops: %w", err)
	}

	return c, nil
}

// ListMedia returns every stored media item, most recently updated first.
func (r *CollectionRepository) ListMedia(ctx context.Context) ([]*MediaSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT m.id, m.title, m.timeline_length, m.updated_at, COUNT(l.id)
		FROM media m
		LEFT JOIN loops l ON l.media_id = m.id
		GROUP BY m.id
		ORDER BY m.updated_at DESC, m.id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query media: %w", err)
	}
	defer rows.Close()

	out := make([]*MediaSummary, 0)
	for rows.Next() {
		var (
			summary   MediaSummary
			length    sql.NullFloat64
			updatedAt string
		)
		if err := rows.Scan(&summary.MediaID, &summary.Title, &length, &updatedAt, &summary.LoopCount); err != nil {
			return nil, fmt.Errorf("failed to scan media: %w", err)
		}
		summary.TimelineLength = floatPtr(length)
		summary.UpdatedAt = parseTime(updatedAt)
		out = append(out, &summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating media: %w", err)
	}
	return out, nil
}

// Delete removes a media item with its loops and history.
func (r *CollectionRepository) Delete(ctx context.Context, mediaID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM media WHERE id = ?`, strings.TrimSpace(mediaID))
	if err != nil {
		return fmt.Errorf("failed to delete media: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrMediaNotFound
	}
	return nil
}

func scanLoop(scanner interface{ Scan(...any) error }) (models.Loop, error) {
	var (
		l        models.Loop
		start    sql.NullFloat64
		end      sql.NullFloat64
		isActive int
	)
	if err := scanner.Scan(&l.ID, &l.Name, &start, &end, &l.Color, &l.PlaybackSpeed, &l.RepeatCount, &l.PlayCount, &isActive); err != nil {
		return models.Loop{}, fmt.Errorf("failed to scan loop: %w", err)
	}
	// Non-finite bounds are stored as NULL and come back as NaN so they
	// stay structurally invalid.
	l.StartTime = nullToNaN(start)
	l.EndTime = nullToNaN(end)
	l.IsActive = isActive != 0
	return l, nil
}

func finiteOrNull(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

// speedOrUnset maps a non-finite speed to 0, the unset value.
func speedOrUnset(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func nullToNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

func nullableFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return finiteOrNull(*v)
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
