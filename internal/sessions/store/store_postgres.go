package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"youthsessions/internal/sessions/metrics"
	"youthsessions/internal/sessions/models"
	platformstrings "youthsessions/pkg/platform/strings"
)

// PostgresStore persists overlays in the session_overlays table.
type PostgresStore struct {
	db      *sql.DB
	metrics *metrics.Metrics
}

// NewPostgres constructs a PostgreSQL-backed overlay store. metrics may be nil.
func NewPostgres(db *sql.DB, m *metrics.Metrics) *PostgresStore {
	return &PostgresStore{db: db, metrics: m}
}

func (s *PostgresStore) Get(ctx context.Context, sessionID string) (models.OptionalOverlay, error) {
	defer s.observe(time.Now())
	query := `
		SELECT session_id, structure_id, visible, auto_registration, closed_at, modified_at
		FROM session_overlays
		WHERE session_id = $1
	`
	o, err := scanOverlay(s.db.QueryRowContext(ctx, query, sessionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.NoOverlay(), nil
		}
		return models.NoOverlay(), fmt.Errorf("find overlay: %w", err)
	}
	return models.SomeOverlay(o), nil
}

func (s *PostgresStore) Upsert(ctx context.Context, overlay models.Overlay) error {
	query := `
		INSERT INTO session_overlays (session_id, structure_id, visible, auto_registration, closed_at, modified_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (session_id) DO UPDATE SET
			structure_id = EXCLUDED.structure_id,
			visible = EXCLUDED.visible,
			auto_registration = EXCLUDED.auto_registration,
			closed_at = COALESCE(EXCLUDED.closed_at, session_overlays.closed_at),
			modified_at = EXCLUDED.modified_at
	`
	_, err := s.db.ExecContext(ctx, query,
		overlay.SessionID,
		overlay.StructureID,
		overlay.Visible,
		overlay.AutoRegistration,
		nullTime(overlay.ClosedAt),
		overlay.ModifiedAt,
	)
	if err != nil {
		return fmt.Errorf("save overlay: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetAllForStructure(ctx context.Context, structureID string) ([]models.Overlay, error) {
	query := `
		SELECT session_id, structure_id, visible, auto_registration, closed_at, modified_at
		FROM session_overlays
		WHERE structure_id = $1
		ORDER BY session_id
	`
	rows, err := s.db.QueryContext(ctx, query, structureID)
	if err != nil {
		return nil, fmt.Errorf("list overlays: %w", err)
	}
	defer rows.Close()

	var out []models.Overlay
	for rows.Next() {
		o, err := scanOverlay(rows)
		if err != nil {
			return nil, fmt.Errorf("scan overlay: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate overlays: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) GetMany(ctx context.Context, sessionIDs []string) (map[string]models.Overlay, error) {
	out := make(map[string]models.Overlay, len(sessionIDs))
	if len(sessionIDs) == 0 {
		return out, nil
	}
	defer s.observe(time.Now())
	query := `
		SELECT session_id, structure_id, visible, auto_registration, closed_at, modified_at
		FROM session_overlays
		WHERE session_id = ANY($1)
	`
	rows, err := s.db.QueryContext(ctx, query, platformstrings.DedupeAndTrim(sessionIDs))
	if err != nil {
		return nil, fmt.Errorf("find overlays: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		o, err := scanOverlay(rows)
		if err != nil {
			return nil, fmt.Errorf("scan overlay: %w", err)
		}
		out[o.SessionID] = o
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate overlays: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) CloseMany(ctx context.Context, structureID string, sessionIDs []string, closedAt, modifiedAt time.Time) (int, error) {
	ids := platformstrings.DedupeAndTrim(sessionIDs)
	if len(ids) == 0 {
		return 0, nil
	}
	query := `
		INSERT INTO session_overlays (session_id, structure_id, visible, auto_registration, closed_at, modified_at)
		SELECT id, $2, FALSE, FALSE, $3, $4 FROM unnest($1::text[]) AS id
		ON CONFLICT (session_id) DO UPDATE SET
			closed_at = EXCLUDED.closed_at,
			modified_at = EXCLUDED.modified_at
		WHERE session_overlays.closed_at IS NULL
	`
	res, err := s.db.ExecContext(ctx, query, ids, structureID, closedAt, modifiedAt)
	if err != nil {
		return 0, fmt.Errorf("close overlays: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("close overlays: %w", err)
	}
	return int(n), nil
}

type overlayRow interface {
	Scan(dest ...any) error
}

func scanOverlay(row overlayRow) (models.Overlay, error) {
	var o models.Overlay
	var closedAt sql.NullTime
	if err := row.Scan(&o.SessionID, &o.StructureID, &o.Visible, &o.AutoRegistration, &closedAt, &o.ModifiedAt); err != nil {
		return models.Overlay{}, err
	}
	if closedAt.Valid {
		at := closedAt.Time.UTC()
		o.ClosedAt = &at
	}
	o.ModifiedAt = o.ModifiedAt.UTC()
	return o, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func (s *PostgresStore) observe(start time.Time) {
	s.metrics.ObserveOverlayLookup("postgres", time.Since(start).Seconds())
}
