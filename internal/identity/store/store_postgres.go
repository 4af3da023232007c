package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"youthsessions/internal/sessions/models"
)

// PostgresStore reads identity mappings from youth_partner_ids and counsellor_structures.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) SaveYouth(ctx context.Context, y Youth) error {
	query := `
		INSERT INTO youth_partner_ids (youth_id, partner_id)
		VALUES ($1, $2)
		ON CONFLICT (youth_id) DO UPDATE SET partner_id = EXCLUDED.partner_id
	`
	if _, err := s.db.ExecContext(ctx, query, y.ID, y.PartnerID); err != nil {
		return fmt.Errorf("save youth: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveCounsellor(ctx context.Context, c Counsellor) error {
	query := `
		INSERT INTO counsellor_structures (counsellor_id, structure_id, timezone)
		VALUES ($1, $2, $3)
		ON CONFLICT (counsellor_id) DO UPDATE SET
			structure_id = EXCLUDED.structure_id,
			timezone = EXCLUDED.timezone
	`
	if _, err := s.db.ExecContext(ctx, query, c.ID, c.StructureID, c.Timezone); err != nil {
		return fmt.Errorf("save counsellor: %w", err)
	}
	return nil
}

func (s *PostgresStore) LocalIDsByPartnerID(ctx context.Context, partnerIDs []string) (map[string]string, error) {
	query := `SELECT partner_id, youth_id FROM youth_partner_ids WHERE partner_id = ANY($1)`
	return s.pairs(ctx, query, partnerIDs)
}

func (s *PostgresStore) PartnerIDsByLocalID(ctx context.Context, localIDs []string) (map[string]string, error) {
	query := `SELECT youth_id, partner_id FROM youth_partner_ids WHERE youth_id = ANY($1)`
	return s.pairs(ctx, query, localIDs)
}

func (s *PostgresStore) pairs(ctx context.Context, query string, ids []string) (map[string]string, error) {
	out := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := s.db.QueryContext(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve identities: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var from, to string
		if err := rows.Scan(&from, &to); err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		out[from] = to
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identities: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) StructureForCounsellor(ctx context.Context, counsellorID string) (models.Structure, error) {
	query := `SELECT structure_id, timezone FROM counsellor_structures WHERE counsellor_id = $1`
	var st models.Structure
	err := s.db.QueryRowContext(ctx, query, counsellorID).Scan(&st.ID, &st.Timezone)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Structure{}, errCounsellorNotFound(counsellorID)
		}
		return models.Structure{}, fmt.Errorf("find counsellor structure: %w", err)
	}
	return st, nil
}
