package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/attendance-hub/attendance-engine/internal/domain/achievement"
	"github.com/attendance-hub/attendance-engine/internal/domain/shared"
)

// AchievementRepository implements achievement.Repository. Criteria are
// stored as JSONB in their raw form.
type AchievementRepository struct {
	conn *Connection
}

var _ achievement.Repository = (*AchievementRepository)(nil)

// NewAchievementRepository creates an AchievementRepository.
func NewAchievementRepository(conn *Connection) *AchievementRepository {
	return &AchievementRepository{conn: conn}
}

// List returns every definition ordered by id.
func (r *AchievementRepository) List(ctx context.Context) ([]achievement.Definition, error) {
	rows, err := r.conn.Query(ctx, `SELECT id, title, description, criteria FROM achievements ORDER BY id`)
	if err != nil {
		return nil, storeError("ListAchievements", err)
	}
	defs, err := collect(rows, scanDefinition)
	return defs, storeError("ListAchievements", err)
}

// Get returns one definition.
func (r *AchievementRepository) Get(ctx context.Context, id string) (*achievement.Definition, error) {
	d, err := scanDefinition(r.conn.QueryRow(ctx,
		`SELECT id, title, description, criteria FROM achievements WHERE id = $1`, id))
	if IsNoRows(err) {
		return nil, shared.ErrAchievementNotFound
	}
	if err != nil {
		return nil, storeError("GetAchievement", err)
	}
	return &d, nil
}

// Upsert creates or replaces a definition by id.
func (r *AchievementRepository) Upsert(ctx context.Context, d achievement.Definition) error {
	criteria, err := json.Marshal(achievement.Encode(d.Criteria))
	if err != nil {
		return fmt.Errorf("marshal criteria: %w", err)
	}
	_, err = r.conn.Exec(ctx, `
		INSERT INTO achievements (id, title, description, criteria, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			criteria = EXCLUDED.criteria,
			updated_at = NOW()
	`, d.ID, d.Title, d.Description, criteria)
	return storeError("UpsertAchievement", err)
}

// scanDefinition never fails on bad criteria; they decode to UnknownCriteria.
func scanDefinition(row pgx.Row) (achievement.Definition, error) {
	var d achievement.Definition
	var raw []byte
	if err := row.Scan(&d.ID, &d.Title, &d.Description, &raw); err != nil {
		return d, err
	}
	var rc achievement.RawCriteria
	if err := json.Unmarshal(raw, &rc); err != nil {
		d.Criteria = achievement.UnknownCriteria{Raw: rc}
		return d, nil
	}
	d.Criteria, _ = achievement.ParseCriteria(rc)
	return d, nil
}
