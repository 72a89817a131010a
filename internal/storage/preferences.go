package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dyike/FinSim/models"
)

// SavePreferences appends p to the user's preference history. The newest
// row is the current profile.
func (s *Store) SavePreferences(ctx context.Context, userID string, p models.InvestmentProfile, source string) (models.PreferenceRecord, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return models.PreferenceRecord{}, fmt.Errorf("encode preferences: %w", err)
	}
	rec := models.PreferenceRecord{UserID: userID, Profile: p, Source: source, CreatedAt: s.Now()}
	res, err := s.db.ExecContext(ctx, `
INSERT INTO preferences (user_id, profile_json, source, created_at)
VALUES (?, ?, ?, ?)
`, userID, string(data), source, toUnix(rec.CreatedAt))
	if err != nil {
		return models.PreferenceRecord{}, fmt.Errorf("insert preferences: %w", err)
	}
	rec.ID, _ = res.LastInsertId()
	return rec, nil
}

func (s *Store) Preferences(ctx context.Context, userID string) (models.InvestmentProfile, error) {
	history, err := s.preferenceRows(ctx, userID, 1)
	if err != nil {
		return models.InvestmentProfile{}, err
	}
	if len(history) == 0 {
		return models.InvestmentProfile{}, ErrNoPreferences
	}
	return history[0].Profile, nil
}

// PreferenceHistory returns saved profiles, newest first.
func (s *Store) PreferenceHistory(ctx context.Context, userID string, limit int) ([]models.PreferenceRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.preferenceRows(ctx, userID, limit)
}

func (s *Store) preferenceRows(ctx context.Context, userID string, limit int) ([]models.PreferenceRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, user_id, profile_json, source, created_at
FROM preferences
WHERE user_id = ?
ORDER BY id DESC
LIMIT ?
`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list preferences: %w", err)
	}
	defer rows.Close()

	var out []models.PreferenceRecord
	for rows.Next() {
		var (
			rec     models.PreferenceRecord
			raw     string
			created int64
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &raw, &rec.Source, &created); err != nil {
			return nil, fmt.Errorf("scan preferences: %w", err)
		}
		if err := json.Unmarshal([]byte(raw), &rec.Profile); err != nil {
			return nil, fmt.Errorf("decode preferences %d: %w", rec.ID, err)
		}
		rec.CreatedAt = fromUnix(created)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list preferences rows: %w", err)
	}
	return out, nil
}
