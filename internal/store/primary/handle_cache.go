package primary

import (
	"context"
	"encoding/json"
	"fmt"

	"postmatch/internal/models"
	"postmatch/internal/store"
)

var _ store.HandleCacheStore = (*StoreImpl)(nil)

// --- Handle Cache Store Implementation ---

func (s *StoreImpl) Load(ctx context.Context) (map[string]models.HandleCacheEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT handle, score, place_id, name, categories FROM handle_cache`)
	if err != nil {
		return nil, fmt.Errorf("%w: query handle cache: %v", store.ErrCacheUnavailable, err)
	}
	defer rows.Close()

	entries := map[string]models.HandleCacheEntry{}
	for rows.Next() {
		var (
			handle string
			cats   string
			e      models.HandleCacheEntry
		)
		if err := rows.Scan(&handle, &e.Score, &e.PlaceID, &e.Name, &cats); err != nil {
			return nil, fmt.Errorf("scan handle cache row: %w", err)
		}
		if err := json.Unmarshal([]byte(cats), &e.Categories); err != nil {
			return nil, fmt.Errorf("decode categories for %s: %w", handle, err)
		}
		entries[handle] = e
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate handle cache: %w", err)
	}
	return entries, nil
}

// Save replaces the whole cache in one transaction.
func (s *StoreImpl) Save(ctx context.Context, entries map[string]models.HandleCacheEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin handle cache save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM handle_cache`); err != nil {
		return fmt.Errorf("clear handle cache: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO handle_cache (handle, score, place_id, name, categories) VALUES ($1, $2, $3, $4, $5)`)
	if err != nil {
		return fmt.Errorf("prepare handle cache insert: %w", err)
	}
	defer stmt.Close()

	for handle, e := range entries {
		cats := e.Categories
		if cats == nil {
			cats = []string{}
		}
		b, err := json.Marshal(cats)
		if err != nil {
			return fmt.Errorf("encode categories for %s: %w", handle, err)
		}
		if _, err := stmt.ExecContext(ctx, handle, e.Score, e.PlaceID, e.Name, string(b)); err != nil {
			return fmt.Errorf("insert handle %s: %w", handle, err)
		}
	}
	return tx.Commit()
}
