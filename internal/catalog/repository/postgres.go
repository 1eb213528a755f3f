package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"product-catalog/internal/catalog"
)

const healthCheckTimeout = 2 * time.Second

// PostgresRepository persists favorites snapshots per browse session.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) SaveFavorite(ctx context.Context, sessionID string, p catalog.Product) error {
	snapshot, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	query := `
		INSERT INTO favorites (session_id, product_id, snapshot)
		VALUES ($1, $2, $3)
		ON CONFLICT (session_id, product_id) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, query, sessionID, p.ID, snapshot); err != nil {
		return fmt.Errorf("insert favorite %d: %w", p.ID, err)
	}
	return nil
}

func (r *PostgresRepository) RemoveFavorite(ctx context.Context, sessionID string, productID int64) error {
	query := `DELETE FROM favorites WHERE session_id = $1 AND product_id = $2`
	if _, err := r.db.ExecContext(ctx, query, sessionID, productID); err != nil {
		return fmt.Errorf("delete favorite %d: %w", productID, err)
	}
	return nil
}

// RemoveProduct drops productID from every session's favorites and returns
// the number of rows removed.
func (r *PostgresRepository) RemoveProduct(ctx context.Context, productID int64) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM favorites WHERE product_id = $1`, productID)
	if err != nil {
		return 0, fmt.Errorf("delete product %d favorites: %w", productID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return affected, nil
}

// ListFavorites returns the session's snapshots in the order they were added.
func (r *PostgresRepository) ListFavorites(ctx context.Context, sessionID string) ([]catalog.Product, error) {
	query := `
		SELECT snapshot
		FROM favorites
		WHERE session_id = $1
		ORDER BY id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query favorites: %w", err)
	}
	defer rows.Close()

	list := make([]catalog.Product, 0)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan favorite: %w", err)
		}
		var p catalog.Product
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode favorite snapshot: %w", err)
		}
		list = append(list, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate favorites: %w", err)
	}

	return list, nil
}

func (r *PostgresRepository) Health() error {
	ctx, cancel := context.WithTimeout(context.Background(), healthCheckTimeout)
	defer cancel()
	return r.db.PingContext(ctx)
}
