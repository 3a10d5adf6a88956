package buckets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/fruitful/internal/common"
	"github.com/dmitrijs2005/fruitful/internal/dbx"
	"github.com/dmitrijs2005/fruitful/internal/server/models"
	"github.com/google/uuid"
)

type SQLRepository struct {
	db dbx.DBTX
}

func NewSQLRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db}
}

// Create inserts the bucket row only. Fruits are attached separately.
func (r *SQLRepository) Create(ctx context.Context, bucket *models.Bucket) error {
	if bucket.ID == "" {
		bucket.ID = uuid.NewString()
	}

	query :=
		`INSERT INTO buckets (id, user_id, capacity, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 `

	if _, err := r.db.ExecContext(ctx, query, bucket.ID, bucket.UserID, bucket.Capacity,
		bucket.CreatedAt, bucket.UpdatedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLRepository) GetByID(ctx context.Context, id string) (*models.Bucket, error) {
	query :=
		`SELECT id, user_id, capacity, created_at, updated_at FROM buckets
		 WHERE id = $1
		 `

	b := &models.Bucket{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&b.ID, &b.UserID, &b.Capacity, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return b, nil
}

func (r *SQLRepository) ListByUser(ctx context.Context, userID string, offset, limit int) ([]*models.Bucket, error) {
	query :=
		`SELECT id, user_id, capacity, created_at, updated_at FROM buckets
		 WHERE user_id = $1
		 ORDER BY created_at, id
		 LIMIT $2 OFFSET $3
		 `

	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Bucket
	for rows.Next() {
		b := &models.Bucket{}
		if err := rows.Scan(&b.ID, &b.UserID, &b.Capacity, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *SQLRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM buckets WHERE user_id = $1`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *SQLRepository) Update(ctx context.Context, bucket *models.Bucket) error {
	query :=
		`UPDATE buckets SET user_id = $1, capacity = $2, updated_at = $3
		 WHERE id = $4
		 `

	res, err := r.db.ExecContext(ctx, query, bucket.UserID, bucket.Capacity, bucket.UpdatedAt, bucket.ID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return checkAffected(res)
}

// Delete fails at the store level while any fruit still references the
// bucket.
func (r *SQLRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM buckets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return checkAffected(res)
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
