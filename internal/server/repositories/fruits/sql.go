package fruits

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"

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

// maxBatch keeps IN lists well below the Postgres limit of 65535 bind
// parameters per statement.
const maxBatch = 1000

const fruitColumns = `id, name, price, user_id, bucket_id, created_at, expires_at, updated_at`

func (r *SQLRepository) Create(ctx context.Context, fruit *models.Fruit) error {
	if fruit.ID == "" {
		fruit.ID = uuid.NewString()
	}

	query :=
		`INSERT INTO fruits (` + fruitColumns + `)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 `

	if _, err := r.db.ExecContext(ctx, query, fruit.ID, fruit.Name, fruit.Price, fruit.UserID,
		nullString(fruit.BucketID), fruit.CreatedAt, fruit.ExpiresAt, fruit.UpdatedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLRepository) GetByIDs(ctx context.Context, ids []string) ([]*models.Fruit, error) {
	var result []*models.Fruit
	for _, chunk := range chunks(ids) {
		query := `SELECT ` + fruitColumns + ` FROM fruits WHERE id IN (` + dbx.Placeholders(1, len(chunk)) + `) ORDER BY created_at, id`
		found, err := r.query(ctx, query, dbx.StringArgs(chunk)...)
		if err != nil {
			return nil, err
		}
		result = append(result, found...)
	}
	if len(ids) > maxBatch {
		sortFruits(result)
	}
	return result, nil
}

func (r *SQLRepository) ListByUser(ctx context.Context, userID string) ([]*models.Fruit, error) {
	query := `SELECT ` + fruitColumns + ` FROM fruits WHERE user_id = $1 ORDER BY created_at, id`
	return r.query(ctx, query, userID)
}

func (r *SQLRepository) ListByBucket(ctx context.Context, bucketID string) ([]*models.Fruit, error) {
	query := `SELECT ` + fruitColumns + ` FROM fruits WHERE bucket_id = $1 ORDER BY created_at, id`
	return r.query(ctx, query, bucketID)
}

func (r *SQLRepository) ListByBuckets(ctx context.Context, bucketIDs []string) ([]*models.Fruit, error) {
	if len(bucketIDs) == 0 {
		return nil, nil
	}
	query := `SELECT ` + fruitColumns + ` FROM fruits WHERE bucket_id IN (` + dbx.Placeholders(1, len(bucketIDs)) + `) ORDER BY created_at, id`
	return r.query(ctx, query, dbx.StringArgs(bucketIDs)...)
}

func (r *SQLRepository) ListPage(ctx context.Context, afterID string, limit int) ([]*models.Fruit, error) {
	query := `SELECT ` + fruitColumns + ` FROM fruits WHERE id > $1 ORDER BY id LIMIT $2`
	return r.query(ctx, query, afterID, limit)
}

func (r *SQLRepository) Update(ctx context.Context, fruit *models.Fruit) error {
	query :=
		`UPDATE fruits SET name = $1, price = $2, bucket_id = $3, expires_at = $4, updated_at = $5
		 WHERE id = $6
		 `

	res, err := r.db.ExecContext(ctx, query, fruit.Name, fruit.Price, nullString(fruit.BucketID),
		fruit.ExpiresAt, fruit.UpdatedAt, fruit.ID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *SQLRepository) DeleteByIDs(ctx context.Context, ids []string) error {
	for _, chunk := range chunks(ids) {
		query := `DELETE FROM fruits WHERE id IN (` + dbx.Placeholders(1, len(chunk)) + `)`
		if _, err := r.db.ExecContext(ctx, query, dbx.StringArgs(chunk)...); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
	}
	return nil
}

func (r *SQLRepository) SetBucketMembers(ctx context.Context, bucketID string, ids []string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE fruits SET bucket_id = NULL WHERE bucket_id = $1`, bucketID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}

	query := `UPDATE fruits SET bucket_id = $1 WHERE id IN (` + dbx.Placeholders(2, len(ids)) + `)`
	args := append([]any{bucketID}, dbx.StringArgs(ids)...)
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLRepository) query(ctx context.Context, query string, args ...any) ([]*models.Fruit, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Fruit
	for rows.Next() {
		f := &models.Fruit{}
		var bucketID sql.NullString
		if err := rows.Scan(&f.ID, &f.Name, &f.Price, &f.UserID, &bucketID,
			&f.CreatedAt, &f.ExpiresAt, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if bucketID.Valid {
			f.BucketID = &bucketID.String
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

// chunks splits ids so that no statement exceeds maxBatch bind parameters.
func chunks(ids []string) [][]string {
	var out [][]string
	for len(ids) > maxBatch {
		out = append(out, ids[:maxBatch])
		ids = ids[maxBatch:]
	}
	if len(ids) > 0 {
		out = append(out, ids)
	}
	return out
}

func sortFruits(fruits []*models.Fruit) {
	slices.SortStableFunc(fruits, func(a, b *models.Fruit) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
