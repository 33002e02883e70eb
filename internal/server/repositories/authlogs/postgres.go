package authlogs

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/aliasvault/internal/dbx"
	"github.com/dmitrijs2005/aliasvault/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, e *models.AuthLog) error {
	query :=
		`INSERT INTO auth_logs (username, event_type, success, failure_reason, ip_address, user_agent, client)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		e.Username, string(e.EventType), e.Success, string(e.FailureReason), e.IPAddress, e.UserAgent, e.Client).
		Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM auth_logs WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) CountFailures(ctx context.Context, username string, reason models.AuthFailureReason, since time.Time) (int, error) {
	query :=
		`SELECT COUNT(*) FROM auth_logs
		 WHERE username = $1 AND success = FALSE AND failure_reason = $2 AND created_at >= $3`

	var n int
	if err := r.db.QueryRowContext(ctx, query, username, string(reason), since).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
