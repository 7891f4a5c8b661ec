package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"opiniq.org/internal/survey"
)

// Reader loads survey descriptors from Postgres.
type Reader struct {
	db *sql.DB
}

var _ survey.Reader = (*Reader)(nil)

// Open connects to Postgres with pool defaults tuned for read traffic.
func Open(dsn string) (*Reader, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Reader{db: db}, nil
}

// NewReader wraps an existing connection pool.
func NewReader(db *sql.DB) *Reader { return &Reader{db: db} }

func (r *Reader) Close() error { return r.db.Close() }

func (r *Reader) DB() *sql.DB { return r.db }

func (r *Reader) GetSurvey(ctx context.Context, id string) (survey.Survey, error) {
	if id == "" {
		return survey.Survey{}, survey.ErrInvalidInput
	}

	var sv survey.Survey
	err := r.db.QueryRowContext(ctx, `
		select id, tenant_id, owner_id
		from surveys
		where id = $1
	`, id).Scan(&sv.ID, &sv.TenantID, &sv.OwnerID)
	if errors.Is(err, sql.ErrNoRows) {
		return survey.Survey{}, survey.ErrNotFound
	}
	if err != nil {
		return survey.Survey{}, err
	}

	rows, err := r.db.QueryContext(ctx, `
		select user_id
		from survey_contributors
		where survey_id = $1
		order by user_id
	`, id)
	if err != nil {
		return survey.Survey{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var userID int64
		if err := rows.Scan(&userID); err != nil {
			return survey.Survey{}, err
		}
		sv.Contributors = append(sv.Contributors, userID)
	}
	if err := rows.Err(); err != nil {
		return survey.Survey{}, err
	}
	return sv, nil
}
