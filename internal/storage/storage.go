// internal/storage/storage.go
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"imagebatch/internal/models"
)

// Store is the persistence contract of the batch pipeline.
type Store interface {
	CreateRequest(ctx context.Context, id string, status models.RequestStatus) error
	SetRequestStatus(ctx context.Context, id string, status models.RequestStatus) error
	InsertImageResult(ctx context.Context, res models.ImageResult) error
	GetRequestStatus(ctx context.Context, id string) (models.Request, error)
	GetImageResults(ctx context.Context, requestID string) ([]models.ImageResult, error)
	Ping(ctx context.Context) error
	Close()
}

type Postgres struct {
	pool *pgxpool.Pool
	db   *sql.DB // For migrations
}

func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	const op = "storage.NewPostgres"

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	db := stdlib.OpenDBFromPool(pool)
	if err := runMigrations(db); err != nil {
		db.Close()
		pool.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Postgres{pool: pool, db: db}, nil
}

func (s *Postgres) Close() {
	s.db.Close()
	s.pool.Close()
}

func (s *Postgres) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Postgres) CreateRequest(ctx context.Context, id string, status models.RequestStatus) error {
	const op = "storage.CreateRequest"

	_, err := s.pool.Exec(ctx,
		`INSERT INTO requests (request_id, status) VALUES ($1, $2)`,
		id, string(status))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Postgres) SetRequestStatus(ctx context.Context, id string, status models.RequestStatus) error {
	const op = "storage.SetRequestStatus"

	tag, err := s.pool.Exec(ctx,
		`UPDATE requests SET status = $2, updated_at = now() WHERE request_id = $1`,
		id, string(status))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	return nil
}

func (s *Postgres) InsertImageResult(ctx context.Context, res models.ImageResult) error {
	const op = "storage.InsertImageResult"

	_, err := s.pool.Exec(ctx,
		`INSERT INTO images (request_id, input_url, output_url) VALUES ($1, $2, $3)`,
		res.RequestID, res.InputURL, res.OutputURL)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Postgres) GetRequestStatus(ctx context.Context, id string) (models.Request, error) {
	const op = "storage.GetRequestStatus"

	var req models.Request
	err := s.pool.QueryRow(ctx,
		`SELECT request_id, status FROM requests WHERE request_id = $1`, id).
		Scan(&req.ID, &req.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Request{}, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	if err != nil {
		return models.Request{}, fmt.Errorf("%s: %w", op, err)
	}
	return req, nil
}

func (s *Postgres) GetImageResults(ctx context.Context, requestID string) ([]models.ImageResult, error) {
	const op = "storage.GetImageResults"

	rows, err := s.pool.Query(ctx,
		`SELECT request_id, input_url, output_url FROM images WHERE request_id = $1 ORDER BY id`,
		requestID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	results, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.ImageResult])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return results, nil
}
