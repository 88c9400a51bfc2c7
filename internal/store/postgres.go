package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/logboard/api/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore implements StatsStore on a log_stats table
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects, runs pending migrations and returns the store
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	if err := runMigrations(dsn); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func runMigrations(dsn string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	driver, err := pgxmigrate.WithInstance(db, &pgxmigrate.Config{})
	if err != nil {
		return err
	}

	m, err := migrate.NewWithInstance("iofs", src, "pgx5", driver)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// Close releases the connection pool
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Insert upserts the record on job_id
func (s *PostgresStore) Insert(ctx context.Context, record *model.LogRecord) error {
	errorsJSON, err := json.Marshal(record.Errors)
	if err != nil {
		return fmt.Errorf("failed to marshal errors: %w", err)
	}
	keywordsJSON, err := json.Marshal(record.Keywords)
	if err != nil {
		return fmt.Errorf("failed to marshal keywords: %w", err)
	}
	ipsJSON, err := json.Marshal(record.IPs)
	if err != nil {
		return fmt.Errorf("failed to marshal ips: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO log_stats
			(job_id, file_id, user_id, job_created_at, processed_at,
			 total_lines, error_count, errors, keywords, ips, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (job_id) DO UPDATE SET
			file_id = EXCLUDED.file_id,
			user_id = EXCLUDED.user_id,
			job_created_at = EXCLUDED.job_created_at,
			processed_at = EXCLUDED.processed_at,
			total_lines = EXCLUDED.total_lines,
			error_count = EXCLUDED.error_count,
			errors = EXCLUDED.errors,
			keywords = EXCLUDED.keywords,
			ips = EXCLUDED.ips,
			status = EXCLUDED.status`,
		record.JobID, record.FileID, record.UserID, record.JobCreatedAt,
		record.ProcessedAt, record.TotalLines, record.ErrorCount,
		errorsJSON, keywordsJSON, ipsJSON, record.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}
	return nil
}

// GetByJobID fetches a single record or ErrNotFound
func (s *PostgresStore) GetByJobID(ctx context.Context, jobID string) (*model.LogRecord, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT job_id, file_id, user_id, job_created_at, processed_at,
		       total_lines, error_count, errors, keywords, ips, status
		FROM log_stats WHERE job_id = $1`, jobID)

	record, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch record: %w", err)
	}
	return record, nil
}

// ListAll returns every record, most recently processed first
func (s *PostgresStore) ListAll(ctx context.Context) ([]model.LogRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT job_id, file_id, user_id, job_created_at, processed_at,
		       total_lines, error_count, errors, keywords, ips, status
		FROM log_stats ORDER BY processed_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	records := []model.LogRecord{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*model.LogRecord, error) {
	var (
		record       model.LogRecord
		errorsJSON   []byte
		keywordsJSON []byte
		ipsJSON      []byte
	)
	err := row.Scan(
		&record.JobID, &record.FileID, &record.UserID,
		&record.JobCreatedAt, &record.ProcessedAt,
		&record.TotalLines, &record.ErrorCount,
		&errorsJSON, &keywordsJSON, &ipsJSON, &record.Status,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(errorsJSON, &record.Errors); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(keywordsJSON, &record.Keywords); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(ipsJSON, &record.IPs); err != nil {
		return nil, err
	}
	return &record, nil
}
