// Package sqlite keeps a local history of palette runs for the CLI.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fiapx/fiapx-palette-service/internal/domain/entity"
	"github.com/fiapx/fiapx-palette-service/internal/domain/port"
	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

// JobRepository stores jobs in a single SQLite file.
type JobRepository struct {
	db *sql.DB
}

// Open creates the database at path if needed and applies the schema.
func Open(path string) (*JobRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	r := &JobRepository{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate history db: %w", err)
	}
	return r, nil
}

func (r *JobRepository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS palette_runs (
		id             TEXT PRIMARY KEY,
		user_id        TEXT NOT NULL,
		video_key      TEXT NOT NULL,
		palette_key    TEXT NOT NULL DEFAULT '',
		status         TEXT NOT NULL,
		sampled_frames INTEGER NOT NULL DEFAULT 0,
		skipped_frames INTEGER NOT NULL DEFAULT 0,
		color_count    INTEGER NOT NULL DEFAULT 0,
		file_size      INTEGER NOT NULL DEFAULT 0,
		video_duration REAL NOT NULL DEFAULT 0,
		attempt        INTEGER NOT NULL DEFAULT 0,
		max_attempts   INTEGER NOT NULL DEFAULT 0,
		error_message  TEXT NOT NULL DEFAULT '',
		created_at     INTEGER NOT NULL,
		updated_at     INTEGER NOT NULL,
		completed_at   INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_palette_runs_created ON palette_runs(created_at DESC);
	`
	_, err := r.db.Exec(schema)
	return err
}

func (r *JobRepository) Close() error {
	return r.db.Close()
}

func (r *JobRepository) Create(ctx context.Context, job *entity.Job) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO palette_runs (
			id, user_id, video_key, palette_key, status,
			sampled_frames, skipped_frames, color_count,
			file_size, video_duration, attempt, max_attempts,
			error_message, created_at, updated_at, completed_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		job.ID.String(), job.UserID, job.VideoKey, job.PaletteKey, string(job.Status),
		job.SampledFrames, job.SkippedFrames, job.ColorCount,
		job.FileSize, job.VideoDuration, job.Attempt, job.MaxAttempts,
		job.ErrorMessage, job.CreatedAt.UnixNano(), job.UpdatedAt.UnixNano(), nanos(job.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

func (r *JobRepository) Update(ctx context.Context, job *entity.Job) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE palette_runs SET
			status=?, palette_key=?, sampled_frames=?, skipped_frames=?,
			color_count=?, video_duration=?, attempt=?, error_message=?,
			updated_at=?, completed_at=?
		WHERE id=?`,
		string(job.Status), job.PaletteKey, job.SampledFrames, job.SkippedFrames,
		job.ColorCount, job.VideoDuration, job.Attempt, job.ErrorMessage,
		job.UpdatedAt.UnixNano(), nanos(job.CompletedAt), job.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("update run %s: %w", job.ID, port.ErrJobNotFound)
	}
	return nil
}

const selectRun = `
	SELECT id, user_id, video_key, palette_key, status,
		sampled_frames, skipped_frames, color_count,
		file_size, video_duration, attempt, max_attempts,
		error_message, created_at, updated_at, completed_at
	FROM palette_runs`

func (r *JobRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	job, err := scanRun(r.db.QueryRowContext(ctx, selectRun+" WHERE id=?", id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find run %s: %w", id, port.ErrJobNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find run: %w", err)
	}
	return job, nil
}

// Recent returns up to limit runs, newest first.
func (r *JobRepository) Recent(ctx context.Context, limit int) ([]*entity.Job, error) {
	rows, err := r.db.QueryContext(ctx, selectRun+" ORDER BY created_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var jobs []*entity.Job
	for rows.Next() {
		job, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*entity.Job, error) {
	var (
		job                  entity.Job
		id, status           string
		createdAt, updatedAt int64
		completedAt          sql.NullInt64
	)
	err := s.Scan(
		&id, &job.UserID, &job.VideoKey, &job.PaletteKey, &status,
		&job.SampledFrames, &job.SkippedFrames, &job.ColorCount,
		&job.FileSize, &job.VideoDuration, &job.Attempt, &job.MaxAttempts,
		&job.ErrorMessage, &createdAt, &updatedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}

	job.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse run id %q: %w", id, err)
	}
	job.Status = entity.JobStatus(status)
	job.CreatedAt = time.Unix(0, createdAt).UTC()
	job.UpdatedAt = time.Unix(0, updatedAt).UTC()
	if completedAt.Valid {
		t := time.Unix(0, completedAt.Int64).UTC()
		job.CompletedAt = &t
	}
	return &job, nil
}

func nanos(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixNano()
}
