// Package sqlite persists the client-side submission history. Canonical
// job state lives on the processing service; this store only remembers
// what was submitted from this machine and the last status observed for it.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/pressly/goose/v3"
	"modernc.org/sqlite"

	"github.com/bnema/handsync/internal/domain"
	"github.com/bnema/handsync/internal/port"
)

//go:embed migrations/*.sql
var migrations embed.FS

var _ port.HistoryStore = (*HistoryStore)(nil)

type HistoryStore struct {
	db *sql.DB
}

var hookOnce sync.Once

func registerHook() {
	hookOnce.Do(func() {
		sqlite.RegisterConnectionHook(func(conn sqlite.ExecQuerierContext, dsn string) error {
			pragmas := []string{
				"PRAGMA journal_mode = WAL",
				"PRAGMA busy_timeout = 5000",
				"PRAGMA synchronous = NORMAL",
			}
			for _, p := range pragmas {
				if _, err := conn.ExecContext(context.Background(), p, nil); err != nil {
					return fmt.Errorf("execute %s: %w", p, err)
				}
			}
			return nil
		})
	})
}

func NewHistoryStore(dataDir string) (*HistoryStore, error) {
	registerHook()

	dbPath := filepath.Join(dataDir, "handsync.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Single connection: WAL allows concurrent reads but only one writer.
	db.SetMaxOpenConns(1)

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &HistoryStore{db: db}, nil
}

func (s *HistoryStore) Close() error {
	return s.db.Close()
}

func (s *HistoryStore) Save(sub *domain.Submission) error {
	if sub.JobID == "" {
		return errors.New("submission: job id is required")
	}
	if sub.SubmittedAt.IsZero() {
		sub.SubmittedAt = time.Now().UTC()
	}
	if sub.UpdatedAt.IsZero() {
		sub.UpdatedAt = sub.SubmittedAt
	}

	_, err := s.db.Exec(
		`INSERT INTO submissions (correlation_id, job_id, file_name, target_hand, status, progress, error_message, submitted_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.CorrelationID, sub.JobID, sub.FileName, string(sub.TargetHand),
		string(sub.Status), sub.Progress, sub.ErrorMessage,
		sub.SubmittedAt.UTC().Format(time.RFC3339Nano),
		sub.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

func (s *HistoryStore) Get(jobID string) (*domain.Submission, error) {
	row := s.db.QueryRow(
		`SELECT correlation_id, job_id, file_name, target_hand, status, progress, error_message, submitted_at, updated_at
		 FROM submissions WHERE job_id = ?`, jobID)
	return scanSubmission(row)
}

func (s *HistoryStore) List() ([]*domain.Submission, error) {
	rows, err := s.db.Query(
		`SELECT correlation_id, job_id, file_name, target_hand, status, progress, error_message, submitted_at, updated_at
		 FROM submissions ORDER BY submitted_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var subs []*domain.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

func (s *HistoryStore) UpdateStatus(jobID string, status domain.JobStatus, progress int, errMsg string) error {
	res, err := s.db.Exec(
		`UPDATE submissions SET status = ?, progress = ?, error_message = ?, updated_at = ? WHERE job_id = ?`,
		string(status), progress, errMsg, time.Now().UTC().Format(time.RFC3339Nano), jobID,
	)
	if err != nil {
		return fmt.Errorf("update submission: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *HistoryStore) Delete(jobID string) error {
	res, err := s.db.Exec(`DELETE FROM submissions WHERE job_id = ?`, jobID)
	if err != nil {
		return fmt.Errorf("delete submission: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *HistoryStore) DeleteAll() (int, error) {
	res, err := s.db.Exec(`DELETE FROM submissions`)
	if err != nil {
		return 0, fmt.Errorf("delete submissions: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubmission(row rowScanner) (*domain.Submission, error) {
	var sub domain.Submission
	var hand, status, submitted, updated string

	if err := row.Scan(
		&sub.CorrelationID,
		&sub.JobID,
		&sub.FileName,
		&hand,
		&status,
		&sub.Progress,
		&sub.ErrorMessage,
		&submitted,
		&updated,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scan submission: %w", err)
	}

	sub.TargetHand = domain.TargetHand(hand)
	sub.Status = domain.JobStatus(status)
	if t, err := time.Parse(time.RFC3339Nano, submitted); err == nil {
		sub.SubmittedAt = t
	}
	if t, err := time.Parse(time.RFC3339Nano, updated); err == nil {
		sub.UpdatedAt = t
	}
	return &sub, nil
}
