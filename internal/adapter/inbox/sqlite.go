package inbox

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dayanaadylkhanova/powgate/internal/entity"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS submissions (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	email      TEXT NOT NULL,
	message    TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS submissions_created_at ON submissions (created_at);
`

// SQLite keeps submissions in a local database file. dsn is passed to the
// modernc driver as is, e.g. "file:inbox.db?_pragma=busy_timeout(5000)".
type SQLite struct {
	db    *sql.DB
	now   func() time.Time
	newID func() string
}

func OpenSQLite(ctx context.Context, dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// single writer
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return &SQLite{db: db, now: time.Now, newID: uuid.NewString}, nil
}

func (s *SQLite) Submit(ctx context.Context, sub entity.Submission) (entity.Submission, error) {
	sub.ID = s.newID()
	sub.CreatedAt = s.now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO submissions (id, name, email, message, created_at) VALUES (?, ?, ?, ?, ?)`,
		sub.ID, sub.Name, sub.Email, sub.Message, sub.CreatedAt.UnixNano(),
	)
	if err != nil {
		return entity.Submission{}, fmt.Errorf("insert submission: %w", err)
	}
	return sub, nil
}

// List returns up to limit submissions, newest first. limit <= 0 means all.
func (s *SQLite) List(ctx context.Context, limit int) ([]entity.Submission, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, email, message, created_at FROM submissions ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}
	defer rows.Close()

	var out []entity.Submission
	for rows.Next() {
		var (
			sub entity.Submission
			ts  int64
		)
		if err := rows.Scan(&sub.ID, &sub.Name, &sub.Email, &sub.Message, &ts); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		sub.CreatedAt = time.Unix(0, ts).UTC()
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (s *SQLite) Close() error { return s.db.Close() }
