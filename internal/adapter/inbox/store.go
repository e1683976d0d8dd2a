package inbox

import (
	"context"

	"github.com/dayanaadylkhanova/powgate/internal/entity"
)

// Store is what both inbox backends provide.
type Store interface {
	Submit(ctx context.Context, s entity.Submission) (entity.Submission, error)
	// List returns up to limit submissions, newest first. limit <= 0 means all.
	List(ctx context.Context, limit int) ([]entity.Submission, error)
	Close() error
}

var (
	_ Store = (*Memory)(nil)
	_ Store = (*SQLite)(nil)
)

// Open returns the SQLite store for dsn, or an in-memory one when dsn is empty.
func Open(ctx context.Context, dsn string) (Store, error) {
	if dsn == "" {
		return NewMemory(), nil
	}
	return OpenSQLite(ctx, dsn)
}
