package submissions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/wolfman30/riskdesk-demo/internal/demo"
	"github.com/wolfman30/riskdesk-demo/pkg/logging"
)

type pgQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresStore keeps one row per request in the demo_requests table. The
// validated input is stored verbatim as jsonb next to the bookkeeping columns.
type PostgresStore struct {
	db     pgQuerier
	logger *logging.Logger
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore wires a store over a pgx pool (or anything exposing Exec and Query).
func NewPostgresStore(db pgQuerier, logger *logging.Logger) *PostgresStore {
	if db == nil {
		panic("submissions: postgres pool required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &PostgresStore{db: db, logger: logger}
}

const insertRecordSQL = `
INSERT INTO demo_requests (id, status, email, organization, ics_generated, email_sent, payload, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`

const listRecordsSQL = `
SELECT id, status, ics_generated, email_sent, payload, created_at
FROM demo_requests
ORDER BY created_at ASC, id ASC
`

// Append inserts rec. A duplicate id is reported as a store failure.
func (s *PostgresStore) Append(ctx context.Context, rec *Record) (string, error) {
	if rec == nil || rec.ID == "" {
		return "", fmt.Errorf("%w: record id required", ErrStoreUnavailable)
	}
	payload, err := json.Marshal(rec.Request)
	if err != nil {
		return "", fmt.Errorf("%w: marshal payload: %v", ErrStoreUnavailable, err)
	}

	tag, err := s.db.Exec(ctx, insertRecordSQL,
		rec.ID,
		string(rec.Status),
		rec.Email,
		rec.Organization,
		rec.ICSGenerated,
		rec.EmailSent,
		payload,
		rec.CreatedAt.UTC(),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return "", fmt.Errorf("%w: duplicate id %s", ErrStoreUnavailable, rec.ID)
		}
		return "", fmt.Errorf("%w: insert: %v", ErrStoreUnavailable, err)
	}
	if tag.RowsAffected() != 1 {
		return "", fmt.Errorf("%w: insert affected %d rows", ErrStoreUnavailable, tag.RowsAffected())
	}
	s.logger.Debug("demo request stored", "id", rec.ID, "store", "postgres")
	return rec.ID, nil
}

// List returns every stored record ordered by creation time.
func (s *PostgresStore) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.Query(ctx, listRecordsSQL)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec     Record
			status  string
			payload []byte
		)
		if err := rows.Scan(&rec.ID, &status, &rec.ICSGenerated, &rec.EmailSent, &payload, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", ErrStoreUnavailable, err)
		}
		var req demo.Request
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, fmt.Errorf("%w: decode payload %s: %v", ErrStoreUnavailable, rec.ID, err)
		}
		rec.Request = req
		rec.Status = Status(status)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows: %v", ErrStoreUnavailable, err)
	}
	return out, nil
}
