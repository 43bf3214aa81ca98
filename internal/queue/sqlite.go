package queue

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Aman-CERP/fulltextd/internal/domain"
	errs "github.com/Aman-CERP/fulltextd/internal/errors"
)

// SQLiteStore is the durable queue backed by a single SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (or creates) the queue database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create queue directory: %w", err)
	}

	// Pure Go driver, no CGO.
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open queue database: %w", err)
	}

	// Single writer to prevent lock contention.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// WAL mode must be set via PRAGMA for modernc.org/sqlite.
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	s := &SQLiteStore{db: db, path: path}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize queue schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS index_queue (
		id        TEXT NOT NULL,
		path      TEXT NOT NULL,
		operation TEXT NOT NULL,
		language  TEXT NOT NULL DEFAULT '',
		status    TEXT NOT NULL DEFAULT 'QUEUED',
		queued_at INTEGER NOT NULL,
		PRIMARY KEY (id, path, operation)
	);

	CREATE INDEX IF NOT EXISTS idx_queue_status ON index_queue(status, queued_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Insert(req *domain.IndexRequest) error {
	_, err := s.db.Exec(`
		INSERT INTO index_queue (id, path, operation, language, status, queued_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id, path, operation) DO NOTHING`,
		req.Content.ID, req.Content.Path, string(req.Operation),
		req.Content.Language, string(domain.StatusQueued), time.Now().UnixNano())
	if err != nil {
		return errs.Persistence(err)
	}
	return nil
}

// ClaimOneQueued relies on a single UPDATE ... RETURNING over the oldest
// QUEUED row; SQLite serializes writers, so two claimers can never lock the
// same request.
func (s *SQLiteStore) ClaimOneQueued() (*domain.IndexRequest, bool, error) {
	row := s.db.QueryRow(`
		UPDATE index_queue SET status = ?
		WHERE rowid = (
			SELECT rowid FROM index_queue
			WHERE status = ?
			ORDER BY queued_at, rowid
			LIMIT 1
		)
		RETURNING id, path, operation, language`,
		string(domain.StatusLocked), string(domain.StatusQueued))

	req, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errs.Persistence(err)
	}
	req.Status = domain.StatusLocked
	return req, true, nil
}

func (s *SQLiteStore) RelockAllQueued() (int64, error) {
	res, err := s.db.Exec(`UPDATE index_queue SET status = ? WHERE status = ?`,
		string(domain.StatusLocked), string(domain.StatusQueued))
	if err != nil {
		return 0, errs.Persistence(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errs.Persistence(err)
	}
	return n, nil
}

func (s *SQLiteStore) CountByStatus(status domain.Status) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM index_queue WHERE status = ?`,
		string(status)).Scan(&n)
	if err != nil {
		return 0, errs.Persistence(err)
	}
	return n, nil
}

func (s *SQLiteStore) ListByStatus(status domain.Status, page int) ([]*domain.IndexRequest, error) {
	if page < 0 {
		page = 0
	}
	rows, err := s.db.Query(`
		SELECT id, path, operation, language FROM index_queue
		WHERE status = ?
		ORDER BY queued_at, rowid
		LIMIT ? OFFSET ?`,
		string(status), PageSize, page*PageSize)
	if err != nil {
		return nil, errs.Persistence(err)
	}
	defer rows.Close()

	var reqs []*domain.IndexRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, errs.Persistence(err)
		}
		req.Status = status
		reqs = append(reqs, req)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Persistence(err)
	}
	return reqs, nil
}

func (s *SQLiteStore) MarkStatus(req *domain.IndexRequest, status domain.Status) error {
	_, err := s.db.Exec(`
		UPDATE index_queue SET status = ?
		WHERE id = ? AND path = ? AND operation = ?`,
		string(status), req.Content.ID, req.Content.Path, string(req.Operation))
	if err != nil {
		return errs.Persistence(err)
	}
	return nil
}

func (s *SQLiteStore) DeleteByStatus(status domain.Status) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM index_queue WHERE status = ?`, string(status))
	if err != nil {
		return 0, errs.Persistence(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errs.Persistence(err)
	}
	return n, nil
}

func (s *SQLiteStore) DeleteExact(req *domain.IndexRequest) error {
	_, err := s.db.Exec(`
		DELETE FROM index_queue
		WHERE id = ? AND path = ? AND operation = ?`,
		req.Content.ID, req.Content.Path, string(req.Operation))
	if err != nil {
		return errs.Persistence(err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*domain.IndexRequest, error) {
	var id, path, op, lang string
	if err := row.Scan(&id, &path, &op, &lang); err != nil {
		return nil, err
	}
	return &domain.IndexRequest{
		Content:   &domain.Content{ID: id, Path: path, Language: lang},
		Operation: domain.Operation(op),
	}, nil
}
