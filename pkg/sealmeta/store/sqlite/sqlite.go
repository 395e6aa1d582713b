package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/cognicore/sealmeta/pkg/sealmeta/internalerr"
	"github.com/cognicore/sealmeta/pkg/sealmeta/store"
)

// InitScript is the bootstrap script shipped with the binary.
//
//go:embed init_script.sql
var InitScript string

// Store implements store.Store on a single SQLite file.
//
// Every write after Bootstrap runs inside one transaction that is opened
// lazily and committed by Commit.
type Store struct {
	db *sql.DB
	tx *sql.Tx
}

var _ store.Store = (*Store)(nil)

// OpenSQLite opens (or creates) the SQLite database at path with foreign
// keys enforced. The schema is not touched until Bootstrap.
func OpenSQLite(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// One writer, one connection: the run transaction and every lookup
	// share it.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close discards uncommitted writes and closes the database
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	var rbErr error
	if s.tx != nil {
		rbErr = s.tx.Rollback()
		s.tx = nil
	}
	err := s.db.Close()
	s.db = nil
	if err != nil {
		return err
	}
	if rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
		return rbErr
	}
	return nil
}

// Bootstrap executes a schema script. An empty script runs InitScript.
func (s *Store) Bootstrap(ctx context.Context, script string) error {
	if s.db == nil {
		return internalerr.ErrStoreClosed
	}
	if script == "" {
		script = InitScript
	}
	if s.tx != nil {
		_, err := s.tx.ExecContext(ctx, script)
		return err
	}
	_, err := s.db.ExecContext(ctx, script)
	return err
}

func (s *Store) begin(ctx context.Context) (*sql.Tx, error) {
	if s.db == nil {
		return nil, internalerr.ErrStoreClosed
	}
	if s.tx != nil {
		return s.tx, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	s.tx = tx
	return tx, nil
}

// InsertArtifact inserts one artifact row and returns its id
func (s *Store) InsertArtifact(ctx context.Context, a store.Artifact) (int64, error) {
	tx, err := s.begin(ctx)
	if err != nil {
		return 0, err
	}

	res, err := tx.ExecContext(ctx, `
INSERT INTO artifact (family, width, height, unit)
VALUES (?, ?, ?, ?);
`, a.Family, a.Width, a.Height, a.Unit)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// FindTag looks a tag up by exact name
func (s *Store) FindTag(ctx context.Context, name string) (int64, bool, error) {
	tx, err := s.begin(ctx)
	if err != nil {
		return 0, false, err
	}

	var id int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM tag WHERE name = ?`, name).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// CreateTag inserts a new tag row and returns its id
func (s *Store) CreateTag(ctx context.Context, name string) (int64, error) {
	tx, err := s.begin(ctx)
	if err != nil {
		return 0, err
	}

	res, err := tx.ExecContext(ctx, `INSERT INTO tag (name) VALUES (?)`, name)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// LinkTag inserts one artifact_has_tag row
func (s *Store) LinkTag(ctx context.Context, artifactID, tagID int64) error {
	tx, err := s.begin(ctx)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO artifact_has_tag (artifact_id, tag_id)
VALUES (?, ?);
`, artifactID, tagID)
	return err
}

// Commit makes every write since Bootstrap durable
func (s *Store) Commit(ctx context.Context) error {
	if s.db == nil {
		return internalerr.ErrStoreClosed
	}
	if s.tx == nil {
		return nil
	}
	err := s.tx.Commit()
	s.tx = nil
	return err
}
