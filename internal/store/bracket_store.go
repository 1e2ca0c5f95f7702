package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/AdamBeresnev/esports-bracket/internal/bracket"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
)

var (
	ErrBracketExists = errors.New("tournament already has a bracket")
	// The row changed since it was read
	ErrVersionConflict = errors.New("bracket was modified concurrently")
)

// BracketRecord is one row of the brackets table. The structure itself lives in Document.
type BracketRecord struct {
	TournamentID string    `db:"tournament_id"`
	ID           string    `db:"id"`
	Format       string    `db:"format"`
	Status       string    `db:"status"`
	Version      int       `db:"version"`
	Document     []byte    `db:"document"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// Decode returns the bracket stored in the record. A document that breaks the bracket invariants
// is rejected with an error wrapping bracket.ErrInconsistentState.
func (r *BracketRecord) Decode() (*bracket.Structure, error) {
	var b bracket.Structure
	if err := json.Unmarshal(r.Document, &b); err != nil {
		return nil, fmt.Errorf("failed to decode bracket for tournament %s: %w", r.TournamentID, err)
	}
	if err := bracket.Validate(&b); err != nil {
		return nil, fmt.Errorf("stored bracket for tournament %s: %w", r.TournamentID, err)
	}
	return &b, nil
}

type BracketStore struct {
	db *sqlx.DB
}

func NewBracketStore(db *sqlx.DB) *BracketStore {
	return &BracketStore{db: db}
}

func newRecord(b *bracket.Structure, version int) (*BracketRecord, error) {
	document, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("failed to encode bracket: %w", err)
	}
	return &BracketRecord{
		TournamentID: b.TournamentID,
		ID:           b.ID.String(),
		Format:       string(b.Format),
		Status:       string(b.Metadata.Status),
		Version:      version,
		Document:     document,
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
	}, nil
}

func (s *BracketStore) CreateBracket(ctx context.Context, tx *sqlx.Tx, b *bracket.Structure) error {
	record, err := newRecord(b, 1)
	if err != nil {
		return err
	}

	_, err = tx.NamedExecContext(ctx, `INSERT INTO brackets (tournament_id, id, format, status, version, document, created_at, updated_at)
        VALUES (:tournament_id, :id, :format, :status, :version, :document, :created_at, :updated_at)`, record)

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return fmt.Errorf("%w: %s", ErrBracketExists, b.TournamentID)
	}
	return err
}

func (s *BracketStore) GetBracket(ctx context.Context, tournamentID string) (*BracketRecord, error) {
	return getBracket(ctx, s.db, tournamentID)
}

func (s *BracketStore) GetBracketTx(ctx context.Context, tx *sqlx.Tx, tournamentID string) (*BracketRecord, error) {
	return getBracket(ctx, tx, tournamentID)
}

func getBracket(ctx context.Context, q sqlx.QueryerContext, tournamentID string) (*BracketRecord, error) {
	var record BracketRecord
	err := sqlx.GetContext(ctx, q, &record, "SELECT * FROM brackets WHERE tournament_id = ?", tournamentID)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// UpdateBracketTx stores b if the row is still at version and bumps the version.
func (s *BracketStore) UpdateBracketTx(ctx context.Context, tx *sqlx.Tx, b *bracket.Structure, version int) error {
	record, err := newRecord(b, version)
	if err != nil {
		return err
	}

	res, err := tx.NamedExecContext(ctx, `UPDATE brackets
        SET document = :document, status = :status, version = version + 1, updated_at = :updated_at
        WHERE tournament_id = :tournament_id AND version = :version`, record)
	if err != nil {
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%w: tournament %s at version %d", ErrVersionConflict, b.TournamentID, version)
	}
	return nil
}

func (s *BracketStore) DeleteBracket(ctx context.Context, tournamentID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM brackets WHERE tournament_id = ?", tournamentID)
	if err != nil {
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *BracketStore) ListBracketsByStatus(ctx context.Context, status bracket.BracketStatus) ([]BracketRecord, error) {
	records := make([]BracketRecord, 0)
	err := s.db.SelectContext(ctx, &records, "SELECT * FROM brackets WHERE status = ? ORDER BY updated_at DESC", string(status))
	return records, err
}
