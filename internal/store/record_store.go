package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/vbonduro/productreg/internal/domain"
)

// ErrDuplicate is returned when a record with the same serial number exists.
var ErrDuplicate = errors.New("store: duplicate serial number")

// Records persists registered products for the registry stand-in.
type Records interface {
	Create(ctx context.Context, rec domain.Record) error
	List(ctx context.Context) ([]domain.Record, error)
}

type RecordStore struct {
	db *sql.DB
}

func NewRecordStore(db *sql.DB) *RecordStore {
	return &RecordStore{db: db}
}

func (s *RecordStore) Create(ctx context.Context, rec domain.Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (category, model, s_number, date_of_invoice) VALUES (?, ?, ?, ?)
	`, rec.Category, rec.Model, rec.SNumber, rec.DateOfInvoice)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicate, rec.SNumber)
		}
		return fmt.Errorf("failed to create record: %w", err)
	}
	return nil
}

// List returns every record in insertion order.
func (s *RecordStore) List(ctx context.Context) ([]domain.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT category, model, s_number, date_of_invoice FROM products ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	records := []domain.Record{}
	for rows.Next() {
		var r domain.Record
		if err := rows.Scan(&r.Category, &r.Model, &r.SNumber, &r.DateOfInvoice); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}

	return records, nil
}

func isUniqueViolation(err error) bool {
	var serr *sqlite.Error
	if !errors.As(err, &serr) {
		return false
	}
	switch serr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	case sqlite3.SQLITE_CONSTRAINT:
		return strings.Contains(serr.Error(), "UNIQUE")
	}
	return false
}
