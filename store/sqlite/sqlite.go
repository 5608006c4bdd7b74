/*
Package sqlite provides the SQLite-backed ledger and document archive.

PURPOSE:
  Implements indexation.Ledger and indexation.DocumentArchive. The
  ledger is the system of record for confirmed indexations; the archive
  holds the rendered notice letters.

APPEND-ONLY ENFORCEMENT:
  No UPDATE or DELETE statements exist for the indexations table.
  A confirmed indexation is immutable after insert.

KEY TABLES:
  indexations: Immutable ledger of confirmed rent indexations
  letters:     Archived notice PDFs, one per ledger row

WAL MODE:
  SQLite is opened with WAL for better read concurrency and crash
  recovery. Decimal values are stored as TEXT so they round-trip
  without float drift.

USAGE:
  store, err := sqlite.New("./data/indexation.db")
  if err != nil { ... }
  defer store.Close()
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/arealis/rent-indexation/indexation"
)

// Store implements the ledger and archive interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// New creates a store at the given database path. Use ":memory:" for
// an in-memory database in tests.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	-- Confirmed indexations (append-only ledger)
	CREATE TABLE IF NOT EXISTS indexations (
		id TEXT PRIMARY KEY,
		reference TEXT NOT NULL UNIQUE,
		tenancy_id INTEGER NOT NULL,
		tenancy_name TEXT NOT NULL,
		old_rent TEXT NOT NULL,
		new_rent TEXT NOT NULL,
		applied TEXT NOT NULL,
		effective_date TEXT NOT NULL,
		previous_key TEXT,
		current_key TEXT,
		previous_index TEXT,
		current_index TEXT,
		trigger_reason TEXT,
		threshold TEXT NOT NULL,
		waiting_months INTEGER NOT NULL,
		next_possible_date TEXT NOT NULL,
		eoc_passthrough INTEGER NOT NULL DEFAULT 0,
		comment TEXT,
		fund_label TEXT,
		entity_label TEXT,
		property_label TEXT,
		tenant_label TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_indexations_tenancy
		ON indexations(tenancy_id, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_indexations_created
		ON indexations(created_at DESC);

	-- Archived notice letters, one per ledger row
	CREATE TABLE IF NOT EXISTS letters (
		indexation_id TEXT PRIMARY KEY REFERENCES indexations(id),
		filename TEXT NOT NULL,
		content BLOB NOT NULL,
		created_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// LEDGER
// =============================================================================

// Insert persists a confirmed indexation, assigning ID, Reference, and
// CreatedAt. Reference numbering restarts every calendar year.
func (s *Store) Insert(ctx context.Context, row *indexation.ConfirmedIndexation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	year := row.EffectiveDate.Year()
	var seq int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM indexations WHERE reference LIKE ?`,
		fmt.Sprintf("IDX-%d-%%", year)).Scan(&seq)
	if err != nil {
		return fmt.Errorf("%w: %v", indexation.ErrLedgerInsert, err)
	}

	row.ID = uuid.NewString()
	row.Reference = fmt.Sprintf("IDX-%d-%04d", year, seq+1)
	row.CreatedAt = time.Now().UTC()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO indexations (
			id, reference, tenancy_id, tenancy_name,
			old_rent, new_rent, applied, effective_date,
			previous_key, current_key, previous_index, current_index,
			trigger_reason, threshold, waiting_months, next_possible_date,
			eoc_passthrough, comment,
			fund_label, entity_label, property_label, tenant_label,
			created_at
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		row.ID, row.Reference, int64(row.TenancyID), row.TenancyName,
		row.OldRent.String(), row.NewRent.String(), row.Applied.String(),
		row.EffectiveDate.Format("2006-01-02"),
		row.PreviousKey, row.CurrentKey,
		decimalPtrString(row.PreviousIndex), decimalPtrString(row.CurrentIndex),
		row.TriggerReason, row.Threshold.String(), row.WaitingMonths,
		row.NextPossibleDate.Format("2006-01-02"),
		boolToInt(row.EndOfContractPassthrough), row.Comment,
		row.FundLabel, row.EntityLabel, row.PropertyLabel, row.TenantLabel,
		row.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", indexation.ErrLedgerInsert, err)
	}
	return nil
}

// List returns all confirmed indexations, newest first.
func (s *Store) List(ctx context.Context) ([]indexation.ConfirmedIndexation, error) {
	rows, err := s.db.QueryContext(ctx,
		selectIndexation+` ORDER BY created_at DESC, reference DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []indexation.ConfirmedIndexation
	for rows.Next() {
		row, err := scanIndexation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *row)
	}
	return out, rows.Err()
}

// Get returns one ledger row by storage id, nil when absent.
func (s *Store) Get(ctx context.Context, id string) (*indexation.ConfirmedIndexation, error) {
	rows, err := s.db.QueryContext(ctx, selectIndexation+` WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanIndexation(rows)
}

const selectIndexation = `
	SELECT id, reference, tenancy_id, tenancy_name,
	       old_rent, new_rent, applied, effective_date,
	       previous_key, current_key, previous_index, current_index,
	       trigger_reason, threshold, waiting_months, next_possible_date,
	       eoc_passthrough, comment,
	       fund_label, entity_label, property_label, tenant_label,
	       created_at
	FROM indexations`

func scanIndexation(rows *sql.Rows) (*indexation.ConfirmedIndexation, error) {
	var (
		row                       indexation.ConfirmedIndexation
		tenancyID                 int64
		oldRent, newRent, applied string
		effectiveDate, nextDate   string
		prevIndex, currIndex      sql.NullString
		threshold, createdAt      string
		eocPassthrough            int
	)
	err := rows.Scan(
		&row.ID, &row.Reference, &tenancyID, &row.TenancyName,
		&oldRent, &newRent, &applied, &effectiveDate,
		&row.PreviousKey, &row.CurrentKey, &prevIndex, &currIndex,
		&row.TriggerReason, &threshold, &row.WaitingMonths, &nextDate,
		&eocPassthrough, &row.Comment,
		&row.FundLabel, &row.EntityLabel, &row.PropertyLabel, &row.TenantLabel,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	row.TenancyID = indexation.TenancyID(tenancyID)
	if row.OldRent, err = decimal.NewFromString(oldRent); err != nil {
		return nil, fmt.Errorf("ledger row %s: bad old_rent: %w", row.ID, err)
	}
	if row.NewRent, err = decimal.NewFromString(newRent); err != nil {
		return nil, fmt.Errorf("ledger row %s: bad new_rent: %w", row.ID, err)
	}
	if row.Applied, err = decimal.NewFromString(applied); err != nil {
		return nil, fmt.Errorf("ledger row %s: bad applied: %w", row.ID, err)
	}
	if row.Threshold, err = decimal.NewFromString(threshold); err != nil {
		return nil, fmt.Errorf("ledger row %s: bad threshold: %w", row.ID, err)
	}
	row.PreviousIndex = parseNullDecimal(prevIndex)
	row.CurrentIndex = parseNullDecimal(currIndex)
	row.EffectiveDate, _ = time.Parse("2006-01-02", effectiveDate)
	row.NextPossibleDate, _ = time.Parse("2006-01-02", nextDate)
	row.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	row.EndOfContractPassthrough = eocPassthrough != 0
	return &row, nil
}

// =============================================================================
// DOCUMENT ARCHIVE
// =============================================================================

// Put archives a rendered letter for a ledger row.
func (s *Store) Put(ctx context.Context, indexationID, filename string, content []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO letters (indexation_id, filename, content, created_at) VALUES (?,?,?,?)`,
		indexationID, filename, content, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("archive letter for %s: %w", indexationID, err)
	}
	return nil
}

// Fetch returns the archived letter for a ledger row. The wrapped
// error is sql.ErrNoRows when nothing was archived.
func (s *Store) Fetch(ctx context.Context, indexationID string) (string, []byte, error) {
	var (
		filename string
		content  []byte
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT filename, content FROM letters WHERE indexation_id = ?`,
		indexationID).Scan(&filename, &content)
	if err != nil {
		return "", nil, fmt.Errorf("fetch letter for %s: %w", indexationID, err)
	}
	return filename, content, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func decimalPtrString(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func parseNullDecimal(s sql.NullString) *decimal.Decimal {
	if !s.Valid {
		return nil
	}
	d, err := decimal.NewFromString(s.String)
	if err != nil {
		return nil
	}
	return &d
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
