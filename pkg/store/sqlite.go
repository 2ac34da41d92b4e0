package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rajbagri/Jewellery-Loan-App/pkg/models"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore manages the database connection and operations for SQLite.
// It is always authoritative, so the Freshness hint is ignored.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the khata database at path and initializes the schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	// Pragmas go in the DSN so every pooled connection gets them.
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not connect to database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not initialize schema: %w", err)
	}
	return s, nil
}

// initSchema creates the tables if they don't already exist and adds columns
// that older databases lack. Decimal fields are TEXT so no precision is lost.
func (s *SQLiteStore) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS customers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		town TEXT NOT NULL DEFAULT '',
		number TEXT NOT NULL DEFAULT '',
		time INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS entries (
		customer_id TEXT NOT NULL,
		id TEXT NOT NULL,
		amount TEXT NOT NULL,
		jewellery TEXT NOT NULL DEFAULT '',
		settled INTEGER NOT NULL DEFAULT 0,
		time INTEGER NOT NULL,
		PRIMARY KEY (customer_id, id),
		FOREIGN KEY (customer_id) REFERENCES customers(id) ON DELETE CASCADE
	);
	CREATE TABLE IF NOT EXISTS sub_entries (
		customer_id TEXT NOT NULL,
		entry_id TEXT NOT NULL,
		id TEXT NOT NULL,
		amount TEXT NOT NULL,
		settled INTEGER NOT NULL DEFAULT 0,
		time INTEGER NOT NULL,
		PRIMARY KEY (customer_id, entry_id, id),
		FOREIGN KEY (customer_id, entry_id) REFERENCES entries(customer_id, id) ON DELETE CASCADE
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	// Sub-entries predating per-record rates get the default rate.
	columns := []string{
		fmt.Sprintf("sub_entries ADD COLUMN interest_rate TEXT NOT NULL DEFAULT '%s'", models.DefaultInterestRate),
	}
	for _, col := range columns {
		_, err := s.db.Exec("ALTER TABLE " + col)
		if err != nil && !isDuplicateColumnError(err) {
			return fmt.Errorf("failed to alter %s: %w", col, err)
		}
	}
	return nil
}

func isDuplicateColumnError(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "duplicate column name")
}

func notFoundIfNone(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}

// ListCustomers returns all customers, oldest first.
func (s *SQLiteStore) ListCustomers(ctx context.Context) ([]models.Customer, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, town, number, time FROM customers ORDER BY time, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	defer rows.Close()

	var customers []models.Customer
	for rows.Next() {
		var c models.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Town, &c.Number, &c.Time); err != nil {
			return nil, fmt.Errorf("failed to scan customer row: %w", err)
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return customers, nil
}

func (s *SQLiteStore) GetCustomer(ctx context.Context, id string) (*models.Customer, error) {
	var c models.Customer
	err := s.db.QueryRowContext(ctx, `SELECT id, name, town, number, time FROM customers WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.Town, &c.Number, &c.Time)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("customer %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	return &c, nil
}

func (s *SQLiteStore) UpsertCustomer(ctx context.Context, c *models.Customer) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO customers (id, name, town, number, time) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, town = excluded.town, number = excluded.number, time = excluded.time`,
		c.ID, c.Name, c.Town, c.Number, c.Time,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert customer: %w", err)
	}
	return nil
}

// DeleteCustomer removes a customer; entries and sub-entries go with it.
func (s *SQLiteStore) DeleteCustomer(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM customers WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete customer: %w", err)
	}
	return notFoundIfNone(res, "customer "+id)
}

func (s *SQLiteStore) ListEntries(ctx context.Context, customerID string, _ Freshness) ([]models.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, amount, jewellery, settled, time FROM entries WHERE customer_id = ? ORDER BY time, id`, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries for customer %s: %w", customerID, err)
	}
	defer rows.Close()

	var entries []models.Entry
	for rows.Next() {
		var e models.Entry
		if err := rows.Scan(&e.ID, &e.Amount, &e.Jewellery, &e.Cross, &e.Time); err != nil {
			return nil, fmt.Errorf("failed to scan entry row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration for entries: %w", err)
	}
	return entries, nil
}

func (s *SQLiteStore) GetEntry(ctx context.Context, customerID, entryID string) (*models.Entry, error) {
	var e models.Entry
	err := s.db.QueryRowContext(ctx,
		`SELECT id, amount, jewellery, settled, time FROM entries WHERE customer_id = ? AND id = ?`, customerID, entryID).
		Scan(&e.ID, &e.Amount, &e.Jewellery, &e.Cross, &e.Time)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("entry %s/%s: %w", customerID, entryID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}
	return &e, nil
}

func (s *SQLiteStore) UpsertEntry(ctx context.Context, customerID string, e *models.Entry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO entries (customer_id, id, amount, jewellery, settled, time) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(customer_id, id) DO UPDATE SET amount = excluded.amount, jewellery = excluded.jewellery,
			settled = excluded.settled, time = excluded.time`,
		customerID, e.ID, e.Amount, e.Jewellery, e.Cross, e.Time,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert entry: %w", err)
	}
	return nil
}

// DeleteEntry removes an entry and its sub-entries.
func (s *SQLiteStore) DeleteEntry(ctx context.Context, customerID, entryID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE customer_id = ? AND id = ?`, customerID, entryID)
	if err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	return notFoundIfNone(res, "entry "+customerID+"/"+entryID)
}

func (s *SQLiteStore) ListSubEntries(ctx context.Context, customerID, entryID string, _ Freshness) ([]models.SubEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, amount, interest_rate, settled, time FROM sub_entries
		WHERE customer_id = ? AND entry_id = ? ORDER BY time, id`, customerID, entryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sub-entries for entry %s/%s: %w", customerID, entryID, err)
	}
	defer rows.Close()

	var subEntries []models.SubEntry
	for rows.Next() {
		var se models.SubEntry
		if err := rows.Scan(&se.ID, &se.Amount, &se.InterestRate, &se.Cross, &se.Time); err != nil {
			return nil, fmt.Errorf("failed to scan sub-entry row: %w", err)
		}
		subEntries = append(subEntries, se)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration for sub-entries: %w", err)
	}
	return subEntries, nil
}

func (s *SQLiteStore) GetSubEntry(ctx context.Context, customerID, entryID, subEntryID string) (*models.SubEntry, error) {
	var se models.SubEntry
	err := s.db.QueryRowContext(ctx,
		`SELECT id, amount, interest_rate, settled, time FROM sub_entries
		WHERE customer_id = ? AND entry_id = ? AND id = ?`, customerID, entryID, subEntryID).
		Scan(&se.ID, &se.Amount, &se.InterestRate, &se.Cross, &se.Time)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("sub-entry %s/%s/%s: %w", customerID, entryID, subEntryID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sub-entry: %w", err)
	}
	return &se, nil
}

func (s *SQLiteStore) UpsertSubEntry(ctx context.Context, customerID, entryID string, se *models.SubEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sub_entries (customer_id, entry_id, id, amount, interest_rate, settled, time) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(customer_id, entry_id, id) DO UPDATE SET amount = excluded.amount,
			interest_rate = excluded.interest_rate, settled = excluded.settled, time = excluded.time`,
		customerID, entryID, se.ID, se.Amount, se.InterestRate, se.Cross, se.Time,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert sub-entry: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DeleteSubEntry(ctx context.Context, customerID, entryID, subEntryID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM sub_entries WHERE customer_id = ? AND entry_id = ? AND id = ?`, customerID, entryID, subEntryID)
	if err != nil {
		return fmt.Errorf("failed to delete sub-entry: %w", err)
	}
	return notFoundIfNone(res, "sub-entry "+customerID+"/"+entryID+"/"+subEntryID)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ Storage = (*SQLiteStore)(nil)
