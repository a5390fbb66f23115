package archive

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"parking-ledger/internal/parking"
)

const schema = `
CREATE TABLE IF NOT EXISTS payment_records (
	id          TEXT PRIMARY KEY,
	slot_number INTEGER NOT NULL,
	payer       TEXT NOT NULL,
	amount      TEXT NOT NULL,
	paid_at     INTEGER NOT NULL,
	archived_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_payment_records_payer ON payment_records(payer);
`

// Store is the durable audit trail for payment receipts. Amounts are
// persisted as decimal text and re-parsed on scan so the stored form
// stays exact and human-readable.
type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create archive schema: %w", err)
	}
	zap.L().Info("Receipt archive opened", zap.String("path", path))
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Archive persists one receipt. Receipts are immutable; a duplicate ID
// is a programming error and surfaces as a constraint violation.
func (s *Store) Archive(ctx context.Context, record parking.PaymentRecord) error {
	amount := decimal.NewFromInt(record.Amount)
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO payment_records (id, slot_number, payer, amount, paid_at, archived_at) VALUES (?, ?, ?, ?, ?, ?)",
		record.ID.String(), record.SlotNumber, string(record.Payer), amount.String(), record.PaidAt,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		zap.L().Error("Failed to archive receipt",
			zap.String("record_id", record.ID.String()),
			zap.Error(err))
		return fmt.Errorf("failed to archive receipt: %w", err)
	}
	zap.L().Debug("Receipt archived",
		zap.String("record_id", record.ID.String()),
		zap.Int("slot_number", record.SlotNumber),
		zap.String("amount", amount.String()))
	return nil
}

// ArchivedRecord is one stored receipt.
type ArchivedRecord struct {
	ID         string
	SlotNumber int
	Payer      string
	Amount     decimal.Decimal
	PaidAt     int64
}

// List returns all receipts for payer, or every receipt when payer is
// empty, newest first.
func (s *Store) List(ctx context.Context, payer string) ([]ArchivedRecord, error) {
	query := "SELECT id, slot_number, payer, amount, paid_at FROM payment_records"
	args := []any{}
	if payer != "" {
		query += " WHERE payer = ?"
		args = append(args, payer)
	}
	query += " ORDER BY paid_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list receipts: %w", err)
	}
	defer rows.Close()

	var records []ArchivedRecord
	for rows.Next() {
		var rec ArchivedRecord
		var amountStr string
		if err := rows.Scan(&rec.ID, &rec.SlotNumber, &rec.Payer, &amountStr, &rec.PaidAt); err != nil {
			return nil, fmt.Errorf("failed to scan receipt: %w", err)
		}
		rec.Amount, err = decimal.NewFromString(amountStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse amount %q: %w", amountStr, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating receipt rows: %w", err)
	}
	return records, nil
}
