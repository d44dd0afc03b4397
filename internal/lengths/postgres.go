package lengths

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"

	"github.com/lib/pq"

	rrerrors "github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Ranked-Retrieval-Engine/pkg/postgres"
)

// Schema creates the table LoadPostgres reads from.
const Schema = `CREATE TABLE IF NOT EXISTS %s (
	doc_id      BIGINT PRIMARY KEY CHECK (doc_id >= 0 AND doc_id <= 4294967295),
	sum_squares DOUBLE PRECISION NOT NULL CHECK (sum_squares >= 0)
)`

// QuoteTable quotes a table name that may be schema qualified.
func QuoteTable(table string) (string, error) {
	parts := strings.Split(table, ".")
	if len(parts) > 2 {
		return "", fmt.Errorf("table name %q has too many parts: %w", table, rrerrors.ErrInvalidInput)
	}
	for i, p := range parts {
		if p == "" {
			return "", fmt.Errorf("table name %q has an empty part: %w", table, rrerrors.ErrInvalidInput)
		}
		parts[i] = pq.QuoteIdentifier(p)
	}
	return strings.Join(parts, "."), nil
}

// LoadPostgres reads the whole vector length table from Postgres.
func LoadPostgres(ctx context.Context, client *postgres.Client, table string) (*Table, error) {
	quoted, err := QuoteTable(table)
	if err != nil {
		return nil, err
	}
	rows, err := client.DB.QueryContext(ctx, "SELECT doc_id, sum_squares FROM "+quoted)
	if err != nil {
		return nil, fmt.Errorf("querying vector lengths from %s: %w", table, err)
	}
	defer rows.Close()

	sums := make(map[uint32]float64)
	for rows.Next() {
		var docID int64
		var sum float64
		if err := rows.Scan(&docID, &sum); err != nil {
			return nil, fmt.Errorf("scanning vector length row: %w", err)
		}
		if docID < 0 || docID > math.MaxUint32 {
			return nil, fmt.Errorf("vector length row doc_id %d out of range: %w", docID, rrerrors.ErrFormat)
		}
		sums[uint32(docID)] = sum
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating vector length rows: %w", err)
	}
	return New(sums), nil
}

// StorePostgres replaces the contents of table with t inside one transaction.
func StorePostgres(ctx context.Context, client *postgres.Client, table string, t *Table) error {
	quoted, err := QuoteTable(table)
	if err != nil {
		return err
	}
	return client.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(Schema, quoted)); err != nil {
			return fmt.Errorf("creating %s: %w", table, err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+quoted); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
		stmt, err := tx.PrepareContext(ctx, "INSERT INTO "+quoted+" (doc_id, sum_squares) VALUES ($1, $2)")
		if err != nil {
			return fmt.Errorf("preparing insert: %w", err)
		}
		defer stmt.Close()
		for docID, sum := range t.sums {
			if _, err := stmt.ExecContext(ctx, int64(docID), sum); err != nil {
				return fmt.Errorf("inserting doc %d: %w", docID, err)
			}
		}
		return nil
	})
}
