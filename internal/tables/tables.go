package tables

import (
	"context"

	"github.com/example/tablebook/internal/db"
	"github.com/example/tablebook/internal/internaltypes"
	"github.com/jackc/pgx/v5"
)

type Table struct {
	ID          int64
	TableNumber int
	Capacity    int
}

// Catalog is the read-mostly view of the establishment's tables. Methods
// take a db.Querier so they compose with the booking transactions.
type Catalog struct{}

// Create inserts a table. Duplicate table numbers and exceeding the
// configured table ceiling both violate catalog invariants.
func (Catalog) Create(ctx context.Context, q db.Querier, tableNumber, capacity, maxTables int) (Table, error) {
	var count int
	if err := q.QueryRow(ctx, `SELECT count(*) FROM tables`).Scan(&count); err != nil {
		return Table{}, err
	}
	if maxTables > 0 && count >= maxTables {
		return Table{}, internaltypes.E(internaltypes.KindInvariantViolation,
			"restaurant already has the maximum of %d tables", maxTables)
	}

	var t Table
	err := q.QueryRow(ctx, `
INSERT INTO tables(table_number, capacity)
VALUES ($1,$2)
RETURNING id, table_number, capacity`, tableNumber, capacity).
		Scan(&t.ID, &t.TableNumber, &t.Capacity)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Table{}, internaltypes.E(internaltypes.KindInvariantViolation,
				"a table with number %d already exists", tableNumber)
		}
		return Table{}, err
	}
	return t, nil
}

func (Catalog) Get(ctx context.Context, q db.Querier, id int64) (Table, error) {
	var t Table
	err := q.QueryRow(ctx, `SELECT id, table_number, capacity FROM tables WHERE id=$1`, id).
		Scan(&t.ID, &t.TableNumber, &t.Capacity)
	if err != nil {
		if db.IsNotFound(err) {
			return Table{}, internaltypes.E(internaltypes.KindNotFound, "table %d not found", id)
		}
		return Table{}, err
	}
	return t, nil
}

func (Catalog) List(ctx context.Context, q db.Querier) ([]Table, error) {
	rows, err := q.Query(ctx, `
SELECT id, table_number, capacity
FROM tables
ORDER BY table_number ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTables(rows)
}

// ListCandidates returns tables that can seat partySize, smallest first.
// Table number breaks capacity ties so the ordering is stable across calls.
func (Catalog) ListCandidates(ctx context.Context, q db.Querier, partySize int) ([]Table, error) {
	rows, err := q.Query(ctx, `
SELECT id, table_number, capacity
FROM tables
WHERE capacity >= $1
ORDER BY capacity ASC, table_number ASC`, partySize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTables(rows)
}

func scanTables(rows pgx.Rows) ([]Table, error) {
	var out []Table
	for rows.Next() {
		var t Table
		if err := rows.Scan(&t.ID, &t.TableNumber, &t.Capacity); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
