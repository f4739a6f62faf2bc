package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// CopyRows bulk-inserts rows into table with the COPY protocol. It fails
// when the server reports fewer rows than were sent.
func CopyRows(ctx context.Context, pool Pool, table string, columns []string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}

	n, err := pool.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return eris.Wrapf(err, "db: COPY INTO %s", table)
	}
	if n != int64(len(rows)) {
		return eris.Errorf("db: COPY INTO %s wrote %d of %d rows", table, n, len(rows))
	}
	return nil
}
