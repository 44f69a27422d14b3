package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"price-paid-etl/models"
	"price-paid-etl/utils"
)

const progressEvery = 10000

// PostgresWriter persists cleaned transactions into the normalized schema and
// serves the report queries.
type PostgresWriter struct {
	db     *sqlx.DB
	logger *utils.Logger
}

// NewPostgresWriter opens a single-connection handle, verifies it once and runs
// schema migrations. Connection failures are returned, not retried.
func NewPostgresWriter(ctx context.Context, dsn string, logger *utils.Logger) (*PostgresWriter, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	pw := &PostgresWriter{db: db, logger: logger}
	if err := pw.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	logger.Info("[loader] Connected to PostgreSQL")

	return pw, nil
}

// Migrate creates the dimension and fact tables and seeds the dimension codes.
func (pw *PostgresWriter) Migrate(ctx context.Context) error {
	if _, err := pw.db.ExecContext(ctx, schemaSQL); err != nil {
		return err
	}
	_, err := pw.db.ExecContext(ctx, seedSQL)
	return err
}

// Write inserts every transaction inside one database transaction.
//
// Each row runs under its own savepoint: a lookup miss or a failed INSERT is
// logged, rolled back to the savepoint and counted, and the next row is tried.
// A row whose transaction_unique_id already exists is left untouched. All
// surviving inserts are committed together at the end.
func (pw *PostgresWriter) Write(ctx context.Context, txs []*models.Transaction) (*models.LoadResult, error) {
	res := &models.LoadResult{}
	if len(txs) == 0 {
		return res, nil
	}

	dims, err := pw.LoadDimensions(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := pw.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("postgres: begin: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PreparexContext(ctx, insertTransactionSQL)
	if err != nil {
		return nil, fmt.Errorf("postgres: prepare insert: %w", err)
	}
	defer stmt.Close()

	pw.logger.Info("[loader] Inserting %d transactions", len(txs))

	for _, t := range txs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res.Attempted++
		inserted, err := pw.insertRow(ctx, tx, stmt, dims, t)

		var insErr *models.InsertError
		switch {
		case errors.As(err, &insErr):
			res.Failed++
			pw.logger.Warn("[loader] %v", insErr)
		case err != nil:
			return nil, err
		case inserted:
			res.Inserted++
			pw.logger.Debug("[loader] Inserted %s", t.TransactionID)
		default:
			res.Conflicts++
			pw.logger.Debug("[loader] %s already stored, skipped", t.TransactionID)
		}

		if res.Attempted%progressEvery == 0 {
			pw.logger.Info("[loader] %d/%d rows attempted", res.Attempted, len(txs))
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("postgres: commit: %w", err)
	}
	committed = true

	pw.logger.Info("[loader] Committed: inserted %d | conflicts %d | failed %d",
		res.Inserted, res.Conflicts, res.Failed)
	return res, nil
}

// insertRow returns an *models.InsertError for row-level failures and a plain
// error when the surrounding transaction itself is no longer usable.
func (pw *PostgresWriter) insertRow(ctx context.Context, tx *sqlx.Tx, stmt *sqlx.Stmt, dims *Dimensions, t *models.Transaction) (bool, error) {
	args, err := insertArgs(dims, t)
	if err != nil {
		return false, err
	}

	if _, err := tx.ExecContext(ctx, "SAVEPOINT row_insert"); err != nil {
		return false, fmt.Errorf("postgres: savepoint: %w", err)
	}

	r, err := stmt.ExecContext(ctx, args...)
	if err != nil {
		if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT row_insert"); rbErr != nil {
			return false, fmt.Errorf("postgres: rollback to savepoint: %w", rbErr)
		}
		return false, &models.InsertError{TransactionID: t.TransactionID, Err: describe(err)}
	}

	if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT row_insert"); err != nil {
		return false, fmt.Errorf("postgres: release savepoint: %w", err)
	}

	n, err := r.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("postgres: rows affected: %w", err)
	}
	return n > 0, nil
}

func insertArgs(dims *Dimensions, t *models.Transaction) ([]any, error) {
	keys, err := dims.Resolve(t)
	if err != nil {
		return nil, &models.InsertError{TransactionID: t.TransactionID, Err: err}
	}

	return []any{
		t.TransactionID,
		t.Price,
		t.TransferDate,
		t.Postcode,
		keys.PropertyType,
		t.OldNew,
		keys.Tenure,
		nullIfEmpty(t.PAON),
		nullIfEmpty(t.SAON),
		nullIfEmpty(t.Street),
		nullIfEmpty(t.Locality),
		nullIfEmpty(t.TownCity),
		nullIfEmpty(t.District),
		nullIfEmpty(t.County),
		keys.PPDCategory,
		keys.RecordStatus,
		t.AvgPrice,
		t.Address,
	}, nil
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// describe adds the SQLSTATE name to driver errors.
func describe(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return fmt.Errorf("%s (%s): %w", pqErr.Code.Name(), pqErr.Code, err)
	}
	return err
}

// Close releases the database handle.
func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}
