package storage

import (
	"context"
	"database/sql"
	"fmt"

	pq "github.com/lib/pq"

	"github.com/guttosm/jpticker/internal/domain/models"
)

// TickerRepository defines the contract for the tickers table.
type TickerRepository interface {
	ListTickers(ctx context.Context) ([]models.TickerRecord, error)
	ReplaceTickers(ctx context.Context, records []models.TickerRecord) error
	Ping(ctx context.Context) error
}

type tickerRepository struct {
	db *sql.DB
}

// NewTickerRepository wraps an open *sql.DB.
func NewTickerRepository(db *sql.DB) TickerRepository {
	return &tickerRepository{db: db}
}

// Ping checks database connectivity.
func (r *tickerRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// ListTickers returns every ticker ordered by code.
func (r *tickerRepository) ListTickers(ctx context.Context) ([]models.TickerRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT code, name, kana, aliases, market, sector33, sector17
		FROM tickers
		ORDER BY code
	`)
	if err != nil {
		return nil, fmt.Errorf("query tickers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []models.TickerRecord{}
	for rows.Next() {
		var (
			rec      models.TickerRecord
			kana     sql.NullString
			market   sql.NullString
			sector33 sql.NullString
			sector17 sql.NullString
			aliases  pq.StringArray
		)
		if err := rows.Scan(&rec.Code, &rec.Name, &kana, &aliases, &market, &sector33, &sector17); err != nil {
			return nil, fmt.Errorf("scan ticker: %w", err)
		}
		rec.Kana = kana.String
		rec.Aliases = []string(aliases)
		rec.Market = market.String
		rec.Sector33 = sector33.String
		rec.Sector17 = sector17.String
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tickers: %w", err)
	}
	return out, nil
}

// ReplaceTickers swaps the whole table content in a single transaction.
func (r *tickerRepository) ReplaceTickers(ctx context.Context, records []models.TickerRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM tickers`); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear tickers: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(
		"tickers",
		"code",
		"name",
		"kana",
		"aliases",
		"market",
		"sector33",
		"sector17",
	))
	if err != nil {
		_ = tx.Rollback()
		return err
	}

	for _, rec := range records {
		aliases := rec.Aliases
		if aliases == nil {
			// a nil array is copied as NULL, which the column rejects
			aliases = []string{}
		}
		if _, err := stmt.ExecContext(ctx,
			rec.Code,
			rec.Name,
			rec.Kana,
			pq.Array(aliases),
			rec.Market,
			rec.Sector33,
			rec.Sector17,
		); err != nil {
			_ = stmt.Close()
			_ = tx.Rollback()
			return fmt.Errorf("copy ticker %s: %w", rec.Code, err)
		}
	}

	if _, err := stmt.ExecContext(ctx); err != nil {
		_ = stmt.Close()
		_ = tx.Rollback()
		return err
	}
	if err := stmt.Close(); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}
