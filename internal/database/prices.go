package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/maltedev/price-tracker/internal/models"
	"github.com/maltedev/price-tracker/internal/parser"
	"github.com/maltedev/price-tracker/internal/storage"
)

const pricesSchema = `
CREATE TABLE IF NOT EXISTS prices (
    scrape_date  DATE          NOT NULL,
    brand        TEXT          NOT NULL,
    product_name TEXT          NOT NULL,
    price        NUMERIC(14,2) NOT NULL,
    price_text   TEXT          NOT NULL,
    created_at   TIMESTAMPTZ   NOT NULL DEFAULT NOW(),
    PRIMARY KEY (scrape_date, brand, product_name)
);
CREATE INDEX IF NOT EXISTS idx_prices_brand_product ON prices (brand, product_name);
`

// PriceRepository stores the dataset in the prices table. It satisfies
// storage.DatasetStore.
type PriceRepository struct {
	db     *DB
	locale models.Locale
	logger *slog.Logger
}

var _ storage.DatasetStore = (*PriceRepository)(nil)

func NewPriceRepository(db *DB, locale models.Locale, logger *slog.Logger) *PriceRepository {
	if locale == "" {
		locale = models.LocaleDE
	}
	return &PriceRepository{
		db:     db,
		locale: locale,
		logger: logger.With("component", "price_repository"),
	}
}

// EnsureSchema creates the prices table when it does not exist yet.
func (r *PriceRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.pool.Exec(ctx, pricesSchema); err != nil {
		return fmt.Errorf("failed to create prices schema: %w", err)
	}
	return nil
}

func (r *PriceRepository) Load(ctx context.Context) (models.Dataset, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT scrape_date, brand, product_name, price_text
		FROM prices
		ORDER BY scrape_date DESC, brand, product_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query prices: %w", err)
	}

	ds, err := pgx.CollectRows(rows, scanRecord)
	if err != nil {
		return nil, fmt.Errorf("failed to scan prices: %w", err)
	}
	return models.Dataset(ds), nil
}

// ForDate returns the rows recorded for one date.
func (r *PriceRepository) ForDate(ctx context.Context, date time.Time) (models.Dataset, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT scrape_date, brand, product_name, price_text
		FROM prices
		WHERE scrape_date = $1
		ORDER BY brand, product_name`, models.Day(date))
	if err != nil {
		return nil, fmt.Errorf("failed to query prices: %w", err)
	}

	ds, err := pgx.CollectRows(rows, scanRecord)
	if err != nil {
		return nil, fmt.Errorf("failed to scan prices: %w", err)
	}
	return models.Dataset(ds), nil
}

// Save replaces the rows of date with the ones ds holds for that date.
// Rows of other dates are already in the table and are left alone.
func (r *PriceRepository) Save(ctx context.Context, ds models.Dataset, date time.Time) error {
	day := models.Day(date)
	fresh := ds.ForDate(day)

	err := r.db.Transaction(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM prices WHERE scrape_date = $1`, day); err != nil {
			return fmt.Errorf("delete rows of %s: %w", models.FormatDate(day), err)
		}

		batch := &pgx.Batch{}
		for _, rec := range fresh {
			batch.Queue(`
				INSERT INTO prices (scrape_date, brand, product_name, price, price_text)
				VALUES ($1, $2, $3, $4::numeric, $5)`,
				day, rec.Brand, rec.ProductName, rec.Price.Amount.String(), rec.Price.Format(r.locale))
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert rows: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrPersistence, err)
	}

	r.logger.Info("prices saved", "date", models.FormatDate(day), "rows", len(fresh))
	return nil
}

func scanRecord(row pgx.CollectableRow) (models.ScrapeRecord, error) {
	var (
		rec       models.ScrapeRecord
		priceText string
	)
	if err := row.Scan(&rec.Date, &rec.Brand, &rec.ProductName, &priceText); err != nil {
		return rec, err
	}

	price, err := parser.ParsePrice(priceText)
	if err != nil {
		return rec, err
	}
	rec.Date = models.Day(rec.Date)
	rec.Price = price
	return rec, nil
}
