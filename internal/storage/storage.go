// Package storage persists the historical price dataset.
package storage

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/maltedev/price-tracker/internal/models"
	"github.com/maltedev/price-tracker/internal/parser"
	"github.com/shopspring/decimal"
)

// ErrPersistence marks a failed write of the dataset. It is fatal for a run.
var ErrPersistence = errors.New("persistence failed")

// DatasetStore loads the historical dataset and stores the merged one.
// Save receives the full merged dataset and the run date it was merged for.
type DatasetStore interface {
	Load(ctx context.Context) (models.Dataset, error)
	Save(ctx context.Context, ds models.Dataset, date time.Time) error
}

var header = []string{"Date", "Brand", "ProductName", "Price"}

// CSVStore keeps the dataset in a single CSV file, one row per record.
type CSVStore struct {
	mu       sync.Mutex
	filename string
	locale   models.Locale
	logger   *slog.Logger
}

func NewCSVStore(filename string, locale models.Locale, logger *slog.Logger) *CSVStore {
	if locale == "" {
		locale = models.LocaleDE
	}
	return &CSVStore{
		filename: filename,
		locale:   locale,
		logger:   logger.With("component", "csv_store"),
	}
}

// Load reads the dataset. A missing file is an empty history.
func (s *CSVStore) Load(ctx context.Context) (models.Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.filename)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Info("no dataset yet, starting empty", "path", s.filename)
			return models.Dataset{}, nil
		}
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()

	ds, err := readCSV(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset %s: %w", s.filename, err)
	}

	s.logger.Debug("dataset loaded", "path", s.filename, "rows", len(ds))
	return ds, nil
}

// Save replaces the file with ds. Readers never see a partial file.
func (s *CSVStore) Save(ctx context.Context, ds models.Dataset, date time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	dir := filepath.Dir(s.filename)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.filename)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %w", ErrPersistence, err)
	}
	defer os.Remove(tmp.Name())

	if err := writeCSV(tmp, ds, s.locale); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write %s: %w", ErrPersistence, tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %w", ErrPersistence, tmp.Name(), err)
	}

	// Rename to actual file
	if err := os.Rename(tmp.Name(), s.filename); err != nil {
		return fmt.Errorf("%w: rename: %w", ErrPersistence, err)
	}

	s.logger.Info("dataset saved", "path", s.filename, "rows", len(ds), "date", models.FormatDate(date))
	return nil
}

func writeCSV(w io.Writer, ds models.Dataset, locale models.Locale) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range ds {
		row := []string{models.FormatDate(r.Date), r.Brand, r.ProductName, r.Price.Format(locale)}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// canonicalPrice matches the form Save writes: '.' as decimal separator and
// no grouping. A dot followed by exactly three digits is left to the locale
// parser, since that is how German grouping looks.
var canonicalPrice = regexp.MustCompile(`^-?\d+(?:\.(?:\d{1,2}|\d{4,}))?$`)

// parseStoredPrice reads a history cell. Canonical numbers are taken
// verbatim; anything else goes through the page price parser.
func parseStoredPrice(cell string) (models.Price, error) {
	s := strings.TrimSpace(cell)
	for _, suffix := range []string{"€", "EUR", "$", "USD"} {
		s = strings.TrimSpace(strings.TrimSuffix(s, suffix))
	}

	if canonicalPrice.MatchString(s) {
		amount, err := decimal.NewFromString(s)
		if err == nil {
			price := models.Price{Amount: amount}
			if strings.Contains(s, ".") {
				price.DecimalSep = '.'
			}
			return price, nil
		}
	}
	return parser.ParsePrice(cell)
}

func readCSV(r io.Reader) (models.Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(header)

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return models.Dataset{}, nil
	}

	ds := make(models.Dataset, 0, len(rows)-1)
	for i, row := range rows[1:] {
		line := i + 2

		date, err := models.ParseDate(row[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		price, err := parseStoredPrice(row[3])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		ds = append(ds, models.ScrapeRecord{
			Date:        date,
			Brand:       row[1],
			ProductName: row[2],
			Price:       price,
		})
	}
	return ds, nil
}
