package storage

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/maltedev/price-tracker/internal/models"
	"github.com/maltedev/price-tracker/internal/parser"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(t *testing.T, date, brand, product, price string) models.ScrapeRecord {
	t.Helper()
	d, err := models.ParseDate(date)
	require.NoError(t, err)
	p, err := parser.ParsePrice(price)
	require.NoError(t, err)
	return models.ScrapeRecord{Date: d, Brand: brand, ProductName: product, Price: p}
}

func TestCSVStoreMissingFile(t *testing.T) {
	store := NewCSVStore(filepath.Join(t.TempDir(), "prices.csv"), models.LocaleDE, slog.Default())

	ds, err := store.Load(context.Background())

	require.NoError(t, err)
	assert.Empty(t, ds)
}

func TestCSVStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "prices.csv")
	store := NewCSVStore(path, models.LocaleDE, slog.Default())

	ds := models.Dataset{
		record(t, "02.01.2025", "A", "X", "1.234,56 €"),
		record(t, "02.01.2025", "B", "Quote, \"special\"", "49,99"),
		record(t, "01.01.2025", "A", "X", "1,199.00"),
		record(t, "01.01.2025", "C", "Z", "15"),
	}
	date, _ := models.ParseDate("02.01.2025")

	require.NoError(t, store.Save(ctx, ds, date))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, len(ds))
	for i := range ds {
		assert.True(t, ds[i].Date.Equal(loaded[i].Date))
		assert.Equal(t, ds[i].Brand, loaded[i].Brand)
		assert.Equal(t, ds[i].ProductName, loaded[i].ProductName)
		assert.True(t, ds[i].Price.Equal(loaded[i].Price), "row %d: %s != %s", i, ds[i].Price, loaded[i].Price)
	}

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Date,Brand,ProductName,Price\n")
	assert.Contains(t, string(raw), `02.01.2025,A,X,"1.234,56"`)
	assert.Contains(t, string(raw), `01.01.2025,A,X,"1.199,00"`)
}

func TestCSVStoreEnglishLocale(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "prices.csv")
	store := NewCSVStore(path, models.LocaleEN, slog.Default())

	ds := models.Dataset{record(t, "02.01.2025", "A", "X", "1.234,56")}
	require.NoError(t, store.Save(ctx, ds, ds[0].Date))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `02.01.2025,A,X,"1,234.56"`)
}

func TestCSVStoreAcceptsCurrencySuffix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices.csv")
	content := "Date,Brand,ProductName,Price\n01.01.2025,A,X,\"49,99 €\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	ds, err := NewCSVStore(path, models.LocaleDE, slog.Default()).Load(context.Background())

	require.NoError(t, err)
	require.Len(t, ds, 1)
	assert.Equal(t, "49.99", ds[0].Price.String())
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), ds[0].Date)
}

func TestCSVStoreLoadsNumericPrices(t *testing.T) {
	tests := []struct {
		cell   string
		want   string
		amount string
	}{
		{"49.9", "49.90", "49.9"},
		{"45.0", "45.00", "45"},
		{"1234.5", "1234.50", "1234.5"},
		{"1234.56", "1234.56", "1234.56"},
		{"19", "19", "19"},
		{"49.9 €", "49.90", "49.9"},
		{"1.234,56", "1234.56", "1234.56"},
		{"1.234", "1234", "1234"},
	}

	for _, tt := range tests {
		t.Run(tt.cell, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "prices.csv")
			content := "Date,Brand,ProductName,Price\n01.01.2025,A,X,\"" + tt.cell + "\"\n"
			require.NoError(t, os.WriteFile(path, []byte(content), 0644))

			ds, err := NewCSVStore(path, models.LocaleDE, slog.Default()).Load(context.Background())

			require.NoError(t, err)
			require.Len(t, ds, 1)
			assert.Equal(t, tt.want, ds[0].Price.String())
			assert.True(t, ds[0].Price.Amount.Equal(decimal.RequireFromString(tt.amount)),
				"got %s", ds[0].Price.Amount)
		})
	}
}

func TestCSVStoreRejectsBadRows(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"bad date", "Date,Brand,ProductName,Price\n2025-01-01,A,X,1\n", "line 2"},
		{"bad price", "Date,Brand,ProductName,Price\n01.01.2025,A,X,n/a\n", "line 2"},
		{"wrong column count", "Date,Brand,ProductName,Price\n01.01.2025,A,X\n", "wrong number of fields"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "prices.csv")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			_, err := NewCSVStore(path, models.LocaleDE, slog.Default()).Load(context.Background())

			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestCSVStoreSaveFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "prices.csv")
	store := NewCSVStore(path, models.LocaleDE, slog.Default())

	err := store.Save(context.Background(), models.Dataset{}, time.Now())

	assert.ErrorIs(t, err, ErrPersistence)
}

func TestCSVStoreSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewCSVStore(filepath.Join(dir, "prices.csv"), models.LocaleDE, slog.Default())

	require.NoError(t, store.Save(context.Background(), models.Dataset{record(t, "01.01.2025", "A", "X", "1,00")}, time.Now()))
	require.NoError(t, store.Save(context.Background(), models.Dataset{}, time.Now()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "prices.csv", entries[0].Name())
}
