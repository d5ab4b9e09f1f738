// Package dataset reconciles a run's prices with the price history.
package dataset

import (
	"cmp"
	"slices"
	"time"

	"github.com/maltedev/price-tracker/internal/models"
)

// Merge replaces every historical row dated date with fresh and returns a
// new dataset sorted by date descending, then brand and product ascending.
// historical is left untouched. When fresh holds the same brand/product
// twice, the later row wins. Merging the same batch twice is a no-op.
func Merge(historical models.Dataset, fresh []models.ScrapeRecord, date time.Time) models.Dataset {
	day := models.Day(date)

	merged := make(models.Dataset, 0, len(historical)+len(fresh))
	for _, r := range historical {
		if !models.Day(r.Date).Equal(day) {
			merged = append(merged, r)
		}
	}

	type key struct{ brand, product string }
	latest := make(map[key]int, len(fresh))
	for i, r := range fresh {
		latest[key{r.Brand, r.ProductName}] = i
	}
	for i, r := range fresh {
		if latest[key{r.Brand, r.ProductName}] != i {
			continue
		}
		r.Date = day
		merged = append(merged, r)
	}

	Sort(merged)
	return merged
}

// Sort orders rows newest first, ties by brand then product name.
func Sort(rows models.Dataset) {
	slices.SortStableFunc(rows, func(a, b models.ScrapeRecord) int {
		if c := models.Day(b.Date).Compare(models.Day(a.Date)); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Brand, b.Brand); c != 0 {
			return c
		}
		return cmp.Compare(a.ProductName, b.ProductName)
	})
}
