package models

import (
	"time"
)

// ProductEntry is one catalog line: where to look and what to click.
type ProductEntry struct {
	Brand           string   `json:"brand"`
	ProductName     string   `json:"product_name"`
	WebsiteURL      string   `json:"website"`
	ConsentLocators []string `json:"consent_locators,omitempty"`
	PriceLocator    string   `json:"price_locator"`
}

// ScrapeRecord is a single observed price for a product on a given day.
type ScrapeRecord struct {
	Date        time.Time `json:"date"`
	Brand       string    `json:"brand"`
	ProductName string    `json:"product_name"`
	Price       Price     `json:"price"`
}

// FailureReason classifies why an entry produced no price.
type FailureReason string

const (
	ReasonElementNotFound    FailureReason = "element_not_found"
	ReasonPriceUnparseable   FailureReason = "price_unparseable"
	ReasonNavigation         FailureReason = "navigation_error"
	ReasonSessionUnavailable FailureReason = "session_unavailable"
	ReasonUnexpected         FailureReason = "unexpected"
	ReasonCancelled          FailureReason = "cancelled"
)

type FailureRecord struct {
	Brand       string        `json:"brand"`
	ProductName string        `json:"product_name"`
	Reason      FailureReason `json:"reason"`
	Message     string        `json:"message,omitempty"`
}

// Dataset is the historical price table, ordered by the merger.
type Dataset []ScrapeRecord

// ForDate returns the rows recorded for the given day.
func (d Dataset) ForDate(date time.Time) []ScrapeRecord {
	day := Day(date)

	var rows []ScrapeRecord
	for _, r := range d {
		if Day(r.Date).Equal(day) {
			rows = append(rows, r)
		}
	}
	return rows
}

// Dates returns the distinct days present, in dataset order.
func (d Dataset) Dates() []time.Time {
	seen := make(map[time.Time]struct{})

	var dates []time.Time
	for _, r := range d {
		day := Day(r.Date)
		if _, ok := seen[day]; ok {
			continue
		}
		seen[day] = struct{}{}
		dates = append(dates, day)
	}
	return dates
}
