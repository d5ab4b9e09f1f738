package scraper

import (
	"errors"
	"fmt"

	"github.com/maltedev/price-tracker/internal/models"
)

var (
	ErrNavigation         = errors.New("navigation failed")
	ErrElementNotFound    = errors.New("price element not found")
	ErrPriceUnparseable   = errors.New("price text unparseable")
	ErrSessionUnavailable = errors.New("browser session unavailable")
	ErrUnexpected         = errors.New("unexpected fetch fault")
	ErrCancelled          = errors.New("fetch cancelled")
)

var reasons = map[error]models.FailureReason{
	ErrNavigation:         models.ReasonNavigation,
	ErrElementNotFound:    models.ReasonElementNotFound,
	ErrPriceUnparseable:   models.ReasonPriceUnparseable,
	ErrSessionUnavailable: models.ReasonSessionUnavailable,
	ErrUnexpected:         models.ReasonUnexpected,
	ErrCancelled:          models.ReasonCancelled,
}

// FetchError is the classified failure of one catalog entry.
type FetchError struct {
	Reason models.FailureReason
	Err    error
}

func (e *FetchError) Error() string {
	return e.Err.Error()
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// fail wraps cause under the given sentinel so errors.Is matches both.
func fail(sentinel, cause error) *FetchError {
	err := sentinel
	if cause != nil {
		err = fmt.Errorf("%w: %w", sentinel, cause)
	}
	return &FetchError{Reason: reasons[sentinel], Err: err}
}

// ReasonOf classifies err; anything unclassified counts as unexpected.
func ReasonOf(err error) models.FailureReason {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Reason
	}
	for sentinel, reason := range reasons {
		if errors.Is(err, sentinel) {
			return reason
		}
	}
	return models.ReasonUnexpected
}

// Failure turns a fetch error into the report row for entry.
func Failure(entry models.ProductEntry, err error) models.FailureRecord {
	return models.FailureRecord{
		Brand:       entry.Brand,
		ProductName: entry.ProductName,
		Reason:      ReasonOf(err),
		Message:     err.Error(),
	}
}
