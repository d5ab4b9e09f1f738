// Package catalog loads the list of products to track.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/maltedev/price-tracker/internal/models"
	"gopkg.in/yaml.v3"
)

// ErrInvalid wraps every validation problem found in a catalog file.
var ErrInvalid = errors.New("invalid catalog")

type document struct {
	Products []entry `yaml:"products" validate:"required,min=1,dive"`
}

type entry struct {
	Brand           string   `yaml:"brand" validate:"required"`
	ProductName     string   `yaml:"product_name" validate:"required"`
	Website         string   `yaml:"website" validate:"required,http_url"`
	ConsentLocators []string `yaml:"consent_locators"`
	PriceLocator    string   `yaml:"price_locator" validate:"required"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// FileSource reads the catalog from a YAML file on every Load, so edits
// are picked up by the next run.
type FileSource struct {
	path   string
	logger *slog.Logger
}

func NewFileSource(path string, logger *slog.Logger) *FileSource {
	return &FileSource{path: path, logger: logger.With("component", "catalog")}
}

func (s *FileSource) Load(ctx context.Context) ([]models.ProductEntry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	entries, err := Parse(data, s.logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}

	s.logger.Info("catalog loaded", "path", s.path, "entries", len(entries))
	return entries, nil
}

// Parse decodes and validates a catalog document. Blank consent locators
// are dropped; duplicate (brand, product) pairs are kept but logged.
func Parse(data []byte, logger *slog.Logger) ([]models.ProductEntry, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	if err := validate.Struct(doc); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
		}
		msgs := make([]string, 0, len(verrs))
		for _, e := range verrs {
			msgs = append(msgs, fieldPath(e)+" "+formatValidationError(e))
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
	}

	seen := make(map[[2]string]int, len(doc.Products))
	entries := make([]models.ProductEntry, 0, len(doc.Products))
	for i, e := range doc.Products {
		key := [2]string{e.Brand, e.ProductName}
		if first, ok := seen[key]; ok {
			logger.Warn("duplicate catalog entry, the later one wins",
				"brand", e.Brand, "product", e.ProductName, "first", first, "duplicate", i)
		} else {
			seen[key] = i
		}

		entries = append(entries, models.ProductEntry{
			Brand:           e.Brand,
			ProductName:     e.ProductName,
			WebsiteURL:      e.Website,
			ConsentLocators: nonBlank(e.ConsentLocators),
			PriceLocator:    strings.TrimSpace(e.PriceLocator),
		})
	}
	return entries, nil
}

func nonBlank(locators []string) []string {
	var out []string
	for _, l := range locators {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

// fieldPath drops the root struct name: "products[2].website".
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must have at least %s entry", e.Param())
	case "http_url":
		return "must be an http(s) URL"
	default:
		return fmt.Sprintf("failed validation '%s'", e.Tag())
	}
}
