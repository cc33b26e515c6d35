package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"lamarkesa/pkg/domain"
)

// ErrNoItems is returned by the exporters for an empty list; the HTTP layer
// maps it to an empty response.
var ErrNoItems = errors.New("no items to export")

var csvHeader = []string{"Name", "Category", "Price", "SKU", "Date"}

// ExportCSV renders the list as CSV. Only the Name column is quoted; dates
// use the en-US short form and stay empty when unset.
func ExportCSV(items []domain.Item) (string, error) {
	if len(items) == 0 {
		return "", ErrNoItems
	}
	lines := make([]string, 0, len(items)+1)
	lines = append(lines, strings.Join(csvHeader, ","))
	for _, item := range items {
		row := []string{
			`"` + strings.ReplaceAll(item.Name, `"`, `""`) + `"`,
			item.Category,
			strconv.FormatFloat(item.Price, 'f', -1, 64),
			item.SKU,
			localeDate(item.CreatedAt),
		}
		lines = append(lines, strings.Join(row, ","))
	}
	return strings.Join(lines, "\n"), nil
}

type exportRecord struct {
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Category  string  `json:"category"`
	SKU       string  `json:"sku"`
	Image     string  `json:"image,omitempty"`
	CreatedAt *string `json:"createdAt"`
}

// ExportJSON renders the list as a pretty-printed array. Identifiers are
// stripped and timestamps become ISO-8601 strings, null when unset.
func ExportJSON(items []domain.Item) ([]byte, error) {
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	records := make([]exportRecord, 0, len(items))
	for _, item := range items {
		rec := exportRecord{
			Name:     item.Name,
			Price:    item.Price,
			Category: item.Category,
			SKU:      item.SKU,
			Image:    item.Image,
		}
		if !item.CreatedAt.IsZero() {
			iso := item.CreatedAt.UTC().Format(time.RFC3339Nano)
			rec.CreatedAt = &iso
		}
		records = append(records, rec)
	}
	return json.MarshalIndent(records, "", "  ")
}

// localeDate matches the en-US short date form: no leading zeros.
func localeDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	t = t.UTC()
	return fmt.Sprintf("%d/%d/%d", int(t.Month()), t.Day(), t.Year())
}
