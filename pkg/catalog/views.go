package catalog

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"lamarkesa/pkg/domain"
)

// Sort keys accepted by FilteredAndSorted.
const (
	SortNewest    = "newest"
	SortOldest    = "oldest"
	SortPriceHigh = "price-high"
	SortPriceLow  = "price-low"
	SortName      = "name"
)

// Stats aggregates the item list. Missing prices count as zero; the average
// is zero for an empty list.
func Stats(items []domain.Item) domain.Stats {
	total := len(items)
	var totalValue float64
	for _, item := range items {
		totalValue += item.Price
	}
	avg := 0.0
	if total > 0 {
		avg = totalValue / float64(total)
	}
	return domain.Stats{Total: total, TotalValue: totalValue, AvgPrice: avg}
}

// FilteredAndSorted derives the UI-facing view of the list. It never
// mutates its input: filters and sorts operate on a copy.
//
// Search matches case-insensitively against name or SKU; category is an
// exact match; both compose as AND. An unknown sort key keeps the incoming
// order.
func FilteredAndSorted(items []domain.Item, search, category, sortBy string) []domain.Item {
	out := make([]domain.Item, 0, len(items))
	search = strings.ToLower(strings.TrimSpace(search))
	for _, item := range items {
		if search != "" &&
			!strings.Contains(strings.ToLower(item.Name), search) &&
			!strings.Contains(strings.ToLower(item.SKU), search) {
			continue
		}
		if category != "" && item.Category != category {
			continue
		}
		out = append(out, item)
	}

	switch sortBy {
	case SortNewest:
		sort.SliceStable(out, func(i, j int) bool {
			return createdMillis(out[i]) > createdMillis(out[j])
		})
	case SortOldest:
		sort.SliceStable(out, func(i, j int) bool {
			return createdMillis(out[i]) < createdMillis(out[j])
		})
	case SortPriceHigh:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Price > out[j].Price
		})
	case SortPriceLow:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Price < out[j].Price
		})
	case SortName:
		c := collate.New(language.English, collate.Loose)
		sort.SliceStable(out, func(i, j int) bool {
			return c.CompareString(out[i].Name, out[j].Name) < 0
		})
	}
	return out
}

// createdMillis treats a missing timestamp as zero so unset items sort to
// the oldest end, matching the price handling.
func createdMillis(item domain.Item) int64 {
	if item.CreatedAt.IsZero() {
		return 0
	}
	return item.CreatedAt.UnixMilli()
}
