package catalog

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"lamarkesa/pkg/domain"
)

func TestExportCSVEmpty(t *testing.T) {
	if _, err := ExportCSV(nil); err != ErrNoItems {
		t.Fatalf("expected ErrNoItems, got %v", err)
	}
}

func TestExportCSV(t *testing.T) {
	items := []domain.Item{
		{ID: "1", Name: "Gold Ring", Price: 150, Category: "rings", SKU: "GR-01",
			CreatedAt: time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC)},
		{ID: "2", Name: `Say "Yes"`, Price: 99.5, Category: "other", SKU: ""},
	}
	out, err := ExportCSV(items)
	if err != nil {
		t.Fatalf("export csv: %v", err)
	}
	lines := strings.Split(out, "\n")
	if len(lines) != len(items)+1 {
		t.Fatalf("expected %d lines, got %d", len(items)+1, len(lines))
	}
	if lines[0] != "Name,Category,Price,SKU,Date" {
		t.Fatalf("unexpected header %q", lines[0])
	}
	if lines[1] != `"Gold Ring",rings,150,GR-01,3/5/2026` {
		t.Fatalf("unexpected row %q", lines[1])
	}
	// Only the name is quoted; embedded quotes are doubled; empty date stays empty.
	if lines[2] != `"Say ""Yes""",other,99.5,,` {
		t.Fatalf("unexpected row %q", lines[2])
	}
}

func TestExportJSONEmpty(t *testing.T) {
	if _, err := ExportJSON(nil); err != ErrNoItems {
		t.Fatalf("expected ErrNoItems, got %v", err)
	}
}

func TestExportJSONStripsIDAndRoundTrips(t *testing.T) {
	created := time.Date(2026, 3, 5, 10, 30, 0, 0, time.UTC)
	items := []domain.Item{
		{ID: "secret-id", Name: "Gold Ring", Price: 150, Category: "rings", SKU: "GR-01", Image: "http://minio.local:9000/b/k.jpg", CreatedAt: created},
		{ID: "another-id", Name: "Watch", Category: "watches"},
	}
	out, err := ExportJSON(items)
	if err != nil {
		t.Fatalf("export json: %v", err)
	}
	if strings.Contains(string(out), `"id"`) {
		t.Fatalf("export must not contain the id key: %s", out)
	}
	if !strings.Contains(string(out), "\n  {") {
		t.Fatalf("expected 2-space indented output")
	}

	var parsed []map[string]any
	if err := json.Unmarshal(out, &parsed); err != nil {
		t.Fatalf("re-parse export: %v", err)
	}
	if len(parsed) != 2 {
		t.Fatalf("expected 2 records, got %d", len(parsed))
	}
	first := parsed[0]
	if first["name"] != "Gold Ring" || first["price"] != 150.0 || first["category"] != "rings" || first["sku"] != "GR-01" {
		t.Fatalf("field values lost in round trip: %+v", first)
	}
	iso, ok := first["createdAt"].(string)
	if !ok {
		t.Fatalf("createdAt should be an ISO string, got %T", first["createdAt"])
	}
	got, err := time.Parse(time.RFC3339Nano, iso)
	if err != nil || !got.Equal(created) {
		t.Fatalf("createdAt round trip: %v (%v)", iso, err)
	}
	if parsed[1]["createdAt"] != nil {
		t.Fatalf("missing timestamp should render as null, got %v", parsed[1]["createdAt"])
	}
}
