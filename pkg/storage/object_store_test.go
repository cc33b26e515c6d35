package storage

import "testing"

func TestKeyFromURLRoundTrip(t *testing.T) {
	m := &MinioStore{bucket: "lamarkesa", endpoint: "minio.local:9000"}
	url := m.URLFor("jewelry/item-1/ring.jpg")
	key, ok := m.KeyFromURL(url)
	if !ok {
		t.Fatalf("expected URL %q to map back to a key", url)
	}
	if key != "jewelry/item-1/ring.jpg" {
		t.Fatalf("unexpected key %q", key)
	}
}

func TestKeyFromURLRejectsForeignHosts(t *testing.T) {
	m := &MinioStore{bucket: "lamarkesa", endpoint: "minio.local:9000"}
	cases := []string{
		"https://example.com/lamarkesa/jewelry/item-1/ring.jpg",
		"http://minio.local:9000/otherbucket/jewelry/item-1/ring.jpg",
		"http://minio.local:9000/lamarkesa/",
		"not a url",
		"",
	}
	for _, raw := range cases {
		if _, ok := m.KeyFromURL(raw); ok {
			t.Fatalf("expected %q to be rejected", raw)
		}
	}
}

func TestKeyFromURLUnescapesPath(t *testing.T) {
	m := &MinioStore{bucket: "lamarkesa", endpoint: "minio.local:9000"}
	key, ok := m.KeyFromURL("http://minio.local:9000/lamarkesa/jewelry/item-1/gold%20ring.jpg")
	if !ok || key != "jewelry/item-1/gold ring.jpg" {
		t.Fatalf("unexpected key %q ok=%v", key, ok)
	}
}
