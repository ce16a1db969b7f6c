package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSanitizeSite(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"standard http", "http://hotel.example.no/path", "hotel.example.no"},
		{"standard https", "https://Hotel.Example.no/path", "hotel.example.no"},
		{"no scheme", "example.no/path", "example.no"},
		{"host with port", "example.no:8080", "example.no"},
		{"invalid url", "http://%", "unknown"},
		{"empty string", "", "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeSite(tc.input); got != tc.expected {
				t.Errorf("SanitizeSite(%q) = %q; want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestObserveTarget(t *testing.T) {
	Init()
	Init()

	before := testutil.ToFloat64(targetsTotal.WithLabelValues("scored"))
	ObserveTarget("scored", true, 42)
	ObserveTarget("timeout", false, 0)
	if val := testutil.ToFloat64(targetsTotal.WithLabelValues("scored")); val != before+1 {
		t.Errorf("Expected seoscan_targets_total{outcome=scored} to be %f, got %f", before+1, val)
	}
	if val := testutil.CollectAndCount(seoScore); val != 1 {
		t.Errorf("Expected one score histogram, got %d", val)
	}
}

func TestObserveFetchAndRegistry(t *testing.T) {
	ObserveFetch("ok", 120*time.Millisecond, 2048)
	ObserveRegistryPage("ok")
	ObserveScan("complete")
	IncActiveScans()
	DecActiveScans()

	if val := testutil.ToFloat64(fetchBytesTotal); val < 2048 {
		t.Errorf("Expected fetch bytes >= 2048, got %f", val)
	}
	if val := testutil.ToFloat64(activeScans); val != 0 {
		t.Errorf("Expected active scans gauge to be 0, got %f", val)
	}
}

// Fuzz test for SanitizeSite.
func FuzzSanitizeSite(f *testing.F) {
	testcases := []string{"http://example.no", "https://hotel.no", "ftp://example.com"}
	for _, tc := range testcases {
		f.Add(tc)
	}
	f.Fuzz(func(t *testing.T, orig string) {
		sanitized := SanitizeSite(orig)
		if sanitized == "" {
			t.Errorf("SanitizeSite(%q) returned an empty string", orig)
		}
	})
}
