package obs_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/foodflow/pos-api/internal/obs"
)

func TestParseBucketsCSV(t *testing.T) {
	if got := obs.ParseBucketsCSV(""); got != nil {
		t.Fatalf("expected nil for empty input, got %v", got)
	}
	got := obs.ParseBucketsCSV(" 5, 25 , bad, -1, 0, 100 ")
	want := []float64{5, 25, 100}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestNewHTTPMetricsReusesExistingCollectors(t *testing.T) {
	registry := prometheus.NewRegistry()
	first := obs.NewHTTPMetrics("pos", nil, registry)
	second := obs.NewHTTPMetrics("pos", nil, registry)

	if first.ReqTotal != second.ReqTotal {
		t.Fatal("expected request counter to be reused on double registration")
	}
	if first.ReqDur != second.ReqDur {
		t.Fatal("expected latency histogram to be reused on double registration")
	}
}
