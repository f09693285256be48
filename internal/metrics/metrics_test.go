package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveScan(t *testing.T) {
	ScansTotal.Reset()
	RowsTotal.Reset()

	ObserveScan("items", 0.01, 5, nil)
	ObserveScan("items", 0.02, 0, errors.New("boom"))

	if v := testutil.ToFloat64(ScansTotal.WithLabelValues("items", "success")); v != 1 {
		t.Errorf("expected 1 successful scan, got %f", v)
	}
	if v := testutil.ToFloat64(ScansTotal.WithLabelValues("items", "error")); v != 1 {
		t.Errorf("expected 1 failed scan, got %f", v)
	}
	if v := testutil.ToFloat64(RowsTotal.WithLabelValues("items")); v != 5 {
		t.Errorf("expected 5 rows, got %f", v)
	}
}

func TestObservePushdown(t *testing.T) {
	PushdownTotal.Reset()

	tests := []struct {
		pushed, exact bool
		result        string
	}{
		{true, true, "full"},
		{true, false, "partial"},
		{false, false, "none"},
	}
	for _, tt := range tests {
		t.Run(tt.result, func(t *testing.T) {
			ObservePushdown("items", tt.pushed, tt.exact)
			if v := testutil.ToFloat64(PushdownTotal.WithLabelValues("items", tt.result)); v != 1 {
				t.Errorf("expected 1 %s pushdown, got %f", tt.result, v)
			}
		})
	}
}

func TestClientCacheMetrics(t *testing.T) {
	ClientCacheOps.Reset()

	IncClientCache("hit")
	IncClientCache("hit")
	IncClientCache("miss")
	SetClientCacheSize(3)

	if v := testutil.ToFloat64(ClientCacheOps.WithLabelValues("hit")); v != 2 {
		t.Errorf("expected 2 hits, got %f", v)
	}
	if v := testutil.ToFloat64(ClientCacheSize); v != 3 {
		t.Errorf("expected cache size 3, got %f", v)
	}
}
