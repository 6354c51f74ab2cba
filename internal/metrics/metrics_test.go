package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"triage/internal/faults"
)

func value(t *testing.T, m prometheus.Metric) float64 {
	t.Helper()
	var out dto.Metric
	if err := m.Write(&out); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	switch {
	case out.Counter != nil:
		return out.GetCounter().GetValue()
	case out.Gauge != nil:
		return out.GetGauge().GetValue()
	case out.Histogram != nil:
		return float64(out.GetHistogram().GetSampleCount())
	}
	t.Fatal("unsupported metric type")
	return 0
}

func TestMoveLabelsSuccess(t *testing.T) {
	before := value(t, movesTotal.WithLabelValues("reject", "success"))
	Move("reject", faults.KindNone)
	if got := value(t, movesTotal.WithLabelValues("reject", "success")); got != before+1 {
		t.Fatalf("success counter = %v, want %v", got, before+1)
	}

	Move("restore", faults.KindNotFound)
	if got := value(t, movesTotal.WithLabelValues("restore", "not_found")); got < 1 {
		t.Fatalf("not_found counter = %v", got)
	}
}

func TestScanRecordsGaugeAndDuration(t *testing.T) {
	before := value(t, scanDuration)
	Scan(42, time.Second)
	if got := value(t, scanCandidates); got != 42 {
		t.Fatalf("gauge = %v, want 42", got)
	}
	if got := value(t, scanDuration); got != before+1 {
		t.Fatalf("duration samples = %v, want %v", got, before+1)
	}
}

func TestDecisionCounter(t *testing.T) {
	before := value(t, decisionsTotal.WithLabelValues("keep", "image"))
	Decision("keep", "image")
	if got := value(t, decisionsTotal.WithLabelValues("keep", "image")); got != before+1 {
		t.Fatalf("decision counter = %v", got)
	}
}
