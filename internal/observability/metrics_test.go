package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/danmuck/binstruct/internal/testutil/testlog"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	testlog.Start(t)
	RegisterMetrics()
	RegisterMetrics()

	RecordCodec("Probe", OpParse, 12, 3*time.Microsecond, nil)
	RecordCodec("Probe", OpParse, 0, time.Microsecond, errors.New("short"))
	RecordTrailing("Probe", 2)

	if got := testutil.ToFloat64(codecOperations.WithLabelValues("Probe", OpParse, "ok")); got != 1 {
		t.Fatalf("ok counter got=%v", got)
	}
	if got := testutil.ToFloat64(codecBytes.WithLabelValues("Probe", OpParse)); got != 12 {
		t.Fatalf("bytes counter got=%v", got)
	}
	if got := testutil.ToFloat64(trailingBytes.WithLabelValues("Probe")); got != 2 {
		t.Fatalf("trailing counter got=%v", got)
	}
}
