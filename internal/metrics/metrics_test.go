// file: internal/metrics/metrics_test.go
// version: 2.0.0
// guid: 7a8b9c0d-1e2f-3a4b-5c6d-7e8f9a0b1c2d

package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestIncFilesScanned(t *testing.T) {
	before := testutil.ToFloat64(filesScanned.WithLabelValues("matched"))
	IncFilesScanned("matched")
	if got := testutil.ToFloat64(filesScanned.WithLabelValues("matched")); got != before+1 {
		t.Errorf("files_scanned_total{matched} = %v, want %v", got, before+1)
	}
}

func TestIncCatalogRequest(t *testing.T) {
	before := testutil.ToFloat64(catalogRequests.WithLabelValues("ok"))
	IncCatalogRequest("ok")
	if got := testutil.ToFloat64(catalogRequests.WithLabelValues("ok")); got != before+1 {
		t.Errorf("catalog_requests_total{ok} = %v, want %v", got, before+1)
	}
}

func TestIncBatchDecision(t *testing.T) {
	before := testutil.ToFloat64(batchDecisions.WithLabelValues("true"))
	IncBatchDecision(true)
	if got := testutil.ToFloat64(batchDecisions.WithLabelValues("true")); got != before+1 {
		t.Errorf("batch_decisions_total{true} = %v, want %v", got, before+1)
	}
}

func TestObservers(t *testing.T) {
	ObserveConfidence(0.85)
	ObserveScanDuration(150 * time.Millisecond)
	SetCatalogEntries(12)
	if got := testutil.ToFloat64(catalogEntries); got != 12 {
		t.Errorf("catalog_entries = %v, want 12", got)
	}
}

func TestWriteFile(t *testing.T) {
	IncFilesScanned("unmatched")
	path := filepath.Join(t.TempDir(), "metrics.prom")
	if err := WriteFile(path); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read metrics file: %v", err)
	}
	if !strings.Contains(string(data), "anime_organizer_files_scanned_total") {
		t.Errorf("metrics file missing files_scanned_total:\n%s", data)
	}
}
