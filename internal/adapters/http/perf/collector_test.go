package perf

import (
	"sync"
	"testing"
	"time"
)

// TestCollector_Snapshot verifies aggregation across kinds.
func TestCollector_Snapshot(t *testing.T) {
	c := NewCollector(100)
	now := time.Now()

	c.Record(Entry{Kind: KindRequest, Key: "GET /api/bookings", StatusCode: 200, DurationMs: 10, At: now})
	c.Record(Entry{Kind: KindRequest, Key: "GET /api/bookings", StatusCode: 500, DurationMs: 30, At: now})
	c.Record(Entry{Kind: KindRequest, Key: "POST /api/bookings", StatusCode: 201, DurationMs: 50, At: now})
	c.Record(Entry{Kind: KindQuery, Key: "ExecContext", DurationMs: 5, At: now})

	snap := c.Snapshot(now.Add(-time.Minute), 10)
	if snap.TotalRecorded != 4 || snap.Requests != 3 || snap.ServerErrors != 1 {
		t.Errorf("snapshot counts = %+v", snap)
	}
	if len(snap.SlowestPaths) != 2 {
		t.Fatalf("SlowestPaths len = %d, want 2", len(snap.SlowestPaths))
	}
	if snap.SlowestPaths[0].Key != "POST /api/bookings" {
		t.Errorf("slowest path = %s, want POST /api/bookings", snap.SlowestPaths[0].Key)
	}
	if got := snap.SlowestPaths[1]; got.AvgMs != 20 || got.MaxMs != 30 || got.Count != 2 {
		t.Errorf("GET stats = %+v", got)
	}
	if len(snap.SlowestQueries) != 1 || snap.SlowestQueries[0].Key != "ExecContext" {
		t.Errorf("SlowestQueries = %+v", snap.SlowestQueries)
	}

	top := c.Snapshot(now.Add(-time.Minute), 1)
	if len(top.SlowestPaths) != 1 {
		t.Errorf("topN=1 returned %d paths", len(top.SlowestPaths))
	}
}

// TestCollector_RingBufferOverwrites verifies oldest entries are dropped when full.
func TestCollector_RingBufferOverwrites(t *testing.T) {
	c := NewCollector(3)
	now := time.Now()
	for i := 0; i < 5; i++ {
		c.Record(Entry{Kind: KindRequest, Key: "GET /x", DurationMs: float64(i), At: now})
	}
	if c.TotalRecorded() != 5 {
		t.Errorf("TotalRecorded = %d, want 5", c.TotalRecorded())
	}
	snap := c.Snapshot(now.Add(-time.Minute), 10)
	if snap.SlowestPaths[0].Count != 3 || snap.SlowestPaths[0].AvgMs != 3 {
		t.Errorf("kept entries = %+v, want last three (2,3,4)", snap.SlowestPaths[0])
	}
}

func TestCollector_Percentiles(t *testing.T) {
	c := NewCollector(200)
	now := time.Now()
	for i := 1; i <= 100; i++ {
		c.Record(Entry{Kind: KindRequest, Key: "GET /p", DurationMs: float64(i), At: now})
	}
	snap := c.Snapshot(now.Add(-time.Minute), 10)
	if snap.RequestP50Ms < 49 || snap.RequestP50Ms > 51 {
		t.Errorf("P50 = %v, want ~50", snap.RequestP50Ms)
	}
	if snap.RequestP99Ms < 98 || snap.RequestP99Ms > 100 {
		t.Errorf("P99 = %v, want ~99", snap.RequestP99Ms)
	}
}

func TestCollector_SnapshotSince(t *testing.T) {
	c := NewCollector(10)
	now := time.Now()
	c.Record(Entry{Kind: KindRequest, Key: "GET /old", DurationMs: 1, At: now.Add(-2 * time.Hour)})
	c.Record(Entry{Kind: KindRequest, Key: "GET /new", DurationMs: 1, At: now})

	snap := c.Snapshot(now.Add(-time.Hour), 10)
	if snap.Requests != 1 || snap.SlowestPaths[0].Key != "GET /new" {
		t.Errorf("since filter kept %+v", snap.SlowestPaths)
	}
}

func TestCollector_ConcurrentRecord(t *testing.T) {
	c := NewCollector(50)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				c.Record(Entry{Kind: KindQuery, Key: "QueryContext", DurationMs: 1, At: time.Now()})
			}
		}()
	}
	wg.Wait()
	if c.TotalRecorded() != 800 {
		t.Errorf("TotalRecorded = %d, want 800", c.TotalRecorded())
	}
}
