package stats

import (
	"sync"
	"testing"
)

func TestCollectorTrackOperation(t *testing.T) {
	c := NewAtomicCollector()

	c.TrackOperation(OpPut)
	c.TrackOperation(OpPut)
	c.TrackOperation(OpGet)

	stats := c.GetStats()
	if stats["put_ops"] != uint64(2) {
		t.Errorf("Expected 2 put operations, got %v", stats["put_ops"])
	}
	if stats["get_ops"] != uint64(1) {
		t.Errorf("Expected 1 get operation, got %v", stats["get_ops"])
	}
	if _, ok := stats["last_put_time"]; !ok {
		t.Error("Expected last_put_time to be present")
	}
}

func TestCollectorLatency(t *testing.T) {
	c := NewAtomicCollector()

	c.TrackOperationWithLatency(OpAdd, 100)
	c.TrackOperationWithLatency(OpAdd, 300)

	stats := c.GetStats()
	latency, ok := stats["add_latency"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected add_latency map, got %v", stats["add_latency"])
	}
	if latency["count"] != uint64(2) {
		t.Errorf("Expected latency count 2, got %v", latency["count"])
	}
	if latency["avg_ns"] != uint64(200) {
		t.Errorf("Expected avg latency 200, got %v", latency["avg_ns"])
	}
	if latency["min_ns"] != uint64(100) {
		t.Errorf("Expected min latency 100, got %v", latency["min_ns"])
	}
	if latency["max_ns"] != uint64(300) {
		t.Errorf("Expected max latency 300, got %v", latency["max_ns"])
	}
}

func TestCollectorErrorsAndBytes(t *testing.T) {
	c := NewAtomicCollector()

	c.TrackError("codec_error")
	c.TrackError("codec_error")
	c.TrackBytes(true, 128)
	c.TrackBytes(false, 64)

	stats := c.GetStats()
	errors, ok := stats["errors"].(map[string]uint64)
	if !ok {
		t.Fatalf("Expected errors map, got %v", stats["errors"])
	}
	if errors["codec_error"] != 2 {
		t.Errorf("Expected 2 codec errors, got %d", errors["codec_error"])
	}
	if stats["total_bytes_written"] != uint64(128) {
		t.Errorf("Expected 128 bytes written, got %v", stats["total_bytes_written"])
	}
	if stats["total_bytes_read"] != uint64(64) {
		t.Errorf("Expected 64 bytes read, got %v", stats["total_bytes_read"])
	}
}

func TestCollectorConcurrentAccess(t *testing.T) {
	c := NewAtomicCollector()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.TrackOperationWithLatency(OpUpdate, uint64(j+1))
				c.TrackError("race")
			}
		}()
	}
	wg.Wait()

	stats := c.GetStats()
	if stats["update_ops"] != uint64(800) {
		t.Errorf("Expected 800 update operations, got %v", stats["update_ops"])
	}
}
