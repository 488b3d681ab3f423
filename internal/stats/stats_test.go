package stats

import (
	"encoding/json"
	"sync"
	"testing"
)

func TestSnapshot_ZeroValue(t *testing.T) {
	s := New()
	if got := s.Snapshot(); got != (Snapshot{}) {
		t.Errorf("fresh accumulator Snapshot() = %+v, want all zeros", got)
	}
}

func TestCountersAreIndependent(t *testing.T) {
	s := New()
	s.RequestReceived()
	s.InsertOK()
	s.InsertOK()
	s.InsertFailed()
	s.Unauthorized()
	s.Unauthorized()
	s.Unauthorized()

	got := s.Snapshot()
	want := Snapshot{TotalRequests: 1, SuccessfulInserts: 2, FailedInserts: 1, UnauthorizedAttempts: 3}
	if got != want {
		t.Errorf("Snapshot() = %+v, want %+v", got, want)
	}
}

func TestConcurrentIncrements(t *testing.T) {
	const goroutines = 16
	const perGoroutine = 1000

	s := New()
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				s.RequestReceived()
				s.InsertOK()
				s.InsertFailed()
				s.Unauthorized()
			}
		}()
	}
	wg.Wait()

	want := int64(goroutines * perGoroutine)
	got := s.Snapshot()
	if got != (Snapshot{TotalRequests: want, SuccessfulInserts: want, FailedInserts: want, UnauthorizedAttempts: want}) {
		t.Errorf("Snapshot() after concurrent increments = %+v, want all %d", got, want)
	}
}

func TestSnapshotJSONKeys(t *testing.T) {
	s := New()
	s.InsertOK()

	raw, err := json.Marshal(s.Snapshot())
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var m map[string]int64
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	for _, key := range []string{"total_requests", "successful_inserts", "failed_inserts", "unauthorized_attempts"} {
		if _, ok := m[key]; !ok {
			t.Errorf("snapshot JSON missing key %q: %s", key, raw)
		}
	}
	if m["successful_inserts"] != 1 {
		t.Errorf("successful_inserts = %d, want 1", m["successful_inserts"])
	}
}
