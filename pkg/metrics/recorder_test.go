package metrics

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestRecorderWindow(t *testing.T) {
	r := NewRecorder(3)
	for i, id := range []string{"a", "b", "c", "d", "e"} {
		r.Record(id, time.Duration(i+1)*time.Millisecond, false)
	}

	if r.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", r.Len())
	}

	s := r.Snapshot(Counts{})
	var ids []string
	for _, smp := range s.Recent {
		ids = append(ids, smp.ID)
	}
	if diff := cmp.Diff([]string{"c", "d", "e"}, ids); diff != "" {
		t.Errorf("retained samples mismatch (-want +got):\n%s", diff)
	}
	if s.TotalLoads != 5 {
		t.Errorf("TotalLoads = %d, want 5", s.TotalLoads)
	}
}

func TestNewRecorderDefaultWindow(t *testing.T) {
	for _, w := range []int{0, -4} {
		if got := NewRecorder(w).Window(); got != DefaultWindow {
			t.Errorf("NewRecorder(%d).Window() = %d, want %d", w, got, DefaultWindow)
		}
	}
}

func TestSnapshotStats(t *testing.T) {
	r := NewRecorder(0)
	for i := 1; i <= 20; i++ {
		r.Record("t", time.Duration(i)*time.Millisecond, i%10 == 0)
	}

	s := r.Snapshot(Counts{Visible: 4, Loading: 1})

	tests := []struct {
		name string
		got  time.Duration
		want time.Duration
	}{
		{"Min", s.Min, 1 * time.Millisecond},
		{"Max", s.Max, 20 * time.Millisecond},
		{"Avg", s.Avg, 10500 * time.Microsecond},
		{"P95", s.P95, 19 * time.Millisecond},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}

	if s.TotalErrors != 2 || s.TotalLoads != 18 {
		t.Errorf("totals = %d/%d, want 18/2", s.TotalLoads, s.TotalErrors)
	}
	if s.Visible != 4 || s.Loading != 1 {
		t.Errorf("counts not carried through: %+v", s.Counts)
	}
	if got := s.SuccessRate(); got != 0.9 {
		t.Errorf("SuccessRate() = %v, want 0.9", got)
	}
}

func TestSnapshotEmpty(t *testing.T) {
	s := NewRecorder(0).Snapshot(Counts{})
	if s.Samples != 0 || s.Min != 0 || s.P95 != 0 {
		t.Errorf("empty snapshot has stats: %+v", s)
	}
	if s.Recent == nil {
		t.Error("Recent should be empty, not nil")
	}
	if s.SuccessRate() != 1 {
		t.Errorf("SuccessRate() = %v, want 1", s.SuccessRate())
	}
}

func TestTrim(t *testing.T) {
	r := NewRecorder(0)
	for range 12 {
		r.Record("x", time.Millisecond, false)
	}

	if dropped := r.Trim(10); dropped != 2 {
		t.Errorf("Trim(10) = %d, want 2", dropped)
	}
	if dropped := r.Trim(10); dropped != 0 {
		t.Errorf("second Trim(10) = %d, want 0", dropped)
	}
	if r.Len() != 10 {
		t.Errorf("Len() = %d, want 10", r.Len())
	}
	if s := r.Snapshot(Counts{}); s.TotalLoads != 12 {
		t.Errorf("Trim changed lifetime totals: %d", s.TotalLoads)
	}

	r.Trim(-1)
	if r.Len() != 0 {
		t.Errorf("Trim(-1) left %d samples", r.Len())
	}
}

func TestRecordNegativeDuration(t *testing.T) {
	r := NewRecorder(0)
	r.Record("x", -time.Second, false)
	if s := r.Snapshot(Counts{}); s.Min != 0 {
		t.Errorf("Min = %v, want 0", s.Min)
	}
}

func TestSnapshotIsolated(t *testing.T) {
	r := NewRecorder(0)
	r.Record("a", time.Millisecond, false)
	s := r.Snapshot(Counts{})
	s.Recent[0].ID = "mutated"

	if got := r.Snapshot(Counts{}).Recent[0].ID; got != "a" {
		t.Errorf("snapshot aliases recorder storage: %q", got)
	}
}
