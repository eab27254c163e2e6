package utils

import (
	"testing"
	"time"
)

func TestRingBuffer_OverwritesOldest(t *testing.T) {
	rb := NewRingBuffer[int](3)
	for i := 1; i <= 5; i++ {
		rb.Append(i)
	}

	all := rb.GetLatest(rb.Capacity() + 1)
	want := []int{3, 4, 5}
	if len(all) != len(want) {
		t.Fatalf("expected full buffer of 3, got %v", all)
	}
	for i := range want {
		if all[i] != want[i] {
			t.Fatalf("GetLatest = %v, want %v", all, want)
		}
	}

	latest := rb.GetLatest(2)
	if len(latest) != 2 || latest[0] != 4 || latest[1] != 5 {
		t.Errorf("GetLatest(2) = %v, want [4 5]", latest)
	}
}

func TestRingBuffer_PartialAndEmpty(t *testing.T) {
	rb := NewRingBuffer[string](4)
	if got := rb.GetLatest(3); len(got) != 0 {
		t.Errorf("empty buffer returned %v", got)
	}

	rb.Append("a")
	rb.Append("b")
	if got := rb.GetLatest(10); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("GetLatest(10) = %v", got)
	}
	if got := rb.GetLatest(0); len(got) != 0 {
		t.Errorf("GetLatest(0) = %v", got)
	}
}

func TestRingBuffer_DefaultCapacity(t *testing.T) {
	rb := NewRingBuffer[int](0)
	if rb.Capacity() != DefaultRecentTicks {
		t.Errorf("capacity = %d, want %d", rb.Capacity(), DefaultRecentTicks)
	}
}

func TestRetentionCutoff(t *testing.T) {
	now := time.Date(2025, 1, 2, 12, 0, 0, 0, time.UTC)
	if got := RetentionCutoff(now, 2); !got.Equal(now.Add(-2 * time.Hour)) {
		t.Errorf("cutoff = %v", got)
	}
	if got := RetentionCutoff(now, 0); !got.Equal(now.Add(-DefaultRetentionHours * time.Hour)) {
		t.Errorf("default cutoff = %v", got)
	}
}
