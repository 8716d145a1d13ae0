package domain

import (
	"testing"
	"time"
)

func TestBucketFor(t *testing.T) {
	tests := []struct {
		days     int
		expected AgingBucket
	}{
		{-10, AgingCurrent},
		{0, AgingCurrent},
		{30, AgingCurrent},
		{31, Aging31To60},
		{40, Aging31To60},
		{60, Aging31To60},
		{61, Aging61To90},
		{90, Aging61To90},
		{91, AgingOver90},
		{365, AgingOver90},
	}

	for _, tt := range tests {
		if got := BucketFor(tt.days); got != tt.expected {
			t.Errorf("BucketFor(%d) = %s, want %s", tt.days, got, tt.expected)
		}
	}
}

func TestDaysOverdue(t *testing.T) {
	asOf := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	if got := DaysOverdue(asOf.AddDate(0, 0, -40), asOf); got != 40 {
		t.Errorf("expected 40 days, got %d", got)
	}
	if got := DaysOverdue(asOf.Add(-36*time.Hour), asOf); got != 1 {
		t.Errorf("expected partial day to floor to 1, got %d", got)
	}
	if got := DaysOverdue(asOf.Add(12*time.Hour), asOf); got != -1 {
		t.Errorf("expected not-yet-due to floor to -1, got %d", got)
	}
}
