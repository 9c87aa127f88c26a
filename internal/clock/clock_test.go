package clock

import (
	"testing"
	"time"
)

func TestDaysBetween(t *testing.T) {
	tests := []struct {
		name     string
		from, to string
		want     int
		wantErr  bool
	}{
		{name: "same day", from: "2026-03-10", to: "2026-03-10", want: 0},
		{name: "yesterday", from: "2026-03-09", to: "2026-03-10", want: 1},
		{name: "three days", from: "2026-03-07", to: "2026-03-10", want: 3},
		{name: "month boundary", from: "2026-02-28", to: "2026-03-01", want: 1},
		{name: "bad date", from: "yesterday", to: "2026-03-10", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DaysBetween(tt.from, tt.to)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DaysBetween() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("DaysBetween() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestFakeAdvance(t *testing.T) {
	start := time.Date(2026, 3, 10, 23, 59, 0, 0, time.UTC)
	c := NewFake(start)
	c.Advance(2 * time.Minute)

	if got := Date(c.Now()); got != "2026-03-11" {
		t.Errorf("Date() = %s, want 2026-03-11", got)
	}
}
