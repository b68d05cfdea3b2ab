package pacer

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDelayBounds(t *testing.T) {
	tests := []struct {
		name    string
		minimum time.Duration
		maximum time.Duration
		roll    int64
		want    time.Duration
	}{
		{"Lowest roll", 2 * time.Second, 5 * time.Second, 0, 2 * time.Second},
		{"Highest roll", 2 * time.Second, 5 * time.Second, int64(3 * time.Second), 5 * time.Second},
		{"Fixed interval", time.Second, time.Second, 0, time.Second},
		{"Inverted bounds collapse to min", 3 * time.Second, time.Second, 0, 3 * time.Second},
		{"Negative min clamps to zero", -time.Second, 0, 0, 0},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			p := New(test.minimum, test.maximum)
			p.rand = func(n int64) int64 {
				if test.roll >= n {
					t.Fatalf("roll %d out of range [0, %d)", test.roll, n)
				}
				return test.roll
			}

			if got := p.Delay(); got != test.want {
				t.Errorf("unexpected delay: got %v want %v", got, test.want)
			}
		})
	}
}

func TestDelayStaysInRange(t *testing.T) {
	p := New(2*time.Second, 5*time.Second)

	for range 1000 {
		d := p.Delay()
		if d < 2*time.Second || d > 5*time.Second {
			t.Fatalf("delay out of range: %v", d)
		}
	}
}

func TestZeroPacerDoesNotWait(t *testing.T) {
	var nilPacer *Pacer
	if err := nilPacer.Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	start := time.Now()
	if err := New(0, 0).Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Fatalf("expected no wait, took %v", elapsed)
	}
}

func TestWaitHonorsContext(t *testing.T) {
	p := New(time.Hour, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := p.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
