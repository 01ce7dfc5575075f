package delivery

import (
	"math"
	"testing"
	"time"
)

func TestRequestTimeout(t *testing.T) {
	if got := requestTimeout(10*time.Second, 30*time.Second); got != 40*time.Second {
		t.Fatalf("requestTimeout = %v, want 40s", got)
	}
	if got := requestTimeout(math.MaxInt64-time.Second, time.Hour); got != math.MaxInt64 {
		t.Fatalf("overflowing sum should saturate, got %v", got)
	}
}
