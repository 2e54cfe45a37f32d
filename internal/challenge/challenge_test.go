package challenge

import (
	"math"
	"testing"
	"time"
)

func poolContains(f float64) bool {
	for _, p := range FreqPool {
		if p == f {
			return true
		}
	}
	return false
}

func TestNewStandaloneInvariants(t *testing.T) {
	for trial := 0; trial < 50; trial++ {
		c := NewStandalone(3 * time.Minute)

		if len(c.ID) != 32 {
			t.Fatalf("challenge id should be 128-bit hex, got %q", c.ID)
		}
		if c.Mode != ModeStandalone {
			t.Fatalf("mode = %q", c.Mode)
		}
		if c.TrackingDurationMs < 18000 || c.TrackingDurationMs >= 22000 {
			t.Errorf("trackingDuration out of range: %v", c.TrackingDurationMs)
		}
		if c.DualTaskDurationMs < 10000 || c.DualTaskDurationMs >= 14000 {
			t.Errorf("dualtaskDuration out of range: %v", c.DualTaskDurationMs)
		}

		if len(c.Probes) != 5 {
			t.Fatalf("want 5 probes, got %d", len(c.Probes))
		}
		for i, p := range c.Probes {
			if !poolContains(p.Freq) {
				t.Errorf("probe freq %v not in pool", p.Freq)
			}
			if i > 0 && c.Probes[i-1].Freq >= p.Freq {
				t.Errorf("probe freqs not strictly ascending: %v", c.Probes)
			}
			if p.AmpX < 3 || p.AmpX > 7 || p.AmpX != math.Trunc(p.AmpX) {
				t.Errorf("probe ampX = %v", p.AmpX)
			}
			if p.AmpY < 1 || p.AmpY > 3 || p.AmpY != math.Trunc(p.AmpY) {
				t.Errorf("probe ampY = %v", p.AmpY)
			}
		}

		if len(c.Pulses) < 4 || len(c.Pulses) >= 8 {
			t.Fatalf("pulse count = %d", len(c.Pulses))
		}
		prev := 0.0
		for i, p := range c.Pulses {
			if p.OffsetMs <= prev {
				t.Errorf("pulse offsets not monotonic: %v", c.Pulses)
			}
			prev = p.OffsetMs
			if p.OffsetMs < 2800 || p.OffsetMs >= c.TrackingDurationMs {
				t.Errorf("pulse %d offset %v outside [2800, %v)", i, p.OffsetMs, c.TrackingDurationMs)
			}
			amp := math.Abs(p.AmpX)
			if amp < 18 || amp > 26 {
				t.Errorf("pulse ampX = %v", p.AmpX)
			}
			wantNeg := i%3 == 2
			if wantNeg != (p.AmpX < 0) {
				t.Errorf("pulse %d sign wrong: %v", i, p.AmpX)
			}
			if p.HoldMs < 500 || p.HoldMs >= 700 || p.ReturnMs != 200 {
				t.Errorf("pulse %d hold/return = %v/%v", i, p.HoldMs, p.ReturnMs)
			}
		}

		cog := c.Cog
		if cog == nil {
			t.Fatal("standalone challenge missing cog task")
		}
		if len(cog.Flashes) != 8 {
			t.Fatalf("want 8 flashes, got %d", len(cog.Flashes))
		}
		targets := 0
		for _, f := range cog.Flashes {
			if f.IsTarget {
				targets++
				if f.Color != cog.TargetColor {
					t.Errorf("target flash has color %q, want %q", f.Color, cog.TargetColor)
				}
			} else if f.Color == cog.TargetColor {
				t.Errorf("distractor flash carries target color")
			}
		}
		if targets != cog.TargetCount {
			t.Errorf("targetCount = %d but %d flashes are targets", cog.TargetCount, targets)
		}
		if cog.TargetCount < 2 || cog.TargetCount > 5 {
			t.Errorf("targetCount = %d", cog.TargetCount)
		}
	}
}

func TestNewEmbedInvariants(t *testing.T) {
	for trial := 0; trial < 50; trial++ {
		c := NewEmbed(6 * time.Minute)
		if c.Mode != ModeEmbed {
			t.Fatalf("mode = %q", c.Mode)
		}
		if c.Cog != nil {
			t.Error("embed challenge must not carry a cog task")
		}
		if len(c.Probes) != 5 {
			t.Fatalf("want 5 probes, got %d", len(c.Probes))
		}
		var peakSum float64
		for i, p := range c.Probes {
			if !poolContains(p.Freq) {
				t.Errorf("embed probe freq %v not in pool", p.Freq)
			}
			if i > 0 && c.Probes[i-1].Freq >= p.Freq {
				t.Errorf("embed probe freqs not ascending")
			}
			if p.AmpX < 0.15 || p.AmpX >= 0.35 {
				t.Errorf("embed ampX = %v", p.AmpX)
			}
			if p.AmpY < 0.05 || p.AmpY >= 0.15 {
				t.Errorf("embed ampY = %v", p.AmpY)
			}
			peakSum += p.AmpX
		}
		if peakSum < 0.75 || peakSum > 1.75 {
			t.Errorf("embed probe peak sum %v outside sub-perceptual envelope", peakSum)
		}
		if len(c.Pulses) < 4 || len(c.Pulses) >= 6 {
			t.Fatalf("embed pulse count = %d", len(c.Pulses))
		}
		for i, p := range c.Pulses {
			if p.HoverTimeMs <= 0 || p.OffsetMs != 0 {
				t.Errorf("embed pulse %d must be hover-indexed: %+v", i, p)
			}
			amp := math.Abs(p.AmpX)
			if amp < 1.0 || amp >= 2.0 {
				t.Errorf("embed pulse ampX = %v", p.AmpX)
			}
			if p.HoldMs < 400 || p.HoldMs >= 600 || p.ReturnMs != 150 {
				t.Errorf("embed pulse hold/return = %v/%v", p.HoldMs, p.ReturnMs)
			}
		}
	}
}

func TestClientViewHidesSecrets(t *testing.T) {
	c := NewStandalone(3 * time.Minute)
	v := c.View()

	if v.Cog == nil {
		t.Fatal("client view missing cog schedule")
	}
	if len(v.Cog.Flashes) != len(c.Cog.Flashes) {
		t.Fatalf("flash count mismatch")
	}
	for i, f := range v.Cog.Flashes {
		if f.TimeMs != c.Cog.Flashes[i].TimeMs || f.Color != c.Cog.Flashes[i].Color {
			t.Errorf("flash %d not faithfully projected", i)
		}
	}
	// The view type carries no targetCount or isTarget fields; what it
	// does carry must match the challenge.
	if v.Path == nil || *v.Path != c.Path {
		t.Error("path not present in view")
	}
	if len(v.Probes) != 5 || len(v.Pulses) != len(c.Pulses) {
		t.Error("probes/pulses not present in view")
	}
}

func TestStoreLifecycle(t *testing.T) {
	s := NewStore()
	c := NewStandalone(3 * time.Minute)
	s.Put(c)
	now := time.Now()

	if _, err := s.Acquire("deadbeef", now); err != ErrNotFound {
		t.Fatalf("unknown id: got %v, want ErrNotFound", err)
	}

	got, err := s.Acquire(c.ID, now)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if got.Used {
		t.Fatal("acquire must not consume")
	}

	if err := s.Consume(c.ID, now); err != nil {
		t.Fatalf("consume: %v", err)
	}
	if err := s.Consume(c.ID, now); err != ErrAlreadyUsed {
		t.Fatalf("second consume: got %v, want ErrAlreadyUsed", err)
	}
	if _, err := s.Acquire(c.ID, now); err != ErrAlreadyUsed {
		t.Fatalf("acquire after use: got %v, want ErrAlreadyUsed", err)
	}
	if s.Pending() != 0 {
		t.Errorf("pending = %d after consume", s.Pending())
	}
}

func TestStoreExpiryConsumes(t *testing.T) {
	s := NewStore()
	c := NewStandalone(time.Minute)
	s.Put(c)

	late := c.ExpiresAt.Add(time.Second)
	if _, err := s.Acquire(c.ID, late); err != ErrExpired {
		t.Fatalf("got %v, want ErrExpired", err)
	}
	// Lazy expiry marks the record used: a retry sees 409, not 410.
	if _, err := s.Acquire(c.ID, late); err != ErrAlreadyUsed {
		t.Fatalf("retry after expiry: got %v, want ErrAlreadyUsed", err)
	}
}

func TestStoreSweep(t *testing.T) {
	s := NewStore()

	fresh := NewStandalone(3 * time.Minute)
	s.Put(fresh)

	expired := NewStandalone(3 * time.Minute)
	expired.ExpiresAt = time.Now().Add(-2 * time.Minute)
	s.Put(expired)

	used := NewStandalone(3 * time.Minute)
	used.Used = true
	used.UsedAt = time.Now().Add(-11 * time.Minute)
	s.Put(used)

	usedRecent := NewStandalone(3 * time.Minute)
	usedRecent.Used = true
	usedRecent.UsedAt = time.Now().Add(-time.Minute)
	s.Put(usedRecent)

	if n := s.Sweep(time.Now()); n != 2 {
		t.Fatalf("swept %d, want 2", n)
	}
	if _, ok := s.Get(fresh.ID); !ok {
		t.Error("fresh challenge evicted")
	}
	if _, ok := s.Get(usedRecent.ID); !ok {
		t.Error("recently used challenge evicted before retention window")
	}
	if _, ok := s.Get(expired.ID); ok {
		t.Error("expired challenge not evicted")
	}
	if _, ok := s.Get(used.ID); ok {
		t.Error("stale used challenge not evicted")
	}
}

func TestConcurrentConsumeSingleWinner(t *testing.T) {
	s := NewStore()
	c := NewStandalone(3 * time.Minute)
	s.Put(c)

	const n = 16
	wins := make(chan bool, n)
	for i := 0; i < n; i++ {
		go func() {
			wins <- s.Consume(c.ID, time.Now()) == nil
		}()
	}
	count := 0
	for i := 0; i < n; i++ {
		if <-wins {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("%d concurrent consumes succeeded, want exactly 1", count)
	}
}
