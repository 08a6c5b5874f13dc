package core

import "time"

// Clock exposes a free-running hardware counter. Tick values wrap;
// consumers must compare with wraparound-safe subtraction.
type Clock interface {
	// Ticks returns the current counter value.
	Ticks() uint32
	// Hz returns the counter frequency.
	Hz() uint32
}

// Delay is a polled, non-blocking wait measured on a Clock. Wait must
// be called every scheduler tick; it arms itself on the first call and
// reports true once the requested time has elapsed, re-arming for the
// next use.
type Delay struct {
	clk    Clock
	start  uint32
	target uint32
	armed  bool
}

// NewDelay creates a Delay driven by clk.
func NewDelay(clk Clock) *Delay {
	return &Delay{clk: clk}
}

// Wait polls the delay. The first call records the start tick and
// converts us microseconds into counter ticks; subsequent calls compare
// elapsed ticks against that target. Returns true exactly once per
// armed delay, at which point the delay is ready to be reused.
func (d *Delay) Wait(us uint32) bool {
	if !d.armed {
		d.start = d.clk.Ticks()
		d.target = uint32(uint64(us) * uint64(d.clk.Hz()) / 1e6)
		d.armed = true
	}

	if d.clk.Ticks()-d.start >= d.target {
		d.armed = false
		return true
	}
	return false
}

// Cancel disarms a pending delay so the next Wait starts fresh.
func (d *Delay) Cancel() {
	d.armed = false
}

// Armed reports whether a delay is currently pending.
func (d *Delay) Armed() bool {
	return d.armed
}

// WallClock adapts the host monotonic clock to the Clock interface for
// host-side use, ticking at 1 MHz.
type WallClock struct {
	epoch time.Time
}

// NewWallClock creates a WallClock anchored at the current time.
func NewWallClock() *WallClock {
	return &WallClock{epoch: time.Now()}
}

func (w *WallClock) Ticks() uint32 {
	return uint32(time.Since(w.epoch).Microseconds())
}

func (w *WallClock) Hz() uint32 {
	return 1e6
}
