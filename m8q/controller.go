package m8q

import (
	"errors"
	"sync/atomic"

	"navcore/core"
)

// State enumerates the controller states.
type State uint8

const (
	StateInit State = iota
	StateNoFix
	StateFix
	StateLowPwrEnter
	StateLowPwr
	StateLowPwrExit
	StateFault
	StateReset
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateNoFix:
		return "no-fix"
	case StateFix:
		return "fix"
	case StateLowPwrEnter:
		return "low-power-enter"
	case StateLowPwr:
		return "low-power"
	case StateLowPwrExit:
		return "low-power-exit"
	case StateFault:
		return "fault"
	case StateReset:
		return "reset"
	}
	return "unknown"
}

// Fault is the controller fault bitmask. Unassigned bits are reserved.
type Fault uint16

const (
	FaultNone      Fault = 0
	FaultBadHandle Fault = 1 << 0
	FaultWrite     Fault = 1 << 1
	FaultRead      Fault = 1 << 2
)

// DefaultWakeDelayUS is the receiver wake and re-acquire time applied
// when leaving low power.
const DefaultWakeDelayUS = 150000

// Config carries the collaborators and tables the controller needs.
type Config struct {
	// Clock drives the non-blocking wake delay.
	Clock core.Clock

	// Power drives the receiver's low-power line; nil when the
	// application does not wire one.
	Power func(on bool)

	// Setup is the configuration message table replayed on every
	// init and reset, in SendConfig text form.
	Setup []string

	// WakeDelayUS overrides DefaultWakeDelayUS when non-zero.
	WakeDelayUS uint32
}

// Controller sequences the driver through init, periodic read, low
// power and fault handling. Tick must be called on every iteration of
// the application's cooperative scheduling loop; no call blocks.
//
// The request flags may be set from other goroutines (or interrupt-like
// callbacks); each is consumed by the state handler that acts on it.
type Controller struct {
	dev   *Device
	cfg   Config
	delay *core.Delay

	state State
	fault Fault

	lowPwr atomic.Bool
	reset  atomic.Bool
}

// NewController creates a controller for dev. The first Tick performs
// device initialization.
func NewController(dev *Device, cfg Config) (*Controller, error) {
	if dev == nil || cfg.Clock == nil {
		return nil, ErrBadHandle
	}
	if cfg.WakeDelayUS == 0 {
		cfg.WakeDelayUS = DefaultWakeDelayUS
	}
	return &Controller{
		dev:   dev,
		cfg:   cfg,
		delay: core.NewDelay(cfg.Clock),
		state: StateInit,
	}, nil
}

// Tick advances the state machine one step. Faults are checked before
// request flags so a fault is never lost to a concurrent low-power or
// reset request.
func (c *Controller) Tick() {
	if c.fault != FaultNone && c.state != StateFault && c.state != StateReset {
		c.state = StateFault
	}

	switch c.state {
	case StateInit:
		c.runInit()
	case StateNoFix, StateFix:
		c.runRead()
	case StateLowPwrEnter:
		if c.cfg.Power != nil {
			c.cfg.Power(false)
		}
		c.state = StateLowPwr
	case StateLowPwr:
		c.runLowPwr()
	case StateLowPwrExit:
		if c.reset.CompareAndSwap(true, false) {
			c.delay.Cancel()
			c.state = StateReset
			break
		}
		if c.delay.Wait(c.cfg.WakeDelayUS) {
			c.state = StateNoFix
		}
	case StateFault:
		if c.reset.CompareAndSwap(true, false) {
			c.state = StateReset
		}
	case StateReset:
		// Re-initialization must start from a powered receiver; a
		// reset consumed while in low power would otherwise leave
		// the power line low.
		if c.cfg.Power != nil {
			c.cfg.Power(true)
		}
		c.fault = FaultNone
		c.delay.Cancel()
		c.state = StateInit
	}
}

// runInit replays the setup table into the device. Validation failures
// in individual lines are skipped (the line is simply not sent);
// transport faults stop initialization.
func (c *Controller) runInit() {
	for _, line := range c.cfg.Setup {
		err := c.dev.SendConfig(line)
		switch {
		case err == nil:
		case errors.Is(err, ErrWriteFault):
			c.fault |= FaultWrite
			c.state = StateFault
			return
		case errors.Is(err, ErrReadFault):
			c.fault |= FaultRead
			c.state = StateFault
			return
		}
	}
	c.state = StateNoFix
}

// runRead services one read-eligible tick.
func (c *Controller) runRead() {
	switch {
	case c.lowPwr.Load():
		c.state = StateLowPwrEnter
	case c.reset.CompareAndSwap(true, false):
		c.state = StateReset
	default:
		if c.dev.Ready() {
			c.pollOnce()
			if c.state == StateFault {
				return
			}
		}
		if c.dev.HasFix() {
			c.state = StateFix
		} else {
			c.state = StateNoFix
		}
	}
}

// pollOnce pulls and dispatches one message. Idle streams, foreign
// tokens and checksum noise are not faults; transport errors are.
func (c *Controller) pollOnce() {
	buf := make([]byte, readBufMax)
	_, err := c.dev.ReadMessage(buf)
	switch {
	case err == nil:
	case errors.Is(err, ErrReadFault):
		c.fault |= FaultRead
		c.state = StateFault
	case errors.Is(err, ErrWriteFault):
		c.fault |= FaultWrite
		c.state = StateFault
	}
}

// runLowPwr idles until the low-power request clears or a reset is
// asked for. No polling happens while resident here.
func (c *Controller) runLowPwr() {
	if c.reset.CompareAndSwap(true, false) {
		c.state = StateReset
		return
	}
	if !c.lowPwr.Load() {
		if c.cfg.Power != nil {
			c.cfg.Power(true)
		}
		c.state = StateLowPwrExit
	}
}

// RequestLowPower asks the controller to put the receiver to sleep.
// The request holds until ClearLowPower.
func (c *Controller) RequestLowPower() {
	c.lowPwr.Store(true)
}

// ClearLowPower releases a low-power request; the controller walks
// through the wake delay before resuming reads.
func (c *Controller) ClearLowPower() {
	c.lowPwr.Store(false)
}

// RequestReset forces re-initialization from any state, including
// fault. Consumed by the state machine on the tick that acts on it.
func (c *Controller) RequestReset() {
	c.reset.Store(true)
}

// State returns the current controller state.
func (c *Controller) State() State {
	return c.state
}

// Fault returns the fault bitmask.
func (c *Controller) Fault() Fault {
	return c.fault
}

// NavStatus returns the navigation status code cached by the driver.
func (c *Controller) NavStatus() string {
	return c.dev.NavStatus()
}
