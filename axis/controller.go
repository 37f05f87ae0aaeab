// Package axis implements the motion safety state machine of a single
// linear axis: homing against two limit switches, soft endstops, fault
// latching and the operator command set.
package axis

import (
	"errors"
	"io"

	"axisctl/core"
	"axisctl/protocol"
)

var (
	ErrMissingHardware = errors.New("axis hardware incomplete")
	ErrNotReady        = errors.New("not ready")
	ErrNoFault         = errors.New("reset ignored, no active fault")
	ErrInvalidArgument = errors.New("invalid argument")
)

// Switch is a debounced limit switch
type Switch interface {
	Triggered() bool
}

// Enabler drives the stepper driver enable line
type Enabler interface {
	Enable() error
	Disable() error
}

// StallSensor reports whether the driver has detected a stall. Status is
// the raw status byte behind the last successful poll.
type StallSensor interface {
	PollStall() (bool, error)
	Status() uint8
}

// LineSource yields at most one trimmed command line per call
type LineSource interface {
	ReadLine() (string, bool)
}

// Hardware bundles the collaborators the controller drives
type Hardware struct {
	Motion core.MotionPrimitive
	Min    Switch
	Max    Switch
	Enable Enabler
	Driver StallSensor // nil disables stall detection
}

// Controller owns the axis state. All methods must be called from the
// control loop goroutine.
type Controller struct {
	cfg Config
	hw  Hardware
	out *protocol.LineWriter

	registry *core.CommandRegistry
	sched    *core.Scheduler
	safety   *SafetyMonitor
	soft     SoftEndstops

	state    State
	entering bool

	settle     core.Timer
	settleNext func()

	maxPosition int32
	target      int32
	errorTime   uint64
	lastFault   Fault
}

// New builds a controller in Init. The first Step runs the Init entry
// action and starts homing.
func New(cfg Config, hw Hardware, out io.Writer) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if hw.Motion == nil || hw.Min == nil || hw.Max == nil || hw.Enable == nil {
		return nil, ErrMissingHardware
	}

	c := &Controller{
		cfg:      cfg,
		hw:       hw,
		out:      protocol.NewLineWriter(out),
		registry: core.NewCommandRegistry(),
		sched:    core.NewScheduler(),
		soft:     NewSoftEndstops(),
		state:    StateInit,
		entering: true,
	}
	c.safety = NewSafetyMonitor(hw.Min, hw.Max, hw.Motion, hw.Driver, cfg.StallPollEvery, cfg.StrictSwitchCheck)
	c.safety.LimitDeparture(cfg.DepartTravel)
	c.settle.Handler = c.settleDone

	hw.Motion.SetMaxSpeed(cfg.MaxSpeed)
	hw.Motion.SetAcceleration(cfg.Acceleration)

	c.registerCommands()
	return c, nil
}

// Cycle runs one pass of the control loop: at most one command line, the
// stall poll, one state machine step and any due timers.
func (c *Controller) Cycle(src LineSource) {
	if src != nil {
		if line, ok := src.ReadLine(); ok {
			c.HandleLine(line)
		}
	}
	c.pollStall()
	c.Step()
	c.sched.Dispatch(core.GetTime())
	c.runEntries()
}

// Step advances the state machine once
func (c *Controller) Step() {
	c.update()
	c.runEntries()
}

func (c *Controller) update() {
	switch c.state {
	case StateHomingMin:
		if c.Settling() {
			return
		}
		c.hw.Motion.Run()
		if c.hw.Min.Triggered() {
			c.hw.Motion.Stop()
			c.hw.Motion.SetCurrentPosition(0)
			c.reply(protocol.KindInfo, "min position reached, pos=0")
			c.startSettle(c.homeTowardMax)
		}

	case StateHomingMax:
		if c.Settling() {
			return
		}
		c.hw.Motion.Run()
		if c.hw.Max.Triggered() {
			c.hw.Motion.Stop()
			// Hold at the switch instead of decelerating into it
			pos := c.hw.Motion.CurrentPosition()
			c.hw.Motion.SetCurrentPosition(pos)
			c.maxPosition = pos
			c.soft.Reset(pos)
			c.reply(protocol.KindInfo, "max position reached, steps="+core.Itoa(int(pos)))
			c.reply(protocol.KindInfo, "soft endstops min=0 max="+core.Itoa(int(pos)))
			c.startSettle(c.finishHoming)
		}

	case StateReady:
		c.hw.Motion.Run()
		if f := c.safety.Check(); f != FaultNone {
			c.fault(f)
		}

	case StateWaitReset:
		if core.GetTime()-c.errorTime >= ticks(c.cfg.ResetTimeout) {
			c.reply(protocol.KindInfo, "reset timeout elapsed")
			c.transition(StateAutoRehome)
		}
	}
}

// enter runs the entry action of s exactly once per transition
func (c *Controller) enter(s State) {
	switch s {
	case StateInit:
		c.reply(protocol.KindInfo, "homing")
		c.startHoming()

	case StateErrorDetected:
		c.hw.Motion.Stop()
		c.hw.Motion.SetCurrentPosition(c.hw.Motion.CurrentPosition())
		if err := c.hw.Enable.Disable(); err != nil {
			core.DebugPrintln("[AXIS] disable failed: " + err.Error())
		}
		c.errorTime = core.GetTime()
		c.reply(protocol.KindFault, "motor stopped, waiting for RESET")
		core.DumpEventRing()
		c.transition(StateWaitReset)

	case StateAutoRehome:
		c.cancelSettle()
		c.safety.ClearStall()
		c.reply(protocol.KindInfo, "rehoming")
		c.startHoming()
	}
}

func (c *Controller) transition(to State) {
	core.RecordEvent(core.EvtStateChange, int32(c.state), int32(to))
	core.DebugPrintln("[AXIS] " + c.state.String() + " -> " + to.String())
	c.state = to
	c.entering = true
}

func (c *Controller) runEntries() {
	for c.entering {
		c.entering = false
		c.enter(c.state)
	}
}

// startHoming energizes the driver and sends the axis toward min
func (c *Controller) startHoming() {
	if err := c.hw.Enable.Enable(); err != nil {
		core.DebugPrintln("[AXIS] enable failed: " + err.Error())
	}
	c.hw.Motion.SetMaxSpeed(c.cfg.HomingSpeed)
	c.hw.Motion.MoveTo(c.hw.Motion.CurrentPosition() - c.cfg.HomingTravel)
	c.transition(StateHomingMin)
}

func (c *Controller) homeTowardMax() {
	c.hw.Motion.MoveTo(c.hw.Motion.CurrentPosition() + c.cfg.HomingTravel)
	c.transition(StateHomingMax)
}

func (c *Controller) finishHoming() {
	c.hw.Motion.SetMaxSpeed(c.cfg.MaxSpeed)
	c.transition(StateReady)
	mid := c.moveTo(c.maxPosition / 2)
	c.reply(protocol.KindInfo, "ready, moving to "+core.Itoa(int(mid)))
}

func (c *Controller) startSettle(next func()) {
	c.settleNext = next
	c.settle.WakeTime = core.GetTime() + ticks(c.cfg.SettleTime)
	c.sched.Schedule(&c.settle)
}

func (c *Controller) settleDone(*core.Timer) uint8 {
	next := c.settleNext
	c.settleNext = nil
	if next != nil {
		next()
	}
	return core.SF_DONE
}

func (c *Controller) cancelSettle() {
	c.sched.Cancel(&c.settle)
	c.settleNext = nil
}

func (c *Controller) fault(f Fault) {
	c.lastFault = f
	core.RecordEvent(core.EvtFault, int32(f), c.hw.Motion.CurrentPosition())
	c.reply(protocol.KindFault, f.String())
	c.transition(StateErrorDetected)
}

// pollStall polls the driver while Ready
func (c *Controller) pollStall() {
	if c.state != StateReady {
		return
	}
	latched, err := c.safety.Poll()
	if err != nil {
		core.RecordEvent(core.EvtLinkError, 0, 0)
		core.DebugPrintln("[AXIS] driver link: " + err.Error())
		return
	}
	if latched {
		core.RecordEvent(core.EvtStallPoll, int32(c.hw.Driver.Status()), c.hw.Motion.CurrentPosition())
	}
}

// moveTo commands a target through the soft endstops and returns the
// target actually commanded
func (c *Controller) moveTo(target int32) int32 {
	cmd, limit := c.soft.Clamp(target)
	if limit != LimitNone {
		core.RecordEvent(core.EvtClamp, target, cmd)
		c.reply(protocol.KindInfo, "soft "+limit.String()+" endstop reached, target limited to "+core.Itoa(int(cmd)))
	}
	c.target = cmd
	c.safety.Arm()
	c.hw.Motion.MoveTo(cmd)
	return cmd
}

func (c *Controller) reply(kind, msg string) {
	if err := c.out.Reply(kind, msg); err != nil {
		core.DebugPrintln("[AXIS] reply dropped: " + err.Error())
	}
}

// State returns the current state
func (c *Controller) State() State {
	return c.state
}

// Position returns the current position in steps
func (c *Controller) Position() int32 {
	return c.hw.Motion.CurrentPosition()
}

// MaxPosition returns the travel recorded by the last homing
func (c *Controller) MaxPosition() int32 {
	return c.maxPosition
}

// Target returns the last commanded target
func (c *Controller) Target() int32 {
	return c.target
}

// SoftEndstops returns a copy of the soft endstop window
func (c *Controller) SoftEndstops() SoftEndstops {
	return c.soft
}

// Stalled reports the sticky stall flag
func (c *Controller) Stalled() bool {
	return c.safety.Stalled()
}

// LastFault returns the cause of the most recent fault
func (c *Controller) LastFault() Fault {
	return c.lastFault
}

// Settling reports whether a homing leg is paused
func (c *Controller) Settling() bool {
	return c.sched.Pending(&c.settle)
}

// Commands exposes the registered command set
func (c *Controller) Commands() *core.CommandRegistry {
	return c.registry
}
