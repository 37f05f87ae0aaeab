package axis

import (
	"strconv"
	"strings"

	"github.com/google/shlex"

	"axisctl/core"
	"axisctl/protocol"
)

func (c *Controller) registerCommands() {
	r := c.registry
	r.Register("GOTO", "<steps>", c.cmdGoto)
	r.Register("POS?", "", c.cmdPosition)
	r.Register("RESET", "", c.cmdReset)
	r.Register("HOME", "", c.cmdHome)
	r.Register("SOFTMIN", "<steps>", c.cmdSoftMin)
	r.Register("SOFTMAX", "<steps>", c.cmdSoftMax)
	r.Register("SOFTENDSTOPS", "ON|OFF", c.cmdSoftEndstops)
	r.Register("SOFTENDSTOPS?", "", c.cmdSoftEndstopsQuery)
	r.Register("STATE?", "", c.cmdState)
	r.Register("HELP", "", c.cmdHelp)
}

// HandleLine parses and executes one command line. Every line gets at
// least one reply; rejections are reported as error lines.
func (c *Controller) HandleLine(line string) {
	tokens, err := shlex.Split(line)
	if err != nil {
		c.reply(protocol.KindError, ErrInvalidArgument.Error())
		return
	}
	if len(tokens) == 0 {
		return
	}

	var id int32 = -1
	if cmd, ok := c.registry.Lookup(tokens[0]); ok {
		id = int32(cmd.ID)
	}

	if err := c.registry.Dispatch(tokens[0], tokens[1:]); err != nil {
		core.RecordEvent(core.EvtCommand, id, 1)
		c.reply(protocol.KindError, err.Error())
	} else {
		core.RecordEvent(core.EvtCommand, id, 0)
	}
	c.runEntries()
}

func parseSteps(args []string) (int32, error) {
	if len(args) != 1 {
		return 0, ErrInvalidArgument
	}
	v, err := strconv.ParseInt(args[0], 10, 32)
	if err != nil {
		return 0, ErrInvalidArgument
	}
	return int32(v), nil
}

func (c *Controller) cmdGoto(args []string) error {
	if c.state != StateReady {
		return ErrNotReady
	}
	target, err := parseSteps(args)
	if err != nil {
		return err
	}
	cmd := c.moveTo(target)
	c.reply(protocol.KindOK, "target="+core.Itoa(int(cmd)))
	return nil
}

func (c *Controller) cmdPosition(args []string) error {
	c.reply(protocol.KindOK, "pos="+core.Itoa(int(c.hw.Motion.CurrentPosition())))
	return nil
}

func (c *Controller) cmdReset(args []string) error {
	if c.state != StateWaitReset {
		return ErrNoFault
	}
	c.safety.ClearStall()
	c.reply(protocol.KindOK, "reset")
	c.transition(StateAutoRehome)
	return nil
}

func (c *Controller) cmdHome(args []string) error {
	c.safety.ClearStall()
	c.reply(protocol.KindOK, "homing")
	c.transition(StateAutoRehome)
	return nil
}

func (c *Controller) cmdSoftMin(args []string) error {
	if c.state != StateReady {
		return ErrNotReady
	}
	v, err := parseSteps(args)
	if err != nil {
		return err
	}
	if err := c.soft.Configure(v, c.soft.Max); err != nil {
		return err
	}
	c.replySoftRange()
	return nil
}

func (c *Controller) cmdSoftMax(args []string) error {
	if c.state != StateReady {
		return ErrNotReady
	}
	v, err := parseSteps(args)
	if err != nil {
		return err
	}
	if err := c.soft.Configure(c.soft.Min, v); err != nil {
		return err
	}
	c.replySoftRange()
	return nil
}

func (c *Controller) replySoftRange() {
	c.reply(protocol.KindOK, "soft endstops min="+core.Itoa(int(c.soft.Min))+" max="+core.Itoa(int(c.soft.Max)))
}

func (c *Controller) cmdSoftEndstops(args []string) error {
	if len(args) != 1 {
		return ErrInvalidArgument
	}
	switch strings.ToUpper(args[0]) {
	case "ON":
		c.soft.Enable()
		c.reply(protocol.KindOK, "soft endstops enabled")
	case "OFF":
		c.soft.Disable()
		c.reply(protocol.KindOK, "soft endstops disabled")
	default:
		return ErrInvalidArgument
	}
	return nil
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func (c *Controller) cmdSoftEndstopsQuery(args []string) error {
	c.reply(protocol.KindOK, "softendstops="+onOff(c.soft.Enabled)+
		" min="+core.Itoa(int(c.soft.Min))+
		" max="+core.Itoa(int(c.soft.Max)))
	return nil
}

func (c *Controller) cmdState(args []string) error {
	stall := "0"
	if c.safety.Stalled() {
		stall = "1"
	}
	c.reply(protocol.KindOK, "state="+c.state.String()+
		" pos="+core.Itoa(int(c.hw.Motion.CurrentPosition()))+
		" target="+core.Itoa(int(c.target))+
		" max="+core.Itoa(int(c.maxPosition))+
		" stall="+stall)
	return nil
}

func (c *Controller) cmdHelp(args []string) error {
	for _, line := range strings.Split(c.registry.GetDictionary(), "\n") {
		if line != "" {
			c.reply(protocol.KindInfo, line)
		}
	}
	c.reply(protocol.KindOK, core.Itoa(c.registry.Count())+" commands")
	return nil
}
