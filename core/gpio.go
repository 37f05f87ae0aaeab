// Digital output support
package core

// DigitalOut is a configured GPIO output with a safe default level
type DigitalOut struct {
	Pin          GPIOPin // Hardware pin
	DefaultValue bool    // Level applied at configuration
	value        bool
	driver       GPIODriver
}

// NewDigitalOut configures pin as an output and drives its default level
func NewDigitalOut(driver GPIODriver, pin GPIOPin, defaultValue bool) (*DigitalOut, error) {
	if driver == nil {
		driver = MustGPIO()
	}
	d := &DigitalOut{Pin: pin, DefaultValue: defaultValue, driver: driver}
	if err := driver.ConfigureOutput(pin, defaultValue); err != nil {
		return nil, err
	}
	d.value = defaultValue
	return d, nil
}

// Set drives the pin
func (d *DigitalOut) Set(value bool) error {
	if err := d.driver.SetPin(d.Pin, value); err != nil {
		return err
	}
	d.value = value
	return nil
}

// Value returns the last level written
func (d *DigitalOut) Value() bool {
	return d.value
}

// EnableOutput is the driver enable line: low energizes the motor,
// high de-energizes it. It powers up de-energized.
type EnableOutput struct {
	out *DigitalOut
}

// NewEnableOutput configures the enable pin, initially high
func NewEnableOutput(driver GPIODriver, pin GPIOPin) (*EnableOutput, error) {
	out, err := NewDigitalOut(driver, pin, true)
	if err != nil {
		return nil, err
	}
	return &EnableOutput{out: out}, nil
}

// Enable energizes the driver (pin low)
func (e *EnableOutput) Enable() error {
	return e.out.Set(false)
}

// Disable de-energizes the driver (pin high)
func (e *EnableOutput) Disable() error {
	return e.out.Set(true)
}

// Energized reports whether the driver is powered
func (e *EnableOutput) Energized() bool {
	return !e.out.Value()
}
