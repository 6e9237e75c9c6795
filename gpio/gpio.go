// Package gpio provides the solenoid write path the actuator projector
// drives: an Initialize step that claims each pin through the Linux
// sysfs GPIO ABI, then a narrow per-channel write call.
package gpio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"syscall"
)

// Direction is a GPIO pin direction.
type Direction int

const (
	// In configures a pin as an input. The pod controller never uses
	// this; solenoids are outputs only, but the constant documents the
	// sysfs contract fully.
	In Direction = iota
	// Out configures a pin as an output.
	Out
)

// Writer is the narrow solenoid write contract the actuator projector
// depends on. A single Writer instance drives every solenoid GPIO; pin
// numbers are looked up from config.Config's pin maps.
type Writer interface {
	// Enable claims pin for use, performed once per channel at boot.
	Enable(pin int) error
	// SetDirection configures pin's direction.
	SetDirection(pin int, dir Direction) error
	// SetValue writes value (0 or 1) to pin.
	SetValue(pin int, value int) error
}

// Sysfs drives GPIO pins through the Linux sysfs ABI
// (/sys/class/gpio/gpioN/...). Base defaults to "/sys/class/gpio" and is
// only overridden in tests.
type Sysfs struct {
	Base string
}

// NewSysfs returns a Sysfs writer rooted at /sys/class/gpio.
func NewSysfs() *Sysfs {
	return &Sysfs{Base: "/sys/class/gpio"}
}

func (s *Sysfs) base() string {
	if s.Base == "" {
		return "/sys/class/gpio"
	}
	return s.Base
}

// Enable exports pin via /sys/class/gpio/export. Exporting an
// already-exported pin returns EBUSY from the kernel, which is not an
// error here.
func (s *Sysfs) Enable(pin int) error {
	f, err := os.OpenFile(filepath.Join(s.base(), "export"), os.O_WRONLY, 0200)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(strconv.Itoa(pin))
	if err != nil && !errors.Is(err, syscall.EBUSY) {
		return err
	}
	return nil
}

// SetDirection writes "in" or "out" to gpioN/direction.
func (s *Sysfs) SetDirection(pin int, dir Direction) error {
	v := "in"
	if dir == Out {
		v = "out"
	}
	return s.writeAttr(pin, "direction", v)
}

// SetValue writes 0 or 1 to gpioN/value.
func (s *Sysfs) SetValue(pin int, value int) error {
	if value != 0 {
		value = 1
	}
	return s.writeAttr(pin, "value", strconv.Itoa(value))
}

func (s *Sysfs) writeAttr(pin int, attr, value string) error {
	path := filepath.Join(s.base(), fmt.Sprintf("gpio%d", pin), attr)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0200)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(value)
	return err
}
