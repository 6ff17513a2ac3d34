//go:build windows

package device

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	spiGetMouse      = 0x0003
	spiSetMouse      = 0x0004
	spiGetMouseSpeed = 0x0070
	spiSetMouseSpeed = 0x0071
)

var (
	user32                    = windows.NewLazySystemDLL("user32.dll")
	procSystemParametersInfoW = user32.NewProc("SystemParametersInfoW")
	procSetCursorPos          = user32.NewProc("SetCursorPos")
)

// SystemController drives the Win32 pointer settings. Changes are not
// persisted to the user profile.
type SystemController struct{}

// Native returns the platform controller.
func Native() (Controller, Cursor, error) {
	if err := procSystemParametersInfoW.Find(); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrUnsupported, err)
	}
	c := SystemController{}
	return c, c, nil
}

func spiError(action uintptr, r uintptr, err error) error {
	if r == 0 {
		return fmt.Errorf("SystemParametersInfoW(%#x): %w", action, err)
	}
	return nil
}

func (SystemController) Speed() (int, error) {
	var speed int32
	r, _, err := procSystemParametersInfoW.Call(spiGetMouseSpeed, 0, uintptr(unsafe.Pointer(&speed)), 0)
	if err := spiError(spiGetMouseSpeed, r, err); err != nil {
		return 0, err
	}
	return int(speed), nil
}

func (SystemController) SetSpeed(speed int) error {
	if err := ValidateSpeed(speed); err != nil {
		return err
	}
	// SPI_SETMOUSESPEED takes the value itself in pvParam
	r, _, err := procSystemParametersInfoW.Call(spiSetMouseSpeed, 0, uintptr(speed), 0)
	return spiError(spiSetMouseSpeed, r, err)
}

func (SystemController) Acceleration() (bool, error) {
	var params [3]int32
	r, _, err := procSystemParametersInfoW.Call(spiGetMouse, 0, uintptr(unsafe.Pointer(&params[0])), 0)
	if err := spiError(spiGetMouse, r, err); err != nil {
		return false, err
	}
	return params[2] != 0, nil
}

func (SystemController) SetAcceleration(enabled bool) error {
	var params [3]int32
	r, _, err := procSystemParametersInfoW.Call(spiGetMouse, 0, uintptr(unsafe.Pointer(&params[0])), 0)
	if err := spiError(spiGetMouse, r, err); err != nil {
		return err
	}
	params[2] = 0
	if enabled {
		params[2] = 1
	}
	r, _, err = procSystemParametersInfoW.Call(spiSetMouse, 0, uintptr(unsafe.Pointer(&params[0])), 0)
	return spiError(spiSetMouse, r, err)
}

func (SystemController) SetCursorPosition(x, y int) error {
	r, _, err := procSetCursorPos.Call(uintptr(int32(x)), uintptr(int32(y)))
	if r == 0 {
		return fmt.Errorf("SetCursorPos(%d, %d): %w", x, y, err)
	}
	return nil
}
