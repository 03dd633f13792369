package viiper

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/Alia5/remapd/controller"
	"github.com/Alia5/remapd/profile"
)

// VIIPER device type names.
const (
	DeviceXbox360    = "xbox360"
	DeviceDualShock4 = "dualshock4"
	DeviceKeyboard   = "keyboard"
	DeviceMouse      = "mouse"
)

// Frame sizes accepted by the device stream handlers.
const (
	Xbox360FrameSize    = 14
	DualShock4FrameSize = 31
	MouseFrameSize      = 9
)

// Devices returns the VIIPER device types that back a profile device type,
// in the order frames are written.
func Devices(dt profile.DeviceType) []string {
	switch dt {
	case profile.XboxController:
		return []string{DeviceXbox360}
	case profile.PlayStationController:
		return []string{DeviceDualShock4}
	case profile.KeyboardMouse:
		return []string{DeviceKeyboard, DeviceMouse}
	}
	return nil
}

// Encode builds the input frame for one VIIPER device type.
func Encode(device string, s controller.State) []byte {
	switch device {
	case DeviceXbox360:
		return EncodeXbox360(s)
	case DeviceDualShock4:
		return EncodeDualShock4(s)
	case DeviceKeyboard:
		return EncodeKeyboard(s)
	case DeviceMouse:
		return EncodeMouse(s)
	}
	return nil
}

var xboxButtons = map[string]uint32{
	profile.DpadUp:         0x0001,
	profile.DpadDown:       0x0002,
	profile.DpadLeft:       0x0004,
	profile.DpadRight:      0x0008,
	profile.XboxMenu:       0x0010,
	profile.XboxView:       0x0020,
	profile.XboxLeftThumb:  0x0040,
	profile.XboxRightThumb: 0x0080,
	profile.XboxLB:         0x0100,
	profile.XboxRB:         0x0200,
	profile.XboxGuide:      0x0400,
	profile.XboxA:          0x1000,
	profile.XboxB:          0x2000,
	profile.XboxX:          0x4000,
	profile.XboxY:          0x8000,
}

// EncodeXbox360 lays out buttons u32, LT u8, RT u8, then LX LY RX RY as
// little endian i16. Stick Y is positive up, as in XInput.
func EncodeXbox360(s controller.State) []byte {
	b := make([]byte, Xbox360FrameSize)
	var buttons uint32
	for name := range s.Buttons {
		buttons |= xboxButtons[name]
	}
	binary.LittleEndian.PutUint32(b[0:4], buttons)
	b[4] = unitToU8(s.Trigger(profile.XboxLeftTrigger))
	b[5] = unitToU8(s.Trigger(profile.XboxRightTrigger))
	binary.LittleEndian.PutUint16(b[6:8], uint16(axisToI16(s.Axis(profile.LeftStickX))))
	binary.LittleEndian.PutUint16(b[8:10], uint16(axisToI16(s.Axis(profile.LeftStickY))))
	binary.LittleEndian.PutUint16(b[10:12], uint16(axisToI16(s.Axis(profile.RightStickX))))
	binary.LittleEndian.PutUint16(b[12:14], uint16(axisToI16(s.Axis(profile.RightStickY))))
	return b
}

var ds4Buttons = map[string]uint16{
	profile.PlayStationPS:      0x0001,
	profile.PlayStationTouch:   0x0002,
	profile.PlayStationSquare:  0x0010,
	profile.PlayStationCross:   0x0020,
	profile.PlayStationCircle:  0x0040,
	profile.PlayStationTri:     0x0080,
	profile.PlayStationL1:      0x0100,
	profile.PlayStationR1:      0x0200,
	profile.PlayStationShare:   0x1000,
	profile.PlayStationOptions: 0x2000,
	profile.PlayStationL3:      0x4000,
	profile.PlayStationR3:      0x8000,
}

var ds4DPad = map[string]uint8{
	profile.DpadUp:    0x01,
	profile.DpadDown:  0x02,
	profile.DpadLeft:  0x04,
	profile.DpadRight: 0x08,
}

const (
	ds4ButtonL2 uint16 = 0x0400
	ds4ButtonR2 uint16 = 0x0800

	// Accelerometer Z of a controller lying flat.
	ds4AccelZFlat int16 = -5023
)

// EncodeDualShock4 lays out sticks as i8 (Y positive down, as in HID),
// buttons u16, dpad bits u8, L2 and R2 u8, both touch points, gyro and
// accelerometer. Touch and gyro stay zero; the accelerometer reports a
// resting controller. A non-zero trigger also sets its digital button.
func EncodeDualShock4(s controller.State) []byte {
	b := make([]byte, DualShock4FrameSize)
	b[0] = uint8(axisToI8(s.Axis(profile.LeftStickX)))
	b[1] = uint8(axisToI8(-s.Axis(profile.LeftStickY)))
	b[2] = uint8(axisToI8(s.Axis(profile.RightStickX)))
	b[3] = uint8(axisToI8(-s.Axis(profile.RightStickY)))

	var buttons uint16
	var dpad uint8
	for name := range s.Buttons {
		buttons |= ds4Buttons[name]
		dpad |= ds4DPad[name]
	}
	l2 := unitToU8(s.Trigger(profile.PlayStationL2))
	r2 := unitToU8(s.Trigger(profile.PlayStationR2))
	if l2 > 0 {
		buttons |= ds4ButtonL2
	}
	if r2 > 0 {
		buttons |= ds4ButtonR2
	}
	binary.LittleEndian.PutUint16(b[4:6], buttons)
	b[6] = dpad
	b[7] = l2
	b[8] = r2
	// 9..18 touch points, 19..24 gyro, 25..28 accel X/Y: zero.
	accelZ := ds4AccelZFlat
	binary.LittleEndian.PutUint16(b[29:31], uint16(accelZ))
	return b
}

var keyCodes = func() map[string]uint8 {
	m := map[string]uint8{
		"Key_Enter":     0x28,
		"Key_Escape":    0x29,
		"Key_Backspace": 0x2A,
		"Key_Tab":       0x2B,
		"Key_Space":     0x2C,
		"Key_Right":     0x4F,
		"Key_Left":      0x50,
		"Key_Down":      0x51,
		"Key_Up":        0x52,
		"Key_0":         0x27,
	}
	for c := 'A'; c <= 'Z'; c++ {
		m["Key_"+string(c)] = 0x04 + uint8(c-'A')
	}
	for c := '1'; c <= '9'; c++ {
		m["Key_"+string(c)] = 0x1E + uint8(c-'1')
	}
	for i := 1; i <= 12; i++ {
		m[fmt.Sprintf("Key_F%d", i)] = 0x3A + uint8(i-1)
	}
	return m
}()

var keyModifiers = map[string]uint8{
	"Key_LeftCtrl":   0x01,
	"Key_LeftShift":  0x02,
	"Key_LeftAlt":    0x04,
	"Key_RightCtrl":  0x10,
	"Key_RightShift": 0x20,
	"Key_RightAlt":   0x40,
}

// EncodeKeyboard lays out modifiers u8, key count u8 and the HID usage
// codes of every held key in ascending order.
func EncodeKeyboard(s controller.State) []byte {
	var mods uint8
	var keys []uint8
	for name := range s.Buttons {
		if m, ok := keyModifiers[name]; ok {
			mods |= m
			continue
		}
		if code, ok := keyCodes[name]; ok {
			keys = append(keys, code)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	b := make([]byte, 0, 2+len(keys))
	b = append(b, mods, uint8(len(keys)))
	return append(b, keys...)
}

var mouseButtons = map[string]uint8{
	profile.MouseLeft:    0x01,
	profile.MouseRight:   0x02,
	profile.MouseMiddle:  0x04,
	profile.MouseBack:    0x08,
	profile.MouseForward: 0x10,
}

// EncodeMouse lays out buttons u8 followed by DX, DY, wheel and pan as
// little endian i16. Button remapping never moves the pointer, so the
// deltas are zero.
func EncodeMouse(s controller.State) []byte {
	b := make([]byte, MouseFrameSize)
	for name := range s.Buttons {
		b[0] |= mouseButtons[name]
	}
	return b
}

func axisToI16(v float64) int16 {
	return int16(math.Round(controller.Clamp(v, -1, 1) * math.MaxInt16))
}

func axisToI8(v float64) int8 {
	return int8(math.Round(controller.Clamp(v, -1, 1) * math.MaxInt8))
}

func unitToU8(v float64) uint8 {
	return uint8(math.Round(controller.Clamp(v, 0, 1) * math.MaxUint8))
}
