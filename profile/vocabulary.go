package profile

import (
	"fmt"
	"sort"
	"strings"
)

// DeviceType tags a profile with the controller it emulates.
type DeviceType string

const (
	XboxController        DeviceType = "XboxController"
	PlayStationController DeviceType = "PlayStationController"
	KeyboardMouse         DeviceType = "KeyboardMouse"
)

// DefaultDeviceType is used for profiles created without an explicit type.
const DefaultDeviceType = XboxController

// DeviceTypes lists every supported device type.
func DeviceTypes() []DeviceType {
	return []DeviceType{XboxController, PlayStationController, KeyboardMouse}
}

// ParseDeviceType resolves a device type name, case-insensitively.
// Short aliases ("xbox", "ps", "kbm") are accepted for CLI use.
func ParseDeviceType(s string) (DeviceType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "xboxcontroller", "xbox", "xbox360":
		return XboxController, nil
	case "playstationcontroller", "playstation", "ps", "dualshock4", "ds4":
		return PlayStationController, nil
	case "keyboardmouse", "kbm", "keyboard":
		return KeyboardMouse, nil
	}
	return "", fmt.Errorf("%w: unknown device type %q", ErrValidation, s)
}

// OutputKind determines how an output mutates controller state.
type OutputKind string

const (
	Button  OutputKind = "Button"
	Axis    OutputKind = "Axis"
	Trigger OutputKind = "Trigger"
)

// ParseOutputKind resolves an output kind name, case-insensitively.
func ParseOutputKind(s string) (OutputKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "button":
		return Button, nil
	case "axis":
		return Axis, nil
	case "trigger":
		return Trigger, nil
	}
	return "", fmt.Errorf("%w: unknown output kind %q", ErrValidation, s)
}

// Xbox controller outputs.
const (
	XboxA            = "A_Button"
	XboxB            = "B_Button"
	XboxX            = "X_Button"
	XboxY            = "Y_Button"
	XboxLB           = "LB"
	XboxRB           = "RB"
	XboxLeftThumb    = "LeftAnalogStick_Click"
	XboxRightThumb   = "RightAnalogStick_Click"
	XboxView         = "ViewButton"
	XboxMenu         = "MenuButton"
	XboxGuide        = "XboxButton"
	XboxLeftTrigger  = "LT"
	XboxRightTrigger = "RT"
)

// PlayStation controller outputs.
const (
	PlayStationCross   = "Cross"
	PlayStationCircle  = "Circle"
	PlayStationSquare  = "Square"
	PlayStationTri     = "Triangle"
	PlayStationL1      = "L1"
	PlayStationR1      = "R1"
	PlayStationL3      = "L3"
	PlayStationR3      = "R3"
	PlayStationShare   = "Share"
	PlayStationOptions = "Options"
	PlayStationPS      = "PS"
	PlayStationTouch   = "Touchpad_Click"
	PlayStationL2      = "L2"
	PlayStationR2      = "R2"
)

// Outputs shared by both gamepads.
const (
	DpadUp      = "Dpad_Up"
	DpadDown    = "Dpad_Down"
	DpadLeft    = "Dpad_Left"
	DpadRight   = "Dpad_Right"
	LeftStickX  = "LeftStick_X"
	LeftStickY  = "LeftStick_Y"
	RightStickX = "RightStick_X"
	RightStickY = "RightStick_Y"
)

// Mouse button outputs for KeyboardMouse profiles. Keyboard outputs are
// named "Key_<name>", see KeyOutputs.
const (
	MouseLeft    = "Mouse_Left"
	MouseRight   = "Mouse_Right"
	MouseMiddle  = "Mouse_Middle"
	MouseBack    = "Mouse_Back"
	MouseForward = "Mouse_Forward"
)

var sticks = []string{LeftStickX, LeftStickY, RightStickX, RightStickY}

// KeyOutputs lists the keyboard output ids understood by KeyboardMouse profiles.
var KeyOutputs = func() []string {
	keys := []string{}
	for c := 'A'; c <= 'Z'; c++ {
		keys = append(keys, "Key_"+string(c))
	}
	for c := '0'; c <= '9'; c++ {
		keys = append(keys, "Key_"+string(c))
	}
	for i := 1; i <= 12; i++ {
		keys = append(keys, fmt.Sprintf("Key_F%d", i))
	}
	keys = append(keys,
		"Key_Space", "Key_Enter", "Key_Escape", "Key_Tab", "Key_Backspace",
		"Key_Up", "Key_Down", "Key_Left", "Key_Right",
		"Key_LeftShift", "Key_LeftCtrl", "Key_LeftAlt",
		"Key_RightShift", "Key_RightCtrl", "Key_RightAlt",
	)
	return keys
}()

var vocabulary = map[DeviceType]map[string]OutputKind{
	XboxController: build(
		[]string{
			XboxA, XboxB, XboxX, XboxY, XboxLB, XboxRB,
			XboxLeftThumb, XboxRightThumb, XboxView, XboxMenu, XboxGuide,
			DpadUp, DpadDown, DpadLeft, DpadRight,
		},
		sticks,
		[]string{XboxLeftTrigger, XboxRightTrigger},
	),
	PlayStationController: build(
		[]string{
			PlayStationCross, PlayStationCircle, PlayStationSquare, PlayStationTri,
			PlayStationL1, PlayStationR1, PlayStationL3, PlayStationR3,
			PlayStationShare, PlayStationOptions, PlayStationPS, PlayStationTouch,
			DpadUp, DpadDown, DpadLeft, DpadRight,
		},
		sticks,
		[]string{PlayStationL2, PlayStationR2},
	),
	KeyboardMouse: build(
		append(append([]string{}, KeyOutputs...), MouseLeft, MouseRight, MouseMiddle, MouseBack, MouseForward),
		nil,
		nil,
	),
}

func build(buttons, axes, triggers []string) map[string]OutputKind {
	m := make(map[string]OutputKind, len(buttons)+len(axes)+len(triggers))
	for _, b := range buttons {
		m[b] = Button
	}
	for _, a := range axes {
		m[a] = Axis
	}
	for _, t := range triggers {
		m[t] = Trigger
	}
	return m
}

// Lookup returns the kind of outputID for the given device type.
func Lookup(dt DeviceType, outputID string) (OutputKind, bool) {
	k, ok := vocabulary[dt][outputID]
	return k, ok
}

// Outputs returns the sorted output ids of the given kind for a device type.
// An empty kind returns every output.
func Outputs(dt DeviceType, kind OutputKind) []string {
	out := []string{}
	for id, k := range vocabulary[dt] {
		if kind == "" || k == kind {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// Valid reports whether dt is a known device type.
func (dt DeviceType) Valid() bool {
	_, ok := vocabulary[dt]
	return ok
}

// Valid reports whether k is a known output kind.
func (k OutputKind) Valid() bool {
	return k == Button || k == Axis || k == Trigger
}
