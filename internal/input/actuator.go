package input

import "fmt"

// Button identifies a pointer button on the virtual mouse.
type Button string

const (
	ButtonLeft   Button = "left"
	ButtonRight  Button = "right"
	ButtonMiddle Button = "middle"
)

// Valid reports whether b is one of the recognized buttons.
func (b Button) Valid() bool {
	switch b {
	case ButtonLeft, ButtonRight, ButtonMiddle:
		return true
	}
	return false
}

// Actuator abstracts the platform pointer-control primitives. All methods
// return explicit errors; callers are expected to treat failures as
// non-fatal and keep serving.
type Actuator interface {
	// Position returns the current pointer location in screen pixels.
	Position() (x, y int, err error)
	// ScreenSize returns the primary screen dimensions in pixels.
	ScreenSize() (width, height int, err error)
	// MoveTo moves the pointer to an absolute screen coordinate.
	MoveTo(x, y int) error
	// Click presses and releases the given button at the current location.
	Click(b Button) error
	// DoubleClick performs a double left click at the current location.
	DoubleClick() error
	// Scroll scrolls by the given number of ticks, vertical then
	// horizontal. Positive vertical scrolls up.
	Scroll(vertical, horizontal int) error
}

// ErrUnsupportedButton is returned when an actuator is asked to click a
// button it does not recognize.
type ErrUnsupportedButton struct {
	Button Button
}

func (e *ErrUnsupportedButton) Error() string {
	return fmt.Sprintf("unsupported mouse button %q", string(e.Button))
}
