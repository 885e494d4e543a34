package input

import (
	"fmt"

	"github.com/go-vgo/robotgo"
)

// Desktop drives the real desktop pointer through robotgo.
type Desktop struct{}

func NewDesktop() *Desktop {
	return &Desktop{}
}

func (d *Desktop) Position() (int, int, error) {
	x, y := robotgo.Location()
	return x, y, nil
}

func (d *Desktop) ScreenSize() (int, int, error) {
	w, h := robotgo.GetScreenSize()
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("invalid screen size %dx%d", w, h)
	}
	return w, h, nil
}

func (d *Desktop) MoveTo(x, y int) error {
	robotgo.Move(x, y)
	return nil
}

func (d *Desktop) Click(b Button) error {
	if !b.Valid() {
		return &ErrUnsupportedButton{Button: b}
	}
	robotgo.Click(string(b))
	return nil
}

func (d *Desktop) DoubleClick() error {
	robotgo.Click(string(ButtonLeft), true)
	return nil
}

func (d *Desktop) Scroll(vertical, horizontal int) error {
	robotgo.Scroll(horizontal, vertical)
	return nil
}
