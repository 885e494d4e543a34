package dispatch

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/user/remotemouse/internal/config"
	"github.com/user/remotemouse/internal/input"
	"github.com/user/remotemouse/internal/protocol"
)

// Policy holds the tunable pointer constants. Sensible values for the
// divisor are 3-10 and for the limit 10-15; defaults come from config.
type Policy struct {
	ScrollDivisor    int
	ScrollLimit      int
	JitterThreshold  float64
	MiddleClick      bool
	HorizontalScroll bool
}

func PolicyFromConfig(cfg *config.Config) Policy {
	return Policy{
		ScrollDivisor:    cfg.ScrollDivisor,
		ScrollLimit:      cfg.ScrollLimit,
		JitterThreshold:  cfg.JitterThreshold,
		MiddleClick:      cfg.MiddleClick,
		HorizontalScroll: cfg.HorizontalScroll,
	}
}

// Dispatcher maps decoded commands onto actuator calls. Actuator
// failures are logged here and never escape: one bad command must not
// take down a session, let alone the server.
type Dispatcher struct {
	act    input.Actuator
	width  int
	height int
	policy Policy
	log    *slog.Logger
}

// New caches the screen bounds once; resolution changes during the
// server's lifetime are an accepted limitation.
func New(act input.Actuator, policy Policy, logger *slog.Logger) (*Dispatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	w, h, err := act.ScreenSize()
	if err != nil {
		return nil, fmt.Errorf("query screen size: %w", err)
	}
	if w < 1 || h < 1 {
		return nil, fmt.Errorf("unusable screen size %dx%d", w, h)
	}
	return &Dispatcher{act: act, width: w, height: h, policy: policy, log: logger}, nil
}

// Bounds returns the cached screen dimensions.
func (d *Dispatcher) Bounds() (width, height int) {
	return d.width, d.height
}

func (d *Dispatcher) Dispatch(cmd protocol.Command) {
	switch cmd.Kind {
	case protocol.KindMove:
		d.move(cmd.DeltaX, cmd.DeltaY)
	case protocol.KindClick:
		d.click(cmd.Button)
	case protocol.KindDoubleClick:
		if err := d.act.DoubleClick(); err != nil {
			d.log.Error("double click failed", "error", err)
		}
	case protocol.KindScroll:
		d.scroll(cmd.DeltaY, cmd.DeltaX)
	case protocol.KindRejected:
		d.log.Warn("rejected command", "reason", cmd.Reason)
	default:
		d.log.Warn("unhandled command kind", "kind", cmd.Kind)
	}
}

// move reconstructs an absolute target from the relative delta and
// clamps it to the screen, so cumulative deltas can never drive the
// pointer off-screen.
func (d *Dispatcher) move(dx, dy float64) {
	x, y, err := d.act.Position()
	if err != nil {
		d.log.Error("pointer position query failed", "error", err)
		return
	}
	targetX := clampInt(x+int(math.Round(dx)), 0, d.width-1)
	targetY := clampInt(y+int(math.Round(dy)), 0, d.height-1)
	if err := d.act.MoveTo(targetX, targetY); err != nil {
		d.log.Error("pointer move failed", "x", targetX, "y", targetY, "error", err)
	}
}

func (d *Dispatcher) click(b input.Button) {
	if b == input.ButtonMiddle && !d.policy.MiddleClick {
		d.log.Warn("middle click disabled by policy")
		return
	}
	if err := d.act.Click(b); err != nil {
		d.log.Error("click failed", "button", string(b), "error", err)
	}
}

func (d *Dispatcher) scroll(dy, dx float64) {
	vertical := d.ticks(dy)
	horizontal := 0
	if d.policy.HorizontalScroll {
		horizontal = d.ticks(dx)
	}
	if vertical == 0 && horizontal == 0 {
		return
	}
	if err := d.act.Scroll(vertical, horizontal); err != nil {
		d.log.Error("scroll failed", "vertical", vertical, "horizontal", horizontal, "error", err)
	}
}

// ticks converts a raw trackpad delta into wheel ticks. Deltas within
// the jitter threshold are suppressed so a resting finger does not
// scroll the page.
func (d *Dispatcher) ticks(delta float64) int {
	if math.Abs(delta) <= d.policy.JitterThreshold {
		return 0
	}
	amount := int(math.Round(delta / float64(d.policy.ScrollDivisor)))
	return clampInt(amount, -d.policy.ScrollLimit, d.policy.ScrollLimit)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
