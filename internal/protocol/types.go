package protocol

import "github.com/user/remotemouse/internal/input"

// Kind discriminates the command variants. It is decided once at decode
// time; dispatch is a single switch over it.
type Kind string

const (
	KindMove        Kind = "move"
	KindClick       Kind = "click"
	KindScroll      Kind = "scroll"
	KindDoubleClick Kind = "double_click"

	// KindRejected marks input that parsed as JSON but named no
	// recognized command. Rejected commands are logged and dropped;
	// they never reach the actuator.
	KindRejected Kind = "rejected"
)

// Command is the decoded form of one wire message. Only the fields of
// the active variant are meaningful. Commands are immutable and consumed
// synchronously after decode.
type Command struct {
	Kind Kind

	// Move and Scroll deltas, in pixels of trackpad travel.
	DeltaX float64
	DeltaY float64

	// Click target button.
	Button input.Button

	// Rejection reason when Kind == KindRejected.
	Reason string
}
