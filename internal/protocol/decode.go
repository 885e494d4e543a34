package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/user/remotemouse/internal/input"
)

// ErrMalformedPayload is returned when a line is not a JSON object.
var ErrMalformedPayload = errors.New("malformed payload")

// InvalidFieldError is returned when a known field carries a value that
// cannot be coerced to its expected type.
type InvalidFieldError struct {
	Field string
	Value any
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("invalid value %v for field %q", e.Value, e.Field)
}

type envelope struct {
	Type   string `json:"type"`
	DeltaX any    `json:"deltaX"`
	DeltaY any    `json:"deltaY"`
	Button string `json:"button"`
}

// Decode turns one trimmed line into exactly one Command. It is total:
// any input yields either a Command (possibly KindRejected) or an error,
// and the error never implies the connection must close.
func Decode(line []byte) (Command, error) {
	trimmed := bytes.TrimSpace(line)
	// Unmarshal alone is not enough: `null` and other non-object JSON
	// would pass through as an empty envelope.
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Command{}, fmt.Errorf("%w: not a JSON object", ErrMalformedPayload)
	}

	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return Command{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	switch env.Type {
	case "move":
		dx, err := coerceFloat("deltaX", env.DeltaX)
		if err != nil {
			return Command{}, err
		}
		dy, err := coerceFloat("deltaY", env.DeltaY)
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: KindMove, DeltaX: dx, DeltaY: dy}, nil

	case "click":
		button := input.Button(env.Button)
		if env.Button == "" {
			button = input.ButtonLeft
		}
		if !button.Valid() {
			return Command{Kind: KindRejected, Reason: "unknown button " + strconv.Quote(env.Button)}, nil
		}
		return Command{Kind: KindClick, Button: button}, nil

	case "scroll":
		dx, err := coerceFloat("deltaX", env.DeltaX)
		if err != nil {
			return Command{}, err
		}
		dy, err := coerceFloat("deltaY", env.DeltaY)
		if err != nil {
			return Command{}, err
		}
		return Command{Kind: KindScroll, DeltaX: dx, DeltaY: dy}, nil

	case "double_click":
		return Command{Kind: KindDoubleClick}, nil

	case "":
		return Command{Kind: KindRejected, Reason: "missing type"}, nil

	default:
		return Command{Kind: KindRejected, Reason: "unknown type " + strconv.Quote(env.Type)}, nil
	}
}

// coerceFloat accepts JSON numbers and numeric strings; phone clients
// have been observed sending both. Absent fields default to zero.
func coerceFloat(field string, v any) (float64, error) {
	switch val := v.(type) {
	case nil:
		return 0, nil
	case float64:
		return val, nil
	case string:
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, &InvalidFieldError{Field: field, Value: v}
		}
		return f, nil
	default:
		return 0, &InvalidFieldError{Field: field, Value: v}
	}
}
