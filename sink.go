package diversity

import (
	"encoding/json"
	"io"
	"math"

	"github.com/pkg/errors"
)

// Sink hands a Result to whatever presents it.
type Sink interface {
	Write(res *Result) error
}

// JSONSink writes each Result as one JSON document.
type JSONSink struct {
	enc *json.Encoder
}

// NewJSONSink gets a JSONSink writing to w. Indent pretty-prints.
func NewJSONSink(w io.Writer, indent bool) *JSONSink {
	enc := json.NewEncoder(w)
	if indent {
		enc.SetIndent("", "  ")
	}
	return &JSONSink{enc: enc}
}

// Write implements Sink. Non-finite values are written as null.
func (s *JSONSink) Write(res *Result) error {
	return errors.Wrap(s.enc.Encode(res), "encoding result")
}

// FiniteOrNull returns a pointer to f, or nil when f is NaN or infinite.
// JSON has no NaN, so encoders use it to write such values as null.
func FiniteOrNull(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}
