package schema

import "math"

// Scale is a fixed rational transform between wire integers and values.
type Scale uint8

const (
	ScaleIdentity Scale = iota
	ScaleDivTen
	ScaleMulTen
	// ScaleWhole writes whole units, dropping any fraction.
	ScaleWhole
)

// Ratio returns the exact numerator and denominator of the transform.
func (s Scale) Ratio() (num, den int64) {
	switch s {
	case ScaleDivTen:
		return 1, 10
	case ScaleMulTen:
		return 10, 1
	default:
		return 1, 1
	}
}

// Apply maps a wire integer to a value.
func (s Scale) Apply(raw int64) float64 {
	num, den := s.Ratio()
	return float64(raw*num) / float64(den)
}

// ToWire maps a value to the nearest wire integer. ScaleWhole truncates
// toward zero instead.
func (s Scale) ToWire(v float64) int64 {
	if s == ScaleWhole {
		return int64(math.Trunc(v))
	}
	num, den := s.Ratio()
	return int64(math.Round(v * float64(num) / float64(den)))
}

func (s Scale) String() string {
	switch s {
	case ScaleDivTen:
		return "/10"
	case ScaleMulTen:
		return "*10"
	case ScaleWhole:
		return "trunc"
	default:
		return "1"
	}
}
