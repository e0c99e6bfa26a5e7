package color

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
)

var (
	// ErrInvalidColorFormat reports text that is not of the form hsl(H, S%, L%).
	ErrInvalidColorFormat = errors.New("INVALID_COLOR_FORMAT")
	// ErrEmptyColorSet reports an Average call without any input colors.
	ErrEmptyColorSet = errors.New("EMPTY_COLOR_SET")
)

// Background is the color carried by every dead cell.
var Background = HSL{H: 360, S: 100, L: 100}

// HSL is a hue (degrees), saturation (percent), lightness (percent) triple.
type HSL struct {
	H float64
	S float64
	L float64
}

const number = `([-+]?(?:\d+(?:\.\d*)?|\.\d+))`

var hslPattern = regexp.MustCompile(`^\s*hsl\(\s*` + number + `\s*,\s*` + number + `\s*%\s*,\s*` + number + `\s*%\s*\)\s*$`)

// Parse reads the canonical text form hsl(H, S%, L%).
func Parse(s string) (HSL, error) {
	match := hslPattern.FindStringSubmatch(s)
	if match == nil {
		return HSL{}, fmt.Errorf("%w: %q", ErrInvalidColorFormat, s)
	}
	var parts [3]float64
	for i := range parts {
		value, err := strconv.ParseFloat(match[i+1], 64)
		if err != nil {
			return HSL{}, fmt.Errorf("%w: %q", ErrInvalidColorFormat, s)
		}
		parts[i] = value
	}
	return HSL{H: parts[0], S: parts[1], L: parts[2]}, nil
}

// Valid reports whether s parses as an HSL color.
func Valid(s string) bool {
	return hslPattern.MatchString(s)
}

// Format renders the components in canonical form. Components are rounded to
// two decimals.
func Format(h HSL) string {
	return fmt.Sprintf("hsl(%s, %s%%, %s%%)", component(h.H), component(h.S), component(h.L))
}

// String implements fmt.Stringer.
func (h HSL) String() string {
	return Format(h)
}

// Average returns the componentwise arithmetic mean of colors.
func Average(colors []HSL) (HSL, error) {
	if len(colors) == 0 {
		return HSL{}, ErrEmptyColorSet
	}
	var sum HSL
	for _, c := range colors {
		sum.H += c.H
		sum.S += c.S
		sum.L += c.L
	}
	n := float64(len(colors))
	return HSL{H: sum.H / n, S: sum.S / n, L: sum.L / n}, nil
}

// Equal compares colors at the precision used by Format.
func (h HSL) Equal(other HSL) bool {
	return Format(h) == Format(other)
}

// MarshalJSON encodes the color as its canonical text form.
func (h HSL) MarshalJSON() ([]byte, error) {
	return json.Marshal(Format(h))
}

// UnmarshalJSON decodes the canonical text form.
func (h *HSL) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidColorFormat, data)
	}
	parsed, err := Parse(text)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

func component(v float64) string {
	rounded := math.Round(v*100) / 100
	if rounded == 0 {
		rounded = 0
	}
	return strconv.FormatFloat(rounded, 'f', -1, 64)
}
