package track

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrInvalidCamelot is returned for codes that are not on the wheel.
var ErrInvalidCamelot = errors.New("invalid camelot code")

// Camelot is a position on the camelot wheel.
type Camelot struct {
	Number int  // 1-12
	Mode   byte // 'A' (minor) or 'B' (major)
}

// String returns the code, e.g. "8A".
func (c Camelot) String() string {
	return strconv.Itoa(c.Number) + string(c.Mode)
}

// ParseCamelot parses codes like "8A" or "12b".
func ParseCamelot(code string) (Camelot, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) < 2 {
		return Camelot{}, errors.Wrapf(ErrInvalidCamelot, "code %q", code)
	}
	mode := code[len(code)-1]
	if mode != 'A' && mode != 'B' {
		return Camelot{}, errors.Wrapf(ErrInvalidCamelot, "code %q", code)
	}
	n, err := strconv.Atoi(code[:len(code)-1])
	if err != nil || n < 1 || n > 12 {
		return Camelot{}, errors.Wrapf(ErrInvalidCamelot, "code %q", code)
	}
	return Camelot{Number: n, Mode: mode}, nil
}

// Distance returns the number of wheel steps between two positions (0-6).
func (c Camelot) Distance(o Camelot) int {
	d := (o.Number - c.Number) % 12
	if d < 0 {
		d += 12
	}
	if d > 6 {
		d = 12 - d
	}
	return d
}

// camelotWheel maps "<key>_<scale>" to a wheel position. Both sharps and
// flats are listed.
var camelotWheel = map[string]Camelot{
	"B_major": {1, 'B'}, "F#_major": {2, 'B'}, "Gb_major": {2, 'B'},
	"Db_major": {3, 'B'}, "C#_major": {3, 'B'}, "Ab_major": {4, 'B'},
	"G#_major": {4, 'B'}, "Eb_major": {5, 'B'}, "D#_major": {5, 'B'},
	"Bb_major": {6, 'B'}, "A#_major": {6, 'B'}, "F_major": {7, 'B'},
	"C_major": {8, 'B'}, "G_major": {9, 'B'}, "D_major": {10, 'B'},
	"A_major": {11, 'B'}, "E_major": {12, 'B'},

	"Ab_minor": {1, 'A'}, "G#_minor": {1, 'A'}, "Eb_minor": {2, 'A'},
	"D#_minor": {2, 'A'}, "Bb_minor": {3, 'A'}, "A#_minor": {3, 'A'},
	"F_minor": {4, 'A'}, "C_minor": {5, 'A'}, "G_minor": {6, 'A'},
	"D_minor": {7, 'A'}, "A_minor": {8, 'A'}, "E_minor": {9, 'A'},
	"B_minor": {10, 'A'}, "F#_minor": {11, 'A'}, "Gb_minor": {11, 'A'},
	"Db_minor": {12, 'A'}, "C#_minor": {12, 'A'},
}

// CamelotFromKey converts a key name and scale to a wheel position.
func CamelotFromKey(key, scale string) (Camelot, bool) {
	key = strings.TrimSpace(key)
	if key == "" {
		return Camelot{}, false
	}
	key = strings.ToUpper(key[:1]) + strings.ToLower(key[1:])
	c, ok := camelotWheel[key+"_"+strings.ToLower(strings.TrimSpace(scale))]
	return c, ok
}
