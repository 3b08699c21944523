package spatialmath

import (
	"strings"

	"github.com/pkg/errors"
)

// A Convention names the order in which the elementary rotations rx, ry and rz are composed. Each letter is
// applied about the already rotated (intrinsic) axes, so "xyz" builds Rx(rx) * Ry(ry) * Rz(rz).
type Convention string

// DefaultConvention is used when a transformation does not name one.
const DefaultConvention Convention = "xyz"

// ParseConvention normalizes and validates a convention string. An empty string yields DefaultConvention.
func ParseConvention(s string) (Convention, error) {
	if s == "" {
		return DefaultConvention, nil
	}
	conv := Convention(strings.ToLower(s))
	if err := conv.Validate(); err != nil {
		return "", err
	}
	return conv, nil
}

// Validate checks that the convention is a permutation of x, y and z.
func (c Convention) Validate() error {
	if len(c) != 3 {
		return errors.Errorf("rotation convention %q must name each of x, y and z exactly once", string(c))
	}
	seen := map[rune]bool{}
	for _, axis := range c {
		if axis != 'x' && axis != 'y' && axis != 'z' {
			return errors.Errorf("rotation convention %q has unknown axis %q", string(c), axis)
		}
		if seen[axis] {
			return errors.Errorf("rotation convention %q repeats axis %q", string(c), axis)
		}
		seen[axis] = true
	}
	return nil
}

func (c Convention) String() string {
	return string(c)
}
