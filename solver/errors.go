package solver

import (
	"fmt"

	"github.com/pkg/errors"
)

// ConvergenceError is returned when a solve ends without reaching its tolerance. The best objective value found
// is reported, never the location, so a failed solve cannot be mistaken for an answer.
type ConvergenceError struct {
	Problem   string
	Objective float64
	Tolerance float64
	Err       error
}

// NewConvergenceError returns an error for a solve of the named problem that stopped at objective.
func NewConvergenceError(problem string, objective, tolerance float64, cause error) error {
	return &ConvergenceError{Problem: problem, Objective: objective, Tolerance: tolerance, Err: cause}
}

func (e *ConvergenceError) Error() string {
	msg := fmt.Sprintf("%s did not converge: objective %g above tolerance %g", e.Problem, e.Objective, e.Tolerance)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConvergenceError) Unwrap() error {
	return e.Err
}

// IsConvergenceError reports whether err, or anything it wraps, is a *ConvergenceError.
func IsConvergenceError(err error) bool {
	var convErr *ConvergenceError
	return errors.As(err, &convErr)
}

func newProblemError(problem, format string, args ...interface{}) error {
	return errors.Errorf("problem %q: %s", problem, fmt.Sprintf(format, args...))
}
