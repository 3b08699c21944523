//go:build windows || no_cgo

package nlopt

import (
	"github.com/pkg/errors"

	"go.viam.com/tripkin/logging"
	"go.viam.com/tripkin/solver"
)

// Compile is not supported on no_cgo builds.
func Compile(problem solver.Problem, logger logging.Logger) (solver.Solver, error) {
	return nil, errors.New("nlopt is not supported on this build")
}
