//go:build !windows && !no_cgo

// Package nlopt compiles solver problems into NLopt's SLSQP method. It needs cgo and a system libnlopt; builds
// tagged no_cgo get a stub that refuses to compile problems.
package nlopt

import (
	"context"
	"math"

	"github.com/go-nlopt/nlopt"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/tripkin/logging"
	"go.viam.com/tripkin/solver"
)

const (
	defaultJump     = 1e-8
	defaultMaxEvals = 4001
)

type nloptSolver struct {
	problem solver.Problem
	logger  logging.Logger
}

// Compile is a solver.Factory backed by NLopt.
func Compile(problem solver.Problem, logger logging.Logger) (solver.Solver, error) {
	if problem.Objective == nil {
		return nil, errors.Errorf("problem %q: objective is nil", problem.Name)
	}
	return &nloptSolver{problem: problem, logger: logger}, nil
}

func (s *nloptSolver) tolerance() float64 {
	if s.problem.Tolerance > 0 {
		return s.problem.Tolerance
	}
	return solver.DefaultTolerance
}

func (s *nloptSolver) Solve(ctx context.Context, x0, params []float64) (*solver.Solution, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tol := s.tolerance()
	if s.problem.NumVars == 0 {
		f := s.problem.Objective(nil, params)
		if f > tol {
			return nil, solver.NewConvergenceError(s.problem.Name, f, tol, nil)
		}
		return &solver.Solution{X: []float64{}, Objective: f}, nil
	}
	if len(x0) != s.problem.NumVars {
		return nil, errors.Errorf("problem %q: initial guess has %d values, expected %d", s.problem.Name, len(x0), s.problem.NumVars)
	}

	opt, err := nlopt.NewNLopt(nlopt.LD_SLSQP, uint(s.problem.NumVars))
	if err != nil {
		return nil, errors.Wrap(err, "nlopt creation error")
	}
	defer opt.Destroy()

	iterations := 0
	// Gradient is, under the hood, an unsafe C structure that we are meant to mutate in place.
	minFunc := func(x, gradient []float64) float64 {
		iterations++
		dist := s.problem.Objective(x, params)
		if len(gradient) > 0 {
			probe := append([]float64{}, x...)
			for i := range gradient {
				probe[i] += defaultJump
				up := s.problem.Objective(probe, params)
				probe[i] -= 2 * defaultJump
				down := s.problem.Objective(probe, params)
				probe[i] += defaultJump
				gradient[i] = (up - down) / (2 * defaultJump)
			}
		}
		return dist
	}

	maxEvals := defaultMaxEvals
	if s.problem.MaxIterations > 0 {
		maxEvals = s.problem.MaxIterations
	}
	floatEpsilon := math.Nextafter(1, 2) - 1
	err = multierr.Combine(
		opt.SetFtolAbs(floatEpsilon),
		opt.SetFtolRel(floatEpsilon),
		opt.SetXtolRel(floatEpsilon),
		opt.SetStopVal(tol),
		opt.SetMinObjective(minFunc),
		opt.SetMaxEval(maxEvals),
	)
	if err != nil {
		return nil, err
	}

	x, f, nloptErr := opt.Optimize(append([]float64{}, x0...))
	if x == nil || math.IsNaN(f) || f > tol {
		if x == nil {
			f = math.Inf(1)
		}
		return nil, solver.NewConvergenceError(s.problem.Name, f, tol, nloptErr)
	}
	if nloptErr != nil {
		// This just *happens* sometimes due to roundoff once the stop value is already met.
		s.logger.Debugw("nlopt reported an error within tolerance", "problem", s.problem.Name, "error", nloptErr)
	}
	s.logger.Debugw("nlopt solve converged", "problem", s.problem.Name, "objective", f, "evaluations", iterations)
	return &solver.Solution{X: x, Objective: f, Iterations: iterations}, nil
}
