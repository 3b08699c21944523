package solver

import (
	"context"
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/optimize"

	"go.viam.com/tripkin/logging"
)

const (
	defaultMaxIterations = 1000
	gradientThreshold    = 1e-14
	// Iterations without objective improvement before giving up.
	stallIterations = 50
)

// gonumSolver minimizes with BFGS, using central finite differences for the gradient.
type gonumSolver struct {
	problem Problem
	logger  logging.Logger
}

// Compile is the default Factory. It is pure Go and safe to use on any build.
func Compile(problem Problem, logger logging.Logger) (Solver, error) {
	if err := validate(problem); err != nil {
		return nil, err
	}
	if problem.MaxIterations <= 0 {
		problem.MaxIterations = defaultMaxIterations
	}
	return &gonumSolver{problem: problem, logger: logger}, nil
}

func (s *gonumSolver) Solve(ctx context.Context, x0, params []float64) (*Solution, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.problem.NumVars == 0 {
		return evaluateFixed(s.problem, params)
	}
	if err := checkArity(s.problem, x0); err != nil {
		return nil, err
	}

	tol := s.problem.tolerance()
	objective := func(x []float64) float64 {
		return s.problem.Objective(x, params)
	}
	p := optimize.Problem{
		Func: objective,
		Grad: func(grad, x []float64) {
			fd.Gradient(grad, objective, x, &fd.Settings{Formula: fd.Central})
		},
	}
	settings := &optimize.Settings{
		GradientThreshold: gradientThreshold,
		MajorIterations:   s.problem.MaxIterations,
		Converger: &stopValueConverger{
			stopVal:  tol,
			fallback: &optimize.FunctionConverge{Absolute: tol * 1e-3, Iterations: stallIterations},
		},
	}

	result, err := optimize.Minimize(p, append([]float64{}, x0...), settings, &optimize.BFGS{})
	if result == nil {
		return nil, NewConvergenceError(s.problem.Name, math.Inf(1), tol, err)
	}
	if math.IsNaN(result.F) || result.F > tol {
		s.logger.Debugw("solve failed", "problem", s.problem.Name, "objective", result.F, "status", result.Status.String())
		return nil, NewConvergenceError(s.problem.Name, result.F, tol, err)
	}
	if err != nil {
		// the method can complain about a degenerate line search after it already reached the tolerance
		s.logger.Debugw("solver reported an error within tolerance", "problem", s.problem.Name, "error", err)
	}
	s.logger.Debugw("solve converged",
		"problem", s.problem.Name,
		"objective", result.F,
		"iterations", result.Stats.MajorIterations,
	)
	return &Solution{X: result.X, Objective: result.F, Iterations: result.Stats.MajorIterations}, nil
}

// stopValueConverger ends the run as soon as the objective is within tolerance, mirroring nlopt's stopval.
type stopValueConverger struct {
	stopVal  float64
	fallback optimize.Converger
}

func (c *stopValueConverger) Init(dim int) {
	c.fallback.Init(dim)
}

func (c *stopValueConverger) Converged(loc *optimize.Location) optimize.Status {
	if loc.F <= c.stopVal {
		return optimize.Success
	}
	return c.fallback.Converged(loc)
}
