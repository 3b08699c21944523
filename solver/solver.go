// Package solver is the numerical substrate behind closed-chain mappings and inverse kinematics. A Problem is a
// parametric least-squares objective over a flat vector of unknowns; compiling it yields a reusable Solver that
// can be invoked many times with different parameters and initial guesses.
package solver

import (
	"context"

	"go.viam.com/tripkin/logging"
)

// DefaultTolerance is the objective value at or below which a solve counts as converged.
const DefaultTolerance = 1e-10

// An Objective scores a candidate x under parameters params. Lower is better; zero is a perfect fit.
type Objective func(x, params []float64) float64

// Problem describes a parametric minimization over NumVars unknowns.
type Problem struct {
	Name      string
	NumVars   int
	Objective Objective
	// Tolerance overrides DefaultTolerance when positive.
	Tolerance float64
	// MaxIterations bounds the number of major iterations. Zero selects the solver's default.
	MaxIterations int
}

func (p *Problem) tolerance() float64 {
	if p.Tolerance > 0 {
		return p.Tolerance
	}
	return DefaultTolerance
}

// Solution is a converged solve.
type Solution struct {
	X          []float64
	Objective  float64
	Iterations int
}

// A Solver is a compiled Problem.
type Solver interface {
	// Solve minimizes the problem's objective starting at x0 with params bound. It either returns a solution whose
	// objective is within tolerance or a *ConvergenceError.
	Solve(ctx context.Context, x0, params []float64) (*Solution, error)
}

// A Factory compiles problems into solvers.
type Factory func(problem Problem, logger logging.Logger) (Solver, error)

func validate(problem Problem) error {
	if problem.Objective == nil {
		return newProblemError(problem.Name, "objective is nil")
	}
	if problem.NumVars < 0 {
		return newProblemError(problem.Name, "negative number of unknowns")
	}
	return nil
}

// evaluateFixed handles problems without unknowns, which reduce to a single objective evaluation.
func evaluateFixed(problem Problem, params []float64) (*Solution, error) {
	f := problem.Objective(nil, params)
	if f > problem.tolerance() {
		return nil, NewConvergenceError(problem.Name, f, problem.tolerance(), nil)
	}
	return &Solution{X: []float64{}, Objective: f}, nil
}

func checkArity(problem Problem, x0 []float64) error {
	if len(x0) != problem.NumVars {
		return newProblemError(problem.Name, "initial guess has %d values, expected %d", len(x0), problem.NumVars)
	}
	return nil
}
