package cli

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/golang/geo/r3"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/tripkin/config"
	"go.viam.com/tripkin/kinematics"
	"go.viam.com/tripkin/logging"
	"go.viam.com/tripkin/referenceframe"
	"go.viam.com/tripkin/registry"
	"go.viam.com/tripkin/robots/triped"
	"go.viam.com/tripkin/solver"
	"go.viam.com/tripkin/solver/nlopt"
)

const defaultSolver = "gonum"

var solvers = map[string]solver.Factory{
	defaultSolver: solver.Compile,
	"nlopt":       nlopt.Compile,
}

type builtinRobot func(factory solver.Factory, logger logging.Logger) (*referenceframe.Robot, error)

var builtinRobots = map[string]builtinRobot{
	"triped": triped.NewRobotWithFactory,
}

func solverNames() string {
	names := lo.Keys(solvers)
	sort.Strings(names)
	return strings.Join(names, ", ")
}

func builtinRobotNames() string {
	names := lo.Keys(builtinRobots)
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// PrintError prints err to w in red.
func PrintError(w io.Writer, err error) {
	red := color.New(color.FgRed, color.Bold)
	//nolint:errcheck
	red.Fprintf(w, "Error: %v\n", err)
}

// setupLogger installs the global logger the commands log to.
func setupLogger(c *cli.Context) error {
	logger := logging.NewBlankLogger("tripkin")
	switch {
	case c.Bool(generalFlagDebug):
		logger = logging.NewDebugLogger("tripkin")
	case c.String(generalFlagLogLevel) != "":
		level, err := logging.LevelFromString(c.String(generalFlagLogLevel))
		if err != nil {
			return err
		}
		logger = logging.NewLogger("tripkin")
		logger.SetLevel(level)
	}
	logging.ReplaceGlobal(logger)
	return nil
}

func solverFactory(c *cli.Context) (solver.Factory, error) {
	name := c.String(robotFlagSolver)
	factory, ok := solvers[name]
	if !ok {
		return nil, errors.Errorf("unknown solver %q, expected one of %s", name, solverNames())
	}
	return factory, nil
}

// loadRobot builds the robot selected by the robot flags and applies any --set values.
func loadRobot(c *cli.Context, logger logging.Logger) (*referenceframe.Robot, error) {
	model, builtin := c.String(robotFlagModel), c.String(robotFlagBuiltin)
	if (model == "") == (builtin == "") {
		return nil, errors.Errorf("exactly one of --%s and --%s must be given", robotFlagModel, robotFlagBuiltin)
	}
	factory, err := solverFactory(c)
	if err != nil {
		return nil, err
	}

	var robot *referenceframe.Robot
	if model != "" {
		robot, err = config.ReadModelFile(model, logger)
	} else {
		create, ok := builtinRobots[builtin]
		if !ok {
			return nil, errors.Errorf("unknown robot %q, expected one of %s", builtin, builtinRobotNames())
		}
		robot, err = create(factory, logger)
	}
	if err != nil {
		return nil, err
	}

	state, err := parseState(c.StringSlice(stateFlagSet))
	if err != nil {
		return nil, err
	}
	if len(state) == 0 {
		return robot, nil
	}
	if c.Bool(stateFlagVirtual) {
		err = robot.SetVirtualState(state)
	} else {
		err = robot.SetActuatedState(state)
	}
	if err != nil {
		return nil, err
	}
	return robot, nil
}

// parseState parses KEY=VALUE pairs.
func parseState(pairs []string) (referenceframe.State, error) {
	state := referenceframe.State{}
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, errors.Errorf("%q is not of the form KEY=VALUE", pair)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, errors.Wrapf(err, "value of %q", key)
		}
		state[key] = v
	}
	return state, nil
}

// parseHints parses GROUP:KEY=VALUE triples into per group states.
func parseHints(triples []string) (map[string]referenceframe.State, error) {
	hints := map[string]referenceframe.State{}
	for _, triple := range triples {
		group, pair, ok := strings.Cut(triple, ":")
		if !ok || group == "" {
			return nil, errors.Errorf("%q is not of the form GROUP:KEY=VALUE", triple)
		}
		state, err := parseState([]string{pair})
		if err != nil {
			return nil, err
		}
		if hints[group] == nil {
			hints[group] = referenceframe.State{}
		}
		for k, v := range state {
			hints[group][k] = v
		}
	}
	return hints, nil
}

// parseVector parses X,Y,Z.
func parseVector(s string) (r3.Vector, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return r3.Vector{}, errors.Errorf("%q is not of the form X,Y,Z", s)
	}
	var xyz [3]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return r3.Vector{}, errors.Wrapf(err, "coordinate %d of %q", i, s)
		}
		xyz[i] = v
	}
	return r3.Vector{X: xyz[0], Y: xyz[1], Z: xyz[2]}, nil
}

func formatState(state referenceframe.State) string {
	return strings.Join(lo.Map(state.Keys(), func(k string, _ int) string {
		return fmt.Sprintf("%s=%.4f", k, state[k])
	}), " ")
}

func renderState(w io.Writer, state referenceframe.State) {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Key", "Value"})
	for _, k := range state.Keys() {
		t.AppendRow(table.Row{k, fmt.Sprintf("%.6f", state[k])})
	}
	fmt.Fprintln(w, t.Render())
}

// MappersAction is the corresponding Action for 'mappers'.
func MappersAction(c *cli.Context) error {
	for _, model := range registry.RegisteredMappers() {
		fmt.Fprintln(c.App.Writer, model)
	}
	return nil
}

// StateAction is the corresponding Action for 'state'.
func StateAction(c *cli.Context) error {
	logger := logging.Global()
	robot, err := loadRobot(c, logger)
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.AppendHeader(table.Row{"Group", "Parent", "Kind", "Actuated", "Virtual"})
	for _, name := range robot.GroupNames() {
		g, err := robot.Group(name)
		if err != nil {
			return err
		}
		kind := "open"
		if _, ok := g.(*referenceframe.ClosedGroup); ok {
			kind = "closed"
		}
		parent := g.Parent()
		if parent == name {
			parent = "-"
		}
		t.AppendRow(table.Row{name, parent, kind, formatState(g.ActuatedState()), formatState(g.VirtualState())})
	}
	fmt.Fprintln(c.App.Writer, t.Render())
	return nil
}

// ForwardKinematicsAction is the corresponding Action for 'fk'.
func ForwardKinematicsAction(c *cli.Context) error {
	logger := logging.Global()
	robot, err := loadRobot(c, logger)
	if err != nil {
		return err
	}
	pose, err := kinematics.ForwardKinematics(robot, c.String(kinFlagGroup))
	if err != nil {
		return err
	}

	t := table.NewWriter()
	rows, cols := pose.Dims()
	for i := 0; i < rows; i++ {
		row := make(table.Row, cols)
		for j := 0; j < cols; j++ {
			row[j] = fmt.Sprintf("%.6f", pose.At(i, j))
		}
		t.AppendRow(row)
	}
	fmt.Fprintln(c.App.Writer, t.Render())
	renderPosition(c.App.Writer, pose)
	return nil
}

func renderPosition(w io.Writer, pose mat.Matrix) {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"X", "Y", "Z"})
	t.AppendRow(table.Row{
		fmt.Sprintf("%.6f", pose.At(0, 3)),
		fmt.Sprintf("%.6f", pose.At(1, 3)),
		fmt.Sprintf("%.6f", pose.At(2, 3)),
	})
	fmt.Fprintln(w, t.Render())
}

// InverseKinematicsAction is the corresponding Action for 'ik'.
func InverseKinematicsAction(c *cli.Context) error {
	logger := logging.Global()
	robot, err := loadRobot(c, logger)
	if err != nil {
		return err
	}
	target, err := parseVector(c.String(ikFlagTarget))
	if err != nil {
		return err
	}
	userGuess, err := parseState(c.StringSlice(ikFlagGuess))
	if err != nil {
		return err
	}
	hints, err := parseHints(c.StringSlice(ikFlagHint))
	if err != nil {
		return err
	}
	factory, err := solverFactory(c)
	if err != nil {
		return err
	}

	opts := []kinematics.IKOption{kinematics.WithSolverFactory(factory)}
	if c.IsSet(ikFlagTolerance) {
		opts = append(opts, kinematics.WithTolerance(c.Float64(ikFlagTolerance)))
	}
	group := c.String(kinFlagGroup)
	ik, err := kinematics.NewSimpleInvKinSolver(robot, group, logger, opts...)
	if err != nil {
		return err
	}

	// start from the robot's current pose
	current := robot.VirtualState()
	guess := referenceframe.State{}
	for _, u := range ik.Unknowns() {
		guess[u.Key()] = current[u.Key()]
	}
	guess = guess.Merge(userGuess)

	var solution referenceframe.State
	if c.Bool(ikFlagActuated) || len(hints) > 0 {
		solution, err = ik.SolveActuated(c.Context, target, guess, hints)
	} else {
		solution, err = ik.SolveVirtual(c.Context, target, guess)
	}
	if err != nil {
		return err
	}
	logger.Infow("ik solved", "group", group, "target", target)
	renderState(c.App.Writer, solution)
	return nil
}
