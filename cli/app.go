// Package cli contains the tripkin command line interface.
package cli

import (
	"io"

	"github.com/urfave/cli/v2"
)

const (
	// Flags.
	generalFlagDebug    = "debug"
	generalFlagLogLevel = "log-level"

	robotFlagModel   = "model"
	robotFlagBuiltin = "robot"
	robotFlagSolver  = "solver"

	stateFlagSet     = "set"
	stateFlagVirtual = "virtual"

	kinFlagGroup    = "group"
	ikFlagTarget    = "target"
	ikFlagGuess     = "guess"
	ikFlagHint      = "hint"
	ikFlagActuated  = "actuated"
	ikFlagTolerance = "tolerance"
)

// robotFlags select the robot a command works on.
func robotFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    robotFlagModel,
			Aliases: []string{"m"},
			Usage:   "load the robot from model `FILE` (json or yaml)",
		},
		&cli.StringFlag{
			Name:  robotFlagBuiltin,
			Usage: "use a built in robot (" + builtinRobotNames() + ")",
		},
		&cli.StringFlag{
			Name:  robotFlagSolver,
			Value: defaultSolver,
			Usage: "solver backend (" + solverNames() + ")",
		},
		&cli.StringSliceFlag{
			Name:  stateFlagSet,
			Usage: "set a joint before running, as `KEY=VALUE`; may be repeated",
		},
		&cli.BoolFlag{
			Name:  stateFlagVirtual,
			Usage: "apply --set values to the virtual state instead of the actuated state",
		},
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:            "tripkin",
		Usage:           "forward and inverse kinematics of robots with closed loops",
		HideHelpCommand: true,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    generalFlagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
			&cli.StringFlag{
				Name:  generalFlagLogLevel,
				Usage: "log at `LEVEL` and above (debug, info, warn, error); logs are discarded when unset",
			},
		},
		Before:   setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "mappers",
				Usage:  "list the registered closed group mapper models",
				Action: MappersAction,
			},
			{
				Name:   "state",
				Usage:  "print the groups of a robot and their state",
				Flags:  robotFlags(),
				Action: StateAction,
			},
			{
				Name:  "fk",
				Usage: "print the pose of a group relative to the base",
				Flags: append(robotFlags(),
					&cli.StringFlag{
						Name:     kinFlagGroup,
						Aliases:  []string{"g"},
						Required: true,
						Usage:    "target group",
					},
				),
				Action: ForwardKinematicsAction,
			},
			{
				Name:  "ik",
				Usage: "solve for the joints placing a group at a position",
				Flags: append(robotFlags(),
					&cli.StringFlag{
						Name:     kinFlagGroup,
						Aliases:  []string{"g"},
						Required: true,
						Usage:    "target group",
					},
					&cli.StringFlag{
						Name:     ikFlagTarget,
						Aliases:  []string{"t"},
						Required: true,
						Usage:    "target position as `X,Y,Z`",
					},
					&cli.StringSliceFlag{
						Name:  ikFlagGuess,
						Usage: "initial guess for an unknown as `KEY=VALUE`; unknowns not given start from the current state",
					},
					&cli.StringSliceFlag{
						Name:  ikFlagHint,
						Usage: "hint for a closed group's mapping as `GROUP:KEY=VALUE`; implies --actuated",
					},
					&cli.BoolFlag{
						Name:  ikFlagActuated,
						Usage: "print the actuated state of the whole robot instead of the solved virtual state",
					},
					&cli.Float64Flag{
						Name:  ikFlagTolerance,
						Usage: "objective tolerance of the solve",
					},
				),
				Action: InverseKinematicsAction,
			},
		},
	}
}

// NewApp returns a new app with the CLI API, Writer set to out, and ErrWriter
// set to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	app := newApp()
	app.Writer = out
	app.ErrWriter = errOut
	return app
}
