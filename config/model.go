// Package config reads robot model files. A model file lists a robot's chain in base to tip order, the same way
// referenceframe.NewRobot takes it, and may be written in JSON or YAML.
package config

import (
	"fmt"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/tripkin/logging"
	"go.viam.com/tripkin/referenceframe"
	"go.viam.com/tripkin/registry"
	"go.viam.com/tripkin/spatialmath"
)

// ModelConfig is the top level of a model file.
type ModelConfig struct {
	Name  string          `json:"name" yaml:"name"`
	Chain []ElementConfig `json:"chain" yaml:"chain"`
}

// ElementConfig is one chain element. Exactly one of its fields is set.
type ElementConfig struct {
	Transformation *TransformationConfig `json:"transformation,omitempty" yaml:"transformation,omitempty"`
	Group          *GroupConfig          `json:"group,omitempty" yaml:"group,omitempty"`
}

// TransformationConfig describes a referenceframe.Transformation.
type TransformationConfig struct {
	Name           string             `json:"name" yaml:"name"`
	Values         map[string]float64 `json:"values" yaml:"values"`
	StateVariables []string           `json:"state_variables,omitempty" yaml:"state_variables,omitempty"`
	Convention     string             `json:"convention,omitempty" yaml:"convention,omitempty"`
}

// GroupConfig describes a kinematic group. A group with a Closed section is a closed group.
type GroupConfig struct {
	Name            string                 `json:"name" yaml:"name"`
	Parent          string                 `json:"parent,omitempty" yaml:"parent,omitempty"`
	Transformations []TransformationConfig `json:"transformations" yaml:"transformations"`
	Closed          *ClosedConfig          `json:"closed,omitempty" yaml:"closed,omitempty"`
}

// ClosedConfig names the registered mapper model of a closed group and its initial actuated state.
type ClosedConfig struct {
	Mapper        string                 `json:"mapper" yaml:"mapper"`
	ActuatedState map[string]float64     `json:"actuated_state" yaml:"actuated_state"`
	Attributes    map[string]interface{} `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// Validate ensures all parts of the config are valid. Every problem found is reported, not just the first.
func (cfg *ModelConfig) Validate() error {
	var err error
	if cfg.Name == "" {
		err = multierr.Append(err, NewConfigValidationFieldRequiredError("model", "name"))
	}
	if len(cfg.Chain) == 0 {
		err = multierr.Append(err, NewConfigValidationFieldRequiredError("model", "chain"))
	}
	for idx, element := range cfg.Chain {
		err = multierr.Append(err, element.Validate(fmt.Sprintf("chain.%d", idx)))
	}
	return err
}

// Validate ensures all parts of the config are valid.
func (cfg *ElementConfig) Validate(path string) error {
	switch {
	case cfg.Transformation != nil && cfg.Group != nil:
		return NewConfigValidationError(path, errors.Errorf("only one of %q and %q may be set", "transformation", "group"))
	case cfg.Transformation != nil:
		return cfg.Transformation.Validate(path + ".transformation")
	case cfg.Group != nil:
		return cfg.Group.Validate(path + ".group")
	default:
		return NewConfigValidationFieldRequiredError(path, "transformation")
	}
}

// Validate ensures all parts of the config are valid.
func (cfg *TransformationConfig) Validate(path string) error {
	if cfg.Name == "" {
		return NewConfigValidationFieldRequiredError(path, "name")
	}
	if _, err := spatialmath.ParseConvention(cfg.Convention); err != nil {
		return NewConfigValidationError(path, err)
	}
	return nil
}

// Validate ensures all parts of the config are valid.
func (cfg *GroupConfig) Validate(path string) error {
	var err error
	if cfg.Name == "" {
		err = multierr.Append(err, NewConfigValidationFieldRequiredError(path, "name"))
	}
	for idx, t := range cfg.Transformations {
		err = multierr.Append(err, t.Validate(fmt.Sprintf("%s.transformations.%d", path, idx)))
	}
	if cfg.Closed != nil {
		if cfg.Closed.Mapper == "" {
			err = multierr.Append(err, NewConfigValidationFieldRequiredError(path+".closed", "mapper"))
		}
		if len(cfg.Closed.ActuatedState) == 0 {
			err = multierr.Append(err, NewConfigValidationFieldRequiredError(path+".closed", "actuated_state"))
		}
	}
	return err
}

// Build validates the config and creates the robot it describes. Closed groups get their mapper from the
// registry.
func (cfg *ModelConfig) Build(logger logging.Logger) (*referenceframe.Robot, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	elements := make([]referenceframe.ChainElement, 0, len(cfg.Chain))
	for idx, element := range cfg.Chain {
		path := fmt.Sprintf("chain.%d", idx)
		if element.Transformation != nil {
			t, err := element.Transformation.build()
			if err != nil {
				return nil, NewConfigValidationError(path, err)
			}
			elements = append(elements, t)
			continue
		}
		g, err := element.Group.build(logger)
		if err != nil {
			return nil, NewConfigValidationError(path, err)
		}
		elements = append(elements, g)
	}
	logger.Debugw("building robot from config", "model", cfg.Name, "elements", len(elements))
	return referenceframe.NewRobot(logger, elements...)
}

func (cfg *TransformationConfig) build() (*referenceframe.Transformation, error) {
	conv, err := spatialmath.ParseConvention(cfg.Convention)
	if err != nil {
		return nil, err
	}
	return referenceframe.NewTransformationWithConvention(cfg.Name, conv, cfg.Values, cfg.StateVariables...)
}

func (cfg *GroupConfig) build(logger logging.Logger) (referenceframe.KinematicGroup, error) {
	transformations := make([]*referenceframe.Transformation, 0, len(cfg.Transformations))
	var virtualKeys []string
	for _, tc := range cfg.Transformations {
		t, err := tc.build()
		if err != nil {
			return nil, err
		}
		for _, sv := range t.StateVariables() {
			virtualKeys = append(virtualKeys, referenceframe.JointKey(t.Name(), sv))
		}
		transformations = append(transformations, t)
	}
	var opts []referenceframe.GroupOption
	if cfg.Parent != "" {
		opts = append(opts, referenceframe.WithParent(cfg.Parent))
	}
	if cfg.Closed == nil {
		return referenceframe.NewOpenGroup(cfg.Name, transformations, opts...)
	}

	creator, err := registry.LookupMapper(cfg.Closed.Mapper)
	if err != nil {
		return nil, err
	}
	actuated := referenceframe.State(cfg.Closed.ActuatedState)
	mapper, err := creator(registry.MapperConfig{
		Group:        cfg.Name,
		ActuatedKeys: actuated.Keys(),
		VirtualKeys:  virtualKeys,
		Attributes:   cfg.Closed.Attributes,
	}, logger.Sublogger(cfg.Name))
	if err != nil {
		return nil, err
	}
	return referenceframe.NewClosedGroup(cfg.Name, transformations, actuated, mapper, opts...)
}
