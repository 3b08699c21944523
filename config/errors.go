package config

import "github.com/pkg/errors"

// ErrNoModelInformation is used when a model file is empty.
var ErrNoModelInformation = errors.New("no model information")

// NewConfigValidationError returns an error specifying that there's an error in the config at path.
func NewConfigValidationError(path string, err error) error {
	return errors.Wrapf(err, "error validating %q", path)
}

// NewConfigValidationFieldRequiredError returns an error specifying that a required field is missing at path.
func NewConfigValidationFieldRequiredError(path, field string) error {
	return NewConfigValidationError(path, errors.Errorf("%q is required", field))
}
